package dto

type LikeResponse struct {
	OK      bool  `json:"ok"`
	LikeeID int64 `json:"likee_id"`
}
