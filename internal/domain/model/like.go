package model

import "time"

// Like is a directed edge: LikerID likes LikeeID.
type Like struct {
	LikerID int64     `json:"liker_id"`
	LikeeID int64     `json:"likee_id"`
	Created time.Time `json:"created"`
}
