package dto

import "time"

type CreateMessageRequest struct {
	RecipientID int64  `json:"recipient_id"`
	Content     string `json:"content"`
}

type MessageResponse struct {
	ID                int64      `json:"id"`
	SenderID          int64      `json:"sender_id"`
	SenderKnownAs     string     `json:"sender_known_as"`
	SenderPhotoURL    string     `json:"sender_photo_url,omitempty"`
	RecipientID       int64      `json:"recipient_id"`
	RecipientKnownAs  string     `json:"recipient_known_as"`
	RecipientPhotoURL string     `json:"recipient_photo_url,omitempty"`
	Content           string     `json:"content"`
	MessageSent       time.Time  `json:"message_sent"`
	IsRead            bool       `json:"is_read"`
	DateRead          *time.Time `json:"date_read"`
}

type MessagesPageResponse struct {
	Items []MessageResponse `json:"items"`
	Page  PageMeta          `json:"page"`
}

type MessageThreadResponse struct {
	Items []MessageResponse `json:"items"`
}

type DeleteMessageResponse struct {
	OK      bool `json:"ok"`
	Removed bool `json:"removed"`
}
