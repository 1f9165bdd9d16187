package dto

import "time"

type UserResponse struct {
	ID         int64     `json:"id"`
	Username   string    `json:"username"`
	KnownAs    string    `json:"known_as"`
	Gender     string    `json:"gender"`
	Age        int       `json:"age"`
	City       string    `json:"city"`
	Country    string    `json:"country"`
	PhotoURL   string    `json:"photo_url,omitempty"`
	Created    time.Time `json:"created"`
	LastActive time.Time `json:"last_active"`
}

type UsersPageResponse struct {
	Items []UserResponse `json:"items"`
	Page  PageMeta       `json:"page"`
}
