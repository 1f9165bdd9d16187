package model

import (
	"time"

	"github.com/ivankudzin/datingapp/internal/domain/enums"
)

type User struct {
	ID           int64        `json:"id"`
	Username     string       `json:"username"`
	PasswordHash string       `json:"-"`
	Role         enums.Role   `json:"role"`
	Gender       enums.Gender `json:"gender"`
	DateOfBirth  time.Time    `json:"date_of_birth"`
	KnownAs      string       `json:"known_as"`
	City         string       `json:"city"`
	Country      string       `json:"country"`
	PhotoKey     string       `json:"photo_key"`
	Created      time.Time    `json:"created"`
	LastActive   time.Time    `json:"last_active"`
}
