package model

import (
	"time"

	"github.com/ivankudzin/datingapp/internal/domain/enums"
)

type Message struct {
	ID               int64      `json:"id"`
	SenderID         int64      `json:"sender_id"`
	RecipientID      int64      `json:"recipient_id"`
	Content          string     `json:"content"`
	MessageSent      time.Time  `json:"message_sent"`
	IsRead           bool       `json:"is_read"`
	DateRead         *time.Time `json:"date_read"`
	SenderDeleted    bool       `json:"sender_deleted"`
	RecipientDeleted bool       `json:"recipient_deleted"`
}

func (m Message) IsParty(userID int64) bool {
	return m.SenderID == userID || m.RecipientID == userID
}

// FullyDeleted reports whether both parties removed the message from their
// views, which makes the row eligible for physical removal.
func (m Message) FullyDeleted() bool {
	return m.SenderDeleted && m.RecipientDeleted
}

// VisibleTo applies the per-party soft-delete rule: only the viewer's own
// deletion flag hides a message from the viewer.
func (m Message) VisibleTo(userID int64) bool {
	if m.RecipientID == userID && !m.RecipientDeleted {
		return true
	}
	return m.SenderID == userID && !m.SenderDeleted
}

// Between reports whether the message was exchanged by a and b, in either
// direction.
func (m Message) Between(a, b int64) bool {
	return (m.SenderID == a && m.RecipientID == b) || (m.SenderID == b && m.RecipientID == a)
}

type MailboxQuery struct {
	UserID    int64
	Container enums.MessageContainer
}

func (q MailboxQuery) Matches(m Message) bool {
	switch q.Container {
	case enums.MessageContainerInbox:
		return m.RecipientID == q.UserID && !m.RecipientDeleted
	case enums.MessageContainerOutbox:
		return m.SenderID == q.UserID && !m.SenderDeleted
	default:
		return m.RecipientID == q.UserID && !m.RecipientDeleted && !m.IsRead
	}
}
