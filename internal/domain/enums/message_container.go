package enums

import "strings"

type MessageContainer string

const (
	MessageContainerInbox  MessageContainer = "Inbox"
	MessageContainerOutbox MessageContainer = "Outbox"
	MessageContainerUnread MessageContainer = "Unread"
)

// ParseMessageContainer is case-insensitive; anything unrecognised falls back
// to Unread.
func ParseMessageContainer(raw string) MessageContainer {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "inbox":
		return MessageContainerInbox
	case "outbox":
		return MessageContainerOutbox
	default:
		return MessageContainerUnread
	}
}
