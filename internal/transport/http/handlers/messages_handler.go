package handlers

import (
	"errors"
	"net/http"

	"github.com/ivankudzin/datingapp/internal/pkg/paging"
	messagessvc "github.com/ivankudzin/datingapp/internal/services/messages"
	"github.com/ivankudzin/datingapp/internal/transport/http/dto"
	httperrors "github.com/ivankudzin/datingapp/internal/transport/http/errors"
)

const defaultMailboxPageSize = 10

type MessagesHandler struct {
	service         *messagessvc.Service
	defaultPageSize int
}

func NewMessagesHandler(service *messagessvc.Service, defaultPageSize int) *MessagesHandler {
	if defaultPageSize <= 0 {
		defaultPageSize = defaultMailboxPageSize
	}
	return &MessagesHandler{service: service, defaultPageSize: defaultPageSize}
}

// Mailbox pages the caller's Inbox, Outbox or Unread container, chosen by
// the messageContainer query parameter.
func (h *MessagesHandler) Mailbox(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r, true)
	if !ok {
		return
	}
	if h.service == nil {
		writeInternal(w, "MESSAGES_SERVICE_UNAVAILABLE", "messages service is unavailable")
		return
	}

	page, err := h.service.Mailbox(
		r.Context(),
		identity.UserID,
		r.URL.Query().Get("messageContainer"),
		pageRequestFromQuery(r, h.defaultPageSize),
	)
	if err != nil {
		handleMessagesError(w, err)
		return
	}

	meta := writePaginationHeader(w, page)
	httperrors.Write(w, http.StatusOK, dto.MessagesPageResponse{
		Items: mapMessageItems(page.Items),
		Page:  meta,
	})
}

func (h *MessagesHandler) Get(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r, true)
	if !ok {
		return
	}
	if h.service == nil {
		writeInternal(w, "MESSAGES_SERVICE_UNAVAILABLE", "messages service is unavailable")
		return
	}

	messageID, ok := int64URLParam(r, "id")
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid message id")
		return
	}

	item, err := h.service.Get(r.Context(), identity.UserID, messageID)
	if err != nil {
		handleMessagesError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, mapMessageItem(item))
}

func (h *MessagesHandler) Thread(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r, true)
	if !ok {
		return
	}
	if h.service == nil {
		writeInternal(w, "MESSAGES_SERVICE_UNAVAILABLE", "messages service is unavailable")
		return
	}

	otherID, ok := int64URLParam(r, "recipient_id")
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid recipient id")
		return
	}

	items, err := h.service.Thread(r.Context(), identity.UserID, otherID)
	if err != nil {
		handleMessagesError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, dto.MessageThreadResponse{Items: mapMessageItems(items)})
}

func (h *MessagesHandler) Send(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r, true)
	if !ok {
		return
	}
	if h.service == nil {
		writeInternal(w, "MESSAGES_SERVICE_UNAVAILABLE", "messages service is unavailable")
		return
	}

	var req dto.CreateMessageRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid json body")
		return
	}

	item, err := h.service.Send(r.Context(), identity.UserID, req.RecipientID, req.Content)
	if err != nil {
		handleMessagesError(w, err)
		return
	}

	httperrors.Write(w, http.StatusCreated, mapMessageItem(item))
}

func (h *MessagesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r, true)
	if !ok {
		return
	}
	if h.service == nil {
		writeInternal(w, "MESSAGES_SERVICE_UNAVAILABLE", "messages service is unavailable")
		return
	}

	messageID, ok := int64URLParam(r, "id")
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid message id")
		return
	}

	removed, err := h.service.Delete(r.Context(), messageID, identity.UserID)
	if err != nil {
		handleMessagesError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, dto.DeleteMessageResponse{OK: true, Removed: removed})
}

func (h *MessagesHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r, true)
	if !ok {
		return
	}
	if h.service == nil {
		writeInternal(w, "MESSAGES_SERVICE_UNAVAILABLE", "messages service is unavailable")
		return
	}

	messageID, ok := int64URLParam(r, "id")
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid message id")
		return
	}

	item, err := h.service.MarkRead(r.Context(), messageID, identity.UserID)
	if err != nil {
		handleMessagesError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, mapMessageItem(item))
}

func handleMessagesError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, paging.ErrInvalidPageSize):
		writeBadRequest(w, "INVALID_PAGE_SIZE", "pageSize must be positive")
	case errors.Is(err, messagessvc.ErrValidation):
		writeBadRequest(w, "VALIDATION_ERROR", errorMessage(err, "invalid message request"))
	case errors.Is(err, messagessvc.ErrNotFound):
		writeNotFound(w, "NOT_FOUND", "message or user not found")
	case errors.Is(err, messagessvc.ErrUnauthorized):
		writeForbidden(w, "FORBIDDEN", "you are not a party to this message")
	case errors.Is(err, messagessvc.ErrConflictOnSave):
		writeConflict(w, "CONFLICT_ON_SAVE", "message changed, reload and try again")
	default:
		if tf, ok := messagessvc.IsTooFast(err); ok {
			httperrors.WriteRateLimited(w, httperrors.RateLimitError{
				Code:          "TOO_FAST",
				Message:       "too many messages, slow down",
				RetryAfterSec: tf.RetryAfter(),
			})
			return
		}
		writeInternal(w, "INTERNAL_ERROR", "failed to process message request")
	}
}

func mapMessageItems(items []messagessvc.Item) []dto.MessageResponse {
	out := make([]dto.MessageResponse, 0, len(items))
	for _, item := range items {
		out = append(out, mapMessageItem(item))
	}
	return out
}

func mapMessageItem(item messagessvc.Item) dto.MessageResponse {
	return dto.MessageResponse{
		ID:                item.ID,
		SenderID:          item.SenderID,
		SenderKnownAs:     item.Sender.KnownAs,
		SenderPhotoURL:    item.Sender.PhotoURL,
		RecipientID:       item.RecipientID,
		RecipientKnownAs:  item.Recipient.KnownAs,
		RecipientPhotoURL: item.Recipient.PhotoURL,
		Content:           item.Content,
		MessageSent:       item.MessageSent,
		IsRead:            item.IsRead,
		DateRead:          item.DateRead,
	}
}
