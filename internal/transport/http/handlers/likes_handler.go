package handlers

import (
	"errors"
	"net/http"

	likessvc "github.com/ivankudzin/datingapp/internal/services/likes"
	"github.com/ivankudzin/datingapp/internal/transport/http/dto"
	httperrors "github.com/ivankudzin/datingapp/internal/transport/http/errors"
)

type LikesHandler struct {
	service *likessvc.Service
}

func NewLikesHandler(service *likessvc.Service) *LikesHandler {
	return &LikesHandler{service: service}
}

// Like handles POST /users/{user_id}/like/{recipient_id}.
func (h *LikesHandler) Like(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r, true)
	if !ok {
		return
	}
	if h.service == nil {
		writeInternal(w, "LIKES_SERVICE_UNAVAILABLE", "likes service is unavailable")
		return
	}

	likeeID, ok := int64URLParam(r, "recipient_id")
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid recipient id")
		return
	}

	if err := h.service.LikeUser(r.Context(), identity.UserID, likeeID); err != nil {
		switch {
		case errors.Is(err, likessvc.ErrValidation):
			writeBadRequest(w, "VALIDATION_ERROR", errorMessage(err, "invalid like request"))
		case errors.Is(err, likessvc.ErrNotFound):
			writeNotFound(w, "USER_NOT_FOUND", "user not found")
		case errors.Is(err, likessvc.ErrAlreadyLiked):
			writeBadRequest(w, "ALREADY_LIKED", "you already like this user")
		default:
			if tf, ok := likessvc.IsTooFast(err); ok {
				httperrors.WriteRateLimited(w, httperrors.RateLimitError{
					Code:          "TOO_FAST",
					Message:       "too many likes, slow down",
					RetryAfterSec: tf.RetryAfter(),
				})
				return
			}
			writeInternal(w, "INTERNAL_ERROR", "failed to like user")
		}
		return
	}

	httperrors.Write(w, http.StatusOK, dto.LikeResponse{OK: true, LikeeID: likeeID})
}
