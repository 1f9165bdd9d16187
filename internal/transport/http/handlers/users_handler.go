package handlers

import (
	"errors"
	"net/http"

	"github.com/ivankudzin/datingapp/internal/pkg/paging"
	userssvc "github.com/ivankudzin/datingapp/internal/services/users"
	"github.com/ivankudzin/datingapp/internal/transport/http/dto"
	httperrors "github.com/ivankudzin/datingapp/internal/transport/http/errors"
)

type UsersHandler struct {
	service *userssvc.Service
}

func NewUsersHandler(service *userssvc.Service) *UsersHandler {
	return &UsersHandler{service: service}
}

// Discover lists other users matching the query filters:
// gender, minAge, maxAge, likers, likees, orderBy, pageNumber, pageSize.
func (h *UsersHandler) Discover(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r, false)
	if !ok {
		return
	}
	if h.service == nil {
		writeInternal(w, "USERS_SERVICE_UNAVAILABLE", "users service is unavailable")
		return
	}

	params := h.service.DefaultParams()
	query := r.URL.Query()
	params.Gender = query.Get("gender")
	params.MinAge = parseIntOrDefault(query.Get("minAge"), params.MinAge)
	params.MaxAge = parseIntOrDefault(query.Get("maxAge"), params.MaxAge)
	params.Likers = parseBool(query.Get("likers"))
	params.Likees = parseBool(query.Get("likees"))
	params.OrderBy = query.Get("orderBy")
	params.Page = pageRequestFromQuery(r, params.Page.Size)

	page, err := h.service.Discover(r.Context(), identity.UserID, params)
	if err != nil {
		handleUsersError(w, err)
		return
	}

	items := make([]dto.UserResponse, 0, len(page.Items))
	for _, profile := range page.Items {
		items = append(items, mapUserProfile(profile))
	}

	meta := writePaginationHeader(w, page)
	httperrors.Write(w, http.StatusOK, dto.UsersPageResponse{
		Items: items,
		Page:  meta,
	})
}

func (h *UsersHandler) Get(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r, false)
	if !ok {
		return
	}
	if h.service == nil {
		writeInternal(w, "USERS_SERVICE_UNAVAILABLE", "users service is unavailable")
		return
	}

	userID, ok := int64URLParam(r, "user_id")
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid user id")
		return
	}

	profile, err := h.service.Get(r.Context(), identity.UserID, userID)
	if err != nil {
		handleUsersError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, mapUserProfile(profile))
}

func handleUsersError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, paging.ErrInvalidPageSize):
		writeBadRequest(w, "INVALID_PAGE_SIZE", "pageSize must be positive")
	case errors.Is(err, userssvc.ErrValidation):
		writeBadRequest(w, "VALIDATION_ERROR", errorMessage(err, "invalid users request"))
	case errors.Is(err, userssvc.ErrNotFound):
		writeNotFound(w, "USER_NOT_FOUND", "user not found")
	default:
		writeInternal(w, "INTERNAL_ERROR", "failed to load users")
	}
}

func mapUserProfile(profile userssvc.Profile) dto.UserResponse {
	return dto.UserResponse{
		ID:         profile.ID,
		Username:   profile.Username,
		KnownAs:    profile.KnownAs,
		Gender:     string(profile.Gender),
		Age:        profile.Age,
		City:       profile.City,
		Country:    profile.Country,
		PhotoURL:   profile.PhotoURL,
		Created:    profile.Created,
		LastActive: profile.LastActive,
	}
}
