package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ivankudzin/datingapp/internal/pkg/paging"
	authsvc "github.com/ivankudzin/datingapp/internal/services/auth"
	"github.com/ivankudzin/datingapp/internal/transport/http/dto"
	httperrors "github.com/ivankudzin/datingapp/internal/transport/http/errors"
)

func decodeJSON(r *http.Request, target any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(target)
}

func writeBadRequest(w http.ResponseWriter, code, message string) {
	httperrors.Write(w, http.StatusBadRequest, httperrors.APIError{Code: code, Message: message})
}

func writeUnauthorized(w http.ResponseWriter, code, message string) {
	httperrors.Write(w, http.StatusUnauthorized, httperrors.APIError{Code: code, Message: message})
}

func writeForbidden(w http.ResponseWriter, code, message string) {
	httperrors.Write(w, http.StatusForbidden, httperrors.APIError{Code: code, Message: message})
}

func writeNotFound(w http.ResponseWriter, code, message string) {
	httperrors.Write(w, http.StatusNotFound, httperrors.APIError{Code: code, Message: message})
}

func writeConflict(w http.ResponseWriter, code, message string) {
	httperrors.Write(w, http.StatusConflict, httperrors.APIError{Code: code, Message: message})
}

func writeInternal(w http.ResponseWriter, code, message string) {
	httperrors.Write(w, http.StatusInternalServerError, httperrors.APIError{Code: code, Message: message})
}

func maxInt64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

func parseIntOrDefault(raw string, fallback int) int {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fallback
	}
	return value
}

func parseBool(raw string) bool {
	value, err := strconv.ParseBool(strings.TrimSpace(raw))
	return err == nil && value
}

func int64URLParam(r *http.Request, key string) (int64, bool) {
	if r == nil {
		return 0, false
	}
	raw := strings.TrimSpace(chi.URLParam(r, key))
	if raw == "" {
		return 0, false
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || value <= 0 {
		return 0, false
	}
	return value, true
}

// requireIdentity returns the caller and, for routes scoped by {user_id},
// insists that the path names the caller. Failures are written as 401.
func requireIdentity(w http.ResponseWriter, r *http.Request, scopedByPath bool) (authsvc.Identity, bool) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok || identity.UserID <= 0 {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return authsvc.Identity{}, false
	}
	if !scopedByPath {
		return identity, true
	}

	pathUserID, ok := int64URLParam(r, "user_id")
	if !ok || pathUserID != identity.UserID {
		writeUnauthorized(w, "UNAUTHORIZED", "path user does not match the authenticated user")
		return authsvc.Identity{}, false
	}
	return identity, true
}

func pageRequestFromQuery(r *http.Request, defaultSize int) paging.Request {
	query := r.URL.Query()
	return paging.Request{
		Number: parseIntOrDefault(query.Get("pageNumber"), 1),
		Size:   parseIntOrDefault(query.Get("pageSize"), defaultSize),
	}
}

// writePaginationHeader mirrors page metadata into X-Pagination for clients
// that read it from headers.
func writePaginationHeader[T any](w http.ResponseWriter, page paging.Page[T]) dto.PageMeta {
	header, err := json.Marshal(dto.PaginationHeader{
		CurrentPage:  page.CurrentPage,
		ItemsPerPage: page.PageSize,
		TotalItems:   page.TotalCount,
		TotalPages:   page.TotalPages,
	})
	if err == nil {
		w.Header().Set("X-Pagination", string(header))
		w.Header().Set("Access-Control-Expose-Headers", "X-Pagination")
	}

	return dto.PageMeta{
		CurrentPage: page.CurrentPage,
		PageSize:    page.PageSize,
		TotalCount:  page.TotalCount,
		TotalPages:  page.TotalPages,
	}
}
