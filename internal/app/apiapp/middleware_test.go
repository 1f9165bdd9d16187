package apiapp

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	authsvc "github.com/ivankudzin/datingapp/internal/services/auth"
)

func TestExtractBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
		ok     bool
	}{
		{header: "Bearer abc", want: "abc", ok: true},
		{header: "bearer abc", want: "abc", ok: true},
		{header: "  Bearer abc  ", want: "abc", ok: true},
		{header: "Basic abc", ok: false},
		{header: "Bearer", ok: false},
		{header: "", ok: false},
	}

	for _, tc := range tests {
		got, ok := extractBearerToken(tc.header)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("extractBearerToken(%q): got (%q, %v) want (%q, %v)", tc.header, got, ok, tc.want, tc.ok)
		}
	}
}

func TestAuthMiddlewareRejectsMissingToken(t *testing.T) {
	mw := AuthMiddleware(&authsvc.Service{}, zap.NewNop())

	rr := httptest.NewRecorder()
	mw(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		t.Fatalf("handler must not be called without a token")
	})).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/users", nil))

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestActivityMiddlewareTouchesAuthenticatedCaller(t *testing.T) {
	toucher := &toucherStub{}
	mw := ActivityMiddleware(toucher, zap.NewNop())

	handled := false
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		handled = true
		w.WriteHeader(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/v1/users", nil)
	req = req.WithContext(authsvc.WithIdentity(context.Background(), authsvc.Identity{UserID: 7, SID: "sid-7", Role: "user"}))
	rr := httptest.NewRecorder()
	mw(next).ServeHTTP(rr, req)

	if !handled || rr.Code != http.StatusNoContent {
		t.Fatalf("unexpected response: handled=%v status=%d", handled, rr.Code)
	}
	if len(toucher.touched) != 1 || toucher.touched[0] != 7 {
		t.Fatalf("unexpected touches: %v", toucher.touched)
	}

	rr = httptest.NewRecorder()
	mw(next).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/users", nil))
	if len(toucher.touched) != 1 {
		t.Fatalf("anonymous request must not touch activity: %v", toucher.touched)
	}
}

func TestActivityMiddlewareIgnoresTouchFailure(t *testing.T) {
	mw := ActivityMiddleware(&toucherStub{err: errors.New("redis down")}, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/v1/users", nil)
	req = req.WithContext(authsvc.WithIdentity(context.Background(), authsvc.Identity{UserID: 1}))
	rr := httptest.NewRecorder()
	mw(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusOK)
	}
}

type toucherStub struct {
	touched []int64
	err     error
}

func (s *toucherStub) TouchLastActive(_ context.Context, userID int64) error {
	s.touched = append(s.touched, userID)
	return s.err
}
