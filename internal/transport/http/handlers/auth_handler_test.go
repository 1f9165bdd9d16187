package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	redrepo "github.com/ivankudzin/datingapp/internal/repo/redis"
	authsvc "github.com/ivankudzin/datingapp/internal/services/auth"
	"github.com/ivankudzin/datingapp/internal/transport/http/dto"
)

func newAuthHandlerForTest(t *testing.T) *AuthHandler {
	t.Helper()

	mini, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	client := goredis.NewClient(&goredis.Options{Addr: mini.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
		mini.Close()
	})

	svc := authsvc.NewService(
		authsvc.NewJWTManager("test-secret", 15*time.Minute),
		redrepo.NewSessionRepo(client),
		newUserStoreStub(),
		authsvc.Config{RefreshTTL: 7 * 24 * time.Hour, BcryptCost: bcrypt.MinCost},
	)
	return NewAuthHandler(svc)
}

func postJSON(t *testing.T, handler http.HandlerFunc, target string, body any) *httptest.ResponseRecorder {
	t.Helper()

	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request body: %v", err)
	}
	rr := httptest.NewRecorder()
	handler(rr, httptest.NewRequest(http.MethodPost, target, bytes.NewReader(raw)))
	return rr
}

func TestRegisterLoginRefresh(t *testing.T) {
	h := newAuthHandlerForTest(t)
	register := dto.RegisterRequest{
		Username:    "Lisa",
		Password:    "pa55",
		Gender:      "female",
		DateOfBirth: "1996-02-29",
		KnownAs:     "Lisa",
		City:        "Minsk",
	}

	rr := postJSON(t, h.Register, "/v1/auth/register", register)
	if rr.Code != http.StatusCreated {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusCreated)
	}

	rr = postJSON(t, h.Register, "/v1/auth/register", register)
	if rr.Code != http.StatusConflict {
		t.Fatalf("duplicate register: got %d want %d", rr.Code, http.StatusConflict)
	}

	rr = postJSON(t, h.Login, "/v1/auth/login", dto.LoginRequest{Username: "lisa", Password: "wrong"})
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("bad password: got %d want %d", rr.Code, http.StatusUnauthorized)
	}

	rr = postJSON(t, h.Login, "/v1/auth/login", dto.LoginRequest{Username: "lisa", Password: "pa55"})
	if rr.Code != http.StatusOK {
		t.Fatalf("login: got %d want %d", rr.Code, http.StatusOK)
	}
	var tokens dto.AuthTokensResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &tokens); err != nil {
		t.Fatalf("decode tokens: %v", err)
	}
	if tokens.AccessToken == "" || tokens.RefreshToken == "" || tokens.ExpiresInSec <= 0 || tokens.Me.Username != "lisa" {
		t.Fatalf("unexpected tokens response: %+v", tokens)
	}

	rr = postJSON(t, h.Refresh, "/v1/auth/refresh", dto.RefreshRequest{RefreshToken: tokens.RefreshToken})
	if rr.Code != http.StatusOK {
		t.Fatalf("refresh: got %d want %d", rr.Code, http.StatusOK)
	}

	rr = postJSON(t, h.Refresh, "/v1/auth/refresh", dto.RefreshRequest{RefreshToken: tokens.RefreshToken})
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("reused refresh token: got %d want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestRegisterValidation(t *testing.T) {
	h := newAuthHandlerForTest(t)

	tests := []struct {
		name string
		body any
	}{
		{name: "bad date", body: dto.RegisterRequest{Username: "a", Password: "pa55", Gender: "male", DateOfBirth: "01.02.1990"}},
		{name: "short password", body: dto.RegisterRequest{Username: "a", Password: "abc", Gender: "male", DateOfBirth: "1990-01-02"}},
		{name: "unknown field", body: map[string]any{"username": "a", "nickname": "b"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rr := postJSON(t, h.Register, "/v1/auth/register", tc.body)
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusBadRequest)
			}
		})
	}
}

func TestLogoutRequiresIdentity(t *testing.T) {
	h := newAuthHandlerForTest(t)

	rr := httptest.NewRecorder()
	h.Logout(rr, httptest.NewRequest(http.MethodPost, "/v1/auth/logout", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusUnauthorized)
	}

	rr = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/auth/logout", nil)
	h.Logout(rr, req.WithContext(withIdentity(context.Background(), 1)))
	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusOK)
	}
}
