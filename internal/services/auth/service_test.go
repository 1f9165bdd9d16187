package auth_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"github.com/ivankudzin/datingapp/internal/domain/model"
	pgrepo "github.com/ivankudzin/datingapp/internal/repo/postgres"
	redrepo "github.com/ivankudzin/datingapp/internal/repo/redis"
	authsvc "github.com/ivankudzin/datingapp/internal/services/auth"
)

func TestRegisterThenLogin(t *testing.T) {
	svc, users := newAuthServiceForTest(t)
	ctx := context.Background()

	registered, err := svc.Register(ctx, validRegisterInput("Lisa"))
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if registered.Account.Username != "lisa" || registered.Account.Role != "user" {
		t.Fatalf("unexpected account: %+v", registered.Account)
	}
	if stored := users.byName["lisa"]; stored.PasswordHash == "" || stored.PasswordHash == "pa55" {
		t.Fatalf("expected hashed password, got %q", stored.PasswordHash)
	}

	loggedIn, err := svc.Login(ctx, "lisa", "pa55")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if loggedIn.Account.ID != registered.Account.ID {
		t.Fatalf("unexpected login user: got %d want %d", loggedIn.Account.ID, registered.Account.ID)
	}

	if _, err := svc.Login(ctx, "lisa", "wrong"); !errors.Is(err, authsvc.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.Login(ctx, "nobody", "pa55"); !errors.Is(err, authsvc.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown user, got %v", err)
	}
	if _, err := svc.Register(ctx, validRegisterInput("lisa")); !errors.Is(err, authsvc.ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	svc, _ := newAuthServiceForTest(t)
	ctx := context.Background()

	cases := []struct {
		name   string
		mutate func(in *authsvc.RegisterInput)
	}{
		{name: "blank_username", mutate: func(in *authsvc.RegisterInput) { in.Username = "  " }},
		{name: "short_password", mutate: func(in *authsvc.RegisterInput) { in.Password = "abc" }},
		{name: "long_password", mutate: func(in *authsvc.RegisterInput) { in.Password = "abcdefghi" }},
		{name: "unknown_gender", mutate: func(in *authsvc.RegisterInput) { in.Gender = "other" }},
		{name: "missing_birthdate", mutate: func(in *authsvc.RegisterInput) { in.DateOfBirth = time.Time{} }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := validRegisterInput("valid")
			tc.mutate(&in)
			if _, err := svc.Register(ctx, in); !errors.Is(err, authsvc.ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestRefreshRotation(t *testing.T) {
	svc, _ := newAuthServiceForTest(t)
	ctx := context.Background()

	loginRes, err := svc.Register(ctx, validRegisterInput("todd"))
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	refreshRes, err := svc.Refresh(ctx, loginRes.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if refreshRes.RefreshToken == loginRes.RefreshToken {
		t.Fatalf("refresh token was not rotated")
	}

	if _, err := svc.Refresh(ctx, loginRes.RefreshToken); !errors.Is(err, authsvc.ErrUnauthorized) {
		t.Fatalf("old refresh token should be unauthorized, got err=%v", err)
	}
	if _, err := svc.ValidateAccessToken(ctx, refreshRes.AccessToken); err != nil {
		t.Fatalf("new access token validation failed: %v", err)
	}
}

func TestLogoutInvalidatesSession(t *testing.T) {
	svc, _ := newAuthServiceForTest(t)
	ctx := context.Background()

	loginRes, err := svc.Register(ctx, validRegisterInput("karen"))
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	claims, err := svc.ValidateAccessToken(ctx, loginRes.AccessToken)
	if err != nil {
		t.Fatalf("validate access token before logout: %v", err)
	}
	if err := svc.Logout(ctx, claims.SID); err != nil {
		t.Fatalf("logout: %v", err)
	}

	if _, err := svc.ValidateAccessToken(ctx, loginRes.AccessToken); !errors.Is(err, authsvc.ErrUnauthorized) {
		t.Fatalf("access token should be unauthorized after logout, got err=%v", err)
	}
}

func TestJWTRejectsForeignSecret(t *testing.T) {
	issuer := authsvc.NewJWTManager("secret-a", time.Minute)
	verifier := authsvc.NewJWTManager("secret-b", time.Minute)

	token, _, err := issuer.GenerateAccessToken(5, "sid", "user")
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	if _, err := verifier.ParseAccessToken(token); !errors.Is(err, authsvc.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}

	claims, err := issuer.ParseAccessToken(token)
	if err != nil {
		t.Fatalf("parse own token: %v", err)
	}
	if claims.UserID != 5 || claims.SID != "sid" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

type memoryUserStore struct {
	mu     sync.Mutex
	nextID int64
	byName map[string]model.User
}

func (s *memoryUserStore) Create(_ context.Context, user model.User) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byName[user.Username]; ok {
		return model.User{}, pgrepo.ErrUsernameTaken
	}
	s.nextID++
	user.ID = s.nextID
	s.byName[user.Username] = user
	return user, nil
}

func (s *memoryUserStore) FindByUsername(_ context.Context, username string) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.byName[strings.ToLower(username)]
	if !ok {
		return model.User{}, pgrepo.ErrUserNotFound
	}
	return user, nil
}

func validRegisterInput(username string) authsvc.RegisterInput {
	return authsvc.RegisterInput{
		Username:    username,
		Password:    "pa55",
		Gender:      "female",
		DateOfBirth: time.Date(1996, 4, 12, 0, 0, 0, 0, time.UTC),
		City:        "Minsk",
		Country:     "Belarus",
	}
}

func newAuthServiceForTest(t *testing.T) (*authsvc.Service, *memoryUserStore) {
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

	users := &memoryUserStore{byName: make(map[string]model.User)}
	svc := authsvc.NewService(
		authsvc.NewJWTManager("test-secret", 15*time.Minute),
		redrepo.NewSessionRepo(client),
		users,
		authsvc.Config{RefreshTTL: 7 * 24 * time.Hour, BcryptCost: bcrypt.MinCost},
	)

	return svc, users
}
