package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ivankudzin/datingapp/internal/domain/enums"
	"github.com/ivankudzin/datingapp/internal/domain/model"
	"github.com/ivankudzin/datingapp/internal/pkg/validate"
	pgrepo "github.com/ivankudzin/datingapp/internal/repo/postgres"
)

const (
	MinRefreshTTL = 24 * time.Hour
	MaxRefreshTTL = 90 * 24 * time.Hour

	minPasswordLen = 4
	maxPasswordLen = 8
)

type SessionStore interface {
	Create(ctx context.Context, session SessionRecord, refreshToken string) error
	GetSession(ctx context.Context, sid string) (SessionRecord, error)
	GetByRefreshToken(ctx context.Context, refreshToken string) (SessionRecord, error)
	RotateRefresh(ctx context.Context, sid, oldRefreshToken, newRefreshToken string, expiresAt time.Time) error
	DeleteSession(ctx context.Context, sid string) error
}

type UserStore interface {
	Create(ctx context.Context, user model.User) (model.User, error)
	FindByUsername(ctx context.Context, username string) (model.User, error)
}

type Config struct {
	RefreshTTL time.Duration
	BcryptCost int
}

type Service struct {
	jwt      *JWTManager
	sessions SessionStore
	users    UserStore
	cfg      Config
	now      func() time.Time
}

func NewService(jwtManager *JWTManager, sessions SessionStore, users UserStore, cfg Config) *Service {
	if cfg.RefreshTTL < MinRefreshTTL {
		cfg.RefreshTTL = MinRefreshTTL
	}
	if cfg.RefreshTTL > MaxRefreshTTL {
		cfg.RefreshTTL = MaxRefreshTTL
	}

	return &Service{
		jwt:      jwtManager,
		sessions: sessions,
		users:    users,
		cfg:      cfg,
		now:      time.Now,
	}
}

func (s *Service) Register(ctx context.Context, in RegisterInput) (AuthResult, error) {
	if s.users == nil {
		return AuthResult{}, fmt.Errorf("user store is not configured")
	}

	username := strings.ToLower(strings.TrimSpace(in.Username))
	if !validate.Required(username) {
		return AuthResult{}, fmt.Errorf("%w: username is required", ErrInvalidInput)
	}
	if !validate.LengthBetween(in.Password, minPasswordLen, maxPasswordLen) {
		return AuthResult{}, fmt.Errorf("%w: password must be %d to %d characters", ErrInvalidInput, minPasswordLen, maxPasswordLen)
	}
	gender, ok := enums.ParseGender(in.Gender)
	if !ok {
		return AuthResult{}, fmt.Errorf("%w: gender must be male or female", ErrInvalidInput)
	}
	if in.DateOfBirth.IsZero() || in.DateOfBirth.After(s.now()) {
		return AuthResult{}, fmt.Errorf("%w: date of birth is required", ErrInvalidInput)
	}

	hash, err := HashPassword(in.Password, s.cfg.BcryptCost)
	if err != nil {
		return AuthResult{}, err
	}

	knownAs := strings.TrimSpace(in.KnownAs)
	if knownAs == "" {
		knownAs = username
	}

	user, err := s.users.Create(ctx, model.User{
		Username:     username,
		PasswordHash: hash,
		Role:         enums.RoleUser,
		Gender:       gender,
		DateOfBirth:  in.DateOfBirth.UTC(),
		KnownAs:      knownAs,
		City:         strings.TrimSpace(in.City),
		Country:      strings.TrimSpace(in.Country),
	})
	if err != nil {
		if errors.Is(err, pgrepo.ErrUsernameTaken) {
			return AuthResult{}, ErrUsernameTaken
		}
		return AuthResult{}, fmt.Errorf("create user: %w", err)
	}

	return s.issueForUser(ctx, user)
}

func (s *Service) Login(ctx context.Context, username, password string) (AuthResult, error) {
	if s.users == nil {
		return AuthResult{}, fmt.Errorf("user store is not configured")
	}
	if !validate.Required(username) || password == "" {
		return AuthResult{}, ErrInvalidInput
	}

	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, pgrepo.ErrUserNotFound) {
			return AuthResult{}, ErrInvalidCredentials
		}
		return AuthResult{}, fmt.Errorf("find user by username: %w", err)
	}
	if err := CheckPassword(user.PasswordHash, password); err != nil {
		return AuthResult{}, err
	}

	return s.issueForUser(ctx, user)
}

func (s *Service) Refresh(ctx context.Context, refreshToken string) (AuthResult, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return AuthResult{}, ErrInvalidInput
	}

	session, err := s.sessions.GetByRefreshToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, ErrRefreshNotFound) {
			return AuthResult{}, ErrUnauthorized
		}
		return AuthResult{}, fmt.Errorf("get refresh token session: %w", err)
	}
	if s.now().After(session.ExpiresAt) {
		return AuthResult{}, ErrUnauthorized
	}

	newRefreshToken, err := NewRefreshToken()
	if err != nil {
		return AuthResult{}, fmt.Errorf("generate refresh token: %w", err)
	}

	expiresAt := s.now().Add(s.cfg.RefreshTTL)
	if err := s.sessions.RotateRefresh(ctx, session.SID, refreshToken, newRefreshToken, expiresAt); err != nil {
		if errors.Is(err, ErrRefreshNotFound) {
			return AuthResult{}, ErrUnauthorized
		}
		return AuthResult{}, fmt.Errorf("rotate refresh token: %w", err)
	}

	accessToken, accessExpires, err := s.jwt.GenerateAccessToken(session.UserID, session.SID, session.Role)
	if err != nil {
		return AuthResult{}, fmt.Errorf("generate access token: %w", err)
	}

	return AuthResult{
		AccessToken:   accessToken,
		RefreshToken:  newRefreshToken,
		AccessExpires: accessExpires,
		Account: Account{
			ID:   session.UserID,
			Role: session.Role,
		},
	}, nil
}

func (s *Service) Logout(ctx context.Context, sid string) error {
	if strings.TrimSpace(sid) == "" {
		return ErrInvalidInput
	}
	if err := s.sessions.DeleteSession(ctx, sid); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// ValidateAccessToken checks the signature and that the backing session is
// still alive, so logout takes effect before the token expires.
func (s *Service) ValidateAccessToken(ctx context.Context, accessToken string) (AccessClaims, error) {
	claims, err := s.jwt.ParseAccessToken(accessToken)
	if err != nil {
		return AccessClaims{}, ErrUnauthorized
	}

	session, err := s.sessions.GetSession(ctx, claims.SID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return AccessClaims{}, ErrUnauthorized
		}
		return AccessClaims{}, fmt.Errorf("get session: %w", err)
	}
	if session.UserID != claims.UserID || session.Role != claims.Role {
		return AccessClaims{}, ErrUnauthorized
	}
	if s.now().After(session.ExpiresAt) {
		return AccessClaims{}, ErrUnauthorized
	}

	return claims, nil
}

func (s *Service) issueForUser(ctx context.Context, user model.User) (AuthResult, error) {
	refreshToken, err := NewRefreshToken()
	if err != nil {
		return AuthResult{}, fmt.Errorf("generate refresh token: %w", err)
	}

	role := string(user.Role)
	if role == "" {
		role = string(enums.RoleUser)
	}

	session := SessionRecord{
		SID:       NewSessionID(),
		UserID:    user.ID,
		Role:      role,
		ExpiresAt: s.now().Add(s.cfg.RefreshTTL),
	}
	if err := s.sessions.Create(ctx, session, refreshToken); err != nil {
		return AuthResult{}, fmt.Errorf("create session: %w", err)
	}

	accessToken, accessExpires, err := s.jwt.GenerateAccessToken(user.ID, session.SID, role)
	if err != nil {
		return AuthResult{}, fmt.Errorf("generate access token: %w", err)
	}

	return AuthResult{
		AccessToken:   accessToken,
		RefreshToken:  refreshToken,
		AccessExpires: accessExpires,
		Account: Account{
			ID:       user.ID,
			Username: user.Username,
			Role:     role,
		},
	}, nil
}
