package likes

import (
	"context"
	"errors"
	"fmt"

	pgrepo "github.com/ivankudzin/datingapp/internal/repo/postgres"
	ratesvc "github.com/ivankudzin/datingapp/internal/services/rate"
)

var (
	ErrValidation      = errors.New("validation error")
	ErrNotFound        = errors.New("user not found")
	ErrAlreadyLiked    = errors.New("you already like this user")
	ErrRateLimited     = errors.New("too fast")
	ErrDependenciesNil = errors.New("likes dependencies are not configured")
)

type TooFastError struct {
	RetryAfterSec int64
}

func (e TooFastError) Error() string {
	return "too fast"
}

func (e TooFastError) Unwrap() error {
	return ErrRateLimited
}

func (e TooFastError) RetryAfter() int64 {
	if e.RetryAfterSec <= 0 {
		return 1
	}
	return e.RetryAfterSec
}

func IsTooFast(err error) (*TooFastError, bool) {
	var tf TooFastError
	if errors.As(err, &tf) {
		return &tf, true
	}
	return nil, false
}

type LikeStore interface {
	Create(ctx context.Context, likerID, likeeID int64) (bool, error)
}

type RateLimiter interface {
	Allow(ctx context.Context, action ratesvc.Action, userID int64) (int64, bool, error)
}

type Service struct {
	likes   LikeStore
	limiter RateLimiter
}

func NewService(likes LikeStore, limiter RateLimiter) *Service {
	return &Service{
		likes:   likes,
		limiter: limiter,
	}
}

func (s *Service) LikeUser(ctx context.Context, likerID, likeeID int64) error {
	if likerID <= 0 || likeeID <= 0 {
		return ErrValidation
	}
	if likerID == likeeID {
		return fmt.Errorf("%w: you cannot like yourself", ErrValidation)
	}
	if s.likes == nil {
		return ErrDependenciesNil
	}

	if s.limiter != nil {
		retryAfter, allowed, err := s.limiter.Allow(ctx, ratesvc.ActionLike, likerID)
		if err != nil {
			return fmt.Errorf("check like rate: %w", err)
		}
		if !allowed {
			return TooFastError{RetryAfterSec: retryAfter}
		}
	}

	created, err := s.likes.Create(ctx, likerID, likeeID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrUserNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("create like: %w", err)
	}
	if !created {
		return ErrAlreadyLiked
	}

	return nil
}
