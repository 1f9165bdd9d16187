package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ivankudzin/datingapp/internal/domain/enums"
	"github.com/ivankudzin/datingapp/internal/domain/model"
	"github.com/ivankudzin/datingapp/internal/domain/rules"
	"github.com/ivankudzin/datingapp/internal/pkg/paging"
	pgrepo "github.com/ivankudzin/datingapp/internal/repo/postgres"
)

var (
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("user not found")
)

type UserStore interface {
	FindByID(ctx context.Context, userID int64) (model.User, error)
	Query(filter model.UserFilter) paging.Sequence[model.User]
	RelatedUserIDs(ctx context.Context, userID int64, direction enums.LikeDirection) ([]int64, error)
	TouchLastActive(ctx context.Context, userID int64, at time.Time) error
}

type PhotoURLSigner interface {
	PhotoURL(ctx context.Context, key string) (string, error)
}

// ActivityThrottle grants at most one last-active write per user per window.
type ActivityThrottle interface {
	ClaimTouch(ctx context.Context, userID int64, window time.Duration) (bool, error)
}

type Config struct {
	DefaultPageSize int
	MaxPageSize     int
	ActivityWindow  time.Duration
}

type Dependencies struct {
	Users    UserStore
	Photos   PhotoURLSigner
	Throttle ActivityThrottle
	Config   Config
}

type Params struct {
	Gender  string
	MinAge  int
	MaxAge  int
	Likers  bool
	Likees  bool
	OrderBy string
	Page    paging.Request
}

// Profile is a user as shown to another user.
type Profile struct {
	model.User
	Age      int
	PhotoURL string
}

type Service struct {
	users    UserStore
	photos   PhotoURLSigner
	throttle ActivityThrottle
	cfg      Config
	now      func() time.Time
}

func NewService(deps Dependencies) *Service {
	cfg := deps.Config
	if cfg.DefaultPageSize <= 0 {
		cfg.DefaultPageSize = 10
	}
	if cfg.MaxPageSize <= 0 {
		cfg.MaxPageSize = 50
	}

	return &Service{
		users:    deps.Users,
		photos:   deps.Photos,
		throttle: deps.Throttle,
		cfg:      cfg,
		now:      time.Now,
	}
}

// DefaultParams returns discovery params with the "no filter" age range and
// the configured page size.
func (s *Service) DefaultParams() Params {
	return Params{
		MinAge: rules.DefaultMinAge,
		MaxAge: rules.DefaultMaxAge,
		Page:   paging.Request{Number: 1, Size: s.cfg.DefaultPageSize},
	}
}

func (s *Service) Discover(ctx context.Context, requesterID int64, params Params) (paging.Page[Profile], error) {
	if s.users == nil {
		return paging.Page[Profile]{}, fmt.Errorf("user store is not configured")
	}
	if params.MinAge < 0 || params.MaxAge < 0 || params.MinAge > params.MaxAge {
		return paging.Page[Profile]{}, fmt.Errorf("%w: invalid age range %d-%d", ErrValidation, params.MinAge, params.MaxAge)
	}
	page, err := params.Page.Normalize()
	if err != nil {
		return paging.Page[Profile]{}, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	if page.Size > s.cfg.MaxPageSize {
		page.Size = s.cfg.MaxPageSize
	}

	requester, err := s.users.FindByID(ctx, requesterID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrUserNotFound) {
			return paging.Page[Profile]{}, ErrNotFound
		}
		return paging.Page[Profile]{}, fmt.Errorf("load requester: %w", err)
	}

	filter, err := s.buildFilter(ctx, requester, params)
	if err != nil {
		return paging.Page[Profile]{}, err
	}

	found, err := paging.Paginate(ctx, s.users.Query(filter), page)
	if err != nil {
		return paging.Page[Profile]{}, fmt.Errorf("page users: %w", err)
	}

	profiles := make([]Profile, 0, len(found.Items))
	for _, user := range found.Items {
		profiles = append(profiles, s.profile(ctx, user))
	}

	return paging.Page[Profile]{
		Items:       profiles,
		CurrentPage: found.CurrentPage,
		PageSize:    found.PageSize,
		TotalCount:  found.TotalCount,
		TotalPages:  found.TotalPages,
	}, nil
}

func (s *Service) Get(ctx context.Context, viewerID, userID int64) (Profile, error) {
	if s.users == nil {
		return Profile{}, fmt.Errorf("user store is not configured")
	}
	if viewerID <= 0 || userID <= 0 {
		return Profile{}, ErrValidation
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrUserNotFound) {
			return Profile{}, ErrNotFound
		}
		return Profile{}, fmt.Errorf("load user: %w", err)
	}

	return s.profile(ctx, user), nil
}

// TouchLastActive stamps the user's last activity. Writes are throttled to
// one per ActivityWindow when a throttle is configured.
func (s *Service) TouchLastActive(ctx context.Context, userID int64) error {
	if s.users == nil || userID <= 0 {
		return nil
	}

	if s.throttle != nil && s.cfg.ActivityWindow > 0 {
		claimed, err := s.throttle.ClaimTouch(ctx, userID, s.cfg.ActivityWindow)
		if err != nil {
			return fmt.Errorf("claim activity touch: %w", err)
		}
		if !claimed {
			return nil
		}
	}

	if err := s.users.TouchLastActive(ctx, userID, s.now().UTC()); err != nil {
		if errors.Is(err, pgrepo.ErrUserNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("touch last active: %w", err)
	}
	return nil
}

func (s *Service) buildFilter(ctx context.Context, requester model.User, params Params) (model.UserFilter, error) {
	filter := model.UserFilter{
		ExcludeUserID: requester.ID,
		OrderBy:       enums.ParseUserOrder(params.OrderBy),
	}

	if strings.TrimSpace(params.Gender) == "" {
		filter.Gender = requester.Gender.Opposite()
	} else {
		gender, ok := enums.ParseGender(params.Gender)
		if !ok {
			return model.UserFilter{}, fmt.Errorf("%w: unknown gender %q", ErrValidation, params.Gender)
		}
		filter.Gender = gender
	}

	if params.Likers {
		ids, err := s.users.RelatedUserIDs(ctx, requester.ID, enums.LikeDirectionLikers)
		if err != nil {
			return model.UserFilter{}, fmt.Errorf("load likers: %w", err)
		}
		filter.Restrict(ids)
	}
	if params.Likees {
		ids, err := s.users.RelatedUserIDs(ctx, requester.ID, enums.LikeDirectionLikees)
		if err != nil {
			return model.UserFilter{}, fmt.Errorf("load likees: %w", err)
		}
		filter.Restrict(ids)
	}

	if !rules.IsDefaultAgeRange(params.MinAge, params.MaxAge) {
		filter.ApplyAge = true
		filter.BornAfter, filter.BornOnOrBefore = rules.BirthdateBounds(s.now(), params.MinAge, params.MaxAge)
	}

	return filter, nil
}

func (s *Service) profile(ctx context.Context, user model.User) Profile {
	out := Profile{
		User: user,
		Age:  rules.AgeOn(user.DateOfBirth, s.now()),
	}
	if user.PhotoKey != "" && s.photos != nil {
		// A missing photo url must not fail the listing.
		if photoURL, err := s.photos.PhotoURL(ctx, user.PhotoKey); err == nil {
			out.PhotoURL = photoURL
		}
	}
	return out
}
