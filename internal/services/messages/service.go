package messages

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ivankudzin/datingapp/internal/domain/enums"
	"github.com/ivankudzin/datingapp/internal/domain/model"
	"github.com/ivankudzin/datingapp/internal/pkg/paging"
	pgrepo "github.com/ivankudzin/datingapp/internal/repo/postgres"
	ratesvc "github.com/ivankudzin/datingapp/internal/services/rate"
)

const defaultMaxContentLength = 4000

var (
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("not found")
	// ErrUnauthorized means the caller is not allowed to act on the message.
	ErrUnauthorized = errors.New("not allowed")
	// ErrConflictOnSave is returned when a mutation the store was expected to
	// apply affected nothing. It is never retried.
	ErrConflictOnSave = errors.New("message changed concurrently")
	ErrRateLimited    = errors.New("too fast")
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

type MessageStore interface {
	FindByID(ctx context.Context, messageID int64) (model.Message, error)
	ListThread(ctx context.Context, userID, otherID int64) ([]model.Message, error)
	QueryMailbox(q model.MailboxQuery) paging.Sequence[model.Message]
	Create(ctx context.Context, msg model.Message) (model.Message, error)
	MarkSenderDeleted(ctx context.Context, messageID int64) error
	MarkRecipientDeleted(ctx context.Context, messageID int64) error
	MarkRead(ctx context.Context, messageID int64, at time.Time) (time.Time, error)
	RemoveIfFullyDeleted(ctx context.Context, messageID int64) (bool, error)
}

type UserLookup interface {
	FindByID(ctx context.Context, userID int64) (model.User, error)
}

type PhotoURLSigner interface {
	PhotoURL(ctx context.Context, key string) (string, error)
}

type RateLimiter interface {
	Allow(ctx context.Context, action ratesvc.Action, userID int64) (int64, bool, error)
}

type Config struct {
	MaxContentLength int
	MaxPageSize      int
}

type Dependencies struct {
	Messages MessageStore
	Users    UserLookup
	Photos   PhotoURLSigner
	Limiter  RateLimiter
	Config   Config
}

type Participant struct {
	ID       int64
	KnownAs  string
	PhotoURL string
}

// Item is a message with display data for both parties.
type Item struct {
	model.Message
	Sender    Participant
	Recipient Participant
}

type Service struct {
	messages MessageStore
	users    UserLookup
	photos   PhotoURLSigner
	limiter  RateLimiter
	cfg      Config
	now      func() time.Time
}

func NewService(deps Dependencies) *Service {
	cfg := deps.Config
	if cfg.MaxContentLength <= 0 {
		cfg.MaxContentLength = defaultMaxContentLength
	}
	if cfg.MaxPageSize <= 0 {
		cfg.MaxPageSize = 50
	}

	return &Service{
		messages: deps.Messages,
		users:    deps.Users,
		photos:   deps.Photos,
		limiter:  deps.Limiter,
		cfg:      cfg,
		now:      time.Now,
	}
}

// Thread returns the caller's view of the conversation with otherID, newest
// first. Unread messages addressed to the caller are marked read one by one
// and returned in their read state.
func (s *Service) Thread(ctx context.Context, callerID, otherID int64) ([]Item, error) {
	if callerID <= 0 || otherID <= 0 {
		return nil, ErrValidation
	}

	thread, err := s.messages.ListThread(ctx, callerID, otherID)
	if err != nil {
		return nil, fmt.Errorf("list thread: %w", err)
	}

	visible := thread[:0]
	for _, msg := range thread {
		if msg.RecipientID == callerID && !msg.IsRead {
			dateRead, err := s.messages.MarkRead(ctx, msg.ID, s.now().UTC())
			if err != nil {
				// Removed by both parties since the listing.
				if errors.Is(err, pgrepo.ErrNoRowsAffected) {
					continue
				}
				return nil, s.mutationError("mark thread message read", err)
			}
			msg.IsRead = true
			msg.DateRead = &dateRead
		}
		visible = append(visible, msg)
	}
	thread = visible

	return s.decorate(ctx, thread), nil
}

func (s *Service) Mailbox(ctx context.Context, userID int64, container string, page paging.Request) (paging.Page[Item], error) {
	if userID <= 0 {
		return paging.Page[Item]{}, ErrValidation
	}
	req, err := page.Normalize()
	if err != nil {
		return paging.Page[Item]{}, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	if req.Size > s.cfg.MaxPageSize {
		req.Size = s.cfg.MaxPageSize
	}

	found, err := paging.Paginate(ctx, s.messages.QueryMailbox(model.MailboxQuery{
		UserID:    userID,
		Container: enums.ParseMessageContainer(container),
	}), req)
	if err != nil {
		return paging.Page[Item]{}, fmt.Errorf("page mailbox: %w", err)
	}

	return paging.Page[Item]{
		Items:       s.decorate(ctx, found.Items),
		CurrentPage: found.CurrentPage,
		PageSize:    found.PageSize,
		TotalCount:  found.TotalCount,
		TotalPages:  found.TotalPages,
	}, nil
}

func (s *Service) Get(ctx context.Context, callerID, messageID int64) (Item, error) {
	msg, err := s.load(ctx, messageID)
	if err != nil {
		return Item{}, err
	}
	if !msg.IsParty(callerID) {
		return Item{}, ErrUnauthorized
	}
	if !msg.VisibleTo(callerID) {
		return Item{}, ErrNotFound
	}

	return s.decorateOne(ctx, msg), nil
}

func (s *Service) Send(ctx context.Context, senderID, recipientID int64, content string) (Item, error) {
	if senderID <= 0 || recipientID <= 0 {
		return Item{}, ErrValidation
	}
	if strings.TrimSpace(content) == "" {
		return Item{}, fmt.Errorf("%w: content is required", ErrValidation)
	}
	if utf8.RuneCountInString(content) > s.cfg.MaxContentLength {
		return Item{}, fmt.Errorf("%w: content exceeds %d characters", ErrValidation, s.cfg.MaxContentLength)
	}
	if s.users == nil {
		return Item{}, fmt.Errorf("user lookup is not configured")
	}

	for _, id := range []int64{senderID, recipientID} {
		if _, err := s.users.FindByID(ctx, id); err != nil {
			if errors.Is(err, pgrepo.ErrUserNotFound) {
				return Item{}, fmt.Errorf("%w: user %d", ErrNotFound, id)
			}
			return Item{}, fmt.Errorf("load message party: %w", err)
		}
	}

	if s.limiter != nil {
		retryAfter, allowed, err := s.limiter.Allow(ctx, ratesvc.ActionMessage, senderID)
		if err != nil {
			return Item{}, fmt.Errorf("check message rate: %w", err)
		}
		if !allowed {
			return Item{}, TooFastError{RetryAfterSec: retryAfter}
		}
	}

	msg, err := s.messages.Create(ctx, model.Message{
		SenderID:    senderID,
		RecipientID: recipientID,
		Content:     content,
		MessageSent: s.now().UTC(),
	})
	if err != nil {
		return Item{}, fmt.Errorf("create message: %w", err)
	}

	return s.decorateOne(ctx, msg), nil
}

// Delete hides the message from userID's view. Flags only ever go from false
// to true; once both parties deleted it the row is removed. It reports
// whether the row was removed.
func (s *Service) Delete(ctx context.Context, messageID, userID int64) (bool, error) {
	msg, err := s.load(ctx, messageID)
	if err != nil {
		return false, err
	}
	if !msg.IsParty(userID) {
		return false, ErrUnauthorized
	}

	if msg.SenderID == userID && !msg.SenderDeleted {
		if err := s.messages.MarkSenderDeleted(ctx, msg.ID); err != nil {
			return false, s.mutationError("mark sender deleted", err)
		}
		msg.SenderDeleted = true
	}
	if msg.RecipientID == userID && !msg.RecipientDeleted {
		if err := s.messages.MarkRecipientDeleted(ctx, msg.ID); err != nil {
			return false, s.mutationError("mark recipient deleted", err)
		}
		msg.RecipientDeleted = true
	}

	if !msg.FullyDeleted() {
		return false, nil
	}

	removed, err := s.messages.RemoveIfFullyDeleted(ctx, msg.ID)
	if err != nil {
		return false, fmt.Errorf("remove message: %w", err)
	}
	return removed, nil
}

// MarkRead is idempotent: DateRead keeps the first read time.
func (s *Service) MarkRead(ctx context.Context, messageID, userID int64) (Item, error) {
	msg, err := s.load(ctx, messageID)
	if err != nil {
		return Item{}, err
	}
	if msg.RecipientID != userID {
		return Item{}, ErrUnauthorized
	}

	if !msg.IsRead || msg.DateRead == nil {
		dateRead, err := s.messages.MarkRead(ctx, msg.ID, s.now().UTC())
		if err != nil {
			return Item{}, s.mutationError("mark message read", err)
		}
		msg.IsRead = true
		msg.DateRead = &dateRead
	}

	return s.decorateOne(ctx, msg), nil
}

func (s *Service) load(ctx context.Context, messageID int64) (model.Message, error) {
	if messageID <= 0 {
		return model.Message{}, ErrNotFound
	}

	msg, err := s.messages.FindByID(ctx, messageID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrMessageNotFound) {
			return model.Message{}, ErrNotFound
		}
		return model.Message{}, fmt.Errorf("load message: %w", err)
	}
	return msg, nil
}

func (s *Service) mutationError(op string, err error) error {
	if errors.Is(err, pgrepo.ErrNoRowsAffected) {
		return fmt.Errorf("%s: %w", op, ErrConflictOnSave)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func (s *Service) decorate(ctx context.Context, msgs []model.Message) []Item {
	cache := make(map[int64]Participant)
	items := make([]Item, 0, len(msgs))
	for _, msg := range msgs {
		items = append(items, Item{
			Message:   msg,
			Sender:    s.participant(ctx, cache, msg.SenderID),
			Recipient: s.participant(ctx, cache, msg.RecipientID),
		})
	}
	return items
}

func (s *Service) decorateOne(ctx context.Context, msg model.Message) Item {
	return s.decorate(ctx, []model.Message{msg})[0]
}

// participant resolves display data; lookup failures leave only the ID.
func (s *Service) participant(ctx context.Context, cache map[int64]Participant, userID int64) Participant {
	if p, ok := cache[userID]; ok {
		return p
	}

	p := Participant{ID: userID}
	if s.users != nil {
		if user, err := s.users.FindByID(ctx, userID); err == nil {
			p.KnownAs = user.KnownAs
			if user.PhotoKey != "" && s.photos != nil {
				if photoURL, err := s.photos.PhotoURL(ctx, user.PhotoKey); err == nil {
					p.PhotoURL = photoURL
				}
			}
		}
	}
	cache[userID] = p
	return p
}
