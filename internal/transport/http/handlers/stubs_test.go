package handlers

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ivankudzin/datingapp/internal/domain/enums"
	"github.com/ivankudzin/datingapp/internal/domain/model"
	"github.com/ivankudzin/datingapp/internal/pkg/paging"
	pgrepo "github.com/ivankudzin/datingapp/internal/repo/postgres"
	authsvc "github.com/ivankudzin/datingapp/internal/services/auth"
	ratesvc "github.com/ivankudzin/datingapp/internal/services/rate"
)

type userStoreStub struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]model.User
	likes  map[[2]int64]struct{}
}

func newUserStoreStub(users ...model.User) *userStoreStub {
	s := &userStoreStub{
		users: make(map[int64]model.User, len(users)),
		likes: make(map[[2]int64]struct{}),
	}
	for _, user := range users {
		s.users[user.ID] = user
		if user.ID > s.nextID {
			s.nextID = user.ID
		}
	}
	return s
}

func (s *userStoreStub) FindByID(_ context.Context, userID int64) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[userID]
	if !ok {
		return model.User{}, pgrepo.ErrUserNotFound
	}
	return user, nil
}

func (s *userStoreStub) FindByUsername(_ context.Context, username string) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, user := range s.users {
		if user.Username == strings.ToLower(username) {
			return user, nil
		}
	}
	return model.User{}, pgrepo.ErrUserNotFound
}

func (s *userStoreStub) Create(_ context.Context, user model.User) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Username == user.Username {
			return model.User{}, pgrepo.ErrUsernameTaken
		}
	}
	s.nextID++
	user.ID = s.nextID
	user.Created = time.Now().UTC()
	user.LastActive = user.Created
	s.users[user.ID] = user
	return user, nil
}

func (s *userStoreStub) Query(filter model.UserFilter) paging.Sequence[model.User] {
	s.mu.Lock()
	defer s.mu.Unlock()
	matched := make([]model.User, 0, len(s.users))
	for _, user := range s.users {
		if filter.Matches(user) {
			matched = append(matched, user)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return filter.Before(matched[i], matched[j]) })
	return paging.SliceSequence[model.User](matched)
}

func (s *userStoreStub) RelatedUserIDs(_ context.Context, userID int64, direction enums.LikeDirection) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]int64, 0)
	for edge := range s.likes {
		switch {
		case direction == enums.LikeDirectionLikers && edge[1] == userID:
			ids = append(ids, edge[0])
		case direction == enums.LikeDirectionLikees && edge[0] == userID:
			ids = append(ids, edge[1])
		}
	}
	return ids, nil
}

func (s *userStoreStub) TouchLastActive(_ context.Context, userID int64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[userID]
	if !ok {
		return pgrepo.ErrUserNotFound
	}
	user.LastActive = at
	s.users[userID] = user
	return nil
}

// likeStoreStub shares the like edges of a userStoreStub.
type likeStoreStub struct {
	users *userStoreStub
}

func (s likeStoreStub) Create(_ context.Context, likerID, likeeID int64) (bool, error) {
	s.users.mu.Lock()
	defer s.users.mu.Unlock()
	if _, ok := s.users.users[likeeID]; !ok {
		return false, pgrepo.ErrUserNotFound
	}
	key := [2]int64{likerID, likeeID}
	if _, ok := s.users.likes[key]; ok {
		return false, nil
	}
	s.users.likes[key] = struct{}{}
	return true, nil
}

type messageStoreStub struct {
	mu       sync.Mutex
	nextID   int64
	messages map[int64]model.Message
	// conflict makes every flag write report zero affected rows.
	conflict bool
}

func newMessageStoreStub() *messageStoreStub {
	return &messageStoreStub{messages: make(map[int64]model.Message)}
}

func (s *messageStoreStub) FindByID(_ context.Context, messageID int64) (model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg, ok := s.messages[messageID]
	if !ok {
		return model.Message{}, pgrepo.ErrMessageNotFound
	}
	return msg, nil
}

func (s *messageStoreStub) ListThread(_ context.Context, userID, otherID int64) ([]model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Message, 0)
	for _, msg := range s.messages {
		if msg.Between(userID, otherID) && msg.VisibleTo(userID) {
			out = append(out, msg)
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func (s *messageStoreStub) QueryMailbox(q model.MailboxQuery) paging.Sequence[model.Message] {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Message, 0)
	for _, msg := range s.messages {
		if q.Matches(msg) {
			out = append(out, msg)
		}
	}
	sortNewestFirst(out)
	return paging.SliceSequence[model.Message](out)
}

func (s *messageStoreStub) Create(_ context.Context, msg model.Message) (model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	msg.ID = s.nextID
	s.messages[msg.ID] = msg
	return msg, nil
}

func (s *messageStoreStub) MarkSenderDeleted(_ context.Context, messageID int64) error {
	return s.update(messageID, func(m *model.Message) { m.SenderDeleted = true })
}

func (s *messageStoreStub) MarkRecipientDeleted(_ context.Context, messageID int64) error {
	return s.update(messageID, func(m *model.Message) { m.RecipientDeleted = true })
}

func (s *messageStoreStub) MarkRead(_ context.Context, messageID int64, at time.Time) (time.Time, error) {
	var dateRead time.Time
	err := s.update(messageID, func(m *model.Message) {
		if m.DateRead == nil {
			m.DateRead = &at
		}
		m.IsRead = true
		dateRead = *m.DateRead
	})
	return dateRead, err
}

func (s *messageStoreStub) RemoveIfFullyDeleted(_ context.Context, messageID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg, ok := s.messages[messageID]
	if !ok || !msg.FullyDeleted() {
		return false, nil
	}
	delete(s.messages, messageID)
	return true, nil
}

func (s *messageStoreStub) update(messageID int64, apply func(*model.Message)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg, ok := s.messages[messageID]
	if !ok || s.conflict {
		return pgrepo.ErrNoRowsAffected
	}
	apply(&msg)
	s.messages[messageID] = msg
	return nil
}

func sortNewestFirst(msgs []model.Message) {
	sort.Slice(msgs, func(i, j int) bool {
		if !msgs[i].MessageSent.Equal(msgs[j].MessageSent) {
			return msgs[i].MessageSent.After(msgs[j].MessageSent)
		}
		return msgs[i].ID > msgs[j].ID
	})
}

type limiterStub struct {
	retryAfter int64
	denied     bool
}

func (l limiterStub) Allow(context.Context, ratesvc.Action, int64) (int64, bool, error) {
	if l.denied {
		return l.retryAfter, false, nil
	}
	return 0, true, nil
}

func withIdentity(ctx context.Context, userID int64) context.Context {
	return authsvc.WithIdentity(ctx, authsvc.Identity{
		UserID: userID,
		SID:    "sid-test",
		Role:   "user",
	})
}

func withURLParams(ctx context.Context, kv ...string) context.Context {
	routeCtx := chi.NewRouteContext()
	for i := 0; i+1 < len(kv); i += 2 {
		routeCtx.URLParams.Add(kv[i], kv[i+1])
	}
	return context.WithValue(ctx, chi.RouteCtxKey, routeCtx)
}

func testUser(id int64, gender enums.Gender, knownAs string, dob time.Time) model.User {
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(id) * time.Hour)
	return model.User{
		ID:          id,
		Username:    strings.ToLower(knownAs),
		Role:        enums.RoleUser,
		Gender:      gender,
		DateOfBirth: dob,
		KnownAs:     knownAs,
		Created:     created,
		LastActive:  created,
	}
}
