package rate

import (
	"context"
	"fmt"
	"strconv"
	"time"
)

type Action string

const (
	ActionLike    Action = "likes"
	ActionMessage Action = "messages"
)

type WindowStore interface {
	IncrementWindow(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
}

// Rule caps an action at Limit hits per Window. A non-positive Limit disables
// the rule.
type Rule struct {
	Limit  int
	Window time.Duration
}

type Limiter struct {
	store WindowStore
	rules map[Action][]Rule
}

func NewLimiter(store WindowStore) *Limiter {
	return &Limiter{
		store: store,
		rules: make(map[Action][]Rule),
	}
}

// Limit registers rules for action. It returns the limiter for chaining at
// wiring time.
func (l *Limiter) Limit(action Action, rules ...Rule) *Limiter {
	for _, rule := range rules {
		if rule.Limit <= 0 || rule.Window <= 0 {
			continue
		}
		l.rules[action] = append(l.rules[action], rule)
	}
	return l
}

// Allow records one hit of action for userID in every window and reports the
// longest wait if any window is exceeded.
func (l *Limiter) Allow(ctx context.Context, action Action, userID int64) (int64, bool, error) {
	if userID <= 0 {
		return 0, false, fmt.Errorf("invalid user id")
	}
	rules := l.rules[action]
	if len(rules) == 0 {
		return 0, true, nil
	}
	if l.store == nil {
		return 0, false, fmt.Errorf("rate limiter store is nil")
	}

	retryAfterSec := int64(0)
	for _, rule := range rules {
		count, ttl, err := l.store.IncrementWindow(ctx, windowKey(action, rule.Window, userID), rule.Window)
		if err != nil {
			return 0, false, err
		}
		if count > int64(rule.Limit) {
			retryAfterSec = maxInt64(retryAfterSec, ceilSeconds(ttl))
		}
	}

	if retryAfterSec > 0 {
		return retryAfterSec, false, nil
	}
	return 0, true, nil
}

func windowKey(action Action, window time.Duration, userID int64) string {
	return "rate:" + string(action) + ":" + window.String() + ":" + strconv.FormatInt(userID, 10)
}

func ceilSeconds(d time.Duration) int64 {
	if d <= 0 {
		return 1
	}
	sec := int64(d / time.Second)
	if d%time.Second != 0 {
		sec++
	}
	return sec
}

func maxInt64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
