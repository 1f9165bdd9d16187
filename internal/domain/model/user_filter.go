package model

import (
	"time"

	"github.com/ivankudzin/datingapp/internal/domain/enums"
)

// UserFilter is the conjunctive predicate set used to select discovery
// candidates. Zero values mean the predicate is not applied, except
// ExcludeUserID which is always honoured when positive.
type UserFilter struct {
	ExcludeUserID int64
	Gender        enums.Gender

	// RestrictIDs narrows candidates to IDs. An empty IDs with RestrictIDs set
	// matches nobody.
	RestrictIDs bool
	IDs         []int64

	// ApplyAge keeps users born in (BornAfter, BornOnOrBefore].
	ApplyAge       bool
	BornAfter      time.Time
	BornOnOrBefore time.Time

	OrderBy enums.UserOrder
}

// Restrict intersects the current ID restriction with ids.
func (f *UserFilter) Restrict(ids []int64) {
	if !f.RestrictIDs {
		f.RestrictIDs = true
		f.IDs = dedupeIDs(ids)
		return
	}

	allowed := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		allowed[id] = struct{}{}
	}
	kept := make([]int64, 0, len(f.IDs))
	for _, id := range f.IDs {
		if _, ok := allowed[id]; ok {
			kept = append(kept, id)
		}
	}
	f.IDs = kept
}

// Matches is the reference predicate. The postgres user store renders the same
// conditions in SQL and its tests check the bound arguments against Matches.
func (f UserFilter) Matches(u User) bool {
	if f.ExcludeUserID > 0 && u.ID == f.ExcludeUserID {
		return false
	}
	if f.Gender != "" && u.Gender != f.Gender {
		return false
	}
	if f.RestrictIDs && !containsID(f.IDs, u.ID) {
		return false
	}
	if f.ApplyAge {
		dob := dateOf(u.DateOfBirth)
		if !dob.After(f.BornAfter) || dob.After(f.BornOnOrBefore) {
			return false
		}
	}
	return true
}

// Before reports whether a sorts ahead of b: newest first by the selected
// timestamp, then by id. The SQL ORDER BY in the postgres user store follows
// the same order.
func (f UserFilter) Before(a, b User) bool {
	left, right := a.LastActive, b.LastActive
	if f.OrderBy == enums.UserOrderCreated {
		left, right = a.Created, b.Created
	}
	if !left.Equal(right) {
		return left.After(right)
	}
	return a.ID > b.ID
}

func dateOf(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

func containsID(ids []int64, id int64) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}

func dedupeIDs(ids []int64) []int64 {
	out := make([]int64, 0, len(ids))
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
