package postgres

import (
	"testing"
	"time"

	"github.com/ivankudzin/datingapp/internal/domain/enums"
	"github.com/ivankudzin/datingapp/internal/domain/model"
	"github.com/ivankudzin/datingapp/internal/domain/rules"
)

// whereHolds evaluates userFilterWhere against u the way Postgres would,
// reading only the bound arguments.
func whereHolds(t *testing.T, args []any, u model.User) bool {
	t.Helper()

	if len(args) != 8 {
		t.Fatalf("unexpected arg count: got %d want 8", len(args))
	}
	excludeID := args[0].(int64)
	applyGender := args[1].(bool)
	gender := args[2].(string)
	restrict := args[3].(bool)
	ids := args[4].([]int64)
	applyAge := args[5].(bool)
	bornAfter := rules.DateOnly(args[6].(time.Time))
	bornOnOrBefore := rules.DateOnly(args[7].(time.Time))

	if excludeID > 0 && u.ID == excludeID {
		return false
	}
	if applyGender && string(u.Gender) != gender {
		return false
	}
	if restrict {
		found := false
		for _, id := range ids {
			if id == u.ID {
				found = true
			}
		}
		if !found {
			return false
		}
	}
	if applyAge {
		dob := rules.DateOnly(u.DateOfBirth)
		if !dob.After(bornAfter) || dob.After(bornOnOrBefore) {
			return false
		}
	}
	return true
}

func TestUserFilterArgsAgreeWithMatches(t *testing.T) {
	today := time.Date(2024, 2, 29, 10, 0, 0, 0, time.UTC)
	after, onOrBefore := rules.BirthdateBounds(today, 18, 30)

	users := []model.User{
		{ID: 1, Gender: enums.GenderMale, DateOfBirth: time.Date(1990, 5, 1, 0, 0, 0, 0, time.UTC)},
		{ID: 2, Gender: enums.GenderFemale, DateOfBirth: time.Date(2006, 2, 28, 0, 0, 0, 0, time.UTC)},
		{ID: 3, Gender: enums.GenderFemale, DateOfBirth: time.Date(2006, 3, 1, 0, 0, 0, 0, time.UTC)},
		{ID: 4, Gender: enums.GenderFemale, DateOfBirth: time.Date(1993, 3, 1, 0, 0, 0, 0, time.UTC)},
		{ID: 5, Gender: enums.GenderMale, DateOfBirth: time.Date(1993, 2, 28, 0, 0, 0, 0, time.UTC)},
	}

	restricted := model.UserFilter{ExcludeUserID: 1}
	restricted.Restrict([]int64{2, 3, 4})
	restricted.Restrict([]int64{3, 4, 5})

	emptyRestriction := model.UserFilter{}
	emptyRestriction.Restrict(nil)

	filters := map[string]model.UserFilter{
		"no predicates":     {},
		"exclude requester": {ExcludeUserID: 1},
		"gender":            {ExcludeUserID: 1, Gender: enums.GenderFemale},
		"intersected ids":   restricted,
		"empty restriction": emptyRestriction,
		"age window": {
			ExcludeUserID:  1,
			ApplyAge:       true,
			BornAfter:      after,
			BornOnOrBefore: onOrBefore,
		},
	}

	for name, filter := range filters {
		t.Run(name, func(t *testing.T) {
			args := userFilterArgs(filter)
			for _, u := range users {
				if got, want := whereHolds(t, args, u), filter.Matches(u); got != want {
					t.Fatalf("user %d: sql predicate %v, Matches %v", u.ID, got, want)
				}
			}
		})
	}
}

func TestUserOrderArgMatchesSQLLiteral(t *testing.T) {
	// Slice compares $9 with the literal 'created'.
	if string(enums.UserOrderCreated) != "created" {
		t.Fatalf("created order renders as %q", enums.UserOrderCreated)
	}
	if string(enums.ParseUserOrder("bogus")) == "created" {
		t.Fatalf("unknown order must fall back to last active")
	}
}
