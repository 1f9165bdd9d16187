package rules

import "time"

const (
	DefaultMinAge = 18
	DefaultMaxAge = 99
)

// DateOnly truncates t to midnight UTC.
func DateOnly(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// AgeOn returns full years between dob and today.
func AgeOn(dob, today time.Time) int {
	if dob.IsZero() {
		return 0
	}

	birth := DateOnly(dob)
	day := DateOnly(today)
	age := day.Year() - birth.Year()
	if birth.After(yearsBefore(day, age)) {
		age--
	}
	if age < 0 {
		return 0
	}
	return age
}

// IsDefaultAgeRange reports whether [minAge, maxAge] is the "no age filter"
// range.
func IsDefaultAgeRange(minAge, maxAge int) bool {
	return minAge == DefaultMinAge && maxAge == DefaultMaxAge
}

// BirthdateBounds returns the window of birth dates for people aged
// minAge..maxAge on today: after is exclusive, onOrBefore inclusive.
func BirthdateBounds(today time.Time, minAge, maxAge int) (after, onOrBefore time.Time) {
	day := DateOnly(today)
	return yearsBefore(day, maxAge+1), yearsBefore(day, minAge)
}

// yearsBefore moves day back n calendar years. Feb 29 lands on Feb 28 in a
// non-leap year instead of rolling over into March.
func yearsBefore(day time.Time, n int) time.Time {
	year := day.Year() - n
	if day.Month() == time.February && day.Day() == 29 && !isLeap(year) {
		return time.Date(year, time.February, 28, 0, 0, 0, 0, time.UTC)
	}
	return time.Date(year, day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
}

func isLeap(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}
