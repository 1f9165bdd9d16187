package enums

import "strings"

type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

func ParseGender(raw string) (Gender, bool) {
	switch Gender(strings.ToLower(strings.TrimSpace(raw))) {
	case GenderMale:
		return GenderMale, true
	case GenderFemale:
		return GenderFemale, true
	default:
		return "", false
	}
}

// Opposite returns the gender a user of g is matched against when no explicit
// preference is given.
func (g Gender) Opposite() Gender {
	if g == GenderFemale {
		return GenderMale
	}
	return GenderFemale
}
