package enums

import (
	"fmt"
	"strings"
)

// AgePreference decides which end of the age range the merit score favors.
type AgePreference string

const (
	AgePreferenceOlder   AgePreference = "OLDER"
	AgePreferenceYounger AgePreference = "YOUNGER"
)

// IsValid reports whether the value is a known AgePreference.
func (a AgePreference) IsValid() bool {
	return a == AgePreferenceOlder || a == AgePreferenceYounger
}

// ParseAgePreference converts raw input (case-insensitive) into an AgePreference.
func ParseAgePreference(value string) (AgePreference, error) {
	candidate := AgePreference(strings.ToUpper(strings.TrimSpace(value)))
	if !candidate.IsValid() {
		return "", fmt.Errorf("invalid age preference %q", value)
	}
	return candidate, nil
}
