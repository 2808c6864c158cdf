package merit

import (
	"fmt"
	"time"

	"github.com/angelmondragon/recruitment-backend/pkg/enums"
)

// DefaultEducationRankCap bounds the education tier so a misconfigured
// display_order can never push the score out of int64 range.
const DefaultEducationRankCap = 999

// ScoringPolicy is every knob the scorer reads. Scoring is a pure function
// of (candidate, policy).
type ScoringPolicy struct {
	AgePreference    enums.AgePreference
	EducationRankCap int
	// AsOf is the reference date for age and ongoing experience.
	AsOf time.Time
}

// DefaultPolicy favours older candidates and uses the default rank cap.
func DefaultPolicy(asOf time.Time) ScoringPolicy {
	return ScoringPolicy{
		AgePreference:    enums.AgePreferenceOlder,
		EducationRankCap: DefaultEducationRankCap,
		AsOf:             asOf,
	}
}

// Validate checks the policy before it is handed to the scorer.
func (p ScoringPolicy) Validate() error {
	if !p.AgePreference.IsValid() {
		return fmt.Errorf("invalid age preference %q", p.AgePreference)
	}
	if p.EducationRankCap <= 0 || p.EducationRankCap > MaxEducationRankCap {
		return fmt.Errorf("education rank cap must be between 1 and %d", MaxEducationRankCap)
	}
	if p.AsOf.IsZero() {
		return fmt.Errorf("as-of date is required")
	}
	return nil
}

// WithAsOf returns a copy of the policy evaluated at asOf.
func (p ScoringPolicy) WithAsOf(asOf time.Time) ScoringPolicy {
	p.AsOf = asOf
	return p
}
