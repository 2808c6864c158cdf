package merit

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/recruitment-backend/pkg/enums"
)

// Tier bounds. Each weight is larger than the combined maximum of every
// tier below it, so a lower tier can never outweigh a higher one.
//
// These weights are not the legacy 1e8/1e5/1e4/10 packing. Only the ordering
// of scores is stable; merit_score values written by the old system are not
// comparable with values computed here.
const (
	MaxAgeScore         = 100
	MaxExperienceMonths = 999
	// MaxMarksHundredths is 100.00% expressed in hundredths of a percent.
	MaxMarksHundredths = 10000
	// MaxEducationRankCap keeps the education tier inside int64.
	MaxEducationRankCap = 9999

	WeightAge        int64 = 1
	WeightExperience int64 = 1_000
	WeightLocality   int64 = 1_000_000
	WeightMarks      int64 = 10_000_000
	WeightEducation  int64 = 1_000_000_000_000
)

// Education is one qualification. Rank is the configurable display_order
// of the qualification level.
type Education struct {
	Rank       int
	Percentage decimal.Decimal
}

// Experience is one employment period; a nil End means ongoing.
type Experience struct {
	Start    time.Time
	End      *time.Time
	Relevant bool
}

// Candidate is everything the scorer needs about one application.
type Candidate struct {
	DateOfBirth         *time.Time
	PermanentDistrictID *uuid.UUID
	Educations          []Education
	Experiences         []Experience
}

// Breakdown exposes the per-tier components of a score for display. The
// components are raw values, not the legacy scaled digits.
type Breakdown struct {
	EducationRank    int    `json:"education_rank"`
	Marks            string `json:"marks"`
	MarksHundredths  int64  `json:"-"`
	Local            bool   `json:"local"`
	ExperienceMonths int    `json:"experience_months"`
	Age              int    `json:"age"`
	AgeScore         int    `json:"age_score"`
}

// Score is the combined ordinal plus the components it was built from.
// Value only orders candidates; its magnitude follows the Weight constants
// and differs from scores stored by the legacy encoding.
type Score struct {
	Value     int64     `json:"score"`
	Breakdown Breakdown `json:"breakdown"`
}

// Compute scores a candidate for a post located in postDistrictID. It reads
// nothing but its arguments.
func Compute(c Candidate, postDistrictID *uuid.UUID, policy ScoringPolicy) Score {
	rank, marks := educationTier(c.Educations, policy.EducationRankCap)
	local := c.PermanentDistrictID != nil && postDistrictID != nil && *c.PermanentDistrictID == *postDistrictID
	months := relevantMonths(c.Experiences, policy.AsOf)
	age := completedYears(c.DateOfBirth, policy.AsOf)
	ageScore := ageScoreFor(c.DateOfBirth, age, policy.AgePreference)

	return Score{
		Value: combine(rank, marks, local, months, ageScore),
		Breakdown: Breakdown{
			EducationRank:    rank,
			Marks:            decimal.New(marks, -2).StringFixed(2),
			MarksHundredths:  marks,
			Local:            local,
			ExperienceMonths: months,
			Age:              age,
			AgeScore:         ageScore,
		},
	}
}

func combine(rank int, marks int64, local bool, months, ageScore int) int64 {
	locality := int64(0)
	if local {
		locality = 1
	}
	return int64(rank)*WeightEducation +
		marks*WeightMarks +
		locality*WeightLocality +
		int64(months)*WeightExperience +
		int64(ageScore)*WeightAge
}

// educationTier returns the highest rank and the best marks recorded at that
// rank only. Marks are truncated to hundredths and clamped to [0, 100].
func educationTier(records []Education, rankCap int) (int, int64) {
	if rankCap <= 0 || rankCap > MaxEducationRankCap {
		rankCap = DefaultEducationRankCap
	}
	if len(records) == 0 {
		return 0, 0
	}
	top := records[0].Rank
	for _, rec := range records[1:] {
		if rec.Rank > top {
			top = rec.Rank
		}
	}

	best := decimal.Zero
	for _, rec := range records {
		if rec.Rank != top {
			continue
		}
		if rec.Percentage.GreaterThan(best) {
			best = rec.Percentage
		}
	}
	hundredths := best.Truncate(2).Shift(2).IntPart()
	if hundredths > MaxMarksHundredths {
		hundredths = MaxMarksHundredths
	}
	if hundredths < 0 {
		hundredths = 0
	}

	if top > rankCap {
		top = rankCap
	}
	if top < 0 {
		top = 0
	}
	return top, hundredths
}

// relevantMonths sums completed months of relevant experience up to asOf.
func relevantMonths(records []Experience, asOf time.Time) int {
	total := 0
	for _, rec := range records {
		if !rec.Relevant {
			continue
		}
		end := asOf
		if rec.End != nil && rec.End.Before(asOf) {
			end = *rec.End
		}
		total += monthsBetween(rec.Start, end)
		if total >= MaxExperienceMonths {
			return MaxExperienceMonths
		}
	}
	return total
}

func monthsBetween(start, end time.Time) int {
	if !end.After(start) {
		return 0
	}
	months := (end.Year()-start.Year())*12 + int(end.Month()) - int(start.Month())
	if end.Day() < start.Day() {
		months--
	}
	if months < 0 {
		return 0
	}
	return months
}

// completedYears is the age at asOf clamped to [0, 100]; unknown birth dates count as 0.
func completedYears(dob *time.Time, asOf time.Time) int {
	if dob == nil {
		return 0
	}
	years := asOf.Year() - dob.Year()
	if asOf.Month() < dob.Month() || (asOf.Month() == dob.Month() && asOf.Day() < dob.Day()) {
		years--
	}
	if years < 0 {
		return 0
	}
	if years > MaxAgeScore {
		return MaxAgeScore
	}
	return years
}

func ageScoreFor(dob *time.Time, age int, pref enums.AgePreference) int {
	if dob == nil {
		return 0
	}
	if pref == enums.AgePreferenceYounger {
		return MaxAgeScore - age
	}
	return age
}
