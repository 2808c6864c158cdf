package eligibility

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/recruitment-backend/pkg/db/models"
	"github.com/google/uuid"
)

// CheckResult is one rule evaluated by the external eligibility producer.
type CheckResult struct {
	Code    string `json:"code" validate:"required"`
	Label   string `json:"label,omitempty"`
	Passed  bool   `json:"passed"`
	Message string `json:"message,omitempty"`
}

// Verdict is the pre-computed eligibility outcome consumed at submission.
type Verdict struct {
	IsEligible bool          `json:"is_eligible"`
	Checks     []CheckResult `json:"checks" validate:"dive"`
}

// Validate rejects verdicts whose checks contradict the overall outcome.
func (v Verdict) Validate() error {
	failed := 0
	for i, check := range v.Checks {
		if strings.TrimSpace(check.Code) == "" {
			return fmt.Errorf("check %d is missing a code", i)
		}
		if !check.Passed {
			failed++
		}
	}
	if v.IsEligible && failed > 0 {
		return fmt.Errorf("eligible verdict carries %d failed checks", failed)
	}
	return nil
}

// FailedChecks returns the checks that did not pass, in order.
func (v Verdict) FailedChecks() []CheckResult {
	out := []CheckResult{}
	for _, check := range v.Checks {
		if !check.Passed {
			out = append(out, check)
		}
	}
	return out
}

// NewResult builds the snapshot row persisted for an application.
func NewResult(applicationID uuid.UUID, verdict Verdict, at time.Time) (*models.EligibilityResult, error) {
	checks := verdict.Checks
	if checks == nil {
		checks = []CheckResult{}
	}
	payload, err := json.Marshal(checks)
	if err != nil {
		return nil, fmt.Errorf("encode eligibility checks: %w", err)
	}
	at = at.UTC()
	return &models.EligibilityResult{
		ID:            uuid.New(),
		ApplicationID: applicationID,
		IsEligible:    verdict.IsEligible,
		Checks:        payload,
		CheckedAt:     at,
		UpdatedAt:     at,
	}, nil
}

// DecodeChecks reverses NewResult for read paths.
func DecodeChecks(result *models.EligibilityResult) ([]CheckResult, error) {
	if result == nil || len(result.Checks) == 0 {
		return []CheckResult{}, nil
	}
	var checks []CheckResult
	if err := json.Unmarshal(result.Checks, &checks); err != nil {
		return nil, fmt.Errorf("decode eligibility checks: %w", err)
	}
	return checks, nil
}
