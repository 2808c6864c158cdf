package enums

import "fmt"

// ApplicationStatus tracks the lifecycle of a post application.
type ApplicationStatus string

const (
	ApplicationStatusDraft               ApplicationStatus = "DRAFT"
	ApplicationStatusSubmitted           ApplicationStatus = "SUBMITTED"
	ApplicationStatusUnderReview         ApplicationStatus = "UNDER_REVIEW"
	ApplicationStatusEligible            ApplicationStatus = "ELIGIBLE"
	ApplicationStatusNotEligible         ApplicationStatus = "NOT_ELIGIBLE"
	ApplicationStatusOnHold              ApplicationStatus = "ON_HOLD"
	ApplicationStatusProvisionalSelected ApplicationStatus = "PROVISIONAL_SELECTED"
	ApplicationStatusSelected            ApplicationStatus = "SELECTED"
	ApplicationStatusSelectedInOtherPost ApplicationStatus = "SELECTED_IN_OTHER_POST"
	ApplicationStatusRejected            ApplicationStatus = "REJECTED"
	ApplicationStatusWithdrawn           ApplicationStatus = "WITHDRAWN"
)

var validApplicationStatuses = []ApplicationStatus{
	ApplicationStatusDraft,
	ApplicationStatusSubmitted,
	ApplicationStatusUnderReview,
	ApplicationStatusEligible,
	ApplicationStatusNotEligible,
	ApplicationStatusOnHold,
	ApplicationStatusProvisionalSelected,
	ApplicationStatusSelected,
	ApplicationStatusSelectedInOtherPost,
	ApplicationStatusRejected,
	ApplicationStatusWithdrawn,
}

// AllApplicationStatuses returns every known status in declaration order.
func AllApplicationStatuses() []ApplicationStatus {
	out := make([]ApplicationStatus, len(validApplicationStatuses))
	copy(out, validApplicationStatuses)
	return out
}

// String implements fmt.Stringer.
func (s ApplicationStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known ApplicationStatus.
func (s ApplicationStatus) IsValid() bool {
	for _, candidate := range validApplicationStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseApplicationStatus converts raw input into an ApplicationStatus.
func ParseApplicationStatus(value string) (ApplicationStatus, error) {
	for _, candidate := range validApplicationStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid application status %q", value)
}
