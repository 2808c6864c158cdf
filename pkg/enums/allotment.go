package enums

import "fmt"

// AllotmentScheduleStatus tracks one allotment e-mail distribution batch.
type AllotmentScheduleStatus string

const (
	AllotmentScheduleScheduled  AllotmentScheduleStatus = "SCHEDULED"
	AllotmentScheduleProcessing AllotmentScheduleStatus = "PROCESSING"
	AllotmentScheduleCompleted  AllotmentScheduleStatus = "COMPLETED"
	AllotmentScheduleFailed     AllotmentScheduleStatus = "FAILED"
	AllotmentScheduleCancelled  AllotmentScheduleStatus = "CANCELLED"
)

var validAllotmentScheduleStatuses = []AllotmentScheduleStatus{
	AllotmentScheduleScheduled,
	AllotmentScheduleProcessing,
	AllotmentScheduleCompleted,
	AllotmentScheduleFailed,
	AllotmentScheduleCancelled,
}

// IsValid reports whether the value is a known AllotmentScheduleStatus.
func (s AllotmentScheduleStatus) IsValid() bool {
	for _, candidate := range validAllotmentScheduleStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseAllotmentScheduleStatus converts raw input into an AllotmentScheduleStatus.
func ParseAllotmentScheduleStatus(value string) (AllotmentScheduleStatus, error) {
	for _, candidate := range validAllotmentScheduleStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid allotment schedule status %q", value)
}

// AllotmentEmailStatus tracks a single (post, applicant) notification.
type AllotmentEmailStatus string

const (
	AllotmentEmailPending AllotmentEmailStatus = "PENDING"
	AllotmentEmailSent    AllotmentEmailStatus = "SENT"
	AllotmentEmailFailed  AllotmentEmailStatus = "FAILED"
	AllotmentEmailBounced AllotmentEmailStatus = "BOUNCED"
)

var validAllotmentEmailStatuses = []AllotmentEmailStatus{
	AllotmentEmailPending,
	AllotmentEmailSent,
	AllotmentEmailFailed,
	AllotmentEmailBounced,
}

// IsValid reports whether the value is a known AllotmentEmailStatus.
func (s AllotmentEmailStatus) IsValid() bool {
	for _, candidate := range validAllotmentEmailStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseAllotmentEmailStatus converts raw input into an AllotmentEmailStatus.
func ParseAllotmentEmailStatus(value string) (AllotmentEmailStatus, error) {
	for _, candidate := range validAllotmentEmailStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid allotment email status %q", value)
}
