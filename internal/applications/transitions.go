package applications

import "github.com/angelmondragon/recruitment-backend/pkg/enums"

// allowedTransitions is the static adjacency table of the status machine.
// Terminal statuses have no entry.
var allowedTransitions = map[enums.ApplicationStatus][]enums.ApplicationStatus{
	enums.ApplicationStatusDraft: {
		enums.ApplicationStatusSubmitted,
		enums.ApplicationStatusWithdrawn,
	},
	enums.ApplicationStatusSubmitted: {
		enums.ApplicationStatusUnderReview,
		enums.ApplicationStatusEligible,
		enums.ApplicationStatusNotEligible,
		enums.ApplicationStatusWithdrawn,
	},
	enums.ApplicationStatusUnderReview: {
		enums.ApplicationStatusEligible,
		enums.ApplicationStatusNotEligible,
		enums.ApplicationStatusOnHold,
		enums.ApplicationStatusWithdrawn,
	},
	enums.ApplicationStatusEligible: {
		enums.ApplicationStatusOnHold,
		enums.ApplicationStatusProvisionalSelected,
		enums.ApplicationStatusSelected,
		enums.ApplicationStatusSelectedInOtherPost,
		enums.ApplicationStatusRejected,
		enums.ApplicationStatusWithdrawn,
	},
	enums.ApplicationStatusOnHold: {
		enums.ApplicationStatusEligible,
		enums.ApplicationStatusProvisionalSelected,
		enums.ApplicationStatusSelected,
		enums.ApplicationStatusSelectedInOtherPost,
		enums.ApplicationStatusRejected,
		enums.ApplicationStatusWithdrawn,
	},
	enums.ApplicationStatusProvisionalSelected: {
		enums.ApplicationStatusSelected,
		enums.ApplicationStatusRejected,
		enums.ApplicationStatusOnHold,
		enums.ApplicationStatusSelectedInOtherPost,
		enums.ApplicationStatusWithdrawn,
	},
	enums.ApplicationStatusSelectedInOtherPost: {
		enums.ApplicationStatusEligible,
		enums.ApplicationStatusRejected,
		enums.ApplicationStatusWithdrawn,
	},
}

var terminalStatuses = map[enums.ApplicationStatus]struct{}{
	enums.ApplicationStatusNotEligible: {},
	enums.ApplicationStatusSelected:    {},
	enums.ApplicationStatusRejected:    {},
	enums.ApplicationStatusWithdrawn:   {},
}

// selectionStatuses are mirrored into applications.selection_status.
var selectionStatuses = map[enums.ApplicationStatus]struct{}{
	enums.ApplicationStatusOnHold:              {},
	enums.ApplicationStatusProvisionalSelected: {},
	enums.ApplicationStatusSelected:            {},
	enums.ApplicationStatusSelectedInOtherPost: {},
	enums.ApplicationStatusRejected:            {},
}

// CanTransition reports whether from -> to is an edge of the status machine.
func CanTransition(from, to enums.ApplicationStatus) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no transition may leave status.
func IsTerminal(status enums.ApplicationStatus) bool {
	_, ok := terminalStatuses[status]
	return ok
}

// AllowedFrom lists the statuses reachable from status in table order.
func AllowedFrom(status enums.ApplicationStatus) []enums.ApplicationStatus {
	next := allowedTransitions[status]
	out := make([]enums.ApplicationStatus, len(next))
	copy(out, next)
	return out
}

// IsLocking reports whether an application in status is locked against applicant edits.
func IsLocking(status enums.ApplicationStatus) bool {
	return status != enums.ApplicationStatusDraft
}

func isSelectionStatus(status enums.ApplicationStatus) bool {
	_, ok := selectionStatuses[status]
	return ok
}
