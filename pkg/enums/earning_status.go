package enums

import "fmt"

// EarningStatus tracks the lifecycle of an affiliate earning.
// pending moves to available when the maturation timestamp passes
// (derived at read time), and available moves to paid by admin action.
type EarningStatus string

const (
	EarningStatusPending   EarningStatus = "pending"
	EarningStatusAvailable EarningStatus = "available"
	EarningStatusPaid      EarningStatus = "paid"
)

var validEarningStatuses = []EarningStatus{
	EarningStatusPending,
	EarningStatusAvailable,
	EarningStatusPaid,
}

// String implements fmt.Stringer.
func (e EarningStatus) String() string {
	return string(e)
}

// IsValid reports whether the status is recognized.
func (e EarningStatus) IsValid() bool {
	for _, candidate := range validEarningStatuses {
		if candidate == e {
			return true
		}
	}
	return false
}

// CanTransitionTo reports whether the target status is a legal move.
func (e EarningStatus) CanTransitionTo(target EarningStatus) bool {
	switch e {
	case EarningStatusPending:
		return target == EarningStatusAvailable
	case EarningStatusAvailable:
		return target == EarningStatusPaid
	default:
		return false
	}
}

// ParseEarningStatus converts a raw string into an EarningStatus.
func ParseEarningStatus(value string) (EarningStatus, error) {
	for _, candidate := range validEarningStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid earning status %q", value)
}
