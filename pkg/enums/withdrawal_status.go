package enums

import "fmt"

// WithdrawalStatus tracks the lifecycle of an affiliate withdrawal request.
type WithdrawalStatus string

const (
	WithdrawalStatusPending  WithdrawalStatus = "pending"
	WithdrawalStatusApproved WithdrawalStatus = "approved"
	WithdrawalStatusPaid     WithdrawalStatus = "paid"
	WithdrawalStatusRejected WithdrawalStatus = "rejected"
)

var validWithdrawalStatuses = []WithdrawalStatus{
	WithdrawalStatusPending,
	WithdrawalStatusApproved,
	WithdrawalStatusPaid,
	WithdrawalStatusRejected,
}

// String implements fmt.Stringer.
func (w WithdrawalStatus) String() string {
	return string(w)
}

// IsValid reports whether the status is recognized.
func (w WithdrawalStatus) IsValid() bool {
	for _, candidate := range validWithdrawalStatuses {
		if candidate == w {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the request can no longer change.
func (w WithdrawalStatus) IsTerminal() bool {
	return w == WithdrawalStatusPaid || w == WithdrawalStatusRejected
}

// CanTransitionTo reports whether the target status is a legal move.
func (w WithdrawalStatus) CanTransitionTo(target WithdrawalStatus) bool {
	switch w {
	case WithdrawalStatusPending:
		return target == WithdrawalStatusApproved || target == WithdrawalStatusRejected
	case WithdrawalStatusApproved:
		return target == WithdrawalStatusPaid || target == WithdrawalStatusRejected
	default:
		return false
	}
}

// ParseWithdrawalStatus converts a raw string into a WithdrawalStatus.
func ParseWithdrawalStatus(value string) (WithdrawalStatus, error) {
	for _, candidate := range validWithdrawalStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid withdrawal status %q", value)
}
