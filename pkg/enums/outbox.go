package enums

import "fmt"

// OutboxEventType enumerates domain events written to the outbox table.
type OutboxEventType string

const (
	OutboxEventEarningCreated         OutboxEventType = "earning.created"
	OutboxEventCommissionRecalculated OutboxEventType = "commission.recalculated"
	OutboxEventWithdrawalRequested    OutboxEventType = "withdrawal.requested"
	OutboxEventWithdrawalResolved     OutboxEventType = "withdrawal.resolved"
)

var validOutboxEventTypes = []OutboxEventType{
	OutboxEventEarningCreated,
	OutboxEventCommissionRecalculated,
	OutboxEventWithdrawalRequested,
	OutboxEventWithdrawalResolved,
}

// String implements fmt.Stringer.
func (o OutboxEventType) String() string {
	return string(o)
}

// IsValid reports whether the event type is recognized.
func (o OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == o {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts a raw string into an OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid outbox event type %q", value)
}

// OutboxAggregateType names the aggregate an outbox event belongs to.
type OutboxAggregateType string

const (
	OutboxAggregateOrder      OutboxAggregateType = "order"
	OutboxAggregateEarning    OutboxAggregateType = "earning"
	OutboxAggregateWithdrawal OutboxAggregateType = "withdrawal"
)

var validOutboxAggregateTypes = []OutboxAggregateType{
	OutboxAggregateOrder,
	OutboxAggregateEarning,
	OutboxAggregateWithdrawal,
}

// String implements fmt.Stringer.
func (o OutboxAggregateType) String() string {
	return string(o)
}

// IsValid reports whether the aggregate type is recognized.
func (o OutboxAggregateType) IsValid() bool {
	for _, candidate := range validOutboxAggregateTypes {
		if candidate == o {
			return true
		}
	}
	return false
}
