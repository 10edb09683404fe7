package maturation

import (
	"fmt"
	"time"

	"github.com/lojinha-app/lojinha-backend/pkg/config"
)

// Clock turns store maturity settings into concrete availability
// timestamps. Earning status is derived from these timestamps at read
// time; nothing is scheduled.
type Clock struct {
	defaultDays int
	maxDays     int
	now         func() time.Time
}

// Remaining describes how far an earning is from maturing.
type Remaining struct {
	Days        int  `json:"days"`
	Hours       int  `json:"hours"`
	Minutes     int  `json:"minutes"`
	IsAvailable bool `json:"is_available"`
}

// NewClock wires a maturation clock from the commission configuration.
func NewClock(cfg config.CommissionConfig) (*Clock, error) {
	if cfg.MaxMaturityDays <= 0 {
		return nil, fmt.Errorf("max maturity days must be positive")
	}
	if cfg.DefaultMaturityDays < 0 || cfg.DefaultMaturityDays > cfg.MaxMaturityDays {
		return nil, fmt.Errorf("default maturity days must be within 0..%d", cfg.MaxMaturityDays)
	}
	return &Clock{
		defaultDays: cfg.DefaultMaturityDays,
		maxDays:     cfg.MaxMaturityDays,
		now:         time.Now,
	}, nil
}

// WithNow overrides the time source. Tests only.
func (c *Clock) WithNow(now func() time.Time) *Clock {
	clone := *c
	clone.now = now
	return &clone
}

// NormalizeDays clamps a store's configured maturity window into the
// allowed range, falling back to the default when out of range.
func (c *Clock) NormalizeDays(days int) int {
	if days < 0 || days > c.maxDays {
		return c.defaultDays
	}
	return days
}

// AvailableAt computes when commission for an order delivered at the
// given time becomes withdrawable. A zero-day window matures
// immediately on delivery.
func (c *Clock) AvailableAt(deliveredAt time.Time, maturityDays int) time.Time {
	days := c.NormalizeDays(maturityDays)
	return deliveredAt.Add(time.Duration(days) * 24 * time.Hour)
}

// IsAvailable reports whether the availability timestamp has passed.
// A nil timestamp means the order has not been delivered yet.
func (c *Clock) IsAvailable(availableAt *time.Time) bool {
	if availableAt == nil {
		return false
	}
	return !c.now().Before(*availableAt)
}

// Until breaks down the time left before the given availability
// timestamp. Already-matured earnings report zero across the board.
func (c *Clock) Until(availableAt *time.Time) Remaining {
	if availableAt == nil {
		return Remaining{}
	}
	left := availableAt.Sub(c.now())
	if left <= 0 {
		return Remaining{IsAvailable: true}
	}
	days := int(left / (24 * time.Hour))
	left -= time.Duration(days) * 24 * time.Hour
	hours := int(left / time.Hour)
	left -= time.Duration(hours) * time.Hour
	minutes := int(left / time.Minute)
	return Remaining{
		Days:    days,
		Hours:   hours,
		Minutes: minutes,
	}
}
