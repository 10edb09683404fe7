package cron

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/lojinha-app/lojinha-backend/internal/coupons"
	"github.com/lojinha-app/lojinha-backend/pkg/logger"
)

// txRunner runs a function inside one database transaction. Satisfied
// by *db.Client.
type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// CouponExpiryJobParams configure the coupon expiry sweep.
type CouponExpiryJobParams struct {
	Logger     *logger.Logger
	Repository coupons.Repository
}

// NewCouponExpiryJob deactivates coupons whose validity window has
// closed. Validation already rejects expired coupons at checkout; the
// sweep keeps merchant listings honest.
func NewCouponExpiryJob(params CouponExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("coupon repository required")
	}
	return &couponExpiryJob{
		logg: params.Logger,
		repo: params.Repository,
		now:  time.Now,
	}, nil
}

type couponExpiryJob struct {
	logg *logger.Logger
	repo coupons.Repository
	now  func() time.Time
}

func (j *couponExpiryJob) Name() string { return "coupon-expiry" }

func (j *couponExpiryJob) Run(ctx context.Context) error {
	deactivated, err := j.repo.DeactivateExpired(ctx, j.now().UTC())
	if err != nil {
		return fmt.Errorf("coupon expiry sweep: %w", err)
	}
	logCtx := j.logg.WithField(ctx, "coupons_deactivated", deactivated)
	j.logg.Info(logCtx, "coupon expiry sweep complete")
	return nil
}
