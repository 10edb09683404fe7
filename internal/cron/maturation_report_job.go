package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/lojinha-app/lojinha-backend/internal/earnings"
	"github.com/lojinha-app/lojinha-backend/pkg/logger"
)

const defaultReportWindow = 24 * time.Hour

// MaturationReportJobParams configure the daily maturation report.
type MaturationReportJobParams struct {
	Logger     *logger.Logger
	Repository earnings.Repository
	Window     time.Duration
}

// NewMaturationReportJob logs how many earnings will become available
// within the coming window. Status is derived at read time, so the job
// only observes; it never flips rows.
func NewMaturationReportJob(params MaturationReportJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("earnings repository required")
	}
	window := params.Window
	if window <= 0 {
		window = defaultReportWindow
	}
	return &maturationReportJob{
		logg:   params.Logger,
		repo:   params.Repository,
		window: window,
		now:    time.Now,
	}, nil
}

type maturationReportJob struct {
	logg   *logger.Logger
	repo   earnings.Repository
	window time.Duration
	now    func() time.Time
}

func (j *maturationReportJob) Name() string { return "maturation-report" }

func (j *maturationReportJob) Run(ctx context.Context) error {
	from := j.now().UTC()
	to := from.Add(j.window)
	maturing, err := j.repo.CountMaturingBetween(ctx, from, to)
	if err != nil {
		return fmt.Errorf("maturation report: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"window_hours":      int(j.window.Hours()),
		"earnings_maturing": maturing,
	})
	j.logg.Info(logCtx, "maturation report complete")
	return nil
}
