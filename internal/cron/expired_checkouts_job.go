package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/cartrescue/cartrescue-backend/pkg/logger"
	"github.com/cartrescue/cartrescue-backend/pkg/metrics"
)

const defaultRetentionDays = 30

type expiredCheckoutsRepo interface {
	DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error)
}

// ExpiredCheckoutsJobParams configure the retention sweep.
type ExpiredCheckoutsJobParams struct {
	Logger     *logger.Logger
	Repository expiredCheckoutsRepo
	Metrics    *metrics.CronJobMetrics
	Retention  time.Duration
}

// NewExpiredCheckoutsJob builds the job that drops checkouts whose last
// update is older than the retention window.
func NewExpiredCheckoutsJob(params ExpiredCheckoutsJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("checkout repository required")
	}
	retention := params.Retention
	if retention <= 0 {
		retention = defaultRetentionDays * 24 * time.Hour
	}
	return &expiredCheckoutsJob{
		logg:      params.Logger,
		repo:      params.Repository,
		metrics:   params.Metrics,
		retention: retention,
		now:       time.Now,
	}, nil
}

type expiredCheckoutsJob struct {
	logg      *logger.Logger
	repo      expiredCheckoutsRepo
	metrics   *metrics.CronJobMetrics
	retention time.Duration
	now       func() time.Time
}

func (j *expiredCheckoutsJob) Name() string { return "expired-checkouts" }

func (j *expiredCheckoutsJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.retention)
	deleted, err := j.repo.DeleteExpired(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("expired checkouts sweep: %w", err)
	}
	j.metrics.AddRowsDeleted(j.Name(), deleted)
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":       cutoff,
		"rows_deleted": deleted,
	})
	j.logg.Info(logCtx, "expired checkouts sweep complete")
	return nil
}
