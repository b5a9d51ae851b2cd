package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/rentalkit-backend/pkg/logger"
	"github.com/angelmondragon/rentalkit-backend/pkg/metrics"
)

const (
	abandonedCartJobName   = "abandoned-cart-sweep"
	defaultAbandonedAfter  = 7 * 24 * time.Hour
	staleGuestCartJobName  = "stale-guest-cart-cleanup"
	defaultGuestCartMaxAge = 30 * 24 * time.Hour
)

type abandonedCartRepo interface {
	MarkAbandoned(ctx context.Context, before time.Time) (int64, error)
}

// AbandonedCartJobParams configure the abandoned cart sweep.
type AbandonedCartJobParams struct {
	Logger         *logger.Logger
	Repository     abandonedCartRepo
	Metrics        *metrics.CronJobMetrics
	AbandonedAfter time.Duration
}

// NewAbandonedCartJob flags user carts nobody touched for AbandonedAfter.
func NewAbandonedCartJob(params AbandonedCartJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	after := params.AbandonedAfter
	if after <= 0 {
		after = defaultAbandonedAfter
	}
	return &abandonedCartJob{
		logg:    params.Logger,
		repo:    params.Repository,
		metrics: params.Metrics,
		after:   after,
		now:     time.Now,
	}, nil
}

type abandonedCartJob struct {
	logg    *logger.Logger
	repo    abandonedCartRepo
	metrics *metrics.CronJobMetrics
	after   time.Duration
	now     func() time.Time
}

func (j *abandonedCartJob) Name() string { return abandonedCartJobName }

func (j *abandonedCartJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.after)
	rows, err := j.repo.MarkAbandoned(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("abandoned cart sweep: %w", err)
	}
	j.metrics.AddAffected(j.Name(), rows)
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"cutoff":       cutoff,
		"rows_flagged": rows,
	}), "abandoned cart sweep complete")
	return nil
}

type guestCartRepo interface {
	DeleteGuestCartsBefore(ctx context.Context, before time.Time) (int64, error)
}

// StaleGuestCartJobParams configure the guest cart cleanup.
type StaleGuestCartJobParams struct {
	Logger     *logger.Logger
	Repository guestCartRepo
	Metrics    *metrics.CronJobMetrics
	MaxAge     time.Duration
}

// NewStaleGuestCartJob deletes guest carts kept in the database (no redis)
// once they outlive MaxAge.
func NewStaleGuestCartJob(params StaleGuestCartJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	maxAge := params.MaxAge
	if maxAge <= 0 {
		maxAge = defaultGuestCartMaxAge
	}
	return &staleGuestCartJob{
		logg:    params.Logger,
		repo:    params.Repository,
		metrics: params.Metrics,
		maxAge:  maxAge,
		now:     time.Now,
	}, nil
}

type staleGuestCartJob struct {
	logg    *logger.Logger
	repo    guestCartRepo
	metrics *metrics.CronJobMetrics
	maxAge  time.Duration
	now     func() time.Time
}

func (j *staleGuestCartJob) Name() string { return staleGuestCartJobName }

func (j *staleGuestCartJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.maxAge)
	rows, err := j.repo.DeleteGuestCartsBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("stale guest cart cleanup: %w", err)
	}
	j.metrics.AddAffected(j.Name(), rows)
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"cutoff":       cutoff,
		"rows_deleted": rows,
	}), "stale guest cart cleanup complete")
	return nil
}
