// Package jobs runs background maintenance outside the request path.
package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"

	"github.com/cppla/mindease/store"
)

// Pruner deletes transcript messages older than a cutoff.
type Pruner interface {
	PruneBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Retention periodically drops chat messages older than the retention window.
type Retention struct {
	scheduler gocron.Scheduler
	pruner    Pruner
	keep      time.Duration
	interval  time.Duration
	logger    *zap.Logger
	now       func() time.Time
}

// NewRetention prepares a sweeper keeping retentionDays of transcript.
func NewRetention(pruner Pruner, retentionDays int, interval time.Duration, logger *zap.Logger) (*Retention, error) {
	if interval <= 0 {
		interval = time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return nil, err
	}
	return &Retention{
		scheduler: s,
		pruner:    pruner,
		keep:      time.Duration(retentionDays) * 24 * time.Hour,
		interval:  interval,
		logger:    logger,
		now:       time.Now,
	}, nil
}

// Start registers the sweep and starts the scheduler.
func (r *Retention) Start() error {
	_, err := r.scheduler.NewJob(
		gocron.DurationJob(r.interval),
		gocron.NewTask(r.sweep),
		gocron.WithName("chat-retention"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return err
	}
	r.scheduler.Start()
	r.logger.Info("chat retention started", zap.Duration("keep", r.keep), zap.Duration("interval", r.interval))
	return nil
}

// Stop waits for a running sweep and stops the scheduler.
func (r *Retention) Stop() error {
	return r.scheduler.Shutdown()
}

func (r *Retention) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	cutoff := r.now().Add(-r.keep)
	n, err := r.pruner.PruneBefore(ctx, cutoff)
	if err != nil {
		var se *store.Error
		r.logger.Warn("chat retention sweep failed",
			zap.Error(err),
			zap.Bool("retryable", errors.As(err, &se) && se.Retryable()),
		)
		return
	}
	if n > 0 {
		r.logger.Info("chat retention pruned messages", zap.Int64("count", n), zap.Time("cutoff", cutoff))
	}
}
