// Package janitor runs periodic retention jobs under a cluster-wide lock.
package janitor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
)

const (
	defaultInterval = time.Hour
	releaseTimeout  = 5 * time.Second
)

// Job is one cleanup task of a cycle. Run reports how many rows it removed.
type Job interface {
	Name() string
	Run(ctx context.Context) (int64, error)
}

type ServiceParams struct {
	Logger *logger.Logger
	// Jobs run in order on every cycle. Nil entries are ignored.
	Jobs     []Job
	Lock     Lock
	Metrics  *metrics.JobMetrics
	Interval time.Duration
}

// Service runs its jobs once per interval, only on the replica holding the lock.
type Service struct {
	logg     *logger.Logger
	jobs     []Job
	lock     Lock
	metrics  *metrics.JobMetrics
	interval time.Duration
	now      func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, errors.New("logger required")
	}
	if params.Lock == nil {
		return nil, errors.New("lock required")
	}
	s := &Service{
		logg:     params.Logger,
		lock:     params.Lock,
		metrics:  params.Metrics,
		interval: params.Interval,
		now:      time.Now,
	}
	if s.interval <= 0 {
		s.interval = defaultInterval
	}
	seen := make(map[string]bool, len(params.Jobs))
	for _, job := range params.Jobs {
		if job == nil {
			continue
		}
		if seen[job.Name()] {
			return nil, fmt.Errorf("duplicate janitor job %q", job.Name())
		}
		seen[job.Name()] = true
		s.jobs = append(s.jobs, job)
	}
	return s, nil
}

// Run starts a cycle right away and then one per interval until ctx ends.
func (s *Service) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		if err := s.RunOnce(ctx); err != nil && ctx.Err() == nil {
			s.logg.Error(ctx, "janitor cycle failed", err)
		}
		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "janitor stopping")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// RunOnce runs one cycle, or nothing when another replica holds the lock.
// A failing job is logged and counted; the remaining jobs still run.
func (s *Service) RunOnce(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	locked, err := s.lock.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("lock acquire: %w", err)
	}
	if !locked {
		s.logg.Info(ctx, "janitor lock held elsewhere; skipping cycle")
		return nil
	}
	defer s.release(ctx)

	for _, job := range s.jobs {
		if err := ctx.Err(); err != nil {
			return err
		}
		s.runJob(ctx, job)
	}
	return nil
}

func (s *Service) release(ctx context.Context) {
	releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
	defer cancel()
	if err := s.lock.Release(releaseCtx); err != nil {
		s.logg.Error(ctx, "failed to release janitor lock", err)
	}
}

func (s *Service) runJob(ctx context.Context, job Job) {
	name := job.Name()
	ctx = s.logg.WithField(ctx, "job", name)

	started := s.now()
	deleted, err := job.Run(ctx)
	took := s.now().Sub(started)

	s.metrics.ObserveDuration(name, took)
	ctx = s.logg.WithFields(ctx, map[string]any{
		"duration_ms":  took.Milliseconds(),
		"rows_deleted": deleted,
	})
	if err != nil {
		s.metrics.IncRun(name, metrics.OutcomeFailure)
		s.logg.Error(ctx, "janitor job failed", err)
		return
	}
	s.metrics.IncRun(name, metrics.OutcomeSuccess)
	s.metrics.AddDeleted(name, deleted)
	s.logg.Info(ctx, "janitor job completed")
}
