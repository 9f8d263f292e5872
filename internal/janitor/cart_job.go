package janitor

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

const (
	defaultCartRetention = 30 * 24 * time.Hour
	defaultCartBatchSize = 500
	maxCartBatches       = 20
)

type staleCartPurger interface {
	PurgeStale(ctx context.Context, cutoff time.Time, limit int) ([]string, error)
}

type cartInvalidator interface {
	Invalidate(ctx context.Context, owner string)
}

type StaleCartJobParams struct {
	Logger    *logger.Logger
	Carts     staleCartPurger
	Cache     cartInvalidator
	Retention time.Duration
	BatchSize int
}

type staleCartJob struct {
	logg      *logger.Logger
	carts     staleCartPurger
	cache     cartInvalidator
	retention time.Duration
	batchSize int
	now       func() time.Time
}

// NewStaleCartJob removes carts nobody touched within the retention window
// and evicts their cached copies.
func NewStaleCartJob(params StaleCartJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Carts == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	job := &staleCartJob{
		logg:      params.Logger,
		carts:     params.Carts,
		cache:     params.Cache,
		retention: params.Retention,
		batchSize: params.BatchSize,
		now:       time.Now,
	}
	if job.retention <= 0 {
		job.retention = defaultCartRetention
	}
	if job.batchSize <= 0 {
		job.batchSize = defaultCartBatchSize
	}
	return job, nil
}

func (j *staleCartJob) Name() string { return "stale-carts" }

func (j *staleCartJob) Run(ctx context.Context) (int64, error) {
	cutoff := j.now().UTC().Add(-j.retention)
	var total int64
	for batch := 0; batch < maxCartBatches; batch++ {
		owners, err := j.carts.PurgeStale(ctx, cutoff, j.batchSize)
		if err != nil {
			return total, fmt.Errorf("purge stale carts: %w", err)
		}
		total += int64(len(owners))
		if j.cache != nil {
			for _, owner := range owners {
				j.cache.Invalidate(ctx, owner)
			}
		}
		if len(owners) < j.batchSize {
			break
		}
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"cutoff":        cutoff,
		"carts_deleted": total,
	}), "stale cart cleanup complete")
	return total, nil
}
