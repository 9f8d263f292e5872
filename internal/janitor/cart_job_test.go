package janitor

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

type fakeCartPurger struct {
	batches [][]string
	calls   int
	cutoff  time.Time
	limit   int
	err     error
}

func (f *fakeCartPurger) PurgeStale(_ context.Context, cutoff time.Time, limit int) ([]string, error) {
	f.cutoff = cutoff
	f.limit = limit
	if f.err != nil {
		return nil, f.err
	}
	if f.calls >= len(f.batches) {
		return nil, nil
	}
	batch := f.batches[f.calls]
	f.calls++
	return batch, nil
}

type recordingInvalidator struct {
	owners []string
}

func (r *recordingInvalidator) Invalidate(_ context.Context, owner string) {
	r.owners = append(r.owners, owner)
}

func TestStaleCartJobDrainsBatchesAndEvicts(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	purger := &fakeCartPurger{batches: [][]string{
		{"a@example.com", "b@example.com"},
		{"c@example.com"},
	}}
	cache := &recordingInvalidator{}
	job, err := NewStaleCartJob(StaleCartJobParams{
		Logger:    logger.Nop(),
		Carts:     purger,
		Cache:     cache,
		Retention: 7 * 24 * time.Hour,
		BatchSize: 2,
	})
	if err != nil {
		t.Fatalf("new job: %v", err)
	}
	job.(*staleCartJob).now = func() time.Time { return now }

	deleted, err := job.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if deleted != 3 {
		t.Fatalf("expected 3 carts, got %d", deleted)
	}
	if purger.calls != 2 {
		t.Fatalf("expected a short batch to end the run, calls=%d", purger.calls)
	}
	if want := now.Add(-7 * 24 * time.Hour); !purger.cutoff.Equal(want) {
		t.Fatalf("expected cutoff %s, got %s", want, purger.cutoff)
	}
	if fmt.Sprint(cache.owners) != "[a@example.com b@example.com c@example.com]" {
		t.Fatalf("unexpected evictions %v", cache.owners)
	}
}

func TestStaleCartJobBoundsBatches(t *testing.T) {
	full := make([][]string, maxCartBatches+5)
	for i := range full {
		full[i] = []string{fmt.Sprintf("u%d@example.com", i)}
	}
	purger := &fakeCartPurger{batches: full}
	job, err := NewStaleCartJob(StaleCartJobParams{Logger: logger.Nop(), Carts: purger, BatchSize: 1})
	if err != nil {
		t.Fatalf("new job: %v", err)
	}
	deleted, err := job.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if deleted != maxCartBatches || purger.calls != maxCartBatches {
		t.Fatalf("expected %d batches, deleted=%d calls=%d", maxCartBatches, deleted, purger.calls)
	}
}

func TestStaleCartJobPropagatesErrors(t *testing.T) {
	job, err := NewStaleCartJob(StaleCartJobParams{Logger: logger.Nop(), Carts: &fakeCartPurger{err: errors.New("boom")}})
	if err != nil {
		t.Fatalf("new job: %v", err)
	}
	if _, err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if sj := job.(*staleCartJob); sj.batchSize != defaultCartBatchSize || sj.retention != defaultCartRetention {
		t.Fatalf("expected defaults, got batch=%d retention=%s", sj.batchSize, sj.retention)
	}
}
