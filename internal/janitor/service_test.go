package janitor

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
)

type fakeLock struct {
	held     bool
	acquires int
	releases int
	err      error
}

func (f *fakeLock) Acquire(context.Context) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	f.acquires++
	if f.held {
		return false, nil
	}
	f.held = true
	return true, nil
}

func (f *fakeLock) Release(context.Context) error {
	f.releases++
	f.held = false
	return nil
}

type countingJob struct {
	name    string
	deleted int64
	err     error
	runs    int
}

func (c *countingJob) Name() string { return c.name }

func (c *countingJob) Run(context.Context) (int64, error) {
	c.runs++
	return c.deleted, c.err
}

func TestRunOnceRunsEveryJobAndRecordsOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	jobMetrics := metrics.NewJobMetrics(reg)
	ok := &countingJob{name: "ok", deleted: 3}
	failing := &countingJob{name: "broken", err: errors.New("boom")}
	lock := &fakeLock{}

	svc, err := NewService(ServiceParams{
		Logger:  logger.Nop(),
		Jobs:    []Job{failing, nil, ok},
		Lock:    lock,
		Metrics: jobMetrics,
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	if err := svc.RunOnce(context.Background()); err != nil {
		t.Fatalf("run once: %v", err)
	}

	if failing.runs != 1 || ok.runs != 1 {
		t.Fatalf("expected both jobs to run once, got broken=%d ok=%d", failing.runs, ok.runs)
	}
	if lock.releases != 1 || lock.held {
		t.Fatalf("expected lock released, releases=%d held=%v", lock.releases, lock.held)
	}
	if got := rowsDeleted(t, reg, "ok"); got != 3 {
		t.Fatalf("expected 3 rows deleted, got %f", got)
	}
	if got := rowsDeleted(t, reg, "broken"); got != 0 {
		t.Fatalf("failed job must not report deleted rows, got %f", got)
	}
}

func TestRunOnceSkipsWhenLockHeld(t *testing.T) {
	job := &countingJob{name: "ok"}
	lock := &fakeLock{held: true}
	svc, err := NewService(ServiceParams{Logger: logger.Nop(), Jobs: []Job{job}, Lock: lock})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	if err := svc.RunOnce(context.Background()); err != nil {
		t.Fatalf("run once: %v", err)
	}
	if job.runs != 0 {
		t.Fatalf("expected job skipped, ran %d", job.runs)
	}
	if lock.releases != 0 {
		t.Fatalf("lock held elsewhere must not be released")
	}
}

func TestRunOnceSurfacesLockErrors(t *testing.T) {
	svc, err := NewService(ServiceParams{Logger: logger.Nop(), Lock: &fakeLock{err: errors.New("redis down")}})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	if err := svc.RunOnce(context.Background()); err == nil {
		t.Fatal("expected lock error")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	job := &countingJob{name: "ok"}
	svc, err := NewService(ServiceParams{Logger: logger.Nop(), Jobs: []Job{job}, Lock: &fakeLock{}})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := svc.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if job.runs != 0 {
		t.Fatalf("canceled run must not start jobs, ran %d", job.runs)
	}
}

func TestNewServiceValidatesParams(t *testing.T) {
	if _, err := NewService(ServiceParams{Lock: &fakeLock{}}); err == nil {
		t.Fatal("expected logger error")
	}
	if _, err := NewService(ServiceParams{Logger: logger.Nop()}); err == nil {
		t.Fatal("expected lock error")
	}
	dup := []Job{&countingJob{name: "carts"}, &countingJob{name: "carts"}}
	if _, err := NewService(ServiceParams{Logger: logger.Nop(), Lock: &fakeLock{}, Jobs: dup}); err == nil {
		t.Fatal("expected duplicate job names rejected")
	}
}

func rowsDeleted(t *testing.T, reg *prometheus.Registry, job string) float64 {
	t.Helper()
	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, mf := range mfs {
		if mf.GetName() != "janitor_rows_deleted_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetName() == "job" && l.GetValue() == job {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}
