package janitor

import (
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

type passthroughTx struct{}

func (passthroughTx) WithTx(_ context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type fakeOutboxPurger struct {
	cutoff   time.Time
	attempts int
	rows     int64
	err      error
}

func (f *fakeOutboxPurger) PurgeBefore(_ *gorm.DB, cutoff time.Time, terminalAttempts int) (int64, error) {
	f.cutoff = cutoff
	f.attempts = terminalAttempts
	return f.rows, f.err
}

type fakeDLQPurger struct {
	cutoff time.Time
	rows   int64
	calls  int
}

func (f *fakeDLQPurger) PurgeBefore(_ *gorm.DB, cutoff time.Time) (int64, error) {
	f.calls++
	f.cutoff = cutoff
	return f.rows, nil
}

func newOutboxJob(t *testing.T, events *fakeOutboxPurger, dlq *fakeDLQPurger, attempts int) *outboxRetentionJob {
	t.Helper()
	job, err := NewOutboxRetentionJob(OutboxRetentionJobParams{
		Logger:           logger.Nop(),
		DB:               passthroughTx{},
		Events:           events,
		DLQ:              dlq,
		TerminalAttempts: attempts,
	})
	if err != nil {
		t.Fatalf("new job: %v", err)
	}
	return job.(*outboxRetentionJob)
}

func TestOutboxRetentionJobUsesCutoffs(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	events := &fakeOutboxPurger{rows: 7}
	dlq := &fakeDLQPurger{rows: 2}
	job := newOutboxJob(t, events, dlq, 4)
	job.now = func() time.Time { return now }

	deleted, err := job.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if deleted != 9 {
		t.Fatalf("expected 9 rows, got %d", deleted)
	}
	if want := now.Add(-defaultOutboxRetention); !events.cutoff.Equal(want) {
		t.Fatalf("expected event cutoff %s, got %s", want, events.cutoff)
	}
	if want := now.Add(-defaultDLQRetention); !dlq.cutoff.Equal(want) {
		t.Fatalf("expected dlq cutoff %s, got %s", want, dlq.cutoff)
	}
	if events.attempts != 4 {
		t.Fatalf("expected terminal attempts 4, got %d", events.attempts)
	}
}

func TestOutboxRetentionJobStopsOnEventError(t *testing.T) {
	events := &fakeOutboxPurger{err: errors.New("boom")}
	dlq := &fakeDLQPurger{}
	job := newOutboxJob(t, events, dlq, 0)

	if _, err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if dlq.calls != 0 {
		t.Fatalf("dlq purge must not run after a failed event purge")
	}
	if job.terminalAttempts != defaultTerminalAttempts {
		t.Fatalf("expected default terminal attempts, got %d", job.terminalAttempts)
	}
}

func TestNewOutboxRetentionJobValidates(t *testing.T) {
	if _, err := NewOutboxRetentionJob(OutboxRetentionJobParams{Logger: logger.Nop(), DB: passthroughTx{}}); err == nil {
		t.Fatal("expected missing repositories error")
	}
}
