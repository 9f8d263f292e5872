package janitor

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

const (
	defaultOutboxRetention  = 30 * 24 * time.Hour
	defaultDLQRetention     = 90 * 24 * time.Hour
	defaultTerminalAttempts = 10
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPurger interface {
	PurgeBefore(tx *gorm.DB, cutoff time.Time, terminalAttempts int) (int64, error)
}

type dlqPurger interface {
	PurgeBefore(tx *gorm.DB, cutoff time.Time) (int64, error)
}

type OutboxRetentionJobParams struct {
	Logger           *logger.Logger
	DB               txRunner
	Events           outboxPurger
	DLQ              dlqPurger
	Retention        time.Duration
	DLQRetention     time.Duration
	TerminalAttempts int
}

type outboxRetentionJob struct {
	logg             *logger.Logger
	db               txRunner
	events           outboxPurger
	dlq              dlqPurger
	retention        time.Duration
	dlqRetention     time.Duration
	terminalAttempts int
	now              func() time.Time
}

// NewOutboxRetentionJob prunes delivered and dead-lettered outbox rows.
func NewOutboxRetentionJob(params OutboxRetentionJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Events == nil || params.DLQ == nil {
		return nil, fmt.Errorf("outbox repositories required")
	}
	job := &outboxRetentionJob{
		logg:             params.Logger,
		db:               params.DB,
		events:           params.Events,
		dlq:              params.DLQ,
		retention:        params.Retention,
		dlqRetention:     params.DLQRetention,
		terminalAttempts: params.TerminalAttempts,
		now:              time.Now,
	}
	if job.retention <= 0 {
		job.retention = defaultOutboxRetention
	}
	if job.dlqRetention <= 0 {
		job.dlqRetention = defaultDLQRetention
	}
	if job.terminalAttempts <= 0 {
		job.terminalAttempts = defaultTerminalAttempts
	}
	return job, nil
}

func (j *outboxRetentionJob) Name() string { return "outbox-retention" }

func (j *outboxRetentionJob) Run(ctx context.Context) (int64, error) {
	now := j.now().UTC()
	eventCutoff := now.Add(-j.retention)
	dlqCutoff := now.Add(-j.dlqRetention)

	var events, dead int64
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		if events, err = j.events.PurgeBefore(tx, eventCutoff, j.terminalAttempts); err != nil {
			return fmt.Errorf("purge outbox events: %w", err)
		}
		if dead, err = j.dlq.PurgeBefore(tx, dlqCutoff); err != nil {
			return fmt.Errorf("purge outbox dlq: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"event_cutoff":   eventCutoff,
		"dlq_cutoff":     dlqCutoff,
		"events_deleted": events,
		"dlq_deleted":    dead,
	}), "outbox retention cleanup complete")
	return events + dead, nil
}
