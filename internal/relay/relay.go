package relay

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/pubsub"
)

const (
	defaultBatchSize      = 50
	defaultPollInterval   = 500 * time.Millisecond
	defaultMaxAttempts    = 10
	defaultPublishTimeout = 15 * time.Second
)

type database interface {
	Ping(ctx context.Context) error
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type broker interface {
	Ping(ctx context.Context) error
	Publish(ctx context.Context, topic string, msg *gcppubsub.Message) pubsub.Result
}

type eventStore interface {
	FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int, now time.Time) ([]models.OutboxEvent, error)
	MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error
	MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error, retryAt time.Time) error
	MarkTerminalTx(tx *gorm.DB, id uuid.UUID, err error, terminalAttempts int) error
}

type deadLetterStore interface {
	InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error
}

type Params struct {
	Config  config.OutboxConfig
	Logger  *logger.Logger
	DB      database
	Broker  broker
	Events  eventStore
	DLQ     deadLetterStore
	Routes  *Routes
	Metrics *metrics.StoreMetrics
	Clock   func() time.Time
}

// Relay moves committed outbox rows onto the broker. Delivery is at least
// once: a row is marked published only after the broker acknowledged it.
type Relay struct {
	logg    *logger.Logger
	db      database
	broker  broker
	events  eventStore
	dlq     deadLetterStore
	routes  *Routes
	metrics *metrics.StoreMetrics
	now     func() time.Time

	batchSize      int
	maxAttempts    int
	pollInterval   time.Duration
	publishTimeout time.Duration
}

func New(p Params) (*Relay, error) {
	switch {
	case p.Logger == nil:
		return nil, errors.New("logger is required")
	case p.DB == nil:
		return nil, errors.New("database is required")
	case p.Broker == nil:
		return nil, errors.New("broker is required")
	case p.Events == nil || p.DLQ == nil:
		return nil, errors.New("outbox stores are required")
	case p.Routes == nil:
		return nil, errors.New("routes are required")
	}
	r := &Relay{
		logg:           p.Logger,
		db:             p.DB,
		broker:         p.Broker,
		events:         p.Events,
		dlq:            p.DLQ,
		routes:         p.Routes,
		metrics:        p.Metrics,
		now:            p.Clock,
		batchSize:      p.Config.BatchSize,
		maxAttempts:    p.Config.MaxAttempts,
		pollInterval:   time.Duration(p.Config.PollIntervalMS) * time.Millisecond,
		publishTimeout: defaultPublishTimeout,
	}
	if r.now == nil {
		r.now = time.Now
	}
	if r.batchSize <= 0 {
		r.batchSize = defaultBatchSize
	}
	if r.maxAttempts <= 0 {
		r.maxAttempts = defaultMaxAttempts
	}
	if r.pollInterval <= 0 {
		r.pollInterval = defaultPollInterval
	}
	return r, nil
}

// Run drains the outbox until ctx is canceled. Full batches are followed
// immediately by the next one; an empty or failed drain waits before polling
// again.
func (r *Relay) Run(ctx context.Context) error {
	if err := r.db.Ping(ctx); err != nil {
		return fmt.Errorf("database ping: %w", err)
	}
	if err := r.broker.Ping(ctx); err != nil {
		return fmt.Errorf("broker ping: %w", err)
	}

	wait := r.pollInterval
	for {
		handled, err := r.Drain(ctx)
		if ctx.Err() != nil {
			r.logg.Info(ctx, "outbox relay stopping")
			return ctx.Err()
		}
		switch {
		case err != nil:
			r.logg.Error(ctx, "outbox drain failed", err)
			wait = slower(wait, r.pollInterval)
		case handled >= r.batchSize:
			wait = r.pollInterval
			continue
		default:
			wait = r.pollInterval
		}
		if err := sleepCtx(ctx, jittered(wait)); err != nil {
			return err
		}
	}
}

// Drain publishes one batch and settles every row in the same transaction
// that locked it. It returns the number of rows handled.
func (r *Relay) Drain(ctx context.Context) (int, error) {
	handled := 0
	err := r.db.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := r.events.FetchUnpublishedForPublish(tx, r.batchSize, r.maxAttempts, r.now().UTC())
		if err != nil {
			return fmt.Errorf("fetch outbox batch: %w", err)
		}
		handled = len(rows)
		for i, out := range r.dispatch(ctx, rows) {
			if err := r.settle(ctx, tx, rows[i], out); err != nil {
				return err
			}
		}
		return nil
	})
	return handled, err
}

type outcome struct {
	topic string
	err   error
}

// dispatch hands every valid row to the broker before waiting on any
// acknowledgement so the batch is published concurrently.
func (r *Relay) dispatch(ctx context.Context, rows []models.OutboxEvent) []outcome {
	outcomes := make([]outcome, len(rows))
	pending := make([]pubsub.Result, len(rows))

	publishCtx, cancel := context.WithTimeout(ctx, r.publishTimeout)
	defer cancel()

	for i, row := range rows {
		d, err := r.routes.resolve(row)
		if err != nil {
			outcomes[i].err = err
			continue
		}
		outcomes[i].topic = d.topic
		pending[i] = r.broker.Publish(publishCtx, d.topic, newMessage(d))
	}
	for i, res := range pending {
		if res == nil {
			continue
		}
		if _, err := res.Get(publishCtx); err != nil {
			outcomes[i].err = err
		}
	}
	return outcomes
}

func (r *Relay) settle(ctx context.Context, tx *gorm.DB, row models.OutboxEvent, out outcome) error {
	eventType := string(row.EventType)
	attempt := row.AttemptCount + 1
	logCtx := r.logg.WithFields(ctx, rowFields(row, out.topic))

	switch {
	case out.err == nil:
		if err := r.events.MarkPublishedTx(tx, row.ID); err != nil {
			return fmt.Errorf("mark published %s: %w", row.ID, err)
		}
		r.metrics.IncOutboxPublished(eventType, metrics.OutcomeSuccess)
		r.logg.Info(logCtx, "outbox event published")
		return nil
	case isPermanent(out.err):
		return r.deadLetter(logCtx, tx, row, enums.OutboxDLQReasonNonRetryable, out.err)
	case attempt >= r.maxAttempts:
		return r.deadLetter(logCtx, tx, row, enums.OutboxDLQReasonMaxAttempts,
			fmt.Errorf("gave up after %d attempts: %w", attempt, out.err))
	}

	retryAt := r.now().UTC().Add(retryDelay(attempt))
	if err := r.events.MarkFailedTx(tx, row.ID, out.err, retryAt); err != nil {
		return fmt.Errorf("mark failed %s: %w", row.ID, err)
	}
	r.metrics.IncOutboxPublished(eventType, metrics.OutcomeFailure)
	r.logg.Warn(r.logg.WithFields(logCtx, map[string]any{
		"attempt":  attempt,
		"retry_at": retryAt.Format(time.RFC3339),
		"error":    out.err.Error(),
	}), "outbox publish failed; will retry")
	return nil
}

func (r *Relay) deadLetter(ctx context.Context, tx *gorm.DB, row models.OutboxEvent, reason enums.OutboxDLQErrorReason, cause error) error {
	if err := r.dlq.InsertTx(tx, models.DeadLetter(row, reason, cause, r.now().UTC())); err != nil {
		return fmt.Errorf("dead-letter %s: %w", row.ID, err)
	}
	if err := r.events.MarkTerminalTx(tx, row.ID, cause, r.maxAttempts); err != nil {
		return fmt.Errorf("park %s: %w", row.ID, err)
	}
	r.metrics.IncOutboxPublished(string(row.EventType), metrics.OutcomeRejected)
	r.logg.Warn(r.logg.WithFields(ctx, map[string]any{
		"dlq_reason": reason,
		"error":      cause.Error(),
	}), "outbox event dead-lettered")
	return nil
}

// newMessage keys messages by aggregate so one order's events stay in order.
func newMessage(d delivery) *gcppubsub.Message {
	return &gcppubsub.Message{
		Data:        d.row.Payload,
		OrderingKey: d.row.AggregateID.String(),
		Attributes: map[string]string{
			"event_id":       d.envelope.EventID,
			"event_type":     string(d.row.EventType),
			"aggregate_type": string(d.row.AggregateType),
			"aggregate_id":   d.row.AggregateID.String(),
			"occurred_at":    d.envelope.OccurredAt.UTC().Format(time.RFC3339Nano),
			"schema_version": strconv.Itoa(d.envelope.Version),
		},
	}
}

func rowFields(row models.OutboxEvent, topic string) map[string]any {
	fields := map[string]any{
		"outbox_id":    row.ID.String(),
		"event_type":   row.EventType,
		"aggregate_id": row.AggregateID.String(),
		"attempts":     row.AttemptCount,
	}
	if topic != "" {
		fields["topic"] = topic
	}
	return fields
}
