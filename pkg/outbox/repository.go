package outbox

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

// maxErrorText bounds stored error strings.
const maxErrorText = 1024

var errNoTx = errors.New("transaction required")

// Repository reads and settles rows of outbox_events.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Insert(tx *gorm.DB, event models.OutboxEvent) error {
	if tx == nil {
		return errNoTx
	}
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	return tx.Create(&event).Error
}

// FetchUnpublishedForPublish returns up to limit pending rows, oldest first,
// that are under the attempt ceiling and due for another try at now. On
// postgres the rows stay locked until tx ends and concurrent relays skip them.
func (r *Repository) FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int, now time.Time) ([]models.OutboxEvent, error) {
	if tx == nil {
		return nil, errNoTx
	}
	q := pending(tx, maxAttempts)
	if tx.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate, Options: clause.LockingOptionsSkipLocked})
	}
	var rows []models.OutboxEvent
	err := q.
		Where("next_attempt_at IS NULL OR next_attempt_at <= ?", now).
		Order("created_at ASC, id ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (r *Repository) MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error {
	return settle(tx, id, map[string]any{"published_at": time.Now().UTC(), "last_error": nil})
}

// MarkFailedTx counts a failed attempt and holds the row back until retryAt.
func (r *Repository) MarkFailedTx(tx *gorm.DB, id uuid.UUID, cause error, retryAt time.Time) error {
	return settle(tx, id, map[string]any{
		"attempt_count":   gorm.Expr("attempt_count + 1"),
		"next_attempt_at": retryAt,
		"last_error":      errorText(cause),
	})
}

// MarkTerminalTx raises the attempt count to the ceiling so the row is never
// fetched again. Its copy lives in outbox_dlq.
func (r *Repository) MarkTerminalTx(tx *gorm.DB, id uuid.UUID, cause error, ceiling int) error {
	return settle(tx, id, map[string]any{"attempt_count": ceiling, "last_error": errorText(cause)})
}

// PendingCount reports rows the relay still has to deliver. A nil tx reads
// through the repository's own handle.
func (r *Repository) PendingCount(tx *gorm.DB, maxAttempts int) (int64, error) {
	if tx == nil {
		tx = r.db
	}
	var n int64
	err := pending(tx.Model(&models.OutboxEvent{}), maxAttempts).Count(&n).Error
	return n, err
}

// PurgeBefore deletes rows published before cutoff, and rows created before
// cutoff that were parked at the ceiling.
func (r *Repository) PurgeBefore(tx *gorm.DB, cutoff time.Time, ceiling int) (int64, error) {
	if tx == nil {
		return 0, errNoTx
	}
	res := tx.Where("published_at IS NOT NULL AND published_at < ?", cutoff).
		Or("published_at IS NULL AND attempt_count >= ? AND created_at < ?", ceiling, cutoff).
		Delete(&models.OutboxEvent{})
	return res.RowsAffected, res.Error
}

func pending(q *gorm.DB, maxAttempts int) *gorm.DB {
	return q.Where("published_at IS NULL AND attempt_count < ?", maxAttempts)
}

func settle(tx *gorm.DB, id uuid.UUID, changes map[string]any) error {
	if tx == nil {
		return errNoTx
	}
	return tx.Model(&models.OutboxEvent{}).Where("id = ?", id).Updates(changes).Error
}

func errorText(err error) *string {
	if err == nil {
		return nil
	}
	text := clip(err.Error())
	return &text
}

func clip(s string) string {
	if len(s) > maxErrorText {
		return s[:maxErrorText]
	}
	return s
}
