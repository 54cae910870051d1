package repository

import (
	"context"
	"time"

	"queuedesk/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DayStats aggregates one business day's queue activity for the archive.
type DayStats struct {
	TotalRegistered int
	TotalServed     int
	TotalCancelled  int
	PriorityServed  int
	AvgWaitSeconds  float64
	MaxWaitSeconds  float64
}

type QueueRepository interface {
	Create(ctx context.Context, tx *gorm.DB, e *model.QueueEntry) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.QueueEntry, error)
	// LockByID acquires the entry's row lock with FOR UPDATE NOWAIT. A lost
	// lock race surfaces as an error satisfying IsLockUnavailable.
	LockByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.QueueEntry, error)
	// LockActiveByCounter locks the entry currently serving or processing at
	// the counter on the given date. Returns (nil, nil) when the counter is free.
	LockActiveByCounter(ctx context.Context, tx *gorm.DB, counterID int, date time.Time) (*model.QueueEntry, error)
	// LockWaiting locks today's whole waiting set, ordered by primary key so
	// concurrent reorders acquire locks in the same order.
	LockWaiting(ctx context.Context, tx *gorm.DB, date time.Time) ([]model.QueueEntry, error)
	Save(ctx context.Context, tx *gorm.DB, e *model.QueueEntry) error
	// ListWaiting returns the waiting set in display order: manual positions
	// first (ascending), then priority score descending, createdAt ascending.
	ListWaiting(ctx context.Context, date time.Time) ([]model.QueueEntry, error)
	// ListAtCounter returns serving/processing entries ordered by counter.
	ListAtCounter(ctx context.Context, date time.Time) ([]model.QueueEntry, error)
	// LockOpen locks every non-terminal entry for the date (reset step 3).
	LockOpen(ctx context.Context, tx *gorm.DB, date time.Time) ([]model.QueueEntry, error)
	// NextTokenNumber increments the persisted token counter and returns the
	// new value, atomically within tx.
	NextTokenNumber(ctx context.Context, tx *gorm.DB) (int, error)
	// ResetTokenCounter sets the counter back to its starting value.
	ResetTokenCounter(ctx context.Context, tx *gorm.DB) error
	// StatsForDate computes the day's aggregates inside the reset transaction.
	StatsForDate(ctx context.Context, tx *gorm.DB, date time.Time) (*DayStats, error)
	DB() *gorm.DB // exposes the DB for transaction creation in service layer
}

type queueRepo struct{ db *gorm.DB }

func NewQueueRepository(db *gorm.DB) QueueRepository { return &queueRepo{db: db} }

func (r *queueRepo) DB() *gorm.DB { return r.db }

func (r *queueRepo) Create(ctx context.Context, tx *gorm.DB, e *model.QueueEntry) error {
	return tx.WithContext(ctx).Create(e).Error
}

func (r *queueRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.QueueEntry, error) {
	var e model.QueueEntry
	err := r.db.WithContext(ctx).First(&e, "id = ?", id).Error
	return &e, err
}

func (r *queueRepo) LockByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.QueueEntry, error) {
	var e model.QueueEntry
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE", Options: "NOWAIT"}).
		First(&e, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *queueRepo) LockActiveByCounter(ctx context.Context, tx *gorm.DB, counterID int, date time.Time) (*model.QueueEntry, error) {
	var e model.QueueEntry
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE", Options: "NOWAIT"}).
		Where("counter_id = ? AND business_date = ? AND status IN ?",
			counterID, date, []string{model.StatusServing, model.StatusProcessing}).
		First(&e).Error
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &e, nil
}

func (r *queueRepo) LockWaiting(ctx context.Context, tx *gorm.DB, date time.Time) ([]model.QueueEntry, error) {
	var entries []model.QueueEntry
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE", Options: "NOWAIT"}).
		Where("business_date = ? AND status = ?", date, model.StatusWaiting).
		Order("id ASC").
		Find(&entries).Error
	return entries, err
}

func (r *queueRepo) Save(ctx context.Context, tx *gorm.DB, e *model.QueueEntry) error {
	return tx.WithContext(ctx).Save(e).Error
}

func (r *queueRepo) ListWaiting(ctx context.Context, date time.Time) ([]model.QueueEntry, error) {
	var entries []model.QueueEntry
	err := r.db.WithContext(ctx).
		Where("business_date = ? AND status = ?", date, model.StatusWaiting).
		Order("manual_position ASC NULLS LAST, priority_score DESC, created_at ASC").
		Find(&entries).Error
	return entries, err
}

func (r *queueRepo) ListAtCounter(ctx context.Context, date time.Time) ([]model.QueueEntry, error) {
	var entries []model.QueueEntry
	err := r.db.WithContext(ctx).
		Where("business_date = ? AND status IN ?", date,
			[]string{model.StatusServing, model.StatusProcessing}).
		Order("counter_id ASC").
		Find(&entries).Error
	return entries, err
}

func (r *queueRepo) LockOpen(ctx context.Context, tx *gorm.DB, date time.Time) ([]model.QueueEntry, error) {
	var entries []model.QueueEntry
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("business_date = ? AND status IN ?", date,
			[]string{model.StatusWaiting, model.StatusServing, model.StatusProcessing}).
		Order("id ASC").
		Find(&entries).Error
	return entries, err
}

func (r *queueRepo) NextTokenNumber(ctx context.Context, tx *gorm.DB) (int, error) {
	// Single-row upsert-and-increment; RETURNING makes it atomic under
	// concurrent registrations.
	var num int
	err := tx.WithContext(ctx).Raw(`
		INSERT INTO token_counters (id, last_value, updated_at)
		VALUES (1, 1, NOW())
		ON CONFLICT (id) DO UPDATE
		SET last_value = token_counters.last_value + 1, updated_at = NOW()
		RETURNING last_value`).Scan(&num).Error
	return num, err
}

func (r *queueRepo) ResetTokenCounter(ctx context.Context, tx *gorm.DB) error {
	return tx.WithContext(ctx).Exec(
		`UPDATE token_counters SET last_value = 0, updated_at = NOW() WHERE id = 1`).Error
}

func (r *queueRepo) StatsForDate(ctx context.Context, tx *gorm.DB, date time.Time) (*DayStats, error) {
	var row struct {
		TotalRegistered int
		TotalServed     int
		TotalCancelled  int
		PriorityServed  int
		AvgWaitSeconds  float64
		MaxWaitSeconds  float64
	}
	err := tx.WithContext(ctx).Raw(`
		SELECT
			COUNT(*)                                                          AS total_registered,
			COUNT(*) FILTER (WHERE status = 'completed')                      AS total_served,
			COUNT(*) FILTER (WHERE status = 'cancelled')                      AS total_cancelled,
			COUNT(*) FILTER (WHERE status = 'completed' AND priority_score > 0) AS priority_served,
			COALESCE(AVG(EXTRACT(EPOCH FROM (called_at - created_at))) FILTER (WHERE called_at IS NOT NULL), 0) AS avg_wait_seconds,
			COALESCE(MAX(EXTRACT(EPOCH FROM (called_at - created_at))) FILTER (WHERE called_at IS NOT NULL), 0) AS max_wait_seconds
		FROM queue_entries
		WHERE business_date = ?`, date).Scan(&row).Error
	if err != nil {
		return nil, err
	}
	return &DayStats{
		TotalRegistered: row.TotalRegistered,
		TotalServed:     row.TotalServed,
		TotalCancelled:  row.TotalCancelled,
		PriorityServed:  row.PriorityServed,
		AvgWaitSeconds:  row.AvgWaitSeconds,
		MaxWaitSeconds:  row.MaxWaitSeconds,
	}, nil
}
