package repository

import (
	"context"
	"time"

	"queuedesk/internal/model"

	"gorm.io/gorm"
)

type ArchiveRepository interface {
	CreateArchive(ctx context.Context, tx *gorm.DB, a *model.DailyArchive) error
	// FindArchiveByDate returns (nil, nil) for a date with no archive —
	// "no report yet" is an expected state, not an error.
	FindArchiveByDate(ctx context.Context, date time.Time) (*model.DailyArchive, error)
	// CreateResetLog performs the unique-constraint insert that doubles as the
	// per-date reset lock. A duplicate date surfaces as IsUniqueViolation.
	CreateResetLog(ctx context.Context, l *model.ResetLog) error
	FindResetLog(ctx context.Context, date time.Time) (*model.ResetLog, error)
	UpdateResetLog(ctx context.Context, l *model.ResetLog) error
	// RetakeFailedResetLog flips a failed row back to running for a manual
	// re-run. Returns false when the row was not in failed state (someone else
	// already retook it, or it succeeded).
	RetakeFailedResetLog(ctx context.Context, l *model.ResetLog) (bool, error)
	ListResetLogs(ctx context.Context, limit int) ([]model.ResetLog, error)
	DB() *gorm.DB
}

type archiveRepo struct{ db *gorm.DB }

func NewArchiveRepository(db *gorm.DB) ArchiveRepository { return &archiveRepo{db: db} }

func (r *archiveRepo) DB() *gorm.DB { return r.db }

func (r *archiveRepo) CreateArchive(ctx context.Context, tx *gorm.DB, a *model.DailyArchive) error {
	return tx.WithContext(ctx).Create(a).Error
}

func (r *archiveRepo) FindArchiveByDate(ctx context.Context, date time.Time) (*model.DailyArchive, error) {
	var a model.DailyArchive
	err := r.db.WithContext(ctx).First(&a, "archive_date = ?", date).Error
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &a, nil
}

func (r *archiveRepo) CreateResetLog(ctx context.Context, l *model.ResetLog) error {
	return r.db.WithContext(ctx).Create(l).Error
}

func (r *archiveRepo) FindResetLog(ctx context.Context, date time.Time) (*model.ResetLog, error) {
	var l model.ResetLog
	err := r.db.WithContext(ctx).First(&l, "run_date = ?", date).Error
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &l, nil
}

func (r *archiveRepo) UpdateResetLog(ctx context.Context, l *model.ResetLog) error {
	return r.db.WithContext(ctx).Save(l).Error
}

func (r *archiveRepo) RetakeFailedResetLog(ctx context.Context, l *model.ResetLog) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.ResetLog{}).
		Where("id = ? AND status = ?", l.ID, model.ResetFailed).
		Updates(map[string]interface{}{
			"status":     model.ResetRunning,
			"started_at": l.StartedAt,
			"error":      nil,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *archiveRepo) ListResetLogs(ctx context.Context, limit int) ([]model.ResetLog, error) {
	var logs []model.ResetLog
	err := r.db.WithContext(ctx).Order("run_date DESC").Limit(limit).Find(&logs).Error
	return logs, err
}
