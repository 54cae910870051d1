package repository

import (
	"context"

	"queuedesk/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TransactionRepository interface {
	Create(ctx context.Context, tx *gorm.DB, t *model.Transaction) error
	// FindByID loads the transaction with its settlements, newest first.
	FindByID(ctx context.Context, id uuid.UUID) (*model.Transaction, error)
	// LockByID acquires the transaction's row lock with FOR UPDATE NOWAIT so
	// concurrent settlements on the same transaction serialize.
	LockByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.Transaction, error)
	// SumSettlements recomputes paid amount from the ledger inside tx. Never
	// trust a cached balance for the overpayment check.
	SumSettlements(ctx context.Context, tx *gorm.DB, transactionID uuid.UUID) (decimal.Decimal, error)
	CreateSettlement(ctx context.Context, tx *gorm.DB, s *model.Settlement) error
	Save(ctx context.Context, tx *gorm.DB, t *model.Transaction) error
	// ListSettlements returns the ledger newest first.
	ListSettlements(ctx context.Context, transactionID uuid.UUID) ([]model.Settlement, error)
	// ListOpen returns transactions still awaiting payment (unpaid or
	// partial), oldest first.
	ListOpen(ctx context.Context) ([]model.Transaction, error)
	DB() *gorm.DB // exposes the DB for transaction creation in service layer
}

type transactionRepo struct{ db *gorm.DB }

func NewTransactionRepository(db *gorm.DB) TransactionRepository { return &transactionRepo{db: db} }

func (r *transactionRepo) DB() *gorm.DB { return r.db }

func (r *transactionRepo) Create(ctx context.Context, tx *gorm.DB, t *model.Transaction) error {
	return tx.WithContext(ctx).Create(t).Error
}

func (r *transactionRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Transaction, error) {
	var t model.Transaction
	err := r.db.WithContext(ctx).
		Preload("Settlements", func(db *gorm.DB) *gorm.DB {
			return db.Order("paid_at DESC")
		}).
		First(&t, "id = ?", id).Error
	return &t, err
}

func (r *transactionRepo) LockByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.Transaction, error) {
	var t model.Transaction
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE", Options: "NOWAIT"}).
		First(&t, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *transactionRepo) SumSettlements(ctx context.Context, tx *gorm.DB, transactionID uuid.UUID) (decimal.Decimal, error) {
	var sum decimal.NullDecimal
	err := tx.WithContext(ctx).Model(&model.Settlement{}).
		Where("transaction_id = ?", transactionID).
		Select("SUM(amount)").Scan(&sum).Error
	if err != nil {
		return decimal.Zero, err
	}
	if !sum.Valid {
		return decimal.Zero, nil
	}
	return sum.Decimal, nil
}

func (r *transactionRepo) CreateSettlement(ctx context.Context, tx *gorm.DB, s *model.Settlement) error {
	return tx.WithContext(ctx).Create(s).Error
}

func (r *transactionRepo) Save(ctx context.Context, tx *gorm.DB, t *model.Transaction) error {
	return tx.WithContext(ctx).Save(t).Error
}

func (r *transactionRepo) ListSettlements(ctx context.Context, transactionID uuid.UUID) ([]model.Settlement, error) {
	var settlements []model.Settlement
	err := r.db.WithContext(ctx).
		Where("transaction_id = ?", transactionID).
		Order("paid_at DESC").
		Find(&settlements).Error
	return settlements, err
}

func (r *transactionRepo) ListOpen(ctx context.Context) ([]model.Transaction, error) {
	var txns []model.Transaction
	err := r.db.WithContext(ctx).
		Where("payment_status <> ?", model.PaymentPaid).
		Order("created_at ASC").
		Find(&txns).Error
	return txns, err
}
