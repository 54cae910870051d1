package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Payment statuses. Always derived from paid vs total at write time, never
// set independently.
const (
	PaymentUnpaid  = "unpaid"
	PaymentPartial = "partial"
	PaymentPaid    = "paid"
)

// Payment modes. A settlement posted without a mode is stored as
// PaymentModeUnspecified rather than silently defaulting to cash.
const (
	PaymentModeCash         = "cash"
	PaymentModeGCash        = "gcash"
	PaymentModeCard         = "card"
	PaymentModeBankTransfer = "bank_transfer"
	PaymentModeUnspecified  = "unspecified"
)

// Transaction is one customer's billable order. Amount is fixed at creation;
// PaidAmount and BalanceAmount are recomputed from the settlement ledger on
// every settlement, inside the same transaction as the insert.
type Transaction struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	QueueEntryID  uuid.UUID       `gorm:"type:uuid;not null;index"`
	Amount        decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	PaidAmount    decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	BalanceAmount decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	PaymentStatus string          `gorm:"type:varchar(20);not null;default:'unpaid'"`
	CreatedAt     time.Time
	UpdatedAt     time.Time

	Settlements []Settlement `gorm:"foreignKey:TransactionID"`
}

// DerivePaymentStatus is the single source of truth for PaymentStatus.
func DerivePaymentStatus(paid, total decimal.Decimal) string {
	switch {
	case paid.IsZero():
		return PaymentUnpaid
	case paid.LessThan(total):
		return PaymentPartial
	default:
		return PaymentPaid
	}
}

// Settlement is one immutable payment event in the ledger. Settlements are
// NEVER modified or deleted — the sum of a transaction's settlements equals
// its PaidAmount at all times.
type Settlement struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	TransactionID uuid.UUID       `gorm:"type:uuid;not null;index"`
	Amount        decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	PaymentMode   string          `gorm:"type:varchar(20);not null"`
	// CashierID identifies the staff member who recorded the payment (audit).
	CashierID uuid.UUID `gorm:"type:uuid;not null"`
	PaidAt    time.Time `gorm:"not null"`
	CreatedAt time.Time
}
