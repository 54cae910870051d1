package dto

import "github.com/shopspring/decimal"

// ─── Request DTOs ────────────────────────────────────────────────────────────

type CreateTransactionRequest struct {
	QueueEntryID string          `json:"queue_entry_id" validate:"required,uuid"`
	Amount       decimal.Decimal `json:"amount"         validate:"required"`
}

type CreateSettlementRequest struct {
	Amount decimal.Decimal `json:"amount" validate:"required"`
	// PaymentMode may be omitted by older POS clients; the ledger records it
	// as "unspecified" instead of assuming cash.
	PaymentMode *string `json:"payment_mode" validate:"omitempty,oneof=cash gcash card bank_transfer"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type SettlementResponse struct {
	ID            string          `json:"id"`
	TransactionID string          `json:"transaction_id"`
	Amount        decimal.Decimal `json:"amount"`
	PaymentMode   string          `json:"payment_mode"`
	CashierID     string          `json:"cashier_id"`
	PaidAt        string          `json:"paid_at"`
}

type TransactionResponse struct {
	ID            string               `json:"id"`
	QueueEntryID  string               `json:"queue_entry_id"`
	Amount        decimal.Decimal      `json:"amount"`
	PaidAmount    decimal.Decimal      `json:"paid_amount"`
	BalanceAmount decimal.Decimal      `json:"balance_amount"`
	PaymentStatus string               `json:"payment_status"`
	Settlements   []SettlementResponse `json:"settlements,omitempty"`
	CreatedAt     string               `json:"created_at"`
}
