package service

import (
	"context"
	"time"

	"queuedesk/internal/dto"
	"queuedesk/internal/model"
	"queuedesk/internal/realtime"
	"queuedesk/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

type SettlementService interface {
	CreateTransaction(ctx context.Context, req dto.CreateTransactionRequest) (*dto.TransactionResponse, error)
	// CreateSettlement appends one immutable payment to the ledger and returns
	// the updated transaction with its full settlement history, newest first.
	CreateSettlement(ctx context.Context, transactionID, cashierID uuid.UUID, req dto.CreateSettlementRequest) (*dto.TransactionResponse, error)
	GetTransaction(ctx context.Context, id uuid.UUID) (*dto.TransactionResponse, error)
	ListSettlements(ctx context.Context, transactionID uuid.UUID) ([]dto.SettlementResponse, error)
	// ListOpenTransactions returns every transaction still awaiting payment.
	// It backs the transactions-topic snapshot sent on subscribe.
	ListOpenTransactions(ctx context.Context) ([]dto.TransactionResponse, error)
}

type settlementService struct {
	repo      repository.TransactionRepository
	queueRepo repository.QueueRepository
	publisher realtime.Publisher
}

func NewSettlementService(
	repo repository.TransactionRepository,
	queueRepo repository.QueueRepository,
	publisher realtime.Publisher,
) SettlementService {
	return &settlementService{repo: repo, queueRepo: queueRepo, publisher: publisher}
}

// ── CreateTransaction ────────────────────────────────────────────────────────
// Amount is fixed at creation; everything else is derived from settlements.

func (s *settlementService) CreateTransaction(ctx context.Context, req dto.CreateTransactionRequest) (*dto.TransactionResponse, error) {
	if !req.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	entryID, err := uuid.Parse(req.QueueEntryID)
	if err != nil {
		return nil, ErrEntityNotFound
	}
	if _, err := s.queueRepo.FindByID(ctx, entryID); err != nil {
		return nil, translateRepoErr(err)
	}

	txn := model.Transaction{
		QueueEntryID:  entryID,
		Amount:        req.Amount,
		BalanceAmount: req.Amount,
		PaymentStatus: model.PaymentUnpaid,
	}
	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		return s.repo.Create(ctx, tx, &txn)
	})
	if txErr != nil {
		return nil, txErr
	}

	s.publish(realtime.NewTransactionEvent(realtime.EventTxnCreated, &txn, nil))
	return txnToResponse(&txn, nil), nil
}

// ── CreateSettlement ─────────────────────────────────────────────────────────
// The insert-and-recompute is one atomic unit. The balance is computed fresh
// from the ledger INSIDE the transaction, under the transaction's row lock —
// a version that reads the balance outside the lock can race two settlements
// past the overpayment check.

func (s *settlementService) CreateSettlement(ctx context.Context, transactionID, cashierID uuid.UUID, req dto.CreateSettlementRequest) (*dto.TransactionResponse, error) {
	if !req.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	mode := model.PaymentModeUnspecified
	if req.PaymentMode != nil && *req.PaymentMode != "" {
		mode = *req.PaymentMode
	}

	var txn *model.Transaction
	var settlement model.Settlement
	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		t, err := s.repo.LockByID(ctx, tx, transactionID)
		if err != nil {
			if repository.IsNotFound(err) {
				return ErrTxnNotFound
			}
			return translateRepoErr(err)
		}

		paid, err := s.repo.SumSettlements(ctx, tx, t.ID)
		if err != nil {
			return err
		}
		balance := t.Amount.Sub(paid)
		if req.Amount.GreaterThan(balance) {
			return ErrOverpayment
		}

		settlement = model.Settlement{
			TransactionID: t.ID,
			Amount:        req.Amount,
			PaymentMode:   mode,
			CashierID:     cashierID,
			PaidAt:        time.Now(),
		}
		if err := s.repo.CreateSettlement(ctx, tx, &settlement); err != nil {
			return err
		}

		t.PaidAmount = paid.Add(req.Amount)
		t.BalanceAmount = t.Amount.Sub(t.PaidAmount)
		t.PaymentStatus = model.DerivePaymentStatus(t.PaidAmount, t.Amount)
		if err := s.repo.Save(ctx, tx, t); err != nil {
			return err
		}
		txn = t
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	if mode == model.PaymentModeUnspecified {
		// Flagged, not blocked: silently defaulting to cash would bias
		// downstream aggregation.
		log.Warn().
			Str("transaction_id", txn.ID.String()).
			Str("settlement_id", settlement.ID.String()).
			Msg("settlement recorded without payment mode")
	}

	s.publish(realtime.NewTransactionEvent(realtime.EventTxnSettled, txn, &settlement))

	history, err := s.repo.ListSettlements(ctx, txn.ID)
	if err != nil {
		return nil, err
	}
	return txnToResponse(txn, history), nil
}

// ── Queries ──────────────────────────────────────────────────────────────────

func (s *settlementService) GetTransaction(ctx context.Context, id uuid.UUID) (*dto.TransactionResponse, error) {
	t, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrTxnNotFound
		}
		return nil, err
	}
	return txnToResponse(t, t.Settlements), nil
}

func (s *settlementService) ListSettlements(ctx context.Context, transactionID uuid.UUID) ([]dto.SettlementResponse, error) {
	if _, err := s.repo.FindByID(ctx, transactionID); err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrTxnNotFound
		}
		return nil, err
	}
	settlements, err := s.repo.ListSettlements(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	resp := make([]dto.SettlementResponse, 0, len(settlements))
	for i := range settlements {
		resp = append(resp, *settlementToResponse(&settlements[i]))
	}
	return resp, nil
}

func (s *settlementService) ListOpenTransactions(ctx context.Context) ([]dto.TransactionResponse, error) {
	txns, err := s.repo.ListOpen(ctx)
	if err != nil {
		return nil, err
	}
	resp := make([]dto.TransactionResponse, 0, len(txns))
	for i := range txns {
		resp = append(resp, *txnToResponse(&txns[i], nil))
	}
	return resp, nil
}

// ── Helpers ──────────────────────────────────────────────────────────────────

func (s *settlementService) publish(evt realtime.Event) {
	if s.publisher != nil {
		s.publisher.Publish(evt)
	}
}

func settlementToResponse(m *model.Settlement) *dto.SettlementResponse {
	return &dto.SettlementResponse{
		ID:            m.ID.String(),
		TransactionID: m.TransactionID.String(),
		Amount:        m.Amount,
		PaymentMode:   m.PaymentMode,
		CashierID:     m.CashierID.String(),
		PaidAt:        m.PaidAt.UTC().Format(time.RFC3339),
	}
}

func txnToResponse(t *model.Transaction, settlements []model.Settlement) *dto.TransactionResponse {
	resp := &dto.TransactionResponse{
		ID:            t.ID.String(),
		QueueEntryID:  t.QueueEntryID.String(),
		Amount:        t.Amount,
		PaidAmount:    t.PaidAmount,
		BalanceAmount: t.BalanceAmount,
		PaymentStatus: t.PaymentStatus,
		CreatedAt:     t.CreatedAt.UTC().Format(time.RFC3339),
	}
	for i := range settlements {
		resp.Settlements = append(resp.Settlements, *settlementToResponse(&settlements[i]))
	}
	return resp
}
