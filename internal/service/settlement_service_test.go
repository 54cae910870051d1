package service

import (
	"context"
	"testing"
	"time"

	"queuedesk/internal/dto"
	"queuedesk/internal/model"
	"queuedesk/internal/realtime"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSettlementFixture(t *testing.T) (*fakeTxnRepo, *fakeQueueRepo, *fakePublisher, SettlementService, uuid.UUID) {
	t.Helper()
	txnRepo := newFakeTxnRepo()
	queueRepo := newFakeQueueRepo()
	pub := &fakePublisher{}
	svc := NewSettlementService(txnRepo, queueRepo, pub)

	entry := &model.QueueEntry{CustomerName: "Ana Reyes", Status: model.StatusServing, BusinessDate: dateOf(2026, 8, 25)}
	require.NoError(t, queueRepo.Create(context.Background(), nil, entry))
	return txnRepo, queueRepo, pub, svc, entry.ID
}

func createTxn(t *testing.T, svc SettlementService, entryID uuid.UUID, amount string) *dto.TransactionResponse {
	t.Helper()
	resp, err := svc.CreateTransaction(context.Background(), dto.CreateTransactionRequest{
		QueueEntryID: entryID.String(),
		Amount:       decimal.RequireFromString(amount),
	})
	require.NoError(t, err)
	return resp
}

func settle(svc SettlementService, txnID uuid.UUID, amount string, mode *string) (*dto.TransactionResponse, error) {
	return svc.CreateSettlement(context.Background(), txnID, uuid.New(), dto.CreateSettlementRequest{
		Amount:      decimal.RequireFromString(amount),
		PaymentMode: mode,
	})
}

func strPtr(s string) *string { return &s }

func TestCreateTransactionRejectsNonPositiveAmount(t *testing.T) {
	_, _, _, svc, entryID := newSettlementFixture(t)

	for _, amount := range []string{"0", "-5"} {
		_, err := svc.CreateTransaction(context.Background(), dto.CreateTransactionRequest{
			QueueEntryID: entryID.String(),
			Amount:       decimal.RequireFromString(amount),
		})
		assert.ErrorIs(t, err, ErrInvalidAmount, "amount %s", amount)
	}
}

func TestCreateTransactionUnknownQueueEntry(t *testing.T) {
	_, _, _, svc, _ := newSettlementFixture(t)

	_, err := svc.CreateTransaction(context.Background(), dto.CreateTransactionRequest{
		QueueEntryID: uuid.NewString(),
		Amount:       decimal.RequireFromString("100"),
	})
	assert.ErrorIs(t, err, ErrEntityNotFound)
}

func TestCreateTransactionStartsUnpaid(t *testing.T) {
	_, _, pub, svc, entryID := newSettlementFixture(t)

	resp := createTxn(t, svc, entryID, "1000")
	assert.Equal(t, model.PaymentUnpaid, resp.PaymentStatus)
	assert.True(t, resp.PaidAmount.IsZero())
	assert.True(t, resp.BalanceAmount.Equal(decimal.RequireFromString("1000")))
	assert.Len(t, pub.byType(realtime.EventTxnCreated), 1)
}

// The 1000 / 400 / 600 / +1 sequence: partial, then exactly paid, then any
// further centavo rejected.
func TestSettlementLifecycle(t *testing.T) {
	txnRepo, _, pub, svc, entryID := newSettlementFixture(t)
	txn := createTxn(t, svc, entryID, "1000")
	txnID := mustUUID(t, txn.ID)

	after400, err := settle(svc, txnID, "400", strPtr(model.PaymentModeCash))
	require.NoError(t, err)
	assert.Equal(t, model.PaymentPartial, after400.PaymentStatus)
	assert.True(t, after400.PaidAmount.Equal(decimal.RequireFromString("400")))
	assert.True(t, after400.BalanceAmount.Equal(decimal.RequireFromString("600")))

	after600, err := settle(svc, txnID, "600", strPtr(model.PaymentModeGCash))
	require.NoError(t, err)
	assert.Equal(t, model.PaymentPaid, after600.PaymentStatus)
	assert.True(t, after600.BalanceAmount.IsZero())

	_, err = settle(svc, txnID, "1", strPtr(model.PaymentModeCash))
	assert.ErrorIs(t, err, ErrOverpayment)

	// paid amount always equals the ledger sum
	sum, err := txnRepo.SumSettlements(context.Background(), nil, txnID)
	require.NoError(t, err)
	stored := txnRepo.txns[txnID]
	assert.True(t, stored.PaidAmount.Equal(sum))

	// history newest first, both modes kept
	require.Len(t, after600.Settlements, 2)
	assert.Equal(t, model.PaymentModeGCash, after600.Settlements[0].PaymentMode)
	assert.Equal(t, model.PaymentModeCash, after600.Settlements[1].PaymentMode)

	assert.Len(t, pub.byType(realtime.EventTxnSettled), 2)
}

func TestSettlementWithoutModeRecordedAsUnspecified(t *testing.T) {
	txnRepo, _, _, svc, entryID := newSettlementFixture(t)
	txn := createTxn(t, svc, entryID, "250")

	resp, err := settle(svc, mustUUID(t, txn.ID), "250", nil)
	require.NoError(t, err)
	require.Len(t, resp.Settlements, 1)
	assert.Equal(t, model.PaymentModeUnspecified, resp.Settlements[0].PaymentMode)
	assert.Equal(t, model.PaymentModeUnspecified, txnRepo.ledger[0].PaymentMode)
}

// A settlement inserted by another session after our cached read must still
// count: the balance check reads the ledger fresh inside the lock scope.
func TestSettlementOverpaymentChecksFreshBalance(t *testing.T) {
	txnRepo, _, _, svc, entryID := newSettlementFixture(t)
	txn := createTxn(t, svc, entryID, "100")
	txnID := mustUUID(t, txn.ID)

	// concurrent cashier already posted 80; our transaction row still caches
	// paid_amount = 0
	txnRepo.ledger = append(txnRepo.ledger, model.Settlement{
		ID:            uuid.New(),
		TransactionID: txnID,
		Amount:        decimal.RequireFromString("80"),
		PaymentMode:   model.PaymentModeCash,
		CashierID:     uuid.New(),
		PaidAt:        time.Now(),
	})

	_, err := settle(svc, txnID, "30", strPtr(model.PaymentModeCash))
	assert.ErrorIs(t, err, ErrOverpayment)

	resp, err := settle(svc, txnID, "20", strPtr(model.PaymentModeCash))
	require.NoError(t, err)
	assert.Equal(t, model.PaymentPaid, resp.PaymentStatus)
	assert.True(t, resp.PaidAmount.Equal(decimal.RequireFromString("100")))
}

func TestSettlementSerializesOnRowLock(t *testing.T) {
	txnRepo, _, _, svc, entryID := newSettlementFixture(t)
	txn := createTxn(t, svc, entryID, "100")
	txnID := mustUUID(t, txn.ID)

	txnRepo.lockHeld[txnID] = true
	_, err := settle(svc, txnID, "50", strPtr(model.PaymentModeCash))
	assert.ErrorIs(t, err, ErrBusy)
}

func TestSettlementUnknownTransaction(t *testing.T) {
	_, _, _, svc, _ := newSettlementFixture(t)

	_, err := settle(svc, uuid.New(), "50", strPtr(model.PaymentModeCash))
	assert.ErrorIs(t, err, ErrTxnNotFound)
}

func TestSettlementRejectsNonPositiveAmount(t *testing.T) {
	_, _, _, svc, entryID := newSettlementFixture(t)
	txn := createTxn(t, svc, entryID, "100")

	_, err := settle(svc, mustUUID(t, txn.ID), "0", strPtr(model.PaymentModeCash))
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestListSettlementsNewestFirst(t *testing.T) {
	_, _, _, svc, entryID := newSettlementFixture(t)
	txn := createTxn(t, svc, entryID, "300")
	txnID := mustUUID(t, txn.ID)

	_, err := settle(svc, txnID, "100", strPtr(model.PaymentModeCash))
	require.NoError(t, err)
	_, err = settle(svc, txnID, "150", strPtr(model.PaymentModeCard))
	require.NoError(t, err)

	history, err := svc.ListSettlements(context.Background(), txnID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, model.PaymentModeCard, history[0].PaymentMode)
	assert.Equal(t, model.PaymentModeCash, history[1].PaymentMode)

	_, err = svc.ListSettlements(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrTxnNotFound)
}

// The transactions topic snapshot: everything still owed, oldest first, fully
// paid transactions gone.
func TestListOpenTransactionsExcludesPaid(t *testing.T) {
	txnRepo, _, _, svc, entryID := newSettlementFixture(t)

	unpaid := createTxn(t, svc, entryID, "300")
	partial := createTxn(t, svc, entryID, "200")
	paid := createTxn(t, svc, entryID, "100")

	_, err := settle(svc, mustUUID(t, partial.ID), "50", strPtr(model.PaymentModeCash))
	require.NoError(t, err)
	_, err = settle(svc, mustUUID(t, paid.ID), "100", strPtr(model.PaymentModeCash))
	require.NoError(t, err)

	txnRepo.txns[mustUUID(t, unpaid.ID)].CreatedAt = time.Date(2026, 8, 25, 8, 0, 0, 0, time.UTC)
	txnRepo.txns[mustUUID(t, partial.ID)].CreatedAt = time.Date(2026, 8, 25, 9, 0, 0, 0, time.UTC)

	open, err := svc.ListOpenTransactions(context.Background())
	require.NoError(t, err)
	require.Len(t, open, 2)
	assert.Equal(t, unpaid.ID, open[0].ID)
	assert.Equal(t, partial.ID, open[1].ID)
	assert.Equal(t, model.PaymentPartial, open[1].PaymentStatus)
}

func TestGetTransactionIncludesHistory(t *testing.T) {
	_, _, _, svc, entryID := newSettlementFixture(t)
	txn := createTxn(t, svc, entryID, "500")
	txnID := mustUUID(t, txn.ID)

	_, err := settle(svc, txnID, "500", strPtr(model.PaymentModeBankTransfer))
	require.NoError(t, err)

	got, err := svc.GetTransaction(context.Background(), txnID)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentPaid, got.PaymentStatus)
	require.Len(t, got.Settlements, 1)

	_, err = svc.GetTransaction(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrTxnNotFound)
}
