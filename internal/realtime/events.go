// Package realtime fans queue and ledger state changes out to connected
// observers (display monitors, dashboards) over websockets.
//
// Delivery contract: at-least-once. Every event carries a stable EventID and,
// for queue entries, the entry's Revision; observers MUST drop events whose
// identifier they have already applied. Events for the same entity reach a
// given observer in commit order because mutations on one entity serialize on
// its row lock and each client's send channel preserves order. No ordering is
// guaranteed across different entities.
package realtime

import (
	"encoding/json"
	"strconv"

	"queuedesk/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Topic string

const (
	TopicQueue        Topic = "queue"
	TopicTransactions Topic = "transactions"
)

// Event kinds form a closed set — one variant per mutation. Payloads carry
// only the delta, never a full snapshot (snapshots are sent separately on
// subscribe).
const (
	EventQueueRegistered  = "queue.registered"
	EventQueueCalled      = "queue.called"
	EventQueueProcessing  = "queue.processing"
	EventQueueCompleted   = "queue.completed"
	EventQueueCancelled   = "queue.cancelled"
	EventQueueReordered   = "queue.reordered"
	EventQueueReset       = "queue.reset"
	EventTxnCreated       = "transaction.created"
	EventTxnSettled       = "transaction.settled"
	EventSnapshot         = "snapshot"
)

// Event is the wire envelope for every message pushed to observers.
type Event struct {
	Topic    Topic           `json:"topic"`
	Type     string          `json:"type"`
	EventID  string          `json:"event_id"`
	EntityID string          `json:"entity_id,omitempty"`
	Revision int             `json:"revision,omitempty"`
	Payload  json.RawMessage `json:"payload"`
}

// Publisher is what the service layer sees. Publishing is fire-and-forget:
// it must never fail or block a staff action.
type Publisher interface {
	Publish(evt Event)
}

// QueueDelta carries the changed fields of one queue entry.
type QueueDelta struct {
	ID             string  `json:"id"`
	TokenNumber    int     `json:"token_number"`
	Status         string  `json:"status"`
	PriorityScore  int     `json:"priority_score"`
	ManualPosition *int    `json:"manual_position,omitempty"`
	CounterID      *int    `json:"counter_id,omitempty"`
	CancelReason   *string `json:"cancel_reason,omitempty"`
	Revision       int     `json:"revision"`
}

// ReorderDelta carries the new waiting order after a staff reorder.
type ReorderDelta struct {
	Order []string `json:"order"`
}

// ResetDelta announces the day boundary to displays.
type ResetDelta struct {
	Date          string `json:"date"`
	EntriesClosed int    `json:"entries_closed"`
}

// TransactionDelta carries the ledger change from one settlement (or the
// initial transaction creation, with SettlementID empty).
type TransactionDelta struct {
	TransactionID string          `json:"transaction_id"`
	SettlementID  string          `json:"settlement_id,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	PaidAmount    decimal.Decimal `json:"paid_amount"`
	BalanceAmount decimal.Decimal `json:"balance_amount"`
	PaymentStatus string          `json:"payment_status"`
	PaymentMode   string          `json:"payment_mode,omitempty"`
}

// NewQueueEvent builds the delta event for one entry mutation. The EventID is
// derived from the entry id and revision, so redelivered duplicates carry the
// same identifier.
func NewQueueEvent(eventType string, e *model.QueueEntry) Event {
	delta := QueueDelta{
		ID:             e.ID.String(),
		TokenNumber:    e.TokenNumber,
		Status:         e.Status,
		PriorityScore:  e.PriorityScore,
		ManualPosition: e.ManualPosition,
		CounterID:      e.CounterID,
		CancelReason:   e.CancelReason,
		Revision:       e.Revision,
	}
	payload, _ := json.Marshal(delta)
	return Event{
		Topic:    TopicQueue,
		Type:     eventType,
		EventID:  e.ID.String() + ":" + strconv.Itoa(e.Revision),
		EntityID: e.ID.String(),
		Revision: e.Revision,
		Payload:  payload,
	}
}

// NewReorderEvent announces a manual reorder of the waiting set.
func NewReorderEvent(order []string) Event {
	payload, _ := json.Marshal(ReorderDelta{Order: order})
	return Event{
		Topic:   TopicQueue,
		Type:    EventQueueReordered,
		EventID: uuid.NewString(),
		Payload: payload,
	}
}

// NewResetEvent announces the daily reset.
func NewResetEvent(date string, entriesClosed int) Event {
	payload, _ := json.Marshal(ResetDelta{Date: date, EntriesClosed: entriesClosed})
	return Event{
		Topic:   TopicQueue,
		Type:    EventQueueReset,
		EventID: "reset:" + date,
		Payload: payload,
	}
}

// NewTransactionEvent builds the ledger delta for a transaction mutation.
// For settlements the settlement id is the stable dedup identifier.
func NewTransactionEvent(eventType string, t *model.Transaction, s *model.Settlement) Event {
	delta := TransactionDelta{
		TransactionID: t.ID.String(),
		Amount:        t.Amount,
		PaidAmount:    t.PaidAmount,
		BalanceAmount: t.BalanceAmount,
		PaymentStatus: t.PaymentStatus,
	}
	eventID := t.ID.String() + ":created"
	if s != nil {
		delta.SettlementID = s.ID.String()
		delta.PaymentMode = s.PaymentMode
		eventID = s.ID.String()
	}
	payload, _ := json.Marshal(delta)
	return Event{
		Topic:    TopicTransactions,
		Type:     eventType,
		EventID:  eventID,
		EntityID: t.ID.String(),
		Payload:  payload,
	}
}

