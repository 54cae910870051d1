package dto

// ─── Request DTOs ────────────────────────────────────────────────────────────

type RegisterRequest struct {
	CustomerName  string  `json:"customer_name" validate:"required,min=2"`
	Phone         *string `json:"phone"         validate:"omitempty,min=7,max=20"`
	SeniorCitizen bool    `json:"senior_citizen"`
	Pregnant      bool    `json:"pregnant"`
	PWD           bool    `json:"pwd"`
}

type CallRequest struct {
	CounterID int `json:"counter_id" validate:"required,min=1"`
}

type CancelRequest struct {
	Reason string `json:"reason" validate:"required,min=3"`
}

// ReorderRequest must list EVERY currently waiting customer exactly once; the
// new order is the list order.
type ReorderRequest struct {
	CustomerIDs []string `json:"customer_ids" validate:"required,min=1,dive,uuid"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type QueueEntryResponse struct {
	ID             string  `json:"id"`
	TokenNumber    int     `json:"token_number"`
	BusinessDate   string  `json:"business_date"`
	CustomerName   string  `json:"customer_name"`
	Phone          *string `json:"phone,omitempty"`
	SeniorCitizen  bool    `json:"senior_citizen"`
	Pregnant       bool    `json:"pregnant"`
	PWD            bool    `json:"pwd"`
	PriorityScore  int     `json:"priority_score"`
	ManualPosition *int    `json:"manual_position,omitempty"`
	Status         string  `json:"status"`
	CounterID      *int    `json:"counter_id,omitempty"`
	CancelReason   *string `json:"cancel_reason,omitempty"`
	Revision       int     `json:"revision"`
	CalledAt       *string `json:"called_at,omitempty"`
	ServedAt       *string `json:"served_at,omitempty"`
	CompletedAt    *string `json:"completed_at,omitempty"`
	CreatedAt      string  `json:"created_at"`
}

// ActiveQueueResponse lists waiting entries in display order plus the entries
// currently at counters.
type ActiveQueueResponse struct {
	Waiting   []QueueEntryResponse `json:"waiting"`
	AtCounter []QueueEntryResponse `json:"at_counter"`
}
