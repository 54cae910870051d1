package model

import (
	"time"

	"github.com/google/uuid"
)

// Queue entry statuses. Completed and Cancelled are terminal — no transition
// ever leaves them.
const (
	StatusWaiting    = "waiting"
	StatusServing    = "serving"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
)

// Dispositions recorded by the daily reset on entries it closes.
const (
	DispositionDayReset       = "day_reset"
	DispositionCarriedForward = "carried_forward"
)

// QueueEntry is one customer's visit: their position and state in the day's
// queue. The entry id doubles as the customer id for the visit.
type QueueEntry struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	// TokenNumber is unique per business day, assigned monotonically from the
	// persisted token counter inside the registration transaction.
	TokenNumber  int       `gorm:"not null"`
	BusinessDate time.Time `gorm:"type:date;not null;index"`

	CustomerName  string `gorm:"not null"`
	Phone         *string
	SeniorCitizen bool `gorm:"not null;default:false"`
	Pregnant      bool `gorm:"not null;default:false"`
	PWD           bool `gorm:"not null;default:false;column:pwd"`

	// PriorityScore is computed once at registration from the flags above.
	PriorityScore int `gorm:"not null;default:0"`
	// ManualPosition overrides automatic ordering when staff reorder the queue.
	// Cleared implicitly: list ordering places manual positions first only
	// while the entry remains in the waiting set.
	ManualPosition *int

	Status    string `gorm:"type:varchar(20);not null;default:'waiting';index"`
	CounterID *int
	// CancelReason is mandatory on cancellation and kept for audit.
	CancelReason *string
	// Disposition is set by the daily reset: "day_reset" | "carried_forward".
	Disposition string `gorm:"type:varchar(20);not null;default:''"`

	// Revision increments on every mutation; realtime observers use it to
	// order and deduplicate events for this entry.
	Revision int `gorm:"not null;default:0"`

	CalledAt    *time.Time
	ServedAt    *time.Time
	CompletedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Terminal reports whether the entry can never transition again.
func (e *QueueEntry) Terminal() bool {
	return e.Status == StatusCompleted || e.Status == StatusCancelled
}

// Active reports whether the entry still occupies a counter slot.
func (e *QueueEntry) Active() bool {
	return e.Status == StatusServing || e.Status == StatusProcessing
}
