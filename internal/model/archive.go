package model

import (
	"time"

	"github.com/google/uuid"
)

// DailyArchive snapshots one business day's aggregate activity. Written only
// by the reset job, exactly once per date, and never mutated afterwards.
type DailyArchive struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ArchiveDate time.Time `gorm:"type:date;not null;uniqueIndex"`

	TotalRegistered int `gorm:"not null;default:0"`
	TotalServed     int `gorm:"not null;default:0"`
	TotalCancelled  int `gorm:"not null;default:0"`
	PriorityServed  int `gorm:"not null;default:0"`
	CarriedForward  int `gorm:"not null;default:0"`

	AvgWaitSeconds float64 `gorm:"not null;default:0"`
	MaxWaitSeconds float64 `gorm:"not null;default:0"`

	ResetAt   time.Time `gorm:"not null"`
	CreatedAt time.Time
}

// Reset run outcomes.
const (
	ResetRunning   = "running"
	ResetSucceeded = "succeeded"
	ResetFailed    = "failed"
)

// ResetLog doubles as the per-date reset lock (unique RunDate) and the audit
// record of each attempt. A failed row may be retaken by a manual re-run; a
// running or succeeded row blocks further attempts for that date.
type ResetLog struct {
	ID      uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	RunDate time.Time `gorm:"type:date;not null;uniqueIndex"`
	Status  string    `gorm:"type:varchar(20);not null;default:'running'"`
	// TriggeredBy: "timer" | "manual"
	TriggeredBy   string `gorm:"type:varchar(20);not null"`
	EntriesClosed int    `gorm:"not null;default:0"`
	StartedAt     time.Time
	FinishedAt    *time.Time
	DurationMs    int64 `gorm:"not null;default:0"`
	Error         *string
}

// TokenCounter is the persisted daily token source. Read-and-incremented
// inside the registration transaction; reset to zero by the daily reset.
// A single row (ID 1) exists per deployment.
type TokenCounter struct {
	ID        int `gorm:"primaryKey"`
	LastValue int `gorm:"not null;default:0"`
	UpdatedAt time.Time
}
