package dto

// DailyArchiveResponse mirrors one immutable archive row.
type DailyArchiveResponse struct {
	ArchiveDate     string  `json:"archive_date"`
	TotalRegistered int     `json:"total_registered"`
	TotalServed     int     `json:"total_served"`
	TotalCancelled  int     `json:"total_cancelled"`
	PriorityServed  int     `json:"priority_served"`
	CarriedForward  int     `json:"carried_forward"`
	AvgWaitSeconds  float64 `json:"avg_wait_seconds"`
	MaxWaitSeconds  float64 `json:"max_wait_seconds"`
	ResetAt         string  `json:"reset_at"`
}

// ArchiveLookupResponse wraps getDailyArchive: a date with no archive yet is
// an expected state, so Archive is null rather than a 404.
type ArchiveLookupResponse struct {
	Date    string                `json:"date"`
	Archive *DailyArchiveResponse `json:"archive"`
}

type ResetLogResponse struct {
	RunDate       string  `json:"run_date"`
	Status        string  `json:"status"`
	TriggeredBy   string  `json:"triggered_by"`
	EntriesClosed int     `json:"entries_closed"`
	StartedAt     string  `json:"started_at"`
	FinishedAt    *string `json:"finished_at,omitempty"`
	DurationMs    int64   `json:"duration_ms"`
	Error         *string `json:"error,omitempty"`
}
