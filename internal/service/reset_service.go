package service

import (
	"context"
	"fmt"
	"time"

	"queuedesk/internal/dto"
	"queuedesk/internal/model"
	"queuedesk/internal/realtime"
	"queuedesk/internal/repository"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Reset policies for still-open entries at the day boundary.
const (
	PolicyCancel       = "cancel"
	PolicyCarryForward = "carry_forward"
)

type ResetService interface {
	// Run executes the daily archive-and-reset for one date. Idempotent per
	// date: the second run for the same date fails with ResetAlreadyRan, but a
	// run that finds only a FAILED prior attempt is permitted to retry.
	Run(ctx context.Context, date time.Time, triggeredBy string) (*dto.ResetLogResponse, error)
	GetDailyArchive(ctx context.Context, date time.Time) (*dto.DailyArchiveResponse, error)
	ListResetLogs(ctx context.Context, limit int) ([]dto.ResetLogResponse, error)
}

type resetService struct {
	archiveRepo repository.ArchiveRepository
	queueRepo   repository.QueueRepository
	publisher   realtime.Publisher
	policy      string
}

func NewResetService(
	archiveRepo repository.ArchiveRepository,
	queueRepo repository.QueueRepository,
	publisher realtime.Publisher,
	policy string,
) ResetService {
	return &resetService{archiveRepo: archiveRepo, queueRepo: queueRepo, publisher: publisher, policy: policy}
}

// ── Run ──────────────────────────────────────────────────────────────────────
// Steps, in order:
//  1. acquire the per-date reset lock (unique-constraint insert)
//  2. snapshot the day's aggregates into DailyArchive
//  3. close still-open entries per policy, emptying the active set
//  4. reset the token counter
//  5. record outcome and duration in the reset log
//
// Steps 2-4 run in one DB transaction; any failure marks the whole run failed
// in the log, never a partial success.

func (s *resetService) Run(ctx context.Context, date time.Time, triggeredBy string) (*dto.ResetLogResponse, error) {
	started := time.Now()
	resetLog, err := s.acquireLock(ctx, date, triggeredBy, started)
	if err != nil {
		return nil, err
	}

	entriesClosed := 0
	carriedForward := 0
	txErr := runTx(ctx, s.queueRepo.DB(), func(tx *gorm.DB) error {
		open, err := s.queueRepo.LockOpen(ctx, tx, date)
		if err != nil {
			return err
		}

		stats, err := s.queueRepo.StatsForDate(ctx, tx, date)
		if err != nil {
			return err
		}

		disposition := model.DispositionDayReset
		reason := "end-of-day reset"
		if s.policy == PolicyCarryForward {
			disposition = model.DispositionCarriedForward
			reason = "carried forward to next business day"
			carriedForward = len(open)
		}
		for i := range open {
			e := &open[i]
			e.Status = model.StatusCancelled
			e.CancelReason = &reason
			e.Disposition = disposition
			e.Revision++
			if err := s.queueRepo.Save(ctx, tx, e); err != nil {
				return err
			}
		}
		entriesClosed = len(open)

		archive := model.DailyArchive{
			ArchiveDate:     date,
			TotalRegistered: stats.TotalRegistered,
			TotalServed:     stats.TotalServed,
			TotalCancelled:  stats.TotalCancelled + entriesClosed,
			PriorityServed:  stats.PriorityServed,
			CarriedForward:  carriedForward,
			AvgWaitSeconds:  stats.AvgWaitSeconds,
			MaxWaitSeconds:  stats.MaxWaitSeconds,
			ResetAt:         started,
		}
		if err := s.archiveRepo.CreateArchive(ctx, tx, &archive); err != nil {
			return err
		}

		return s.queueRepo.ResetTokenCounter(ctx, tx)
	})

	finished := time.Now()
	resetLog.FinishedAt = &finished
	resetLog.DurationMs = finished.Sub(started).Milliseconds()
	resetLog.EntriesClosed = entriesClosed

	if txErr != nil {
		msg := txErr.Error()
		resetLog.Status = model.ResetFailed
		resetLog.Error = &msg
		if err := s.archiveRepo.UpdateResetLog(ctx, resetLog); err != nil {
			log.Error().Err(err).Str("date", date.Format("2006-01-02")).Msg("reset: failed to record failure")
		}
		log.Error().Err(txErr).
			Str("date", date.Format("2006-01-02")).
			Int64("duration_ms", resetLog.DurationMs).
			Msg("reset: run failed")
		return nil, fmt.Errorf("%w: %v", ErrResetFailed, txErr)
	}

	resetLog.Status = model.ResetSucceeded
	if err := s.archiveRepo.UpdateResetLog(ctx, resetLog); err != nil {
		log.Error().Err(err).Str("date", date.Format("2006-01-02")).Msg("reset: failed to record success")
	}
	log.Info().
		Str("date", date.Format("2006-01-02")).
		Str("triggered_by", triggeredBy).
		Int("entries_closed", entriesClosed).
		Int64("duration_ms", resetLog.DurationMs).
		Msg("reset: run succeeded")

	s.publish(realtime.NewResetEvent(date.Format("2006-01-02"), entriesClosed))
	return resetLogToResponse(resetLog), nil
}

// acquireLock inserts the unique per-date reset row. Duplicate timer fires
// and double manual triggers land here: a live or succeeded row wins the
// no-op path, a failed row may be retaken exactly once per retry attempt.
func (s *resetService) acquireLock(ctx context.Context, date time.Time, triggeredBy string, started time.Time) (*model.ResetLog, error) {
	resetLog := &model.ResetLog{
		RunDate:     date,
		Status:      model.ResetRunning,
		TriggeredBy: triggeredBy,
		StartedAt:   started,
	}
	err := s.archiveRepo.CreateResetLog(ctx, resetLog)
	if err == nil {
		return resetLog, nil
	}
	if !repository.IsUniqueViolation(err) {
		return nil, err
	}

	existing, ferr := s.archiveRepo.FindResetLog(ctx, date)
	if ferr != nil {
		return nil, ferr
	}
	if existing == nil || existing.Status != model.ResetFailed {
		return nil, ErrResetAlreadyRan
	}

	existing.StartedAt = started
	existing.TriggeredBy = triggeredBy
	retaken, rerr := s.archiveRepo.RetakeFailedResetLog(ctx, existing)
	if rerr != nil {
		return nil, rerr
	}
	if !retaken {
		return nil, ErrResetAlreadyRan
	}
	existing.Status = model.ResetRunning
	existing.Error = nil
	return existing, nil
}

// ── Queries ──────────────────────────────────────────────────────────────────

func (s *resetService) GetDailyArchive(ctx context.Context, date time.Time) (*dto.DailyArchiveResponse, error) {
	a, err := s.archiveRepo.FindArchiveByDate(ctx, date)
	if err != nil {
		return nil, err
	}
	if a == nil {
		// No archive yet is an expected state, not a failure.
		return nil, nil
	}
	return &dto.DailyArchiveResponse{
		ArchiveDate:     a.ArchiveDate.Format("2006-01-02"),
		TotalRegistered: a.TotalRegistered,
		TotalServed:     a.TotalServed,
		TotalCancelled:  a.TotalCancelled,
		PriorityServed:  a.PriorityServed,
		CarriedForward:  a.CarriedForward,
		AvgWaitSeconds:  a.AvgWaitSeconds,
		MaxWaitSeconds:  a.MaxWaitSeconds,
		ResetAt:         a.ResetAt.UTC().Format(time.RFC3339),
	}, nil
}

func (s *resetService) ListResetLogs(ctx context.Context, limit int) ([]dto.ResetLogResponse, error) {
	if limit < 1 || limit > 100 {
		limit = 30
	}
	logs, err := s.archiveRepo.ListResetLogs(ctx, limit)
	if err != nil {
		return nil, err
	}
	resp := make([]dto.ResetLogResponse, 0, len(logs))
	for i := range logs {
		resp = append(resp, *resetLogToResponse(&logs[i]))
	}
	return resp, nil
}

// ── Helpers ──────────────────────────────────────────────────────────────────

func (s *resetService) publish(evt realtime.Event) {
	if s.publisher != nil {
		s.publisher.Publish(evt)
	}
}

func resetLogToResponse(l *model.ResetLog) *dto.ResetLogResponse {
	resp := &dto.ResetLogResponse{
		RunDate:       l.RunDate.Format("2006-01-02"),
		Status:        l.Status,
		TriggeredBy:   l.TriggeredBy,
		EntriesClosed: l.EntriesClosed,
		StartedAt:     l.StartedAt.UTC().Format(time.RFC3339),
		DurationMs:    l.DurationMs,
		Error:         l.Error,
	}
	if l.FinishedAt != nil {
		t := l.FinishedAt.UTC().Format(time.RFC3339)
		resp.FinishedAt = &t
	}
	return resp
}
