package service

import (
	"context"
	"strconv"
	"time"

	"queuedesk/internal/dto"
	"queuedesk/internal/model"
	"queuedesk/internal/realtime"
	"queuedesk/internal/repository"
	"queuedesk/internal/worker"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type QueueService interface {
	Register(ctx context.Context, req dto.RegisterRequest) (*dto.QueueEntryResponse, error)
	Call(ctx context.Context, id uuid.UUID, counterID int) (*dto.QueueEntryResponse, error)
	MarkProcessing(ctx context.Context, id uuid.UUID) (*dto.QueueEntryResponse, error)
	Complete(ctx context.Context, id uuid.UUID) (*dto.QueueEntryResponse, error)
	Cancel(ctx context.Context, id uuid.UUID, reason string) (*dto.QueueEntryResponse, error)
	Reorder(ctx context.Context, ids []uuid.UUID) (*dto.ActiveQueueResponse, error)
	ListActiveQueue(ctx context.Context) (*dto.ActiveQueueResponse, error)
	Get(ctx context.Context, id uuid.UUID) (*dto.QueueEntryResponse, error)
}

// Transition table: action → statuses the action is valid from. Completed and
// Cancelled appear in no value set, so terminal entries never transition.
var transitionMap = map[string][]string{
	"call":            {model.StatusWaiting},
	"mark_processing": {model.StatusServing},
	"complete":        {model.StatusServing, model.StatusProcessing},
	"cancel":          {model.StatusWaiting, model.StatusServing, model.StatusProcessing},
}

func validTransition(action, fromStatus string) bool {
	for _, status := range transitionMap[action] {
		if status == fromStatus {
			return true
		}
	}
	return false
}

type queueService struct {
	repo       repository.QueueRepository
	publisher  realtime.Publisher
	dispatcher *worker.Dispatcher
	loc        *time.Location
}

func NewQueueService(
	repo repository.QueueRepository,
	publisher realtime.Publisher,
	dispatcher *worker.Dispatcher,
	loc *time.Location,
) QueueService {
	return &queueService{repo: repo, publisher: publisher, dispatcher: dispatcher, loc: loc}
}

// runTx executes fn inside a GORM transaction when db is available,
// or calls fn(nil) directly when db is nil (unit test mode).
func runTx(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	if db == nil {
		return fn(nil)
	}
	return db.WithContext(ctx).Transaction(fn)
}

// businessDate is today's calendar date in the business timezone, stored as a
// midnight-UTC date value.
func businessDate(loc *time.Location) time.Time {
	now := time.Now().In(loc)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

// translateRepoErr maps storage-level failures to the domain taxonomy. A lost
// NOWAIT lock race becomes Busy (retryable); a missing row becomes not-found.
// Anything else passes through untouched and is treated as fatal upstream.
func translateRepoErr(err error) error {
	switch {
	case repository.IsLockUnavailable(err):
		return ErrBusy
	case repository.IsNotFound(err):
		return ErrEntityNotFound
	default:
		return err
	}
}

// ── Register ─────────────────────────────────────────────────────────────────

func (s *queueService) Register(ctx context.Context, req dto.RegisterRequest) (*dto.QueueEntryResponse, error) {
	var entry model.QueueEntry
	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		token, err := s.repo.NextTokenNumber(ctx, tx)
		if err != nil {
			return err
		}
		entry = model.QueueEntry{
			TokenNumber:   token,
			BusinessDate:  businessDate(s.loc),
			CustomerName:  req.CustomerName,
			Phone:         req.Phone,
			SeniorCitizen: req.SeniorCitizen,
			Pregnant:      req.Pregnant,
			PWD:           req.PWD,
			PriorityScore: PriorityScore(req.SeniorCitizen, req.Pregnant, req.PWD),
			Status:        model.StatusWaiting,
			Revision:      1,
		}
		return s.repo.Create(ctx, tx, &entry)
	})
	if txErr != nil {
		return nil, txErr
	}

	s.publish(realtime.NewQueueEvent(realtime.EventQueueRegistered, &entry))
	s.notify(ctx, &entry, "queue_registered", map[string]string{
		"token": strconv.Itoa(entry.TokenNumber),
	})
	return entryToResponse(&entry), nil
}

// ── Call ─────────────────────────────────────────────────────────────────────

func (s *queueService) Call(ctx context.Context, id uuid.UUID, counterID int) (*dto.QueueEntryResponse, error) {
	var entry *model.QueueEntry
	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		e, err := s.repo.LockByID(ctx, tx, id)
		if err != nil {
			return translateRepoErr(err)
		}
		if !validTransition("call", e.Status) {
			return ErrInvalidTransition
		}

		// One active entry per counter: lock the occupying entry's row inside
		// the same transaction so two calls onto one counter serialize.
		occupying, err := s.repo.LockActiveByCounter(ctx, tx, counterID, e.BusinessDate)
		if err != nil {
			return translateRepoErr(err)
		}
		if occupying != nil {
			return ErrCounterBusy
		}

		now := time.Now()
		e.Status = model.StatusServing
		e.CounterID = &counterID
		e.CalledAt = &now
		e.Revision++
		if err := s.repo.Save(ctx, tx, e); err != nil {
			// Two concurrent calls onto a free counter both pass the busy
			// check (neither holds a row to lock); the loser lands on the
			// partial unique index over active counter assignments.
			if repository.IsUniqueViolation(err) {
				return ErrCounterBusy
			}
			return err
		}
		entry = e
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	s.publish(realtime.NewQueueEvent(realtime.EventQueueCalled, entry))
	s.notify(ctx, entry, "queue_called", map[string]string{
		"token":   strconv.Itoa(entry.TokenNumber),
		"counter": strconv.Itoa(counterID),
	})
	return entryToResponse(entry), nil
}

// ── MarkProcessing ───────────────────────────────────────────────────────────

func (s *queueService) MarkProcessing(ctx context.Context, id uuid.UUID) (*dto.QueueEntryResponse, error) {
	return s.transition(ctx, id, "mark_processing", func(e *model.QueueEntry, now time.Time) string {
		e.Status = model.StatusProcessing
		e.ServedAt = &now
		return realtime.EventQueueProcessing
	})
}

// ── Complete ─────────────────────────────────────────────────────────────────

// Complete releases the counter: occupancy is derived from status, so moving
// to a terminal status frees the counter for the next call.
func (s *queueService) Complete(ctx context.Context, id uuid.UUID) (*dto.QueueEntryResponse, error) {
	return s.transition(ctx, id, "complete", func(e *model.QueueEntry, now time.Time) string {
		e.Status = model.StatusCompleted
		e.CompletedAt = &now
		return realtime.EventQueueCompleted
	})
}

// ── Cancel ───────────────────────────────────────────────────────────────────

func (s *queueService) Cancel(ctx context.Context, id uuid.UUID, reason string) (*dto.QueueEntryResponse, error) {
	return s.transition(ctx, id, "cancel", func(e *model.QueueEntry, now time.Time) string {
		e.Status = model.StatusCancelled
		e.CancelReason = &reason
		return realtime.EventQueueCancelled
	})
}

// transition applies one state-machine step under the entry's row lock.
// mutate runs only after the transition table check passes.
func (s *queueService) transition(
	ctx context.Context,
	id uuid.UUID,
	action string,
	mutate func(e *model.QueueEntry, now time.Time) string,
) (*dto.QueueEntryResponse, error) {
	var entry *model.QueueEntry
	var eventType string
	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		e, err := s.repo.LockByID(ctx, tx, id)
		if err != nil {
			return translateRepoErr(err)
		}
		if !validTransition(action, e.Status) {
			return ErrInvalidTransition
		}
		eventType = mutate(e, time.Now())
		e.Revision++
		if err := s.repo.Save(ctx, tx, e); err != nil {
			return err
		}
		entry = e
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	s.publish(realtime.NewQueueEvent(eventType, entry))
	return entryToResponse(entry), nil
}

// ── Reorder ──────────────────────────────────────────────────────────────────

// Reorder is the staff manual override. The submitted list must be a
// permutation of the entire current waiting set; anything else is rejected
// without touching a single position.
func (s *queueService) Reorder(ctx context.Context, ids []uuid.UUID) (*dto.ActiveQueueResponse, error) {
	var reordered []model.QueueEntry
	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		waiting, err := s.repo.LockWaiting(ctx, tx, businessDate(s.loc))
		if err != nil {
			return translateRepoErr(err)
		}
		if len(waiting) != len(ids) {
			return ErrInvalidReorderSet
		}
		byID := make(map[uuid.UUID]*model.QueueEntry, len(waiting))
		for i := range waiting {
			byID[waiting[i].ID] = &waiting[i]
		}
		seen := make(map[uuid.UUID]bool, len(ids))
		for _, id := range ids {
			if byID[id] == nil || seen[id] {
				return ErrInvalidReorderSet
			}
			seen[id] = true
		}

		for pos, id := range ids {
			e := byID[id]
			p := pos
			e.ManualPosition = &p
			e.Revision++
			if err := s.repo.Save(ctx, tx, e); err != nil {
				return err
			}
			reordered = append(reordered, *e)
		}
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	order := make([]string, len(ids))
	for i, id := range ids {
		order[i] = id.String()
	}
	s.publish(realtime.NewReorderEvent(order))
	return s.ListActiveQueue(ctx)
}

// ── Queries ──────────────────────────────────────────────────────────────────

func (s *queueService) ListActiveQueue(ctx context.Context) (*dto.ActiveQueueResponse, error) {
	date := businessDate(s.loc)
	waiting, err := s.repo.ListWaiting(ctx, date)
	if err != nil {
		return nil, err
	}
	atCounter, err := s.repo.ListAtCounter(ctx, date)
	if err != nil {
		return nil, err
	}

	resp := &dto.ActiveQueueResponse{
		Waiting:   make([]dto.QueueEntryResponse, 0, len(waiting)),
		AtCounter: make([]dto.QueueEntryResponse, 0, len(atCounter)),
	}
	for i := range waiting {
		resp.Waiting = append(resp.Waiting, *entryToResponse(&waiting[i]))
	}
	for i := range atCounter {
		resp.AtCounter = append(resp.AtCounter, *entryToResponse(&atCounter[i]))
	}
	return resp, nil
}

func (s *queueService) Get(ctx context.Context, id uuid.UUID) (*dto.QueueEntryResponse, error) {
	e, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, translateRepoErr(err)
	}
	return entryToResponse(e), nil
}

// ── Helpers ──────────────────────────────────────────────────────────────────

// publish hands the committed delta to the realtime hub. Fire-and-forget —
// mutation success is never conditioned on observers.
func (s *queueService) publish(evt realtime.Event) {
	if s.publisher != nil {
		s.publisher.Publish(evt)
	}
}

// notify emits a notification intent; delivery is an external collaborator's
// job and best-effort from the core's perspective.
func (s *queueService) notify(ctx context.Context, e *model.QueueEntry, templateKey string, params map[string]string) {
	if s.dispatcher == nil || e.Phone == nil {
		return
	}
	_ = s.dispatcher.EnqueueNotification(ctx, worker.NotificationIntent{
		CustomerID:  e.ID.String(),
		Phone:       *e.Phone,
		TemplateKey: templateKey,
		Params:      params,
	})
}

func entryToResponse(e *model.QueueEntry) *dto.QueueEntryResponse {
	resp := &dto.QueueEntryResponse{
		ID:             e.ID.String(),
		TokenNumber:    e.TokenNumber,
		BusinessDate:   e.BusinessDate.Format("2006-01-02"),
		CustomerName:   e.CustomerName,
		Phone:          e.Phone,
		SeniorCitizen:  e.SeniorCitizen,
		Pregnant:       e.Pregnant,
		PWD:            e.PWD,
		PriorityScore:  e.PriorityScore,
		ManualPosition: e.ManualPosition,
		Status:         e.Status,
		CounterID:      e.CounterID,
		CancelReason:   e.CancelReason,
		Revision:       e.Revision,
		CreatedAt:      e.CreatedAt.UTC().Format(time.RFC3339),
	}
	if e.CalledAt != nil {
		t := e.CalledAt.UTC().Format(time.RFC3339)
		resp.CalledAt = &t
	}
	if e.ServedAt != nil {
		t := e.ServedAt.UTC().Format(time.RFC3339)
		resp.ServedAt = &t
	}
	if e.CompletedAt != nil {
		t := e.CompletedAt.UTC().Format(time.RFC3339)
		resp.CompletedAt = &t
	}
	return resp
}
