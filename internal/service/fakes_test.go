package service

import (
	"context"
	"sort"
	"time"

	"queuedesk/internal/model"
	"queuedesk/internal/realtime"
	"queuedesk/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// The fakes reproduce the repository contracts the services depend on,
// including the two SQLSTATEs the error translation branches on.

func lockErr() error   { return &pgconn.PgError{Code: "55P03"} }
func uniqueErr() error { return &pgconn.PgError{Code: "23505"} }

func dateOf(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ── Queue repository fake ────────────────────────────────────────────────────

type fakeQueueRepo struct {
	entries  map[uuid.UUID]*model.QueueEntry
	token    int
	lockHeld map[uuid.UUID]bool // row locks "held" by another session
	statsErr error
	saveErr  error
	seq      int // drives distinct CreatedAt per insert
}

func newFakeQueueRepo() *fakeQueueRepo {
	return &fakeQueueRepo{
		entries:  make(map[uuid.UUID]*model.QueueEntry),
		lockHeld: make(map[uuid.UUID]bool),
	}
}

func (f *fakeQueueRepo) DB() *gorm.DB { return nil }

func (f *fakeQueueRepo) Create(_ context.Context, _ *gorm.DB, e *model.QueueEntry) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.CreatedAt.IsZero() {
		f.seq++
		e.CreatedAt = time.Date(2026, 8, 25, 8, 0, f.seq, 0, time.UTC)
	}
	cp := *e
	f.entries[e.ID] = &cp
	return nil
}

func (f *fakeQueueRepo) FindByID(_ context.Context, id uuid.UUID) (*model.QueueEntry, error) {
	e, ok := f.entries[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *e
	return &cp, nil
}

func (f *fakeQueueRepo) LockByID(ctx context.Context, _ *gorm.DB, id uuid.UUID) (*model.QueueEntry, error) {
	if f.lockHeld[id] {
		return nil, lockErr()
	}
	return f.FindByID(ctx, id)
}

func (f *fakeQueueRepo) LockActiveByCounter(_ context.Context, _ *gorm.DB, counterID int, date time.Time) (*model.QueueEntry, error) {
	for _, e := range f.entries {
		if e.Active() && e.CounterID != nil && *e.CounterID == counterID && e.BusinessDate.Equal(date) {
			cp := *e
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeQueueRepo) LockWaiting(_ context.Context, _ *gorm.DB, date time.Time) ([]model.QueueEntry, error) {
	var out []model.QueueEntry
	for _, e := range f.entries {
		if e.Status == model.StatusWaiting && e.BusinessDate.Equal(date) {
			out = append(out, *e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TokenNumber < out[j].TokenNumber })
	return out, nil
}

func (f *fakeQueueRepo) Save(_ context.Context, _ *gorm.DB, e *model.QueueEntry) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	cp := *e
	f.entries[e.ID] = &cp
	return nil
}

func (f *fakeQueueRepo) ListWaiting(_ context.Context, date time.Time) ([]model.QueueEntry, error) {
	var out []model.QueueEntry
	for _, e := range f.entries {
		if e.Status == model.StatusWaiting && e.BusinessDate.Equal(date) {
			out = append(out, *e)
		}
	}
	// Display order: manual positions first ascending, then priority score
	// descending, then FIFO.
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		switch {
		case a.ManualPosition != nil && b.ManualPosition != nil:
			return *a.ManualPosition < *b.ManualPosition
		case a.ManualPosition != nil:
			return true
		case b.ManualPosition != nil:
			return false
		case a.PriorityScore != b.PriorityScore:
			return a.PriorityScore > b.PriorityScore
		default:
			return a.CreatedAt.Before(b.CreatedAt)
		}
	})
	return out, nil
}

func (f *fakeQueueRepo) ListAtCounter(_ context.Context, date time.Time) ([]model.QueueEntry, error) {
	var out []model.QueueEntry
	for _, e := range f.entries {
		if e.Active() && e.BusinessDate.Equal(date) {
			out = append(out, *e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return derefInt(out[i].CounterID) < derefInt(out[j].CounterID)
	})
	return out, nil
}

func (f *fakeQueueRepo) LockOpen(_ context.Context, _ *gorm.DB, date time.Time) ([]model.QueueEntry, error) {
	var out []model.QueueEntry
	for _, e := range f.entries {
		if !e.Terminal() && e.BusinessDate.Equal(date) {
			out = append(out, *e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TokenNumber < out[j].TokenNumber })
	return out, nil
}

func (f *fakeQueueRepo) NextTokenNumber(_ context.Context, _ *gorm.DB) (int, error) {
	f.token++
	return f.token, nil
}

func (f *fakeQueueRepo) ResetTokenCounter(_ context.Context, _ *gorm.DB) error {
	f.token = 0
	return nil
}

func (f *fakeQueueRepo) StatsForDate(_ context.Context, _ *gorm.DB, date time.Time) (*repository.DayStats, error) {
	if f.statsErr != nil {
		return nil, f.statsErr
	}
	stats := &repository.DayStats{}
	var totalWait, maxWait float64
	served := 0
	for _, e := range f.entries {
		if !e.BusinessDate.Equal(date) {
			continue
		}
		stats.TotalRegistered++
		switch e.Status {
		case model.StatusCompleted:
			stats.TotalServed++
			if e.PriorityScore > 0 {
				stats.PriorityServed++
			}
		case model.StatusCancelled:
			stats.TotalCancelled++
		}
		if e.CalledAt != nil {
			w := e.CalledAt.Sub(e.CreatedAt).Seconds()
			totalWait += w
			if w > maxWait {
				maxWait = w
			}
			served++
		}
	}
	if served > 0 {
		stats.AvgWaitSeconds = totalWait / float64(served)
	}
	stats.MaxWaitSeconds = maxWait
	return stats, nil
}

func derefInt(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}

// ── Transaction repository fake ──────────────────────────────────────────────

type fakeTxnRepo struct {
	txns     map[uuid.UUID]*model.Transaction
	ledger   []model.Settlement
	lockHeld map[uuid.UUID]bool
}

func newFakeTxnRepo() *fakeTxnRepo {
	return &fakeTxnRepo{
		txns:     make(map[uuid.UUID]*model.Transaction),
		lockHeld: make(map[uuid.UUID]bool),
	}
}

func (f *fakeTxnRepo) DB() *gorm.DB { return nil }

func (f *fakeTxnRepo) Create(_ context.Context, _ *gorm.DB, t *model.Transaction) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	cp := *t
	f.txns[t.ID] = &cp
	return nil
}

func (f *fakeTxnRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Transaction, error) {
	t, ok := f.txns[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *t
	cp.Settlements, _ = f.ListSettlements(ctx, id)
	return &cp, nil
}

func (f *fakeTxnRepo) LockByID(_ context.Context, _ *gorm.DB, id uuid.UUID) (*model.Transaction, error) {
	if f.lockHeld[id] {
		return nil, lockErr()
	}
	t, ok := f.txns[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *t
	return &cp, nil
}

func (f *fakeTxnRepo) SumSettlements(_ context.Context, _ *gorm.DB, transactionID uuid.UUID) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, s := range f.ledger {
		if s.TransactionID == transactionID {
			sum = sum.Add(s.Amount)
		}
	}
	return sum, nil
}

func (f *fakeTxnRepo) CreateSettlement(_ context.Context, _ *gorm.DB, s *model.Settlement) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	f.ledger = append(f.ledger, *s)
	return nil
}

func (f *fakeTxnRepo) Save(_ context.Context, _ *gorm.DB, t *model.Transaction) error {
	cp := *t
	cp.Settlements = nil
	f.txns[t.ID] = &cp
	return nil
}

func (f *fakeTxnRepo) ListOpen(_ context.Context) ([]model.Transaction, error) {
	var out []model.Transaction
	for _, t := range f.txns {
		if t.PaymentStatus != model.PaymentPaid {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeTxnRepo) ListSettlements(_ context.Context, transactionID uuid.UUID) ([]model.Settlement, error) {
	var out []model.Settlement
	// newest first — the ledger is append-only, so reverse insertion order
	for i := len(f.ledger) - 1; i >= 0; i-- {
		if f.ledger[i].TransactionID == transactionID {
			out = append(out, f.ledger[i])
		}
	}
	return out, nil
}

// ── Archive repository fake ──────────────────────────────────────────────────

type fakeArchiveRepo struct {
	archives map[string]*model.DailyArchive
	logs     map[string]*model.ResetLog
}

func newFakeArchiveRepo() *fakeArchiveRepo {
	return &fakeArchiveRepo{
		archives: make(map[string]*model.DailyArchive),
		logs:     make(map[string]*model.ResetLog),
	}
}

func dayKey(t time.Time) string { return t.Format("2006-01-02") }

func (f *fakeArchiveRepo) DB() *gorm.DB { return nil }

func (f *fakeArchiveRepo) CreateArchive(_ context.Context, _ *gorm.DB, a *model.DailyArchive) error {
	key := dayKey(a.ArchiveDate)
	if _, exists := f.archives[key]; exists {
		return uniqueErr()
	}
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	cp := *a
	f.archives[key] = &cp
	return nil
}

func (f *fakeArchiveRepo) FindArchiveByDate(_ context.Context, date time.Time) (*model.DailyArchive, error) {
	a, ok := f.archives[dayKey(date)]
	if !ok {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

func (f *fakeArchiveRepo) CreateResetLog(_ context.Context, l *model.ResetLog) error {
	key := dayKey(l.RunDate)
	if _, exists := f.logs[key]; exists {
		return uniqueErr()
	}
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	cp := *l
	f.logs[key] = &cp
	return nil
}

func (f *fakeArchiveRepo) FindResetLog(_ context.Context, date time.Time) (*model.ResetLog, error) {
	l, ok := f.logs[dayKey(date)]
	if !ok {
		return nil, nil
	}
	cp := *l
	return &cp, nil
}

func (f *fakeArchiveRepo) UpdateResetLog(_ context.Context, l *model.ResetLog) error {
	cp := *l
	f.logs[dayKey(l.RunDate)] = &cp
	return nil
}

func (f *fakeArchiveRepo) RetakeFailedResetLog(_ context.Context, l *model.ResetLog) (bool, error) {
	existing, ok := f.logs[dayKey(l.RunDate)]
	if !ok || existing.Status != model.ResetFailed {
		return false, nil
	}
	existing.Status = model.ResetRunning
	existing.StartedAt = l.StartedAt
	existing.TriggeredBy = l.TriggeredBy
	existing.Error = nil
	return true, nil
}

func (f *fakeArchiveRepo) ListResetLogs(_ context.Context, limit int) ([]model.ResetLog, error) {
	var out []model.ResetLog
	for _, l := range f.logs {
		out = append(out, *l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RunDate.After(out[j].RunDate) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ── Publisher fake ───────────────────────────────────────────────────────────

type fakePublisher struct {
	events []realtime.Event
}

func (p *fakePublisher) Publish(evt realtime.Event) {
	p.events = append(p.events, evt)
}

func (p *fakePublisher) byType(t string) []realtime.Event {
	var out []realtime.Event
	for _, e := range p.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}
