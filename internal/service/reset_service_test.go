package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"queuedesk/internal/model"
	"queuedesk/internal/realtime"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newResetFixture(policy string) (*fakeArchiveRepo, *fakeQueueRepo, *fakePublisher, ResetService) {
	archiveRepo := newFakeArchiveRepo()
	queueRepo := newFakeQueueRepo()
	pub := &fakePublisher{}
	svc := NewResetService(archiveRepo, queueRepo, pub, policy)
	return archiveRepo, queueRepo, pub, svc
}

// seedDay populates one business day: two completed (one priority), one
// cancelled, and two still open at closing time.
func seedDay(t *testing.T, repo *fakeQueueRepo, date time.Time) {
	t.Helper()
	ctx := context.Background()
	calledAt := date.Add(9 * time.Hour)

	entries := []*model.QueueEntry{
		{TokenNumber: 1, Status: model.StatusCompleted, PriorityScore: 10, CalledAt: &calledAt},
		{TokenNumber: 2, Status: model.StatusCompleted},
		{TokenNumber: 3, Status: model.StatusCancelled},
		{TokenNumber: 4, Status: model.StatusWaiting},
		{TokenNumber: 5, Status: model.StatusServing},
	}
	for _, e := range entries {
		e.BusinessDate = date
		e.CustomerName = "Customer"
		require.NoError(t, repo.Create(ctx, nil, e))
	}
	repo.token = 5
}

func TestResetClosesOpenEntriesAndArchives(t *testing.T) {
	archiveRepo, queueRepo, pub, svc := newResetFixture(PolicyCancel)
	date := dateOf(2026, 8, 25)
	seedDay(t, queueRepo, date)

	logResp, err := svc.Run(context.Background(), date, "timer")
	require.NoError(t, err)
	assert.Equal(t, model.ResetSucceeded, logResp.Status)
	assert.Equal(t, "timer", logResp.TriggeredBy)
	assert.Equal(t, 2, logResp.EntriesClosed)
	require.NotNil(t, logResp.FinishedAt)

	// open entries are closed with the reset disposition and an audit reason
	open, err := queueRepo.LockOpen(context.Background(), nil, date)
	require.NoError(t, err)
	assert.Empty(t, open)
	for _, e := range queueRepo.entries {
		if e.Disposition == model.DispositionDayReset {
			assert.Equal(t, model.StatusCancelled, e.Status)
			require.NotNil(t, e.CancelReason)
		}
	}

	archive, err := archiveRepo.FindArchiveByDate(context.Background(), date)
	require.NoError(t, err)
	require.NotNil(t, archive)
	assert.Equal(t, 5, archive.TotalRegistered)
	assert.Equal(t, 2, archive.TotalServed)
	assert.Equal(t, 3, archive.TotalCancelled) // 1 cancelled earlier + 2 closed now
	assert.Equal(t, 1, archive.PriorityServed)
	assert.Equal(t, 0, archive.CarriedForward)

	// next day starts from token 1
	assert.Equal(t, 0, queueRepo.token)
	assert.Len(t, pub.byType(realtime.EventQueueReset), 1)
}

func TestResetSecondRunRejected(t *testing.T) {
	_, queueRepo, _, svc := newResetFixture(PolicyCancel)
	date := dateOf(2026, 8, 25)
	seedDay(t, queueRepo, date)
	ctx := context.Background()

	_, err := svc.Run(ctx, date, "timer")
	require.NoError(t, err)

	_, err = svc.Run(ctx, date, "manual")
	assert.ErrorIs(t, err, ErrResetAlreadyRan)
}

func TestResetFailedRunIsRetryable(t *testing.T) {
	archiveRepo, queueRepo, _, svc := newResetFixture(PolicyCancel)
	date := dateOf(2026, 8, 25)
	seedDay(t, queueRepo, date)
	ctx := context.Background()

	queueRepo.statsErr = errors.New("connection reset by peer")
	_, err := svc.Run(ctx, date, "timer")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrResetFailed)

	stored, ferr := archiveRepo.FindResetLog(ctx, date)
	require.NoError(t, ferr)
	require.NotNil(t, stored)
	assert.Equal(t, model.ResetFailed, stored.Status)
	require.NotNil(t, stored.Error)

	// the failed lock row may be retaken by a manual re-run
	queueRepo.statsErr = nil
	logResp, err := svc.Run(ctx, date, "manual")
	require.NoError(t, err)
	assert.Equal(t, model.ResetSucceeded, logResp.Status)
	assert.Equal(t, "manual", logResp.TriggeredBy)
}

func TestResetCarryForwardPolicy(t *testing.T) {
	archiveRepo, queueRepo, _, svc := newResetFixture(PolicyCarryForward)
	date := dateOf(2026, 8, 25)
	seedDay(t, queueRepo, date)

	logResp, err := svc.Run(context.Background(), date, "timer")
	require.NoError(t, err)
	assert.Equal(t, 2, logResp.EntriesClosed)

	carried := 0
	for _, e := range queueRepo.entries {
		if e.Disposition == model.DispositionCarriedForward {
			carried++
			assert.Equal(t, model.StatusCancelled, e.Status)
		}
	}
	assert.Equal(t, 2, carried)

	archive, err := archiveRepo.FindArchiveByDate(context.Background(), date)
	require.NoError(t, err)
	require.NotNil(t, archive)
	assert.Equal(t, 2, archive.CarriedForward)
}

func TestGetDailyArchiveAbsentIsNotAnError(t *testing.T) {
	_, _, _, svc := newResetFixture(PolicyCancel)

	resp, err := svc.GetDailyArchive(context.Background(), dateOf(2026, 8, 24))
	require.NoError(t, err)
	assert.Nil(t, resp)
}

func TestListResetLogsNewestFirst(t *testing.T) {
	_, queueRepo, _, svc := newResetFixture(PolicyCancel)
	ctx := context.Background()

	for day := 23; day <= 25; day++ {
		date := dateOf(2026, 8, day)
		seedDay(t, queueRepo, date)
		_, err := svc.Run(ctx, date, "timer")
		require.NoError(t, err)
	}

	logs, err := svc.ListResetLogs(ctx, 2)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, "2026-08-25", logs[0].RunDate)
	assert.Equal(t, "2026-08-24", logs[1].RunDate)
}
