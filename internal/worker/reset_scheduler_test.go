package worker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClosingDate(t *testing.T) {
	manila, err := time.LoadLocation("Asia/Manila")
	require.NoError(t, err)

	tests := []struct {
		name    string
		firedAt time.Time
		want    time.Time
	}{
		{
			name:    "midnight fire closes yesterday",
			firedAt: time.Date(2026, 3, 15, 0, 0, 0, 0, manila),
			want:    time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC),
		},
		{
			name:    "23:59 fire closes the same day",
			firedAt: time.Date(2026, 3, 15, 23, 59, 0, 0, manila),
			want:    time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
		},
		{
			name:    "one minute past midnight closes the same day",
			firedAt: time.Date(2026, 3, 15, 0, 1, 0, 0, manila),
			want:    time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
		},
		{
			name:    "first of month fire closes last day of previous month",
			firedAt: time.Date(2026, 3, 1, 0, 0, 0, 0, manila),
			want:    time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClosingDate(tt.firedAt)
			assert.True(t, got.Equal(tt.want), "got %s, want %s", got, tt.want)
			assert.Equal(t, time.UTC, got.Location())
		})
	}
}

func TestNextFireTime(t *testing.T) {
	manila, err := time.LoadLocation("Asia/Manila")
	require.NoError(t, err)

	tests := []struct {
		name   string
		now    time.Time
		hour   int
		minute int
		want   time.Time
	}{
		{
			name:   "fire time still ahead today",
			now:    time.Date(2026, 3, 15, 10, 0, 0, 0, manila),
			hour:   23, minute: 59,
			want: time.Date(2026, 3, 15, 23, 59, 0, 0, manila),
		},
		{
			name:   "fire time already passed rolls to tomorrow",
			now:    time.Date(2026, 3, 15, 10, 0, 0, 0, manila),
			hour:   0, minute: 0,
			want: time.Date(2026, 3, 16, 0, 0, 0, 0, manila),
		},
		{
			name:   "exactly at fire time rolls to tomorrow",
			now:    time.Date(2026, 3, 15, 0, 0, 0, 0, manila),
			hour:   0, minute: 0,
			want: time.Date(2026, 3, 16, 0, 0, 0, 0, manila),
		},
		{
			name:   "month boundary rollover",
			now:    time.Date(2026, 3, 31, 12, 0, 0, 0, manila),
			hour:   0, minute: 0,
			want: time.Date(2026, 4, 1, 0, 0, 0, 0, manila),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := nextFireTime(tt.now, tt.hour, tt.minute)
			assert.True(t, got.Equal(tt.want), "got %s, want %s", got, tt.want)
			assert.True(t, got.After(tt.now))
		})
	}
}
