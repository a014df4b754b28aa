package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTaskKind_Valid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		kind TaskKind
		want bool
	}{
		{TaskPriceUpload, true},
		{TaskReport, true},
		{"", false},
		{"PRICE_UPLOAD", false},
		{"card_upload", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.kind.Valid())
		})
	}
}

func TestTrackedTask_Pending(t *testing.T) {
	t.Parallel()

	task := &TrackedTask{}
	assert.True(t, task.Pending())

	for _, o := range []TaskOutcome{OutcomeSucceeded, OutcomeFailed, OutcomeTimedOut} {
		task.Outcome = o
		assert.False(t, task.Pending(), o)
	}
}

func TestTrackedTask_Expired(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		deadline time.Time
		want     bool
	}{
		{name: "no deadline", want: false},
		{name: "in the future", deadline: now.Add(time.Second), want: false},
		{name: "exactly now", deadline: now, want: true},
		{name: "in the past", deadline: now.Add(-time.Minute), want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			task := &TrackedTask{Deadline: tt.deadline}
			assert.Equal(t, tt.want, task.Expired(now))
		})
	}
}

func TestBalanceSnapshot_Blocked(t *testing.T) {
	t.Parallel()

	b := &BalanceSnapshot{Current: 1500.5, ForWithdraw: 1200}
	assert.InDelta(t, 300.5, b.Blocked(), 0.0001)
}
