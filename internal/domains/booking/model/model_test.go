package model_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"greenstay/internal/domains/booking/model"
)

func TestCanTransition(t *testing.T) {
	allowed := []struct{ from, to string }{
		{model.StatusPending, model.StatusPendingPayment},
		{model.StatusPending, model.StatusConfirmed},
		{model.StatusPending, model.StatusCancelled},
		{model.StatusPendingPayment, model.StatusPending},
		{model.StatusPendingPayment, model.StatusConfirmed},
		{model.StatusPendingPayment, model.StatusCancelled},
		{model.StatusConfirmed, model.StatusPaid},
		{model.StatusConfirmed, model.StatusCancelled},
		{model.StatusPaid, model.StatusCompleted},
		{model.StatusPaid, model.StatusCancelled},
	}

	for _, tt := range allowed {
		assert.True(t, model.CanTransition(tt.from, tt.to), "%s -> %s should be allowed", tt.from, tt.to)
	}

	denied := []struct{ from, to string }{
		{model.StatusPending, model.StatusPaid},
		{model.StatusPending, model.StatusCompleted},
		{model.StatusPendingPayment, model.StatusPaid},
		{model.StatusConfirmed, model.StatusCompleted},
		{model.StatusCompleted, model.StatusCancelled},
		{model.StatusCancelled, model.StatusConfirmed},
		{model.StatusCancelled, model.StatusPending},
		{model.StatusPaid, model.StatusConfirmed},
	}

	for _, tt := range denied {
		assert.False(t, model.CanTransition(tt.from, tt.to), "%s -> %s should be denied", tt.from, tt.to)
	}
}

func TestTerminal(t *testing.T) {
	assert.True(t, model.Terminal(model.StatusCompleted))
	assert.True(t, model.Terminal(model.StatusCancelled))
	assert.False(t, model.Terminal(model.StatusPending))
	assert.False(t, model.Terminal(model.StatusPaid))
}

func TestDateRangeOverlaps(t *testing.T) {
	day := func(d int) time.Time {
		return time.Date(2026, 9, d, 0, 0, 0, 0, time.UTC)
	}

	base := model.DateRange{Start: day(10), End: day(15)}

	tests := []struct {
		name  string
		other model.DateRange
		want  bool
	}{
		{"identical", model.DateRange{Start: day(10), End: day(15)}, true},
		{"contained", model.DateRange{Start: day(11), End: day(13)}, true},
		{"overlaps start", model.DateRange{Start: day(8), End: day(11)}, true},
		{"overlaps end", model.DateRange{Start: day(14), End: day(20)}, true},
		{"back to back before", model.DateRange{Start: day(5), End: day(10)}, false},
		{"back to back after", model.DateRange{Start: day(15), End: day(20)}, false},
		{"disjoint", model.DateRange{Start: day(20), End: day(25)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, base.Overlaps(tt.other))
			assert.Equal(t, tt.want, tt.other.Overlaps(base))
		})
	}
}

func TestMergeRanges(t *testing.T) {
	day := func(d int) time.Time {
		return time.Date(2026, 9, d, 0, 0, 0, 0, time.UTC)
	}

	ranges := []model.DateRange{
		{Start: day(20), End: day(25)},
		{Start: day(1), End: day(5)},
		{Start: day(4), End: day(8)},
		{Start: day(8), End: day(10)},
	}

	merged := model.MergeRanges(ranges)

	assert.Equal(t, []model.DateRange{
		{Start: day(1), End: day(10)},
		{Start: day(20), End: day(25)},
	}, merged)

	assert.Nil(t, model.MergeRanges(nil))
}

func TestHoldExpired(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Minute)
	future := now.Add(30 * time.Minute)

	expired := model.Booking{Status: model.StatusPendingPayment, ExpiresAt: &past}
	assert.True(t, expired.HoldExpired(now))

	live := model.Booking{Status: model.StatusPendingPayment, ExpiresAt: &future}
	assert.False(t, live.HoldExpired(now))

	confirmed := model.Booking{Status: model.StatusConfirmed, ExpiresAt: &past}
	assert.False(t, confirmed.HoldExpired(now))

	noHold := model.Booking{Status: model.StatusPendingPayment}
	assert.False(t, noHold.HoldExpired(now))
}
