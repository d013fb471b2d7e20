package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/yeremiapane/restaurant-ordering/models"
)

func TestStatusTrackerFiresOnNotifiableEdges(t *testing.T) {
	tracker := NewStatusTracker()

	assert.False(t, tracker.Observe(1, models.OrderPending), "first observation only seeds")
	assert.True(t, tracker.Observe(1, models.OrderPreparing))
	assert.False(t, tracker.Observe(1, models.OrderPreparing), "repeat of the same status")
	assert.True(t, tracker.Observe(1, models.OrderReady))
	assert.True(t, tracker.Observe(1, models.OrderCompleted))
}

func TestStatusTrackerIgnoresOtherStatuses(t *testing.T) {
	tracker := NewStatusTracker()
	tracker.Seed(1, models.OrderAwaitingApproval)

	assert.False(t, tracker.Observe(1, models.OrderPending))
	assert.False(t, tracker.Observe(1, models.OrderCancelled))
	assert.True(t, tracker.Observe(1, models.OrderRejected))
}

func TestStatusTrackerAllowListAcrossTransitions(t *testing.T) {
	for _, from := range models.OrderStatuses {
		for _, to := range models.OrderStatuses {
			tracker := NewStatusTracker()
			tracker.Seed(5, from)
			want := from != to && NotifiableStatuses[to]
			assert.Equal(t, want, tracker.Observe(5, to), "%s -> %s", from, to)
		}
	}
}

func TestStatusTrackerFirstObservationOfNotifiableStatus(t *testing.T) {
	tracker := NewStatusTracker()
	assert.False(t, tracker.Observe(9, models.OrderReady))
	assert.Equal(t, 1, tracker.Len())

	tracker.Forget(9)
	assert.Zero(t, tracker.Len())
	assert.False(t, tracker.Observe(9, models.OrderCompleted))
}

func TestStatusTrackerKeepsOrdersApart(t *testing.T) {
	tracker := NewStatusTracker()
	tracker.Seed(1, models.OrderPending)
	tracker.Seed(2, models.OrderPreparing)

	assert.True(t, tracker.Observe(1, models.OrderPreparing))
	assert.False(t, tracker.Observe(2, models.OrderPreparing))
}

func TestStatusMessage(t *testing.T) {
	title, msg := StatusMessage(&models.Order{Status: models.OrderReady})
	assert.Equal(t, "Order ready", title)
	assert.Contains(t, msg, "ready")

	_, msg = StatusMessage(&models.Order{Status: models.OrderCancelled})
	assert.Contains(t, msg, models.OrderCancelled)
}
