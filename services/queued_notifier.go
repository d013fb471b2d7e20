package services

import (
	"context"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/restaurant-ordering/utils"
)

var ErrNotifierQueueFull = errors.New("notifier queue full")

// QueuedNotifier hands events to a wrapped notifier on its own goroutine so
// a slow channel such as SMTP does not hold up the change monitor.
type QueuedNotifier struct {
	inner  Notifier
	events chan OrderEvent
	once   sync.Once
	done   chan struct{}
}

func NewQueuedNotifier(inner Notifier, size int) *QueuedNotifier {
	q := &QueuedNotifier{
		inner:  inner,
		events: make(chan OrderEvent, size),
		done:   make(chan struct{}),
	}
	go q.run()
	return q
}

func (q *QueuedNotifier) Name() string { return q.inner.Name() }

// Notify queues the event and returns at once. A full queue drops the event.
func (q *QueuedNotifier) Notify(_ context.Context, event OrderEvent) error {
	select {
	case q.events <- event:
		return nil
	default:
		return ErrNotifierQueueFull
	}
}

func (q *QueuedNotifier) run() {
	defer close(q.done)
	for event := range q.events {
		if err := q.inner.Notify(context.Background(), event); err != nil {
			NotifierFailures.WithLabelValues(q.inner.Name()).Inc()
			utils.ErrorLogger.WithFields(logrus.Fields{
				"notifier": q.inner.Name(),
				"order_id": event.Order.ID,
			}).Errorf("notify failed: %v", err)
		}
	}
}

// Close stops accepting events and waits for the queued ones to be delivered.
// Notify must not be called after Close.
func (q *QueuedNotifier) Close() {
	q.once.Do(func() { close(q.events) })
	<-q.done
}
