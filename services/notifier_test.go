package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/restaurant-ordering/models"
	"gopkg.in/gomail.v2"
)

type recordingNotifier struct {
	name   string
	err    error
	events []OrderEvent
}

func (r *recordingNotifier) Name() string { return r.name }

func (r *recordingNotifier) Notify(_ context.Context, e OrderEvent) error {
	r.events = append(r.events, e)
	return r.err
}

func TestDispatcherContinuesAfterFailure(t *testing.T) {
	failing := &recordingNotifier{name: "broken", err: errors.New("smtp down")}
	ok := &recordingNotifier{name: "ok"}
	d := NewDispatcher(failing)
	d.Add(ok)

	d.Dispatch(context.Background(), models.Order{ID: 4, Status: models.OrderReady})

	require.Len(t, failing.events, 1)
	require.Len(t, ok.events, 1)
	assert.Equal(t, "Order ready", ok.events[0].Title)
	assert.Equal(t, uint(4), ok.events[0].Order.ID)
}

func TestDBNotifierStoresNotification(t *testing.T) {
	db := setupTestDB(t)
	uid := uint(12)
	n := &DBNotifier{DB: db}

	err := n.Notify(context.Background(), OrderEvent{
		Order: models.Order{ID: 3, RestaurantID: 1, OrderNumber: 8, UserID: &uid, Status: models.OrderReady},
		Title: "Order ready", Message: "Your order is ready for pickup.",
	})
	require.NoError(t, err)

	var notif models.Notification
	require.NoError(t, db.First(&notif).Error)
	assert.Equal(t, "Order #8: Your order is ready for pickup.", notif.Message)
	require.NotNil(t, notif.UserID)
	assert.Equal(t, uid, *notif.UserID)
	assert.False(t, notif.Read)
}

type fakeMailer struct {
	sent []*gomail.Message
}

func (f *fakeMailer) DialAndSend(m ...*gomail.Message) error {
	f.sent = append(f.sent, m...)
	return nil
}

func TestEmailNotifierMailsRegisteredClients(t *testing.T) {
	db := setupTestDB(t)
	withMail := models.User{Username: "ana", Name: "Ana", Email: "ana@example.com", Password: "x", Role: models.RoleClient}
	noMail := models.User{Username: "ben", Name: "Ben", Password: "x", Role: models.RoleClient}
	require.NoError(t, db.Create(&withMail).Error)
	require.NoError(t, db.Create(&noMail).Error)

	mailer := &fakeMailer{}
	n := &EmailNotifier{DB: db, Sender: mailer, From: "orders@example.com"}
	ctx := context.Background()

	require.NoError(t, n.Notify(ctx, OrderEvent{Order: models.Order{OrderNumber: 1, UserID: &withMail.ID}, Title: "Order ready"}))
	require.NoError(t, n.Notify(ctx, OrderEvent{Order: models.Order{OrderNumber: 2, UserID: &noMail.ID}, Title: "Order ready"}))
	require.NoError(t, n.Notify(ctx, OrderEvent{Order: models.Order{OrderNumber: 3}, Title: "Order ready"}))

	require.Len(t, mailer.sent, 1)
	assert.Equal(t, []string{"ana@example.com"}, mailer.sent[0].GetHeader("To"))
	assert.Equal(t, []string{"Order ready (#1)"}, mailer.sent[0].GetHeader("Subject"))
}

type fakePublisher struct {
	exchange string
	key      string
	msg      amqp.Publishing
}

func (f *fakePublisher) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	f.exchange, f.key, f.msg = exchange, key, msg
	return nil
}

func TestAMQPNotifierRoutesByStatus(t *testing.T) {
	pub := &fakePublisher{}
	n := &AMQPNotifier{Channel: pub}

	err := n.Notify(context.Background(), OrderEvent{
		Order: models.Order{ID: 5, RestaurantID: 2, OrderNumber: 11, Status: models.OrderCompleted},
		Title: "Order completed",
	})
	require.NoError(t, err)

	assert.Equal(t, OrdersExchange, pub.exchange)
	assert.Equal(t, "order.completed", pub.key)
	assert.Equal(t, amqp.Persistent, pub.msg.DeliveryMode)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(pub.msg.Body, &body))
	assert.Equal(t, float64(5), body["order_id"])
	assert.Equal(t, "completed", body["status"])
}

// blockingNotifier holds every delivery until release is closed.
type blockingNotifier struct {
	entered   chan uint
	release   chan struct{}
	mu        sync.Mutex
	delivered []uint
}

func (b *blockingNotifier) Name() string { return "slow" }

func (b *blockingNotifier) Notify(_ context.Context, e OrderEvent) error {
	b.entered <- e.Order.ID
	<-b.release
	b.mu.Lock()
	defer b.mu.Unlock()
	b.delivered = append(b.delivered, e.Order.ID)
	return nil
}

func TestQueuedNotifierDoesNotBlockDispatch(t *testing.T) {
	slow := &blockingNotifier{entered: make(chan uint, 4), release: make(chan struct{})}
	queued := NewQueuedNotifier(slow, 1)
	fast := &recordingNotifier{name: "fast"}
	d := NewDispatcher(queued, fast)
	ctx := context.Background()

	d.Dispatch(ctx, models.Order{ID: 1, Status: models.OrderReady})
	select {
	case id := <-slow.entered:
		assert.Equal(t, uint(1), id)
	case <-time.After(2 * time.Second):
		t.Fatal("queued event never reached the notifier")
	}

	finished := make(chan struct{})
	go func() {
		d.Dispatch(ctx, models.Order{ID: 2, Status: models.OrderReady})
		close(finished)
	}()
	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("dispatch waited for the slow notifier")
	}
	require.Len(t, fast.events, 2)

	// one event in flight and one queued, so a third does not fit
	assert.ErrorIs(t, queued.Notify(ctx, OrderEvent{Order: models.Order{ID: 3}}), ErrNotifierQueueFull)

	close(slow.release)
	queued.Close()
	slow.mu.Lock()
	defer slow.mu.Unlock()
	assert.Equal(t, []uint{1, 2}, slow.delivered)
}
