package kds

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/restaurant-ordering/models"
)

type fakeConn struct {
	mu       sync.Mutex
	messages []Message
	fail     bool
	closed   bool
}

func (f *fakeConn) WriteMessage(_ int, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("broken pipe")
	}
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return err
	}
	f.messages = append(f.messages, msg)
	return nil
}

func (f *fakeConn) SetWriteDeadline(time.Time) error { return nil }

func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeConn) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// stalledConn blocks every write until release is closed.
type stalledConn struct {
	fakeConn
	release chan struct{}
}

func (s *stalledConn) WriteMessage(mt int, data []byte) error {
	<-s.release
	return s.fakeConn.WriteMessage(mt, data)
}

const wait, tick = 2 * time.Second, 5 * time.Millisecond

func eventsEqual(t *testing.T, want []string, c *fakeConn) {
	t.Helper()
	assert.Eventually(t, func() bool { return assert.ObjectsAreEqual(want, c.events()) }, wait, tick,
		"want %v, got %v", want, c.events())
}

func (f *fakeConn) events() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, m := range f.messages {
		out = append(out, m.Event)
	}
	return out
}

func uintPtr(v uint) *uint { return &v }

func TestOrderUpdateScoping(t *testing.T) {
	hub := NewHub()
	cook := &fakeConn{}
	owner := &fakeConn{}
	otherClient := &fakeConn{}
	guest := &fakeConn{}
	otherTenant := &fakeConn{}

	hub.Register(cook, Scope{RestaurantID: 1, Role: models.RoleCook, UserID: 10})
	hub.Register(owner, Scope{RestaurantID: 1, Role: models.RoleClient, UserID: 20})
	hub.Register(otherClient, Scope{RestaurantID: 1, Role: models.RoleClient, UserID: 21})
	hub.Register(guest, Scope{RestaurantID: 1, OrderID: 99})
	hub.Register(otherTenant, Scope{RestaurantID: 2, Role: models.RoleManager, UserID: 30})

	hub.BroadcastOrderUpdate(models.Order{ID: 7, RestaurantID: 1, UserID: uintPtr(20), Status: models.OrderReady})

	eventsEqual(t, []string{EventOrderUpdate}, cook)
	eventsEqual(t, []string{EventOrderUpdate}, owner)

	hub.BroadcastOrderUpdate(models.Order{ID: 99, RestaurantID: 1, Status: models.OrderPending})
	eventsEqual(t, []string{EventOrderUpdate}, guest)
	eventsEqual(t, []string{EventOrderUpdate, EventOrderUpdate}, cook)
	assert.Equal(t, []string{EventOrderUpdate}, owner.events())
	assert.Empty(t, otherClient.events())
	assert.Empty(t, otherTenant.events())
}

func TestBroadcastDropsBrokenConnections(t *testing.T) {
	hub := NewHub()
	broken := &fakeConn{fail: true}
	hub.Register(broken, Scope{RestaurantID: 1, Role: models.RoleCashier})
	require.Equal(t, 1, hub.Count(1))

	hub.BroadcastToRestaurant(1, Message{Event: EventMenuUpdate})

	assert.Eventually(t, func() bool { return hub.Count(1) == 0 && broken.isClosed() }, wait, tick)
}

func TestUnregisterClosesOnce(t *testing.T) {
	hub := NewHub()
	conn := &fakeConn{}
	c := hub.Register(conn, Scope{RestaurantID: 3, Role: models.RoleManager})

	hub.Unregister(c)
	hub.Unregister(c)

	assert.Equal(t, 0, hub.Count(3))
	assert.Eventually(t, conn.isClosed, wait, tick)
}

func TestSendTargetsOneClient(t *testing.T) {
	hub := NewHub()
	a, b := &fakeConn{}, &fakeConn{}
	ca := hub.Register(a, Scope{RestaurantID: 1, OrderID: 9})
	hub.Register(b, Scope{RestaurantID: 1, OrderID: 9})

	assert.NoError(t, hub.Send(ca, Message{Event: EventOrderUpdate, Data: map[string]int{"id": 9}}))
	eventsEqual(t, []string{EventOrderUpdate}, a)
	assert.Empty(t, b.events())

	hub.Unregister(ca)
	assert.NoError(t, hub.Send(ca, Message{Event: EventOrderUpdate}))
	assert.Eventually(t, a.isClosed, wait, tick)
	assert.Len(t, a.events(), 1)
}

func TestStalledClientDoesNotDelayOthers(t *testing.T) {
	hub := NewHub()
	stalled := &stalledConn{release: make(chan struct{})}
	healthy := &fakeConn{}
	hub.Register(stalled, Scope{RestaurantID: 1, Role: models.RoleManager})
	hub.Register(healthy, Scope{RestaurantID: 2, Role: models.RoleManager})

	start := time.Now()
	for i := 0; i < sendBuffer+2; i++ {
		hub.BroadcastToRestaurant(1, Message{Event: EventMenuUpdate})
	}
	hub.BroadcastToRestaurant(2, Message{Event: EventMenuUpdate})
	assert.Less(t, time.Since(start), writeWait)

	eventsEqual(t, []string{EventMenuUpdate}, healthy)
	assert.Equal(t, 0, hub.Count(1), "a client whose queue overflows is dropped")

	close(stalled.release)
	assert.Eventually(t, stalled.isClosed, wait, tick)
}
