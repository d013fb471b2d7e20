package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/yeremiapane/restaurant-ordering/kds"
	"github.com/yeremiapane/restaurant-ordering/models"
	"github.com/yeremiapane/restaurant-ordering/services"
	"github.com/yeremiapane/restaurant-ordering/utils"
)

// NotifyFunc shows a local notification for a status edge.
type NotifyFunc func(order models.Order, title, message string)

// OrderSync mirrors order snapshots pushed by the server into the cache and
// raises local notifications on status edges.
type OrderSync struct {
	URL     string
	Token   string
	Cache   *Cache
	Tracker *services.StatusTracker
	Notify  NotifyFunc
	Dialer  *websocket.Dialer
}

// NewOrderSync targets the authenticated /ws endpoint under baseURL.
func NewOrderSync(baseURL, token string, cache *Cache, notify NotifyFunc) *OrderSync {
	return &OrderSync{
		URL:     websocketURL(baseURL) + "/ws",
		Token:   token,
		Cache:   cache,
		Tracker: services.NewStatusTracker(),
		Notify:  notify,
		Dialer:  websocket.DefaultDialer,
	}
}

func websocketURL(base string) string {
	base = strings.TrimRight(base, "/")
	switch {
	case strings.HasPrefix(base, "https://"):
		return "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		return "ws://" + strings.TrimPrefix(base, "http://")
	}
	return base
}

type incoming struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Run listens until ctx is cancelled or the connection drops. Cancelling ctx
// is the only way to unsubscribe. The tracker is seeded from the cached open
// orders first, so a change that happened while offline is announced.
func (s *OrderSync) Run(ctx context.Context) error {
	s.seedFromCache()

	target := s.URL
	if s.Token != "" {
		target += "?token=" + url.QueryEscape(s.Token)
	}
	conn, _, err := s.Dialer.DialContext(ctx, target, http.Header{})
	if err != nil {
		return err
	}
	defer conn.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		var msg incoming
		if err := json.Unmarshal(raw, &msg); err != nil {
			utils.ErrorLogger.Printf("Ignoring malformed message: %v", err)
			continue
		}
		if msg.Event != kds.EventOrderUpdate {
			continue
		}
		var order models.Order
		if err := json.Unmarshal(msg.Data, &order); err != nil {
			utils.ErrorLogger.Printf("Ignoring malformed order snapshot: %v", err)
			continue
		}
		s.Apply(order)
	}
}

func (s *OrderSync) seedFromCache() {
	if s.Cache == nil {
		return
	}
	orders, err := s.Cache.OpenOrders()
	if err != nil {
		utils.ErrorLogger.Printf("Error reading cached orders: %v", err)
		return
	}
	for _, o := range orders {
		s.Tracker.Seed(o.ID, o.Status)
	}
}

// Apply stores one snapshot and notifies on a status edge.
func (s *OrderSync) Apply(order models.Order) {
	if s.Cache != nil {
		if err := s.Cache.PutOrder(&order); err != nil {
			utils.ErrorLogger.Printf("Error caching order %d: %v", order.ID, err)
		}
	}
	if s.Tracker.Observe(order.ID, order.Status) && s.Notify != nil {
		title, message := services.StatusMessage(&order)
		s.Notify(order, title, message)
	}
}
