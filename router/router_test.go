package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/restaurant-ordering/client"
	"github.com/yeremiapane/restaurant-ordering/database"
	"github.com/yeremiapane/restaurant-ordering/kds"
	"github.com/yeremiapane/restaurant-ordering/models"
	"github.com/yeremiapane/restaurant-ordering/services"
	"github.com/yeremiapane/restaurant-ordering/utils"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const seedYAML = `
restaurants:
  - name: Warung Senja
    short_code: SENJA1
    plan: basic
    users:
      - {username: maya, name: Maya, role: manager, password: secret123}
      - {username: citra, name: Citra, role: cashier, password: secret123}
      - {username: koko, name: Koko, role: cook, password: secret123}
      - {username: budi, name: Budi, role: client, password: secret123}
    menu:
      - {name: Nasi Goreng, category: Food, price: 25000}
      - {name: Es Teh, category: Drinks, price: 5000}
`

func init() {
	gin.SetMode(gin.TestMode)
	utils.RegisterValidators()
}

type testServer struct {
	t      *testing.T
	db     *gorm.DB
	router *gin.Engine
	hub    *kds.Hub
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:router_%s?mode=memory&cache=shared", t.Name())), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, database.Migrate(db))

	seed, err := database.ParseSeed([]byte(seedYAML))
	require.NoError(t, err)
	require.NoError(t, seed.Apply(db))

	hub := kds.NewHub()
	r := SetupRouter(Deps{
		DB:       db,
		Hub:      hub,
		Printers: services.NewPrinterRegistry(services.NewPreferenceStore(db), services.OpenDeviceFile),
		Links:    services.NewGuestLinks("http://example.test"),
	})
	return &testServer{t: t, db: db, router: r, hub: hub}
}

type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (s *testServer) call(method, path, token string, body interface{}, out interface{}) int {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	if out != nil {
		var env envelope
		require.NoError(s.t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
		require.NoError(s.t, json.Unmarshal(env.Data, out), string(env.Data))
	}
	return w.Code
}

func (s *testServer) login(username string) string {
	s.t.Helper()
	var resp struct {
		Token string `json:"token"`
	}
	code := s.call(http.MethodPost, "/auth/login", "", gin.H{"username": username, "password": "secret123"}, &resp)
	require.Equal(s.t, http.StatusOK, code)
	return resp.Token
}

func (s *testServer) menuID(name string) uint {
	var item models.MenuItem
	require.NoError(s.t, s.db.Where("name = ?", name).First(&item).Error)
	return item.ID
}

func TestClientOrderApprovalFlow(t *testing.T) {
	s := newTestServer(t)
	client := s.login("budi")
	cashier := s.login("citra")
	cook := s.login("koko")

	var order models.Order
	code := s.call(http.MethodPost, "/orders", client, gin.H{
		"items": []gin.H{{"menu_item_id": s.menuID("Nasi Goreng"), "quantity": 1}},
	}, &order)
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, models.OrderAwaitingApproval, order.Status)

	approve := fmt.Sprintf("/orders/%d/approve", order.ID)
	assert.Equal(t, http.StatusForbidden, s.call(http.MethodPost, approve, cook, nil, nil))
	assert.Equal(t, http.StatusForbidden, s.call(http.MethodPost, approve, client, nil, nil))
	assert.Equal(t, http.StatusOK, s.call(http.MethodPost, approve, cashier, nil, nil))
	assert.Equal(t, http.StatusOK, s.call(http.MethodPost, approve, cashier, nil, nil))

	var cooking models.Order
	code = s.call(http.MethodPatch, fmt.Sprintf("/orders/%d/status", order.ID), cook, gin.H{"status": "preparing"}, &cooking)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, models.OrderPreparing, cooking.Status)

	var mine []models.Order
	require.Equal(t, http.StatusOK, s.call(http.MethodGet, "/me/orders", client, nil, &mine))
	require.Len(t, mine, 1)
	assert.Equal(t, models.OrderPreparing, mine[0].Status)
}

func TestRoleGates(t *testing.T) {
	s := newTestServer(t)
	manager := s.login("maya")
	cook := s.login("koko")
	client := s.login("budi")

	assert.Equal(t, http.StatusUnauthorized, s.call(http.MethodGet, "/menu", "", nil, nil))
	assert.Equal(t, http.StatusOK, s.call(http.MethodGet, "/menu", client, nil, nil))
	assert.Equal(t, http.StatusForbidden, s.call(http.MethodGet, "/users", cook, nil, nil))
	assert.Equal(t, http.StatusOK, s.call(http.MethodGet, "/users", manager, nil, nil))
	assert.Equal(t, http.StatusForbidden, s.call(http.MethodGet, "/orders", client, nil, nil))
	assert.Equal(t, http.StatusForbidden, s.call(http.MethodGet, "/dashboard", cook, nil, nil))
	assert.Equal(t, http.StatusForbidden, s.call(http.MethodGet, "/printer", cook, nil, nil))
}

func TestLogoutRevokesToken(t *testing.T) {
	s := newTestServer(t)
	token := s.login("maya")

	require.Equal(t, http.StatusOK, s.call(http.MethodGet, "/profile", token, nil, nil))
	require.Equal(t, http.StatusOK, s.call(http.MethodPost, "/auth/logout", token, nil, nil))
	assert.Equal(t, http.StatusUnauthorized, s.call(http.MethodGet, "/profile", token, nil, nil))
}

func TestMetricsAndPing(t *testing.T) {
	s := newTestServer(t)
	s.call(http.MethodGet, "/ping", "", nil, nil)

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "http_requests_total")
}

func TestGuestTrackingSocketSendsSnapshot(t *testing.T) {
	s := newTestServer(t)

	var placed struct {
		Order       models.Order `json:"order"`
		TrackingURL string       `json:"tracking_url"`
	}
	code := s.call(http.MethodPost, "/guest/SENJA1/table/2/orders", "", gin.H{
		"customer_name": "Sari",
		"items":         []gin.H{{"menu_item_id": s.menuID("Es Teh"), "quantity": 2}},
	}, &placed)
	require.Equal(t, http.StatusCreated, code)

	srv := httptest.NewServer(s.router)
	defer srv.Close()
	path := strings.TrimPrefix(placed.TrackingURL, "http://example.test")
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + path + "/ws"

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg struct {
		Event string       `json:"event"`
		Data  models.Order `json:"data"`
	}
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, kds.EventOrderUpdate, msg.Event)
	assert.Equal(t, placed.Order.ID, msg.Data.ID)

	_, _, err = websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+path+"x/ws", nil)
	assert.Error(t, err)
}

func TestOrderSocketStartsFromCurrentState(t *testing.T) {
	s := newTestServer(t)
	customer := s.login("budi")
	cashier := s.login("citra")
	cook := s.login("koko")
	ctx := context.Background()

	var order models.Order
	require.Equal(t, http.StatusCreated, s.call(http.MethodPost, "/orders", customer, gin.H{
		"items": []gin.H{{"menu_item_id": s.menuID("Nasi Goreng"), "quantity": 1}},
	}, &order))
	require.Equal(t, http.StatusOK, s.call(http.MethodPost, fmt.Sprintf("/orders/%d/approve", order.ID), cashier, nil, nil))

	monitor := services.NewChangeMonitor(s.db, s.hub, services.NewStatusTracker(), nil)
	_, err := monitor.ProcessPending(ctx)
	require.NoError(t, err)

	srv := httptest.NewServer(s.router)
	defer srv.Close()

	cacheDB, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:router_cache_%s?mode=memory&cache=shared", t.Name())), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	cacheSQL, err := cacheDB.DB()
	require.NoError(t, err)
	cacheSQL.SetMaxOpenConns(1)
	defer cacheSQL.Close()
	cache, err := client.NewCache(cacheDB)
	require.NoError(t, err)

	var mu sync.Mutex
	var notified []string
	notifiedStatuses := func() []string {
		mu.Lock()
		defer mu.Unlock()
		return append([]string(nil), notified...)
	}
	listener := client.NewOrderSync(srv.URL, customer, cache, func(o models.Order, _, _ string) {
		mu.Lock()
		defer mu.Unlock()
		notified = append(notified, o.Status)
	})

	runCtx, cancel := context.WithCancel(ctx)
	errc := make(chan error, 1)
	go func() { errc <- listener.Run(runCtx) }()
	defer func() {
		cancel()
		<-errc
	}()

	require.Eventually(t, func() bool {
		cached, err := cache.Order(order.ID)
		return err == nil && cached.Status == models.OrderPending
	}, 3*time.Second, 20*time.Millisecond, "subscriber should receive the open order on connect")

	for _, status := range []string{models.OrderPreparing, models.OrderReady} {
		require.Equal(t, http.StatusOK, s.call(http.MethodPatch, fmt.Sprintf("/orders/%d/status", order.ID), cook, gin.H{"status": status}, nil))
		_, err = monitor.ProcessPending(ctx)
		require.NoError(t, err)
	}

	require.Eventually(t, func() bool { return len(notifiedStatuses()) == 2 }, 3*time.Second, 20*time.Millisecond)
	assert.Equal(t, []string{models.OrderPreparing, models.OrderReady}, notifiedStatuses())
}
