package controllers_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/restaurant-ordering/database"
	"github.com/yeremiapane/restaurant-ordering/middlewares"
	"github.com/yeremiapane/restaurant-ordering/models"
	"github.com/yeremiapane/restaurant-ordering/utils"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testPassword = "secret123"

func init() {
	gin.SetMode(gin.TestMode)
	utils.RegisterValidators()
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:ctl_%s?mode=memory&cache=shared", name)), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

type fixture struct {
	Restaurant models.Restaurant
	Other      models.Restaurant
	Manager    models.User
	Cashier    models.User
	Cook       models.User
	Client     models.User
	Rice       models.MenuItem
	Tea        models.MenuItem
	SoldOut    models.MenuItem
}

func seedFixture(t *testing.T, db *gorm.DB) fixture {
	t.Helper()
	f := fixture{
		Restaurant: models.Restaurant{Name: "Warung Senja", ShortCode: "SENJA1", Status: models.RestaurantActive, Plan: "basic", AcceptingOrders: true},
		Other:      models.Restaurant{Name: "Kedai Pagi", ShortCode: "PAGI22", Status: models.RestaurantActive, Plan: "free", AcceptingOrders: true},
	}
	require.NoError(t, db.Create(&f.Restaurant).Error)
	require.NoError(t, db.Create(&f.Other).Error)

	hashed, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	require.NoError(t, err)
	user := func(username, role string) models.User {
		u := models.User{
			Username: username, Name: username, Password: string(hashed), Role: role,
			Status: models.UserActive, RestaurantIDs: []uint{f.Restaurant.ID}, ActiveRestaurantID: f.Restaurant.ID,
		}
		require.NoError(t, db.Create(&u).Error)
		return u
	}
	f.Manager = user("maya", models.RoleManager)
	f.Cashier = user("citra", models.RoleCashier)
	f.Cook = user("koko", models.RoleCook)
	f.Client = user("budi", models.RoleClient)

	f.Rice = models.MenuItem{RestaurantID: f.Restaurant.ID, Name: "Nasi Goreng", Category: "Food", Price: 25000, IsAvailable: true}
	f.Tea = models.MenuItem{RestaurantID: f.Restaurant.ID, Name: "Es Teh", Category: "Drinks", Price: 5000, IsAvailable: true}
	f.SoldOut = models.MenuItem{RestaurantID: f.Restaurant.ID, Name: "Sate Ayam", Category: "Food", Price: 30000, IsAvailable: false}
	for _, item := range []*models.MenuItem{&f.Rice, &f.Tea, &f.SoldOut} {
		require.NoError(t, db.Create(item).Error)
	}
	return f
}

// as stands in for AuthMiddleware, putting a fixed identity on the context.
func as(u models.User) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middlewares.CtxUserID, u.ID)
		c.Set(middlewares.CtxRole, u.Role)
		c.Set(middlewares.CtxRestaurantID, u.ActiveRestaurantID)
		c.Next()
	}
}

type envelope struct {
	Status  bool              `json:"status"`
	Message string            `json:"message"`
	Data    json.RawMessage   `json:"data"`
	Errors  map[string]string `json:"errors"`
}

func do(t *testing.T, r http.Handler, method, path string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w, env
}

func decode(t *testing.T, raw json.RawMessage, dst interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(raw, dst), string(raw))
}

type fakeDevice struct {
	mu   sync.Mutex
	buf  bytes.Buffer
	fail bool
}

func (d *fakeDevice) Write(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.fail {
		return 0, errors.New("paper jam")
	}
	return d.buf.Write(p)
}

func (d *fakeDevice) Close() error { return nil }

func (d *fakeDevice) String() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.buf.String()
}

// deviceOpener hands out one shared device; a nil device means the path
// cannot be opened.
func deviceOpener(d *fakeDevice) func(string) (io.WriteCloser, error) {
	return func(path string) (io.WriteCloser, error) {
		if d == nil {
			return nil, errors.New("no such device: " + path)
		}
		return d, nil
	}
}
