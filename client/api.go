// Package client is the Go SDK used by ordering front-ends: an HTTP API
// client, a local sqlite mirror with offline-first reads, local preferences
// and a websocket order listener.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/yeremiapane/restaurant-ordering/cart"
	"github.com/yeremiapane/restaurant-ordering/models"
)

// APIError carries only the server's message.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string { return e.Message }

type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// API talks to the ordering backend.
type API struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

func NewAPI(baseURL, token string) *API {
	return &API{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		Token:      token,
		HTTPClient: &http.Client{Timeout: 15 * time.Second},
	}
}

func (a *API) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.BaseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if a.Token != "" {
		req.Header.Set("Authorization", "Bearer "+a.Token)
	}

	resp, err := a.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return &APIError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("unexpected response (%d)", resp.StatusCode)}
	}
	if resp.StatusCode >= 300 || !env.Status {
		return &APIError{StatusCode: resp.StatusCode, Message: env.Message}
	}
	if out != nil && len(env.Data) > 0 {
		return json.Unmarshal(env.Data, out)
	}
	return nil
}

type LoginResult struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

// Login authenticates and keeps the token for later calls.
func (a *API) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	var res LoginResult
	err := a.do(ctx, http.MethodPost, "/auth/login", map[string]string{
		"username": username,
		"password": password,
	}, &res)
	if err != nil {
		return nil, err
	}
	a.Token = res.Token
	return &res, nil
}

func (a *API) Logout(ctx context.Context) error {
	err := a.do(ctx, http.MethodPost, "/auth/logout", nil, nil)
	a.Token = ""
	return err
}

func (a *API) FetchMenu(ctx context.Context) ([]models.MenuItem, error) {
	var items []models.MenuItem
	if err := a.do(ctx, http.MethodGet, "/menu", nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (a *API) FetchMyOrders(ctx context.Context) ([]models.Order, error) {
	var orders []models.Order
	if err := a.do(ctx, http.MethodGet, "/me/orders", nil, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// PlaceOrder submits the cart as a new order.
func (a *API) PlaceOrder(ctx context.Context, c *cart.Cart, customerName string) (*models.Order, error) {
	var order models.Order
	err := a.do(ctx, http.MethodPost, "/orders", map[string]interface{}{
		"customer_name": customerName,
		"items":         c.ToOrderItems(),
	}, &order)
	if err != nil {
		return nil, err
	}
	return &order, nil
}

type GuestOrderResult struct {
	Order       models.Order `json:"order"`
	TrackingURL string       `json:"tracking_url"`
}

// PlaceGuestOrder orders anonymously through a restaurant short code. A
// table of zero means no table.
func (a *API) PlaceGuestOrder(ctx context.Context, shortCode string, table int, c *cart.Cart, customerName string) (*GuestOrderResult, error) {
	path := "/guest/" + shortCode + "/orders"
	if table > 0 {
		path = fmt.Sprintf("/guest/%s/table/%d/orders", shortCode, table)
	}
	var res GuestOrderResult
	err := a.do(ctx, http.MethodPost, path, map[string]interface{}{
		"customer_name": customerName,
		"items":         c.ToOrderItems(),
	}, &res)
	if err != nil {
		return nil, err
	}
	return &res, nil
}
