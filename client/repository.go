package client

import (
	"context"
	"sync"
	"time"

	"github.com/yeremiapane/restaurant-ordering/models"
	"github.com/yeremiapane/restaurant-ordering/utils"
	"golang.org/x/sync/singleflight"
)

const refreshTimeout = 30 * time.Second

type MenuSource interface {
	FetchMenu(ctx context.Context) ([]models.MenuItem, error)
}

type OrderSource interface {
	FetchMyOrders(ctx context.Context) ([]models.Order, error)
}

// refresher runs remote fetches at most once at a time per key and tracks
// background runs so callers can wait for them.
type refresher struct {
	group singleflight.Group
	wg    sync.WaitGroup
}

func (r *refresher) run(ctx context.Context, key string, fn func(context.Context) (interface{}, error)) (interface{}, error) {
	v, err, _ := r.group.Do(key, func() (interface{}, error) { return fn(ctx) })
	return v, err
}

func (r *refresher) background(key string, fn func(context.Context) (interface{}, error)) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
		defer cancel()
		if _, err := r.run(ctx, key, fn); err != nil {
			utils.ErrorLogger.Printf("Background refresh of %s failed: %v", key, err)
		}
	}()
}

// Wait blocks until background refreshes started so far have finished.
func (r *refresher) Wait() { r.wg.Wait() }

// MenuRepository serves the menu from the local cache first.
type MenuRepository struct {
	refresher
	cache        *Cache
	remote       MenuSource
	restaurantID uint
}

func NewMenuRepository(cache *Cache, remote MenuSource, restaurantID uint) *MenuRepository {
	return &MenuRepository{cache: cache, remote: remote, restaurantID: restaurantID}
}

// GetMenuItems returns cached items right away and refreshes them in the
// background. With an empty cache it waits for the server.
func (r *MenuRepository) GetMenuItems(ctx context.Context) ([]models.MenuItem, error) {
	local, err := r.cache.MenuItems(r.restaurantID)
	if err != nil {
		return nil, err
	}
	if len(local) > 0 {
		r.background("menu", r.fetch)
		return local, nil
	}

	if _, err := r.run(ctx, "menu", r.fetch); err != nil {
		return nil, err
	}
	return r.cache.MenuItems(r.restaurantID)
}

func (r *MenuRepository) fetch(ctx context.Context) (interface{}, error) {
	items, err := r.remote.FetchMenu(ctx)
	if err != nil {
		return nil, err
	}
	if err := r.cache.ReplaceMenu(r.restaurantID, items); err != nil {
		return nil, err
	}
	return items, nil
}

// OrderRepository serves the signed-in client's orders from the local cache first.
type OrderRepository struct {
	refresher
	cache  *Cache
	remote OrderSource
	userID uint
}

func NewOrderRepository(cache *Cache, remote OrderSource, userID uint) *OrderRepository {
	return &OrderRepository{cache: cache, remote: remote, userID: userID}
}

func (r *OrderRepository) GetMyOrders(ctx context.Context) ([]models.Order, error) {
	local, err := r.cache.UserOrders(r.userID)
	if err != nil {
		return nil, err
	}
	if len(local) > 0 {
		r.background("orders", r.fetch)
		return local, nil
	}

	if _, err := r.run(ctx, "orders", r.fetch); err != nil {
		return nil, err
	}
	return r.cache.UserOrders(r.userID)
}

func (r *OrderRepository) fetch(ctx context.Context) (interface{}, error) {
	orders, err := r.remote.FetchMyOrders(ctx)
	if err != nil {
		return nil, err
	}
	if err := r.cache.ReplaceUserOrders(r.userID, orders); err != nil {
		return nil, err
	}
	return orders, nil
}
