package services

import (
	"context"
	"sync"
	"time"

	"github.com/yeremiapane/restaurant-ordering/kds"
	"github.com/yeremiapane/restaurant-ordering/models"
	"github.com/yeremiapane/restaurant-ordering/utils"
	"gorm.io/gorm"
)

// SnapshotFunc receives every order snapshot the monitor publishes.
type SnapshotFunc func(order models.Order)

// ChangeMonitor turns db_changes rows into order snapshots. Each snapshot is
// broadcast to websocket subscribers and to in-process listeners, and run
// through the StatusTracker to fire notifications on status edges.
type ChangeMonitor struct {
	DB         *gorm.DB
	Hub        *kds.Hub
	Tracker    *StatusTracker
	Dispatcher *Dispatcher
	Interval   time.Duration
	BatchSize  int

	mu        sync.Mutex
	listeners map[int]SnapshotFunc
	nextID    int
	stop      chan struct{}
	done      chan struct{}
}

func NewChangeMonitor(db *gorm.DB, hub *kds.Hub, tracker *StatusTracker, dispatcher *Dispatcher) *ChangeMonitor {
	return &ChangeMonitor{
		DB:         db,
		Hub:        hub,
		Tracker:    tracker,
		Dispatcher: dispatcher,
		Interval:   1 * time.Second,
		BatchSize:  100,
		listeners:  make(map[int]SnapshotFunc),
	}
}

// Subscribe registers fn and returns the function that removes it.
func (cm *ChangeMonitor) Subscribe(fn SnapshotFunc) (unsubscribe func()) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	id := cm.nextID
	cm.nextID++
	cm.listeners[id] = fn
	return func() {
		cm.mu.Lock()
		defer cm.mu.Unlock()
		delete(cm.listeners, id)
	}
}

// Start seeds the tracker from open orders and then polls every Interval.
func (cm *ChangeMonitor) Start() {
	if n, err := cm.SeedTracker(context.Background()); err != nil {
		utils.ErrorLogger.Printf("Error seeding status tracker: %v", err)
	} else {
		utils.InfoLogger.Printf("Status tracker seeded with %d open orders", n)
	}

	cm.stop = make(chan struct{})
	cm.done = make(chan struct{})
	go func() {
		defer close(cm.done)
		ticker := time.NewTicker(cm.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if _, err := cm.ProcessPending(context.Background()); err != nil {
					utils.ErrorLogger.Printf("Error processing changes: %v", err)
				}
			case <-cm.stop:
				return
			}
		}
	}()
}

// SeedTracker records the current status of every open order, so the first
// change after a restart is compared against it instead of only seeding.
func (cm *ChangeMonitor) SeedTracker(ctx context.Context) (int, error) {
	var open []models.Order
	if err := cm.DB.WithContext(ctx).
		Select("id", "status").
		Where("status IN ?", models.OpenOrderStatuses).
		Find(&open).Error; err != nil {
		return 0, opError("seed tracker", err)
	}
	for _, o := range open {
		cm.Tracker.Seed(o.ID, o.Status)
	}
	return len(open), nil
}

func (cm *ChangeMonitor) Stop() {
	if cm.stop == nil {
		return
	}
	close(cm.stop)
	<-cm.done
	cm.stop = nil
}

// ProcessPending handles one batch of unprocessed changes in order and
// returns how many were handled.
func (cm *ChangeMonitor) ProcessPending(ctx context.Context) (int, error) {
	var changes []models.DBChange
	if err := cm.DB.WithContext(ctx).
		Where("processed = ?", false).
		Order("id ASC").
		Limit(cm.BatchSize).
		Find(&changes).Error; err != nil {
		return 0, opError("fetch changes", err)
	}

	for _, change := range changes {
		switch change.TableName {
		case "orders":
			cm.processOrderChange(ctx, change)
		case "menu_items":
			cm.processMenuChange(ctx, change)
		case "restaurants":
			cm.processRestaurantChange(ctx, change)
		}

		if err := cm.DB.WithContext(ctx).Model(&change).Update("processed", true).Error; err != nil {
			return 0, opError("mark change processed", err)
		}
	}

	if len(changes) > 0 {
		utils.InfoLogger.Debugf("Processed %d changes", len(changes))
	}
	return len(changes), nil
}

func (cm *ChangeMonitor) processOrderChange(ctx context.Context, change models.DBChange) {
	if change.ActionType == models.ActionDelete {
		cm.Tracker.Forget(uint(change.RecordID))
		return
	}

	var order models.Order
	if err := cm.DB.WithContext(ctx).Preload("OrderItems").First(&order, change.RecordID).Error; err != nil {
		utils.ErrorLogger.Printf("Error fetching order %d: %v", change.RecordID, err)
		return
	}

	cm.publish(order)

	if cm.Tracker.Observe(order.ID, order.Status) && cm.Dispatcher != nil {
		cm.Dispatcher.Dispatch(ctx, order)
	}
}

func (cm *ChangeMonitor) publish(order models.Order) {
	if cm.Hub != nil {
		cm.Hub.BroadcastOrderUpdate(order)
	}

	cm.mu.Lock()
	listeners := make([]SnapshotFunc, 0, len(cm.listeners))
	for _, fn := range cm.listeners {
		listeners = append(listeners, fn)
	}
	cm.mu.Unlock()

	for _, fn := range listeners {
		fn(order)
	}
}

func (cm *ChangeMonitor) processMenuChange(ctx context.Context, change models.DBChange) {
	if cm.Hub == nil {
		return
	}
	var item models.MenuItem
	if change.ActionType == models.ActionDelete {
		return
	}
	if err := cm.DB.WithContext(ctx).First(&item, change.RecordID).Error; err != nil {
		utils.ErrorLogger.Printf("Error fetching menu item %d: %v", change.RecordID, err)
		return
	}
	cm.Hub.BroadcastToRestaurant(item.RestaurantID, kds.Message{
		Event: kds.EventMenuUpdate,
		Data:  map[string]interface{}{"action": change.ActionType, "item": item},
	})
}

func (cm *ChangeMonitor) processRestaurantChange(ctx context.Context, change models.DBChange) {
	if cm.Hub == nil || change.ActionType == models.ActionDelete {
		return
	}
	var restaurant models.Restaurant
	if err := cm.DB.WithContext(ctx).First(&restaurant, change.RecordID).Error; err != nil {
		utils.ErrorLogger.Printf("Error fetching restaurant %d: %v", change.RecordID, err)
		return
	}
	cm.Hub.BroadcastToRestaurant(restaurant.ID, kds.Message{
		Event: kds.EventRestaurantUpdate,
		Data:  restaurant.PublicView(),
	})
}
