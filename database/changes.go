package database

import (
	"reflect"
	"time"

	"github.com/yeremiapane/restaurant-ordering/models"
	"github.com/yeremiapane/restaurant-ordering/utils"
	"gorm.io/gorm"
)

// TrackedTables are the tables whose writes are appended to db_changes.
var TrackedTables = map[string]bool{
	"orders":      true,
	"menu_items":  true,
	"restaurants": true,
}

// RegisterChangeCallbacks records every create/update/delete on a tracked
// table as a DBChange row, on the same connection as the write.
func RegisterChangeCallbacks(db *gorm.DB) error {
	if db.Callback().Create().Get("changefeed:create") != nil {
		return nil
	}
	if err := db.Callback().Create().After("gorm:create").
		Register("changefeed:create", recordChange(models.ActionInsert)); err != nil {
		return err
	}
	if err := db.Callback().Update().After("gorm:update").
		Register("changefeed:update", recordChange(models.ActionUpdate)); err != nil {
		return err
	}
	return db.Callback().Delete().After("gorm:delete").
		Register("changefeed:delete", recordChange(models.ActionDelete))
}

func recordChange(action string) func(*gorm.DB) {
	return func(db *gorm.DB) {
		if db.Error != nil || db.Statement.Schema == nil || db.RowsAffected == 0 {
			return
		}
		table := db.Statement.Schema.Table
		if !TrackedTables[table] {
			return
		}
		pk := db.Statement.Schema.PrioritizedPrimaryField
		if pk == nil {
			return
		}

		var ids []int64
		collect := func(rv reflect.Value) {
			if v, zero := pk.ValueOf(db.Statement.Context, rv); !zero {
				if id, ok := toInt64(v); ok {
					ids = append(ids, id)
				}
			}
		}

		rv := reflect.Indirect(db.Statement.ReflectValue)
		switch rv.Kind() {
		case reflect.Slice, reflect.Array:
			for i := 0; i < rv.Len(); i++ {
				collect(reflect.Indirect(rv.Index(i)))
			}
		case reflect.Struct:
			collect(rv)
		}

		if len(ids) == 0 {
			return
		}

		tx := db.Session(&gorm.Session{NewDB: true, SkipHooks: true})
		now := time.Now()
		for _, id := range ids {
			change := models.DBChange{
				TableName:  table,
				RecordID:   id,
				ActionType: action,
				ChangedAt:  now,
			}
			if err := tx.Create(&change).Error; err != nil {
				utils.ErrorLogger.Printf("Error recording change for %s#%d: %v", table, id, err)
			}
		}
	}
}

func toInt64(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case uint:
		return int64(n), true
	case uint64:
		return int64(n), true
	case uint32:
		return int64(n), true
	case int:
		return int64(n), true
	case int64:
		return n, true
	}
	return 0, false
}

// PurgeProcessedChanges deletes processed change rows older than age.
func PurgeProcessedChanges(db *gorm.DB, age time.Duration) (int64, error) {
	res := db.Where("processed = ? AND changed_at < ?", true, time.Now().Add(-age)).
		Delete(&models.DBChange{})
	return res.RowsAffected, res.Error
}
