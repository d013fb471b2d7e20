package services

import (
	"errors"
	"time"

	"github.com/yeremiapane/restaurant-ordering/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PreferenceStore is the server-side key/value blob table.
type PreferenceStore struct {
	DB *gorm.DB
}

func NewPreferenceStore(db *gorm.DB) *PreferenceStore {
	return &PreferenceStore{DB: db}
}

// Get returns "" without error when the key is absent.
func (s *PreferenceStore) Get(owner, key string) (string, error) {
	var pref models.Preference
	err := s.DB.Where("owner = ? AND pref_key = ?", owner, key).First(&pref).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", opError("read preference", err)
	}
	return pref.Value, nil
}

func (s *PreferenceStore) Set(owner, key, value string) error {
	pref := models.Preference{Owner: owner, Key: key, Value: value, UpdatedAt: time.Now()}
	err := s.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "owner"}, {Name: "pref_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&pref).Error
	if err != nil {
		return opError("write preference", err)
	}
	return nil
}

func (s *PreferenceStore) Delete(owner, key string) error {
	if err := s.DB.Where("owner = ? AND pref_key = ?", owner, key).Delete(&models.Preference{}).Error; err != nil {
		return opError("delete preference", err)
	}
	return nil
}

// Scoped binds the store to one owner.
func (s *PreferenceStore) Scoped(owner string) *OwnerPreferences {
	return &OwnerPreferences{store: s, owner: owner}
}

// OwnerPreferences satisfies cart.Store for a single owner.
type OwnerPreferences struct {
	store *PreferenceStore
	owner string
}

func (o *OwnerPreferences) Get(key string) (string, error) { return o.store.Get(o.owner, key) }
func (o *OwnerPreferences) Set(key, value string) error    { return o.store.Set(o.owner, key, value) }
func (o *OwnerPreferences) Delete(key string) error        { return o.store.Delete(o.owner, key) }
