package client

import (
	"errors"
	"time"

	"github.com/yeremiapane/restaurant-ordering/cart"
	"github.com/yeremiapane/restaurant-ordering/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	KeySession          = "session"
	KeyGuestTrackingURL = "guest_tracking_url"
	KeyPrinterPairing   = "printer_pairing"
)

const localOwner = "local"

// Preferences is the device-local key/value store. It satisfies cart.Store.
type Preferences struct {
	DB *gorm.DB
}

func (c *Cache) Preferences() *Preferences {
	return &Preferences{DB: c.DB}
}

func (p *Preferences) Get(key string) (string, error) {
	var pref models.Preference
	err := p.DB.Where("owner = ? AND pref_key = ?", localOwner, key).First(&pref).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	return pref.Value, err
}

func (p *Preferences) Set(key, value string) error {
	return p.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "owner"}, {Name: "pref_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&models.Preference{Owner: localOwner, Key: key, Value: value, UpdatedAt: time.Now()}).Error
}

func (p *Preferences) Delete(key string) error {
	return p.DB.Where("owner = ? AND pref_key = ?", localOwner, key).Delete(&models.Preference{}).Error
}

func (p *Preferences) Cart() (*cart.Cart, error) { return cart.Load(p) }

func (p *Preferences) SaveCart(c *cart.Cart) error { return cart.Save(p, c) }

func (p *Preferences) Session() (string, error) { return p.Get(KeySession) }

func (p *Preferences) SetSession(token string) error {
	if token == "" {
		return p.Delete(KeySession)
	}
	return p.Set(KeySession, token)
}

func (p *Preferences) GuestTrackingURL() (string, error) { return p.Get(KeyGuestTrackingURL) }

func (p *Preferences) SetGuestTrackingURL(url string) error {
	return p.Set(KeyGuestTrackingURL, url)
}

func (p *Preferences) PrinterPairing() (string, error) { return p.Get(KeyPrinterPairing) }

func (p *Preferences) SetPrinterPairing(device string) error {
	return p.Set(KeyPrinterPairing, device)
}
