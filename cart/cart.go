// Package cart holds the pre-order basket and its persistence as one JSON
// blob in a key/value store.
package cart

import (
	"encoding/json"

	"github.com/shopspring/decimal"
	"github.com/yeremiapane/restaurant-ordering/utils"
)

// Key is the preference key the cart blob is stored under.
const Key = "cart"

type Item struct {
	MenuItemID uint    `json:"menu_item_id"`
	Name       string  `json:"name"`
	Price      float64 `json:"price"`
}

// Line is one cart row. Two lines are the same line when both the menu item
// and the notes match.
type Line struct {
	Item     Item   `json:"item"`
	Quantity int    `json:"quantity"`
	Notes    string `json:"notes,omitempty"`
}

func (l Line) matches(menuItemID uint, notes string) bool {
	return l.Item.MenuItemID == menuItemID && l.Notes == notes
}

type Cart struct {
	Lines []Line `json:"lines"`
}

// Add merges into an existing line with the same item and notes, otherwise
// appends a new line.
func (c *Cart) Add(item Item, quantity int, notes string) {
	for i := range c.Lines {
		if c.Lines[i].matches(item.MenuItemID, notes) {
			c.Lines[i].Quantity += quantity
			return
		}
	}
	c.Lines = append(c.Lines, Line{Item: item, Quantity: quantity, Notes: notes})
}

// UpdateQuantity sets a line's quantity. A quantity of zero or less removes it.
func (c *Cart) UpdateQuantity(menuItemID uint, notes string, quantity int) {
	if quantity <= 0 {
		c.Remove(menuItemID, notes)
		return
	}
	for i := range c.Lines {
		if c.Lines[i].matches(menuItemID, notes) {
			c.Lines[i].Quantity = quantity
			return
		}
	}
}

func (c *Cart) Remove(menuItemID uint, notes string) {
	kept := c.Lines[:0]
	for _, l := range c.Lines {
		if !l.matches(menuItemID, notes) {
			kept = append(kept, l)
		}
	}
	c.Lines = kept
}

func (c *Cart) Clear() {
	c.Lines = nil
}

func (c *Cart) IsEmpty() bool { return len(c.Lines) == 0 }

func (c *Cart) Total() float64 {
	total := decimal.Zero
	for _, l := range c.Lines {
		total = total.Add(decimal.NewFromFloat(l.Item.Price).Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	return total.Round(2).InexactFloat64()
}

func (c *Cart) ItemCount() int {
	n := 0
	for _, l := range c.Lines {
		n += l.Quantity
	}
	return n
}

// OrderLine is the shape an order request expects for each cart line.
type OrderLine struct {
	MenuItemID uint   `json:"menu_item_id"`
	Quantity   int    `json:"quantity"`
	Notes      string `json:"notes,omitempty"`
}

func (c *Cart) ToOrderItems() []OrderLine {
	out := make([]OrderLine, 0, len(c.Lines))
	for _, l := range c.Lines {
		out = append(out, OrderLine{MenuItemID: l.Item.MenuItemID, Quantity: l.Quantity, Notes: l.Notes})
	}
	return out
}

// Store is a string key/value store.
type Store interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Delete(key string) error
}

// Load reads the cart blob. A missing or unreadable blob yields an empty cart.
func Load(s Store) (*Cart, error) {
	raw, err := s.Get(Key)
	if err != nil {
		return nil, err
	}
	c := &Cart{}
	if raw == "" {
		return c, nil
	}
	if err := json.Unmarshal([]byte(raw), c); err != nil {
		utils.ErrorLogger.Printf("Discarding unreadable cart: %v", err)
		return &Cart{}, nil
	}
	return c, nil
}

// Save writes the whole cart as one blob; an empty cart deletes the key.
func Save(s Store, c *Cart) error {
	if c == nil || c.IsEmpty() {
		return s.Delete(Key)
	}
	raw, err := json.Marshal(c)
	if err != nil {
		return err
	}
	return s.Set(Key, string(raw))
}
