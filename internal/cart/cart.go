// Package cart is the bouquet builder's state: the flowers a customer has
// picked, mirrored to client storage on every change.
//
// Storage holds only flower ids and quantities. Names, prices and images
// are resolved against the live catalog on every Load.
package cart

import (
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/alextreichler/flowershop/internal/clientstate"
	"github.com/alextreichler/flowershop/internal/models"
)

const (
	// MaxLines bounds the number of distinct flowers so the stored cart
	// always fits in a cookie.
	MaxLines = 50
	// MaxQuantity bounds a single line.
	MaxQuantity = 999
)

var (
	ErrShopClosed = errors.New("cart: shop is closed")
	ErrFull       = errors.New("cart: cart is full")
)

// Catalog resolves stored flower ids to the flowers currently on sale.
type Catalog map[int]models.Flower

func NewCatalog(flowers []models.Flower) Catalog {
	c := make(Catalog, len(flowers))
	for _, f := range flowers {
		c[f.ID] = f
	}
	return c
}

type line struct {
	FlowerID int `json:"id"`
	Quantity int `json:"qty"`
}

type Cart struct {
	storage clientstate.Storage
	shop    models.ShopState
	items   []models.CartItem
}

// Load restores the cart from storage. A missing key is an empty cart; so
// is stored data that cannot be decoded. Lines whose flower is no longer in
// catalog are dropped.
func Load(storage clientstate.Storage, shop models.ShopState, catalog Catalog) *Cart {
	c := &Cart{storage: storage, shop: shop}

	raw, ok := storage.Get(clientstate.CartKey)
	if !ok || raw == "" {
		return c
	}

	var lines []line
	if err := json.Unmarshal([]byte(raw), &lines); err != nil {
		slog.Warn("Discarding malformed stored cart", "error", err)
		return c
	}
	changed := false
	for _, l := range lines {
		f, ok := catalog[l.FlowerID]
		// never trust stored quantities
		if !ok || l.Quantity <= 0 || c.index(l.FlowerID) >= 0 || len(c.items) == MaxLines {
			changed = true
			continue
		}
		if l.Quantity > MaxQuantity {
			l.Quantity = MaxQuantity
			changed = true
		}
		c.items = append(c.items, models.CartItem{Flower: f.Snapshot(), Quantity: l.Quantity})
	}
	if changed {
		c.persist()
	}
	return c
}

// Items returns a copy of the cart contents in insertion order.
func (c *Cart) Items() []models.CartItem {
	out := make([]models.CartItem, len(c.items))
	copy(out, c.items)
	return out
}

// Add puts one more of flower into the cart. It fails with ErrShopClosed
// while the shop is closed and with ErrFull once a bound is reached.
func (c *Cart) Add(flower models.Flower) error {
	if !c.shop.Open {
		return ErrShopClosed
	}
	if i := c.index(flower.ID); i >= 0 {
		if c.items[i].Quantity >= MaxQuantity {
			return ErrFull
		}
		c.items[i].Quantity++
	} else {
		if len(c.items) >= MaxLines {
			return ErrFull
		}
		c.items = append(c.items, models.CartItem{Flower: flower.Snapshot(), Quantity: 1})
	}
	c.persist()
	return nil
}

// SetQuantity overwrites the quantity, capped at MaxQuantity; n <= 0
// removes the item.
func (c *Cart) SetQuantity(flowerID, n int) {
	i := c.index(flowerID)
	if i < 0 {
		return
	}
	if n <= 0 {
		c.remove(i)
	} else {
		c.items[i].Quantity = min(n, MaxQuantity)
	}
	c.persist()
}

// AdjustQuantity adds delta, clamping at zero; zero removes the item.
func (c *Cart) AdjustQuantity(flowerID, delta int) {
	i := c.index(flowerID)
	if i < 0 {
		return
	}
	n := c.items[i].Quantity + delta
	if n < 0 {
		n = 0
	}
	c.SetQuantity(flowerID, n)
}

func (c *Cart) Remove(flowerID int) {
	c.SetQuantity(flowerID, 0)
}

func (c *Cart) TotalItems() int {
	total := 0
	for _, it := range c.items {
		total += it.Quantity
	}
	return total
}

func (c *Cart) TotalPrice() int {
	total := 0
	for _, it := range c.items {
		total += it.Subtotal()
	}
	return total
}

func (c *Cart) Empty() bool {
	return len(c.items) == 0
}

func (c *Cart) Clear() {
	c.items = nil
	c.persist()
}

func (c *Cart) index(flowerID int) int {
	for i, it := range c.items {
		if it.Flower.ID == flowerID {
			return i
		}
	}
	return -1
}

func (c *Cart) remove(i int) {
	c.items = append(c.items[:i], c.items[i+1:]...)
}

func (c *Cart) persist() {
	if len(c.items) == 0 {
		c.storage.Delete(clientstate.CartKey)
		return
	}
	lines := make([]line, len(c.items))
	for i, it := range c.items {
		lines[i] = line{FlowerID: it.Flower.ID, Quantity: it.Quantity}
	}
	data, err := json.Marshal(lines)
	if err != nil {
		slog.Error("Failed to encode cart", "error", err)
		return
	}
	c.storage.Set(clientstate.CartKey, string(data))
}
