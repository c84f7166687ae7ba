package models

import (
	"time"
)

// Product is a pre-composed bouquet sold as a single catalog item.
type Product struct {
	ID          int       `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	Price       int       `json:"price" db:"price"`       // whole currency units
	Discount    int       `json:"discount" db:"discount"` // percent, 0..100
	ImageURL    string    `json:"image_url" db:"image_url"`
	Available   bool      `json:"available" db:"available"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// EffectivePrice applies the discount and rounds to the nearest unit.
func (p Product) EffectivePrice() int {
	return DiscountedPrice(p.Price, p.Discount)
}

// DiscountedPrice returns round(price * (1 - discount/100)).
// Discounts outside [0,100] are clamped.
func DiscountedPrice(price, discount int) int {
	if discount <= 0 {
		return price
	}
	if discount > 100 {
		discount = 100
	}
	return (price*(100-discount) + 50) / 100
}

// Flower is an individual stem used in the bouquet builder.
type Flower struct {
	ID          int       `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	Price       int       `json:"price" db:"price"`
	ImageURL    string    `json:"image_url" db:"image_url"`
	Available   bool      `json:"available" db:"available"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// CartFlower is the snapshot of a flower kept inside a cart.
type CartFlower struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Price    int    `json:"price"`
	ImageURL string `json:"image_url,omitempty"`
}

// Snapshot reduces a flower to what the cart needs to remember.
func (f Flower) Snapshot() CartFlower {
	return CartFlower{ID: f.ID, Name: f.Name, Price: f.Price, ImageURL: f.ImageURL}
}

type CartItem struct {
	Flower   CartFlower `json:"flower"`
	Quantity int        `json:"quantity"`
}

// Subtotal is unit price times quantity.
func (c CartItem) Subtotal() int {
	return c.Flower.Price * c.Quantity
}

// ShopState carries the shop-wide switches that gate cart and order actions.
type ShopState struct {
	Open            bool
	DeliveryEnabled bool
}

// SiteSettings is the singleton record behind the storefront.
type SiteSettings struct {
	ID              int    `json:"id" db:"id"`
	ShopOpen        bool   `json:"shop_open" db:"shop_open"`
	DeliveryEnabled bool   `json:"delivery_enabled" db:"delivery_enabled"`
	ShopName        string `json:"shop_name" db:"shop_name"`
	Tagline         string `json:"tagline" db:"tagline"`
	Phone           string `json:"phone" db:"phone"`
	Address         string `json:"address" db:"address"`
	Instagram       string `json:"instagram" db:"instagram"`

	AboutEnabled         bool   `json:"about_enabled" db:"about_enabled"`
	About                string `json:"about" db:"about"`
	ScheduleEnabled      bool   `json:"schedule_enabled" db:"schedule_enabled"`
	Schedule             string `json:"schedule" db:"schedule"`
	DeliveryPriceEnabled bool   `json:"delivery_price_enabled" db:"delivery_price_enabled"`
	DeliveryPrice        string `json:"delivery_price" db:"delivery_price"`
	DeliveryInfoEnabled  bool   `json:"delivery_info_enabled" db:"delivery_info_enabled"`
	DeliveryInfo         string `json:"delivery_info" db:"delivery_info"`

	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// DefaultSettings is what the storefront uses before the admin saves anything.
func DefaultSettings() SiteSettings {
	return SiteSettings{ShopOpen: true, DeliveryEnabled: true}
}

// State extracts the switches the cart and order flow depend on.
func (s SiteSettings) State() ShopState {
	return ShopState{Open: s.ShopOpen, DeliveryEnabled: s.DeliveryEnabled}
}

// Content field names accepted by Visible.
const (
	ContentAbout         = "about"
	ContentSchedule      = "schedule"
	ContentDeliveryPrice = "delivery_price"
	ContentDeliveryInfo  = "delivery_info"
)

// ContentFields lists every toggleable content field.
var ContentFields = []string{ContentAbout, ContentSchedule, ContentDeliveryPrice, ContentDeliveryInfo}

func (s SiteSettings) content(field string) (bool, string) {
	switch field {
	case ContentAbout:
		return s.AboutEnabled, s.About
	case ContentSchedule:
		return s.ScheduleEnabled, s.Schedule
	case ContentDeliveryPrice:
		return s.DeliveryPriceEnabled, s.DeliveryPrice
	case ContentDeliveryInfo:
		return s.DeliveryInfoEnabled, s.DeliveryInfo
	}
	return false, ""
}

// Visible reports whether a content field should be rendered: its flag is
// on and the text is not empty.
func (s SiteSettings) Visible(field string) bool {
	enabled, text := s.content(field)
	return enabled && text != ""
}

// VisibleContent returns only the renderable content fields.
func (s SiteSettings) VisibleContent() map[string]string {
	out := make(map[string]string)
	for _, f := range ContentFields {
		if s.Visible(f) {
			_, text := s.content(f)
			out[f] = text
		}
	}
	return out
}
