package order

import (
	"encoding/json"
	"fmt"
	"strings"
)

type Type string

const (
	TypeProduct Type = "product"
	TypeBouquet Type = "custom_bouquet"
)

const (
	DeliveryTypeDelivery = "delivery"
	DeliveryTypePickup   = "pickup"

	TimingUrgent   = "urgent"
	TimingSpecific = "specific"
)

// Customer holds the contact and hand-over details shared by both order
// shapes.
type Customer struct {
	Name         string `json:"customer_name" validate:"required,min=2,max=100"`
	Phone        string `json:"customer_phone" validate:"required,min=10,ge_phone"`
	DeliveryType string `json:"delivery_type" validate:"required,oneof=delivery pickup"`
	Address      string `json:"address,omitempty" validate:"required_if=DeliveryType delivery,max=300"`
	Comment      string `json:"comment,omitempty" validate:"max=1000"`
}

// Order is either a *ProductOrder or a *BouquetOrder.
type Order interface {
	Kind() Type
	Contact() Customer
}

// ProductOrder is an order for one catalog bouquet.
type ProductOrder struct {
	Customer
	ProductID    int    `json:"product_id"`
	ProductName  string `json:"product_name" validate:"required"`
	ProductPrice int    `json:"product_price" validate:"gte=0"`
	TimingType   string `json:"timing_type" validate:"required,oneof=urgent specific"`
	DeliveryTime string `json:"delivery_time,omitempty" validate:"required_if=TimingType specific,max=100"`
}

func (o *ProductOrder) Kind() Type        { return TypeProduct }
func (o *ProductOrder) Contact() Customer { return o.Customer }

// BouquetItem identifies a flower of the custom bouquet by catalog id.
type BouquetItem struct {
	FlowerID int `json:"flower_id" validate:"gt=0"`
	Quantity int `json:"quantity" validate:"gt=0"`
}

// BouquetOrder is an order for a bouquet assembled in the builder. Lines are
// the human readable "name × qty" entries; Items, when sent, let the server
// recompute lines and total from the live catalog.
type BouquetOrder struct {
	Customer
	Lines      []string      `json:"lines" validate:"required_without=Items,dive,required"`
	Items      []BouquetItem `json:"items,omitempty" validate:"required_without=Lines,dive"`
	TotalPrice int           `json:"total_price" validate:"gte=0"`
}

func (o *BouquetOrder) Kind() Type        { return TypeBouquet }
func (o *BouquetOrder) Contact() Customer { return o.Customer }

// ValidationError lists offending fields by their JSON name.
type ValidationError struct {
	Fields map[string]string `json:"fields"`
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for f, msg := range e.Fields {
		parts = append(parts, f+": "+msg)
	}
	return "invalid order: " + strings.Join(parts, "; ")
}

func invalid(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

// Parse decodes a JSON order using its "type" discriminator. A missing
// type means a single-product order.
func Parse(body []byte) (Order, error) {
	var envelope struct {
		Type Type `json:"type"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, invalid("body", "malformed JSON")
	}

	var o Order
	switch envelope.Type {
	case "", TypeProduct:
		o = &ProductOrder{}
	case TypeBouquet:
		o = &BouquetOrder{}
	default:
		return nil, invalid("type", fmt.Sprintf("unknown order type %q", envelope.Type))
	}
	if err := json.Unmarshal(body, o); err != nil {
		return nil, invalid("body", "malformed JSON")
	}
	return o, nil
}

// BouquetLine renders one "name × qty" entry.
func BouquetLine(name string, qty int) string {
	return fmt.Sprintf("%s × %d", name, qty)
}
