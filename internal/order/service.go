// Package order validates customer orders, renders them into a message for
// the shop and hands the message to the notification channel. Orders are
// not stored; the channel is the only record.
package order

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/alextreichler/flowershop/internal/i18n"
	"github.com/alextreichler/flowershop/internal/models"
	"github.com/alextreichler/flowershop/internal/notify"
	"github.com/alextreichler/flowershop/internal/store"
)

//go:embed templates/*.html
var templatesFS embed.FS

var (
	ErrNotConfigured = notify.ErrNotConfigured
	ErrDelivery      = notify.ErrDelivery
	ErrShopClosed    = errors.New("shop is closed")
)

// CatalogReader gives the service access to live prices and availability.
type CatalogReader interface {
	GetProduct(ctx context.Context, id int) (*models.Product, error)
	GetFlower(ctx context.Context, id int) (*models.Flower, error)
}

type Service struct {
	notifier notify.Notifier
	catalog  CatalogReader
	validate *validator.Validate
	messages *template.Template
	lang     string
}

// NewService wires the notifier and, optionally, a catalog used to
// re-check prices and availability. With a nil catalog client totals are
// trusted.
func NewService(notifier notify.Notifier, catalog CatalogReader) (*Service, error) {
	tmpl, err := template.ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse message templates: %w", err)
	}
	return &Service{
		notifier: notifier,
		catalog:  catalog,
		validate: NewValidator(),
		messages: tmpl,
		lang:     i18n.Russian,
	}, nil
}

var georgianPhone = regexp.MustCompile(`^995\d{9}$`)

// NormalizePhone strips the formatting characters customers tend to type.
func NormalizePhone(phone string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '(', ')', '+', '.':
			return -1
		}
		return r
	}, phone)
}

// IsGeorgianPhone accepts 995 followed by nine digits, ignoring formatting.
func IsGeorgianPhone(phone string) bool {
	return georgianPhone.MatchString(NormalizePhone(phone))
}

// NewValidator returns a validator that reports JSON field names and knows
// the ge_phone rule.
func NewValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("ge_phone", func(fl validator.FieldLevel) bool {
		return IsGeorgianPhone(fl.Field().String())
	})
	return v
}

// Validate checks o without touching the network or the catalog.
func (s *Service) Validate(o Order, shop models.ShopState) error {
	if err := s.validate.Struct(o); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			out := &ValidationError{Fields: make(map[string]string, len(verrs))}
			for _, fe := range verrs {
				out.Fields[fe.Field()] = describe(fe)
			}
			return out
		}
		return fmt.Errorf("order validation: %w", err)
	}
	if o.Contact().DeliveryType == DeliveryTypeDelivery && !shop.DeliveryEnabled {
		return invalid("delivery_type", "delivery is currently unavailable")
	}
	return nil
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_without", "required_if":
		return "is required"
	case "min":
		return "must be at least " + fe.Param() + " characters"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "ge_phone":
		return "must be a Georgian number (+995 XXX XXX XXX)"
	case "gt", "gte":
		return "must be a positive number"
	}
	return "is invalid"
}

// Submit validates the order, reconciles it with the catalog, formats the
// message and sends it. Nothing is retried.
func (s *Service) Submit(ctx context.Context, o Order, shop models.ShopState) error {
	if !shop.Open {
		return ErrShopClosed
	}
	if err := s.Validate(o, shop); err != nil {
		return err
	}
	if err := s.reconcile(ctx, o); err != nil {
		return err
	}

	text, err := s.Format(o)
	if err != nil {
		slog.Error("Failed to format order message", "error", err)
		return err
	}

	if err := s.notifier.Notify(ctx, text); err != nil {
		slog.Error("Failed to deliver order", "type", o.Kind(), "error", err)
		return err
	}

	slog.Info("Order delivered", "type", o.Kind(), "customer", o.Contact().Name)
	return nil
}

// reconcile replaces client-supplied names and prices with catalog data.
func (s *Service) reconcile(ctx context.Context, o Order) error {
	if s.catalog == nil {
		return nil
	}
	switch o := o.(type) {
	case *ProductOrder:
		if o.ProductID <= 0 {
			return nil
		}
		p, err := s.catalog.GetProduct(ctx, o.ProductID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return invalid("product_id", "unknown product")
			}
			return fmt.Errorf("failed to load product %d: %w", o.ProductID, err)
		}
		if !p.Available {
			return invalid("product_id", "product is not available")
		}
		o.ProductName = p.Name
		o.ProductPrice = p.EffectivePrice()

	case *BouquetOrder:
		if len(o.Items) == 0 {
			return nil
		}
		lines := make([]string, 0, len(o.Items))
		total := 0
		for _, it := range o.Items {
			f, err := s.catalog.GetFlower(ctx, it.FlowerID)
			if err != nil {
				if errors.Is(err, store.ErrNotFound) {
					return invalid("items", fmt.Sprintf("unknown flower %d", it.FlowerID))
				}
				return fmt.Errorf("failed to load flower %d: %w", it.FlowerID, err)
			}
			if !f.Available {
				return invalid("items", f.Name+" is not available")
			}
			lines = append(lines, BouquetLine(f.Name, it.Quantity))
			total += f.Price * it.Quantity
		}
		o.Lines = lines
		o.TotalPrice = total
	}
	return nil
}

type messageData struct {
	Customer
	DeliveryLabel string
	TimingLabel   string

	ProductName  string
	ProductPrice int
	DeliveryTime string

	Lines      []string
	TotalPrice int
}

// Format renders the notification text in Telegram's HTML subset.
func (s *Service) Format(o Order) (string, error) {
	data := messageData{
		Customer:      o.Contact(),
		DeliveryLabel: i18n.T("order."+o.Contact().DeliveryType, s.lang),
	}

	var name string
	switch o := o.(type) {
	case *ProductOrder:
		name = "product.html"
		data.ProductName = o.ProductName
		data.ProductPrice = o.ProductPrice
		data.DeliveryTime = o.DeliveryTime
		data.TimingLabel = i18n.T("order."+o.TimingType, s.lang)
	case *BouquetOrder:
		name = "bouquet.html"
		data.Lines = o.Lines
		data.TotalPrice = o.TotalPrice
	default:
		return "", fmt.Errorf("unsupported order %T", o)
	}

	var buf bytes.Buffer
	if err := s.messages.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("failed to render %s: %w", name, err)
	}
	return strings.TrimSpace(buf.String()), nil
}
