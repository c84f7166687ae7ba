package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/alextreichler/flowershop/internal/models"
)

const settingsColumns = `id, shop_open, delivery_enabled, shop_name, tagline, phone, address, instagram,
	about_enabled, about, schedule_enabled, schedule, delivery_price_enabled, delivery_price,
	delivery_info_enabled, delivery_info, updated_at`

// GetSettings returns the settings record or ErrNotFound before the first save.
func (s *Store) GetSettings(ctx context.Context) (*models.SiteSettings, error) {
	var st models.SiteSettings
	err := s.DB.GetContext(ctx, &st, `SELECT `+settingsColumns+` FROM settings ORDER BY id LIMIT 1`)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}
	return &st, nil
}

// CurrentSettings is GetSettings with defaults when nothing is saved yet.
func (s *Store) CurrentSettings(ctx context.Context) (models.SiteSettings, error) {
	st, err := s.GetSettings(ctx)
	if errors.Is(err, ErrNotFound) {
		return models.DefaultSettings(), nil
	}
	if err != nil {
		return models.SiteSettings{}, err
	}
	return *st, nil
}

// SaveSettings inserts the record on first save and updates it afterwards.
func (s *Store) SaveSettings(ctx context.Context, st *models.SiteSettings) error {
	existing, err := s.GetSettings(ctx)
	switch {
	case errors.Is(err, ErrNotFound):
		err = s.insertSettings(ctx, st)
	case err != nil:
		return err
	default:
		st.ID = existing.ID
		err = s.updateSettings(ctx, st)
	}
	if err != nil {
		return err
	}

	saved, err := s.GetSettings(ctx)
	if err != nil {
		return err
	}
	*st = *saved
	return nil
}

func (s *Store) insertSettings(ctx context.Context, st *models.SiteSettings) error {
	query := `
		INSERT INTO settings (shop_open, delivery_enabled, shop_name, tagline, phone, address, instagram,
			about_enabled, about, schedule_enabled, schedule, delivery_price_enabled, delivery_price,
			delivery_info_enabled, delivery_info)
		VALUES (:shop_open, :delivery_enabled, :shop_name, :tagline, :phone, :address, :instagram,
			:about_enabled, :about, :schedule_enabled, :schedule, :delivery_price_enabled, :delivery_price,
			:delivery_info_enabled, :delivery_info)
	`
	if _, err := s.DB.NamedExecContext(ctx, query, st); err != nil {
		return fmt.Errorf("failed to insert settings: %w", err)
	}
	return nil
}

func (s *Store) updateSettings(ctx context.Context, st *models.SiteSettings) error {
	query := `
		UPDATE settings SET
			shop_open = :shop_open, delivery_enabled = :delivery_enabled, shop_name = :shop_name,
			tagline = :tagline, phone = :phone, address = :address, instagram = :instagram,
			about_enabled = :about_enabled, about = :about,
			schedule_enabled = :schedule_enabled, schedule = :schedule,
			delivery_price_enabled = :delivery_price_enabled, delivery_price = :delivery_price,
			delivery_info_enabled = :delivery_info_enabled, delivery_info = :delivery_info,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = :id
	`
	if _, err := s.DB.NamedExecContext(ctx, query, st); err != nil {
		return fmt.Errorf("failed to update settings: %w", err)
	}
	return nil
}

// SetShopOpen is a partial update of the shop-open switch.
func (s *Store) SetShopOpen(ctx context.Context, open bool) (*models.SiteSettings, error) {
	return s.setFlag(ctx, "shop_open", open)
}

// SetDeliveryEnabled is a partial update of the delivery switch.
func (s *Store) SetDeliveryEnabled(ctx context.Context, enabled bool) (*models.SiteSettings, error) {
	return s.setFlag(ctx, "delivery_enabled", enabled)
}

func (s *Store) setFlag(ctx context.Context, column string, value bool) (*models.SiteSettings, error) {
	existing, err := s.GetSettings(ctx)
	if errors.Is(err, ErrNotFound) {
		st := models.DefaultSettings()
		switch column {
		case "shop_open":
			st.ShopOpen = value
		case "delivery_enabled":
			st.DeliveryEnabled = value
		}
		if err := s.SaveSettings(ctx, &st); err != nil {
			return nil, err
		}
		return &st, nil
	}
	if err != nil {
		return nil, err
	}

	// column comes from the two callers above, never from input
	query := s.DB.Rebind(`UPDATE settings SET ` + column + ` = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`)
	if _, err := s.DB.ExecContext(ctx, query, value, existing.ID); err != nil {
		return nil, fmt.Errorf("failed to update %s: %w", column, err)
	}
	return s.GetSettings(ctx)
}
