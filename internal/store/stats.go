package store

import (
	"context"
	"fmt"
)

type DashboardStats struct {
	TotalProducts      int  `json:"total_products"`
	AvailableProducts  int  `json:"available_products"`
	DiscountedProducts int  `json:"discounted_products"`
	TotalFlowers       int  `json:"total_flowers"`
	AvailableFlowers   int  `json:"available_flowers"`
	ShopOpen           bool `json:"shop_open"`
	DeliveryEnabled    bool `json:"delivery_enabled"`
}

func (s *Store) GetDashboardStats(ctx context.Context) (*DashboardStats, error) {
	stats := &DashboardStats{}

	// 1. Products
	err := s.DB.QueryRowxContext(ctx, s.DB.Rebind(`
		SELECT COUNT(*),
			COALESCE(SUM(CASE WHEN available = ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN discount > 0 THEN 1 ELSE 0 END), 0)
		FROM products`), true).
		Scan(&stats.TotalProducts, &stats.AvailableProducts, &stats.DiscountedProducts)
	if err != nil {
		return nil, fmt.Errorf("failed to count products: %w", err)
	}

	// 2. Flowers
	err = s.DB.QueryRowxContext(ctx, s.DB.Rebind(`
		SELECT COUNT(*), COALESCE(SUM(CASE WHEN available = ? THEN 1 ELSE 0 END), 0)
		FROM flowers`), true).
		Scan(&stats.TotalFlowers, &stats.AvailableFlowers)
	if err != nil {
		return nil, fmt.Errorf("failed to count flowers: %w", err)
	}

	// 3. Switches
	settings, err := s.CurrentSettings(ctx)
	if err != nil {
		return nil, err
	}
	stats.ShopOpen = settings.ShopOpen
	stats.DeliveryEnabled = settings.DeliveryEnabled

	return stats, nil
}
