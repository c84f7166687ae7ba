package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/alextreichler/flowershop/internal/models"
)

const flowerColumns = `id, name, description, price, image_url, available, created_at`

func (s *Store) ListFlowers(ctx context.Context, onlyAvailable bool) ([]models.Flower, error) {
	query := `SELECT ` + flowerColumns + ` FROM flowers`
	var args []interface{}
	if onlyAvailable {
		query += ` WHERE available = ?`
		args = append(args, true)
	}
	query += ` ORDER BY created_at DESC, id DESC`

	flowers := []models.Flower{}
	if err := s.DB.SelectContext(ctx, &flowers, s.DB.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to list flowers: %w", err)
	}
	return flowers, nil
}

func (s *Store) GetFlower(ctx context.Context, id int) (*models.Flower, error) {
	var f models.Flower
	err := s.DB.GetContext(ctx, &f, s.DB.Rebind(`SELECT `+flowerColumns+` FROM flowers WHERE id = ?`), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get flower %d: %w", id, err)
	}
	return &f, nil
}

func (s *Store) CreateFlower(ctx context.Context, f *models.Flower) error {
	query := `
		INSERT INTO flowers (name, description, price, image_url, available)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id
	`
	var id int
	err := s.DB.QueryRowxContext(ctx, s.DB.Rebind(query),
		f.Name, f.Description, f.Price, f.ImageURL, f.Available).Scan(&id)
	if err != nil {
		return fmt.Errorf("failed to create flower: %w", err)
	}

	created, err := s.GetFlower(ctx, id)
	if err != nil {
		return err
	}
	*f = *created
	return nil
}

func (s *Store) UpdateFlower(ctx context.Context, f *models.Flower) error {
	query := `
		UPDATE flowers
		SET name = ?, description = ?, price = ?, image_url = ?, available = ?
		WHERE id = ?
	`
	res, err := s.DB.ExecContext(ctx, s.DB.Rebind(query),
		f.Name, f.Description, f.Price, f.ImageURL, f.Available, f.ID)
	if err != nil {
		return fmt.Errorf("failed to update flower %d: %w", f.ID, err)
	}
	return expectAffected(res)
}

func (s *Store) DeleteFlower(ctx context.Context, id int) error {
	res, err := s.DB.ExecContext(ctx, s.DB.Rebind(`DELETE FROM flowers WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("failed to delete flower %d: %w", id, err)
	}
	return expectAffected(res)
}
