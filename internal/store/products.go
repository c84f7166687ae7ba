package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/alextreichler/flowershop/internal/models"
)

const productColumns = `id, name, description, price, discount, image_url, available, created_at`

// ListProducts returns products newest first, optionally only the ones on sale.
func (s *Store) ListProducts(ctx context.Context, onlyAvailable bool) ([]models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products`
	if onlyAvailable {
		query += ` WHERE available = ?`
	}
	query += ` ORDER BY created_at DESC, id DESC`

	var args []interface{}
	if onlyAvailable {
		args = append(args, true)
	}

	products := []models.Product{}
	if err := s.DB.SelectContext(ctx, &products, s.DB.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return products, nil
}

func (s *Store) GetProduct(ctx context.Context, id int) (*models.Product, error) {
	var p models.Product
	err := s.DB.GetContext(ctx, &p, s.DB.Rebind(`SELECT `+productColumns+` FROM products WHERE id = ?`), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get product %d: %w", id, err)
	}
	return &p, nil
}

// CreateProduct inserts p and fills in its id and creation time.
func (s *Store) CreateProduct(ctx context.Context, p *models.Product) error {
	query := `
		INSERT INTO products (name, description, price, discount, image_url, available)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id
	`
	var id int
	err := s.DB.QueryRowxContext(ctx, s.DB.Rebind(query),
		p.Name, p.Description, p.Price, p.Discount, p.ImageURL, p.Available).Scan(&id)
	if err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}

	created, err := s.GetProduct(ctx, id)
	if err != nil {
		return err
	}
	*p = *created
	return nil
}

func (s *Store) UpdateProduct(ctx context.Context, p *models.Product) error {
	query := `
		UPDATE products
		SET name = ?, description = ?, price = ?, discount = ?, image_url = ?, available = ?
		WHERE id = ?
	`
	res, err := s.DB.ExecContext(ctx, s.DB.Rebind(query),
		p.Name, p.Description, p.Price, p.Discount, p.ImageURL, p.Available, p.ID)
	if err != nil {
		return fmt.Errorf("failed to update product %d: %w", p.ID, err)
	}
	return expectAffected(res)
}

func (s *Store) DeleteProduct(ctx context.Context, id int) error {
	res, err := s.DB.ExecContext(ctx, s.DB.Rebind(`DELETE FROM products WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("failed to delete product %d: %w", id, err)
	}
	return expectAffected(res)
}

// ImportProducts inserts all products in one transaction.
func (s *Store) ImportProducts(ctx context.Context, products []models.Product) (int, error) {
	tx, err := s.DB.BeginTxx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	query := tx.Rebind(`
		INSERT INTO products (name, description, price, discount, image_url, available)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	for i, p := range products {
		if _, err := tx.ExecContext(ctx, query, p.Name, p.Description, p.Price, p.Discount, p.ImageURL, p.Available); err != nil {
			return 0, fmt.Errorf("failed to import product %d (%s): %w", i+1, p.Name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(products), nil
}

func expectAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
