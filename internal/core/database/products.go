package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/markdave123-py/salesbrain/internal/core"
	"github.com/markdave123-py/salesbrain/internal/models"
)

func (c *DatabaseClient) CreateProduct(ctx context.Context, p *models.Product) error {
	if p == nil {
		return errors.New("nil product")
	}
	const q = `
		INSERT INTO products (id, name, description, system_prompt, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, now(), now())
		RETURNING created_at, updated_at
	`
	err := c.db.QueryRowContext(ctx, q, p.ID, p.Name, p.Description, p.SystemPrompt, p.CreatedBy).
		Scan(&p.CreatedAt, &p.UpdatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %s", core.ErrProductExists, p.Name)
	}
	return err
}

func (c *DatabaseClient) GetProductByID(ctx context.Context, id string) (*models.Product, error) {
	const q = `
		SELECT id, name, description, system_prompt, created_by, created_at, updated_at
		FROM products WHERE id = $1
	`
	var p models.Product
	err := c.db.QueryRowContext(ctx, q, id).Scan(
		&p.ID, &p.Name, &p.Description, &p.SystemPrompt, &p.CreatedBy, &p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListProducts returns the catalog in a stable order so derived tool names are reproducible.
func (c *DatabaseClient) ListProducts(ctx context.Context) ([]models.Product, error) {
	const q = `
		SELECT id, name, description, system_prompt, created_by, created_at, updated_at
		FROM products
		ORDER BY created_at ASC, id ASC
	`
	rows, err := c.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Product
	for rows.Next() {
		var p models.Product
		if err := rows.Scan(
			&p.ID, &p.Name, &p.Description, &p.SystemPrompt, &p.CreatedBy, &p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// DeleteProduct removes the product; its documents and chunks cascade.
func (c *DatabaseClient) DeleteProduct(ctx context.Context, id string) error {
	res, err := c.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return core.ErrProductNotFound
	}
	return nil
}
