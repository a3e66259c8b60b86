package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/tjhart/mercato/internal/domain"
	"github.com/tjhart/mercato/internal/money"
)

const (
	getProductsByIDsSQL = `SELECT id, name, slug, price, available
	FROM products
	WHERE id = ANY($1)`

	getProductByIDSQL = `SELECT id, name, slug, price, available
	FROM products
	WHERE id = $1`
)

var _ domain.CatalogRepository = (*CatalogRepository)(nil)

// CatalogRepository implements domain.CatalogRepository backed by PostgreSQL.
type CatalogRepository struct {
	pool *pgxpool.Pool
}

// NewCatalogRepository returns a CatalogRepository that uses the given pool.
func NewCatalogRepository(pool *pgxpool.Pool) *CatalogRepository {
	return &CatalogRepository{pool: pool}
}

// GetByIDs fetches all products matching ids in one query. Ids without a
// matching row are absent from the result.
func (r *CatalogRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.Product, error) {
	rows, err := r.pool.Query(ctx, getProductsByIDsSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("querying products: %w", err)
	}
	defer rows.Close()

	var products []domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading products: %w", err)
	}

	return products, nil
}

// GetByID fetches a single product or domain.ErrProductNotFound.
func (r *CatalogRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	row := r.pool.QueryRow(ctx, getProductByIDSQL, id)

	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrProductNotFound
		}
		return nil, fmt.Errorf("querying product %q: %w", id, err)
	}

	return &p, nil
}

func scanProduct(row pgx.Row) (domain.Product, error) {
	var (
		p     domain.Product
		price decimal.Decimal
	)
	if err := row.Scan(&p.ID, &p.Name, &p.Slug, &price, &p.Available); err != nil {
		return domain.Product{}, err
	}
	p.Price = money.FromDecimal(price)
	return p, nil
}
