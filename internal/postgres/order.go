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
	createOrderSQL = `INSERT INTO orders
	(id, number, first_name, last_name, email, address, postal_code, city,
	 coupon_id, subtotal, discount, total, paid, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	createOrderLineSQL = `INSERT INTO order_items
	(id, order_id, product_id, name, unit_price, quantity)
	VALUES ($1, $2, $3, $4, $5, $6)`

	getOrderByIDSQL = `SELECT id, number, first_name, last_name, email, address,
	postal_code, city, coupon_id, subtotal, discount, total, paid, created_at
	FROM orders
	WHERE id = $1`

	getOrderLinesSQL = `SELECT id, order_id, product_id, name, unit_price, quantity
	FROM order_items
	WHERE order_id = $1
	ORDER BY name`
)

var _ domain.OrderRepository = (*OrderRepository)(nil)

// OrderRepository implements domain.OrderRepository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists the order and all of its lines in a single transaction.
// Either everything commits or nothing does; a failure part-way through
// leaves no partial order behind.
func (r *OrderRepository) Create(ctx context.Context, order *domain.Order) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("beginning order transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, createOrderSQL,
		order.ID, order.Number,
		order.FirstName, order.LastName, order.Email,
		order.Address, order.PostalCode, order.City,
		order.CouponID,
		order.Subtotal.Decimal(), order.Discount.Decimal(), order.Total.Decimal(),
		order.Paid, order.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting order %q: %w", order.ID, err)
	}

	for _, line := range order.Lines {
		_, err = tx.Exec(ctx, createOrderLineSQL,
			line.ID, order.ID, line.ProductID, line.Name,
			line.UnitPrice.Decimal(), line.Quantity,
		)
		if err != nil {
			return fmt.Errorf("inserting order line for product %q: %w", line.ProductID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing order %q: %w", order.ID, err)
	}

	return nil
}

// GetByID loads an order with its lines, or domain.ErrOrderNotFound.
func (r *OrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	var (
		o        domain.Order
		subtotal decimal.Decimal
		discount decimal.Decimal
		total    decimal.Decimal
	)
	err := r.pool.QueryRow(ctx, getOrderByIDSQL, id).Scan(
		&o.ID, &o.Number,
		&o.FirstName, &o.LastName, &o.Email,
		&o.Address, &o.PostalCode, &o.City,
		&o.CouponID, &subtotal, &discount, &total,
		&o.Paid, &o.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, fmt.Errorf("querying order %q: %w", id, err)
	}
	o.Subtotal = money.FromDecimal(subtotal)
	o.Discount = money.FromDecimal(discount)
	o.Total = money.FromDecimal(total)

	rows, err := r.pool.Query(ctx, getOrderLinesSQL, id)
	if err != nil {
		return nil, fmt.Errorf("querying order lines for %q: %w", id, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			line  domain.OrderLine
			price decimal.Decimal
		)
		if err := rows.Scan(&line.ID, &line.OrderID, &line.ProductID, &line.Name, &price, &line.Quantity); err != nil {
			return nil, fmt.Errorf("scanning order line: %w", err)
		}
		line.UnitPrice = money.FromDecimal(price)
		o.Lines = append(o.Lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading order lines: %w", err)
	}

	return &o, nil
}
