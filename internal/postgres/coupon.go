package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tjhart/mercato/internal/domain"
)

const (
	getCouponByIDSQL = `SELECT id, code, discount_percent, valid_from, valid_to, active
	FROM coupons
	WHERE id = $1`

	getCouponByCodeSQL = `SELECT id, code, discount_percent, valid_from, valid_to, active
	FROM coupons
	WHERE UPPER(code) = UPPER($1)`
)

var _ domain.CouponRepository = (*CouponRepository)(nil)

// CouponRepository implements domain.CouponRepository backed by PostgreSQL.
type CouponRepository struct {
	pool *pgxpool.Pool
}

// NewCouponRepository returns a CouponRepository that uses the given pool.
func NewCouponRepository(pool *pgxpool.Pool) *CouponRepository {
	return &CouponRepository{pool: pool}
}

// GetByID looks up a coupon by id, returning domain.ErrCouponNotFound when
// no row matches.
func (r *CouponRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Coupon, error) {
	return r.get(ctx, getCouponByIDSQL, id)
}

// GetByCode looks up a coupon by its code, case-insensitively.
func (r *CouponRepository) GetByCode(ctx context.Context, code string) (*domain.Coupon, error) {
	return r.get(ctx, getCouponByCodeSQL, code)
}

func (r *CouponRepository) get(ctx context.Context, sql string, arg any) (*domain.Coupon, error) {
	var c domain.Coupon
	err := r.pool.QueryRow(ctx, sql, arg).Scan(
		&c.ID, &c.Code, &c.DiscountPercent, &c.ValidFrom, &c.ValidTo, &c.Active,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrCouponNotFound
		}
		return nil, fmt.Errorf("querying coupon: %w", err)
	}

	return &c, nil
}
