// Package coupon resolves cart coupon references into discount rates.
package coupon

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/tjhart/mercato/internal/domain"
	"github.com/tjhart/mercato/internal/money"
)

// Resolver validates coupon references against storage and their validity
// window. Resolution is best-effort by contract: an absent, expired, or
// unreadable coupon yields no discount, never an error to the caller.
type Resolver struct {
	repo   domain.CouponRepository
	logger *slog.Logger
	now    func() time.Time
}

// NewResolver creates a Resolver backed by the given repository.
func NewResolver(repo domain.CouponRepository, logger *slog.Logger) *Resolver {
	return &Resolver{
		repo:   repo,
		logger: logger,
		now:    time.Now,
	}
}

// Resolve returns the coupon for id when it exists and is inside its
// validity window, and nil otherwise. Storage failures are logged and
// treated as no coupon.
func (r *Resolver) Resolve(ctx context.Context, id uuid.UUID) *domain.Coupon {
	c, err := r.repo.GetByID(ctx, id)
	if err != nil {
		if !errors.Is(err, domain.ErrCouponNotFound) {
			r.logger.Warn("coupon lookup failed", "coupon_id", id, "error", err)
		}
		return nil
	}

	if !c.ValidAt(r.now()) {
		return nil
	}

	return c
}

// ResolveCode looks up a coupon by its user-facing code. Unlike Resolve
// this surfaces why the code was rejected, so the apply-coupon flow can
// tell the customer; once applied, the cart goes back to the forgiving
// Resolve path.
func (r *Resolver) ResolveCode(ctx context.Context, code string) (*domain.Coupon, error) {
	c, err := r.repo.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	if !c.ValidAt(r.now()) {
		return nil, domain.ErrCouponExpired
	}

	return c, nil
}

// Discount returns the coupon's share of total: discount_percent of the
// amount, rounded at the currency unit. A nil coupon discounts nothing.
func Discount(c *domain.Coupon, total money.Money) money.Money {
	if c == nil {
		return money.Zero()
	}
	return total.Percent(c.DiscountPercent)
}
