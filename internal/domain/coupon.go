package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Coupon domain errors.
var (
	ErrCouponNotFound = &Error{Code: ENOTFOUND, Message: "Coupon not found"}
	ErrCouponExpired  = &Error{Code: EINVALID, Message: "Coupon is outside its validity window"}
)

// Coupon is a percentage discount valid inside a date range. The cart only
// ever references a coupon by id; the record itself is immutable from the
// cart's perspective.
type Coupon struct {
	ID              uuid.UUID
	Code            string
	DiscountPercent int
	ValidFrom       time.Time
	ValidTo         time.Time
	Active          bool
}

// ValidAt reports whether the coupon can be applied at the given instant.
func (c *Coupon) ValidAt(t time.Time) bool {
	return c.Active && !t.Before(c.ValidFrom) && !t.After(c.ValidTo)
}

// CouponRepository supplies coupon records by id or code.
type CouponRepository interface {
	// GetByID returns the coupon or ErrCouponNotFound.
	GetByID(ctx context.Context, id uuid.UUID) (*Coupon, error)

	// GetByCode returns the coupon or ErrCouponNotFound. Codes are matched
	// case-insensitively.
	GetByCode(ctx context.Context, code string) (*Coupon, error)
}
