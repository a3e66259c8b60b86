package cart

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/tjhart/mercato/internal/coupon"
	"github.com/tjhart/mercato/internal/domain"
	"github.com/tjhart/mercato/internal/money"
	"github.com/tjhart/mercato/internal/session"
)

// Engine provides cart operations over the session store. Every operation
// takes the session id explicitly; there is no ambient session state. All
// mutations are atomic read-modify-write units per session id, so two
// racing mutations for the same session never lose a write.
type Engine struct {
	sessions session.Store
	catalog  domain.CatalogRepository
	coupons  *coupon.Resolver
	logger   *slog.Logger
}

// NewEngine creates a cart Engine.
func NewEngine(sessions session.Store, catalog domain.CatalogRepository, coupons *coupon.Resolver, logger *slog.Logger) *Engine {
	return &Engine{
		sessions: sessions,
		catalog:  catalog,
		coupons:  coupons,
		logger:   logger,
	}
}

// Load fetches the cart for the session, or an empty cart when the session
// has none yet. Loading is idempotent and never writes: the empty cart is
// only persisted once a mutation happens.
func (e *Engine) Load(ctx context.Context, sessionID string) (*Cart, error) {
	rec, err := e.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		rec = session.NewRecord()
	}

	return fromRecord(sessionID, rec)
}

// Add puts quantity of the product into the cart. If the product is not in
// the cart yet a line is created with the product's current price as its
// snapshot. With override the quantity is set; otherwise it accumulates.
// Quantities below 1 are rejected with ErrInvalidQuantity.
func (e *Engine) Add(ctx context.Context, sessionID string, product domain.Product, quantity int, override bool) (*Cart, error) {
	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}

	rec, err := e.sessions.Update(ctx, sessionID, func(rec *session.Record) error {
		key := product.ID.String()
		line, ok := rec.Items[key]
		if !ok {
			line = session.Line{Quantity: 0, Price: product.Price.String()}
		}
		if override {
			line.Quantity = quantity
		} else {
			line.Quantity += quantity
		}
		rec.Items[key] = line
		return nil
	})
	if err != nil {
		return nil, err
	}

	return fromRecord(sessionID, rec)
}

// Remove deletes the line for the product. Removing a product that is not
// in the cart is a no-op, not an error.
func (e *Engine) Remove(ctx context.Context, sessionID string, productID uuid.UUID) (*Cart, error) {
	rec, err := e.sessions.Update(ctx, sessionID, func(rec *session.Record) error {
		delete(rec.Items, productID.String())
		return nil
	})
	if err != nil {
		return nil, err
	}

	return fromRecord(sessionID, rec)
}

// Clear deletes the entire cart from session storage. A subsequent Load
// reinitializes an empty cart.
func (e *Engine) Clear(ctx context.Context, sessionID string) error {
	return e.sessions.Delete(ctx, sessionID)
}

// ApplyCoupon validates the code and stores the coupon reference beside the
// cart lines. Invalid or expired codes surface an error so the customer
// can be told; nothing is stored in that case.
func (e *Engine) ApplyCoupon(ctx context.Context, sessionID string, code string) (*Cart, error) {
	c, err := e.coupons.ResolveCode(ctx, code)
	if err != nil {
		return nil, err
	}

	rec, err := e.sessions.Update(ctx, sessionID, func(rec *session.Record) error {
		rec.CouponID = c.ID.String()
		return nil
	})
	if err != nil {
		return nil, err
	}

	return fromRecord(sessionID, rec)
}

// RemoveCoupon drops the coupon reference, leaving the lines untouched.
func (e *Engine) RemoveCoupon(ctx context.Context, sessionID string) (*Cart, error) {
	rec, err := e.sessions.Update(ctx, sessionID, func(rec *session.Record) error {
		rec.CouponID = ""
		return nil
	})
	if err != nil {
		return nil, err
	}

	return fromRecord(sessionID, rec)
}

// Resolve joins the cart's lines against live catalog data: one batch
// fetch for all product ids, then a merge. Lines whose product no longer
// exists in the catalog are skipped, not an error. The join is read-only
// and restartable; it never mutates stored state. Unit prices in the
// result are the stored snapshots.
func (e *Engine) Resolve(ctx context.Context, c *Cart) ([]ResolvedItem, error) {
	if len(c.Lines) == 0 {
		return nil, nil
	}

	ids := make([]uuid.UUID, 0, len(c.Lines))
	for id := range c.Lines {
		ids = append(ids, id)
	}

	products, err := e.catalog.GetByIDs(ctx, ids)
	if err != nil {
		return nil, domain.WrapError(err, domain.EINTERNAL, "cart.resolve", "failed to fetch products")
	}

	byID := make(map[uuid.UUID]domain.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	items := make([]ResolvedItem, 0, len(c.Lines))
	for id, line := range c.Lines {
		p, ok := byID[id]
		if !ok {
			e.logger.Debug("skipping cart line for missing product",
				"session_id", c.SessionID, "product_id", id)
			continue
		}
		items = append(items, ResolvedItem{
			Product:    p,
			Quantity:   line.Quantity,
			UnitPrice:  line.UnitPrice,
			TotalPrice: line.UnitPrice.MulInt(line.Quantity),
		})
	}

	return items, nil
}

// Coupon resolves the cart's coupon reference, or nil when none is applied
// or the reference no longer resolves to a valid coupon.
func (e *Engine) Coupon(ctx context.Context, c *Cart) *domain.Coupon {
	if !c.CouponID.Valid {
		return nil
	}
	return e.coupons.Resolve(ctx, c.CouponID.UUID)
}

// Discount returns the coupon's deduction from the cart total. It uses the
// unfiltered Total, not the catalog-joined resolution. No valid coupon
// means zero.
func (e *Engine) Discount(ctx context.Context, c *Cart) money.Money {
	return coupon.Discount(e.Coupon(ctx, c), c.Total())
}

// TotalAfterDiscount returns the cart total minus the coupon discount.
func (e *Engine) TotalAfterDiscount(ctx context.Context, c *Cart) money.Money {
	return c.Total().Sub(e.Discount(ctx, c))
}

// fromRecord converts a stored record into a Cart, decoding price text back
// into exact decimals.
func fromRecord(sessionID string, rec *session.Record) (*Cart, error) {
	c := &Cart{
		SessionID: sessionID,
		Lines:     make(map[uuid.UUID]Line, len(rec.Items)),
	}

	for key, stored := range rec.Items {
		id, err := uuid.Parse(key)
		if err != nil {
			return nil, fmt.Errorf("%w: bad product id %q: %w", session.ErrCorrupt, key, err)
		}
		price, err := money.Parse(stored.Price)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", session.ErrCorrupt, err)
		}
		c.Lines[id] = Line{
			ProductID: id,
			Quantity:  stored.Quantity,
			UnitPrice: price,
		}
	}

	if rec.CouponID != "" {
		id, err := uuid.Parse(rec.CouponID)
		if err != nil {
			return nil, fmt.Errorf("%w: bad coupon id %q: %w", session.ErrCorrupt, rec.CouponID, err)
		}
		c.CouponID = uuid.NullUUID{UUID: id, Valid: true}
	}

	return c, nil
}
