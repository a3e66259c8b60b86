// Package cart implements the session-backed shopping cart engine.
//
// The cart is an in-memory structure over the session-stored line items.
// Unit prices are snapshots taken when a product is first added; they are
// preserved verbatim in the session even if the catalog price later
// changes, until the line is removed and re-added. The iterate-time join
// (Resolve) reconciles lines against live catalog data in a single batch
// fetch; Total deliberately does not and sums the raw stored lines.
package cart

import (
	"github.com/google/uuid"

	"github.com/tjhart/mercato/internal/domain"
	"github.com/tjhart/mercato/internal/money"
)

// Cart domain errors.
var (
	ErrInvalidQuantity = &domain.Error{Code: domain.EINVALID, Message: "Quantity must be greater than 0"}
)

// Line is one cart line: how many of a product at the snapshotted price.
type Line struct {
	ProductID uuid.UUID
	Quantity  int
	UnitPrice money.Money
}

// Cart is a session's cart as loaded from the session store. It is a plain
// value; all persistence goes through the Engine.
type Cart struct {
	SessionID string
	Lines     map[uuid.UUID]Line
	CouponID  uuid.NullUUID
}

// ResolvedItem is a read-only view of a cart line joined with the current
// catalog row. TotalPrice is unit price times quantity at the currency
// unit; the unit price is always the stored snapshot, never the catalog's
// current price.
type ResolvedItem struct {
	Product    domain.Product
	Quantity   int
	UnitPrice  money.Money
	TotalPrice money.Money
}

// Total sums unit price times quantity over all stored lines. It uses the
// raw stored data and does not consult the catalog, so lines whose product
// has vanished from the catalog still count here.
func (c *Cart) Total() money.Money {
	total := money.Zero()
	for _, line := range c.Lines {
		total = total.Add(line.UnitPrice.MulInt(line.Quantity))
	}
	return total
}

// ItemCount returns the sum of quantities across all lines.
func (c *Cart) ItemCount() int {
	n := 0
	for _, line := range c.Lines {
		n += line.Quantity
	}
	return n
}

// IsEmpty reports whether the cart has no lines.
func (c *Cart) IsEmpty() bool {
	return len(c.Lines) == 0
}
