package domain

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/tjhart/mercato/internal/money"
)

// Order domain errors.
var (
	ErrOrderNotFound     = &Error{Code: ENOTFOUND, Message: "Order not found"}
	ErrEmptyCart         = &Error{Code: EINVALID, Message: "Cart is empty"}
	ErrOrderCommitFailed = &Error{Code: EINTERNAL, Message: "Order could not be saved"}
)

// Order is the durable record created exactly once per checkout. Lines
// snapshot the cart at conversion time and are never retroactively mutated
// by the cart subsystem.
type Order struct {
	ID         uuid.UUID
	Number     string
	FirstName  string
	LastName   string
	Email      string
	Address    string
	PostalCode string
	City       string
	CouponID   uuid.NullUUID
	Subtotal   money.Money
	Discount   money.Money
	Total      money.Money
	Paid       bool
	CreatedAt  time.Time
	Lines      []OrderLine
}

// OrderLine snapshots one cart line: product reference, the unit price the
// cart captured at add time, and the quantity at conversion.
type OrderLine struct {
	ID        uuid.UUID
	OrderID   uuid.UUID
	ProductID uuid.UUID
	Name      string
	UnitPrice money.Money
	Quantity  int
}

// Subtotal returns unit price times quantity, rounded to the currency unit.
func (l OrderLine) Subtotal() money.Money {
	return l.UnitPrice.MulInt(l.Quantity)
}

// OrderForm carries the validated customer fields submitted at checkout.
// Field-level validation happens before conversion; the conversion only
// requires the schema-mandated fields to be present.
type OrderForm struct {
	FirstName  string
	LastName   string
	Email      string
	Address    string
	PostalCode string
	City       string
}

// OrderRepository persists orders. Create must write the order and all of
// its lines atomically: either everything commits or nothing does.
type OrderRepository interface {
	Create(ctx context.Context, order *Order) error

	// GetByID returns the order with its lines, or ErrOrderNotFound.
	GetByID(ctx context.Context, id uuid.UUID) (*Order, error)
}
