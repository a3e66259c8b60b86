package domain

import (
	"context"

	"github.com/google/uuid"

	"github.com/tjhart/mercato/internal/money"
)

// Product domain errors.
var (
	ErrProductNotFound = &Error{Code: ENOTFOUND, Message: "Product not found"}
)

// Product represents a catalog product as the cart subsystem sees it:
// identity, the current price, and display attributes.
type Product struct {
	ID        uuid.UUID
	Name      string
	Slug      string
	Price     money.Money
	Available bool
}

// CatalogRepository supplies live product data. The cart engine always
// fetches in a single batch so the iterate-time join stays one round trip.
type CatalogRepository interface {
	// GetByIDs returns the products matching the given ids. Ids with no
	// matching product are simply absent from the result, not an error.
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]Product, error)

	// GetByID returns a single product or ErrProductNotFound.
	GetByID(ctx context.Context, id uuid.UUID) (*Product, error)
}
