// Package session stores the serialized cart for each browser session.
//
// The store holds one opaque record per session id: the line-item map
// (product id to quantity and price-snapshot text) plus an optional coupon
// reference. It is the single shared mutable resource in the cart core, so
// every mutation goes through Update, which is an atomic read-modify-write
// per session id.
package session

import (
	"context"

	"github.com/tjhart/mercato/internal/domain"
)

// Session-level domain errors.
var (
	// ErrUnavailable means the backing store could not be reached. Callers
	// must treat it as fatal for the current operation; no partial state
	// has been written.
	ErrUnavailable = &domain.Error{Code: domain.EUNAVAILABLE, Message: "Session store unavailable"}

	// ErrCorrupt means a stored record failed validation on decode.
	ErrCorrupt = &domain.Error{Code: domain.EINTERNAL, Message: "Session record is corrupt"}

	// ErrConflict means an Update lost the optimistic race too many times.
	ErrConflict = &domain.Error{Code: domain.ECONFLICT, Message: "Session record was modified concurrently"}
)

// Line is the stored form of one cart line. Price is the decimal-as-text
// snapshot taken when the product was first added; it is preserved verbatim
// even if the catalog price later changes.
type Line struct {
	Quantity int    `json:"quantity"`
	Price    string `json:"price"`
}

// Record is the stored form of a session's cart.
type Record struct {
	// Items maps product id (string form) to its stored line.
	Items map[string]Line `json:"items"`

	// CouponID is the optional coupon reference, empty when none applied.
	CouponID string `json:"coupon_id,omitempty"`
}

// NewRecord returns an empty record ready for line insertion.
func NewRecord() *Record {
	return &Record{Items: make(map[string]Line)}
}

// Store is the session-keyed persistence for cart records.
type Store interface {
	// Get returns the record for the session, or nil when the session has
	// no cart yet. Reading never creates state.
	Get(ctx context.Context, sessionID string) (*Record, error)

	// Set overwrites the record for the session.
	Set(ctx context.Context, sessionID string, rec *Record) error

	// Delete removes the record; deleting an absent record is a no-op.
	Delete(ctx context.Context, sessionID string) error

	// Update applies fn to the current record (an empty record when the
	// session has no cart) and persists the result as one atomic unit per
	// session id: two racing Updates for the same session never lose a
	// write. If fn returns an error nothing is persisted.
	Update(ctx context.Context, sessionID string, fn func(rec *Record) error) (*Record, error)
}
