// Package checkout converts a session cart into a durable order.
package checkout

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/tjhart/mercato/internal/cart"
	"github.com/tjhart/mercato/internal/domain"
	"github.com/tjhart/mercato/internal/money"
	"github.com/tjhart/mercato/internal/notify"
	"github.com/tjhart/mercato/internal/telemetry"
)

// CartEngine is the slice of the cart engine the conversion needs.
type CartEngine interface {
	Load(ctx context.Context, sessionID string) (*cart.Cart, error)
	Resolve(ctx context.Context, c *cart.Cart) ([]cart.ResolvedItem, error)
	Discount(ctx context.Context, c *cart.Cart) money.Money
	Clear(ctx context.Context, sessionID string) error
}

// Service performs the cart-to-order conversion.
//
// The conversion has two terminal outcomes: Completed (order and all lines
// durably written, cart cleared, notification dispatched) or Rejected
// (validation failure or commit failure, no side effects, cart untouched).
// The order and its lines are written in one storage transaction, so a
// failed or cancelled conversion can always be retried safely.
type Service struct {
	carts      CartEngine
	orders     domain.OrderRepository
	dispatcher notify.Dispatcher
	logger     *slog.Logger
	metrics    *telemetry.BusinessMetrics
	now        func() time.Time
}

// NewService creates a checkout Service.
func NewService(
	carts CartEngine,
	orders domain.OrderRepository,
	dispatcher notify.Dispatcher,
	logger *slog.Logger,
	metrics *telemetry.BusinessMetrics,
) *Service {
	return &Service{
		carts:      carts,
		orders:     orders,
		dispatcher: dispatcher,
		logger:     logger,
		metrics:    metrics,
		now:        time.Now,
	}
}

// Convert snapshots the session's cart into an order.
//
// Order lines are built from the already-resolved cart lines: the unit
// price is the cart's add-time snapshot, never a re-fetched catalog price.
// The cart is cleared only after the order has durably committed, and the
// notification is dispatched only after the clear; neither can undo the
// order. Notification failure or delay never reaches the caller.
func (s *Service) Convert(ctx context.Context, sessionID string, form domain.OrderForm) (*domain.Order, error) {
	c, err := s.carts.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	items, err := s.carts.Resolve(ctx, c)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, domain.ErrEmptyCart
	}

	number, err := generateOrderNumber(s.now())
	if err != nil {
		return nil, domain.WrapError(err, domain.EINTERNAL, "checkout.convert", "failed to generate order number")
	}

	subtotal := money.Zero()
	lines := make([]domain.OrderLine, 0, len(items))
	orderID := uuid.New()
	for _, item := range items {
		subtotal = subtotal.Add(item.TotalPrice)
		lines = append(lines, domain.OrderLine{
			ID:        uuid.New(),
			OrderID:   orderID,
			ProductID: item.Product.ID,
			Name:      item.Product.Name,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
		})
	}

	discount := s.carts.Discount(ctx, c)
	total := subtotal.Sub(discount)
	if total.IsNegative() {
		total = money.Zero()
	}

	order := &domain.Order{
		ID:         orderID,
		Number:     number,
		FirstName:  form.FirstName,
		LastName:   form.LastName,
		Email:      form.Email,
		Address:    form.Address,
		PostalCode: form.PostalCode,
		City:       form.City,
		CouponID:   c.CouponID,
		Subtotal:   subtotal.Round(),
		Discount:   discount.Round(),
		Total:      total.Round(),
		Paid:       false,
		CreatedAt:  s.now(),
		Lines:      lines,
	}

	if err := s.orders.Create(ctx, order); err != nil {
		return nil, domain.WrapError(err, domain.EINTERNAL, "checkout.convert", domain.ErrOrderCommitFailed.Message)
	}

	// The order is durable from here on; clear and notify cannot undo it.
	if err := s.carts.Clear(ctx, sessionID); err != nil {
		s.logger.Error("cart clear failed after order commit",
			"order_id", order.ID, "session_id", sessionID, "error", err)
	}

	s.metrics.OrdersCreated.Inc()
	totalValue, _ := order.Total.Decimal().Float64()
	s.metrics.OrderValue.Observe(totalValue)

	s.dispatcher.Dispatch(ctx, order.ID)

	s.logger.Info("order created",
		"order_id", order.ID, "order_number", order.Number,
		"lines", len(order.Lines), "total", order.Total.StringFixed())

	return order, nil
}

const orderNumberAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

// generateOrderNumber builds a human-referenceable order number of the form
// ORD-YYYYMMDD-XXXX with a random alphanumeric suffix.
func generateOrderNumber(now time.Time) (string, error) {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	for i := range b {
		b[i] = orderNumberAlphabet[int(b[i])%len(orderNumberAlphabet)]
	}

	return fmt.Sprintf("ORD-%s-%s", now.Format("20060102"), b), nil
}
