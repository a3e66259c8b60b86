package notify

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// LogPublisher records notifications to the log. Used when no broker is
// configured, typically in development.
type LogPublisher struct {
	logger *slog.Logger
}

// NewLogPublisher creates a LogPublisher.
func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

var _ Publisher = (*LogPublisher)(nil)

// Publish logs the order id.
func (p *LogPublisher) Publish(_ context.Context, orderID uuid.UUID) error {
	p.logger.Info("order created", "order_id", orderID)
	return nil
}
