// Package notify dispatches order-created notifications.
//
// Dispatch is fire-and-forget: the checkout request hands over an order id
// and moves on. Publish failures are logged and counted, never propagated
// back into the request path.
package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tjhart/mercato/internal/telemetry"
)

// Dispatcher accepts an order id for asynchronous delivery. Implementations
// must not block the caller beyond a queue handoff.
type Dispatcher interface {
	Dispatch(ctx context.Context, orderID uuid.UUID)
}

// Publisher performs the actual (possibly slow) delivery of one
// notification. It runs on the dispatcher's goroutine, not the request's.
type Publisher interface {
	Publish(ctx context.Context, orderID uuid.UUID) error
}

// publishTimeout bounds a single delivery attempt.
const publishTimeout = 10 * time.Second

// AsyncDispatcher queues notifications onto a bounded channel drained by a
// single worker goroutine. When the queue is full the notification is
// dropped with a log line rather than blocking the checkout request.
type AsyncDispatcher struct {
	publisher Publisher
	queue     chan uuid.UUID
	logger    *slog.Logger
	metrics   *telemetry.BusinessMetrics

	startOnce sync.Once
	done      chan struct{}
}

// NewAsyncDispatcher creates an AsyncDispatcher with the given queue depth.
func NewAsyncDispatcher(publisher Publisher, queueSize int, logger *slog.Logger, metrics *telemetry.BusinessMetrics) *AsyncDispatcher {
	if queueSize <= 0 {
		queueSize = 64
	}
	return &AsyncDispatcher{
		publisher: publisher,
		queue:     make(chan uuid.UUID, queueSize),
		logger:    logger,
		metrics:   metrics,
		done:      make(chan struct{}),
	}
}

var _ Dispatcher = (*AsyncDispatcher)(nil)

// Start launches the worker goroutine. It drains until ctx is cancelled,
// then finishes in-flight deliveries already dequeued and exits.
func (d *AsyncDispatcher) Start(ctx context.Context) {
	d.startOnce.Do(func() {
		go d.run(ctx)
	})
}

// Done is closed once the worker goroutine has exited.
func (d *AsyncDispatcher) Done() <-chan struct{} {
	return d.done
}

// Dispatch enqueues the order id without blocking. The request-scoped ctx
// is deliberately not carried into delivery: the notification outlives the
// request that triggered it.
func (d *AsyncDispatcher) Dispatch(_ context.Context, orderID uuid.UUID) {
	select {
	case d.queue <- orderID:
		d.metrics.NotificationsDispatched.Inc()
	default:
		d.metrics.NotificationsDropped.Inc()
		d.logger.Error("notification queue full, dropping", "order_id", orderID)
	}
}

func (d *AsyncDispatcher) run(ctx context.Context) {
	defer close(d.done)

	for {
		select {
		case <-ctx.Done():
			return
		case orderID := <-d.queue:
			d.publish(orderID)
		}
	}
}

func (d *AsyncDispatcher) publish(orderID uuid.UUID) {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	if err := d.publisher.Publish(ctx, orderID); err != nil {
		d.metrics.NotificationsFailed.Inc()
		d.logger.Error("notification publish failed", "order_id", orderID, "error", err)
		return
	}

	d.logger.Info("order notification published", "order_id", orderID)
}
