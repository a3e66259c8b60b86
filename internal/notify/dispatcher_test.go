package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tjhart/mercato/internal/telemetry"
)

// mockPublisher records published order ids on a channel
type mockPublisher struct {
	publishFunc func(ctx context.Context, orderID uuid.UUID) error
	published   chan uuid.UUID
}

func newMockPublisher() *mockPublisher {
	return &mockPublisher{published: make(chan uuid.UUID, 16)}
}

func (m *mockPublisher) Publish(ctx context.Context, orderID uuid.UUID) error {
	if m.publishFunc != nil {
		if err := m.publishFunc(ctx, orderID); err != nil {
			return err
		}
	}
	m.published <- orderID
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testMetrics() *telemetry.BusinessMetrics {
	return telemetry.NewBusinessMetrics(prometheus.NewRegistry(), "test")
}

func waitFor(t *testing.T, ch <-chan uuid.UUID) uuid.UUID {
	t.Helper()
	select {
	case id := <-ch:
		return id
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for publish")
		return uuid.Nil
	}
}

func TestDispatch_DeliversAsynchronously(t *testing.T) {
	publisher := newMockPublisher()
	d := NewAsyncDispatcher(publisher, 8, testLogger(), testMetrics())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.Start(ctx)

	orderID := uuid.New()
	d.Dispatch(context.Background(), orderID)

	assert.Equal(t, orderID, waitFor(t, publisher.published))
}

func TestDispatch_FullQueueDropsInsteadOfBlocking(t *testing.T) {
	publisher := newMockPublisher()
	// Worker not started: the queue fills and stays full
	d := NewAsyncDispatcher(publisher, 1, testLogger(), testMetrics())

	first := uuid.New()
	d.Dispatch(context.Background(), first)

	done := make(chan struct{})
	go func() {
		defer close(done)
		d.Dispatch(context.Background(), uuid.New())
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Dispatch blocked on a full queue")
	}

	// Only the first notification survives once the worker starts
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.Start(ctx)

	assert.Equal(t, first, waitFor(t, publisher.published))
	select {
	case id := <-publisher.published:
		t.Fatalf("dropped notification was delivered: %s", id)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestDispatch_PublishFailureDoesNotStopTheWorker(t *testing.T) {
	calls := 0
	publisher := newMockPublisher()
	publisher.publishFunc = func(ctx context.Context, orderID uuid.UUID) error {
		calls++
		if calls == 1 {
			return errors.New("broker unavailable")
		}
		return nil
	}

	d := NewAsyncDispatcher(publisher, 8, testLogger(), testMetrics())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.Start(ctx)

	d.Dispatch(context.Background(), uuid.New())
	second := uuid.New()
	d.Dispatch(context.Background(), second)

	assert.Equal(t, second, waitFor(t, publisher.published))
}

func TestStart_IsIdempotentAndStops(t *testing.T) {
	publisher := newMockPublisher()
	d := NewAsyncDispatcher(publisher, 8, testLogger(), testMetrics())

	ctx, cancel := context.WithCancel(context.Background())
	d.Start(ctx)
	d.Start(ctx)

	cancel()

	select {
	case <-d.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop on context cancellation")
	}
}

func TestLogPublisher(t *testing.T) {
	p := NewLogPublisher(testLogger())
	require.NoError(t, p.Publish(context.Background(), uuid.New()))
}
