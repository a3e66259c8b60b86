package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

// maxUpdateRetries bounds the optimistic WATCH retry loop. Contention on a
// single session is a two-browser-tabs situation, not a hot key.
const maxUpdateRetries = 8

// RedisStore implements Store on a Redis key per session.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore creates a RedisStore. Records expire after ttl; every write
// refreshes the expiry, matching browser-session semantics.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

var _ Store = (*RedisStore)(nil)

func cartKey(sessionID string) string {
	return fmt.Sprintf("cart:%s", sessionID)
}

// Get returns the stored record, or nil when the session has no cart.
func (s *RedisStore) Get(ctx context.Context, sessionID string) (*Record, error) {
	data, err := s.client.Get(ctx, cartKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: redis get: %w", ErrUnavailable, err)
	}

	return decodeRecord(data)
}

// Set overwrites the record for the session.
func (s *RedisStore) Set(ctx context.Context, sessionID string, rec *Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal session record: %w", err)
	}

	if err := s.client.Set(ctx, cartKey(sessionID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("%w: redis set: %w", ErrUnavailable, err)
	}
	return nil
}

// Delete removes the record; absent records are a no-op.
func (s *RedisStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, cartKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("%w: redis del: %w", ErrUnavailable, err)
	}
	return nil
}

// Update runs fn against the current record under WATCH so a concurrent
// write to the same session restarts the attempt instead of being lost.
func (s *RedisStore) Update(ctx context.Context, sessionID string, fn func(rec *Record) error) (*Record, error) {
	key := cartKey(sessionID)

	var out *Record
	txn := func(tx *redis.Tx) error {
		rec := NewRecord()

		data, err := tx.Get(ctx, key).Bytes()
		if err != nil && !errors.Is(err, redis.Nil) {
			return fmt.Errorf("%w: redis get: %w", ErrUnavailable, err)
		}
		if err == nil {
			if rec, err = decodeRecord(data); err != nil {
				return err
			}
		}

		if err := fn(rec); err != nil {
			return err
		}

		encoded, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("marshal session record: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, encoded, s.ttl)
			return nil
		})
		if err != nil {
			return err
		}

		out = rec
		return nil
	}

	for i := 0; i < maxUpdateRetries; i++ {
		err := s.client.Watch(ctx, txn, key)
		if err == nil {
			return out, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return nil, err
	}

	return nil, ErrConflict
}

// decodeRecord validates stored content instead of trusting it: quantities
// must be non-negative and every price must parse as a decimal.
func decodeRecord(data []byte) (*Record, error) {
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	if rec.Items == nil {
		rec.Items = make(map[string]Line)
	}

	for id, line := range rec.Items {
		if line.Quantity < 0 {
			return nil, fmt.Errorf("%w: negative quantity for product %s", ErrCorrupt, id)
		}
		if _, err := decimal.NewFromString(line.Price); err != nil {
			return nil, fmt.Errorf("%w: bad price for product %s: %w", ErrCorrupt, id, err)
		}
	}

	return &rec, nil
}
