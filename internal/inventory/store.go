package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// ReservationResult is the outcome of a reservation. When Success is false,
// Remaining is the unchanged stock that was too low for the request.
type ReservationResult struct {
	Success   bool  `json:"success"`
	Remaining int64 `json:"remaining"`
}

// Store is the shared stock store. Reserve must be a single indivisible
// operation on the store side.
type Store interface {
	Reserve(ctx context.Context, item string, quantity, defaultStock int64) (ReservationResult, error)
	// Stock returns the current count and whether the item has a record.
	Stock(ctx context.Context, item string) (int64, bool, error)
}

// reserveScript initializes a missing item to the default, then decrements it
// only when enough stock is left. It returns {1, remaining} or {0, current}.
var reserveScript = redis.NewScript(`
local qty = tonumber(ARGV[1])
local default = tonumber(ARGV[2])
local cur = redis.call('GET', KEYS[1])
if not cur then
  cur = default
  redis.call('SET', KEYS[1], cur)
else
  cur = tonumber(cur)
  if not cur then
    return redis.error_reply('stock value is not an integer')
  end
end
if cur < qty then
  return {0, cur}
end
return {1, redis.call('DECRBY', KEYS[1], qty)}
`)

// RedisStore keeps one integer key per item.
type RedisStore struct {
	client redis.Cmdable
}

func NewRedisStore(client redis.Cmdable) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Reserve(ctx context.Context, item string, quantity, defaultStock int64) (ReservationResult, error) {
	reply, err := reserveScript.Run(ctx, s.client, []string{item}, quantity, defaultStock).Int64Slice()
	if err != nil {
		return ReservationResult{}, fmt.Errorf("reserve script: %w", err)
	}
	if len(reply) != 2 {
		return ReservationResult{}, fmt.Errorf("reserve script: unexpected reply %v", reply)
	}
	return ReservationResult{Success: reply[0] == 1, Remaining: reply[1]}, nil
}

func (s *RedisStore) Stock(ctx context.Context, item string) (int64, bool, error) {
	stock, err := s.client.Get(ctx, item).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("get stock: %w", err)
	}
	return stock, true, nil
}
