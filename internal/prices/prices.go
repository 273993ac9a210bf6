// Package prices supplies the latest market price for a ticker from the
// external price cache. It is consulted only when pricing market orders
// during an admission check; a miss is surfaced, never defaulted.
package prices

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

// ErrPriceUnavailable is returned when the cache holds no price for the
// requested ticker.
var ErrPriceUnavailable = errors.New("latest price unavailable")

// Source supplies the latest known price for a ticker.
type Source interface {
	LatestPrice(ctx context.Context, ticker string) (decimal.Decimal, error)
}

const keyPrefix = "price/"

// RedisSource reads prices written by the market-data collaborator under
// price/{ticker} keys.
type RedisSource struct {
	client *redis.Client
}

// NewRedisSource connects a price source to the datastore.
func NewRedisSource(addr, password string, db int) *RedisSource {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,

		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,

		MaxRetries:      3,
		MinRetryBackoff: 100 * time.Millisecond,
		MaxRetryBackoff: 500 * time.Millisecond,
	})
	return &RedisSource{client: client}
}

// NewRedisSourceFromClient wraps an existing client, sharing its connection pool.
func NewRedisSourceFromClient(client *redis.Client) *RedisSource {
	return &RedisSource{client: client}
}

// LatestPrice fetches and decodes the cached price. A missing key maps to
// ErrPriceUnavailable; transport failures are returned as-is.
func (r *RedisSource) LatestPrice(ctx context.Context, ticker string) (decimal.Decimal, error) {
	raw, err := r.client.Get(ctx, keyPrefix+ticker).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return decimal.Zero, fmt.Errorf("%w: %s", ErrPriceUnavailable, ticker)
		}
		return decimal.Zero, fmt.Errorf("fetching price for %s: %w", ticker, err)
	}
	price, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("malformed price %q for %s: %w", raw, ticker, err)
	}
	return price, nil
}

// Ping verifies connectivity to the datastore.
func (r *RedisSource) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close releases the connection pool.
func (r *RedisSource) Close() error {
	return r.client.Close()
}

// StaticSource is an in-memory source for tests and dry runs.
type StaticSource struct {
	mu     sync.RWMutex
	prices map[string]decimal.Decimal
}

// NewStaticSource builds a source seeded with the given prices.
func NewStaticSource(seed map[string]decimal.Decimal) *StaticSource {
	prices := make(map[string]decimal.Decimal, len(seed))
	for ticker, price := range seed {
		prices[ticker] = price
	}
	return &StaticSource{prices: prices}
}

// Set stores or overwrites a price.
func (s *StaticSource) Set(ticker string, price decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prices[ticker] = price
}

// LatestPrice returns the stored price or ErrPriceUnavailable.
func (s *StaticSource) LatestPrice(_ context.Context, ticker string) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	price, ok := s.prices[ticker]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrPriceUnavailable, ticker)
	}
	return price, nil
}
