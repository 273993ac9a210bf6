// Package broker talks to the brokerage account API. It is used exactly once
// per process lifetime to hydrate the portfolio; the event stream keeps the
// ledger current from then on.
package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// Account is the account snapshot used for hydration. LastEquity and
// LastMaintenanceMargin are prior-trading-day values; brokers that do not
// report them leave the zero value in place.
type Account struct {
	Cash                  decimal.Decimal `json:"cash"`
	PatternDayTrader      bool            `json:"pattern_day_trader"`
	LastEquity            decimal.Decimal `json:"last_equity"`
	LastMaintenanceMargin decimal.Decimal `json:"last_maintenance_margin"`
}

// Position is one holding as the broker reports it.
type Position struct {
	Symbol        string          `json:"symbol"`
	Qty           decimal.Decimal `json:"qty"`
	AvgEntryPrice decimal.Decimal `json:"avg_entry_price"`
}

// AccountSource is the hydration capability. The live client implements it;
// tests substitute fixtures.
type AccountSource interface {
	GetAccount(ctx context.Context) (Account, error)
	GetPositions(ctx context.Context) ([]Position, error)
}

// Config holds client connection settings.
type Config struct {
	BaseURL   string
	KeyID     string
	SecretKey string
	Timeout   time.Duration
}

// Client is a rate-limited REST client for the account API with a circuit
// breaker around every call.
type Client struct {
	config  Config
	http    *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
}

// NewClient builds a client. The rate limit stays well under the API's
// 200 requests/minute budget.
func NewClient(config Config) *Client {
	if config.Timeout == 0 {
		config.Timeout = 10 * time.Second
	}
	return &Client{
		config:  config,
		http:    &http.Client{Timeout: config.Timeout},
		limiter: rate.NewLimiter(rate.Limit(3), 6),
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "broker",
			MaxRequests: 1,
			Interval:    time.Minute,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
		}),
	}
}

// GetAccount fetches the account snapshot.
func (c *Client) GetAccount(ctx context.Context) (Account, error) {
	var account Account
	if err := c.get(ctx, "/v2/account", &account); err != nil {
		return Account{}, fmt.Errorf("get account: %w", err)
	}
	return account, nil
}

// GetPositions fetches all open positions.
func (c *Client) GetPositions(ctx context.Context) ([]Position, error) {
	var positions []Position
	if err := c.get(ctx, "/v2/positions", &positions); err != nil {
		return nil, fmt.Errorf("get positions: %w", err)
	}
	return positions, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	body, err := c.breaker.Execute(func() (any, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+path, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("APCA-API-KEY-ID", c.config.KeyID)
		req.Header.Set("APCA-API-SECRET-KEY", c.config.SecretKey)

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("%s returned HTTP %d", path, resp.StatusCode)
		}
		return io.ReadAll(resp.Body)
	})
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body.([]byte), out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
