// Package risk classifies proposed trades as granted or denied based on the
// account's buying power. The decision logic is a pure function of portfolio
// state; the only external read is the live price used for market orders.
package risk

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrUnsupportedOrderType marks a malformed request: only market and limit
// orders can be risk-checked. It is an input error, not a risk decision.
var ErrUnsupportedOrderType = errors.New("risk check supports only market and limit orders")

// OrderType discriminates how a proposed trade will be priced.
type OrderType string

const (
	Market OrderType = "market"
	Limit  OrderType = "limit"
)

// TradeIntent is a proposed trade awaiting admission. Qty is signed: positive
// buys, negative sells. LimitPrice is set only for limit orders.
type TradeIntent struct {
	ID         uuid.UUID        `json:"id"`
	Ticker     string           `json:"ticker"`
	Qty        int64            `json:"qty"`
	OrderType  OrderType        `json:"order_type"`
	LimitPrice *decimal.Decimal `json:"limit_price,omitempty"`
}

// NewIntent returns a market-order intent with a fresh id.
func NewIntent(ticker string, qty int64) TradeIntent {
	return TradeIntent{
		ID:        uuid.New(),
		Ticker:    ticker,
		Qty:       qty,
		OrderType: Market,
	}
}

// WithLimitPrice converts the intent to a limit order at the given price.
func (ti TradeIntent) WithLimitPrice(price decimal.Decimal) TradeIntent {
	ti.OrderType = Limit
	ti.LimitPrice = &price
	return ti
}

// Validate rejects intents the engine cannot price.
func (ti TradeIntent) Validate() error {
	switch ti.OrderType {
	case Market:
		return nil
	case Limit:
		if ti.LimitPrice == nil {
			return fmt.Errorf("limit order %s has no limit price", ti.ID)
		}
		return nil
	default:
		return fmt.Errorf("%w: got %q", ErrUnsupportedOrderType, ti.OrderType)
	}
}
