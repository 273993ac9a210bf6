package risk

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/Overmuse/risk-manager/internal/portfolio"
)

// marketOrderMarkup pads market-order pricing by 3% to absorb movement
// between check time and fill time.
var marketOrderMarkup = decimal.New(103, -2)

// ErrNoPriceSource is returned for market-order checks when no price source
// capability was bound at construction.
var ErrNoPriceSource = errors.New("no price source bound, cannot price market orders")

// PriceSource supplies the latest mark for a ticker. Used only to price
// market orders at decision time; a failed lookup fails that single check.
type PriceSource interface {
	LatestPrice(ctx context.Context, ticker string) (decimal.Decimal, error)
}

// Engine classifies trade intents against a portfolio. It performs pure reads
// only; callers sharing the portfolio across goroutines must hold the same
// lock for Check that they hold for mutations, because buying power is
// computed from a joint snapshot of cash and every position.
type Engine struct {
	portfolio *portfolio.Portfolio
	prices    PriceSource
}

// NewEngine builds an engine over the portfolio. prices may be nil when
// market orders are not expected; such checks then fail with
// ErrNoPriceSource rather than guessing a price.
func NewEngine(p *portfolio.Portfolio, prices PriceSource) *Engine {
	return &Engine{portfolio: p, prices: prices}
}

// Check runs the admission algorithm.
//
// A trade whose sign opposes the held position is a closing trade: granted
// unconditionally when it reduces or exactly closes the position, denied with
// ChangeInPositionSide when its magnitude would flip the position to the
// other side. Flipping needs fresh buying power for the new exposure, which
// this fast path does not evaluate.
//
// Everything else is an opening or adding trade and must clear buying power:
// limit orders require limit_price * |qty|, market orders the marked-up
// latest price. Strict greater-than grants.
func (e *Engine) Check(ctx context.Context, intent TradeIntent) (Decision, error) {
	log.Debug().Stringer("id", intent.ID).Str("ticker", intent.Ticker).Msg("running risk check")

	qty := decimal.NewFromInt(intent.Qty)
	if pos, held := e.portfolio.Position(intent.Ticker); held {
		if qty.Sign()*pos.Shares.Sign() == -1 {
			if qty.Abs().Cmp(pos.Shares.Abs()) > 0 {
				log.Trace().Stringer("id", intent.ID).Msg("change in position side, risk check denied")
				return Deny(intent, ChangeInPositionSide()), nil
			}
			log.Trace().Stringer("id", intent.ID).Msg("closing trade, risk check granted")
			return Grant(intent), nil
		}
	}

	required, err := e.requiredBuyingPower(ctx, intent, qty.Abs())
	if err != nil {
		return Decision{}, err
	}
	buyingPower := e.portfolio.BuyingPower()
	log.Trace().
		Stringer("buying_power", buyingPower).
		Stringer("required_buying_power", required).
		Msg("comparing buying power")

	if buyingPower.Cmp(required) > 0 {
		log.Debug().Stringer("id", intent.ID).Msg("risk check granted")
		return Grant(intent), nil
	}
	log.Debug().Stringer("id", intent.ID).Msg("insufficient buying power, risk check denied")
	return Deny(intent, InsufficientBuyingPower(buyingPower)), nil
}

func (e *Engine) requiredBuyingPower(ctx context.Context, intent TradeIntent, absQty decimal.Decimal) (decimal.Decimal, error) {
	switch intent.OrderType {
	case Limit:
		if intent.LimitPrice == nil {
			return decimal.Zero, fmt.Errorf("limit order %s has no limit price", intent.ID)
		}
		return intent.LimitPrice.Mul(absQty), nil
	case Market:
		if e.prices == nil {
			return decimal.Zero, ErrNoPriceSource
		}
		price, err := e.prices.LatestPrice(ctx, intent.Ticker)
		if err != nil {
			return decimal.Zero, fmt.Errorf("pricing market order for %s: %w", intent.Ticker, err)
		}
		return price.Mul(marketOrderMarkup).Mul(absQty), nil
	default:
		return decimal.Zero, fmt.Errorf("%w: got %q", ErrUnsupportedOrderType, intent.OrderType)
	}
}
