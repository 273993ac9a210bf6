// Package portfolio holds the authoritative in-memory view of one account:
// cash, per-ticker holdings and the margin/exposure/buying-power formulas
// derived from them. It is deliberately single-threaded; callers that share a
// Portfolio across goroutines must serialize access themselves.
package portfolio

import (
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// Reg-T initial margin is a flat 50% for both sides. Maintenance margin is
// tiered: low-priced securities are margined at 100%.
var (
	initialMarginRate   = decimal.New(5, -1)  // 0.5
	maintenanceRate     = decimal.New(3, -1)  // 0.3
	fullMarginRate      = decimal.New(1, 0)   // 1.0
	longPriceThreshold  = decimal.New(25, -1) // $2.50
	shortPriceThreshold = decimal.New(5, 0)   // $5.00

	two  = decimal.New(2, 0)
	four = decimal.New(4, 0)

	pdtMinEquity    = decimal.New(2000, 0)
	marginCallLevel = decimal.New(25000, 0)
)

// Position is a single holding. Shares is signed (negative for shorts) and
// Price is the latest known mark, not a cost basis: every fill overwrites it.
type Position struct {
	Ticker string          `json:"ticker"`
	Shares decimal.Decimal `json:"shares"`
	Price  decimal.Decimal `json:"price"`
}

// Account is the hydration snapshot captured once at construction. LastEquity
// and LastMaintenanceMargin are the prior trading day's values; when the
// broker does not supply them they stay zero and the day-trading buying-power
// formula clamps to zero, leaving Reg-T as the effective floor.
type Account struct {
	Cash                  decimal.Decimal
	PatternDayTrader      bool
	LastEquity            decimal.Decimal
	LastMaintenanceMargin decimal.Decimal
}

// Portfolio is the mutable ledger. Mutations come from fills and price
// refreshes only; the account flags are immutable after construction.
type Portfolio struct {
	cash                  decimal.Decimal
	holdings              map[string]Position
	patternDayTrader      bool
	lastEquity            decimal.Decimal
	lastMaintenanceMargin decimal.Decimal
}

// New returns an empty portfolio with zero cash and no holdings.
func New() *Portfolio {
	return &Portfolio{
		cash:     decimal.Zero,
		holdings: make(map[string]Position),
	}
}

// NewFromAccount builds a portfolio from a hydration snapshot.
func NewFromAccount(acct Account, positions []Position) *Portfolio {
	p := New()
	p.cash = acct.Cash
	p.patternDayTrader = acct.PatternDayTrader
	p.lastEquity = acct.LastEquity
	p.lastMaintenanceMargin = acct.LastMaintenanceMargin
	for _, pos := range positions {
		p.holdings[pos.Ticker] = pos
	}
	return p
}

// ApplyFill records a fill: shares are added to the existing position (or a
// new one is inserted), the stored price is overwritten with the fill price,
// and cash is decremented by shares*price. Every fill is treated as a cash
// flow at the fill price; there is no cost-basis accounting.
func (p *Portfolio) ApplyFill(ticker string, shares, price decimal.Decimal) {
	log.Trace().
		Str("ticker", ticker).
		Stringer("shares", shares).
		Stringer("price", price).
		Msg("applying fill")
	pos, ok := p.holdings[ticker]
	if ok {
		pos.Shares = pos.Shares.Add(shares)
		pos.Price = price
	} else {
		pos = Position{Ticker: ticker, Shares: shares, Price: price}
	}
	p.holdings[ticker] = pos
	p.cash = p.cash.Sub(shares.Mul(price))
}

// RefreshPrice overwrites the stored mark for a held ticker. Unheld tickers
// are ignored: a refresh never inserts a position.
func (p *Portfolio) RefreshPrice(ticker string, price decimal.Decimal) {
	pos, ok := p.holdings[ticker]
	if !ok {
		return
	}
	log.Trace().Str("ticker", ticker).Stringer("price", price).Msg("refreshing price")
	pos.Price = price
	p.holdings[ticker] = pos
}

// SetCash overwrites cash absolutely. Used at hydration and when the account
// sync collaborator reconciles.
func (p *Portfolio) SetCash(cash decimal.Decimal) {
	log.Trace().Stringer("cash", cash).Msg("updating cash")
	p.cash = cash
}

// Cash returns current cash.
func (p *Portfolio) Cash() decimal.Decimal {
	return p.cash
}

// PatternDayTrader reports the account classification captured at hydration.
func (p *Portfolio) PatternDayTrader() bool {
	return p.patternDayTrader
}

// Position returns the holding for ticker. The second return is false when
// the ticker is unheld (implicitly flat).
func (p *Portfolio) Position(ticker string) (Position, bool) {
	pos, ok := p.holdings[ticker]
	return pos, ok
}

// Positions returns all holdings. Order is unspecified.
func (p *Portfolio) Positions() []Position {
	out := make([]Position, 0, len(p.holdings))
	for _, pos := range p.holdings {
		out = append(out, pos)
	}
	return out
}

// LongExposure is the aggregate dollar value of long positions.
func (p *Portfolio) LongExposure() decimal.Decimal {
	sum := decimal.Zero
	for _, pos := range p.holdings {
		if pos.Shares.Sign() > 0 {
			sum = sum.Add(pos.Shares.Mul(pos.Price))
		}
	}
	return sum
}

// ShortExposure is the aggregate dollar value of short positions, reported as
// a non-negative number.
func (p *Portfolio) ShortExposure() decimal.Decimal {
	sum := decimal.Zero
	for _, pos := range p.holdings {
		if pos.Shares.Sign() < 0 {
			sum = sum.Add(pos.Shares.Neg().Mul(pos.Price))
		}
	}
	return sum
}

// GrossExposure is long plus short exposure.
func (p *Portfolio) GrossExposure() decimal.Decimal {
	sum := decimal.Zero
	for _, pos := range p.holdings {
		sum = sum.Add(pos.Shares.Abs().Mul(pos.Price))
	}
	return sum
}

// NetExposure is the signed sum of position values.
func (p *Portfolio) NetExposure() decimal.Decimal {
	sum := decimal.Zero
	for _, pos := range p.holdings {
		sum = sum.Add(pos.Shares.Mul(pos.Price))
	}
	return sum
}

// Equity is net exposure plus cash.
func (p *Portfolio) Equity() decimal.Decimal {
	return p.NetExposure().Add(p.cash)
}

// InitialMargin reserves 50% of gross exposure.
func (p *Portfolio) InitialMargin() decimal.Decimal {
	sum := decimal.Zero
	for _, pos := range p.holdings {
		sum = sum.Add(pos.Shares.Abs().Mul(pos.Price).Mul(initialMarginRate))
	}
	return sum
}

// MaintenanceMargin applies the asymmetric tiered rate: longs marked at or
// above $2.50 take 30%, shorts at or above $5.00 take 30%, everything else
// 100%.
func (p *Portfolio) MaintenanceMargin() decimal.Decimal {
	sum := decimal.Zero
	for _, pos := range p.holdings {
		rate := fullMarginRate
		if pos.Shares.Sign() >= 0 {
			if pos.Price.Cmp(longPriceThreshold) >= 0 {
				rate = maintenanceRate
			}
		} else if pos.Price.Cmp(shortPriceThreshold) >= 0 {
			rate = maintenanceRate
		}
		sum = sum.Add(pos.Shares.Abs().Mul(pos.Price).Mul(rate))
	}
	return sum
}

// Multiplier is the leverage tier. Pattern day traders tier on equity with
// strict less-than bounds; non-PDT accounts unlock 2x only strictly above
// $25,000. The boundary asymmetry at $25,000 is intentional and must not be
// unified.
func (p *Portfolio) Multiplier() decimal.Decimal {
	equity := p.Equity()
	if p.patternDayTrader {
		switch {
		case equity.Cmp(pdtMinEquity) < 0:
			return fullMarginRate
		case equity.Cmp(marginCallLevel) < 0:
			return two
		default:
			return four
		}
	}
	if equity.Cmp(marginCallLevel) > 0 {
		return two
	}
	return fullMarginRate
}

// RegTBuyingPower is max(0, (equity - initial_margin) * 2).
func (p *Portfolio) RegTBuyingPower() decimal.Decimal {
	bp := p.Equity().Sub(p.InitialMargin()).Mul(two)
	return decimal.Max(bp, decimal.Zero)
}

// DayTradingBuyingPower is max(0, (last_equity - last_maintenance_margin) *
// multiplier - gross_exposure). With a zero prior-day snapshot this is always
// zero.
func (p *Portfolio) DayTradingBuyingPower() decimal.Decimal {
	bp := p.lastEquity.Sub(p.lastMaintenanceMargin).Mul(p.Multiplier()).Sub(p.GrossExposure())
	return decimal.Max(bp, decimal.Zero)
}

// BuyingPower is the larger of the Reg-T and day-trading figures.
func (p *Portfolio) BuyingPower() decimal.Decimal {
	return decimal.Max(p.RegTBuyingPower(), p.DayTradingBuyingPower())
}
