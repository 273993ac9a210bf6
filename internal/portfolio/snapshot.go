package portfolio

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Snapshot is a consistent read of every derived metric plus the raw ledger,
// taken in one pass for the read-only HTTP surface. All fields are computed
// from the same portfolio state, so the definitional identities (equity =
// net exposure + cash, gross = long + short) hold within a snapshot.
type Snapshot struct {
	Cash                  decimal.Decimal `json:"cash"`
	Positions             []Position      `json:"positions"`
	PatternDayTrader      bool            `json:"pattern_day_trader"`
	LongExposure          decimal.Decimal `json:"long_exposure"`
	ShortExposure         decimal.Decimal `json:"short_exposure"`
	GrossExposure         decimal.Decimal `json:"gross_exposure"`
	NetExposure           decimal.Decimal `json:"net_exposure"`
	Equity                decimal.Decimal `json:"equity"`
	InitialMargin         decimal.Decimal `json:"initial_margin"`
	MaintenanceMargin     decimal.Decimal `json:"maintenance_margin"`
	Multiplier            decimal.Decimal `json:"multiplier"`
	RegTBuyingPower       decimal.Decimal `json:"regt_buying_power"`
	DayTradingBuyingPower decimal.Decimal `json:"daytrading_buying_power"`
	BuyingPower           decimal.Decimal `json:"buying_power"`
}

// Snapshot captures the current state. Positions are sorted by ticker so the
// output is stable.
func (p *Portfolio) Snapshot() Snapshot {
	positions := p.Positions()
	sort.Slice(positions, func(i, j int) bool { return positions[i].Ticker < positions[j].Ticker })
	return Snapshot{
		Cash:                  p.cash,
		Positions:             positions,
		PatternDayTrader:      p.patternDayTrader,
		LongExposure:          p.LongExposure(),
		ShortExposure:         p.ShortExposure(),
		GrossExposure:         p.GrossExposure(),
		NetExposure:           p.NetExposure(),
		Equity:                p.Equity(),
		InitialMargin:         p.InitialMargin(),
		MaintenanceMargin:     p.MaintenanceMargin(),
		Multiplier:            p.Multiplier(),
		RegTBuyingPower:       p.RegTBuyingPower(),
		DayTradingBuyingPower: p.DayTradingBuyingPower(),
		BuyingPower:           p.BuyingPower(),
	}
}
