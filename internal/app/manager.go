// Package app wires the portfolio, risk engine and transport into a running
// service. All portfolio access is serialized through the manager's mutex so
// the event loop and the HTTP snapshot endpoint never race.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Overmuse/risk-manager/internal/broker"
	"github.com/Overmuse/risk-manager/internal/events"
	"github.com/Overmuse/risk-manager/internal/portfolio"
	"github.com/Overmuse/risk-manager/internal/risk"
	"github.com/Overmuse/risk-manager/internal/stream"
	"github.com/Overmuse/risk-manager/internal/telemetry"
)

// haltThreshold stops the service at market close when the next open is far
// enough away that staying up buys nothing. Overnight gaps stay under it;
// weekends and holidays exceed it.
const haltThreshold = 12 * time.Hour

// Streams names the transport endpoints the manager consumes and publishes.
type Streams struct {
	Events    string
	Decisions string
	Group     string
	Consumer  string
}

// Manager owns the portfolio and drives the event loop.
type Manager struct {
	mu        sync.Mutex
	portfolio *portfolio.Portfolio
	engine    *risk.Engine

	bus     stream.Bus
	prices  risk.PriceSource
	metrics *telemetry.Metrics
	streams Streams
}

// New builds a manager. Hydrate must succeed before Run is called.
func New(bus stream.Bus, prices risk.PriceSource, metrics *telemetry.Metrics, streams Streams) *Manager {
	return &Manager{
		bus:     bus,
		prices:  prices,
		metrics: metrics,
		streams: streams,
	}
}

// Hydrate fetches the account snapshot and open positions and builds the
// portfolio. It runs once at startup; a failure here is fatal because every
// later decision would be made against a fabricated book.
func (m *Manager) Hydrate(ctx context.Context, src broker.AccountSource) error {
	if src == nil {
		return errors.New("no account source bound")
	}
	acct, err := src.GetAccount(ctx)
	if err != nil {
		return fmt.Errorf("hydrating account: %w", err)
	}
	brokerPositions, err := src.GetPositions(ctx)
	if err != nil {
		return fmt.Errorf("hydrating positions: %w", err)
	}

	positions := make([]portfolio.Position, 0, len(brokerPositions))
	for _, pos := range brokerPositions {
		positions = append(positions, portfolio.Position{
			Ticker: pos.Symbol,
			Shares: pos.Qty,
			Price:  pos.AvgEntryPrice,
		})
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.portfolio = portfolio.NewFromAccount(portfolio.Account{
		Cash:                  acct.Cash,
		PatternDayTrader:      acct.PatternDayTrader,
		LastEquity:            acct.LastEquity,
		LastMaintenanceMargin: acct.LastMaintenanceMargin,
	}, positions)
	m.engine = risk.NewEngine(m.portfolio, m.prices)
	m.updateGauges()

	log.Info().
		Stringer("cash", acct.Cash).
		Int("positions", len(positions)).
		Bool("pattern_day_trader", acct.PatternDayTrader).
		Msg("portfolio hydrated")
	return nil
}

// Run consumes the event stream until ctx is canceled or the market-clock
// halt fires. Hydrate must have been called first.
func (m *Manager) Run(ctx context.Context) error {
	m.mu.Lock()
	hydrated := m.portfolio != nil
	m.mu.Unlock()
	if !hydrated {
		return errors.New("run called before hydration")
	}
	log.Info().Str("stream", m.streams.Events).Str("group", m.streams.Group).Msg("consuming events")
	return m.bus.Consume(ctx, m.streams.Events, m.streams.Group, m.streams.Consumer, m.handle)
}

// PortfolioSnapshot returns a consistent copy of the current book.
func (m *Manager) PortfolioSnapshot() portfolio.Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.portfolio.Snapshot()
}

func (m *Manager) handle(ctx context.Context, msg *stream.Message) error {
	var env events.Envelope
	if err := json.Unmarshal(msg.Payload, &env); err != nil {
		m.metrics.StreamErrors.Inc()
		return fmt.Errorf("decoding envelope %s: %w", msg.ID, err)
	}
	if err := env.Validate(); err != nil {
		m.metrics.StreamErrors.Inc()
		return fmt.Errorf("invalid envelope %s: %w", msg.ID, err)
	}

	switch env.Type {
	case events.TypeLot:
		return m.handleLot(env)
	case events.TypeTradeIntent:
		return m.handleIntent(ctx, env)
	case events.TypeCashSync:
		return m.handleCashSync(env)
	case events.TypeClock:
		return m.handleClock(env)
	}
	return nil
}

func (m *Manager) handleLot(env events.Envelope) error {
	var lot events.Lot
	if err := env.Decode(&lot); err != nil {
		m.metrics.StreamErrors.Inc()
		return err
	}
	m.mu.Lock()
	m.portfolio.ApplyFill(lot.Ticker, lot.Shares, lot.Price)
	m.updateGauges()
	m.mu.Unlock()
	m.metrics.Fills.Inc()
	log.Debug().
		Str("ticker", lot.Ticker).
		Stringer("shares", lot.Shares).
		Stringer("price", lot.Price).
		Msg("fill applied")
	return nil
}

func (m *Manager) handleIntent(ctx context.Context, env events.Envelope) error {
	var intent risk.TradeIntent
	if err := env.Decode(&intent); err != nil {
		m.metrics.StreamErrors.Inc()
		return err
	}

	m.mu.Lock()
	decision, err := m.engine.Check(ctx, intent)
	m.mu.Unlock()
	if err != nil {
		m.metrics.CheckErrors.Inc()
		return fmt.Errorf("checking intent %s: %w", intent.ID, err)
	}

	payload, err := json.Marshal(decision)
	if err != nil {
		return fmt.Errorf("encoding decision for %s: %w", intent.ID, err)
	}
	if err := m.bus.Publish(ctx, m.streams.Decisions, intent.Ticker, payload); err != nil {
		return fmt.Errorf("publishing decision for %s: %w", intent.ID, err)
	}

	m.metrics.RecordDecision(string(decision.Result), reasonLabel(decision))
	log.Info().
		Str("ticker", intent.Ticker).
		Int64("qty", intent.Qty).
		Str("result", string(decision.Result)).
		Msg("risk check complete")
	return nil
}

func (m *Manager) handleCashSync(env events.Envelope) error {
	var sync events.CashSync
	if err := env.Decode(&sync); err != nil {
		m.metrics.StreamErrors.Inc()
		return err
	}
	m.mu.Lock()
	m.portfolio.SetCash(sync.Cash)
	m.updateGauges()
	m.mu.Unlock()
	log.Debug().Stringer("cash", sync.Cash).Msg("cash reconciled")
	return nil
}

func (m *Manager) handleClock(env events.Envelope) error {
	var clock events.Clock
	if err := env.Decode(&clock); err != nil {
		m.metrics.StreamErrors.Inc()
		return err
	}
	if clock.Open {
		log.Info().Msg("market open")
		return nil
	}
	if gap := time.Until(clock.NextOpen); gap > haltThreshold {
		log.Info().Time("next_open", clock.NextOpen).Msg("market closed, halting until next session")
		return stream.ErrHalt
	}
	log.Info().Time("next_open", clock.NextOpen).Msg("market closed")
	return nil
}

// updateGauges is called with the mutex held.
func (m *Manager) updateGauges() {
	m.metrics.Equity.Set(m.portfolio.Equity().InexactFloat64())
	m.metrics.BuyingPower.Set(m.portfolio.BuyingPower().InexactFloat64())
}

func reasonLabel(d risk.Decision) string {
	if d.Reason == nil {
		return ""
	}
	if d.Reason.IsChangeInPositionSide() {
		return "change_in_position_side"
	}
	return "insufficient_buying_power"
}
