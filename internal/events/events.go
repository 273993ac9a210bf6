// Package events defines the wire shapes flowing between the risk manager
// and its transport: inbound fills, trade proposals, cash reconciliations and
// market-clock transitions, all wrapped in a typed envelope.
package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Type discriminates envelope payloads.
type Type string

const (
	TypeLot         Type = "lot"
	TypeTradeIntent Type = "trade_intent"
	TypeCashSync    Type = "cash_sync"
	TypeClock       Type = "clock"
)

// Envelope wraps a payload with its type and send time.
type Envelope struct {
	Type      Type            `json:"type"`
	Timestamp time.Time       `json:"ts"`
	Payload   json.RawMessage `json:"payload"`
}

// Wrap builds an envelope around v.
func Wrap(t Type, v any) (Envelope, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return Envelope{}, fmt.Errorf("encode %s payload: %w", t, err)
	}
	return Envelope{Type: t, Timestamp: time.Now().UTC(), Payload: payload}, nil
}

// Decode unmarshals the payload into v.
func (e Envelope) Decode(v any) error {
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return fmt.Errorf("decode %s payload: %w", e.Type, err)
	}
	return nil
}

// Validate checks the envelope carries a known type and a payload.
func (e Envelope) Validate() error {
	switch e.Type {
	case TypeLot, TypeTradeIntent, TypeCashSync, TypeClock:
	default:
		return fmt.Errorf("unknown event type %q", e.Type)
	}
	if len(e.Payload) == 0 {
		return fmt.Errorf("%s event has empty payload", e.Type)
	}
	return nil
}

// Lot is a fill: shares were exchanged at a price. Only ticker, price and
// shares mutate portfolio state; the ids and fill time ride along for
// downstream consumers.
type Lot struct {
	ID       uuid.UUID       `json:"id"`
	OrderID  uuid.UUID       `json:"order_id"`
	Ticker   string          `json:"ticker"`
	FillTime time.Time       `json:"fill_time"`
	Price    decimal.Decimal `json:"price"`
	Shares   decimal.Decimal `json:"shares"`
}

// CashSync reconciles cash absolutely against the account of record.
type CashSync struct {
	Cash decimal.Decimal `json:"cash"`
}

// Clock signals a market open/close transition. NextOpen is meaningful only
// when Open is false.
type Clock struct {
	Open     bool      `json:"open"`
	NextOpen time.Time `json:"next_open"`
}
