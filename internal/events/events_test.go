package events

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvelope_WrapAndDecode(t *testing.T) {
	lot := Lot{
		ID:       uuid.New(),
		OrderID:  uuid.New(),
		Ticker:   "AAPL",
		FillTime: time.Date(2021, 3, 16, 18, 38, 1, 0, time.UTC),
		Price:    decimal.RequireFromString("172.35"),
		Shares:   decimal.RequireFromString("-3"),
	}

	env, err := Wrap(TypeLot, lot)
	require.NoError(t, err)
	require.NoError(t, env.Validate())

	data, err := json.Marshal(env)
	require.NoError(t, err)

	var decoded Envelope
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.NoError(t, decoded.Validate())
	assert.Equal(t, TypeLot, decoded.Type)

	var got Lot
	require.NoError(t, decoded.Decode(&got))
	assert.Equal(t, lot.ID, got.ID)
	assert.Equal(t, lot.Ticker, got.Ticker)
	assert.True(t, got.Shares.Equal(lot.Shares))
	assert.True(t, got.Price.Equal(lot.Price))
	assert.True(t, got.FillTime.Equal(lot.FillTime))
}

func TestEnvelope_Validate(t *testing.T) {
	env, err := Wrap(TypeClock, Clock{Open: true})
	require.NoError(t, err)
	assert.NoError(t, env.Validate())

	env.Type = "settlement"
	assert.Error(t, env.Validate())

	env = Envelope{Type: TypeCashSync}
	assert.Error(t, env.Validate())
}
