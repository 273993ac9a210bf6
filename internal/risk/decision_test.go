package risk

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecision_WireFormat(t *testing.T) {
	id := uuid.MustParse("7e6c9a4e-7b10-4f3e-9a65-0f6ab4f5d6b1")
	intent := TradeIntent{ID: id, Ticker: "AAPL", Qty: -2, OrderType: Limit}
	limit := dec("120")
	intent.LimitPrice = &limit

	t.Run("granted", func(t *testing.T) {
		data, err := json.Marshal(Grant(intent))
		require.NoError(t, err)
		assert.JSONEq(t, fmt.Sprintf(`{
			"result": "granted",
			"intent": {"id": %q, "ticker": "AAPL", "qty": -2, "order_type": "limit", "limit_price": "120"}
		}`, id), string(data))
	})

	t.Run("denied_insufficient_buying_power", func(t *testing.T) {
		data, err := json.Marshal(Deny(intent, InsufficientBuyingPower(dec("220"))))
		require.NoError(t, err)
		assert.JSONEq(t, fmt.Sprintf(`{
			"result": "denied",
			"intent": {"id": %q, "ticker": "AAPL", "qty": -2, "order_type": "limit", "limit_price": "120"},
			"reason": {"insufficient_buying_power": {"buying_power": "220"}}
		}`, id), string(data))
	})

	t.Run("denied_change_in_position_side", func(t *testing.T) {
		data, err := json.Marshal(Deny(intent, ChangeInPositionSide()))
		require.NoError(t, err)
		assert.JSONEq(t, fmt.Sprintf(`{
			"result": "denied",
			"intent": {"id": %q, "ticker": "AAPL", "qty": -2, "order_type": "limit", "limit_price": "120"},
			"reason": "change_in_position_side"
		}`, id), string(data))
	})
}

func TestDecision_RoundTrip(t *testing.T) {
	intent := NewIntent("TSLA", 3)

	decisions := []Decision{
		Grant(intent),
		Deny(intent, ChangeInPositionSide()),
		Deny(intent, InsufficientBuyingPower(dec("1491006.05"))),
	}

	for _, original := range decisions {
		data, err := json.Marshal(original)
		require.NoError(t, err)

		var decoded Decision
		require.NoError(t, json.Unmarshal(data, &decoded))

		assert.Equal(t, original.Result, decoded.Result)
		assert.Equal(t, original.Intent.ID, decoded.Intent.ID)
		assert.Equal(t, original.Intent.Ticker, decoded.Intent.Ticker)
		assert.Equal(t, original.Intent.Qty, decoded.Intent.Qty)
		assert.Equal(t, original.Intent.OrderType, decoded.Intent.OrderType)
		if original.Reason == nil {
			assert.Nil(t, decoded.Reason)
			continue
		}
		require.NotNil(t, decoded.Reason)
		assert.Equal(t, original.Reason.IsChangeInPositionSide(), decoded.Reason.IsChangeInPositionSide())
		if wantBP, ok := original.Reason.BuyingPower(); ok {
			gotBP, ok := decoded.Reason.BuyingPower()
			require.True(t, ok)
			assert.True(t, gotBP.Equal(wantBP), "want %s, got %s", wantBP, gotBP)
		}
	}
}

func TestDenyReason_RejectsUnknownTag(t *testing.T) {
	var r DenyReason
	assert.Error(t, json.Unmarshal([]byte(`"partial_fill"`), &r))
	assert.Error(t, json.Unmarshal([]byte(`{"margin_call":{}}`), &r))
}

func TestTradeIntent_Validate(t *testing.T) {
	assert.NoError(t, NewIntent("AAPL", 1).Validate())
	assert.NoError(t, NewIntent("AAPL", 1).WithLimitPrice(dec("10")).Validate())

	missingLimit := NewIntent("AAPL", 1)
	missingLimit.OrderType = Limit
	assert.Error(t, missingLimit.Validate())

	stop := NewIntent("AAPL", 1)
	stop.OrderType = OrderType("stop")
	assert.ErrorIs(t, stop.Validate(), ErrUnsupportedOrderType)
}
