package broker

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_GetAccount(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/account", r.URL.Path)
		assert.Equal(t, "key", r.Header.Get("APCA-API-KEY-ID"))
		assert.Equal(t, "secret", r.Header.Get("APCA-API-SECRET-KEY"))
		w.Write([]byte(`{
			"cash": "992832.98",
			"pattern_day_trader": true,
			"last_equity": "997914.48",
			"last_maintenance_margin": "0"
		}`))
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL, KeyID: "key", SecretKey: "secret"})
	account, err := client.GetAccount(context.Background())
	require.NoError(t, err)
	assert.True(t, account.Cash.Equal(decimal.RequireFromString("992832.98")))
	assert.True(t, account.PatternDayTrader)
	assert.True(t, account.LastEquity.Equal(decimal.RequireFromString("997914.48")))
	assert.True(t, account.LastMaintenanceMargin.IsZero())
}

func TestClient_GetPositions(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/positions", r.URL.Path)
		w.Write([]byte(`[
			{"symbol": "AAPL", "qty": "1", "avg_entry_price": "100"},
			{"symbol": "TSLA", "qty": "-2", "avg_entry_price": "80.50"}
		]`))
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL})
	positions, err := client.GetPositions(context.Background())
	require.NoError(t, err)
	require.Len(t, positions, 2)
	assert.Equal(t, "AAPL", positions[0].Symbol)
	assert.True(t, positions[0].Qty.Equal(decimal.NewFromInt(1)))
	assert.Equal(t, "TSLA", positions[1].Symbol)
	assert.True(t, positions[1].Qty.Equal(decimal.NewFromInt(-2)))
	assert.True(t, positions[1].AvgEntryPrice.Equal(decimal.RequireFromString("80.50")))
}

func TestClient_NonOKStatusIsAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL})
	_, err := client.GetAccount(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 403")
}

func TestClient_BreakerOpensAfterConsecutiveFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL})
	for i := 0; i < 5; i++ {
		_, err := client.GetAccount(context.Background())
		require.Error(t, err)
	}

	_, err := client.GetAccount(context.Background())
	require.ErrorIs(t, err, gobreaker.ErrOpenState)
}
