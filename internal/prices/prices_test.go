package prices

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticSource(t *testing.T) {
	src := NewStaticSource(map[string]decimal.Decimal{
		"AAPL": decimal.RequireFromString("172.35"),
	})

	price, err := src.LatestPrice(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.True(t, price.Equal(decimal.RequireFromString("172.35")))

	_, err = src.LatestPrice(context.Background(), "TSLA")
	assert.ErrorIs(t, err, ErrPriceUnavailable)

	src.Set("TSLA", decimal.RequireFromString("251.10"))
	price, err = src.LatestPrice(context.Background(), "TSLA")
	require.NoError(t, err)
	assert.True(t, price.Equal(decimal.RequireFromString("251.10")))
}
