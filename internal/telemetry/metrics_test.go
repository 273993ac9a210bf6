package telemetry

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordDecision(t *testing.T) {
	m := NewMetrics()

	m.RecordDecision("granted", "")
	m.RecordDecision("granted", "")
	m.RecordDecision("denied", "insufficient_buying_power")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.RiskChecks.WithLabelValues("granted", "none")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RiskChecks.WithLabelValues("denied", "insufficient_buying_power")))
}

func TestGauges(t *testing.T) {
	m := NewMetrics()

	m.Equity.Set(984282.35)
	m.BuyingPower.Set(220)

	assert.Equal(t, 984282.35, testutil.ToFloat64(m.Equity))
	assert.Equal(t, 220.0, testutil.ToFloat64(m.BuyingPower))
}
