package telemetry_test

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tournevent/checkout/internal/telemetry"
	"go.uber.org/zap/zapcore"
)

func TestMetrics_Record(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := telemetry.NewMetrics(reg)

	m.RecordRequest("shipping_options", "200", 120*time.Millisecond)
	m.RecordRequest("shipping_options", "200", 80*time.Millisecond)
	m.RecordRequest("shipping_options", "400", time.Millisecond)
	m.RecordProviderCall("shippo", 300*time.Millisecond)
	m.RecordProviderError("uber_direct", "auth")
	m.RecordSellerGroups(3)
	m.RecordOptions("standard", 4)
	m.RecordOptions("same_day", 0)
	m.ObserveTokenCache(true)
	m.ObserveTokenCache(false)
	m.ObserveTokenCache(true)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("shipping_options", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("shipping_options", "400")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ProviderErrors.WithLabelValues("uber_direct", "auth")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.OptionsReturned.WithLabelValues("standard")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.TokenCache.WithLabelValues("hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TokenCache.WithLabelValues("miss")))

	// zero counts never create a series
	assert.Equal(t, 1, testutil.CollectAndCount(m.OptionsReturned, "checkout_delivery_options_total"))
	assert.Equal(t, 1, testutil.CollectAndCount(m.SellerGroups))
}

func TestMetrics_DuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	telemetry.NewMetrics(reg)

	assert.Panics(t, func() { telemetry.NewMetrics(reg) })
}

func TestMetrics_NilIsSafe(t *testing.T) {
	var m *telemetry.Metrics

	require.NotPanics(t, func() {
		m.RecordRequest("shipping_options", "200", time.Second)
		m.RecordProviderCall("shippo", time.Second)
		m.RecordProviderError("shippo", "unavailable")
		m.RecordSellerGroups(1)
		m.RecordOptions("standard", 1)
		m.ObserveTokenCache(true)
	})
}

func TestParseLevel(t *testing.T) {
	tests := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"DEBUG":   zapcore.DebugLevel,
		"info":    zapcore.InfoLevel,
		"warn":    zapcore.WarnLevel,
		"warning": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"":        zapcore.InfoLevel,
		"verbose": zapcore.InfoLevel,
	}

	for in, want := range tests {
		t.Run(in, func(t *testing.T) {
			assert.Equal(t, want, telemetry.ParseLevel(in))
		})
	}
}
