package main

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/tournevent/checkout/internal/checkout"
	"github.com/tournevent/checkout/internal/config"
	"github.com/tournevent/checkout/internal/telemetry"
	"github.com/tournevent/checkout/pkg/shipper"
	"github.com/tournevent/checkout/pkg/shipper/mapbox"
	"github.com/tournevent/checkout/pkg/shipper/serviceability"
	"github.com/tournevent/checkout/pkg/shipper/shippo"
	"github.com/tournevent/checkout/pkg/shipper/uberdirect"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

func loadConfig() (*config.Config, error) {
	return config.Load()
}

func initLogger(level string) (*otelzap.Logger, error) {
	return telemetry.NewLogger(level)
}

func initTracer(ctx context.Context, cfg *config.Config) (trace.Tracer, func(context.Context) error, error) {
	if !cfg.OTELEnabled {
		return nil, func(context.Context) error { return nil }, nil
	}
	return telemetry.InitTracer(ctx, cfg.OTELEndpoint, cfg.ServiceName, cfg.Version)
}

func initMetrics() (*telemetry.Metrics, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return telemetry.NewMetrics(reg), reg
}

// initRateRegistry registers every enabled standard rate API.
func initRateRegistry(cfg *config.Config, logger *otelzap.Logger, tracer trace.Tracer) *shipper.Registry {
	registry := shipper.NewRegistry()

	if cfg.ShippoEnabled {
		registry.Register(shippo.New(shippo.Config{
			APIToken: cfg.ShippoAPIToken,
			BaseURL:  cfg.ShippoBaseURL,
			Timeout:  cfg.ProviderTimeout,
			UseMock:  cfg.ShippoUseMock,
		}, logger, tracer))
	}

	return registry
}

// initSameDay wires geocoding, serviceability and the courier. Both results are
// nil when same-day delivery is disabled.
func initSameDay(cfg *config.Config, logger *otelzap.Logger, tracer trace.Tracer, metrics *telemetry.Metrics) (checkout.ServiceabilityChecker, shipper.SameDayQuoter) {
	if !cfg.UberDirectEnabled {
		return nil, nil
	}

	maps := mapbox.New(mapbox.Config{
		AccessToken: cfg.MapboxAccessToken,
		BaseURL:     cfg.MapboxBaseURL,
		Timeout:     cfg.ProviderTimeout,
		UseMock:     cfg.MapboxUseMock,
	}, logger, tracer)
	checker := serviceability.NewChecker(maps, maps, cfg.SameDayRadiusMiles, logger, tracer)

	tokens := uberdirect.NewTokenCache(uberdirect.WithObserver(metrics.ObserveTokenCache))
	courier := uberdirect.New(uberdirect.Config{
		ClientID:     cfg.UberDirectClientID,
		ClientSecret: cfg.UberDirectClientSecret,
		CustomerID:   cfg.UberDirectCustomerID,
		TokenURL:     cfg.UberDirectTokenURL,
		BaseURL:      cfg.UberDirectBaseURL,
		Timeout:      cfg.ProviderTimeout,
		UseMock:      cfg.UberDirectUseMock,
	}, tokens, logger, tracer)

	return checker, courier
}

func initAggregator(cfg *config.Config, logger *otelzap.Logger, tracer trace.Tracer, metrics *telemetry.Metrics) *checkout.Aggregator {
	registry := initRateRegistry(cfg, logger, tracer)
	checker, courier := initSameDay(cfg, logger, tracer, metrics)

	logger.Info("Providers configured",
		zap.Strings("rate_providers", registry.Names()),
		zap.Bool("same_day", courier != nil),
		zap.Float64("same_day_radius_miles", cfg.SameDayRadiusMiles),
	)

	return checkout.New(checkout.Config{
		ProviderTimeout:      cfg.ProviderTimeout,
		MaxSellerConcurrency: cfg.MaxSellerConcurrency,
	}, registry, checker, courier, logger, tracer, metrics)
}
