package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"go.opentelemetry.io/otel/attribute"
)

// Config holds all configuration for the service.
type Config struct {
	// Server
	Port     int    `envconfig:"PORT" default:"80"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// Checkout
	ProviderTimeout      time.Duration `envconfig:"CHECKOUT_PROVIDER_TIMEOUT" default:"10s"`
	MaxSellerConcurrency int           `envconfig:"CHECKOUT_MAX_SELLER_CONCURRENCY" default:"8"`
	SameDayRadiusMiles   float64       `envconfig:"SAME_DAY_RADIUS_MILES" default:"10"`

	// Shippo
	ShippoAPIToken string `envconfig:"SHIPPO_API_TOKEN"`
	ShippoBaseURL  string `envconfig:"SHIPPO_BASE_URL" default:"https://api.goshippo.com"`
	ShippoEnabled  bool   `envconfig:"SHIPPO_ENABLED" default:"true"`
	ShippoUseMock  bool   `envconfig:"SHIPPO_USE_MOCK" default:"false"`

	// Mapbox
	MapboxAccessToken string `envconfig:"MAPBOX_ACCESS_TOKEN"`
	MapboxBaseURL     string `envconfig:"MAPBOX_BASE_URL" default:"https://api.mapbox.com"`
	MapboxUseMock     bool   `envconfig:"MAPBOX_USE_MOCK" default:"false"`

	// Uber Direct
	UberDirectClientID     string `envconfig:"UBER_DIRECT_CLIENT_ID"`
	UberDirectClientSecret string `envconfig:"UBER_DIRECT_CLIENT_SECRET"`
	UberDirectCustomerID   string `envconfig:"UBER_DIRECT_CUSTOMER_ID"`
	UberDirectTokenURL     string `envconfig:"UBER_DIRECT_TOKEN_URL" default:"https://auth.uber.com/oauth/v2/token"`
	UberDirectBaseURL      string `envconfig:"UBER_DIRECT_BASE_URL" default:"https://api.uber.com"`
	UberDirectEnabled      bool   `envconfig:"UBER_DIRECT_ENABLED" default:"true"`
	UberDirectUseMock      bool   `envconfig:"UBER_DIRECT_USE_MOCK" default:"false"`

	// Telemetry
	OTELEnabled  bool   `envconfig:"OTEL_ENABLED" default:"true"`
	OTELEndpoint string `envconfig:"OTEL_ENDPOINT" default:"http://localhost:4318"`
	ServiceName  string `envconfig:"SERVICE_NAME" default:"checkout-shipping"`
	Version      string `envconfig:"SERVICE_VERSION" default:"0.0.1"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// Validate rejects enabled real providers that lack credentials.
func (c *Config) Validate() error {
	var errs []error

	if c.ShippoEnabled && !c.ShippoUseMock && c.ShippoAPIToken == "" {
		errs = append(errs, errors.New("SHIPPO_API_TOKEN is required unless SHIPPO_USE_MOCK is set"))
	}

	if c.UberDirectEnabled {
		if !c.MapboxUseMock && c.MapboxAccessToken == "" {
			errs = append(errs, errors.New("MAPBOX_ACCESS_TOKEN is required for same-day delivery unless MAPBOX_USE_MOCK is set"))
		}
		if !c.UberDirectUseMock {
			if c.UberDirectClientID == "" || c.UberDirectClientSecret == "" {
				errs = append(errs, errors.New("UBER_DIRECT_CLIENT_ID and UBER_DIRECT_CLIENT_SECRET are required unless UBER_DIRECT_USE_MOCK is set"))
			}
			if c.UberDirectCustomerID == "" {
				errs = append(errs, errors.New("UBER_DIRECT_CUSTOMER_ID is required unless UBER_DIRECT_USE_MOCK is set"))
			}
		}
	}

	if c.ProviderTimeout <= 0 {
		errs = append(errs, errors.New("CHECKOUT_PROVIDER_TIMEOUT must be positive"))
	}
	if c.MaxSellerConcurrency < 1 {
		errs = append(errs, errors.New("CHECKOUT_MAX_SELLER_CONCURRENCY must be at least 1"))
	}
	if c.SameDayRadiusMiles <= 0 {
		errs = append(errs, errors.New("SAME_DAY_RADIUS_MILES must be positive"))
	}

	return errors.Join(errs...)
}

// Attributes returns OpenTelemetry attributes for this configuration.
func (c *Config) Attributes() []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("service.name", c.ServiceName),
		attribute.String("service.version", c.Version),
		attribute.Bool("shippo.enabled", c.ShippoEnabled),
		attribute.Bool("uber_direct.enabled", c.UberDirectEnabled),
		attribute.Float64("same_day.radius_miles", c.SameDayRadiusMiles),
	}
}
