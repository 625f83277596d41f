// Package mapbox provides forward geocoding and driving distances backed by
// the Mapbox Geocoding and Directions APIs.
package mapbox

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/tournevent/checkout/pkg/shipper"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const providerName = "mapbox"

// Config holds Mapbox configuration.
type Config struct {
	AccessToken string
	BaseURL     string
	Timeout     time.Duration
	UseMock     bool // When true, uses mock API client
}

// Client implements shipper.Geocoder and shipper.Router.
type Client struct {
	config    Config
	apiClient APIClient
	logger    *otelzap.Logger
	tracer    trace.Tracer
}

// New creates a new Mapbox client.
// If cfg.UseMock is true, it uses a deterministic mock API client.
func New(cfg Config, logger *otelzap.Logger, tracer trace.Tracer) *Client {
	var apiClient APIClient

	if cfg.UseMock {
		apiClient = NewMockAPIClient()
	} else {
		apiClient = NewHTTPAPIClient(HTTPAPIClientConfig{
			BaseURL:     cfg.BaseURL,
			AccessToken: cfg.AccessToken,
			Timeout:     cfg.Timeout,
		})
	}

	return NewWithAPIClient(cfg, apiClient, logger, tracer)
}

// NewWithAPIClient creates a new Mapbox client with a custom API client.
func NewWithAPIClient(cfg Config, apiClient APIClient, logger *otelzap.Logger, tracer trace.Tracer) *Client {
	return &Client{
		config:    cfg,
		apiClient: apiClient,
		logger:    logger,
		tracer:    shipper.TracerOrNoop(tracer),
	}
}

// Geocode resolves addr to coordinates. Provider failures and empty result
// sets both come back as shipper.ErrNotFound.
func (c *Client) Geocode(ctx context.Context, addr shipper.Address) (shipper.Coordinates, error) {
	ctx, span := c.tracer.Start(ctx, "mapbox.Geocode", trace.WithAttributes(
		attribute.String("address.postal_code", addr.PostalCode),
		attribute.String("address.country", addr.CountryCode),
	))
	defer span.End()

	resp, err := c.apiClient.ForwardGeocode(ctx, &GeocodeRequest{
		Query:   FormatQuery(addr),
		Country: strings.ToLower(addr.CountryCode),
		Types:   "address",
		Limit:   1,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "forward geocode")
		c.logger.Ctx(ctx).Warn("Geocoding failed",
			zap.String("postal_code", addr.PostalCode),
			zap.Error(err),
		)
		return shipper.Coordinates{}, shipper.NewProviderError(providerName, "GEOCODE_FAILED", "geocoding failed").
			WithCause(err).
			WithKind(shipper.ErrNotFound)
	}

	if len(resp.Features) == 0 || len(resp.Features[0].Center) < 2 {
		c.logger.Ctx(ctx).Debug("No geocoding match", zap.String("postal_code", addr.PostalCode))
		return shipper.Coordinates{}, shipper.NewProviderError(providerName, "NO_MATCH", "no address-level match").
			WithKind(shipper.ErrNotFound)
	}

	f := resp.Features[0]
	return shipper.Coordinates{
		Lng:              f.Center[0],
		Lat:              f.Center[1],
		FormattedAddress: f.PlaceName,
		Relevance:        f.Relevance,
	}, nil
}

// DrivingDistance returns the length in meters of the best driving route.
func (c *Client) DrivingDistance(ctx context.Context, from, to shipper.Coordinates) (float64, error) {
	ctx, span := c.tracer.Start(ctx, "mapbox.DrivingDistance")
	defer span.End()

	resp, err := c.apiClient.Directions(ctx, &DirectionsRequest{
		Profile: "driving",
		From:    LngLat{Lng: from.Lng, Lat: from.Lat},
		To:      LngLat{Lng: to.Lng, Lat: to.Lat},
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "directions")
		return 0, toProviderError(err)
	}

	if len(resp.Routes) == 0 {
		return 0, shipper.NewProviderError(providerName, "NO_ROUTE", "no driving route").
			WithKind(shipper.ErrNotFound)
	}

	span.SetAttributes(attribute.Float64("route.meters", resp.Routes[0].Distance))
	return resp.Routes[0].Distance, nil
}

// FormatQuery renders addr as a single-line geocoding query.
func FormatQuery(addr shipper.Address) string {
	parts := make([]string, 0, 4)
	street := strings.TrimSpace(strings.Join([]string{addr.Line1, addr.Line2}, " "))
	for _, p := range []string{street, addr.City, strings.TrimSpace(addr.Region + " " + addr.PostalCode)} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

func toProviderError(err error) error {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		pe := shipper.NewProviderError(providerName, apiErr.Code, apiErr.Message).WithCause(err)
		if apiErr.StatusCode > 0 {
			return pe.WithStatusCode(apiErr.StatusCode)
		}
		return pe.WithKind(shipper.ErrNotFound)
	}
	return shipper.NewProviderError(providerName, "UNAVAILABLE", "routing request failed").
		WithCause(err).
		WithKind(shipper.ErrProviderUnavailable).
		WithRetryable(true)
}

var (
	_ shipper.Geocoder = (*Client)(nil)
	_ shipper.Router   = (*Client)(nil)
)
