// Package shippo provides integration with the Shippo multi-carrier rate API.
package shippo

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tournevent/checkout/pkg/shipper"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/text/currency"
)

const providerName = "shippo"

// Config holds Shippo configuration.
type Config struct {
	APIToken string
	BaseURL  string
	Timeout  time.Duration
	UseMock  bool // When true, uses mock API client
}

// Client is the Shippo rate provider.
// It implements the shipper.RateProvider interface and delegates
// API calls to the underlying APIClient (mock or HTTP).
type Client struct {
	config    Config
	apiClient APIClient
	logger    *otelzap.Logger
	tracer    trace.Tracer
}

// New creates a new Shippo client.
// If cfg.UseMock is true, it uses a mock API client for testing.
// Otherwise, it uses the real HTTP API client.
func New(cfg Config, logger *otelzap.Logger, tracer trace.Tracer) *Client {
	var apiClient APIClient

	if cfg.UseMock {
		apiClient = NewMockAPIClient()
	} else {
		apiClient = NewHTTPAPIClient(HTTPAPIClientConfig{
			BaseURL:  cfg.BaseURL,
			APIToken: cfg.APIToken,
			Timeout:  cfg.Timeout,
		})
	}

	return NewWithAPIClient(cfg, apiClient, logger, tracer)
}

// NewWithAPIClient creates a new Shippo client with a custom API client.
// This is useful for injecting mock clients in tests.
func NewWithAPIClient(cfg Config, apiClient APIClient, logger *otelzap.Logger, tracer trace.Tracer) *Client {
	return &Client{
		config:    cfg,
		apiClient: apiClient,
		logger:    logger,
		tracer:    shipper.TracerOrNoop(tracer),
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return providerName
}

// GetRates creates a shipment for one parcel and returns all of its rates.
func (c *Client) GetRates(ctx context.Context, req *shipper.RateRequest) ([]shipper.RateQuote, error) {
	ctx, span := c.tracer.Start(ctx, "shippo.GetRates", trace.WithAttributes(
		attribute.String("seller.id", req.SellerID),
	))
	defer span.End()

	c.logger.Ctx(ctx).Debug("Requesting Shippo rates",
		zap.String("seller_id", req.SellerID),
		zap.String("origin_postal", req.Origin.PostalCode),
		zap.String("destination_postal", req.Destination.PostalCode),
		zap.Float64("parcel_weight", req.Parcel.Weight),
	)

	apiReq := &ShipmentRequest{
		AddressFrom: addressToAPI(req.Origin),
		AddressTo:   addressToAPI(req.Destination),
		Parcels:     []Parcel{parcelToAPI(req.Parcel)},
		Async:       false,
	}

	apiResp, err := c.apiClient.CreateShipment(ctx, apiReq)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "create shipment")
		return nil, toProviderError(err)
	}

	rates, skipped := ratesToShipper(apiResp.Rates)
	if skipped > 0 {
		c.logger.Ctx(ctx).Warn("Skipped unparseable Shippo rates",
			zap.String("seller_id", req.SellerID),
			zap.Int("skipped", skipped),
		)
	}
	span.SetAttributes(attribute.Int("rates.count", len(rates)))
	return rates, nil
}

// ============================================================================
// Conversion helpers: Shipper models -> API models
// ============================================================================

func addressToAPI(addr shipper.Address) Address {
	return Address{
		Name:    addr.Name,
		Street1: addr.Line1,
		Street2: addr.Line2,
		City:    addr.City,
		State:   addr.Region,
		Zip:     addr.PostalCode,
		Country: addr.CountryCode,
		Phone:   addr.Phone,
	}
}

func parcelToAPI(p shipper.Parcel) Parcel {
	return Parcel{
		Length:       formatFloat(p.Length),
		Width:        formatFloat(p.Width),
		Height:       formatFloat(p.Height),
		DistanceUnit: string(p.DistanceUnit),
		Weight:       formatFloat(p.Weight),
		MassUnit:     string(p.MassUnit),
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// ============================================================================
// Conversion helpers: API models -> Shipper models
// ============================================================================

// ratesToShipper converts API rates, dropping any with an unparseable amount.
func ratesToShipper(rates []Rate) ([]shipper.RateQuote, int) {
	result := make([]shipper.RateQuote, 0, len(rates))
	skipped := 0
	for _, r := range rates {
		amount, err := decimal.NewFromString(r.Amount)
		if err != nil {
			skipped++
			continue
		}

		unit := currency.USD
		if r.Currency != "" {
			if parsed, err := currency.ParseISO(r.Currency); err == nil {
				unit = parsed
			}
		}

		result = append(result, shipper.RateQuote{
			RateID:        r.ObjectID,
			Provider:      r.Provider,
			ServiceLevel:  r.ServiceLevel.Name,
			Amount:        amount,
			Currency:      unit,
			EstimatedDays: r.EstimatedDays,
			DurationTerms: r.DurationTerms,
			Source:        providerName,
		})
	}
	return result, skipped
}

func toProviderError(err error) error {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		pe := shipper.NewProviderError(providerName, apiErr.Code, apiErr.Message).WithCause(err)
		if apiErr.StatusCode > 0 {
			return pe.WithStatusCode(apiErr.StatusCode)
		}
		return pe.WithKind(shipper.ErrProviderRejected)
	}
	return shipper.NewProviderError(providerName, "UNAVAILABLE", "rate request failed").
		WithCause(err).
		WithKind(shipper.ErrProviderUnavailable).
		WithRetryable(true)
}
