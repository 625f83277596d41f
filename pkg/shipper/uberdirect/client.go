// Package uberdirect provides same-day courier quotes from the Uber Direct API.
package uberdirect

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tournevent/checkout/pkg/shipper"
	"github.com/tournevent/checkout/pkg/shipper/policy"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/text/currency"
)

const providerName = "uber_direct"

const (
	// PlaceholderPhone is sent when an address has no phone number.
	PlaceholderPhone = "+15555555555"

	// DefaultManifestValueCents is declared when the cart value is unknown.
	DefaultManifestValueCents = 1000
)

// Config holds Uber Direct configuration.
type Config struct {
	ClientID     string
	ClientSecret string
	CustomerID   string
	TokenURL     string
	BaseURL      string
	Timeout      time.Duration
	UseMock      bool // When true, uses mock API client

	// Now overrides the clock used for deadlines. Defaults to time.Now.
	Now func() time.Time
}

// Credentials returns the OAuth2 client-credentials grant for this account.
func (c Config) Credentials() Credentials {
	return Credentials{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		TokenURL:     c.TokenURL,
		Scopes:       []string{DefaultScope},
	}
}

// Client is the Uber Direct same-day quoter.
type Client struct {
	config    Config
	apiClient APIClient
	logger    *otelzap.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

// New creates a new Uber Direct client. Tokens are drawn from tokens, which
// should be shared process-wide; a private cache is created when nil.
func New(cfg Config, tokens *TokenCache, logger *otelzap.Logger, tracer trace.Tracer) *Client {
	var apiClient APIClient

	if cfg.UseMock {
		apiClient = NewMockAPIClient()
	} else {
		if tokens == nil {
			tokens = NewTokenCache()
		}
		apiClient = NewHTTPAPIClient(HTTPAPIClientConfig{
			BaseURL:    cfg.BaseURL,
			CustomerID: cfg.CustomerID,
			Tokens:     boundToken{cache: tokens, creds: cfg.Credentials()},
			Timeout:    cfg.Timeout,
		})
	}

	return NewWithAPIClient(cfg, apiClient, logger, tracer)
}

// NewWithAPIClient creates a new Uber Direct client with a custom API client.
func NewWithAPIClient(cfg Config, apiClient APIClient, logger *otelzap.Logger, tracer trace.Tracer) *Client {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Client{
		config:    cfg,
		apiClient: apiClient,
		logger:    logger,
		tracer:    shipper.TracerOrNoop(tracer),
		now:       now,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return providerName
}

// Quote requests a same-day delivery quote for one seller leg.
func (c *Client) Quote(ctx context.Context, req *shipper.SameDayQuoteRequest) (*shipper.SameDayQuote, error) {
	ctx, span := c.tracer.Start(ctx, "uberdirect.Quote", trace.WithAttributes(
		attribute.String("seller.id", req.SellerID),
	))
	defer span.End()

	apiReq, err := c.buildRequest(req)
	if err != nil {
		span.RecordError(err)
		return nil, shipper.NewProviderError(providerName, "INVALID_ADDRESS", "encode address").
			WithCause(err).
			WithKind(shipper.ErrProviderRejected)
	}

	apiResp, err := c.apiClient.CreateQuote(ctx, apiReq)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "create quote")
		c.logger.Ctx(ctx).Warn("Uber Direct quote failed",
			zap.String("seller_id", req.SellerID),
			zap.Error(err),
		)
		return nil, toProviderError(err)
	}

	quote := quoteToShipper(apiResp)
	span.SetAttributes(
		attribute.String("quote.id", quote.QuoteID),
		attribute.String("quote.fee", quote.Fee.String()),
	)
	c.logger.Ctx(ctx).Debug("Uber Direct quote received",
		zap.String("seller_id", req.SellerID),
		zap.String("quote_id", quote.QuoteID),
		zap.String("fee", quote.Fee.String()),
	)
	return quote, nil
}

func (c *Client) buildRequest(req *shipper.SameDayQuoteRequest) (*QuoteRequest, error) {
	pickup, err := addressToAPI(req.Pickup).Encode()
	if err != nil {
		return nil, err
	}
	dropoff, err := addressToAPI(req.Dropoff).Encode()
	if err != nil {
		return nil, err
	}

	now := c.now().UTC()
	return &QuoteRequest{
		PickupAddress:      pickup,
		DropoffAddress:     dropoff,
		PickupPhoneNumber:  phoneOrPlaceholder(req.Pickup.Phone),
		DropoffPhoneNumber: phoneOrPlaceholder(req.Dropoff.Phone),
		PickupDeadline:     now.Add(policy.PickupDeadlineOffset),
		DropoffReady:       now.Add(policy.DropoffReadyOffset),
		DropoffDeadline:    now.Add(policy.DropoffDeadlineOffset),
		ManifestTotalValue: manifestCents(req.ManifestValue),
	}, nil
}

// ============================================================================
// Conversion helpers
// ============================================================================

func addressToAPI(addr shipper.Address) QuoteAddress {
	street := []string{addr.Line1}
	if addr.Line2 != "" {
		street = append(street, addr.Line2)
	}
	return QuoteAddress{
		StreetAddress: street,
		City:          addr.City,
		State:         addr.Region,
		ZipCode:       addr.PostalCode,
		Country:       addr.CountryCode,
	}
}

func phoneOrPlaceholder(phone string) string {
	if strings.TrimSpace(phone) == "" {
		return PlaceholderPhone
	}
	return phone
}

func manifestCents(value decimal.Decimal) int64 {
	if !value.IsPositive() {
		return DefaultManifestValueCents
	}
	return value.Shift(2).Round(0).IntPart()
}

func quoteToShipper(resp *QuoteResponse) *shipper.SameDayQuote {
	unit := currency.USD
	if resp.Currency != "" {
		if parsed, err := currency.ParseISO(strings.ToUpper(resp.Currency)); err == nil {
			unit = parsed
		}
	}
	return &shipper.SameDayQuote{
		QuoteID:               resp.ID,
		Fee:                   decimal.New(resp.Fee, -2),
		Currency:              unit,
		DurationMinutes:       resp.Duration,
		PickupDurationMinutes: resp.PickupDuration,
		DropoffETA:            resp.DropoffETA,
		ExpiresAt:             resp.Expires,
	}
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

	var tokenErr *oauth2.RetrieveError
	if errors.As(err, &tokenErr) {
		pe := shipper.NewProviderError(providerName, "TOKEN_FAILED", "access token request failed").WithCause(err)
		if tokenErr.Response != nil {
			pe.WithStatusCode(tokenErr.Response.StatusCode)
		}
		// Any token rejection is an authentication failure regardless of status.
		return pe.WithKind(shipper.ErrAuthenticationFailed)
	}

	return shipper.NewProviderError(providerName, "UNAVAILABLE", "quote request failed").
		WithCause(err).
		WithKind(shipper.ErrProviderUnavailable).
		WithRetryable(true)
}

var _ shipper.SameDayQuoter = (*Client)(nil)
