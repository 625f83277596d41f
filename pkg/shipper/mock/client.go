// Package mock provides deterministic in-memory providers for testing and
// local runs.
package mock

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/tournevent/checkout/pkg/shipper"
	"go.uber.org/atomic"
	"golang.org/x/text/currency"
)

// Client is a mock rate provider. Unless overridden per seller it returns the
// same four rates for every request, two of which are rush tiers.
type Client struct {
	name string

	mu    sync.RWMutex
	rates map[string][]shipper.RateQuote
	fail  map[string]error

	// Calls counts GetRates invocations.
	Calls atomic.Int64
}

// New creates a new mock rate provider.
func New(name string) *Client {
	return &Client{
		name:  name,
		rates: make(map[string][]shipper.RateQuote),
		fail:  make(map[string]error),
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return c.name
}

// SetRates overrides the rates returned for sellerID.
func (c *Client) SetRates(sellerID string, rates ...shipper.RateQuote) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rates[sellerID] = rates
}

// Fail makes every request for sellerID return err. A nil err uses a
// retryable unavailable error.
func (c *Client) Fail(sellerID string, err error) {
	if err == nil {
		err = shipper.NewProviderError(c.name, "MOCK_OUTAGE", "simulated outage").
			WithKind(shipper.ErrProviderUnavailable).
			WithRetryable(true)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fail[sellerID] = err
}

// GetRates returns the configured rates for the request's seller.
func (c *Client) GetRates(ctx context.Context, req *shipper.RateRequest) ([]shipper.RateQuote, error) {
	c.Calls.Inc()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	if err, ok := c.fail[req.SellerID]; ok {
		return nil, err
	}
	if rates, ok := c.rates[req.SellerID]; ok {
		out := make([]shipper.RateQuote, len(rates))
		copy(out, rates)
		return out, nil
	}
	return c.defaultRates(), nil
}

func (c *Client) defaultRates() []shipper.RateQuote {
	return []shipper.RateQuote{
		Rate(c.name+"-ground", "USPS", "Ground Advantage", "6.95", 5),
		Rate(c.name+"-priority", "USPS", "Priority Mail", "9.80", 2),
		Rate(c.name+"-2day", "UPS", "2nd Day Air", "24.10", 2),
		Rate(c.name+"-overnight", "FedEx", "Standard Overnight", "48.00", 1),
	}
}

// Rate builds a USD rate quote. Negative days leave EstimatedDays unset.
func Rate(id, carrier, serviceLevel, amount string, days int) shipper.RateQuote {
	r := shipper.RateQuote{
		RateID:        id,
		Provider:      carrier,
		ServiceLevel:  serviceLevel,
		Amount:        decimal.RequireFromString(amount),
		Currency:      currency.USD,
		DurationTerms: fmt.Sprintf("%s %s", carrier, serviceLevel),
		Source:        "mock",
	}
	if days >= 0 {
		r.EstimatedDays = &days
	}
	return r
}

var _ shipper.RateProvider = (*Client)(nil)
