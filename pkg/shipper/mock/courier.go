package mock

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/tournevent/checkout/pkg/shipper"
	"go.uber.org/atomic"
	"golang.org/x/text/currency"
)

// Courier is a mock same-day quoter with a flat fee.
type Courier struct {
	name string
	fee  decimal.Decimal

	mu   sync.RWMutex
	fail map[string]error

	// Calls counts Quote invocations.
	Calls atomic.Int64
}

// NewCourier creates a mock courier charging fee (major units) per delivery.
func NewCourier(name, fee string) *Courier {
	return &Courier{
		name: name,
		fee:  decimal.RequireFromString(fee),
		fail: make(map[string]error),
	}
}

// Name returns the courier name.
func (c *Courier) Name() string {
	return c.name
}

// Fail makes quotes for sellerID return err, or an auth failure when err is nil.
func (c *Courier) Fail(sellerID string, err error) {
	if err == nil {
		err = shipper.NewProviderError(c.name, "MOCK_AUTH", "simulated token failure").
			WithKind(shipper.ErrAuthenticationFailed)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fail[sellerID] = err
}

// Quote returns a quote whose id is derived from the seller.
func (c *Courier) Quote(ctx context.Context, req *shipper.SameDayQuoteRequest) (*shipper.SameDayQuote, error) {
	c.Calls.Inc()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.RLock()
	err, failing := c.fail[req.SellerID]
	c.mu.RUnlock()
	if failing {
		return nil, err
	}

	return &shipper.SameDayQuote{
		QuoteID:               c.name + "-" + req.SellerID,
		Fee:                   c.fee,
		Currency:              currency.USD,
		DurationMinutes:       45,
		PickupDurationMinutes: 10,
	}, nil
}

var _ shipper.SameDayQuoter = (*Courier)(nil)
