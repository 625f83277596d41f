package uberdirect

import (
	"context"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/tournevent/checkout/pkg/shipper/policy"
	"go.uber.org/atomic"
)

// MockAPIClient is a mock implementation of APIClient for testing.
type MockAPIClient struct {
	SimulateErrors  bool
	SimulateLatency time.Duration

	OnCreateQuote func(ctx context.Context, req *QuoteRequest) (*QuoteResponse, error)

	// Calls counts CreateQuote invocations.
	Calls atomic.Int64
}

// NewMockAPIClient creates a new mock API client with default behavior.
func NewMockAPIClient() *MockAPIClient {
	return &MockAPIClient{}
}

// CreateQuote returns a quote whose id is stable for a given address pair.
func (m *MockAPIClient) CreateQuote(ctx context.Context, req *QuoteRequest) (*QuoteResponse, error) {
	m.Calls.Inc()

	if m.SimulateLatency > 0 {
		select {
		case <-time.After(m.SimulateLatency):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if m.SimulateErrors {
		return nil, &APIError{StatusCode: 503, Code: "service_unavailable", Message: "Simulated API error"}
	}

	if m.OnCreateQuote != nil {
		return m.OnCreateQuote(ctx, req)
	}

	h := fnv.New32a()
	_, _ = h.Write([]byte(req.PickupAddress))
	_, _ = h.Write([]byte(req.DropoffAddress))

	created := req.PickupDeadline.Add(-policy.PickupDeadlineOffset)
	eta := created.Add(55 * time.Minute)
	expires := created.Add(15 * time.Minute)

	return &QuoteResponse{
		Kind:           "delivery_quote",
		ID:             fmt.Sprintf("dqt_%08x", h.Sum32()),
		Created:        created,
		Expires:        &expires,
		Fee:            1299,
		Currency:       "usd",
		CurrencyType:   "USD",
		DropoffETA:     &eta,
		Duration:       55,
		PickupDuration: 12,
	}, nil
}

var _ APIClient = (*MockAPIClient)(nil)
