package shippo

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// MockAPIClient is a mock implementation of APIClient for testing.
type MockAPIClient struct {
	SimulateErrors  bool
	SimulateLatency time.Duration

	OnCreateShipment func(ctx context.Context, req *ShipmentRequest) (*ShipmentResponse, error)
}

// NewMockAPIClient creates a new mock API client with default behavior.
func NewMockAPIClient() *MockAPIClient {
	return &MockAPIClient{}
}

// CreateShipment returns a mock shipment with a mix of standard and rush rates.
func (m *MockAPIClient) CreateShipment(ctx context.Context, req *ShipmentRequest) (*ShipmentResponse, error) {
	if m.SimulateLatency > 0 {
		select {
		case <-time.After(m.SimulateLatency):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if m.SimulateErrors {
		return nil, &APIError{StatusCode: 503, Code: "MOCK_ERROR", Message: "Simulated API error"}
	}

	if m.OnCreateShipment != nil {
		return m.OnCreateShipment(ctx, req)
	}

	return &ShipmentResponse{
		ObjectID: "shp_" + uuid.New().String()[:8],
		Status:   "SUCCESS",
		Rates: []Rate{
			{
				ObjectID:      "rate_usps_ground",
				Amount:        "7.85",
				Currency:      "USD",
				Provider:      "USPS",
				ServiceLevel:  ServiceLevel{Name: "Ground Advantage", Token: "usps_ground_advantage"},
				EstimatedDays: intPtr(5),
				DurationTerms: "Delivery in 2 to 5 business days.",
				ObjectOwner:   "mock",
			},
			{
				ObjectID:      "rate_usps_priority",
				Amount:        "10.40",
				Currency:      "USD",
				Provider:      "USPS",
				ServiceLevel:  ServiceLevel{Name: "Priority Mail", Token: "usps_priority"},
				EstimatedDays: intPtr(2),
				DurationTerms: "Delivery within 1, 2, or 3 days.",
				ObjectOwner:   "mock",
			},
			{
				ObjectID:      "rate_ups_ground",
				Amount:        "12.10",
				Currency:      "USD",
				Provider:      "UPS",
				ServiceLevel:  ServiceLevel{Name: "Ground", Token: "ups_ground"},
				EstimatedDays: intPtr(4),
				DurationTerms: "Delivery times vary.",
				ObjectOwner:   "mock",
			},
			{
				ObjectID:      "rate_ups_next_day",
				Amount:        "41.25",
				Currency:      "USD",
				Provider:      "UPS",
				ServiceLevel:  ServiceLevel{Name: "Next Day Air", Token: "ups_next_day_air"},
				EstimatedDays: intPtr(1),
				DurationTerms: "Next business day delivery.",
				ObjectOwner:   "mock",
			},
		},
	}, nil
}

func intPtr(v int) *int { return &v }

var _ APIClient = (*MockAPIClient)(nil)
