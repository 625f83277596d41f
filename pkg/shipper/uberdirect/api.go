package uberdirect

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// APIClient defines the interface for Uber Direct API operations.
// This abstraction allows for mock implementations during testing
// and real implementations in production.
type APIClient interface {
	// CreateQuote prices a single pickup/dropoff delivery.
	CreateQuote(ctx context.Context, req *QuoteRequest) (*QuoteResponse, error)
}

// ============================================================================
// API Request/Response Types (match the Uber Direct REST API structure)
// ============================================================================

// QuoteRequest represents a delivery quote request.
// POST /v1/customers/{customer_id}/delivery_quotes
type QuoteRequest struct {
	PickupAddress      string    `json:"pickup_address"`  // JSON-encoded QuoteAddress
	DropoffAddress     string    `json:"dropoff_address"` // JSON-encoded QuoteAddress
	PickupPhoneNumber  string    `json:"pickup_phone_number"`
	DropoffPhoneNumber string    `json:"dropoff_phone_number"`
	PickupDeadline     time.Time `json:"pickup_deadline_dt"`
	DropoffReady       time.Time `json:"dropoff_ready_dt"`
	DropoffDeadline    time.Time `json:"dropoff_deadline_dt"`
	ManifestTotalValue int64     `json:"manifest_total_value"` // cents
}

// QuoteAddress is the structured address the API expects as a string.
type QuoteAddress struct {
	StreetAddress []string `json:"street_address"`
	City          string   `json:"city"`
	State         string   `json:"state"`
	ZipCode       string   `json:"zip_code"`
	Country       string   `json:"country"`
}

// Encode renders the address in its compact JSON string form.
func (a QuoteAddress) Encode() (string, error) {
	b, err := json.Marshal(a)
	if err != nil {
		return "", fmt.Errorf("failed to encode address: %w", err)
	}
	return string(b), nil
}

// QuoteResponse represents a delivery quote.
type QuoteResponse struct {
	Kind           string     `json:"kind"`
	ID             string     `json:"id"`
	Created        time.Time  `json:"created"`
	Expires        *time.Time `json:"expires,omitempty"`
	Fee            int64      `json:"fee"` // minor units
	Currency       string     `json:"currency"`
	CurrencyType   string     `json:"currency_type"`
	DropoffETA     *time.Time `json:"dropoff_eta,omitempty"`
	Duration       int        `json:"duration"`        // minutes until dropoff
	PickupDuration int        `json:"pickup_duration"` // minutes until pickup
}

// APIError represents an error response from the Uber Direct API.
type APIError struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("uber direct API error %d (%s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("uber direct API error %s: %s", e.Code, e.Message)
}
