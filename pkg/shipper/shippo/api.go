package shippo

import (
	"context"
)

// APIClient defines the interface for Shippo API operations.
// This abstraction allows for mock implementations during testing
// and real implementations in production.
type APIClient interface {
	// CreateShipment creates a shipment and returns its rates synchronously.
	CreateShipment(ctx context.Context, req *ShipmentRequest) (*ShipmentResponse, error)
}

// ============================================================================
// API Request/Response Types (match the Shippo REST API structure)
// ============================================================================

// ShipmentRequest represents a shipment creation request.
// POST /shipments/ endpoint
type ShipmentRequest struct {
	AddressFrom Address  `json:"address_from"`
	AddressTo   Address  `json:"address_to"`
	Parcels     []Parcel `json:"parcels"`
	Async       bool     `json:"async"` // false: rates are returned in the response
}

// Address represents a shipment origin or destination.
type Address struct {
	Name    string `json:"name,omitempty"`
	Street1 string `json:"street1"`
	Street2 string `json:"street2,omitempty"`
	City    string `json:"city"`
	State   string `json:"state"`
	Zip     string `json:"zip"`
	Country string `json:"country"` // ISO 3166-1 alpha-2 code
	Phone   string `json:"phone,omitempty"`
}

// Parcel represents a single parcel. Numeric values are sent as strings.
type Parcel struct {
	Length       string `json:"length"`
	Width        string `json:"width"`
	Height       string `json:"height"`
	DistanceUnit string `json:"distance_unit"` // "in", "cm"
	Weight       string `json:"weight"`
	MassUnit     string `json:"mass_unit"` // "lb", "kg"
}

// ShipmentResponse represents the shipment creation response.
type ShipmentResponse struct {
	ObjectID string    `json:"object_id"`
	Status   string    `json:"status"` // "SUCCESS", "QUEUED", "ERROR"
	Rates    []Rate    `json:"rates"`
	Messages []Message `json:"messages,omitempty"`
}

// Rate represents a single carrier rate.
type Rate struct {
	ObjectID      string       `json:"object_id"`
	Amount        string       `json:"amount"`
	Currency      string       `json:"currency"`
	Provider      string       `json:"provider"`
	ServiceLevel  ServiceLevel `json:"servicelevel"`
	EstimatedDays *int         `json:"estimated_days"`
	DurationTerms string       `json:"duration_terms"`
	ObjectOwner   string       `json:"object_owner"`
}

// ServiceLevel describes a carrier service.
type ServiceLevel struct {
	Name  string `json:"name"`
	Token string `json:"token"`
}

// Message is an informational message attached to a shipment.
type Message struct {
	Source string `json:"source"`
	Code   string `json:"code"`
	Text   string `json:"text"`
}

// APIError represents an error from the Shippo API.
type APIError struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code"`
	Message    string `json:"detail"`
}

func (e *APIError) Error() string {
	return e.Code + ": " + e.Message
}
