package mapbox

import (
	"context"
	"fmt"
)

// APIClient defines the interface for Mapbox API operations.
// This abstraction allows for mock implementations during testing
// and real implementations in production.
type APIClient interface {
	// ForwardGeocode resolves a free-text address to address-level features.
	ForwardGeocode(ctx context.Context, req *GeocodeRequest) (*GeocodeResponse, error)

	// Directions returns driving routes between two points.
	Directions(ctx context.Context, req *DirectionsRequest) (*DirectionsResponse, error)
}

// ============================================================================
// API Request/Response Types (match the Mapbox REST API structure)
// ============================================================================

// GeocodeRequest is a forward geocoding query.
// GET /geocoding/v5/mapbox.places/{query}.json
type GeocodeRequest struct {
	Query   string
	Country string // lower-case ISO alpha-2, optional
	Types   string // "address" restricts results to street addresses
	Limit   int
}

// GeocodeResponse is a GeoJSON feature collection.
type GeocodeResponse struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

// Feature is a single geocoding match.
type Feature struct {
	ID        string    `json:"id"`
	PlaceType []string  `json:"place_type"`
	PlaceName string    `json:"place_name"`
	Relevance float64   `json:"relevance"`
	Center    []float64 `json:"center"` // [lng, lat]
}

// LngLat is a position in Mapbox coordinate order.
type LngLat struct {
	Lng float64
	Lat float64
}

// String formats the position the way the Directions API expects.
func (p LngLat) String() string {
	return fmt.Sprintf("%f,%f", p.Lng, p.Lat)
}

// DirectionsRequest is a routing request between two points.
// GET /directions/v5/mapbox/{profile}/{coordinates}
type DirectionsRequest struct {
	Profile string // "driving"
	From    LngLat
	To      LngLat
}

// DirectionsResponse lists candidate routes, best first.
type DirectionsResponse struct {
	Code    string  `json:"code"`
	Message string  `json:"message,omitempty"`
	Routes  []Route `json:"routes"`
}

// Route is one routing result. Distance is in meters, duration in seconds.
type Route struct {
	Distance float64 `json:"distance"`
	Duration float64 `json:"duration"`
}

// APIError represents an error response from the Mapbox API.
type APIError struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code,omitempty"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("mapbox API error %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("mapbox API error %s: %s", e.Code, e.Message)
}
