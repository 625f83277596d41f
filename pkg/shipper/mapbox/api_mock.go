package mapbox

import (
	"context"
	"hash/fnv"
	"math"
	"time"
)

// Mock geocoder anchor, downtown San Francisco.
var mockOrigin = LngLat{Lng: -122.4194, Lat: 37.7749}

const (
	earthRadiusMeters = 6371000.0
	mockRoadFactor    = 1.25 // driving routes are longer than great-circle distance
)

// MockAPIClient is a mock implementation of APIClient for testing.
// Unknown queries geocode to a stable point near mockOrigin derived from the
// query text, so the same address always lands in the same place.
type MockAPIClient struct {
	SimulateErrors  bool
	SimulateLatency time.Duration

	// Places pins exact query strings to fixed coordinates.
	Places map[string]LngLat

	OnForwardGeocode func(ctx context.Context, req *GeocodeRequest) (*GeocodeResponse, error)
	OnDirections     func(ctx context.Context, req *DirectionsRequest) (*DirectionsResponse, error)
}

// NewMockAPIClient creates a new mock API client with default behavior.
func NewMockAPIClient() *MockAPIClient {
	return &MockAPIClient{Places: make(map[string]LngLat)}
}

// ForwardGeocode returns one address feature for any non-empty query.
func (m *MockAPIClient) ForwardGeocode(ctx context.Context, req *GeocodeRequest) (*GeocodeResponse, error) {
	if err := m.wait(ctx); err != nil {
		return nil, err
	}

	if m.SimulateErrors {
		return nil, &APIError{StatusCode: 503, Message: "Simulated API error"}
	}

	if m.OnForwardGeocode != nil {
		return m.OnForwardGeocode(ctx, req)
	}

	if req.Query == "" {
		return &GeocodeResponse{Type: "FeatureCollection"}, nil
	}

	pos, ok := m.Places[req.Query]
	if !ok {
		pos = hashedPosition(req.Query)
	}

	return &GeocodeResponse{
		Type: "FeatureCollection",
		Features: []Feature{{
			ID:        "address.mock",
			PlaceType: []string{"address"},
			PlaceName: req.Query,
			Relevance: 1,
			Center:    []float64{pos.Lng, pos.Lat},
		}},
	}, nil
}

// Directions returns a single route scaled from the great-circle distance.
func (m *MockAPIClient) Directions(ctx context.Context, req *DirectionsRequest) (*DirectionsResponse, error) {
	if err := m.wait(ctx); err != nil {
		return nil, err
	}

	if m.SimulateErrors {
		return nil, &APIError{StatusCode: 503, Message: "Simulated API error"}
	}

	if m.OnDirections != nil {
		return m.OnDirections(ctx, req)
	}

	meters := haversine(req.From, req.To) * mockRoadFactor
	return &DirectionsResponse{
		Code: "Ok",
		Routes: []Route{{
			Distance: meters,
			Duration: meters / 13.4, // ~30 mph average
		}},
	}, nil
}

func (m *MockAPIClient) wait(ctx context.Context) error {
	if m.SimulateLatency <= 0 {
		return nil
	}
	select {
	case <-time.After(m.SimulateLatency):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// hashedPosition places a query within roughly 15 km of mockOrigin.
func hashedPosition(query string) LngLat {
	h := fnv.New64a()
	_, _ = h.Write([]byte(query))
	sum := h.Sum64()

	dLng := (float64(sum&0xffff)/0xffff - 0.5) * 0.3
	dLat := (float64((sum>>16)&0xffff)/0xffff - 0.5) * 0.3
	return LngLat{Lng: mockOrigin.Lng + dLng, Lat: mockOrigin.Lat + dLat}
}

func haversine(a, b LngLat) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusMeters * math.Asin(math.Sqrt(h))
}

var _ APIClient = (*MockAPIClient)(nil)
