package mock

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/tournevent/checkout/pkg/shipper"
	"github.com/tournevent/checkout/pkg/shipper/policy"
)

// DefaultMiles is the driving distance reported for pairs with no explicit distance.
const DefaultMiles = 5.0

// Maps is a mock Geocoder and Router. Each distinct address gets its own
// coordinates; distances between pairs are set explicitly with SetMiles.
type Maps struct {
	mu        sync.Mutex
	coords    map[string]shipper.Coordinates
	distances map[[2]shipper.Coordinates]float64
	failing   map[string]bool

	// FailRoutes makes every DrivingDistance call fail.
	FailRoutes bool
}

// NewMaps creates an empty mock map provider.
func NewMaps() *Maps {
	return &Maps{
		coords:    make(map[string]shipper.Coordinates),
		distances: make(map[[2]shipper.Coordinates]float64),
		failing:   make(map[string]bool),
	}
}

func addressKey(a shipper.Address) string {
	return a.Line1 + "|" + a.PostalCode + "|" + a.CountryCode
}

// locate must be called with m.mu held.
func (m *Maps) locate(a shipper.Address) shipper.Coordinates {
	key := addressKey(a)
	if c, ok := m.coords[key]; ok {
		return c
	}
	c := shipper.Coordinates{
		Lat:              float64(len(m.coords)),
		Lng:              0,
		FormattedAddress: a.Line1 + ", " + a.City,
		Relevance:        1,
	}
	m.coords[key] = c
	return c
}

// SetMiles fixes the driving distance between a and b in both directions.
func (m *Maps) SetMiles(a, b shipper.Address, miles float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	meters := metersFor(miles)
	ca, cb := m.locate(a), m.locate(b)
	m.distances[[2]shipper.Coordinates{ca, cb}] = meters
	m.distances[[2]shipper.Coordinates{cb, ca}] = meters
}

// FailGeocode makes geocoding a fail with shipper.ErrNotFound.
func (m *Maps) FailGeocode(a shipper.Address) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failing[addressKey(a)] = true
}

// Geocode returns the coordinates assigned to addr.
func (m *Maps) Geocode(ctx context.Context, addr shipper.Address) (shipper.Coordinates, error) {
	if err := ctx.Err(); err != nil {
		return shipper.Coordinates{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failing[addressKey(addr)] {
		return shipper.Coordinates{}, fmt.Errorf("geocode %q: %w", addr.PostalCode, shipper.ErrNotFound)
	}
	return m.locate(addr), nil
}

// DrivingDistance returns the configured distance in meters.
func (m *Maps) DrivingDistance(ctx context.Context, from, to shipper.Coordinates) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailRoutes {
		return 0, shipper.NewProviderError("mock", "NO_ROUTE", "simulated routing outage").
			WithKind(shipper.ErrProviderUnavailable)
	}
	if d, ok := m.distances[[2]shipper.Coordinates{from, to}]; ok {
		return d, nil
	}
	return metersFor(DefaultMiles), nil
}

// metersFor returns a distance that converts back to at most miles.
func metersFor(miles float64) float64 {
	meters := miles * policy.MetersPerMile
	for policy.MetersToMiles(meters) > miles {
		meters = math.Nextafter(meters, 0)
	}
	return meters
}

var (
	_ shipper.Geocoder = (*Maps)(nil)
	_ shipper.Router   = (*Maps)(nil)
)
