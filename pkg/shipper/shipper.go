// Package shipper provides the provider abstractions used to build checkout
// delivery options.
package shipper

import (
	"context"
)

// RateProvider is a multi-carrier rate API.
type RateProvider interface {
	// Name returns the provider identifier (e.g., "shippo").
	Name() string

	// GetRates returns every rate the API offers for one seller leg.
	GetRates(ctx context.Context, req *RateRequest) ([]RateQuote, error)
}

// Geocoder resolves a postal address to coordinates.
type Geocoder interface {
	// Geocode returns ErrNotFound (possibly wrapped) when nothing matches.
	Geocode(ctx context.Context, addr Address) (Coordinates, error)
}

// Router computes driving distances between coordinates.
type Router interface {
	// DrivingDistance returns the route length in meters.
	DrivingDistance(ctx context.Context, from, to Coordinates) (float64, error)
}

// SameDayQuoter obtains courier delivery quotes.
type SameDayQuoter interface {
	Name() string
	Quote(ctx context.Context, req *SameDayQuoteRequest) (*SameDayQuote, error)
}
