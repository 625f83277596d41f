package shipper

import (
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

// DistanceUnit represents dimension measurement unit.
type DistanceUnit string

const (
	DistanceIN DistanceUnit = "in"
	DistanceCM DistanceUnit = "cm"
)

// MassUnit represents weight measurement unit.
type MassUnit string

const (
	MassLB MassUnit = "lb"
	MassKG MassUnit = "kg"
)

// OptionKind distinguishes courier quotes from carrier rates in the output.
type OptionKind string

const (
	KindStandard OptionKind = "standard"
	KindSameDay  OptionKind = "same_day"
)

// Address is the canonical shipping address used by every component.
// Alternate field spellings are resolved before a value of this type exists.
type Address struct {
	Name        string `validate:"omitempty,max=128"`
	Line1       string `validate:"required"`
	Line2       string
	City        string `validate:"required"`
	Region      string `validate:"required"` // state / province code, e.g. "CA", "ON"
	PostalCode  string `validate:"required"`
	CountryCode string `validate:"required,len=2"` // ISO 3166-1 alpha-2
	Phone       string
}

// Coordinates is a geocoding result.
type Coordinates struct {
	Lat              float64
	Lng              float64
	FormattedAddress string
	Relevance        float64
}

// CartItem is one line of the buyer's cart. Zero dimensions mean "not provided".
type CartItem struct {
	ProductID  string
	SellerID   string `validate:"required"`
	Quantity   int    `validate:"gte=1"`
	UnitWeight float64
	Length     float64
	Width      float64
	Height     float64
	Price      decimal.Decimal
}

// Parcel is the package descriptor submitted to a rate provider.
type Parcel struct {
	Length       float64
	Width        float64
	Height       float64
	Weight       float64
	DistanceUnit DistanceUnit
	MassUnit     MassUnit
}

// SellerGroup is the part of a cart shipped by one seller.
type SellerGroup struct {
	SellerID string
	Items    []CartItem
	Parcel   Parcel
}

// RateQuote is one carrier service level returned by a rate API.
type RateQuote struct {
	RateID        string
	Provider      string // carrier, e.g. "USPS"
	ServiceLevel  string
	Amount        decimal.Decimal
	Currency      currency.Unit
	EstimatedDays *int
	DurationTerms string
	Source        string // rate API that produced the quote
}

// SameDayQuote is a courier platform delivery quote.
type SameDayQuote struct {
	QuoteID               string
	Fee                   decimal.Decimal // major units
	Currency              currency.Unit
	DurationMinutes       int
	PickupDurationMinutes int
	DropoffETA            *time.Time
	ExpiresAt             *time.Time
}

// SameDayMetadata carries courier identifiers needed at purchase time.
type SameDayMetadata struct {
	QuoteID    string
	DropoffETA *time.Time
}

// DeliveryOption is the buyer-facing unit offered at checkout.
type DeliveryOption struct {
	RateID        string
	Kind          OptionKind
	Label         string
	DeliveryDate  string // YYYY-MM-DD, empty when unknown
	Price         decimal.Decimal
	Provider      string
	ServiceLevel  string
	DurationTerms string
	EstimatedDays *int
	SameDay       *SameDayMetadata
}

// ShippingGroupResult holds the delivery options computed for one seller group.
type ShippingGroupResult struct {
	GroupID         string
	Items           []CartItem
	DeliveryOptions []DeliveryOption
}

// ============================================================================
// Request/Response Types
// ============================================================================

// RateRequest is the request for standard carrier rates for one seller leg.
type RateRequest struct {
	SellerID    string
	Origin      Address
	Destination Address
	Parcel      Parcel
}

// SameDayQuoteRequest is the request for a courier quote for one seller leg.
type SameDayQuoteRequest struct {
	SellerID      string
	Pickup        Address
	Dropoff       Address
	ManifestValue decimal.Decimal
}
