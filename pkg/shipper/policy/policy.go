// Package policy holds the business rules that turn raw quotes into buyer-facing
// delivery options.
package policy

import (
	"regexp"
	"sort"
	"strconv"
	"time"

	"github.com/tournevent/checkout/pkg/shipper"
)

const (
	// SameDayRadiusMiles is the inclusive driving distance limit for same-day courier service.
	SameDayRadiusMiles = 10.0

	// MetersPerMile converts routing distances.
	MetersPerMile = 1609.344

	// Courier deadline offsets relative to quote time.
	PickupDeadlineOffset  = 30 * time.Minute
	DropoffReadyOffset    = 60 * time.Minute
	DropoffDeadlineOffset = 4 * time.Hour

	// MaxStandardOptions caps standard options per seller (cheapest + fastest).
	MaxStandardOptions = 2

	// DateLayout is the ISO date format of DeliveryOption.DeliveryDate.
	DateLayout = "2006-01-02"

	// LabelLayout renders dates for buyers, e.g. "Tuesday, October 20".
	LabelLayout = "Monday, January 2"

	// UnknownDateLabel is shown when a carrier gives no transit estimate.
	UnknownDateLabel = "Delivery date unavailable"
)

// ExcludedServiceLevels matches rush/premium tiers that are never offered as standard shipping.
var ExcludedServiceLevels = regexp.MustCompile(`(?i)air|express|next day|2nd day|3rd day|overnight|saver`)

// IsStandard reports whether a service level name is eligible for standard options.
func IsStandard(serviceLevel string) bool {
	return !ExcludedServiceLevels.MatchString(serviceLevel)
}

// FilterStandard drops excluded service levels, keeping input order.
func FilterStandard(rates []shipper.RateQuote) []shipper.RateQuote {
	out := make([]shipper.RateQuote, 0, len(rates))
	for _, r := range rates {
		if IsStandard(r.ServiceLevel) {
			out = append(out, r)
		}
	}
	return out
}

// SelectCheapestAndFastest returns [cheapest] or [cheapest, fastest].
// Fastest is picked among rates with a transit estimate; equal estimates fall
// back to the lower amount. The input slice is not modified.
func SelectCheapestAndFastest(rates []shipper.RateQuote) []shipper.RateQuote {
	if len(rates) == 0 {
		return nil
	}

	byAmount := make([]shipper.RateQuote, len(rates))
	copy(byAmount, rates)
	sort.SliceStable(byAmount, func(i, j int) bool {
		return byAmount[i].Amount.LessThan(byAmount[j].Amount)
	})
	cheapest := byAmount[0]

	var timed []shipper.RateQuote
	for _, r := range byAmount {
		if r.EstimatedDays != nil {
			timed = append(timed, r)
		}
	}
	sort.SliceStable(timed, func(i, j int) bool {
		return *timed[i].EstimatedDays < *timed[j].EstimatedDays
	})

	selected := []shipper.RateQuote{cheapest}
	if len(timed) > 0 && timed[0].RateID != cheapest.RateID {
		selected = append(selected, timed[0])
	}
	return selected
}

// StandardOptions applies filtering, selection and mapping in one step.
func StandardOptions(rates []shipper.RateQuote, now time.Time) []shipper.DeliveryOption {
	selected := SelectCheapestAndFastest(FilterStandard(rates))
	options := make([]shipper.DeliveryOption, 0, len(selected))
	for _, r := range selected {
		options = append(options, StandardOption(r, now))
	}
	return options
}

// StandardOption maps a carrier rate to a delivery option dated now + estimated days.
func StandardOption(r shipper.RateQuote, now time.Time) shipper.DeliveryOption {
	opt := shipper.DeliveryOption{
		RateID:        r.RateID,
		Kind:          shipper.KindStandard,
		Label:         UnknownDateLabel,
		Price:         r.Amount,
		Provider:      r.Provider,
		ServiceLevel:  r.ServiceLevel,
		DurationTerms: r.DurationTerms,
	}
	if r.EstimatedDays != nil {
		days := *r.EstimatedDays
		opt.EstimatedDays = &days
		date := now.AddDate(0, 0, days)
		opt.DeliveryDate = date.Format(DateLayout)
		opt.Label = date.Format(LabelLayout)
	}
	return opt
}

// SameDayOption maps a courier quote to a delivery option. The date is the end of
// the dropoff window rather than the courier ETA.
func SameDayOption(provider string, q *shipper.SameDayQuote, now time.Time) shipper.DeliveryOption {
	date := now.Add(DropoffDeadlineOffset)
	return shipper.DeliveryOption{
		RateID:        q.QuoteID,
		Kind:          shipper.KindSameDay,
		Label:         date.Format(LabelLayout),
		DeliveryDate:  date.Format(DateLayout),
		Price:         q.Fee,
		Provider:      provider,
		ServiceLevel:  "Same Day",
		DurationTerms: sameDayTerms(q.DurationMinutes),
		SameDay: &shipper.SameDayMetadata{
			QuoteID:    q.QuoteID,
			DropoffETA: q.DropoffETA,
		},
	}
}

func sameDayTerms(minutes int) string {
	if minutes <= 0 {
		return "Delivered today"
	}
	return "Delivered today, about " + strconv.Itoa(minutes) + " minutes after pickup"
}

// MetersToMiles converts a routing distance.
func MetersToMiles(meters float64) float64 {
	return meters / MetersPerMile
}

// WithinSameDayRadius reports whether a distance qualifies for same-day service.
func WithinSameDayRadius(miles, radius float64) bool {
	return miles <= radius
}
