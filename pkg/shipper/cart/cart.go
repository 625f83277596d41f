// Package cart partitions a checkout cart by seller and builds one parcel per seller.
package cart

import (
	"github.com/tournevent/checkout/pkg/shipper"
)

// Defaults applied when catalog data omits a value. Rate APIs reject zero dimensions.
const (
	DefaultWeight = 1.0 // lb
	DefaultLength = 6.0 // in
	DefaultWidth  = 6.0 // in
	DefaultHeight = 4.0 // in
)

// Group partitions items by seller. Groups keep the order in which sellers first
// appear in the cart and each carries its built parcel.
func Group(items []shipper.CartItem) []shipper.SellerGroup {
	index := make(map[string]int)
	var groups []shipper.SellerGroup

	for _, item := range items {
		i, ok := index[item.SellerID]
		if !ok {
			i = len(groups)
			index[item.SellerID] = i
			groups = append(groups, shipper.SellerGroup{SellerID: item.SellerID})
		}
		groups[i].Items = append(groups[i].Items, item)
	}

	for i := range groups {
		groups[i].Parcel = BuildParcel(groups[i].Items)
	}
	return groups
}

// BuildParcel reduces a seller's items to one parcel. Boxes are stacked: weight and
// height add up per unit, length and width take the maximum.
func BuildParcel(items []shipper.CartItem) shipper.Parcel {
	p := shipper.Parcel{
		DistanceUnit: shipper.DistanceIN,
		MassUnit:     shipper.MassLB,
	}

	for _, item := range items {
		qty := float64(item.Quantity)
		if item.Quantity < 1 {
			qty = 1
		}

		p.Weight += orDefault(item.UnitWeight, DefaultWeight) * qty
		p.Height += orDefault(item.Height, DefaultHeight) * qty
		p.Length = max(p.Length, orDefault(item.Length, DefaultLength))
		p.Width = max(p.Width, orDefault(item.Width, DefaultWidth))
	}

	if len(items) == 0 {
		p.Weight = DefaultWeight
		p.Length = DefaultLength
		p.Width = DefaultWidth
		p.Height = DefaultHeight
	}
	return p
}

func orDefault(v, def float64) float64 {
	if v <= 0 {
		return def
	}
	return v
}
