package checkout_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tournevent/checkout/internal/checkout"
	"github.com/tournevent/checkout/pkg/shipper"
)

func TestAddressBody_Normalize(t *testing.T) {
	tests := []struct {
		name string
		body checkout.AddressBody
		want shipper.Address
	}{
		{
			name: "canonical spelling",
			body: checkout.AddressBody{Street1: "1 Main St", Street2: "Apt 4", City: "Oakland", State: "CA", Zip: "94607", Country: "US"},
			want: shipper.Address{Line1: "1 Main St", Line2: "Apt 4", City: "Oakland", Region: "CA", PostalCode: "94607", CountryCode: "US"},
		},
		{
			name: "aliases and defaults",
			body: checkout.AddressBody{Street: " 1 Main St ", City: "Oakland", State: "ca", ZipCode: "94607"},
			want: shipper.Address{Line1: "1 Main St", City: "Oakland", Region: "CA", PostalCode: "94607", CountryCode: "US"},
		},
		{
			name: "province alias and lowercase country",
			body: checkout.AddressBody{Name: "Shop", Street1: "100 Queen St W", City: "Toronto", Province: "on", PostalCode: "M5H 2N2", Country: "ca", Phone: "+14165550100"},
			want: shipper.Address{Name: "Shop", Line1: "100 Queen St W", City: "Toronto", Region: "ON", PostalCode: "M5H 2N2", CountryCode: "CA", Phone: "+14165550100"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.body.Normalize())
		})
	}
}

func TestAddressBody_NormalizeFromJSON(t *testing.T) {
	raw := `{"address1": "5 Elm St", "line2": "Suite 2", "city": "Austin", "region": "tx", "postal_code": "73301"}`

	var body checkout.AddressBody
	require.NoError(t, json.Unmarshal([]byte(raw), &body))

	assert.Equal(t, shipper.Address{
		Line1: "5 Elm St", Line2: "Suite 2", City: "Austin", Region: "TX", PostalCode: "73301", CountryCode: "US",
	}, body.Normalize())
}

func TestRequestBody_ToRequest(t *testing.T) {
	raw := `{
		"cartItems": [
			{"productId": "p1", "sellerId": "s1", "quantity": 2, "unitWeight": 1.2, "length": 10, "width": 5, "height": 2, "price": "19.99"},
			{"productId": "p2", "storeId": "s2", "weight": 3, "price": 5}
		],
		"customerAddress": {"street1": "9 Buyer Rd", "city": "San Francisco", "state": "CA", "zip": "94110"},
		"sellerAddress": {"street": "1 Default St", "city": "Oakland", "state": "CA", "zipCode": "94607"},
		"sellerAddresses": {"s1": {"street1": "1 Near St", "city": "San Francisco", "state": "CA", "postalCode": "94103"}}
	}`

	var body checkout.RequestBody
	require.NoError(t, json.Unmarshal([]byte(raw), &body))

	req, err := body.ToRequest()
	require.NoError(t, err)

	require.Len(t, req.CartItems, 2)
	assert.Equal(t, "s1", req.CartItems[0].SellerID)
	assert.Equal(t, 2, req.CartItems[0].Quantity)
	assert.Equal(t, 1.2, req.CartItems[0].UnitWeight)
	assert.True(t, decimal.RequireFromString("19.99").Equal(req.CartItems[0].Price))

	assert.Equal(t, "s2", req.CartItems[1].SellerID)
	assert.Equal(t, 1, req.CartItems[1].Quantity)
	assert.Equal(t, 3.0, req.CartItems[1].UnitWeight)

	assert.Equal(t, "94110", req.BuyerAddress.PostalCode)
	assert.Equal(t, "US", req.BuyerAddress.CountryCode)

	ctx := context.Background()
	s1, err := req.Sellers.SellerAddress(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "1 Near St", s1.Line1)

	s2, err := req.Sellers.SellerAddress(ctx, "s2")
	require.NoError(t, err)
	assert.Equal(t, "1 Default St", s2.Line1)
}

func TestRequestBody_ToRequestErrors(t *testing.T) {
	addr := &checkout.AddressBody{Street1: "1 Main St", City: "Oakland", State: "CA", Zip: "94607"}

	tests := []struct {
		name string
		body checkout.RequestBody
		want string
	}{
		{"missing cart items", checkout.RequestBody{CustomerAddress: addr}, "cartItems is required"},
		{"missing customer address", checkout.RequestBody{CartItems: []checkout.CartItemBody{{ProductID: "p1"}}}, "customerAddress is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.body.ToRequest()
			require.Error(t, err)
			assert.True(t, errors.Is(err, shipper.ErrRequestMalformed))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestRequestBody_ExplicitZeroQuantityIsKept(t *testing.T) {
	var body checkout.RequestBody
	raw := `{"cartItems":[{"productId":"p1","sellerId":"s1","quantity":0,"price":1}],"customerAddress":{"street1":"a","city":"b","state":"CA","zip":"1"}}`
	require.NoError(t, json.Unmarshal([]byte(raw), &body))

	req, err := body.ToRequest()

	require.NoError(t, err)
	assert.Equal(t, 0, req.CartItems[0].Quantity)
}

func TestSellerAddresses_NotFound(t *testing.T) {
	_, err := checkout.SellerAddresses{}.SellerAddress(context.Background(), "nobody")

	assert.ErrorIs(t, err, shipper.ErrNotFound)
	assert.Contains(t, err.Error(), "nobody")
}

func TestNewResponse_Failure(t *testing.T) {
	resp := checkout.NewResponse(nil, fmt.Errorf("%w: cartItems is required", shipper.ErrRequestMalformed))

	out, err := json.Marshal(resp)
	require.NoError(t, err)

	assert.JSONEq(t, `{"success":false,"error":"request malformed: cartItems is required","shippingGroups":[]}`, string(out))
}

func TestNewResponse_Success(t *testing.T) {
	days := 3
	eta := time.Date(2026, 10, 16, 15, 30, 0, 0, time.UTC)
	groups := []shipper.ShippingGroupResult{
		{
			GroupID: "s1",
			Items: []shipper.CartItem{
				{ProductID: "p1", SellerID: "s1", Quantity: 2, Price: decimal.RequireFromString("19.99")},
			},
			DeliveryOptions: []shipper.DeliveryOption{
				{
					RateID: "dqt_1", Kind: shipper.KindSameDay, Label: "Friday, October 16", DeliveryDate: "2026-10-16",
					Price: decimal.RequireFromString("12.99"), Provider: "uber_direct", ServiceLevel: "Same Day",
					DurationTerms: "Delivered today",
					SameDay:       &shipper.SameDayMetadata{QuoteID: "dqt_1", DropoffETA: &eta},
				},
				{
					RateID: "r1", Kind: shipper.KindStandard, Label: "Monday, October 19", DeliveryDate: "2026-10-19",
					Price: decimal.RequireFromString("6.95"), Provider: "USPS", ServiceLevel: "Ground Advantage",
					DurationTerms: "USPS Ground Advantage", EstimatedDays: &days,
				},
			},
		},
		{GroupID: "s2", Items: []shipper.CartItem{{ProductID: "p2", SellerID: "s2", Quantity: 1}}, DeliveryOptions: []shipper.DeliveryOption{}},
	}

	out, err := json.Marshal(checkout.NewResponse(groups, nil))
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"success": true,
		"shippingGroups": [
			{
				"groupId": "s1",
				"items": [{"productId": "p1", "sellerId": "s1", "quantity": 2, "price": 19.99}],
				"deliveryOptions": [
					{"rateId": "dqt_1", "type": "same_day", "label": "Friday, October 16", "deliveryDateISO": "2026-10-16",
					 "price": 12.99, "provider": "uber_direct", "serviceLevel": "Same Day", "durationTerms": "Delivered today",
					 "quoteId": "dqt_1", "dropoffEta": "2026-10-16T15:30:00Z"},
					{"rateId": "r1", "type": "standard", "label": "Monday, October 19", "deliveryDateISO": "2026-10-19",
					 "price": 6.95, "provider": "USPS", "serviceLevel": "Ground Advantage", "durationTerms": "USPS Ground Advantage",
					 "estimatedDays": 3}
				]
			},
			{"groupId": "s2", "items": [{"productId": "p2", "sellerId": "s2", "quantity": 1, "price": 0}], "deliveryOptions": []}
		]
	}`, string(out))
}
