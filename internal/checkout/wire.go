package checkout

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tournevent/checkout/pkg/shipper"
)

// ============================================================================
// Inbound JSON shapes
// ============================================================================

// RequestBody is the JSON body accepted by POST /shipping-options.
type RequestBody struct {
	CartItems       []CartItemBody         `json:"cartItems"`
	CustomerAddress *AddressBody           `json:"customerAddress"`
	SellerAddress   *AddressBody           `json:"sellerAddress,omitempty"`
	SellerAddresses map[string]AddressBody `json:"sellerAddresses,omitempty"`
}

// CartItemBody is one cart line as sent by the storefront.
type CartItemBody struct {
	ProductID  string          `json:"productId"`
	SellerID   string          `json:"sellerId"`
	StoreID    string          `json:"storeId,omitempty"` // alias of sellerId
	Quantity   *int            `json:"quantity,omitempty"`
	UnitWeight float64         `json:"unitWeight,omitempty"`
	Weight     float64         `json:"weight,omitempty"` // alias of unitWeight
	Length     float64         `json:"length,omitempty"`
	Width      float64         `json:"width,omitempty"`
	Height     float64         `json:"height,omitempty"`
	Price      decimal.Decimal `json:"price"`
}

// AddressBody accepts the field spellings storefront clients send.
type AddressBody struct {
	Name            string `json:"name,omitempty"`
	Street1         string `json:"street1,omitempty"`
	Street          string `json:"street,omitempty"`
	Line1           string `json:"line1,omitempty"`
	Address1        string `json:"address1,omitempty"`
	Street2         string `json:"street2,omitempty"`
	Line2           string `json:"line2,omitempty"`
	City            string `json:"city"`
	State           string `json:"state,omitempty"`
	Region          string `json:"region,omitempty"`
	Province        string `json:"province,omitempty"`
	Zip             string `json:"zip,omitempty"`
	ZipCode         string `json:"zipCode,omitempty"`
	PostalCode      string `json:"postalCode,omitempty"`
	PostalCodeSnake string `json:"postal_code,omitempty"`
	Country         string `json:"country,omitempty"`
	Phone           string `json:"phone,omitempty"`
}

// DefaultCountry is assumed when an address omits its country.
const DefaultCountry = "US"

// Normalize resolves field aliases into the canonical address.
func (b AddressBody) Normalize() shipper.Address {
	country := strings.ToUpper(strings.TrimSpace(b.Country))
	if country == "" {
		country = DefaultCountry
	}
	return shipper.Address{
		Name:        strings.TrimSpace(b.Name),
		Line1:       firstNonEmpty(b.Street1, b.Street, b.Line1, b.Address1),
		Line2:       firstNonEmpty(b.Street2, b.Line2),
		City:        strings.TrimSpace(b.City),
		Region:      strings.ToUpper(firstNonEmpty(b.State, b.Region, b.Province)),
		PostalCode:  firstNonEmpty(b.Zip, b.ZipCode, b.PostalCode, b.PostalCodeSnake),
		CountryCode: country,
		Phone:       strings.TrimSpace(b.Phone),
	}
}

// ToRequest converts the body into an aggregator request. Only structural
// problems are reported here; field validation happens in the aggregator.
func (b RequestBody) ToRequest() (Request, error) {
	if b.CartItems == nil {
		return Request{}, fmt.Errorf("%w: cartItems is required", shipper.ErrRequestMalformed)
	}
	if b.CustomerAddress == nil {
		return Request{}, fmt.Errorf("%w: customerAddress is required", shipper.ErrRequestMalformed)
	}

	items := make([]shipper.CartItem, len(b.CartItems))
	for i, it := range b.CartItems {
		qty := 1
		if it.Quantity != nil {
			qty = *it.Quantity
		}
		weight := it.UnitWeight
		if weight == 0 {
			weight = it.Weight
		}
		items[i] = shipper.CartItem{
			ProductID:  it.ProductID,
			SellerID:   firstNonEmpty(it.SellerID, it.StoreID),
			Quantity:   qty,
			UnitWeight: weight,
			Length:     it.Length,
			Width:      it.Width,
			Height:     it.Height,
			Price:      it.Price,
		}
	}

	sellers := SellerAddresses{BySeller: make(map[string]shipper.Address, len(b.SellerAddresses))}
	for id, addr := range b.SellerAddresses {
		sellers.BySeller[id] = addr.Normalize()
	}
	if b.SellerAddress != nil {
		def := b.SellerAddress.Normalize()
		sellers.Default = &def
	}

	return Request{
		CartItems:    items,
		BuyerAddress: b.CustomerAddress.Normalize(),
		Sellers:      sellers,
	}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// ============================================================================
// Outbound JSON shapes
// ============================================================================

// Response is the JSON body returned for a shipping options request.
type Response struct {
	Success        bool        `json:"success"`
	Error          string      `json:"error,omitempty"`
	ShippingGroups []GroupBody `json:"shippingGroups"`
}

// GroupBody is one seller group in a response.
type GroupBody struct {
	GroupID         string       `json:"groupId"`
	Items           []ItemBody   `json:"items"`
	DeliveryOptions []OptionBody `json:"deliveryOptions"`
}

// ItemBody echoes a cart line back to the client.
type ItemBody struct {
	ProductID string  `json:"productId"`
	SellerID  string  `json:"sellerId"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
}

// OptionBody is one delivery option in a response.
type OptionBody struct {
	RateID          string     `json:"rateId"`
	Type            string     `json:"type"`
	Label           string     `json:"label"`
	DeliveryDateISO string     `json:"deliveryDateISO,omitempty"`
	Price           float64    `json:"price"`
	Provider        string     `json:"provider"`
	ServiceLevel    string     `json:"serviceLevel"`
	DurationTerms   string     `json:"durationTerms"`
	EstimatedDays   *int       `json:"estimatedDays,omitempty"`
	QuoteID         string     `json:"quoteId,omitempty"`
	DropoffETA      *time.Time `json:"dropoffEta,omitempty"`
}

// NewResponse renders aggregator output. A non-nil err produces the failure shape.
func NewResponse(groups []shipper.ShippingGroupResult, err error) Response {
	if err != nil {
		return Response{Success: false, Error: err.Error(), ShippingGroups: []GroupBody{}}
	}

	out := make([]GroupBody, len(groups))
	for i, g := range groups {
		items := make([]ItemBody, len(g.Items))
		for j, it := range g.Items {
			items[j] = ItemBody{ProductID: it.ProductID, SellerID: it.SellerID, Quantity: it.Quantity, Price: it.Price.InexactFloat64()}
		}
		options := make([]OptionBody, len(g.DeliveryOptions))
		for j, o := range g.DeliveryOptions {
			options[j] = optionBody(o)
		}
		out[i] = GroupBody{GroupID: g.GroupID, Items: items, DeliveryOptions: options}
	}
	return Response{Success: true, ShippingGroups: out}
}

func optionBody(o shipper.DeliveryOption) OptionBody {
	body := OptionBody{
		RateID:          o.RateID,
		Type:            string(o.Kind),
		Label:           o.Label,
		DeliveryDateISO: o.DeliveryDate,
		Price:           o.Price.InexactFloat64(),
		Provider:        o.Provider,
		ServiceLevel:    o.ServiceLevel,
		DurationTerms:   o.DurationTerms,
		EstimatedDays:   o.EstimatedDays,
	}
	if o.SameDay != nil {
		body.QuoteID = o.SameDay.QuoteID
		body.DropoffETA = o.SameDay.DropoffETA
	}
	return body
}
