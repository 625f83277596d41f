package checkout

import (
	"context"
	"fmt"

	"github.com/tournevent/checkout/pkg/shipper"
)

// SellerAddressResolver looks up where a seller ships from.
type SellerAddressResolver interface {
	SellerAddress(ctx context.Context, sellerID string) (shipper.Address, error)
}

// SellerAddresses resolves sellers from a fixed map, falling back to Default
// when it is set.
type SellerAddresses struct {
	BySeller map[string]shipper.Address
	Default  *shipper.Address
}

// SellerAddress implements SellerAddressResolver.
func (s SellerAddresses) SellerAddress(_ context.Context, sellerID string) (shipper.Address, error) {
	if addr, ok := s.BySeller[sellerID]; ok {
		return addr, nil
	}
	if s.Default != nil {
		return *s.Default, nil
	}
	return shipper.Address{}, fmt.Errorf("seller %q: %w", sellerID, shipper.ErrNotFound)
}

// SingleOrigin resolves every seller to the same address.
func SingleOrigin(addr shipper.Address) SellerAddresses {
	return SellerAddresses{Default: &addr}
}
