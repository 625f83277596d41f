// Package checkout assembles per-seller delivery options for a buyer's cart.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/tournevent/checkout/internal/telemetry"
	"github.com/tournevent/checkout/pkg/shipper"
	"github.com/tournevent/checkout/pkg/shipper/cart"
	"github.com/tournevent/checkout/pkg/shipper/policy"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	defaultProviderTimeout      = 10 * time.Second
	defaultMaxSellerConcurrency = 8
)

// RateSource returns carrier rates from every configured rate API.
type RateSource interface {
	GetAllRates(ctx context.Context, req *shipper.RateRequest) ([]shipper.RateQuote, []error)
}

// ServiceabilityChecker decides whether a route qualifies for same-day delivery.
type ServiceabilityChecker interface {
	IsSameDayServiceable(ctx context.Context, origin, destination shipper.Address) bool
}

// Request is one shipping options computation.
type Request struct {
	CartItems    []shipper.CartItem    `validate:"required,min=1,dive"`
	BuyerAddress shipper.Address
	Sellers      SellerAddressResolver `validate:"-"`
}

// Config tunes the aggregator.
type Config struct {
	ProviderTimeout      time.Duration
	MaxSellerConcurrency int
	Now                  func() time.Time
}

// Aggregator fans out to rate and courier providers per seller and merges the
// results into one group per seller.
type Aggregator struct {
	rates    RateSource
	checker  ServiceabilityChecker
	courier  shipper.SameDayQuoter
	validate *validator.Validate

	timeout time.Duration
	limit   int
	now     func() time.Time

	logger  *otelzap.Logger
	tracer  trace.Tracer
	metrics *telemetry.Metrics
}

// New creates an Aggregator. courier or checker may be nil, which disables
// same-day options.
func New(cfg Config, rates RateSource, checker ServiceabilityChecker, courier shipper.SameDayQuoter,
	logger *otelzap.Logger, tracer trace.Tracer, metrics *telemetry.Metrics) *Aggregator {
	if cfg.ProviderTimeout <= 0 {
		cfg.ProviderTimeout = defaultProviderTimeout
	}
	if cfg.MaxSellerConcurrency <= 0 {
		cfg.MaxSellerConcurrency = defaultMaxSellerConcurrency
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Aggregator{
		rates:    rates,
		checker:  checker,
		courier:  courier,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		timeout:  cfg.ProviderTimeout,
		limit:    cfg.MaxSellerConcurrency,
		now:      cfg.Now,
		logger:   logger,
		tracer:   shipper.TracerOrNoop(tracer),
		metrics:  metrics,
	}
}

// sellerLeg is the per-seller working state. Each task writes only its own leg.
type sellerLeg struct {
	group    shipper.SellerGroup
	origin   shipper.Address
	resolved bool
	sameDay  *shipper.DeliveryOption
	standard []shipper.DeliveryOption
}

// GetShippingOptions returns one group per seller, in cart order. Provider
// failures only empty the affected seller's options; the returned error is
// reserved for malformed requests and cancellation.
func (a *Aggregator) GetShippingOptions(ctx context.Context, req Request) ([]shipper.ShippingGroupResult, error) {
	ctx, span := a.tracer.Start(ctx, "checkout.GetShippingOptions")
	defer span.End()

	if err := a.validateRequest(req); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "malformed request")
		return nil, err
	}

	now := a.now()
	groups := cart.Group(req.CartItems)
	legs := make([]sellerLeg, len(groups))
	for i, g := range groups {
		legs[i].group = g
	}
	span.SetAttributes(attribute.Int("seller_groups", len(legs)))

	a.resolveSellers(ctx, req.Sellers, legs)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.standardBranch(gctx, req.BuyerAddress, legs, now)
		return nil
	})
	g.Go(func() error {
		a.sameDayBranch(gctx, req.BuyerAddress, legs, now)
		return nil
	})
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	results := make([]shipper.ShippingGroupResult, len(legs))
	var sameDayCount, standardCount int
	for i, leg := range legs {
		options := make([]shipper.DeliveryOption, 0, 1+len(leg.standard))
		if leg.sameDay != nil {
			options = append(options, *leg.sameDay)
			sameDayCount++
		}
		options = append(options, leg.standard...)
		standardCount += len(leg.standard)

		results[i] = shipper.ShippingGroupResult{
			GroupID:         leg.group.SellerID,
			Items:           leg.group.Items,
			DeliveryOptions: options,
		}
	}

	a.metrics.RecordSellerGroups(len(results))
	a.metrics.RecordOptions(string(shipper.KindSameDay), sameDayCount)
	a.metrics.RecordOptions(string(shipper.KindStandard), standardCount)
	return results, nil
}

func (a *Aggregator) validateRequest(req Request) error {
	if req.Sellers == nil {
		return fmt.Errorf("%w: Sellers is required", shipper.ErrRequestMalformed)
	}

	err := a.validate.Struct(req)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", shipper.ErrRequestMalformed, err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.TrimPrefix(fe.Namespace(), "Request.")
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s failed %s=%s", field, fe.Tag(), fe.Param()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s is %s", field, fe.Tag()))
		}
	}
	return fmt.Errorf("%w: %s", shipper.ErrRequestMalformed, strings.Join(msgs, "; "))
}

// resolveSellers looks up every seller's pickup address. A failed or invalid
// lookup leaves that leg unresolved, which yields an empty option list.
func (a *Aggregator) resolveSellers(ctx context.Context, sellers SellerAddressResolver, legs []sellerLeg) {
	g := new(errgroup.Group)
	g.SetLimit(a.limit)

	for i := range legs {
		leg := &legs[i]
		g.Go(func() error {
			cctx, cancel := context.WithTimeout(ctx, a.timeout)
			defer cancel()

			addr, err := sellers.SellerAddress(cctx, leg.group.SellerID)
			if err == nil {
				err = a.validate.Struct(addr)
			}
			if err != nil {
				a.logger.Ctx(ctx).Warn("Seller address unavailable",
					zap.String("seller_id", leg.group.SellerID),
					zap.Error(err),
				)
				return nil
			}
			leg.origin = addr
			leg.resolved = true
			return nil
		})
	}
	_ = g.Wait()
}

func (a *Aggregator) standardBranch(ctx context.Context, buyer shipper.Address, legs []sellerLeg, now time.Time) {
	g := new(errgroup.Group)
	g.SetLimit(a.limit)

	for i := range legs {
		leg := &legs[i]
		leg.standard = []shipper.DeliveryOption{}
		if !leg.resolved {
			continue
		}
		g.Go(func() error {
			cctx, cancel := context.WithTimeout(ctx, a.timeout)
			defer cancel()

			start := time.Now()
			rates, errs := a.rates.GetAllRates(cctx, &shipper.RateRequest{
				SellerID:    leg.group.SellerID,
				Origin:      leg.origin,
				Destination: buyer,
				Parcel:      leg.group.Parcel,
			})
			a.metrics.RecordProviderCall("rates", time.Since(start))

			for _, err := range errs {
				a.recordProviderError(ctx, "rates", leg.group.SellerID, err)
			}
			leg.standard = policy.StandardOptions(rates, now)
			return nil
		})
	}
	_ = g.Wait()
}

func (a *Aggregator) sameDayBranch(ctx context.Context, buyer shipper.Address, legs []sellerLeg, now time.Time) {
	if a.courier == nil || a.checker == nil {
		return
	}

	g := new(errgroup.Group)
	g.SetLimit(a.limit)

	for i := range legs {
		leg := &legs[i]
		if !leg.resolved {
			continue
		}
		g.Go(func() error {
			if !a.serviceable(ctx, leg.origin, buyer) {
				return nil
			}

			cctx, cancel := context.WithTimeout(ctx, a.timeout)
			defer cancel()

			start := time.Now()
			quote, err := a.courier.Quote(cctx, &shipper.SameDayQuoteRequest{
				SellerID:      leg.group.SellerID,
				Pickup:        leg.origin,
				Dropoff:       buyer,
				ManifestValue: manifestValue(leg.group.Items),
			})
			a.metrics.RecordProviderCall(a.courier.Name(), time.Since(start))
			if err != nil {
				a.recordProviderError(ctx, a.courier.Name(), leg.group.SellerID, err)
				return nil
			}

			opt := policy.SameDayOption(a.courier.Name(), quote, now)
			leg.sameDay = &opt
			return nil
		})
	}
	_ = g.Wait()
}

func (a *Aggregator) serviceable(ctx context.Context, origin, destination shipper.Address) bool {
	cctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	return a.checker.IsSameDayServiceable(cctx, origin, destination)
}

func (a *Aggregator) recordProviderError(ctx context.Context, provider, sellerID string, err error) {
	errType := shipper.ErrorType(err)
	a.metrics.RecordProviderError(provider, errType)
	a.logger.Ctx(ctx).Warn("Provider failed for seller",
		zap.String("provider", provider),
		zap.String("seller_id", sellerID),
		zap.String("error_type", errType),
		zap.Error(err),
	)
}

func manifestValue(items []shipper.CartItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Price.Mul(decimal.NewFromInt(int64(max(item.Quantity, 1)))))
	}
	return total
}
