// Package serviceability decides whether a seller-to-buyer route qualifies for
// same-day courier delivery.
package serviceability

import (
	"context"
	"fmt"

	"github.com/tournevent/checkout/pkg/shipper"
	"github.com/tournevent/checkout/pkg/shipper/policy"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Result describes one serviceability evaluation.
type Result struct {
	Serviceable bool
	Miles       float64 // zero when the distance could not be computed
	Reason      error   // nil when serviceable
}

// Checker evaluates same-day serviceability from driving distance.
type Checker struct {
	geocoder shipper.Geocoder
	router   shipper.Router
	radius   float64
	logger   *otelzap.Logger
	tracer   trace.Tracer
}

// NewChecker creates a Checker. A non-positive radius uses policy.SameDayRadiusMiles.
func NewChecker(geocoder shipper.Geocoder, router shipper.Router, radiusMiles float64, logger *otelzap.Logger, tracer trace.Tracer) *Checker {
	if radiusMiles <= 0 {
		radiusMiles = policy.SameDayRadiusMiles
	}
	return &Checker{
		geocoder: geocoder,
		router:   router,
		radius:   radiusMiles,
		logger:   logger,
		tracer:   shipper.TracerOrNoop(tracer),
	}
}

// Radius returns the inclusive distance limit in miles.
func (c *Checker) Radius() float64 {
	return c.radius
}

// IsSameDayServiceable reports whether origin and destination are within
// driving range. Any failure is treated as not serviceable.
func (c *Checker) IsSameDayServiceable(ctx context.Context, origin, destination shipper.Address) bool {
	return c.Evaluate(ctx, origin, destination).Serviceable
}

// Evaluate geocodes both ends concurrently, then measures the driving route.
func (c *Checker) Evaluate(ctx context.Context, origin, destination shipper.Address) Result {
	ctx, span := c.tracer.Start(ctx, "serviceability.Evaluate", trace.WithAttributes(
		attribute.String("origin.postal_code", origin.PostalCode),
		attribute.String("destination.postal_code", destination.PostalCode),
	))
	defer span.End()

	res := c.evaluate(ctx, origin, destination)

	span.SetAttributes(
		attribute.Bool("serviceable", res.Serviceable),
		attribute.Float64("distance.miles", res.Miles),
	)
	c.logger.Ctx(ctx).Debug("Same-day serviceability evaluated",
		zap.String("origin_postal", origin.PostalCode),
		zap.String("destination_postal", destination.PostalCode),
		zap.Bool("serviceable", res.Serviceable),
		zap.Float64("miles", res.Miles),
		zap.NamedError("reason", res.Reason),
	)
	return res
}

func (c *Checker) evaluate(ctx context.Context, origin, destination shipper.Address) Result {
	var from, to shipper.Coordinates

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		from, err = c.geocoder.Geocode(gctx, origin)
		if err != nil {
			return fmt.Errorf("geocode origin: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		to, err = c.geocoder.Geocode(gctx, destination)
		if err != nil {
			return fmt.Errorf("geocode destination: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return Result{Reason: fmt.Errorf("%w: %w", shipper.ErrNotServiceable, err)}
	}

	meters, err := c.router.DrivingDistance(ctx, from, to)
	if err != nil {
		return Result{Reason: fmt.Errorf("%w: route: %w", shipper.ErrNotServiceable, err)}
	}

	miles := policy.MetersToMiles(meters)
	if !policy.WithinSameDayRadius(miles, c.radius) {
		return Result{
			Miles:  miles,
			Reason: fmt.Errorf("%w: %.2f miles exceeds %.2f mile radius", shipper.ErrNotServiceable, miles, c.radius),
		}
	}
	return Result{Serviceable: true, Miles: miles}
}
