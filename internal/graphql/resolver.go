// Package graphql serves the checkout operations over a small GraphQL surface.
// Documents are parsed with gqlparser and routed by their top-level fields.
package graphql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/tournevent/checkout/internal/checkout"
	"github.com/tournevent/checkout/internal/telemetry"
	"github.com/tournevent/checkout/pkg/shipper"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"
	"go.uber.org/zap"
)

// OptionsService computes shipping options for a cart.
type OptionsService interface {
	GetShippingOptions(ctx context.Context, req checkout.Request) ([]shipper.ShippingGroupResult, error)
}

// Resolver is the root resolver for the GraphQL schema.
// It holds dependencies needed by all resolvers.
type Resolver struct {
	Service OptionsService
	Logger  *otelzap.Logger
	Metrics *telemetry.Metrics
}

// NewResolver creates a new resolver with the given dependencies.
func NewResolver(service OptionsService, logger *otelzap.Logger, metrics *telemetry.Metrics) *Resolver {
	return &Resolver{
		Service: service,
		Logger:  logger,
		Metrics: metrics,
	}
}

// Request is a GraphQL-over-HTTP request body.
type Request struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName,omitempty"`
	Variables     map[string]any `json:"variables,omitempty"`
}

// Response is a GraphQL-over-HTTP response body.
type Response struct {
	Data   map[string]any `json:"data,omitempty"`
	Errors []Error        `json:"errors,omitempty"`
}

// Error is one entry of Response.Errors.
type Error struct {
	Message string   `json:"message"`
	Path    []string `json:"path,omitempty"`
}

// ErrBadDocument is returned when a request cannot be executed at all.
var ErrBadDocument = errors.New("invalid graphql request")

// Execute parses the document, selects the operation and resolves each
// top-level field. Field failures are reported in Response.Errors; a non-nil
// error means nothing was executed.
func (r *Resolver) Execute(ctx context.Context, req Request) (Response, error) {
	doc, err := parser.ParseQuery(&ast.Source{Input: req.Query})
	if err != nil {
		return Response{}, fmt.Errorf("%w: %v", ErrBadDocument, err)
	}

	if len(doc.Operations) == 0 {
		return Response{}, fmt.Errorf("%w: document has no operations", ErrBadDocument)
	}

	op := doc.Operations.ForName(req.OperationName)
	if op == nil {
		if req.OperationName == "" {
			return Response{}, fmt.Errorf("%w: operationName is required when the document has several operations", ErrBadDocument)
		}
		return Response{}, fmt.Errorf("%w: unknown operation %q", ErrBadDocument, req.OperationName)
	}
	if op.Operation == ast.Subscription {
		return Response{}, fmt.Errorf("%w: subscriptions are not supported", ErrBadDocument)
	}

	resp := Response{Data: make(map[string]any)}
	for _, sel := range op.SelectionSet {
		field, ok := sel.(*ast.Field)
		if !ok {
			return Response{}, fmt.Errorf("%w: fragments are not supported", ErrBadDocument)
		}

		key := field.Alias
		if key == "" {
			key = field.Name
		}

		value, err := r.resolveField(ctx, op.Operation, field, req.Variables)
		if err != nil {
			resp.Errors = append(resp.Errors, Error{Message: err.Error(), Path: []string{key}})
			resp.Data[key] = nil
			continue
		}
		resp.Data[key] = value
	}
	return resp, nil
}

func (r *Resolver) resolveField(ctx context.Context, op ast.Operation, field *ast.Field, vars map[string]any) (any, error) {
	switch {
	case field.Name == "__typename":
		return typeName(op), nil
	case field.Name == "health" && op == ast.Query:
		return r.Health(ctx)
	case field.Name == "shippingOptions":
		input, err := inputArgument(field, vars)
		if err != nil {
			return nil, err
		}
		return r.ShippingOptions(ctx, input)
	default:
		return nil, fmt.Errorf("cannot query field %q on type %q", field.Name, typeName(op))
	}
}

// Health reports service liveness.
func (r *Resolver) Health(_ context.Context) (string, error) {
	return "ok", nil
}

// ShippingOptions runs one aggregation. Domain failures come back in the
// failure shape rather than as GraphQL errors.
func (r *Resolver) ShippingOptions(ctx context.Context, input checkout.RequestBody) (checkout.Response, error) {
	start := time.Now()

	var groups []shipper.ShippingGroupResult
	req, err := input.ToRequest()
	if err == nil {
		groups, err = r.Service.GetShippingOptions(ctx, req)
	}

	status := "success"
	if err != nil {
		status = "error"
		if errors.Is(err, shipper.ErrRequestMalformed) {
			status = "malformed"
		}
		r.Logger.Ctx(ctx).Warn("GraphQL shippingOptions failed", zap.Error(err))
	}
	r.Metrics.RecordRequest("graphql.shippingOptions", status, time.Since(start))

	return checkout.NewResponse(groups, err), nil
}

// inputArgument decodes the "input" argument, resolving variables, into a
// request body.
func inputArgument(field *ast.Field, vars map[string]any) (checkout.RequestBody, error) {
	var body checkout.RequestBody

	arg := field.Arguments.ForName("input")
	if arg == nil {
		return body, errors.New(`argument "input" is required`)
	}

	raw, err := arg.Value.Value(vars)
	if err != nil {
		return body, fmt.Errorf("argument \"input\": %w", err)
	}
	if raw == nil {
		return body, errors.New(`argument "input" is required`)
	}

	encoded, err := json.Marshal(raw)
	if err != nil {
		return body, fmt.Errorf("argument \"input\": %w", err)
	}
	if err := json.Unmarshal(encoded, &body); err != nil {
		return body, fmt.Errorf("argument \"input\": %w", err)
	}
	return body, nil
}

func typeName(op ast.Operation) string {
	if op == ast.Mutation {
		return "Mutation"
	}
	return "Query"
}
