package server_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/tournevent/checkout/internal/checkout"
	"github.com/tournevent/checkout/internal/server"
	"github.com/tournevent/checkout/internal/telemetry"
	"github.com/tournevent/checkout/pkg/shipper"
	mockprovider "github.com/tournevent/checkout/pkg/shipper/mock"
	"github.com/tournevent/checkout/pkg/shipper/serviceability"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type mockService struct {
	mock.Mock
}

func (m *mockService) GetShippingOptions(ctx context.Context, req checkout.Request) ([]shipper.ShippingGroupResult, error) {
	args := m.Called(ctx, req)
	groups, _ := args.Get(0).([]shipper.ShippingGroupResult)
	return groups, args.Error(1)
}

func newTestServer(t *testing.T, svc *mockService) (http.Handler, *prometheus.Registry) {
	t.Helper()

	reg := prometheus.NewRegistry()
	metrics := telemetry.NewMetrics(reg)
	srv := server.New(server.Config{Port: 8080}, svc, otelzap.New(zap.NewNop()), metrics, reg)
	return srv.Handler(), reg
}

const validBody = `{
	"cartItems": [
		{"productId": "p1", "sellerId": "s1", "quantity": 1, "unitWeight": 2, "price": 12.5},
		{"productId": "p2", "sellerId": "s2", "price": "3.00"}
	],
	"customerAddress": {"street1": "9 Buyer Rd", "city": "San Francisco", "state": "CA", "zip": "94110"},
	"sellerAddress": {"street1": "1 Near St", "city": "San Francisco", "state": "CA", "zip": "94103"}
}`

func post(h http.Handler, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestServer_Health(t *testing.T) {
	h, _ := newTestServer(t, new(mockService))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(server.RequestIDHeader))
}

func TestServer_RequestIDIsEchoed(t *testing.T) {
	h, _ := newTestServer(t, new(mockService))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(server.RequestIDHeader, "req-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "req-123", rec.Header().Get(server.RequestIDHeader))
}

func TestServer_ShippingOptions_Success(t *testing.T) {
	svc := new(mockService)
	days := 5
	groups := []shipper.ShippingGroupResult{
		{
			GroupID: "s1",
			Items:   []shipper.CartItem{{ProductID: "p1", SellerID: "s1", Quantity: 1}},
			DeliveryOptions: []shipper.DeliveryOption{{
				RateID: "r1", Kind: shipper.KindStandard, Label: "Wednesday, October 21", DeliveryDate: "2026-10-21",
				Provider: "USPS", ServiceLevel: "Ground Advantage", EstimatedDays: &days,
			}},
		},
		{GroupID: "s2", Items: []shipper.CartItem{{ProductID: "p2", SellerID: "s2", Quantity: 1}}, DeliveryOptions: []shipper.DeliveryOption{}},
	}
	svc.On("GetShippingOptions", mock.Anything, mock.MatchedBy(func(req checkout.Request) bool {
		return len(req.CartItems) == 2 && req.CartItems[1].Quantity == 1
	})).Return(groups, nil).Once()

	h, _ := newTestServer(t, svc)
	rec := post(h, "/shipping-options", validBody)

	assert.Equal(t, http.StatusOK, rec.Code)
	out := decode(t, rec)
	assert.Equal(t, true, out["success"])
	require.Len(t, out["shippingGroups"], 2)

	first := out["shippingGroups"].([]any)[0].(map[string]any)
	assert.Equal(t, "s1", first["groupId"])
	opt := first["deliveryOptions"].([]any)[0].(map[string]any)
	assert.Equal(t, "standard", opt["type"])
	assert.Equal(t, "2026-10-21", opt["deliveryDateISO"])

	second := out["shippingGroups"].([]any)[1].(map[string]any)
	assert.Equal(t, []any{}, second["deliveryOptions"])
	svc.AssertExpectations(t)
}

func TestServer_ShippingOptions_Malformed(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"invalid json", `{"cartItems": [`, "invalid JSON body"},
		{"missing customer address", `{"cartItems": [{"productId": "p1", "sellerId": "s1"}]}`, "customerAddress is required"},
		{"missing cart", `{"customerAddress": {"street1": "a"}}`, "cartItems is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(mockService)
			h, _ := newTestServer(t, svc)

			rec := post(h, "/shipping-options", tt.body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			out := decode(t, rec)
			assert.Equal(t, false, out["success"])
			assert.Contains(t, out["error"], tt.want)
			assert.Equal(t, []any{}, out["shippingGroups"])
			svc.AssertNotCalled(t, "GetShippingOptions", mock.Anything, mock.Anything)
		})
	}
}

func TestServer_ShippingOptions_ValidationFromService(t *testing.T) {
	svc := new(mockService)
	svc.On("GetShippingOptions", mock.Anything, mock.Anything).
		Return(nil, fmt.Errorf("%w: CartItems[0].Quantity failed gte=1", shipper.ErrRequestMalformed))

	h, _ := newTestServer(t, svc)
	rec := post(h, "/shipping-options", validBody)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode(t, rec)["error"], "Quantity")
}

func TestServer_ShippingOptions_Unexpected(t *testing.T) {
	svc := new(mockService)
	svc.On("GetShippingOptions", mock.Anything, mock.Anything).Return(nil, errors.New("context canceled"))

	h, _ := newTestServer(t, svc)
	rec := post(h, "/shipping-options", validBody)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	out := decode(t, rec)
	assert.Equal(t, false, out["success"])
	assert.Equal(t, []any{}, out["shippingGroups"])
}

func TestServer_GraphQL(t *testing.T) {
	svc := new(mockService)
	svc.On("GetShippingOptions", mock.Anything, mock.Anything).Return([]shipper.ShippingGroupResult{}, nil)
	h, _ := newTestServer(t, svc)

	t.Run("health", func(t *testing.T) {
		rec := post(h, "/graphql", `{"query": "{ health }"}`)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"data": {"health": "ok"}}`, rec.Body.String())
	})

	t.Run("shipping options", func(t *testing.T) {
		body := `{"query": "mutation ($input: ShippingOptionsInput!) { shippingOptions(input: $input) }", "variables": {"input": ` + validBody + `}}`
		rec := post(h, "/graphql", body)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"data": {"shippingOptions": {"success": true, "shippingGroups": []}}}`, rec.Body.String())
	})

	t.Run("invalid json", func(t *testing.T) {
		rec := post(h, "/graphql", `not json`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "Invalid JSON")
	})

	t.Run("syntax error", func(t *testing.T) {
		rec := post(h, "/graphql", `{"query": "{ health "}`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "invalid graphql request")
	})

	t.Run("method not allowed", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/graphql", nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestServer_Metrics(t *testing.T) {
	h, _ := newTestServer(t, new(mockService))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `checkout_requests_total{operation="/health",status="200"} 1`)
}

// End to end through the real aggregator with in-memory providers.
func TestServer_ShippingOptions_WithAggregator(t *testing.T) {
	logger := otelzap.New(zap.NewNop())
	registry := shipper.NewRegistry()
	registry.Register(mockprovider.New("mockrates"))
	maps := mockprovider.NewMaps()
	checker := serviceability.NewChecker(maps, maps, 0, logger, nil)
	now := time.Date(2026, 10, 16, 10, 0, 0, 0, time.UTC)
	agg := checkout.New(checkout.Config{Now: func() time.Time { return now }},
		registry, checker, mockprovider.NewCourier("mockcourier", "9.99"), logger, nil, nil)

	reg := prometheus.NewRegistry()
	h := server.New(server.Config{}, agg, logger, telemetry.NewMetrics(reg), reg).Handler()

	rec := post(h, "/shipping-options", validBody)

	require.Equal(t, http.StatusOK, rec.Code)
	out := decode(t, rec)
	groups := out["shippingGroups"].([]any)
	require.Len(t, groups, 2)
	for _, g := range groups {
		options := g.(map[string]any)["deliveryOptions"].([]any)
		require.Len(t, options, 3)
		assert.Equal(t, "same_day", options[0].(map[string]any)["type"])
		assert.Equal(t, 9.99, options[0].(map[string]any)["price"])
		assert.Equal(t, "standard", options[1].(map[string]any)["type"])
	}
}
