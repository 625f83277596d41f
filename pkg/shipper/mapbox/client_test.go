package mapbox_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tournevent/checkout/pkg/shipper"
	"github.com/tournevent/checkout/pkg/shipper/mapbox"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

func newTestClient(mockClient mapbox.APIClient) *mapbox.Client {
	logger := otelzap.New(zap.NewNop())
	return mapbox.NewWithAPIClient(mapbox.Config{}, mockClient, logger, nil)
}

func testAddress() shipper.Address {
	return shipper.Address{
		Line1:       "1 Market St",
		Line2:       "Suite 300",
		City:        "San Francisco",
		Region:      "CA",
		PostalCode:  "94105",
		CountryCode: "US",
	}
}

func TestFormatQuery(t *testing.T) {
	assert.Equal(t, "1 Market St Suite 300, San Francisco, CA 94105", mapbox.FormatQuery(testAddress()))
	assert.Equal(t, "Toronto, ON", mapbox.FormatQuery(shipper.Address{City: "Toronto", Region: "ON"}))
}

func TestClient_Geocode_Success(t *testing.T) {
	mockAPI := mapbox.NewMockAPIClient()
	var captured *mapbox.GeocodeRequest
	mockAPI.OnForwardGeocode = func(ctx context.Context, req *mapbox.GeocodeRequest) (*mapbox.GeocodeResponse, error) {
		captured = req
		return &mapbox.GeocodeResponse{Features: []mapbox.Feature{{
			PlaceName: "1 Market Street, San Francisco, California 94105, United States",
			Relevance: 0.98,
			Center:    []float64{-122.3949, 37.7942},
		}}}, nil
	}
	client := newTestClient(mockAPI)

	coords, err := client.Geocode(context.Background(), testAddress())

	require.NoError(t, err)
	assert.InDelta(t, 37.7942, coords.Lat, 1e-9)
	assert.InDelta(t, -122.3949, coords.Lng, 1e-9)
	assert.InDelta(t, 0.98, coords.Relevance, 1e-9)
	assert.Contains(t, coords.FormattedAddress, "Market Street")

	require.NotNil(t, captured)
	assert.Equal(t, "address", captured.Types)
	assert.Equal(t, "us", captured.Country)
	assert.Equal(t, 1, captured.Limit)
}

func TestClient_Geocode_NoFeatures(t *testing.T) {
	mockAPI := mapbox.NewMockAPIClient()
	mockAPI.OnForwardGeocode = func(ctx context.Context, req *mapbox.GeocodeRequest) (*mapbox.GeocodeResponse, error) {
		return &mapbox.GeocodeResponse{}, nil
	}
	client := newTestClient(mockAPI)

	_, err := client.Geocode(context.Background(), testAddress())

	require.Error(t, err)
	assert.True(t, errors.Is(err, shipper.ErrNotFound))
}

func TestClient_Geocode_ProviderErrorIsNotFound(t *testing.T) {
	mockAPI := mapbox.NewMockAPIClient()
	mockAPI.SimulateErrors = true
	client := newTestClient(mockAPI)

	_, err := client.Geocode(context.Background(), testAddress())

	require.Error(t, err)
	assert.True(t, errors.Is(err, shipper.ErrNotFound))
	assert.False(t, errors.Is(err, shipper.ErrProviderUnavailable))
}

func TestClient_Geocode_MockIsDeterministic(t *testing.T) {
	client := newTestClient(mapbox.NewMockAPIClient())

	first, err := client.Geocode(context.Background(), testAddress())
	require.NoError(t, err)
	second, err := client.Geocode(context.Background(), testAddress())
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestClient_DrivingDistance(t *testing.T) {
	mockAPI := mapbox.NewMockAPIClient()
	var captured *mapbox.DirectionsRequest
	mockAPI.OnDirections = func(ctx context.Context, req *mapbox.DirectionsRequest) (*mapbox.DirectionsResponse, error) {
		captured = req
		return &mapbox.DirectionsResponse{Code: "Ok", Routes: []mapbox.Route{{Distance: 4828.03}, {Distance: 9000}}}, nil
	}
	client := newTestClient(mockAPI)

	meters, err := client.DrivingDistance(context.Background(),
		shipper.Coordinates{Lat: 37.77, Lng: -122.41},
		shipper.Coordinates{Lat: 37.80, Lng: -122.27},
	)

	require.NoError(t, err)
	assert.InDelta(t, 4828.03, meters, 1e-9)
	require.NotNil(t, captured)
	assert.Equal(t, "driving", captured.Profile)
	assert.InDelta(t, -122.41, captured.From.Lng, 1e-9)
	assert.InDelta(t, 37.80, captured.To.Lat, 1e-9)
}

func TestClient_DrivingDistance_NoRoute(t *testing.T) {
	mockAPI := mapbox.NewMockAPIClient()
	mockAPI.OnDirections = func(ctx context.Context, req *mapbox.DirectionsRequest) (*mapbox.DirectionsResponse, error) {
		return &mapbox.DirectionsResponse{Code: "Ok"}, nil
	}
	client := newTestClient(mockAPI)

	_, err := client.DrivingDistance(context.Background(), shipper.Coordinates{}, shipper.Coordinates{})

	assert.True(t, errors.Is(err, shipper.ErrNotFound))
}

func TestClient_DrivingDistance_Unavailable(t *testing.T) {
	mockAPI := mapbox.NewMockAPIClient()
	mockAPI.SimulateErrors = true
	client := newTestClient(mockAPI)

	_, err := client.DrivingDistance(context.Background(), shipper.Coordinates{}, shipper.Coordinates{})

	assert.True(t, errors.Is(err, shipper.ErrProviderUnavailable))
}

func TestHTTPAPIClient_ForwardGeocode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasPrefix(r.URL.Path, "/geocoding/v5/mapbox.places/"))
		assert.True(t, strings.HasSuffix(r.URL.Path, ".json"))
		assert.Equal(t, "address", r.URL.Query().Get("types"))
		assert.Equal(t, "us", r.URL.Query().Get("country"))
		assert.Equal(t, "1", r.URL.Query().Get("limit"))
		assert.Equal(t, "pk.test", r.URL.Query().Get("access_token"))
		_, _ = w.Write([]byte(`{"type":"FeatureCollection","features":[{"id":"address.1","place_type":["address"],"place_name":"1 Market St","relevance":1,"center":[-122.39,37.79]}]}`))
	}))
	defer srv.Close()

	client := mapbox.NewHTTPAPIClient(mapbox.HTTPAPIClientConfig{BaseURL: srv.URL, AccessToken: "pk.test"})

	resp, err := client.ForwardGeocode(context.Background(), &mapbox.GeocodeRequest{
		Query: "1 Market St, San Francisco, CA 94105", Country: "us", Types: "address", Limit: 1,
	})

	require.NoError(t, err)
	require.Len(t, resp.Features, 1)
	assert.Equal(t, []float64{-122.39, 37.79}, resp.Features[0].Center)
}

func TestHTTPAPIClient_Directions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/directions/v5/mapbox/driving/-122.410000,37.770000;-122.270000,37.800000", r.URL.Path)
		_, _ = w.Write([]byte(`{"code":"Ok","routes":[{"distance":15234.5,"duration":1200}]}`))
	}))
	defer srv.Close()

	client := mapbox.NewHTTPAPIClient(mapbox.HTTPAPIClientConfig{BaseURL: srv.URL, AccessToken: "pk.test"})

	resp, err := client.Directions(context.Background(), &mapbox.DirectionsRequest{
		From: mapbox.LngLat{Lng: -122.41, Lat: 37.77},
		To:   mapbox.LngLat{Lng: -122.27, Lat: 37.80},
	})

	require.NoError(t, err)
	require.Len(t, resp.Routes, 1)
	assert.InDelta(t, 15234.5, resp.Routes[0].Distance, 1e-9)
}

func TestHTTPAPIClient_Directions_NoRouteCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"code":"NoRoute","message":"No route found","routes":[]}`))
	}))
	defer srv.Close()

	client := mapbox.NewHTTPAPIClient(mapbox.HTTPAPIClientConfig{BaseURL: srv.URL})

	_, err := client.Directions(context.Background(), &mapbox.DirectionsRequest{})

	var apiErr *mapbox.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "NoRoute", apiErr.Code)
}

func TestHTTPAPIClient_Unauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"Not Authorized - Invalid Token"}`))
	}))
	defer srv.Close()

	client := mapbox.NewHTTPAPIClient(mapbox.HTTPAPIClientConfig{BaseURL: srv.URL, AccessToken: "bad"})

	_, err := client.ForwardGeocode(context.Background(), &mapbox.GeocodeRequest{Query: "x"})

	var apiErr *mapbox.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "Not Authorized - Invalid Token", apiErr.Message)
}
