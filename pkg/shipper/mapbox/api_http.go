package mapbox

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// HTTPAPIClient calls the Mapbox geocoding and directions APIs. The access
// token travels as a query parameter.
type HTTPAPIClient struct {
	baseURL string
	token   string
	hc      *http.Client
}

type HTTPAPIClientConfig struct {
	BaseURL     string
	AccessToken string
	Timeout     time.Duration // zero means 10s
}

func NewHTTPAPIClient(cfg HTTPAPIClientConfig) *HTTPAPIClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &HTTPAPIClient{
		baseURL: cfg.BaseURL,
		token:   cfg.AccessToken,
		hc: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// ForwardGeocode looks up an address.
// GET /geocoding/v5/mapbox.places/{query}.json
func (c *HTTPAPIClient) ForwardGeocode(ctx context.Context, req *GeocodeRequest) (*GeocodeResponse, error) {
	params := url.Values{}
	if req.Types != "" {
		params.Set("types", req.Types)
	}
	if req.Country != "" {
		params.Set("country", req.Country)
	}
	if req.Limit > 0 {
		params.Set("limit", strconv.Itoa(req.Limit))
	}

	path := "/geocoding/v5/mapbox.places/" + url.PathEscape(req.Query) + ".json"

	var result GeocodeResponse
	if err := c.get(ctx, path, params, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Directions requests a route between two points.
// GET /directions/v5/mapbox/{profile}/{lng,lat;lng,lat}
func (c *HTTPAPIClient) Directions(ctx context.Context, req *DirectionsRequest) (*DirectionsResponse, error) {
	profile := req.Profile
	if profile == "" {
		profile = "driving"
	}

	params := url.Values{}
	params.Set("overview", "false")
	params.Set("alternatives", "false")

	path := fmt.Sprintf("/directions/v5/mapbox/%s/%s;%s", profile, req.From, req.To)

	var result DirectionsResponse
	if err := c.get(ctx, path, params, &result); err != nil {
		return nil, err
	}
	if result.Code != "" && result.Code != "Ok" {
		return nil, &APIError{Code: result.Code, Message: result.Message}
	}
	return &result, nil
}

// get performs an authenticated GET and decodes the JSON body into out.
func (c *HTTPAPIClient) get(ctx context.Context, path string, params url.Values, out any) error {
	params.Set("access_token", c.token)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "checkout-shipping/1.0")

	resp, err := c.hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return readAPIError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// readAPIError decodes Mapbox's {"message": "..."} error body, keeping the raw
// text when it is not JSON.
func readAPIError(resp *http.Response) error {
	raw, _ := io.ReadAll(resp.Body)
	apiErr := &APIError{StatusCode: resp.StatusCode}
	if json.Unmarshal(raw, apiErr) != nil || apiErr.Message == "" {
		apiErr.Message = string(raw)
	}
	return apiErr
}

var _ APIClient = (*HTTPAPIClient)(nil)
