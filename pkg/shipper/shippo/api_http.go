package shippo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const defaultHTTPTimeout = 10 * time.Second

// HTTPAPIClient talks to the Shippo REST API.
type HTTPAPIClient struct {
	baseURL string
	token   string
	hc      *http.Client
}

type HTTPAPIClientConfig struct {
	BaseURL  string
	APIToken string
	Timeout  time.Duration // zero means 10s
}

func NewHTTPAPIClient(cfg HTTPAPIClientConfig) *HTTPAPIClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultHTTPTimeout
	}
	return &HTTPAPIClient{
		baseURL: cfg.BaseURL,
		token:   cfg.APIToken,
		hc: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// CreateShipment posts a synchronous shipment so rates are returned inline.
func (c *HTTPAPIClient) CreateShipment(ctx context.Context, req *ShipmentRequest) (*ShipmentResponse, error) {
	var out ShipmentResponse
	if err := c.post(ctx, "/shipments/", req, &out); err != nil {
		return nil, err
	}
	if out.Status != "ERROR" {
		return &out, nil
	}

	shipErr := &APIError{Code: "SHIPMENT_ERROR", Message: "shipment rating failed"}
	if len(out.Messages) > 0 {
		shipErr.Message = out.Messages[0].Text
	}
	return nil, shipErr
}

// post sends in as JSON and decodes a 200/201 body into out.
func (c *HTTPAPIClient) post(ctx context.Context, path string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "ShippoToken "+c.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "checkout-shipping/1.0")

	resp, err := c.hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
	default:
		return decodeError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode shipment response: %w", err)
	}
	return nil
}

// decodeError turns a non-2xx response into an *APIError. Shippo reports
// failures as {"detail": "..."}; anything else is kept as raw text.
func decodeError(resp *http.Response) error {
	raw, _ := io.ReadAll(resp.Body)
	apiErr := &APIError{StatusCode: resp.StatusCode}

	if json.Unmarshal(raw, apiErr) != nil || apiErr.Message == "" {
		apiErr.Code = ""
		apiErr.Message = string(raw)
	}
	if apiErr.Code == "" {
		apiErr.Code = fmt.Sprintf("HTTP_%d", resp.StatusCode)
	}
	return apiErr
}

var _ APIClient = (*HTTPAPIClient)(nil)
