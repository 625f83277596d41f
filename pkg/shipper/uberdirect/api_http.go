package uberdirect

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// TokenSource supplies bearer tokens for API calls.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
	// Invalidate discards the current token after the API rejects it.
	Invalidate()
}

// HTTPAPIClient calls the Uber Direct delivery API with a cached bearer token.
type HTTPAPIClient struct {
	baseURL    string
	customerID string
	tokens     TokenSource
	hc         *http.Client
}

type HTTPAPIClientConfig struct {
	BaseURL    string
	CustomerID string
	Tokens     TokenSource
	Timeout    time.Duration // zero means 10s
}

func NewHTTPAPIClient(cfg HTTPAPIClientConfig) *HTTPAPIClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &HTTPAPIClient{
		baseURL:    cfg.BaseURL,
		customerID: cfg.CustomerID,
		tokens:     cfg.Tokens,
		hc: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// CreateQuote requests a delivery quote. On 401 the token is dropped and the
// call is made once more with a fresh one.
func (c *HTTPAPIClient) CreateQuote(ctx context.Context, req *QuoteRequest) (*QuoteResponse, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}
	endpoint := c.baseURL + "/v1/customers/" + url.PathEscape(c.customerID) + "/delivery_quotes"

	resp, err := c.send(ctx, endpoint, payload)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		drain(resp)
		c.tokens.Invalidate()
		if resp, err = c.send(ctx, endpoint, payload); err != nil {
			return nil, err
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		if resp.StatusCode == http.StatusUnauthorized {
			c.tokens.Invalidate()
		}
		return nil, readAPIError(resp)
	}

	var quote QuoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&quote); err != nil {
		return nil, fmt.Errorf("failed to decode quote response: %w", err)
	}
	return &quote, nil
}

func (c *HTTPAPIClient) send(ctx context.Context, endpoint string, payload []byte) (*http.Response, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "checkout-shipping/1.0")

	return c.hc.Do(req)
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}

// readAPIError decodes {"code","message"} from a failed response, falling back
// to the raw body under an HTTP_<status> code.
func readAPIError(resp *http.Response) error {
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
