package shipping

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"storefront/internal/domain"
)

// Client talks to a JSON shipping API exposing POST /rates and
// GET /addresses/validate. It implements RateProvider and AddressValidator.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) Rates(ctx context.Context, req QuoteRequest) ([]Rate, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/rates", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	var out struct {
		Rates []Rate `json:"rates"`
	}
	if err := c.do(httpReq, &out); err != nil {
		return nil, fmt.Errorf("shipping rates: %w", err)
	}
	return out.Rates, nil
}

func (c *Client) Validate(ctx context.Context, postcode, country string) (*AddressResult, error) {
	q := url.Values{}
	q.Set("postcode", postcode)
	q.Set("country", country)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/addresses/validate?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	var out AddressResult
	if err := c.do(httpReq, &out); err != nil {
		return nil, fmt.Errorf("address validation: %w", err)
	}
	return &out, nil
}

func (c *Client) do(req *http.Request, out any) error {
	req.Header.Set("Accept", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrExternalService, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: status %d: %s", domain.ErrExternalService, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode: %v", domain.ErrExternalService, err)
	}
	return nil
}
