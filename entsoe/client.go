package entsoe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/icodeforyou/spotprice-go/hours"
	"github.com/icodeforyou/spotprice-go/types"
)

const (
	DefaultBaseURL = "https://web-api.tp.entsoe.eu/api"
	// DocumentTypeDayAhead is the A44 price document.
	DocumentTypeDayAhead = "A44"
	// DomainFinland is the FI bidding zone EIC code.
	DomainFinland = "10YFI-1--------U"
	DefaultTimeout = 10 * time.Second
)

type Client struct {
	logger       *slog.Logger
	baseURL      string
	token        string
	documentType string
	domain       string
	httpClient   *http.Client
}

func New(baseURL, token, domain string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if domain == "" {
		domain = DomainFinland
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		logger:       slog.Default().With("module", "entsoe"),
		baseURL:      baseURL,
		token:        token,
		documentType: DocumentTypeDayAhead,
		domain:       domain,
		httpClient:   &http.Client{Timeout: timeout},
	}
}

func (c *Client) Name() string {
	return "entsoe"
}

// GetTimeSeries fetches day-ahead prices for [start, end), both in
// "YYYYMMDDHHMM" format, and parses them into RawPoint blocks.
func (c *Client) GetTimeSeries(ctx context.Context, start, end string) ([][]types.RawPoint, error) {
	if err := hours.ValidatePeriod(start); err != nil {
		return nil, fmt.Errorf("period start: %w", err)
	}
	if err := hours.ValidatePeriod(end); err != nil {
		return nil, fmt.Errorf("period end: %w", err)
	}

	payload, err := c.fetch(ctx, start, end)
	if err != nil {
		return nil, err
	}

	blocks, err := ParseDocument(payload)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("parsed day-ahead prices", slog.Int("blocks", len(blocks)), slog.String("start", start), slog.String("end", end))
	return blocks, nil
}

func (c *Client) fetch(ctx context.Context, start, end string) ([]byte, error) {
	params := url.Values{}
	params.Set("securityToken", c.token)
	params.Set("documentType", c.documentType)
	params.Set("in_Domain", c.domain)
	params.Set("out_Domain", c.domain)
	params.Set("periodStart", start)
	params.Set("periodEnd", end)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %w", types.ErrTransport, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// The URL carries the security token, keep it out of the error.
		var uerr *url.Error
		if errors.As(err, &uerr) {
			err = uerr.Err
		}
		return nil, fmt.Errorf("%w: failed to fetch prices: %w", types.ErrTransport, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %w", types.ErrTransport, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: unexpected status code: %d: %s", types.ErrTransport, resp.StatusCode, snippet(body))
	}

	return body, nil
}

func snippet(body []byte) string {
	const max = 200
	if len(body) > max {
		return string(body[:max]) + "..."
	}
	return string(body)
}
