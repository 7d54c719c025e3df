package nordpool

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/icodeforyou/spotprice-go/hours"
	"github.com/icodeforyou/spotprice-go/series"
	"github.com/icodeforyou/spotprice-go/types"
	"github.com/shopspring/decimal"
)

const (
	DefaultBaseURL  = "https://dataportal-api.nordpoolgroup.com"
	DefaultArea     = "FI"
	DefaultCurrency = "EUR"
)

type Nordpool struct {
	logger     *slog.Logger
	baseURL    string
	area       string
	currency   string
	httpClient *http.Client
}

func New(baseURL, area, currency string, timeout time.Duration) Nordpool {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if area == "" {
		area = DefaultArea
	}
	if currency == "" {
		currency = DefaultCurrency
	}
	return Nordpool{
		logger:     slog.Default().With("module", "nordpool"),
		baseURL:    baseURL,
		area:       area,
		currency:   currency,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (n Nordpool) Name() string {
	return "nordpool"
}

// GetTimeSeries returns one hourly block per delivery day touching [start, end).
// Sub-hourly entries are averaged into their UTC hour.
func (n Nordpool) GetTimeSeries(ctx context.Context, start, end string) ([][]types.RawPoint, error) {
	from, err := hours.ParsePeriod(start)
	if err != nil {
		return nil, fmt.Errorf("period start: %w", err)
	}
	to, err := hours.ParsePeriod(end)
	if err != nil {
		return nil, fmt.Errorf("period end: %w", err)
	}
	if !to.After(from) {
		return nil, fmt.Errorf("%w: period end %s is not after start %s", types.ErrInput, end, start)
	}

	blocks := make([][]types.RawPoint, 0)
	for _, date := range hours.MarketDates(from, to) {
		data, err := n.getDayAheadPrices(ctx, date)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch prices from nordpool for %s: %w", date, err)
		}
		block := n.toBlock(data, from, to)
		if len(block) > 0 {
			blocks = append(blocks, block)
		}
	}

	if len(blocks) == 0 {
		return nil, fmt.Errorf("%w: nordpool has no prices for %s-%s", types.ErrStale, start, end)
	}
	return blocks, nil
}

func (n Nordpool) getDayAheadPrices(ctx context.Context, date string) (*dayAheadPrices, error) {
	url := fmt.Sprintf("%s/api/DayAheadPrices?date=%s&market=DayAhead&deliveryArea=%s&currency=%s",
		n.baseURL, date, n.area, n.currency)

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %w", types.ErrTransport, err)
	}
	resp, err := n.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to fetch prices: %w", types.ErrTransport, err)
	}
	defer resp.Body.Close()

	// Nord Pool answers 204 or 404 before the auction result is published.
	if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusNoContent {
		return &dayAheadPrices{}, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status code: %d", types.ErrTransport, resp.StatusCode)
	}

	var data dayAheadPrices
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("%w: failed to decode response: %w", types.ErrParse, err)
	}
	return &data, nil
}

func (n Nordpool) toBlock(data *dayAheadPrices, from, to time.Time) []types.RawPoint {
	samples := make([]series.Sample, 0, len(data.MultiAreaEntries))
	for _, entry := range data.MultiAreaEntries {
		price, ok := entry.EntryPerArea[n.area]
		if !ok {
			continue
		}
		samples = append(samples, series.Sample{Start: entry.DeliveryStart, Price: decimal.NewFromFloat(price)})
	}

	currency := data.Currency
	if currency == "" {
		currency = n.currency
	}
	block := series.HourlyBlock(samples, from, to, currency)
	if len(block) > 0 {
		n.logger.Debug("converted nordpool prices", slog.String("date", data.DeliveryDateCET), slog.Int("hours", len(block)))
	}
	return block
}
