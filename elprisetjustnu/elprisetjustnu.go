package elprisetjustnu

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
	DefaultBaseURL = "https://www.elprisetjustnu.se"
	DefaultArea    = "SE3"
)

type rawPrice struct {
	SEKPerKWh float64   `json:"SEK_per_kWh"`
	EURPerKWh float64   `json:"EUR_per_kWh"`
	EXR       float64   `json:"EXR"`
	TimeStart time.Time `json:"time_start"`
	TimeEnd   time.Time `json:"time_end"`
}

// ElPrisetJustNu serves the Swedish bidding zones SE1-SE4 only.
type ElPrisetJustNu struct {
	logger     *slog.Logger
	baseURL    string
	area       string
	httpClient *http.Client
}

func New(baseURL, area string, timeout time.Duration) ElPrisetJustNu {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if area == "" {
		area = DefaultArea
	}
	return ElPrisetJustNu{
		logger:     slog.Default().With("module", "elprisetjustnu"),
		baseURL:    baseURL,
		area:       area,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (e ElPrisetJustNu) Name() string {
	return "elprisetjustnu"
}

// GetTimeSeries returns one hourly block per day touching [start, end). The
// EUR per kWh prices are converted to EUR per MWh.
func (e ElPrisetJustNu) GetTimeSeries(ctx context.Context, start, end string) ([][]types.RawPoint, error) {
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

	thousand := decimal.NewFromInt(1000)
	blocks := make([][]types.RawPoint, 0)
	for _, date := range hours.MarketDates(from, to) {
		prices, err := e.getPrices(ctx, date)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch prices from elprisetjustnu for %s: %w", date, err)
		}

		samples := make([]series.Sample, 0, len(prices))
		for _, p := range prices {
			samples = append(samples, series.Sample{
				Start: p.TimeStart,
				Price: decimal.NewFromFloat(p.EURPerKWh).Mul(thousand),
			})
		}
		if block := series.HourlyBlock(samples, from, to, "EUR"); len(block) > 0 {
			blocks = append(blocks, block)
		}
	}

	if len(blocks) == 0 {
		return nil, fmt.Errorf("%w: elprisetjustnu has no prices for %s-%s", types.ErrStale, start, end)
	}
	return blocks, nil
}

func (e ElPrisetJustNu) getPrices(ctx context.Context, date string) ([]rawPrice, error) {
	day, err := time.Parse("2006-01-02", date)
	if err != nil {
		return nil, fmt.Errorf("%w: date %q: %v", types.ErrInput, date, err)
	}
	url := fmt.Sprintf("%s/api/v1/prices/%d/%02d-%02d_%s.json",
		e.baseURL, day.Year(), int(day.Month()), day.Day(), e.area)

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %w", types.ErrTransport, err)
	}
	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to fetch prices: %w", types.ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return []rawPrice{}, nil
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status code: %d", types.ErrTransport, resp.StatusCode)
	}

	var rawPrices []rawPrice
	if err := json.NewDecoder(resp.Body).Decode(&rawPrices); err != nil {
		return nil, fmt.Errorf("%w: failed to decode response: %w", types.ErrParse, err)
	}
	e.logger.Debug("fetched prices", slog.String("date", date), slog.Int("entries", len(rawPrices)))
	return rawPrices, nil
}
