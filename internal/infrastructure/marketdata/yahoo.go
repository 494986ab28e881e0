package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/vitos/hedgefund_sim/internal/domain"
)

const YahooBaseURL = "https://query1.finance.yahoo.com"

// YahooProvider fetches quotes and history from the Yahoo Finance chart API.
// It needs no credentials and serves as the primary quote source.
type YahooProvider struct {
	baseURL string
	client  *http.Client
}

var _ domain.QuoteSource = (*YahooProvider)(nil)

func NewYahooProvider(baseURL string) *YahooProvider {
	if baseURL == "" {
		baseURL = YahooBaseURL
	}
	return &YahooProvider{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (y *YahooProvider) Name() string { return "yahoo" }

// chartResponse mirrors the subset of the v8 chart payload we read. Quote
// arrays use pointers because Yahoo emits null for missing bars.
type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				RegularMarketPrice float64 `json:"regularMarketPrice"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*int64   `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func (y *YahooProvider) fetchChart(ctx context.Context, symbol, period, interval string) (*chartResponse, error) {
	endpoint := fmt.Sprintf("%s/v8/finance/chart/%s?range=%s&interval=%s",
		y.baseURL, url.PathEscape(symbol), url.QueryEscape(period), url.QueryEscape(interval))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	// Yahoo rejects the default Go user agent.
	req.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64)")

	resp, err := y.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("yahoo chart %s: status %d", symbol, resp.StatusCode)
	}

	var chart chartResponse
	if err := json.Unmarshal(body, &chart); err != nil {
		return nil, err
	}
	if chart.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo chart %s: %s", symbol, chart.Chart.Error.Description)
	}
	if len(chart.Chart.Result) == 0 {
		return nil, fmt.Errorf("yahoo chart %s: empty result", symbol)
	}
	return &chart, nil
}

func (y *YahooProvider) GetCurrentPrice(ctx context.Context, symbol string) (float64, error) {
	chart, err := y.fetchChart(ctx, symbol, "1d", "1m")
	if err != nil {
		return 0, err
	}

	price := chart.Chart.Result[0].Meta.RegularMarketPrice
	if price <= 0 {
		return 0, fmt.Errorf("yahoo chart %s: no market price", symbol)
	}
	return price, nil
}

func (y *YahooProvider) GetHistory(ctx context.Context, symbol, period, interval string) ([]domain.Bar, error) {
	chart, err := y.fetchChart(ctx, symbol, period, interval)
	if err != nil {
		return nil, err
	}

	result := chart.Chart.Result[0]
	if len(result.Indicators.Quote) == 0 {
		return nil, fmt.Errorf("yahoo chart %s: no quote data", symbol)
	}
	quote := result.Indicators.Quote[0]

	var bars []domain.Bar
	for i, ts := range result.Timestamp {
		if i >= len(quote.Close) || quote.Close[i] == nil {
			continue
		}
		bar := domain.Bar{Time: ts, Close: *quote.Close[i]}
		if i < len(quote.Open) && quote.Open[i] != nil {
			bar.Open = *quote.Open[i]
		}
		if i < len(quote.High) && quote.High[i] != nil {
			bar.High = *quote.High[i]
		}
		if i < len(quote.Low) && quote.Low[i] != nil {
			bar.Low = *quote.Low[i]
		}
		if i < len(quote.Volume) && quote.Volume[i] != nil {
			bar.Volume = *quote.Volume[i]
		}
		bars = append(bars, bar)
	}

	if len(bars) == 0 {
		return nil, fmt.Errorf("yahoo chart %s: empty series", symbol)
	}
	return bars, nil
}
