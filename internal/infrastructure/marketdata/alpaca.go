package marketdata

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"github.com/vitos/hedgefund_sim/internal/domain"
)

// AlpacaProvider serves quotes from the Alpaca market-data API and session
// state from the trading API clock. It is the fallback behind Yahoo and the
// authoritative market clock when credentials are configured.
type AlpacaProvider struct {
	mdClient    *marketdata.Client
	tradeClient *alpaca.Client
}

var _ domain.QuoteSource = (*AlpacaProvider)(nil)
var _ domain.MarketClock = (*AlpacaProvider)(nil)

func NewAlpacaProvider(apiKey, apiSecret, baseURL, dataURL string) *AlpacaProvider {
	mdOpts := marketdata.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
	}
	if dataURL != "" {
		mdOpts.BaseURL = dataURL
	}

	tradeOpts := alpaca.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
	}
	if baseURL != "" {
		tradeOpts.BaseURL = baseURL
	}

	return &AlpacaProvider{
		mdClient:    marketdata.NewClient(mdOpts),
		tradeClient: alpaca.NewClient(tradeOpts),
	}
}

func (a *AlpacaProvider) Name() string { return "alpaca" }

func (a *AlpacaProvider) GetCurrentPrice(ctx context.Context, symbol string) (float64, error) {
	trade, err := a.mdClient.GetLatestTrade(symbol, marketdata.GetLatestTradeRequest{Feed: "iex"})
	if err != nil {
		return 0, fmt.Errorf("alpaca latest trade %s: %w", symbol, err)
	}
	if trade.Price <= 0 {
		return 0, fmt.Errorf("alpaca latest trade %s: zero price", symbol)
	}
	return trade.Price, nil
}

func (a *AlpacaProvider) GetHistory(ctx context.Context, symbol, period, interval string) ([]domain.Bar, error) {
	end := time.Now()
	start := end.Add(-periodLookback(period))

	alpacaBars, err := a.mdClient.GetBars(symbol, marketdata.GetBarsRequest{
		TimeFrame: intervalTimeFrame(interval),
		Start:     start,
		End:       end,
		Feed:      "iex",
	})
	if err != nil {
		return nil, fmt.Errorf("alpaca bars %s: %w", symbol, err)
	}
	if len(alpacaBars) == 0 {
		return nil, fmt.Errorf("alpaca bars %s: empty series", symbol)
	}

	bars := make([]domain.Bar, 0, len(alpacaBars))
	for _, ab := range alpacaBars {
		bars = append(bars, domain.Bar{
			Time:   ab.Timestamp.Unix(),
			Open:   ab.Open,
			High:   ab.High,
			Low:    ab.Low,
			Close:  ab.Close,
			Volume: int64(ab.Volume),
		})
	}
	return bars, nil
}

// IsMarketOpen asks the Alpaca trading clock.
func (a *AlpacaProvider) IsMarketOpen(ctx context.Context) (bool, error) {
	clock, err := a.tradeClient.GetClock()
	if err != nil {
		return false, fmt.Errorf("alpaca clock: %w", err)
	}
	return clock.IsOpen, nil
}

// periodLookback maps a Yahoo-style period string to a lookback window.
func periodLookback(period string) time.Duration {
	switch strings.ToLower(period) {
	case "1d":
		return 24 * time.Hour
	case "5d":
		return 5 * 24 * time.Hour
	case "1mo":
		return 30 * 24 * time.Hour
	case "3mo":
		return 90 * 24 * time.Hour
	case "6mo":
		return 182 * 24 * time.Hour
	case "1y":
		return 365 * 24 * time.Hour
	case "2y":
		return 2 * 365 * 24 * time.Hour
	case "5y":
		return 5 * 365 * 24 * time.Hour
	default:
		return 30 * 24 * time.Hour
	}
}

func intervalTimeFrame(interval string) marketdata.TimeFrame {
	switch strings.ToLower(interval) {
	case "1m":
		return marketdata.OneMin
	case "5m":
		return marketdata.NewTimeFrame(5, marketdata.Min)
	case "15m":
		return marketdata.NewTimeFrame(15, marketdata.Min)
	case "1h", "60m":
		return marketdata.OneHour
	default:
		return marketdata.OneDay
	}
}
