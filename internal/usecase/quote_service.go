package usecase

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/vitos/hedgefund_sim/internal/domain"
	"github.com/vitos/hedgefund_sim/internal/infrastructure/metrics"
)

// HistoryCacheTTL bounds how long a fetched history series is served before
// a refetch.
const HistoryCacheTTL = time.Hour

// liveQuoteFreshness is how long a streamed trade print can stand in for a
// REST quote.
const liveQuoteFreshness = 10 * time.Second

type cachedHistory struct {
	Bars   []domain.Bar
	Expiry time.Time
}

type livePrice struct {
	Price float64
	Time  time.Time
}

// QuoteService is the single market-data entry point for the engine. It
// layers a TTL history cache, a streamed live-price table and primary ->
// fallback source ordering over the raw providers.
type QuoteService struct {
	primary  domain.QuoteSource
	fallback domain.QuoteSource // may be nil
	clock    domain.MarketClock // may be nil
	metrics  *metrics.Metrics   // may be nil

	history map[string]cachedHistory // symbol|period|interval
	live    map[string]livePrice
	mu      sync.Mutex
	timeNow func() time.Time // For testing
}

func NewQuoteService(primary, fallback domain.QuoteSource, clock domain.MarketClock, m *metrics.Metrics) *QuoteService {
	return &QuoteService{
		primary:  primary,
		fallback: fallback,
		clock:    clock,
		metrics:  m,
		history:  make(map[string]cachedHistory),
		live:     make(map[string]livePrice),
		timeNow:  time.Now,
	}
}

// HandlePriceUpdate records a streamed trade print. Registered as the stream
// client's price callback.
func (s *QuoteService) HandlePriceUpdate(symbol string, price float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.live[symbol] = livePrice{Price: price, Time: s.timeNow()}
}

// CurrentPrice returns the freshest price for symbol: the live table when the
// streamed print is recent, otherwise primary then fallback. Both sources
// failing yields ErrQuoteUnavailable.
func (s *QuoteService) CurrentPrice(ctx context.Context, symbol string) (float64, error) {
	s.mu.Lock()
	if lp, ok := s.live[symbol]; ok && s.timeNow().Sub(lp.Time) < liveQuoteFreshness {
		s.mu.Unlock()
		return lp.Price, nil
	}
	s.mu.Unlock()

	price, err := s.primary.GetCurrentPrice(ctx, symbol)
	if err == nil {
		return price, nil
	}
	log.Printf("Primary quote source %s failed for %s: %v", s.primary.Name(), symbol, err)

	if s.fallback != nil {
		if s.metrics != nil {
			s.metrics.QuoteFallbacks.Inc()
		}
		price, fbErr := s.fallback.GetCurrentPrice(ctx, symbol)
		if fbErr == nil {
			return price, nil
		}
		log.Printf("Fallback quote source %s failed for %s: %v", s.fallback.Name(), symbol, fbErr)
		err = fbErr
	}

	return 0, fmt.Errorf("current price %s: %v: %w", symbol, err, domain.ErrQuoteUnavailable)
}

// History returns an OHLCV series, served from the cache while the entry is
// younger than HistoryCacheTTL.
func (s *QuoteService) History(ctx context.Context, symbol, period, interval string) ([]domain.Bar, error) {
	key := symbol + "|" + period + "|" + interval

	s.mu.Lock()
	if cached, ok := s.history[key]; ok && s.timeNow().Before(cached.Expiry) {
		s.mu.Unlock()
		if s.metrics != nil {
			s.metrics.QuoteCacheTotal.WithLabelValues("hit").Inc()
		}
		return cached.Bars, nil
	}
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.QuoteCacheTotal.WithLabelValues("miss").Inc()
	}

	bars, err := s.primary.GetHistory(ctx, symbol, period, interval)
	if err != nil {
		log.Printf("Primary history source %s failed for %s: %v", s.primary.Name(), symbol, err)
		if s.fallback != nil {
			if s.metrics != nil {
				s.metrics.QuoteFallbacks.Inc()
			}
			bars, err = s.fallback.GetHistory(ctx, symbol, period, interval)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("history %s %s/%s: %v: %w", symbol, period, interval, err, domain.ErrQuoteUnavailable)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("history %s %s/%s: empty series: %w", symbol, period, interval, domain.ErrQuoteUnavailable)
	}

	s.mu.Lock()
	s.history[key] = cachedHistory{Bars: bars, Expiry: s.timeNow().Add(HistoryCacheTTL)}
	s.mu.Unlock()

	return bars, nil
}

// IsMarketOpen consults the configured market clock and falls back to the
// regular NYSE session window when no clock is available or the call fails.
func (s *QuoteService) IsMarketOpen(ctx context.Context) bool {
	if s.clock != nil {
		open, err := s.clock.IsMarketOpen(ctx)
		if err == nil {
			return open
		}
		log.Printf("Market clock failed, using session window: %v", err)
	}
	return inRegularSession(s.timeNow())
}

// inRegularSession reports whether t falls inside the regular NYSE session
// (9:30 to 16:00 America/New_York, Monday to Friday). Holidays are not
// modeled; the authoritative answer comes from the exchange clock.
func inRegularSession(t time.Time) bool {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		loc = time.UTC
	}
	et := t.In(loc)

	wd := et.Weekday()
	if wd == time.Saturday || wd == time.Sunday {
		return false
	}

	hm := et.Hour()*60 + et.Minute()
	return hm >= 9*60+30 && hm < 16*60
}
