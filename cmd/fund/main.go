package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vitos/hedgefund_sim/internal/domain"
	"github.com/vitos/hedgefund_sim/internal/infrastructure/logger"
	"github.com/vitos/hedgefund_sim/internal/infrastructure/marketdata"
	"github.com/vitos/hedgefund_sim/internal/infrastructure/metrics"
	"github.com/vitos/hedgefund_sim/internal/infrastructure/storage"
	"github.com/vitos/hedgefund_sim/internal/usecase"
	"github.com/vitos/hedgefund_sim/internal/web"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Fund struct {
		InitialCapital  float64 `yaml:"initial_capital"`
		MaxPositionSize float64 `yaml:"max_position_size"`
	} `yaml:"fund"`
	Schedule struct {
		TradingIntervalMin  int `yaml:"trading_interval_min"`
		SnapshotIntervalMin int `yaml:"snapshot_interval_min"`
		CycleTimeoutSec     int `yaml:"cycle_timeout_sec"`
	} `yaml:"schedule"`
	Storage struct {
		Path string `yaml:"path"`
	} `yaml:"storage"`
	MarketData struct {
		YahooBaseURL string `yaml:"yahoo_base_url"`
		Alpaca       struct {
			APIKey    string `yaml:"api_key"`
			APISecret string `yaml:"api_secret"`
			BaseURL   string `yaml:"base_url"`
			DataURL   string `yaml:"data_url"`
		} `yaml:"alpaca"`
		Stream struct {
			Enabled bool     `yaml:"enabled"`
			URL     string   `yaml:"url"`
			Symbols []string `yaml:"symbols"`
		} `yaml:"stream"`
	} `yaml:"market_data"`
	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`
	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`
}

// loadConfig reads the YAML config. A missing file is not an error; the
// defaults below describe a complete runnable fund.
func loadConfig(path string) (*Config, error) {
	var cfg Config
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &cfg, nil
		}
		return nil, err
	}
	defer f.Close()

	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Fund.InitialCapital <= 0 {
		cfg.Fund.InitialCapital = 500000
	}
	if cfg.Storage.Path == "" {
		cfg.Storage.Path = "fund.db"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	// Credentials from the environment win over the config file.
	if v := os.Getenv("ALPACA_API_KEY"); v != "" {
		cfg.MarketData.Alpaca.APIKey = v
	}
	if v := os.Getenv("ALPACA_API_SECRET"); v != "" {
		cfg.MarketData.Alpaca.APISecret = v
	}
}

func main() {
	configPath := flag.String("config", "config.yml", "path to YAML config")
	initDB := flag.Bool("init-db", false, "create the database schema and exit")
	once := flag.Bool("once", false, "run a single trading cycle and exit")
	force := flag.Bool("force", false, "run cycles even when the market is closed")
	noSchedule := flag.Bool("no-schedule", false, "serve the web dashboard without the cycle scheduler")
	webOnly := flag.Bool("web-only", false, "alias for -no-schedule")
	flag.Parse()

	// 1. Load Config
	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	applyDefaults(cfg)

	// 2. Init Logger
	log, err := logger.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// 3. Init Storage
	store, err := storage.NewSQLiteStore(cfg.Storage.Path)
	if err != nil {
		log.Fatal("Failed to init sqlite", zap.Error(err))
	}
	defer store.Close()

	if *initDB {
		log.Info("Database initialized", zap.String("path", cfg.Storage.Path))
		return
	}

	// 4. Init Metrics
	m := metrics.NewMetrics()

	// 5. Init Market Data
	// Yahoo is the primary quote source. Alpaca is wired in as fallback and
	// market clock when credentials are present.
	yahoo := marketdata.NewYahooProvider(cfg.MarketData.YahooBaseURL)

	var fallback domain.QuoteSource
	var clock domain.MarketClock
	if cfg.MarketData.Alpaca.APIKey != "" && cfg.MarketData.Alpaca.APISecret != "" {
		alpaca := marketdata.NewAlpacaProvider(
			cfg.MarketData.Alpaca.APIKey,
			cfg.MarketData.Alpaca.APISecret,
			cfg.MarketData.Alpaca.BaseURL,
			cfg.MarketData.Alpaca.DataURL,
		)
		fallback = alpaca
		clock = alpaca
	} else {
		log.Warn("No Alpaca credentials, running without quote fallback and exchange clock")
	}

	quotes := usecase.NewQuoteService(yahoo, fallback, clock, m)

	// 6. Init Ledger
	ledger := usecase.NewLedger(cfg.Fund.InitialCapital, quotes, store, store)
	if err := ledger.Load(context.Background()); err != nil {
		log.Error("Failed to restore portfolio", zap.Error(err))
	}

	// 7. Init Trading Services
	gate := usecase.NewRiskGate(cfg.Fund.MaxPositionSize)
	executor := usecase.NewOrderExecutor(ledger, gate, quotes, store, m)
	recorder := usecase.NewSnapshotRecorder(ledger, store, m)
	coordinator := usecase.NewCycleCoordinator(executor, recorder, quotes, log, m)
	coordinator.SetSchedule(
		time.Duration(cfg.Schedule.TradingIntervalMin)*time.Minute,
		time.Duration(cfg.Schedule.SnapshotIntervalMin)*time.Minute,
		time.Duration(cfg.Schedule.CycleTimeoutSec)*time.Second,
	)

	// 8. Single-Cycle Mode
	if *once {
		if err := coordinator.RunCycle(context.Background(), *force); err != nil {
			log.Fatal("Cycle failed", zap.Error(err))
		}
		return
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 9. Price Stream (optional)
	var stream *marketdata.StreamClient
	if cfg.MarketData.Stream.Enabled && cfg.MarketData.Alpaca.APIKey != "" {
		stream = marketdata.NewStreamClient(
			cfg.MarketData.Stream.URL,
			cfg.MarketData.Alpaca.APIKey,
			cfg.MarketData.Alpaca.APISecret,
		)
		stream.OnPriceUpdate(quotes.HandlePriceUpdate)
		if err := stream.Connect(cfg.MarketData.Stream.Symbols); err != nil {
			log.Error("Failed to connect price stream, falling back to REST quotes", zap.Error(err))
		}
	}

	// 10. Scheduler
	if *noSchedule || *webOnly {
		log.Info("Scheduler disabled, serving web only")
	} else {
		go coordinator.RunScheduler(ctx)
	}

	// 11. Web Server
	intake := usecase.NewOrderIntake(store, store)
	reports := usecase.NewReportService(store, store)
	server := web.NewServer(cfg.Server.Port, ledger, coordinator, intake, reports, store, store, log)

	go func() {
		if err := server.Start(); err != nil {
			log.Fatal("Server failed", zap.Error(err))
		}
	}()

	// 12. Wait for Shutdown
	<-stop

	log.Info("Shutting down...")
	cancel()
	if stream != nil {
		stream.Close()
	}
	server.Shutdown(context.Background())
}
