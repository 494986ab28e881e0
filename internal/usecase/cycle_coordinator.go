package usecase

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/vitos/hedgefund_sim/internal/domain"
	"github.com/vitos/hedgefund_sim/internal/infrastructure/metrics"
	"go.uber.org/zap"
)

const (
	DefaultTradingInterval  = 5 * time.Minute
	DefaultSnapshotInterval = 1 * time.Hour
	DefaultCycleTimeout     = 2 * time.Minute
)

// MarketSession answers whether the market is currently accepting trades.
type MarketSession interface {
	IsMarketOpen(ctx context.Context) bool
}

// PendingProcessor drains the queue of NEW orders. Satisfied by
// OrderExecutor.
type PendingProcessor interface {
	ProcessPending(ctx context.Context) ([]domain.FillResult, error)
}

// Snapshotter persists one valued portfolio snapshot. Satisfied by
// SnapshotRecorder.
type Snapshotter interface {
	TakeSnapshot(ctx context.Context) (*domain.PortfolioSnapshot, error)
}

// CycleCoordinator is the only component aware of time. It runs the
// process-pending-then-snapshot cycle on a cadence, refuses overlapping
// cycles, and stops trading entirely once an invariant violation surfaces.
type CycleCoordinator struct {
	executor PendingProcessor
	recorder Snapshotter
	session  MarketSession
	logger   *zap.Logger
	metrics  *metrics.Metrics // may be nil

	tradingEvery  time.Duration
	snapshotEvery time.Duration
	cycleTimeout  time.Duration

	running atomic.Bool
	halted  atomic.Bool
}

func NewCycleCoordinator(executor PendingProcessor, recorder Snapshotter, session MarketSession, logger *zap.Logger, m *metrics.Metrics) *CycleCoordinator {
	return &CycleCoordinator{
		executor:      executor,
		recorder:      recorder,
		session:       session,
		logger:        logger,
		metrics:       m,
		tradingEvery:  DefaultTradingInterval,
		snapshotEvery: DefaultSnapshotInterval,
		cycleTimeout:  DefaultCycleTimeout,
	}
}

// SetSchedule overrides the default cadence. Non-positive values keep the
// current setting.
func (c *CycleCoordinator) SetSchedule(trading, snapshot, timeout time.Duration) {
	if trading > 0 {
		c.tradingEvery = trading
	}
	if snapshot > 0 {
		c.snapshotEvery = snapshot
	}
	if timeout > 0 {
		c.cycleTimeout = timeout
	}
}

// Halted reports whether automatic trading has been stopped by an invariant
// violation.
func (c *CycleCoordinator) Halted() bool {
	return c.halted.Load()
}

// Resume clears the halt flag after an operator has inspected the ledger.
func (c *CycleCoordinator) Resume() {
	if c.halted.CompareAndSwap(true, false) {
		c.logger.Warn("Trading resumed by operator")
	}
}

// RunCycle executes one pass: process pending orders, then snapshot. With
// force=true the market-hours check is skipped. Returns ErrCycleInProgress
// when a previous cycle is still running and ErrTradingHalted after an
// invariant violation.
func (c *CycleCoordinator) RunCycle(ctx context.Context, force bool) error {
	if !c.running.CompareAndSwap(false, true) {
		c.logger.Warn("Cycle requested while previous cycle still running, skipping")
		return domain.ErrCycleInProgress
	}
	defer c.running.Store(false)

	if c.halted.Load() {
		return domain.ErrTradingHalted
	}

	open := c.session.IsMarketOpen(ctx)
	c.setMarketGauge(open)
	if !open && !force {
		c.logger.Info("Market closed, skipping trading cycle")
		c.countCycle("skipped")
		return nil
	}

	start := time.Now()
	cctx, cancel := context.WithTimeout(ctx, c.cycleTimeout)
	defer cancel()

	results, err := c.executor.ProcessPending(cctx)
	if err != nil {
		if domain.IsFatal(err) {
			c.halted.Store(true)
			c.logger.Error("CRITICAL: invariant violation, automatic trading halted", zap.Error(err))
			c.countCycle("halted")
		} else {
			c.logger.Error("Cycle failed to process pending orders", zap.Error(err))
			c.countCycle("failed")
		}
	}

	// Snapshot even after a failed run so the history reflects the fills
	// that did land before the failure.
	if _, snapErr := c.recorder.TakeSnapshot(cctx); snapErr != nil {
		c.logger.Error("Cycle snapshot failed", zap.Error(snapErr))
	}

	var filled, rejected int
	for _, r := range results {
		if r.Success {
			filled++
		} else {
			rejected++
		}
	}
	duration := time.Since(start)
	c.observeCycle(duration)
	if err == nil {
		c.countCycle("ok")
	}
	c.logger.Info("Cycle complete",
		zap.Int("filled", filled),
		zap.Int("rejected", rejected),
		zap.Duration("duration", duration))
	return err
}

// RunScheduler blocks until ctx is cancelled, running trading cycles and
// off-cycle snapshots on their configured cadence. Snapshots keep firing
// while the market is closed so the equity history has no gaps.
func (c *CycleCoordinator) RunScheduler(ctx context.Context) {
	c.logger.Info("Scheduler started",
		zap.Duration("trading_interval", c.tradingEvery),
		zap.Duration("snapshot_interval", c.snapshotEvery))

	trading := time.NewTicker(c.tradingEvery)
	defer trading.Stop()
	snapshots := time.NewTicker(c.snapshotEvery)
	defer snapshots.Stop()

	// Run immediately first time
	if err := c.RunCycle(ctx, false); err != nil {
		c.logger.Warn("Trading cycle", zap.Error(err))
	}

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("Scheduler stopped")
			return
		case <-trading.C:
			if err := c.RunCycle(ctx, false); err != nil {
				c.logger.Warn("Trading cycle", zap.Error(err))
			}
		case <-snapshots.C:
			if _, err := c.recorder.TakeSnapshot(ctx); err != nil {
				c.logger.Error("Scheduled snapshot failed", zap.Error(err))
			}
		}
	}
}

func (c *CycleCoordinator) countCycle(result string) {
	if c.metrics != nil {
		c.metrics.CyclesTotal.WithLabelValues(result).Inc()
	}
}

func (c *CycleCoordinator) observeCycle(d time.Duration) {
	if c.metrics != nil {
		c.metrics.CycleDur.Observe(d.Seconds())
	}
}

func (c *CycleCoordinator) setMarketGauge(open bool) {
	if c.metrics == nil {
		return
	}
	if open {
		c.metrics.MarketState.Set(1)
	} else {
		c.metrics.MarketState.Set(0)
	}
}
