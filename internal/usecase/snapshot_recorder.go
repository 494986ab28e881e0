package usecase

import (
	"context"
	"log"
	"time"

	"github.com/vitos/hedgefund_sim/internal/domain"
	"github.com/vitos/hedgefund_sim/internal/infrastructure/metrics"
)

// SnapshotRecorder captures a valued, timestamped copy of the ledger for the
// append-only history. A snapshot never mutates trading state; losing one to
// a storage failure is logged, not propagated.
type SnapshotRecorder struct {
	ledger    *Ledger
	snapshots domain.SnapshotRepository
	metrics   *metrics.Metrics // may be nil
	timeNow   func() time.Time // For testing
}

func NewSnapshotRecorder(ledger *Ledger, snapshots domain.SnapshotRepository, m *metrics.Metrics) *SnapshotRecorder {
	return &SnapshotRecorder{
		ledger:    ledger,
		snapshots: snapshots,
		metrics:   m,
		timeNow:   time.Now,
	}
}

// TakeSnapshot revalues the book and persists one snapshot row. The returned
// snapshot is valid even when persistence fails.
func (r *SnapshotRecorder) TakeSnapshot(ctx context.Context) (*domain.PortfolioSnapshot, error) {
	equity, positionsValue, err := r.ledger.Valuate(ctx)
	if err != nil {
		return nil, err
	}

	cash, views := r.ledger.View()
	initial := r.ledger.InitialCapital()

	snap := &domain.PortfolioSnapshot{
		CreatedAt:      r.timeNow(),
		Cash:           cash,
		Equity:         equity,
		PositionsValue: positionsValue,
		TotalPL:        equity - initial,
		Positions:      views,
	}
	if initial > 0 {
		snap.TotalPLPercent = snap.TotalPL / initial * 100
	}

	if err := r.snapshots.SaveSnapshot(ctx, snap); err != nil {
		log.Printf("Error persisting snapshot, trading state unaffected: %v", err)
	}

	if r.metrics != nil {
		r.metrics.Equity.Set(equity)
		r.metrics.Cash.Set(cash)
		r.metrics.OpenPositions.Set(float64(len(views)))
	}

	log.Printf("Snapshot: equity $%.2f, cash $%.2f, %d positions, total P/L %.2f%%",
		equity, cash, len(views), snap.TotalPLPercent)
	return snap, nil
}
