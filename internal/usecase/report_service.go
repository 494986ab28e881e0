package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/vitos/hedgefund_sim/internal/domain"
)

type EquityPoint struct {
	Time   time.Time `json:"time"`
	Equity float64   `json:"equity"`
	Cash   float64   `json:"cash"`
}

// Report summarizes portfolio performance over a trailing window, computed
// entirely from persisted snapshots and order rows.
type Report struct {
	GeneratedAt        time.Time             `json:"generated_at"`
	PeriodDays         int                   `json:"period_days"`
	SnapshotCount      int                   `json:"snapshot_count"`
	StartEquity        float64               `json:"start_equity"`
	EndEquity          float64               `json:"end_equity"`
	PeriodPL           float64               `json:"period_pl"`
	PeriodPLPercent    float64               `json:"period_pl_percent"`
	Cash               float64               `json:"cash"`
	PositionsValue     float64               `json:"positions_value"`
	TotalPL            float64               `json:"total_pl"`
	TotalPLPercent     float64               `json:"total_pl_percent"`
	MaxDrawdownPercent float64               `json:"max_drawdown_percent"`
	OrdersFilled       int                   `json:"orders_filled"`
	OrdersRejected     int                   `json:"orders_rejected"`
	OrdersPending      int                   `json:"orders_pending"`
	Positions          []domain.PositionView `json:"positions"`
	EquityCurve        []EquityPoint         `json:"equity_curve"`
}

type ReportService struct {
	snapshots domain.SnapshotRepository
	orders    domain.OrderRepository
	timeNow   func() time.Time // For testing
}

func NewReportService(snapshots domain.SnapshotRepository, orders domain.OrderRepository) *ReportService {
	return &ReportService{
		snapshots: snapshots,
		orders:    orders,
		timeNow:   time.Now,
	}
}

// Summary builds a performance report over the last `days` days. At least one
// snapshot must exist in the window.
func (s *ReportService) Summary(ctx context.Context, days int) (*Report, error) {
	if days <= 0 {
		days = 30
	}
	since := s.timeNow().AddDate(0, 0, -days)

	snaps, err := s.snapshots.ListSnapshotsSince(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("error reading snapshots: %w", err)
	}
	if len(snaps) == 0 {
		return nil, fmt.Errorf("no snapshots recorded in the last %d days", days)
	}

	first := snaps[0]
	last := snaps[len(snaps)-1]

	report := &Report{
		GeneratedAt:    s.timeNow(),
		PeriodDays:     days,
		SnapshotCount:  len(snaps),
		StartEquity:    first.Equity,
		EndEquity:      last.Equity,
		PeriodPL:       last.Equity - first.Equity,
		Cash:           last.Cash,
		PositionsValue: last.PositionsValue,
		TotalPL:        last.TotalPL,
		TotalPLPercent: last.TotalPLPercent,
		Positions:      last.Positions,
	}
	if first.Equity > 0 {
		report.PeriodPLPercent = report.PeriodPL / first.Equity * 100
	}

	// Max drawdown: largest percentage fall from a running equity peak.
	peak := first.Equity
	curve := make([]EquityPoint, 0, len(snaps))
	for _, snap := range snaps {
		if snap.Equity > peak {
			peak = snap.Equity
		}
		if peak > 0 {
			drawdown := (peak - snap.Equity) / peak * 100
			if drawdown > report.MaxDrawdownPercent {
				report.MaxDrawdownPercent = drawdown
			}
		}
		curve = append(curve, EquityPoint{
			Time:   snap.CreatedAt,
			Equity: snap.Equity,
			Cash:   snap.Cash,
		})
	}
	report.EquityCurve = curve

	counts, err := s.orders.CountOrdersByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("error counting orders: %w", err)
	}
	report.OrdersFilled = counts[domain.OrderStatusFilled]
	report.OrdersRejected = counts[domain.OrderStatusRejected]
	report.OrdersPending = counts[domain.OrderStatusNew]

	return report, nil
}
