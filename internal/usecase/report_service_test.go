package usecase_test

import (
	"context"
	"testing"
	"time"

	"github.com/vitos/hedgefund_sim/internal/domain"
	"github.com/vitos/hedgefund_sim/internal/usecase"
)

func TestReportService_Summary(t *testing.T) {
	snapshots := &memSnapshotRepo{}
	orders := newMemOrderRepo()
	ctx := context.Background()
	now := time.Now()

	// Outside the 30 day window, must be ignored.
	snapshots.snaps = append(snapshots.snaps, &domain.PortfolioSnapshot{
		CreatedAt: now.AddDate(0, 0, -40), Cash: 90000, Equity: 90000,
	})
	// Equity runs 100000 -> 105000 -> 102000: the fall from the 105000 peak
	// is the max drawdown, 3000/105000 = 2.857%.
	snapshots.snaps = append(snapshots.snaps, &domain.PortfolioSnapshot{
		CreatedAt: now.AddDate(0, 0, -2), Cash: 100000, Equity: 100000,
	})
	snapshots.snaps = append(snapshots.snaps, &domain.PortfolioSnapshot{
		CreatedAt: now.AddDate(0, 0, -1), Cash: 50000, Equity: 105000, PositionsValue: 55000,
	})
	snapshots.snaps = append(snapshots.snaps, &domain.PortfolioSnapshot{
		CreatedAt: now, Cash: 52000, Equity: 102000, PositionsValue: 50000,
		TotalPL: 2000, TotalPLPercent: 2,
		Positions: []domain.PositionView{{Symbol: "AAPL", Quantity: 10}},
	})

	for _, status := range []domain.OrderStatus{
		domain.OrderStatusFilled, domain.OrderStatusFilled,
		domain.OrderStatusRejected, domain.OrderStatusNew,
	} {
		order := &domain.Order{Symbol: "AAPL", Side: domain.SideBuy, Quantity: 1, Status: status}
		if err := orders.SaveOrder(ctx, order); err != nil {
			t.Fatalf("seeding order: %v", err)
		}
	}

	service := usecase.NewReportService(snapshots, orders)
	report, err := service.Summary(ctx, 30)
	if err != nil {
		t.Fatalf("Summary failed: %v", err)
	}

	if report.SnapshotCount != 3 {
		t.Errorf("Expected 3 snapshots in window, got %d", report.SnapshotCount)
	}
	if !floatEquals(report.StartEquity, 100000) || !floatEquals(report.EndEquity, 102000) {
		t.Errorf("Expected equity 100000 -> 102000, got %.2f -> %.2f", report.StartEquity, report.EndEquity)
	}
	if !floatEquals(report.PeriodPL, 2000) {
		t.Errorf("Expected period P/L 2000, got %.2f", report.PeriodPL)
	}
	if !floatEquals(report.PeriodPLPercent, 2) {
		t.Errorf("Expected period P/L 2%%, got %.4f", report.PeriodPLPercent)
	}
	wantDrawdown := 3000.0 / 105000 * 100
	if !floatEquals(report.MaxDrawdownPercent, wantDrawdown) {
		t.Errorf("Expected max drawdown %.4f%%, got %.4f%%", wantDrawdown, report.MaxDrawdownPercent)
	}
	if report.OrdersFilled != 2 || report.OrdersRejected != 1 || report.OrdersPending != 1 {
		t.Errorf("Expected order counts 2/1/1, got %d/%d/%d",
			report.OrdersFilled, report.OrdersRejected, report.OrdersPending)
	}
	if len(report.EquityCurve) != 3 {
		t.Errorf("Expected 3 curve points, got %d", len(report.EquityCurve))
	}
	if len(report.Positions) != 1 || report.Positions[0].Symbol != "AAPL" {
		t.Errorf("Expected current positions from the latest snapshot, got %+v", report.Positions)
	}
}

func TestReportService_NoSnapshotsInWindow(t *testing.T) {
	service := usecase.NewReportService(&memSnapshotRepo{}, newMemOrderRepo())

	if _, err := service.Summary(context.Background(), 7); err == nil {
		t.Error("Expected error with no snapshots recorded")
	}
}
