package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vitos/hedgefund_sim/internal/domain"
	"github.com/vitos/hedgefund_sim/internal/usecase"
)

const epsilon = 0.000001

func floatEquals(a, b float64) bool {
	return (a-b) < epsilon && (b-a) < epsilon
}

// stubQuotes serves fixed prices per symbol.
type stubQuotes struct {
	prices  map[string]float64
	failFor map[string]bool
}

func newStubQuotes() *stubQuotes {
	return &stubQuotes{
		prices:  make(map[string]float64),
		failFor: make(map[string]bool),
	}
}

func (s *stubQuotes) CurrentPrice(ctx context.Context, symbol string) (float64, error) {
	if s.failFor[symbol] {
		return 0, domain.ErrQuoteUnavailable
	}
	price, ok := s.prices[symbol]
	if !ok {
		return 0, domain.ErrQuoteUnavailable
	}
	return price, nil
}

// memPositionRepo keeps saved positions in a map, with failure switches.
type memPositionRepo struct {
	saved      map[string]domain.Position
	failSave   bool
	failDelete bool
	failList   bool
}

func newMemPositionRepo() *memPositionRepo {
	return &memPositionRepo{saved: make(map[string]domain.Position)}
}

func (m *memPositionRepo) SavePosition(ctx context.Context, position *domain.Position) error {
	if m.failSave {
		return errors.New("disk full")
	}
	m.saved[position.Symbol] = *position
	return nil
}

func (m *memPositionRepo) DeletePosition(ctx context.Context, symbol string) error {
	if m.failDelete {
		return errors.New("disk full")
	}
	delete(m.saved, symbol)
	return nil
}

func (m *memPositionRepo) ListPositions(ctx context.Context) ([]*domain.Position, error) {
	if m.failList {
		return nil, errors.New("disk full")
	}
	out := make([]*domain.Position, 0, len(m.saved))
	for _, p := range m.saved {
		cp := p
		out = append(out, &cp)
	}
	return out, nil
}

// memSnapshotRepo appends snapshots to a slice, with failure switches.
type memSnapshotRepo struct {
	snaps      []*domain.PortfolioSnapshot
	failSave   bool
	failLatest bool
}

func (m *memSnapshotRepo) SaveSnapshot(ctx context.Context, snap *domain.PortfolioSnapshot) error {
	if m.failSave {
		return errors.New("disk full")
	}
	cp := *snap
	cp.ID = int64(len(m.snaps) + 1)
	m.snaps = append(m.snaps, &cp)
	return nil
}

func (m *memSnapshotRepo) LatestSnapshot(ctx context.Context) (*domain.PortfolioSnapshot, error) {
	if m.failLatest {
		return nil, errors.New("disk full")
	}
	if len(m.snaps) == 0 {
		return nil, nil
	}
	cp := *m.snaps[len(m.snaps)-1]
	return &cp, nil
}

func (m *memSnapshotRepo) ListSnapshots(ctx context.Context, limit int) ([]*domain.PortfolioSnapshot, error) {
	out := make([]*domain.PortfolioSnapshot, 0, limit)
	for i := len(m.snaps) - 1; i >= 0 && len(out) < limit; i-- {
		cp := *m.snaps[i]
		out = append(out, &cp)
	}
	return out, nil
}

func (m *memSnapshotRepo) ListSnapshotsSince(ctx context.Context, since time.Time) ([]*domain.PortfolioSnapshot, error) {
	var out []*domain.PortfolioSnapshot
	for _, s := range m.snaps {
		if !s.CreatedAt.Before(since) {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

// memOrderRepo keeps orders in a map keyed by assigned ID.
type memOrderRepo struct {
	orders     map[int64]domain.Order
	nextID     int64
	failUpdate bool
	failList   bool
}

func newMemOrderRepo() *memOrderRepo {
	return &memOrderRepo{orders: make(map[int64]domain.Order)}
}

func (m *memOrderRepo) SaveOrder(ctx context.Context, order *domain.Order) error {
	m.nextID++
	order.ID = m.nextID
	m.orders[order.ID] = *order
	return nil
}

func (m *memOrderRepo) UpdateOrder(ctx context.Context, order *domain.Order) error {
	if m.failUpdate {
		return errors.New("disk full")
	}
	m.orders[order.ID] = *order
	return nil
}

func (m *memOrderRepo) GetOrder(ctx context.Context, id int64) (*domain.Order, error) {
	o, ok := m.orders[id]
	if !ok {
		return nil, nil
	}
	return &o, nil
}

func (m *memOrderRepo) ListOrdersByStatus(ctx context.Context, status domain.OrderStatus) ([]*domain.Order, error) {
	if m.failList {
		return nil, errors.New("disk full")
	}
	var out []*domain.Order
	for id := int64(1); id <= m.nextID; id++ {
		o, ok := m.orders[id]
		if ok && o.Status == status {
			cp := o
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memOrderRepo) ListOrders(ctx context.Context, limit int) ([]*domain.Order, error) {
	var out []*domain.Order
	for id := m.nextID; id >= 1 && len(out) < limit; id-- {
		if o, ok := m.orders[id]; ok {
			cp := o
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memOrderRepo) CountOrdersByStatus(ctx context.Context) (map[domain.OrderStatus]int, error) {
	counts := make(map[domain.OrderStatus]int)
	for _, o := range m.orders {
		counts[o.Status]++
	}
	return counts, nil
}

func newTestLedger(initialCapital float64) (*usecase.Ledger, *stubQuotes, *memPositionRepo, *memSnapshotRepo) {
	quotes := newStubQuotes()
	positions := newMemPositionRepo()
	snapshots := &memSnapshotRepo{}
	ledger := usecase.NewLedger(initialCapital, quotes, positions, snapshots)
	return ledger, quotes, positions, snapshots
}

func TestLedger_BuySellRoundTrip(t *testing.T) {
	ledger, _, positions, _ := newTestLedger(100000)
	ctx := context.Background()

	// 1. BUY 10 AAPL @ 150: cash 100000 - 1500 = 98500
	pos, realized, err := ledger.ApplyFill(ctx, "AAPL", domain.SideBuy, 10, 150)
	if err != nil {
		t.Fatalf("first buy failed: %v", err)
	}
	if realized != 0 {
		t.Errorf("Expected no realized P/L on buy, got %.2f", realized)
	}
	if !floatEquals(ledger.Cash(), 98500) {
		t.Errorf("Expected cash 98500, got %.2f", ledger.Cash())
	}
	if pos.Quantity != 10 || !floatEquals(pos.AvgEntryPrice, 150) {
		t.Errorf("Expected position 10 @ 150, got %d @ %.2f", pos.Quantity, pos.AvgEntryPrice)
	}

	// 2. BUY 5 AAPL @ 160: avg = (10*150 + 5*160) / 15 = 153.3333..., cash 97700
	pos, _, err = ledger.ApplyFill(ctx, "AAPL", domain.SideBuy, 5, 160)
	if err != nil {
		t.Fatalf("second buy failed: %v", err)
	}
	if !floatEquals(ledger.Cash(), 97700) {
		t.Errorf("Expected cash 97700, got %.2f", ledger.Cash())
	}
	if pos.Quantity != 15 {
		t.Errorf("Expected quantity 15, got %d", pos.Quantity)
	}
	wantAvg := (10.0*150 + 5.0*160) / 15
	if !floatEquals(pos.AvgEntryPrice, wantAvg) {
		t.Errorf("Expected avg %.4f, got %.4f", wantAvg, pos.AvgEntryPrice)
	}

	// 3. SELL 15 AAPL @ 170: position deleted, cash 97700 + 2550 = 100250,
	//    realized = (170 - 153.3333) * 15 = 250
	_, realized, err = ledger.ApplyFill(ctx, "AAPL", domain.SideSell, 15, 170)
	if err != nil {
		t.Fatalf("sell failed: %v", err)
	}
	if !floatEquals(ledger.Cash(), 100250) {
		t.Errorf("Expected cash 100250, got %.2f", ledger.Cash())
	}
	if !floatEquals(realized, 250) {
		t.Errorf("Expected realized 250, got %.4f", realized)
	}
	if _, ok := ledger.Position("AAPL"); ok {
		t.Error("Expected position deleted after selling all shares")
	}
	if _, ok := positions.saved["AAPL"]; ok {
		t.Error("Expected position row deleted from storage")
	}
}

func TestLedger_PartialSellKeepsAverage(t *testing.T) {
	ledger, _, _, _ := newTestLedger(100000)
	ctx := context.Background()

	if _, _, err := ledger.ApplyFill(ctx, "MSFT", domain.SideBuy, 10, 300); err != nil {
		t.Fatalf("buy failed: %v", err)
	}

	pos, realized, err := ledger.ApplyFill(ctx, "MSFT", domain.SideSell, 4, 320)
	if err != nil {
		t.Fatalf("partial sell failed: %v", err)
	}
	if pos.Quantity != 6 {
		t.Errorf("Expected 6 shares left, got %d", pos.Quantity)
	}
	if !floatEquals(pos.AvgEntryPrice, 300) {
		t.Errorf("Expected avg unchanged at 300, got %.2f", pos.AvgEntryPrice)
	}
	// realized = (320 - 300) * 4 = 80
	if !floatEquals(realized, 80) {
		t.Errorf("Expected realized 80, got %.2f", realized)
	}
	// cash = 100000 - 3000 + 1280 = 98280
	if !floatEquals(ledger.Cash(), 98280) {
		t.Errorf("Expected cash 98280, got %.2f", ledger.Cash())
	}
	if !floatEquals(pos.CostBasis, 1800) {
		t.Errorf("Expected cost basis 1800, got %.2f", pos.CostBasis)
	}
}

func TestLedger_SellWithoutPositionIsFatal(t *testing.T) {
	ledger, _, _, _ := newTestLedger(100000)

	_, _, err := ledger.ApplyFill(context.Background(), "TSLA", domain.SideSell, 10, 200)
	if !errors.Is(err, domain.ErrUnknownPosition) {
		t.Fatalf("Expected ErrUnknownPosition, got %v", err)
	}
	if !domain.IsFatal(err) {
		t.Error("Expected fatal classification")
	}
	if !floatEquals(ledger.Cash(), 100000) {
		t.Errorf("Expected cash unchanged, got %.2f", ledger.Cash())
	}
}

func TestLedger_OverdraftBuyIsFatal(t *testing.T) {
	ledger, _, _, _ := newTestLedger(1000)

	_, _, err := ledger.ApplyFill(context.Background(), "AMZN", domain.SideBuy, 100, 20)
	if !errors.Is(err, domain.ErrNegativeCash) {
		t.Fatalf("Expected ErrNegativeCash, got %v", err)
	}
	if !domain.IsFatal(err) {
		t.Error("Expected fatal classification")
	}
	if !floatEquals(ledger.Cash(), 1000) {
		t.Errorf("Expected cash unchanged, got %.2f", ledger.Cash())
	}
}

func TestLedger_SellMoreThanHeldRejected(t *testing.T) {
	ledger, _, _, _ := newTestLedger(100000)
	ctx := context.Background()

	if _, _, err := ledger.ApplyFill(ctx, "NVDA", domain.SideBuy, 5, 100); err != nil {
		t.Fatalf("buy failed: %v", err)
	}

	_, _, err := ledger.ApplyFill(ctx, "NVDA", domain.SideSell, 10, 100)
	if !errors.Is(err, domain.ErrInsufficientShares) {
		t.Fatalf("Expected ErrInsufficientShares, got %v", err)
	}
	if domain.IsFatal(err) {
		t.Error("Expected rejection, not fatal")
	}
	pos, ok := ledger.Position("NVDA")
	if !ok || pos.Quantity != 5 {
		t.Errorf("Expected position unchanged at 5 shares, got %+v", pos)
	}
	if !floatEquals(ledger.Cash(), 99500) {
		t.Errorf("Expected cash unchanged at 99500, got %.2f", ledger.Cash())
	}
}

func TestLedger_RollbackOnPersistFailure(t *testing.T) {
	ledger, _, positions, _ := newTestLedger(100000)
	ctx := context.Background()

	if _, _, err := ledger.ApplyFill(ctx, "AAPL", domain.SideBuy, 10, 150); err != nil {
		t.Fatalf("setup buy failed: %v", err)
	}

	// Buy that fails to persist must leave cash and position as they were.
	positions.failSave = true
	_, _, err := ledger.ApplyFill(ctx, "AAPL", domain.SideBuy, 5, 160)
	if err == nil {
		t.Fatal("Expected persist failure to surface")
	}
	if domain.IsRejection(err) || domain.IsFatal(err) {
		t.Errorf("Expected transient error, got %v", err)
	}
	if !floatEquals(ledger.Cash(), 98500) {
		t.Errorf("Expected cash rolled back to 98500, got %.2f", ledger.Cash())
	}
	pos, _ := ledger.Position("AAPL")
	if pos.Quantity != 10 || !floatEquals(pos.AvgEntryPrice, 150) {
		t.Errorf("Expected position rolled back to 10 @ 150, got %d @ %.4f", pos.Quantity, pos.AvgEntryPrice)
	}

	// New symbol: the created position must be removed again on failure.
	_, _, err = ledger.ApplyFill(ctx, "GOOG", domain.SideBuy, 2, 100)
	if err == nil {
		t.Fatal("Expected persist failure to surface")
	}
	if _, ok := ledger.Position("GOOG"); ok {
		t.Error("Expected created position removed after rollback")
	}

	// Sell-to-zero whose delete fails must keep the position and cash.
	positions.failSave = false
	positions.failDelete = true
	_, _, err = ledger.ApplyFill(ctx, "AAPL", domain.SideSell, 10, 170)
	if err == nil {
		t.Fatal("Expected delete failure to surface")
	}
	pos, ok := ledger.Position("AAPL")
	if !ok || pos.Quantity != 10 {
		t.Errorf("Expected position restored to 10 shares, got %+v", pos)
	}
	if !floatEquals(ledger.Cash(), 98500) {
		t.Errorf("Expected cash rolled back to 98500, got %.2f", ledger.Cash())
	}
}

func TestLedger_ValuateIsIdempotent(t *testing.T) {
	ledger, quotes, _, _ := newTestLedger(100000)
	ctx := context.Background()

	if _, _, err := ledger.ApplyFill(ctx, "AAPL", domain.SideBuy, 10, 150); err != nil {
		t.Fatalf("buy failed: %v", err)
	}
	if _, _, err := ledger.ApplyFill(ctx, "MSFT", domain.SideBuy, 5, 300); err != nil {
		t.Fatalf("buy failed: %v", err)
	}

	quotes.prices["AAPL"] = 160
	quotes.prices["MSFT"] = 290

	equity1, value1, err := ledger.Valuate(ctx)
	if err != nil {
		t.Fatalf("first valuation failed: %v", err)
	}
	// AAPL: 10*160 = 1600, MSFT: 5*290 = 1450, cash = 97000
	if !floatEquals(value1, 3050) {
		t.Errorf("Expected positions value 3050, got %.2f", value1)
	}
	if !floatEquals(equity1, 100050) {
		t.Errorf("Expected equity 100050, got %.2f", equity1)
	}

	pos, _ := ledger.Position("AAPL")
	if !floatEquals(pos.UnrealizedPL, 100) {
		t.Errorf("Expected AAPL unrealized 100, got %.2f", pos.UnrealizedPL)
	}

	equity2, value2, err := ledger.Valuate(ctx)
	if err != nil {
		t.Fatalf("second valuation failed: %v", err)
	}
	if equity1 != equity2 || value1 != value2 {
		t.Errorf("Expected identical valuations, got %.4f/%.4f then %.4f/%.4f",
			equity1, value1, equity2, value2)
	}
}

func TestLedger_ValuateKeepsLastPriceOnQuoteFailure(t *testing.T) {
	ledger, quotes, _, _ := newTestLedger(100000)
	ctx := context.Background()

	if _, _, err := ledger.ApplyFill(ctx, "AAPL", domain.SideBuy, 10, 150); err != nil {
		t.Fatalf("buy failed: %v", err)
	}
	if _, _, err := ledger.ApplyFill(ctx, "MSFT", domain.SideBuy, 5, 300); err != nil {
		t.Fatalf("buy failed: %v", err)
	}

	quotes.prices["AAPL"] = 160
	quotes.failFor["MSFT"] = true

	equity, value, err := ledger.Valuate(ctx)
	if err != nil {
		t.Fatalf("valuation failed: %v", err)
	}
	// AAPL repriced to 1600; MSFT keeps its fill price, 5*300 = 1500.
	if !floatEquals(value, 3100) {
		t.Errorf("Expected positions value 3100, got %.2f", value)
	}
	if !floatEquals(equity, 100100) {
		t.Errorf("Expected equity 100100, got %.2f", equity)
	}

	pos, _ := ledger.Position("MSFT")
	if !floatEquals(pos.CurrentPrice, 300) {
		t.Errorf("Expected MSFT price kept at 300, got %.2f", pos.CurrentPrice)
	}
}

func TestLedger_LoadRestoresFromStorage(t *testing.T) {
	quotes := newStubQuotes()
	positions := newMemPositionRepo()
	snapshots := &memSnapshotRepo{}

	positions.saved["AAPL"] = domain.Position{
		Symbol: "AAPL", Quantity: 10, AvgEntryPrice: 150,
		CostBasis: 1500, CurrentPrice: 155, MarketValue: 1550,
	}
	snapshots.snaps = append(snapshots.snaps, &domain.PortfolioSnapshot{
		CreatedAt: time.Now(), Cash: 98500, Equity: 100050,
	})

	ledger := usecase.NewLedger(500000, quotes, positions, snapshots)
	if err := ledger.Load(context.Background()); err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if !floatEquals(ledger.Cash(), 98500) {
		t.Errorf("Expected cash restored to 98500, got %.2f", ledger.Cash())
	}
	pos, ok := ledger.Position("AAPL")
	if !ok || pos.Quantity != 10 || !floatEquals(pos.AvgEntryPrice, 150) {
		t.Errorf("Expected AAPL 10 @ 150 restored, got %+v", pos)
	}
}

func TestLedger_LoadDegradesToFreshBook(t *testing.T) {
	quotes := newStubQuotes()
	positions := newMemPositionRepo()
	snapshots := &memSnapshotRepo{failLatest: true}

	ledger := usecase.NewLedger(500000, quotes, positions, snapshots)
	if err := ledger.Load(context.Background()); err != nil {
		t.Fatalf("load should degrade, not fail: %v", err)
	}
	if !floatEquals(ledger.Cash(), 500000) {
		t.Errorf("Expected initial capital 500000, got %.2f", ledger.Cash())
	}
	if len(ledger.Positions()) != 0 {
		t.Errorf("Expected empty book, got %d positions", len(ledger.Positions()))
	}
}
