package domain

import (
	"context"
	"time"
)

// QuoteSource provides market data from one external provider. The quote
// service layers caching and fallback on top of it.
type QuoteSource interface {
	Name() string
	GetCurrentPrice(ctx context.Context, symbol string) (float64, error)
	GetHistory(ctx context.Context, symbol, period, interval string) ([]Bar, error)
}

// MarketClock reports exchange session state.
type MarketClock interface {
	IsMarketOpen(ctx context.Context) (bool, error)
}

// OrderRepository defines storage operations for orders.
type OrderRepository interface {
	SaveOrder(ctx context.Context, order *Order) error
	UpdateOrder(ctx context.Context, order *Order) error
	GetOrder(ctx context.Context, id int64) (*Order, error)
	ListOrdersByStatus(ctx context.Context, status OrderStatus) ([]*Order, error)
	ListOrders(ctx context.Context, limit int) ([]*Order, error)
	CountOrdersByStatus(ctx context.Context) (map[OrderStatus]int, error)
}

// PositionRepository defines storage operations for open positions.
type PositionRepository interface {
	SavePosition(ctx context.Context, position *Position) error
	DeletePosition(ctx context.Context, symbol string) error
	ListPositions(ctx context.Context) ([]*Position, error)
}

// SnapshotRepository defines storage operations for portfolio snapshots.
type SnapshotRepository interface {
	SaveSnapshot(ctx context.Context, snap *PortfolioSnapshot) error
	LatestSnapshot(ctx context.Context) (*PortfolioSnapshot, error)
	ListSnapshots(ctx context.Context, limit int) ([]*PortfolioSnapshot, error)
	ListSnapshotsSince(ctx context.Context, since time.Time) ([]*PortfolioSnapshot, error)
}

// DecisionRepository defines storage operations for the intake audit trail.
type DecisionRepository interface {
	SaveDecision(ctx context.Context, rec *DecisionRecord) error
	ListDecisions(ctx context.Context, limit int) ([]*DecisionRecord, error)
}
