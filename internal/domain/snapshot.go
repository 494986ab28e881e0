package domain

import "time"

// PositionView is the per-position valuation row embedded in a snapshot.
type PositionView struct {
	Symbol              string  `json:"symbol"`
	Quantity            int64   `json:"quantity"`
	AvgEntryPrice       float64 `json:"avg_entry_price"`
	CurrentPrice        float64 `json:"current_price"`
	MarketValue         float64 `json:"market_value"`
	UnrealizedPL        float64 `json:"unrealized_pl"`
	UnrealizedPLPercent float64 `json:"unrealized_pl_percent"`
}

// PortfolioSnapshot is an immutable point-in-time valuation of the whole
// book. Snapshots form an append-only series ordered by ID.
type PortfolioSnapshot struct {
	ID             int64          `json:"id"`
	CreatedAt      time.Time      `json:"created_at"`
	Cash           float64        `json:"cash"`
	Equity         float64        `json:"equity"`
	PositionsValue float64        `json:"positions_value"`
	TotalPL        float64        `json:"total_pl"`
	TotalPLPercent float64        `json:"total_pl_percent"`
	Positions      []PositionView `json:"positions"`
}
