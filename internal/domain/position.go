package domain

import "time"

// Position represents a holding in one symbol. At most one Position exists
// per symbol; a quantity of zero means the position is deleted, never stored.
type Position struct {
	Symbol              string    `json:"symbol"`
	Quantity            int64     `json:"quantity"`
	AvgEntryPrice       float64   `json:"avg_entry_price"`
	CostBasis           float64   `json:"cost_basis"`
	CurrentPrice        float64   `json:"current_price"`
	MarketValue         float64   `json:"market_value"`
	UnrealizedPL        float64   `json:"unrealized_pl"`
	UnrealizedPLPercent float64   `json:"unrealized_pl_percent"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// Revalue refreshes the derived fields from a current price. Idempotent for
// the same price.
func (p *Position) Revalue(price float64) {
	p.CurrentPrice = price
	p.CostBasis = float64(p.Quantity) * p.AvgEntryPrice
	p.MarketValue = float64(p.Quantity) * price
	p.UnrealizedPL = p.MarketValue - p.CostBasis
	if p.CostBasis > 0 {
		p.UnrealizedPLPercent = p.UnrealizedPL / p.CostBasis * 100
	} else {
		p.UnrealizedPLPercent = 0
	}
}
