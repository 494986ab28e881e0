package usecase

import (
	"fmt"

	"github.com/vitos/hedgefund_sim/internal/domain"
)

// DefaultMaxPositionSize caps a single buy at this fraction of portfolio
// value when no explicit limit is configured.
const DefaultMaxPositionSize = 0.05

// RiskGate runs the pre-trade checks consulted before any fill. It performs
// no I/O; all inputs are passed in from the executor's pinned quote and the
// ledger's current view.
type RiskGate struct {
	maxPositionSize float64
}

func NewRiskGate(maxPositionSize float64) *RiskGate {
	if maxPositionSize <= 0 {
		maxPositionSize = DefaultMaxPositionSize
	}
	return &RiskGate{maxPositionSize: maxPositionSize}
}

func (g *RiskGate) MaxPositionSize() float64 { return g.maxPositionSize }

// Check validates one prospective fill. held carries the open position for
// the order's symbol, or nil. A returned error is always from the rejection
// family and carries a human-readable reason.
func (g *RiskGate) Check(side domain.Side, quantity int64, price, cash, positionsValue float64, held *domain.Position) error {
	switch side {
	case domain.SideBuy:
		cost := float64(quantity) * price
		if cost > cash {
			return fmt.Errorf("$%.2f required, $%.2f available: %w", cost, cash, domain.ErrInsufficientCash)
		}

		portfolioValue := cash + positionsValue
		if portfolioValue <= 0 {
			return fmt.Errorf("portfolio value is $%.2f: %w", portfolioValue, domain.ErrPositionSizeExceeded)
		}
		if pct := cost / portfolioValue; pct > g.maxPositionSize {
			return fmt.Errorf("position size %.1f%% exceeds maximum %.1f%%: %w",
				pct*100, g.maxPositionSize*100, domain.ErrPositionSizeExceeded)
		}
		return nil

	case domain.SideSell:
		if held == nil {
			return fmt.Errorf("nothing held to sell: %w", domain.ErrNoSuchPosition)
		}
		if held.Quantity < quantity {
			return fmt.Errorf("%d requested, %d held: %w", quantity, held.Quantity, domain.ErrInsufficientShares)
		}
		return nil

	default:
		// The executor validates the side before consulting the gate.
		return fmt.Errorf("unknown order side %q", side)
	}
}
