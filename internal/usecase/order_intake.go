package usecase

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/vitos/hedgefund_sim/internal/domain"
)

// OrderIntake turns reviewed recommendations into pending market orders.
// It performs no risk checks. Affordability and sizing are judged by the
// executor at fill time, against the prices of that moment.
type OrderIntake struct {
	orders    domain.OrderRepository
	decisions domain.DecisionRepository
	timeNow   func() time.Time // For testing
}

func NewOrderIntake(orders domain.OrderRepository, decisions domain.DecisionRepository) *OrderIntake {
	return &OrderIntake{
		orders:    orders,
		decisions: decisions,
		timeNow:   time.Now,
	}
}

// Submit records the decision and, unless the verdict is REJECT, creates one
// NEW market order for the next cycle to pick up. The returned order is nil
// for rejected recommendations.
func (s *OrderIntake) Submit(ctx context.Context, rec domain.Recommendation, dec domain.Decision) (*domain.Order, error) {
	symbol := strings.ToUpper(strings.TrimSpace(rec.Symbol))
	if symbol == "" {
		return nil, fmt.Errorf("recommendation has no symbol")
	}
	if rec.Action != domain.SideBuy && rec.Action != domain.SideSell {
		return nil, fmt.Errorf("invalid action %q", rec.Action)
	}

	quantity := rec.Quantity
	switch dec.Verdict {
	case domain.VerdictApprove:
	case domain.VerdictModify:
		if dec.ModifiedQuantity > 0 {
			quantity = dec.ModifiedQuantity
		}
	case domain.VerdictReject:
		quantity = 0
	default:
		return nil, fmt.Errorf("invalid verdict %q", dec.Verdict)
	}

	record := &domain.DecisionRecord{
		Symbol:           symbol,
		Action:           rec.Action,
		Quantity:         rec.Quantity,
		Verdict:          dec.Verdict,
		ModifiedQuantity: dec.ModifiedQuantity,
		Confidence:       rec.Confidence,
		Reasoning:        dec.Reasoning,
		CreatedAt:        s.timeNow(),
	}
	if record.Reasoning == "" {
		record.Reasoning = rec.Reasoning
	}

	if dec.Verdict == domain.VerdictReject {
		if err := s.decisions.SaveDecision(ctx, record); err != nil {
			return nil, fmt.Errorf("save decision: %w", err)
		}
		log.Printf("Recommendation rejected by reviewer: %s %d %s", rec.Action, rec.Quantity, symbol)
		return nil, nil
	}

	if quantity <= 0 {
		return nil, fmt.Errorf("quantity must be positive, got %d", quantity)
	}

	now := s.timeNow()
	order := &domain.Order{
		Symbol:    symbol,
		Side:      rec.Action,
		Type:      domain.OrderTypeMarket,
		Quantity:  quantity,
		Status:    domain.OrderStatusNew,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.orders.SaveOrder(ctx, order); err != nil {
		return nil, fmt.Errorf("save order: %w", err)
	}

	record.OrderID = order.ID
	if err := s.decisions.SaveDecision(ctx, record); err != nil {
		// The order is already queued; a lost audit row is not worth
		// failing the submission over.
		log.Printf("Error persisting decision audit for order %d: %v", order.ID, err)
	}

	log.Printf("Order %d queued: %s %d %s (%s)", order.ID, order.Side, order.Quantity, order.Symbol, dec.Verdict)
	return order, nil
}
