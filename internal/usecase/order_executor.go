package usecase

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/vitos/hedgefund_sim/internal/domain"
	"github.com/vitos/hedgefund_sim/internal/infrastructure/metrics"
)

// OrderExecutor validates and applies a single order against the ledger. One
// quote is pinned per execution and used for both the risk decision and the
// fill, so the two can never disagree on price.
type OrderExecutor struct {
	ledger  *Ledger
	gate    *RiskGate
	quotes  QuoteProvider
	orders  domain.OrderRepository
	metrics *metrics.Metrics // may be nil
	timeNow func() time.Time // For testing
}

func NewOrderExecutor(ledger *Ledger, gate *RiskGate, quotes QuoteProvider, orders domain.OrderRepository, m *metrics.Metrics) *OrderExecutor {
	return &OrderExecutor{
		ledger:  ledger,
		gate:    gate,
		quotes:  quotes,
		orders:  orders,
		metrics: m,
		timeNow: time.Now,
	}
}

// Execute runs one order to a terminal status or leaves it NEW for retry.
//
// A nil error with result.Success=false means the order was rejected
// (terminal). A non-nil error means a transient failure (order unchanged,
// retried next cycle) or a fatal invariant violation, which the caller must
// check with domain.IsFatal.
func (e *OrderExecutor) Execute(ctx context.Context, order *domain.Order) (domain.FillResult, error) {
	result := domain.FillResult{
		OrderID:  order.ID,
		Symbol:   order.Symbol,
		Side:     order.Side,
		Quantity: order.Quantity,
	}

	if order.Side != domain.SideBuy && order.Side != domain.SideSell {
		return e.reject(ctx, order, result, fmt.Sprintf("invalid order side %q", order.Side))
	}
	if order.Quantity <= 0 {
		return e.reject(ctx, order, result, fmt.Sprintf("invalid order quantity %d", order.Quantity))
	}

	// 1. Pin one quote for both the risk check and the fill.
	price, err := e.quotes.CurrentPrice(ctx, order.Symbol)
	if err != nil {
		result.Message = fmt.Sprintf("quote unavailable for %s, order stays pending", order.Symbol)
		e.count("retried")
		return result, fmt.Errorf("order %d: %w", order.ID, err)
	}
	result.Price = price

	// 2. Risk gate.
	cash, positionsValue := e.ledger.PortfolioValue()
	var held *domain.Position
	if pos, ok := e.ledger.Position(order.Symbol); ok {
		held = &pos
	}
	if gateErr := e.gate.Check(order.Side, order.Quantity, price, cash, positionsValue, held); gateErr != nil {
		if domain.IsRejection(gateErr) {
			return e.reject(ctx, order, result, gateErr.Error())
		}
		e.count("retried")
		return result, fmt.Errorf("order %d risk check: %w", order.ID, gateErr)
	}

	// 3. Apply the fill.
	_, realized, err := e.ledger.ApplyFill(ctx, order.Symbol, order.Side, order.Quantity, price)
	if err != nil {
		if domain.IsFatal(err) {
			log.Printf("CRITICAL: invariant violation executing order %d: %v", order.ID, err)
			result.Message = err.Error()
			return result, fmt.Errorf("order %d: %w", order.ID, err)
		}
		if domain.IsRejection(err) {
			return e.reject(ctx, order, result, err.Error())
		}
		result.Message = fmt.Sprintf("transient failure, order stays pending: %v", err)
		e.count("retried")
		return result, fmt.Errorf("order %d: %w", order.ID, err)
	}

	// 4. Mark filled.
	order.Status = domain.OrderStatusFilled
	order.FilledQuantity = order.Quantity
	order.FilledAvgPrice = price
	order.UpdatedAt = e.timeNow()

	result.Success = true
	result.RealizedPL = realized
	if order.Side == domain.SideSell {
		result.Message = fmt.Sprintf("SELL %d %s @ $%.2f, realized P/L $%.2f", order.Quantity, order.Symbol, price, realized)
	} else {
		result.Message = fmt.Sprintf("BUY %d %s @ $%.2f", order.Quantity, order.Symbol, price)
	}
	e.count("filled")

	if err := e.orders.UpdateOrder(ctx, order); err != nil {
		// The fill is already applied; if the status write is lost the order
		// will be picked up again next cycle and filled twice.
		log.Printf("CRITICAL: order %d filled but status write failed: %v", order.ID, err)
		return result, fmt.Errorf("order %d status write: %w", order.ID, err)
	}

	log.Printf("Order %d filled: %s", order.ID, result.Message)
	return result, nil
}

// reject marks the order terminally rejected with a human-readable reason.
func (e *OrderExecutor) reject(ctx context.Context, order *domain.Order, result domain.FillResult, reason string) (domain.FillResult, error) {
	order.Status = domain.OrderStatusRejected
	order.Reason = reason
	order.UpdatedAt = e.timeNow()

	result.Success = false
	result.Message = reason
	e.count("rejected")

	if err := e.orders.UpdateOrder(ctx, order); err != nil {
		return result, fmt.Errorf("order %d rejection write: %w", order.ID, err)
	}

	log.Printf("Order %d rejected: %s", order.ID, reason)
	return result, nil
}

// ProcessPending executes every NEW order in creation order. A transient
// failure on one order is logged and does not block the others; a fatal
// invariant violation stops the batch and is returned to the caller.
func (e *OrderExecutor) ProcessPending(ctx context.Context) ([]domain.FillResult, error) {
	pending, err := e.orders.ListOrdersByStatus(ctx, domain.OrderStatusNew)
	if err != nil {
		return nil, fmt.Errorf("listing pending orders: %w", err)
	}
	if len(pending) == 0 {
		return nil, nil
	}

	log.Printf("Processing %d pending orders", len(pending))

	results := make([]domain.FillResult, 0, len(pending))
	for _, order := range pending {
		result, err := e.Execute(ctx, order)
		results = append(results, result)
		if err != nil {
			if domain.IsFatal(err) {
				return results, err
			}
			log.Printf("Order %d deferred: %v", order.ID, err)
		}
	}
	return results, nil
}

func (e *OrderExecutor) count(result string) {
	if e.metrics != nil {
		e.metrics.OrdersTotal.WithLabelValues(result).Inc()
	}
}
