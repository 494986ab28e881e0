package usecase

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/vitos/hedgefund_sim/internal/domain"
)

// QuoteProvider is the narrow read surface the ledger and executor need from
// the quote service.
type QuoteProvider interface {
	CurrentPrice(ctx context.Context, symbol string) (float64, error)
}

// Ledger owns the cash balance and the position set. It is the sole mutator
// of portfolio state; all access goes through its mutex.
type Ledger struct {
	initialCapital float64
	quotes         QuoteProvider
	positionRepo   domain.PositionRepository
	snapshotRepo   domain.SnapshotRepository

	cash      float64
	positions map[string]*domain.Position
	mu        sync.Mutex
	timeNow   func() time.Time // For testing
}

func NewLedger(initialCapital float64, quotes QuoteProvider, positions domain.PositionRepository, snapshots domain.SnapshotRepository) *Ledger {
	return &Ledger{
		initialCapital: initialCapital,
		quotes:         quotes,
		positionRepo:   positions,
		snapshotRepo:   snapshots,
		cash:           initialCapital,
		positions:      make(map[string]*domain.Position),
		timeNow:        time.Now,
	}
}

// Load restores the book from storage: cash from the latest snapshot,
// positions from the positions table. An empty database means a fresh book at
// initial capital. A failed restore degrades to a fresh book with a warning
// rather than blocking startup.
func (l *Ledger) Load(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.cash = l.initialCapital
	l.positions = make(map[string]*domain.Position)

	snap, err := l.snapshotRepo.LatestSnapshot(ctx)
	if err != nil {
		log.Printf("Error loading latest snapshot, starting at initial capital: %v", err)
		return nil
	}
	if snap != nil {
		l.cash = snap.Cash
	}

	positions, err := l.positionRepo.ListPositions(ctx)
	if err != nil {
		log.Printf("Error loading positions, starting with empty book: %v", err)
		l.cash = l.initialCapital
		l.positions = make(map[string]*domain.Position)
		return nil
	}
	for _, p := range positions {
		l.positions[p.Symbol] = p
	}

	log.Printf("Loaded portfolio from database: %d positions, $%.2f cash", len(l.positions), l.cash)
	return nil
}

func (l *Ledger) InitialCapital() float64 { return l.initialCapital }

func (l *Ledger) Cash() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cash
}

// PortfolioValue returns cash and the positions value from the last
// valuation pass.
func (l *Ledger) PortfolioValue() (cash, positionsValue float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, p := range l.positions {
		positionsValue += p.MarketValue
	}
	return l.cash, positionsValue
}

// Position returns a copy of the open position for symbol, if any.
func (l *Ledger) Position(symbol string) (domain.Position, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	p, ok := l.positions[symbol]
	if !ok {
		return domain.Position{}, false
	}
	return *p, true
}

// Positions returns copies of all open positions.
func (l *Ledger) Positions() []domain.Position {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]domain.Position, 0, len(l.positions))
	for _, p := range l.positions {
		out = append(out, *p)
	}
	return out
}

// ApplyFill is the only mutation entry point, called by the order executor
// after the risk gate has passed. BUY debits cash and merges into the
// position at the volume-weighted average price; SELL credits cash,
// decrements quantity and deletes the position at zero. The returned
// realized P&L is informational for sells and zero for buys.
//
// A persistence failure rolls the in-memory book back to its pre-fill state
// and surfaces as a transient error.
func (l *Ledger) ApplyFill(ctx context.Context, symbol string, side domain.Side, quantity int64, price float64) (*domain.Position, float64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.timeNow()

	switch side {
	case domain.SideBuy:
		cost := float64(quantity) * price
		if cost > l.cash {
			// The risk gate must reject unaffordable buys before this point.
			return nil, 0, fmt.Errorf("buy %d %s @ %.2f costs %.2f with %.2f cash: %w",
				quantity, symbol, price, cost, l.cash, domain.ErrNegativeCash)
		}

		prevCash := l.cash
		prev, existed := l.positions[symbol]
		var prevCopy domain.Position
		if existed {
			prevCopy = *prev
		}

		pos := prev
		if existed {
			oldQty := float64(pos.Quantity)
			newQty := oldQty + float64(quantity)
			pos.AvgEntryPrice = (pos.AvgEntryPrice*oldQty + price*float64(quantity)) / newQty
			pos.Quantity += quantity
		} else {
			pos = &domain.Position{
				Symbol:        symbol,
				Quantity:      quantity,
				AvgEntryPrice: price,
			}
			l.positions[symbol] = pos
		}
		pos.UpdatedAt = now
		pos.Revalue(price)
		l.cash -= cost

		if err := l.positionRepo.SavePosition(ctx, pos); err != nil {
			l.cash = prevCash
			if existed {
				*pos = prevCopy
			} else {
				delete(l.positions, symbol)
			}
			return nil, 0, fmt.Errorf("persisting position %s: %w", symbol, err)
		}

		out := *pos
		return &out, 0, nil

	case domain.SideSell:
		pos, ok := l.positions[symbol]
		if !ok {
			// Reaching this point means the risk gate was bypassed.
			return nil, 0, fmt.Errorf("sell %d %s with no open position: %w",
				quantity, symbol, domain.ErrUnknownPosition)
		}
		if pos.Quantity < quantity {
			return nil, 0, fmt.Errorf("sell %d %s with only %d held: %w",
				quantity, symbol, pos.Quantity, domain.ErrInsufficientShares)
		}

		prevCash := l.cash
		prevCopy := *pos

		proceeds := float64(quantity) * price
		realized := (price - pos.AvgEntryPrice) * float64(quantity)

		pos.Quantity -= quantity
		pos.UpdatedAt = now
		l.cash += proceeds

		if pos.Quantity == 0 {
			if err := l.positionRepo.DeletePosition(ctx, symbol); err != nil {
				l.cash = prevCash
				*pos = prevCopy
				return nil, 0, fmt.Errorf("deleting position %s: %w", symbol, err)
			}
			delete(l.positions, symbol)
			return nil, realized, nil
		}

		pos.Revalue(price)
		if err := l.positionRepo.SavePosition(ctx, pos); err != nil {
			l.cash = prevCash
			*pos = prevCopy
			return nil, 0, fmt.Errorf("persisting position %s: %w", symbol, err)
		}

		out := *pos
		return &out, realized, nil

	default:
		return nil, 0, fmt.Errorf("unknown order side %q", side)
	}
}

// Valuate refreshes every position's derived fields from current quotes and
// returns the resulting equity and positions value. Quotes are fetched with
// the ledger lock released; a symbol whose quote fails keeps its last known
// price for this pass. Calling twice with unchanged quotes yields identical
// results.
func (l *Ledger) Valuate(ctx context.Context) (equity, positionsValue float64, err error) {
	l.mu.Lock()
	symbols := make([]string, 0, len(l.positions))
	for symbol := range l.positions {
		symbols = append(symbols, symbol)
	}
	l.mu.Unlock()

	prices := make(map[string]float64, len(symbols))
	for _, symbol := range symbols {
		if ctx.Err() != nil {
			return 0, 0, ctx.Err()
		}
		price, qErr := l.quotes.CurrentPrice(ctx, symbol)
		if qErr != nil {
			log.Printf("Valuation quote for %s failed, keeping last price: %v", symbol, qErr)
			continue
		}
		prices[symbol] = price
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.timeNow()
	for symbol, pos := range l.positions {
		if price, ok := prices[symbol]; ok {
			pos.Revalue(price)
			pos.UpdatedAt = now
			if sErr := l.positionRepo.SavePosition(ctx, pos); sErr != nil {
				log.Printf("Persisting valuation for %s failed: %v", symbol, sErr)
			}
		}
		positionsValue += pos.MarketValue
	}

	return l.cash + positionsValue, positionsValue, nil
}

// View returns the cash balance and per-position valuation rows for snapshot
// assembly, sorted by symbol.
func (l *Ledger) View() (cash float64, views []domain.PositionView) {
	l.mu.Lock()
	defer l.mu.Unlock()

	views = make([]domain.PositionView, 0, len(l.positions))
	for _, p := range l.positions {
		views = append(views, domain.PositionView{
			Symbol:              p.Symbol,
			Quantity:            p.Quantity,
			AvgEntryPrice:       p.AvgEntryPrice,
			CurrentPrice:        p.CurrentPrice,
			MarketValue:         p.MarketValue,
			UnrealizedPL:        p.UnrealizedPL,
			UnrealizedPLPercent: p.UnrealizedPLPercent,
		})
	}
	sort.Slice(views, func(i, j int) bool {
		return views[i].Symbol < views[j].Symbol
	})
	return l.cash, views
}
