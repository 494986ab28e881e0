package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/vitos/hedgefund_sim/internal/domain"
)

var _ domain.OrderRepository = (*SQLiteStore)(nil)
var _ domain.PositionRepository = (*SQLiteStore)(nil)
var _ domain.SnapshotRepository = (*SQLiteStore)(nil)
var _ domain.DecisionRepository = (*SQLiteStore)(nil)

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, err
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS orders (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			symbol TEXT NOT NULL,
			side TEXT NOT NULL,
			type TEXT NOT NULL DEFAULT 'MARKET',
			quantity INTEGER NOT NULL,
			status TEXT NOT NULL DEFAULT 'NEW',
			reason TEXT NOT NULL DEFAULT '',
			filled_quantity INTEGER NOT NULL DEFAULT 0,
			filled_avg_price REAL NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_orders_status ON orders(status);`,
		`CREATE TABLE IF NOT EXISTS positions (
			symbol TEXT PRIMARY KEY,
			quantity INTEGER NOT NULL,
			avg_entry_price REAL NOT NULL,
			cost_basis REAL NOT NULL,
			current_price REAL NOT NULL DEFAULT 0,
			market_value REAL NOT NULL DEFAULT 0,
			unrealized_pl REAL NOT NULL DEFAULT 0,
			unrealized_pl_percent REAL NOT NULL DEFAULT 0,
			updated_at DATETIME NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS portfolio_snapshots (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			created_at DATETIME NOT NULL,
			cash REAL NOT NULL,
			equity REAL NOT NULL,
			positions_value REAL NOT NULL,
			total_pl REAL NOT NULL,
			total_pl_percent REAL NOT NULL,
			positions_data TEXT NOT NULL DEFAULT '[]'
		);`,
		`CREATE INDEX IF NOT EXISTS idx_snapshots_created_at ON portfolio_snapshots(created_at);`,
		`CREATE TABLE IF NOT EXISTS decisions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			symbol TEXT NOT NULL,
			action TEXT NOT NULL,
			quantity INTEGER NOT NULL,
			verdict TEXT NOT NULL,
			modified_quantity INTEGER NOT NULL DEFAULT 0,
			confidence REAL NOT NULL DEFAULT 0,
			reasoning TEXT NOT NULL DEFAULT '',
			order_id INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL
		);`,
	}

	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return fmt.Errorf("failed to exec query %s: %w", q, err)
		}
	}

	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// OrderRepository Implementation

func (s *SQLiteStore) SaveOrder(ctx context.Context, order *domain.Order) error {
	query := `INSERT INTO orders (symbol, side, type, quantity, status, reason, filled_quantity, filled_avg_price, created_at, updated_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := s.db.ExecContext(ctx, query,
		order.Symbol, order.Side, order.Type, order.Quantity, order.Status,
		order.Reason, order.FilledQuantity, order.FilledAvgPrice, order.CreatedAt, order.UpdatedAt)
	if err != nil {
		return err
	}
	order.ID, err = res.LastInsertId()
	return err
}

func (s *SQLiteStore) UpdateOrder(ctx context.Context, order *domain.Order) error {
	query := `UPDATE orders SET status = ?, reason = ?, filled_quantity = ?, filled_avg_price = ?, updated_at = ?
			  WHERE id = ?`
	_, err := s.db.ExecContext(ctx, query,
		order.Status, order.Reason, order.FilledQuantity, order.FilledAvgPrice, order.UpdatedAt, order.ID)
	return err
}

func (s *SQLiteStore) GetOrder(ctx context.Context, id int64) (*domain.Order, error) {
	query := `SELECT id, symbol, side, type, quantity, status, reason, filled_quantity, filled_avg_price, created_at, updated_at
			  FROM orders WHERE id = ?`
	row := s.db.QueryRowContext(ctx, query, id)

	var o domain.Order
	err := row.Scan(&o.ID, &o.Symbol, &o.Side, &o.Type, &o.Quantity, &o.Status, &o.Reason,
		&o.FilledQuantity, &o.FilledAvgPrice, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (s *SQLiteStore) ListOrdersByStatus(ctx context.Context, status domain.OrderStatus) ([]*domain.Order, error) {
	query := `SELECT id, symbol, side, type, quantity, status, reason, filled_quantity, filled_avg_price, created_at, updated_at
			  FROM orders WHERE status = ? ORDER BY id ASC`
	rows, err := s.db.QueryContext(ctx, query, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanOrders(rows)
}

func (s *SQLiteStore) ListOrders(ctx context.Context, limit int) ([]*domain.Order, error) {
	query := `SELECT id, symbol, side, type, quantity, status, reason, filled_quantity, filled_avg_price, created_at, updated_at
			  FROM orders ORDER BY id DESC LIMIT ?`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanOrders(rows)
}

func (s *SQLiteStore) CountOrdersByStatus(ctx context.Context) (map[domain.OrderStatus]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM orders GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[domain.OrderStatus]int)
	for rows.Next() {
		var status domain.OrderStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, nil
}

func scanOrders(rows *sql.Rows) ([]*domain.Order, error) {
	var orders []*domain.Order
	for rows.Next() {
		var o domain.Order
		if err := rows.Scan(&o.ID, &o.Symbol, &o.Side, &o.Type, &o.Quantity, &o.Status, &o.Reason,
			&o.FilledQuantity, &o.FilledAvgPrice, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, err
		}
		orders = append(orders, &o)
	}
	return orders, nil
}

// PositionRepository Implementation

func (s *SQLiteStore) SavePosition(ctx context.Context, position *domain.Position) error {
	query := `INSERT INTO positions (symbol, quantity, avg_entry_price, cost_basis, current_price, market_value, unrealized_pl, unrealized_pl_percent, updated_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			  ON CONFLICT(symbol) DO UPDATE SET
			  quantity=excluded.quantity,
			  avg_entry_price=excluded.avg_entry_price,
			  cost_basis=excluded.cost_basis,
			  current_price=excluded.current_price,
			  market_value=excluded.market_value,
			  unrealized_pl=excluded.unrealized_pl,
			  unrealized_pl_percent=excluded.unrealized_pl_percent,
			  updated_at=excluded.updated_at`
	_, err := s.db.ExecContext(ctx, query,
		position.Symbol, position.Quantity, position.AvgEntryPrice, position.CostBasis,
		position.CurrentPrice, position.MarketValue, position.UnrealizedPL, position.UnrealizedPLPercent,
		position.UpdatedAt)
	return err
}

func (s *SQLiteStore) DeletePosition(ctx context.Context, symbol string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM positions WHERE symbol = ?", symbol)
	return err
}

func (s *SQLiteStore) ListPositions(ctx context.Context) ([]*domain.Position, error) {
	query := `SELECT symbol, quantity, avg_entry_price, cost_basis, current_price, market_value, unrealized_pl, unrealized_pl_percent, updated_at
			  FROM positions ORDER BY symbol ASC`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var positions []*domain.Position
	for rows.Next() {
		var p domain.Position
		if err := rows.Scan(&p.Symbol, &p.Quantity, &p.AvgEntryPrice, &p.CostBasis,
			&p.CurrentPrice, &p.MarketValue, &p.UnrealizedPL, &p.UnrealizedPLPercent, &p.UpdatedAt); err != nil {
			return nil, err
		}
		positions = append(positions, &p)
	}
	return positions, nil
}

// SnapshotRepository Implementation

func (s *SQLiteStore) SaveSnapshot(ctx context.Context, snap *domain.PortfolioSnapshot) error {
	data, err := json.Marshal(snap.Positions)
	if err != nil {
		return fmt.Errorf("failed to marshal positions: %w", err)
	}

	query := `INSERT INTO portfolio_snapshots (created_at, cash, equity, positions_value, total_pl, total_pl_percent, positions_data)
			  VALUES (?, ?, ?, ?, ?, ?, ?)`
	res, err := s.db.ExecContext(ctx, query,
		snap.CreatedAt, snap.Cash, snap.Equity, snap.PositionsValue, snap.TotalPL, snap.TotalPLPercent, string(data))
	if err != nil {
		return err
	}
	snap.ID, err = res.LastInsertId()
	return err
}

// LatestSnapshot returns the most recent snapshot, or nil when none exists.
func (s *SQLiteStore) LatestSnapshot(ctx context.Context) (*domain.PortfolioSnapshot, error) {
	query := `SELECT id, created_at, cash, equity, positions_value, total_pl, total_pl_percent, positions_data
			  FROM portfolio_snapshots ORDER BY id DESC LIMIT 1`
	row := s.db.QueryRowContext(ctx, query)

	snap, err := scanSnapshot(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return snap, err
}

func (s *SQLiteStore) ListSnapshots(ctx context.Context, limit int) ([]*domain.PortfolioSnapshot, error) {
	query := `SELECT id, created_at, cash, equity, positions_value, total_pl, total_pl_percent, positions_data
			  FROM portfolio_snapshots ORDER BY id DESC LIMIT ?`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanSnapshots(rows)
}

func (s *SQLiteStore) ListSnapshotsSince(ctx context.Context, since time.Time) ([]*domain.PortfolioSnapshot, error) {
	query := `SELECT id, created_at, cash, equity, positions_value, total_pl, total_pl_percent, positions_data
			  FROM portfolio_snapshots WHERE created_at >= ? ORDER BY id ASC`
	rows, err := s.db.QueryContext(ctx, query, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanSnapshots(rows)
}

func scanSnapshot(scan func(dest ...any) error) (*domain.PortfolioSnapshot, error) {
	var snap domain.PortfolioSnapshot
	var data string
	if err := scan(&snap.ID, &snap.CreatedAt, &snap.Cash, &snap.Equity,
		&snap.PositionsValue, &snap.TotalPL, &snap.TotalPLPercent, &data); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(data), &snap.Positions); err != nil {
		return nil, fmt.Errorf("failed to unmarshal positions: %w", err)
	}
	return &snap, nil
}

func scanSnapshots(rows *sql.Rows) ([]*domain.PortfolioSnapshot, error) {
	var snaps []*domain.PortfolioSnapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows.Scan)
		if err != nil {
			return nil, err
		}
		snaps = append(snaps, snap)
	}
	return snaps, nil
}

// DecisionRepository Implementation

func (s *SQLiteStore) SaveDecision(ctx context.Context, rec *domain.DecisionRecord) error {
	query := `INSERT INTO decisions (symbol, action, quantity, verdict, modified_quantity, confidence, reasoning, order_id, created_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := s.db.ExecContext(ctx, query,
		rec.Symbol, rec.Action, rec.Quantity, rec.Verdict, rec.ModifiedQuantity,
		rec.Confidence, rec.Reasoning, rec.OrderID, rec.CreatedAt)
	if err != nil {
		return err
	}
	rec.ID, err = res.LastInsertId()
	return err
}

func (s *SQLiteStore) ListDecisions(ctx context.Context, limit int) ([]*domain.DecisionRecord, error) {
	query := `SELECT id, symbol, action, quantity, verdict, modified_quantity, confidence, reasoning, order_id, created_at
			  FROM decisions ORDER BY id DESC LIMIT ?`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []*domain.DecisionRecord
	for rows.Next() {
		var r domain.DecisionRecord
		if err := rows.Scan(&r.ID, &r.Symbol, &r.Action, &r.Quantity, &r.Verdict,
			&r.ModifiedQuantity, &r.Confidence, &r.Reasoning, &r.OrderID, &r.CreatedAt); err != nil {
			return nil, err
		}
		recs = append(recs, &r)
	}
	return recs, nil
}
