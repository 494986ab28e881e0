package web

import (
	"encoding/json"
	"net/http"
	"sort"
	"strconv"

	"github.com/vitos/hedgefund_sim/internal/domain"
	"go.uber.org/zap"
)

const (
	defaultOrdersLimit    = 50
	defaultSnapshotsLimit = 24
	defaultReportDays     = 30
)

// portfolioResponse is the live book as the ledger holds it right now.
// Prices are the ones from the last valuation; the handler does not
// reach out to quote sources.
type portfolioResponse struct {
	Cash           float64               `json:"cash"`
	PositionsValue float64               `json:"positions_value"`
	Equity         float64               `json:"equity"`
	TotalPL        float64               `json:"total_pl"`
	TotalPLPercent float64               `json:"total_pl_percent"`
	Halted         bool                  `json:"halted"`
	Positions      []domain.PositionView `json:"positions"`
}

func (s *Server) handlePortfolio(w http.ResponseWriter, r *http.Request) {
	resp := s.portfolio()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Error("Failed to encode portfolio", zap.Error(err))
	}
}

func (s *Server) portfolio() portfolioResponse {
	cash, views := s.ledger.View()
	var positionsValue float64
	for _, v := range views {
		positionsValue += v.MarketValue
	}
	equity := cash + positionsValue
	totalPL := equity - s.ledger.InitialCapital()
	var totalPLPercent float64
	if initial := s.ledger.InitialCapital(); initial > 0 {
		totalPLPercent = totalPL / initial * 100
	}
	return portfolioResponse{
		Cash:           cash,
		PositionsValue: positionsValue,
		Equity:         equity,
		TotalPL:        totalPL,
		TotalPLPercent: totalPLPercent,
		Halted:         s.coordinator.Halted(),
		Positions:      views,
	}
}

func (s *Server) handlePositions(w http.ResponseWriter, r *http.Request) {
	positions := s.ledger.Positions()
	sort.Slice(positions, func(i, j int) bool { return positions[i].Symbol < positions[j].Symbol })
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(positions); err != nil {
		s.logger.Error("Failed to encode positions", zap.Error(err))
	}
}

func (s *Server) handleOrders(w http.ResponseWriter, r *http.Request) {
	var (
		orders []*domain.Order
		err    error
	)
	if status := r.URL.Query().Get("status"); status != "" {
		st := domain.OrderStatus(status)
		if st != domain.OrderStatusNew && st != domain.OrderStatusFilled && st != domain.OrderStatusRejected {
			http.Error(w, "Unknown order status: "+status, http.StatusBadRequest)
			return
		}
		orders, err = s.orders.ListOrdersByStatus(r.Context(), st)
	} else {
		orders, err = s.orders.ListOrders(r.Context(), queryInt(r, "limit", defaultOrdersLimit))
	}
	if err != nil {
		s.logger.Error("Failed to list orders", zap.Error(err))
		http.Error(w, "Failed to list orders", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(orders); err != nil {
		s.logger.Error("Failed to encode orders", zap.Error(err))
	}
}

func (s *Server) handleSnapshots(w http.ResponseWriter, r *http.Request) {
	snaps, err := s.snapshots.ListSnapshots(r.Context(), queryInt(r, "limit", defaultSnapshotsLimit))
	if err != nil {
		s.logger.Error("Failed to list snapshots", zap.Error(err))
		http.Error(w, "Failed to list snapshots", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(snaps); err != nil {
		s.logger.Error("Failed to encode snapshots", zap.Error(err))
	}
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	report, err := s.reports.Summary(r.Context(), queryInt(r, "days", defaultReportDays))
	if err != nil {
		s.logger.Error("Failed to build report", zap.Error(err))
		http.Error(w, "Failed to build report: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(report); err != nil {
		s.logger.Error("Failed to encode report", zap.Error(err))
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status": "ok",
		"halted": s.coordinator.Halted(),
	})
}

// queryInt reads an integer query parameter, falling back to def when the
// parameter is absent or malformed.
func queryInt(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
