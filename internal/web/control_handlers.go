package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/vitos/hedgefund_sim/internal/domain"
	"go.uber.org/zap"
)

// Decision Intake and Trading Control Handlers

func (s *Server) handleSubmitDecision(w http.ResponseWriter, r *http.Request) {
	type submitRequest struct {
		Recommendation domain.Recommendation `json:"recommendation"`
		Decision       domain.Decision       `json:"decision"`
	}

	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	// Validate required fields
	if req.Recommendation.Symbol == "" {
		http.Error(w, "Symbol is required", http.StatusBadRequest)
		return
	}
	if req.Recommendation.Action != domain.SideBuy && req.Recommendation.Action != domain.SideSell {
		http.Error(w, "Action must be BUY or SELL", http.StatusBadRequest)
		return
	}
	switch req.Decision.Verdict {
	case domain.VerdictApprove, domain.VerdictModify, domain.VerdictReject:
	default:
		http.Error(w, "Verdict must be APPROVE, MODIFY or REJECT", http.StatusBadRequest)
		return
	}
	quantity := req.Recommendation.Quantity
	if req.Decision.Verdict == domain.VerdictModify && req.Decision.ModifiedQuantity > 0 {
		quantity = req.Decision.ModifiedQuantity
	}
	if req.Decision.Verdict != domain.VerdictReject && quantity <= 0 {
		http.Error(w, "Quantity must be greater than 0", http.StatusBadRequest)
		return
	}

	order, err := s.intake.Submit(r.Context(), req.Recommendation, req.Decision)
	if err != nil {
		s.logger.Error("Failed to submit decision", zap.Error(err))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if order == nil {
		// REJECT verdict: audit row recorded, no order queued.
		json.NewEncoder(w).Encode(map[string]string{"status": "rejected"})
		return
	}
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(order)
}

func (s *Server) handleRunCycle(w http.ResponseWriter, r *http.Request) {
	if err := s.coordinator.RunCycle(r.Context(), true); err != nil {
		switch {
		case errors.Is(err, domain.ErrCycleInProgress):
			http.Error(w, err.Error(), http.StatusConflict)
		case errors.Is(err, domain.ErrTradingHalted):
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
		default:
			s.logger.Error("Manual cycle failed", zap.Error(err))
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "completed"})
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	s.coordinator.Resume()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "resumed"})
}
