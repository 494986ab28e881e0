package web

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/vitos/hedgefund_sim/internal/domain"
	"github.com/vitos/hedgefund_sim/internal/usecase"
	"go.uber.org/zap"
)

type Server struct {
	router      *http.ServeMux
	server      *http.Server
	ledger      *usecase.Ledger
	coordinator *usecase.CycleCoordinator
	intake      *usecase.OrderIntake
	reports     *usecase.ReportService
	orders      domain.OrderRepository
	snapshots   domain.SnapshotRepository
	logger      *zap.Logger
}

func NewServer(
	port int,
	ledger *usecase.Ledger,
	coordinator *usecase.CycleCoordinator,
	intake *usecase.OrderIntake,
	reports *usecase.ReportService,
	orders domain.OrderRepository,
	snapshots domain.SnapshotRepository,
	logger *zap.Logger,
) *Server {
	s := &Server{
		router:      http.NewServeMux(),
		ledger:      ledger,
		coordinator: coordinator,
		intake:      intake,
		reports:     reports,
		orders:      orders,
		snapshots:   snapshots,
		logger:      logger,
	}
	s.routes()
	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: s.router,
	}
	return s
}

func (s *Server) routes() {
	// Dashboard
	s.router.HandleFunc("GET /", s.handleDashboard)

	// Portfolio
	s.router.HandleFunc("GET /api/portfolio", s.handlePortfolio)
	s.router.HandleFunc("GET /api/positions", s.handlePositions)

	// Orders
	s.router.HandleFunc("GET /api/orders", s.handleOrders)

	// History
	s.router.HandleFunc("GET /api/snapshots", s.handleSnapshots)
	s.router.HandleFunc("GET /api/report", s.handleReport)

	// Intake
	s.router.HandleFunc("POST /api/decisions", s.handleSubmitDecision)

	// Operations
	s.router.HandleFunc("POST /api/cycle", s.handleRunCycle)
	s.router.HandleFunc("POST /api/resume", s.handleResume)
	s.router.HandleFunc("GET /healthz", s.handleHealth)
	s.router.Handle("GET /metrics", promhttp.Handler())
}

// Handler exposes the route table for embedding and tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	s.logger.Info("Starting web server", zap.String("addr", s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
