package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"GapSentinel/internal/guard"
	"GapSentinel/internal/metrics"
	"GapSentinel/internal/risk"
	"GapSentinel/internal/state"
)

// StateResponse is the body of GET /api/state.
type StateResponse struct {
	state.Snapshot
	Pending   map[string]time.Time `json:"pending"`
	DailyLoss float64              `json:"daily_loss"`
}

// Server exposes the dashboard state and Prometheus metrics over HTTP.
type Server struct {
	store   *state.Store
	guard   *guard.PendingOrders
	ledger  risk.Ledger
	metrics *metrics.Metrics
	srv     *http.Server
}

// New creates a status server listening on addr.
func New(addr string, store *state.Store, pending *guard.PendingOrders, ledger risk.Ledger, m *metrics.Metrics) *Server {
	s := &Server{store: store, guard: pending, ledger: ledger, metrics: m}
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Router builds the route table.
func (s *Server) Router() *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	router.HandleFunc("/api/state", s.handleState).Methods(http.MethodGet)
	if s.metrics != nil {
		router.Handle("/metrics", promhttp.HandlerFor(s.metrics.Registry, promhttp.HandlerOpts{}))
	}
	return router
}

// Start serves until ctx is cancelled.
func (s *Server) Start(ctx context.Context) {
	go func() {
		log.Infof("http listening on %s", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("http: listen and serve: %v", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			log.Warnf("http shutdown: %v", err)
		}
	}()
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleState(w http.ResponseWriter, _ *http.Request) {
	resp := StateResponse{Snapshot: s.store.Snapshot()}
	if s.guard != nil {
		resp.Pending = s.guard.Snapshot()
	}
	if s.ledger != nil {
		loss, err := s.ledger.GetDailyLoss()
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		resp.DailyLoss = loss
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warnf("encode response: %v", err)
	}
}
