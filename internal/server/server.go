// Package server wires the HTTP surfaces: the administrative ban and
// scan endpoints, a guarded application API demonstrating the admission
// chain, and the Prometheus metrics listener.
package server

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"threatgate/internal/banlist"
	"threatgate/internal/config"
	"threatgate/internal/logging"
	"threatgate/internal/middleware"
	"threatgate/internal/scanner"
)

// Server owns the router and the components the handlers reach.
type Server struct {
	cfg     *config.Config
	guard   *middleware.Guard
	store   *banlist.Store
	scanner *scanner.Scanner
	router  *mux.Router
}

// New builds the server and its routes.
func New(cfg *config.Config, guard *middleware.Guard, store *banlist.Store, sc *scanner.Scanner) *Server {
	s := &Server{cfg: cfg, guard: guard, store: store, scanner: sc, router: mux.NewRouter()}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.Use(middleware.RequestID)

	s.router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)

	// Administrative surface. Reachable by operators only; deploy it
	// behind the host's own authentication.
	admin := s.router.PathPrefix("/v1").Subrouter()
	admin.HandleFunc("/bans/{kind}", s.handleListBans).Methods(http.MethodGet)
	admin.HandleFunc("/bans/{kind}", s.handleCreateBan).Methods(http.MethodPost)
	admin.HandleFunc("/bans/{kind}/{value}", s.handleDeleteBan).Methods(http.MethodDelete)
	admin.HandleFunc("/scan", s.handleScan).Methods(http.MethodPost)

	// Application routes run the full pipeline: ban short-circuit and
	// user-agent scan first, then the payload deep scan.
	api := s.router.PathPrefix("/api").Subrouter()
	api.Use(s.guard.Admission, s.guard.PayloadGuard)
	api.PathPrefix("/").HandlerFunc(s.handleEcho)
}

// Router returns the HTTP handler.
func (s *Server) Router() http.Handler { return s.router }

// StartMetrics serves the Prometheus endpoint on its own listener.
// Blocks; run it in a goroutine.
func (s *Server) StartMetrics(addr string) {
	m := http.NewServeMux()
	m.Handle("/metrics", promhttp.Handler())
	if err := http.ListenAndServe(addr, m); err != nil && err != http.ErrServerClosed {
		logging.Error().Err(err).Msg("metrics server error")
	}
}
