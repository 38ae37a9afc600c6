// Package http exposes the ledger over a JSON API.
package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"kassa/internal/auth"
	"kassa/internal/ledger"
	"kassa/internal/log"
)

type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	ledger     *ledger.Service
	auth       *auth.Service
	tokens     *auth.TokenManager
	logger     *log.Logger
}

func NewServer(addr string, ledgerSvc *ledger.Service, authSvc *auth.Service, tokens *auth.TokenManager, logger *log.Logger) *Server {
	s := &Server{
		router: chi.NewRouter(),
		ledger: ledgerSvc,
		auth:   authSvc,
		tokens: tokens,
		logger: logger.WithComponent(log.ComponentHTTP),
	}
	s.routes()

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

func (s *Server) routes() {
	r := s.router
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", s.handleRegister)
		r.Post("/auth/login", s.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(s.authenticate)

			r.Get("/auth/me", s.handleMe)
			r.Post("/auth/logout", s.handleLogout)

			r.Route("/accounts", func(r chi.Router) {
				r.Get("/", s.handleListAccounts)
				r.Post("/", s.handleCreateAccount)
				r.Get("/{id}", s.handleGetAccount)
				r.Put("/{id}", s.handleUpdateAccount)
				r.Delete("/{id}", s.handleDeleteAccount)
				r.Get("/{id}/transactions", s.handleEntriesByAccount)
			})

			r.Route("/categories", func(r chi.Router) {
				r.Get("/", s.handleListCategories)
				r.Get("/{id}", s.handleGetCategory)
			})

			r.Route("/transactions", func(r chi.Router) {
				r.Get("/", s.handleListEntries)
				r.Post("/", s.handleCreateEntry)
				r.Get("/recent", s.handleRecentEntries)
				r.Get("/category/{id}", s.handleEntriesByCategory)
				r.Get("/{id}", s.handleGetEntry)
				r.Put("/{id}", s.handleUpdateEntry)
				r.Delete("/{id}", s.handleDeleteEntry)
			})

			r.Route("/summary", func(r chi.Router) {
				r.Get("/", s.handleSummary)
				r.Get("/daily", s.handleDailySummary)
				r.Get("/expenses", s.handleExpenseBreakdown)
				r.Get("/income-accounts", s.handleIncomeByAccount)
				r.Get("/trend", s.handleTrend)
			})
		})
	})
}

// Handler exposes the router, for tests.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) Start() error {
	s.logger.Info("http server listening",
		log.FieldOperation, log.OpStartup,
		"addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http server shutting down",
		log.FieldOperation, log.OpShutdown)
	return s.httpServer.Shutdown(ctx)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
