package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/sirupsen/logrus"
	accthandler "github.com/taplab/salesdash/internal/accounting/handler"
	"github.com/taplab/salesdash/internal/config"
	"github.com/taplab/salesdash/internal/handler"
	mw "github.com/taplab/salesdash/internal/middleware"
)

// Handlers groups the endpoint handlers mounted by New. Ledger and Live are
// optional.
type Handlers struct {
	Sales  *handler.SalesHandler
	Ledger *accthandler.LedgerHandler
	Live   http.Handler
}

// New creates a Chi router with all application routes wired up.
// When cfg.TokenSecret is set every route except /health requires a
// dashboard token.
func New(cfg *config.Config, logger logrus.FieldLogger, h Handlers) chi.Router {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.RealIP)
	r.Use(mw.RequestID)
	r.Use(mw.Logger(logger))
	r.Use(mw.Recover(logger))

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", mw.RequestIDHeader},
		ExposedHeaders: []string{mw.RequestIDHeader},
		MaxAge:         300, // 5 minutes
	}))

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	// Protected routes (open when no token secret is configured)
	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate(cfg.TokenSecret))

		h.Sales.RegisterRoutes(r)

		if h.Ledger != nil {
			h.Ledger.RegisterRoutes(r)
		}

		// WebSocket route; browsers pass the token as a query param
		if h.Live != nil {
			r.Get("/ws/live", h.Live.ServeHTTP)
		}
	})

	logger.WithField("module", "router").Debug("router initialized")
	return r
}
