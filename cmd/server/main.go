package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/Simplici0/exequial/internal/auth"
	"github.com/Simplici0/exequial/internal/config"
	"github.com/Simplici0/exequial/internal/db"
	"github.com/Simplici0/exequial/internal/logging"
	"github.com/Simplici0/exequial/internal/metrics"
	"github.com/Simplici0/exequial/internal/migrations"
	"github.com/Simplici0/exequial/internal/sales"
	"github.com/Simplici0/exequial/internal/seed"
	"github.com/Simplici0/exequial/internal/store"
	"github.com/Simplici0/exequial/internal/wompi"
)

const shutdownTimeout = 10 * time.Second

type server struct {
	cfg      config.Config
	db       *sql.DB
	store    *store.Store
	auth     *auth.Authenticator
	tokens   *auth.Tokens
	sales    *sales.Service
	gateway  *wompi.Simulator
	metrics  *metrics.Metrics
	logger   *slog.Logger
	location *time.Location
	now      func() time.Time
}

func main() {
	cfg := config.Load()
	logger := logging.Setup(os.Stderr, cfg.LogLevel, cfg.IsDev())

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer database.Close()

	if err := migrations.Up(database); err != nil {
		return err
	}

	stats, err := seed.Run(database, seed.Config{
		AdminEmail:    cfg.AdminEmail,
		AdminPassword: cfg.AdminPassword,
		Demo:          cfg.IsDev(),
	})
	if err != nil {
		return err
	}
	logger.Info("seed completed", "inserts", stats.Inserts, "updates", stats.Updates)

	srv := newServer(cfg, database, logger)
	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", httpServer.Addr, "env", cfg.Env)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

func newServer(cfg config.Config, database *sql.DB, logger *slog.Logger) *server {
	st := store.New(database)
	m := metrics.New()
	gateway := wompi.NewSimulator(cfg.Wompi.EventsSecret)

	return &server{
		cfg:     cfg,
		db:      database,
		store:   st,
		auth:    auth.NewAuthenticator(st),
		tokens:  auth.NewTokens(cfg.SessionSecret, cfg.SessionTTL),
		gateway: gateway,
		sales: sales.NewService(st, gateway, m, sales.Options{
			EventsSecret:  cfg.Wompi.EventsSecret,
			AllowUnsigned: cfg.IsDev(),
			RedirectURL:   cfg.Wompi.RedirectURL,
			Logger:        logger,
		}),
		metrics:  m,
		logger:   logger,
		location: cfg.Location(),
		now:      time.Now,
	}
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(s.metrics.InstrumentHandler)

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", s.metrics.Handler())
	r.Post("/login", s.handleLogin)
	r.Post("/logout", s.handleLogout)
	r.Post("/webhooks/wompi", s.handleWompiWebhook)

	r.Route("/api", func(r chi.Router) {
		r.Use(s.authenticate)

		r.Get("/me", s.handleMe)
		r.Patch("/me", s.handleProfileUpdate)

		r.Route("/cotizaciones", func(r chi.Router) {
			r.Post("/calcular", s.handleQuoteCalculate)
			r.Post("/", s.handleQuoteCreate)
			r.Get("/", s.handleQuotesList)
			r.Get("/{id}", s.handleQuoteDetail)
			r.With(s.requireRole(store.RoleAdmin, store.RoleCallCenter)).Patch("/{id}/estado", s.handleQuoteStatus)
			r.With(s.requireRole(store.RoleAdmin, store.RoleCallCenter)).Post("/{id}/venta-directa", s.handleDirectSale)
		})

		r.Route("/clientes", func(r chi.Router) {
			r.Post("/", s.handleClientCreate)
			r.Get("/", s.handleClientsList)
			r.Get("/cedula/{cedula}", s.handleClientByCedula)
		})

		r.Route("/tenderos", func(r chi.Router) {
			r.Use(s.requireRole(store.RoleAdmin))
			r.Post("/", s.handleResellerCreate)
			r.Get("/", s.handleResellersList)
			r.Patch("/{id}", s.handleResellerUpdate)
			r.Post("/{id}/desactivar", s.handleResellerDeactivate)
		})

		r.With(s.requireRole(store.RoleAdmin, store.RoleReseller)).Get("/ventas", s.handleSalesList)
		r.With(s.requireRole(store.RoleAdmin, store.RoleReseller)).Get("/comisiones", s.handleCommissionsList)
		r.With(s.requireRole(store.RoleAdmin)).Get("/estadisticas", s.handleStats)

		r.Post("/pagos/wompi", s.handlePaymentStart)
		r.Get("/pagos/wompi/{id}", s.handlePaymentStatus)
		if s.cfg.IsDev() {
			r.Post("/pagos/wompi/{id}/simular", s.handlePaymentSimulate)
		}
	})

	return r
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.db.PingContext(r.Context()); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		attrs := []any{
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
		}
		switch {
		case status >= http.StatusInternalServerError:
			s.logger.Error("request", attrs...)
		case status >= http.StatusBadRequest:
			s.logger.Warn("request", attrs...)
		default:
			s.logger.Info("request", attrs...)
		}
	})
}

// today is the current calendar date in the configured timezone, at UTC midnight.
func (s *server) today() time.Time {
	y, m, d := s.now().In(s.location).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
