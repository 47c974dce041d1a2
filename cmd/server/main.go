package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/Simplici0/matrixprice/internal/config"
	"github.com/Simplici0/matrixprice/internal/db"
	"github.com/Simplici0/matrixprice/internal/migrations"
	"github.com/Simplici0/matrixprice/internal/seed"
	"github.com/Simplici0/matrixprice/internal/store"
)

type server struct {
	store  *store.Store
	cfg    config.Config
	logger *slog.Logger
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	level, _ := cfg.SlogLevel()
	logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	database, err := db.Open(ctx, cfg.DBPath)
	if err != nil {
		return err
	}
	defer database.Close()

	applied, err := migrations.Up(ctx, database)
	if err != nil {
		return err
	}
	logger.Info("database ready", "path", cfg.DBPath, "migrations_applied", applied)

	st := store.New(database)
	if cfg.IsDev() || cfg.Seed {
		stats, err := seed.Run(ctx, st, cfg.StoreID)
		if err != nil {
			return err
		}
		logger.Info("seed complete", "store_id", cfg.StoreID, "inserts", stats.Inserts)
	}

	srv := &server{store: st, cfg: cfg, logger: logger}
	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", "addr", httpServer.Addr, "env", cfg.Env, "store_id", cfg.StoreID)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down", "timeout", cfg.ShutdownTimeout)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.accessLog)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(cors)
		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			writeProblem(w, http.StatusNotFound, "Not Found", "Resource not found")
		})
		r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
			writeProblem(w, http.StatusMethodNotAllowed, "Method Not Allowed",
				"Method "+r.Method+" is not allowed for this resource.")
		})

		r.Get("/matrices", s.handleListMatrices)
		r.Post("/matrices/import", s.handleImportMatrix)
		r.Put("/matrices/{matrixID}/grid", s.handleReplaceMatrixGrid)

		r.Post("/option-groups", s.handleCreateOptionGroup)

		r.Route("/products/{productID}", func(r chi.Router) {
			r.Put("/", s.handleUpsertProduct)
			r.Put("/matrix", s.handleAssignMatrix)
			r.Put("/option-groups/{groupID}", s.handleAssignOptionGroup)
			r.Get("/price", s.handlePrice)
			r.Get("/options", s.handleOptions)
			r.Post("/quotes", s.handleCreateQuote)
		})

		r.Get("/quotes", s.handleListQuotes)
	})

	return r
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
