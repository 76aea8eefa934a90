// Command scraper-core is the process entrypoint: it wires every
// collaborator the coordinator needs, warms the odds cache from
// Postgres, recovers any run left stuck from a previous process, and
// starts the scheduler and the ops HTTP server: config load,
// signal-aware shutdown, chi router with a websocket upgrade route.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/palimpsest-sports/scrapecore/internal/adapter/bet9ja"
	"github.com/palimpsest-sports/scrapecore/internal/adapter/betpawa"
	"github.com/palimpsest-sports/scrapecore/internal/adapter/sportybet"
	"github.com/palimpsest-sports/scrapecore/internal/broadcast"
	"github.com/palimpsest-sports/scrapecore/internal/config"
	"github.com/palimpsest-sports/scrapecore/internal/coordinator"
	"github.com/palimpsest-sports/scrapecore/internal/mapping"
	"github.com/palimpsest-sports/scrapecore/internal/oddscache"
	"github.com/palimpsest-sports/scrapecore/internal/scheduler"
	"github.com/palimpsest-sports/scrapecore/internal/store"
	"github.com/palimpsest-sports/scrapecore/internal/writequeue"
)

func main() {
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()

	cfg := config.Load()

	if err := run(cfg, log.Logger); err != nil {
		log.Fatal().Err(err).Msg("scraper-core exited")
	}
}

func run(cfg *config.Config, logger zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := store.Migrate(cfg.PostgresDSN); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}

	db, err := store.Open(cfg.PostgresDSN)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisURL,
		Password: cfg.RedisPassword,
	})
	defer redisClient.Close()

	coordSession := store.NewCoordinatorSession(db)
	writer := store.NewWriterSession(db)
	mappingRepo := store.NewMappingRepo(db)

	cache := oddscache.New()
	if err := store.WarmupCache(ctx, writer, cache, time.Now().UTC()); err != nil {
		logger.Warn().Err(err).Msg("odds cache warmup failed, starting cold")
	}

	mappingCache := mapping.New()

	httpClient := &http.Client{Timeout: cfg.Settings.HTTPTimeout}
	adapters := coordinator.Adapters{
		Betpawa:   betpawa.New(httpClient),
		SportyBet: sportybet.New(httpClient),
		Bet9ja:    bet9ja.New(httpClient, time.Duration(cfg.Settings.Bet9jaDelayMs)*time.Millisecond),
	}

	mirror := broadcast.NewRedisMirror(redisClient)
	registry := broadcast.NewRegistry(logger, mirror)

	queue := writequeue.New(writer, cfg.Settings.WriteQueueDepth, logger)

	coord := coordinator.New(
		coordSession, writer, mappingRepo, queue,
		cache, mappingCache, adapters, registry,
		&cfg.Settings, logger,
	)
	queue.OnApplied = coord.RecordAssigned
	queue.Start(ctx)
	defer queue.Stop(ctx)
	if err := coord.Init(ctx); err != nil {
		return fmt.Errorf("coordinator init: %w", err)
	}

	sched := scheduler.New(coord, coordSession, writer, registry, &cfg.Settings, logger)
	if err := sched.RecoverOnStartup(ctx); err != nil {
		logger.Warn().Err(err).Msg("startup stale-run recovery failed")
	}
	sched.Start(ctx)

	srv := &http.Server{
		Addr:    cfg.OpsAddr,
		Handler: opsRouter(db, registry, sched, logger),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.OpsAddr).Msg("ops server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
	case err := <-errCh:
		logger.Error().Err(err).Msg("ops server failed")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)

	sched.Stop()
	return nil
}

// opsRouter builds the process's operational surface: health, a plain-
// text metrics snapshot, and a per-run websocket progress feed, mounted
// on a chi + go-chi/cors router.
func opsRouter(db *sql.DB, registry *broadcast.Registry, sched *scheduler.Scheduler, logger zerolog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/healthz", healthHandler(db))
	r.Get("/metrics", metricsHandler(db))

	r.Route("/runs", func(r chi.Router) {
		r.Post("/trigger", triggerHandler(sched, logger))
		r.Get("/{runID}/progress", progressHandler(registry, logger))
	})

	return r
}

func healthHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			fmt.Fprintf(w, "db unreachable: %v", err)
			return
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "ok")
	}
}

// metricsHandler emits a minimal Prometheus text-format snapshot of the
// database connection pool. A fuller metrics surface (cycle counters,
// write-queue depth) is left for a later cut; the
// pool stats are the one thing a liveness probe can't derive elsewhere.
func metricsHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats := db.Stats()
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		fmt.Fprintf(w, "scrapecore_db_open_connections %d\n", stats.OpenConnections)
		fmt.Fprintf(w, "scrapecore_db_in_use %d\n", stats.InUse)
		fmt.Fprintf(w, "scrapecore_db_idle %d\n", stats.Idle)
		fmt.Fprintf(w, "scrapecore_db_wait_count %d\n", stats.WaitCount)
	}
}

func triggerHandler(sched *scheduler.Scheduler, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, err := sched.TriggerNow(r.Context())
		if err != nil {
			logger.Error().Err(err).Msg("manual trigger failed")
			w.WriteHeader(http.StatusInternalServerError)
			fmt.Fprintf(w, "cycle failed: %v", err)
			return
		}
		fmt.Fprintf(w, "run %d complete: %d scraped, %d failed, %d alerts\n",
			result.ScrapeRunID, result.EventsScraped, result.EventsFailed, result.Alerts)
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// progressHandler upgrades to a websocket and streams one run's
// ProgressEvents as they're published. A run that hasn't started yet (or has already finished and
// closed) yields 404.
func progressHandler(registry *broadcast.Registry, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		runID := chi.URLParam(r, "runID")
		hub, ok := registry.Get(runID)
		if !ok {
			http.Error(w, "run not found or already complete", http.StatusNotFound)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Warn().Err(err).Msg("websocket upgrade failed")
			return
		}

		client := broadcast.NewWebSocketClient(uuid.New().String(), conn, hub)
		hub.Register(client)

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()
		go client.WritePump(ctx)
		client.ReadPump(ctx)
	}
}
