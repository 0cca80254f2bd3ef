package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"github.com/calscan/calscan/internal/api"
	"github.com/calscan/calscan/internal/auth"
	"github.com/calscan/calscan/internal/calendar"
	"github.com/calscan/calscan/internal/cloudsql"
	"github.com/calscan/calscan/internal/config"
	"github.com/calscan/calscan/internal/database"
	"github.com/calscan/calscan/internal/inference"
	"github.com/calscan/calscan/internal/logging"
	"github.com/calscan/calscan/internal/metrics"
	"github.com/calscan/calscan/internal/narrative"
	"github.com/calscan/calscan/internal/orats"
	"github.com/calscan/calscan/internal/scanner"
	"github.com/calscan/calscan/internal/scheduler"
	"github.com/calscan/calscan/internal/server"
	"github.com/calscan/calscan/internal/social"
)

type stores struct {
	scans         database.ScanStore
	inferenceLogs database.InferenceLogStore
	close         func()
}

func main() {
	// A missing .env is normal in deployed environments.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stdout, nil)).Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stdout, nil)).Error("failed to init logger", "error", err)
		os.Exit(1)
	}

	logger.Info("starting calscan")

	st, err := openStores(logger)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer st.close()

	collector, err := metrics.NewCollector()
	if err != nil {
		logger.Error("failed to create metrics collector", "error", err)
		os.Exit(1)
	}

	client, err := orats.NewClient(cfg.Vendor, logger, collector)
	if err != nil {
		logger.Error("failed to create vendor client", "error", err)
		os.Exit(1)
	}

	scoring, err := config.LoadScoring(cfg.Scan.ScoringConfigPath)
	if err != nil {
		logger.Error("failed to load scoring config", "error", err)
		os.Exit(1)
	}
	scan := scanner.New(client, calendar.NewScorer(scoring), scanner.SettingsFromConfig(cfg.Scan), collector, logger)

	inferenceLogger := inference.NewLogger(st.inferenceLogs, logger)
	narrator, err := narrative.New(cfg.Narrative, inferenceLogger, collector, logger)
	if err != nil {
		logger.Warn("narrative provider unavailable, narratives disabled", "provider", cfg.Narrative.Provider, "error", err)
		narrator = narrative.Disabled{}
	}
	logger.Info("narrative provider configured", "provider", narrator.Provider())

	authConfig := auth.LoadConfigFromEnv()

	mux := http.NewServeMux()
	api.SetupRoutes(mux, api.Deps{
		Scans:         scan,
		ScanStore:     st.scans,
		InferenceLogs: st.inferenceLogs,
		Narrator:      narrator,
		Auth:          authConfig,
		Logger:        logger,
	})

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	mux.Handle("/metrics", collector.Handler())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var watchlist *scheduler.WatchlistScheduler
	if len(cfg.Watchlist.Tickers) > 0 {
		var poster scheduler.Poster
		discord, err := social.NewDiscordPoster(cfg.Notify.DiscordToken, cfg.Notify.DiscordChannelID, cfg.Notify.DashboardURL, logger)
		switch {
		case err == nil:
			poster = discord
		case errors.Is(err, social.ErrNotConfigured):
			logger.Info("discord notifications disabled")
		default:
			logger.Warn("failed to initialize discord poster", "error", err)
		}

		watchlist = scheduler.NewWatchlistScheduler(scan, st.scans, poster, cfg.Watchlist, logger)
		go watchlist.Start(ctx)
	}

	handler := server.SPAMiddleware(collector.InstrumentHandler(mux), cfg.Server.StaticDir)
	srv := server.New(cfg.Server, logger, handler)
	if err := srv.Listen(); err != nil {
		logger.Error("failed to listen", "error", err)
		os.Exit(1)
	}

	go func() {
		if err := srv.Start(); err != nil {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	logger.Info("calscan started", "addr", srv.Addr())

	waitForSignal(logger)

	logger.Info("shutting down")
	if watchlist != nil {
		watchlist.Stop()
	}
	cancel()

	if err := srv.Shutdown(context.Background()); err != nil {
		logger.Error("shutdown error", "error", err)
	}
	inferenceLogger.Wait()
	logger.Info("shutdown complete")
}

// openStores connects to PostgreSQL when configured and falls back to
// in-memory stores otherwise.
func openStores(logger *slog.Logger) (stores, error) {
	dbURL, err := cloudsql.BuildDatabaseURL()
	if errors.Is(err, cloudsql.ErrNotConfigured) {
		logger.Warn("no database configured, scan history is kept in memory")
		return stores{
			scans:         database.NewMemoryScanStore(),
			inferenceLogs: database.NewMemoryInferenceLogStore(),
			close:         func() {},
		}, nil
	}
	if err != nil {
		return stores{}, err
	}

	logger.Info("database configuration", "config", cloudsql.GetConnectionConfig())

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		return stores{}, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return stores{}, fmt.Errorf("ping database: %w", err)
	}
	logger.Info("database connected")

	// Non-fatal so the service can still serve scans with a stale schema.
	if err := database.RunMigrations(ctx, db, os.DirFS("./migrations"), logger); err != nil {
		logger.Warn("failed to run migrations, continuing anyway", "error", err)
	}

	return stores{
		scans:         database.NewPostgresScanRepository(db),
		inferenceLogs: database.NewInferenceLogRepository(db),
		close:         func() { db.Close() },
	}, nil
}

func waitForSignal(logger *slog.Logger) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	sig := <-c
	logger.Info("received signal", "signal", sig.String())
	signal.Stop(c)
}
