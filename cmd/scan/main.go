// Command scan runs one calendar-spread scan and prints the ranked table.
//
//	scan -ticker SLV -front 2026-11-20 [-strike 30] [-json] [-save]
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"github.com/calscan/calscan/internal/calendar"
	"github.com/calscan/calscan/internal/cloudsql"
	"github.com/calscan/calscan/internal/config"
	"github.com/calscan/calscan/internal/database"
	"github.com/calscan/calscan/internal/logging"
	"github.com/calscan/calscan/internal/models"
	"github.com/calscan/calscan/internal/orats"
	"github.com/calscan/calscan/internal/scanner"
)

func main() {
	_ = godotenv.Load()

	var (
		ticker  = flag.String("ticker", "", "underlying symbol, e.g. SLV")
		front   = flag.String("front", "", "front expiration (YYYY-MM-DD); omit to list expirations")
		strike  = flag.Float64("strike", 0, "strike to pair; 0 selects the ATM strike")
		asJSON  = flag.Bool("json", false, "print the result as JSON")
		save    = flag.Bool("save", false, "store the scan in the configured database")
		verbose = flag.Bool("v", false, "log at debug level")
	)
	flag.Parse()

	if *ticker == "" {
		fmt.Fprintln(os.Stderr, "scan: -ticker is required")
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "scan: load config: %v\n", err)
		os.Exit(1)
	}
	if *verbose {
		cfg.Logging.Level = slog.LevelDebug
	}

	logger, err := logging.NewWithWriter(cfg.Logging, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "scan: init logger: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger, scanner.Request{Ticker: *ticker, FrontExpiry: *front, Strike: *strike}, *asJSON, *save, os.Stdout); err != nil {
		logger.Error("scan failed", "ticker", *ticker, "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger, req scanner.Request, asJSON, save bool, out io.Writer) error {
	client, err := orats.NewClient(cfg.Vendor, logger, nil)
	if err != nil {
		return err
	}

	scoring, err := config.LoadScoring(cfg.Scan.ScoringConfigPath)
	if err != nil {
		return err
	}
	s := scanner.New(client, calendar.NewScorer(scoring), scanner.SettingsFromConfig(cfg.Scan), nil, logger)

	if req.FrontExpiry == "" {
		expirations, err := s.Expirations(ctx, req.Ticker)
		if err != nil {
			return err
		}
		for _, e := range expirations {
			fmt.Fprintln(out, e)
		}
		return nil
	}

	res, in, err := s.Scan(ctx, req)
	if err != nil {
		return err
	}

	if save {
		id, err := store(ctx, res, in, logger)
		if err != nil {
			return fmt.Errorf("store scan: %w", err)
		}
		logger.Info("scan stored", "scan_id", id)
	}

	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]interface{}{
			"result": res,
			"table":  res.Table(),
		})
	}
	return writeTable(out, res)
}

func store(ctx context.Context, res scanner.Result, in scanner.Input, logger *slog.Logger) (string, error) {
	dbURL, err := cloudsql.BuildDatabaseURL()
	if errors.Is(err, cloudsql.ErrNotConfigured) {
		return "", errors.New("-save needs DATABASE_URL or INSTANCE_CONNECTION_NAME")
	}
	if err != nil {
		return "", err
	}

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		return "", err
	}
	defer db.Close()

	if err := database.RunMigrations(ctx, db, os.DirFS("./migrations"), logger); err != nil {
		return "", err
	}

	rec := models.NewScanRecord(res, in, "cli")
	if err := database.NewPostgresScanRepository(db).Create(ctx, rec); err != nil {
		return "", err
	}
	return rec.ID.String(), nil
}
