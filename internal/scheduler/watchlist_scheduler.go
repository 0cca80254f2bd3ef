package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/calscan/calscan/internal/calendar"
	"github.com/calscan/calscan/internal/config"
	"github.com/calscan/calscan/internal/database"
	"github.com/calscan/calscan/internal/models"
	"github.com/calscan/calscan/internal/scanner"
)

// Scanner is the scan surface the scheduler drives.
type Scanner interface {
	Expirations(ctx context.Context, ticker string) ([]string, error)
	Scan(ctx context.Context, req scanner.Request) (scanner.Result, scanner.Input, error)
}

// Poster publishes completed scans.
type Poster interface {
	PostScan(ctx context.Context, scanID string, res scanner.Result) error
}

// WatchlistScheduler periodically scans a fixed list of tickers at their
// nearest eligible front expiry.
type WatchlistScheduler struct {
	scanner  Scanner
	store    database.ScanStore
	poster   Poster
	logger   *slog.Logger
	tickers  []string
	interval time.Duration
	minDTE   int
	now      func() time.Time
	stopChan chan struct{}
	stopOnce sync.Once
}

// NewWatchlistScheduler creates a scheduler. poster may be nil.
func NewWatchlistScheduler(
	s Scanner,
	store database.ScanStore,
	poster Poster,
	cfg config.WatchlistConfig,
	logger *slog.Logger,
) *WatchlistScheduler {
	return &WatchlistScheduler{
		scanner:  s,
		store:    store,
		poster:   poster,
		logger:   logger,
		tickers:  cfg.Tickers,
		interval: cfg.Interval,
		minDTE:   cfg.MinDTE,
		now:      time.Now,
		stopChan: make(chan struct{}),
	}
}

// Start begins the scheduler loop
func (s *WatchlistScheduler) Start(ctx context.Context) {
	s.logger.Info("Starting watchlist scheduler", "tickers", s.tickers, "interval", s.interval, "min_dte", s.minDTE)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// Run once immediately on start
	s.RunOnce(ctx)

	for {
		select {
		case <-ticker.C:
			s.RunOnce(ctx)
		case <-s.stopChan:
			s.logger.Info("Watchlist scheduler stopped")
			return
		case <-ctx.Done():
			s.logger.Info("Watchlist scheduler stopping due to context cancellation")
			return
		}
	}
}

// Stop stops the scheduler
func (s *WatchlistScheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stopChan) })
}

// RunOnce scans every watchlist ticker and returns how many succeeded.
func (s *WatchlistScheduler) RunOnce(ctx context.Context) int {
	succeeded := 0
	for _, t := range s.tickers {
		if ctx.Err() != nil {
			break
		}
		if err := s.scanTicker(ctx, t); err != nil {
			s.logger.Error("Watchlist scan failed", "ticker", t, "error", err)
			continue
		}
		succeeded++
	}
	s.logger.Info("Watchlist pass complete", "tickers", len(s.tickers), "succeeded", succeeded)
	return succeeded
}

func (s *WatchlistScheduler) scanTicker(ctx context.Context, ticker string) error {
	expirations, err := s.scanner.Expirations(ctx, ticker)
	if err != nil {
		return fmt.Errorf("list expirations: %w", err)
	}

	front, ok := pickFront(expirations, s.now(), s.minDTE)
	if !ok {
		return fmt.Errorf("no expiry at least %d days out", s.minDTE)
	}

	res, in, err := s.scanner.Scan(ctx, scanner.Request{Ticker: ticker, FrontExpiry: front})
	if err != nil {
		return fmt.Errorf("scan %s: %w", front, err)
	}

	rec := models.NewScanRecord(res, in, "watchlist")
	if err := s.store.Create(ctx, rec); err != nil {
		return fmt.Errorf("store scan: %w", err)
	}

	s.logger.Info("Watchlist scan stored",
		"ticker", res.Ticker,
		"front_expiry", front,
		"scan_id", rec.ID,
		"candidates", len(res.Rows),
	)

	if s.poster != nil {
		// A failed post does not fail the scan; it is already stored.
		if err := s.poster.PostScan(ctx, rec.ID.String(), res); err != nil {
			s.logger.Warn("Failed to post watchlist scan", "ticker", res.Ticker, "error", err)
		}
	}
	return nil
}

// pickFront returns the first expiry at least minDTE calendar days after now.
// expirations must be sorted ascending.
func pickFront(expirations []string, now time.Time, minDTE int) (string, bool) {
	cutoff := now.AddDate(0, 0, minDTE).Format(calendar.ExpiryLayout)
	for _, exp := range expirations {
		if exp >= cutoff {
			return exp, true
		}
	}
	return "", false
}
