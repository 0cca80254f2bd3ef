package scanner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/calscan/calscan/internal/calendar"
	"github.com/calscan/calscan/internal/orats"
)

var (
	// ErrInvalidRequest is returned for a missing ticker or malformed expiry.
	ErrInvalidRequest = errors.New("invalid scan request")
	// ErrUnknownExpiry is returned when the front expiry is not listed.
	ErrUnknownExpiry = errors.New("front expiry not available for ticker")
	// ErrNoStrike is returned when the front expiry has no usable strike.
	ErrNoStrike = errors.New("strike not available on front expiry")
)

// Source provides the vendor data a scan needs.
type Source interface {
	Strikes(ctx context.Context, ticker string) ([]orats.StrikeRow, error)
	Cores(ctx context.Context, ticker string) (orats.Core, error)
	Summaries(ctx context.Context, ticker string) (orats.Summary, error)
}

// Observer is notified of every completed or failed scan.
type Observer interface {
	ObserveScan(outcome string, candidates int, duration time.Duration)
}

// Scanner runs calendar scans: it gathers the legs for a front expiry and
// each later expiry at the same strike, then scores and ranks the candidates.
type Scanner struct {
	source   Source
	scorer   *calendar.Scorer
	settings Settings
	observer Observer
	logger   *slog.Logger
}

// New creates a scanner. observer may be nil.
func New(source Source, scorer *calendar.Scorer, settings Settings, observer Observer, logger *slog.Logger) *Scanner {
	return &Scanner{
		source:   source,
		scorer:   scorer,
		settings: settings,
		observer: observer,
		logger:   logger,
	}
}

// Scorer returns the scorer used to rank candidates.
func (s *Scanner) Scorer() *calendar.Scorer {
	return s.scorer
}

// Expirations lists the ticker's expirations.
func (s *Scanner) Expirations(ctx context.Context, ticker string) ([]string, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		return nil, fmt.Errorf("%w: ticker is required", ErrInvalidRequest)
	}
	rows, err := s.source.Strikes(ctx, ticker)
	if err != nil {
		return nil, fmt.Errorf("fetch strikes: %w", err)
	}
	return orats.ExpirationsOf(rows), nil
}

// Scan fetches vendor data for the request and evaluates it. The captured
// input is returned alongside the result for persistence.
func (s *Scanner) Scan(ctx context.Context, req Request) (Result, Input, error) {
	start := time.Now()

	in, err := s.gather(ctx, req)
	if err != nil {
		s.observe("error", 0, start)
		return Result{}, Input{}, err
	}

	res, err := s.Evaluate(in)
	if err != nil {
		s.observe("error", 0, start)
		return Result{}, Input{}, err
	}

	s.observe("success", len(res.Rows), start)
	s.logger.Info("scan complete",
		"ticker", res.Ticker,
		"front_expiry", res.FrontExpiry,
		"strike", res.Strike,
		"candidates", len(res.Rows),
		"skipped", len(res.Skipped),
		"duration_ms", time.Since(start).Milliseconds())

	return res, in, nil
}

func (s *Scanner) observe(outcome string, candidates int, start time.Time) {
	if s.observer != nil {
		s.observer.ObserveScan(outcome, candidates, time.Since(start))
	}
}

type fetched struct {
	strikes []orats.StrikeRow
	core    orats.Core
	summary orats.Summary
}

func (s *Scanner) fetch(ctx context.Context, ticker string) (fetched, error) {
	var (
		out  fetched
		wg   sync.WaitGroup
		errs [3]error
	)

	wg.Add(3)
	go func() {
		defer wg.Done()
		out.strikes, errs[0] = s.source.Strikes(ctx, ticker)
	}()
	go func() {
		defer wg.Done()
		out.core, errs[1] = s.source.Cores(ctx, ticker)
	}()
	go func() {
		defer wg.Done()
		out.summary, errs[2] = s.source.Summaries(ctx, ticker)
	}()
	wg.Wait()

	if errs[0] != nil {
		return fetched{}, fmt.Errorf("fetch strikes: %w", errs[0])
	}
	if errs[1] != nil {
		return fetched{}, fmt.Errorf("fetch cores: %w", errs[1])
	}
	if errs[2] != nil {
		return fetched{}, fmt.Errorf("fetch summaries: %w", errs[2])
	}
	return out, nil
}

func (s *Scanner) gather(ctx context.Context, req Request) (Input, error) {
	ticker := strings.ToUpper(strings.TrimSpace(req.Ticker))
	if ticker == "" {
		return Input{}, fmt.Errorf("%w: ticker is required", ErrInvalidRequest)
	}
	if _, err := time.Parse(calendar.ExpiryLayout, req.FrontExpiry); err != nil {
		return Input{}, fmt.Errorf("%w: front_expiry must be YYYY-MM-DD", ErrInvalidRequest)
	}

	data, err := s.fetch(ctx, ticker)
	if err != nil {
		return Input{}, err
	}

	groups := byExpiry(data.strikes)
	frontRows, ok := groups[req.FrontExpiry]
	if !ok {
		return Input{}, fmt.Errorf("%w: %s %s", ErrUnknownExpiry, ticker, req.FrontExpiry)
	}

	strike := req.Strike
	if strike == 0 {
		strike, ok = atmStrike(frontRows, data.summary.StockPrice)
		if !ok {
			return Input{}, fmt.Errorf("%w: %s %s", ErrNoStrike, ticker, req.FrontExpiry)
		}
		s.logger.Debug("selected atm strike", "ticker", ticker, "front_expiry", req.FrontExpiry, "strike", strike)
	}

	frontRow, ok := findStrike(frontRows, strike)
	if !ok {
		return Input{}, fmt.Errorf("%w: %s %s strike %.2f", ErrNoStrike, ticker, req.FrontExpiry, strike)
	}

	in := Input{
		Ticker:        ticker,
		AsOf:          data.summary.TradeDate,
		Spot:          data.summary.StockPrice,
		ImpliedMove:   data.summary.ImpliedMove,
		Vol:           calendar.VolContext{IV20d: data.core.IV20d, HV20d: data.core.ClsHv20d},
		TermStructure: data.core.TermStructure(),
		Front:         frontRow.Leg(),
	}

	for _, exp := range orats.ExpirationsOf(data.strikes) {
		if exp <= req.FrontExpiry {
			continue
		}
		backRow, ok := findStrike(groups[exp], strike)
		if !ok {
			s.logger.Warn("back expiry missing strike", "ticker", ticker, "expiry", exp, "strike", strike)
			in.Skipped = append(in.Skipped, Skip{Expiry: exp, Reason: fmt.Sprintf("strike %.2f not listed", strike)})
			continue
		}
		in.Backs = append(in.Backs, backRow.Leg())
	}

	return in, nil
}

// Evaluate computes metrics, breakevens and scores for a captured input.
// It performs no I/O.
func (s *Scanner) Evaluate(in Input) (Result, error) {
	spot := in.Spot
	if spot <= 0 {
		spot = in.Front.Strike
	}
	grid := calendar.LinearGrid(spot, s.settings.GridLow, s.settings.GridHigh, s.settings.GridPoints)
	moveAbs := calendar.Unavailable()
	if in.Spot > 0 && in.ImpliedMove > 0 {
		moveAbs = calendar.ValueOf(in.Spot * in.ImpliedMove)
	}
	hover := calendar.ValueOf(calendar.HoverMetric(in.Vol.IV20d, in.Vol.HV20d))

	res := Result{
		Ticker:         in.Ticker,
		AsOf:           in.AsOf,
		FrontExpiry:    in.Front.Expiration,
		Strike:         in.Front.Strike,
		Spot:           in.Spot,
		ImpliedMoveAbs: moveAbs,
		Hover:          hover,
		MaxScore:       s.scorer.Config().MaxScore(),
		Skipped:        append([]Skip(nil), in.Skipped...),
	}
	for i, iv := range in.TermStructure {
		res.TermStructure = append(res.TermStructure, TermPoint{Month: i + 1, ATMIV: iv})
	}

	rows := make([]calendar.ScoredResult, 0, len(in.Backs))
	for _, back := range in.Backs {
		row, err := s.evaluateCandidate(in.Front, back, in.Vol, grid, moveAbs)
		if err != nil {
			s.logger.Warn("skipping candidate", "ticker", in.Ticker, "expiry", back.Expiration, "error", err)
			res.Skipped = append(res.Skipped, Skip{Expiry: back.Expiration, Reason: err.Error()})
			continue
		}
		rows = append(rows, row)
	}

	res.Rows = s.scorer.ScoreAll(rows, hover)
	return res, nil
}

func (s *Scanner) evaluateCandidate(front, back calendar.OptionLeg, vol calendar.VolContext, grid []float64, moveAbs calendar.Value) (calendar.ScoredResult, error) {
	c, err := calendar.NewCandidate(front, back)
	if err != nil {
		return calendar.ScoredResult{}, err
	}

	remaining, err := yearsBetween(front.Expiration, back.Expiration)
	if err != nil {
		return calendar.ScoredResult{}, err
	}

	row := calendar.ScoredResult{
		BackExpiry:  back.Expiration,
		Strike:      back.Strike,
		Debit:       debit(c),
		MetricSet:   calendar.ComputeMetrics(c, vol),
		PayoffRatio: calendar.Unavailable(),
		BEMove:      calendar.Unavailable(),
	}

	d, ok := row.Debit.Get()
	if !ok {
		return row, nil
	}

	model := calendar.PayoffModel{RiskFreeRate: s.settings.RiskFreeRate, Remaining: remaining}
	long, short := model.Curves(grid, c)
	pair, err := calendar.ScanBreakevens(grid, long, short, d, calendar.ScanOptions{Interpolate: s.settings.Interpolate})
	if err != nil {
		return calendar.ScoredResult{}, fmt.Errorf("breakeven scan: %w", err)
	}
	row.Breakeven = pair

	if width, ok := pair.Width().Get(); ok {
		row.PayoffRatio = calendar.ValueOf(calendar.PayoffRatio(width, d))
		if move, ok := moveAbs.Get(); ok {
			row.BEMove = calendar.ValueOf(width / move)
		}
	}

	return row, nil
}

// Rescore evaluates a stored input against the current scoring configuration.
func (s *Scanner) Rescore(in Input) (Result, error) {
	start := time.Now()
	res, err := s.Evaluate(in)
	if err != nil {
		s.observe("error", 0, start)
		return Result{}, err
	}
	s.observe("rescore", len(res.Rows), start)
	return res, nil
}
