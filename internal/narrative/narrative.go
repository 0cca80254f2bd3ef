// Package narrative asks an LLM to interpret a ranked calendar scan.
package narrative

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/calscan/calscan/internal/config"
	"github.com/calscan/calscan/internal/inference"
	"github.com/calscan/calscan/internal/scanner"
)

const operation = "scan_narrative"

var (
	// ErrDisabled is returned when no narrative provider is configured.
	ErrDisabled = errors.New("narrative generation is disabled")
	// ErrNoCandidates is returned for a scan with no ranked rows.
	ErrNoCandidates = errors.New("scan has no candidates to interpret")
)

// Request is the scan to interpret.
type Request struct {
	Ticker      string
	FrontExpiry string
	Strike      float64
	Result      scanner.Result
}

// RequestFor builds a narrative request from a scan result.
func RequestFor(res scanner.Result) Request {
	return Request{
		Ticker:      res.Ticker,
		FrontExpiry: res.FrontExpiry,
		Strike:      res.Strike,
		Result:      res,
	}
}

// Narrative is the generated interpretation.
type Narrative struct {
	Text     string        `json:"text"`
	Provider string        `json:"provider"`
	Model    string        `json:"model"`
	Tokens   int           `json:"tokens"`
	Latency  time.Duration `json:"latency_ns"`
}

// Narrator generates narratives.
type Narrator interface {
	Narrate(ctx context.Context, req Request) (Narrative, error)
	Provider() string
}

// Observer counts narrative calls by provider and status.
type Observer interface {
	ObserveNarrative(provider, status string)
}

// completer is the provider-specific part of a narrator.
type completer interface {
	complete(ctx context.Context, systemPrompt, userPrompt string) (string, inference.Usage, error)
	provider() string
	model() string
}

// llmNarrator wraps a completer with prompting, timeouts, logging and metrics.
type llmNarrator struct {
	completer completer
	timeout   time.Duration
	inference *inference.Logger
	observer  Observer
	logger    *slog.Logger
}

// New returns the narrator selected by cfg.Provider. inferenceLogger and
// observer may be nil.
func New(cfg config.NarrativeConfig, inferenceLogger *inference.Logger, observer Observer, logger *slog.Logger) (Narrator, error) {
	var c completer
	switch strings.ToLower(cfg.Provider) {
	case "", "none":
		return Disabled{}, nil
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required for the openai narrative provider")
		}
		c = newOpenAI(cfg.OpenAIAPIKey, "", cfg.OpenAIModel, cfg.Temperature)
	case "anthropic":
		if cfg.AnthropicAPIKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY is required for the anthropic narrative provider")
		}
		c = newAnthropic(cfg.AnthropicAPIKey, "", cfg.AnthropicModel, cfg.Temperature)
	default:
		return nil, fmt.Errorf("unsupported narrative provider: %s", cfg.Provider)
	}

	return &llmNarrator{
		completer: c,
		timeout:   cfg.Timeout,
		inference: inferenceLogger,
		observer:  observer,
		logger:    logger,
	}, nil
}

func (n *llmNarrator) Provider() string {
	return n.completer.provider()
}

// Narrate renders the prompt, calls the provider and records the call.
func (n *llmNarrator) Narrate(ctx context.Context, req Request) (Narrative, error) {
	if len(req.Result.Rows) == 0 {
		return Narrative{}, fmt.Errorf("%w: %s %s", ErrNoCandidates, req.Ticker, req.FrontExpiry)
	}

	if n.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.timeout)
		defer cancel()
	}

	prompt := BuildPrompt(req)
	provider, model := n.completer.provider(), n.completer.model()

	start := time.Now()
	text, usage, err := n.completer.complete(ctx, systemPrompt, prompt)
	latency := time.Since(start)

	if n.inference != nil {
		n.inference.LogProviderCall(ctx, provider, model, operation, usage, latency, err, map[string]interface{}{
			"ticker":       req.Ticker,
			"front_expiry": req.FrontExpiry,
			"candidates":   len(req.Result.Rows),
		})
	}

	status := "success"
	if err != nil {
		status = "error"
	}
	if n.observer != nil {
		n.observer.ObserveNarrative(provider, status)
	}

	if err != nil {
		n.logger.Error("narrative generation failed", "provider", provider, "model", model, "ticker", req.Ticker, "error", err)
		return Narrative{}, err
	}

	n.logger.Info("narrative generated",
		"provider", provider,
		"model", model,
		"ticker", req.Ticker,
		"tokens", usage.Total(),
		"latency_ms", latency.Milliseconds())

	return Narrative{
		Text:     strings.TrimSpace(text),
		Provider: provider,
		Model:    model,
		Tokens:   usage.Total(),
		Latency:  latency,
	}, nil
}

// Disabled is the narrator used when no provider is configured.
type Disabled struct{}

func (Disabled) Narrate(context.Context, Request) (Narrative, error) {
	return Narrative{}, ErrDisabled
}

func (Disabled) Provider() string {
	return "none"
}
