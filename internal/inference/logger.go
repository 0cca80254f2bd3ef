package inference

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/calscan/calscan/internal/models"
)

// Store persists inference logs.
type Store interface {
	Create(ctx context.Context, log models.InferenceLog) error
}

// Logger records LLM calls without blocking the caller.
type Logger struct {
	store  Store
	logger *slog.Logger
	wg     sync.WaitGroup
}

// NewLogger creates a new inference logger
func NewLogger(store Store, logger *slog.Logger) *Logger {
	return &Logger{
		store:  store,
		logger: logger,
	}
}

// Usage is the token accounting reported by a provider.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// Total is input plus output tokens.
func (u Usage) Total() int {
	return u.InputTokens + u.OutputTokens
}

// LogCallParams describes one inference call.
type LogCallParams struct {
	Provider     string
	Model        string
	Operation    string
	TokensUsed   int
	InputTokens  *int
	OutputTokens *int
	CostUSD      *float64
	LatencyMs    *int
	Status       string // "success" or "error"
	ErrorMessage *string
	Metadata     map[string]interface{}
}

// LogCall stores the call in the background.
func (l *Logger) LogCall(ctx context.Context, params LogCallParams) {
	var metadata json.RawMessage
	if params.Metadata != nil {
		if raw, err := json.Marshal(params.Metadata); err == nil {
			metadata = raw
		}
	}

	log := models.InferenceLog{
		Provider:     params.Provider,
		Model:        params.Model,
		Operation:    params.Operation,
		TokensUsed:   params.TokensUsed,
		InputTokens:  params.InputTokens,
		OutputTokens: params.OutputTokens,
		CostUSD:      params.CostUSD,
		LatencyMs:    params.LatencyMs,
		Status:       params.Status,
		ErrorMessage: params.ErrorMessage,
		Metadata:     metadata,
	}

	// The request context may already be cancelled by the time this runs.
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		bgCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := l.store.Create(bgCtx, log); err != nil {
			l.logger.Error("failed to log inference call", "error", err)
		}
	}()
}

// Wait blocks until pending log writes finish.
func (l *Logger) Wait() {
	l.wg.Wait()
}

// LogProviderCall builds and stores the log entry for a provider call.
func (l *Logger) LogProviderCall(ctx context.Context, provider, model, operation string, usage Usage, latency time.Duration, err error, metadata map[string]interface{}) {
	in, out := usage.InputTokens, usage.OutputTokens
	latencyMs := int(latency.Milliseconds())
	cost := EstimateCost(provider, model, in, out)

	params := LogCallParams{
		Provider:     provider,
		Model:        model,
		Operation:    operation,
		TokensUsed:   usage.Total(),
		InputTokens:  &in,
		OutputTokens: &out,
		CostUSD:      &cost,
		LatencyMs:    &latencyMs,
		Status:       "success",
		Metadata:     metadata,
	}
	if err != nil {
		params.Status = "error"
		errMsg := err.Error()
		params.ErrorMessage = &errMsg
	}

	l.LogCall(ctx, params)
}

// EstimateCost gives a rough USD cost from per-million-token list prices.
func EstimateCost(provider, model string, inputTokens, outputTokens int) float64 {
	var inputCostPer1M, outputCostPer1M float64

	switch provider {
	case "openai":
		switch model {
		case "gpt-4o":
			inputCostPer1M, outputCostPer1M = 2.50, 10.00
		case "gpt-4o-mini":
			inputCostPer1M, outputCostPer1M = 0.15, 0.60
		case "gpt-4.1":
			inputCostPer1M, outputCostPer1M = 2.00, 8.00
		case "gpt-4.1-mini":
			inputCostPer1M, outputCostPer1M = 0.40, 1.60
		default:
			inputCostPer1M, outputCostPer1M = 5.00, 15.00
		}
	case "anthropic":
		switch model {
		case "claude-haiku-4-5", "claude-3-5-haiku-latest":
			inputCostPer1M, outputCostPer1M = 1.00, 5.00
		case "claude-opus-4-1":
			inputCostPer1M, outputCostPer1M = 15.00, 75.00
		default:
			inputCostPer1M, outputCostPer1M = 3.00, 15.00
		}
	default:
		return 0
	}

	inputCost := (float64(inputTokens) / 1_000_000) * inputCostPer1M
	outputCost := (float64(outputTokens) / 1_000_000) * outputCostPer1M

	return inputCost + outputCost
}
