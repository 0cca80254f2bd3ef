package models

import (
	"encoding/json"
	"time"
)

// InferenceLog is one recorded LLM call.
type InferenceLog struct {
	ID           int             `json:"id"`
	Provider     string          `json:"provider"`  // openai, anthropic
	Model        string          `json:"model"`
	Operation    string          `json:"operation"` // scan_narrative
	TokensUsed   int             `json:"tokens_used"`
	InputTokens  *int            `json:"input_tokens"`
	OutputTokens *int            `json:"output_tokens"`
	CostUSD      *float64        `json:"cost_usd"`
	LatencyMs    *int            `json:"latency_ms"`
	Status       string          `json:"status"` // success, error
	ErrorMessage *string         `json:"error_message"`
	Metadata     json.RawMessage `json:"metadata,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

// InferenceLogStats aggregates inference logs.
type InferenceLogStats struct {
	TotalCalls      int     `json:"total_calls"`
	TotalTokens     int64   `json:"total_tokens"`
	TotalCostUSD    float64 `json:"total_cost_usd"`
	SuccessfulCalls int     `json:"successful_calls"`
	FailedCalls     int     `json:"failed_calls"`
	AvgLatencyMs    float64 `json:"avg_latency_ms"`
}

// InferenceLogQuery filters inference logs.
type InferenceLogQuery struct {
	Provider  string
	Model     string
	Operation string
	Status    string
	StartDate *time.Time
	EndDate   *time.Time
	Limit     int
	Offset    int
}
