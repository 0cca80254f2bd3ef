package narrative

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/calscan/calscan/internal/calendar"
	"github.com/calscan/calscan/internal/config"
	"github.com/calscan/calscan/internal/inference"
	"github.com/calscan/calscan/internal/models"
	"github.com/calscan/calscan/internal/scanner"
)

func sampleResult() scanner.Result {
	return scanner.Result{
		Ticker:         "SLV",
		FrontExpiry:    "2026-11-20",
		Strike:         30,
		Spot:           30.12,
		ImpliedMoveAbs: calendar.ValueOf(1.5),
		Hover:          calendar.ValueOf(0.04),
		MaxScore:       110,
		TermStructure:  []scanner.TermPoint{{Month: 1, ATMIV: 0.32}, {Month: 2, ATMIV: 0.30}},
		Rows: []calendar.ScoredResult{
			{
				BackExpiry: "2026-12-18",
				Strike:     30,
				Debit:      calendar.ValueOf(0.6),
				MetricSet: calendar.MetricSet{
					IVSlope:        calendar.ValueOf(0.02),
					IVRatio:        calendar.ValueOf(1.067),
					ThetaAdvantage: calendar.ValueOf(0.009),
					VegaTheta:      calendar.Unavailable(),
				},
				Breakeven:   calendar.BreakevenPair{Lower: calendar.ValueOf(28.9), Upper: calendar.ValueOf(31.2)},
				PayoffRatio: calendar.ValueOf(3.83),
				BEMove:      calendar.ValueOf(1.53),
				Score:       99,
			},
		},
		Skipped: []scanner.Skip{{Expiry: "2027-02-19", Reason: "strike 30.00 not listed"}},
	}
}

type countingObserver struct {
	mu    sync.Mutex
	calls []string
}

func (c *countingObserver) ObserveNarrative(provider, status string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, provider+":"+status)
}

type captureStore struct {
	mu   sync.Mutex
	logs []models.InferenceLog
}

func (c *captureStore) Create(ctx context.Context, log models.InferenceLog) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.logs = append(c.logs, log)
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestBuildPrompt(t *testing.T) {
	prompt := BuildPrompt(RequestFor(sampleResult()))

	for _, want := range []string{
		"Ticker: SLV",
		"Front expiry: 2026-11-20",
		"Strike: 30.00",
		"M1: 0.3200",
		"max score 110",
		"1 | 2026-12-18 | 0.600 | 0.0200 | 1.067 | 0.0090 | n/a | 28.90-31.20 | 3.83 | 1.53 | 99",
		"- 2027-02-19: strike 30.00 not listed",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}
}

func TestBuildPromptTruncatesRows(t *testing.T) {
	res := sampleResult()
	row := res.Rows[0]
	res.Rows = nil
	for i := 0; i < maxPromptRows+3; i++ {
		res.Rows = append(res.Rows, row)
	}

	prompt := BuildPrompt(RequestFor(res))
	if !strings.Contains(prompt, "[3 more candidates]") {
		t.Errorf("expected truncation marker, got:\n%s", prompt)
	}
}

func TestNewSelectsProvider(t *testing.T) {
	tests := []struct {
		name     string
		cfg      config.NarrativeConfig
		provider string
		wantErr  bool
	}{
		{"none", config.NarrativeConfig{Provider: "none"}, "none", false},
		{"empty", config.NarrativeConfig{}, "none", false},
		{"openai", config.NarrativeConfig{Provider: "openai", OpenAIAPIKey: "sk-test", OpenAIModel: "gpt-4o-mini"}, "openai", false},
		{"anthropic", config.NarrativeConfig{Provider: "Anthropic", AnthropicAPIKey: "key", AnthropicModel: "claude-sonnet-4-5"}, "anthropic", false},
		{"openai without key", config.NarrativeConfig{Provider: "openai"}, "", true},
		{"anthropic without key", config.NarrativeConfig{Provider: "anthropic"}, "", true},
		{"unknown", config.NarrativeConfig{Provider: "gemini"}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := New(tt.cfg, nil, nil, testLogger())
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("New failed: %v", err)
			}
			if n.Provider() != tt.provider {
				t.Errorf("expected provider %s, got %s", tt.provider, n.Provider())
			}
		})
	}
}

func TestDisabled(t *testing.T) {
	_, err := Disabled{}.Narrate(context.Background(), RequestFor(sampleResult()))
	if !errors.Is(err, ErrDisabled) {
		t.Fatalf("expected ErrDisabled, got %v", err)
	}
}

func TestOpenAINarrate(t *testing.T) {
	var gotModel, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			http.NotFound(w, r)
			return
		}
		gotAuth = r.Header.Get("Authorization")
		var body struct {
			Model string `json:"model"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		gotModel = body.Model

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1760000000,
			"model": "gpt-4o-mini",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "  The December calendar leads.  "}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 120, "completion_tokens": 30, "total_tokens": 150}
		}`))
	}))
	defer srv.Close()

	store := &captureStore{}
	infLogger := inference.NewLogger(store, testLogger())
	obs := &countingObserver{}
	n := &llmNarrator{
		completer: newOpenAI("sk-test", srv.URL+"/v1", "gpt-4o-mini", 0.3),
		timeout:   5 * time.Second,
		inference: infLogger,
		observer:  obs,
		logger:    testLogger(),
	}

	got, err := n.Narrate(context.Background(), RequestFor(sampleResult()))
	if err != nil {
		t.Fatalf("Narrate failed: %v", err)
	}
	infLogger.Wait()

	if got.Text != "The December calendar leads." {
		t.Errorf("unexpected text %q", got.Text)
	}
	if got.Provider != "openai" || got.Model != "gpt-4o-mini" || got.Tokens != 150 {
		t.Errorf("unexpected narrative metadata: %+v", got)
	}
	if gotModel != "gpt-4o-mini" || gotAuth != "Bearer sk-test" {
		t.Errorf("unexpected request: model=%q auth=%q", gotModel, gotAuth)
	}
	if len(store.logs) != 1 || store.logs[0].Operation != "scan_narrative" || store.logs[0].Status != "success" {
		t.Errorf("expected one successful inference log, got %+v", store.logs)
	}
	if len(obs.calls) != 1 || obs.calls[0] != "openai:success" {
		t.Errorf("unexpected observations: %v", obs.calls)
	}
}

func TestOpenAINarrateError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error": {"message": "bad key", "type": "invalid_request_error"}}`))
	}))
	defer srv.Close()

	store := &captureStore{}
	infLogger := inference.NewLogger(store, testLogger())
	obs := &countingObserver{}
	n := &llmNarrator{
		completer: newOpenAI("sk-bad", srv.URL+"/v1", "gpt-4o-mini", 0.3),
		inference: infLogger,
		observer:  obs,
		logger:    testLogger(),
	}

	if _, err := n.Narrate(context.Background(), RequestFor(sampleResult())); err == nil {
		t.Fatal("expected error")
	}
	infLogger.Wait()

	if len(store.logs) != 1 || store.logs[0].Status != "error" {
		t.Errorf("expected one error inference log, got %+v", store.logs)
	}
	if len(obs.calls) != 1 || obs.calls[0] != "openai:error" {
		t.Errorf("unexpected observations: %v", obs.calls)
	}
}

func TestAnthropicNarrate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/v1/messages") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "msg_1",
			"type": "message",
			"role": "assistant",
			"model": "claude-sonnet-4-5",
			"content": [{"type": "text", "text": "Front IV is rich."}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 200, "output_tokens": 40}
		}`))
	}))
	defer srv.Close()

	n := &llmNarrator{
		completer: newAnthropic("key", srv.URL, "claude-sonnet-4-5", 0.3),
		logger:    testLogger(),
	}

	got, err := n.Narrate(context.Background(), RequestFor(sampleResult()))
	if err != nil {
		t.Fatalf("Narrate failed: %v", err)
	}
	if got.Text != "Front IV is rich." || got.Tokens != 240 || got.Provider != "anthropic" {
		t.Errorf("unexpected narrative: %+v", got)
	}
}

func TestNarrateRejectsEmptyScan(t *testing.T) {
	n := &llmNarrator{
		completer: newOpenAI("sk-test", "http://127.0.0.1:0/v1", "gpt-4o-mini", 0.3),
		logger:    testLogger(),
	}
	res := sampleResult()
	res.Rows = nil
	if _, err := n.Narrate(context.Background(), RequestFor(res)); !errors.Is(err, ErrNoCandidates) {
		t.Fatalf("expected ErrNoCandidates, got %v", err)
	}
}
