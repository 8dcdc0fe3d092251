package processor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/ds24m038/GenAI-Table-Processing/utils/config"
	"github.com/ds24m038/GenAI-Table-Processing/utils/models"
	"github.com/ds24m038/GenAI-Table-Processing/utils/table"
)

// fakeCall records one ProcessItem invocation.
type fakeCall struct {
	Model  string
	Prompt string
	Fields []string
}

// fakeProvider scripts model replies without any network access.
type fakeProvider struct {
	calls   []fakeCall
	respond func(call int) (*models.ProcessingResult, error)
}

func (f *fakeProvider) Name() string                  { return "fake" }
func (f *fakeProvider) SupportsModel(string) bool     { return true }
func (f *fakeProvider) Configure(apiKey string) error { return nil }
func (f *fakeProvider) SetVerbose(bool)               {}

func (f *fakeProvider) ProcessItem(_ context.Context, modelName, prompt string, outputFields []string) (*models.ProcessingResult, error) {
	f.calls = append(f.calls, fakeCall{Model: modelName, Prompt: prompt, Fields: outputFields})
	return f.respond(len(f.calls))
}

// resultWith builds a structured reply with fixed usage.
func resultWith(fields map[string]interface{}) *models.ProcessingResult {
	return &models.ProcessingResult{
		Response:         fields,
		PromptTokens:     100,
		CompletionTokens: 50,
		TotalTokens:      150,
		Model:            "gpt-4o-mini",
	}
}

func testEnvConfig() *config.EnvConfig {
	env := &config.EnvConfig{}
	env.SetProviderAPIKey("fake", "test-key")
	return env
}

func newTestProcessor(steps []Step, fake *fakeProvider) *Processor {
	p := NewProcessor(&StepsConfig{Steps: steps}, testEnvConfig(), false)
	p.SetDetectProvider(func(string) models.Provider { return fake })
	return p
}

func reviewTable(reviews ...string) *table.Table {
	tbl := table.New([]string{"CustomerReview"})
	for _, review := range reviews {
		tbl.Rows = append(tbl.Rows, table.Row{"CustomerReview": review})
	}
	return tbl
}

func TestRunEndToEndPreview(t *testing.T) {
	fake := &fakeProvider{respond: func(int) (*models.ProcessingResult, error) {
		return resultWith(map[string]interface{}{"sentiment": "positive"}), nil
	}}
	proc := newTestProcessor([]Step{
		{Prompt: "Analyze: {@CustomerReview}", OutputFields: "sentiment"},
	}, fake)

	tbl := reviewTable("Great product", "Terrible product")
	summary, err := proc.Run(context.Background(), tbl, true)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(fake.calls) != 1 {
		t.Fatalf("preview should touch exactly 1 row, made %d calls", len(fake.calls))
	}
	if got := fake.calls[0].Prompt; !strings.Contains(got, "Analyze: Great product") {
		t.Errorf("substituted prompt = %q", got)
	}
	if tbl.Rows[0]["AI_sentiment"] != "positive" {
		t.Errorf("row 0 AI_sentiment = %v", tbl.Rows[0]["AI_sentiment"])
	}
	if _, mutated := tbl.Rows[1]["AI_sentiment"]; mutated {
		t.Error("preview must not mutate subsequent rows")
	}
	if summary.RowsProcessed != 1 || summary.PromptTokens != 100 || summary.CompletionTokens != 50 {
		t.Errorf("summary = %+v", summary)
	}
	if summary.EstimatedCost <= 0 {
		t.Errorf("EstimatedCost = %v, want > 0 when tokens were reported", summary.EstimatedCost)
	}
	want := models.EstimateCost(100, 50, "gpt-4o-mini")
	if summary.EstimatedCost != want {
		t.Errorf("EstimatedCost = %v, want %v", summary.EstimatedCost, want)
	}
}

func TestRunProcessesAllRowsInOrder(t *testing.T) {
	fake := &fakeProvider{respond: func(int) (*models.ProcessingResult, error) {
		return resultWith(map[string]interface{}{"sentiment": "neutral"}), nil
	}}
	proc := newTestProcessor([]Step{
		{Prompt: "Review: {@CustomerReview}", OutputFields: "sentiment"},
	}, fake)

	var progress []int
	proc.SetProgress(func(done, total int) {
		if total != 3 {
			t.Errorf("progress total = %d, want 3", total)
		}
		progress = append(progress, done)
	})

	tbl := reviewTable("a", "b", "c")
	summary, err := proc.Run(context.Background(), tbl, false)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if summary.RowsProcessed != 3 {
		t.Errorf("RowsProcessed = %d", summary.RowsProcessed)
	}
	for i, want := range []string{"Review: a", "Review: b", "Review: c"} {
		if fake.calls[i].Prompt != want {
			t.Errorf("call %d prompt = %q, want %q", i, fake.calls[i].Prompt, want)
		}
	}
	if len(progress) != 3 || progress[0] != 1 || progress[2] != 3 {
		t.Errorf("progress notifications = %v", progress)
	}
	// Tokens accumulate across every row and step
	if summary.PromptTokens != 300 || summary.CompletionTokens != 150 {
		t.Errorf("token totals = %d/%d", summary.PromptTokens, summary.CompletionTokens)
	}
}

func TestRunEmptyTablePreview(t *testing.T) {
	fake := &fakeProvider{respond: func(int) (*models.ProcessingResult, error) {
		t.Fatal("no call expected for an empty table")
		return nil, nil
	}}
	proc := newTestProcessor([]Step{
		{Prompt: "Analyze: {@X}", OutputFields: "y"},
	}, fake)

	tbl := table.New([]string{"X"})
	summary, err := proc.Run(context.Background(), tbl, true)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if summary.RowsProcessed != 0 || summary.PromptTokens != 0 || summary.EstimatedCost != 0 {
		t.Errorf("empty table should yield a zero summary, got %+v", summary)
	}
}

func TestRunChainsStepOutputs(t *testing.T) {
	fake := &fakeProvider{respond: func(call int) (*models.ProcessingResult, error) {
		if call == 1 {
			return resultWith(map[string]interface{}{"sentiment": "positive"}), nil
		}
		return resultWith(map[string]interface{}{"reply": "thanks"}), nil
	}}
	proc := newTestProcessor([]Step{
		{Name: "classify", Prompt: "Classify: {@CustomerReview}", OutputFields: "sentiment"},
		{Name: "respond", Prompt: "Write a {@AI_sentiment} reply", OutputFields: "reply"},
	}, fake)

	tbl := reviewTable("Great product")
	if _, err := proc.Run(context.Background(), tbl, false); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(fake.calls) != 2 {
		t.Fatalf("expected 2 calls, got %d", len(fake.calls))
	}
	// Step 2's substitution sees the AI column produced by step 1
	if fake.calls[1].Prompt != "Write a positive reply" {
		t.Errorf("chained prompt = %q", fake.calls[1].Prompt)
	}
}

func TestRunSkipsMalformedSteps(t *testing.T) {
	fake := &fakeProvider{respond: func(int) (*models.ProcessingResult, error) {
		return resultWith(map[string]interface{}{"ok": "yes"}), nil
	}}
	proc := newTestProcessor([]Step{
		{Name: "no prompt", Prompt: "", OutputFields: "a"},
		{Name: "no fields", Prompt: "Analyze {@CustomerReview}", OutputFields: ""},
		{Name: "stray comma", Prompt: "Analyze {@CustomerReview}", OutputFields: "a, b,"},
		{Name: "valid", Prompt: "Check {@CustomerReview}", OutputFields: "ok"},
	}, fake)

	tbl := reviewTable("fine")
	summary, err := proc.Run(context.Background(), tbl, false)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(fake.calls) != 1 {
		t.Fatalf("only the valid step should run, made %d calls", len(fake.calls))
	}
	// Skipped steps contribute zero usage and no columns
	if summary.PromptTokens != 100 {
		t.Errorf("PromptTokens = %d, want 100 from the single valid step", summary.PromptTokens)
	}
	for _, col := range []string{"AI_a", "AI_b"} {
		if tbl.HasColumn(col) {
			t.Errorf("malformed step produced column %s", col)
		}
	}
	if tbl.Rows[0]["AI_ok"] != "yes" {
		t.Errorf("AI_ok = %v", tbl.Rows[0]["AI_ok"])
	}
}

func TestRunAbortsOnModelCallError(t *testing.T) {
	fake := &fakeProvider{respond: func(call int) (*models.ProcessingResult, error) {
		if call == 2 {
			return nil, &models.ModelCallError{Provider: "fake", Model: "gpt-4o-mini", Err: fmt.Errorf("connection refused")}
		}
		return resultWith(map[string]interface{}{"sentiment": "positive"}), nil
	}}
	proc := newTestProcessor([]Step{
		{Prompt: "Analyze: {@CustomerReview}", OutputFields: "sentiment"},
	}, fake)

	tbl := reviewTable("first", "second", "third")
	summary, err := proc.Run(context.Background(), tbl, false)
	if err == nil {
		t.Fatal("expected run to abort")
	}
	var callErr *models.ModelCallError
	if !errors.As(err, &callErr) {
		t.Fatalf("error = %v, want to wrap *ModelCallError", err)
	}

	// Partial progress is preserved: row 0 enriched, usage up to the failure
	if tbl.Rows[0]["AI_sentiment"] != "positive" {
		t.Errorf("row 0 should keep its enrichment, got %v", tbl.Rows[0]["AI_sentiment"])
	}
	if _, touched := tbl.Rows[2]["AI_sentiment"]; touched {
		t.Error("rows after the failure must stay untouched")
	}
	if summary.RowsProcessed != 1 || summary.PromptTokens != 100 {
		t.Errorf("partial summary = %+v", summary)
	}
	if summary.EstimatedCost != models.EstimateCost(100, 50, "gpt-4o-mini") {
		t.Errorf("partial cost = %v", summary.EstimatedCost)
	}
}

func TestRunMissingCredentialFailsBeforeAnyWork(t *testing.T) {
	fake := &fakeProvider{respond: func(int) (*models.ProcessingResult, error) {
		return resultWith(map[string]interface{}{"a": "b"}), nil
	}}
	proc := NewProcessor(&StepsConfig{Steps: []Step{
		{Prompt: "Analyze: {@CustomerReview}", OutputFields: "a"},
	}}, &config.EnvConfig{}, false)
	proc.SetDetectProvider(func(string) models.Provider { return fake })

	tbl := reviewTable("x")
	_, err := proc.Run(context.Background(), tbl, false)
	if !errors.Is(err, config.ErrMissingAPIKey) {
		t.Fatalf("error = %v, want ErrMissingAPIKey", err)
	}
	if len(fake.calls) != 0 {
		t.Errorf("no row work should happen before the credential check, made %d calls", len(fake.calls))
	}
}

func TestRunCancellationBetweenRows(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	fake := &fakeProvider{respond: func(call int) (*models.ProcessingResult, error) {
		if call == 1 {
			cancel()
		}
		return resultWith(map[string]interface{}{"sentiment": "ok"}), nil
	}}
	proc := newTestProcessor([]Step{
		{Prompt: "Analyze: {@CustomerReview}", OutputFields: "sentiment"},
	}, fake)

	tbl := reviewTable("a", "b", "c")
	summary, err := proc.Run(ctx, tbl, false)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
	// The row in flight completes; cancellation takes effect before the next
	if summary.RowsProcessed != 1 {
		t.Errorf("RowsProcessed = %d, want 1", summary.RowsProcessed)
	}
	if tbl.Rows[0]["AI_sentiment"] != "ok" {
		t.Error("completed row should keep its enrichment")
	}
}

func TestRunPricesAtFirstStepModel(t *testing.T) {
	fake := &fakeProvider{respond: func(int) (*models.ProcessingResult, error) {
		return resultWith(map[string]interface{}{"a": "1"}), nil
	}}
	proc := newTestProcessor([]Step{
		{Prompt: "One {@CustomerReview}", OutputFields: "a", Model: "gpt-4o"},
		{Prompt: "Two {@CustomerReview}", OutputFields: "a", Model: "gpt-4o-mini"},
	}, fake)

	tbl := reviewTable("x")
	summary, err := proc.Run(context.Background(), tbl, false)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	// Mixed-model runs are billed at the first step's rate
	want := models.EstimateCost(200, 100, "gpt-4o")
	if summary.EstimatedCost != want {
		t.Errorf("EstimatedCost = %v, want %v (gpt-4o rate)", summary.EstimatedCost, want)
	}
}

func TestRunStringifiesNonStringFields(t *testing.T) {
	fake := &fakeProvider{respond: func(int) (*models.ProcessingResult, error) {
		return resultWith(map[string]interface{}{"score": 4.5, "flag": true}), nil
	}}
	proc := newTestProcessor([]Step{
		{Prompt: "Rate {@CustomerReview}", OutputFields: "score, flag"},
	}, fake)

	tbl := reviewTable("x")
	if _, err := proc.Run(context.Background(), tbl, false); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if tbl.Rows[0]["AI_score"] != "4.5" {
		t.Errorf("AI_score = %v (%T), want \"4.5\"", tbl.Rows[0]["AI_score"], tbl.Rows[0]["AI_score"])
	}
	if tbl.Rows[0]["AI_flag"] != "true" {
		t.Errorf("AI_flag = %v, want \"true\"", tbl.Rows[0]["AI_flag"])
	}
}

func TestRunMergesRawResponseFallback(t *testing.T) {
	fake := &fakeProvider{respond: func(int) (*models.ProcessingResult, error) {
		return resultWith(map[string]interface{}{models.RawResponseKey: "not json"}), nil
	}}
	proc := newTestProcessor([]Step{
		{Prompt: "Analyze {@CustomerReview}", OutputFields: "sentiment"},
	}, fake)

	tbl := reviewTable("x")
	if _, err := proc.Run(context.Background(), tbl, false); err != nil {
		t.Fatalf("unparsable output is a degradation, not an error: %v", err)
	}
	if tbl.Rows[0]["AI_raw_response"] != "not json" {
		t.Errorf("AI_raw_response = %v", tbl.Rows[0]["AI_raw_response"])
	}
}

func TestRunGeneratedColumnOrder(t *testing.T) {
	fake := &fakeProvider{respond: func(int) (*models.ProcessingResult, error) {
		return resultWith(map[string]interface{}{"second": "2", "first": "1", "extra": "x"}), nil
	}}
	proc := newTestProcessor([]Step{
		{Prompt: "Go {@CustomerReview}", OutputFields: "first, second"},
	}, fake)

	tbl := reviewTable("x")
	if _, err := proc.Run(context.Background(), tbl, false); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	want := []string{"CustomerReview", "AI_first", "AI_second", "AI_extra"}
	for i, col := range want {
		if tbl.Columns[i] != col {
			t.Fatalf("Columns = %v, want %v", tbl.Columns, want)
		}
	}
}

func TestRunUsesConfiguredDefaultModel(t *testing.T) {
	fake := &fakeProvider{respond: func(int) (*models.ProcessingResult, error) {
		return resultWith(map[string]interface{}{"sentiment": "positive"}), nil
	}}
	env := testEnvConfig()
	env.DefaultModel = "deepseek-chat"
	proc := NewProcessor(&StepsConfig{Steps: []Step{
		{Prompt: "Analyze: {@CustomerReview}", OutputFields: "sentiment"},
	}}, env, false)
	proc.SetDetectProvider(func(string) models.Provider { return fake })

	summary, err := proc.Run(context.Background(), reviewTable("Great product"), false)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got := fake.calls[0].Model; got != "deepseek-chat" {
		t.Errorf("model = %q, want the configured default", got)
	}
	want := models.EstimateCost(100, 50, "deepseek-chat")
	if summary.EstimatedCost != want {
		t.Errorf("EstimatedCost = %v, want deepseek-chat rate %v", summary.EstimatedCost, want)
	}
}
