package processor

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestParseOutputFields(t *testing.T) {
	tests := []struct {
		name     string
		spec     string
		expected []string
		wantErr  bool
	}{
		{
			name:     "single field",
			spec:     "sentiment",
			expected: []string{"sentiment"},
		},
		{
			name:     "multiple fields trimmed",
			spec:     "sentiment, keyPoints ,score",
			expected: []string{"sentiment", "keyPoints", "score"},
		},
		{
			name:     "empty spec yields no fields",
			spec:     "",
			expected: nil,
		},
		{
			name:     "whitespace-only spec yields no fields",
			spec:     "   ",
			expected: nil,
		},
		{
			name:    "trailing comma is rejected",
			spec:    "sentiment,",
			wantErr: true,
		},
		{
			name:    "blank middle entry is rejected",
			spec:    "a, ,b",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseOutputFields(tt.spec)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseOutputFields(%q) error = %v, wantErr %v", tt.spec, err, tt.wantErr)
			}
			if !tt.wantErr && !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("ParseOutputFields(%q) = %v, want %v", tt.spec, got, tt.expected)
			}
		})
	}
}

func TestEffectiveModel(t *testing.T) {
	if got := (Step{}).EffectiveModel(""); got != DefaultModel {
		t.Errorf("EffectiveModel() = %q, want default", got)
	}
	if got := (Step{}).EffectiveModel("deepseek-chat"); got != "deepseek-chat" {
		t.Errorf("EffectiveModel() = %q, want configured default", got)
	}
	if got := (Step{Model: "gpt-4o"}).EffectiveModel("deepseek-chat"); got != "gpt-4o" {
		t.Errorf("EffectiveModel() = %q, step model must win", got)
	}
}

func TestLoadStepsFile(t *testing.T) {
	content := `steps:
  - name: classify
    prompt: "Analyze: {@CustomerReview}"
    output_fields: "sentiment, keyPoints"
    model: gpt-4o-mini
  - prompt: "Summarize: {@CustomerReview}"
    output_fields: summary
`
	path := filepath.Join(t.TempDir(), "steps.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadStepsFile(path)
	if err != nil {
		t.Fatalf("LoadStepsFile() error = %v", err)
	}
	if len(cfg.Steps) != 2 {
		t.Fatalf("expected 2 steps, got %d", len(cfg.Steps))
	}
	if cfg.Steps[0].Name != "classify" || cfg.Steps[0].Model != "gpt-4o-mini" {
		t.Errorf("step 0 = %+v", cfg.Steps[0])
	}
	if cfg.Steps[1].EffectiveModel("") != DefaultModel {
		t.Errorf("step 1 should default its model")
	}
	if cfg.Steps[1].Label(1) != "step 2" {
		t.Errorf("Label() = %q", cfg.Steps[1].Label(1))
	}
}

func TestLoadStepsFileMissing(t *testing.T) {
	if _, err := LoadStepsFile(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
