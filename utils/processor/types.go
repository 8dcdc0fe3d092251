package processor

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// AIColumnPrefix is prepended to every model-produced field name when it is
// merged into the table. It is also how later steps reference earlier steps'
// output ({@AI_sentiment}).
const AIColumnPrefix = "AI_"

// DefaultModel is used when a step does not name a model.
const DefaultModel = "gpt-4o-mini"

// Step is one configured processing unit applied to every selected row.
// output_fields is a comma-separated list of field names the model reply must
// contain. Steps are immutable during a run.
type Step struct {
	Name         string `yaml:"name,omitempty" json:"name,omitempty"`
	Prompt       string `yaml:"prompt" json:"prompt"`
	OutputFields string `yaml:"output_fields" json:"output_fields"`
	Model        string `yaml:"model,omitempty" json:"model,omitempty"`
}

// EffectiveModel returns the step's model. An unset model resolves to the
// configured default, then to the package default.
func (s Step) EffectiveModel(configuredDefault string) string {
	if s.Model != "" {
		return s.Model
	}
	if configuredDefault != "" {
		return configuredDefault
	}
	return DefaultModel
}

// Label returns a display name for logs.
func (s Step) Label(index int) string {
	if s.Name != "" {
		return s.Name
	}
	return fmt.Sprintf("step %d", index+1)
}

// StepsConfig is the YAML steps file structure.
type StepsConfig struct {
	Steps []Step `yaml:"steps" json:"steps"`
}

// LoadStepsFile reads and parses a YAML steps file.
func LoadStepsFile(path string) (*StepsConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading steps file %s: %w", path, err)
	}
	var cfg StepsConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("error parsing steps file %s: %w", path, err)
	}
	return &cfg, nil
}

// ParseOutputFields splits a comma-separated field spec, trimming whitespace
// around each name. A spec that yields any blank entry (stray comma, empty
// segment) makes the whole step malformed: blank entries are rejected rather
// than silently dropped, since they usually indicate a typo that also mangled
// a real field name.
func ParseOutputFields(spec string) ([]string, error) {
	if strings.TrimSpace(spec) == "" {
		return nil, nil
	}
	parts := strings.Split(spec, ",")
	fields := make([]string, 0, len(parts))
	for _, part := range parts {
		field := strings.TrimSpace(part)
		if field == "" {
			return nil, fmt.Errorf("output_fields %q contains a blank entry", spec)
		}
		fields = append(fields, field)
	}
	return fields, nil
}

// RunSummary aggregates one pipeline invocation. EstimatedCost is priced at
// the first configured step's model rate even when steps mix models; this
// under- or over-estimates mixed runs and is a documented limitation.
type RunSummary struct {
	RowsProcessed    int     `json:"rows_processed"`
	PromptTokens     int     `json:"prompt_tokens"`
	CompletionTokens int     `json:"completion_tokens"`
	EstimatedCost    float64 `json:"estimated_cost"`
}

// ProgressFunc receives incremental progress after each processed row. It is
// a side channel for the UI layer, not part of the run result.
type ProgressFunc func(rowsDone, totalRows int)
