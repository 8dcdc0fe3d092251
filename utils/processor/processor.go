// Package processor drives the row/step pipeline: placeholder substitution,
// per-item model invocation with structured-output parsing, merge of parsed
// fields into AI_ columns, and token/cost accounting.
package processor

import (
	"context"
	"fmt"
	"log"
	"sort"

	"github.com/ds24m038/GenAI-Table-Processing/utils/config"
	"github.com/ds24m038/GenAI-Table-Processing/utils/models"
	"github.com/ds24m038/GenAI-Table-Processing/utils/table"
	"github.com/ds24m038/GenAI-Table-Processing/utils/template"
)

// Processor executes a configured step list against a table. Rows are
// processed strictly sequentially and independently of each other; the table
// is exclusively owned by the processor for the duration of a run.
type Processor struct {
	steps     *StepsConfig
	envConfig *config.EnvConfig
	verbose   bool
	progress  ProgressFunc
	providers map[string]models.Provider
	detect    models.DetectProviderFunc
}

// NewProcessor creates a new Processor with the given steps and environment.
func NewProcessor(steps *StepsConfig, envConfig *config.EnvConfig, verbose bool) *Processor {
	return &Processor{
		steps:     steps,
		envConfig: envConfig,
		verbose:   verbose,
		providers: make(map[string]models.Provider),
		detect:    models.DetectProvider,
	}
}

// SetProgress installs a progress callback invoked after each processed row.
func (p *Processor) SetProgress(fn ProgressFunc) {
	p.progress = fn
}

// SetDetectProvider overrides provider detection. Used by tests to inject a
// fake provider.
func (p *Processor) SetDetectProvider(fn models.DetectProviderFunc) {
	p.detect = fn
}

// debugf prints debug information if verbose mode is enabled
func (p *Processor) debugf(format string, args ...interface{}) {
	if p.verbose {
		log.Printf("[DEBUG][Processor] "+format+"\n", args...)
	}
}

// runnableStep pairs a step with its parsed output fields.
type runnableStep struct {
	index  int
	step   Step
	fields []string
}

// runnableSteps filters out malformed steps (empty prompt, empty or invalid
// output fields). Skips are logged once per run, not once per row.
func (p *Processor) runnableSteps() []runnableStep {
	var runnable []runnableStep
	for i, step := range p.steps.Steps {
		if step.Prompt == "" {
			config.WarnLog("Skipping %s: empty prompt", step.Label(i))
			continue
		}
		fields, err := ParseOutputFields(step.OutputFields)
		if err != nil {
			config.WarnLog("Skipping %s: %v", step.Label(i), err)
			continue
		}
		if len(fields) == 0 {
			config.WarnLog("Skipping %s: no output fields configured", step.Label(i))
			continue
		}
		runnable = append(runnable, runnableStep{index: i, step: step, fields: fields})
	}
	return runnable
}

// getProvider returns a configured provider for the model, caching by
// provider name so one credential check covers the whole run.
func (p *Processor) getProvider(modelName string) (models.Provider, error) {
	provider := p.detect(modelName)
	if provider == nil {
		return nil, fmt.Errorf("no provider found for model %s", modelName)
	}
	if cached, ok := p.providers[provider.Name()]; ok {
		return cached, nil
	}

	providerConfig, err := p.envConfig.GetProviderConfig(provider.Name())
	if err != nil {
		return nil, err
	}
	if err := provider.Configure(providerConfig.APIKey); err != nil {
		return nil, fmt.Errorf("failed to configure provider %s: %w", provider.Name(), err)
	}
	provider.SetVerbose(p.verbose)
	p.providers[provider.Name()] = provider
	return provider, nil
}

// configuredDefault returns the environment's default model, if any.
func (p *Processor) configuredDefault() string {
	if p.envConfig != nil {
		return p.envConfig.DefaultModel
	}
	return ""
}

// firstStepModel returns the model of the first configured step, used as the
// representative rate for run pricing.
func (p *Processor) firstStepModel() string {
	if len(p.steps.Steps) > 0 {
		return p.steps.Steps[0].EffectiveModel(p.configuredDefault())
	}
	if def := p.configuredDefault(); def != "" {
		return def
	}
	return DefaultModel
}

// Run processes the table in place. With previewOnly, exactly the first row
// is processed (none for an empty table). On a model call failure the run
// aborts, returning the rows already enriched and the usage accumulated up to
// the failure point alongside the error. Cancellation is honored between
// rows.
func (p *Processor) Run(ctx context.Context, tbl *table.Table, previewOnly bool) (*RunSummary, error) {
	summary := &RunSummary{}
	pricingModel := p.firstStepModel()
	steps := p.runnableSteps()

	rowsToProcess := len(tbl.Rows)
	if previewOnly && rowsToProcess > 1 {
		rowsToProcess = 1
	}
	p.debugf("Run starting: %d rows selected, %d runnable steps, preview=%v",
		rowsToProcess, len(steps), previewOnly)

	// Resolve and configure all providers before touching any row, so a
	// missing credential surfaces before work starts.
	for _, rs := range steps {
		if _, err := p.getProvider(rs.step.EffectiveModel(p.configuredDefault())); err != nil {
			return summary, err
		}
	}

	for rowIdx := 0; rowIdx < rowsToProcess; rowIdx++ {
		if err := ctx.Err(); err != nil {
			summary.EstimatedCost = models.EstimateCost(summary.PromptTokens, summary.CompletionTokens, pricingModel)
			return summary, fmt.Errorf("run cancelled before row %d: %w", rowIdx+1, err)
		}

		row := tbl.Rows[rowIdx]
		for _, rs := range steps {
			modelName := rs.step.EffectiveModel(p.configuredDefault())
			provider, err := p.getProvider(modelName)
			if err != nil {
				summary.EstimatedCost = models.EstimateCost(summary.PromptTokens, summary.CompletionTokens, pricingModel)
				return summary, err
			}

			// The row's current state includes AI columns from earlier
			// steps, which is what enables chaining.
			prompt := template.Substitute(rs.step.Prompt, row)
			p.debugf("Row %d/%d, %s: prompt rendered to %d characters",
				rowIdx+1, rowsToProcess, rs.step.Label(rs.index), len(prompt))

			result, err := provider.ProcessItem(ctx, modelName, prompt, rs.fields)
			if err != nil {
				summary.EstimatedCost = models.EstimateCost(summary.PromptTokens, summary.CompletionTokens, pricingModel)
				return summary, fmt.Errorf("row %d, %s: %w", rowIdx+1, rs.step.Label(rs.index), err)
			}

			p.mergeResult(tbl, rowIdx, rs.fields, result)
			summary.PromptTokens += result.PromptTokens
			summary.CompletionTokens += result.CompletionTokens
		}

		summary.RowsProcessed++
		if p.progress != nil {
			p.progress(rowIdx+1, rowsToProcess)
		}
	}

	summary.EstimatedCost = models.EstimateCost(summary.PromptTokens, summary.CompletionTokens, pricingModel)
	return summary, nil
}

// mergeResult writes every response field into an AI_ column on the row.
// Declared output fields merge first in configured order so generated columns
// land deterministically; any extra keys the model volunteered (or the
// raw_response fallback) follow in sorted order.
func (p *Processor) mergeResult(tbl *table.Table, rowIdx int, declared []string, result *models.ProcessingResult) {
	seen := make(map[string]bool, len(declared))
	for _, field := range declared {
		if value, ok := result.Response[field]; ok {
			tbl.Set(rowIdx, AIColumnPrefix+field, stringifyUnlessString(value))
			seen[field] = true
		}
	}

	var extras []string
	for field := range result.Response {
		if !seen[field] {
			extras = append(extras, field)
		}
	}
	sort.Strings(extras)
	for _, field := range extras {
		tbl.Set(rowIdx, AIColumnPrefix+field, stringifyUnlessString(result.Response[field]))
	}
}

// stringifyUnlessString keeps string values as-is and renders everything else
// to its natural textual form.
func stringifyUnlessString(value interface{}) interface{} {
	if s, ok := value.(string); ok {
		return s
	}
	return template.Stringify(value)
}
