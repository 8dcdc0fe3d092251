// Package models contains the provider adapters that turn a rendered prompt
// into a structured JSON answer plus token usage. Every provider speaks the
// OpenAI chat-completions protocol; vendors differ only in endpoint and
// model families.
package models

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/ds24m038/GenAI-Table-Processing/utils/config"
)

// requestTimeout bounds a single model call. A call that exceeds it fails
// with a ModelCallError wrapping context.DeadlineExceeded.
const requestTimeout = 60 * time.Second

// systemMessage constrains the assistant to structured output. Every call is
// stateless: a single system+user pair, no conversation history.
const systemMessage = `You are an AI assistant for data processing.
You must respond with a valid JSON object containing the requested fields.
Do not include any text outside the JSON object.`

// ModelConfig represents sampling options for model calls
type ModelConfig struct {
	Temperature float32
	MaxTokens   int
}

// defaultModelConfig keeps temperature fixed at a moderate value so repeated
// runs behave comparably, and bounds output length.
var defaultModelConfig = ModelConfig{
	Temperature: 0.7,
	MaxTokens:   1000,
}

// ProcessingResult is the outcome of one model call for one (row, step) pair.
type ProcessingResult struct {
	Response         map[string]interface{} `json:"response"`
	PromptTokens     int                    `json:"prompt_tokens"`
	CompletionTokens int                    `json:"completion_tokens"`
	TotalTokens      int                    `json:"total_tokens"`
	Model            string                 `json:"model"`
}

// RawResponseKey is the fallback field holding unparsed model output when the
// reply is not a valid JSON object. This is a recoverable degradation: the
// raw text stays visible instead of being lost.
const RawResponseKey = "raw_response"

// Structured reports whether the reply parsed as a JSON object, as opposed to
// being preserved raw under RawResponseKey.
func (r *ProcessingResult) Structured() bool {
	if len(r.Response) != 1 {
		return true
	}
	_, raw := r.Response[RawResponseKey]
	return !raw
}

// ModelCallError is a transport, auth, or timeout failure from the remote
// service. It is fatal for the run: the pipeline aborts and returns partial
// results.
type ModelCallError struct {
	Provider string
	Model    string
	Err      error
}

func (e *ModelCallError) Error() string {
	return fmt.Sprintf("%s model call failed for %s: %v", e.Provider, e.Model, e.Err)
}

func (e *ModelCallError) Unwrap() error { return e.Err }

// Provider represents a model provider backend
type Provider interface {
	Name() string
	SupportsModel(modelName string) bool
	Configure(apiKey string) error
	SetVerbose(verbose bool)
	ProcessItem(ctx context.Context, modelName, prompt string, outputFields []string) (*ProcessingResult, error)
}

// DetectProviderFunc is the type for the provider detection function
type DetectProviderFunc func(modelName string) Provider

// DetectProvider determines the appropriate provider for a model name. It is
// a package variable so tests and the pipeline can swap in fakes.
var DetectProvider DetectProviderFunc = defaultDetectProvider

// defaultDetectProvider checks vendors from most specific to most general;
// OpenAI is the catch-all since its mini tier is also the default pricing
// tier for unknown models.
func defaultDetectProvider(modelName string) Provider {
	config.DebugLog("[Provider] Detecting provider for model: %s", modelName)

	providers := []Provider{
		NewDeepseekProvider(),
		NewMoonshotProvider(),
		NewOpenAIProvider(),
	}
	for _, provider := range providers {
		if provider.SupportsModel(modelName) {
			config.DebugLog("[Provider] Found provider %s for model %s", provider.Name(), modelName)
			return provider
		}
	}

	config.DebugLog("[Provider] No specific provider found, defaulting to openai for model %s", modelName)
	return NewOpenAIProvider()
}

// buildUserMessage appends the explicit output-field instruction to the
// rendered prompt. The field list is quoted and comma-separated so the model
// sees the exact JSON keys expected.
func buildUserMessage(prompt string, outputFields []string) string {
	quoted := make([]string, len(outputFields))
	for i, f := range outputFields {
		quoted[i] = fmt.Sprintf("%q", f)
	}
	return fmt.Sprintf("%s\n\nRespond with a JSON object containing these fields: %s",
		prompt, strings.Join(quoted, ", "))
}

// processChatItem performs the structured-output chat call shared by all
// OpenAI-compatible providers and shapes the reply into a ProcessingResult.
func processChatItem(ctx context.Context, client *openai.Client, providerName, modelName, prompt string, outputFields []string, cfg ModelConfig) (*ProcessingResult, error) {
	callCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req := openai.ChatCompletionRequest{
		Model: modelName,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemMessage},
			{Role: openai.ChatMessageRoleUser, Content: buildUserMessage(prompt, outputFields)},
		},
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}

	resp, err := client.CreateChatCompletion(callCtx, req)
	if err != nil {
		return nil, &ModelCallError{Provider: providerName, Model: modelName, Err: err}
	}
	if len(resp.Choices) == 0 {
		return nil, &ModelCallError{
			Provider: providerName,
			Model:    modelName,
			Err:      fmt.Errorf("no response choices returned"),
		}
	}

	content := resp.Choices[0].Message.Content
	parsed := make(map[string]interface{})
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		// Not valid JSON: preserve the raw text instead of failing the row
		config.DebugLog("[%s] Reply was not valid JSON, preserving raw text (%d bytes)", providerName, len(content))
		parsed = map[string]interface{}{RawResponseKey: content}
	}

	respModel := resp.Model
	if respModel == "" {
		respModel = modelName
	}

	// Token counts come from the service as reported, never estimated locally
	return &ProcessingResult{
		Response:         parsed,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		TotalTokens:      resp.Usage.TotalTokens,
		Model:            respModel,
	}, nil
}
