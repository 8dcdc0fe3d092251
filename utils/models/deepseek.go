package models

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"

	openai "github.com/sashabaranov/go-openai"
)

// DeepseekProvider handles the Deepseek family of models through their
// OpenAI-compatible endpoint
type DeepseekProvider struct {
	apiKey   string
	endpoint string
	config   ModelConfig
	verbose  bool
	mu       sync.Mutex
}

// NewDeepseekProvider creates a new Deepseek provider instance. The endpoint
// can be overridden via DEEPSEEK_ENDPOINT.
func NewDeepseekProvider() *DeepseekProvider {
	endpoint := os.Getenv("DEEPSEEK_ENDPOINT")
	if endpoint == "" {
		endpoint = "https://api.deepseek.com/v1"
	}
	return &DeepseekProvider{
		endpoint: endpoint,
		config:   defaultModelConfig,
	}
}

// Name returns the provider name
func (d *DeepseekProvider) Name() string {
	return "deepseek"
}

// debugf prints debug information if verbose mode is enabled (thread-safe)
func (d *DeepseekProvider) debugf(format string, args ...interface{}) {
	if d.verbose {
		d.mu.Lock()
		defer d.mu.Unlock()
		log.Printf("[DEBUG][Deepseek] "+format+"\n", args...)
	}
}

// SupportsModel checks if the given model name is supported by Deepseek
func (d *DeepseekProvider) SupportsModel(modelName string) bool {
	modelName = strings.ToLower(modelName)

	registry := GetRegistry()
	for _, prefix := range registry.GetFamilies("deepseek") {
		if strings.HasPrefix(modelName, prefix) {
			d.debugf("Model %s is supported (matches prefix %s)", modelName, prefix)
			return true
		}
	}
	for _, model := range registry.GetModels("deepseek") {
		if modelName == model {
			return true
		}
	}
	return false
}

// Configure sets up the provider with the necessary credential
func (d *DeepseekProvider) Configure(apiKey string) error {
	d.debugf("Configuring Deepseek provider")
	if apiKey == "" {
		return fmt.Errorf("API key is required for Deepseek provider")
	}
	d.apiKey = apiKey
	return nil
}

// SetVerbose enables or disables verbose mode
func (d *DeepseekProvider) SetVerbose(verbose bool) {
	d.verbose = verbose
}

// ProcessItem sends a structured-output prompt to the specified model and
// returns the parsed response with token usage.
func (d *DeepseekProvider) ProcessItem(ctx context.Context, modelName, prompt string, outputFields []string) (*ProcessingResult, error) {
	d.debugf("Preparing to process item with model: %s", modelName)

	if d.apiKey == "" {
		return nil, fmt.Errorf("Deepseek provider not configured: missing API key")
	}
	if !d.SupportsModel(modelName) {
		return nil, fmt.Errorf("invalid Deepseek model: %s", modelName)
	}

	config := openai.DefaultConfig(d.apiKey)
	config.BaseURL = d.endpoint
	client := openai.NewClientWithConfig(config)

	result, err := processChatItem(ctx, client, d.Name(), modelName, prompt, outputFields, d.config)
	if err != nil {
		return nil, err
	}

	d.debugf("Call completed: %d prompt tokens, %d completion tokens",
		result.PromptTokens, result.CompletionTokens)
	return result, nil
}
