package models

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIProvider handles the GPT and o-series family of models
type OpenAIProvider struct {
	apiKey   string
	endpoint string
	config   ModelConfig
	verbose  bool
	mu       sync.Mutex
}

// NewOpenAIProvider creates a new OpenAI provider instance
func NewOpenAIProvider() *OpenAIProvider {
	return &OpenAIProvider{
		config: defaultModelConfig,
	}
}

// Name returns the provider name
func (o *OpenAIProvider) Name() string {
	return "openai"
}

// debugf prints debug information if verbose mode is enabled (thread-safe)
func (o *OpenAIProvider) debugf(format string, args ...interface{}) {
	if o.verbose {
		o.mu.Lock()
		defer o.mu.Unlock()
		log.Printf("[DEBUG][OpenAI] "+format+"\n", args...)
	}
}

// SupportsModel checks if the given model name is supported by OpenAI
func (o *OpenAIProvider) SupportsModel(modelName string) bool {
	modelName = strings.ToLower(modelName)

	registry := GetRegistry()
	for _, prefix := range registry.GetFamilies("openai") {
		if strings.HasPrefix(modelName, prefix) {
			o.debugf("Model %s is supported (matches prefix %s)", modelName, prefix)
			return true
		}
	}
	for _, model := range registry.GetModels("openai") {
		if modelName == model {
			o.debugf("Model %s is supported (exact match)", modelName)
			return true
		}
	}

	o.debugf("Model %s is not supported", modelName)
	return false
}

// Configure sets up the provider with the necessary credential
func (o *OpenAIProvider) Configure(apiKey string) error {
	o.debugf("Configuring OpenAI provider")
	if apiKey == "" {
		return fmt.Errorf("API key is required for OpenAI provider")
	}
	o.apiKey = apiKey
	return nil
}

// SetEndpoint overrides the API endpoint. Used to point the provider at a
// mock server in tests; the default OpenAI endpoint is used when empty.
func (o *OpenAIProvider) SetEndpoint(endpoint string) {
	o.endpoint = endpoint
}

// SetVerbose enables or disables verbose mode
func (o *OpenAIProvider) SetVerbose(verbose bool) {
	o.verbose = verbose
}

// SetConfig updates the provider sampling configuration
func (o *OpenAIProvider) SetConfig(config ModelConfig) {
	o.config = config
}

func (o *OpenAIProvider) client() *openai.Client {
	if o.endpoint == "" {
		return openai.NewClient(o.apiKey)
	}
	config := openai.DefaultConfig(o.apiKey)
	config.BaseURL = o.endpoint
	return openai.NewClientWithConfig(config)
}

// ProcessItem sends a structured-output prompt to the specified model and
// returns the parsed response with token usage.
func (o *OpenAIProvider) ProcessItem(ctx context.Context, modelName, prompt string, outputFields []string) (*ProcessingResult, error) {
	o.debugf("Preparing to process item with model: %s", modelName)
	o.debugf("Prompt length: %d characters, output fields: %v", len(prompt), outputFields)

	if o.apiKey == "" {
		return nil, fmt.Errorf("OpenAI provider not configured: missing API key")
	}
	if !o.SupportsModel(modelName) {
		return nil, fmt.Errorf("invalid OpenAI model: %s", modelName)
	}

	result, err := processChatItem(ctx, o.client(), o.Name(), modelName, prompt, outputFields, o.config)
	if err != nil {
		return nil, err
	}

	o.debugf("Call completed: %d prompt tokens, %d completion tokens",
		result.PromptTokens, result.CompletionTokens)
	return result, nil
}
