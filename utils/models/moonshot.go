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

// MoonshotProvider handles the Moonshot family of models through their
// OpenAI-compatible endpoint
type MoonshotProvider struct {
	apiKey   string
	endpoint string
	config   ModelConfig
	verbose  bool
	mu       sync.Mutex
}

// NewMoonshotProvider creates a new Moonshot provider instance. The endpoint
// can be overridden via MOONSHOT_ENDPOINT.
func NewMoonshotProvider() *MoonshotProvider {
	endpoint := os.Getenv("MOONSHOT_ENDPOINT")
	if endpoint == "" {
		endpoint = "https://api.moonshot.cn/v1"
	}
	return &MoonshotProvider{
		endpoint: endpoint,
		config:   defaultModelConfig,
	}
}

// Name returns the provider name
func (m *MoonshotProvider) Name() string {
	return "moonshot"
}

// debugf prints debug information if verbose mode is enabled (thread-safe)
func (m *MoonshotProvider) debugf(format string, args ...interface{}) {
	if m.verbose {
		m.mu.Lock()
		defer m.mu.Unlock()
		log.Printf("[DEBUG][Moonshot] "+format+"\n", args...)
	}
}

// SupportsModel checks if the given model name is supported by Moonshot
func (m *MoonshotProvider) SupportsModel(modelName string) bool {
	modelName = strings.ToLower(modelName)

	registry := GetRegistry()
	for _, prefix := range registry.GetFamilies("moonshot") {
		if strings.HasPrefix(modelName, prefix) {
			m.debugf("Model %s is supported (matches prefix %s)", modelName, prefix)
			return true
		}
	}
	for _, model := range registry.GetModels("moonshot") {
		if modelName == model {
			return true
		}
	}
	return false
}

// Configure sets up the provider with the necessary credential
func (m *MoonshotProvider) Configure(apiKey string) error {
	m.debugf("Configuring Moonshot provider")
	if apiKey == "" {
		return fmt.Errorf("API key is required for Moonshot provider")
	}
	m.apiKey = apiKey
	return nil
}

// SetVerbose enables or disables verbose mode
func (m *MoonshotProvider) SetVerbose(verbose bool) {
	m.verbose = verbose
}

// ProcessItem sends a structured-output prompt to the specified model and
// returns the parsed response with token usage.
func (m *MoonshotProvider) ProcessItem(ctx context.Context, modelName, prompt string, outputFields []string) (*ProcessingResult, error) {
	m.debugf("Preparing to process item with model: %s", modelName)

	if m.apiKey == "" {
		return nil, fmt.Errorf("Moonshot provider not configured: missing API key")
	}
	if !m.SupportsModel(modelName) {
		return nil, fmt.Errorf("invalid Moonshot model: %s", modelName)
	}

	config := openai.DefaultConfig(m.apiKey)
	config.BaseURL = m.endpoint
	client := openai.NewClientWithConfig(config)

	result, err := processChatItem(ctx, client, m.Name(), modelName, prompt, outputFields, m.config)
	if err != nil {
		return nil, err
	}

	m.debugf("Call completed: %d prompt tokens, %d completion tokens",
		result.PromptTokens, result.CompletionTokens)
	return result, nil
}
