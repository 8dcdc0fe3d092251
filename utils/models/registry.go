package models

import (
	"strings"
	"sync"
)

// ModelRegistry is a centralized registry of supported models per provider
type ModelRegistry struct {
	// Map of provider name to list of supported models
	models map[string][]string
	// Map of provider name to list of model families (prefixes)
	families map[string][]string
	mu       sync.RWMutex
}

// Global instance of the model registry
var globalRegistry = NewModelRegistry()

// NewModelRegistry creates a new model registry populated with defaults
func NewModelRegistry() *ModelRegistry {
	registry := &ModelRegistry{
		models:   make(map[string][]string),
		families: make(map[string][]string),
	}
	registry.initializeDefaultModels()
	return registry
}

// initializeDefaultModels populates the registry with the default models for
// each provider
func (r *ModelRegistry) initializeDefaultModels() {
	// OpenAI models
	r.RegisterModels("openai", []string{
		"gpt-4o-mini",
		"gpt-4o",
		"gpt-4-turbo",
		"gpt-4.1",
		"gpt-4.1-mini",
		"o3-mini",
		"o4-mini",
	})
	r.RegisterFamilies("openai", []string{
		"gpt-",
		"o1",
		"o3",
		"o4",
		"chatgpt-",
	})

	// Deepseek models
	r.RegisterModels("deepseek", []string{
		"deepseek-chat",
		"deepseek-coder",
		"deepseek-reasoner",
	})
	r.RegisterFamilies("deepseek", []string{
		"deepseek-",
	})

	// Moonshot models
	r.RegisterModels("moonshot", []string{
		"moonshot-v1-8k",
		"moonshot-v1-32k",
		"moonshot-v1-128k",
		"moonshot-v1-auto",
	})
	r.RegisterFamilies("moonshot", []string{
		"moonshot-",
	})
}

// RegisterModels adds models to the registry for a specific provider
func (r *ModelRegistry) RegisterModels(provider string, models []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.models[provider] = append(r.models[provider], models...)
}

// RegisterFamilies adds model families (prefixes) for a specific provider
func (r *ModelRegistry) RegisterFamilies(provider string, families []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.families[provider] = append(r.families[provider], families...)
}

// GetModels returns the list of models for a specific provider
func (r *ModelRegistry) GetModels(provider string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.models[provider]
}

// GetFamilies returns the list of model families for a specific provider
func (r *ModelRegistry) GetFamilies(provider string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.families[provider]
}

// ValidateModel checks if a model is valid for a specific provider, either by
// exact match or family prefix
func (r *ModelRegistry) ValidateModel(provider string, modelName string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	modelName = strings.TrimSpace(strings.ToLower(modelName))

	for _, valid := range r.models[provider] {
		if modelName == valid {
			return true
		}
	}
	for _, family := range r.families[provider] {
		if strings.HasPrefix(modelName, family) {
			return true
		}
	}
	return false
}

// GetAllModelsList returns a flat list of all models from all providers
func (r *ModelRegistry) GetAllModelsList() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var allModels []string
	for _, models := range r.models {
		allModels = append(allModels, models...)
	}
	return allModels
}

// GetRegistry returns the global model registry instance
func GetRegistry() *ModelRegistry {
	return globalRegistry
}
