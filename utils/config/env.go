package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ErrMissingAPIKey indicates a provider was requested but no credential is
// available from the environment file or process environment.
var ErrMissingAPIKey = errors.New("missing API key")

// ProviderConfig holds the credential for a single model provider
type ProviderConfig struct {
	APIKey string `yaml:"api_key"`
}

// EnvConfig represents the environment configuration file
type EnvConfig struct {
	Providers    map[string]*ProviderConfig `yaml:"providers"`
	DefaultModel string                     `yaml:"default_model,omitempty"`
	Server       *ServerConfig              `yaml:"server,omitempty"`
}

// envKeyNames maps provider names to the process environment variables that
// may carry their credentials. Process environment wins over the file so that
// CI and server deployments never need a config file on disk.
var envKeyNames = map[string]string{
	"openai":   "OPENAI_API_KEY",
	"deepseek": "DEEPSEEK_API_KEY",
	"moonshot": "MOONSHOT_API_KEY",
}

// GetEnvPath returns the environment file path from TABLEPROC_ENV or the default
func GetEnvPath() string {
	if path := os.Getenv("TABLEPROC_ENV"); path != "" {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(home, ".tableproc", "config.yaml")
}

// LoadEnvConfig loads the environment configuration. A missing file is not an
// error: credentials can come entirely from the process environment. A .env
// file in the working directory is loaded first, if present.
func LoadEnvConfig(path string) (*EnvConfig, error) {
	// Best effort; a missing .env file is the normal case
	_ = godotenv.Load()

	env := &EnvConfig{Providers: make(map[string]*ProviderConfig)}

	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, env); err != nil {
			return nil, fmt.Errorf("error parsing environment file %s: %w", path, err)
		}
		if env.Providers == nil {
			env.Providers = make(map[string]*ProviderConfig)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("error reading environment file %s: %w", path, err)
	}

	// Overlay process environment variables
	for provider, envVar := range envKeyNames {
		if key := os.Getenv(envVar); key != "" {
			env.Providers[provider] = &ProviderConfig{APIKey: key}
		}
	}

	return env, nil
}

// Save writes the environment configuration to the given path, creating the
// parent directory if needed. File mode is restrictive since it holds keys.
func (e *EnvConfig) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}
	data, err := yaml.Marshal(e)
	if err != nil {
		return fmt.Errorf("error serializing environment config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("error writing environment file %s: %w", path, err)
	}
	return nil
}

// GetProviderConfig returns the configuration for a provider, or
// ErrMissingAPIKey if the provider has no usable credential.
func (e *EnvConfig) GetProviderConfig(name string) (*ProviderConfig, error) {
	name = strings.ToLower(name)
	if p, ok := e.Providers[name]; ok && p.APIKey != "" {
		return p, nil
	}
	return nil, fmt.Errorf("provider %s: %w", name, ErrMissingAPIKey)
}

// SetProviderAPIKey stores a credential for a provider
func (e *EnvConfig) SetProviderAPIKey(name, apiKey string) {
	if e.Providers == nil {
		e.Providers = make(map[string]*ProviderConfig)
	}
	e.Providers[strings.ToLower(name)] = &ProviderConfig{APIKey: apiKey}
}

// ConfiguredProviders returns the names of providers with credentials, sorted
// for stable display.
func (e *EnvConfig) ConfiguredProviders() []string {
	names := make([]string, 0, len(e.Providers))
	for name, p := range e.Providers {
		if p != nil && p.APIKey != "" {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
