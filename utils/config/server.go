package config

// ServerConfig holds configuration for the HTTP server mode
type ServerConfig struct {
	Port        int    `yaml:"port"`
	BearerToken string `yaml:"bearerToken,omitempty"`
	CORS        CORS   `yaml:"cors,omitempty"`
}

// CORS holds Cross-Origin Resource Sharing settings
type CORS struct {
	Enabled        bool     `yaml:"enabled"`
	AllowedOrigins []string `yaml:"allowedOrigins,omitempty"`
}

// DefaultServerConfig returns the server settings used when the environment
// file has no server block.
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{Port: 8080}
}
