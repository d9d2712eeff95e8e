// Package config loads service configuration from the environment.
package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// Config holds the configuration for the berry service.
// Environment variables are parsed from the BERRY_ prefix, e.g.
// BERRY_HTTP_PORT, BERRY_WEAVIATE_URL.
type Config struct {
	// Build target selects the deployment flavour: local runs the embedded
	// vector store, cloud expects a reachable Weaviate.
	BuildTarget string `envconfig:"BUILD_TARGET" default:"local"`

	// VectorStore picks the backend; "auto" derives it from BuildTarget.
	VectorStore string `envconfig:"VECTOR_STORE" default:"auto"`

	// HTTP configuration
	HTTPPort int `envconfig:"HTTP_PORT" default:"4111"`

	// Weaviate (host:port, no scheme)
	WeaviateURL string `envconfig:"WEAVIATE_URL" default:"localhost:8080"`

	// Embedding configuration
	EmbedProvider string  `envconfig:"EMBED_PROVIDER" default:"ollama"`
	EmbedModel    string  `envconfig:"EMBED_MODEL" default:"mxbai-embed-large"`
	OllamaURL     string  `envconfig:"OLLAMA_URL" default:"http://localhost:11434"`
	SearchAlpha   float32 `envconfig:"SEARCH_ALPHA" default:"0.6"`

	// Search over-fetch factor applied when a visibility context is present.
	SearchOverfetchFactor int `envconfig:"SEARCH_OVERFETCH_FACTOR" default:"3"`

	// Identity defaults
	AdminActor   string `envconfig:"ADMIN_ACTOR" default:"human"`
	DefaultActor string `envconfig:"DEFAULT_ACTOR" default:""`
	DefaultType  string `envconfig:"DEFAULT_TYPE" default:"information"`

	// Health checking
	HealthIntervalSeconds     int `envconfig:"HEALTH_INTERVAL_SECONDS" default:"30"`
	HealthProbeTimeoutSeconds int `envconfig:"HEALTH_PROBE_TIMEOUT_SECONDS" default:"5"`
	BootstrapTimeoutSeconds   int `envconfig:"BOOTSTRAP_TIMEOUT_SECONDS" default:"30"`
}

// ResolveDefaults validates BuildTarget and derives VectorStore when "auto".
func (c *Config) ResolveDefaults() error {
	var defaultStore string
	switch c.BuildTarget {
	case "local":
		defaultStore = "chromem"
	case "cloud":
		defaultStore = "weaviate"
	default:
		return fmt.Errorf("unsupported BUILD_TARGET: %s", c.BuildTarget)
	}

	if c.VectorStore == "" || c.VectorStore == "auto" {
		c.VectorStore = defaultStore
	}
	switch c.VectorStore {
	case "chromem", "weaviate":
	default:
		return fmt.Errorf("unsupported VECTOR_STORE: %s", c.VectorStore)
	}

	if c.SearchOverfetchFactor <= 0 {
		return fmt.Errorf("SEARCH_OVERFETCH_FACTOR must be positive")
	}
	if c.AdminActor == "" {
		return fmt.Errorf("ADMIN_ACTOR must not be empty")
	}
	return nil
}

// New creates a Config by parsing BERRY_-prefixed environment variables.
func New() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("BERRY", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}
	if err := cfg.ResolveDefaults(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// GetHTTPAddr returns the HTTP server address.
func (c *Config) GetHTTPAddr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}
