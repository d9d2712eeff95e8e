package factory

import (
	"github.com/rs/zerolog"

	"github.com/geoffjay/berry/internal/config"
	"github.com/geoffjay/berry/internal/embeddings"
	"github.com/geoffjay/berry/internal/embeddings/ollama"
)

// NewEmbeddingProvider creates the configured embedding provider, or nil
// when the provider name is unknown.
func NewEmbeddingProvider(cfg *config.Config, log zerolog.Logger) embeddings.Embedder {
	switch cfg.EmbedProvider {
	case "ollama":
		return ollama.New(cfg.OllamaURL, cfg.EmbedModel)
	default:
		log.Error().Str("provider", cfg.EmbedProvider).Msg("unknown embedding provider")
		return nil
	}
}
