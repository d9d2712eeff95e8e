// Package factory constructs configured implementations of the service's
// pluggable dependencies.
package factory

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/geoffjay/berry/internal/config"
	"github.com/geoffjay/berry/internal/embeddings"
	"github.com/geoffjay/berry/internal/vectorstore"
	"github.com/geoffjay/berry/internal/vectorstore/chromem"
	"github.com/geoffjay/berry/internal/vectorstore/weaviate"
)

// NewVectorStore creates the configured vector store backend. For Weaviate
// the schema bootstrap runs async with its own timeout so startup is not
// blocked on an unreachable instance; the health checker covers readiness.
func NewVectorStore(ctx context.Context, cfg *config.Config, embed embeddings.Embedder, log zerolog.Logger) (vectorstore.Store, error) {
	switch cfg.VectorStore {
	case "chromem":
		return chromem.New(embed)
	case "weaviate":
		vs, err := weaviate.New(cfg.WeaviateURL, cfg.SearchAlpha, log)
		if err != nil {
			return nil, err
		}
		go func() {
			bootstrapTimeout := time.Duration(cfg.BootstrapTimeoutSeconds) * time.Second
			bctx, cancel := context.WithTimeout(ctx, bootstrapTimeout)
			defer cancel()
			if err := weaviate.Bootstrap(bctx, cfg.WeaviateURL); err != nil {
				log.Warn().Err(err).Str("url", cfg.WeaviateURL).Msg("weaviate bootstrap failed")
			} else {
				log.Debug().Str("url", cfg.WeaviateURL).Msg("weaviate bootstrap completed")
			}
		}()
		return vs, nil
	default:
		return nil, fmt.Errorf("unsupported vector store: %s", cfg.VectorStore)
	}
}
