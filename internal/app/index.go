package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/finchdesk/finch/internal/config"
	"github.com/finchdesk/finch/internal/knowledge"
)

// RebuildIndex deletes the persisted FAQ index and rebuilds it from the
// source document. Used by the index subcommand; the serve path never
// deletes an existing index.
func RebuildIndex(ctx context.Context, cfg *config.Config, logger *slog.Logger) (int, error) {
	g, err := provideGenkit(ctx, cfg, logger)
	if err != nil {
		return 0, err
	}

	embedder := provideEmbedder(g, cfg)
	if embedder == nil {
		return 0, fmt.Errorf("embedder %q not found for provider %q", cfg.EmbedderModel, cfg.Provider)
	}

	if err := os.RemoveAll(cfg.IndexPath); err != nil {
		return 0, fmt.Errorf("removing index %q: %w", cfg.IndexPath, err)
	}

	ks, err := knowledge.Open(ctx, knowledge.Config{
		FAQPath:   cfg.FAQPath,
		IndexPath: cfg.IndexPath,
		ChunkSize: cfg.ChunkSize,
	}, knowledge.NewEmbeddingFunc(embedder), logger)
	if err != nil {
		return 0, fmt.Errorf("building index: %w", err)
	}

	return ks.Count(), nil
}
