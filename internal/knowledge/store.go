// Package knowledge provides the persisted FAQ vector store.
//
// On startup the store loads an existing chromem-go index from the
// configured path. When no index exists it reads the FAQ source document,
// splits it into fixed-size chunks, embeds them, and persists the result.
// If neither index nor source exists the store cannot be built and the
// caller is expected to keep serving in a degraded, not-ready mode.
package knowledge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	chromem "github.com/philippgille/chromem-go"
)

// ErrNoSource indicates that neither a persisted index nor the FAQ source
// document exists, so the store cannot be built.
var ErrNoSource = errors.New("no persisted index and FAQ source missing")

// collectionName is the chromem collection holding FAQ chunks.
const collectionName = "faq"

// Config holds knowledge store settings.
type Config struct {
	// FAQPath is the FAQ source document read when no index exists.
	FAQPath string
	// IndexPath is the directory holding the persisted index.
	IndexPath string
	// ChunkSize is the target chunk length in characters.
	ChunkSize int
}

// Result is one retrieved passage.
type Result struct {
	Content    string
	Similarity float32
	Metadata   map[string]string
}

// Store wraps a persisted chromem collection.
// Safe for concurrent use after Open returns.
type Store struct {
	collection *chromem.Collection
	logger     *slog.Logger
}

// Open loads the persisted index at cfg.IndexPath, building it from the
// FAQ source on first run. Returns ErrNoSource when neither exists.
func Open(ctx context.Context, cfg Config, embed chromem.EmbeddingFunc, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := chromem.NewPersistentDB(cfg.IndexPath, false)
	if err != nil {
		return nil, fmt.Errorf("opening index at %s: %w", cfg.IndexPath, err)
	}

	collection, err := db.GetOrCreateCollection(collectionName, nil, embed)
	if err != nil {
		return nil, fmt.Errorf("opening collection %q: %w", collectionName, err)
	}

	s := &Store{collection: collection, logger: logger}

	if n := collection.Count(); n > 0 {
		logger.Info("loaded persisted FAQ index",
			"path", cfg.IndexPath,
			"chunks", n)
		return s, nil
	}

	if err := s.build(ctx, cfg); err != nil {
		return nil, err
	}
	return s, nil
}

// build reads the FAQ source, chunks it, and indexes the chunks.
func (s *Store) build(ctx context.Context, cfg Config) error {
	raw, err := os.ReadFile(cfg.FAQPath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrNoSource, cfg.FAQPath)
		}
		return fmt.Errorf("reading FAQ source %s: %w", cfg.FAQPath, err)
	}

	chunks := splitText(string(raw), cfg.ChunkSize)
	if len(chunks) == 0 {
		return fmt.Errorf("%w: %s is empty", ErrNoSource, cfg.FAQPath)
	}

	docs := make([]chromem.Document, len(chunks))
	for i, chunk := range chunks {
		docs[i] = chromem.Document{
			ID:      "faq_" + strconv.Itoa(i),
			Content: chunk,
			Metadata: map[string]string{
				"source": cfg.FAQPath,
				"chunk":  strconv.Itoa(i),
			},
		}
	}

	if err := s.collection.AddDocuments(ctx, docs, 2); err != nil {
		return fmt.Errorf("indexing %d FAQ chunks: %w", len(docs), err)
	}

	s.logger.Info("built FAQ index",
		"source", cfg.FAQPath,
		"chunks", len(chunks),
		"chunk_size", cfg.ChunkSize)
	return nil
}

// Search returns up to topK passages most similar to query, best first.
// topK is clamped to the collection size; chromem rejects nResults above it.
func (s *Store) Search(ctx context.Context, query string, topK int) ([]Result, error) {
	if topK <= 0 {
		topK = 1
	}
	if n := s.collection.Count(); topK > n {
		topK = n
	}
	if topK == 0 {
		return nil, nil
	}

	hits, err := s.collection.Query(ctx, query, topK, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("querying FAQ index: %w", err)
	}

	results := make([]Result, len(hits))
	for i, h := range hits {
		results[i] = Result{
			Content:    h.Content,
			Similarity: h.Similarity,
			Metadata:   h.Metadata,
		}
	}
	return results, nil
}

// Count returns the number of indexed chunks.
func (s *Store) Count() int {
	return s.collection.Count()
}
