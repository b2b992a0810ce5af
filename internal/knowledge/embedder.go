package knowledge

import (
	"context"
	"fmt"

	"github.com/firebase/genkit/go/ai"
	chromem "github.com/philippgille/chromem-go"
)

// NewEmbeddingFunc adapts a Genkit embedder to chromem's embedding
// function, so the vector store can reuse whichever provider the agent is
// configured with.
func NewEmbeddingFunc(embedder ai.Embedder) chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		req := &ai.EmbedRequest{
			Input: []*ai.Document{ai.DocumentFromText(text, nil)},
		}
		resp, err := embedder.Embed(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("embed failed: %w", err)
		}
		if len(resp.Embeddings) == 0 {
			return nil, fmt.Errorf("no embeddings returned")
		}
		return resp.Embeddings[0].Embedding, nil
	}
}
