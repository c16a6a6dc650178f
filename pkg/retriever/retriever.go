// Package retriever implements the local retrieval capability over the
// vector store and an embedding backend. One retriever is constructed at
// process start and injected into the pipeline nodes.
package retriever

import (
	"context"
	"fmt"

	"github.com/localrag/research-assistant/pkg/embeddings"
	"github.com/localrag/research-assistant/pkg/nodes"
	"github.com/localrag/research-assistant/pkg/vectorstore"
)

// SimilaritySearcher is the slice of the vector store the retriever uses.
type SimilaritySearcher interface {
	SimilaritySearch(ctx context.Context, queryEmbedding []float32, topK int) ([]vectorstore.SimilaritySearchResult, error)
}

// VectorRetriever embeds the query and returns the closest stored passages.
type VectorRetriever struct {
	Store    SimilaritySearcher
	Embedder embeddings.Embedder
	TopK     int
}

func NewVectorRetriever(store SimilaritySearcher, embedder embeddings.Embedder, topK int) *VectorRetriever {
	if topK <= 0 {
		topK = 5
	}
	return &VectorRetriever{
		Store:    store,
		Embedder: embedder,
		TopK:     topK,
	}
}

// Invoke implements nodes.Retriever.
func (r *VectorRetriever) Invoke(ctx context.Context, query string) ([]nodes.Document, error) {
	queryEmbedding, err := r.Embedder.EmbedText(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	results, err := r.Store.SimilaritySearch(ctx, queryEmbedding, r.TopK)
	if err != nil {
		return nil, fmt.Errorf("failed to search vector store: %w", err)
	}

	docs := make([]nodes.Document, 0, len(results))
	for _, res := range results {
		docs = append(docs, nodes.Document{PageContent: res.Document.Content})
	}
	return docs, nil
}
