// Package indexer ingests documents into the local vector store so the
// retriever has something to search.
package indexer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tmc/langchaingo/textsplitter"

	"github.com/localrag/research-assistant/pkg/embeddings"
	"github.com/localrag/research-assistant/pkg/vectorstore"
)

// DocumentStore is the slice of the vector store the indexer writes to.
type DocumentStore interface {
	AddDocuments(ctx context.Context, docs []vectorstore.Document) error
}

// Indexer chunks text, embeds each chunk, and writes the chunks to the
// vector store.
type Indexer struct {
	Store    DocumentStore
	Embedder embeddings.Embedder
	Logger   *slog.Logger

	splitter textsplitter.TextSplitter
}

func New(store DocumentStore, embedder embeddings.Embedder, chunkSize, chunkOverlap int) *Indexer {
	return &Indexer{
		Store:    store,
		Embedder: embedder,
		Logger:   slog.Default(),
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(chunkSize),
			textsplitter.WithChunkOverlap(chunkOverlap),
		),
	}
}

// IndexText splits text into chunks and stores them under the given source
// identifier. Returns the number of chunks written.
func (ix *Indexer) IndexText(ctx context.Context, source, title, text string) (int, error) {
	chunks, err := ix.splitter.SplitText(text)
	if err != nil {
		return 0, fmt.Errorf("failed to split text: %w", err)
	}
	if len(chunks) == 0 {
		return 0, nil
	}

	vectors, err := ix.Embedder.EmbedTexts(ctx, chunks)
	if err != nil {
		return 0, fmt.Errorf("failed to generate embeddings: %w", err)
	}
	if len(vectors) != len(chunks) {
		return 0, fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(chunks))
	}

	documents := make([]vectorstore.Document, len(chunks))
	for i, chunk := range chunks {
		documents[i] = vectorstore.Document{
			Content: chunk,
			Metadata: map[string]interface{}{
				"source": source,
				"title":  title,
			},
			Embedding: vectors[i],
		}
	}

	if err := ix.Store.AddDocuments(ctx, documents); err != nil {
		return 0, fmt.Errorf("failed to add documents to vector store: %w", err)
	}

	ix.Logger.Info("indexed document", "source", source, "chunks", len(chunks))
	return len(chunks), nil
}
