// Package embeddings provides text embedding backends for the local
// retriever. The default backend is a local Ollama model; a Google Gemini
// backend is available as an alternative.
package embeddings

import "context"

// Embedder turns text into fixed-dimension vectors.
type Embedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}
