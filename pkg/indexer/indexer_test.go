package indexer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/localrag/research-assistant/pkg/vectorstore"
)

type fakeEmbedder struct {
	err error
}

func (f *fakeEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	return []float32{1, 2}, f.err
}

func (f *fakeEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	vecs := make([][]float32, len(texts))
	for i := range texts {
		vecs[i] = []float32{float32(i)}
	}
	return vecs, nil
}

type fakeStore struct {
	docs []vectorstore.Document
	err  error
}

func (f *fakeStore) AddDocuments(ctx context.Context, docs []vectorstore.Document) error {
	f.docs = append(f.docs, docs...)
	return f.err
}

func TestIndexText(t *testing.T) {
	store := &fakeStore{}
	ix := New(store, &fakeEmbedder{}, 50, 0)

	text := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 10)
	n, err := ix.IndexText(context.Background(), "http://example.com/doc", "Doc", text)
	if err != nil {
		t.Fatalf("IndexText() error = %v", err)
	}

	if n < 2 {
		t.Errorf("chunks = %d, want text split into multiple chunks", n)
	}
	if len(store.docs) != n {
		t.Errorf("stored %d documents, want %d", len(store.docs), n)
	}
	first := store.docs[0]
	if first.Metadata["source"] != "http://example.com/doc" || first.Metadata["title"] != "Doc" {
		t.Errorf("unexpected metadata: %v", first.Metadata)
	}
	if len(first.Embedding) == 0 {
		t.Error("chunk stored without embedding")
	}
}

func TestIndexTextEmptyInput(t *testing.T) {
	store := &fakeStore{}
	ix := New(store, &fakeEmbedder{}, 50, 0)

	n, err := ix.IndexText(context.Background(), "src", "t", "")
	if err != nil {
		t.Fatalf("IndexText() error = %v", err)
	}
	if n != 0 || len(store.docs) != 0 {
		t.Errorf("empty input produced %d chunks", n)
	}
}

func TestIndexTextEmbedderError(t *testing.T) {
	ix := New(&fakeStore{}, &fakeEmbedder{err: errors.New("model missing")}, 50, 0)

	if _, err := ix.IndexText(context.Background(), "src", "t", "some text"); err == nil {
		t.Fatal("IndexText() should fail when embedding fails")
	}
}
