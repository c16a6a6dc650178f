package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// Document is a stored passage with its embedding.
type Document struct {
	ID        string                 `json:"id"`
	Content   string                 `json:"content"`
	Metadata  map[string]interface{} `json:"metadata"`
	Embedding []float32              `json:"embedding,omitempty"`
}

// SimilaritySearchResult pairs a document with its cosine similarity score.
type SimilaritySearchResult struct {
	Document Document
	Score    float64
}

// PGVectorStore stores one collection of embedded documents in a Postgres
// table with a pgvector column. The collection is created lazily on first
// use with a cosine-similarity HNSW index.
type PGVectorStore struct {
	pool       *pgxpool.Pool
	collection string
	dimension  int

	ensureOnce sync.Once
	ensureErr  error
}

// Collection names double as table identifiers, so only word characters are
// accepted (Postgres identifier limit is 63 chars).
var collectionNamePattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]{0,62}$`)

func isValidCollectionName(name string) bool {
	return collectionNamePattern.MatchString(name)
}

// NewPGVectorStore creates a store for the named collection with the given
// embedding dimension. The underlying table is not touched until the first
// read or write.
func NewPGVectorStore(pool *pgxpool.Pool, collection string, dimension int) (*PGVectorStore, error) {
	if !isValidCollectionName(collection) {
		return nil, fmt.Errorf("invalid collection name %q: must contain only alphanumeric characters and underscores, not start with a digit, and be 1-63 characters long", collection)
	}
	if dimension <= 0 {
		return nil, fmt.Errorf("invalid embedding dimension %d", dimension)
	}
	return &PGVectorStore{
		pool:       pool,
		collection: collection,
		dimension:  dimension,
	}, nil
}

// ensureCollection creates the pgvector extension, the collection table, and
// its cosine index if they do not exist yet. Runs at most once per store.
func (vs *PGVectorStore) ensureCollection(ctx context.Context) error {
	vs.ensureOnce.Do(func() {
		if _, err := vs.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
			vs.ensureErr = fmt.Errorf("failed to ensure vector extension: %w", err)
			return
		}

		table := pgx.Identifier{vs.collection}.Sanitize()
		createQuery := fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
				content TEXT NOT NULL,
				metadata JSONB,
				embedding vector(%d),
				created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
			)
		`, table, vs.dimension)
		if _, err := vs.pool.Exec(ctx, createQuery); err != nil {
			vs.ensureErr = fmt.Errorf("failed to create collection %s: %w", vs.collection, err)
			return
		}

		// HNSW supports up to 2000 dimensions; beyond that fall back to
		// exact search.
		if vs.dimension <= 2000 {
			indexQuery := fmt.Sprintf(`
				CREATE INDEX IF NOT EXISTS %s ON %s USING hnsw (embedding vector_cosine_ops)
			`, pgx.Identifier{vs.collection + "_embedding_idx"}.Sanitize(), table)
			if _, err := vs.pool.Exec(ctx, indexQuery); err != nil {
				vs.ensureErr = fmt.Errorf("failed to create index on %s: %w", vs.collection, err)
				return
			}
		}
	})
	return vs.ensureErr
}

// AddDocuments inserts documents with their embeddings into the collection.
func (vs *PGVectorStore) AddDocuments(ctx context.Context, docs []Document) error {
	if err := vs.ensureCollection(ctx); err != nil {
		return err
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (content, metadata, embedding)
		VALUES ($1, $2, $3)
	`, pgx.Identifier{vs.collection}.Sanitize())

	batch := &pgx.Batch{}
	for _, doc := range docs {
		metadataJSON, err := json.Marshal(doc.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal metadata: %w", err)
		}
		batch.Queue(query, doc.Content, metadataJSON, pgvector.NewVector(doc.Embedding))
	}

	br := vs.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range docs {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("failed to insert document: %w", err)
		}
	}

	return nil
}

// SimilaritySearch returns the topK documents closest to queryEmbedding by
// cosine distance.
func (vs *PGVectorStore) SimilaritySearch(ctx context.Context, queryEmbedding []float32, topK int) ([]SimilaritySearchResult, error) {
	if err := vs.ensureCollection(ctx); err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT id, content, metadata, 1 - (embedding <=> $1) as similarity
		FROM %s
		ORDER BY embedding <=> $1
		LIMIT $2
	`, pgx.Identifier{vs.collection}.Sanitize())

	rows, err := vs.pool.Query(ctx, query, pgvector.NewVector(queryEmbedding), topK)
	if err != nil {
		return nil, fmt.Errorf("failed to execute similarity search: %w", err)
	}
	defer rows.Close()

	var results []SimilaritySearchResult
	for rows.Next() {
		var doc Document
		var metadataJSON []byte
		var similarity float64

		if err := rows.Scan(&doc.ID, &doc.Content, &metadataJSON, &similarity); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		if err := json.Unmarshal(metadataJSON, &doc.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}

		results = append(results, SimilaritySearchResult{Document: doc, Score: similarity})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return results, nil
}

// GetContentBySource returns every document stored for a source URL.
func (vs *PGVectorStore) GetContentBySource(ctx context.Context, source string) ([]Document, error) {
	if err := vs.ensureCollection(ctx); err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT id, content, metadata
		FROM %s
		WHERE metadata->>'source' = $1
	`, pgx.Identifier{vs.collection}.Sanitize())

	rows, err := vs.pool.Query(ctx, query, source)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	var documents []Document
	for rows.Next() {
		var doc Document
		var metadataJSON []byte

		if err := rows.Scan(&doc.ID, &doc.Content, &metadataJSON); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		if err := json.Unmarshal(metadataJSON, &doc.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}

		documents = append(documents, doc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return documents, nil
}
