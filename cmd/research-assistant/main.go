package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/localrag/research-assistant/pkg/config"
	"github.com/localrag/research-assistant/pkg/database"
	"github.com/localrag/research-assistant/pkg/embeddings"
	"github.com/localrag/research-assistant/pkg/indexer"
	"github.com/localrag/research-assistant/pkg/nodes"
	"github.com/localrag/research-assistant/pkg/retriever"
	"github.com/localrag/research-assistant/pkg/search"
	"github.com/localrag/research-assistant/pkg/state"
	"github.com/localrag/research-assistant/pkg/vectorstore"
)

var (
	query         string
	provider      string
	maxResults    int
	fetchFullPage bool
	maxTokens     int
	includeRaw    bool
	sourceURL     string
	sourceTitle   string
)

func buildEmbedder(ctx context.Context, cfg *config.Config) (embeddings.Embedder, error) {
	switch cfg.EmbeddingProvider {
	case "google":
		return embeddings.NewGoogleEmbedder(ctx, cfg.EmbeddingModel, cfg.GoogleApiKey, cfg.EmbeddingDim)
	case "ollama", "":
		return embeddings.NewOllamaEmbedder(cfg.OllamaURL, cfg.EmbeddingModel)
	default:
		return nil, fmt.Errorf("unsupported embedding provider %q", cfg.EmbeddingProvider)
	}
}

func buildRetriever(ctx context.Context, cfg *config.Config) (*retriever.VectorRetriever, *database.PostgresDB, error) {
	db, err := database.NewPostgresDB(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	store, err := vectorstore.NewPGVectorStore(db.Pool, cfg.CollectionName, cfg.EmbeddingDim)
	if err != nil {
		db.Close()
		return nil, nil, err
	}

	embedder, err := buildEmbedder(ctx, cfg)
	if err != nil {
		db.Close()
		return nil, nil, err
	}

	return retriever.NewVectorRetriever(store, embedder, cfg.RetrievalTopK), db, nil
}

func runSearch(cfg *config.Config) error {
	ctx := context.Background()

	var resp search.Response
	switch provider {
	case "duckduckgo":
		resp = search.NewDuckDuckGoClient().Search(ctx, query, maxResults, fetchFullPage)
	case "tavily":
		client, err := search.NewTavilyClient()
		if err != nil {
			return err
		}
		resp, err = client.Search(ctx, query, maxResults, true)
		if err != nil {
			return err
		}
	case "perplexity":
		var err error
		resp, err = search.NewPerplexityClient().Search(ctx, query, 0)
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("unsupported search provider %q", provider)
	}

	fmt.Println(search.DeduplicateAndFormatSources([]search.Response{resp}, maxTokens, includeRaw))
	return nil
}

func runRetrieve(cfg *config.Config) error {
	ctx := context.Background()

	vr, db, err := buildRetriever(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	s := state.NewSummaryState("")
	s.SearchQuery = query

	update := nodes.NewLocalRetrieverNode(vr).Invoke(ctx, s)
	fmt.Println(update.LocalContext)
	return nil
}

func runIndex(cfg *config.Config, path string) error {
	ctx := context.Background()

	text, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	db, err := database.NewPostgresDB(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	store, err := vectorstore.NewPGVectorStore(db.Pool, cfg.CollectionName, cfg.EmbeddingDim)
	if err != nil {
		return err
	}

	embedder, err := buildEmbedder(ctx, cfg)
	if err != nil {
		return err
	}

	source := sourceURL
	if source == "" {
		source = path
	}
	title := sourceTitle
	if title == "" {
		title = path
	}

	ix := indexer.New(store, embedder, cfg.ChunkSize, cfg.ChunkOverlap)
	chunks, err := ix.IndexText(ctx, source, title, string(text))
	if err != nil {
		return err
	}

	slog.Info("document indexed", "path", path, "collection", cfg.CollectionName, "chunks", chunks)
	return nil
}

func main() {
	handler := slog.NewTextHandler(os.Stdout, nil)
	slog.SetDefault(slog.New(handler))

	// Load .env file; env vars may also be set directly.
	_ = godotenv.Load()

	cfg := config.Load()

	rootCmd := &cobra.Command{
		Use:   "research-assistant",
		Short: "Research-assistant pipeline nodes",
		Long:  `research-assistant runs individual RAG pipeline steps: web search against DuckDuckGo, Tavily, or Perplexity, and retrieval from the local vector store.`,
	}

	searchCmd := &cobra.Command{
		Use:   "search",
		Short: "Run one web search step and print the formatted sources",
		RunE: func(cmd *cobra.Command, args []string) error {
			if query == "" {
				return fmt.Errorf("--query is required")
			}
			return runSearch(cfg)
		},
	}
	searchCmd.Flags().StringVarP(&query, "query", "q", "", "The search query")
	searchCmd.Flags().StringVarP(&provider, "provider", "p", "duckduckgo", "Search provider: duckduckgo, tavily, or perplexity")
	searchCmd.Flags().IntVar(&maxResults, "max-results", cfg.MaxSearchResults, "Maximum number of results")
	searchCmd.Flags().BoolVar(&fetchFullPage, "fetch-full-page", cfg.FetchFullPage, "Fetch and strip the full page for each result (DuckDuckGo only)")
	searchCmd.Flags().IntVar(&maxTokens, "max-tokens-per-source", 1000, "Raw content cap per source, in tokens")
	searchCmd.Flags().BoolVar(&includeRaw, "include-raw-content", false, "Include raw page content in the output")

	retrieveCmd := &cobra.Command{
		Use:   "retrieve",
		Short: "Query the local vector store and print the combined context",
		RunE: func(cmd *cobra.Command, args []string) error {
			if query == "" {
				return fmt.Errorf("--query is required")
			}
			return runRetrieve(cfg)
		},
	}
	retrieveCmd.Flags().StringVarP(&query, "query", "q", "", "The retrieval query")

	indexCmd := &cobra.Command{
		Use:   "index <file>",
		Short: "Chunk, embed, and store a text file in the local vector store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIndex(cfg, args[0])
		},
	}
	indexCmd.Flags().StringVar(&sourceURL, "source", "", "Source identifier stored with the chunks (defaults to the file path)")
	indexCmd.Flags().StringVar(&sourceTitle, "title", "", "Document title stored with the chunks")

	rootCmd.AddCommand(searchCmd, retrieveCmd, indexCmd)

	if err := rootCmd.Execute(); err != nil {
		slog.Error("Command execution failed", "error", err)
		os.Exit(1)
	}
}
