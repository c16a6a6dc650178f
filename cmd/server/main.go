package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/localrag/research-assistant/pkg/config"
	"github.com/localrag/research-assistant/pkg/database"
	"github.com/localrag/research-assistant/pkg/embeddings"
	"github.com/localrag/research-assistant/pkg/nodes"
	"github.com/localrag/research-assistant/pkg/retriever"
	"github.com/localrag/research-assistant/pkg/server"
	"github.com/localrag/research-assistant/pkg/vectorstore"
)

func main() {
	handler := slog.NewTextHandler(os.Stdout, nil)
	slog.SetDefault(slog.New(handler))

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := config.Load()
	ctx := context.Background()

	// Database Connection
	db, err := database.NewPostgresDB(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.InitSchema(ctx); err != nil {
		log.Fatalf("Failed to initialize schema: %v", err)
	}

	// Embedder + vector store, constructed once and reused.
	var embedder embeddings.Embedder
	switch cfg.EmbeddingProvider {
	case "google":
		embedder, err = embeddings.NewGoogleEmbedder(ctx, cfg.EmbeddingModel, cfg.GoogleApiKey, cfg.EmbeddingDim)
	default:
		embedder, err = embeddings.NewOllamaEmbedder(cfg.OllamaURL, cfg.EmbeddingModel)
	}
	if err != nil {
		log.Fatalf("Failed to init embedder: %v", err)
	}

	store, err := vectorstore.NewPGVectorStore(db.Pool, cfg.CollectionName, cfg.EmbeddingDim)
	if err != nil {
		log.Fatalf("Failed to init vector store: %v", err)
	}

	node := nodes.NewLocalRetrieverNode(retriever.NewVectorRetriever(store, embedder, cfg.RetrievalTopK))

	// Initialize Service & Handler
	svc := server.NewService(db, cfg, node, store)
	h := server.NewHandler(svc)

	// Web Server Setup
	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))

	h.RegisterRoutes(r)

	fmt.Printf("Server starting on port %s\n", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
