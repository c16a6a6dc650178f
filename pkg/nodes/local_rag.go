// Package nodes contains the individual callable pipeline steps. Each node
// takes the shared summary state and returns a partial update for the caller
// to merge; the pipeline graph itself lives outside this repository.
package nodes

import (
	"context"
	"log/slog"
	"strings"

	"github.com/localrag/research-assistant/pkg/state"
)

// Document is a retrieved passage. Only the page content is read.
type Document struct {
	PageContent string
}

// Retriever is the local retrieval capability the node queries. It is
// constructed once by the caller and reused for the process lifetime.
type Retriever interface {
	Invoke(ctx context.Context, query string) ([]Document, error)
}

// LocalContextUpdate is the partial state update returned by the node.
type LocalContextUpdate struct {
	LocalContext string `json:"local_context"`
}

// LocalRetrieverNode queries the local retriever with the state's search
// query and returns the concatenated passage text. Retrieval failures are
// recovered locally to an empty context and never propagate.
type LocalRetrieverNode struct {
	Retriever Retriever
	Logger    *slog.Logger
}

func NewLocalRetrieverNode(retriever Retriever) *LocalRetrieverNode {
	return &LocalRetrieverNode{
		Retriever: retriever,
		Logger:    slog.Default(),
	}
}

// Invoke runs the node against the given state.
func (n *LocalRetrieverNode) Invoke(ctx context.Context, s *state.SummaryState) LocalContextUpdate {
	query := s.SearchQuery
	if query == "" {
		n.Logger.Info("no query found in state, returning empty context")
		return LocalContextUpdate{LocalContext: ""}
	}

	n.Logger.Info("searching local retriever", "query", query)

	docs, err := n.Retriever.Invoke(ctx, query)
	if err != nil {
		n.Logger.Error("local retrieval failed", "query", query, "error", err)
		return LocalContextUpdate{LocalContext: ""}
	}

	contents := make([]string, 0, len(docs))
	for _, doc := range docs {
		contents = append(contents, doc.PageContent)
	}
	combined := strings.Join(contents, "\n\n")

	n.Logger.Info("local retrieval complete", "documents", len(docs), "context_length", len(combined))
	return LocalContextUpdate{LocalContext: combined}
}
