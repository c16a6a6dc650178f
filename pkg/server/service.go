package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/localrag/research-assistant/pkg/config"
	"github.com/localrag/research-assistant/pkg/database"
	"github.com/localrag/research-assistant/pkg/nodes"
	"github.com/localrag/research-assistant/pkg/search"
	"github.com/localrag/research-assistant/pkg/state"
	"github.com/localrag/research-assistant/pkg/vectorstore"
)

// Service exposes the research nodes over stored sessions. Each session
// holds one SummaryState; the search and retrieve endpoints produce partial
// updates that are merged into the stored state, standing in for the
// out-of-scope pipeline orchestrator.
type Service struct {
	DB         *database.PostgresDB
	Cfg        *config.Config
	Node       *nodes.LocalRetrieverNode
	DuckDuckGo *search.DuckDuckGoClient
	Perplexity *search.PerplexityClient

	// NewTavily builds a Tavily client on demand so the missing-key
	// configuration error surfaces on the Tavily path only.
	NewTavily func() (*search.TavilyClient, error)

	Sources SourceContentStore
}

// SourceContentStore lists the chunks stored for an indexed source.
type SourceContentStore interface {
	GetContentBySource(ctx context.Context, source string) ([]vectorstore.Document, error)
}

func NewService(db *database.PostgresDB, cfg *config.Config, node *nodes.LocalRetrieverNode, sources SourceContentStore) *Service {
	return &Service{
		DB:         db,
		Cfg:        cfg,
		Node:       node,
		DuckDuckGo: search.NewDuckDuckGoClient(),
		Perplexity: search.NewPerplexityClient(),
		NewTavily:  search.NewTavilyClient,
		Sources:    sources,
	}
}

// GetSourceContent returns every chunk indexed under a source identifier.
func (s *Service) GetSourceContent(ctx context.Context, source string) ([]vectorstore.Document, error) {
	return s.Sources.GetContentBySource(ctx, source)
}

type Session struct {
	ID        uuid.UUID          `json:"id"`
	Topic     string             `json:"topic"`
	State     state.SummaryState `json:"state"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}

type CreateSessionRequest struct {
	ResearchTopic string `json:"research_topic"`
}

func (s *Service) CreateSession(ctx context.Context, req CreateSessionRequest) (*Session, error) {
	st := state.NewSummaryState(req.ResearchTopic)
	stateJSON, err := json.Marshal(st)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal state: %w", err)
	}

	sessionID := uuid.New()
	query := `
		INSERT INTO research_sessions (id, topic, state)
		VALUES ($1, $2, $3)
		RETURNING id, topic, created_at, updated_at
	`

	session := &Session{State: *st}
	err = s.DB.Pool.QueryRow(ctx, query, sessionID, req.ResearchTopic, stateJSON).Scan(
		&session.ID, &session.Topic, &session.CreatedAt, &session.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return session, nil
}

func (s *Service) GetSession(ctx context.Context, id uuid.UUID) (*Session, error) {
	query := `
		SELECT id, topic, state, created_at, updated_at
		FROM research_sessions
		WHERE id = $1
	`
	session := &Session{}
	var stateJSON []byte
	err := s.DB.Pool.QueryRow(ctx, query, id).Scan(
		&session.ID, &session.Topic, &stateJSON, &session.CreatedAt, &session.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if err := json.Unmarshal(stateJSON, &session.State); err != nil {
		return nil, fmt.Errorf("failed to unmarshal state: %w", err)
	}
	return session, nil
}

func (s *Service) ListSessions(ctx context.Context) ([]Session, error) {
	query := `
		SELECT id, topic, state, created_at, updated_at
		FROM research_sessions
		ORDER BY created_at DESC
		LIMIT 50
	`
	rows, err := s.DB.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var session Session
		var stateJSON []byte
		if err := rows.Scan(&session.ID, &session.Topic, &stateJSON, &session.CreatedAt, &session.UpdatedAt); err != nil {
			continue
		}
		if err := json.Unmarshal(stateJSON, &session.State); err != nil {
			continue
		}
		sessions = append(sessions, session)
	}
	return sessions, nil
}

func (s *Service) saveState(ctx context.Context, id uuid.UUID, st *state.SummaryState) error {
	stateJSON, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}
	_, err = s.DB.Pool.Exec(ctx,
		"UPDATE research_sessions SET state = $2, updated_at = NOW() WHERE id = $1",
		id, stateJSON)
	if err != nil {
		return fmt.Errorf("failed to save state: %w", err)
	}
	return nil
}

type SearchStepRequest struct {
	Provider    string `json:"provider"`
	SearchQuery string `json:"search_query"`
}

type SearchStepResponse struct {
	Results          search.Response `json:"results"`
	FormattedSources string          `json:"formatted_sources"`
}

// RunSearchStep executes one web research step against a session: query the
// selected provider, format and deduplicate the sources, and merge the
// results into the stored state. DuckDuckGo degrades to an empty result set
// on failure; Tavily and Perplexity errors propagate.
func (s *Service) RunSearchStep(ctx context.Context, id uuid.UUID, req SearchStepRequest) (*SearchStepResponse, error) {
	session, err := s.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}

	logger := slog.New(NewDBLogHandler(s.DB, id))
	st := &session.State
	st.SearchQuery = req.SearchQuery

	var resp search.Response
	switch req.Provider {
	case "duckduckgo", "":
		// Per-request copy so the session logger does not leak across requests.
		ddg := *s.DuckDuckGo
		ddg.Logger = logger
		resp = ddg.Search(ctx, req.SearchQuery, s.Cfg.MaxSearchResults, s.Cfg.FetchFullPage)
	case "tavily":
		tavily, err := s.NewTavily()
		if err != nil {
			return nil, err
		}
		resp, err = tavily.Search(ctx, req.SearchQuery, s.Cfg.MaxSearchResults, true)
		if err != nil {
			return nil, fmt.Errorf("tavily search failed: %w", err)
		}
	case "perplexity":
		resp, err = s.Perplexity.Search(ctx, req.SearchQuery, st.ResearchLoopCount)
		if err != nil {
			return nil, fmt.Errorf("perplexity search failed: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported search provider %q", req.Provider)
	}

	formatted := search.FormatSources(resp)
	st.AddWebResults(resp, formatted)
	st.ResearchLoopCount++

	if err := s.saveState(ctx, id, st); err != nil {
		return nil, err
	}

	logger.Info("web research step completed",
		"provider", req.Provider, "query", req.SearchQuery, "results", len(resp.Results))

	return &SearchStepResponse{Results: resp, FormattedSources: formatted}, nil
}

type RetrieveStepRequest struct {
	SearchQuery string `json:"search_query"`
}

// RunRetrieveStep executes the local retriever node against a session and
// merges the returned context into the stored state.
func (s *Service) RunRetrieveStep(ctx context.Context, id uuid.UUID, req RetrieveStepRequest) (nodes.LocalContextUpdate, error) {
	session, err := s.GetSession(ctx, id)
	if err != nil {
		return nodes.LocalContextUpdate{}, err
	}

	st := &session.State
	if req.SearchQuery != "" {
		st.SearchQuery = req.SearchQuery
	}

	node := *s.Node
	node.Logger = slog.New(NewDBLogHandler(s.DB, id))
	update := node.Invoke(ctx, st)

	st.LocalContext = update.LocalContext
	if err := s.saveState(ctx, id, st); err != nil {
		return nodes.LocalContextUpdate{}, err
	}

	return update, nil
}

type LogEntry struct {
	ID        int             `json:"id"`
	Timestamp time.Time       `json:"timestamp"`
	Level     string          `json:"level"`
	Message   string          `json:"message"`
	Metadata  json.RawMessage `json:"metadata"`
}

func (s *Service) GetSessionLogs(ctx context.Context, sessionID uuid.UUID) ([]LogEntry, error) {
	query := `
		SELECT id, timestamp, level, message, metadata
		FROM session_logs
		WHERE session_id = $1
		ORDER BY id ASC
	`
	rows, err := s.DB.Pool.Query(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get logs: %w", err)
	}
	defer rows.Close()

	var logs []LogEntry
	for rows.Next() {
		var l LogEntry
		if err := rows.Scan(&l.ID, &l.Timestamp, &l.Level, &l.Message, &l.Metadata); err != nil {
			continue
		}
		logs = append(logs, l)
	}
	return logs, nil
}
