package server

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"

	"github.com/localrag/research-assistant/pkg/database"
)

// DBLogHandler is a slog.Handler that persists records for one research
// session into the session_logs table.
type DBLogHandler struct {
	DB        *database.PostgresDB
	SessionID uuid.UUID
}

func NewDBLogHandler(db *database.PostgresDB, sessionID uuid.UUID) *DBLogHandler {
	return &DBLogHandler{
		DB:        db,
		SessionID: sessionID,
	}
}

func (h *DBLogHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return true
}

func (h *DBLogHandler) Handle(ctx context.Context, r slog.Record) error {
	attrs := make(map[string]interface{})
	r.Attrs(func(a slog.Attr) bool {
		attrs[a.Key] = a.Value.Any()
		return true
	})

	metaJSON, err := json.Marshal(attrs)
	if err != nil {
		metaJSON = []byte("{}")
	}

	query := `
		INSERT INTO session_logs (session_id, timestamp, level, message, metadata)
		VALUES ($1, $2, $3, $4, $5)
	`

	// Background context so log rows survive request cancellation.
	_, err = h.DB.Pool.Exec(context.Background(), query, h.SessionID, r.Time, r.Level.String(), r.Message, metaJSON)
	return err
}

func (h *DBLogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	// Attribute chaining is not needed for the session log; records carry
	// their own attrs.
	return h
}

func (h *DBLogHandler) WithGroup(name string) slog.Handler {
	return h
}
