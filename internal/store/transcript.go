package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/caresbot/caresbot/internal/core"
)

// TranscriptEntry is one persisted conversation turn. The in-memory session
// store stays authoritative for the context window; the transcript is an
// audit log.
type TranscriptEntry struct {
	ID         int64     `json:"id"`
	SessionID  string    `json:"session_id"`
	CustomerID string    `json:"customer_id"`
	Role       string    `json:"role"`
	Content    string    `json:"content"`
	ToolName   string    `json:"tool_name,omitempty"`
	ToolArgs   string    `json:"tool_args,omitempty"`
	ToolCallID string    `json:"tool_call_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// AppendTranscript persists a turn.
func (db *DB) AppendTranscript(ctx context.Context, sessionID, customerID string, turn core.Turn) (int64, error) {
	var toolName, toolArgs, toolCallID string
	if turn.Tool != nil {
		toolName = turn.Tool.Name
		toolArgs = turn.Tool.Arguments
		toolCallID = turn.Tool.CallID
	}
	res, err := db.ExecContext(ctx,
		`INSERT INTO transcript (session_id, customer_id, role, content, tool_name, tool_args, tool_call_id) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sessionID, customerID, turn.Role, turn.Content, toolName, toolArgs, toolCallID,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// SessionTranscript returns a session's persisted turns in insertion order.
func (db *DB) SessionTranscript(ctx context.Context, sessionID string) ([]TranscriptEntry, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, session_id, customer_id, role, content, tool_name, tool_args, tool_call_id, created_at
		 FROM transcript WHERE session_id = ? ORDER BY id ASC`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []TranscriptEntry
	for rows.Next() {
		var e TranscriptEntry
		var toolName, toolArgs, toolCallID sql.NullString
		if err := rows.Scan(&e.ID, &e.SessionID, &e.CustomerID, &e.Role, &e.Content, &toolName, &toolArgs, &toolCallID, &e.CreatedAt); err != nil {
			return nil, err
		}
		if toolName.Valid {
			e.ToolName = toolName.String
		}
		if toolArgs.Valid {
			e.ToolArgs = toolArgs.String
		}
		if toolCallID.Valid {
			e.ToolCallID = toolCallID.String
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
