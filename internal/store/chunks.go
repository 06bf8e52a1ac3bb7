package store

import (
	"context"
	"database/sql"
)

// PolicyChunk is one passage of policy text with its optional embedding
// (JSON-encoded []float32).
type PolicyChunk struct {
	ID        int64
	Content   string
	Embedding []byte
	Source    string
}

// InsertPolicyChunk stores a passage.
func (db *DB) InsertPolicyChunk(ctx context.Context, content string, embedding []byte, source string) (int64, error) {
	res, err := db.ExecContext(ctx,
		`INSERT INTO policy_chunks (content, embedding, source) VALUES (?, ?, ?)`,
		content, embedding, source,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// AllPolicyChunks returns the whole collection. The collection is small
// (one policy document) so retrieval scores it in memory.
func (db *DB) AllPolicyChunks(ctx context.Context) ([]PolicyChunk, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, content, embedding, source FROM policy_chunks ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []PolicyChunk
	for rows.Next() {
		var c PolicyChunk
		var embedding []byte
		var source sql.NullString
		if err := rows.Scan(&c.ID, &c.Content, &embedding, &source); err != nil {
			return nil, err
		}
		c.Embedding = embedding
		if source.Valid {
			c.Source = source.String
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// CountPolicyChunks returns the collection size.
func (db *DB) CountPolicyChunks(ctx context.Context) (int, error) {
	var n int
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM policy_chunks`).Scan(&n)
	return n, err
}
