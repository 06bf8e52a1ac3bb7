package store

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/caresbot/caresbot/internal/core"
	"github.com/caresbot/caresbot/internal/policy"
)

// Row is one result row, column name to rendered value.
type Row map[string]string

// ExecuteQuery runs a policy-validated structured query. It only accepts
// *policy.Query, and the engine is the single producer of those, so every
// query reaching SQLite has passed the allow-lists and carries the injected
// customer scope. Driver failures surface as ErrBackendUnavailable.
func (db *DB) ExecuteQuery(ctx context.Context, q *policy.Query) ([]Row, error) {
	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(strings.Join(q.Columns, ", "))
	sb.WriteString(" FROM ")
	sb.WriteString(q.Entity)

	args := make([]interface{}, 0, len(q.Filters))
	if len(q.Filters) > 0 {
		sb.WriteString(" WHERE ")
		for i, f := range q.Filters {
			if i > 0 {
				sb.WriteString(" AND ")
			}
			sb.WriteString(f.Column)
			sb.WriteString(" ")
			sb.WriteString(f.Op)
			sb.WriteString(" ?")
			args = append(args, f.Value)
		}
	}
	fmt.Fprintf(&sb, " LIMIT %d", q.Limit)

	rows, err := db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrBackendUnavailable, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrBackendUnavailable, err)
	}

	var out []Row
	for rows.Next() {
		values := make([]interface{}, len(cols))
		ptrs := make([]interface{}, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("%w: %v", core.ErrBackendUnavailable, err)
		}
		row := make(Row, len(cols))
		for i, c := range cols {
			row[c] = renderValue(values[i])
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrBackendUnavailable, err)
	}
	return out, nil
}

func renderValue(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case []byte:
		return string(x)
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case time.Time:
		return x.Format("2006-01-02 15:04:05")
	default:
		return fmt.Sprintf("%v", x)
	}
}
