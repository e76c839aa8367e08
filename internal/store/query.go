package store

import (
	"context"
)

// Diagnostic query defaults.
const (
	DefaultQueryField = "__typename"
	DefaultQuerySQL   = "select * from items"
)

// DiagnosticQuery is an ad hoc statement run against one shard.
type DiagnosticQuery struct {
	Field      string `json:"fieldname,omitempty"`
	SQL        string `json:"sql,omitempty"`
	Parameters []any  `json:"parameters,omitempty"`
}

// Row is one result row keyed by column name. Text and blob columns are
// returned as strings.
type Row map[string]any

// Query runs q against its shard through a read-only handle and returns
// every row. Empty Field and SQL fall back to DefaultQueryField and
// DefaultQuerySQL.
func (s *Store) Query(ctx context.Context, q DiagnosticQuery) ([]Row, error) {
	if q.Field == "" {
		q.Field = DefaultQueryField
	}
	if q.SQL == "" {
		q.SQL = DefaultQuerySQL
	}

	sh, err := s.Open(ctx, q.Field, ReadOnly)
	if err != nil {
		return nil, err
	}
	defer sh.Close()

	rows, err := sh.db.QueryContext(ctx, q.SQL, q.Parameters...)
	if err != nil {
		return nil, storageErr("query", sh.field, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, storageErr("query", sh.field, err)
	}

	out := []Row{}
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, storageErr("query", sh.field, err)
		}

		row := make(Row, len(cols))
		for i, col := range cols {
			if b, ok := vals[i].([]byte); ok {
				row[col] = string(b)
				continue
			}
			row[col] = vals[i]
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("query", sh.field, err)
	}
	return out, nil
}
