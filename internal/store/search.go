package store

import (
	"context"
	"fmt"
	"strings"
)

// SearchParams holds parameters for searching saved results.
type SearchParams struct {
	Value   string // substring of the matched text
	Tier    string
	Speaker string
	Session string
	Limit   int
}

// SearchResults finds saved matches across runs that are not deleted,
// newest run first.
func (s *SQLiteStore) SearchResults(ctx context.Context, p SearchParams) ([]StoredResult, error) {
	limit := p.Limit
	if limit <= 0 {
		limit = 50
	}

	where := []string{"run.deleted_at IS NULL"}
	var args []interface{}
	if p.Value != "" {
		where = append(where, "q.value LIKE ? ESCAPE '\\'")
		args = append(args, "%"+escapeLike(p.Value)+"%")
	}
	if p.Tier != "" {
		where = append(where, "q.tier = ? COLLATE NOCASE")
		args = append(args, p.Tier)
	}
	if p.Speaker != "" {
		where = append(where, "r.speaker = ? COLLATE NOCASE")
		args = append(args, p.Speaker)
	}
	if p.Session != "" {
		where = append(where, "r.session = ?")
		args = append(args, p.Session)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM query_results q
		INNER JOIN query_runs run ON run.id = q.run_id
		LEFT JOIN records r ON r.id = q.record_id
		WHERE %s
		ORDER BY run.created_at DESC, q.run_id DESC, q.seq
		LIMIT ?`, resultColumns, strings.Join(where, " AND "))
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []StoredResult
	for rows.Next() {
		r, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
