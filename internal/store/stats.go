package store

import (
	"context"
	"os"
)

// Stats holds database statistics.
type Stats struct {
	DBPath      string    `json:"db_path"`
	DBSizeBytes int64     `json:"db_size_bytes"`
	Records     int       `json:"records"`
	Groups      int       `json:"groups"`
	TextGrids   int       `json:"textgrids"`
	TotalRuns   int       `json:"total_runs"`
	ActiveRuns  int       `json:"active_runs"`
	Results     int       `json:"results"`
	Sessions    []Session `json:"sessions"`
}

// Stats returns database statistics.
func (s *SQLiteStore) Stats(ctx context.Context, dbPath string) (*Stats, error) {
	st := &Stats{DBPath: dbPath}

	// DB file size
	if info, err := os.Stat(dbPath); err == nil {
		st.DBSizeBytes = info.Size()
	}

	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM records`).Scan(&st.Records)
	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM record_groups`).Scan(&st.Groups)
	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM textgrids`).Scan(&st.TextGrids)
	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM query_runs`).Scan(&st.TotalRuns)
	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM query_runs WHERE deleted_at IS NULL`).Scan(&st.ActiveRuns)
	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM query_results`).Scan(&st.Results)

	sessions, err := s.Sessions(ctx)
	if err != nil {
		return st, err
	}
	st.Sessions = sessions
	return st, nil
}
