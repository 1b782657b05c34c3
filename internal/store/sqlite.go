package store

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"github.com/rcliao/speech-query/internal/model"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB

	mu      sync.Mutex
	entropy io.Reader
}

// NewSQLiteStore opens or creates a SQLite database at the given path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=foreign_keys(on)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	s := &SQLiteStore{
		db:      db,
		entropy: ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0),
	}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

// newID returns a ULID. IDs created by one store sort in creation order.
func (s *SQLiteStore) newID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), s.entropy).String()
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS records (
		id          TEXT PRIMARY KEY,
		corpus      TEXT NOT NULL,
		session     TEXT NOT NULL,
		idx         INTEGER NOT NULL,
		speaker     TEXT,
		media       TEXT,
		created_at  TEXT NOT NULL
	);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_records_session ON records(corpus, session, idx);
	CREATE INDEX IF NOT EXISTS idx_records_speaker ON records(speaker);

	CREATE TABLE IF NOT EXISTS record_segments (
		record_id   TEXT NOT NULL REFERENCES records(id) ON DELETE CASCADE,
		seq         INTEGER NOT NULL,
		start_ms    INTEGER NOT NULL,
		end_ms      INTEGER NOT NULL,
		PRIMARY KEY (record_id, seq)
	);

	CREATE TABLE IF NOT EXISTS record_groups (
		record_id   TEXT NOT NULL REFERENCES records(id) ON DELETE CASCADE,
		idx         INTEGER NOT NULL,
		target      TEXT NOT NULL,
		actual      TEXT NOT NULL,
		PRIMARY KEY (record_id, idx)
	);

	CREATE TABLE IF NOT EXISTS textgrids (
		id          TEXT PRIMARY KEY,
		corpus      TEXT NOT NULL,
		session     TEXT NOT NULL,
		name        TEXT NOT NULL,
		xmin        REAL NOT NULL,
		xmax        REAL NOT NULL,
		digest      TEXT NOT NULL,
		created_at  TEXT NOT NULL
	);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_textgrids_name ON textgrids(corpus, session, name);

	CREATE TABLE IF NOT EXISTS textgrid_tiers (
		textgrid_id TEXT NOT NULL REFERENCES textgrids(id) ON DELETE CASCADE,
		seq         INTEGER NOT NULL,
		name        TEXT NOT NULL,
		class       TEXT NOT NULL,
		xmin        REAL NOT NULL,
		xmax        REAL NOT NULL,
		PRIMARY KEY (textgrid_id, seq)
	);

	CREATE TABLE IF NOT EXISTS textgrid_intervals (
		textgrid_id TEXT NOT NULL REFERENCES textgrids(id) ON DELETE CASCADE,
		tier_seq    INTEGER NOT NULL,
		seq         INTEGER NOT NULL,
		xmin        REAL NOT NULL,
		xmax        REAL NOT NULL,
		text        TEXT NOT NULL,
		PRIMARY KEY (textgrid_id, tier_seq, seq)
	);

	CREATE TABLE IF NOT EXISTS query_runs (
		id          TEXT PRIMARY KEY,
		created_at  TEXT NOT NULL,
		deleted_at  TEXT,
		kind        TEXT NOT NULL,
		tier        TEXT NOT NULL,
		pattern     TEXT NOT NULL,
		corpus      TEXT,
		session     TEXT,
		config      TEXT,
		records     INTEGER NOT NULL DEFAULT 0,
		matched     INTEGER NOT NULL DEFAULT 0,
		results     INTEGER NOT NULL DEFAULT 0,
		rows_listed INTEGER NOT NULL DEFAULT 0,
		skipped     INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_runs_created ON query_runs(created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_runs_deleted ON query_runs(deleted_at);

	CREATE TABLE IF NOT EXISTS query_results (
		run_id       TEXT NOT NULL REFERENCES query_runs(id) ON DELETE CASCADE,
		seq          INTEGER NOT NULL,
		record_id    TEXT,
		record_index INTEGER NOT NULL,
		result_schema TEXT NOT NULL,
		tier         TEXT NOT NULL,
		group_index  INTEGER NOT NULL,
		range_start  INTEGER NOT NULL,
		range_end    INTEGER NOT NULL,
		value        TEXT NOT NULL,
		PRIMARY KEY (run_id, seq)
	);
	CREATE INDEX IF NOT EXISTS idx_results_value ON query_results(value);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Records loads the records matching p, ordered by corpus, session and
// position in the session.
func (s *SQLiteStore) Records(ctx context.Context, p RecordsParams) ([]*model.Record, error) {
	var where []string
	var args []interface{}
	if p.Corpus != "" {
		where = append(where, "corpus = ?")
		args = append(args, p.Corpus)
	}
	if p.Session != "" {
		where = append(where, "session = ?")
		args = append(args, p.Session)
	}
	if p.Speaker != "" {
		where = append(where, "speaker = ? COLLATE NOCASE")
		args = append(args, p.Speaker)
	}
	cond := "1 = 1"
	if len(where) > 0 {
		cond = strings.Join(where, " AND ")
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, corpus, session, idx, speaker, media FROM records WHERE `+cond+`
		 ORDER BY corpus, session, idx`, args...)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var records []*model.Record
	byID := map[string]*model.Record{}
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
		byID[r.ID] = r
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}

	segRows, err := s.db.QueryContext(ctx,
		`SELECT record_id, start_ms, end_ms FROM record_segments
		 WHERE record_id IN (SELECT id FROM records WHERE `+cond+`)
		 ORDER BY record_id, seq`, args...)
	if err != nil {
		return nil, fmt.Errorf("query segments: %w", err)
	}
	defer segRows.Close()
	for segRows.Next() {
		var id string
		var seg model.Segment
		if err := segRows.Scan(&id, &seg.StartMs, &seg.EndMs); err != nil {
			return nil, err
		}
		if r := byID[id]; r != nil {
			r.Segments = append(r.Segments, seg)
		}
	}
	if err := segRows.Err(); err != nil {
		return nil, err
	}

	groupRows, err := s.db.QueryContext(ctx,
		`SELECT record_id, idx, target, actual FROM record_groups
		 WHERE record_id IN (SELECT id FROM records WHERE `+cond+`)
		 ORDER BY record_id, idx`, args...)
	if err != nil {
		return nil, fmt.Errorf("query groups: %w", err)
	}
	defer groupRows.Close()
	for groupRows.Next() {
		var id, target, actual string
		var idx int
		if err := groupRows.Scan(&id, &idx, &target, &actual); err != nil {
			return nil, err
		}
		if r := byID[id]; r != nil {
			r.Groups = append(r.Groups, model.NewGroup(idx, target, actual))
		}
	}
	return records, groupRows.Err()
}

// Sessions lists imported sessions with their record and TextGrid counts.
func (s *SQLiteStore) Sessions(ctx context.Context) ([]Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.corpus, r.session, COUNT(*), COUNT(DISTINCT r.speaker),
		       (SELECT COUNT(*) FROM textgrids t WHERE t.corpus = r.corpus AND t.session = r.session)
		FROM records r
		GROUP BY r.corpus, r.session
		ORDER BY r.corpus, r.session`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var ss Session
		if err := rows.Scan(&ss.Corpus, &ss.Name, &ss.Records, &ss.Speakers, &ss.TextGrids); err != nil {
			return nil, err
		}
		sessions = append(sessions, ss)
	}
	return sessions, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row scanner) (*model.Record, error) {
	r := &model.Record{}
	var speaker, media sql.NullString
	if err := row.Scan(&r.ID, &r.Corpus, &r.Session, &r.Index, &speaker, &media); err != nil {
		return nil, err
	}
	r.Speaker = speaker.String
	r.Media = media.String
	return r, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func parseTime(s sql.NullString) *time.Time {
	if !s.Valid {
		return nil
	}
	t, _ := time.Parse(time.RFC3339, s.String)
	return &t
}
