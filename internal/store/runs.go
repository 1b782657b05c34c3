package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const runColumns = `id, created_at, deleted_at, kind, tier, pattern, corpus, session, config,
	records, matched, results, rows_listed, skipped`

// SaveRun stores a finished run and its results.
func (s *SQLiteStore) SaveRun(ctx context.Context, p SaveRunParams) (*Run, error) {
	now := time.Now().UTC()
	run := &Run{
		ID:        s.newID(),
		CreatedAt: now,
		Kind:      p.Kind,
		Tier:      p.Tier,
		Pattern:   p.Pattern,
		Corpus:    p.Corpus,
		Session:   p.Session,
		Config:    p.Config,
		RunCounts: p.Counts,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO query_runs (id, created_at, kind, tier, pattern, corpus, session, config,
		                         records, matched, results, rows_listed, skipped)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, now.Format(time.RFC3339), run.Kind, run.Tier, run.Pattern,
		nullable(run.Corpus), nullable(run.Session), nullable(run.Config),
		run.Records, run.Matched, run.Results, run.Rows, run.Skipped)
	if err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}

	for i, r := range p.Results {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO query_results (run_id, seq, record_id, record_index, result_schema, tier,
			                            group_index, range_start, range_end, value)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			run.ID, i, nullable(r.RecordID), r.RecordIndex, r.Schema, r.Tier,
			r.GroupIndex, r.Range.Start, r.Range.End, r.Value)
		if err != nil {
			return nil, fmt.Errorf("insert result: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return run, nil
}

// ListRuns lists runs that are not deleted, newest first.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM query_runs WHERE deleted_at IS NULL
		 ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// GetRun loads a run and its results in match order.
func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*Run, []StoredResult, error) {
	run, err := scanRun(s.db.QueryRowContext(ctx,
		`SELECT `+runColumns+` FROM query_runs WHERE id = ? AND deleted_at IS NULL`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+resultColumns+`
		 FROM query_results q LEFT JOIN records r ON r.id = q.record_id
		 WHERE q.run_id = ? ORDER BY q.seq`, id)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var results []StoredResult
	for rows.Next() {
		r, err := scanResult(rows)
		if err != nil {
			return nil, nil, err
		}
		results = append(results, r)
	}
	return &run, results, rows.Err()
}

// RmRun soft-deletes a run, or removes it with its results when Hard is set.
func (s *SQLiteStore) RmRun(ctx context.Context, p RmRunParams) error {
	var res sql.Result
	var err error
	if p.Hard {
		res, err = s.db.ExecContext(ctx, `DELETE FROM query_runs WHERE id = ?`, p.ID)
	} else {
		now := time.Now().UTC().Format(time.RFC3339)
		res, err = s.db.ExecContext(ctx,
			`UPDATE query_runs SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`, now, p.ID)
	}
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("run %s: %w", p.ID, ErrNotFound)
	}
	return nil
}

func scanRun(row scanner) (Run, error) {
	var r Run
	var createdAt string
	var deletedAt, corpus, session, config sql.NullString
	err := row.Scan(&r.ID, &createdAt, &deletedAt, &r.Kind, &r.Tier, &r.Pattern,
		&corpus, &session, &config,
		&r.Records, &r.Matched, &r.Results, &r.Rows, &r.Skipped)
	if err != nil {
		return r, err
	}
	r.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	r.DeletedAt = parseTime(deletedAt)
	r.Corpus = corpus.String
	r.Session = session.String
	r.Config = config.String
	return r, nil
}

const resultColumns = `q.run_id, q.record_id, r.speaker, q.record_index, q.result_schema, q.tier,
	q.group_index, q.range_start, q.range_end, q.value`

func scanResult(row scanner) (StoredResult, error) {
	var r StoredResult
	var recordID, speaker sql.NullString
	err := row.Scan(&r.RunID, &recordID, &speaker, &r.RecordIndex, &r.Schema, &r.Tier,
		&r.GroupIndex, &r.Range.Start, &r.Range.End, &r.Value)
	r.RecordID = recordID.String
	r.Speaker = speaker.String
	return r, err
}

// Ensure SQLiteStore implements Store.
var _ Store = (*SQLiteStore)(nil)
