package store

import (
	"context"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"lukechampine.com/blake3"

	"github.com/rcliao/speech-query/internal/model"
	"github.com/rcliao/speech-query/internal/textgrid"
)

// Digest returns the blake3 digest of tg in its long text form.
func Digest(tg *textgrid.TextGrid) (string, error) {
	h := blake3.New(32, nil)
	if err := textgrid.Write(h, tg); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// PutTextGrid stores tg under its session and name, replacing a TextGrid of
// the same name. Storing identical content again is a no-op.
func (s *SQLiteStore) PutTextGrid(ctx context.Context, p PutTextGridParams) (*TextGridInfo, error) {
	if p.Grid == nil {
		return nil, fmt.Errorf("no textgrid")
	}
	name := p.Name
	if name == "" {
		name = p.Session
	}
	digest, err := Digest(p.Grid)
	if err != nil {
		return nil, fmt.Errorf("digest textgrid: %w", err)
	}
	now := time.Now().UTC()
	info := &TextGridInfo{
		Corpus: p.Corpus, Session: p.Session, Name: name,
		Tiers: len(p.Grid.Tiers), XMin: p.Grid.XMin, XMax: p.Grid.XMax,
		Digest: digest, CreatedAt: now,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var prevID, prevDigest, createdAt string
	err = tx.QueryRowContext(ctx,
		`SELECT id, digest, created_at FROM textgrids WHERE corpus = ? AND session = ? AND name = ?`,
		p.Corpus, p.Session, name).Scan(&prevID, &prevDigest, &createdAt)
	switch {
	case err == nil && prevDigest == digest:
		info.ID = prevID
		info.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		info.Unchanged = true
		return info, nil
	case err == nil:
		if _, err := tx.ExecContext(ctx, `DELETE FROM textgrids WHERE id = ?`, prevID); err != nil {
			return nil, fmt.Errorf("replace textgrid: %w", err)
		}
	case !errors.Is(err, sql.ErrNoRows):
		return nil, err
	}

	info.ID = s.newID()
	_, err = tx.ExecContext(ctx,
		`INSERT INTO textgrids (id, corpus, session, name, xmin, xmax, digest, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		info.ID, p.Corpus, p.Session, name, p.Grid.XMin, p.Grid.XMax, digest, now.Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("insert textgrid: %w", err)
	}

	for i, t := range p.Grid.Tiers {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO textgrid_tiers (textgrid_id, seq, name, class, xmin, xmax) VALUES (?, ?, ?, ?, ?, ?)`,
			info.ID, i, t.Name, t.Class, t.XMin, t.XMax)
		if err != nil {
			return nil, fmt.Errorf("insert tier %q: %w", t.Name, err)
		}
		for j, iv := range t.Intervals {
			if err := insertInterval(ctx, tx, info.ID, i, j, iv.XMin, iv.XMax, iv.Text); err != nil {
				return nil, err
			}
		}
		for j, pt := range t.Points {
			if err := insertInterval(ctx, tx, info.ID, i, j, pt.Time, pt.Time, pt.Mark); err != nil {
				return nil, err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return info, nil
}

func insertInterval(ctx context.Context, tx *sql.Tx, id string, tier, seq int, xmin, xmax float64, text string) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO textgrid_intervals (textgrid_id, tier_seq, seq, xmin, xmax, text) VALUES (?, ?, ?, ?, ?, ?)`,
		id, tier, seq, xmin, xmax, text)
	if err != nil {
		return fmt.Errorf("insert interval: %w", err)
	}
	return nil
}

// GetTextGrid loads a session TextGrid by name. An empty name selects the
// TextGrid named after the session, else the most recently stored one.
func (s *SQLiteStore) GetTextGrid(ctx context.Context, corpus, session, name string) (*textgrid.TextGrid, error) {
	id, err := s.resolveTextGridID(ctx, corpus, session, name)
	if err != nil {
		return nil, err
	}

	tg := &textgrid.TextGrid{}
	err = s.db.QueryRowContext(ctx, `SELECT xmin, xmax FROM textgrids WHERE id = ?`, id).Scan(&tg.XMin, &tg.XMax)
	if err != nil {
		return nil, err
	}

	tierRows, err := s.db.QueryContext(ctx,
		`SELECT name, class, xmin, xmax FROM textgrid_tiers WHERE textgrid_id = ? ORDER BY seq`, id)
	if err != nil {
		return nil, err
	}
	defer tierRows.Close()
	for tierRows.Next() {
		t := &textgrid.Tier{}
		if err := tierRows.Scan(&t.Name, &t.Class, &t.XMin, &t.XMax); err != nil {
			return nil, err
		}
		tg.Tiers = append(tg.Tiers, t)
	}
	if err := tierRows.Err(); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT tier_seq, xmin, xmax, text FROM textgrid_intervals
		 WHERE textgrid_id = ? ORDER BY tier_seq, seq`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var seq int
		var xmin, xmax float64
		var text string
		if err := rows.Scan(&seq, &xmin, &xmax, &text); err != nil {
			return nil, err
		}
		if seq < 0 || seq >= len(tg.Tiers) {
			return nil, fmt.Errorf("textgrid %s: interval of unknown tier %d", id, seq)
		}
		t := tg.Tiers[seq]
		if t.IsInterval() {
			t.Intervals = append(t.Intervals, textgrid.Interval{XMin: xmin, XMax: xmax, Text: text})
		} else {
			t.Points = append(t.Points, textgrid.Point{Time: xmin, Mark: text})
		}
	}
	return tg, rows.Err()
}

// TextGrids lists the TextGrids stored for a session, newest first.
func (s *SQLiteStore) TextGrids(ctx context.Context, corpus, session string) ([]TextGridInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.id, t.corpus, t.session, t.name, t.xmin, t.xmax, t.digest, t.created_at,
		       (SELECT COUNT(*) FROM textgrid_tiers tt WHERE tt.textgrid_id = t.id)
		FROM textgrids t
		WHERE t.corpus = ? AND t.session = ?
		ORDER BY t.created_at DESC, t.id DESC`, corpus, session)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TextGridInfo
	for rows.Next() {
		var info TextGridInfo
		var createdAt string
		if err := rows.Scan(&info.ID, &info.Corpus, &info.Session, &info.Name,
			&info.XMin, &info.XMax, &info.Digest, &createdAt, &info.Tiers); err != nil {
			return nil, err
		}
		info.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		out = append(out, info)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) resolveTextGridID(ctx context.Context, corpus, session, name string) (string, error) {
	var id string
	if name == "" {
		err := s.db.QueryRowContext(ctx,
			`SELECT id FROM textgrids WHERE corpus = ? AND session = ?
			 ORDER BY name = ? DESC, created_at DESC, id DESC LIMIT 1`,
			corpus, session, session).Scan(&id)
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("textgrid for %s/%s: %w", corpus, session, ErrNotFound)
		}
		return id, err
	}
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM textgrids WHERE corpus = ? AND session = ? AND name = ?`,
		corpus, session, name).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("textgrid %q for %s/%s: %w", name, corpus, session, ErrNotFound)
	}
	return id, err
}

// AnnotationSource serves session TextGrids to a query run. Grids are
// loaded once per session.
type AnnotationSource struct {
	Store *SQLiteStore
	Name  string // empty selects the session default

	mu    sync.Mutex
	grids map[string]*textgrid.TextGrid
}

// LoadAnnotation returns the TextGrid of rec's session, or nil when the
// session has none.
func (a *AnnotationSource) LoadAnnotation(ctx context.Context, rec *model.Record) (*textgrid.TextGrid, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	key := rec.Corpus + "\x00" + rec.Session
	if tg, ok := a.grids[key]; ok {
		return tg, nil
	}
	tg, err := a.Store.GetTextGrid(ctx, rec.Corpus, rec.Session, a.Name)
	switch {
	case errors.Is(err, ErrNotFound):
		tg = nil
	case err != nil:
		return nil, err
	}
	if a.grids == nil {
		a.grids = make(map[string]*textgrid.TextGrid)
	}
	a.grids[key] = tg
	return tg, nil
}
