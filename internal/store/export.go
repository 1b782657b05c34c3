package store

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rcliao/speech-query/internal/model"
)

// Corpus is the interchange form of one session's records.
type Corpus struct {
	Corpus  string         `json:"corpus"`
	Session string         `json:"session"`
	Media   string         `json:"media,omitempty"`
	Records []CorpusRecord `json:"records"`
}

// CorpusRecord is one record of a Corpus. Media overrides the session media.
type CorpusRecord struct {
	Speaker  string          `json:"speaker,omitempty"`
	Media    string          `json:"media,omitempty"`
	Segments []model.Segment `json:"segments,omitempty"`
	Groups   []CorpusGroup   `json:"groups"`
}

// CorpusGroup holds the two transcriptions of a group.
type CorpusGroup struct {
	Target string `json:"target"`
	Actual string `json:"actual"`
}

// ImportResult reports what ImportCorpus stored.
type ImportResult struct {
	Corpus   string `json:"corpus"`
	Session  string `json:"session"`
	Records  int    `json:"records"`
	Groups   int    `json:"groups"`
	Replaced int    `json:"replaced"`
}

// DecodeCorpus reads a Corpus from JSON.
func DecodeCorpus(r io.Reader) (*Corpus, error) {
	var c Corpus
	if err := json.NewDecoder(r).Decode(&c); err != nil {
		return nil, fmt.Errorf("decode corpus: %w", err)
	}
	return &c, nil
}

// ImportCorpus stores the records of c. Records already imported for the
// same corpus and session are replaced.
func (s *SQLiteStore) ImportCorpus(ctx context.Context, c *Corpus) (*ImportResult, error) {
	if strings.TrimSpace(c.Corpus) == "" || strings.TrimSpace(c.Session) == "" {
		return nil, fmt.Errorf("corpus and session are required")
	}
	now := time.Now().UTC().Format(time.RFC3339)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	res := &ImportResult{Corpus: c.Corpus, Session: c.Session}
	del, err := tx.ExecContext(ctx, `DELETE FROM records WHERE corpus = ? AND session = ?`, c.Corpus, c.Session)
	if err != nil {
		return nil, fmt.Errorf("replace session: %w", err)
	}
	if n, err := del.RowsAffected(); err == nil {
		res.Replaced = int(n)
	}

	for i, cr := range c.Records {
		id := s.newID()
		media := cr.Media
		if media == "" {
			media = c.Media
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO records (id, corpus, session, idx, speaker, media, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			id, c.Corpus, c.Session, i, nullable(cr.Speaker), nullable(media), now)
		if err != nil {
			return nil, fmt.Errorf("insert record %d: %w", i+1, err)
		}
		for j, seg := range cr.Segments {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO record_segments (record_id, seq, start_ms, end_ms) VALUES (?, ?, ?, ?)`,
				id, j, seg.StartMs, seg.EndMs)
			if err != nil {
				return nil, fmt.Errorf("insert segment: %w", err)
			}
		}
		for j, g := range cr.Groups {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO record_groups (record_id, idx, target, actual) VALUES (?, ?, ?, ?)`,
				id, j, g.Target, g.Actual)
			if err != nil {
				return nil, fmt.Errorf("insert group: %w", err)
			}
			res.Groups++
		}
		res.Records++
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return res, nil
}

// ExportCorpus returns the records of a session in interchange form.
func (s *SQLiteStore) ExportCorpus(ctx context.Context, corpus, session string) (*Corpus, error) {
	records, err := s.Records(ctx, RecordsParams{Corpus: corpus, Session: session})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("session %s/%s: %w", corpus, session, ErrNotFound)
	}

	c := &Corpus{Corpus: corpus, Session: session}
	for _, r := range records {
		cr := CorpusRecord{Speaker: r.Speaker, Media: r.Media, Segments: r.Segments}
		for _, g := range r.Groups {
			cr.Groups = append(cr.Groups, CorpusGroup{Target: g.Target.Text, Actual: g.Actual.Text})
		}
		c.Records = append(c.Records, cr)
	}
	return c, nil
}
