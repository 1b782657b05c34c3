// Package app runs configured queries against the corpus store. It is shared
// by the command line and the MCP server.
package app

import (
	"context"
	"fmt"
	"io"
	"log"

	"gopkg.in/yaml.v3"

	"github.com/rcliao/speech-query/internal/config"
	"github.com/rcliao/speech-query/internal/model"
	"github.com/rcliao/speech-query/internal/query"
	"github.com/rcliao/speech-query/internal/store"
)

// Request is one query over the records of the store.
type Request struct {
	Config  *config.Config
	Records store.RecordsParams
	Listing bool // measure matches; otherwise only report them
}

// Result is the outcome of a request.
type Result struct {
	Query   *query.Query
	Records []*model.Record
	Summary *query.Summary
	Results []model.QueryResult
}

// QueryService runs requests. Extractor is required for listings.
type QueryService struct {
	Store     *store.SQLiteStore
	Extractor *query.Extractor
	Log       *log.Logger
	Debug     bool
}

// Run validates the configuration, loads the records and runs the query.
// Listing rows are written to table as they are produced.
func (s *QueryService) Run(ctx context.Context, req Request, table io.Writer) (*Result, error) {
	if req.Config == nil {
		req.Config = config.DefaultConfig()
	}
	q, err := req.Config.Build()
	if err != nil {
		return nil, err
	}
	if req.Listing && s.Extractor == nil {
		return nil, fmt.Errorf("no signal engine configured for listings")
	}

	records, err := s.Store.Records(ctx, req.Records)
	if err != nil {
		return nil, fmt.Errorf("load records: %w", err)
	}

	runner := &query.Runner{
		Annotations: &store.AnnotationSource{Store: s.Store, Name: req.Config.TextGrid},
	}
	if req.Listing {
		runner.Extractor = s.Extractor
	}
	if table == nil {
		table = io.Discard
	}
	qc := query.NewQueryContext(table, s.Log)
	qc.Debug = s.Debug

	sum, err := runner.Run(ctx, qc, q, records)
	if err != nil {
		return nil, err
	}
	return &Result{Query: q, Records: records, Summary: sum, Results: qc.Results.Results()}, nil
}

// Save stores the result of req as a run.
func (s *QueryService) Save(ctx context.Context, req Request, res *Result) (*store.Run, error) {
	var cfgText string
	if req.Config != nil {
		data, err := yaml.Marshal(req.Config)
		if err != nil {
			return nil, fmt.Errorf("marshal config: %w", err)
		}
		cfgText = string(data)
	}
	kind := "search"
	if req.Listing {
		kind = res.Query.Kind.String()
	}
	return s.Store.SaveRun(ctx, store.SaveRunParams{
		Kind:    kind,
		Tier:    res.Query.Tier.String(),
		Pattern: res.Query.Pattern.String(),
		Corpus:  req.Records.Corpus,
		Session: req.Records.Session,
		Config:  cfgText,
		Counts: store.RunCounts{
			Records: res.Summary.Records,
			Matched: res.Summary.Matched,
			Results: res.Summary.Results,
			Rows:    res.Summary.Rows,
			Skipped: len(res.Summary.Skipped),
		},
		Results: res.Results,
	})
}
