package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/rcliao/speech-query/internal/app"
	"github.com/rcliao/speech-query/internal/config"
	"github.com/rcliao/speech-query/internal/model"
	"github.com/rcliao/speech-query/internal/store"
)

type SessionsArgs struct{}

// QueryArgs select the records and the pattern of a search or listing.
type QueryArgs struct {
	Pattern  string `json:"pattern" jsonschema:"phonex pattern to find"`
	Tier     string `json:"tier,omitempty" jsonschema:"target or actual (default: target)"`
	Corpus   string `json:"corpus,omitempty" jsonschema:"only records of this corpus"`
	Session  string `json:"session,omitempty" jsonschema:"only records of this session"`
	Speaker  string `json:"speaker,omitempty" jsonschema:"only records of this speaker"`
	Config   string `json:"config,omitempty" jsonschema:"YAML query configuration applied before the other arguments"`
	TextGrid string `json:"textgrid,omitempty" jsonschema:"name of the stored TextGrid aligning the session"`
	Save     bool   `json:"save,omitempty" jsonschema:"store the run so it can be listed later"`
}

type ListingArgs struct {
	Kind     string `json:"kind" jsonschema:"formants, pitch or intensity"`
	Pattern  string `json:"pattern" jsonschema:"phonex pattern to find"`
	Tier     string `json:"tier,omitempty" jsonschema:"target or actual (default: target)"`
	Corpus   string `json:"corpus,omitempty" jsonschema:"only records of this corpus"`
	Session  string `json:"session,omitempty" jsonschema:"only records of this session"`
	Speaker  string `json:"speaker,omitempty" jsonschema:"only records of this speaker"`
	Config   string `json:"config,omitempty" jsonschema:"YAML query configuration applied before the other arguments"`
	TextGrid string `json:"textgrid,omitempty" jsonschema:"name of the stored TextGrid aligning the session"`
	Save     bool   `json:"save,omitempty" jsonschema:"store the run so it can be listed later"`
}

func (a ListingArgs) query() QueryArgs {
	return QueryArgs{
		Pattern: a.Pattern, Tier: a.Tier,
		Corpus: a.Corpus, Session: a.Session, Speaker: a.Speaker,
		Config: a.Config, TextGrid: a.TextGrid, Save: a.Save,
	}
}

type RunsArgs struct {
	ID    string `json:"id,omitempty" jsonschema:"run to show; lists recent runs when empty"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum number of runs listed (default: 20)"`
}

type queryResponse struct {
	RunID   string              `json:"run_id,omitempty"`
	Records int                 `json:"records"`
	Matched int                 `json:"matched"`
	Rows    int                 `json:"rows"`
	Skipped []string            `json:"skipped,omitempty"`
	Results []model.QueryResult `json:"results"`
}

func (s *Server) handleSessions(ctx context.Context, req *sdk.CallToolRequest, args SessionsArgs) (*sdk.CallToolResult, any, error) {
	sessions, err := s.store.Sessions(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	if sessions == nil {
		sessions = []store.Session{}
	}
	return jsonResult(sessions)
}

func (s *Server) handleSearch(ctx context.Context, req *sdk.CallToolRequest, args QueryArgs) (*sdk.CallToolResult, any, error) {
	r, err := request(args, "")
	if err != nil {
		return nil, nil, err
	}
	res, err := s.queries.Run(ctx, r, nil)
	if err != nil {
		return nil, nil, err
	}
	resp, err := s.respond(ctx, args.Save, r, res)
	if err != nil {
		return nil, nil, err
	}
	return jsonResult(resp)
}

func (s *Server) handleListing(ctx context.Context, req *sdk.CallToolRequest, args ListingArgs) (*sdk.CallToolResult, any, error) {
	if args.Kind == "" {
		return nil, nil, fmt.Errorf("kind is required")
	}
	r, err := request(args.query(), args.Kind)
	if err != nil {
		return nil, nil, err
	}
	var table bytes.Buffer
	res, err := s.queries.Run(ctx, r, &table)
	if err != nil {
		return nil, nil, err
	}
	resp, err := s.respond(ctx, args.Save, r, res)
	if err != nil {
		return nil, nil, err
	}
	summary := fmt.Sprintf("%d records, %d matched, %d results, %d rows", resp.Records, resp.Matched, len(resp.Results), resp.Rows)
	if len(resp.Skipped) > 0 {
		summary += fmt.Sprintf(", %d skipped", len(resp.Skipped))
	}
	if resp.RunID != "" {
		summary += ", saved as " + resp.RunID
	}
	return &sdk.CallToolResult{
		Content: []sdk.Content{
			&sdk.TextContent{Text: table.String()},
			&sdk.TextContent{Text: summary},
		},
	}, nil, nil
}

func (s *Server) handleRuns(ctx context.Context, req *sdk.CallToolRequest, args RunsArgs) (*sdk.CallToolResult, any, error) {
	if args.ID == "" {
		runs, err := s.store.ListRuns(ctx, args.Limit)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to list runs: %w", err)
		}
		if runs == nil {
			runs = []store.Run{}
		}
		return jsonResult(runs)
	}
	run, results, err := s.store.GetRun(ctx, args.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get run: %w", err)
	}
	return jsonResult(map[string]any{"run": run, "results": results})
}

// request turns tool arguments into a query request. An empty kind keeps the
// configured kind and only reports matches.
func request(args QueryArgs, kind string) (app.Request, error) {
	cfg := config.DefaultConfig()
	if args.Config != "" {
		var err error
		if cfg, err = config.Parse([]byte(args.Config)); err != nil {
			return app.Request{}, err
		}
	}
	if args.Pattern != "" {
		cfg.Pattern = args.Pattern
	}
	if args.Tier != "" {
		cfg.Tier = args.Tier
	}
	if args.TextGrid != "" {
		cfg.TextGrid = args.TextGrid
	}
	if kind != "" {
		cfg.Kind = kind
	}
	if args.Speaker != "" {
		cfg.Filters.Speaker.Enabled = true
		cfg.Filters.Speaker.Speakers = []string{args.Speaker}
	}
	return app.Request{
		Config:  cfg,
		Records: store.RecordsParams{Corpus: args.Corpus, Session: args.Session},
		Listing: kind != "",
	}, nil
}

func (s *Server) respond(ctx context.Context, save bool, r app.Request, res *app.Result) (*queryResponse, error) {
	resp := &queryResponse{
		Records: res.Summary.Records,
		Matched: res.Summary.Matched,
		Rows:    res.Summary.Rows,
		Results: res.Results,
	}
	if resp.Results == nil {
		resp.Results = []model.QueryResult{}
	}
	for _, sk := range res.Summary.Skipped {
		resp.Skipped = append(resp.Skipped, sk.Error())
	}
	if save {
		run, err := s.queries.Save(ctx, r, res)
		if err != nil {
			return nil, fmt.Errorf("failed to save run: %w", err)
		}
		resp.RunID = run.ID
	}
	return resp, nil
}

func jsonResult(v any) (*sdk.CallToolResult, any, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode result: %w", err)
	}
	return &sdk.CallToolResult{
		Content: []sdk.Content{&sdk.TextContent{Text: string(data)}},
	}, nil, nil
}
