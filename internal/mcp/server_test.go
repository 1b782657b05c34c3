package mcp

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/rcliao/speech-query/internal/app"
	"github.com/rcliao/speech-query/internal/media"
	"github.com/rcliao/speech-query/internal/model"
	"github.com/rcliao/speech-query/internal/praat"
	"github.com/rcliao/speech-query/internal/query"
	"github.com/rcliao/speech-query/internal/store"
)

func newTestServer(t *testing.T, withExtractor bool) *Server {
	t.Helper()
	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	_, err = st.ImportCorpus(context.Background(), &store.Corpus{
		Corpus:  "demo",
		Session: "s1",
		Media:   "missing.wav",
		Records: []store.CorpusRecord{
			{Speaker: "CHI", Segments: []model.Segment{{StartMs: 0, EndMs: 1000}}, Groups: []store.CorpusGroup{{Target: "ˈtsa", Actual: "ˈsa"}}},
			{Speaker: "MOT", Segments: []model.Segment{{StartMs: 1000, EndMs: 2000}}, Groups: []store.CorpusGroup{{Target: "ba di", Actual: "pa di"}}},
		},
	})
	if err != nil {
		t.Fatalf("import: %v", err)
	}

	qs := &app.QueryService{Store: st}
	if withExtractor {
		qs.Extractor = &query.Extractor{
			Audio:  media.NewFFmpeg(t.TempDir()),
			Engine: praat.NewEngine("", nil),
		}
	}
	return NewServer(Config{ServerVersion: "test"}, qs)
}

func text(t *testing.T, res *sdk.CallToolResult, i int) string {
	t.Helper()
	if len(res.Content) <= i {
		t.Fatalf("result has %d contents", len(res.Content))
	}
	tc, ok := res.Content[i].(*sdk.TextContent)
	if !ok {
		t.Fatalf("content %d is %T", i, res.Content[i])
	}
	return tc.Text
}

func TestHandleSearch(t *testing.T) {
	ctx := context.Background()
	s := newTestServer(t, false)

	tests := []struct {
		name    string
		args    QueryArgs
		results int
		records []int
	}{
		{"target tier", QueryArgs{Pattern: "s"}, 1, []int{0}},
		{"actual tier", QueryArgs{Pattern: "p", Tier: "actual"}, 1, []int{1}},
		{"speaker filter", QueryArgs{Pattern: `\v`, Speaker: "CHI"}, 1, []int{0}},
		{"no match", QueryArgs{Pattern: "x"}, 0, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, _, err := s.handleSearch(ctx, nil, tt.args)
			if err != nil {
				t.Fatalf("search: %v", err)
			}
			var resp queryResponse
			if err := json.Unmarshal([]byte(text(t, res, 0)), &resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if len(resp.Results) != tt.results {
				t.Fatalf("got %d results, want %d", len(resp.Results), tt.results)
			}
			for i, r := range resp.Results {
				if r.RecordIndex != tt.records[i] {
					t.Errorf("result %d from record %d, want %d", i, r.RecordIndex, tt.records[i])
				}
			}
		})
	}
}

func TestHandleSearch_Errors(t *testing.T) {
	ctx := context.Background()
	s := newTestServer(t, false)

	for _, args := range []QueryArgs{
		{},
		{Pattern: "("},
		{Pattern: "a", Tier: "middle"},
		{Pattern: "a", Config: "pitch: {unit: FURLONGS}"},
	} {
		if _, _, err := s.handleSearch(ctx, nil, args); err == nil {
			t.Errorf("expected error for %+v", args)
		}
	}
}

func TestRequest_SpeakerEnablesFilter(t *testing.T) {
	req, err := request(QueryArgs{Pattern: "a", Session: "s1", Speaker: "CHI"}, "")
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	sp := req.Config.Filters.Speaker
	if !sp.Enabled || len(sp.Speakers) != 1 || sp.Speakers[0] != "CHI" {
		t.Errorf("speaker filter %+v", sp)
	}
	if req.Records.Speaker != "" || req.Records.Session != "s1" {
		t.Errorf("unexpected record selection %+v", req.Records)
	}
}

func TestHandleListing(t *testing.T) {
	ctx := context.Background()

	if _, _, err := newTestServer(t, false).handleListing(ctx, nil, ListingArgs{Kind: "pitch", Pattern: "a"}); err == nil {
		t.Error("listing without a signal engine should fail")
	}

	s := newTestServer(t, true)
	if _, _, err := s.handleListing(ctx, nil, ListingArgs{Pattern: "a"}); err == nil {
		t.Error("listing without a kind should fail")
	}

	res, _, err := s.handleListing(ctx, nil, ListingArgs{Kind: "formants", Pattern: "a", Save: true})
	if err != nil {
		t.Fatalf("listing: %v", err)
	}
	summary := text(t, res, 1)
	if !strings.HasPrefix(summary, "2 records, 2 matched, 2 results, 0 rows") || !strings.Contains(summary, "saved as ") {
		t.Errorf("unexpected summary %q", summary)
	}

	runs, err := s.store.ListRuns(ctx, 0)
	if err != nil || len(runs) != 1 {
		t.Fatalf("runs %v, %v", runs, err)
	}
	if runs[0].Kind != "formant" || runs[0].Results != 2 || runs[0].Rows != 0 {
		t.Errorf("unexpected run %+v", runs[0])
	}
}

func TestHandleSessionsAndRuns(t *testing.T) {
	ctx := context.Background()
	s := newTestServer(t, false)

	res, _, err := s.handleSessions(ctx, nil, SessionsArgs{})
	if err != nil {
		t.Fatalf("sessions: %v", err)
	}
	var sessions []store.Session
	if err := json.Unmarshal([]byte(text(t, res, 0)), &sessions); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(sessions) != 1 || sessions[0].Records != 2 || sessions[0].Speakers != 2 {
		t.Errorf("unexpected sessions %+v", sessions)
	}

	res, _, err = s.handleSearch(ctx, nil, QueryArgs{Pattern: "d", Save: true})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	var resp queryResponse
	json.Unmarshal([]byte(text(t, res, 0)), &resp)
	if resp.RunID == "" {
		t.Fatal("saved search should report its run")
	}

	res, _, err = s.handleRuns(ctx, nil, RunsArgs{ID: resp.RunID})
	if err != nil {
		t.Fatalf("runs: %v", err)
	}
	var got struct {
		Run     store.Run            `json:"run"`
		Results []store.StoredResult `json:"results"`
	}
	if err := json.Unmarshal([]byte(text(t, res, 0)), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Run.Kind != "search" || len(got.Results) != 1 || got.Results[0].Value != "d" || got.Results[0].Speaker != "MOT" {
		t.Errorf("unexpected run %+v", got)
	}

	if _, _, err := s.handleRuns(ctx, nil, RunsArgs{ID: "nope"}); err == nil {
		t.Error("expected error for an unknown run")
	}
}

func TestToolsOverTransport(t *testing.T) {
	ctx := context.Background()
	s := newTestServer(t, false)

	serverTransport, clientTransport := sdk.NewInMemoryTransports()
	ss, err := s.mcpServer.Connect(ctx, serverTransport, nil)
	if err != nil {
		t.Fatalf("server connect: %v", err)
	}
	defer ss.Close()

	client := sdk.NewClient(&sdk.Implementation{Name: "test", Version: "v0"}, nil)
	cs, err := client.Connect(ctx, clientTransport, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	defer cs.Close()

	tools, err := cs.ListTools(ctx, nil)
	if err != nil {
		t.Fatalf("list tools: %v", err)
	}
	names := map[string]bool{}
	for _, tool := range tools.Tools {
		names[tool.Name] = true
	}
	for _, want := range []string{"sessions", "search", "listing", "runs"} {
		if !names[want] {
			t.Errorf("tool %s not registered", want)
		}
	}

	res, err := cs.CallTool(ctx, &sdk.CallToolParams{
		Name:      "search",
		Arguments: map[string]any{"pattern": "s"},
	})
	if err != nil {
		t.Fatalf("call search: %v", err)
	}
	if res.IsError {
		t.Fatalf("search failed: %s", text(t, res, 0))
	}
	if !strings.Contains(text(t, res, 0), `"value": "s"`) {
		t.Errorf("unexpected search output %s", text(t, res, 0))
	}
}
