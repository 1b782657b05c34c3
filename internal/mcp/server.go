// Package mcp exposes corpus queries as Model Context Protocol tools.
package mcp

import (
	"context"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/rcliao/speech-query/internal/app"
	"github.com/rcliao/speech-query/internal/store"
)

type Config struct {
	ServerName    string
	ServerVersion string
}

type Server struct {
	config    Config
	mcpServer *sdk.Server
	queries   *app.QueryService
	store     *store.SQLiteStore
}

// NewServer registers the tools over queries. queries.Extractor may be nil,
// in which case listings fail and searches still work.
func NewServer(cfg Config, queries *app.QueryService) *Server {
	if cfg.ServerName == "" {
		cfg.ServerName = "speech-query"
	}
	s := &Server{
		config:  cfg,
		queries: queries,
		store:   queries.Store,
	}

	s.mcpServer = sdk.NewServer(&sdk.Implementation{
		Name:    cfg.ServerName,
		Version: cfg.ServerVersion,
	}, nil)

	s.registerTools()
	return s
}

// Start serves over stdin and stdout until ctx is done or the client
// disconnects.
func (s *Server) Start(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &sdk.StdioTransport{})
}

func (s *Server) registerTools() {
	sdk.AddTool(s.mcpServer, &sdk.Tool{
		Name:        "sessions",
		Description: "List the imported corpus sessions with their record, speaker and TextGrid counts",
	}, s.handleSessions)

	sdk.AddTool(s.mcpServer, &sdk.Tool{
		Name:        "search",
		Description: "Find a phonex pattern in the target or actual transcriptions of the stored records, without acoustic measurements",
	}, s.handleSearch)

	sdk.AddTool(s.mcpServer, &sdk.Tool{
		Name:        "listing",
		Description: "Measure formants, pitch or intensity over every match of a phonex pattern and return the listing as CSV",
	}, s.handleListing)

	sdk.AddTool(s.mcpServer, &sdk.Tool{
		Name:        "runs",
		Description: "List saved query runs, or show the results of one run",
	}, s.handleRuns)
}
