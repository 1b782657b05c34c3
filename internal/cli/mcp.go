package cli

import (
	"github.com/rcliao/speech-query/internal/app"
	"github.com/rcliao/speech-query/internal/mcp"
	"github.com/rcliao/speech-query/internal/media"
	"github.com/rcliao/speech-query/internal/praat"
	"github.com/rcliao/speech-query/internal/query"
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve the query tools over MCP on stdio",
		Run:   runMCP,
	}

	cmd.Flags().String("media-root", "", "Directory relative media paths are resolved against")
	cmd.Flags().String("ffmpeg", "ffmpeg", "ffmpeg executable")
	cmd.Flags().String("praat", "praat", "Praat executable")

	RootCmd.AddCommand(cmd)
}

func runMCP(cmd *cobra.Command, args []string) {
	mediaRoot, _ := cmd.Flags().GetString("media-root")
	ffmpegBin, _ := cmd.Flags().GetString("ffmpeg")
	praatBin, _ := cmd.Flags().GetString("praat")

	// stdout carries the protocol
	logger := newLogger()

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	audio := media.NewFFmpeg(mediaRoot)
	audio.Bin = ffmpegBin
	defer audio.Close()
	engine := praat.NewEngine(praatBin, logger)
	defer engine.Close()

	server := mcp.NewServer(mcp.Config{ServerName: "speech-query", ServerVersion: Version}, &app.QueryService{
		Store:     s,
		Extractor: &query.Extractor{Audio: audio, Engine: engine},
		Log:       logger,
		Debug:     debug,
	})
	if err := server.Start(cmd.Context()); err != nil {
		exitErr("mcp", err)
	}
}
