// Package cli implements the speech-query CLI commands.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/rcliao/speech-query/internal/store"
	"github.com/spf13/cobra"
)

// Version is reported by the MCP server.
var Version = "dev"

var (
	dbPath string
	quiet  bool
	debug  bool
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "speech-query",
	Short: "Phonological pattern search and acoustic listings over transcribed speech",
	Long: "Search IPA transcriptions of recorded sessions with phonex patterns and list formants, " +
		"pitch or intensity over every match. SQLite-backed, single binary; measurements use ffmpeg and Praat.",
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "Database path (default: $SPEECH_QUERY_DB or ~/.speech-query/corpus.db)")
	RootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Discard diagnostics")
	RootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Log every match that cannot be placed in time")
}

func getDBPath() string {
	if dbPath != "" {
		return dbPath
	}
	if env := os.Getenv("SPEECH_QUERY_DB"); env != "" {
		return env
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".speech-query", "corpus.db")
}

func openStore() (*store.SQLiteStore, error) {
	return store.NewSQLiteStore(getDBPath())
}

func newLogger() *log.Logger {
	if quiet {
		return log.New(io.Discard, "", 0)
	}
	return log.New(os.Stderr, "speech-query: ", 0)
}

func printJSON(v any) {
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
