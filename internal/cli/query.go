package cli

import (
	"github.com/rcliao/speech-query/internal/app"
	"github.com/rcliao/speech-query/internal/config"
	"github.com/rcliao/speech-query/internal/store"
	"github.com/spf13/cobra"
)

// addQueryFlags registers the flags shared by search and the listings.
func addQueryFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("config", "c", "", "Query configuration YAML (default: ~/.speech-query/query.yaml if present)")
	cmd.Flags().StringP("pattern", "p", "", "Phonex pattern (or the first argument)")
	cmd.Flags().String("tier", "", "Tier to search: target or actual")
	cmd.Flags().String("textgrid", "", "Name of the TextGrid aligning each session (default: the session's TextGrid)")
	cmd.Flags().String("corpus", "", "Only records of this corpus")
	cmd.Flags().String("session", "", "Only records of this session")
	cmd.Flags().String("speaker", "", "Only records of this speaker")
	cmd.Flags().String("groups", "", "Only these group numbers, e.g. 1,3-4 or 2-")
	cmd.Flags().Bool("save", false, "Store the run and its results")
}

// queryRequest builds the request of a command from its configuration
// file and flags. Flags override the file. An empty kind makes a search.
func queryRequest(cmd *cobra.Command, args []string, kind string) (app.Request, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadWithFallback(path)
	if err != nil {
		return app.Request{}, err
	}

	if len(args) > 0 {
		cfg.Pattern = args[0]
	}
	if v, _ := cmd.Flags().GetString("pattern"); v != "" {
		cfg.Pattern = v
	}
	if v, _ := cmd.Flags().GetString("tier"); v != "" {
		cfg.Tier = v
	}
	if v, _ := cmd.Flags().GetString("textgrid"); v != "" {
		cfg.TextGrid = v
	}
	if v, _ := cmd.Flags().GetString("groups"); v != "" {
		cfg.Filters.Group.Enabled = true
		cfg.Filters.Group.Ranges = v
	}
	if kind != "" {
		cfg.Kind = kind
	}

	corpus, _ := cmd.Flags().GetString("corpus")
	session, _ := cmd.Flags().GetString("session")
	if speaker, _ := cmd.Flags().GetString("speaker"); speaker != "" {
		cfg.Filters.Speaker.Enabled = true
		cfg.Filters.Speaker.Speakers = []string{speaker}
	}
	return app.Request{
		Config:  cfg,
		Records: store.RecordsParams{Corpus: corpus, Session: session},
		Listing: kind != "",
	}, nil
}
