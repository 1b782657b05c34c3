package cli

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show database statistics",
		Run:   runStats,
	}

	cmd.Flags().Bool("text", false, "Human readable output")

	RootCmd.AddCommand(cmd)
}

func runStats(cmd *cobra.Command, args []string) {
	text, _ := cmd.Flags().GetBool("text")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	stats, err := s.Stats(cmd.Context(), getDBPath())
	if err != nil {
		exitErr("stats", err)
	}

	if !text {
		printJSON(stats)
		return
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "database   %s (%s)\n", stats.DBPath, humanize.Bytes(uint64(stats.DBSizeBytes)))
	fmt.Fprintf(out, "sessions   %s\n", humanize.Comma(int64(len(stats.Sessions))))
	fmt.Fprintf(out, "records    %s (%s groups)\n", humanize.Comma(int64(stats.Records)), humanize.Comma(int64(stats.Groups)))
	fmt.Fprintf(out, "textgrids  %s\n", humanize.Comma(int64(stats.TextGrids)))
	fmt.Fprintf(out, "runs       %s active of %s\n", humanize.Comma(int64(stats.ActiveRuns)), humanize.Comma(int64(stats.TotalRuns)))
	fmt.Fprintf(out, "results    %s\n", humanize.Comma(int64(stats.Results)))
}
