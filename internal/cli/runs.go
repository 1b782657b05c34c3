package cli

import (
	"encoding/csv"
	"fmt"
	"strconv"

	"github.com/rcliao/speech-query/internal/store"
	"github.com/spf13/cobra"
)

func init() {
	runsCmd := &cobra.Command{
		Use:   "runs",
		Short: "Saved query runs",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List saved runs, newest first",
		Run:   runRunsList,
	}
	listCmd.Flags().IntP("limit", "l", 20, "Max runs")
	listCmd.Flags().Bool("ids-only", false, "Only output run IDs")

	getCmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Show a run and its results",
		Args:  cobra.ExactArgs(1),
		Run:   runRunsGet,
	}
	getCmd.Flags().Bool("csv", false, "Write the results as CSV")

	rmCmd := &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a run",
		Args:  cobra.ExactArgs(1),
		Run:   runRunsRm,
	}
	rmCmd.Flags().Bool("hard", false, "Permanent delete (irreversible)")

	findCmd := &cobra.Command{
		Use:   "find <text>",
		Short: "Find saved matches by matched text",
		Args:  cobra.ExactArgs(1),
		Run:   runRunsFind,
	}
	findCmd.Flags().String("tier", "", "Filter by tier")
	findCmd.Flags().String("speaker", "", "Filter by speaker")
	findCmd.Flags().String("session", "", "Filter by session")
	findCmd.Flags().IntP("limit", "l", 50, "Max results")

	runsCmd.AddCommand(listCmd, getCmd, rmCmd, findCmd)
	RootCmd.AddCommand(runsCmd)
}

func runRunsList(cmd *cobra.Command, args []string) {
	limit, _ := cmd.Flags().GetInt("limit")
	idsOnly, _ := cmd.Flags().GetBool("ids-only")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	runs, err := s.ListRuns(cmd.Context(), limit)
	if err != nil {
		exitErr("list runs", err)
	}

	if idsOnly {
		for _, r := range runs {
			fmt.Println(r.ID)
		}
		return
	}
	if len(runs) == 0 {
		fmt.Println("[]")
		return
	}
	printJSON(runs)
}

func runRunsGet(cmd *cobra.Command, args []string) {
	asCSV, _ := cmd.Flags().GetBool("csv")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	run, results, err := s.GetRun(cmd.Context(), args[0])
	if err != nil {
		exitErr("get run", err)
	}

	if asCSV {
		if err := writeResultsCSV(cmd, results); err != nil {
			exitErr("write csv", err)
		}
		return
	}
	if results == nil {
		results = []store.StoredResult{}
	}
	printJSON(map[string]any{"run": run, "results": results})
}

func writeResultsCSV(cmd *cobra.Command, results []store.StoredResult) error {
	w := csv.NewWriter(cmd.OutOrStdout())
	w.Write([]string{"record", "speaker", "tier", "group", "start", "end", "value"})
	for _, r := range results {
		w.Write([]string{
			strconv.Itoa(r.RecordIndex + 1),
			r.Speaker,
			r.Tier,
			strconv.Itoa(r.GroupIndex + 1),
			strconv.Itoa(r.Range.Start),
			strconv.Itoa(r.Range.End),
			r.Value,
		})
	}
	w.Flush()
	return w.Error()
}

func runRunsRm(cmd *cobra.Command, args []string) {
	hard, _ := cmd.Flags().GetBool("hard")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	if err := s.RmRun(cmd.Context(), store.RmRunParams{ID: args[0], Hard: hard}); err != nil {
		exitErr("rm", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), `{"ok":true,"id":%q}`+"\n", args[0])
}

func runRunsFind(cmd *cobra.Command, args []string) {
	tier, _ := cmd.Flags().GetString("tier")
	speaker, _ := cmd.Flags().GetString("speaker")
	session, _ := cmd.Flags().GetString("session")
	limit, _ := cmd.Flags().GetInt("limit")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	results, err := s.SearchResults(cmd.Context(), store.SearchParams{
		Value:   args[0],
		Tier:    tier,
		Speaker: speaker,
		Session: session,
		Limit:   limit,
	})
	if err != nil {
		exitErr("find", err)
	}
	if len(results) == 0 {
		fmt.Println("[]")
		return
	}
	printJSON(results)
}
