package cli

import (
	"github.com/rcliao/speech-query/internal/app"
	"github.com/rcliao/speech-query/internal/model"
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "search [pattern]",
		Short: "Find a phonex pattern in the stored transcriptions",
		Long:  "Report every match of a phonex pattern on the chosen tier after the configured filters. No audio is read.",
		Args:  cobra.MaximumNArgs(1),
		Run:   runSearch,
	}

	addQueryFlags(cmd)

	RootCmd.AddCommand(cmd)
}

type searchOutput struct {
	RunID   string              `json:"run_id,omitempty"`
	Records int                 `json:"records"`
	Matched int                 `json:"matched"`
	Results []model.QueryResult `json:"results"`
}

func runSearch(cmd *cobra.Command, args []string) {
	req, err := queryRequest(cmd, args, "")
	if err != nil {
		exitErr("config", err)
	}
	save, _ := cmd.Flags().GetBool("save")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	qs := &app.QueryService{Store: s, Log: newLogger(), Debug: debug}
	res, err := qs.Run(cmd.Context(), req, nil)
	if err != nil {
		exitErr("search", err)
	}

	out := searchOutput{
		Records: res.Summary.Records,
		Matched: res.Summary.Matched,
		Results: res.Results,
	}
	if out.Results == nil {
		out.Results = []model.QueryResult{}
	}
	if save {
		run, err := qs.Save(cmd.Context(), req, res)
		if err != nil {
			exitErr("save run", err)
		}
		out.RunID = run.ID
	}
	printJSON(out)
}
