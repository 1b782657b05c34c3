package cli

import (
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a session's records as JSON",
		Long:  "Export the records of one session in the format read by import.",
		Run:   runExport,
	}

	cmd.Flags().String("corpus", "", "Corpus (required)")
	cmd.Flags().String("session", "", "Session (required)")

	cmd.MarkFlagRequired("corpus")
	cmd.MarkFlagRequired("session")

	RootCmd.AddCommand(cmd)
}

func runExport(cmd *cobra.Command, args []string) {
	corpus, _ := cmd.Flags().GetString("corpus")
	session, _ := cmd.Flags().GetString("session")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	c, err := s.ExportCorpus(cmd.Context(), corpus, session)
	if err != nil {
		exitErr("export", err)
	}
	printJSON(c)
}
