package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List imported sessions",
		Run:   runSessions,
	}

	cmd.Flags().Bool("names-only", false, "Only output corpus/session pairs")

	RootCmd.AddCommand(cmd)
}

func runSessions(cmd *cobra.Command, args []string) {
	namesOnly, _ := cmd.Flags().GetBool("names-only")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	sessions, err := s.Sessions(cmd.Context())
	if err != nil {
		exitErr("list sessions", err)
	}

	if namesOnly {
		for _, ss := range sessions {
			fmt.Printf("%s/%s\n", ss.Corpus, ss.Name)
		}
		return
	}
	if len(sessions) == 0 {
		fmt.Println("[]")
		return
	}
	printJSON(sessions)
}
