package cli

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rcliao/speech-query/internal/store"
	"github.com/rcliao/speech-query/internal/textgrid"
	"github.com/spf13/cobra"
)

func init() {
	tgCmd := &cobra.Command{
		Use:   "textgrid",
		Short: "TextGrid alignment management",
	}

	importCmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Store a Praat TextGrid aligning a session",
		Long: "Store a Praat TextGrid aligning a session. Tiers named \"IPA Target: Tier|Word|Phone\" and " +
			"\"IPA Actual: ...\" are attached to the records when measuring. Storing the same content again is a no-op.",
		Args: cobra.ExactArgs(1),
		Run:  runTextGridImport,
	}
	importCmd.Flags().String("corpus", "", "Corpus (required)")
	importCmd.Flags().String("session", "", "Session (required)")
	importCmd.Flags().String("name", "", "TextGrid name (default: file name without extension)")
	importCmd.MarkFlagRequired("corpus")
	importCmd.MarkFlagRequired("session")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List the TextGrids stored for a session",
		Run:   runTextGridList,
	}
	listCmd.Flags().String("corpus", "", "Corpus (required)")
	listCmd.Flags().String("session", "", "Session (required)")
	listCmd.MarkFlagRequired("corpus")
	listCmd.MarkFlagRequired("session")

	getCmd := &cobra.Command{
		Use:   "get",
		Short: "Print a stored TextGrid in Praat text format",
		Run:   runTextGridGet,
	}
	getCmd.Flags().String("corpus", "", "Corpus (required)")
	getCmd.Flags().String("session", "", "Session (required)")
	getCmd.Flags().String("name", "", "TextGrid name (default: the session's TextGrid)")
	getCmd.MarkFlagRequired("corpus")
	getCmd.MarkFlagRequired("session")

	tgCmd.AddCommand(importCmd, listCmd, getCmd)
	RootCmd.AddCommand(tgCmd)
}

func runTextGridImport(cmd *cobra.Command, args []string) {
	corpus, _ := cmd.Flags().GetString("corpus")
	session, _ := cmd.Flags().GetString("session")
	name, _ := cmd.Flags().GetString("name")
	if name == "" {
		base := filepath.Base(args[0])
		name = strings.TrimSuffix(base, filepath.Ext(base))
	}

	f, err := os.Open(args[0])
	if err != nil {
		exitErr("open textgrid", err)
	}
	defer f.Close()
	tg, err := textgrid.Read(f)
	if err != nil {
		exitErr("read textgrid", err)
	}

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	info, err := s.PutTextGrid(cmd.Context(), store.PutTextGridParams{
		Corpus:  corpus,
		Session: session,
		Name:    name,
		Grid:    tg,
	})
	if err != nil {
		exitErr("store textgrid", err)
	}
	printJSON(info)
}

func runTextGridList(cmd *cobra.Command, args []string) {
	corpus, _ := cmd.Flags().GetString("corpus")
	session, _ := cmd.Flags().GetString("session")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	grids, err := s.TextGrids(cmd.Context(), corpus, session)
	if err != nil {
		exitErr("list textgrids", err)
	}
	if len(grids) == 0 {
		printJSON([]store.TextGridInfo{})
		return
	}
	printJSON(grids)
}

func runTextGridGet(cmd *cobra.Command, args []string) {
	corpus, _ := cmd.Flags().GetString("corpus")
	session, _ := cmd.Flags().GetString("session")
	name, _ := cmd.Flags().GetString("name")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	tg, err := s.GetTextGrid(cmd.Context(), corpus, session, name)
	if err != nil {
		exitErr("get textgrid", err)
	}
	if err := textgrid.Write(cmd.OutOrStdout(), tg); err != nil {
		exitErr("write textgrid", err)
	}
}
