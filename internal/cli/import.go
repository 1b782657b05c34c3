package cli

import (
	"io"
	"os"

	"github.com/rcliao/speech-query/internal/store"
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "import [file]",
		Short: "Import a session's records from JSON",
		Long: "Import a session's records from JSON (a file or stdin). Expects the format produced by export. " +
			"Records already imported for the same corpus and session are replaced.",
		Args: cobra.MaximumNArgs(1),
		Run:  runImport,
	}

	cmd.Flags().String("corpus", "", "Override the corpus name of the document")
	cmd.Flags().String("session", "", "Override the session name of the document")
	cmd.Flags().String("media", "", "Override the session media file")

	RootCmd.AddCommand(cmd)
}

func runImport(cmd *cobra.Command, args []string) {
	var r io.Reader = os.Stdin
	if len(args) == 1 {
		f, err := os.Open(args[0])
		if err != nil {
			exitErr("open corpus", err)
		}
		defer f.Close()
		r = f
	}

	corpus, err := store.DecodeCorpus(r)
	if err != nil {
		exitErr("parse json", err)
	}
	if v, _ := cmd.Flags().GetString("corpus"); v != "" {
		corpus.Corpus = v
	}
	if v, _ := cmd.Flags().GetString("session"); v != "" {
		corpus.Session = v
	}
	if v, _ := cmd.Flags().GetString("media"); v != "" {
		corpus.Media = v
	}

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	res, err := s.ImportCorpus(cmd.Context(), corpus)
	if err != nil {
		exitErr("import", err)
	}
	printJSON(res)
}
