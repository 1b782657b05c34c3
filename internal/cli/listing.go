package cli

import (
	"io"
	"os"

	"github.com/rcliao/speech-query/internal/app"
	"github.com/rcliao/speech-query/internal/media"
	"github.com/rcliao/speech-query/internal/model"
	"github.com/rcliao/speech-query/internal/praat"
	"github.com/rcliao/speech-query/internal/query"
	"github.com/spf13/cobra"
)

func init() {
	for _, kind := range []model.MeasurementKind{model.FormantKind, model.PitchKind, model.IntensityKind} {
		cmd := &cobra.Command{
			Use:   kind.String() + " [pattern]",
			Short: "List " + kind.String() + " over every match of a phonex pattern",
			Long: "Measure " + kind.String() + " over each record segment and write one CSV row per analysis frame " +
				"inside every match. Matches are placed in time through the session's TextGrid; records without " +
				"media are searched but not measured.",
			Args: cobra.MaximumNArgs(1),
			Run:  runListing(kind),
		}
		if kind == model.FormantKind {
			cmd.Aliases = []string{"formants"}
		}

		addQueryFlags(cmd)
		cmd.Flags().StringP("out", "o", "", "Write the listing to this file (default: stdout)")
		cmd.Flags().String("media-root", "", "Directory relative media paths are resolved against")
		cmd.Flags().String("tmp-dir", "", "Keep extracted segments in this directory")
		cmd.Flags().String("ffmpeg", "ffmpeg", "ffmpeg executable")
		cmd.Flags().String("praat", "praat", "Praat executable")

		RootCmd.AddCommand(cmd)
	}
}

func runListing(kind model.MeasurementKind) func(*cobra.Command, []string) {
	return func(cmd *cobra.Command, args []string) {
		req, err := queryRequest(cmd, args, kind.String())
		if err != nil {
			exitErr("config", err)
		}
		if err := req.Config.Validate(); err != nil {
			exitErr("config", err)
		}
		outPath, _ := cmd.Flags().GetString("out")
		mediaRoot, _ := cmd.Flags().GetString("media-root")
		tmpDir, _ := cmd.Flags().GetString("tmp-dir")
		ffmpegBin, _ := cmd.Flags().GetString("ffmpeg")
		praatBin, _ := cmd.Flags().GetString("praat")
		save, _ := cmd.Flags().GetBool("save")

		logger := newLogger()

		var w io.Writer = cmd.OutOrStdout()
		if outPath != "" {
			f, err := os.Create(outPath)
			if err != nil {
				exitErr("create output", err)
			}
			defer f.Close()
			w = f
		}

		s, err := openStore()
		if err != nil {
			exitErr("open store", err)
		}
		defer s.Close()

		audio := media.NewFFmpeg(mediaRoot)
		audio.Bin = ffmpegBin
		audio.TmpDir = tmpDir
		defer audio.Close()
		engine := praat.NewEngine(praatBin, logger)
		defer engine.Close()

		qs := &app.QueryService{
			Store:     s,
			Extractor: &query.Extractor{Audio: audio, Engine: engine},
			Log:       logger,
			Debug:     debug,
		}
		res, err := qs.Run(cmd.Context(), req, w)
		if err != nil {
			exitErr(kind.String(), err)
		}

		sum := res.Summary
		logger.Printf("%d records, %d matched, %d results, %d rows, %d skipped",
			sum.Records, sum.Matched, sum.Results, sum.Rows, len(sum.Skipped))
		if save {
			run, err := qs.Save(cmd.Context(), req, res)
			if err != nil {
				exitErr("save run", err)
			}
			logger.Printf("saved run %s", run.ID)
		}
	}
}
