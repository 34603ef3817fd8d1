package main

import (
	"context"
	"encoding/json"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/review-cli/internal/datefilter"
	"github.com/sells-group/review-cli/internal/model"
	"github.com/sells-group/review-cli/internal/output"
	"github.com/sells-group/review-cli/internal/paginate"
)

var (
	extractFile      string
	extractSource    string
	extractURL       string
	extractTop       int
	extractStartDate string
	extractEndDate   string
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract reviews from a saved listing page",
	Long:  "Runs the extraction pipeline on a local HTML file and prints the most recent reviews as JSON.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("extract"); err != nil {
			return err
		}

		source, err := model.ParseSource(extractSource)
		if err != nil {
			return err
		}
		w, err := datefilter.ParseWindow(extractStartDate, extractEndDate)
		if err != nil {
			return eris.Wrap(err, "extract: window")
		}

		markup, err := os.ReadFile(extractFile)
		if err != nil {
			return eris.Wrapf(err, "extract: read %s", extractFile)
		}

		return extractPage(cmd.Context(), newPipeline(), cmd.OutOrStdout(), string(markup), source, w, extractURL, extractTop)
	},
}

func init() {
	extractCmd.Flags().StringVar(&extractFile, "file", "", "saved HTML page (required)")
	extractCmd.Flags().StringVar(&extractSource, "source", "", "review site the page came from (required)")
	extractCmd.Flags().StringVar(&extractURL, "url", "", "original page URL, recorded in provenance")
	extractCmd.Flags().IntVar(&extractTop, "top", 10, "number of most recent reviews to print (0 for all)")
	extractCmd.Flags().StringVar(&extractStartDate, "start-date", "", "earliest review date, YYYY-MM-DD")
	extractCmd.Flags().StringVar(&extractEndDate, "end-date", "", "latest review date, YYYY-MM-DD")
	_ = extractCmd.MarkFlagRequired("file")
	_ = extractCmd.MarkFlagRequired("source")
	rootCmd.AddCommand(extractCmd)
}

// extractPage runs ex on markup and writes the top most recent reviews to out.
func extractPage(ctx context.Context, ex paginate.Extractor, out io.Writer, markup string, source model.Source, w datefilter.Window, pageURL string, top int) error {
	reviews, err := ex.Run(ctx, markup, source, w, pageURL)
	if err != nil {
		return eris.Wrap(err, "extract")
	}

	recent := output.MostRecent(reviews, top)
	zap.L().Info("extracted reviews",
		zap.Int("total", len(reviews)),
		zap.Int("printed", len(recent)),
	)

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(recent)
}
