package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/review-cli/internal/model"
	"github.com/sells-group/review-cli/internal/output"
)

var (
	scrapeCompany   string
	scrapeSource    string
	scrapeStartDate string
	scrapeEndDate   string
	scrapeOutputDir string
	scrapeFormat    string
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Scrape reviews for one company from one site",
	Example: `  review-cli scrape --company "Zoom Workplace" --source g2 --start-date 2024-01-01 --end-date 2024-06-30
  review-cli scrape --company notion --source capterra --format xlsx`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if scrapeOutputDir != "" {
			cfg.Output.Dir = scrapeOutputDir
		}
		if scrapeFormat != "" {
			cfg.Output.Format = scrapeFormat
		}

		env, err := initJobEnv(ctx, "scrape")
		if err != nil {
			return err
		}
		defer env.Close()

		job := model.Job{
			Company:   scrapeCompany,
			Source:    model.Source(scrapeSource),
			StartDate: scrapeStartDate,
			EndDate:   scrapeEndDate,
		}

		doc, runErr := runJob(ctx, env.Controller, env.Store, job)

		path, err := output.Write(cfg.Output.Dir, cfg.Output.Format, doc)
		if err != nil {
			return eris.Wrap(err, "scrape: write output")
		}

		zap.L().Info("output saved",
			zap.String("path", path),
			zap.Int("reviews", len(doc.Reviews)),
			zap.Int("pages", doc.Metadata.PagesFetched),
		)
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s (%d reviews)\n", path, len(doc.Reviews))

		if runErr != nil {
			return eris.Wrap(runErr, "scrape")
		}
		return nil
	},
}

func init() {
	scrapeCmd.Flags().StringVar(&scrapeCompany, "company", "", "company name or slug (required)")
	scrapeCmd.Flags().StringVar(&scrapeSource, "source", "", "review site: g2, capterra or trustradius (required)")
	scrapeCmd.Flags().StringVar(&scrapeStartDate, "start-date", "", "earliest review date, YYYY-MM-DD")
	scrapeCmd.Flags().StringVar(&scrapeEndDate, "end-date", "", "latest review date, YYYY-MM-DD")
	scrapeCmd.Flags().StringVar(&scrapeOutputDir, "output-dir", "", "directory for result files (default from config)")
	scrapeCmd.Flags().StringVar(&scrapeFormat, "format", "", "json or xlsx (default from config)")
	_ = scrapeCmd.MarkFlagRequired("company")
	_ = scrapeCmd.MarkFlagRequired("source")
	rootCmd.AddCommand(scrapeCmd)
}
