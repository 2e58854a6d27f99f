// cli/sync.go
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gewnthar/charttiles/config"
	"github.com/gewnthar/charttiles/convert"
	"github.com/gewnthar/charttiles/metadata"
	"github.com/gewnthar/charttiles/models"
	"github.com/gewnthar/charttiles/publish"
	"github.com/gewnthar/charttiles/scraper"
	"github.com/gewnthar/charttiles/services"
)

// NewSyncCommand creates the sync command, the main entry point of the
// pipeline: discover, classify, fetch, convert, publish, commit.
func NewSyncCommand(root *RootOptions) *cobra.Command {
	var (
		chartTypes   []string
		zipFile      string
		checkCurrent bool
	)

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Synchronize chart categories with the upstream publisher",
		Long: "Discovers the chart editions currently published upstream, skips\n" +
			"categories that are already current (with --check-current), and runs\n" +
			"the download/convert/publish cycle for stale ones.",
		RunE: func(cmd *cobra.Command, args []string) error {
			categories, err := resolveCategories(chartTypes)
			if err != nil {
				return err
			}
			if zipFile != "" && len(categories) != 1 {
				return fmt.Errorf("--zip-file requires exactly one --chart-type")
			}

			cfg := config.AppConfig
			logger := root.Logger

			publisher, err := publish.New(cfg.Publish, logger)
			if err != nil {
				return err
			}

			service := services.NewSyncService(
				scraper.NewCatalog(cfg.Catalog, cfg.HTTP.ListingTimeout, logger),
				scraper.NewFetcher(cfg.Paths.DownloadDir, cfg.HTTP.DownloadTimeout, cfg.HTTP.RetryBackoff, logger),
				convert.NewOrchestrator(convert.NewGDAL(cfg.Conversion, logger), cfg.Conversion.Workers, logger),
				publisher,
				metadata.NewStore(cfg.Paths.MetadataFile, logger),
				logger,
			)

			results := service.Run(cmd.Context(), categories, services.Options{
				CheckCurrent: checkCurrent,
				LocalArchive: zipFile,
			})

			if err := services.WriteSummary(cfg.Paths.SummaryFile, results); err != nil {
				logger.Warnf("Sync: could not write summary artifact: %v", err)
			}
			if services.LogSummary(logger, results) {
				return fmt.Errorf("one or more chart categories failed to sync")
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&chartTypes, "chart-type", nil,
		"chart categories to sync (sectional, ifr-low, ifr-high); defaults to all")
	cmd.Flags().StringVar(&zipFile, "zip-file", "",
		"process a single local archive instead of discovering upstream editions")
	cmd.Flags().BoolVar(&checkCurrent, "check-current", false,
		"skip categories whose persisted edition matches upstream; omit to process unconditionally")

	return cmd
}

func resolveCategories(chartTypes []string) ([]models.ChartCategory, error) {
	if len(chartTypes) == 0 {
		return models.AllCategories(), nil
	}
	categories := make([]models.ChartCategory, 0, len(chartTypes))
	for _, s := range chartTypes {
		category, err := models.ParseCategory(s)
		if err != nil {
			return nil, err
		}
		categories = append(categories, category)
	}
	return categories, nil
}
