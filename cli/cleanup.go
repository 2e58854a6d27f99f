// cli/cleanup.go
package cli

import (
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/gewnthar/charttiles/config"
	"github.com/gewnthar/charttiles/publish"
)

// NewCleanupCommand creates the cleanup command: bulk-delete the
// published artifacts for the selected categories. Categories target
// disjoint remote prefixes, so the deletes run in parallel and the
// command waits for all of them before reporting success.
func NewCleanupCommand(root *RootOptions) *cobra.Command {
	var chartTypes []string

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete published tiles for the selected chart categories",
		RunE: func(cmd *cobra.Command, args []string) error {
			categories, err := resolveCategories(chartTypes)
			if err != nil {
				return err
			}

			publisher, err := publish.New(config.AppConfig.Publish, root.Logger)
			if err != nil {
				return err
			}

			var g errgroup.Group
			for _, category := range categories {
				category := category
				g.Go(func() error {
					return publisher.DeleteCategory(cmd.Context(), category)
				})
			}
			return g.Wait()
		},
	}

	cmd.Flags().StringSliceVar(&chartTypes, "chart-type", nil,
		"chart categories to clean up (sectional, ifr-low, ifr-high); defaults to all")

	return cmd
}
