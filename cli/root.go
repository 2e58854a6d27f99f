// cli/root.go
package cli

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/gewnthar/charttiles/config"
)

// RootOptions holds global flags shared by all commands.
type RootOptions struct {
	ConfigPath string
	Verbose    bool
	Logger     *logrus.Logger
}

// NewRootCommand creates the root command for the charttiles CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{Logger: logrus.New()}

	cmd := &cobra.Command{
		Use:   "charttiles",
		Short: "Mirror FAA chart imagery as map-tile pyramids",
		Long: "charttiles keeps a tile mirror of FAA aeronautical charts current:\n" +
			"it discovers newly published editions, converts stale charts to tile\n" +
			"pyramids and republishes only what changed.",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			opts.Logger.SetLevel(logrus.InfoLevel)
			if opts.Verbose {
				opts.Logger.SetLevel(logrus.DebugLevel)
			}
			return config.LoadConfig(opts.ConfigPath)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "config.yaml", "path to the YAML config file")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")

	cmd.AddCommand(NewSyncCommand(opts))
	cmd.AddCommand(NewCleanupCommand(opts))
	cmd.AddCommand(NewVersionCommand())

	return cmd
}
