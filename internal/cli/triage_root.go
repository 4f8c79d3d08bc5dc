// Package cli is the client-device command line: it signs in to Gmail, sends
// unclassified mail to the classification server and keeps the results in a
// local store.
package cli

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"triage_server/pkg/logger"
)

// NewRootCmd builds the triage command tree.
func NewRootCmd(version string, opts ...Option) *cobra.Command {
	app := &App{}
	for _, opt := range opts {
		opt(app)
	}

	v := viper.New()
	var cfgFile string
	var verbose bool

	root := &cobra.Command{
		Use:   "triage",
		Short: "Classify your recent Gmail messages",
		Long: `triage fetches your most recent Gmail messages, sends the ones it has
not seen before to the classification server and remembers the results on
this device.`,
		Version:      version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := logger.LevelWarn
			if verbose {
				level = logger.LevelDebug
			}
			logger.Init(logger.Config{
				Level:   level,
				Output:  cmd.ErrOrStderr(),
				Service: "triage-cli",
				Console: true,
			})

			cfg, err := LoadConfig(v, cfgFile)
			if err != nil {
				return err
			}
			return app.open(cfg)
		},
	}
	root.SetVersionTemplate(`{{printf "triage version %s\n" .Version}}`)

	flags := root.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is $XDG_CONFIG_HOME/triage/config.yaml)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	flags.String("server", "", "classification server URL")
	flags.String("store-dir", "", "directory of the local store")
	_ = v.BindPFlag("server", flags.Lookup("server"))
	_ = v.BindPFlag("store-dir", flags.Lookup("store-dir"))

	root.AddCommand(
		newLoginCmd(app),
		newLogoutCmd(app),
		newInboxCmd(app),
		newClassifyCmd(app),
		newStatsCmd(app),
		newClearCmd(app),
		newKeyCmd(app),
	)
	return root
}

// Execute runs the CLI and exits non-zero on failure.
func Execute(version string) {
	if err := NewRootCmd(version).Execute(); err != nil {
		os.Exit(1)
	}
}
