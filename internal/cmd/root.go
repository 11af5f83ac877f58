package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootOptions holds the persistent flags shared by every subcommand.
type rootOptions struct {
	configPath string
	logFile    string
	logLevel   string
	verbose    bool
}

// NewRootCommand builds the metahub command tree.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "metahub",
		Short: "Resolve and inspect movie and TV metadata providers",
		Long: `metahub hosts movie and TV metadata providers (TMDB, OMDb, TVDB, ffprobe and
a filename parser) behind a capability registry. Providers declare the capabilities they serve;
callers ask for a capability and the registry picks, builds and caches the
best providers for it.

Use the subcommands to list providers, resolve capabilities, run health checks
look up titles and identify media files.`,
		SilenceUsage: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "Config file (default ~/.metahub/config.json)")
	flags.StringVar(&opts.logFile, "log-file", "", `Write logs to this file ("default" for ~/.metahub/logs/metahub.log)`)
	flags.StringVar(&opts.logLevel, "log-level", "", "Override the configured log level")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Log to stderr")

	rootCmd.AddCommand(
		newProvidersCommand(opts),
		newCapabilitiesCommand(opts),
		newResolveCommand(opts),
		newHealthCommand(opts),
		newStatsCommand(opts),
		newLookupCommand(opts),
		newIdentifyCommand(opts),
		newMonitorCommand(opts),
		newConfigCommand(opts),
	)
	return rootCmd
}

// Execute runs the root command. This is called by main.main().
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
