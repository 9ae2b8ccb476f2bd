package cmd

import (
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	outputFormat string
	configPath   string
	verbose      bool
	quiet        bool

	// Build metadata, injected by main
	buildVersion = "dev"
	buildCommit  = "none"
	buildDate    = "unknown"
)

func Execute(version, commit, date string) error {
	buildVersion, buildCommit, buildDate = version, commit, date

	rootCmd := &cobra.Command{
		Use:   "pwakit",
		Short: "Progressive Web App developer toolkit",
		Long: `pwakit validates web-app manifests, audits built sites for PWA readiness,
and runs a dev server with service-worker update notifications, install-prompt
analytics, and offline data snapshots.`,
		Version:      version,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			log.SetLevel(log.InfoLevel)
			if verbose {
				log.SetLevel(log.DebugLevel)
			}
			if quiet {
				log.SetLevel(log.ErrorLevel)
			}
		},
	}

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "text", "Output format: text, json, yaml")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to pwakit config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Quiet mode (errors only)")

	// Add subcommands
	rootCmd.AddCommand(newCheckCmd())
	rootCmd.AddCommand(newAuditCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newStatusCmd())
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newCompletionCmd())

	// Register completion function for output flag
	_ = rootCmd.RegisterFlagCompletionFunc("output", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return []string{"text", "json", "yaml"}, cobra.ShellCompDirectiveNoFileComp
	})

	return rootCmd.Execute()
}
