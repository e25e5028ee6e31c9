package cli

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "pkgmanifest",
		Short: "Resolve and replay reproducible RPM package manifests",
		Long: `Pkgmanifest resolves a declarative package input document against
RPM repositories into a fully pinned, checksum-verified manifest, and
replays that manifest later as downloads or an install transaction.

Workflows:
  new       resolve an input document (or specs) into a manifest
  download  fetch every package pinned by a manifest
  install   install every package pinned by a manifest`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Setup logging
			verbose, _ := cmd.Flags().GetBool("verbose")
			if verbose {
				logrus.SetLevel(logrus.DebugLevel)
			} else {
				logrus.SetLevel(logrus.InfoLevel)
			}
		},
	}

	// Global flags
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	// Add subcommands
	rootCmd.AddCommand(NewNewCmd())
	rootCmd.AddCommand(NewDownloadCmd())
	rootCmd.AddCommand(NewInstallCmd())

	return rootCmd
}
