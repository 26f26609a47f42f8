package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command for the steward application.
// It is the entry point when the application is called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "steward",
	Short: "Reconcile declarative cluster definitions",
	Long: `steward watches ClusterDefinition custom resources and converges the
world towards their declared state. Replicas coordinate through lease-based
leader election so exactly one instance reconciles at a time; the others
stand by as warm spares.

For development without a cluster, filesystem mode watches a directory of
YAML manifests instead of the API server.`,
	// SilenceUsage prevents Cobra from printing the usage message on errors
	// that are handled by the application.
	SilenceUsage: true,
}

// SetVersion sets the version for the root command.
// This function is typically called from the main package to inject the application version at build time.
func SetVersion(v string) {
	rootCmd.Version = v
}

// GetVersion returns the current version of the application.
func GetVersion() string {
	return rootCmd.Version
}

// Execute is the main entry point for the CLI application.
// It initializes and executes the root command, which in turn handles subcommands and flags.
// This function is called by main.main().
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "steward version %s\n" .Version}}`)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(newVersionCmd())
}
