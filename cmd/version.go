package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Build metadata injected through -ldflags alongside the version.
var (
	buildCommit string
	buildDate   string
)

// SetBuildInfo records the commit hash and build date for version output.
func SetBuildInfo(commit, date string) {
	buildCommit = commit
	buildDate = date
}

// newVersionCmd creates the Cobra command for displaying the application
// version and, when the build injected them, the commit and build date.
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of steward",
		Long:  `All software has versions. This is steward's.`,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "steward version %s\n", rootCmd.Version)
			if buildCommit != "" {
				fmt.Fprintf(out, "  commit: %s\n", buildCommit)
			}
			if buildDate != "" {
				fmt.Fprintf(out, "  built:  %s\n", buildDate)
			}
		},
	}
}
