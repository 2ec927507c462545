package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version information injected at build time.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print afpcli's version",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Printf("afpcli %s (commit %s, built %s)\n", Version, Commit, Date)
		return nil
	},
}
