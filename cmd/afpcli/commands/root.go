// Package commands implements the afpcli command tree: a thin cobra wrapper
// around pkg/session and pkg/volume used as a development and smoke-test
// harness against a real AFP server.
package commands

import (
	"github.com/spf13/cobra"
)

// Flags holds the global flag values shared by every subcommand.
var Flags = &GlobalFlags{}

// GlobalFlags are the connection parameters every subcommand needs to open
// a session and mount a volume before doing its actual work.
type GlobalFlags struct {
	ConfigFile string
	Address    string
	Username   string
	Password   string
	Volume     string
	Debug      bool
}

var rootCmd = &cobra.Command{
	Use:   "afpcli",
	Short: "Command-line client for the Apple Filing Protocol",
	Long: `afpcli connects to an AFP server, mounts a volume, and performs one
filesystem operation per invocation. It exists primarily as a development
and smoke-test harness for this module's session and volume packages.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the command tree. Called once from main.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&Flags.ConfigFile, "config", "", "config file (default: ./afpfs.yaml)")
	rootCmd.PersistentFlags().StringVar(&Flags.Address, "address", "", "server address, host:port (default port 548)")
	rootCmd.PersistentFlags().StringVarP(&Flags.Username, "username", "u", "", "username (prompted if omitted)")
	rootCmd.PersistentFlags().StringVarP(&Flags.Password, "password", "p", "", "password (prompted if omitted)")
	rootCmd.PersistentFlags().StringVar(&Flags.Volume, "volume", "", "volume name to mount")
	rootCmd.PersistentFlags().BoolVar(&Flags.Debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(lsCmd)
	rootCmd.AddCommand(catCmd)
	rootCmd.AddCommand(putCmd)
	rootCmd.AddCommand(mkdirCmd)
	rootCmd.AddCommand(rmCmd)
	rootCmd.AddCommand(mvCmd)
	rootCmd.AddCommand(statCmd)
	rootCmd.AddCommand(versionCmd)
}
