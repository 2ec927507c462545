package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var mkdirCmd = &cobra.Command{
	Use:   "mkdir <path>",
	Short: "Create a directory",
	Args:  cobra.ExactArgs(1),
	RunE:  runMkdir,
}

func runMkdir(cmd *cobra.Command, args []string) error {
	path := args[0]

	m, err := connectAndMount(cmd.Context())
	if err != nil {
		return err
	}
	defer m.Close()

	nodeID, err := m.Volume.CreateDir(cmd.Context(), path)
	if err != nil {
		return fmt.Errorf("mkdir %q: %w", path, err)
	}
	fmt.Printf("created %s (node %d)\n", path, nodeID)
	return nil
}
