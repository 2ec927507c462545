package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var rmCmd = &cobra.Command{
	Use:   "rm <path>",
	Short: "Delete a file or empty directory",
	Args:  cobra.ExactArgs(1),
	RunE:  runRm,
}

func runRm(cmd *cobra.Command, args []string) error {
	path := args[0]

	m, err := connectAndMount(cmd.Context())
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Volume.Delete(cmd.Context(), path); err != nil {
		return fmt.Errorf("rm %q: %w", path, err)
	}
	fmt.Printf("deleted %s\n", path)
	return nil
}
