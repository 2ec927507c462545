package commands

import (
	"fmt"
	"path"

	"github.com/spf13/cobra"
)

var mvCmd = &cobra.Command{
	Use:   "mv <source> <destination>",
	Short: "Move and/or rename a file or directory",
	Args:  cobra.ExactArgs(2),
	RunE:  runMv,
}

func runMv(cmd *cobra.Command, args []string) error {
	source, destination := args[0], args[1]

	m, err := connectAndMount(cmd.Context())
	if err != nil {
		return err
	}
	defer m.Close()

	if path.Dir(source) == path.Dir(destination) {
		if err := m.Volume.Rename(cmd.Context(), source, path.Base(destination)); err != nil {
			return fmt.Errorf("rename %q to %q: %w", source, destination, err)
		}
	} else if err := m.Volume.MoveAndRename(cmd.Context(), source, destination); err != nil {
		return fmt.Errorf("move %q to %q: %w", source, destination, err)
	}

	fmt.Printf("moved %s to %s\n", source, destination)
	return nil
}
