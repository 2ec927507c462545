package commands

import (
	"fmt"

	"github.com/marmos91/afpfs/pkg/volume"
	"github.com/spf13/cobra"
)

var lsCmd = &cobra.Command{
	Use:   "ls [path]",
	Short: "List a directory's entries",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runLs,
}

func runLs(cmd *cobra.Command, args []string) error {
	dir := "/"
	if len(args) == 1 {
		dir = args[0]
	}

	m, err := connectAndMount(cmd.Context())
	if err != nil {
		return err
	}
	defer m.Close()

	bitmap := volume.LongNameBit | volume.NodeIDBit | volume.ExtDataForkLenBit | volume.ModDateBit
	var startIndex int64
	for {
		entries, err := m.Volume.Enumerate(cmd.Context(), dir, startIndex, bitmap, bitmap)
		if err != nil {
			return fmt.Errorf("enumerate %q: %w", dir, err)
		}
		if len(entries) == 0 {
			break
		}
		for _, e := range entries {
			kind := "f"
			if e.IsDirectory {
				kind = "d"
			}
			fmt.Printf("%s %10d %s\n", kind, e.DataForkLength, e.Name())
		}
		startIndex += int64(len(entries))
	}
	return nil
}
