package commands

import (
	"fmt"

	"github.com/marmos91/afpfs/pkg/volume"
	"github.com/spf13/cobra"
)

var statCmd = &cobra.Command{
	Use:   "stat <path>",
	Short: "Print file or directory metadata",
	Args:  cobra.ExactArgs(1),
	RunE:  runStat,
}

func runStat(cmd *cobra.Command, args []string) error {
	path := args[0]

	m, err := connectAndMount(cmd.Context())
	if err != nil {
		return err
	}
	defer m.Close()

	bitmap := volume.LongNameBit | volume.NodeIDBit | volume.ExtDataForkLenBit |
		volume.CreateDateBit | volume.ModDateBit | volume.ParentDirIDBit

	info, err := m.Volume.GetFileDirParms(cmd.Context(), path, bitmap, bitmap)
	if err != nil {
		return fmt.Errorf("stat %q: %w", path, err)
	}

	fmt.Printf("name:        %s\n", info.Name())
	fmt.Printf("directory:   %t\n", info.IsDirectory)
	fmt.Printf("node id:     %d\n", info.NodeID)
	fmt.Printf("parent id:   %d\n", info.ParentDirID)
	fmt.Printf("data length: %d\n", info.DataForkLength)
	fmt.Printf("created:     %s\n", info.CreateDate)
	fmt.Printf("modified:    %s\n", info.ModDate)
	return nil
}
