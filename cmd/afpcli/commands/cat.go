package commands

import (
	"fmt"
	"os"

	"github.com/marmos91/afpfs/pkg/volume"
	"github.com/spf13/cobra"
)

const catChunkSize = 64 * 1024

var catCmd = &cobra.Command{
	Use:   "cat <path>",
	Short: "Print a file's contents to stdout",
	Args:  cobra.ExactArgs(1),
	RunE:  runCat,
}

func runCat(cmd *cobra.Command, args []string) error {
	path := args[0]

	m, err := connectAndMount(cmd.Context())
	if err != nil {
		return err
	}
	defer m.Close()

	forkRefNum, info, err := m.Volume.OpenFork(cmd.Context(), path, volume.AccessRead, volume.ExtDataForkLenBit)
	if err != nil {
		return fmt.Errorf("open %q: %w", path, err)
	}
	defer m.Volume.CloseFork(cmd.Context(), forkRefNum)

	var offset int64
	for offset < int64(info.DataForkLength) {
		want := catChunkSize
		if remaining := int64(info.DataForkLength) - offset; remaining < int64(want) {
			want = int(remaining)
		}
		data, err := m.Volume.ReadFromFork(cmd.Context(), forkRefNum, offset, want)
		if err != nil {
			return fmt.Errorf("read %q: %w", path, err)
		}
		if len(data) == 0 {
			break
		}
		if _, err := os.Stdout.Write(data); err != nil {
			return err
		}
		offset += int64(len(data))
	}
	return nil
}
