package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/marmos91/afpfs/pkg/volume"
	"github.com/spf13/cobra"
)

const putChunkSize = 64 * 1024

var putCmd = &cobra.Command{
	Use:   "put <local-file> <remote-path>",
	Short: "Upload a local file to the mounted volume",
	Args:  cobra.ExactArgs(2),
	RunE:  runPut,
}

func runPut(cmd *cobra.Command, args []string) error {
	localPath, remotePath := args[0], args[1]

	f, err := os.Open(localPath)
	if err != nil {
		return err
	}
	defer f.Close()

	m, err := connectAndMount(cmd.Context())
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Volume.CreateFile(cmd.Context(), remotePath, true); err != nil {
		return fmt.Errorf("create %q: %w", remotePath, err)
	}

	forkRefNum, _, err := m.Volume.OpenFork(cmd.Context(), remotePath, volume.AccessWrite|volume.AccessDenyRead, 0)
	if err != nil {
		return fmt.Errorf("open %q: %w", remotePath, err)
	}
	defer m.Volume.CloseFork(cmd.Context(), forkRefNum)

	buf := make([]byte, putChunkSize)
	var offset int64
	for {
		n, readErr := f.Read(buf)
		if n > 0 {
			last, err := m.Volume.WriteToFork(cmd.Context(), forkRefNum, offset, buf[:n])
			if err != nil {
				return fmt.Errorf("write %q: %w", remotePath, err)
			}
			offset = last
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return readErr
		}
	}

	fmt.Printf("uploaded %d bytes to %s\n", offset, remotePath)
	return nil
}
