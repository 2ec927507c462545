package volume

import (
	"context"

	"github.com/marmos91/afpfs/pkg/afperrors"
	"github.com/marmos91/afpfs/pkg/command"
)

var exchangeFilesErrors = map[afperrors.ResultCode]afperrors.Code{
	afperrors.AccessDenied: afperrors.Failed,
}

// ExchangeFiles atomically swaps the contents of source and destination,
// preserving each path's identity (ideal for crash-safe "replace the old
// file with the new one" writers).
func (v *Volume) ExchangeFiles(ctx context.Context, source, destination string) error {
	if err := v.requireMounted(); err != nil {
		return err
	}

	cmd := command.New(command.ExchangeFiles)
	cmd.W().PutU8(0)
	cmd.W().PutU16(v.volumeID)
	cmd.W().PutU32(rootDirID)
	cmd.W().PutU32(rootDirID)
	putPathname(cmd.W(), source)
	putPathname(cmd.W(), destination)

	rep, err := v.conn.SendCommand(ctx, cmd, 0)
	if err != nil {
		return err
	}
	if !rep.OK() {
		return afperrors.Translate(rep.ResultCode, "exchange "+source+" and "+destination, exchangeFilesErrors)
	}
	return nil
}
