package volume

import (
	"context"
	"path"

	"github.com/marmos91/afpfs/pkg/afperrors"
	"github.com/marmos91/afpfs/pkg/command"
)

var moveAndRenameErrors = map[afperrors.ResultCode]afperrors.Code{
	afperrors.ObjectLocked:   afperrors.NotFound,
	afperrors.InsideShareErr: afperrors.Failed,
	afperrors.InsideTrashErr: afperrors.Failed,
	afperrors.CantMove:       afperrors.WouldRecurse,
}

// MoveAndRename moves and/or renames source to destination within the same
// volume. destination's parent directory must already exist.
func (v *Volume) MoveAndRename(ctx context.Context, source, destination string) error {
	if err := v.requireMounted(); err != nil {
		return err
	}

	cmd := command.New(command.MoveAndRename)
	cmd.W().PutU8(0)
	cmd.W().PutU16(v.volumeID)
	cmd.W().PutU32(rootDirID)
	cmd.W().PutU32(rootDirID)
	putPathname(cmd.W(), source)
	putPathname(cmd.W(), path.Dir(destination))
	putPathname(cmd.W(), path.Base(destination))

	rep, err := v.conn.SendCommand(ctx, cmd, 0)
	if err != nil {
		return err
	}
	if !rep.OK() {
		return afperrors.Translate(rep.ResultCode, "move "+source+" to "+destination, moveAndRenameErrors)
	}
	return nil
}

var copyFileErrors = map[afperrors.ResultCode]afperrors.Code{
	afperrors.DenyConflict: afperrors.Failed,
}

// CopyFile copies source on this volume to destination on destVolumeID,
// which may be a different mounted volume than v (cross-volume copy is an
// AFP server-side operation, not a client read/write loop). destVolumeID
// equals v.ID() for an intra-volume copy.
func (v *Volume) CopyFile(ctx context.Context, source string, destVolumeID uint16, destination string) error {
	if err := v.requireMounted(); err != nil {
		return err
	}

	cmd := command.New(command.CopyFile)
	cmd.W().PutU8(0)
	cmd.W().PutU16(v.volumeID)
	cmd.W().PutU32(rootDirID)
	cmd.W().PutU16(destVolumeID)
	cmd.W().PutU32(rootDirID)
	putPathname(cmd.W(), source)
	putPathname(cmd.W(), path.Dir(destination))
	putPathname(cmd.W(), path.Base(destination))

	rep, err := v.conn.SendCommand(ctx, cmd, 0)
	if err != nil {
		return err
	}
	if !rep.OK() {
		return afperrors.Translate(rep.ResultCode, "copy "+source+" to "+destination, copyFileErrors)
	}
	return nil
}
