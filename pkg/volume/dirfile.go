package volume

import (
	"context"
	"path"

	"github.com/marmos91/afpfs/pkg/afperrors"
	"github.com/marmos91/afpfs/pkg/command"
)

var deleteErrors = map[afperrors.ResultCode]afperrors.Code{
	afperrors.ObjectLocked: afperrors.Failed,
	afperrors.VolLocked:    afperrors.PermissionDenied,
}

// Delete removes the file or directory at pathname.
func (v *Volume) Delete(ctx context.Context, pathname string) error {
	if err := v.requireMounted(); err != nil {
		return err
	}

	cmd := command.New(command.Delete)
	cmd.W().PutU8(0)
	cmd.W().PutU16(v.volumeID)
	cmd.W().PutU32(rootDirID)
	putPathname(cmd.W(), pathname)

	rep, err := v.conn.SendCommand(ctx, cmd, 0)
	if err != nil {
		return err
	}
	if !rep.OK() {
		return afperrors.Translate(rep.ResultCode, "delete "+pathname, deleteErrors)
	}
	return nil
}

var createFileErrors = map[afperrors.ResultCode]afperrors.Code{
	afperrors.FileBusy:        afperrors.Exists,
	afperrors.ObjectExists:    afperrors.Exists,
	afperrors.ObjectTypeErr:   afperrors.Exists,
	afperrors.ObjectNotFound:  afperrors.NotFound,
	afperrors.VolLocked:       afperrors.PermissionDenied,
}

// CreateFile creates pathname as an empty file. hardCreate selects
// overwrite-if-exists (true) vs. fail-if-exists (false) semantics.
func (v *Volume) CreateFile(ctx context.Context, pathname string, hardCreate bool) error {
	if err := v.requireMounted(); err != nil {
		return err
	}

	parentID, err := v.resolveDirID(ctx, path.Dir(pathname), NodeIDBit)
	if err != nil {
		return err
	}

	createByte := uint8(0x00)
	if hardCreate {
		createByte = 0x80
	}

	cmd := command.New(command.CreateFile)
	cmd.W().PutU8(createByte)
	cmd.W().PutU16(v.volumeID)
	cmd.W().PutU32(parentID)
	putPathname(cmd.W(), path.Base(pathname))

	rep, err := v.conn.SendCommand(ctx, cmd, 0)
	if err != nil {
		return err
	}
	if !rep.OK() {
		return afperrors.Translate(rep.ResultCode, "create file "+pathname, createFileErrors)
	}
	return nil
}

var createDirErrors = map[afperrors.ResultCode]afperrors.Code{
	afperrors.FlatVol:        afperrors.NotSupported,
	afperrors.ObjectNotFound: afperrors.NotFound,
	afperrors.ObjectExists:   afperrors.Exists,
	afperrors.VolLocked:      afperrors.PermissionDenied,
}

// CreateDir creates pathname as an empty directory, returning its new node
// ID.
func (v *Volume) CreateDir(ctx context.Context, pathname string) (uint32, error) {
	if err := v.requireMounted(); err != nil {
		return 0, err
	}

	parentID, err := v.resolveDirID(ctx, path.Dir(pathname), NodeIDBit)
	if err != nil {
		return 0, err
	}

	cmd := command.New(command.CreateDir)
	cmd.W().PutU8(0)
	cmd.W().PutU16(v.volumeID)
	cmd.W().PutU32(parentID)
	putPathname(cmd.W(), path.Base(pathname))

	rep, err := v.conn.SendCommand(ctx, cmd, 0)
	if err != nil {
		return 0, err
	}
	if !rep.OK() {
		return 0, afperrors.Translate(rep.ResultCode, "create dir "+pathname, createDirErrors)
	}

	newDirID, err := rep.R().ReadU32()
	if err != nil {
		return 0, afperrors.Wrap(afperrors.Malformed, "create dir reply", err)
	}
	return newDirID, nil
}

var renameErrors = map[afperrors.ResultCode]afperrors.Code{
	afperrors.ObjectLocked: afperrors.Failed,
	afperrors.CantRename:   afperrors.InvalidFilename,
}

// Rename renames the file or directory at pathname to newName, within the
// same parent directory.
func (v *Volume) Rename(ctx context.Context, pathname, newName string) error {
	if err := v.requireMounted(); err != nil {
		return err
	}

	info, err := v.GetFileDirParms(ctx, pathname, ParentDirIDBit, ParentDirIDBit)
	if err != nil {
		return err
	}
	parentID := info.ParentDirID

	cmd := command.New(command.Rename)
	cmd.W().PutU8(0)
	cmd.W().PutU16(v.volumeID)
	cmd.W().PutU32(parentID)
	putPathname(cmd.W(), path.Base(pathname))
	putPathname(cmd.W(), newName)

	rep, err := v.conn.SendCommand(ctx, cmd, 0)
	if err != nil {
		return err
	}
	if !rep.OK() {
		return afperrors.Translate(rep.ResultCode, "rename "+pathname, renameErrors)
	}
	return nil
}

var setUnixPrivsErrors = map[afperrors.ResultCode]afperrors.Code{
	afperrors.VolLocked: afperrors.PermissionDenied,
}

// SetUnixPrivs sets the owner, group, permission, and AFP access-rights
// fields of pathname.
func (v *Volume) SetUnixPrivs(ctx context.Context, pathname string, privs UnixPrivs) error {
	if err := v.requireMounted(); err != nil {
		return err
	}

	cmd := command.New(command.SetFileDirParms)
	cmd.W().PutU8(0)
	cmd.W().PutU16(v.volumeID)
	cmd.W().PutU32(rootDirID)
	cmd.W().PutU16(uint16(UnixPrivsBit))
	putPathname(cmd.W(), pathname)
	cmd.W().PadToEven()
	cmd.W().PutU32(privs.UID)
	cmd.W().PutU32(privs.GID)
	cmd.W().PutU32(privs.Permissions)
	cmd.W().PutU32(privs.UAPermissions)

	rep, err := v.conn.SendCommand(ctx, cmd, 0)
	if err != nil {
		return err
	}
	if !rep.OK() {
		return afperrors.Translate(rep.ResultCode, "set unix privs "+pathname, setUnixPrivsErrors)
	}
	return nil
}
