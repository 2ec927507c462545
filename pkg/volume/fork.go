package volume

import (
	"context"

	"github.com/marmos91/afpfs/pkg/afperrors"
	"github.com/marmos91/afpfs/pkg/command"
)

// rootDirID is the node ID AFP reserves for a volume's root directory.
const rootDirID uint32 = 2

// openForkErrors maps OPEN_FORK's error codes, which differ from the
// generic table: ACCESS_DENIED here means PermissionDenied (the generic
// table already agrees), but OBJECT_TYPE_ERR means the target is a
// directory rather than "not a directory".
var openForkErrors = map[afperrors.ResultCode]afperrors.Code{
	afperrors.ObjectTypeErr:    afperrors.IsDirectory,
	afperrors.TooManyFilesOpen: afperrors.TooManyOpen,
}

// OpenFork opens the data fork of filename with the given AccessMode bits
// (AccessRead/AccessWrite/AccessDenyRead/AccessDenyWrite), returning the
// fork reference number and the Info fields selected by bitmap.
func (v *Volume) OpenFork(ctx context.Context, filename string, accessMode uint16, bitmap Bitmap) (int16, Info, error) {
	if err := v.requireMounted(); err != nil {
		return 0, Info{}, err
	}

	cmd := command.New(command.OpenFork)
	cmd.W().PutU8(0) // forkType: 0 = data fork
	cmd.W().PutU16(v.volumeID)
	cmd.W().PutU32(rootDirID)
	cmd.W().PutU16(uint16(bitmap))
	cmd.W().PutU16(accessMode)
	putPathname(cmd.W(), filename)

	rep, err := v.conn.SendCommand(ctx, cmd, 0)
	if err != nil {
		return 0, Info{}, err
	}
	if !rep.OK() {
		return 0, Info{}, afperrors.Translate(rep.ResultCode, "open fork "+filename, openForkErrors)
	}

	fileBitmap, err := rep.R().ReadU16()
	if err != nil {
		return 0, Info{}, afperrors.Wrap(afperrors.Malformed, "open fork reply bitmap", err)
	}
	forkRefNum, err := rep.R().ReadI16()
	if err != nil {
		return 0, Info{}, afperrors.Wrap(afperrors.Malformed, "open fork reply refnum", err)
	}

	rest, err := rep.R().ReadRaw(rep.R().Len())
	if err != nil {
		return 0, Info{}, afperrors.Wrap(afperrors.Malformed, "open fork reply body", err)
	}
	info, err := decodeInfo(Bitmap(fileBitmap), false, rest)
	if err != nil {
		return 0, Info{}, err
	}

	return forkRefNum, info, nil
}

// CloseFork closes the fork referenced by forkRefNum.
func (v *Volume) CloseFork(ctx context.Context, forkRefNum int16) error {
	if err := v.requireMounted(); err != nil {
		return err
	}

	cmd := command.New(command.CloseFork)
	cmd.W().PutU8(0)
	cmd.W().PutI16(forkRefNum)

	rep, err := v.conn.SendCommand(ctx, cmd, 0)
	if err != nil {
		return err
	}
	if !rep.OK() {
		return afperrors.Translate(rep.ResultCode, "close fork", nil)
	}
	return nil
}

// GetForkParms retrieves the fields selected by bitmap for an open fork.
func (v *Volume) GetForkParms(ctx context.Context, forkRefNum int16, bitmap Bitmap) (Info, error) {
	if err := v.requireMounted(); err != nil {
		return Info{}, err
	}

	cmd := command.New(command.GetForkParms)
	cmd.W().PutU8(0)
	cmd.W().PutI16(forkRefNum)
	cmd.W().PutU16(uint16(bitmap))

	rep, err := v.conn.SendCommand(ctx, cmd, 0)
	if err != nil {
		return Info{}, err
	}
	if !rep.OK() {
		return Info{}, afperrors.Translate(rep.ResultCode, "get fork parms", nil)
	}

	fileBitmap, err := rep.R().ReadU16()
	if err != nil {
		return Info{}, afperrors.Wrap(afperrors.Malformed, "get fork parms reply bitmap", err)
	}
	rest, err := rep.R().ReadRaw(rep.R().Len())
	if err != nil {
		return Info{}, afperrors.Wrap(afperrors.Malformed, "get fork parms reply body", err)
	}
	return decodeInfo(Bitmap(fileBitmap), false, rest)
}

var setForkSizeErrors = map[afperrors.ResultCode]afperrors.Code{
	afperrors.AccessDenied: afperrors.Failed,
	afperrors.LockErr:      afperrors.Failed,
}

// SetForkSize truncates or extends the fork referenced by forkRefNum to
// size bytes.
func (v *Volume) SetForkSize(ctx context.Context, forkRefNum int16, size int64) error {
	if err := v.requireMounted(); err != nil {
		return err
	}

	cmd := command.New(command.SetForkParms)
	cmd.W().PutU8(0)
	cmd.W().PutI16(forkRefNum)
	cmd.W().PutU16(uint16(ExtDataForkLenBit))
	cmd.W().PutI64(size)

	rep, err := v.conn.SendCommand(ctx, cmd, 0)
	if err != nil {
		return err
	}
	if !rep.OK() {
		return afperrors.Translate(rep.ResultCode, "set fork size", setForkSizeErrors)
	}
	return nil
}

var writeToForkErrors = map[afperrors.ResultCode]afperrors.Code{
	afperrors.AccessDenied: afperrors.Failed,
	afperrors.LockErr:      afperrors.Failed,
}

// WriteToFork writes data to the fork referenced by forkRefNum at offset,
// returning the offset of the last byte written. Framed as DSI_WRITE with
// a 20-byte command body (startEndFlag, forkRefNum, offset, reqCount)
// followed by data on the wire.
func (v *Volume) WriteToFork(ctx context.Context, forkRefNum int16, offset int64, data []byte) (int64, error) {
	if err := v.requireMounted(); err != nil {
		return 0, err
	}

	reqCount := len(data)
	if reqCount > 0xFFFFFFFF {
		reqCount = 0xFFFFFFFF
	}

	cmd := command.New(command.WriteExt)
	cmd.W().PutU8(0) // StartEndFlag
	cmd.W().PutI16(forkRefNum)
	cmd.W().PutI64(offset)
	cmd.W().PutI64(int64(reqCount))
	cmd.ExtraPayload = data[:reqCount]

	const writeCommandBodyLen = 20
	rep, err := v.conn.SendCommand(ctx, cmd, writeCommandBodyLen)
	if err != nil {
		return 0, err
	}
	if !rep.OK() {
		return 0, afperrors.Translate(rep.ResultCode, "write to fork", writeToForkErrors)
	}

	lastWritten, err := rep.R().ReadI64()
	if err != nil {
		return 0, afperrors.Wrap(afperrors.Malformed, "write reply", err)
	}
	return lastWritten, nil
}

var readFromForkErrors = map[afperrors.ResultCode]afperrors.Code{
	afperrors.AccessDenied: afperrors.Failed,
}

// ReadFromFork reads up to requested bytes from forkRefNum starting at
// offset. NO_ERROR, LOCK_ERR, and EOF_ERR are all non-failure read outcomes;
// the number of bytes actually delivered is returned regardless of which of
// the three produced them.
func (v *Volume) ReadFromFork(ctx context.Context, forkRefNum int16, offset int64, requested int) ([]byte, error) {
	if err := v.requireMounted(); err != nil {
		return nil, err
	}

	reqCount := requested
	if reqCount > 0xFFFFFFFF {
		reqCount = 0xFFFFFFFF
	}

	cmd := command.New(command.ReadExt)
	cmd.W().PutU8(0)
	cmd.W().PutI16(forkRefNum)
	cmd.W().PutI64(offset)
	cmd.W().PutI64(int64(reqCount))

	rep, err := v.conn.SendCommand(ctx, cmd, 0)
	if err != nil {
		return nil, err
	}
	if !rep.OK() && rep.ResultCode != afperrors.LockErr && rep.ResultCode != afperrors.EOFErr {
		return nil, afperrors.Translate(rep.ResultCode, "read from fork", readFromForkErrors)
	}

	data, err := rep.R().ReadRaw(rep.R().Len())
	if err != nil {
		return nil, afperrors.Wrap(afperrors.Malformed, "read reply body", err)
	}
	return data, nil
}
