package volume

import (
	"context"

	"github.com/marmos91/afpfs/pkg/afperrors"
	"github.com/marmos91/afpfs/pkg/codec"
	"github.com/marmos91/afpfs/pkg/command"
)

// maxReqCount is the reply record limit this client requests per ENUMERATE
// call; servers never return more than this many records in one reply.
const maxReqCount = 0x7FFF // MAX_I16

// maxStartIndexExt/maxStartIndexExt2 bound the startIndex field's width for
// each enumerate dialect.
const (
	maxStartIndexExt  = 0x7FFF
	maxStartIndexExt2 = 0x7FFFFFFF
)

// GetFileDirParms retrieves the fields selected by fileBitmap/dirBitmap for
// the file or directory at pathname, returning whichever bitmap the server
// reports applies via the high bit of the FileDir byte.
func (v *Volume) GetFileDirParms(ctx context.Context, pathname string, fileBitmap, dirBitmap Bitmap) (Info, error) {
	if err := v.requireMounted(); err != nil {
		return Info{}, err
	}

	cmd := command.New(command.GetFileDirParms)
	cmd.W().PutU8(0)
	cmd.W().PutU16(v.volumeID)
	cmd.W().PutU32(rootDirID)
	cmd.W().PutU16(uint16(fileBitmap))
	cmd.W().PutU16(uint16(dirBitmap))
	putPathname(cmd.W(), pathname)

	rep, err := v.conn.SendCommand(ctx, cmd, 0)
	if err != nil {
		return Info{}, err
	}
	if !rep.OK() {
		return Info{}, afperrors.Translate(rep.ResultCode, "get file dir parms "+pathname, nil)
	}

	return decodeFileDirRecord(rep.R(), fileBitmap, dirBitmap)
}

// decodeFileDirRecord reads the common GET_FILE_DIR_PARMS/ENUMERATE record
// header (fileBitmap:u16, dirBitmap:u16, FileDir:u8, pad:u8) followed by the
// fields selected by whichever bitmap the FileDir byte's high bit selects.
func decodeFileDirRecord(r *codec.Reader, fileBitmap, dirBitmap Bitmap) (Info, error) {
	if _, err := r.ReadU16(); err != nil { // echoed fileBitmap
		return Info{}, afperrors.Wrap(afperrors.Malformed, "file dir record file bitmap", err)
	}
	if _, err := r.ReadU16(); err != nil { // echoed dirBitmap
		return Info{}, afperrors.Wrap(afperrors.Malformed, "file dir record dir bitmap", err)
	}
	fileDir, err := r.ReadU8()
	if err != nil {
		return Info{}, afperrors.Wrap(afperrors.Malformed, "file dir record flag", err)
	}
	if err := r.SkipToEven(); err != nil {
		return Info{}, afperrors.Wrap(afperrors.Malformed, "file dir record pad", err)
	}

	isDirectory := fileDir&0x80 != 0
	bitmap := fileBitmap
	if isDirectory {
		bitmap = dirBitmap
	}

	rest, err := r.ReadRaw(r.Len())
	if err != nil {
		return Info{}, afperrors.Wrap(afperrors.Malformed, "file dir record body", err)
	}
	return decodeInfo(bitmap, isDirectory, rest)
}

var enumerateErrors = map[afperrors.ResultCode]afperrors.Code{
	afperrors.ObjectTypeErr: afperrors.NotDirectory,
}

// Enumerate lists the entries of directory starting at the zero-based
// startIndex, requesting the fields selected by fileBitmap/dirBitmap. It
// chooses ENUMERATE_EXT2 for AFP 3.1+ servers and ENUMERATE_EXT otherwise,
// short-circuiting with an empty batch (no network round-trip) once
// startIndex exceeds the chosen dialect's range. A server reply of
// OBJECT_NOT_FOUND is not an error: it signals the end of enumeration and
// also yields an empty batch.
func (v *Volume) Enumerate(ctx context.Context, directory string, startIndex int64, fileBitmap, dirBitmap Bitmap) ([]Info, error) {
	if err := v.requireMounted(); err != nil {
		return nil, err
	}

	useExt2 := useEnumerateExt2(v.version)

	maxIndex := int64(maxStartIndexExt)
	if useExt2 {
		maxIndex = maxStartIndexExt2
	}
	if startIndex > maxIndex {
		return nil, nil
	}

	typ := command.EnumerateExt
	if useExt2 {
		typ = command.EnumerateExt2
	}

	cmd := command.New(typ)
	cmd.W().PutU8(0)
	cmd.W().PutU16(v.volumeID)
	cmd.W().PutU32(rootDirID)
	cmd.W().PutU16(uint16(fileBitmap))
	cmd.W().PutU16(uint16(dirBitmap))
	cmd.W().PutU16(maxReqCount)
	if useExt2 {
		cmd.W().PutI32(int32(startIndex))
		cmd.W().PutI32(int32(maxReqCount))
	} else {
		cmd.W().PutI16(int16(startIndex))
		cmd.W().PutI16(int16(maxReqCount))
	}
	putPathname(cmd.W(), directory)

	rep, err := v.conn.SendCommand(ctx, cmd, 0)
	if err != nil {
		return nil, err
	}
	if rep.ResultCode == afperrors.ObjectNotFound {
		return nil, nil
	}
	if !rep.OK() {
		return nil, afperrors.Translate(rep.ResultCode, "enumerate "+directory, enumerateErrors)
	}

	if _, err := rep.R().ReadU16(); err != nil { // echoed fileBitmap
		return nil, afperrors.Wrap(afperrors.Malformed, "enumerate reply file bitmap", err)
	}
	if _, err := rep.R().ReadU16(); err != nil { // echoed dirBitmap
		return nil, afperrors.Wrap(afperrors.Malformed, "enumerate reply dir bitmap", err)
	}
	count, err := rep.R().ReadI16()
	if err != nil {
		return nil, afperrors.Wrap(afperrors.Malformed, "enumerate reply count", err)
	}

	infos := make([]Info, 0, count)
	for i := int16(0); i < count; i++ {
		recordStart := rep.Pos()
		structLength, err := rep.R().ReadU16()
		if err != nil {
			return nil, afperrors.Wrap(afperrors.Malformed, "enumerate record length", err)
		}
		fileDir, err := rep.R().ReadU8()
		if err != nil {
			return nil, afperrors.Wrap(afperrors.Malformed, "enumerate record flag", err)
		}
		if err := rep.SkipToEven(); err != nil {
			return nil, afperrors.Wrap(afperrors.Malformed, "enumerate record pad", err)
		}

		isDirectory := fileDir&0x80 != 0
		bitmap := fileBitmap
		if isDirectory {
			bitmap = dirBitmap
		}

		fieldsEnd := recordStart + int(structLength)
		fieldsLen := fieldsEnd - rep.Pos()
		if fieldsLen < 0 {
			return nil, afperrors.New(afperrors.Malformed, "enumerate record length shorter than header")
		}
		fields, err := rep.R().ReadRaw(fieldsLen)
		if err != nil {
			return nil, afperrors.Wrap(afperrors.Malformed, "enumerate record fields", err)
		}

		info, err := decodeInfo(bitmap, isDirectory, fields)
		if err != nil {
			return nil, err
		}
		infos = append(infos, info)

		if err := rep.Seek(fieldsEnd, codec.SeekStart); err != nil {
			return nil, afperrors.Wrap(afperrors.Malformed, "enumerate record seek", err)
		}
	}

	return infos, nil
}

// useEnumerateExt2 reports whether version (an AFP version string such as
// "AFP3.1" or "AFP2.2") is 3.1 or later.
func useEnumerateExt2(version string) bool {
	switch version {
	case "AFP3.1", "AFP3.2", "AFP3.3", "AFP3.4":
		return true
	default:
		return false
	}
}
