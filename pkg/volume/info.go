package volume

import (
	"time"

	"github.com/marmos91/afpfs/pkg/afperrors"
	"github.com/marmos91/afpfs/pkg/afptime"
	"github.com/marmos91/afpfs/pkg/codec"
)

// UnixPrivs is the AFP UNIX_PRIVS field: owner, group, permission bits, and
// the AFP-specific "UA permissions" access-rights summary.
type UnixPrivs struct {
	UID            uint32
	GID            uint32
	Permissions    uint32
	UAPermissions  uint32
}

// Info is one file or directory record decoded from a GET_FILE_DIR_PARMS,
// OPEN_FORK, GET_FORK_PARMS, or ENUMERATE reply, carrying exactly the
// fields whose bits were set in the bitmap that produced it (invariant I5).
type Info struct {
	IsDirectory bool

	Attributes     uint16
	ParentDirID    uint32
	CreateDate     time.Time
	ModDate        time.Time
	BackupDate     time.Time
	FinderInfo     []byte
	LongName       string
	ShortName      string
	UTF8Name       string
	NodeID         uint32

	DataForkLength    uint64
	RsrcForkLength    uint64
	LaunchLimit       uint16

	OffspringCount uint16
	OwnerID        uint32
	GroupID        uint32
	AccessRights   uint32
	UUID           []byte

	UnixPrivs UnixPrivs
}

// decodeInfo reads the fixed-width fields selected by bitmap, in ascending
// bit order, from the start of record. Name fields (LongName/ShortName/
// UTF8Name) are encoded as a u16 offset into record followed by the string
// at that offset; every other field is inline.
func decodeInfo(bitmap Bitmap, isDirectory bool, record []byte) (Info, error) {
	r := codec.NewReader(record)
	info := Info{IsDirectory: isDirectory}

	var longNameOff, shortNameOff, utf8NameOff uint16
	var haveLongName, haveShortName, haveUTF8Name bool

	readOffset := func(dst *uint16, have *bool) error {
		v, err := r.ReadU16()
		if err != nil {
			return err
		}
		*dst = v
		*have = true
		return nil
	}

	// Bits below are processed in ascending numeric order, matching the
	// order the server writes fields in.
	if bitmap&AttributeBit != 0 {
		v, err := r.ReadU16()
		if err != nil {
			return Info{}, afperrors.Wrap(afperrors.Malformed, "attribute", err)
		}
		info.Attributes = v
	}
	if bitmap&ParentDirIDBit != 0 {
		v, err := r.ReadU32()
		if err != nil {
			return Info{}, afperrors.Wrap(afperrors.Malformed, "parent dir id", err)
		}
		info.ParentDirID = v
	}
	if bitmap&CreateDateBit != 0 {
		v, err := r.ReadI32()
		if err != nil {
			return Info{}, afperrors.Wrap(afperrors.Malformed, "create date", err)
		}
		info.CreateDate = afptime.FromAFP(v)
	}
	if bitmap&ModDateBit != 0 {
		v, err := r.ReadI32()
		if err != nil {
			return Info{}, afperrors.Wrap(afperrors.Malformed, "mod date", err)
		}
		info.ModDate = afptime.FromAFP(v)
	}
	if bitmap&BackupDateBit != 0 {
		v, err := r.ReadI32()
		if err != nil {
			return Info{}, afperrors.Wrap(afperrors.Malformed, "backup date", err)
		}
		info.BackupDate = afptime.FromAFP(v)
	}
	if bitmap&FinderInfoBit != 0 {
		b, err := r.ReadRaw(32)
		if err != nil {
			return Info{}, afperrors.Wrap(afperrors.Malformed, "finder info", err)
		}
		info.FinderInfo = append([]byte(nil), b...)
	}
	if bitmap&LongNameBit != 0 {
		if err := readOffset(&longNameOff, &haveLongName); err != nil {
			return Info{}, afperrors.Wrap(afperrors.Malformed, "long name offset", err)
		}
	}
	if bitmap&ShortNameBit != 0 {
		if err := readOffset(&shortNameOff, &haveShortName); err != nil {
			return Info{}, afperrors.Wrap(afperrors.Malformed, "short name offset", err)
		}
	}
	if bitmap&NodeIDBit != 0 {
		v, err := r.ReadU32()
		if err != nil {
			return Info{}, afperrors.Wrap(afperrors.Malformed, "node id", err)
		}
		info.NodeID = v
	}

	if isDirectory {
		if bitmap&DirOffspringCountBit != 0 {
			v, err := r.ReadU16()
			if err != nil {
				return Info{}, afperrors.Wrap(afperrors.Malformed, "offspring count", err)
			}
			info.OffspringCount = v
		}
		if bitmap&DirOwnerIDBit != 0 {
			v, err := r.ReadU32()
			if err != nil {
				return Info{}, afperrors.Wrap(afperrors.Malformed, "owner id", err)
			}
			info.OwnerID = v
		}
		if bitmap&DirGroupIDBit != 0 {
			v, err := r.ReadU32()
			if err != nil {
				return Info{}, afperrors.Wrap(afperrors.Malformed, "group id", err)
			}
			info.GroupID = v
		}
		if bitmap&DirAccessRightsBit != 0 {
			v, err := r.ReadU32()
			if err != nil {
				return Info{}, afperrors.Wrap(afperrors.Malformed, "access rights", err)
			}
			info.AccessRights = v
		}
	} else {
		if bitmap&DataForkLenBit != 0 {
			v, err := r.ReadU32()
			if err != nil {
				return Info{}, afperrors.Wrap(afperrors.Malformed, "data fork len", err)
			}
			info.DataForkLength = uint64(v)
		}
		if bitmap&RsrcForkLenBit != 0 {
			v, err := r.ReadU32()
			if err != nil {
				return Info{}, afperrors.Wrap(afperrors.Malformed, "rsrc fork len", err)
			}
			info.RsrcForkLength = uint64(v)
		}
		if bitmap&ExtDataForkLenBit != 0 {
			v, err := r.ReadU64()
			if err != nil {
				return Info{}, afperrors.Wrap(afperrors.Malformed, "ext data fork len", err)
			}
			info.DataForkLength = v
		}
		if bitmap&LaunchLimitBit != 0 {
			v, err := r.ReadU16()
			if err != nil {
				return Info{}, afperrors.Wrap(afperrors.Malformed, "launch limit", err)
			}
			info.LaunchLimit = v
		}
	}

	if bitmap&UTF8NameBit != 0 {
		if err := readOffset(&utf8NameOff, &haveUTF8Name); err != nil {
			return Info{}, afperrors.Wrap(afperrors.Malformed, "utf8 name offset", err)
		}
		// UTF8Name carries a 32-bit hint word (case/diacritic preference)
		// immediately after the offset, which this client does not use.
		if _, err := r.ReadU32(); err != nil {
			return Info{}, afperrors.Wrap(afperrors.Malformed, "utf8 name hint", err)
		}
	}

	if !isDirectory && bitmap&ExtRsrcForkLenBit != 0 {
		v, err := r.ReadU64()
		if err != nil {
			return Info{}, afperrors.Wrap(afperrors.Malformed, "ext rsrc fork len", err)
		}
		info.RsrcForkLength = v
	}

	if bitmap&UnixPrivsBit != 0 {
		uid, err := r.ReadU32()
		if err != nil {
			return Info{}, afperrors.Wrap(afperrors.Malformed, "unix uid", err)
		}
		gid, err := r.ReadU32()
		if err != nil {
			return Info{}, afperrors.Wrap(afperrors.Malformed, "unix gid", err)
		}
		perms, err := r.ReadU32()
		if err != nil {
			return Info{}, afperrors.Wrap(afperrors.Malformed, "unix permissions", err)
		}
		ua, err := r.ReadU32()
		if err != nil {
			return Info{}, afperrors.Wrap(afperrors.Malformed, "ua permissions", err)
		}
		info.UnixPrivs = UnixPrivs{UID: uid, GID: gid, Permissions: perms, UAPermissions: ua}
	}

	if haveLongName {
		s, err := readNameAt(record, int(longNameOff))
		if err != nil {
			return Info{}, err
		}
		info.LongName = s
	}
	if haveShortName {
		s, err := readNameAt(record, int(shortNameOff))
		if err != nil {
			return Info{}, err
		}
		info.ShortName = s
	}
	if haveUTF8Name {
		s, err := readNameAt(record, int(utf8NameOff))
		if err != nil {
			return Info{}, err
		}
		info.UTF8Name = s
	}

	return info, nil
}

// readNameAt decodes the Pascal string or AFPName living at a byte offset
// into record, as referenced by a name field's offset word.
func readNameAt(record []byte, offset int) (string, error) {
	if offset < 0 || offset >= len(record) {
		return "", afperrors.New(afperrors.Malformed, "name offset out of range")
	}
	r := codec.NewReader(record[offset:])
	s, err := r.ReadPascal()
	if err != nil {
		return "", afperrors.Wrap(afperrors.Malformed, "name field", err)
	}
	return s, nil
}

// Name returns the best available name for info, preferring UTF8Name, then
// LongName, then ShortName.
func (i Info) Name() string {
	if i.UTF8Name != "" {
		return i.UTF8Name
	}
	if i.LongName != "" {
		return i.LongName
	}
	return i.ShortName
}
