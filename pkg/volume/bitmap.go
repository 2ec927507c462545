package volume

// Bitmap is a u16 flag word that both selects and orders fields in an AFP
// request or reply body, per invariant I5: a reply's decoded record carries
// exactly the fields whose bits are set, in ascending bit order.
type Bitmap uint16

// Volume parameter bits (GET_VOL_PARMS / OPEN_VOL), grounded on
// AFP_VOLUME_BITMAP_* in gvfsafpconnection.h.
const (
	VolAttributeBit     Bitmap = 0x1
	VolSignatureBit     Bitmap = 0x2
	VolCreateDateBit    Bitmap = 0x4
	VolModDateBit       Bitmap = 0x8
	VolBackupDateBit    Bitmap = 0x10
	VolIDBit            Bitmap = 0x20
	VolBytesFreeBit     Bitmap = 0x40
	VolBytesTotalBit    Bitmap = 0x80
	VolNameBit          Bitmap = 0x100
	VolExtBytesFreeBit  Bitmap = 0x200
	VolExtBytesTotalBit Bitmap = 0x400
	VolBlockSizeBit     Bitmap = 0x800
)

// volAttrReadOnly is a bit within the volume attributes word returned under
// VolAttributeBit, not a top-level Bitmap bit.
const volAttrReadOnly uint16 = 0x1

// File and directory parameter bits (GET_FILE_DIR_PARMS / ENUMERATE /
// OPEN_FORK / GET_FORK_PARMS), grounded on AFP_FILE_BITMAP_*/AFP_DIR_BITMAP_*
// in gvfsafpconnection.h. File and directory bitmaps share the low bits;
// DirOffspringCountBit/DirOwnerIDBit/DirGroupIDBit/DirAccessRightsBit
// have no file-side equivalent, and DataForkLenBit/RsrcForkLenBit/
// ExtDataForkLenBit/ExtRsrcForkLenBit/LaunchLimitBit have no directory-side
// equivalent.
//
// The AFP 3.2+ directory UUID bit (0x10000) does not fit this 16-bit wire
// bitmap and is not requested by this client; GET_FILE_DIR_PARMS callers
// needing it would require a protocol revision this client doesn't target.
const (
	AttributeBit    Bitmap = 0x1
	ParentDirIDBit  Bitmap = 0x2
	CreateDateBit   Bitmap = 0x4
	ModDateBit      Bitmap = 0x8
	BackupDateBit   Bitmap = 0x10
	FinderInfoBit   Bitmap = 0x20
	LongNameBit     Bitmap = 0x40
	ShortNameBit    Bitmap = 0x80
	NodeIDBit       Bitmap = 0x100
	UTF8NameBit     Bitmap = 0x2000
	UnixPrivsBit    Bitmap = 0x8000

	DataForkLenBit    Bitmap = 0x200
	RsrcForkLenBit    Bitmap = 0x400
	ExtDataForkLenBit Bitmap = 0x800
	LaunchLimitBit    Bitmap = 0x1000
	ExtRsrcForkLenBit Bitmap = 0x4000

	DirOffspringCountBit Bitmap = 0x200
	DirOwnerIDBit        Bitmap = 0x400
	DirGroupIDBit        Bitmap = 0x800
	DirAccessRightsBit   Bitmap = 0x1000
)

// AccessMode bits for OPEN_FORK, grounded on AFP_ACCESS_MODE_* in
// gvfsafpconnection.h.
const (
	AccessRead      uint16 = 1 << 0
	AccessWrite     uint16 = 1 << 1
	AccessDenyRead  uint16 = 1 << 4
	AccessDenyWrite uint16 = 1 << 5
)

// attentionServerNotification is the AFP attention code a server sends to
// announce a volume parameter change (e.g. free space). The client must
// answer with a no-result GET_VOL_PARMS or some servers disconnect it.
const attentionServerNotification uint16 = 0x8000
