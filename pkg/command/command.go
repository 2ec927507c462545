// Package command implements Command, the growable byte buffer representing
// one outbound AFP command. It layers codec.Writer with an AfpCommandType
// tag the Connection uses to pick a DSI opcode and write offset.
package command

import "github.com/marmos91/afpfs/pkg/codec"

// Type is the closed set of AFP command codes this client can emit.
type Type uint8

const (
	CloseFork       Type = 4
	CopyFile        Type = 5
	CreateDir       Type = 6
	CreateFile      Type = 7
	Delete          Type = 8
	GetForkParms    Type = 14
	GetSrvrInfo     Type = 15
	GetSrvrParms    Type = 16
	GetVolParms     Type = 17
	Login           Type = 18
	LoginCont       Type = 19
	MoveAndRename   Type = 23
	OpenVol         Type = 24
	OpenFork        Type = 26
	Rename          Type = 28
	SetForkParms    Type = 31
	Write           Type = 33
	GetFileDirParms Type = 34
	SetFileDirParms Type = 35
	ExchangeFiles   Type = 42
	ReadExt         Type = 60
	WriteExt        Type = 61
	EnumerateExt    Type = 66
	EnumerateExt2   Type = 68
)

func (t Type) String() string {
	switch t {
	case CloseFork:
		return "CLOSE_FORK"
	case GetForkParms:
		return "GET_FORK_PARMS"
	case GetSrvrInfo:
		return "GET_SRVR_INFO"
	case GetSrvrParms:
		return "GET_SRVR_PARMS"
	case GetVolParms:
		return "GET_VOL_PARMS"
	case Login:
		return "LOGIN"
	case LoginCont:
		return "LOGIN_CONT"
	case CreateDir:
		return "CREATE_DIR"
	case CreateFile:
		return "CREATE_FILE"
	case Delete:
		return "DELETE"
	case OpenVol:
		return "OPEN_VOL"
	case OpenFork:
		return "OPEN_FORK"
	case Rename:
		return "RENAME"
	case CopyFile:
		return "COPY_FILE"
	case MoveAndRename:
		return "MOVE_AND_RENAME"
	case ExchangeFiles:
		return "EXCHANGE_FILES"
	case Write:
		return "WRITE"
	case GetFileDirParms:
		return "GET_FILE_DIR_PARMS"
	case SetForkParms:
		return "SET_FORK_PARMS"
	case SetFileDirParms:
		return "SET_FILEDIR_PARMS"
	case ReadExt:
		return "READ_EXT"
	case WriteExt:
		return "WRITE_EXT"
	case EnumerateExt:
		return "ENUMERATE_EXT"
	case EnumerateExt2:
		return "ENUMERATE_EXT2"
	default:
		return "UNKNOWN"
	}
}

// Command is one outbound AFP command: a type tag plus a codec.Writer that
// accumulates the command's byte payload. The first byte written is always
// the AFP command byte itself (the caller appends it via PutU8(byte(typ))
// or New does it for them).
type Command struct {
	Type Type
	w    *codec.Writer

	// ExtraPayload carries bytes that must be transmitted immediately after
	// the command body on the wire, but are not part of the AFP command
	// body itself — used only by WRITE/WRITE_EXT to attach the caller's
	// data buffer (used by WriteToFork).
	ExtraPayload []byte
}

// New starts a Command of the given type, writing the AFP command byte as
// the first payload byte.
func New(typ Type) *Command {
	c := &Command{Type: typ, w: codec.NewWriter()}
	c.w.PutU8(uint8(typ))
	return c
}

// W returns the underlying codec.Writer for field encoding.
func (c *Command) W() *codec.Writer { return c.w }

// Payload returns the command's complete encoded byte buffer, not including
// ExtraPayload.
func (c *Command) Payload() []byte { return c.w.Bytes() }

// Len returns len(Payload()).
func (c *Command) Len() int { return c.w.Len() }
