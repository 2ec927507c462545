// Package dsi implements the Data Stream Interface wire frame that carries
// AFP commands over TCP: a fixed 16-byte header followed by an optional
// payload.
package dsi

import (
	"encoding/binary"

	"github.com/marmos91/afpfs/pkg/afperrors"
)

// HeaderSize is the fixed length of a DSI frame header in bytes.
const HeaderSize = 16

// Opcode identifies the DSI-level operation a frame carries.
type Opcode uint8

const (
	CloseSession Opcode = 1
	Command      Opcode = 2
	GetStatus    Opcode = 3
	OpenSession  Opcode = 4
	Tickle       Opcode = 5
	Write        Opcode = 6
	Attention    Opcode = 8
)

func (o Opcode) String() string {
	switch o {
	case CloseSession:
		return "CLOSE_SESSION"
	case Command:
		return "COMMAND"
	case GetStatus:
		return "GET_STATUS"
	case OpenSession:
		return "OPEN_SESSION"
	case Tickle:
		return "TICKLE"
	case Write:
		return "WRITE"
	case Attention:
		return "ATTENTION"
	default:
		return "UNKNOWN"
	}
}

// Header is the 16-byte DSI frame header:
//
//	flags:u8, command:u8, requestID:u16, {errorCode:u32|writeOffset:u32},
//	totalDataLength:u32, reserved:u32.
//
// On requests the four-byte field after requestID carries the WRITE
// offset (zero for everything but DSI_WRITE); on replies it carries the
// signed AFP result code.
type Header struct {
	Flags           uint8
	Command         Opcode
	RequestID       uint16
	ErrorOrOffset   uint32
	TotalDataLength uint32
	Reserved        uint32
}

// RequestFlag and ReplyFlag are the two values DSI defines for Header.Flags.
const (
	RequestFlag uint8 = 0
	ReplyFlag   uint8 = 1
)

// Encode writes the header to a fresh 16-byte big-endian buffer.
func (h Header) Encode() []byte {
	buf := make([]byte, HeaderSize)
	buf[0] = h.Flags
	buf[1] = uint8(h.Command)
	binary.BigEndian.PutUint16(buf[2:4], h.RequestID)
	binary.BigEndian.PutUint32(buf[4:8], h.ErrorOrOffset)
	binary.BigEndian.PutUint32(buf[8:12], h.TotalDataLength)
	binary.BigEndian.PutUint32(buf[12:16], h.Reserved)
	return buf
}

// DecodeHeader parses a 16-byte big-endian DSI header.
func DecodeHeader(buf []byte) (Header, error) {
	if len(buf) < HeaderSize {
		return Header{}, afperrors.New(afperrors.ShortRead, "dsi header truncated")
	}
	return Header{
		Flags:           buf[0],
		Command:         Opcode(buf[1]),
		RequestID:       binary.BigEndian.Uint16(buf[2:4]),
		ErrorOrOffset:   binary.BigEndian.Uint32(buf[4:8]),
		TotalDataLength: binary.BigEndian.Uint32(buf[8:12]),
		Reserved:        binary.BigEndian.Uint32(buf[12:16]),
	}, nil
}

// ResultCode interprets ErrorOrOffset as the signed 32-bit AFP result code
// carried by a reply header.
func (h Header) ResultCode() int32 { return int32(h.ErrorOrOffset) }
