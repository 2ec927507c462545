// Package reply implements Reply, a read cursor over a server-returned AFP
// reply: the AFP result code plus a zero-copy view of the payload bytes.
package reply

import (
	"github.com/marmos91/afpfs/pkg/afperrors"
	"github.com/marmos91/afpfs/pkg/codec"
)

// Reply wraps a codec.Reader over one reply's payload, plus the AFP result
// code carried in the frame header that preceded it.
type Reply struct {
	ResultCode afperrors.ResultCode
	r          *codec.Reader
}

// New wraps payload for reading. payload is not copied; callers must not
// mutate it while the Reply is in use.
func New(resultCode afperrors.ResultCode, payload []byte) *Reply {
	return &Reply{ResultCode: resultCode, r: codec.NewReader(payload)}
}

// R returns the underlying codec.Reader for field decoding.
func (rp *Reply) R() *codec.Reader { return rp.r }

// OK reports whether the reply's result code indicates success.
func (rp *Reply) OK() bool { return rp.ResultCode == afperrors.NoError }

// Len returns the number of unread payload bytes.
func (rp *Reply) Len() int { return rp.r.Len() }

// Pos returns the current read offset into the payload.
func (rp *Reply) Pos() int { return rp.r.Pos() }

// Seek repositions the read cursor.
func (rp *Reply) Seek(offset int, whence codec.SeekWhence) error {
	return rp.r.Seek(offset, whence)
}

// SkipToEven discards one pad byte if the current position is odd.
func (rp *Reply) SkipToEven() error { return rp.r.SkipToEven() }
