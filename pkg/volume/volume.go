// Package volume implements the user-facing AFP operation surface scoped to
// one mounted volume: mount, fork open/close/read/write, directory entry
// CRUD, enumeration, and parameter get/set. Every operation composes one
// command.Command, sends it through a connection.Connection, and decodes
// the reply's bitmap-selected fields into an Info or translates its result
// code into the pkg/afperrors taxonomy.
//
// Grounded on original_source/daemon/gvfsafpvolume.c for field order and
// error-code tables.
package volume

import (
	"context"
	"time"

	"github.com/marmos91/afpfs/internal/logger"
	"github.com/marmos91/afpfs/pkg/afperrors"
	"github.com/marmos91/afpfs/pkg/afptime"
	"github.com/marmos91/afpfs/pkg/codec"
	"github.com/marmos91/afpfs/pkg/command"
	"github.com/marmos91/afpfs/pkg/connection"
)

// Volume is a mounted AFP share: attributes and a 16-bit volume ID resolved
// by Mount, plus the Connection operations are sent over. The zero value is
// not mounted; every operation but Mount refuses to run until Mount
// succeeds.
type Volume struct {
	conn    *connection.Connection
	version string

	mounted    bool
	attributes uint16
	volumeID   uint16

	stopAttention chan struct{}
}

// New wraps conn. version is the AFP version string negotiated during
// session setup (session.Session.Version); Enumerate uses it to decide
// between ENUMERATE_EXT and ENUMERATE_EXT2. The returned Volume is not
// mounted; call Mount before any other operation.
func New(conn *connection.Connection, version string) *Volume {
	return &Volume{conn: conn, version: version}
}

// Attributes returns the volume attributes bitmap from the last Mount.
// Returns 0 if not yet mounted.
func (v *Volume) Attributes() uint16 { return v.attributes }

// ID returns the volume ID assigned by Mount. Returns 0 if not yet mounted.
func (v *Volume) ID() uint16 { return v.volumeID }

// Mounted reports whether Mount has succeeded.
func (v *Volume) Mounted() bool { return v.mounted }

func (v *Volume) requireMounted() error {
	if !v.mounted {
		return afperrors.New(afperrors.Failed, "volume: not mounted")
	}
	return nil
}

// Mount issues OPEN_VOL for name and, on success, starts the background
// loop that answers server attention notifications with GET_VOL_PARMS.
func (v *Volume) Mount(ctx context.Context, name string) error {
	cmd := command.New(command.OpenVol)
	cmd.W().PutU8(0) // pad byte
	cmd.W().PutU16(uint16(VolIDBit | VolAttributeBit))
	cmd.W().PutPascal(name)

	rep, err := v.conn.SendCommand(ctx, cmd, 0)
	if err != nil {
		return err
	}
	if !rep.OK() {
		if rep.ResultCode == afperrors.ObjectNotFound {
			return afperrors.New(afperrors.NotFound, "volume doesn't exist: "+name)
		}
		return afperrors.Translate(rep.ResultCode, "mount "+name, nil)
	}

	if _, err := rep.R().ReadU16(); err != nil { // echoed bitmap, ignored
		return afperrors.Wrap(afperrors.Malformed, "mount reply", err)
	}
	attrs, err := rep.R().ReadU16()
	if err != nil {
		return afperrors.Wrap(afperrors.Malformed, "mount reply attributes", err)
	}
	volID, err := rep.R().ReadU16()
	if err != nil {
		return afperrors.Wrap(afperrors.Malformed, "mount reply volume id", err)
	}

	v.attributes = attrs
	v.volumeID = volID
	v.mounted = true

	v.stopAttention = make(chan struct{})
	go v.watchAttentions()

	return nil
}

// Close stops the attention watcher. It does not close the underlying
// Connection, which callers may reuse across volumes.
func (v *Volume) Close() {
	if v.stopAttention != nil {
		close(v.stopAttention)
		v.stopAttention = nil
	}
}

// watchAttentions answers AFP_ATTENTION_CODE_SERVER_NOTIFICATION with a
// no-result GET_VOL_PARMS, matching the servers that disconnect a client
// which doesn't. Failures are swallowed: this is best-effort housekeeping,
// not a caller-visible operation.
func (v *Volume) watchAttentions() {
	log := logger.With("volume_id", v.volumeID)
	for {
		select {
		case <-v.stopAttention:
			return
		case payload, ok := <-v.conn.Attentions:
			if !ok {
				return
			}
			r := codec.NewReader(payload)
			code, err := r.ReadU16()
			if err != nil {
				continue
			}
			if code&attentionServerNotification == 0 {
				continue
			}
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			if _, err := v.GetVolParms(ctx, VolIDBit); err != nil {
				log.Debug("attention GET_VOL_PARMS failed", "error", err)
			}
			cancel()
		}
	}
}

// VolParms is the subset of volume-level parameters this client decodes
// from a GET_VOL_PARMS reply.
type VolParms struct {
	ReadOnly   bool
	CreateDate time.Time
	ModDate    time.Time
	BytesFree  uint64
	BytesTotal uint64
}

// GetVolParms retrieves the parameters selected by bitmap.
func (v *Volume) GetVolParms(ctx context.Context, bitmap Bitmap) (VolParms, error) {
	if err := v.requireMounted(); err != nil {
		return VolParms{}, err
	}

	cmd := command.New(command.GetVolParms)
	cmd.W().PutU8(0)
	cmd.W().PutU16(v.volumeID)
	cmd.W().PutU16(uint16(bitmap))

	rep, err := v.conn.SendCommand(ctx, cmd, 0)
	if err != nil {
		return VolParms{}, err
	}
	if !rep.OK() {
		return VolParms{}, afperrors.Translate(rep.ResultCode, "get vol parms", nil)
	}

	echoed, err := rep.R().ReadU16()
	if err != nil {
		return VolParms{}, afperrors.Wrap(afperrors.Malformed, "vol parms bitmap", err)
	}
	got := Bitmap(echoed)

	var parms VolParms
	var bytesFree, bytesTotal uint64
	var haveFree, haveTotal bool

	if got&VolAttributeBit != 0 {
		attrs, err := rep.R().ReadU16()
		if err != nil {
			return VolParms{}, afperrors.Wrap(afperrors.Malformed, "vol attributes", err)
		}
		parms.ReadOnly = attrs&volAttrReadOnly != 0
	}
	if got&VolCreateDateBit != 0 {
		d, err := rep.R().ReadI32()
		if err != nil {
			return VolParms{}, afperrors.Wrap(afperrors.Malformed, "vol create date", err)
		}
		parms.CreateDate = afptime.FromAFP(d)
	}
	if got&VolModDateBit != 0 {
		d, err := rep.R().ReadI32()
		if err != nil {
			return VolParms{}, afperrors.Wrap(afperrors.Malformed, "vol mod date", err)
		}
		parms.ModDate = afptime.FromAFP(d)
	}
	if got&VolExtBytesFreeBit != 0 {
		b, err := rep.R().ReadU64()
		if err != nil {
			return VolParms{}, afperrors.Wrap(afperrors.Malformed, "vol bytes free", err)
		}
		bytesFree, haveFree = b, true
	}
	if got&VolExtBytesTotalBit != 0 {
		b, err := rep.R().ReadU64()
		if err != nil {
			return VolParms{}, afperrors.Wrap(afperrors.Malformed, "vol bytes total", err)
		}
		bytesTotal, haveTotal = b, true
	}
	if haveFree {
		parms.BytesFree = bytesFree
	}
	if haveTotal {
		parms.BytesTotal = bytesTotal
	}

	return parms, nil
}

// resolveDirID looks up the AFP node ID of dirname (a directory path,
// possibly "" for the volume root) via GET_FILE_DIR_PARMS, requesting only
// the given dirBitmap bit. Used by CreateFile/CreateDir, which need the
// parent directory's ID rather than the root's.
func (v *Volume) resolveDirID(ctx context.Context, dirname string, dirBitmap Bitmap) (uint32, error) {
	if dirname == "" || dirname == "/" || dirname == "." {
		return rootDirID, nil
	}
	info, err := v.GetFileDirParms(ctx, dirname, 0, dirBitmap)
	if err != nil {
		return 0, err
	}
	return info.NodeID, nil
}
