package session

import (
	"github.com/marmos91/afpfs/pkg/afperrors"
	"github.com/marmos91/afpfs/pkg/codec"
)

// ServerInfo is the DSI_GET_STATUS reply: the server's machine type, name,
// offered AFP versions and UAMs, and capability flags. Recognized but unused
// fields (signature, network addresses, UTF-8 server name) are skipped
// rather than decoded, since nothing in this client consumes them yet.
type ServerInfo struct {
	MachineType string
	ServerName  string
	Versions    []string
	UAMs        []string
	Flags       uint16
}

const (
	flagSupportsCopyFile  uint16 = 1 << 1
	flagSupportsUTF8Names uint16 = 1 << 9
	flagSupportsUUIDs     uint16 = 1 << 10
	flagSupportsSuperClient uint16 = 1 << 8
)

// SupportsUTF8Names reports whether the server advertised UTF-8 name
// support in its GET_STATUS flags.
func (s ServerInfo) SupportsUTF8Names() bool { return s.Flags&flagSupportsUTF8Names != 0 }

// parseServerInfo decodes a DSI_GET_STATUS reply payload. The payload opens
// with four u16 byte-offsets (from the start of the payload) to the machine
// type, AFP version list, UAM list, and volume icon/signature block,
// followed by the flags word and the server name as a Pascal string.
func parseServerInfo(payload []byte) (ServerInfo, error) {
	r := codec.NewReader(payload)

	machineTypeOff, err := r.ReadU16()
	if err != nil {
		return ServerInfo{}, err
	}
	versionOff, err := r.ReadU16()
	if err != nil {
		return ServerInfo{}, err
	}
	uamOff, err := r.ReadU16()
	if err != nil {
		return ServerInfo{}, err
	}
	// Volume icon/mask offset; not consumed.
	if _, err := r.ReadU16(); err != nil {
		return ServerInfo{}, err
	}
	flags, err := r.ReadU16()
	if err != nil {
		return ServerInfo{}, err
	}

	info := ServerInfo{Flags: flags}

	// The server name Pascal string immediately follows the flags word.
	name, nameErr := r.ReadPascal()
	if nameErr != nil {
		return ServerInfo{}, nameErr
	}
	info.ServerName = name

	machineType, mtErr := readPascalAt(payload, int(machineTypeOff))
	if mtErr != nil {
		return ServerInfo{}, mtErr
	}
	info.MachineType = machineType

	versions, vErr := readPascalList(payload, int(versionOff))
	if vErr != nil {
		return ServerInfo{}, vErr
	}
	info.Versions = versions

	uams, uErr := readPascalList(payload, int(uamOff))
	if uErr != nil {
		return ServerInfo{}, uErr
	}
	info.UAMs = uams

	return info, nil
}

func readPascalAt(payload []byte, offset int) (string, error) {
	if offset < 0 || offset >= len(payload) {
		return "", afperrors.New(afperrors.Malformed, "server info offset out of range")
	}
	r := codec.NewReader(payload[offset:])
	return r.ReadPascal()
}

// readPascalList reads a one-byte count followed by that many Pascal
// strings, as used for both the AFP version list and the UAM list.
func readPascalList(payload []byte, offset int) ([]string, error) {
	if offset < 0 || offset >= len(payload) {
		return nil, afperrors.New(afperrors.Malformed, "server info offset out of range")
	}
	r := codec.NewReader(payload[offset:])
	count, err := r.ReadU8()
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, count)
	for i := 0; i < int(count); i++ {
		s, err := r.ReadPascal()
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// bestVersion returns the highest AFP version both this client and the
// server support, preferring 3.3 > 3.2 > 3.1 > 3.0.
func bestVersion(offered []string) (string, error) {
	preferred := []string{"AFP3.3", "AFP3.2", "AFP3.1", "AFPX03"}
	for _, want := range preferred {
		for _, have := range offered {
			if have == want {
				return want, nil
			}
		}
	}
	return "", afperrors.New(afperrors.Unsupported, "server offered no AFP 3.x version this client supports")
}

const uamDHCAST128 = "DHCAST128"
const uamNoAuth = "No User Authent"

func supportsUAM(offered []string, uam string) bool {
	for _, u := range offered {
		if u == uam {
			return true
		}
	}
	return false
}
