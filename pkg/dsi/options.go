package dsi

// Option type codes carried in the DSI_OPEN_SESSION reply's TLV sequence
// (OPEN_SESSION reply).
const (
	OptionRequestQuanta     uint8 = 0x00
	OptionReplayCacheSize   uint8 = 0x02
)

// OpenSessionOptions holds the values recognized from the DSI_OPEN_SESSION
// reply's {type:u8, length:u8, value:bytes} option sequence. Unknown option
// types are ignored.
type OpenSessionOptions struct {
	Quanta          uint32
	ReplayCacheSize uint32
}

// ParseOpenSessionOptions walks the TLV sequence in an OPEN_SESSION reply
// payload. Malformed trailing bytes (a type/length header with no room for
// its value) stop parsing but do not fail it — whatever was parsed so far is
// returned, mirroring the source's tolerant TLV walk.
func ParseOpenSessionOptions(payload []byte) OpenSessionOptions {
	var opts OpenSessionOptions

	pos := 0
	for pos+2 <= len(payload) {
		optType := payload[pos]
		optLen := int(payload[pos+1])
		pos += 2

		if pos+optLen > len(payload) {
			break
		}
		value := payload[pos : pos+optLen]
		pos += optLen

		switch optType {
		case OptionRequestQuanta:
			if optLen >= 4 {
				opts.Quanta = beUint32(value)
			}
		case OptionReplayCacheSize:
			if optLen >= 4 {
				opts.ReplayCacheSize = beUint32(value)
			}
		}
	}

	return opts
}

func beUint32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}
