package codec

// MacRomanEncoding is the default AFPName text encoding used when a reply
// field omits the encoding, assumed MacRoman (some AFP replies carry a bare
// name with no leading text-encoding word).
const MacRomanEncoding uint32 = 0

// AFPName is a text-encoded name: (encoding, length, bytes). Unlike the
// reference-counted GVfsAfpName in the source implementation, here it is an
// immutable value type — Go's garbage collector makes the refcounting moot;
// copies are cheap because names are short; Go's GC makes the source's
// reference-counted name type unnecessary here.
type AFPName struct {
	TextEncoding uint32
	Bytes        []byte
}

// NewAFPName builds an AFPName from a Go string using the given encoding.
func NewAFPName(encoding uint32, s string) AFPName {
	return AFPName{TextEncoding: encoding, Bytes: []byte(s)}
}

// String returns the name's bytes interpreted as UTF-8 for display purposes.
// Callers needing exact MacRoman/UTF-8 semantics should inspect TextEncoding.
func (n AFPName) String() string { return string(n.Bytes) }
