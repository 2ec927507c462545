package volume

import "github.com/marmos91/afpfs/pkg/codec"

// pathTypeUTF8Name is the only PathType this client emits: every AFP
// Pathname field we write is PathType=3 (UTF8Name) followed by an AFPName.
const pathTypeUTF8Name uint8 = 3

// putPathname encodes an AFP Pathname field: a one-byte PathType tag
// followed by an AFPName carrying the UTF-8 bytes of path.
func putPathname(w *codec.Writer, path string) {
	w.PutU8(pathTypeUTF8Name)
	w.PutAFPName(codec.NewAFPName(0, path))
}
