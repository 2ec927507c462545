package afperrors

// ResultCode is an AFP result code as carried in a DSI reply header's
// errorCode field, interpreted as a signed 32-bit integer.
type ResultCode int32

// Canonical AFP result codes, grounded on
// original_source/daemon/gvfsafpconnection.h and original_source/daemon/gvfsafpvolume.c,
// cross-checked against the published AFP result code table.
const (
	NoError          ResultCode = 0
	NoMoreSessions   ResultCode = -1068
	AccessDenied     ResultCode = -5000
	AuthContinue     ResultCode = -5001
	CantRename       ResultCode = -5028
	DenyConflict     ResultCode = -5006
	DirNotEmpty      ResultCode = -5007
	DiskFull         ResultCode = -5008
	EOFErr           ResultCode = -5009
	FileBusy         ResultCode = -5010
	FlatVol          ResultCode = -5011
	CantMove         ResultCode = -5005
	ObjectExists     ResultCode = -5017
	ObjectNotFound   ResultCode = -5018
	ParamErr         ResultCode = -5019
	DirNotFound      ResultCode = -5029
	VolLocked        ResultCode = -5031
	ObjectLocked     ResultCode = -5032
	UserNotAuth      ResultCode = -5023
	CallNotSupported ResultCode = -5024
	ObjectTypeErr    ResultCode = -5025
	TooManyFilesOpen ResultCode = -5026
	LockErr          ResultCode = -5013
	IDNotFound       ResultCode = -5034
	InsideShareErr   ResultCode = -5043
	InsideTrashErr   ResultCode = -5044
)

// Translate maps a non-zero AFP result code from a specific operation into
// the error taxonomy. context is folded into the message (e.g. the path or
// fork being operated on).
// table supplies the operation-specific overrides that take precedence over
// the generic fallback below; pass nil for operations with no special cases.
func Translate(code ResultCode, context string, table map[ResultCode]Code) error {
	if code == NoError {
		return nil
	}

	if table != nil {
		if kind, ok := table[code]; ok {
			return New(kind, translateMessage(code, context))
		}
	}

	if kind, ok := genericTranslation[code]; ok {
		return New(kind, translateMessage(code, context))
	}

	return New(Failed, translateMessage(code, context))
}

// genericTranslation covers the codes whose mapping is the same regardless
// of which operation produced them.
var genericTranslation = map[ResultCode]Code{
	UserNotAuth:    PermissionDenied,
	AccessDenied:   PermissionDenied,
	VolLocked:      PermissionDenied,
	ObjectNotFound: NotFound,
	DirNotFound:    NotFound,
	IDNotFound:     NotFound,
	ObjectTypeErr:  IsDirectory,
	DirNotEmpty:    NotEmpty,
	FileBusy:       Busy,
	TooManyFilesOpen: TooManyOpen,
	DiskFull:       NoSpace,
	ObjectExists:   Exists,
	CallNotSupported: NotSupported,
	FlatVol:        NotSupported,
	LockErr:        Failed,
}

func translateMessage(code ResultCode, context string) string {
	if context == "" {
		return resultCodeName(code)
	}
	return resultCodeName(code) + ": " + context
}

func resultCodeName(code ResultCode) string {
	switch code {
	case NoMoreSessions:
		return "no more sessions"
	case AccessDenied:
		return "access denied"
	case AuthContinue:
		return "auth continue"
	case DenyConflict:
		return "deny conflict"
	case DirNotEmpty:
		return "directory not empty"
	case DiskFull:
		return "disk full"
	case EOFErr:
		return "end of file"
	case FileBusy:
		return "file busy"
	case FlatVol:
		return "flat volume"
	case ObjectExists:
		return "object exists"
	case LockErr:
		return "range lock conflict"
	case ObjectLocked:
		return "object locked"
	case VolLocked:
		return "volume locked"
	case ObjectNotFound:
		return "object not found"
	case ParamErr:
		return "parameter error"
	case DirNotFound:
		return "directory not found"
	case UserNotAuth:
		return "user not authenticated"
	case CallNotSupported:
		return "call not supported"
	case ObjectTypeErr:
		return "object type error"
	case TooManyFilesOpen:
		return "too many files open"
	case IDNotFound:
		return "id not found"
	case InsideShareErr:
		return "inside share"
	case InsideTrashErr:
		return "inside trash"
	default:
		return "AFP error"
	}
}
