package speckvol

import "errors"

// Sentinel errors returned by the Encoder/Decoder API. Each is also
// classified into a Result code via ResultFor, for callers that prefer
// to branch on failure class rather than match a specific sentinel.
var (
	ErrInvalidParam    = errors.New("speckvol: invalid parameter")
	ErrWrongSize       = errors.New("speckvol: wrong size")
	ErrVersionMismatch = errors.New("speckvol: bitstream version mismatch")
	ErrDimMismatch     = errors.New("speckvol: dimension mismatch")
	ErrCompression     = errors.New("speckvol: compression failed")
	ErrNoVolume        = errors.New("speckvol: no volume set")
	ErrNoBitstream     = errors.New("speckvol: no bitstream set")
)

// Result classifies an error into the taxonomy callers can branch on
// without depending on a specific sentinel value.
type Result int

const (
	Good Result = iota
	InvalidParam
	WrongSize
	VersionMismatch
	DimMismatch
	CompressionError
	Error
)

// String returns a short, human-readable Result name.
func (r Result) String() string {
	switch r {
	case Good:
		return "Good"
	case InvalidParam:
		return "InvalidParam"
	case WrongSize:
		return "WrongSize"
	case VersionMismatch:
		return "VersionMismatch"
	case DimMismatch:
		return "DimMismatch"
	case CompressionError:
		return "CompressionError"
	case Error:
		return "Error"
	default:
		return "Unknown"
	}
}

// ResultFor classifies err into a Result code. A nil err classifies as
// Good; an err that doesn't match any of the sentinels above
// classifies as the generic Error.
func ResultFor(err error) Result {
	switch {
	case err == nil:
		return Good
	case errors.Is(err, ErrInvalidParam), errors.Is(err, ErrNoVolume), errors.Is(err, ErrNoBitstream):
		return InvalidParam
	case errors.Is(err, ErrWrongSize):
		return WrongSize
	case errors.Is(err, ErrVersionMismatch):
		return VersionMismatch
	case errors.Is(err, ErrDimMismatch):
		return DimMismatch
	case errors.Is(err, ErrCompression):
		return CompressionError
	default:
		return Error
	}
}
