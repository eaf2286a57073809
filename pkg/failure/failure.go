// Package failure defines the error kinds a photo-booker run can fail with.
//
// Every stage wraps its errors in an *Error carrying a Kind so the single
// top-level handler in main can log a diagnostic and pick an exit code.
package failure

import (
	"errors"
	"fmt"
)

// Kind classifies a run failure.
type Kind string

const (
	KindScan     Kind = "SCAN"      // unreadable entry or scan root
	KindMetadata Kind = "METADATA"  // missing or unparseable capture time
	KindDecode   Kind = "DECODE"    // unreadable or corrupt source image
	KindEncode   Kind = "ENCODE"    // normalized artifact could not be written
	KindWrite    Kind = "WRITE"     // final document could not be written
	KindCompose  Kind = "COMPOSE"   // document assembly failed
	KindNoImages Kind = "NO_IMAGES" // nothing to compose
	KindConfig   Kind = "CONFIG"    // invalid configuration
)

// Error is a classified failure for a single operation on a single path.
type Error struct {
	Kind Kind
	Op   string
	Path string
	Err  error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Op != "" {
		msg += ": " + e.Op
	}
	if e.Path != "" {
		msg += " " + e.Path
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// New returns an *Error of the given kind.
func New(kind Kind, op, path string, err error) *Error {
	return &Error{Kind: kind, Op: op, Path: path, Err: err}
}

// Metadata creates a METADATA error for a source file.
func Metadata(path string, err error) *Error {
	return New(KindMetadata, "read capture time", path, err)
}

// Decode creates a DECODE error for a source image.
func Decode(path string, err error) *Error {
	return New(KindDecode, "decode image", path, err)
}

// Encode creates an ENCODE error for a normalized artifact.
func Encode(path string, err error) *Error {
	return New(KindEncode, "write artifact", path, err)
}

// Write creates a WRITE error for the output document.
func Write(path string, err error) *Error {
	return New(KindWrite, "write document", path, err)
}

// Compose creates a COMPOSE error.
func Compose(path string, err error) *Error {
	return New(KindCompose, "compose document", path, err)
}

// NoImages creates a NO_IMAGES error for an input directory.
func NoImages(dir string) *Error {
	return New(KindNoImages, "scan", dir, errors.New("no images found"))
}

// Config creates a CONFIG error.
func Config(format string, args ...any) *Error {
	return New(KindConfig, "load config", "", fmt.Errorf(format, args...))
}

// KindOf returns the kind of the outermost *Error in err's chain, or "" if
// there is none.
func KindOf(err error) Kind {
	var fErr *Error
	if errors.As(err, &fErr) {
		return fErr.Kind
	}
	return ""
}

// Is checks if err wraps an *Error with the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// ExitCode maps an error to a process exit status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case Is(err, KindConfig):
		return 2
	default:
		return 1
	}
}
