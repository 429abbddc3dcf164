// Package vfserr defines the error taxonomy shared by every decoder, the
// VFS namespace, the overlay layer, and the RomFS/ExeFS rebuilder.
package vfserr

import (
	"errors"
	"fmt"
)

// Kind identifies a class of failure. Callers distinguish kinds with
// errors.Is against the sentinel of the same name.
type Kind string

const (
	// UnsupportedFormat means no decoder's probe recognized the input.
	UnsupportedFormat Kind = "unsupported_format"
	// InvalidFormat means a decoder recognized a magic number but a field
	// was structurally inconsistent.
	InvalidFormat Kind = "invalid_format"
	// NotFound means a path resolved to nothing.
	NotFound Kind = "not_found"
	// OutOfRange means a byte-accessor read fell outside its window.
	OutOfRange Kind = "out_of_range"
	// ExeFSCapacity means a rebuild exceeded ExeFS's 10-file/8-byte-name limit.
	ExeFSCapacity Kind = "exefs_capacity"
	// SizeLimit means a rebuild's data region exceeded the 2^56 byte limit.
	SizeLimit Kind = "size_limit"
	// InvalidTree means a rebuild found a duplicate sibling name.
	InvalidTree Kind = "invalid_tree"
	// NotSupported means the operation never makes sense for the target
	// (e.g. creating a directory inside ExeFS).
	NotSupported Kind = "not_supported"
)

// Sentinels usable with errors.Is. Error.Unwrap returns one of these, so
// wrapping (fmt.Errorf("...: %w", err)) preserves errors.Is(err, Err*).
var (
	ErrUnsupportedFormat = errors.New(string(UnsupportedFormat))
	ErrInvalidFormat     = errors.New(string(InvalidFormat))
	ErrNotFound          = errors.New(string(NotFound))
	ErrOutOfRange        = errors.New(string(OutOfRange))
	ErrExeFSCapacity     = errors.New(string(ExeFSCapacity))
	ErrSizeLimit         = errors.New(string(SizeLimit))
	ErrInvalidTree       = errors.New(string(InvalidTree))
	ErrNotSupported      = errors.New(string(NotSupported))
)

var sentinels = map[Kind]error{
	UnsupportedFormat: ErrUnsupportedFormat,
	InvalidFormat:     ErrInvalidFormat,
	NotFound:          ErrNotFound,
	OutOfRange:        ErrOutOfRange,
	ExeFSCapacity:     ErrExeFSCapacity,
	SizeLimit:         ErrSizeLimit,
	InvalidTree:       ErrInvalidTree,
	NotSupported:      ErrNotSupported,
}

// Error is the concrete error type returned across the module. It carries
// the path the failure concerns (may be empty) and an optional wrapped
// cause in addition to its Kind.
type Error struct {
	Kind  Kind
	Path  string
	Msg   string
	Cause error
}

func (e *Error) Error() string {
	switch {
	case e.Path != "" && e.Msg != "":
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Path, e.Msg)
	case e.Path != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Path)
	case e.Msg != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
	default:
		return string(e.Kind)
	}
}

// Unwrap lets errors.Is(err, vfserr.ErrNotFound) etc. succeed, and lets the
// wrapped Cause (if any) participate in further unwrapping.
func (e *Error) Unwrap() []error {
	sentinel := sentinels[e.Kind]
	if e.Cause == nil {
		return []error{sentinel}
	}
	return []error{sentinel, e.Cause}
}

// New builds an *Error of the given kind for the given path, with an
// optional free-form message and wrapped cause.
func New(kind Kind, path, msg string, cause error) *Error {
	return &Error{Kind: kind, Path: path, Msg: msg, Cause: cause}
}

// Is reports whether err (or anything it wraps) carries the given Kind.
func Is(err error, kind Kind) bool {
	sentinel, ok := sentinels[kind]
	if !ok {
		return false
	}
	return errors.Is(err, sentinel)
}
