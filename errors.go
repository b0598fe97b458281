package ocifetch

import (
	"errors"
	"fmt"
)

// Kind classifies fetch failures.
type Kind uint8

// Failure kinds.
const (
	// KindPolicyViolation means the reference uses a tag the policy forbids.
	KindPolicyViolation Kind = iota + 1

	// KindInvalidReference means the reference does not parse.
	KindInvalidReference

	// KindCertLoad means an additional CA path could not be read or decoded.
	KindCertLoad

	// KindManifestFetch means the manifest-only freshness check failed.
	KindManifestFetch

	// KindPull means the full content pull failed, or the caller's context
	// ended while waiting for it.
	KindPull

	// KindValidation means pulled content has an invalid shape.
	KindValidation

	// KindCacheIO means the cache directory or a cache file could not be used.
	KindCacheIO

	// KindProviderArchive means the provider archive reader rejected the file.
	KindProviderArchive
)

// Sentinel errors matching each Kind with errors.Is.
var (
	ErrPolicyViolation  = errors.New("policy violation")
	ErrInvalidReference = errors.New("invalid reference")
	ErrCertLoad         = errors.New("load CA certificates")
	ErrManifestFetch    = errors.New("fetch manifest")
	ErrPull             = errors.New("pull artifact")
	ErrValidation       = errors.New("invalid artifact")
	ErrCacheIO          = errors.New("cache i/o")
	ErrProviderArchive  = errors.New("read provider archive")
)

var kindSentinels = map[Kind]error{
	KindPolicyViolation:  ErrPolicyViolation,
	KindInvalidReference: ErrInvalidReference,
	KindCertLoad:         ErrCertLoad,
	KindManifestFetch:    ErrManifestFetch,
	KindPull:             ErrPull,
	KindValidation:       ErrValidation,
	KindCacheIO:          ErrCacheIO,
	KindProviderArchive:  ErrProviderArchive,
}

// String returns the kind's description.
func (k Kind) String() string {
	if err, ok := kindSentinels[k]; ok {
		return err.Error()
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Error is the error returned by every Fetcher operation.
type Error struct {
	// Kind classifies the failure.
	Kind Kind

	// Op names the step that failed, such as "pull" or "write cache".
	Op string

	// Ref is the normalized reference, or the input if normalization failed.
	Ref string

	// Err is the underlying cause.
	Err error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("ocifetch: %s %s: %s", e.Op, e.Ref, e.Kind)
	}
	return fmt.Sprintf("ocifetch: %s %s: %s: %v", e.Op, e.Ref, e.Kind, e.Err)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for e's kind.
func (e *Error) Is(target error) bool {
	sentinel, ok := kindSentinels[e.Kind]
	return ok && sentinel == target
}

// KindOf returns the Kind of err, or 0 if err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// Steps reported in Error.Op.
const (
	opNormalize    = "normalize"
	opParse        = "parse"
	opCheckCache   = "check cache"
	opPull         = "pull"
	opWait         = "wait for pull"
	opValidate     = "validate"
	opWriteCache   = "write cache"
	opReadCache    = "read cache"
	opReadProvider = "read provider archive"
)

func newError(kind Kind, op, ref string, err error) *Error {
	return &Error{Kind: kind, Op: op, Ref: ref, Err: err}
}
