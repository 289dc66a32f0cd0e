package logboot

import (
	stderrs "errors"
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies an initialization failure.
type Kind int

const (
	KindUnknown Kind = iota
	KindTimeOffset
	KindDirectoryCreation
	KindAppenderInit
	KindReporterInstall
	KindConfiguration
	KindAlreadyInitialized
)

func (k Kind) String() string {
	switch k {
	case KindTimeOffset:
		return "time offset"
	case KindDirectoryCreation:
		return "directory creation"
	case KindAppenderInit:
		return "appender init"
	case KindReporterInstall:
		return "reporter install"
	case KindConfiguration:
		return "configuration"
	case KindAlreadyInitialized:
		return "already initialized"
	default:
		return "unknown"
	}
}

// Op names the operation that failed, e.g. "logboot.Initialize".
type Op string

// Error is returned by every fallible operation in this package.
// Match on the category with errors.Is against the Err* sentinels.
type Error struct {
	Kind Kind
	Op   Op
	Msg  string
	Err  error
}

// Sentinels for errors.Is. Only Kind is compared.
var (
	ErrTimeOffset         = &Error{Kind: KindTimeOffset}
	ErrDirectoryCreation  = &Error{Kind: KindDirectoryCreation}
	ErrAppenderInit       = &Error{Kind: KindAppenderInit}
	ErrReporterInstall    = &Error{Kind: KindReporterInstall}
	ErrConfiguration      = &Error{Kind: KindConfiguration}
	ErrAlreadyInitialized = &Error{Kind: KindAlreadyInitialized}
)

// ErrClosed is returned by writes to a closed RollingFile.
var ErrClosed = stderrs.New("logboot: file is closed")

func newError(kind Kind, op Op, msg string, cause error) *Error {
	if cause != nil {
		cause = errors.WithStack(cause)
	}
	return &Error{Kind: kind, Op: op, Msg: msg, Err: cause}
}

func (e *Error) Error() string {
	s := fmt.Sprintf("%s: %s", e.Op, e.Kind)
	if e.Op == emptyString {
		s = e.Kind.String()
	}
	if e.Msg != emptyString {
		s += ": " + e.Msg
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}
