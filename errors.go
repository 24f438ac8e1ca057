package formdispenser

import (
	"errors"
	"net/http"
)

type ErrorKind int

const (
	KindPreamble ErrorKind = iota + 1
	KindBoundary
	KindHeader
	KindDisposition
	KindIncomplete
	// KindLimit marks a breached size or part limit. It maps to
	// 413 Request Entity Too Large.
	KindLimit
	KindUpstream
)

func (k ErrorKind) String() string {
	switch k {
	case KindPreamble:
		return "malformed preamble"
	case KindBoundary:
		return "malformed boundary"
	case KindHeader:
		return "malformed header"
	case KindDisposition:
		return "invalid disposition"
	case KindIncomplete:
		return "incomplete body"
	case KindLimit:
		return "limit exceeded"
	case KindUpstream:
		return "upstream failure"
	default:
		return "unknown"
	}
}

// Error is the terminal error of a Dispenser.
//
// Two Errors match under errors.Is when they have the same kind and message,
// so the sentinels below also match errors that carry a cause.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}

	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}

	return t.Kind == e.Kind && t.Message == e.Message
}

// StatusCode returns the HTTP status that fits the error.
func (e *Error) StatusCode() int {
	if e.Kind == KindLimit {
		return http.StatusRequestEntityTooLarge
	}

	return http.StatusBadRequest
}

var (
	ErrPreambleTerminator   = &Error{Kind: KindPreamble, Message: "preamble missing CRLF terminator"}
	ErrBoundaryTrailer      = &Error{Kind: KindBoundary, Message: "only white space allowed after boundary"}
	ErrBoundaryTrailerAtEnd = &Error{Kind: KindBoundary, Message: "only white space allowed after boundary at end"}
	ErrMissingEndBoundary   = &Error{Kind: KindBoundary, Message: "missing end boundary"}
	ErrHeaderContinuation   = &Error{Kind: KindHeader, Message: "invalid header continuation without valid declaration on previous line"}
	ErrHeaderColon          = &Error{Kind: KindHeader, Message: "invalid header missing colon separator"}
	ErrHeaderName           = &Error{Kind: KindHeader, Message: "invalid header missing field name"}
	ErrHeaderReserved       = &Error{Kind: KindHeader, Message: "invalid header"}
	ErrDisposition          = &Error{Kind: KindDisposition, Message: "invalid part disposition"}
	ErrTransferEncoding     = &Error{Kind: KindDisposition, Message: "invalid content-transfer-encoding"}
	ErrIncomplete           = &Error{Kind: KindIncomplete, Message: "incomplete multipart payload"}
	ErrTooLarge             = &Error{Kind: KindLimit, Message: "maximum size exceeded"}
	ErrTooManyParts         = &Error{Kind: KindLimit, Message: "maximum parts exceeded"}
	ErrAborted              = &Error{Kind: KindUpstream, Message: "client request aborted"}
)

var (
	// ErrEmptyBoundary is returned by New for an empty boundary.
	ErrEmptyBoundary = errors.New("boundary must not be empty")
	// ErrClosed is returned by writes after a successful Close.
	ErrClosed = errors.New("write after close")
)

func wrapError(sentinel *Error, err error) *Error {
	return &Error{
		Kind:    sentinel.Kind,
		Message: sentinel.Message,
		Err:     err,
	}
}

// StatusCode maps an error returned by this package to an HTTP status.
func StatusCode(err error) int {
	if err == nil {
		return http.StatusOK
	}

	var e *Error
	if errors.As(err, &e) {
		return e.StatusCode()
	}

	switch {
	case errors.Is(err, ErrTooLargeForm):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, ErrTooManyHeaders):
		return http.StatusBadRequest
	}

	return http.StatusInternalServerError
}
