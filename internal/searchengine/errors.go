package searchengine

import "errors"

// ErrorKind classifies why an engine call failed. These are not Go error
// types; they're carried on Error so callers can branch on category without
// string matching.
type ErrorKind int

const (
	ErrorKindUnknown ErrorKind = iota
	ErrorKindRateLimited
	ErrorKindTransport
	ErrorKindAuth
	ErrorKindParse
	ErrorKindTimeout
	ErrorKindCancellation
	ErrorKindLLM
	ErrorKindIndex
	ErrorKindConfig
)

func (k ErrorKind) String() string {
	switch k {
	case ErrorKindRateLimited:
		return "RateLimited"
	case ErrorKindTransport:
		return "TransportError"
	case ErrorKindAuth:
		return "AuthError"
	case ErrorKindParse:
		return "ParseError"
	case ErrorKindTimeout:
		return "TimeoutError"
	case ErrorKindCancellation:
		return "CancellationError"
	case ErrorKindLLM:
		return "LLMError"
	case ErrorKindIndex:
		return "IndexError"
	case ErrorKindConfig:
		return "ConfigError"
	default:
		return "Unknown"
	}
}

// Error wraps an engine-local failure with its classification. Only
// RateLimited is retried by the retry wrapper; every other kind surfaces as
// an empty result plus a recorded metric.
type Error struct {
	kind ErrorKind
	msg  string
	err  error
}

// NewError builds an Error of the given kind. err may be nil.
func NewError(kind ErrorKind, msg string, err error) *Error {
	return &Error{kind: kind, msg: msg, err: err}
}

func (e *Error) Error() string {
	if e.err != nil {
		return e.kind.String() + ": " + e.msg + ": " + e.err.Error()
	}
	return e.kind.String() + ": " + e.msg
}

func (e *Error) Unwrap() error { return e.err }

func (e *Error) Kind() ErrorKind { return e.kind }

// KindOf extracts the ErrorKind from err, if it (or something it wraps) is
// an *Error. Returns ErrorKindUnknown otherwise.
func KindOf(err error) ErrorKind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind()
	}
	return ErrorKindUnknown
}

// IsRetryable reports whether the retry wrapper should attempt again.
func IsRetryable(err error) bool {
	return KindOf(err) == ErrorKindRateLimited
}
