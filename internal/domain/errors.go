package domain

import (
	"fmt"
	"strings"
)

// ErrorKind distinguishes the failure classes a fetch can hit. Every failure
// is fatal to the in-flight operation; nothing is retried.
type ErrorKind string

const (
	// KindTransport means the evaluator returned a non-success HTTP status.
	KindTransport ErrorKind = "transport"
	// KindSchema means a response did not match its expected structural shape.
	KindSchema ErrorKind = "schema"
	// KindBackend means a well-formed response reported a non-ok backend status.
	KindBackend ErrorKind = "backend"
	// KindNotFound means requested account numbers are absent from the cache.
	KindNotFound ErrorKind = "not_found"
	// KindFormat means a value that must be parseable was not.
	KindFormat ErrorKind = "format"
)

// Error is the single error type surfaced by the public client operations.
// The distinguishing kind and detail are preserved as structured fields.
type Error struct {
	Kind ErrorKind
	// Status and Body are set for transport failures.
	Status int
	Body   string
	// Path is the originating field path for schema failures.
	Path string
	// Missing lists the account numbers absent from the cache, in the order
	// they were requested.
	Missing []string

	msg string
	err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.err)
	}
	return e.msg
}

// Unwrap returns the wrapped cause, if any.
func (e *Error) Unwrap() error { return e.err }

// Is matches on kind so callers can test errors.Is(err, &Error{Kind: ...}).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// TransportError reports a non-success evaluator fetch.
func TransportError(status int, body string) *Error {
	return &Error{
		Kind:   KindTransport,
		Status: status,
		Body:   body,
		msg:    fmt.Sprintf("fetch failed with status %d: %s", status, body),
	}
}

// SchemaError reports a structural mismatch at the given field path.
func SchemaError(path, msg string, err error) *Error {
	return &Error{
		Kind: KindSchema,
		Path: path,
		msg:  fmt.Sprintf("response schema mismatch at %s: %s", path, msg),
		err:  err,
	}
}

// BackendError reports a non-ok backend status on a well-formed response.
func BackendError(status string) *Error {
	return &Error{
		Kind: KindBackend,
		msg:  fmt.Sprintf("fidelity backend not ok: %s", status),
	}
}

// NotFoundError reports account numbers missing from the resolved cache.
// All missing numbers are reported together, not one at a time.
func NotFoundError(missing []string) *Error {
	return &Error{
		Kind:    KindNotFound,
		Missing: missing,
		msg:     fmt.Sprintf("account(s) not found: %s", strings.Join(missing, ", ")),
	}
}

// FormatError reports an unparseable value.
func FormatError(msg string, err error) *Error {
	return &Error{
		Kind: KindFormat,
		msg:  msg,
		err:  err,
	}
}
