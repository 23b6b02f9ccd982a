package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"time"
)

// Category groups error kinds by the boundary that produced them
type Category string

const (
	// CategoryAcquisition represents failures while obtaining a document
	CategoryAcquisition Category = "acquisition"
	// CategoryQuery represents failures of query operations
	CategoryQuery Category = "query"
	// CategoryPersistence represents failures while writing artifacts
	CategoryPersistence Category = "persistence"
)

// Kind represents the type of error
type Kind string

const (
	// KindTimeout represents a request or navigation that ran out of time
	KindTimeout Kind = "timeout"
	// KindHTTPStatus represents a response with status >= 400
	KindHTTPStatus Kind = "http_status"
	// KindTransport represents any other network or browser transport error
	KindTransport Kind = "transport"
	// KindFileNotFound represents a missing local file
	KindFileNotFound Kind = "file_not_found"
	// KindFileRead represents a local file that exists but cannot be read
	KindFileRead Kind = "file_read"
	// KindDecodeFailure represents content that cannot be decoded or parsed
	KindDecodeFailure Kind = "decode_failure"
	// KindBackendStartup represents a backend that failed to start
	KindBackendStartup Kind = "backend_startup"

	// KindNotLoaded represents a query issued before any successful acquisition
	KindNotLoaded Kind = "not_loaded"
	// KindNotReady represents an operation issued outside the Ready state
	KindNotReady Kind = "not_ready"
	// KindSelectorInvalid represents a selector that does not compile
	KindSelectorInvalid Kind = "selector_invalid"
	// KindConversionFailure represents a loaded document that cannot be converted to another format
	KindConversionFailure Kind = "conversion_failure"

	// KindWriteFailure represents a failed file write
	KindWriteFailure Kind = "write_failure"
	// KindUnsupported represents a capability the active backend lacks
	KindUnsupported Kind = "unsupported"
)

// Error is the failure value returned by every component
type Error struct {
	Category   Category
	Kind       Kind
	Op         string
	Target     string
	Message    string
	StatusCode int
	Err        error
	Time       time.Time
}

// Error implements the error interface
func (e *Error) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Kind, e.Op)
	if e.Target != "" {
		msg += " " + e.Target
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += " - " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Err
}

// IsRetryable returns true if the error is retryable
func (e *Error) IsRetryable() bool {
	switch e.Kind {
	case KindTimeout, KindTransport:
		return true
	case KindHTTPStatus:
		return e.StatusCode >= http.StatusInternalServerError || e.StatusCode == http.StatusTooManyRequests
	default:
		return false
	}
}

// New creates a new Error
func New(category Category, kind Kind, op, target, message string, err error) *Error {
	return &Error{
		Category: category,
		Kind:     kind,
		Op:       op,
		Target:   target,
		Message:  message,
		Err:      err,
		Time:     time.Now(),
	}
}

// NewAcquisition creates a new acquisition error
func NewAcquisition(kind Kind, op, target, message string, err error) *Error {
	return New(CategoryAcquisition, kind, op, target, message, err)
}

// NewHTTPStatus creates an acquisition error carrying the response status
func NewHTTPStatus(op, target string, status int) *Error {
	e := New(CategoryAcquisition, KindHTTPStatus, op, target, fmt.Sprintf("unexpected status code: %d", status), nil)
	e.StatusCode = status
	return e
}

// NewQuery creates a new query error
func NewQuery(kind Kind, op, target, message string, err error) *Error {
	return New(CategoryQuery, kind, op, target, message, err)
}

// NewPersistence creates a new persistence error
func NewPersistence(kind Kind, op, target, message string, err error) *Error {
	return New(CategoryPersistence, kind, op, target, message, err)
}

// NotLoaded is returned by queries issued before any document was acquired
func NotLoaded(op string) *Error {
	return NewQuery(KindNotLoaded, op, "", "no document loaded", nil)
}

// NotReady is returned by operations issued outside the Ready state
func NotReady(op, state string) *Error {
	return NewQuery(KindNotReady, op, "", "session is "+state, nil)
}

// As finds the first *Error in err's chain
func As(err error) (*Error, bool) {
	var e *Error
	if stderrors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf returns the kind of err, or "" if err carries none
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return ""
}

// CategoryOf returns the category of err, or "" if err carries none
func CategoryOf(err error) Category {
	if e, ok := As(err); ok {
		return e.Category
	}
	return ""
}

// Is reports whether err carries the given kind
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
