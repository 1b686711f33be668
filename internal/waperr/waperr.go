// Package waperr defines the coded errors of the annotation server.
//
// Every error that reaches a client carries a Kind. The kind selects the HTTP
// status code and a stable default message, so handlers never have to guess
// how to report a failure.
//
// # Usage
//
//	err := waperr.New(waperr.NotExistent, "container %s does not exist", iri)
//	if waperr.Is(err, waperr.NotExistent) {
//	    // 404
//	}
//
//	// Wrap a lower level failure
//	err := waperr.Wrap(waperr.FormatException, parseErr, "cannot read body")
package waperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is a machine-readable error category.
type Kind string

// Error kinds.
const (
	NotExistent             Kind = "NOT_EXISTENT"
	ResourceDeleted         Kind = "RESOURCE_DELETED"
	ResourceExists          Kind = "RESOURCE_EXISTS"
	EtagMismatch            Kind = "ETAG_MISMATCH"
	EtagMissing             Kind = "ETAG_MISSING"
	EtagInvalid             Kind = "ETAG_INVALID"
	UnallowedPropertyChange Kind = "UNALLOWED_PROPERTY_CHANGE"

	// Shape failures of request bodies
	InvalidContainer Kind = "INVALID_CONTAINER"
	NotAnAnnotation  Kind = "NOT_AN_ANNOTATION"
	NotAContainer    Kind = "NOT_A_CONTAINER"
	InvalidRequest   Kind = "INVALID_REQUEST"

	ContainerNotEmpty Kind = "CONTAINER_NOT_EMPTY"
	MethodNotAllowed  Kind = "METHOD_NOT_ALLOWED"

	// Serialization
	FormatException      Kind = "FORMAT_EXCEPTION"
	FormatNotAvailable   Kind = "FORMAT_NOT_AVAILABLE"
	UnsupportedMediaType Kind = "UNSUPPORTED_MEDIA_TYPE"
	NotImplemented       Kind = "NOT_IMPLEMENTED"

	InternalServerError Kind = "INTERNAL_SERVER_ERROR"
)

var statusByKind = map[Kind]int{
	NotExistent:             http.StatusNotFound,
	ResourceDeleted:         http.StatusGone,
	ResourceExists:          http.StatusConflict,
	EtagMismatch:            http.StatusPreconditionFailed,
	EtagMissing:             http.StatusPreconditionRequired,
	EtagInvalid:             http.StatusBadRequest,
	UnallowedPropertyChange: http.StatusConflict,
	InvalidContainer:        http.StatusBadRequest,
	NotAnAnnotation:         http.StatusUnsupportedMediaType,
	NotAContainer:           http.StatusUnsupportedMediaType,
	InvalidRequest:          http.StatusBadRequest,
	ContainerNotEmpty:       http.StatusMethodNotAllowed,
	MethodNotAllowed:        http.StatusMethodNotAllowed,
	FormatException:         http.StatusInternalServerError,
	FormatNotAvailable:      http.StatusNotAcceptable,
	UnsupportedMediaType:    http.StatusUnsupportedMediaType,
	NotImplemented:          http.StatusNotImplemented,
	InternalServerError:     http.StatusInternalServerError,
}

var messageByKind = map[Kind]string{
	NotExistent:             "The requested resource does not exist",
	ResourceDeleted:         "The requested resource has been deleted",
	ResourceExists:          "A resource with the given IRI already exists",
	EtagMismatch:            "The given etag does not match the current one",
	EtagMissing:             "An If-Match header with the current etag is required",
	EtagInvalid:             "The given etag is not a valid quoted etag",
	UnallowedPropertyChange: "A protected property must not be changed",
	InvalidContainer:        "The container is not valid",
	NotAnAnnotation:         "The body does not contain a valid annotation",
	NotAContainer:           "The body does not contain a valid container",
	InvalidRequest:          "The request is not valid",
	ContainerNotEmpty:       "The container still contains sub containers",
	MethodNotAllowed:        "The method is not allowed on this resource",
	FormatException:         "The data could not be serialized or parsed",
	FormatNotAvailable:      "None of the requested formats is available",
	UnsupportedMediaType:    "The content type of the body is not supported",
	NotImplemented:          "The requested format is known but not implemented",
	InternalServerError:     "Internal server error",
}

// HTTPStatus returns the status code reported for k.
func (k Kind) HTTPStatus() int {
	if status, ok := statusByKind[k]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// Message returns the stable default message of k.
func (k Kind) Message() string {
	if msg, ok := messageByKind[k]; ok {
		return msg
	}
	return messageByKind[InternalServerError]
}

// Error is a coded error with an optional cause.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// HTTPStatus returns the status code of the error's kind.
func (e *Error) HTTPStatus() int {
	return e.Kind.HTTPStatus()
}

// New creates an Error. An empty format uses the kind's default message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: message(kind, format, args)}
}

// Wrap creates an Error around cause. An empty format uses the kind's
// default message.
func Wrap(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: message(kind, format, args), Cause: cause}
}

// Is reports whether err carries kind anywhere in its chain.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// KindOf extracts the kind of err. Errors without a kind report
// InternalServerError, nil reports the empty kind.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return InternalServerError
}

// HTTPStatus returns the status code for any error.
func HTTPStatus(err error) int {
	return KindOf(err).HTTPStatus()
}

// UserMessage returns the message shown to clients.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

func message(kind Kind, format string, args []any) string {
	if format == "" {
		return kind.Message()
	}
	return fmt.Sprintf(format, args...)
}
