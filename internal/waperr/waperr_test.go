package waperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUsesDefaultMessage(t *testing.T) {
	err := New(NotAnAnnotation, "")
	assert.Equal(t, "The body does not contain a valid annotation", err.Message)
	assert.Equal(t, "NOT_AN_ANNOTATION: The body does not contain a valid annotation", err.Error())

	err = New(NotExistent, "container %s does not exist", "http://x/wap/c/")
	assert.Equal(t, "container http://x/wap/c/ does not exist", err.Message)
}

func TestWrapAndUnwrap(t *testing.T) {
	cause := errors.New("boom")
	err := Wrap(FormatException, cause, "cannot parse body")
	require.ErrorIs(t, err, cause)
	assert.Equal(t, cause, errors.Unwrap(err))
	assert.Contains(t, err.Error(), "boom")
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, ""},
		{"direct", New(EtagMismatch, ""), EtagMismatch},
		{"wrapped by fmt", fmt.Errorf("put: %w", New(ResourceDeleted, "")), ResourceDeleted},
		{"outer kind wins", Wrap(FormatException, New(NotImplemented, ""), ""), FormatException},
		{"plain error", errors.New("plain"), InternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
	assert.True(t, Is(fmt.Errorf("x: %w", New(ContainerNotEmpty, "")), ContainerNotEmpty))
	assert.False(t, Is(New(ContainerNotEmpty, ""), MethodNotAllowed))
}

func TestHTTPStatus(t *testing.T) {
	tests := map[Kind]int{
		NotExistent:             http.StatusNotFound,
		ResourceDeleted:         http.StatusGone,
		EtagMismatch:            http.StatusPreconditionFailed,
		UnallowedPropertyChange: http.StatusConflict,
		ResourceExists:          http.StatusConflict,
		InvalidContainer:        http.StatusBadRequest,
		NotAnAnnotation:         http.StatusUnsupportedMediaType,
		NotAContainer:           http.StatusUnsupportedMediaType,
		ContainerNotEmpty:       http.StatusMethodNotAllowed,
		MethodNotAllowed:        http.StatusMethodNotAllowed,
		FormatNotAvailable:      http.StatusNotAcceptable,
		NotImplemented:          http.StatusNotImplemented,
		FormatException:         http.StatusInternalServerError,
		Kind("UNKNOWN"):         http.StatusInternalServerError,
	}
	for kind, status := range tests {
		assert.Equal(t, status, kind.HTTPStatus(), string(kind))
	}
	assert.Equal(t, http.StatusGone, HTTPStatus(fmt.Errorf("get: %w", New(ResourceDeleted, ""))))
}

func TestEveryKindHasMessage(t *testing.T) {
	for kind := range statusByKind {
		_, ok := messageByKind[kind]
		assert.True(t, ok, "missing message for %s", kind)
	}
}

func TestUserMessage(t *testing.T) {
	assert.Equal(t, "The given etag does not match the current one", UserMessage(New(EtagMismatch, "")))
	assert.Equal(t, "plain", UserMessage(errors.New("plain")))
}
