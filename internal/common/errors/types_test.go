package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	t.Run("type and message only", func(t *testing.T) {
		err := ConfigError("no remote endpoint configured")
		assert.Equal(t, "config: no remote endpoint configured", err.Error())
	})

	t.Run("includes cause", func(t *testing.T) {
		cause := errors.New("connection refused")
		err := ConnectionError("redis connect failed", cause)
		assert.Contains(t, err.Error(), "connection: redis connect failed")
		assert.Contains(t, err.Error(), "cause=connection refused")
	})

	t.Run("includes context", func(t *testing.T) {
		err := RemoteOpError("get", errors.New("broken pipe")).
			WithContext("key", "user:42")
		assert.Contains(t, err.Error(), "key=user:42")
	})
}

func TestAppError_Unwrap(t *testing.T) {
	cause := errors.New("dial tcp: i/o timeout")
	err := ConnectionError("redis connect failed", cause)

	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, cause, errors.Unwrap(err))
}

func TestErrorConstructors(t *testing.T) {
	tests := []struct {
		name     string
		err      *AppError
		wantType ErrorType
	}{
		{"connection", ConnectionError("x", nil), ErrTypeConnection},
		{"timeout", TimeoutError("connect"), ErrTypeTimeout},
		{"config", ConfigError("x"), ErrTypeConfig},
		{"remote op", RemoteOpError("set", nil), ErrTypeRemoteOp},
		{"upstream", UpstreamError("user:42", nil), ErrTypeUpstream},
		{"internal", InternalError("x", nil), ErrTypeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantType, tt.err.Type)
			assert.True(t, IsType(tt.err, tt.wantType))
		})
	}
}

func TestIsType(t *testing.T) {
	t.Run("nil error", func(t *testing.T) {
		assert.False(t, IsType(nil, ErrTypeConnection))
	})

	t.Run("plain error", func(t *testing.T) {
		assert.False(t, IsType(fmt.Errorf("plain"), ErrTypeConnection))
	})

	t.Run("mismatched type", func(t *testing.T) {
		assert.False(t, IsType(TimeoutError("op"), ErrTypeConnection))
	})
}

func TestGetType(t *testing.T) {
	assert.Equal(t, ErrorType(""), GetType(nil))
	assert.Equal(t, ErrTypeInternal, GetType(fmt.Errorf("plain")))
	assert.Equal(t, ErrTypeTimeout, GetType(TimeoutError("op")))
}
