package errors

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorCodes(t *testing.T) {
	// Verify all expected error codes exist
	codes := []string{
		ErrConfig,
		ErrSource,
		ErrParse,
		ErrTerm,
		ErrSession,
		ErrExec,
	}

	for _, code := range codes {
		assert.NotEmpty(t, code, "error code should not be empty")
	}

	// Verify codes are unique
	seen := make(map[string]bool)
	for _, code := range codes {
		assert.False(t, seen[code], "error code %q should be unique", code)
		seen[code] = true
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name       string
		code       string
		message    string
		suggestion string
	}{
		{
			name:       "config error",
			code:       ErrConfig,
			message:    "Invalid configuration in .profiler.yaml",
			suggestion: "Check your configuration file syntax",
		},
		{
			name:       "source error",
			code:       ErrSource,
			message:    "nvidia-smi not found",
			suggestion: "The GPU gauge is disabled on hosts without the NVIDIA driver tools",
		},
		{
			name:       "parse error",
			code:       ErrParse,
			message:    "Malformed /proc/stat cpu line",
			suggestion: "This sample will be skipped",
		},
		{
			name:       "session error",
			code:       ErrSession,
			message:    "Terminal session already active",
			suggestion: "Call Deinit before starting another session",
		},
		{
			name:       "exec error",
			code:       ErrExec,
			message:    "Monitored command failed to launch",
			suggestion: "Make sure the command exists and is executable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code, tt.message, tt.suggestion)

			require.NotNil(t, err)
			assert.Equal(t, tt.code, err.Code)
			assert.Equal(t, tt.message, err.Message)
			assert.Equal(t, tt.suggestion, err.Suggestion)
			assert.Nil(t, err.Cause)
		})
	}
}

func TestErrorFormatting(t *testing.T) {
	err := New(ErrConfig, "Invalid configuration", "Check .profiler.yaml syntax")
	errStr := err.Error()

	assert.True(t, strings.HasPrefix(errStr, "✗ "))
	assert.Contains(t, errStr, "Invalid configuration")
	assert.Contains(t, errStr, "Check .profiler.yaml syntax")
}

func TestWrap(t *testing.T) {
	cause := errors.New("write /dev/tty: input/output error")
	err := Wrap(cause, "Couldn't redraw the dashboard")

	assert.Equal(t, ErrTerm, err.Code)
	assert.Equal(t, cause, err.Cause)
	assert.Contains(t, err.Error(), "input/output error")
}

func TestWrapWithCode(t *testing.T) {
	cause := errors.New("exec: \"nvidia-smi\": executable file not found in $PATH")
	err := WrapWithCode(cause, ErrSource, "GPU counters unavailable", "")

	assert.Equal(t, ErrSource, err.Code)
	assert.ErrorIs(t, err, cause)
}

func TestIsCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code string
		want bool
	}{
		{"nil error", nil, ErrParse, false},
		{"plain error", errors.New("plain"), ErrParse, false},
		{"matching code", New(ErrParse, "bad field", ""), ErrParse, true},
		{"different code", New(ErrSource, "missing", ""), ErrParse, false},
		{"wrapped structured error", WrapWithCode(errors.New("x"), ErrSession, "misuse", ""), ErrSession, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsCode(tt.err, tt.code))
		})
	}
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("underlying")
	err := WrapWithCode(cause, ErrExec, "launch failed", "")

	assert.Equal(t, cause, errors.Unwrap(err))
	assert.True(t, errors.Is(err, cause))
}
