package model

import (
	"errors"
	"fmt"
	"testing"
)

// TestResponseErrorMessage verifies the human-readable form of status
// failures.
func TestResponseErrorMessage(t *testing.T) {
	t.Parallel()

	t.Run("known status includes status text", func(t *testing.T) {
		t.Parallel()

		err := &ResponseError{StatusCode: 404}
		if err.Error() != "404 Not Found" {
			t.Errorf("expected '404 Not Found', got %q", err.Error())
		}
	})

	t.Run("unknown status falls back to numeric form", func(t *testing.T) {
		t.Parallel()

		err := &ResponseError{StatusCode: 799}
		if err.Error() != "status 799" {
			t.Errorf("expected 'status 799', got %q", err.Error())
		}
	})
}

// TestTransportErrorUnwrap verifies that the wrapped cause stays
// reachable for errors.Is.
func TestTransportErrorUnwrap(t *testing.T) {
	t.Parallel()

	cause := errors.New("connection refused")
	err := &TransportError{Err: cause}

	if !errors.Is(err, cause) {
		t.Error("expected errors.Is to find the wrapped cause")
	}
	if err.Error() != "connection refused" {
		t.Errorf("expected message of the cause, got %q", err.Error())
	}
}

// TestErrorKind verifies failure-class naming, including wrapped errors.
func TestErrorKind(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "response error",
			err:  &ResponseError{StatusCode: 500},
			want: "ResponseError",
		},
		{
			name: "transport error",
			err:  &TransportError{Err: errors.New("dial tcp: connection refused")},
			want: "TransportError",
		},
		{
			name: "wrapped response error keeps its kind",
			err:  fmt.Errorf("checking target: %w", &ResponseError{StatusCode: 404}),
			want: "ResponseError",
		},
		{
			name: "plain error",
			err:  errors.New("something else"),
			want: "Error",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := ErrorKind(tt.err); got != tt.want {
				t.Errorf("ErrorKind() = %q, want %q", got, tt.want)
			}
		})
	}
}
