package provider

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestWrapError_Nil(t *testing.T) {
	if got := WrapError(nil); got != nil {
		t.Errorf("WrapError(nil) = %v, want nil", got)
	}
}

func TestWrapError_Sentinels(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantMessage string
		wantHint    string
		sentinel    error
	}{
		{
			name:        "401 Unauthorized message",
			err:         errors.New("401 Unauthorized"),
			wantMessage: "Authentication failed",
			wantHint:    "GITHUB_TOKEN",
		},
		{
			name:        "wrapped ErrAuthFailed",
			err:         fmt.Errorf("list pulls: %w", ErrAuthFailed),
			wantMessage: "Authentication failed",
			wantHint:    "GITHUB_TOKEN",
			sentinel:    ErrAuthFailed,
		},
		{
			name:        "rate limited",
			err:         fmt.Errorf("gcs list: %w", ErrRateLimited),
			wantMessage: "Rate limited",
			wantHint:    "GCS_REQUESTS_PER_SECOND",
			sentinel:    ErrRateLimited,
		},
		{
			name:        "object not found",
			err:         fmt.Errorf("fetch finished.json: %w", ErrObjectNotFound),
			wantMessage: "Object not found",
			wantHint:    "change request",
			sentinel:    ErrObjectNotFound,
		},
		{
			name:        "network timeout",
			err:         ErrNetworkTimeout,
			wantMessage: "Network timeout",
			wantHint:    "Retry",
			sentinel:    ErrNetworkTimeout,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := WrapError(tt.err)

			userErr, ok := wrapped.(*UserError)
			if !ok {
				t.Fatalf("WrapError() returned %T, want *UserError", wrapped)
			}
			if userErr.Message != tt.wantMessage {
				t.Errorf("Message = %q, want %q", userErr.Message, tt.wantMessage)
			}
			if !strings.Contains(userErr.Hint, tt.wantHint) {
				t.Errorf("Hint = %q, want it to contain %q", userErr.Hint, tt.wantHint)
			}
			if tt.sentinel != nil && !errors.Is(wrapped, tt.sentinel) {
				t.Errorf("errors.Is(wrapped, %v) = false, want true", tt.sentinel)
			}
		})
	}
}

func TestWrapError_PassThrough(t *testing.T) {
	err := errors.New("something else")
	if got := WrapError(err); got != err {
		t.Errorf("WrapError() = %v, want original error", got)
	}
}

func TestUserError_Error(t *testing.T) {
	err := &UserError{Message: "Object not found", Hint: "check it", Err: errors.New("boom")}
	got := err.Error()
	for _, want := range []string{"Object not found", "Hint: check it", "Details: boom"} {
		if !strings.Contains(got, want) {
			t.Errorf("Error() = %q, want it to contain %q", got, want)
		}
	}
}
