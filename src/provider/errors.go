package provider

import (
	"errors"
	"fmt"
)

var (
	ErrAuthFailed     = errors.New("authentication failed")
	ErrRateLimited    = errors.New("rate limited")
	ErrNetworkTimeout = errors.New("network timeout")
)

// UserError wraps errors with user-friendly messages
type UserError struct {
	Message string
	Hint    string
	Err     error
}

func (e *UserError) Error() string {
	msg := e.Message
	if e.Hint != "" {
		msg += "\n\nHint: " + e.Hint
	}
	if e.Err != nil {
		msg += fmt.Sprintf("\n\nDetails: %v", e.Err)
	}
	return msg
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// WrapError converts collaborator errors to user-friendly messages
func WrapError(err error) error {
	if err == nil {
		return nil
	}

	msg := err.Error()

	if errors.Is(err, ErrAuthFailed) || msg == "401 Unauthorized" {
		return &UserError{
			Message: "Authentication failed",
			Hint:    "Check that GITHUB_TOKEN is valid. Artifact storage is read anonymously.",
			Err:     err,
		}
	}

	if errors.Is(err, ErrRateLimited) {
		return &UserError{
			Message: "Rate limited",
			Hint:    "Lower GCS_REQUESTS_PER_SECOND or set GITHUB_TOKEN to raise the GitHub API quota.",
			Err:     err,
		}
	}

	if errors.Is(err, ErrObjectNotFound) {
		return &UserError{
			Message: "Object not found",
			Hint:    "Check the change request number and that its builds were uploaded to the artifact bucket.",
			Err:     err,
		}
	}

	if errors.Is(err, ErrNetworkTimeout) {
		return &UserError{
			Message: "Network timeout",
			Hint:    "The artifact store did not answer in time. Retry the run.",
			Err:     err,
		}
	}

	return err
}
