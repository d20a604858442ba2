package provider

import (
	"context"
	"errors"
)

var (
	ErrObjectNotFound = errors.New("object not found")
	ErrInvalidGlob    = errors.New("invalid glob pattern")
)

// ArtifactStore lists and retrieves CI artifacts by path.
type ArtifactStore interface {
	// List returns every object under prefix whose path matches glob.
	// Pagination is handled by the implementation.
	List(ctx context.Context, prefix, glob string) ([]Object, error)

	// FetchText returns the raw content of an object.
	FetchText(ctx context.Context, path string) (string, error)

	// FetchJSON decodes the content of an object into v.
	FetchJSON(ctx context.Context, path string, v any) error
}

// ChangeRequestLister lists closed change requests whose builds should be
// collected when no specific number is requested.
type ChangeRequestLister interface {
	ListClosed(ctx context.Context) ([]string, error)
}
