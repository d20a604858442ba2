// Package localfs serves Prow artifacts from a local directory mirror of the
// results bucket, laid out exactly like the bucket's object names.
package localfs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"operator-dashboard/src/provider"
)

var errEmptyRoot = errors.New("mirror root directory is required")

// Store implements provider.ArtifactStore on top of a directory.
type Store struct {
	root string
}

// New returns a Store rooted at dir. The directory must exist.
func New(dir string) (*Store, error) {
	if dir == "" {
		return nil, errEmptyRoot
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("mirror root %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("mirror root %s is not a directory", dir)
	}
	return &Store{root: dir}, nil
}

// Root returns the mirror directory.
func (s *Store) Root() string {
	return s.root
}

// List returns objects whose name starts with prefix and matches glob,
// sorted by name like a bucket listing.
func (s *Store) List(ctx context.Context, prefix, glob string) ([]provider.Object, error) {
	if !doublestar.ValidatePattern(glob) {
		return nil, fmt.Errorf("%w: %q", provider.ErrInvalidGlob, glob)
	}

	start := s.root
	if i := strings.LastIndex(prefix, "/"); i >= 0 {
		start = filepath.Join(s.root, filepath.FromSlash(prefix[:i]))
	}

	var out []provider.Object
	err := filepath.WalkDir(start, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return fs.SkipDir
			}
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(rel)
		if !strings.HasPrefix(name, prefix) {
			return nil
		}
		if ok, _ := doublestar.Match(glob, name); !ok {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		out = append(out, provider.Object{Name: name, Size: info.Size(), Updated: info.ModTime()})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list %s%s: %w", prefix, glob, err)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// FetchText reads an object's content.
func (s *Store) FetchText(ctx context.Context, path string) (string, error) {
	data, err := s.read(ctx, path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// FetchJSON reads an object and decodes it into v.
func (s *Store) FetchJSON(ctx context.Context, path string, v any) error {
	data, err := s.read(ctx, path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return nil
}

func (s *Store) read(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	local := filepath.FromSlash(path)
	if !filepath.IsLocal(local) {
		return nil, fmt.Errorf("object path %q escapes the mirror root", path)
	}
	data, err := os.ReadFile(filepath.Join(s.root, local))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", path, provider.ErrObjectNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}
