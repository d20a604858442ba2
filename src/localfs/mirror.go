package localfs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"operator-dashboard/src/provider"
)

// Mirror copies every object under prefix matching one of globs from src
// into the store's directory. It returns the number of objects written.
func (s *Store) Mirror(ctx context.Context, src provider.ArtifactStore, prefix string, globs ...string) (int, error) {
	written := 0
	for _, glob := range globs {
		objs, err := src.List(ctx, prefix, glob)
		if err != nil {
			return written, err
		}
		for _, o := range objs {
			local := filepath.FromSlash(o.Name)
			if !filepath.IsLocal(local) {
				return written, fmt.Errorf("object path %q escapes the mirror root", o.Name)
			}
			content, err := src.FetchText(ctx, o.Name)
			if err != nil {
				return written, err
			}
			dst := filepath.Join(s.root, local)
			if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
				return written, fmt.Errorf("failed to create %s: %w", filepath.Dir(dst), err)
			}
			if err := os.WriteFile(dst, []byte(content), 0o644); err != nil {
				return written, fmt.Errorf("failed to write %s: %w", dst, err)
			}
			written++
		}
	}
	return written, nil
}
