package localfs

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"operator-dashboard/src/provider"
)

const prefix = "pr-logs/pull/rh-ecosystem-edge_nvidia-ci/42/"

func writeFile(t *testing.T, root, name, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(name))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func newMirror(t *testing.T) *Store {
	t.Helper()
	root := t.TempDir()
	writeFile(t, root, prefix+"job/1/finished.json", `{"result":"SUCCESS","timestamp":1}`)
	writeFile(t, root, prefix+"job/1/artifacts/e2e/gpu-operator-e2e/finished.json", `{"result":"SUCCESS","timestamp":1}`)
	writeFile(t, root, prefix+"job/1/artifacts/e2e/gpu-operator-e2e/artifacts/ocp.version", "4.14.1\n")
	writeFile(t, root, "pr-logs/pull/rh-ecosystem-edge_nvidia-ci/420/job/9/finished.json", `{}`)

	s, err := New(root)
	require.NoError(t, err)
	return s
}

func TestNew(t *testing.T) {
	_, err := New("")
	assert.Error(t, err)

	_, err = New(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)

	file := filepath.Join(t.TempDir(), "f")
	require.NoError(t, os.WriteFile(file, nil, 0o644))
	_, err = New(file)
	assert.Error(t, err)
}

func TestList(t *testing.T) {
	s := newMirror(t)

	objs, err := s.List(context.Background(), prefix, "**/finished.json")
	require.NoError(t, err)
	assert.Equal(t, []string{
		prefix + "job/1/artifacts/e2e/gpu-operator-e2e/finished.json",
		prefix + "job/1/finished.json",
	}, provider.Names(objs))

	objs, err = s.List(context.Background(), prefix, "**/gpu-operator-e2e/artifacts/ocp.version")
	require.NoError(t, err)
	require.Len(t, objs, 1)
	assert.Equal(t, int64(len("4.14.1\n")), objs[0].Size)
}

func TestList_MissingPrefix(t *testing.T) {
	s := newMirror(t)
	objs, err := s.List(context.Background(), "pr-logs/pull/rh-ecosystem-edge_nvidia-ci/7/", "**/finished.json")
	require.NoError(t, err)
	assert.Empty(t, objs)
}

func TestList_InvalidGlob(t *testing.T) {
	s := newMirror(t)
	_, err := s.List(context.Background(), prefix, "**/[finished.json")
	assert.True(t, errors.Is(err, provider.ErrInvalidGlob), "got %v", err)
}

func TestFetch(t *testing.T) {
	s := newMirror(t)
	ctx := context.Background()

	text, err := s.FetchText(ctx, prefix+"job/1/artifacts/e2e/gpu-operator-e2e/artifacts/ocp.version")
	require.NoError(t, err)
	assert.Equal(t, "4.14.1\n", text)

	var finished struct {
		Result string `json:"result"`
	}
	require.NoError(t, s.FetchJSON(ctx, prefix+"job/1/finished.json", &finished))
	assert.Equal(t, "SUCCESS", finished.Result)

	_, err = s.FetchText(ctx, prefix+"job/2/finished.json")
	assert.True(t, errors.Is(err, provider.ErrObjectNotFound), "got %v", err)

	_, err = s.FetchText(ctx, "../outside")
	assert.Error(t, err)
}

func TestMirror(t *testing.T) {
	src := newMirror(t)
	dst, err := New(t.TempDir())
	require.NoError(t, err)

	n, err := dst.Mirror(context.Background(), src, prefix, "**/finished.json", "**/ocp.version")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	text, err := dst.FetchText(context.Background(), prefix+"job/1/artifacts/e2e/gpu-operator-e2e/artifacts/ocp.version")
	require.NoError(t, err)
	assert.Equal(t, "4.14.1\n", text)
}

func TestStoreImplementsArtifactStore(t *testing.T) {
	var _ provider.ArtifactStore = &Store{}
}
