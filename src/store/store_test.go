package store

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"operator-dashboard/src/contracts"
	"operator-dashboard/src/operator"
)

func sampleDashboard() contracts.Dashboard {
	return contracts.Dashboard{
		"4.14": {
			Notes: []string{"driver 550 known issue"},
			BundleTests: []contracts.TestResult{
				{PlatformVersion: "4.14", ComponentVersion: "master", Status: contracts.StatusFailure, ReportURL: "u1", Timestamp: 200},
			},
			ReleaseTests: []contracts.TestResult{
				{PlatformVersion: "4.14.1", ComponentVersion: "24.6.0", Status: contracts.StatusSuccess, ReportURL: "u2", Timestamp: 100},
			},
			JobHistoryLinks: []string{"l1"},
		},
		"4.15": {
			Notes:           []string{},
			BundleTests:     []contracts.TestResult{},
			ReleaseTests:    []contracts.TestResult{},
			JobHistoryLinks: []string{},
		},
	}
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(nil)
	defer s.Close()

	_, err := s.Load(ctx)
	assert.True(t, errors.Is(err, ErrNotFound), "got %v", err)

	d := sampleDashboard()
	require.NoError(t, s.Save(ctx, d))
	assert.Equal(t, 1, s.Saves())

	got, err := s.Load(ctx)
	require.NoError(t, err)
	if diff := cmp.Diff(d, got); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}

	// Mutating the loaded copy must not affect the store.
	got["4.14"].Notes[0] = "changed"
	again, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "driver 550 known issue", again["4.14"].Notes[0])
}

func TestFileStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "out", "gpu_operator_matrix.json")
	s := NewFileStore(path, contracts.NewCodec(operator.GPU))

	d := sampleDashboard()
	require.NoError(t, s.Save(ctx, d))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	if diff := cmp.Diff(d, got); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"gpu_operator_version": "24.6.0"`)
	assert.Contains(t, string(raw), `"job_timestamp": "100"`)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".tmp", "temporary file left behind")
	}
}

func TestFileStore_LoadMissing(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "missing.json"), contracts.NewCodec(operator.GPU))
	_, err := s.Load(context.Background())
	assert.True(t, errors.Is(err, ErrNotFound), "got %v", err)
}

func TestFileStore_LoadCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := NewFileStore(path, contracts.NewCodec(operator.GPU)).Load(context.Background())
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNotFound))
}

func TestFileStore_SaveWhileLocked(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o644))

	held := flock.New(path + ".lock")
	locked, err := held.TryLock()
	require.NoError(t, err)
	require.True(t, locked)
	defer held.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	err = NewFileStore(path, contracts.NewCodec(operator.GPU)).Save(ctx, sampleDashboard())
	require.Error(t, err)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{}", string(raw), "existing file must be left untouched")
}

func TestSQLiteStore(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "dashboard.db")

	gpu, err := NewSQLiteStore(ctx, path, operator.GPU.Name, contracts.NewCodec(operator.GPU))
	require.NoError(t, err)
	defer gpu.Close()

	_, err = gpu.Load(ctx)
	assert.True(t, errors.Is(err, ErrNotFound), "got %v", err)

	d := sampleDashboard()
	require.NoError(t, gpu.Save(ctx, d))

	got, err := gpu.Load(ctx)
	require.NoError(t, err)
	if diff := cmp.Diff(d, got); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}

	// A second save replaces, it does not append.
	delete(d, "4.15")
	require.NoError(t, gpu.Save(ctx, d))
	got, err = gpu.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, got, 1)

	// Operators are isolated from each other.
	nno, err := NewSQLiteStore(ctx, path, operator.NNO.Name, contracts.NewCodec(operator.NNO))
	require.NoError(t, err)
	defer nno.Close()
	_, err = nno.Load(ctx)
	assert.True(t, errors.Is(err, ErrNotFound), "got %v", err)
}

func TestSQLStore_Rebind(t *testing.T) {
	pg := &SQLStore{driver: "postgres"}
	assert.Equal(t, "SELECT a FROM t WHERE x = $1 AND y = $2", pg.rebind("SELECT a FROM t WHERE x = ? AND y = ?"))

	lite := &SQLStore{driver: "sqlite"}
	assert.Equal(t, "x = ?", lite.rebind("x = ?"))
}

func TestClone(t *testing.T) {
	assert.Nil(t, Clone(nil))

	d := sampleDashboard()
	c := Clone(d)
	c["4.14"].BundleTests[0].Status = contracts.StatusSuccess
	assert.Equal(t, contracts.StatusFailure, d["4.14"].BundleTests[0].Status)
}

func TestClone_Extra(t *testing.T) {
	d := contracts.Dashboard{"4.14": {Extra: map[string]json.RawMessage{"owner": json.RawMessage(`"a"`)}}}
	c := Clone(d)
	c["4.14"].Extra["owner"][1] = 'b'
	c["4.14"].Extra["new"] = json.RawMessage(`1`)

	assert.Equal(t, `"a"`, string(d["4.14"].Extra["owner"]))
	assert.Len(t, d["4.14"].Extra, 1)
}

func TestStoresImplementInterface(t *testing.T) {
	var _ Store = &MemoryStore{}
	var _ Store = &FileStore{}
	var _ Store = &SQLStore{}
}
