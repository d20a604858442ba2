package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"operator-dashboard/src/config"
	"operator-dashboard/src/contracts"
	"operator-dashboard/src/logger"
	"operator-dashboard/src/operator"
	"operator-dashboard/src/reconcile"
	"operator-dashboard/src/store"
)

const (
	testJob      = "pull-ci-rh-ecosystem-edge-nvidia-ci-main-4.14-stable-nvidia-gpu-operator-e2e-24-6-x"
	testBuildDir = "pr-logs/pull/rh-ecosystem-edge_nvidia-ci/42/" + testJob + "/7"
	testNested   = testBuildDir + "/artifacts/nvidia-gpu-operator-e2e-24-6-x/gpu-operator-e2e"
)

func writeFile(t *testing.T, root, name, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(name))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Concurrency = 1
	return cfg
}

// fixture writes an artifacts mirror with one passing release build and an
// empty baseline dashboard.
func fixture(t *testing.T) (artifacts, baseline string) {
	t.Helper()
	artifacts = t.TempDir()
	writeFile(t, artifacts, testNested+"/finished.json", `{"timestamp": 1700000100, "result": "SUCCESS"}`)
	writeFile(t, artifacts, testNested+"/artifacts/ocp.version", "4.14.5\n")
	writeFile(t, artifacts, testNested+"/artifacts/operator.version", "24.6.2\n")

	baseline = filepath.Join(t.TempDir(), "baseline.json")
	codec := contracts.NewCodec(operator.GPU)
	require.NoError(t, store.NewFileStore(baseline, codec).Save(context.Background(), contracts.Dashboard{}))
	return artifacts, baseline
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("DASHBOARD_OPERATOR", "")

	cfg, err := loadConfig("", "nno")
	require.NoError(t, err)
	assert.Equal(t, operator.NNO, cfg.Operator)

	_, err = loadConfig("", "fpga")
	assert.Error(t, err)

	_, err = loadConfig(filepath.Join(t.TempDir(), "missing.yaml"), "")
	assert.Error(t, err)
}

func TestRunFetch_LocalMirror(t *testing.T) {
	artifacts, baseline := fixture(t)
	merged := filepath.Join(t.TempDir(), "merged.json")

	summary, err := runFetch(context.Background(), testConfig(t), fetchOptions{
		PRNumber:     "42",
		BaselinePath: baseline,
		MergedPath:   merged,
		BundleLimit:  reconcile.Unlimited,
		ArtifactsDir: artifacts,
	}, logger.NewSilentLogger())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.PRs)
	assert.Equal(t, 1, summary.Builds)
	assert.Equal(t, []string{"4.14"}, summary.Buckets)

	d, err := store.NewFileStore(merged, contracts.NewCodec(operator.GPU)).Load(context.Background())
	require.NoError(t, err)
	require.Len(t, d["4.14"].ReleaseTests, 1)
	assert.Equal(t, "24.6.2", d["4.14"].ReleaseTests[0].ComponentVersion)
	assert.Equal(t, contracts.StatusSuccess, d["4.14"].ReleaseTests[0].Status)
}

func TestRunFetch_SQLiteMirror(t *testing.T) {
	artifacts, baseline := fixture(t)
	cfg := testConfig(t)
	cfg.SQLitePath = filepath.Join(t.TempDir(), "dashboard.db")

	_, err := runFetch(context.Background(), cfg, fetchOptions{
		PRNumber:     "42",
		BaselinePath: baseline,
		MergedPath:   filepath.Join(t.TempDir(), "merged.json"),
		BundleLimit:  reconcile.Unlimited,
		ArtifactsDir: artifacts,
	}, logger.NewSilentLogger())
	require.NoError(t, err)

	lite, err := store.NewSQLiteStore(context.Background(), cfg.SQLitePath, cfg.Operator.Name, contracts.NewCodec(cfg.Operator))
	require.NoError(t, err)
	defer lite.Close()

	d, err := lite.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, d["4.14"].ReleaseTests, 1)
}

func TestRunFetch_Errors(t *testing.T) {
	artifacts, baseline := fixture(t)
	merged := filepath.Join(t.TempDir(), "merged.json")

	tests := []struct {
		name string
		opts fetchOptions
	}{
		{"missing paths", fetchOptions{PRNumber: "42", ArtifactsDir: artifacts}},
		{"missing baseline", fetchOptions{PRNumber: "42", BaselinePath: filepath.Join(t.TempDir(), "none.json"), MergedPath: merged, ArtifactsDir: artifacts}},
		{"missing mirror", fetchOptions{PRNumber: "42", BaselinePath: baseline, MergedPath: merged, ArtifactsDir: filepath.Join(t.TempDir(), "none")}},
		{"no pull request", fetchOptions{BaselinePath: baseline, MergedPath: merged, ArtifactsDir: artifacts}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runFetch(context.Background(), testConfig(t), tt.opts, logger.NewSilentLogger())
			assert.Error(t, err)
		})
	}

	_, err := os.Stat(merged)
	assert.True(t, os.IsNotExist(err), "failed fetches must not write the merged file")
}

func TestRunRender(t *testing.T) {
	artifacts, baseline := fixture(t)
	merged := filepath.Join(t.TempDir(), "merged.json")
	cfg := testConfig(t)

	_, err := runFetch(context.Background(), cfg, fetchOptions{
		PRNumber:     "42",
		BaselinePath: baseline,
		MergedPath:   merged,
		BundleLimit:  reconcile.Unlimited,
		ArtifactsDir: artifacts,
	}, logger.NewSilentLogger())
	require.NoError(t, err)

	html := filepath.Join(t.TempDir(), "index.html")
	require.NoError(t, runRender(context.Background(), cfg, merged, html, time.Unix(1700000000, 0)))

	data, err := os.ReadFile(html)
	require.NoError(t, err)
	page := string(data)
	assert.True(t, strings.Contains(page, "GPU Operator Test Matrix"))
	assert.True(t, strings.Contains(page, "4.14.5"))
	assert.True(t, strings.Contains(page, "24.6.2"))
}

func TestRunRender_MissingData(t *testing.T) {
	html := filepath.Join(t.TempDir(), "index.html")
	err := runRender(context.Background(), testConfig(t), filepath.Join(t.TempDir(), "none.json"), html, time.Now())
	require.Error(t, err)

	_, statErr := os.Stat(html)
	assert.True(t, os.IsNotExist(statErr))
}

func TestRunMirror_RequiresSinglePR(t *testing.T) {
	_, err := runMirror(context.Background(), testConfig(t), "all", t.TempDir(), logger.NewSilentLogger())
	assert.Error(t, err)

	_, err = runMirror(context.Background(), testConfig(t), "", t.TempDir(), logger.NewSilentLogger())
	assert.Error(t, err)

	_, err = runMirror(context.Background(), testConfig(t), "ALL", t.TempDir(), logger.NewSilentLogger())
	assert.Error(t, err)
}

func TestRunFetch_AllIgnoresCase(t *testing.T) {
	for _, number := range []string{"all", "ALL", " All "} {
		t.Run(number, func(t *testing.T) {
			artifacts, baseline := fixture(t)
			var listed atomic.Int32
			api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/repos/rh-ecosystem-edge/nvidia-ci/pulls" {
					http.NotFound(w, r)
					return
				}
				listed.Add(1)
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(`[{"number": 42}]`))
			}))
			defer api.Close()

			cfg := testConfig(t)
			cfg.GitHubAPIURL = api.URL

			summary, err := runFetch(context.Background(), cfg, fetchOptions{
				PRNumber:     number,
				BaselinePath: baseline,
				MergedPath:   filepath.Join(t.TempDir(), "merged.json"),
				BundleLimit:  reconcile.Unlimited,
				ArtifactsDir: artifacts,
			}, logger.NewSilentLogger())
			require.NoError(t, err)
			assert.Equal(t, int32(1), listed.Load())
			assert.Equal(t, 1, summary.PRs)
			assert.Equal(t, 1, summary.Builds)
		})
	}
}

func TestStartWatchers_FileChange(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	path := filepath.Join(t.TempDir(), "dashboard.json")
	signals, err := startWatchers(ctx, testConfig(t), path, logger.NewSilentLogger())
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o644))
	select {
	case _, ok := <-signals:
		require.True(t, ok)
	case <-time.After(5 * time.Second):
		t.Fatal("no reload signal after write")
	}
}

func TestStartWatchers_WithBrokers(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	cfg := testConfig(t)
	cfg.RedpandaBrokers = []string{"127.0.0.1:1"}
	signals, err := startWatchers(ctx, cfg, filepath.Join(t.TempDir(), "dashboard.json"), logger.NewSilentLogger())
	require.NoError(t, err)

	cancel()
	select {
	case _, ok := <-signals:
		assert.False(t, ok)
	case <-time.After(10 * time.Second):
		t.Fatal("reload channel not closed after cancel")
	}
}

func TestStartWatchers_MissingDir(t *testing.T) {
	_, err := startWatchers(context.Background(), testConfig(t), filepath.Join(t.TempDir(), "none", "d.json"), logger.NewSilentLogger())
	assert.Error(t, err)
}

func TestOpenOutputs_FileLast(t *testing.T) {
	cfg := testConfig(t)
	cfg.SQLitePath = filepath.Join(t.TempDir(), "dashboard.db")
	merged := filepath.Join(t.TempDir(), "merged.json")

	outputs, err := openOutputs(context.Background(), cfg, merged, contracts.NewCodec(cfg.Operator), logger.NewSilentLogger())
	require.NoError(t, err)
	defer closeAll(outputs, logger.NewSilentLogger())

	require.Len(t, outputs, 2)
	assert.IsType(t, &store.SQLStore{}, outputs[0])
	assert.IsType(t, &store.FileStore{}, outputs[1])
}
