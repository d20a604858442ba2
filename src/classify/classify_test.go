package classify

import (
	"fmt"
	"reflect"
	"sync"
	"testing"

	"operator-dashboard/src/contracts"
	"operator-dashboard/src/operator"
	"operator-dashboard/src/prow"
	"operator-dashboard/src/provider"
)

const (
	repo      = "rh-ecosystem-edge_nvidia-ci"
	gpuJob    = "pull-ci-rh-ecosystem-edge-nvidia-ci-main-4.14-stable-nvidia-gpu-operator-e2e-24-6-x"
	nestedDir = "/artifacts/nvidia-gpu-operator-e2e-24-6-x/gpu-operator-e2e"
)

type recordingLogger struct {
	mu    sync.Mutex
	warns []string
	debug []string
}

func (l *recordingLogger) Info(msg string, args ...interface{}) {}
func (l *recordingLogger) Error(msg string, args ...interface{}) {}
func (l *recordingLogger) Warn(msg string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warns = append(l.warns, fmt.Sprintf(msg, args...))
}
func (l *recordingLogger) Debug(msg string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.debug = append(l.debug, fmt.Sprintf(msg, args...))
}

func buildDir(pr, build string) string {
	return "pr-logs/pull/" + repo + "/" + pr + "/" + gpuJob + "/" + build
}

func objs(paths ...string) []provider.Object {
	out := make([]provider.Object, len(paths))
	for i, p := range paths {
		out[i] = provider.Object{Name: p}
	}
	return out
}

func identity(pr, build string) contracts.BuildIdentity {
	return contracts.BuildIdentity{Repository: repo, ChangeRequest: pr, JobName: gpuJob, BuildID: build}
}

func newClassifier(log *recordingLogger) *Classifier {
	return New(prow.NewParser(operator.GPU), log)
}

func TestClassify_PrefersNested(t *testing.T) {
	top := buildDir("1", "100") + "/finished.json"
	nested := buildDir("1", "100") + nestedDir + "/finished.json"

	for _, order := range [][]string{{top, nested}, {nested, top}} {
		res := newClassifier(&recordingLogger{}).Classify(objs(order...), nil, nil)

		b, ok := res.Builds[identity("1", "100")]
		if !ok {
			t.Fatalf("order %v: build not classified", order)
		}
		if b.Files.Status != nested {
			t.Errorf("order %v: Status = %q, want nested %q", order, b.Files.Status, nested)
		}
		want := DualStatus{Nested: nested, TopLevel: top}
		if got := res.Dual[identity("1", "100")]; got != want {
			t.Errorf("order %v: Dual = %+v, want %+v", order, got, want)
		}
	}
}

func TestClassify_TopLevelOnly(t *testing.T) {
	top := buildDir("1", "100") + "/finished.json"
	res := newClassifier(&recordingLogger{}).Classify(objs(top), nil, nil)

	b := res.Builds[identity("1", "100")]
	if b.Files.Status != top {
		t.Errorf("Status = %q, want %q", b.Files.Status, top)
	}
	if len(res.Dual) != 0 {
		t.Errorf("Dual = %v, want empty", res.Dual)
	}
	if b.Hints != (contracts.VersionPair{Platform: "4.14", Component: "24-6-x"}) {
		t.Errorf("Hints = %+v", b.Hints)
	}
}

func TestClassify_DiscardsOtherStatusFiles(t *testing.T) {
	paths := []string{
		// finished.json of another step inside the artifacts tree
		buildDir("1", "100") + "/artifacts/nvidia-gpu-operator-e2e-24-6-x/gather-must-gather/finished.json",
		// unrelated job
		"pr-logs/pull/" + repo + "/1/pull-ci-rh-ecosystem-edge-nvidia-ci-main-images/7/finished.json",
		// not a status file
		buildDir("1", "100") + "/started.json",
	}
	res := newClassifier(&recordingLogger{}).Classify(objs(paths...), nil, nil)

	if len(res.Builds) != 0 {
		t.Errorf("Builds = %v, want empty", res.Builds)
	}
	if res.Skipped != len(paths) {
		t.Errorf("Skipped = %d, want %d", res.Skipped, len(paths))
	}
}

func TestClassify_UnifiesRoles(t *testing.T) {
	dir := buildDir("1", "100") + nestedDir
	status := dir + "/finished.json"
	ocp := dir + "/artifacts/ocp.version"
	op := dir + "/artifacts/operator.version"

	res := newClassifier(&recordingLogger{}).Classify(objs(status), objs(ocp), objs(op))

	want := RoleFiles{Status: status, PlatformVersionHint: ocp, ComponentVersionHint: op}
	got := res.Builds[identity("1", "100")].Files
	if got != want {
		t.Errorf("Files = %+v, want %+v", got, want)
	}
	if !got.HasVersionHints() {
		t.Error("HasVersionHints() = false, want true")
	}
}

func TestClassify_LaterHintWins(t *testing.T) {
	dir := buildDir("1", "100") + nestedDir
	first := dir + "/artifacts/ocp.version"
	second := buildDir("1", "100") + "/artifacts/nvidia-gpu-operator-e2e-24-6-x/gpu-operator-e2e/retry/artifacts/ocp.version"

	res := newClassifier(&recordingLogger{}).Classify(objs(dir+"/finished.json"), objs(first, second), nil)
	if got := res.Builds[identity("1", "100")].Files.PlatformVersionHint; got != second {
		t.Errorf("PlatformVersionHint = %q, want %q", got, second)
	}
}

func TestClassify_ExcludesLatestPointer(t *testing.T) {
	pointer := "pr-logs/pull/" + repo + "/1/" + gpuJob + "/latest-build.txt"
	res := newClassifier(&recordingLogger{}).Classify(nil, objs(pointer), objs(pointer))

	if len(res.Builds) != 0 || len(res.MissingStatus) != 0 {
		t.Errorf("latest pointer was classified: builds=%v missing=%v", res.Builds, res.MissingStatus)
	}
}

func TestClassify_MissingStatus(t *testing.T) {
	ocp := buildDir("1", "200") + nestedDir + "/artifacts/ocp.version"
	status := buildDir("1", "100") + "/finished.json"

	res := newClassifier(&recordingLogger{}).Classify(objs(status), objs(ocp), nil)

	if _, ok := res.Builds[identity("1", "200")]; ok {
		t.Error("identity without status file should not be in Builds")
	}
	want := []contracts.BuildIdentity{identity("1", "200")}
	if !reflect.DeepEqual(res.MissingStatus, want) {
		t.Errorf("MissingStatus = %v, want %v", res.MissingStatus, want)
	}
}

func TestClassify_LogsPatternMismatchAsWarning(t *testing.T) {
	log := &recordingLogger{}
	bad := "pr-logs/pull/" + repo + "/1/pull-ci-rh-ecosystem-edge-nvidia-ci-main-4.14-stable-nvidia-gpu-operator-e2e-v2/9/artifacts/ocp.version"
	unrelated := "pr-logs/pull/" + repo + "/1/some-other-job/9/artifacts/ocp.version"

	newClassifier(log).Classify(nil, objs(bad, unrelated), nil)

	if len(log.warns) != 1 {
		t.Errorf("got %d warnings, want 1: %v", len(log.warns), log.warns)
	}
	if len(log.debug) != 1 {
		t.Errorf("got %d debug messages, want 1: %v", len(log.debug), log.debug)
	}
}

func TestResult_IdentitiesSorted(t *testing.T) {
	res := newClassifier(&recordingLogger{}).Classify(objs(
		buildDir("2", "300")+"/finished.json",
		buildDir("1", "200")+"/finished.json",
		buildDir("1", "100")+"/finished.json",
	), nil, nil)

	want := []contracts.BuildIdentity{identity("1", "100"), identity("1", "200"), identity("2", "300")}
	if got := res.Identities(); !reflect.DeepEqual(got, want) {
		t.Errorf("Identities() = %v, want %v", got, want)
	}
}

func TestClassify_Deterministic(t *testing.T) {
	status := objs(
		buildDir("1", "100")+"/finished.json",
		buildDir("1", "100")+nestedDir+"/finished.json",
		buildDir("1", "200")+"/finished.json",
	)
	hints := objs(buildDir("1", "100") + nestedDir + "/artifacts/ocp.version")

	c := newClassifier(&recordingLogger{})
	first := c.Classify(status, hints, hints)
	second := c.Classify(status, hints, hints)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("Classify() not deterministic:\n%+v\n%+v", first, second)
	}
}
