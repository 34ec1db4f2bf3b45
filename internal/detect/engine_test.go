package detect

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labassist/backend/internal/domain"
)

type fakeRunner struct {
	result *CommandResult
	err    error

	mu       sync.Mutex
	commands []string
}

func (f *fakeRunner) Run(ctx context.Context, command string) (*CommandResult, error) {
	f.mu.Lock()
	f.commands = append(f.commands, command)
	f.mu.Unlock()
	if f.err != nil {
		return &CommandResult{ExitCode: -1}, f.err
	}
	return f.result, nil
}

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestDetectPathExistenceWithQuotesAndEnv(t *testing.T) {
	root := t.TempDir()
	t.Setenv("LAB_IDE_HOME", root)
	touch(t, filepath.Join(root, "Programs", "IDE", "ide.exe"))

	e := NewEngine(Config{})
	d := domain.SoftwareDescriptor{
		Name:   "IDE",
		Method: domain.DetectionPathExists,
		Target: `"%LAB_IDE_HOME%/Programs/IDE/ide.exe"`,
	}

	st := e.Detect(context.Background(), d)
	if st.Status != domain.InstallStatusInstalled {
		t.Fatalf("status = %s (%s), want Installed", st.Status, st.ProbeError)
	}
	if st.LastCheckedAt.IsZero() {
		t.Error("LastCheckedAt not set")
	}
	if want := filepath.Join(root, "Programs", "IDE", "ide.exe"); st.ResolvedPath != want {
		t.Errorf("resolved path = %q, want %q", st.ResolvedPath, want)
	}
}

func TestDetectPathMissing(t *testing.T) {
	e := NewEngine(Config{})
	res := e.Probe(context.Background(), domain.SoftwareDescriptor{
		Name:   "Missing",
		Method: domain.DetectionPathExists,
		Target: filepath.Join(t.TempDir(), "nope.exe"),
	})
	if res.Installed || res.Err == nil || res.Err.Reason != ReasonNotFound {
		t.Fatalf("res = %+v", res)
	}
}

func TestDetectEmptyTarget(t *testing.T) {
	e := NewEngine(Config{})
	for _, m := range []domain.DetectionMethod{domain.DetectionPathExists, domain.DetectionPathGlob, domain.DetectionCommand} {
		res := e.Probe(context.Background(), domain.SoftwareDescriptor{Name: "x", Method: m, Target: `  ""  `})
		if res.Installed || res.Err == nil || res.Err.Reason != ReasonEmptyTarget {
			t.Errorf("%s: res = %+v", m, res)
		}
	}
}

func TestDetectGlob(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "jdk-17", "bin", "java"))
	touch(t, filepath.Join(root, "jdk-21", "bin", "java"))

	e := NewEngine(Config{})
	res := e.Probe(context.Background(), domain.SoftwareDescriptor{
		Name:   "JDK",
		Method: domain.DetectionPathGlob,
		Target: filepath.Join(root, "jdk-*", "bin", "java"),
	})
	if !res.Installed {
		t.Fatalf("res = %+v", res)
	}
	if want := filepath.Join(root, "jdk-17", "bin", "java"); res.Path != want {
		t.Errorf("path = %q, want first match %q", res.Path, want)
	}

	res = e.Probe(context.Background(), domain.SoftwareDescriptor{
		Name:   "None",
		Method: domain.DetectionPathGlob,
		Target: filepath.Join(root, "eclipse-*"),
	})
	if res.Installed || res.Err.Reason != ReasonNoMatch {
		t.Errorf("no-match res = %+v", res)
	}
}

func TestDetectMalformedGlobIsNotInstalled(t *testing.T) {
	e := NewEngine(Config{})
	st := e.Detect(context.Background(), domain.SoftwareDescriptor{
		Name:   "Bad",
		Method: domain.DetectionPathGlob,
		Target: filepath.Join(t.TempDir(), "[unclosed"),
	})
	if st.Status != domain.InstallStatusNotInstalled {
		t.Fatalf("status = %s", st.Status)
	}
	if !strings.HasPrefix(st.ProbeError, string(ReasonBadPattern)) {
		t.Errorf("probe error = %q", st.ProbeError)
	}
}

func TestCommandPolicies(t *testing.T) {
	cases := []struct {
		name   string
		policy CommandPolicy
		result *CommandResult
		want   bool
	}{
		{"strict exit 0", PolicyStrict, &CommandResult{ExitCode: 0}, true},
		{"strict exit 1 with output", PolicyStrict, &CommandResult{ExitCode: 1, Output: "usage"}, false},
		{"lenient exit 1 with output", PolicyLenient, &CommandResult{ExitCode: 1, Output: "usage"}, true},
		{"lenient exit 1 silent", PolicyLenient, &CommandResult{ExitCode: 1, Output: "  \n"}, false},
		{"lenient command not found", PolicyLenient, &CommandResult{ExitCode: 127, Output: "sh: foo: not found"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := NewEngine(Config{Policy: tc.policy, Runner: &fakeRunner{result: tc.result}})
			res := e.Probe(context.Background(), domain.SoftwareDescriptor{Name: "tool", Method: domain.DetectionCommand, Target: "tool --version"})
			if res.Installed != tc.want {
				t.Errorf("installed = %v, want %v (err %v)", res.Installed, tc.want, res.Err)
			}
		})
	}
}

func TestCommandTimeoutAndSpawnFailure(t *testing.T) {
	e := NewEngine(Config{Runner: &fakeRunner{err: ErrCommandTimeout}})
	res := e.Probe(context.Background(), domain.SoftwareDescriptor{Name: "slow", Method: domain.DetectionCommand, Target: "slow"})
	if res.Installed || res.Err.Reason != ReasonTimeout {
		t.Errorf("timeout res = %+v", res)
	}

	e = NewEngine(Config{Runner: &fakeRunner{err: errors.New("exec: \"sh\": executable file not found")}})
	res = e.Probe(context.Background(), domain.SoftwareDescriptor{Name: "nosh", Method: domain.DetectionCommand, Target: "x"})
	if res.Installed || res.Err.Reason != ReasonSpawnFailed {
		t.Errorf("spawn res = %+v", res)
	}
}

func TestCommandMinVersion(t *testing.T) {
	cases := []struct {
		output string
		min    string
		want   bool
		reason Reason
	}{
		{"Python 3.11.4", "3.10", true, ""},
		{"Python 3.8.10", "3.10", false, ReasonVersionTooOld},
		{"git version 2.46.0.windows.1", "2.40", true, ""},
		{"ok", "1.0", false, ReasonVersionUnknown},
	}
	for _, tc := range cases {
		e := NewEngine(Config{Runner: &fakeRunner{result: &CommandResult{Output: tc.output}}})
		res := e.Probe(context.Background(), domain.SoftwareDescriptor{
			Name: "x", Method: domain.DetectionCommand, Target: "x --version", MinVersion: tc.min,
		})
		if res.Installed != tc.want {
			t.Errorf("%q >= %s: installed = %v, want %v", tc.output, tc.min, res.Installed, tc.want)
		}
		if !tc.want && res.Err.Reason != tc.reason {
			t.Errorf("%q: reason = %s, want %s", tc.output, res.Err.Reason, tc.reason)
		}
	}
}

func TestShellRunnerExitCodes(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("posix shell commands")
	}
	e := NewEngine(Config{})

	ok := e.Probe(context.Background(), domain.SoftwareDescriptor{Name: "true", Method: domain.DetectionCommand, Target: "exit 0"})
	if !ok.Installed {
		t.Errorf("exit 0: %+v", ok)
	}

	bad := e.Probe(context.Background(), domain.SoftwareDescriptor{Name: "false", Method: domain.DetectionCommand, Target: "echo nope; exit 3"})
	if bad.Installed || bad.Err.Reason != ReasonNonZeroExit {
		t.Errorf("exit 3: %+v", bad)
	}
}

func TestShellRunnerTimeoutIsBounded(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("posix shell commands")
	}
	e := NewEngine(Config{ProbeTimeout: 200 * time.Millisecond})

	start := time.Now()
	res := e.Probe(context.Background(), domain.SoftwareDescriptor{Name: "hang", Method: domain.DetectionCommand, Target: "sleep 10"})
	if res.Installed || res.Err.Reason != ReasonTimeout {
		t.Fatalf("res = %+v", res)
	}
	if elapsed := time.Since(start); elapsed > 3*time.Second {
		t.Errorf("probe took %v, want it bounded by the timeout", elapsed)
	}
}

func TestDetectNotifiesListenersAndRecordsState(t *testing.T) {
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	e := NewEngine(Config{Runner: &fakeRunner{result: &CommandResult{}}, Now: func() time.Time { return fixed }})

	if got := e.State("git"); got.Status != domain.InstallStatusUnknown {
		t.Errorf("before detect = %s, want Unknown", got.Status)
	}

	var seen []domain.InstallState
	e.OnDetect(func(_ context.Context, _ domain.SoftwareDescriptor, st domain.InstallState) {
		seen = append(seen, st)
	})

	e.Detect(context.Background(), domain.SoftwareDescriptor{Name: "git", Method: domain.DetectionCommand, Target: "git --version"})

	if len(seen) != 1 || seen[0].Status != domain.InstallStatusInstalled {
		t.Fatalf("listener saw %+v", seen)
	}
	if got := e.State("git"); !got.LastCheckedAt.Equal(fixed) {
		t.Errorf("LastCheckedAt = %v, want %v", got.LastCheckedAt, fixed)
	}
}

func TestDetectAllKeepsOrder(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "a"))
	descs := []domain.SoftwareDescriptor{
		{Name: "a", Method: domain.DetectionPathExists, Target: filepath.Join(root, "a")},
		{Name: "b", Method: domain.DetectionPathExists, Target: filepath.Join(root, "b")},
		{Name: "c", Method: "registry", Target: "HKLM"},
	}

	states := NewEngine(Config{}).DetectAll(context.Background(), descs, 2)
	if len(states) != 3 {
		t.Fatalf("states = %d", len(states))
	}
	if states[0].Status != domain.InstallStatusInstalled ||
		states[1].Status != domain.InstallStatusNotInstalled ||
		states[2].Status != domain.InstallStatusNotInstalled {
		t.Errorf("states = %+v", states)
	}
}

func TestParsePolicy(t *testing.T) {
	if p, err := ParsePolicy(""); err != nil || p != PolicyStrict {
		t.Errorf("empty = %s, %v", p, err)
	}
	if p, err := ParsePolicy("Lenient"); err != nil || p != PolicyLenient {
		t.Errorf("Lenient = %s, %v", p, err)
	}
	if _, err := ParsePolicy("yolo"); !errors.Is(err, ErrUnknownPolicy) {
		t.Errorf("err = %v", err)
	}
}

func TestNormalizePath(t *testing.T) {
	t.Setenv("LAB_NORM", "/opt/lab")
	cases := map[string]string{
		`"${LAB_NORM}/bin/tool"`:   filepath.FromSlash("/opt/lab/bin/tool"),
		`'$LAB_NORM//bin/../tool'`: filepath.FromSlash("/opt/lab/tool"),
		`%LAB_NORM%/x`:             filepath.FromSlash("/opt/lab/x"),
		`$LAB_UNSET_VAR/x`:         filepath.FromSlash("$LAB_UNSET_VAR/x"),
		`   `:                      "",
	}
	for in, want := range cases {
		if got := NormalizePath(in); got != want {
			t.Errorf("NormalizePath(%q) = %q, want %q", in, got, want)
		}
	}
}
