package detect

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	version "github.com/hashicorp/go-version"
	"github.com/labassist/backend/internal/domain"
	"github.com/labassist/backend/internal/infrastructure/logger"
)

// CommandPolicy decides how a command probe's exit status and output map to Installed.
type CommandPolicy string

const (
	// PolicyStrict: installed iff the command exits 0.
	PolicyStrict CommandPolicy = "strict"
	// PolicyLenient: installed if the command exits 0 or prints anything.
	// Shell "command not found" exits are still treated as not installed.
	PolicyLenient CommandPolicy = "lenient"
)

var ErrUnknownPolicy = errors.New("detect: unknown command policy")

func ParsePolicy(s string) (CommandPolicy, error) {
	switch CommandPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", PolicyStrict:
		return PolicyStrict, nil
	case PolicyLenient:
		return PolicyLenient, nil
	}
	return PolicyStrict, fmt.Errorf("%w: %q", ErrUnknownPolicy, s)
}

const DefaultProbeTimeout = 5 * time.Second

// Exit codes the shells use when the program itself could not be found or run.
var shellMissingExit = map[int]bool{126: true, 127: true, 9009: true}

var versionPattern = regexp.MustCompile(`\d+(?:\.\d+)+`)

// Listener observes every completed detection.
type Listener func(ctx context.Context, d domain.SoftwareDescriptor, st domain.InstallState)

type Config struct {
	ProbeTimeout time.Duration
	Policy       CommandPolicy
	Runner       CommandRunner
	Logger       *logger.Logger
	Now          func() time.Time
}

// Engine decides whether catalog items are installed. It never fails: every
// probe error degrades to NotInstalled and is kept on the state for diagnostics.
type Engine struct {
	timeout time.Duration
	policy  CommandPolicy
	runner  CommandRunner
	logger  *logger.Logger
	now     func() time.Time

	mu        sync.RWMutex
	states    map[string]domain.InstallState
	listeners []Listener
}

func NewEngine(cfg Config) *Engine {
	e := &Engine{
		timeout: cfg.ProbeTimeout,
		policy:  cfg.Policy,
		runner:  cfg.Runner,
		logger:  cfg.Logger,
		now:     cfg.Now,
		states:  make(map[string]domain.InstallState),
	}
	if e.timeout <= 0 {
		e.timeout = DefaultProbeTimeout
	}
	if e.policy == "" {
		e.policy = PolicyStrict
	}
	if e.runner == nil {
		e.runner = ShellRunner{}
	}
	if e.logger == nil {
		e.logger = logger.NewNop()
	}
	if e.now == nil {
		e.now = time.Now
	}
	return e
}

func (e *Engine) Policy() CommandPolicy { return e.policy }

// OnDetect registers l to run synchronously after each Detect.
func (e *Engine) OnDetect(l Listener) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listeners = append(e.listeners, l)
}

// Detect probes d, records the resulting state and notifies listeners.
func (e *Engine) Detect(ctx context.Context, d domain.SoftwareDescriptor) domain.InstallState {
	res := e.Probe(ctx, d)

	st := domain.InstallState{
		Name:          d.Name,
		Status:        domain.InstallStatusNotInstalled,
		LastCheckedAt: e.now(),
		ResolvedPath:  res.Path,
	}
	if res.Installed {
		st.Status = domain.InstallStatusInstalled
	} else if res.Err != nil {
		st.ProbeError = res.Err.Error()
	}

	e.mu.Lock()
	e.states[d.Name] = st
	listeners := append([]Listener(nil), e.listeners...)
	e.mu.Unlock()

	for _, l := range listeners {
		l(ctx, d, st)
	}
	return st
}

// DetectAll probes every descriptor with at most workers probes in flight.
// Results are returned in input order.
func (e *Engine) DetectAll(ctx context.Context, descs []domain.SoftwareDescriptor, workers int) []domain.InstallState {
	if workers < 1 {
		workers = 1
	}
	out := make([]domain.InstallState, len(descs))
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	for i, d := range descs {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, d domain.SoftwareDescriptor) {
			defer wg.Done()
			defer func() { <-sem }()
			out[i] = e.Detect(ctx, d)
		}(i, d)
	}
	wg.Wait()
	return out
}

// State returns the last recorded state, or Unknown if d was never checked.
func (e *Engine) State(name string) domain.InstallState {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if st, ok := e.states[name]; ok {
		return st
	}
	return domain.InstallState{Name: name, Status: domain.InstallStatusUnknown}
}

func (e *Engine) States() []domain.InstallState {
	e.mu.RLock()
	out := make([]domain.InstallState, 0, len(e.states))
	for _, st := range e.states {
		out = append(out, st)
	}
	e.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Probe runs the descriptor's detection method without touching recorded state.
func (e *Engine) Probe(ctx context.Context, d domain.SoftwareDescriptor) Result {
	start := time.Now()
	var res Result
	switch d.Method {
	case domain.DetectionPathExists:
		res = probePath(d.Target)
	case domain.DetectionPathGlob:
		res = probeGlob(d.Target)
	case domain.DetectionCommand:
		res = e.probeCommand(ctx, d)
	default:
		res = Result{Err: probeErr(ReasonUnsupported, string(d.Method), nil)}
	}
	res.Duration = time.Since(start)

	if res.Err != nil {
		e.logger.Debugw("detect_probe_negative",
			"software", d.Name,
			"method", d.Method,
			"reason", res.Err.Reason,
			"error", res.Err.Error(),
			"duration_ms", res.Duration.Milliseconds(),
		)
	} else {
		e.logger.Debugw("detect_probe_installed",
			"software", d.Name,
			"method", d.Method,
			"path", res.Path,
			"duration_ms", res.Duration.Milliseconds(),
		)
	}
	return res
}

func probePath(target string) Result {
	p := NormalizePath(target)
	if p == "" {
		return Result{Err: probeErr(ReasonEmptyTarget, "", nil)}
	}
	if _, err := os.Stat(p); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Result{Path: p, Err: probeErr(ReasonNotFound, p, nil)}
		}
		return Result{Path: p, Err: probeErr(ReasonUnreadable, p, err)}
	}
	return Result{Installed: true, Path: p}
}

func probeGlob(target string) Result {
	p := NormalizePath(target)
	if p == "" {
		return Result{Err: probeErr(ReasonEmptyTarget, "", nil)}
	}
	matches, err := filepath.Glob(p)
	if err != nil {
		return Result{Err: probeErr(ReasonBadPattern, p, err)}
	}
	if len(matches) == 0 {
		return Result{Err: probeErr(ReasonNoMatch, p, nil)}
	}
	sort.Strings(matches)
	return Result{Installed: true, Path: matches[0]}
}

func (e *Engine) probeCommand(ctx context.Context, d domain.SoftwareDescriptor) Result {
	command := strings.TrimSpace(d.Target)
	if command == "" {
		return Result{Err: probeErr(ReasonEmptyTarget, "", nil)}
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	cr, err := e.runner.Run(ctx, command)
	if err != nil {
		if errors.Is(err, ErrCommandTimeout) {
			return Result{Err: probeErr(ReasonTimeout, e.timeout.String(), err)}
		}
		return Result{Err: probeErr(ReasonSpawnFailed, command, err)}
	}

	output := strings.TrimSpace(cr.Output)
	ok := cr.ExitCode == 0
	if !ok && e.policy == PolicyLenient && output != "" && !shellMissingExit[cr.ExitCode] {
		ok = true
	}
	e.logger.Debugw("detect_command_evaluated",
		"software", d.Name,
		"policy", e.policy,
		"exit_code", cr.ExitCode,
		"output_bytes", len(output),
		"installed", ok,
	)
	if !ok {
		return Result{Output: output, Err: probeErr(ReasonNonZeroExit, fmt.Sprintf("exit %d", cr.ExitCode), nil)}
	}

	if d.MinVersion != "" {
		if perr := checkMinVersion(output, d.MinVersion); perr != nil {
			return Result{Output: output, Err: perr}
		}
	}
	return Result{Installed: true, Output: output}
}

func checkMinVersion(output, min string) *ProbeError {
	want, err := version.NewVersion(min)
	if err != nil {
		return probeErr(ReasonVersionUnknown, "min_version "+min, err)
	}
	raw := versionPattern.FindString(output)
	if raw == "" {
		return probeErr(ReasonVersionUnknown, "no version in output", nil)
	}
	have, err := version.NewVersion(raw)
	if err != nil {
		return probeErr(ReasonVersionUnknown, raw, err)
	}
	if have.LessThan(want) {
		return probeErr(ReasonVersionTooOld, fmt.Sprintf("%s < %s", have, want), nil)
	}
	return nil
}
