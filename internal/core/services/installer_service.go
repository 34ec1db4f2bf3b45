package services

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/labassist/backend/internal/core/ports"
	"github.com/labassist/backend/internal/domain"
	"github.com/labassist/backend/internal/infrastructure/logger"
)

type InstallAction string

const (
	ActionRun     InstallAction = "run"
	ActionSurface InstallAction = "surface"
)

// InstallPlan is the command chosen for one artifact on one OS.
type InstallPlan struct {
	Action  InstallAction
	Command string
	Args    []string
	Wait    bool
}

// ProcessLauncher starts installer processes.
type ProcessLauncher interface {
	Run(ctx context.Context, name string, args ...string) error
	Start(name string, args ...string) error
}

type execLauncher struct{}

func (execLauncher) Run(ctx context.Context, name string, args ...string) error {
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	if err != nil {
		tail := strings.TrimSpace(string(out))
		if len(tail) > 512 {
			tail = tail[len(tail)-512:]
		}
		if tail != "" {
			return fmt.Errorf("%w: %s", err, tail)
		}
		return err
	}
	return nil
}

func (execLauncher) Start(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return err
	}
	go cmd.Wait()
	return nil
}

type installerService struct {
	launcher ProcessLauncher
	logger   *logger.Logger
	timeout  time.Duration
	enabled  bool
	goos     string
}

type InstallerServiceConfig struct {
	Launcher ProcessLauncher
	Logger   *logger.Logger
	Timeout  time.Duration
	// Enabled false downloads artifacts but never executes them.
	Enabled bool
	GOOS    string
}

func NewInstallerService(cfg InstallerServiceConfig) ports.InstallerService {
	s := &installerService{
		launcher: cfg.Launcher,
		logger:   cfg.Logger,
		timeout:  cfg.Timeout,
		enabled:  cfg.Enabled,
		goos:     cfg.GOOS,
	}
	if s.launcher == nil {
		s.launcher = execLauncher{}
	}
	if s.logger == nil {
		s.logger = logger.NewNop()
	}
	if s.timeout <= 0 {
		s.timeout = 30 * time.Minute
	}
	if s.goos == "" {
		s.goos = runtime.GOOS
	}
	return s
}

func (s *installerService) Install(ctx context.Context, d domain.SoftwareDescriptor, artifactPath string) (domain.InstallOutcome, error) {
	plan := PlanInstall(d, artifactPath, s.goos)

	if plan.Action == ActionSurface {
		s.logger.Infow("installer_artifact_surfaced", "software", d.Name, "path", artifactPath)
		return domain.InstallOutcomeSurfaced, nil
	}
	if !s.enabled {
		s.logger.Infow("installer_execution_disabled", "software", d.Name, "path", artifactPath, "command", plan.Command)
		return domain.InstallOutcomeSkipped, nil
	}

	s.logger.Infow("installer_start", "software", d.Name, "command", plan.Command, "args", plan.Args, "wait", plan.Wait)

	if !plan.Wait {
		if err := s.launcher.Start(plan.Command, plan.Args...); err != nil {
			s.logger.Warnw("installer_launch_failed", "software", d.Name, "error", err)
			return domain.InstallOutcomeFailed, fmt.Errorf("%w: %v", ErrInstallActionFailed, err)
		}
		return domain.InstallOutcomeLaunched, nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.launcher.Run(ctx, plan.Command, plan.Args...); err != nil {
		s.logger.Warnw("installer_run_failed", "software", d.Name, "error", err)
		return domain.InstallOutcomeFailed, fmt.Errorf("%w: %v", ErrInstallActionFailed, err)
	}
	s.logger.Infow("installer_done", "software", d.Name)
	return domain.InstallOutcomeInstalled, nil
}

// PlanInstall maps an artifact to its install command. Archives and disk
// images are surfaced to the user instead of being executed.
func PlanInstall(d domain.SoftwareDescriptor, artifactPath, goos string) InstallPlan {
	lower := strings.ToLower(artifactPath)
	interactive := d.InstallMode == domain.InstallModeInteractive
	args := d.InstallArgs

	switch {
	case strings.HasSuffix(lower, ".msi") && goos == "windows":
		if interactive {
			return InstallPlan{Action: ActionRun, Command: "msiexec", Args: []string{"/i", artifactPath}}
		}
		if len(args) == 0 {
			args = []string{"/qn", "/norestart"}
		}
		return InstallPlan{Action: ActionRun, Command: "msiexec", Args: append([]string{"/i", artifactPath}, args...), Wait: true}

	case strings.HasSuffix(lower, ".exe") && goos == "windows":
		if interactive {
			return InstallPlan{Action: ActionRun, Command: artifactPath}
		}
		if len(args) == 0 {
			args = []string{"/S"}
		}
		return InstallPlan{Action: ActionRun, Command: artifactPath, Args: args, Wait: true}

	case (strings.HasSuffix(lower, ".sh") || strings.HasSuffix(lower, ".run")) && goos != "windows":
		return InstallPlan{Action: ActionRun, Command: "bash", Args: append([]string{artifactPath}, args...), Wait: !interactive}

	case strings.HasSuffix(lower, ".deb") && goos == "linux":
		return InstallPlan{Action: ActionRun, Command: "dpkg", Args: []string{"-i", artifactPath}, Wait: true}

	case strings.HasSuffix(lower, ".rpm") && goos == "linux":
		return InstallPlan{Action: ActionRun, Command: "rpm", Args: []string{"-i", artifactPath}, Wait: true}

	case strings.HasSuffix(lower, ".pkg") && goos == "darwin":
		return InstallPlan{Action: ActionRun, Command: "installer", Args: []string{"-pkg", artifactPath, "-target", "/"}, Wait: true}
	}

	return InstallPlan{Action: ActionSurface, Command: filepath.Dir(artifactPath)}
}
