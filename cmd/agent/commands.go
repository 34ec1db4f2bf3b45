package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/labassist/backend/internal/config"
	"github.com/labassist/backend/internal/core/ports"
	"github.com/labassist/backend/internal/core/services"
	"github.com/labassist/backend/internal/domain"
	"github.com/labassist/backend/internal/infrastructure/source"
)

var (
	green  = color.New(color.FgGreen).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
)

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func runCheck(parent context.Context) error {
	a, err := newAgent(!noReport)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := signalContext(parent)
	defer cancel()

	states := a.runner.CheckAll(ctx)
	fmt.Printf("%s  %s\n", bold("Host:"), a.host)
	for _, st := range states {
		fmt.Println(formatState(st))
	}
	return nil
}

func formatState(st domain.InstallState) string {
	switch st.Status {
	case domain.InstallStatusInstalled:
		return fmt.Sprintf("  %-28s %s  %s", st.Name, green("Installed"), st.ResolvedPath)
	case domain.InstallStatusNotInstalled:
		line := fmt.Sprintf("  %-28s %s", st.Name, red("Not installed"))
		if st.ProbeError != "" {
			line += "  (" + st.ProbeError + ")"
		}
		return line
	default:
		return fmt.Sprintf("  %-28s %s", st.Name, yellow("Unknown"))
	}
}

func runInstall(parent context.Context, name string) error {
	a, err := newAgent(true)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := signalContext(parent)
	defer cancel()

	tracker := services.NewProgressTracker(services.ProgressTrackerConfig{Logger: a.log})
	installs := services.NewInstallService(services.InstallServiceConfig{
		Catalog:  a.store,
		Detector: a.engine,
		Tracker:  tracker,
		Sources:  source.NewRegistryFromConfig(config.SourcesConfig{}, "labassist-agent/"+version),
		Installer: services.NewInstallerService(services.InstallerServiceConfig{
			Logger:  a.log,
			Enabled: a.cfg.RunInstallers,
		}),
		Logger:       a.log,
		DownloadsDir: a.cfg.DownloadsDir,
		BaseContext:  ctx,
		OnProgress:   printProgress,
	})

	res, err := installs.RequestInstall(ctx, name)
	if err != nil {
		return err
	}

	switch res.Outcome {
	case ports.OutcomeAlreadyInstalled:
		fmt.Printf("%s is already installed\n", bold(name))
		return nil
	case ports.OutcomeManualRequired:
		fmt.Printf("%s: %s\n", bold(name), yellow(res.Message))
		if res.ManualURL != "" {
			fmt.Printf("  %s\n", res.ManualURL)
		}
		return nil
	}

	snap, err := res.Task.Wait(ctx)
	if err != nil {
		_ = installs.Shutdown(context.Background())
		return fmt.Errorf("install interrupted: %w", err)
	}
	fmt.Println()

	if snap.Progress == domain.ProgressFailed {
		return fmt.Errorf("install of %s failed: %s", name, snap.Error)
	}
	fmt.Printf("%s downloaded to %s, installer %s\n", bold(name), snap.DestinationPath, outcomeLabel(snap.InstallOutcome))
	return nil
}

func printProgress(name string, pct int) {
	if pct == domain.ProgressFailed {
		fmt.Printf("\r%s %s", name, red("failed"))
		return
	}
	fmt.Printf("\r%s %3d%%", name, pct)
}

func outcomeLabel(o domain.InstallOutcome) string {
	switch o {
	case domain.InstallOutcomeInstalled, domain.InstallOutcomeLaunched:
		return green(string(o))
	case domain.InstallOutcomeFailed:
		return red(string(o))
	default:
		return yellow(string(o))
	}
}

func runForeground() error {
	a, err := newAgent(true)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := signalContext(context.Background())
	defer cancel()

	fmt.Printf("Starting LabAssist Agent v%s\n", version)
	fmt.Printf("Collector: %s\n", a.cfg.CollectorURL)
	fmt.Printf("Host: %s\n", a.host)
	return a.run(ctx)
}
