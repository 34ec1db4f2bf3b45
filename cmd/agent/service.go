package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/kardianos/service"
	"github.com/spf13/cobra"
)

// program runs the check loop under the platform service manager.
type program struct {
	cancel context.CancelFunc
	done   chan struct{}
}

func (p *program) Start(s service.Service) error {
	a, err := newAgent(true)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan struct{})

	go func() {
		defer close(p.done)
		defer a.close()
		if err := a.run(ctx); err != nil {
			a.log.Errorw("agent_run_failed", "error", err)
		}
	}()
	return nil
}

func (p *program) Stop(s service.Service) error {
	if p.cancel != nil {
		p.cancel()
		<-p.done
	}
	return nil
}

func newService() (service.Service, error) {
	args := []string{"service", "run"}
	if cfgFile != "" {
		abs, err := filepath.Abs(cfgFile)
		if err != nil {
			return nil, err
		}
		args = append(args, "--config", abs)
	}
	svcConfig := &service.Config{
		Name:        "LabAssistAgent",
		DisplayName: "LabAssist Agent",
		Description: "Checks installed lab software and reports it to the LabAssist collector",
		Arguments:   args,
	}
	return service.New(&program{}, svcConfig)
}

func newServiceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "service",
		Short: "Manage the agent as a system service",
	}

	actions := []struct {
		use, short, done string
		fn               func(service.Service) error
	}{
		{"install", "Register the agent with the service manager", "Service successfully installed", service.Service.Install},
		{"uninstall", "Remove the agent service", "Service successfully uninstalled", service.Service.Uninstall},
		{"start", "Start the agent service", "Service successfully started", service.Service.Start},
		{"stop", "Stop the agent service", "Service successfully stopped", service.Service.Stop},
	}
	for _, a := range actions {
		cmd.AddCommand(&cobra.Command{
			Use:   a.use,
			Short: a.short,
			RunE: func(cmd *cobra.Command, args []string) error {
				s, err := newService()
				if err != nil {
					return err
				}
				if err := a.fn(s); err != nil {
					return fmt.Errorf("%s service: %w", a.use, err)
				}
				fmt.Println(a.done)
				return nil
			},
		})
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "run",
		Short: "Run under the service manager (or interactively)",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newService()
			if err != nil {
				return err
			}
			return s.Run()
		},
	})
	return cmd
}
