package main

import (
	"context"
	"fmt"
	"time"

	agentconfig "github.com/labassist/backend/internal/agent/config"
	"github.com/labassist/backend/internal/agent/communicator"
	"github.com/labassist/backend/internal/agent/hostinfo"
	"github.com/labassist/backend/internal/agent/runner"
	"github.com/labassist/backend/internal/agent/workerpool"
	"github.com/labassist/backend/internal/catalog"
	"github.com/labassist/backend/internal/config"
	"github.com/labassist/backend/internal/detect"
	"github.com/labassist/backend/internal/infrastructure/logger"
)

const flushTimeout = 10 * time.Second

// agent holds everything one invocation of the binary needs.
type agent struct {
	cfg      *agentconfig.Config
	log      *logger.Logger
	store    *catalog.Store
	engine   *detect.Engine
	reporter *communicator.Reporter
	runner   *runner.Runner
	host     string
	platform string
}

func newAgent(withReports bool) (*agent, error) {
	cfg, err := agentconfig.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.New(config.LoggerConfig{
		Level:       cfg.LogLevel,
		OutputPaths: []string{"stderr"},
		FilePath:    cfg.LogPath,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	policy, err := detect.ParsePolicy(cfg.CommandPolicy)
	if err != nil {
		return nil, err
	}
	engine := detect.NewEngine(detect.Config{
		ProbeTimeout: cfg.ProbeTimeout,
		Policy:       policy,
		Logger:       log,
	})

	store := catalog.NewStore()
	res, err := store.LoadFile(cfg.CatalogPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}
	for _, r := range res.Rejected {
		log.Warnw("agent_catalog_entry_rejected", "reason", r)
	}

	info := hostinfo.Collect()
	a := &agent{
		cfg:      cfg,
		log:      log,
		store:    store,
		engine:   engine,
		host:     hostinfo.Identity(cfg.HostIdentity, info),
		platform: info.PlatformString(),
	}

	var sender runner.Sender
	if withReports {
		client := communicator.NewClient(communicator.ClientConfig{
			CollectorURL: cfg.CollectorURL,
			AgentToken:   cfg.AgentToken,
			Timeout:      cfg.ReportTimeout,
			Version:      version,
			Logger:       log,
		})
		pool := workerpool.New(cfg.ReportWorkers, cfg.ReportQueue, log)
		a.reporter = communicator.NewReporter(client, pool, log)
		sender = a.reporter
	}

	a.runner = runner.New(runner.Config{
		Store:        store,
		CatalogPath:  cfg.CatalogPath,
		Engine:       engine,
		Sender:       sender,
		HostIdentity: a.host,
		Platform:     a.platform,
		Version:      version,
		Workers:      cfg.CheckWorkers,
		Logger:       log,
	})

	log.Infow("agent_ready",
		"version", version,
		"host", a.host,
		"platform", a.platform,
		"collector", cfg.CollectorURL,
		"catalog_size", store.Len(),
		"reporting", withReports,
	)
	return a, nil
}

// close waits a bounded time for queued reports, then syncs the log.
func (a *agent) close() {
	if a.reporter != nil {
		ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
		a.reporter.Flush(ctx)
		cancel()
	}
	_ = a.log.Sync()
}

func (a *agent) run(ctx context.Context) error {
	return a.runner.Run(ctx, a.cfg.CheckInterval)
}
