package communicator

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/labassist/backend/internal/agent/workerpool"
	"github.com/labassist/backend/internal/infrastructure/logger"
)

const (
	DefaultReportTimeout = 6 * time.Second
	reportPath           = "/api/v1/agent/reports"
)

// CheckReport is the body posted to the collector for one detection outcome.
type CheckReport struct {
	Hostname     string     `json:"hostname"`
	Software     string     `json:"software"`
	Status       string     `json:"status"`
	Path         string     `json:"path"`
	Platform     string     `json:"platform,omitempty"`
	AgentVersion string     `json:"agent_version,omitempty"`
	Timestamp    *time.Time `json:"timestamp,omitempty"`
}

type Client struct {
	client  *resty.Client
	timeout time.Duration
	logger  *logger.Logger
}

type ClientConfig struct {
	CollectorURL string
	AgentToken   string
	Timeout      time.Duration
	Version      string
	Logger       *logger.Logger
}

// NewClient builds a collector client. Requests are attempted exactly once.
func NewClient(cfg ClientConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultReportTimeout
	}
	log := cfg.Logger
	if log == nil {
		log = logger.NewNop()
	}

	client := resty.New().
		SetBaseURL(cfg.CollectorURL).
		SetHeader("Content-Type", "application/json").
		SetHeader("User-Agent", fmt.Sprintf("LabAssistAgent/%s", cfg.Version)).
		SetTimeout(timeout).
		SetRetryCount(0)
	if cfg.AgentToken != "" {
		client.SetAuthToken(cfg.AgentToken)
	}

	return &Client{client: client, timeout: timeout, logger: log}
}

// Report posts r once and waits at most the configured timeout.
func (c *Client) Report(ctx context.Context, r CheckReport) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(r).
		Post(reportPath)
	if err != nil {
		return fmt.Errorf("report request failed: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("collector rejected report with code %d: %s", resp.StatusCode(), resp.String())
	}

	c.logger.Debugw("agent_report_sent",
		"software", r.Software,
		"status", r.Status,
		"code", resp.StatusCode(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// Reporter sends reports fire-and-forget: Send returns immediately and the
// outcome is only logged.
type Reporter struct {
	client *Client
	pool   *workerpool.Pool
	logger *logger.Logger
}

func NewReporter(client *Client, pool *workerpool.Pool, log *logger.Logger) *Reporter {
	if log == nil {
		log = logger.NewNop()
	}
	return &Reporter{client: client, pool: pool, logger: log}
}

func (r *Reporter) Send(report CheckReport) {
	ok := r.pool.Submit(func() {
		if err := r.client.Report(context.Background(), report); err != nil {
			r.logger.Warnw("agent_report_dropped", "software", report.Software, "status", report.Status, "error", err)
		}
	})
	if !ok {
		r.logger.Warnw("agent_report_dropped", "software", report.Software, "status", report.Status, "error", "report queue full")
	}
}

// Flush waits for queued reports until ctx is done. The reporter accepts no
// more reports afterwards.
func (r *Reporter) Flush(ctx context.Context) {
	r.pool.Drain(ctx)
}
