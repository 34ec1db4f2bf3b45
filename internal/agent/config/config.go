package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

var defaultConfigPaths = []string{
	"./agent.yaml",
	"./config/agent.yaml",
	"/etc/labassist/agent.yaml",
}

var ErrConfigNotFound = errors.New("config: file not found in default paths")

type Config struct {
	CollectorURL  string        `yaml:"collector_url"`
	AgentToken    string        `yaml:"agent_token"`
	HostIdentity  string        `yaml:"host_identity"`
	CatalogPath   string        `yaml:"catalog_path"`
	DownloadsDir  string        `yaml:"downloads_dir"`
	LogPath       string        `yaml:"log_path"`
	LogLevel      string        `yaml:"log_level"`
	CheckInterval time.Duration `yaml:"check_interval"`
	ReportTimeout time.Duration `yaml:"report_timeout"`
	ProbeTimeout  time.Duration `yaml:"probe_timeout"`
	CommandPolicy string        `yaml:"command_policy"`
	CheckWorkers  int           `yaml:"check_workers"`
	ReportWorkers int           `yaml:"report_workers"`
	ReportQueue   int           `yaml:"report_queue"`
	RunInstallers bool          `yaml:"run_installers"`
}

// Load reads path, or the first default path that exists when path is empty.
func Load(path string) (*Config, error) {
	configPath := path
	if configPath == "" {
		for _, p := range defaultConfigPaths {
			if _, err := os.Stat(p); err == nil {
				configPath = p
				break
			}
		}
	}
	if configPath == "" {
		return nil, ErrConfigNotFound
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.CatalogPath == "" {
		c.CatalogPath = "softwares.yaml"
	}
	if c.DownloadsDir == "" {
		c.DownloadsDir = "downloads"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.CheckInterval == 0 {
		c.CheckInterval = 10 * time.Minute
	}
	if c.ReportTimeout == 0 {
		c.ReportTimeout = 6 * time.Second
	}
	if c.ProbeTimeout == 0 {
		c.ProbeTimeout = 5 * time.Second
	}
	if c.CommandPolicy == "" {
		c.CommandPolicy = "strict"
	}
	if c.CheckWorkers == 0 {
		c.CheckWorkers = 4
	}
	if c.ReportWorkers == 0 {
		c.ReportWorkers = 4
	}
	if c.ReportQueue == 0 {
		c.ReportQueue = 256
	}
}

func (c *Config) Validate() error {
	if c.CollectorURL == "" {
		return fmt.Errorf("collector_url is required")
	}
	u, err := url.Parse(c.CollectorURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("collector_url must be an http(s) URL, got %q", c.CollectorURL)
	}
	if c.AgentToken == "" {
		return fmt.Errorf("agent_token is required")
	}
	if c.CheckInterval < time.Second {
		return fmt.Errorf("check_interval must be at least 1s")
	}
	return nil
}
