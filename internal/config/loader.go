package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Logger       LoggerConfig       `mapstructure:"logger"`
	Catalog      CatalogConfig      `mapstructure:"catalog"`
	Provisioning ProvisioningConfig `mapstructure:"provisioning"`
	Detection    DetectionConfig    `mapstructure:"detection"`
	Sources      SourcesConfig      `mapstructure:"sources"`
	Kafka        KafkaConfig        `mapstructure:"kafka"`
	Features     FeaturesConfig     `mapstructure:"features"`
	Auth         AuthConfig         `mapstructure:"auth"`
}

type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

type LoggerConfig struct {
	Level            string   `mapstructure:"level"`
	Encoding         string   `mapstructure:"encoding"`
	OutputPaths      []string `mapstructure:"output_paths"`
	ErrorOutputPaths []string `mapstructure:"error_output_paths"`
	FilePath         string   `mapstructure:"file_path"`
}

// CatalogConfig points at the static software descriptor file.
type CatalogConfig struct {
	Path string `mapstructure:"path"`
}

type ProvisioningConfig struct {
	DownloadsDir      string        `mapstructure:"downloads_dir"`
	ChunkSize         int           `mapstructure:"chunk_size"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	InstallTimeout    time.Duration `mapstructure:"install_timeout"`
	ProgressRetention time.Duration `mapstructure:"progress_retention"`
	RunInstallers     bool          `mapstructure:"run_installers"`
}

type DetectionConfig struct {
	ProbeTimeout  time.Duration `mapstructure:"probe_timeout"`
	CommandPolicy string        `mapstructure:"command_policy"`
	// CheckWorkers bounds concurrent probes in the startup sweep.
	CheckWorkers int `mapstructure:"check_workers"`
	// StateMaxAge lets install requests reuse a recent result instead of
	// probing again. Zero always probes.
	StateMaxAge time.Duration `mapstructure:"state_max_age"`
}

type SourcesConfig struct {
	S3   S3SourceConfig   `mapstructure:"s3"`
	GCS  GCSSourceConfig  `mapstructure:"gcs"`
	SFTP SFTPSourceConfig `mapstructure:"sftp"`
}

type S3SourceConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Region   string `mapstructure:"region"`
	Endpoint string `mapstructure:"endpoint"`
}

type GCSSourceConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	CredentialsFile string `mapstructure:"credentials_file"`
}

type SFTPSourceConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	User       string        `mapstructure:"user"`
	Password   string        `mapstructure:"password"`
	PrivateKey string        `mapstructure:"private_key"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

type KafkaConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type FeaturesConfig struct {
	RequestIDHeader      string `mapstructure:"request_id_header"`
	EnableRequestLogging bool   `mapstructure:"enable_request_logging"`
}

type AuthConfig struct {
	AdminAPIKey    string   `mapstructure:"admin_api_key"`
	AgentToken     string   `mapstructure:"agent_token"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)

	v.SetDefault("database.port", 5432)
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.conn_max_lifetime", time.Hour)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.encoding", "console")

	v.SetDefault("catalog.path", "config/softwares.yaml")

	v.SetDefault("provisioning.downloads_dir", "downloads")
	v.SetDefault("provisioning.chunk_size", 64*1024)
	v.SetDefault("provisioning.idle_timeout", 60*time.Second)
	v.SetDefault("provisioning.install_timeout", 30*time.Minute)
	v.SetDefault("provisioning.progress_retention", 30*time.Minute)
	v.SetDefault("provisioning.run_installers", true)

	v.SetDefault("detection.probe_timeout", 5*time.Second)
	v.SetDefault("detection.command_policy", "strict")
	v.SetDefault("detection.check_workers", 4)
	v.SetDefault("detection.state_max_age", 30*time.Second)

	v.SetDefault("sources.sftp.timeout", 30*time.Second)

	v.SetDefault("kafka.topic", "lab-check-reports")

	v.SetDefault("features.request_id_header", "X-Request-ID")
}

func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	v.SetEnvPrefix("LABASSIST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}
