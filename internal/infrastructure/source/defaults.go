package source

import "github.com/labassist/backend/internal/config"

// NewRegistryFromConfig registers http, https and file sources, plus the
// object-store and sftp sources enabled in cfg.
func NewRegistryFromConfig(cfg config.SourcesConfig, userAgent string) *Registry {
	r := NewRegistry()
	r.Register(NewHTTPOpener(userAgent), "http", "https")
	r.Register(FileOpener{}, "file")
	if cfg.S3.Enabled {
		r.Register(NewS3Opener(cfg.S3.Region, cfg.S3.Endpoint), "s3")
	}
	if cfg.GCS.Enabled {
		r.Register(NewGCSOpener(cfg.GCS.CredentialsFile), "gs")
	}
	if cfg.SFTP.Enabled {
		r.Register(NewSFTPOpener(SFTPConfig{
			User:       cfg.SFTP.User,
			Password:   cfg.SFTP.Password,
			PrivateKey: cfg.SFTP.PrivateKey,
			Timeout:    cfg.SFTP.Timeout,
		}), "sftp")
	}
	return r
}
