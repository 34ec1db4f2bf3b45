package source

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/labassist/backend/internal/core/ports"
	"github.com/labassist/backend/internal/infrastructure/remote"
	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
)

type SFTPConfig struct {
	User       string
	Password   string
	PrivateKey string
	Timeout    time.Duration
}

// SFTPOpener serves sftp://[user[:pass]@]host[:port]/path sources, usually the
// lab file server. URL credentials override the configured ones.
type SFTPOpener struct {
	cfg SFTPConfig
}

func NewSFTPOpener(cfg SFTPConfig) *SFTPOpener {
	return &SFTPOpener{cfg: cfg}
}

func (o *SFTPOpener) Open(ctx context.Context, u *url.URL) (*ports.Artifact, error) {
	if u.Host == "" || u.Path == "" {
		return nil, fmt.Errorf("%w: sftp url needs host and path: %s", ErrInvalidURL, u.Redacted())
	}

	sshCfg := remote.SSHConfig{
		Host:       u.Hostname(),
		User:       o.cfg.User,
		Password:   o.cfg.Password,
		PrivateKey: o.cfg.PrivateKey,
		Timeout:    o.cfg.Timeout,
	}
	if p := u.Port(); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("%w: bad port %q", ErrInvalidURL, p)
		}
		sshCfg.Port = port
	}
	if u.User != nil {
		sshCfg.User = u.User.Username()
		if pw, ok := u.User.Password(); ok {
			sshCfg.Password = pw
		}
	}

	conn, err := remote.NewSSHClient(sshCfg).ConnectWithRetry(ctx)
	if err != nil {
		return nil, err
	}
	client, err := sftp.NewClient(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("source: sftp session: %w", err)
	}
	f, err := client.Open(u.Path)
	if err != nil {
		client.Close()
		conn.Close()
		return nil, fmt.Errorf("source: sftp open %s: %w", u.Path, err)
	}

	size := int64(-1)
	if info, err := f.Stat(); err == nil {
		size = info.Size()
	}
	return &ports.Artifact{Body: &sftpBody{File: f, client: client, conn: conn}, Size: size}, nil
}

// sftpBody closes the remote file together with the session it rides on.
type sftpBody struct {
	*sftp.File
	client *sftp.Client
	conn   *ssh.Client
}

func (b *sftpBody) Close() error {
	return errors.Join(b.File.Close(), b.client.Close(), b.conn.Close())
}
