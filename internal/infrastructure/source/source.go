package source

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"
	"sync"

	"github.com/labassist/backend/internal/core/ports"
)

var (
	ErrUnsupportedScheme = errors.New("source: unsupported scheme")
	ErrInvalidURL        = errors.New("source: invalid url")
	ErrBadStatus         = errors.New("source: unexpected response status")
)

// Opener fetches one kind of install source.
type Opener interface {
	Open(ctx context.Context, u *url.URL) (*ports.Artifact, error)
}

// Registry dispatches install sources to openers by URL scheme.
type Registry struct {
	mu      sync.RWMutex
	openers map[string]Opener
}

func NewRegistry() *Registry {
	return &Registry{openers: make(map[string]Opener)}
}

func (r *Registry) Register(opener Opener, schemes ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range schemes {
		r.openers[strings.ToLower(s)] = opener
	}
}

func (r *Registry) lookup(scheme string) (Opener, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.openers[strings.ToLower(scheme)]
	return o, ok
}

func (r *Registry) Supports(rawURL string) bool {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Scheme == "" {
		return false
	}
	_, ok := r.lookup(u.Scheme)
	return ok
}

func (r *Registry) Open(ctx context.Context, rawURL string) (*ports.Artifact, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Scheme == "" {
		return nil, fmt.Errorf("%w: missing scheme in %q", ErrInvalidURL, rawURL)
	}
	o, ok := r.lookup(u.Scheme)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedScheme, u.Scheme)
	}
	art, err := o.Open(ctx, u)
	if err != nil {
		return nil, err
	}
	if art.Name == "" {
		art.Name = ArtifactName(u)
	}
	return art, nil
}

// ArtifactName derives a local file name from the URL path.
func ArtifactName(u *url.URL) string {
	name := path.Base(u.Path)
	if name == "." || name == "/" || name == "" {
		return "artifact"
	}
	return name
}

var directExtensions = []string{
	".exe", ".msi", ".zip", ".sh", ".run", ".deb", ".rpm", ".pkg", ".dmg", ".tar.gz", ".tgz", ".appimage",
}

// IsDirectDownload reports whether rawURL points at an installer artifact rather
// than a web page. Object-store and file URLs always count as direct.
func IsDirectDownload(rawURL string) bool {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return false
	}
	switch strings.ToLower(u.Scheme) {
	case "file", "s3", "gs", "sftp":
		return true
	case "http", "https":
		p := strings.ToLower(u.Path)
		for _, ext := range directExtensions {
			if strings.HasSuffix(p, ext) {
				return true
			}
		}
	}
	return false
}
