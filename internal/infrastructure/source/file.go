package source

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"runtime"

	"github.com/labassist/backend/internal/core/ports"
)

// FileOpener serves file:// sources, typically a share mounted on the lab machine.
type FileOpener struct{}

func (FileOpener) Open(_ context.Context, u *url.URL) (*ports.Artifact, error) {
	p := u.Path
	if u.Host != "" && u.Host != "localhost" {
		p = "//" + u.Host + u.Path
	}
	// file:///C:/x arrives as /C:/x.
	if runtime.GOOS == "windows" && len(p) > 2 && p[0] == '/' && p[2] == ':' {
		p = p[1:]
	}
	p = filepath.FromSlash(p)

	f, err := os.Open(p)
	if err != nil {
		return nil, fmt.Errorf("source: open %s: %w", p, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("source: stat %s: %w", p, err)
	}
	if info.IsDir() {
		f.Close()
		return nil, fmt.Errorf("source: %s is a directory", p)
	}
	return &ports.Artifact{Body: f, Size: info.Size(), Name: filepath.Base(p)}, nil
}
