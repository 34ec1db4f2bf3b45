package source

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/labassist/backend/internal/config"
)

func TestHTTPOpenerDeclaredLength(t *testing.T) {
	payload := strings.Repeat("a", 1000)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "1000")
		io.WriteString(w, payload)
	}))
	defer srv.Close()

	r := NewRegistryFromConfig(config.SourcesConfig{}, "labassist-test")
	art, err := r.Open(context.Background(), srv.URL+"/files/ide-setup.exe")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer art.Body.Close()

	if art.Size != 1000 {
		t.Errorf("size = %d, want 1000", art.Size)
	}
	if art.Name != "ide-setup.exe" {
		t.Errorf("name = %q", art.Name)
	}
	body, _ := io.ReadAll(art.Body)
	if string(body) != payload {
		t.Errorf("body length = %d", len(body))
	}
}

func TestHTTPOpenerUnknownLength(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Disposition", `attachment; filename="tool.msi"`)
		io.WriteString(w, "part one")
		w.(http.Flusher).Flush()
		io.WriteString(w, "part two")
	}))
	defer srv.Close()

	art, err := NewRegistryFromConfig(config.SourcesConfig{}, "").Open(context.Background(), srv.URL+"/download")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer art.Body.Close()
	if art.Size != -1 {
		t.Errorf("size = %d, want -1", art.Size)
	}
	if art.Name != "tool.msi" {
		t.Errorf("name = %q, want tool.msi", art.Name)
	}
}

func TestHTTPOpenerBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	_, err := NewRegistryFromConfig(config.SourcesConfig{}, "").Open(context.Background(), srv.URL+"/missing.exe")
	if !errors.Is(err, ErrBadStatus) {
		t.Fatalf("err = %v, want ErrBadStatus", err)
	}
}

func TestFileOpener(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "setup.sh")
	if err := os.WriteFile(path, []byte("echo hi\n"), 0644); err != nil {
		t.Fatal(err)
	}

	u := url.URL{Scheme: "file", Path: filepath.ToSlash(path)}
	art, err := NewRegistryFromConfig(config.SourcesConfig{}, "").Open(context.Background(), u.String())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer art.Body.Close()
	if art.Size != 8 || art.Name != "setup.sh" {
		t.Errorf("artifact = size %d name %q", art.Size, art.Name)
	}
}

func TestRegistryRejectsUnknownScheme(t *testing.T) {
	r := NewRegistryFromConfig(config.SourcesConfig{}, "")
	if _, err := r.Open(context.Background(), "ftp://host/file.exe"); !errors.Is(err, ErrUnsupportedScheme) {
		t.Errorf("ftp err = %v", err)
	}
	if _, err := r.Open(context.Background(), "s3://bucket/key.exe"); !errors.Is(err, ErrUnsupportedScheme) {
		t.Errorf("s3 should be unsupported when disabled, err = %v", err)
	}
	if _, err := r.Open(context.Background(), "no-scheme.exe"); !errors.Is(err, ErrInvalidURL) {
		t.Errorf("bare err = %v", err)
	}
	if r.Supports("gs://bucket/x") {
		t.Error("gs should not be supported when disabled")
	}
	if !r.Supports("https://example.com/x.exe") {
		t.Error("https should be supported")
	}
}

func TestRegistryEnablesObjectStores(t *testing.T) {
	r := NewRegistryFromConfig(config.SourcesConfig{
		S3:   config.S3SourceConfig{Enabled: true},
		GCS:  config.GCSSourceConfig{Enabled: true},
		SFTP: config.SFTPSourceConfig{Enabled: true},
	}, "")
	for _, raw := range []string{"s3://b/k", "gs://b/o", "sftp://lab@files/share/x.exe"} {
		if !r.Supports(raw) {
			t.Errorf("%s not supported", raw)
		}
	}
	if _, err := r.Open(context.Background(), "s3://bucket-only"); !errors.Is(err, ErrInvalidURL) {
		t.Errorf("s3 without key err = %v", err)
	}
}

func TestIsDirectDownload(t *testing.T) {
	cases := map[string]bool{
		"https://example.com/VSCodeSetup.exe":      true,
		"https://example.com/dl/python-3.12.msi":   true,
		"http://example.com/tool.ZIP":              true,
		"https://example.com/pkg/tool.tar.gz":      true,
		"https://www.python.org/downloads/":        false,
		"https://example.com/download?file=a.exe":  false,
		"s3://bucket/installers/matlab":            true,
		"file:///srv/share/setup":                  true,
		"mailto:admin@example.com":                 false,
	}
	for raw, want := range cases {
		if got := IsDirectDownload(raw); got != want {
			t.Errorf("IsDirectDownload(%q) = %v, want %v", raw, got, want)
		}
	}
}

func TestIdleTimeoutReaderAbortsStuckStream(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()

	r := NewIdleTimeoutReader(pr, 50*time.Millisecond)
	defer r.Close()

	done := make(chan error, 1)
	go func() {
		_, err := r.Read(make([]byte, 16))
		done <- err
	}()

	select {
	case err := <-done:
		if !errors.Is(err, ErrIdleTimeout) {
			t.Fatalf("err = %v, want ErrIdleTimeout", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("read was not aborted")
	}
}

func TestIdleTimeoutReaderPassesData(t *testing.T) {
	r := NewIdleTimeoutReader(io.NopCloser(strings.NewReader("hello")), time.Second)
	defer r.Close()
	b, err := io.ReadAll(r)
	if err != nil || string(b) != "hello" {
		t.Fatalf("ReadAll = %q, %v", b, err)
	}
}
