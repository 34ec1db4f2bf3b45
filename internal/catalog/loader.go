package catalog

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/labassist/backend/internal/domain"
	"gopkg.in/yaml.v3"
)

var (
	ErrEmptyName      = errors.New("catalog: entry has no name")
	ErrNoTarget       = errors.New("catalog: entry has neither path nor cmd")
	ErrInvalidMethod  = errors.New("catalog: unknown detection method")
	ErrDuplicateEntry = errors.New("catalog: duplicate name in file")
)

// file mirrors the on-disk layout. JSON is valid YAML, so one decoder covers both.
type file struct {
	Softwares []entry `yaml:"softwares"`
}

type entry struct {
	Name        string   `yaml:"name"`
	Type        string   `yaml:"type"`
	Path        string   `yaml:"path"`
	PathWindows string   `yaml:"path_windows"`
	Cmd         string   `yaml:"cmd"`
	URL         string   `yaml:"url"`
	Platform    string   `yaml:"platform"`
	Detection   string   `yaml:"detection"`
	SilentArgs  []string `yaml:"silent_args"`
	InstallMode string   `yaml:"install_mode"`
	MinVersion  string   `yaml:"min_version"`
	SHA256      string   `yaml:"sha256"`
}

// EntryError ties a rejected entry to its position in the file.
type EntryError struct {
	Index int
	Name  string
	Err   error
}

func (e *EntryError) Error() string {
	return fmt.Sprintf("entry %d (%q): %v", e.Index, e.Name, e.Err)
}

func (e *EntryError) Unwrap() error { return e.Err }

// ReadFile parses a catalog file from disk.
func ReadFile(path string) ([]domain.SoftwareDescriptor, []error, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	return Parse(data)
}

// Parse decodes a catalog document. Malformed entries are returned as
// per-entry errors and skipped; only an undecodable document fails outright.
func Parse(data []byte) ([]domain.SoftwareDescriptor, []error, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	var (
		out     []domain.SoftwareDescriptor
		rejects []error
		seen    = make(map[string]bool, len(f.Softwares))
	)
	for i, e := range f.Softwares {
		d, err := e.descriptor(runtime.GOOS)
		if err == nil && seen[d.Name] {
			err = ErrDuplicateEntry
		}
		if err != nil {
			rejects = append(rejects, &EntryError{Index: i, Name: e.Name, Err: err})
			continue
		}
		seen[d.Name] = true
		out = append(out, d)
	}
	return out, rejects, nil
}

func (e entry) descriptor(goos string) (domain.SoftwareDescriptor, error) {
	d := domain.SoftwareDescriptor{
		Name:        strings.TrimSpace(e.Name),
		Kind:        domain.SoftwareKind(strings.ToLower(strings.TrimSpace(e.Type))),
		Source:      strings.TrimSpace(e.URL),
		Platform:    strings.ToLower(strings.TrimSpace(e.Platform)),
		InstallArgs: e.SilentArgs,
		InstallMode: domain.InstallMode(strings.ToLower(e.InstallMode)),
		MinVersion:  strings.TrimSpace(e.MinVersion),
		SHA256:      strings.ToLower(strings.TrimSpace(e.SHA256)),
	}
	if d.Name == "" {
		return d, ErrEmptyName
	}
	if d.Kind == domain.SoftwareKindPaid {
		d.InstallMode = domain.InstallModeManual
	}

	path := e.pathFor(goos)
	cmd := strings.TrimSpace(e.Cmd)

	if e.Detection != "" {
		d.Method = domain.DetectionMethod(strings.ToLower(e.Detection))
		if !d.Method.Valid() {
			return d, ErrInvalidMethod
		}
		if d.Method == domain.DetectionCommand {
			d.Target = cmd
		} else {
			d.Target = path
		}
		if d.Target == "" {
			return d, ErrNoTarget
		}
		return d, nil
	}

	useCmd := cmd != "" && (d.Kind == domain.SoftwareKindCmd || path == "")
	switch {
	case useCmd:
		d.Method = domain.DetectionCommand
		d.Target = cmd
	case path != "":
		d.Target = path
		d.Method = domain.DetectionPathExists
		if IsGlob(path) {
			d.Method = domain.DetectionPathGlob
		}
	default:
		return d, ErrNoTarget
	}
	return d, nil
}

// pathFor prefers the Windows-specific path on Windows and the generic one elsewhere.
func (e entry) pathFor(goos string) string {
	generic := strings.TrimSpace(e.Path)
	win := strings.TrimSpace(e.PathWindows)
	if goos == "windows" && win != "" {
		return win
	}
	if generic != "" {
		return generic
	}
	return win
}

// IsGlob reports whether p contains shell pattern metacharacters.
func IsGlob(p string) bool {
	return strings.ContainsAny(p, "*?[")
}
