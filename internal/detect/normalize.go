package detect

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var envRef = regexp.MustCompile(`\$\{(\w+)\}|\$(\w+)|%(\w+)%`)

// NormalizePath strips surrounding quotes, expands environment references
// ($VAR, ${VAR} and %VAR%) and canonicalizes separators for the host OS.
// Unset variables are left as written.
func NormalizePath(raw string) string {
	p := strings.TrimSpace(raw)
	p = strings.Trim(p, `"'`)
	p = strings.TrimSpace(p)
	if p == "" {
		return ""
	}

	p = envRef.ReplaceAllStringFunc(p, func(ref string) string {
		m := envRef.FindStringSubmatch(ref)
		name := m[1] + m[2] + m[3]
		if v, ok := os.LookupEnv(name); ok {
			return v
		}
		return ref
	})

	return filepath.Clean(filepath.FromSlash(p))
}
