// Package assets resolves logical names of auxiliary scripts shipped to
// cluster nodes into local file paths. Defaults are embedded in the binary;
// an override directory takes precedence when it contains the named file.
package assets

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
)

//go:embed scripts/*.sh
var scripts embed.FS

// BreakDBScript is the logical name of the data corruption script.
const BreakDBScript = "break_db.sh"

// Resolver maps logical asset names to deployable file paths.
type Resolver struct {
	overrideDir string
	stageDir    string
}

// NewResolver creates a resolver. overrideDir may be empty, in which case
// only the embedded assets are served; embedded assets are staged into a
// temporary directory on first use so callers always receive a real path.
func NewResolver(overrideDir string) (*Resolver, error) {
	stageDir, err := os.MkdirTemp("", "nemesis-assets-")
	if err != nil {
		return nil, fmt.Errorf("failed to create asset staging dir: %w", err)
	}
	return &Resolver{overrideDir: overrideDir, stageDir: stageDir}, nil
}

// Path returns a local filesystem path for the named asset.
func (r *Resolver) Path(name string) (string, error) {
	if r.overrideDir != "" {
		override := filepath.Join(r.overrideDir, name)
		if _, err := os.Stat(override); err == nil {
			return override, nil
		}
	}

	staged := filepath.Join(r.stageDir, name)
	if _, err := os.Stat(staged); err == nil {
		return staged, nil
	}

	data, err := scripts.ReadFile(filepath.Join("scripts", name))
	if err != nil {
		return "", fmt.Errorf("unknown asset %q: %w", name, err)
	}
	if err := os.WriteFile(staged, data, 0o755); err != nil {
		return "", fmt.Errorf("failed to stage asset %q: %w", name, err)
	}

	return staged, nil
}

// Close removes the staging directory.
func (r *Resolver) Close() error {
	return os.RemoveAll(r.stageDir)
}
