package assets

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTestResolver(t *testing.T, overrideDir string) *Resolver {
	t.Helper()
	resolver, err := NewResolver(overrideDir)
	if err != nil {
		t.Fatalf("NewResolver failed: %v", err)
	}
	t.Cleanup(func() { resolver.Close() })
	return resolver
}

func TestEmbeddedScriptIsStaged(t *testing.T) {
	resolver := newTestResolver(t, "")

	path, err := resolver.Path(BreakDBScript)
	if err != nil {
		t.Fatalf("Path failed: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Staged file missing: %v", err)
	}
	if info.Mode().Perm()&0o100 == 0 {
		t.Error("Staged script should be executable")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read staged file: %v", err)
	}
	if !strings.HasPrefix(string(data), "#!/bin/sh") {
		t.Errorf("Staged script does not look like a shell script: %q", string(data[:20]))
	}
}

func TestPathIsStableAcrossCalls(t *testing.T) {
	resolver := newTestResolver(t, "")

	first, err := resolver.Path(BreakDBScript)
	if err != nil {
		t.Fatalf("Path failed: %v", err)
	}
	second, err := resolver.Path(BreakDBScript)
	if err != nil {
		t.Fatalf("Path failed: %v", err)
	}
	if first != second {
		t.Errorf("Expected stable path, got %s then %s", first, second)
	}
}

func TestOverrideDirectoryWins(t *testing.T) {
	overrideDir := t.TempDir()
	custom := filepath.Join(overrideDir, BreakDBScript)
	if err := os.WriteFile(custom, []byte("#!/bin/sh\necho custom\n"), 0o755); err != nil {
		t.Fatalf("Failed to write override script: %v", err)
	}

	resolver := newTestResolver(t, overrideDir)

	path, err := resolver.Path(BreakDBScript)
	if err != nil {
		t.Fatalf("Path failed: %v", err)
	}
	if path != custom {
		t.Errorf("Expected override path %s, got %s", custom, path)
	}
}

func TestOverrideDirectoryFallsBackToEmbedded(t *testing.T) {
	// Override dir exists but does not contain the asset
	resolver := newTestResolver(t, t.TempDir())

	path, err := resolver.Path(BreakDBScript)
	if err != nil {
		t.Fatalf("Path failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("Expected staged embedded asset, got %v", err)
	}
}

func TestUnknownAsset(t *testing.T) {
	resolver := newTestResolver(t, "")

	if _, err := resolver.Path("no-such-script.sh"); err == nil {
		t.Error("Expected error for unknown asset")
	}
}

func TestCloseRemovesStagingDir(t *testing.T) {
	resolver, err := NewResolver("")
	if err != nil {
		t.Fatalf("NewResolver failed: %v", err)
	}

	path, err := resolver.Path(BreakDBScript)
	if err != nil {
		t.Fatalf("Path failed: %v", err)
	}
	if err := resolver.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("Expected staged assets to be removed on Close")
	}
}
