package remote

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// Result captures the outcome of a remotely executed command.
type Result struct {
	Command  string
	Duration time.Duration
	Output   string
}

// LocalExecutor runs commands on the local host through a shell. It serves
// single-host setups and tests; production clusters use the SSH executor.
type LocalExecutor struct {
	// Shell defaults to /bin/sh.
	Shell string
}

func NewLocalExecutor() *LocalExecutor {
	return &LocalExecutor{Shell: "/bin/sh"}
}

// Run executes command and captures its combined output and wall-clock
// duration. When ignoreStatus is true a non-zero exit status is not treated
// as an error; failures to start the process are always reported.
func (e *LocalExecutor) Run(ctx context.Context, command string, ignoreStatus bool) (Result, error) {
	shell := e.Shell
	if shell == "" {
		shell = "/bin/sh"
	}

	start := time.Now()
	cmd := exec.CommandContext(ctx, shell, "-c", command)
	out, err := cmd.CombinedOutput()

	result := Result{
		Command:  command,
		Duration: time.Since(start),
		Output:   string(out),
	}

	if err != nil {
		if _, exited := err.(*exec.ExitError); exited && ignoreStatus {
			return result, nil
		}
		return result, fmt.Errorf("command %q failed: %w (output: %s)", command, err, strings.TrimSpace(result.Output))
	}

	return result, nil
}

// SendFiles copies a local file to a path on the target host.
func (e *LocalExecutor) SendFiles(ctx context.Context, localPath, remotePath string) error {
	src, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", localPath, err)
	}
	defer src.Close()

	if err := os.MkdirAll(filepath.Dir(remotePath), 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(remotePath), err)
	}

	dst, err := os.Create(remotePath)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", remotePath, err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("failed to copy %s to %s: %w", localPath, remotePath, err)
	}

	return nil
}
