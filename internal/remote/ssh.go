package remote

import (
	"context"
	"fmt"
	"net"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"
)

// SSHConfig carries the connection parameters for one target host.
type SSHConfig struct {
	Host    string
	Port    int
	User    string
	KeyFile string
	Timeout time.Duration
}

// SSHExecutor executes shell commands on a remote host over SSH. The
// underlying connection is established lazily and reused; a failed command
// does not tear it down, but a broken connection is re-dialed on the next
// call.
type SSHExecutor struct {
	config SSHConfig

	mu     sync.Mutex
	client *ssh.Client
}

func NewSSHExecutor(config SSHConfig) *SSHExecutor {
	if config.Port == 0 {
		config.Port = 22
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	return &SSHExecutor{config: config}
}

func (e *SSHExecutor) dial() (*ssh.Client, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.client != nil {
		return e.client, nil
	}

	var auth []ssh.AuthMethod
	if e.config.KeyFile != "" {
		keyData, err := os.ReadFile(e.config.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read key file %s: %w", e.config.KeyFile, err)
		}
		signer, err := ssh.ParsePrivateKey(keyData)
		if err != nil {
			return nil, fmt.Errorf("failed to parse private key %s: %w", e.config.KeyFile, err)
		}
		auth = append(auth, ssh.PublicKeys(signer))
	}

	clientConfig := &ssh.ClientConfig{
		User:            e.config.User,
		Auth:            auth,
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         e.config.Timeout,
	}

	addr := net.JoinHostPort(e.config.Host, fmt.Sprintf("%d", e.config.Port))
	client, err := ssh.Dial("tcp", addr, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", addr, err)
	}

	e.client = client
	return client, nil
}

func (e *SSHExecutor) resetClient() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.client != nil {
		e.client.Close()
		e.client = nil
	}
}

// Run executes command on the remote host, capturing combined output and
// wall-clock duration. When ignoreStatus is true a non-zero remote exit
// status is not treated as an error; connection failures always are.
func (e *SSHExecutor) Run(ctx context.Context, command string, ignoreStatus bool) (Result, error) {
	client, err := e.dial()
	if err != nil {
		return Result{Command: command}, err
	}

	session, err := client.NewSession()
	if err != nil {
		// Connection likely went away with the node; re-dial next time.
		e.resetClient()
		return Result{Command: command}, fmt.Errorf("failed to open session on %s: %w", e.config.Host, err)
	}
	defer session.Close()

	type output struct {
		data []byte
		err  error
	}
	done := make(chan output, 1)

	start := time.Now()
	go func() {
		data, err := session.CombinedOutput(command)
		done <- output{data: data, err: err}
	}()

	select {
	case <-ctx.Done():
		// Best effort: closing the session interrupts the remote command.
		session.Close()
		return Result{Command: command, Duration: time.Since(start)}, ctx.Err()
	case out := <-done:
		result := Result{
			Command:  command,
			Duration: time.Since(start),
			Output:   string(out.data),
		}
		if out.err != nil {
			if _, exited := out.err.(*ssh.ExitError); exited && ignoreStatus {
				return result, nil
			}
			return result, fmt.Errorf("command %q failed on %s: %w (output: %s)",
				command, e.config.Host, out.err, strings.TrimSpace(result.Output))
		}
		return result, nil
	}
}

// SendFiles copies a local file to remotePath on the target host by
// streaming it through a remote shell, so no separate file-transfer daemon
// is required on the node.
func (e *SSHExecutor) SendFiles(ctx context.Context, localPath, remotePath string) error {
	data, err := os.ReadFile(localPath)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", localPath, err)
	}

	client, err := e.dial()
	if err != nil {
		return err
	}

	session, err := client.NewSession()
	if err != nil {
		e.resetClient()
		return fmt.Errorf("failed to open session on %s: %w", e.config.Host, err)
	}
	defer session.Close()

	session.Stdin = strings.NewReader(string(data))
	cmd := fmt.Sprintf("cat > %s", remotePath)
	if err := session.Run(cmd); err != nil {
		return fmt.Errorf("failed to write %s on %s: %w", remotePath, e.config.Host, err)
	}

	return nil
}

// Close releases the cached connection.
func (e *SSHExecutor) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.client != nil {
		err := e.client.Close()
		e.client = nil
		return err
	}
	return nil
}
