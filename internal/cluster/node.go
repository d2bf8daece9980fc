package cluster

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"cluster-nemesis/internal/logging"
	"cluster-nemesis/internal/nemesis"
)

// RemoteNode is one database host reached over a remote executor. It
// implements nemesis.Node.
type RemoteNode struct {
	address string
	seed    bool
	service string
	remoter nemesis.Executor
	logger  *logging.Logger

	probeInterval time.Duration
	upTimeout     time.Duration
	downTimeout   time.Duration
}

var _ nemesis.Node = (*RemoteNode)(nil)

func (n *RemoteNode) Address() string { return n.address }

func (n *RemoteNode) IsSeed() bool { return n.seed }

func (n *RemoteNode) Remoter() nemesis.Executor { return n.remoter }

func (n *RemoteNode) String() string { return n.address }

// Restart restarts the database service and waits for it to report up.
func (n *RemoteNode) Restart(ctx context.Context) error {
	n.logger.Info("restarting database service", "node", n.address)
	cmd := fmt.Sprintf("sudo systemctl restart %s", n.service)
	if _, err := n.remoter.Run(ctx, cmd, false); err != nil {
		return err
	}
	return n.WaitDBUp(ctx)
}

// Destroy forcefully terminates the node. The service is stopped best
// effort; the node may already be half dead when this is called.
func (n *RemoteNode) Destroy(ctx context.Context) error {
	n.logger.Info("destroying node", "node", n.address)
	cmd := fmt.Sprintf("sudo systemctl stop %s", n.service)
	_, _ = n.remoter.Run(ctx, cmd, true)

	if closer, ok := n.remoter.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// WaitDBDown blocks until the database service stops reporting active.
func (n *RemoteNode) WaitDBDown(ctx context.Context) error {
	return n.waitServiceState(ctx, false, n.downTimeout)
}

// WaitDBUp blocks until the database service reports active.
func (n *RemoteNode) WaitDBUp(ctx context.Context) error {
	return n.waitServiceState(ctx, true, n.upTimeout)
}

func (n *RemoteNode) waitServiceState(ctx context.Context, wantUp bool, timeout time.Duration) error {
	state := "down"
	if wantUp {
		state = "up"
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := fmt.Sprintf("systemctl is-active %s", n.service)
	for {
		// An unreachable node counts as down.
		result, err := n.remoter.Run(ctx, cmd, true)
		up := err == nil && strings.TrimSpace(result.Output) == "active"
		if up == wantUp {
			n.logger.Debug("database state reached", "node", n.address, "state", state)
			return nil
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("timed out waiting for database %s on %s: %w", state, n.address, ctx.Err())
		case <-time.After(n.probeInterval):
		}
	}
}
