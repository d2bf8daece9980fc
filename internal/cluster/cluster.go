// Package cluster provides the concrete collaborators the disruption engine
// consumes: an SSH-reachable database cluster with a spare-node pool backing
// node replacement.
package cluster

import (
	"bufio"
	"context"
	"fmt"
	"strings"
	"sync"

	"cluster-nemesis/internal/config"
	"cluster-nemesis/internal/logging"
	"cluster-nemesis/internal/nemesis"
	"cluster-nemesis/internal/remote"
)

// Membership query issued on a node to list the cluster as that node sees
// it.
const statusCommand = "nodetool -h localhost status"

// ExecutorFactory builds the remote command channel for one host. Tests
// inject fakes through it.
type ExecutorFactory func(host string) nemesis.Executor

// Cluster manages the node inventory of the system under test. It
// implements nemesis.Cluster.
type Cluster struct {
	mu     sync.RWMutex
	nodes  []*RemoteNode
	spares []*RemoteNode

	config config.ClusterConfig
	logger *logging.Logger
}

var _ nemesis.Cluster = (*Cluster)(nil)

// Option configures a Cluster.
type Option func(*options)

type options struct {
	factory ExecutorFactory
}

// WithExecutorFactory overrides how per-node executors are built.
func WithExecutorFactory(factory ExecutorFactory) Option {
	return func(o *options) { o.factory = factory }
}

// New builds the cluster inventory from configuration. By default each node
// gets an SSH executor using the configured credentials.
func New(cfg config.ClusterConfig, logger *logging.Logger, opts ...Option) (*Cluster, error) {
	if len(cfg.Nodes) == 0 {
		return nil, fmt.Errorf("cluster %s has no nodes configured", cfg.Name)
	}

	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.factory == nil {
		o.factory = func(host string) nemesis.Executor {
			return remote.NewSSHExecutor(remote.SSHConfig{
				Host:    host,
				Port:    cfg.SSH.Port,
				User:    cfg.SSH.User,
				KeyFile: cfg.SSH.KeyFile,
				Timeout: cfg.SSH.Timeout,
			})
		}
	}

	c := &Cluster{
		config: cfg,
		logger: logger.WithComponent("cluster"),
	}
	for _, nodeCfg := range cfg.Nodes {
		c.nodes = append(c.nodes, c.newNode(nodeCfg, o.factory))
	}
	for _, nodeCfg := range cfg.SpareNodes {
		c.spares = append(c.spares, c.newNode(nodeCfg, o.factory))
	}

	return c, nil
}

func (c *Cluster) newNode(nodeCfg config.NodeConfig, factory ExecutorFactory) *RemoteNode {
	return &RemoteNode{
		address:       nodeCfg.Address,
		seed:          nodeCfg.Seed,
		service:       c.config.ServiceName,
		remoter:       factory(nodeCfg.Address),
		logger:        c.logger,
		probeInterval: c.config.ProbeInterval,
		upTimeout:     c.config.UpTimeout,
		downTimeout:   c.config.DownTimeout,
	}
}

// Nodes returns the current node set in inventory order.
func (c *Cluster) Nodes() []nemesis.Node {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]nemesis.Node, len(c.nodes))
	for i, node := range c.nodes {
		out[i] = node
	}
	return out
}

// AddNodes draws count replacement nodes from the spare pool, starts their
// database service, and adds them to the inventory. A node enters the
// inventory only once its service started; on failure the unstarted spares
// return to the pool.
func (c *Cluster) AddNodes(ctx context.Context, count int) ([]nemesis.Node, error) {
	c.mu.Lock()
	if count > len(c.spares) {
		available := len(c.spares)
		c.mu.Unlock()
		return nil, fmt.Errorf("cannot add %d nodes, only %d spares available", count, available)
	}
	taken := make([]*RemoteNode, count)
	copy(taken, c.spares[:count])
	c.spares = c.spares[count:]
	c.mu.Unlock()

	var added []nemesis.Node
	for i, node := range taken {
		c.logger.Info("adding replacement node", "node", node.Address())
		cmd := fmt.Sprintf("sudo systemctl start %s", c.config.ServiceName)
		if _, err := node.Remoter().Run(ctx, cmd, false); err != nil {
			c.mu.Lock()
			c.spares = append(append([]*RemoteNode{}, taken[i:]...), c.spares...)
			c.mu.Unlock()
			return added, fmt.Errorf("failed to start %s: %w", node.Address(), err)
		}
		c.mu.Lock()
		c.nodes = append(c.nodes, node)
		c.mu.Unlock()
		added = append(added, node)
	}
	return added, nil
}

// Remove drops a node from the in-memory inventory. The node itself is
// untouched.
func (c *Cluster) Remove(node nemesis.Node) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, candidate := range c.nodes {
		if candidate == node {
			c.nodes = append(c.nodes[:i], c.nodes[i+1:]...)
			return
		}
	}
}

// WaitForInit blocks until every listed node finished initializing.
func (c *Cluster) WaitForInit(ctx context.Context, nodes []nemesis.Node) error {
	for _, node := range nodes {
		initCtx, cancel := context.WithTimeout(ctx, c.config.InitTimeout)
		err := node.WaitDBUp(initCtx)
		cancel()
		if err != nil {
			return fmt.Errorf("node %s did not finish init: %w", node.Address(), err)
		}
	}
	return nil
}

// NodeInfoList reports membership as observed from the given node.
func (c *Cluster) NodeInfoList(ctx context.Context, from nemesis.Node) ([]nemesis.NodeInfo, error) {
	result, err := from.Remoter().Run(ctx, statusCommand, false)
	if err != nil {
		return nil, err
	}
	return parseNodeInfoList(result.Output), nil
}

// parseNodeInfoList extracts identity and address from status output. Only
// member rows are considered: lines whose first field is a two-letter
// state code (e.g. UN, DN) followed by the node address; the last field
// carries the member ID. Anything else is ignored.
func parseNodeInfoList(output string) []nemesis.NodeInfo {
	var infos []nemesis.NodeInfo

	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 3 {
			continue
		}
		if !isStateCode(fields[0]) {
			continue
		}
		infos = append(infos, nemesis.NodeInfo{
			ID:      fields[len(fields)-1],
			Address: fields[1],
		})
	}

	return infos
}

func isStateCode(s string) bool {
	if len(s) != 2 {
		return false
	}
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}
