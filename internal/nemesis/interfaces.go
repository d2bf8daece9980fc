package nemesis

import (
	"context"
	"time"

	"cluster-nemesis/internal/remote"
)

// Executor is the remote command channel for one node.
type Executor interface {
	// Run executes a shell command on the node. When ignoreStatus is true a
	// non-zero exit status is not reported as an error.
	Run(ctx context.Context, command string, ignoreStatus bool) (remote.Result, error)
	// SendFiles copies a local file to a path on the node.
	SendFiles(ctx context.Context, localPath, remotePath string) error
}

// Node is one member of the cluster under test. Implementations are expected
// to be pointer-shaped so that node identity comparisons work.
type Node interface {
	Address() string
	IsSeed() bool
	Remoter() Executor
	Restart(ctx context.Context) error
	Destroy(ctx context.Context) error
	WaitDBDown(ctx context.Context) error
	WaitDBUp(ctx context.Context) error
}

// NodeInfo is one row of cluster membership as observed from a node.
type NodeInfo struct {
	ID      string
	Address string
}

// Cluster is the node inventory of the system under test. Mutations are
// requests to the owning harness; the nemesis never manages node lifecycle
// itself.
type Cluster interface {
	Nodes() []Node
	AddNodes(ctx context.Context, count int) ([]Node, error)
	Remove(node Node)
	WaitForInit(ctx context.Context, nodes []Node) error
	// NodeInfoList reports cluster membership as observed from the given node.
	NodeInfoList(ctx context.Context, from Node) ([]NodeInfo, error)
}

// AssetResolver maps a logical script name to a deployable local file path.
type AssetResolver interface {
	Path(name string) (string, error)
}

// Event describes one completed top-level disruption.
type Event struct {
	Action   string
	Target   string
	Start    time.Time
	Duration time.Duration
	Err      error
}

// Sink receives disruption events, e.g. for metrics or a persistent journal.
type Sink interface {
	Record(event Event)
}
