// Package nemesis implements the disruption-scheduling engine: it repeatedly
// selects a live non-seed cluster member, applies a disruptive action to it,
// and re-selects before the next cycle, so an outer harness can observe
// whether the system under test tolerates the disruption.
package nemesis

import (
	"context"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"cluster-nemesis/internal/logging"
)

// Nemesis owns the run lifecycle: wait interval, one disruption per cycle,
// termination check, target re-selection. Top-level disruptions and target
// re-selection are serialized on disruptMu, so the scheduling loop and
// single-shot Disrupt callers may share one instance.
type Nemesis struct {
	cluster Cluster
	assets  AssetResolver
	logger  *logging.Logger
	rng     *rand.Rand
	sinks   []Sink
	daemon  string

	// Registry of user-facing disruption actions, built once at startup.
	// names keeps a stable order for uniform sampling.
	registry map[string]actionFunc
	names    []string

	// disruptMu serializes top-level disruptions and target re-selection;
	// rng is only touched while holding it.
	disruptMu sync.Mutex

	mu     sync.RWMutex
	target Node

	cycles atomic.Uint64
}

type actionFunc func(ctx context.Context) error

// Option configures a Nemesis.
type Option func(*Nemesis)

// WithLogger sets the structured log sink.
func WithLogger(logger *logging.Logger) Option {
	return func(n *Nemesis) { n.logger = logger }
}

// WithAssets sets the resolver for auxiliary scripts shipped to nodes.
func WithAssets(assets AssetResolver) Option {
	return func(n *Nemesis) { n.assets = assets }
}

// WithRand sets the random source used for target and action selection.
func WithRand(rng *rand.Rand) Option {
	return func(n *Nemesis) { n.rng = rng }
}

// WithSink registers an event sink for completed disruptions.
func WithSink(sink Sink) Option {
	return func(n *Nemesis) { n.sinks = append(n.sinks, sink) }
}

// WithDaemonName sets the database process name targeted by kill-daemon.
func WithDaemonName(name string) Option {
	return func(n *Nemesis) { n.daemon = name }
}

// New constructs a Nemesis and performs the initial target selection. It
// fails if the cluster holds no eligible target.
func New(cluster Cluster, opts ...Option) (*Nemesis, error) {
	n := &Nemesis{
		cluster: cluster,
		daemon:  "db",
	}
	for _, opt := range opts {
		opt(n)
	}
	if n.logger == nil {
		n.logger = logging.NewTestLogger()
	}
	n.logger = n.logger.WithComponent("nemesis")
	if n.rng == nil {
		n.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	n.registry = map[string]actionFunc{
		ActionDrainAndRestart:    n.disruptDrainAndRestart,
		ActionStopAndStart:       n.disruptStopAndStart,
		ActionKillDaemon:         n.disruptKillDaemon,
		ActionDecommission:       n.disruptDecommission,
		ActionCorruptThenRepair:  n.disruptCorruptThenRepair,
		ActionCorruptThenRebuild: n.disruptCorruptThenRebuild,
	}
	n.names = []string{
		ActionDrainAndRestart,
		ActionStopAndStart,
		ActionKillDaemon,
		ActionDecommission,
		ActionCorruptThenRepair,
		ActionCorruptThenRebuild,
	}

	if err := n.pickTarget(); err != nil {
		return nil, err
	}

	return n, nil
}

// pickTarget selects the next disruption target uniformly at random among
// non-seed nodes. It must run again after every completed cycle because
// membership may have changed underneath us.
func (n *Nemesis) pickTarget() error {
	n.disruptMu.Lock()
	defer n.disruptMu.Unlock()

	var eligible []Node
	for _, node := range n.cluster.Nodes() {
		if !node.IsSeed() {
			eligible = append(eligible, node)
		}
	}
	if len(eligible) == 0 {
		return ErrNoEligibleTarget
	}

	target := eligible[n.rng.Intn(len(eligible))]
	n.mu.Lock()
	n.target = target
	n.mu.Unlock()

	n.logger.Info("current target", "target", target.Address())
	return nil
}

// Target returns the node selected for the current cycle.
func (n *Nemesis) Target() Node {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.target
}

// CycleCount reports how many disruption cycles have completed.
func (n *Nemesis) CycleCount() uint64 {
	return n.cycles.Load()
}

// Actions lists the user-facing catalog entries available to dynamic
// selection.
func (n *Nemesis) Actions() []string {
	out := make([]string, len(n.names))
	copy(out, n.names)
	return out
}

// Run drives the scheduling loop until ctx is cancelled or an error
// propagates from a fixed-strategy disruption. The interval between cycles
// is given in whole minutes. The loop blocks for the full interval and for
// the full duration of each action; cancellation is observed only at the
// checkpoint after an action returns.
func (n *Nemesis) Run(ctx context.Context, intervalMinutes int, strategy Strategy) error {
	return n.loop(ctx, time.Duration(intervalMinutes)*time.Minute, strategy)
}

func (n *Nemesis) loop(ctx context.Context, interval time.Duration, strategy Strategy) error {
	for {
		time.Sleep(interval)

		if err := n.Disrupt(ctx, strategy); err != nil {
			return err
		}
		n.cycles.Add(1)

		if ctx.Err() != nil {
			n.logger.Info("termination requested, stopping", "cycles", n.cycles.Load())
			return ctx.Err()
		}

		if err := n.pickTarget(); err != nil {
			return err
		}
	}
}
