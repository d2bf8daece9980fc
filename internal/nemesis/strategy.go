package nemesis

import (
	"context"
	"fmt"
	"time"
)

// StrategyKind distinguishes the two dispatch modes.
type StrategyKind int

const (
	// FixedAction invokes one named catalog entry and lets its errors
	// propagate.
	FixedAction StrategyKind = iota
	// AnyAction samples the catalog uniformly and swallows action errors so
	// the scheduling loop survives an unlucky pick.
	AnyAction
)

// Strategy is a named configuration fixing which catalog entry (or "any")
// runs each cycle.
type Strategy struct {
	Name   string
	Kind   StrategyKind
	Action string
}

var (
	StopStartMonkey          = Strategy{Name: "stop-start-monkey", Kind: FixedAction, Action: ActionStopAndStart}
	DrainerMonkey            = Strategy{Name: "drainer-monkey", Kind: FixedAction, Action: ActionDrainAndRestart}
	DecommissionMonkey       = Strategy{Name: "decommission-monkey", Kind: FixedAction, Action: ActionDecommission}
	CorruptThenRepairMonkey  = Strategy{Name: "corrupt-then-repair-monkey", Kind: FixedAction, Action: ActionCorruptThenRepair}
	CorruptThenRebuildMonkey = Strategy{Name: "corrupt-then-rebuild-monkey", Kind: FixedAction, Action: ActionCorruptThenRebuild}
	ChaosMonkey              = Strategy{Name: "chaos-monkey", Kind: AnyAction}
)

// Strategies lists every known variant strategy.
func Strategies() []Strategy {
	return []Strategy{
		StopStartMonkey,
		DrainerMonkey,
		DecommissionMonkey,
		CorruptThenRepairMonkey,
		CorruptThenRebuildMonkey,
		ChaosMonkey,
	}
}

// StrategyByName resolves a strategy from its configured name. Short names
// without the "-monkey" suffix are accepted too.
func StrategyByName(name string) (Strategy, bool) {
	for _, s := range Strategies() {
		if s.Name == name || s.Name == name+"-monkey" {
			return s, true
		}
	}
	return Strategy{}, false
}

// Disrupt performs one top-level disruption under the given strategy. Under
// AnyAction any error from the chosen action is logged with full detail and
// swallowed; under FixedAction errors propagate to the caller. The
// asymmetry is deliberate: only the dynamic mode needs to survive an
// unlucky pick.
//
// Concurrent callers are serialized: a single-shot call issued while the
// scheduling loop is mid-cycle waits its turn.
func (n *Nemesis) Disrupt(ctx context.Context, strategy Strategy) error {
	n.disruptMu.Lock()
	defer n.disruptMu.Unlock()

	switch strategy.Kind {
	case AnyAction:
		name := n.names[n.rng.Intn(len(n.names))]
		if err := n.invoke(ctx, name); err != nil {
			n.logger.Error("disrupt method failed", "action", name, "error", err)
		}
		return nil
	default:
		return n.invoke(ctx, strategy.Action)
	}
}

func (n *Nemesis) invoke(ctx context.Context, name string) error {
	fn, ok := n.registry[name]
	if !ok {
		return fmt.Errorf("unknown disruption action %q", name)
	}
	return n.timed(ctx, name, fn)
}

// timed wraps a catalog entry invoked as a top-level disruption: it logs
// start and elapsed wall-clock time and feeds the registered sinks. The
// duration is reported even when the action fails.
func (n *Nemesis) timed(ctx context.Context, name string, fn actionFunc) (err error) {
	var targetAddr string
	if target := n.Target(); target != nil {
		targetAddr = target.Address()
	}

	n.logger.Debug("disruption start", "action", name, "target", targetAddr)
	start := time.Now()
	defer func() {
		elapsed := time.Since(start)
		n.logger.Debug("disruption finished", "action", name,
			"target", targetAddr, "duration_s", int(elapsed.Seconds()))
		for _, sink := range n.sinks {
			sink.Record(Event{
				Action:   name,
				Target:   targetAddr,
				Start:    start,
				Duration: elapsed,
				Err:      err,
			})
		}
	}()

	err = fn(ctx)
	return err
}
