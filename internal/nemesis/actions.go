package nemesis

import (
	"context"
	"fmt"
)

// User-facing catalog entries. The two recovery helpers (repair, rebuild)
// are deliberately not part of this set.
const (
	ActionDrainAndRestart    = "drain-and-restart"
	ActionStopAndStart       = "stop-and-start"
	ActionKillDaemon         = "kill-daemon"
	ActionDecommission       = "decommission"
	ActionCorruptThenRepair  = "corrupt-then-repair"
	ActionCorruptThenRebuild = "corrupt-then-rebuild"
)

// Admin CLI invocations issued on cluster nodes.
const (
	drainCommand        = "nodetool -h localhost drain"
	decommissionCommand = "nodetool --host localhost decommission"
	repairCommand       = "nodetool -h localhost repair"
	rebuildCommand      = "nodetool -h localhost rebuild"

	corruptionScript = "break_db.sh"
	remoteScriptPath = "/tmp/break_db.sh"
)

func (n *Nemesis) disruptDrainAndRestart(ctx context.Context) error {
	target := n.Target()
	n.logger.Info("drain node and restart it", "target", target.Address())
	if _, err := target.Remoter().Run(ctx, drainCommand, false); err != nil {
		return err
	}
	return target.Restart(ctx)
}

func (n *Nemesis) disruptStopAndStart(ctx context.Context) error {
	target := n.Target()
	n.logger.Info("stop node then start it again", "target", target.Address())
	return target.Restart(ctx)
}

func (n *Nemesis) disruptKillDaemon(ctx context.Context) error {
	target := n.Target()
	n.logger.Info("kill all database processes", "target", target.Address())

	// The kill may race the process already being gone; its exit status is
	// irrelevant, the liveness waits below decide the outcome.
	killCommand := fmt.Sprintf("sudo pkill -9 %s", n.daemon)
	_, _ = target.Remoter().Run(ctx, killCommand, true)

	if err := target.WaitDBDown(ctx); err != nil {
		return err
	}
	// Wait for the node's services to come back.
	return target.WaitDBUp(ctx)
}

func (n *Nemesis) disruptDecommission(ctx context.Context) error {
	target := n.Target()
	targetAddr := target.Address()
	n.logger.Info("decommission node", "target", targetAddr)

	result, err := target.Remoter().Run(ctx, decommissionCommand, false)
	if err != nil {
		return err
	}
	n.logger.Debug("command finished", "command", result.Command, "duration_s", int(result.Duration.Seconds()))

	verifier := n.pickVerificationNode(target)
	infoList, err := n.cluster.NodeInfoList(ctx, verifier)
	if err != nil {
		return err
	}
	for _, info := range infoList {
		if info.Address == targetAddr {
			return &DecommissionVerificationError{Target: targetAddr, Membership: infoList}
		}
	}

	// Only now that membership no longer shows the target may it leave the
	// in-memory set.
	n.cluster.Remove(target)
	if err := target.Destroy(ctx); err != nil {
		return err
	}

	// Replace the node that was terminated.
	added, err := n.cluster.AddNodes(ctx, 1)
	if err != nil {
		return err
	}
	return n.cluster.WaitForInit(ctx, added)
}

// pickVerificationNode returns a random node distinct from target. Callers
// must ensure the cluster holds at least two nodes.
func (n *Nemesis) pickVerificationNode(target Node) Node {
	nodes := n.cluster.Nodes()
	verifier := nodes[n.rng.Intn(len(nodes))]
	for verifier == target {
		verifier = nodes[n.rng.Intn(len(nodes))]
	}
	return verifier
}

// corruptData ships the corruption script to the target, runs it, then
// forces the database through a kill/restart so it comes up under the
// corrupted state.
func (n *Nemesis) corruptData(ctx context.Context) error {
	target := n.Target()

	if n.assets == nil {
		return fmt.Errorf("no asset resolver configured, cannot ship %s", corruptionScript)
	}
	scriptPath, err := n.assets.Path(corruptionScript)
	if err != nil {
		return err
	}

	remoter := target.Remoter()
	if err := remoter.SendFiles(ctx, scriptPath, remoteScriptPath); err != nil {
		return err
	}
	if _, err := remoter.Run(ctx, "chmod +x "+remoteScriptPath, false); err != nil {
		return err
	}
	if _, err := remoter.Run(ctx, remoteScriptPath, false); err != nil {
		return err
	}

	return n.disruptKillDaemon(ctx)
}

func (n *Nemesis) disruptCorruptThenRepair(ctx context.Context) error {
	n.logger.Info("destroy data then run repair", "target", n.Target().Address())
	if err := n.corruptData(ctx); err != nil {
		return err
	}
	// One-shot attempt to save the node.
	return n.repair(ctx)
}

func (n *Nemesis) disruptCorruptThenRebuild(ctx context.Context) error {
	n.logger.Info("destroy data then run rebuild", "target", n.Target().Address())
	if err := n.corruptData(ctx); err != nil {
		return err
	}
	return n.rebuild(ctx)
}

// repair runs the repair command on the current target only.
func (n *Nemesis) repair(ctx context.Context) error {
	result, err := n.Target().Remoter().Run(ctx, repairCommand, false)
	if err != nil {
		return err
	}
	n.logger.Debug("command finished", "command", result.Command, "duration_s", int(result.Duration.Seconds()))
	return nil
}

// rebuild runs the rebuild command sequentially on every node in the
// cluster.
func (n *Nemesis) rebuild(ctx context.Context) error {
	for _, node := range n.cluster.Nodes() {
		result, err := node.Remoter().Run(ctx, rebuildCommand, false)
		if err != nil {
			return err
		}
		n.logger.Debug("command finished", "node", node.Address(),
			"command", result.Command, "duration_s", int(result.Duration.Seconds()))
	}
	return nil
}
