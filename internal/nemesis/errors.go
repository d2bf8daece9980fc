package nemesis

import (
	"errors"
	"fmt"
)

// ErrNoEligibleTarget is returned by target selection when the cluster holds
// no non-seed node to disrupt.
var ErrNoEligibleTarget = errors.New("nemesis: no eligible non-seed target in cluster")

// DecommissionVerificationError reports that a decommissioned node is still
// visible in cluster membership. It is an assertion failure: the cluster
// under test did not honor the decommission.
type DecommissionVerificationError struct {
	Target     string
	Membership []NodeInfo
}

func (e *DecommissionVerificationError) Error() string {
	return fmt.Sprintf("decommissioned node %s still appears in cluster membership: %+v", e.Target, e.Membership)
}
