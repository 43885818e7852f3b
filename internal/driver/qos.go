package driver

import (
	"context"

	"github.com/paperandsoap/networking-ovn/internal/types"
)

// updateNetworkQoS pushes the policy's bandwidth limits onto every
// affected port of the network in one transaction. An empty policyID
// clears the options.
func (d *Driver) updateNetworkQoS(ctx context.Context, networkID, policyID string) error {
	var rules []types.QoSRule
	if policyID != "" {
		var err error
		if rules, err = d.st.QoSPolicyRules(ctx, policyID); err != nil {
			return err
		}
	}

	ports, err := d.st.PortsByNetwork(ctx, networkID)
	if err != nil {
		return err
	}

	txn := d.nb.Transaction()
	staged := false
	for _, port := range ports {
		applicable := make([]types.QoSRule, 0, len(rules))
		for _, r := range rules {
			if r.ShouldApplyToPort(port) {
				applicable = append(applicable, r)
			}
		}
		txn.SetLogicalPortOptions(port.ID, types.OVNPortOptions(applicable))
		staged = true
	}
	if !staged {
		return nil
	}
	return d.commit(ctx, txn)
}
