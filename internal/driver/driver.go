// Package driver translates policy lifecycle events into northbound
// database state: logical switches and ports for networks and ports,
// compiled ACL sets for security groups.
//
// Events for one object arrive one at a time and are handled to
// completion; the driver performs no internal parallelism. Every unit of
// work goes through one atomic northbound transaction. Events fire after
// the policy mutation is already durable, so a rejected transaction here
// cannot roll the policy store back: it is surfaced to the caller and
// counted as an out-of-sync incident, to be healed by the next event
// touching the same object.
package driver

import (
	"context"

	"github.com/projecteru2/core/log"

	"github.com/paperandsoap/networking-ovn/configs"
	"github.com/paperandsoap/networking-ovn/internal/ovn"
	"github.com/paperandsoap/networking-ovn/internal/store"
	"github.com/paperandsoap/networking-ovn/internal/types"
)

// Driver .
type Driver struct {
	cfg  *configs.Config
	st   store.Store
	nb   ovn.Northbound
	gate ProvisioningGate
	mCol *MetricsCollector
}

// New wires the driver with its collaborators. gate may be nil when the
// embedder does no provisioning bookkeeping.
func New(cfg *configs.Config, st store.Store, nb ovn.Northbound, gate ProvisioningGate) *Driver {
	return &Driver{
		cfg:  cfg,
		st:   st,
		nb:   nb,
		gate: gate,
		mCol: &MetricsCollector{},
	}
}

func (d *Driver) commit(ctx context.Context, txn ovn.Transaction) error {
	d.mCol.txnTotal.Add(1)
	if err := txn.Commit(ctx); err != nil {
		d.mCol.txnFailures.Add(1)
		return err
	}
	return nil
}

// CreateNetwork materializes the network's logical switch, plus a
// localnet access port when the network is bound to a provider physnet.
func (d *Driver) CreateNetwork(ctx context.Context, network *types.Network) error {
	logger := log.WithFunc("driver.CreateNetwork")

	txn := d.nb.Transaction()
	txn.CreateLogicalSwitch(ovn.SwitchName(network.ID), map[string]string{
		types.NetworkNameExtIDKey: network.Name,
	})
	if network.PhysicalNetwork != "" {
		txn.CreateLogicalPort(ovn.LogicalPortSpec{
			Name:      ovn.LocalnetPortName(network.ID),
			Switch:    ovn.SwitchName(network.ID),
			Type:      "localnet",
			Addresses: []string{"unknown"},
			Options:   map[string]string{"network_name": network.PhysicalNetwork},
			Tag:       network.SegmentationID,
			Enabled:   true,
		})
	}
	if err := d.commit(ctx, txn); err != nil {
		logger.Errorf(ctx, err, "failed to create logical switch for network %s", network.ID)
		return err
	}
	logger.Debugf(ctx, "created logical switch %s", ovn.SwitchName(network.ID))
	return nil
}

// UpdateNetwork reacts to the changes this driver cares about: display
// name and QoS policy. Everything else is ignored.
func (d *Driver) UpdateNetwork(ctx context.Context, current, original *types.Network) error {
	logger := log.WithFunc("driver.UpdateNetwork")

	if current.Name != original.Name {
		txn := d.nb.Transaction()
		txn.SetLogicalSwitchExternalID(
			ovn.SwitchName(current.ID), types.NetworkNameExtIDKey, current.Name)
		if err := d.commit(ctx, txn); err != nil {
			logger.Errorf(ctx, err, "failed to rename logical switch for network %s", current.ID)
			return err
		}
	}

	if current.QoSPolicyID != original.QoSPolicyID {
		if err := d.updateNetworkQoS(ctx, current.ID, current.QoSPolicyID); err != nil {
			logger.Errorf(ctx, err, "failed to update QoS for network %s", current.ID)
			return err
		}
	}
	return nil
}

// DeleteNetwork removes the logical switch; the database cascades the
// deletion of its ports and ACLs. Deleting an absent switch succeeds.
func (d *Driver) DeleteNetwork(ctx context.Context, network *types.Network) error {
	txn := d.nb.Transaction()
	txn.DeleteLogicalSwitch(ovn.SwitchName(network.ID))
	if err := d.commit(ctx, txn); err != nil {
		log.WithFunc("driver.DeleteNetwork").Errorf(ctx, err,
			"failed to delete logical switch for network %s", network.ID)
		return err
	}
	return nil
}
