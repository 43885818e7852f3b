package driver

import (
	"context"
	"slices"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/projecteru2/core/log"

	"github.com/paperandsoap/networking-ovn/internal/acl"
	"github.com/paperandsoap/networking-ovn/internal/ovn"
	"github.com/paperandsoap/networking-ovn/internal/types"
)

// CreatePortPrecommit runs the validations that must reject the policy
// mutation before it becomes durable. No northbound state is touched.
func (d *Driver) CreatePortPrecommit(ctx context.Context, port *types.Port) error {
	_, err := d.validateBindingProfile(ctx, port)
	return err
}

// UpdatePortPrecommit .
func (d *Driver) UpdatePortPrecommit(ctx context.Context, port *types.Port) error {
	_, err := d.validateBindingProfile(ctx, port)
	return err
}

// CreatePort materializes the logical port together with its initial ACL
// set in one transaction, then cascades a refresh to every group the port
// joined: peers with remote-group rules on those groups may need a term
// for the new port's addresses.
func (d *Driver) CreatePort(ctx context.Context, port *types.Port) error {
	logger := log.WithFunc("driver.CreatePort")

	profile, err := d.validateBindingProfile(ctx, port)
	if err != nil {
		return err
	}
	spec := d.portSpec(port, profile)
	d.insertProvisioningBlock(ctx, port)

	caches := acl.NewCaches(d.st)
	txn := d.nb.Transaction()
	txn.CreateLogicalPort(spec)
	acls, err := acl.CompilePortACLs(ctx, caches, port)
	if err != nil {
		return err
	}
	for _, a := range acls {
		txn.AddACL(a)
	}
	if err := d.commit(ctx, txn); err != nil {
		logger.Errorf(ctx, err, "failed to create logical port %s", port.ID)
		return err
	}

	if !port.HasFixedIPs() {
		return nil
	}
	for _, sgID := range port.SecurityGroups {
		if err := d.refreshRemoteSecurityGroup(ctx, caches, sgID, []string{port.ID}); err != nil {
			logger.Errorf(ctx, err, "failed to refresh remote groups of %s after port %s create", sgID, port.ID)
			return err
		}
	}
	return nil
}

// UpdatePort replaces the logical port wholesale, drops all of its ACLs
// and recompiles them fresh in the same transaction, then cascades to the
// groups the port left, the groups it joined and, when its addresses
// changed, the groups it stayed in.
func (d *Driver) UpdatePort(ctx context.Context, current, original *types.Port) error {
	logger := log.WithFunc("driver.UpdatePort")

	profile, err := d.validateBindingProfile(ctx, current)
	if err != nil {
		return err
	}
	spec := d.portSpec(current, profile)

	caches := acl.NewCaches(d.st)
	txn := d.nb.Transaction()
	txn.UpdateLogicalPort(spec)
	// The database elides the writes that change nothing, so a full
	// delete-and-recompile is cheaper than it looks.
	txn.DeleteACLsForPort(ovn.SwitchName(current.NetworkID), current.ID)
	acls, err := acl.CompilePortACLs(ctx, caches, current)
	if err != nil {
		return err
	}
	for _, a := range acls {
		txn.AddACL(a)
	}
	if err := d.commit(ctx, txn); err != nil {
		logger.Errorf(ctx, err, "failed to update logical port %s", current.ID)
		return err
	}

	if !current.HasFixedIPs() && !original.HasFixedIPs() {
		// Without addresses the port cannot appear in any remote-group
		// match, so no peer needs refreshing.
		return nil
	}

	oldSGs := mapset.NewSet(original.SecurityGroups...)
	newSGs := mapset.NewSet(current.SecurityGroups...)
	for sgID := range oldSGs.SymmetricDifference(newSGs).Iter() {
		if err := d.refreshRemoteSecurityGroup(ctx, caches, sgID, []string{current.ID}); err != nil {
			logger.Errorf(ctx, err, "failed to refresh remote groups of %s after port %s update", sgID, current.ID)
			return err
		}
	}

	if slices.Equal(original.FixedIPs, current.FixedIPs) {
		return nil
	}
	// Attached and detached groups are already refreshed; the unchanged
	// ones still reference the old addresses.
	for sgID := range oldSGs.Intersect(newSGs).Iter() {
		if err := d.refreshRemoteSecurityGroup(ctx, caches, sgID, []string{current.ID}); err != nil {
			logger.Errorf(ctx, err, "failed to refresh remote groups of %s after port %s address change", sgID, current.ID)
			return err
		}
	}
	return nil
}

// DeletePort removes the logical port and its ACLs in one transaction,
// then cascades so that peers' remote-group matches drop the gone port's
// addresses.
func (d *Driver) DeletePort(ctx context.Context, port *types.Port) error {
	logger := log.WithFunc("driver.DeletePort")

	swName := ovn.SwitchName(port.NetworkID)
	txn := d.nb.Transaction()
	txn.DeleteLogicalPort(swName, port.ID)
	txn.DeleteACLsForPort(swName, port.ID)
	if err := d.commit(ctx, txn); err != nil {
		logger.Errorf(ctx, err, "failed to delete logical port %s", port.ID)
		return err
	}

	if !port.HasFixedIPs() {
		return nil
	}
	caches := acl.NewCaches(d.st)
	for _, sgID := range port.SecurityGroups {
		if err := d.refreshRemoteSecurityGroup(ctx, caches, sgID, nil); err != nil {
			logger.Errorf(ctx, err, "failed to refresh remote groups of %s after port %s delete", sgID, port.ID)
			return err
		}
	}
	return nil
}
