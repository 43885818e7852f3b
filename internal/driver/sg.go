package driver

import (
	"context"

	"github.com/projecteru2/core/log"
	"github.com/samber/lo"

	"github.com/paperandsoap/networking-ovn/internal/acl"
	"github.com/paperandsoap/networking-ovn/internal/ovn"
	"github.com/paperandsoap/networking-ovn/internal/types"
)

// OnSecurityGroupUpdated recompiles the complete ACL set of every port in
// the group and lets the backend diff it against what is materialized.
func (d *Driver) OnSecurityGroupUpdated(ctx context.Context, sgID string) error {
	caches := acl.NewCaches(d.st)
	return d.updateACLsForSecurityGroup(ctx, caches, sgID, nil, nil, true)
}

// OnSecurityGroupRuleCreated adds exactly the one ACL the new rule
// implies on each attached port, no comparison needed.
func (d *Driver) OnSecurityGroupRuleCreated(ctx context.Context, rule *types.SecurityGroupRule) error {
	if err := rule.Check(); err != nil {
		return err
	}
	caches := acl.NewCaches(d.st)
	return d.updateACLsForSecurityGroup(ctx, caches, rule.SecurityGroupID, nil, rule, true)
}

// OnSecurityGroupRuleDeleted removes exactly the ACLs the rule implied.
// Fired before the rule leaves the policy store, so it is still readable.
func (d *Driver) OnSecurityGroupRuleDeleted(ctx context.Context, ruleID string) error {
	rule, err := d.st.SecurityGroupRule(ctx, ruleID)
	if err != nil {
		return err
	}
	caches := acl.NewCaches(d.st)
	return d.updateACLsForSecurityGroup(ctx, caches, rule.SecurityGroupID, nil, rule, false)
}

// updateACLsForSecurityGroup is the coordinator's single entry point.
//
// With rule set, this is the targeted path: the rule's own ACL is
// compiled per attached port and the backend adds or removes it directly.
// With rule nil, every attached port's full set is recompiled and the
// backend computes the delta itself, because the caller cannot know which
// materialized entries are affected.
//
// Recompilation order across ports does not matter: each port's set is a
// pure function of current policy, not of prior backend state.
func (d *Driver) updateACLsForSecurityGroup(ctx context.Context, caches *acl.Caches,
	sgID string, excludePorts []string, rule *types.SecurityGroupRule, isAdd bool) error {
	ports, err := caches.PortsBySecurityGroup(ctx, sgID)
	if err != nil {
		return err
	}
	ports = lo.Filter(ports, func(p *types.Port, _ int) bool {
		return !lo.Contains(excludePorts, p.ID)
	})
	if len(ports) == 0 {
		return nil
	}

	// ACLs of one group may span logical switches.
	switches := lo.Uniq(lo.Map(ports, func(p *types.Port, _ int) string {
		return ovn.SwitchName(p.NetworkID)
	}))

	portACLs := map[string][]types.ACL{}
	for _, p := range ports {
		if rule != nil {
			a, err := acl.RuleACL(ctx, caches, p, rule)
			if err != nil {
				return err
			}
			if a == nil {
				// Void right now (remote group with no peers): nothing
				// was ever materialized for it on this port.
				continue
			}
			portACLs[p.ID] = []types.ACL{*a}
			continue
		}

		acls, err := acl.CompilePortACLs(ctx, caches, p)
		if err != nil {
			return err
		}
		portACLs[p.ID] = acls
	}

	txn := d.nb.Transaction()
	txn.UpdateACLs(switches, portACLs, rule == nil, isAdd)
	if err := d.commit(ctx, txn); err != nil {
		d.mCol.outOfSync.Add(1)
		log.WithFunc("driver.updateACLsForSecurityGroup").Errorf(ctx, err,
			"failed to update ACLs for security group %s", sgID)
		return err
	}
	return nil
}

// refreshRemoteSecurityGroup reruns a full recompute for every group that
// references sgID as a remote group. excludePorts names ports already
// handled directly by the triggering event, so their own sets are not
// applied twice.
func (d *Driver) refreshRemoteSecurityGroup(ctx context.Context, caches *acl.Caches,
	sgID string, excludePorts []string) error {
	rules, err := d.st.RulesByRemoteGroup(ctx, sgID)
	if err != nil {
		return err
	}
	referencing := lo.Uniq(lo.Map(rules, func(r *types.SecurityGroupRule, _ int) string {
		return r.SecurityGroupID
	}))
	for _, id := range referencing {
		if err := d.updateACLsForSecurityGroup(ctx, caches, id, excludePorts, nil, true); err != nil {
			return err
		}
	}
	return nil
}
