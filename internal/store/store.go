package store

import (
	"context"

	"github.com/paperandsoap/networking-ovn/internal/types"
)

// Store is the read-only policy-store query surface this driver consumes.
// All queries run in an administrative scope; writes happen elsewhere and
// are observed only through lifecycle events.
type Store interface {
	// Port returns one port by id.
	Port(ctx context.Context, id string) (*types.Port, error)
	// Ports returns the ports with the given ids, skipping unknown ids.
	Ports(ctx context.Context, ids []string) ([]*types.Port, error)
	// PortsByNetwork returns every port attached to the network.
	PortsByNetwork(ctx context.Context, networkID string) ([]*types.Port, error)
	// PortsBySecurityGroup returns every port with the group attached.
	PortsBySecurityGroup(ctx context.Context, sgID string) ([]*types.Port, error)

	// SecurityGroup returns the group with its full rule set.
	SecurityGroup(ctx context.Context, id string) (*types.SecurityGroup, error)
	// SecurityGroupRule returns one rule by id.
	SecurityGroupRule(ctx context.Context, id string) (*types.SecurityGroupRule, error)
	// RulesByRemoteGroup returns every rule, across all groups, whose
	// remote_group_id names the given group.
	RulesByRemoteGroup(ctx context.Context, sgID string) ([]*types.SecurityGroupRule, error)

	// Subnet returns one subnet by id.
	Subnet(ctx context.Context, id string) (*types.Subnet, error)

	// QoSPolicyRules returns the rules of a QoS policy.
	QoSPolicyRules(ctx context.Context, policyID string) ([]types.QoSRule, error)
}
