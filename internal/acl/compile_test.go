package acl

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/paperandsoap/networking-ovn/internal/store"
	"github.com/paperandsoap/networking-ovn/internal/types"
	"github.com/paperandsoap/networking-ovn/pkg/terrors"
)

func newScenario() *store.MemStore {
	st := store.NewMemStore()
	st.PutSubnet(&types.Subnet{ID: "sub-v4", NetworkID: "net-1", CIDR: "10.0.0.0/24", IPVersion: 4})
	st.PutSubnet(&types.Subnet{ID: "sub-v6", NetworkID: "net-1", CIDR: "fd00::/64", IPVersion: 6})
	return st
}

func webPort(groups ...string) *types.Port {
	return &types.Port{
		ID:         "port-web",
		NetworkID:  "net-1",
		MACAddress: "aa:bb:cc:00:00:01",
		FixedIPs: []types.FixedIP{
			{SubnetID: "sub-v4", IPAddress: "10.0.0.5"},
		},
		SecurityGroups:      groups,
		PortSecurityEnabled: true,
		AdminStateUp:        true,
	}
}

func matches(acls []types.ACL) []string {
	ans := make([]string, 0, len(acls))
	for _, a := range acls {
		ans = append(ans, a.Match)
	}
	return ans
}

func TestCompileNoSecurityGroups(t *testing.T) {
	st := newScenario()
	port := webPort()

	acls, err := CompilePortACLs(context.Background(), NewCaches(st), port)
	assert.Nil(t, err)
	assert.Empty(t, acls)
}

func TestCompileWebPort(t *testing.T) {
	st := newScenario()
	st.PutSecurityGroup(&types.SecurityGroup{
		ID: "sg-web",
		Rules: []*types.SecurityGroupRule{
			{
				ID:              "rule-http",
				SecurityGroupID: "sg-web",
				Direction:       types.DirectionIngress,
				Ethertype:       types.EthertypeIPv4,
				Protocol:        types.ProtocolTCP,
				PortRangeMin:    80,
				PortRangeMax:    80,
			},
		},
	})
	port := webPort("sg-web")
	st.PutPort(port)

	acls, err := CompilePortACLs(context.Background(), NewCaches(st), port)
	assert.Nil(t, err)
	// drop pair + DHCP pair + one rule ACL
	assert.Len(t, acls, 5)

	got := matches(acls)
	assert.Contains(t, got, `inport == "port-web" && ip`)
	assert.Contains(t, got, `outport == "port-web" && ip`)
	assert.Contains(t, got,
		`outport == "port-web" && ip4 && ip4.src == 10.0.0.0/24 && udp && udp.src == 67 && udp.dst == 68`)
	assert.Contains(t, got,
		`inport == "port-web" && ip4 && ip4.dst == {255.255.255.255, 10.0.0.0/24} && udp && udp.src == 68 && udp.dst == 67`)
	assert.Contains(t, got,
		`outport == "port-web" && ip4 && tcp && tcp.dst >= 80 && tcp.dst <= 80`)

	for _, a := range acls {
		assert.Equal(t, "neutron-net-1", a.Switch)
		assert.Equal(t, "port-web", a.ExternalIDs[types.LportExtIDKey])
		switch a.Priority {
		case types.ACLPriorityDrop:
			assert.Equal(t, types.ACLActionDrop, a.Action)
		case types.ACLPriorityAllow:
			assert.NotEqual(t, types.ACLActionDrop, a.Action)
		default:
			t.Fatalf("unexpected priority %d", a.Priority)
		}
	}

	rule, err := st.SecurityGroupRule(context.Background(), "rule-http")
	assert.Nil(t, err)
	single, err := RuleACL(context.Background(), NewCaches(st), port, rule)
	assert.Nil(t, err)
	assert.Equal(t, "rule-http", single.ExternalIDs[types.SGRuleExtIDKey])
	assert.Equal(t, types.ACLDirectionToLport, single.Direction)
	assert.Equal(t, types.ACLActionAllowRelated, single.Action)
}

func TestCompileIsDeterministic(t *testing.T) {
	st := newScenario()
	st.PutSecurityGroup(&types.SecurityGroup{
		ID: "sg-web",
		Rules: []*types.SecurityGroupRule{
			{ID: "r1", SecurityGroupID: "sg-web", Direction: types.DirectionIngress, Ethertype: types.EthertypeIPv4},
			{ID: "r2", SecurityGroupID: "sg-web", Direction: types.DirectionEgress, Ethertype: types.EthertypeIPv6},
		},
	})
	port := webPort("sg-web")
	st.PutPort(port)

	first, err := CompilePortACLs(context.Background(), NewCaches(st), port)
	assert.Nil(t, err)
	second, err := CompilePortACLs(context.Background(), NewCaches(st), port)
	assert.Nil(t, err)
	assert.Equal(t, first, second)
}

func TestCompileDedupsSharedSubnet(t *testing.T) {
	st := newScenario()
	st.PutSecurityGroup(&types.SecurityGroup{ID: "sg-empty"})
	port := webPort("sg-empty")
	port.FixedIPs = append(port.FixedIPs, types.FixedIP{SubnetID: "sub-v4", IPAddress: "10.0.0.6"})
	st.PutPort(port)

	acls, err := CompilePortACLs(context.Background(), NewCaches(st), port)
	assert.Nil(t, err)
	// Two addresses on one subnet still yield a single DHCP pair.
	assert.Len(t, acls, 4)

	keys := map[types.ACLKey]struct{}{}
	for _, a := range acls {
		_, dup := keys[a.Key()]
		assert.False(t, dup, "duplicate ACL %+v", a.Key())
		keys[a.Key()] = struct{}{}
	}
}

func TestRuleACLRemoteIPPrefix(t *testing.T) {
	st := newScenario()
	port := webPort()
	rule := &types.SecurityGroupRule{
		ID:             "rule-ssh",
		Direction:      types.DirectionEgress,
		Ethertype:      types.EthertypeIPv4,
		Protocol:       types.ProtocolTCP,
		PortRangeMin:   22,
		PortRangeMax:   22,
		RemoteIPPrefix: "192.168.1.0/24",
	}

	a, err := RuleACL(context.Background(), NewCaches(st), port, rule)
	assert.Nil(t, err)
	assert.Equal(t,
		`inport == "port-web" && ip4 && ip4.dst == 192.168.1.0/24 && tcp && tcp.dst >= 22 && tcp.dst <= 22`,
		a.Match)
	assert.Equal(t, types.ACLDirectionFromLport, a.Direction)
}

func TestRuleACLICMPUsesTypeField(t *testing.T) {
	st := newScenario()
	port := webPort()
	rule := &types.SecurityGroupRule{
		ID:           "rule-ping",
		Direction:    types.DirectionIngress,
		Ethertype:    types.EthertypeIPv4,
		Protocol:     types.ProtocolICMP,
		PortRangeMin: 8,
	}

	a, err := RuleACL(context.Background(), NewCaches(st), port, rule)
	assert.Nil(t, err)
	assert.Equal(t, `outport == "port-web" && ip4 && icmp4 && icmp4.type >= 8`, a.Match)

	rule.Ethertype = types.EthertypeIPv6
	rule.Protocol = types.ProtocolIPv6ICMP
	a, err = RuleACL(context.Background(), NewCaches(st), port, rule)
	assert.Nil(t, err)
	assert.Equal(t, `outport == "port-web" && ip6 && icmp6 && icmp6.type >= 8`, a.Match)
}

func TestRuleACLRemoteGroup(t *testing.T) {
	st := newScenario()
	st.PutSecurityGroup(&types.SecurityGroup{ID: "sg-db"})
	st.PutPort(&types.Port{
		ID:        "port-db-1",
		NetworkID: "net-1",
		FixedIPs: []types.FixedIP{
			{SubnetID: "sub-v4", IPAddress: "10.0.0.10"},
			{SubnetID: "sub-v6", IPAddress: "fd00::10"},
		},
		SecurityGroups: []string{"sg-db"},
	})
	st.PutPort(&types.Port{
		ID:        "port-db-2",
		NetworkID: "net-1",
		FixedIPs: []types.FixedIP{
			{SubnetID: "sub-v4", IPAddress: "10.0.0.11"},
		},
		SecurityGroups: []string{"sg-db"},
	})
	port := webPort()
	rule := &types.SecurityGroupRule{
		ID:            "rule-db",
		Direction:     types.DirectionIngress,
		Ethertype:     types.EthertypeIPv4,
		Protocol:      types.ProtocolTCP,
		PortRangeMin:  5432,
		PortRangeMax:  5432,
		RemoteGroupID: "sg-db",
	}

	a, err := RuleACL(context.Background(), NewCaches(st), port, rule)
	assert.Nil(t, err)
	// The v6 address of port-db-1 is filtered out of an IPv4 rule.
	assert.Equal(t,
		`outport == "port-web" && ip4 && (ip4.src == 10.0.0.10 || ip4.src == 10.0.0.11)`+
			` && tcp && tcp.dst >= 5432 && tcp.dst <= 5432`,
		a.Match)
}

func TestRuleACLRemoteGroupExcludesSelf(t *testing.T) {
	st := newScenario()
	st.PutSecurityGroup(&types.SecurityGroup{ID: "sg-web"})
	port := webPort("sg-web")
	st.PutPort(port)
	rule := &types.SecurityGroupRule{
		ID:            "rule-self",
		Direction:     types.DirectionIngress,
		Ethertype:     types.EthertypeIPv4,
		RemoteGroupID: "sg-web",
	}

	// The port is the group's only member; with itself excluded the peer
	// set is empty and the rule compiles to nothing.
	a, err := RuleACL(context.Background(), NewCaches(st), port, rule)
	assert.Nil(t, err)
	assert.Nil(t, a)

	st.PutPort(&types.Port{
		ID:        "port-web-2",
		NetworkID: "net-1",
		FixedIPs: []types.FixedIP{
			{SubnetID: "sub-v4", IPAddress: "10.0.0.7"},
		},
		SecurityGroups: []string{"sg-web"},
	})
	a, err = RuleACL(context.Background(), NewCaches(st), port, rule)
	assert.Nil(t, err)
	assert.Equal(t, `outport == "port-web" && ip4 && (ip4.src == 10.0.0.7)`, a.Match)
}

func TestRuleACLRemoteGroupNoVersionMatch(t *testing.T) {
	st := newScenario()
	st.PutSecurityGroup(&types.SecurityGroup{ID: "sg-db"})
	st.PutPort(&types.Port{
		ID:        "port-db-1",
		NetworkID: "net-1",
		FixedIPs: []types.FixedIP{
			{SubnetID: "sub-v6", IPAddress: "fd00::10"},
		},
		SecurityGroups: []string{"sg-db"},
	})
	port := webPort()
	rule := &types.SecurityGroupRule{
		ID:            "rule-db",
		Direction:     types.DirectionIngress,
		Ethertype:     types.EthertypeIPv4,
		RemoteGroupID: "sg-db",
	}

	// Peers exist but none carries a v4 address: the disjunction is empty
	// and adds no constraint.
	a, err := RuleACL(context.Background(), NewCaches(st), port, rule)
	assert.Nil(t, err)
	assert.Equal(t, `outport == "port-web" && ip4`, a.Match)
}

func TestRuleACLPortRangeWithoutProtocol(t *testing.T) {
	st := newScenario()
	port := webPort()
	rule := &types.SecurityGroupRule{
		ID:           "rule-bad",
		Direction:    types.DirectionIngress,
		Ethertype:    types.EthertypeIPv4,
		PortRangeMin: 80,
	}

	_, err := RuleACL(context.Background(), NewCaches(st), port, rule)
	assert.True(t, terrors.IsInvalidInputErr(err))
}

func TestRuleACLUnknownProtocol(t *testing.T) {
	st := newScenario()
	port := webPort()
	rule := &types.SecurityGroupRule{
		ID:        "rule-bad",
		Direction: types.DirectionIngress,
		Ethertype: types.EthertypeIPv4,
		Protocol:  "sctp",
	}

	_, err := RuleACL(context.Background(), NewCaches(st), port, rule)
	assert.ErrorIs(t, err, terrors.ErrUnsupportedProtocol)
}
