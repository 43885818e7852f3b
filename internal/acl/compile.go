package acl

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/samber/lo"

	"github.com/paperandsoap/networking-ovn/internal/ovn"
	"github.com/paperandsoap/networking-ovn/internal/types"
	"github.com/paperandsoap/networking-ovn/pkg/terrors"
)

// aclDirection opens the match with the port predicate. Policy ingress
// filters what the switch delivers to the port (outport), egress what the
// port sends into the switch (inport). The returned remote portdir is the
// opposite end, used by remote-group expansion.
func aclDirection(r *types.SecurityGroupRule, port *types.Port) (match, remotePortdir string) {
	if r.Direction == types.DirectionIngress {
		return fmt.Sprintf("outport == %q", port.ID), "inport"
	}
	return fmt.Sprintf("inport == %q", port.ID), "outport"
}

func aclEthertype(r *types.SecurityGroupRule) (match, ipVersion, icmp string) {
	switch r.Ethertype {
	case types.EthertypeIPv4:
		return " && ip4", "ip4", "icmp4"
	case types.EthertypeIPv6:
		return " && ip6", "ip6", "icmp6"
	}
	return "", "", ""
}

func aclRemoteIPPrefix(r *types.SecurityGroupRule, ipVersion string) string {
	if r.RemoteIPPrefix == "" {
		return ""
	}
	srcOrDst := "dst"
	if r.Direction == types.DirectionIngress {
		srcOrDst = "src"
	}
	return fmt.Sprintf(" && %s.%s == %s", ipVersion, srcOrDst, r.RemoteIPPrefix)
}

// aclProtocolAndPorts closes the match with the protocol predicate. A port
// range without a protocol, or an unknown protocol, is contradictory input
// and fails the whole operation; rules are validated upstream, so hitting
// this means the policy store and the driver disagree.
func aclProtocolAndPorts(r *types.SecurityGroupRule, icmp string) (string, error) {
	var protocol, portMatch string
	switch r.Protocol {
	case types.ProtocolTCP, types.ProtocolUDP:
		protocol = r.Protocol
		portMatch = protocol + ".dst"
	case types.ProtocolICMP, types.ProtocolICMPv6, types.ProtocolIPv6ICMP:
		protocol = icmp
		portMatch = protocol + ".type"
	case "":
		if r.PortRangeMin > 0 || r.PortRangeMax > 0 {
			return "", errors.Wrapf(terrors.ErrInvalidInput,
				"rule %s has a port range but no protocol", r.ID)
		}
		return "", nil
	default:
		return "", errors.Wrapf(terrors.ErrUnsupportedProtocol, "rule %s protocol %q", r.ID, r.Protocol)
	}

	match := " && " + protocol
	// 0 or -1 bounds mean the rule does not constrain that end.
	if r.PortRangeMin > 0 {
		match += fmt.Sprintf(" && %s >= %d", portMatch, r.PortRangeMin)
	}
	if r.PortRangeMax > 0 {
		match += fmt.Sprintf(" && %s <= %d", portMatch, r.PortRangeMax)
	}
	return match, nil
}

func ipVersionNumber(ipVersion string) int {
	if ipVersion == "ip6" {
		return 6
	}
	return 4
}

// remoteGroupMatch expands a remote-group reference into a disjunction of
// the current member addresses, excluding the port being compiled. The
// second return is true when the peer set is empty: the rule can never
// match right now and must yield no ACL at all.
func remoteGroupMatch(ctx context.Context, c *Caches, r *types.SecurityGroupRule,
	port *types.Port, ipVersion string) (string, bool, error) {
	if r.RemoteGroupID == "" {
		return "", false, nil
	}

	peers, err := c.PortsBySecurityGroup(ctx, r.RemoteGroupID)
	if err != nil {
		return "", false, err
	}
	peers = lo.Filter(peers, func(p *types.Port, _ int) bool { return p.ID != port.ID })
	if len(peers) == 0 {
		return "", true, nil
	}
	// Peer order must be stable or recompiling an unchanged group would
	// produce a different match string and a spurious delta.
	sort.Slice(peers, func(i, j int) bool { return peers[i].ID < peers[j].ID })

	srcOrDst := "dst"
	if r.Direction == types.DirectionIngress {
		srcOrDst = "src"
	}

	var terms []string
	for _, peer := range peers {
		for _, fip := range peer.FixedIPs {
			sub, err := c.Subnet(ctx, fip.SubnetID)
			if err != nil {
				return "", false, err
			}
			if sub.IPVersion != ipVersionNumber(ipVersion) {
				continue
			}
			terms = append(terms, fmt.Sprintf("%s.%s == %s", ipVersion, srcOrDst, fip.IPAddress))
		}
	}
	if len(terms) == 0 {
		return "", false, nil
	}
	return fmt.Sprintf(" && (%s)", strings.Join(terms, " || ")), false, nil
}

// RuleACL compiles one security-group rule into its ACL for one port.
// It returns nil when the rule is temporarily void (remote group with no
// peers); membership changes will trigger a recompile later.
func RuleACL(ctx context.Context, c *Caches, port *types.Port,
	r *types.SecurityGroupRule) (*types.ACL, error) {
	match, _ := aclDirection(r, port)
	ethMatch, ipVersion, icmp := aclEthertype(r)
	match += ethMatch
	match += aclRemoteIPPrefix(r, ipVersion)

	groupMatch, void, err := remoteGroupMatch(ctx, c, r, port, ipVersion)
	if err != nil {
		return nil, err
	}
	if void {
		return nil, nil
	}
	match += groupMatch

	protoMatch, err := aclProtocolAndPorts(r, icmp)
	if err != nil {
		return nil, err
	}
	match += protoMatch

	direction := types.ACLDirectionFromLport
	if r.Direction == types.DirectionIngress {
		direction = types.ACLDirectionToLport
	}
	return &types.ACL{
		Switch:    ovn.SwitchName(port.NetworkID),
		Port:      port.ID,
		Direction: direction,
		Priority:  types.ACLPriorityAllow,
		Action:    types.ACLActionAllowRelated,
		Match:     match,
		ExternalIDs: map[string]string{
			types.LportExtIDKey:  port.ID,
			types.SGRuleExtIDKey: r.ID,
		},
	}, nil
}

// DropAllACLs is the default-deny pair every secured port carries.
func DropAllACLs(port *types.Port) []types.ACL {
	swName := ovn.SwitchName(port.NetworkID)
	extIDs := func() map[string]string {
		return map[string]string{types.LportExtIDKey: port.ID}
	}
	return []types.ACL{
		{
			Switch:      swName,
			Port:        port.ID,
			Direction:   types.ACLDirectionFromLport,
			Priority:    types.ACLPriorityDrop,
			Action:      types.ACLActionDrop,
			Match:       fmt.Sprintf("inport == %q && ip", port.ID),
			ExternalIDs: extIDs(),
		},
		{
			Switch:      swName,
			Port:        port.ID,
			Direction:   types.ACLDirectionToLport,
			Priority:    types.ACLPriorityDrop,
			Action:      types.ACLActionDrop,
			Match:       fmt.Sprintf("outport == %q && ip", port.ID),
			ExternalIDs: extIDs(),
		},
	}
}

// DHCPACLs punches the fixed DHCPv4 exception through default-deny for one
// subnet, both the reply path and the client request path. Emitted even
// when the subnet has DHCP disabled; it could be enabled later.
func DHCPACLs(port *types.Port, subnet *types.Subnet) []types.ACL {
	swName := ovn.SwitchName(port.NetworkID)
	extIDs := func() map[string]string {
		return map[string]string{types.LportExtIDKey: port.ID}
	}
	return []types.ACL{
		{
			Switch:    swName,
			Port:      port.ID,
			Direction: types.ACLDirectionToLport,
			Priority:  types.ACLPriorityAllow,
			Action:    types.ACLActionAllow,
			Match: fmt.Sprintf(
				"outport == %q && ip4 && ip4.src == %s && udp && udp.src == 67 && udp.dst == 68",
				port.ID, subnet.CIDR),
			ExternalIDs: extIDs(),
		},
		{
			Switch:    swName,
			Port:      port.ID,
			Direction: types.ACLDirectionFromLport,
			Priority:  types.ACLPriorityAllow,
			Action:    types.ACLActionAllow,
			Match: fmt.Sprintf(
				"inport == %q && ip4 && ip4.dst == {255.255.255.255, %s} && udp && udp.src == 68 && udp.dst == 67",
				port.ID, subnet.CIDR),
			ExternalIDs: extIDs(),
		},
	}
}

// CompilePortACLs produces the complete ACL set implied by current policy
// for one port. The result is a pure function of (port, subnets, rules,
// membership): recompiling from identical inputs yields an identical set,
// and no entry depends on evaluation order. A port with no security groups
// gets no ACLs at all.
func CompilePortACLs(ctx context.Context, c *Caches, port *types.Port) ([]types.ACL, error) {
	if len(port.SecurityGroups) == 0 {
		return nil, nil
	}

	acls := DropAllACLs(port)
	seen := map[types.ACLKey]struct{}{}
	for _, a := range acls {
		seen[a.Key()] = struct{}{}
	}

	// One entry per (port, direction, match); the northbound database
	// accepts no duplicates. Two fixed IPs on one subnet imply the same
	// DHCP pair, so the set is deduplicated as it is built.
	add := func(candidates ...types.ACL) {
		for _, a := range candidates {
			if _, dup := seen[a.Key()]; dup {
				continue
			}
			seen[a.Key()] = struct{}{}
			acls = append(acls, a)
		}
	}

	for _, fip := range port.FixedIPs {
		sub, err := c.Subnet(ctx, fip.SubnetID)
		if err != nil {
			return nil, err
		}
		if sub.IPVersion != 4 {
			continue
		}
		add(DHCPACLs(port, sub)...)
	}

	for _, sgID := range port.SecurityGroups {
		sg, err := c.SecurityGroup(ctx, sgID)
		if err != nil {
			return nil, err
		}
		for _, r := range sg.Rules {
			a, err := RuleACL(ctx, c, port, r)
			if err != nil {
				return nil, err
			}
			if a == nil {
				continue
			}
			add(*a)
		}
	}

	return acls, nil
}
