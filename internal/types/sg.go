package types

import (
	"github.com/cockroachdb/errors"

	"github.com/paperandsoap/networking-ovn/pkg/terrors"
)

// Rule directions.
const (
	DirectionIngress = "ingress"
	DirectionEgress  = "egress"
)

// Rule ethertypes.
const (
	EthertypeIPv4 = "IPv4"
	EthertypeIPv6 = "IPv6"
)

// Protocols the match compiler understands.
const (
	ProtocolTCP    = "tcp"
	ProtocolUDP    = "udp"
	ProtocolICMP   = "icmp"
	ProtocolICMPv6 = "icmpv6"
	// ProtocolIPv6ICMP is the policy-framework spelling of ICMPv6.
	ProtocolIPv6ICMP = "ipv6-icmp"
)

// SecurityGroup is a reusable collection of filtering rules. It is never
// materialized in the northbound database; only its compiled ACLs are.
type SecurityGroup struct {
	ID    string
	Name  string
	Rules []*SecurityGroupRule
}

// SecurityGroupRule is immutable once created. Its ID is the stable key
// used to locate rule-derived ACLs during targeted updates.
type SecurityGroupRule struct {
	ID              string
	SecurityGroupID string
	Direction       string
	Ethertype       string
	Protocol        string
	PortRangeMin    int
	PortRangeMax    int
	RemoteIPPrefix  string
	RemoteGroupID   string
}

// Check .
func (r *SecurityGroupRule) Check() error {
	switch {
	case r.Direction != DirectionIngress && r.Direction != DirectionEgress:
		return errors.Wrapf(terrors.ErrInvalidValue, "rule %s direction %q", r.ID, r.Direction)
	case r.Ethertype != EthertypeIPv4 && r.Ethertype != EthertypeIPv6:
		return errors.Wrapf(terrors.ErrInvalidValue, "rule %s ethertype %q", r.ID, r.Ethertype)
	case r.RemoteIPPrefix != "" && r.RemoteGroupID != "":
		return errors.Wrapf(terrors.ErrInvalidValue,
			"rule %s has both remote_ip_prefix and remote_group_id", r.ID)
	default:
		return nil
	}
}
