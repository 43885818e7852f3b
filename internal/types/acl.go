package types

// ACL directions in the northbound schema. Policy ingress filters traffic
// delivered to the port (to-lport), egress filters traffic it sends.
const (
	ACLDirectionToLport   = "to-lport"
	ACLDirectionFromLport = "from-lport"
)

// ACL actions and priorities.
const (
	ACLActionAllow        = "allow"
	ACLActionAllowRelated = "allow-related"
	ACLActionDrop         = "drop"

	ACLPriorityAllow = 1002
	ACLPriorityDrop  = 1001
)

// External-id keys correlating northbound rows back to policy objects.
const (
	NetworkNameExtIDKey = "neutron:network_name"
	PortNameExtIDKey    = "neutron:port_name"
	LportExtIDKey       = "neutron:lport"
	SGRuleExtIDKey      = "neutron:security_group_rule_id"
)

// ACL is one compiled access-control entry. It has no lifecycle of its
// own: it exists exactly as long as the current rule set implies it.
type ACL struct {
	Switch      string
	Port        string
	Direction   string
	Priority    int
	Action      string
	Match       string
	Log         bool
	ExternalIDs map[string]string
}

// Key identifies an ACL within its switch. The northbound database keeps
// at most one entry per key.
type ACLKey struct {
	Port      string
	Direction string
	Match     string
}

// Key .
func (a ACL) Key() ACLKey {
	return ACLKey{Port: a.Port, Direction: a.Direction, Match: a.Match}
}

// SameEntry reports whether two ACLs describe the same northbound row,
// ignoring external-id bookkeeping.
func (a ACL) SameEntry(b ACL) bool {
	return a.Switch == b.Switch &&
		a.Port == b.Port &&
		a.Direction == b.Direction &&
		a.Priority == b.Priority &&
		a.Action == b.Action &&
		a.Match == b.Match
}
