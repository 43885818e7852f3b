package types

import "strconv"

// QoSRuleType is a closed enumeration; the driver supports exactly the
// bandwidth-limit rule kind.
type QoSRuleType int

const (
	// QoSRuleBandwidthLimit .
	QoSRuleBandwidthLimit QoSRuleType = iota
)

// QoSRule is one rule of a QoS policy attached to a network.
type QoSRule struct {
	Type         QoSRuleType
	MaxKbps      int
	MaxBurstKbps int
}

// ShouldApplyToPort reports whether this rule kind applies to the port.
// Bandwidth limits apply to any bindable port.
func (r QoSRule) ShouldApplyToPort(p *Port) bool {
	switch r.Type {
	case QoSRuleBandwidthLimit:
		return true
	default:
		return false
	}
}

// OVNPortOptions folds a policy's rules into logical-port options.
func OVNPortOptions(rules []QoSRule) map[string]string {
	options := map[string]string{}
	for _, r := range rules {
		if r.Type != QoSRuleBandwidthLimit {
			continue
		}
		if r.MaxKbps > 0 {
			options["policing_rate"] = strconv.Itoa(r.MaxKbps)
		}
		if r.MaxBurstKbps > 0 {
			options["policing_burst"] = strconv.Itoa(r.MaxBurstKbps)
		}
	}
	return options
}
