package ovn

import "path/filepath"

// SwitchName maps a policy network id to its logical switch name. The
// mapping is deterministic so the switch never needs a lookup table.
func SwitchName(networkID string) string {
	return "neutron-" + networkID
}

// LocalnetPortName names the provider-network access port of a switch.
func LocalnetPortName(networkID string) string {
	return "provnet-" + networkID
}

// VhostSockPath is the vhost-user socket path handed out in vif details.
func VhostSockPath(sockDir, portID string) string {
	return filepath.Join(sockDir, "vhu"+portID)
}
