package types

import (
	"github.com/cockroachdb/errors"

	"github.com/paperandsoap/networking-ovn/pkg/terrors"
)

// Port status values mirrored from the policy framework.
const (
	PortStatusActive = "ACTIVE"
	PortStatusDown   = "DOWN"
)

// VNIC types this driver can bind.
const (
	VNICNormal = "normal"
)

// VIF types pushed back through port binding.
const (
	VIFTypeOVS       = "ovs"
	VIFTypeVhostUser = "vhostuser"
)

// Network is a policy network delivered by a lifecycle event. It maps 1:1
// to a logical switch in the northbound database.
type Network struct {
	ID              string
	Name            string
	PhysicalNetwork string
	SegmentationID  *int
	QoSPolicyID     string
}

// FixedIP is one address assignment of a port.
type FixedIP struct {
	SubnetID  string
	IPAddress string
}

// AddressPair is an extra address allowed through port security.
type AddressPair struct {
	MACAddress string
	IPAddress  string
}

// Port is a policy port delivered by a lifecycle event, fully populated.
type Port struct {
	ID                  string
	NetworkID           string
	Name                string
	MACAddress          string
	FixedIPs            []FixedIP
	AllowedAddressPairs []AddressPair
	SecurityGroups      []string
	AdminStateUp        bool
	PortSecurityEnabled bool
	Status              string
	VNICType            string
	BindingProfile      map[string]any
}

// Check .
func (p *Port) Check() error {
	switch {
	case len(p.ID) < 1:
		return errors.Wrapf(terrors.ErrInvalidValue, "port ID is empty")
	case len(p.NetworkID) < 1:
		return errors.Wrapf(terrors.ErrInvalidValue, "port %s has no network", p.ID)
	case len(p.MACAddress) < 1:
		return errors.Wrapf(terrors.ErrInvalidValue, "port %s has no MAC", p.ID)
	default:
		return nil
	}
}

// HasFixedIPs .
func (p *Port) HasFixedIPs() bool {
	return len(p.FixedIPs) > 0
}

// Subnet is the slice of subnet state the compiler needs.
type Subnet struct {
	ID        string
	NetworkID string
	CIDR      string
	IPVersion int
}
