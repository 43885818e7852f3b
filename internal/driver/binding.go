package driver

import (
	"context"
	"sort"

	"github.com/cockroachdb/errors"
	"github.com/projecteru2/core/log"

	"github.com/paperandsoap/networking-ovn/internal/ovn"
	"github.com/paperandsoap/networking-ovn/internal/types"
	"github.com/paperandsoap/networking-ovn/pkg/terrors"
)

// Binding-profile parameter names.
const (
	profileParentName     = "parent_name"
	profileTag            = "tag"
	profileVtepPhysSwitch = "vtep_physical_switch"
	profileVtepLogSwitch  = "vtep_logical_switch"
)

// bindingProfile is the validated vendor-specific part of a port: either
// a sub-interface (parent_name + tag) or a hardware VTEP gateway binding.
type bindingProfile struct {
	ParentName         string
	Tag                *int
	VtepPhysicalSwitch string
	VtepLogicalSwitch  string
}

type profileParam struct {
	key    string
	isInt  bool
	assign func(p *bindingProfile, v any)
}

var profileParamSets = [][]profileParam{
	{
		{key: profileParentName, assign: func(p *bindingProfile, v any) { p.ParentName = v.(string) }},
		{key: profileTag, isInt: true, assign: func(p *bindingProfile, v any) {
			tag := v.(int)
			p.Tag = &tag
		}},
	},
	{
		{key: profileVtepPhysSwitch, assign: func(p *bindingProfile, v any) { p.VtepPhysicalSwitch = v.(string) }},
		{key: profileVtepLogSwitch, assign: func(p *bindingProfile, v any) { p.VtepLogicalSwitch = v.(string) }},
	},
}

// validateBindingProfile checks the port's binding profile against the
// known parameter sets. Each set is all-or-nothing, with no extra keys
// allowed. This is an invalid-input error surface: failures here must
// reject the policy mutation before any transaction is attempted.
func (d *Driver) validateBindingProfile(ctx context.Context, port *types.Port) (*bindingProfile, error) {
	profile := &bindingProfile{}
	raw := port.BindingProfile
	if len(raw) == 0 {
		return profile, nil
	}

	var matched []profileParam
	for _, set := range profileParamSets {
		present := 0
		for _, param := range set {
			if _, ok := raw[param.key]; ok {
				present++
			}
		}
		if present == 0 {
			continue
		}
		if present != len(set) {
			return nil, errors.Wrapf(terrors.ErrInvalidInput,
				"invalid binding profile of port %s: incomplete parameter set", port.ID)
		}
		if len(raw) != len(set) {
			return nil, errors.Wrapf(terrors.ErrInvalidInput,
				"invalid binding profile of port %s: too many parameters", port.ID)
		}
		matched = set
		break
	}
	if matched == nil {
		// Keys that belong to no known parameter set are another
		// consumer's concern; the profile is treated as empty.
		return profile, nil
	}

	for _, param := range matched {
		v := raw[param.key]
		if param.isInt {
			if _, ok := v.(int); !ok {
				return nil, errors.Wrapf(terrors.ErrInvalidInput,
					"invalid binding profile of port %s: %s must be an int", port.ID, param.key)
			}
		} else if _, ok := v.(string); !ok {
			return nil, errors.Wrapf(terrors.ErrInvalidInput,
				"invalid binding profile of port %s: %s must be a string", port.ID, param.key)
		}
		param.assign(profile, v)
	}

	if profile.ParentName != "" {
		if _, err := d.st.Port(ctx, profile.ParentName); err != nil {
			return nil, errors.Wrapf(terrors.ErrInvalidInput,
				"invalid binding profile of port %s: parent port %s not found", port.ID, profile.ParentName)
		}
	}
	if profile.Tag != nil && (*profile.Tag < 0 || *profile.Tag > 4095) {
		return nil, errors.Wrapf(terrors.ErrInvalidInput,
			"invalid binding profile of port %s: tag %d out of range", port.ID, *profile.Tag)
	}
	return profile, nil
}

// allowedAddresses builds the port-security list: the port's own MAC with
// all of its fixed IPs, plus allowed address pairs. Pairs that reuse the
// port's MAC fold into the main entry so the list holds one entry per MAC.
func allowedAddresses(port *types.Port) []string {
	if !port.PortSecurityEnabled {
		return nil
	}

	addresses := port.MACAddress
	for _, fip := range port.FixedIPs {
		addresses += " " + fip.IPAddress
	}

	allowed := map[string]struct{}{}
	for _, pair := range port.AllowedAddressPairs {
		if pair.MACAddress == port.MACAddress {
			addresses += " " + pair.IPAddress
			continue
		}
		allowed[pair.MACAddress+" "+pair.IPAddress] = struct{}{}
	}
	allowed[addresses] = struct{}{}

	ans := make([]string, 0, len(allowed))
	for addr := range allowed {
		ans = append(ans, addr)
	}
	sort.Strings(ans)
	return ans
}

// portSpec compiles the northbound image of a policy port.
func (d *Driver) portSpec(port *types.Port, profile *bindingProfile) ovn.LogicalPortSpec {
	spec := ovn.LogicalPortSpec{
		Name:        port.ID,
		Switch:      ovn.SwitchName(port.NetworkID),
		ExternalIDs: map[string]string{types.PortNameExtIDKey: port.Name},
		Enabled:     port.AdminStateUp,
	}

	if profile.VtepPhysicalSwitch != "" {
		spec.Type = "vtep"
		spec.Addresses = []string{"unknown"}
		spec.Options = map[string]string{
			profileVtepPhysSwitch: profile.VtepPhysicalSwitch,
			profileVtepLogSwitch:  profile.VtepLogicalSwitch,
		}
		return spec
	}

	addresses := port.MACAddress
	for _, fip := range port.FixedIPs {
		addresses += " " + fip.IPAddress
	}
	spec.Addresses = []string{addresses}
	spec.PortSecurity = allowedAddresses(port)
	if profile.ParentName != "" {
		parent := profile.ParentName
		spec.ParentName = &parent
	}
	spec.Tag = profile.Tag
	return spec
}

// BindingDecision is the vif answer handed back through port binding.
type BindingDecision struct {
	VIFType    string
	VIFDetails map[string]any
}

// BindPort decides how the port attaches to the dataplane. Unsupported
// vnic types are refused with a nil decision.
func (d *Driver) BindPort(ctx context.Context, port *types.Port) *BindingDecision {
	if port.VNICType != "" && port.VNICType != types.VNICNormal {
		log.WithFunc("driver.BindPort").Debugf(ctx,
			"refusing to bind port %s: unsupported vnic_type %s", port.ID, port.VNICType)
		return nil
	}

	if d.cfg.OVN.VIFType == types.VIFTypeVhostUser {
		return &BindingDecision{
			VIFType: types.VIFTypeVhostUser,
			VIFDetails: map[string]any{
				"port_filter":        false,
				"vhostuser_mode":     "client",
				"vhostuser_ovs_plug": true,
				"vhostuser_socket":   ovn.VhostSockPath(d.cfg.OVN.VhostSockDir, port.ID),
			},
		}
	}
	return &BindingDecision{
		VIFType:    types.VIFTypeOVS,
		VIFDetails: map[string]any{"port_filter": true},
	}
}
