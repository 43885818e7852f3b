package driver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/paperandsoap/networking-ovn/configs"
	"github.com/paperandsoap/networking-ovn/internal/ovn/fake"
	"github.com/paperandsoap/networking-ovn/internal/store"
	"github.com/paperandsoap/networking-ovn/internal/types"
	"github.com/paperandsoap/networking-ovn/pkg/terrors"
)

func newBindingDriver() (*Driver, *store.MemStore) {
	cfg := configs.Conf
	st := store.NewMemStore()
	return New(&cfg, st, fake.New(), nil), st
}

func TestValidateBindingProfile(t *testing.T) {
	d, st := newBindingDriver()
	st.PutPort(&types.Port{ID: "port-parent", NetworkID: "net-1", MACAddress: "aa:bb:cc:00:00:ff"})
	ctx := context.Background()

	tests := []struct {
		name    string
		profile map[string]any
		ok      bool
	}{
		{name: "empty", profile: nil, ok: true},
		{name: "trunk", profile: map[string]any{"parent_name": "port-parent", "tag": 100}, ok: true},
		{name: "vtep", profile: map[string]any{"vtep_physical_switch": "ps1", "vtep_logical_switch": "ls1"}, ok: true},
		{name: "missing tag", profile: map[string]any{"parent_name": "port-parent"}, ok: false},
		{name: "extra key", profile: map[string]any{"parent_name": "port-parent", "tag": 100, "bogus": "x"}, ok: false},
		{name: "mixed sets", profile: map[string]any{"parent_name": "port-parent", "tag": 100, "vtep_physical_switch": "ps1", "vtep_logical_switch": "ls1"}, ok: false},
		// Keys outside every known parameter set are ignored, not rejected.
		{name: "unknown keys only", profile: map[string]any{"bogus": "x"}, ok: true},
		{name: "tag not int", profile: map[string]any{"parent_name": "port-parent", "tag": "100"}, ok: false},
		{name: "tag out of range", profile: map[string]any{"parent_name": "port-parent", "tag": 4096}, ok: false},
		{name: "parent missing", profile: map[string]any{"parent_name": "port-ghost", "tag": 100}, ok: false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			port := &types.Port{ID: "port-x", NetworkID: "net-1", BindingProfile: tc.profile}
			_, err := d.validateBindingProfile(ctx, port)
			if tc.ok {
				assert.Nil(t, err)
				return
			}
			assert.True(t, terrors.IsInvalidInputErr(err), "want invalid input, got %v", err)
		})
	}
}

func TestValidateBindingProfileIgnoresForeignKeys(t *testing.T) {
	d, _ := newBindingDriver()
	port := &types.Port{
		ID:             "port-x",
		NetworkID:      "net-1",
		BindingProfile: map[string]any{"pci_slot": "0000:00:02.0"},
	}
	profile, err := d.validateBindingProfile(context.Background(), port)
	assert.Nil(t, err)
	assert.Equal(t, &bindingProfile{}, profile)
}

func TestPortSpecTrunk(t *testing.T) {
	d, st := newBindingDriver()
	st.PutPort(&types.Port{ID: "port-parent", NetworkID: "net-1", MACAddress: "aa:bb:cc:00:00:ff"})

	port := &types.Port{
		ID:                  "port-sub",
		NetworkID:           "net-1",
		Name:                "sub-if",
		MACAddress:          "aa:bb:cc:00:00:01",
		FixedIPs:            []types.FixedIP{{SubnetID: "sub-v4", IPAddress: "10.0.0.5"}},
		PortSecurityEnabled: true,
		AdminStateUp:        true,
		BindingProfile:      map[string]any{"parent_name": "port-parent", "tag": 100},
	}
	profile, err := d.validateBindingProfile(context.Background(), port)
	assert.Nil(t, err)

	spec := d.portSpec(port, profile)
	assert.Equal(t, "port-sub", spec.Name)
	assert.Equal(t, "neutron-net-1", spec.Switch)
	assert.Equal(t, "sub-if", spec.ExternalIDs[types.PortNameExtIDKey])
	assert.Equal(t, []string{"aa:bb:cc:00:00:01 10.0.0.5"}, spec.Addresses)
	assert.Equal(t, "port-parent", *spec.ParentName)
	assert.Equal(t, 100, *spec.Tag)
}

func TestPortSpecVtep(t *testing.T) {
	d, _ := newBindingDriver()
	port := &types.Port{
		ID:         "port-gw",
		NetworkID:  "net-1",
		MACAddress: "aa:bb:cc:00:00:02",
		BindingProfile: map[string]any{
			"vtep_physical_switch": "ps1",
			"vtep_logical_switch":  "ls1",
		},
	}
	profile, err := d.validateBindingProfile(context.Background(), port)
	assert.Nil(t, err)

	spec := d.portSpec(port, profile)
	assert.Equal(t, "vtep", spec.Type)
	assert.Equal(t, []string{"unknown"}, spec.Addresses)
	assert.Equal(t, "ps1", spec.Options["vtep_physical_switch"])
	assert.Equal(t, "ls1", spec.Options["vtep_logical_switch"])
	assert.Empty(t, spec.PortSecurity)
}

func TestAllowedAddressesMergesSameMAC(t *testing.T) {
	port := &types.Port{
		ID:                  "port-vip",
		NetworkID:           "net-1",
		MACAddress:          "aa:bb:cc:00:00:01",
		PortSecurityEnabled: true,
		FixedIPs:            []types.FixedIP{{SubnetID: "sub-v4", IPAddress: "10.0.0.5"}},
		AllowedAddressPairs: []types.AddressPair{
			{MACAddress: "aa:bb:cc:00:00:01", IPAddress: "10.0.0.100"},
			{MACAddress: "de:ad:be:ef:00:01", IPAddress: "10.0.0.101"},
		},
	}
	assert.Equal(t, []string{
		"aa:bb:cc:00:00:01 10.0.0.5 10.0.0.100",
		"de:ad:be:ef:00:01 10.0.0.101",
	}, allowedAddresses(port))

	port.PortSecurityEnabled = false
	assert.Nil(t, allowedAddresses(port))
}

func TestBindPort(t *testing.T) {
	d, _ := newBindingDriver()
	ctx := context.Background()
	port := &types.Port{ID: "port-web", NetworkID: "net-1", VNICType: types.VNICNormal}

	decision := d.BindPort(ctx, port)
	assert.Equal(t, types.VIFTypeOVS, decision.VIFType)
	assert.Equal(t, true, decision.VIFDetails["port_filter"])

	d.cfg.OVN.VIFType = types.VIFTypeVhostUser
	d.cfg.OVN.VhostSockDir = "/var/run/openvswitch"
	decision = d.BindPort(ctx, port)
	assert.Equal(t, types.VIFTypeVhostUser, decision.VIFType)
	assert.Equal(t, false, decision.VIFDetails["port_filter"])
	assert.Equal(t, "client", decision.VIFDetails["vhostuser_mode"])
	assert.Equal(t, "/var/run/openvswitch/vhuport-web", decision.VIFDetails["vhostuser_socket"])

	port.VNICType = "direct"
	assert.Nil(t, d.BindPort(ctx, port))
}
