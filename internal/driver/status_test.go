package driver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/paperandsoap/networking-ovn/configs"
	"github.com/paperandsoap/networking-ovn/internal/ovn/fake"
	"github.com/paperandsoap/networking-ovn/internal/store"
	"github.com/paperandsoap/networking-ovn/internal/types"
)

type recordingGate struct {
	added     []string
	completed []string
	statuses  map[string]string
}

func (g *recordingGate) AddBlock(_ context.Context, portID string) {
	g.added = append(g.added, portID)
}

func (g *recordingGate) CompleteBlock(_ context.Context, portID string) {
	g.completed = append(g.completed, portID)
}

func (g *recordingGate) SetPortStatus(_ context.Context, portID, status string) {
	if g.statuses == nil {
		g.statuses = map[string]string{}
	}
	g.statuses[portID] = status
}

func TestProvisioningGate(t *testing.T) {
	ctx := context.Background()
	cfg := configs.Conf
	st := store.NewMemStore()
	st.PutSubnet(&types.Subnet{ID: "sub-v4", NetworkID: "net-1", CIDR: "10.0.0.0/24", IPVersion: 4})
	gate := &recordingGate{}
	d := New(&cfg, st, fake.New(), gate)
	assert.Nil(t, d.CreateNetwork(ctx, &types.Network{ID: "net-1"}))

	port := &types.Port{
		ID:           "port-new",
		NetworkID:    "net-1",
		MACAddress:   "aa:bb:cc:00:00:01",
		FixedIPs:     []types.FixedIP{{SubnetID: "sub-v4", IPAddress: "10.0.0.5"}},
		Status:       types.PortStatusDown,
		AdminStateUp: true,
	}
	st.PutPort(port)
	assert.Nil(t, d.CreatePort(ctx, port))
	assert.Equal(t, []string{"port-new"}, gate.added)

	d.OnPortUp(ctx, "port-new")
	assert.Equal(t, []string{"port-new"}, gate.completed)

	d.OnPortDown(ctx, "port-new")
	assert.Equal(t, types.PortStatusDown, gate.statuses["port-new"])

	// An already active port needs no block.
	active := &types.Port{
		ID:           "port-live",
		NetworkID:    "net-1",
		MACAddress:   "aa:bb:cc:00:00:02",
		Status:       types.PortStatusActive,
		AdminStateUp: true,
	}
	st.PutPort(active)
	assert.Nil(t, d.CreatePort(ctx, active))
	assert.Equal(t, []string{"port-new"}, gate.added)
}
