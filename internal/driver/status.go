package driver

import (
	"context"

	"github.com/projecteru2/core/log"

	"github.com/paperandsoap/networking-ovn/internal/types"
)

// ProvisioningGate is the embedder's bookkeeping for ports that must not
// go ACTIVE before the dataplane confirms them. The driver adds a block
// when it starts materializing a port and completes it once the backend
// reports the port up.
type ProvisioningGate interface {
	AddBlock(ctx context.Context, portID string)
	CompleteBlock(ctx context.Context, portID string)
	SetPortStatus(ctx context.Context, portID, status string)
}

func (d *Driver) insertProvisioningBlock(ctx context.Context, port *types.Port) {
	if d.gate == nil {
		return
	}
	if port.Status == types.PortStatusActive {
		return
	}
	if port.VNICType != "" && port.VNICType != types.VNICNormal {
		return
	}
	d.gate.AddBlock(ctx, port.ID)
}

// OnPortUp is fired by the backend watcher when a logical port's chassis
// binding comes up.
func (d *Driver) OnPortUp(ctx context.Context, portID string) {
	log.WithFunc("driver.OnPortUp").Debugf(ctx, "logical port %s is up", portID)
	if d.gate == nil {
		return
	}
	d.gate.CompleteBlock(ctx, portID)
}

// OnPortDown .
func (d *Driver) OnPortDown(ctx context.Context, portID string) {
	log.WithFunc("driver.OnPortDown").Debugf(ctx, "logical port %s is down", portID)
	if d.gate == nil {
		return
	}
	d.gate.SetPortStatus(ctx, portID, types.PortStatusDown)
}
