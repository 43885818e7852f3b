package acl

import (
	"context"

	"github.com/paperandsoap/networking-ovn/internal/store"
	"github.com/paperandsoap/networking-ovn/internal/types"
)

// Caches is the lookup context for one reconciliation pass. Entries are
// populated lazily on first access and never invalidated mid-pass; a pass
// owns its Caches exclusively and discards them at the end. Callers must
// not mutate the policy store while a pass is running.
type Caches struct {
	st store.Store

	groups     map[string]*types.SecurityGroup
	groupPorts map[string][]*types.Port
	subnets    map[string]*types.Subnet
}

// NewCaches .
func NewCaches(st store.Store) *Caches {
	return &Caches{
		st:         st,
		groups:     map[string]*types.SecurityGroup{},
		groupPorts: map[string][]*types.Port{},
		subnets:    map[string]*types.Subnet{},
	}
}

// SecurityGroup .
func (c *Caches) SecurityGroup(ctx context.Context, id string) (*types.SecurityGroup, error) {
	if sg, ok := c.groups[id]; ok {
		return sg, nil
	}
	sg, err := c.st.SecurityGroup(ctx, id)
	if err != nil {
		return nil, err
	}
	c.groups[id] = sg
	return sg, nil
}

// PortsBySecurityGroup .
func (c *Caches) PortsBySecurityGroup(ctx context.Context, id string) ([]*types.Port, error) {
	if ports, ok := c.groupPorts[id]; ok {
		return ports, nil
	}
	ports, err := c.st.PortsBySecurityGroup(ctx, id)
	if err != nil {
		return nil, err
	}
	c.groupPorts[id] = ports
	return ports, nil
}

// Subnet .
func (c *Caches) Subnet(ctx context.Context, id string) (*types.Subnet, error) {
	if sub, ok := c.subnets[id]; ok {
		return sub, nil
	}
	sub, err := c.st.Subnet(ctx, id)
	if err != nil {
		return nil, err
	}
	c.subnets[id] = sub
	return sub, nil
}
