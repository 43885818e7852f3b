package store

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/samber/lo"

	"github.com/paperandsoap/networking-ovn/internal/types"
	"github.com/paperandsoap/networking-ovn/pkg/terrors"
)

// MemStore is an in-memory Store. Embedders that already hold the policy
// model in memory can use it directly; tests build scenarios with it.
type MemStore struct {
	mu sync.RWMutex

	ports   map[string]*types.Port
	groups  map[string]*types.SecurityGroup
	subnets map[string]*types.Subnet
	qos     map[string][]types.QoSRule
}

// NewMemStore .
func NewMemStore() *MemStore {
	return &MemStore{
		ports:   map[string]*types.Port{},
		groups:  map[string]*types.SecurityGroup{},
		subnets: map[string]*types.Subnet{},
		qos:     map[string][]types.QoSRule{},
	}
}

// PutPort inserts or replaces a port.
func (s *MemStore) PutPort(p *types.Port) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ports[p.ID] = p
}

// RemovePort .
func (s *MemStore) RemovePort(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.ports, id)
}

// PutSecurityGroup inserts or replaces a group with its rules.
func (s *MemStore) PutSecurityGroup(sg *types.SecurityGroup) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.groups[sg.ID] = sg
}

// PutSubnet .
func (s *MemStore) PutSubnet(sub *types.Subnet) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subnets[sub.ID] = sub
}

// PutQoSPolicy .
func (s *MemStore) PutQoSPolicy(policyID string, rules []types.QoSRule) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.qos[policyID] = rules
}

// Port .
func (s *MemStore) Port(_ context.Context, id string) (*types.Port, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.ports[id]
	if !ok {
		return nil, errors.Wrapf(terrors.ErrNotFound, "port %s", id)
	}
	return p, nil
}

// Ports .
func (s *MemStore) Ports(_ context.Context, ids []string) ([]*types.Port, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ans := make([]*types.Port, 0, len(ids))
	for _, id := range ids {
		if p, ok := s.ports[id]; ok {
			ans = append(ans, p)
		}
	}
	return ans, nil
}

// PortsByNetwork .
func (s *MemStore) PortsByNetwork(_ context.Context, networkID string) ([]*types.Port, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return lo.Filter(lo.Values(s.ports), func(p *types.Port, _ int) bool {
		return p.NetworkID == networkID
	}), nil
}

// PortsBySecurityGroup .
func (s *MemStore) PortsBySecurityGroup(_ context.Context, sgID string) ([]*types.Port, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return lo.Filter(lo.Values(s.ports), func(p *types.Port, _ int) bool {
		return lo.Contains(p.SecurityGroups, sgID)
	}), nil
}

// SecurityGroup .
func (s *MemStore) SecurityGroup(_ context.Context, id string) (*types.SecurityGroup, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sg, ok := s.groups[id]
	if !ok {
		return nil, errors.Wrapf(terrors.ErrNotFound, "security group %s", id)
	}
	return sg, nil
}

// SecurityGroupRule .
func (s *MemStore) SecurityGroupRule(_ context.Context, id string) (*types.SecurityGroupRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sg := range s.groups {
		for _, r := range sg.Rules {
			if r.ID == id {
				return r, nil
			}
		}
	}
	return nil, errors.Wrapf(terrors.ErrNotFound, "security group rule %s", id)
}

// RulesByRemoteGroup .
func (s *MemStore) RulesByRemoteGroup(_ context.Context, sgID string) ([]*types.SecurityGroupRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ans []*types.SecurityGroupRule
	for _, sg := range s.groups {
		for _, r := range sg.Rules {
			if r.RemoteGroupID == sgID {
				ans = append(ans, r)
			}
		}
	}
	return ans, nil
}

// Subnet .
func (s *MemStore) Subnet(_ context.Context, id string) (*types.Subnet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sub, ok := s.subnets[id]
	if !ok {
		return nil, errors.Wrapf(terrors.ErrNotFound, "subnet %s", id)
	}
	return sub, nil
}

// QoSPolicyRules .
func (s *MemStore) QoSPolicyRules(_ context.Context, policyID string) ([]types.QoSRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.qos[policyID], nil
}
