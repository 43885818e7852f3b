// Package fake is an in-memory Northbound implementation with the same
// transaction semantics as the real client: staged operations apply all
// or nothing at commit. Tests use it to observe exactly what a unit of
// work would materialize.
package fake

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/samber/lo"

	"github.com/paperandsoap/networking-ovn/internal/ovn"
	"github.com/paperandsoap/networking-ovn/internal/types"
	"github.com/paperandsoap/networking-ovn/pkg/terrors"
)

type logicalSwitch struct {
	externalIDs map[string]string
	ports       map[string]ovn.LogicalPortSpec
	acls        []types.ACL
}

// Northbound .
type Northbound struct {
	mu       sync.Mutex
	switches map[string]*logicalSwitch

	// Fail, when set, is consulted with each staged operation's name as
	// the transaction applies; returning an error aborts the whole
	// commit, leaving no operation applied.
	Fail func(op string) error
}

// New .
func New() *Northbound {
	return &Northbound{switches: map[string]*logicalSwitch{}}
}

// Transaction .
func (nb *Northbound) Transaction() ovn.Transaction {
	return &txn{nb: nb}
}

type stagedOp struct {
	name  string
	apply func(state map[string]*logicalSwitch) error
}

type txn struct {
	nb  *Northbound
	ops []stagedOp
}

func cloneSwitch(ls *logicalSwitch) *logicalSwitch {
	cp := &logicalSwitch{
		externalIDs: map[string]string{},
		ports:       map[string]ovn.LogicalPortSpec{},
		acls:        append([]types.ACL{}, ls.acls...),
	}
	for k, v := range ls.externalIDs {
		cp.externalIDs[k] = v
	}
	for k, v := range ls.ports {
		cp.ports[k] = v
	}
	return cp
}

func cloneState(state map[string]*logicalSwitch) map[string]*logicalSwitch {
	cp := make(map[string]*logicalSwitch, len(state))
	for name, ls := range state {
		cp[name] = cloneSwitch(ls)
	}
	return cp
}

// Commit applies the staged operations on a copy of the state and swaps
// it in only when every operation succeeded.
func (t *txn) Commit(_ context.Context) error {
	t.nb.mu.Lock()
	defer t.nb.mu.Unlock()

	next := cloneState(t.nb.switches)
	for _, op := range t.ops {
		if t.nb.Fail != nil {
			if err := t.nb.Fail(op.name); err != nil {
				return errors.Mark(err, terrors.ErrTxnFailed)
			}
		}
		if err := op.apply(next); err != nil {
			return errors.Mark(err, terrors.ErrTxnFailed)
		}
	}
	t.nb.switches = next
	return nil
}

func (t *txn) stage(name string, apply func(state map[string]*logicalSwitch) error) {
	t.ops = append(t.ops, stagedOp{name: name, apply: apply})
}

func findPort(state map[string]*logicalSwitch, name string) (*logicalSwitch, ovn.LogicalPortSpec, bool) {
	for _, ls := range state {
		if spec, ok := ls.ports[name]; ok {
			return ls, spec, true
		}
	}
	return nil, ovn.LogicalPortSpec{}, false
}

func (t *txn) CreateLogicalSwitch(name string, externalIDs map[string]string) {
	t.stage("create-switch", func(state map[string]*logicalSwitch) error {
		if _, ok := state[name]; ok {
			return errors.Newf("logical switch %s already exists", name)
		}
		ls := &logicalSwitch{
			externalIDs: map[string]string{},
			ports:       map[string]ovn.LogicalPortSpec{},
		}
		for k, v := range externalIDs {
			ls.externalIDs[k] = v
		}
		state[name] = ls
		return nil
	})
}

func (t *txn) SetLogicalSwitchExternalID(name, key, value string) {
	t.stage("set-switch-external-id", func(state map[string]*logicalSwitch) error {
		ls, ok := state[name]
		if !ok {
			return errors.Wrapf(terrors.ErrSwitchNotFound, "%s", name)
		}
		ls.externalIDs[key] = value
		return nil
	})
}

func (t *txn) DeleteLogicalSwitch(name string) {
	t.stage("delete-switch", func(state map[string]*logicalSwitch) error {
		delete(state, name)
		return nil
	})
}

func (t *txn) CreateLogicalPort(spec ovn.LogicalPortSpec) {
	t.stage("create-port", func(state map[string]*logicalSwitch) error {
		ls, ok := state[spec.Switch]
		if !ok {
			return errors.Wrapf(terrors.ErrSwitchNotFound, "%s", spec.Switch)
		}
		if _, _, ok := findPort(state, spec.Name); ok {
			return errors.Newf("logical port %s already exists", spec.Name)
		}
		ls.ports[spec.Name] = spec
		return nil
	})
}

func (t *txn) UpdateLogicalPort(spec ovn.LogicalPortSpec) {
	t.stage("update-port", func(state map[string]*logicalSwitch) error {
		ls, _, ok := findPort(state, spec.Name)
		if !ok {
			return errors.Wrapf(terrors.ErrPortNotFound, "%s", spec.Name)
		}
		ls.ports[spec.Name] = spec
		return nil
	})
}

func (t *txn) SetLogicalPortOptions(name string, options map[string]string) {
	t.stage("set-port-options", func(state map[string]*logicalSwitch) error {
		ls, spec, ok := findPort(state, name)
		if !ok {
			return errors.Wrapf(terrors.ErrPortNotFound, "%s", name)
		}
		spec.Options = options
		ls.ports[name] = spec
		return nil
	})
}

func (t *txn) DeleteLogicalPort(switchName, name string) {
	t.stage("delete-port", func(state map[string]*logicalSwitch) error {
		ls, ok := state[switchName]
		if !ok {
			return nil
		}
		delete(ls.ports, name)
		return nil
	})
}

func addACL(ls *logicalSwitch, a types.ACL) {
	for i, cur := range ls.acls {
		if cur.Key() == a.Key() {
			ls.acls[i] = a
			return
		}
	}
	ls.acls = append(ls.acls, a)
}

func (t *txn) AddACL(a types.ACL) {
	t.stage("add-acl", func(state map[string]*logicalSwitch) error {
		ls, ok := state[a.Switch]
		if !ok {
			return errors.Wrapf(terrors.ErrSwitchNotFound, "%s", a.Switch)
		}
		addACL(ls, a)
		return nil
	})
}

func (t *txn) DeleteACLsForPort(switchName, portName string) {
	t.stage("delete-port-acls", func(state map[string]*logicalSwitch) error {
		ls, ok := state[switchName]
		if !ok {
			return nil
		}
		ls.acls = lo.Filter(ls.acls, func(a types.ACL, _ int) bool {
			return a.Port != portName
		})
		return nil
	})
}

func (t *txn) UpdateACLs(switches []string, portACLs map[string][]types.ACL, needCompare, isAdd bool) {
	t.stage("update-acls", func(state map[string]*logicalSwitch) error {
		if needCompare {
			return updateACLsCompare(state, switches, portACLs)
		}
		return updateACLsTargeted(state, portACLs, isAdd)
	})
}

func updateACLsCompare(state map[string]*logicalSwitch, switches []string,
	portACLs map[string][]types.ACL) error {
	for _, swName := range switches {
		ls, ok := state[swName]
		if !ok {
			return errors.Wrapf(terrors.ErrSwitchNotFound, "%s", swName)
		}
		for portID, wanted := range portACLs {
			wantedHere := lo.Filter(wanted, func(a types.ACL, _ int) bool {
				return a.Switch == swName
			})
			// Remove stale entries for the port, keep matching ones,
			// then add what is missing.
			ls.acls = lo.Filter(ls.acls, func(cur types.ACL, _ int) bool {
				if cur.Port != portID {
					return true
				}
				return lo.ContainsBy(wantedHere, func(a types.ACL) bool {
					return a.SameEntry(cur)
				})
			})
			for _, a := range wantedHere {
				exists := lo.ContainsBy(ls.acls, func(cur types.ACL) bool {
					return cur.SameEntry(a)
				})
				if !exists {
					addACL(ls, a)
				}
			}
		}
	}
	return nil
}

func updateACLsTargeted(state map[string]*logicalSwitch,
	portACLs map[string][]types.ACL, isAdd bool) error {
	for portID, acls := range portACLs {
		for _, a := range acls {
			ls, ok := state[a.Switch]
			if !ok {
				return errors.Wrapf(terrors.ErrSwitchNotFound, "%s", a.Switch)
			}
			if isAdd {
				addACL(ls, a)
				continue
			}
			want := a
			ls.acls = lo.Filter(ls.acls, func(cur types.ACL, _ int) bool {
				return cur.Port != portID || !cur.SameEntry(want)
			})
		}
	}
	return nil
}

// HasSwitch .
func (nb *Northbound) HasSwitch(name string) bool {
	nb.mu.Lock()
	defer nb.mu.Unlock()
	_, ok := nb.switches[name]
	return ok
}

// SwitchExternalIDs returns a copy of a switch's external ids.
func (nb *Northbound) SwitchExternalIDs(name string) map[string]string {
	nb.mu.Lock()
	defer nb.mu.Unlock()
	ls, ok := nb.switches[name]
	if !ok {
		return nil
	}
	cp := map[string]string{}
	for k, v := range ls.externalIDs {
		cp[k] = v
	}
	return cp
}

// PortSpec returns the stored spec of a logical port.
func (nb *Northbound) PortSpec(switchName, portName string) (ovn.LogicalPortSpec, bool) {
	nb.mu.Lock()
	defer nb.mu.Unlock()
	ls, ok := nb.switches[switchName]
	if !ok {
		return ovn.LogicalPortSpec{}, false
	}
	spec, ok := ls.ports[portName]
	return spec, ok
}

// PortACLs returns a copy of the ACLs correlated to one port.
func (nb *Northbound) PortACLs(switchName, portID string) []types.ACL {
	nb.mu.Lock()
	defer nb.mu.Unlock()
	ls, ok := nb.switches[switchName]
	if !ok {
		return nil
	}
	return lo.Filter(ls.acls, func(a types.ACL, _ int) bool {
		return a.Port == portID
	})
}
