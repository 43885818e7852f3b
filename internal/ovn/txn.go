package ovn

import (
	"context"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/ovn-org/libovsdb/model"
	"github.com/ovn-org/libovsdb/ovsdb"
	"github.com/samber/lo"

	"github.com/paperandsoap/networking-ovn/internal/types"
	"github.com/paperandsoap/networking-ovn/pkg/terrors"
)

// txnOp resolves one staged mutation into wire operations. Resolution is
// deferred to Commit so that lookups see the monitor replica as of
// submission time.
type txnOp func(ctx context.Context) ([]ovsdb.Operation, error)

type txn struct {
	c   *Client
	ops []txnOp
}

func newRowUUID() string {
	return "row" + strings.ReplaceAll(uuid.New().String(), "-", "_")
}

func (t *txn) stage(op txnOp) {
	t.ops = append(t.ops, op)
}

func (t *txn) CreateLogicalSwitch(name string, externalIDs map[string]string) {
	t.stage(func(_ context.Context) ([]ovsdb.Operation, error) {
		ls := &LogicalSwitch{
			UUID:        newRowUUID(),
			Name:        name,
			ExternalIDs: externalIDs,
		}
		ops, err := t.c.cli.Create(ls)
		return ops, errors.Wrapf(err, "failed to create logical switch %s", name)
	})
}

func (t *txn) SetLogicalSwitchExternalID(name, key, value string) {
	t.stage(func(ctx context.Context) ([]ovsdb.Operation, error) {
		ls, err := t.c.switchByName(ctx, name)
		if err != nil {
			return nil, err
		}
		if ls.ExternalIDs == nil {
			ls.ExternalIDs = map[string]string{}
		}
		ls.ExternalIDs[key] = value
		ops, err := t.c.cli.Where(ls).Update(ls, &ls.ExternalIDs)
		return ops, errors.Wrapf(err, "failed to set external_id %s on switch %s", key, name)
	})
}

func (t *txn) DeleteLogicalSwitch(name string) {
	t.stage(func(ctx context.Context) ([]ovsdb.Operation, error) {
		ls, err := t.c.switchByName(ctx, name)
		if terrors.IsNotFoundErr(err) {
			// Already gone, nothing to do.
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		ops, err := t.c.cli.Where(ls).Delete()
		return ops, errors.Wrapf(err, "failed to delete logical switch %s", name)
	})
}

func specToRow(namedUUID string, spec LogicalPortSpec) *LogicalSwitchPort {
	enabled := spec.Enabled
	return &LogicalSwitchPort{
		UUID:         namedUUID,
		Name:         spec.Name,
		Type:         spec.Type,
		Addresses:    spec.Addresses,
		PortSecurity: spec.PortSecurity,
		Options:      spec.Options,
		ExternalIDs:  spec.ExternalIDs,
		ParentName:   spec.ParentName,
		Tag:          spec.Tag,
		Enabled:      &enabled,
	}
}

func (t *txn) CreateLogicalPort(spec LogicalPortSpec) {
	t.stage(func(ctx context.Context) ([]ovsdb.Operation, error) {
		namedUUID := newRowUUID()
		lsp := specToRow(namedUUID, spec)
		ops, err := t.c.cli.Create(lsp)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to create logical port %s", spec.Name)
		}

		ls, err := t.c.switchByName(ctx, spec.Switch)
		if err != nil {
			return nil, err
		}
		lsOps, err := t.c.cli.Where(ls).Mutate(ls, model.Mutation{
			Field:   &ls.Ports,
			Mutator: ovsdb.MutateOperationInsert,
			Value:   []string{namedUUID},
		})
		if err != nil {
			return nil, errors.Wrapf(err, "failed to attach logical port %s", spec.Name)
		}
		return append(ops, lsOps...), nil
	})
}

func (t *txn) UpdateLogicalPort(spec LogicalPortSpec) {
	t.stage(func(ctx context.Context) ([]ovsdb.Operation, error) {
		lsp, err := t.c.portByName(ctx, spec.Name)
		if err != nil {
			return nil, err
		}
		enabled := spec.Enabled
		lsp.Type = spec.Type
		lsp.Addresses = spec.Addresses
		lsp.PortSecurity = spec.PortSecurity
		lsp.Options = spec.Options
		lsp.ExternalIDs = spec.ExternalIDs
		lsp.ParentName = spec.ParentName
		lsp.Tag = spec.Tag
		lsp.Enabled = &enabled
		ops, err := t.c.cli.Where(lsp).Update(lsp,
			&lsp.Type, &lsp.Addresses, &lsp.PortSecurity, &lsp.Options,
			&lsp.ExternalIDs, &lsp.ParentName, &lsp.Tag, &lsp.Enabled)
		return ops, errors.Wrapf(err, "failed to update logical port %s", spec.Name)
	})
}

func (t *txn) SetLogicalPortOptions(name string, options map[string]string) {
	t.stage(func(ctx context.Context) ([]ovsdb.Operation, error) {
		lsp, err := t.c.portByName(ctx, name)
		if err != nil {
			return nil, err
		}
		lsp.Options = options
		ops, err := t.c.cli.Where(lsp).Update(lsp, &lsp.Options)
		return ops, errors.Wrapf(err, "failed to set options on logical port %s", name)
	})
}

func (t *txn) DeleteLogicalPort(switchName, name string) {
	t.stage(func(ctx context.Context) ([]ovsdb.Operation, error) {
		lsp, err := t.c.portByName(ctx, name)
		if terrors.IsNotFoundErr(err) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}

		var ops []ovsdb.Operation
		ls, err := t.c.switchByName(ctx, switchName)
		if err == nil {
			lsOps, err := t.c.cli.Where(ls).Mutate(ls, model.Mutation{
				Field:   &ls.Ports,
				Mutator: ovsdb.MutateOperationDelete,
				Value:   []string{lsp.UUID},
			})
			if err != nil {
				return nil, errors.Wrapf(err, "failed to detach logical port %s", name)
			}
			ops = append(ops, lsOps...)
		} else if !terrors.IsNotFoundErr(err) {
			return nil, err
		}

		delOps, err := t.c.cli.Where(lsp).Delete()
		if err != nil {
			return nil, errors.Wrapf(err, "failed to delete logical port %s", name)
		}
		return append(ops, delOps...), nil
	})
}

func aclToRow(namedUUID string, a types.ACL) *ACLRow {
	return &ACLRow{
		UUID:        namedUUID,
		Action:      a.Action,
		Direction:   a.Direction,
		Match:       a.Match,
		Priority:    a.Priority,
		Log:         a.Log,
		ExternalIDs: a.ExternalIDs,
	}
}

func rowMatchesACL(row ACLRow, a types.ACL) bool {
	return row.Direction == a.Direction &&
		row.Priority == a.Priority &&
		row.Match == a.Match &&
		row.Action == a.Action
}

func (t *txn) addACLOps(ctx context.Context, a types.ACL) ([]ovsdb.Operation, error) {
	namedUUID := newRowUUID()
	row := aclToRow(namedUUID, a)
	ops, err := t.c.cli.Create(row)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create ACL for port %s", a.Port)
	}

	ls, err := t.c.switchByName(ctx, a.Switch)
	if err != nil {
		return nil, err
	}
	lsOps, err := t.c.cli.Where(ls).Mutate(ls, model.Mutation{
		Field:   &ls.ACLs,
		Mutator: ovsdb.MutateOperationInsert,
		Value:   []string{namedUUID},
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to attach ACL to switch %s", a.Switch)
	}
	return append(ops, lsOps...), nil
}

func (t *txn) delACLRowOps(ls *LogicalSwitch, row ACLRow) ([]ovsdb.Operation, error) {
	ops, err := t.c.cli.Where(ls).Mutate(ls, model.Mutation{
		Field:   &ls.ACLs,
		Mutator: ovsdb.MutateOperationDelete,
		Value:   []string{row.UUID},
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to detach ACL from switch %s", ls.Name)
	}
	delOps, err := t.c.cli.Where(&ACLRow{UUID: row.UUID}).Delete()
	if err != nil {
		return nil, errors.Wrap(err, "failed to delete ACL row")
	}
	return append(ops, delOps...), nil
}

func (t *txn) AddACL(a types.ACL) {
	t.stage(func(ctx context.Context) ([]ovsdb.Operation, error) {
		return t.addACLOps(ctx, a)
	})
}

func (t *txn) DeleteACLsForPort(switchName, portName string) {
	t.stage(func(ctx context.Context) ([]ovsdb.Operation, error) {
		ls, err := t.c.switchByName(ctx, switchName)
		if terrors.IsNotFoundErr(err) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		rows, err := t.c.aclRowsForPort(ctx, ls, portName)
		if err != nil {
			return nil, err
		}
		var ops []ovsdb.Operation
		for _, row := range rows {
			rowOps, err := t.delACLRowOps(ls, row)
			if err != nil {
				return nil, err
			}
			ops = append(ops, rowOps...)
		}
		return ops, nil
	})
}

func (t *txn) UpdateACLs(switches []string, portACLs map[string][]types.ACL, needCompare, isAdd bool) {
	t.stage(func(ctx context.Context) ([]ovsdb.Operation, error) {
		if needCompare {
			return t.compareACLOps(ctx, switches, portACLs)
		}
		return t.targetedACLOps(ctx, portACLs, isAdd)
	})
}

// compareACLOps reconciles each port's wanted set against what the switch
// currently holds: add what is missing, remove what is stale. Entries the
// database already has are untouched, so the write load is the delta.
func (t *txn) compareACLOps(ctx context.Context, switches []string,
	portACLs map[string][]types.ACL) ([]ovsdb.Operation, error) {
	var ops []ovsdb.Operation
	for _, swName := range switches {
		ls, err := t.c.switchByName(ctx, swName)
		if err != nil {
			return nil, err
		}
		for portID, wanted := range portACLs {
			wantedHere := lo.Filter(wanted, func(a types.ACL, _ int) bool {
				return a.Switch == swName
			})
			existing, err := t.c.aclRowsForPort(ctx, ls, portID)
			if err != nil {
				return nil, err
			}

			for _, a := range wantedHere {
				found := lo.ContainsBy(existing, func(row ACLRow) bool {
					return rowMatchesACL(row, a)
				})
				if found {
					continue
				}
				addOps, err := t.addACLOps(ctx, a)
				if err != nil {
					return nil, err
				}
				ops = append(ops, addOps...)
			}

			for _, row := range existing {
				stale := !lo.ContainsBy(wantedHere, func(a types.ACL) bool {
					return rowMatchesACL(row, a)
				})
				if !stale {
					continue
				}
				delOps, err := t.delACLRowOps(ls, row)
				if err != nil {
					return nil, err
				}
				ops = append(ops, delOps...)
			}
		}
	}
	return ops, nil
}

// targetedACLOps adds or removes exactly the given rule-derived ACLs, no
// comparison: the caller knows precisely which entries one rule implies.
func (t *txn) targetedACLOps(ctx context.Context, portACLs map[string][]types.ACL,
	isAdd bool) ([]ovsdb.Operation, error) {
	var ops []ovsdb.Operation
	for portID, acls := range portACLs {
		for _, a := range acls {
			if isAdd {
				addOps, err := t.addACLOps(ctx, a)
				if err != nil {
					return nil, err
				}
				ops = append(ops, addOps...)
				continue
			}

			ls, err := t.c.switchByName(ctx, a.Switch)
			if err != nil {
				return nil, err
			}
			rows, err := t.c.aclRowsForPort(ctx, ls, portID)
			if err != nil {
				return nil, err
			}
			for _, row := range rows {
				if !rowMatchesACL(row, a) {
					continue
				}
				delOps, err := t.delACLRowOps(ls, row)
				if err != nil {
					return nil, err
				}
				ops = append(ops, delOps...)
			}
		}
	}
	return ops, nil
}

// commitContext bounds one commit by the configured txn timeout. A zero
// timeout leaves the caller's context untouched.
func commitContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}

// Commit resolves the staged operations and submits them in one ovsdb
// transaction, bounded by the configured txn timeout. The database
// applies all of them or none; any operation error aborts the rest and
// surfaces here as a single ErrTxnFailed.
func (t *txn) Commit(ctx context.Context) error {
	ctx, cancel := commitContext(ctx, t.c.cfg.TxnTimeout.Duration())
	defer cancel()

	var allOps []ovsdb.Operation
	for _, op := range t.ops {
		ops, err := op(ctx)
		if err != nil {
			return err
		}
		allOps = append(allOps, ops...)
	}
	if len(allOps) == 0 {
		return nil
	}

	res, err := t.c.cli.Transact(ctx, allOps...)
	if err != nil {
		return errors.Mark(errors.Wrap(err, "transact failed"), terrors.ErrTxnFailed)
	}
	err = lo.Reduce(res, func(r error, op ovsdb.OperationResult, _ int) error {
		if op.Error != "" {
			return errors.CombineErrors(r, errors.Newf("%s: %s", op.Error, op.Details))
		}
		return r
	}, nil)
	if err != nil {
		return errors.Mark(err, terrors.ErrTxnFailed)
	}
	return nil
}
