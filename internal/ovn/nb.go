package ovn

import (
	"context"

	"github.com/paperandsoap/networking-ovn/internal/types"
)

// LogicalPortSpec is the complete northbound image of one policy port.
// Updates replace the row wholesale; no field-by-field diffing happens at
// this layer (the database elides no-op writes on its own).
type LogicalPortSpec struct {
	Name         string
	Switch       string
	Type         string
	Addresses    []string
	PortSecurity []string
	Options      map[string]string
	ExternalIDs  map[string]string
	ParentName   *string
	Tag          *int
	Enabled      bool
}

// Transaction stages northbound mutations for one unit of work. Commit
// submits them as a single atomic transaction: either every staged
// operation takes effect or none does, and the caller gets one failure
// signal (wrapping terrors.ErrTxnFailed) for the whole scope.
//
// Deletes of absent switches, ports and ACLs are treated as success.
type Transaction interface {
	CreateLogicalSwitch(name string, externalIDs map[string]string)
	SetLogicalSwitchExternalID(name, key, value string)
	DeleteLogicalSwitch(name string)

	CreateLogicalPort(spec LogicalPortSpec)
	UpdateLogicalPort(spec LogicalPortSpec)
	SetLogicalPortOptions(name string, options map[string]string)
	DeleteLogicalPort(switchName, name string)

	AddACL(acl types.ACL)
	DeleteACLsForPort(switchName, portName string)

	// UpdateACLs reconciles rule-derived ACLs for the given ports.
	//
	// With needCompare, portACLs carries each port's complete wanted set
	// and the backend computes the add/remove delta against what is
	// currently materialized; this is the full-recompute path, used when
	// the caller cannot know the backend's exact content. A port mapped
	// to an empty set gets all of its ACLs removed.
	//
	// Without needCompare, portACLs carries exactly one rule-derived ACL
	// per port and isAdd says whether to add or remove it; no comparison
	// happens. This is the targeted path for single-rule changes.
	UpdateACLs(switches []string, portACLs map[string][]types.ACL, needCompare, isAdd bool)

	Commit(ctx context.Context) error
}

// Northbound opens transaction scopes against the backend. The driver
// receives one at construction; no global registry is involved.
type Northbound interface {
	Transaction() Transaction
}
