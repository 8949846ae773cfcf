// Package policy maps (operation, resource kind) pairs to the capability an
// actor needs, and enforces it through a single guard.
package policy

import (
	"github.com/google/uuid"

	"github.com/unibazzar/marketplace-api/internal/core/domain/apperr"
	"github.com/unibazzar/marketplace-api/internal/core/domain/resource"
)

type Operation string

const (
	OpList     Operation = "list"
	OpRetrieve Operation = "retrieve"
	OpCreate   Operation = "create"
	OpUpdate   Operation = "update"
	OpDelete   Operation = "delete"
)

// Capability is ordered: each level implies the ones before it.
type Capability int

const (
	Anyone Capability = iota
	Authenticated
	Owner
)

func (c Capability) String() string {
	switch c {
	case Anyone:
		return "anyone"
	case Authenticated:
		return "authenticated"
	case Owner:
		return "owner"
	default:
		return "unknown"
	}
}

type Rule struct {
	Op   Operation
	Kind resource.Kind
}

type Table map[Rule]Capability

// Actor is the caller as seen by the guard. A nil actor is anonymous.
type Actor struct {
	UserID uuid.UUID
}

var ErrAuthenticationRequired = apperr.New(apperr.KindAuthentication, apperr.CodeTokenInvalid, "Authentication credentials were not provided.")

// DefaultTable: catalog reads are public, writes need a session, and edits to
// listings or reviews are limited to whoever created them. Categories are a
// shared taxonomy any signed-in user may curate.
func DefaultTable() Table {
	t := Table{}
	for _, k := range resource.Kinds() {
		t[Rule{OpList, k}] = Anyone
		t[Rule{OpRetrieve, k}] = Anyone
		t[Rule{OpCreate, k}] = Authenticated
		t[Rule{OpUpdate, k}] = Owner
		t[Rule{OpDelete, k}] = Owner
	}
	t[Rule{OpUpdate, resource.KindCategories}] = Authenticated
	t[Rule{OpDelete, resource.KindCategories}] = Authenticated
	return t
}

// Required returns the capability for op on kind; unknown pairs are denied.
func (t Table) Required(op Operation, kind resource.Kind) (Capability, bool) {
	c, ok := t[Rule{op, kind}]
	return c, ok
}

// Guard reports whether actor may perform op on a resource of kind owned by owner.
// owner may be nil for collection-level operations.
func (t Table) Guard(op Operation, kind resource.Kind, actor *Actor, owner *uuid.UUID) error {
	required, ok := t.Required(op, kind)
	if !ok {
		return apperr.ErrForbidden
	}
	switch required {
	case Anyone:
		return nil
	case Authenticated:
		if actor == nil {
			return ErrAuthenticationRequired
		}
		return nil
	case Owner:
		if actor == nil {
			return ErrAuthenticationRequired
		}
		if owner == nil || *owner != actor.UserID {
			return apperr.ErrForbidden
		}
		return nil
	}
	return apperr.ErrForbidden
}
