package projectquery

import (
	"context"
	"reflect"

	sq "github.com/Masterminds/squirrel"

	"github.com/arthur-debert/projectquery/projectquery/cache"
	"github.com/arthur-debert/projectquery/projectquery/store"
	"github.com/arthur-debert/projectquery/types"
)

// Catalog is the persistence collaborator: it executes predicates and
// lists the entities dynamic fields are synthesized from.
// *store.Store implements it.
type Catalog interface {
	FindWhere(ctx context.Context, where sq.Sqlizer, opts store.FindOptions) ([]types.Project, error)
	Count(ctx context.Context, where sq.Sqlizer) (int, error)
	Trackers(ctx context.Context) ([]types.Tracker, error)
	Roles(ctx context.Context) ([]types.Role, error)
	MemberUsers(ctx context.Context) ([]types.Principal, error)
	Principals(ctx context.Context, ids []int64) ([]types.Principal, error)
	Freshness(table, column string) cache.Probe
}

// OrganizationDirectory exposes the organization tree
type OrganizationDirectory interface {
	Organizations(ctx context.Context) ([]types.Organization, error)
}

// FunctionDirectory exposes the membership functions
type FunctionDirectory interface {
	Functions(ctx context.Context) ([]types.Function, error)
}

// Capabilities are the optional collaborators of a registry. A nil member,
// including a typed nil such as a nil *store.Store, means the capability is
// absent; the fields and columns depending on it are left out without error.
type Capabilities struct {
	Organizations OrganizationDirectory
	Functions     FunctionDirectory
}

// HasOrganizations reports whether organization fields and role columns are available
func (c Capabilities) HasOrganizations() bool {
	return present(c.Organizations)
}

// HasFunctions reports whether function columns are available. They are
// rendered as organization names, so both capabilities are needed.
func (c Capabilities) HasFunctions() bool {
	return present(c.Organizations) && present(c.Functions)
}

func present(v any) bool {
	if v == nil {
		return false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Func, reflect.Interface, reflect.Slice, reflect.Chan:
		return !rv.IsNil()
	}
	return true
}
