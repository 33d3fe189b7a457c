package role

import (
	"context"

	"github.com/Abraxas-365/authbuilder/pkg/kernel"
)

// Repository persists roles and their user assignments.
type Repository interface {
	Save(ctx context.Context, r Role) error
	FindByID(ctx context.Context, id kernel.RoleID) (*Role, error)
	FindByNameInRealm(ctx context.Context, realmID kernel.RealmID, name string) (*Role, error)
	FindAll(ctx context.Context, filter ListFilter) ([]*Role, error)
	Stats(ctx context.Context, realmID *kernel.RealmID) (*Stats, error)
	ToggleStatus(ctx context.Context, id kernel.RoleID) (*Role, error)
	Delete(ctx context.Context, id kernel.RoleID) error

	// Assign is idempotent.
	Assign(ctx context.Context, userID kernel.UserID, roleID kernel.RoleID) error
	Unassign(ctx context.Context, userID kernel.UserID, roleID kernel.RoleID) error
	// ActiveRolesForUser returns the user's active roles ordered by name,
	// each carrying its full access policy.
	ActiveRolesForUser(ctx context.Context, userID kernel.UserID) ([]*Role, error)
	Members(ctx context.Context, roleID kernel.RoleID) ([]Member, error)
}
