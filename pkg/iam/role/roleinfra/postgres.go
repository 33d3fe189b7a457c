package roleinfra

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Abraxas-365/authbuilder/pkg/errx"
	"github.com/Abraxas-365/authbuilder/pkg/iam/role"
	"github.com/Abraxas-365/authbuilder/pkg/kernel"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// PostgresRoleRepository implements role.Repository on PostgreSQL.
type PostgresRoleRepository struct {
	db *sqlx.DB
}

func NewPostgresRoleRepository(db *sqlx.DB) role.Repository {
	return &PostgresRoleRepository{db: db}
}

const selectRole = `
	SELECT r.id, r.realm_id, rl.name AS realm_name, r.name, r.description,
		r.access, r.is_active, r.created_at, r.updated_at
	FROM roles r
	JOIN realms rl ON rl.id = r.realm_id`

func (r *PostgresRoleRepository) Save(ctx context.Context, rl role.Role) error {
	exists, err := r.roleExists(ctx, rl.ID)
	if err != nil {
		return err
	}

	if exists {
		return r.update(ctx, rl)
	}
	return r.create(ctx, rl)
}

func (r *PostgresRoleRepository) create(ctx context.Context, rl role.Role) error {
	query := `
		INSERT INTO roles (
			id, realm_id, name, description, access, is_active, created_at, updated_at
		) VALUES (
			:id, :realm_id, :name, :description, :access, :is_active, :created_at, :updated_at
		)`

	if _, err := r.db.NamedExecContext(ctx, query, toPersistence(rl)); err != nil {
		return mapWriteError(err, rl, "failed to create role")
	}
	return nil
}

func (r *PostgresRoleRepository) update(ctx context.Context, rl role.Role) error {
	query := `
		UPDATE roles SET
			name = :name,
			description = :description,
			access = :access,
			is_active = :is_active,
			updated_at = :updated_at
		WHERE id = :id`

	result, err := r.db.NamedExecContext(ctx, query, toPersistence(rl))
	if err != nil {
		return mapWriteError(err, rl, "failed to update role")
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errx.Wrap(err, "failed to get rows affected on update", errx.TypeInternal)
	}
	if rowsAffected == 0 {
		return role.ErrRoleNotFound()
	}
	return nil
}

func mapWriteError(err error, rl role.Role, message string) error {
	if pqErr, ok := err.(*pq.Error); ok {
		switch pqErr.Code {
		case "23505":
			return role.ErrNameExists().WithDetail("name", rl.Name)
		case "23503":
			return errx.NotFound("Realm not found").WithDetail("realm_id", rl.RealmID)
		}
	}
	return errx.Wrap(err, message, errx.TypeInternal).WithDetail("role_id", rl.ID)
}

func (r *PostgresRoleRepository) FindByID(ctx context.Context, id kernel.RoleID) (*role.Role, error) {
	return r.findOne(ctx, selectRole+` WHERE r.id = $1`, id.String())
}

func (r *PostgresRoleRepository) FindByNameInRealm(ctx context.Context, realmID kernel.RealmID, name string) (*role.Role, error) {
	return r.findOne(ctx, selectRole+` WHERE r.realm_id = $1 AND r.name = $2`, realmID.String(), name)
}

func (r *PostgresRoleRepository) findOne(ctx context.Context, query string, args ...any) (*role.Role, error) {
	var row rolePersistence
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, role.ErrRoleNotFound()
		}
		return nil, errx.Wrap(err, "failed to find role", errx.TypeInternal)
	}
	rl := toDomain(row)
	return &rl, nil
}

func (r *PostgresRoleRepository) FindAll(ctx context.Context, filter role.ListFilter) ([]*role.Role, error) {
	query := selectRole + ` WHERE 1=1`
	var args []any

	if filter.RealmID != nil {
		args = append(args, filter.RealmID.String())
		query += fmt.Sprintf(` AND r.realm_id = $%d`, len(args))
	}
	if filter.Name != "" {
		args = append(args, "%"+filter.Name+"%")
		query += fmt.Sprintf(` AND r.name ILIKE $%d`, len(args))
	}
	if filter.IsActive != nil {
		args = append(args, *filter.IsActive)
		query += fmt.Sprintf(` AND r.is_active = $%d`, len(args))
	}
	query += ` ORDER BY r.created_at DESC`

	var rows []rolePersistence
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errx.Wrap(err, "failed to list roles", errx.TypeInternal)
	}
	return toDomainSlice(rows), nil
}

func (r *PostgresRoleRepository) Stats(ctx context.Context, realmID *kernel.RealmID) (*role.Stats, error) {
	query := `
		SELECT
			COUNT(*) AS total_roles,
			COUNT(*) FILTER (WHERE is_active) AS active_roles,
			COUNT(*) FILTER (WHERE NOT is_active) AS inactive_roles
		FROM roles`
	var args []any
	if realmID != nil {
		query += ` WHERE realm_id = $1`
		args = append(args, realmID.String())
	}

	var stats role.Stats
	row := r.db.QueryRowxContext(ctx, query, args...)
	if err := row.Scan(&stats.TotalRoles, &stats.ActiveRoles, &stats.InactiveRoles); err != nil {
		return nil, errx.Wrap(err, "failed to get role stats", errx.TypeInternal)
	}
	return &stats, nil
}

func (r *PostgresRoleRepository) ToggleStatus(ctx context.Context, id kernel.RoleID) (*role.Role, error) {
	query := `UPDATE roles SET is_active = NOT is_active, updated_at = NOW() WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id.String())
	if err != nil {
		return nil, errx.Wrap(err, "failed to toggle role status", errx.TypeInternal)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return nil, role.ErrRoleNotFound()
	}
	return r.FindByID(ctx, id)
}

// Delete removes the role; its assignments go with it through the
// user_roles cascade.
func (r *PostgresRoleRepository) Delete(ctx context.Context, id kernel.RoleID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM roles WHERE id = $1`, id.String())
	if err != nil {
		return errx.Wrap(err, "failed to delete role", errx.TypeInternal).WithDetail("role_id", id)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errx.Wrap(err, "failed to get rows affected on delete", errx.TypeInternal)
	}
	if rowsAffected == 0 {
		return role.ErrRoleNotFound()
	}
	return nil
}

func (r *PostgresRoleRepository) Assign(ctx context.Context, userID kernel.UserID, roleID kernel.RoleID) error {
	query := `
		INSERT INTO user_roles (user_id, role_id, assigned_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (user_id, role_id) DO NOTHING`

	if _, err := r.db.ExecContext(ctx, query, userID.String(), roleID.String()); err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23503" {
			return errx.NotFound("User or role not found").
				WithDetail("user_id", userID).
				WithDetail("role_id", roleID)
		}
		return errx.Wrap(err, "failed to assign role", errx.TypeInternal)
	}
	return nil
}

func (r *PostgresRoleRepository) Unassign(ctx context.Context, userID kernel.UserID, roleID kernel.RoleID) error {
	query := `DELETE FROM user_roles WHERE user_id = $1 AND role_id = $2`
	result, err := r.db.ExecContext(ctx, query, userID.String(), roleID.String())
	if err != nil {
		return errx.Wrap(err, "failed to remove role assignment", errx.TypeInternal)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return role.ErrAssignmentMissing().
			WithDetail("user_id", userID).
			WithDetail("role_id", roleID)
	}
	return nil
}

func (r *PostgresRoleRepository) ActiveRolesForUser(ctx context.Context, userID kernel.UserID) ([]*role.Role, error) {
	query := selectRole + `
		JOIN user_roles ur ON ur.role_id = r.id
		WHERE ur.user_id = $1 AND r.is_active = true
		ORDER BY r.name`

	var rows []rolePersistence
	if err := r.db.SelectContext(ctx, &rows, query, userID.String()); err != nil {
		return nil, errx.Wrap(err, "failed to load user roles", errx.TypeInternal).
			WithDetail("user_id", userID)
	}
	return toDomainSlice(rows), nil
}

func (r *PostgresRoleRepository) Members(ctx context.Context, roleID kernel.RoleID) ([]role.Member, error) {
	query := `
		SELECT u.id, u.email, u.first_name, u.last_name, u.is_active, u.is_super_user, ur.assigned_at
		FROM users u
		JOIN user_roles ur ON ur.user_id = u.id
		WHERE ur.role_id = $1
		ORDER BY u.email`

	var rows []memberPersistence
	if err := r.db.SelectContext(ctx, &rows, query, roleID.String()); err != nil {
		return nil, errx.Wrap(err, "failed to list role users", errx.TypeInternal)
	}

	members := make([]role.Member, 0, len(rows))
	for _, m := range rows {
		members = append(members, role.Member{
			UserID:      kernel.NewUserID(m.ID),
			Email:       m.Email,
			FirstName:   m.FirstName,
			LastName:    m.LastName,
			IsActive:    m.IsActive,
			IsSuperUser: m.IsSuperUser,
			AssignedAt:  m.AssignedAt,
		})
	}
	return members, nil
}

func (r *PostgresRoleRepository) roleExists(ctx context.Context, id kernel.RoleID) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM roles WHERE id = $1)`
	if err := r.db.GetContext(ctx, &exists, query, id.String()); err != nil {
		return false, errx.Wrap(err, "failed to check role existence", errx.TypeInternal)
	}
	return exists, nil
}

// ============================================================================
// Persistence structs
// ============================================================================

type rolePersistence struct {
	ID          string             `db:"id"`
	RealmID     string             `db:"realm_id"`
	RealmName   sql.NullString     `db:"realm_name"`
	Name        string             `db:"name"`
	Description sql.NullString     `db:"description"`
	Access      role.AccessModules `db:"access"`
	IsActive    bool               `db:"is_active"`
	CreatedAt   time.Time          `db:"created_at"`
	UpdatedAt   time.Time          `db:"updated_at"`
}

type memberPersistence struct {
	ID          string    `db:"id"`
	Email       string    `db:"email"`
	FirstName   string    `db:"first_name"`
	LastName    string    `db:"last_name"`
	IsActive    bool      `db:"is_active"`
	IsSuperUser bool      `db:"is_super_user"`
	AssignedAt  time.Time `db:"assigned_at"`
}

func toPersistence(rl role.Role) rolePersistence {
	return rolePersistence{
		ID:          rl.ID.String(),
		RealmID:     rl.RealmID.String(),
		Name:        rl.Name,
		Description: sql.NullString{String: rl.Description, Valid: rl.Description != ""},
		Access:      rl.Access,
		IsActive:    rl.IsActive,
		CreatedAt:   rl.CreatedAt,
		UpdatedAt:   rl.UpdatedAt,
	}
}

func toDomain(p rolePersistence) role.Role {
	access := p.Access
	if access == nil {
		access = role.AccessModules{}
	}
	return role.Role{
		ID:          kernel.NewRoleID(p.ID),
		RealmID:     kernel.NewRealmID(p.RealmID),
		RealmName:   p.RealmName.String,
		Name:        p.Name,
		Description: p.Description.String,
		Access:      access,
		IsActive:    p.IsActive,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func toDomainSlice(rows []rolePersistence) []*role.Role {
	out := make([]*role.Role, 0, len(rows))
	for _, row := range rows {
		rl := toDomain(row)
		out = append(out, &rl)
	}
	return out
}
