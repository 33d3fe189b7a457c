package userinfra

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Abraxas-365/authbuilder/pkg/errx"
	"github.com/Abraxas-365/authbuilder/pkg/iam/user"
	"github.com/Abraxas-365/authbuilder/pkg/kernel"
	"github.com/Abraxas-365/authbuilder/pkg/logx"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// PostgresUserRepository implements user.Repository on PostgreSQL.
type PostgresUserRepository struct {
	db *sqlx.DB
}

func NewPostgresUserRepository(db *sqlx.DB) user.Repository {
	return &PostgresUserRepository{db: db}
}

const selectUser = `
	SELECT
		u.id, u.email, u.password_hash, u.first_name, u.last_name,
		u.is_super_user, u.realm_id, rl.name AS realm_name,
		u.client_id, c.name AS client_name, u.is_active,
		u.created_at, u.updated_at,
		COALESCE(
			json_agg(
				json_build_object('id', r.id, 'name', r.name, 'description', r.description)
				ORDER BY r.name
			) FILTER (WHERE r.id IS NOT NULL),
			'[]'::json
		) AS roles
	FROM users u
	LEFT JOIN realms rl ON rl.id = u.realm_id
	LEFT JOIN clients c ON c.id = u.client_id
	LEFT JOIN user_roles ur ON ur.user_id = u.id
	LEFT JOIN roles r ON r.id = ur.role_id`

const groupUser = ` GROUP BY u.id, rl.name, c.name`

func (r *PostgresUserRepository) Save(ctx context.Context, u user.User) error {
	exists, err := r.userExists(ctx, u.ID)
	if err != nil {
		return err
	}

	if exists {
		return r.update(ctx, u)
	}
	return r.create(ctx, u)
}

func (r *PostgresUserRepository) create(ctx context.Context, u user.User) error {
	query := `
		INSERT INTO users (
			id, email, password_hash, first_name, last_name, is_super_user,
			realm_id, client_id, is_active, created_at, updated_at
		) VALUES (
			:id, :email, :password_hash, :first_name, :last_name, :is_super_user,
			:realm_id, :client_id, :is_active, :created_at, :updated_at
		)`

	if _, err := r.db.NamedExecContext(ctx, query, toPersistence(u)); err != nil {
		return mapWriteError(err, u, "failed to create user")
	}
	return nil
}

// update never touches password_hash; see UpdatePassword.
func (r *PostgresUserRepository) update(ctx context.Context, u user.User) error {
	query := `
		UPDATE users SET
			first_name = :first_name,
			last_name = :last_name,
			is_super_user = :is_super_user,
			realm_id = :realm_id,
			client_id = :client_id,
			is_active = :is_active,
			updated_at = :updated_at
		WHERE id = :id`

	result, err := r.db.NamedExecContext(ctx, query, toPersistence(u))
	if err != nil {
		return mapWriteError(err, u, "failed to update user")
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errx.Wrap(err, "failed to get rows affected on update", errx.TypeInternal)
	}
	if rowsAffected == 0 {
		return user.ErrUserNotFound()
	}
	return nil
}

func mapWriteError(err error, u user.User, message string) error {
	if pqErr, ok := err.(*pq.Error); ok {
		switch pqErr.Code {
		case "23505":
			return user.ErrEmailExists().WithDetail("email", u.Email)
		case "23503":
			return errx.NotFound("Realm or client not found").WithDetail("constraint", pqErr.Constraint)
		case "23514":
			return user.ErrRealmRequired()
		}
	}
	return errx.Wrap(err, message, errx.TypeInternal).WithDetail("user_id", u.ID)
}

func (r *PostgresUserRepository) FindByID(ctx context.Context, id kernel.UserID) (*user.User, error) {
	return r.findOne(ctx, selectUser+` WHERE u.id = $1`+groupUser, id.String())
}

func (r *PostgresUserRepository) FindByEmail(ctx context.Context, email string) (*user.User, error) {
	return r.findOne(ctx, selectUser+` WHERE LOWER(u.email) = $1`+groupUser, user.NormalizeEmail(email))
}

func (r *PostgresUserRepository) findOne(ctx context.Context, query string, args ...any) (*user.User, error) {
	var row userPersistence
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, user.ErrUserNotFound()
		}
		return nil, errx.Wrap(err, "failed to find user", errx.TypeInternal)
	}
	u := toDomain(row)
	return &u, nil
}

// filterClause renders the WHERE conditions shared by FindAll and Stats.
func filterClause(filter user.ListFilter, column func(string) string) (string, []any) {
	clause := ` WHERE 1=1`
	var args []any

	if filter.RealmID != nil {
		args = append(args, filter.RealmID.String())
		clause += fmt.Sprintf(` AND %s = $%d`, column("realm_id"), len(args))
	}
	if filter.ClientID != nil {
		args = append(args, filter.ClientID.String())
		clause += fmt.Sprintf(` AND %s = $%d`, column("client_id"), len(args))
	}
	if filter.IsSuperUser != nil {
		args = append(args, *filter.IsSuperUser)
		clause += fmt.Sprintf(` AND %s = $%d`, column("is_super_user"), len(args))
	}
	if filter.IsActive != nil {
		args = append(args, *filter.IsActive)
		clause += fmt.Sprintf(` AND %s = $%d`, column("is_active"), len(args))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		n := len(args)
		clause += fmt.Sprintf(` AND (%s ILIKE $%d OR %s ILIKE $%d OR %s ILIKE $%d)`,
			column("email"), n, column("first_name"), n, column("last_name"), n)
	}
	return clause, args
}

func (r *PostgresUserRepository) FindAll(ctx context.Context, filter user.ListFilter) ([]*user.User, error) {
	where, args := filterClause(filter, func(c string) string { return "u." + c })
	query := selectUser + where + groupUser + ` ORDER BY u.created_at DESC`

	var rows []userPersistence
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errx.Wrap(err, "failed to list users", errx.TypeInternal)
	}

	users := make([]*user.User, 0, len(rows))
	for _, row := range rows {
		u := toDomain(row)
		users = append(users, &u)
	}
	return users, nil
}

func (r *PostgresUserRepository) Stats(ctx context.Context, filter user.ListFilter) (*user.Stats, error) {
	where, args := filterClause(filter, func(c string) string { return c })
	query := `
		SELECT
			COUNT(*) AS total_users,
			COUNT(*) FILTER (WHERE is_super_user) AS super_users,
			COUNT(*) FILTER (WHERE NOT is_super_user) AS realm_users,
			COUNT(*) FILTER (WHERE is_active) AS active_users,
			COUNT(*) FILTER (WHERE NOT is_active) AS inactive_users
		FROM users` + where

	var stats user.Stats
	row := r.db.QueryRowxContext(ctx, query, args...)
	if err := row.Scan(&stats.TotalUsers, &stats.SuperUsers, &stats.RealmUsers, &stats.ActiveUsers, &stats.InactiveUsers); err != nil {
		return nil, errx.Wrap(err, "failed to get user stats", errx.TypeInternal)
	}
	return &stats, nil
}

func (r *PostgresUserRepository) UpdatePassword(ctx context.Context, id kernel.UserID, passwordHash string) error {
	query := `UPDATE users SET password_hash = $1, updated_at = NOW() WHERE id = $2`
	return r.execOne(ctx, query, passwordHash, id.String())
}

func (r *PostgresUserRepository) ToggleStatus(ctx context.Context, id kernel.UserID) (*user.User, error) {
	query := `UPDATE users SET is_active = NOT is_active, updated_at = NOW() WHERE id = $1`
	if err := r.execOne(ctx, query, id.String()); err != nil {
		return nil, err
	}
	return r.FindByID(ctx, id)
}

func (r *PostgresUserRepository) ReplaceRoles(ctx context.Context, id kernel.UserID, roleIDs []kernel.RoleID) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return errx.Wrap(err, "failed to begin transaction", errx.TypeInternal)
	}
	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			logx.WithError(err).Warn("Failed to roll back role replacement")
		}
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM user_roles WHERE user_id = $1`, id.String()); err != nil {
		return errx.Wrap(err, "failed to clear user roles", errx.TypeInternal).WithDetail("user_id", id)
	}

	for _, roleID := range roleIDs {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO user_roles (user_id, role_id, assigned_at)
			VALUES ($1, $2, NOW())
			ON CONFLICT (user_id, role_id) DO NOTHING`,
			id.String(), roleID.String())
		if err != nil {
			if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23503" {
				return errx.NotFound("Role not found").WithDetail("role_id", roleID)
			}
			return errx.Wrap(err, "failed to assign role", errx.TypeInternal).WithDetail("role_id", roleID)
		}
	}

	if err := tx.Commit(); err != nil {
		return errx.Wrap(err, "failed to commit role replacement", errx.TypeInternal)
	}
	return nil
}

func (r *PostgresUserRepository) Delete(ctx context.Context, id kernel.UserID) error {
	return r.execOne(ctx, `DELETE FROM users WHERE id = $1`, id.String())
}

func (r *PostgresUserRepository) execOne(ctx context.Context, query string, args ...any) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return errx.Wrap(err, "failed to write user", errx.TypeInternal)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errx.Wrap(err, "failed to get rows affected", errx.TypeInternal)
	}
	if rowsAffected == 0 {
		return user.ErrUserNotFound()
	}
	return nil
}

func (r *PostgresUserRepository) userExists(ctx context.Context, id kernel.UserID) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`
	if err := r.db.GetContext(ctx, &exists, query, id.String()); err != nil {
		return false, errx.Wrap(err, "failed to check user existence", errx.TypeInternal)
	}
	return exists, nil
}

// ============================================================================
// Persistence structs
// ============================================================================

type userPersistence struct {
	ID           string         `db:"id"`
	Email        string         `db:"email"`
	PasswordHash string         `db:"password_hash"`
	FirstName    string         `db:"first_name"`
	LastName     string         `db:"last_name"`
	IsSuperUser  bool           `db:"is_super_user"`
	RealmID      sql.NullString `db:"realm_id"`
	RealmName    sql.NullString `db:"realm_name"`
	ClientID     sql.NullString `db:"client_id"`
	ClientName   sql.NullString `db:"client_name"`
	IsActive     bool           `db:"is_active"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
	Roles        user.RoleRefs  `db:"roles"`
}

func toPersistence(u user.User) userPersistence {
	p := userPersistence{
		ID:           u.ID.String(),
		Email:        user.NormalizeEmail(u.Email),
		PasswordHash: u.PasswordHash,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		IsSuperUser:  u.IsSuperUser,
		IsActive:     u.IsActive,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
		Roles:        user.RoleRefs{},
	}
	if u.RealmID != nil && !u.RealmID.IsEmpty() {
		p.RealmID = sql.NullString{String: u.RealmID.String(), Valid: true}
	}
	if u.HasClient() {
		p.ClientID = sql.NullString{String: u.ClientID.String(), Valid: true}
	}
	return p
}

func toDomain(p userPersistence) user.User {
	u := user.User{
		ID:           kernel.NewUserID(p.ID),
		Email:        p.Email,
		PasswordHash: p.PasswordHash,
		FirstName:    p.FirstName,
		LastName:     p.LastName,
		IsSuperUser:  p.IsSuperUser,
		RealmName:    p.RealmName.String,
		ClientName:   p.ClientName.String,
		IsActive:     p.IsActive,
		Roles:        p.Roles,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
	if u.Roles == nil {
		u.Roles = user.RoleRefs{}
	}
	if p.RealmID.Valid {
		id := kernel.NewRealmID(p.RealmID.String)
		u.RealmID = &id
	}
	if p.ClientID.Valid {
		id := kernel.NewClientID(p.ClientID.String)
		u.ClientID = &id
	}
	return u
}
