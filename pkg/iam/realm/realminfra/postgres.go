package realminfra

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/Abraxas-365/authbuilder/pkg/errx"
	"github.com/Abraxas-365/authbuilder/pkg/iam/realm"
	"github.com/Abraxas-365/authbuilder/pkg/kernel"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// PostgresRealmRepository implements realm.Repository on PostgreSQL.
type PostgresRealmRepository struct {
	db *sqlx.DB
}

func NewPostgresRealmRepository(db *sqlx.DB) realm.Repository {
	return &PostgresRealmRepository{db: db}
}

// Save inserts or updates a realm.
func (r *PostgresRealmRepository) Save(ctx context.Context, rl realm.Realm) error {
	exists, err := r.realmExists(ctx, rl.ID)
	if err != nil {
		return errx.Wrap(err, "failed to check realm existence", errx.TypeInternal)
	}

	if exists {
		return r.update(ctx, rl)
	}
	return r.create(ctx, rl)
}

func (r *PostgresRealmRepository) create(ctx context.Context, rl realm.Realm) error {
	query := `
		INSERT INTO realms (id, name, description, is_active, created_at, updated_at)
		VALUES (:id, :name, :description, :is_active, :created_at, :updated_at)`

	_, err := r.db.NamedExecContext(ctx, query, toPersistence(rl))
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" { // unique_violation on name
			return realm.ErrNameExists().WithDetail("name", rl.Name)
		}
		return errx.Wrap(err, "failed to create realm", errx.TypeInternal).
			WithDetail("realm_id", rl.ID)
	}
	return nil
}

func (r *PostgresRealmRepository) update(ctx context.Context, rl realm.Realm) error {
	query := `
		UPDATE realms SET
			name = :name,
			description = :description,
			is_active = :is_active,
			updated_at = :updated_at
		WHERE id = :id`

	result, err := r.db.NamedExecContext(ctx, query, toPersistence(rl))
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return realm.ErrNameExists().WithDetail("name", rl.Name)
		}
		return errx.Wrap(err, "failed to update realm", errx.TypeInternal).
			WithDetail("realm_id", rl.ID)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errx.Wrap(err, "failed to get rows affected on update", errx.TypeInternal)
	}
	if rowsAffected == 0 {
		return realm.ErrRealmNotFound()
	}
	return nil
}

func (r *PostgresRealmRepository) FindByID(ctx context.Context, id kernel.RealmID) (*realm.Realm, error) {
	var row realmPersistence
	query := `SELECT id, name, description, is_active, created_at, updated_at FROM realms WHERE id = $1`
	if err := r.db.GetContext(ctx, &row, query, id.String()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, realm.ErrRealmNotFound()
		}
		return nil, errx.Wrap(err, "failed to find realm by ID", errx.TypeInternal)
	}
	rl := toDomain(row)
	return &rl, nil
}

func (r *PostgresRealmRepository) FindByName(ctx context.Context, name string) (*realm.Realm, error) {
	var row realmPersistence
	query := `SELECT id, name, description, is_active, created_at, updated_at FROM realms WHERE name = $1`
	if err := r.db.GetContext(ctx, &row, query, name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, realm.ErrRealmNotFound()
		}
		return nil, errx.Wrap(err, "failed to find realm by name", errx.TypeInternal)
	}
	rl := toDomain(row)
	return &rl, nil
}

// FindAllWithStats lists realms, newest first, with counts of their active
// clients, users and roles.
func (r *PostgresRealmRepository) FindAllWithStats(ctx context.Context) ([]*realm.RealmWithStats, error) {
	var rows []realmStatsPersistence
	query := `
		SELECT
			r.id, r.name, r.description, r.is_active, r.created_at, r.updated_at,
			(SELECT COUNT(*) FROM clients c WHERE c.realm_id = r.id AND c.is_active) AS client_count,
			(SELECT COUNT(*) FROM users u WHERE u.realm_id = r.id AND u.is_active) AS user_count,
			(SELECT COUNT(*) FROM roles ro WHERE ro.realm_id = r.id AND ro.is_active) AS role_count
		FROM realms r
		ORDER BY r.created_at DESC`
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, errx.Wrap(err, "failed to list realms", errx.TypeInternal)
	}

	out := make([]*realm.RealmWithStats, 0, len(rows))
	for _, row := range rows {
		out = append(out, &realm.RealmWithStats{
			Realm: toDomain(row.realmPersistence),
			Stats: row.stats(),
		})
	}
	return out, nil
}

func (r *PostgresRealmRepository) Stats(ctx context.Context, id kernel.RealmID) (*realm.Stats, error) {
	var row statsPersistence
	query := `
		SELECT
			(SELECT COUNT(*) FROM clients WHERE realm_id = $1 AND is_active) AS client_count,
			(SELECT COUNT(*) FROM users WHERE realm_id = $1 AND is_active) AS user_count,
			(SELECT COUNT(*) FROM roles WHERE realm_id = $1 AND is_active) AS role_count`
	if err := r.db.GetContext(ctx, &row, query, id.String()); err != nil {
		return nil, errx.Wrap(err, "failed to get realm stats", errx.TypeInternal).
			WithDetail("realm_id", id)
	}
	stats := row.stats()
	return &stats, nil
}

func (r *PostgresRealmRepository) Dependencies(ctx context.Context, id kernel.RealmID) (realm.Dependencies, error) {
	var row struct {
		Clients int `db:"clients"`
		Users   int `db:"users"`
		Roles   int `db:"roles"`
	}
	query := `
		SELECT
			(SELECT COUNT(*) FROM clients WHERE realm_id = $1) AS clients,
			(SELECT COUNT(*) FROM users WHERE realm_id = $1) AS users,
			(SELECT COUNT(*) FROM roles WHERE realm_id = $1) AS roles`
	if err := r.db.GetContext(ctx, &row, query, id.String()); err != nil {
		return realm.Dependencies{}, errx.Wrap(err, "failed to count realm dependencies", errx.TypeInternal)
	}
	return realm.Dependencies{Clients: row.Clients, Users: row.Users, Roles: row.Roles}, nil
}

func (r *PostgresRealmRepository) ToggleStatus(ctx context.Context, id kernel.RealmID) (*realm.Realm, error) {
	var row realmPersistence
	query := `
		UPDATE realms SET is_active = NOT is_active, updated_at = NOW()
		WHERE id = $1
		RETURNING id, name, description, is_active, created_at, updated_at`
	if err := r.db.GetContext(ctx, &row, query, id.String()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, realm.ErrRealmNotFound()
		}
		return nil, errx.Wrap(err, "failed to toggle realm status", errx.TypeInternal)
	}
	rl := toDomain(row)
	return &rl, nil
}

// Delete removes a realm. A foreign key violation means a dependent row was
// inserted after the caller's dependency check.
func (r *PostgresRealmRepository) Delete(ctx context.Context, id kernel.RealmID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM realms WHERE id = $1`, id.String())
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23503" { // foreign_key_violation
			return realm.ErrHasDependencies().WithDetail("realm_id", id)
		}
		return errx.Wrap(err, "failed to delete realm", errx.TypeInternal)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errx.Wrap(err, "failed to get rows affected on delete", errx.TypeInternal)
	}
	if rowsAffected == 0 {
		return realm.ErrRealmNotFound()
	}
	return nil
}

func (r *PostgresRealmRepository) realmExists(ctx context.Context, id kernel.RealmID) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM realms WHERE id = $1)`
	if err := r.db.GetContext(ctx, &exists, query, id.String()); err != nil {
		return false, errx.Wrap(err, "failed to check realm existence", errx.TypeInternal)
	}
	return exists, nil
}

// ============================================================================
// Persistence structs
// ============================================================================

type realmPersistence struct {
	ID          string         `db:"id"`
	Name        string         `db:"name"`
	Description sql.NullString `db:"description"`
	IsActive    bool           `db:"is_active"`
	CreatedAt   time.Time      `db:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at"`
}

type statsPersistence struct {
	ClientCount int `db:"client_count"`
	UserCount   int `db:"user_count"`
	RoleCount   int `db:"role_count"`
}

func (s statsPersistence) stats() realm.Stats {
	return realm.Stats{ClientCount: s.ClientCount, UserCount: s.UserCount, RoleCount: s.RoleCount}
}

type realmStatsPersistence struct {
	realmPersistence
	statsPersistence
}

func toPersistence(rl realm.Realm) realmPersistence {
	return realmPersistence{
		ID:          rl.ID.String(),
		Name:        rl.Name,
		Description: sql.NullString{String: rl.Description, Valid: rl.Description != ""},
		IsActive:    rl.IsActive,
		CreatedAt:   rl.CreatedAt,
		UpdatedAt:   rl.UpdatedAt,
	}
}

func toDomain(p realmPersistence) realm.Realm {
	return realm.Realm{
		ID:          kernel.NewRealmID(p.ID),
		Name:        p.Name,
		Description: p.Description.String,
		IsActive:    p.IsActive,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}
