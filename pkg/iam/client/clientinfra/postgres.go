package clientinfra

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/Abraxas-365/authbuilder/pkg/errx"
	"github.com/Abraxas-365/authbuilder/pkg/iam/client"
	"github.com/Abraxas-365/authbuilder/pkg/kernel"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// PostgresClientRepository implements client.Repository on PostgreSQL.
type PostgresClientRepository struct {
	db *sqlx.DB
}

func NewPostgresClientRepository(db *sqlx.DB) client.Repository {
	return &PostgresClientRepository{db: db}
}

const selectClient = `
	SELECT c.id, c.realm_id, r.name AS realm_name, c.name, c.description,
		c.client_id, c.client_secret, c.endpoints, c.redirect_urls,
		c.sso_enabled, c.twofa_enabled, c.smtp_config, c.is_active,
		c.created_at, c.updated_at
	FROM clients c
	JOIN realms r ON r.id = c.realm_id`

func (r *PostgresClientRepository) Save(ctx context.Context, c client.Client) error {
	exists, err := r.clientExists(ctx, c.ID)
	if err != nil {
		return errx.Wrap(err, "failed to check client existence", errx.TypeInternal)
	}

	if exists {
		return r.update(ctx, c)
	}
	return r.create(ctx, c)
}

func (r *PostgresClientRepository) create(ctx context.Context, c client.Client) error {
	query := `
		INSERT INTO clients (
			id, realm_id, name, description, client_id, client_secret,
			endpoints, redirect_urls, sso_enabled, twofa_enabled, smtp_config,
			is_active, created_at, updated_at
		) VALUES (
			:id, :realm_id, :name, :description, :client_id, :client_secret,
			:endpoints, :redirect_urls, :sso_enabled, :twofa_enabled, :smtp_config,
			:is_active, :created_at, :updated_at
		)`

	if _, err := r.db.NamedExecContext(ctx, query, toPersistence(c)); err != nil {
		return mapWriteError(err, c, "failed to create client")
	}
	return nil
}

func (r *PostgresClientRepository) update(ctx context.Context, c client.Client) error {
	query := `
		UPDATE clients SET
			name = :name,
			description = :description,
			endpoints = :endpoints,
			redirect_urls = :redirect_urls,
			sso_enabled = :sso_enabled,
			twofa_enabled = :twofa_enabled,
			smtp_config = :smtp_config,
			is_active = :is_active,
			updated_at = :updated_at
		WHERE id = :id`

	result, err := r.db.NamedExecContext(ctx, query, toPersistence(c))
	if err != nil {
		return mapWriteError(err, c, "failed to update client")
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errx.Wrap(err, "failed to get rows affected on update", errx.TypeInternal)
	}
	if rowsAffected == 0 {
		return client.ErrClientNotFound()
	}
	return nil
}

func mapWriteError(err error, c client.Client, message string) error {
	if pqErr, ok := err.(*pq.Error); ok {
		switch pqErr.Code {
		case "23505": // unique_violation on (realm_id, name)
			return client.ErrNameExists().WithDetail("name", c.Name)
		case "23503": // foreign_key_violation on realm_id
			return errx.NotFound("Realm not found").WithDetail("realm_id", c.RealmID)
		}
	}
	return errx.Wrap(err, message, errx.TypeInternal).WithDetail("client_id", c.ID)
}

func (r *PostgresClientRepository) FindByID(ctx context.Context, id kernel.ClientID) (*client.Client, error) {
	return r.findOne(ctx, selectClient+` WHERE c.id = $1`, id.String())
}

func (r *PostgresClientRepository) FindByPublicID(ctx context.Context, publicID string) (*client.Client, error) {
	return r.findOne(ctx, selectClient+` WHERE c.client_id = $1`, publicID)
}

func (r *PostgresClientRepository) FindByNameInRealm(ctx context.Context, realmID kernel.RealmID, name string) (*client.Client, error) {
	return r.findOne(ctx, selectClient+` WHERE c.realm_id = $1 AND c.name = $2`, realmID.String(), name)
}

func (r *PostgresClientRepository) findOne(ctx context.Context, query string, args ...any) (*client.Client, error) {
	var row clientPersistence
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, client.ErrClientNotFound()
		}
		return nil, errx.Wrap(err, "failed to find client", errx.TypeInternal)
	}
	c := toDomain(row)
	return &c, nil
}

func (r *PostgresClientRepository) FindAll(ctx context.Context, realmID *kernel.RealmID) ([]*client.Client, error) {
	var (
		rows  []clientPersistence
		query = selectClient
		args  []any
	)
	if realmID != nil {
		query += ` WHERE c.realm_id = $1`
		args = append(args, realmID.String())
	}
	query += ` ORDER BY c.created_at DESC`

	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errx.Wrap(err, "failed to list clients", errx.TypeInternal)
	}
	return toDomainSlice(rows), nil
}

// ToggleStatus flips is_active and re-reads the row with its realm name.
func (r *PostgresClientRepository) ToggleStatus(ctx context.Context, id kernel.ClientID) (*client.Client, error) {
	query := `UPDATE clients SET is_active = NOT is_active, updated_at = NOW() WHERE id = $1`
	if err := r.execOne(ctx, query, id.String()); err != nil {
		return nil, err
	}
	return r.FindByID(ctx, id)
}

func (r *PostgresClientRepository) UpdateSecret(ctx context.Context, id kernel.ClientID, secret string) (*client.Client, error) {
	query := `UPDATE clients SET client_secret = $1, updated_at = NOW() WHERE id = $2`
	if err := r.execOne(ctx, query, secret, id.String()); err != nil {
		return nil, err
	}
	return r.FindByID(ctx, id)
}

func (r *PostgresClientRepository) Stats(ctx context.Context, realmID *kernel.RealmID) (*client.Stats, error) {
	var (
		row   statsPersistence
		query = `
			SELECT
				COUNT(*) AS total_clients,
				COUNT(*) FILTER (WHERE is_active) AS active_clients,
				COUNT(*) FILTER (WHERE sso_enabled) AS sso_enabled_clients,
				COUNT(*) FILTER (WHERE twofa_enabled) AS twofa_enabled_clients
			FROM clients`
		args []any
	)
	if realmID != nil {
		query += ` WHERE realm_id = $1`
		args = append(args, realmID.String())
	}

	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		return nil, errx.Wrap(err, "failed to get client stats", errx.TypeInternal)
	}
	return &client.Stats{
		TotalClients:        row.TotalClients,
		ActiveClients:       row.ActiveClients,
		SSOEnabledClients:   row.SSOEnabledClients,
		TwoFAEnabledClients: row.TwoFAEnabledClients,
	}, nil
}

func (r *PostgresClientRepository) Delete(ctx context.Context, id kernel.ClientID) error {
	return r.execOne(ctx, `DELETE FROM clients WHERE id = $1`, id.String())
}

func (r *PostgresClientRepository) execOne(ctx context.Context, query string, args ...any) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return errx.Wrap(err, "failed to write client", errx.TypeInternal)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errx.Wrap(err, "failed to get rows affected", errx.TypeInternal)
	}
	if rowsAffected == 0 {
		return client.ErrClientNotFound()
	}
	return nil
}

func (r *PostgresClientRepository) clientExists(ctx context.Context, id kernel.ClientID) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM clients WHERE id = $1)`
	if err := r.db.GetContext(ctx, &exists, query, id.String()); err != nil {
		return false, errx.Wrap(err, "failed to check client existence", errx.TypeInternal)
	}
	return exists, nil
}

// ============================================================================
// Persistence structs
// ============================================================================

type clientPersistence struct {
	ID           string             `db:"id"`
	RealmID      string             `db:"realm_id"`
	RealmName    sql.NullString     `db:"realm_name"`
	Name         string             `db:"name"`
	Description  sql.NullString     `db:"description"`
	PublicID     string             `db:"client_id"`
	Secret       string             `db:"client_secret"`
	Endpoints    client.Endpoints   `db:"endpoints"`
	RedirectURLs pq.StringArray     `db:"redirect_urls"`
	SSOEnabled   bool               `db:"sso_enabled"`
	TwoFAEnabled bool               `db:"twofa_enabled"`
	SMTPConfig   *client.SMTPConfig `db:"smtp_config"`
	IsActive     bool               `db:"is_active"`
	CreatedAt    time.Time          `db:"created_at"`
	UpdatedAt    time.Time          `db:"updated_at"`
}

type statsPersistence struct {
	TotalClients        int `db:"total_clients"`
	ActiveClients       int `db:"active_clients"`
	SSOEnabledClients   int `db:"sso_enabled_clients"`
	TwoFAEnabledClients int `db:"twofa_enabled_clients"`
}

func toPersistence(c client.Client) clientPersistence {
	redirects := c.RedirectURLs
	if redirects == nil {
		redirects = []string{}
	}
	return clientPersistence{
		ID:           c.ID.String(),
		RealmID:      c.RealmID.String(),
		Name:         c.Name,
		Description:  sql.NullString{String: c.Description, Valid: c.Description != ""},
		PublicID:     c.PublicID,
		Secret:       c.Secret,
		Endpoints:    c.Endpoints,
		RedirectURLs: pq.StringArray(redirects),
		SSOEnabled:   c.SSOEnabled,
		TwoFAEnabled: c.TwoFAEnabled,
		SMTPConfig:   c.SMTPConfig,
		IsActive:     c.IsActive,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	}
}

func toDomain(p clientPersistence) client.Client {
	redirects := []string(p.RedirectURLs)
	if redirects == nil {
		redirects = []string{}
	}
	return client.Client{
		ID:           kernel.NewClientID(p.ID),
		RealmID:      kernel.NewRealmID(p.RealmID),
		RealmName:    p.RealmName.String,
		Name:         p.Name,
		Description:  p.Description.String,
		PublicID:     p.PublicID,
		Secret:       p.Secret,
		Endpoints:    p.Endpoints,
		RedirectURLs: redirects,
		SSOEnabled:   p.SSOEnabled,
		TwoFAEnabled: p.TwoFAEnabled,
		SMTPConfig:   p.SMTPConfig,
		IsActive:     p.IsActive,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
}

func toDomainSlice(rows []clientPersistence) []*client.Client {
	out := make([]*client.Client, 0, len(rows))
	for _, row := range rows {
		c := toDomain(row)
		out = append(out, &c)
	}
	return out
}
