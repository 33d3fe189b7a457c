package tokeninfra

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/Abraxas-365/authbuilder/pkg/errx"
	"github.com/Abraxas-365/authbuilder/pkg/iam/token"
	"github.com/Abraxas-365/authbuilder/pkg/kernel"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// PostgresTokenRepository implements token.Repository on PostgreSQL.
type PostgresTokenRepository struct {
	db *sqlx.DB
}

func NewPostgresTokenRepository(db *sqlx.DB) token.Repository {
	return &PostgresTokenRepository{db: db}
}

// tokenColumns expects the tokens row aliased as t and users joined as u.
const tokenColumns = `
	t.id, t.user_id, t.client_id, t.realm_id,
	t.access_token_hash, t.refresh_token_hash, t.expires_at, t.refresh_expires_at,
	COALESCE(u.is_super_user, t.is_super_user) AS is_super_user,
	t.is_client_session, t.is_active, t.created_at, t.last_used_at, t.revoked_at,
	COALESCE(u.email, '') AS email`

const selectToken = `SELECT` + tokenColumns + `
	FROM tokens t
	LEFT JOIN users u ON u.id = t.user_id`

func (r *PostgresTokenRepository) Create(ctx context.Context, t token.Token) error {
	query := `
		INSERT INTO tokens (
			id, user_id, client_id, realm_id, access_token_hash, refresh_token_hash,
			expires_at, refresh_expires_at, is_super_user, is_client_session,
			is_active, created_at
		) VALUES (
			:id, :user_id, :client_id, :realm_id, :access_token_hash, :refresh_token_hash,
			:expires_at, :refresh_expires_at, :is_super_user, :is_client_session,
			:is_active, :created_at
		)`

	if _, err := r.db.NamedExecContext(ctx, query, toPersistence(t)); err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23503" {
			return errx.NotFound("Token subject not found").WithDetail("token_id", t.ID)
		}
		return errx.Wrap(err, "failed to create token", errx.TypeInternal)
	}
	return nil
}

func (r *PostgresTokenRepository) FindActiveByAccessHash(ctx context.Context, hash string) (*token.Token, error) {
	return r.findOne(ctx, selectToken+` WHERE t.access_token_hash = $1 AND t.is_active = true`, hash)
}

func (r *PostgresTokenRepository) FindActiveByRefreshHash(ctx context.Context, hash string) (*token.Token, error) {
	return r.findOne(ctx, selectToken+` WHERE t.refresh_token_hash = $1 AND t.is_active = true`, hash)
}

func (r *PostgresTokenRepository) findOne(ctx context.Context, query string, args ...any) (*token.Token, error) {
	var row tokenPersistence
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, token.ErrTokenNotFound()
		}
		return nil, errx.Wrap(err, "failed to find token", errx.TypeInternal)
	}
	t := toDomain(row)
	return &t, nil
}

func (r *PostgresTokenRepository) FindActiveByUser(ctx context.Context, userID kernel.UserID) ([]*token.Token, error) {
	var rows []tokenPersistence
	query := selectToken + ` WHERE t.user_id = $1 AND t.is_active = true ORDER BY t.created_at DESC`
	if err := r.db.SelectContext(ctx, &rows, query, userID.String()); err != nil {
		return nil, errx.Wrap(err, "failed to list tokens", errx.TypeInternal)
	}

	tokens := make([]*token.Token, len(rows))
	for i, row := range rows {
		t := toDomain(row)
		tokens[i] = &t
	}
	return tokens, nil
}

func (r *PostgresTokenRepository) RotateAccess(ctx context.Context, refreshHash, accessHash string, expiresAt, now time.Time) (*token.Token, error) {
	query := `
		WITH t AS (
			UPDATE tokens
			SET access_token_hash = $2, expires_at = $3, last_used_at = $4
			WHERE refresh_token_hash = $1 AND is_active = true AND refresh_expires_at > $4
			RETURNING *
		)
		SELECT` + tokenColumns + `
		FROM t
		LEFT JOIN users u ON u.id = t.user_id`

	return r.findOne(ctx, query, refreshHash, accessHash, expiresAt, now)
}

func (r *PostgresTokenRepository) Extend(ctx context.Context, accessHash string, expiresAt, now time.Time) error {
	query := `
		UPDATE tokens
		SET expires_at = $2, last_used_at = $3
		WHERE access_token_hash = $1 AND is_active = true AND expires_at > $3`

	return r.execOne(ctx, "failed to extend token", query, accessHash, expiresAt, now)
}

func (r *PostgresTokenRepository) RevokeByAccessHash(ctx context.Context, accessHash string, now time.Time) error {
	query := `
		UPDATE tokens
		SET is_active = false, revoked_at = $2
		WHERE access_token_hash = $1 AND is_active = true`

	return r.execOne(ctx, "failed to revoke token", query, accessHash, now)
}

func (r *PostgresTokenRepository) execOne(ctx context.Context, message, query string, args ...any) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return errx.Wrap(err, message, errx.TypeInternal)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errx.Wrap(err, "failed to get rows affected", errx.TypeInternal)
	}
	if rowsAffected == 0 {
		return token.ErrTokenNotFound()
	}
	return nil
}

func (r *PostgresTokenRepository) RevokeAllForUser(ctx context.Context, userID kernel.UserID, now time.Time) (int64, error) {
	query := `
		UPDATE tokens
		SET is_active = false, revoked_at = $2
		WHERE user_id = $1 AND is_active = true`

	return r.execMany(ctx, "failed to revoke user tokens", query, userID.String(), now)
}

func (r *PostgresTokenRepository) DeactivateExpired(ctx context.Context, now time.Time) (int64, error) {
	query := `
		UPDATE tokens
		SET is_active = false
		WHERE is_active = true AND expires_at < $1`

	return r.execMany(ctx, "failed to deactivate expired tokens", query, now)
}

func (r *PostgresTokenRepository) execMany(ctx context.Context, message, query string, args ...any) (int64, error) {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, errx.Wrap(err, message, errx.TypeInternal)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, errx.Wrap(err, "failed to get rows affected", errx.TypeInternal)
	}
	return n, nil
}

// ============================================================================
// Persistence mapping
// ============================================================================

type tokenPersistence struct {
	ID               string     `db:"id"`
	UserID           *string    `db:"user_id"`
	ClientID         *string    `db:"client_id"`
	RealmID          *string    `db:"realm_id"`
	AccessTokenHash  string     `db:"access_token_hash"`
	RefreshTokenHash string     `db:"refresh_token_hash"`
	ExpiresAt        time.Time  `db:"expires_at"`
	RefreshExpiresAt time.Time  `db:"refresh_expires_at"`
	IsSuperUser      bool       `db:"is_super_user"`
	IsClientSession  bool       `db:"is_client_session"`
	IsActive         bool       `db:"is_active"`
	CreatedAt        time.Time  `db:"created_at"`
	LastUsedAt       *time.Time `db:"last_used_at"`
	RevokedAt        *time.Time `db:"revoked_at"`
	Email            string     `db:"email"`
}

func toPersistence(t token.Token) tokenPersistence {
	p := tokenPersistence{
		ID:               t.ID.String(),
		AccessTokenHash:  t.AccessTokenHash,
		RefreshTokenHash: t.RefreshTokenHash,
		ExpiresAt:        t.ExpiresAt,
		RefreshExpiresAt: t.RefreshExpiresAt,
		IsSuperUser:      t.IsSuperUser,
		IsClientSession:  t.IsClientSession,
		IsActive:         t.IsActive,
		CreatedAt:        t.CreatedAt,
		LastUsedAt:       t.LastUsedAt,
		RevokedAt:        t.RevokedAt,
	}
	if t.UserID != nil {
		id := t.UserID.String()
		p.UserID = &id
	}
	if t.ClientID != nil {
		id := t.ClientID.String()
		p.ClientID = &id
	}
	if t.RealmID != nil {
		id := t.RealmID.String()
		p.RealmID = &id
	}
	return p
}

func toDomain(p tokenPersistence) token.Token {
	t := token.Token{
		ID:               kernel.TokenID(p.ID),
		AccessTokenHash:  p.AccessTokenHash,
		RefreshTokenHash: p.RefreshTokenHash,
		ExpiresAt:        p.ExpiresAt,
		RefreshExpiresAt: p.RefreshExpiresAt,
		IsSuperUser:      p.IsSuperUser,
		IsClientSession:  p.IsClientSession,
		IsActive:         p.IsActive,
		CreatedAt:        p.CreatedAt,
		LastUsedAt:       p.LastUsedAt,
		RevokedAt:        p.RevokedAt,
		Email:            p.Email,
	}
	if p.UserID != nil {
		id := kernel.NewUserID(*p.UserID)
		t.UserID = &id
	}
	if p.ClientID != nil {
		id := kernel.NewClientID(*p.ClientID)
		t.ClientID = &id
	}
	if p.RealmID != nil {
		id := kernel.NewRealmID(*p.RealmID)
		t.RealmID = &id
	}
	return t
}
