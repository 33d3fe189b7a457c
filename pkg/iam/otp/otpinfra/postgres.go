package otpinfra

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/Abraxas-365/authbuilder/pkg/errx"
	"github.com/Abraxas-365/authbuilder/pkg/iam/otp"
	"github.com/Abraxas-365/authbuilder/pkg/kernel"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type PostgresOTPRepository struct {
	db *sqlx.DB
}

func NewPostgresOTPRepository(db *sqlx.DB) otp.Repository {
	return &PostgresOTPRepository{db: db}
}

func (r *PostgresOTPRepository) Create(ctx context.Context, o otp.OTP) error {
	query := `
		INSERT INTO otps (id, user_id, purpose, code_hash, expires_at, consumed, created_at)
		VALUES (:id, :user_id, :purpose, :code_hash, :expires_at, :consumed, :created_at)`

	if _, err := r.db.NamedExecContext(ctx, query, toPersistence(o)); err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23503" {
			return errx.NotFound("User not found").WithDetail("user_id", o.UserID)
		}
		return errx.Wrap(err, "failed to create OTP", errx.TypeInternal)
	}
	return nil
}

func (r *PostgresOTPRepository) FindLatestActive(ctx context.Context, userID kernel.UserID, purpose otp.Purpose, now time.Time) (*otp.OTP, error) {
	query := `
		SELECT id, user_id, purpose, code_hash, expires_at, consumed, created_at
		FROM otps
		WHERE user_id = $1 AND purpose = $2 AND consumed = false AND expires_at > $3
		ORDER BY created_at DESC
		LIMIT 1`

	var row otpPersistence
	if err := r.db.GetContext(ctx, &row, query, userID.String(), string(purpose), now); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, otp.ErrNoActiveCode()
		}
		return nil, errx.Wrap(err, "failed to find OTP", errx.TypeInternal)
	}
	o := toDomain(row)
	return &o, nil
}

func (r *PostgresOTPRepository) Consume(ctx context.Context, id string, now time.Time) error {
	query := `
		UPDATE otps SET consumed = true
		WHERE id = $1 AND consumed = false AND expires_at > $2`

	result, err := r.db.ExecContext(ctx, query, id, now)
	if err != nil {
		return errx.Wrap(err, "failed to consume OTP", errx.TypeInternal)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errx.Wrap(err, "failed to get rows affected on consume", errx.TypeInternal)
	}
	if rowsAffected == 0 {
		return otp.ErrNoActiveCode()
	}
	return nil
}

type otpPersistence struct {
	ID        string    `db:"id"`
	UserID    string    `db:"user_id"`
	Purpose   string    `db:"purpose"`
	CodeHash  string    `db:"code_hash"`
	ExpiresAt time.Time `db:"expires_at"`
	Consumed  bool      `db:"consumed"`
	CreatedAt time.Time `db:"created_at"`
}

func toPersistence(o otp.OTP) otpPersistence {
	return otpPersistence{
		ID:        o.ID,
		UserID:    o.UserID.String(),
		Purpose:   string(o.Purpose),
		CodeHash:  o.CodeHash,
		ExpiresAt: o.ExpiresAt,
		Consumed:  o.Consumed,
		CreatedAt: o.CreatedAt,
	}
}

func toDomain(p otpPersistence) otp.OTP {
	return otp.OTP{
		ID:        p.ID,
		UserID:    kernel.NewUserID(p.UserID),
		Purpose:   otp.Purpose(p.Purpose),
		CodeHash:  p.CodeHash,
		ExpiresAt: p.ExpiresAt,
		Consumed:  p.Consumed,
		CreatedAt: p.CreatedAt,
	}
}
