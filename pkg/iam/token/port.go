package token

import (
	"context"
	"time"

	"github.com/Abraxas-365/authbuilder/pkg/kernel"
)

// Repository persists sessions. Lookups return only active rows; expiry is
// checked by the caller. Every mutation is a single conditional statement.
type Repository interface {
	Create(ctx context.Context, t Token) error
	FindActiveByAccessHash(ctx context.Context, hash string) (*Token, error)
	FindActiveByRefreshHash(ctx context.Context, hash string) (*Token, error)
	FindActiveByUser(ctx context.Context, userID kernel.UserID) ([]*Token, error)

	// RotateAccess swaps in a new access hash for the session holding
	// refreshHash, provided it is active and its refresh window is open at now.
	RotateAccess(ctx context.Context, refreshHash, accessHash string, expiresAt, now time.Time) (*Token, error)
	// Extend moves the access expiry of a live session forward.
	Extend(ctx context.Context, accessHash string, expiresAt, now time.Time) error

	RevokeByAccessHash(ctx context.Context, accessHash string, now time.Time) error
	RevokeAllForUser(ctx context.Context, userID kernel.UserID, now time.Time) (int64, error)
	DeactivateExpired(ctx context.Context, now time.Time) (int64, error)
}
