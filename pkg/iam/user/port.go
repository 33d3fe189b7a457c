package user

import (
	"context"

	"github.com/Abraxas-365/authbuilder/pkg/kernel"
)

type Repository interface {
	Save(ctx context.Context, u User) error
	FindByID(ctx context.Context, id kernel.UserID) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindAll(ctx context.Context, filter ListFilter) ([]*User, error)
	Stats(ctx context.Context, filter ListFilter) (*Stats, error)
	UpdatePassword(ctx context.Context, id kernel.UserID, passwordHash string) error
	ToggleStatus(ctx context.Context, id kernel.UserID) (*User, error)
	// ReplaceRoles swaps the user's role assignments for roleIDs in one transaction.
	ReplaceRoles(ctx context.Context, id kernel.UserID, roleIDs []kernel.RoleID) error
	Delete(ctx context.Context, id kernel.UserID) error
}

// PasswordHasher produces a one-way hash for storage.
type PasswordHasher interface {
	HashPassword(password string) (string, error)
}

// WelcomeNotifier hands a welcome email off for delivery.
type WelcomeNotifier interface {
	QueueWelcome(ctx context.Context, email WelcomeEmail) error
}

// SessionRevoker ends every session of a user.
type SessionRevoker interface {
	RevokeAllForUser(ctx context.Context, userID kernel.UserID) error
}
