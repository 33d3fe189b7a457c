package otp

import (
	"context"
	"time"

	"github.com/Abraxas-365/authbuilder/pkg/kernel"
)

type Repository interface {
	Create(ctx context.Context, o OTP) error
	// FindLatestActive returns the newest unconsumed code for (user, purpose)
	// that has not expired at now, or ErrNoActiveCode.
	FindLatestActive(ctx context.Context, userID kernel.UserID, purpose Purpose, now time.Time) (*OTP, error)
	// Consume marks the code used if it is still active at now. A code that
	// was consumed concurrently yields ErrNoActiveCode.
	Consume(ctx context.Context, id string, now time.Time) error
}

// CodeHasher is the one-way hash used for codes at rest.
type CodeHasher interface {
	HashPassword(plain string) (string, error)
	VerifyPassword(hash, plain string) bool
}

// IssueThrottle limits how often a code can be requested for a subject
// (normalized email) and purpose.
type IssueThrottle interface {
	Allow(ctx context.Context, subject string, purpose Purpose) (bool, error)
}
