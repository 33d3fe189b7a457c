package auth

import (
	"context"
	"time"

	"github.com/Abraxas-365/authbuilder/pkg/iam/access"
	"github.com/Abraxas-365/authbuilder/pkg/iam/client"
	"github.com/Abraxas-365/authbuilder/pkg/iam/otp"
	"github.com/Abraxas-365/authbuilder/pkg/iam/token"
	"github.com/Abraxas-365/authbuilder/pkg/iam/user"
	"github.com/Abraxas-365/authbuilder/pkg/kernel"
	"github.com/Abraxas-365/authbuilder/pkg/notifx"
)

// UserStore is the part of the user repository the flows need.
type UserStore interface {
	FindByID(ctx context.Context, id kernel.UserID) (*user.User, error)
	FindByEmail(ctx context.Context, email string) (*user.User, error)
	UpdatePassword(ctx context.Context, id kernel.UserID, passwordHash string) error
}

type ClientStore interface {
	FindByID(ctx context.Context, id kernel.ClientID) (*client.Client, error)
	FindByPublicID(ctx context.Context, publicID string) (*client.Client, error)
}

// PasswordService hashes and checks passwords.
type PasswordService interface {
	HashPassword(password string) (string, error)
	VerifyPassword(hash, password string) bool
}

// TokenManager is the session token lifecycle.
type TokenManager interface {
	Issue(ctx context.Context, subject token.Subject, isSuperUser bool) (*token.IssuedTokens, error)
	IssueClientSession(ctx context.Context, clientID kernel.ClientID, realmID kernel.RealmID) (*token.IssuedTokens, error)
	FindByAccessSecret(ctx context.Context, secret string) (*token.Token, error)
	RefreshAccess(ctx context.Context, refreshSecret string) (*token.IssuedTokens, error)
	ExtendExpiry(ctx context.Context, accessSecret string) error
	Revoke(ctx context.Context, accessSecret string) error
	RevokeAllForUser(ctx context.Context, userID kernel.UserID) error
	ActiveForUser(ctx context.Context, userID kernel.UserID) ([]*token.Token, error)
}

type OTPManager interface {
	IssueFor(ctx context.Context, userID kernel.UserID, purpose otp.Purpose, ttl time.Duration) (*otp.IssuedOTP, error)
	VerifyAndConsume(ctx context.Context, userID kernel.UserID, purpose otp.Purpose, code string) error
}

// OTPSender delivers a code by email, preferring profile when it is set.
// It reports whether any delivery attempt succeeded.
type OTPSender interface {
	SendOTP(ctx context.Context, to, code string, purpose otp.Purpose, profile *notifx.DeliveryProfile) bool
}

type AccessDecider interface {
	Authorize(ctx context.Context, caller *kernel.AuthContext, req access.Request) (access.Decision, error)
}

// AuditService records security events. Implementations must not fail the
// calling flow. The caller's address is read from the context.
type AuditService interface {
	LogLoginAttempt(ctx context.Context, email string, userID *kernel.UserID, method string, success bool, reason string)
	LogLogout(ctx context.Context, subject string)
	LogTokenRefresh(ctx context.Context, subject string, success bool)
	LogOTPIssued(ctx context.Context, userID kernel.UserID, purpose otp.Purpose, emailSent bool)
	LogOTPVerification(ctx context.Context, email string, purpose otp.Purpose, success bool)
	LogPasswordChange(ctx context.Context, userID kernel.UserID, method string)
	LogAccessDecision(ctx context.Context, subject string, decision access.Decision)
}

// MultiAudit fans every event out to each sink.
type MultiAudit []AuditService

func (m MultiAudit) LogLoginAttempt(ctx context.Context, email string, userID *kernel.UserID, method string, success bool, reason string) {
	for _, a := range m {
		a.LogLoginAttempt(ctx, email, userID, method, success, reason)
	}
}

func (m MultiAudit) LogLogout(ctx context.Context, subject string) {
	for _, a := range m {
		a.LogLogout(ctx, subject)
	}
}

func (m MultiAudit) LogTokenRefresh(ctx context.Context, subject string, success bool) {
	for _, a := range m {
		a.LogTokenRefresh(ctx, subject, success)
	}
}

func (m MultiAudit) LogOTPIssued(ctx context.Context, userID kernel.UserID, purpose otp.Purpose, emailSent bool) {
	for _, a := range m {
		a.LogOTPIssued(ctx, userID, purpose, emailSent)
	}
}

func (m MultiAudit) LogOTPVerification(ctx context.Context, email string, purpose otp.Purpose, success bool) {
	for _, a := range m {
		a.LogOTPVerification(ctx, email, purpose, success)
	}
}

func (m MultiAudit) LogPasswordChange(ctx context.Context, userID kernel.UserID, method string) {
	for _, a := range m {
		a.LogPasswordChange(ctx, userID, method)
	}
}

func (m MultiAudit) LogAccessDecision(ctx context.Context, subject string, decision access.Decision) {
	for _, a := range m {
		a.LogAccessDecision(ctx, subject, decision)
	}
}
