package auth

import (
	"net/http"

	"github.com/Abraxas-365/authbuilder/pkg/errx"
	"github.com/Abraxas-365/authbuilder/pkg/iam/client"
	"github.com/Abraxas-365/authbuilder/pkg/iam/token"
	"github.com/Abraxas-365/authbuilder/pkg/iam/user"
	"github.com/Abraxas-365/authbuilder/pkg/kernel"
)

// ============================================================================
// Requests
// ============================================================================

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type ClientLoginRequest struct {
	ClientID string `json:"client_id" validate:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type ValidateOTPRequest struct {
	Email   string `json:"email" validate:"required,email"`
	Code    string `json:"code" validate:"required,min=4"`
	Purpose string `json:"purpose" validate:"omitempty,oneof=2fa"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ResendOTPRequest struct {
	Email   string `json:"email" validate:"required,email"`
	Purpose string `json:"purpose" validate:"required,oneof=2fa reset"`
}

type ResetPasswordRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Code        string `json:"code" validate:"required,min=4"`
	NewPassword string `json:"new_password" validate:"required,min=6"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=6"`
}

// ============================================================================
// Results
// ============================================================================

// LoginResult is either a started session or a pending second factor.
type LoginResult struct {
	User        *user.User
	Tokens      *token.IssuedTokens
	RequiresOTP bool
	EmailSent   bool
}

// ClientSummary is the public view of a client returned to client sessions.
type ClientSummary struct {
	ID          kernel.ClientID `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	RealmID     kernel.RealmID  `json:"realm_id"`
	RealmName   string          `json:"realm_name,omitempty"`
}

func summarize(c *client.Client) *ClientSummary {
	return &ClientSummary{
		ID:          c.ID,
		Name:        c.Name,
		Description: c.Description,
		RealmID:     c.RealmID,
		RealmName:   c.RealmName,
	}
}

type ClientLoginResult struct {
	Client *ClientSummary
	Tokens *token.IssuedTokens
}

// Profile is the caller behind a session: a user, or a client for client
// sessions.
type Profile struct {
	User            *user.User     `json:"user,omitempty"`
	Client          *ClientSummary `json:"client,omitempty"`
	IsClientSession bool           `json:"is_client_session"`
}

// ============================================================================
// Error Registry
// ============================================================================

var ErrRegistry = errx.NewRegistry("AUTH")

var (
	CodeInvalidCredentials       = ErrRegistry.Register("INVALID_CREDENTIALS", errx.TypeAuthorization, http.StatusUnauthorized, "Invalid credentials")
	CodeAccountInactive          = ErrRegistry.Register("ACCOUNT_INACTIVE", errx.TypeAuthorization, http.StatusUnauthorized, "Account is inactive")
	CodeClientRequired           = ErrRegistry.Register("CLIENT_REQUIRED", errx.TypeForbidden, http.StatusForbidden, "Access denied. User must be associated with a client to login.")
	CodeInvalidCode              = ErrRegistry.Register("INVALID_CODE", errx.TypeAuthorization, http.StatusUnauthorized, "Invalid or expired code")
	CodeInvalidRefreshToken      = ErrRegistry.Register("INVALID_REFRESH_TOKEN", errx.TypeAuthorization, http.StatusUnauthorized, "Invalid or expired refresh token")
	CodeCurrentPasswordIncorrect = ErrRegistry.Register("CURRENT_PASSWORD_INCORRECT", errx.TypeValidation, http.StatusBadRequest, "Current password is incorrect")
	CodeInvalidClient            = ErrRegistry.Register("INVALID_CLIENT", errx.TypeAuthorization, http.StatusUnauthorized, "Invalid client ID")
	CodeClientInactive           = ErrRegistry.Register("CLIENT_INACTIVE", errx.TypeAuthorization, http.StatusUnauthorized, "Client is inactive")
	CodeWeakPassword             = ErrRegistry.Register("WEAK_PASSWORD", errx.TypeValidation, http.StatusBadRequest, "Password is too short")
	CodeRateLimited              = ErrRegistry.Register("RATE_LIMITED", errx.TypeRateLimit, http.StatusTooManyRequests, "Too many requests, please try again later")
)

// Helper functions
func ErrInvalidCredentials() *errx.Error {
	return ErrRegistry.New(CodeInvalidCredentials)
}

func ErrAccountInactive() *errx.Error {
	return ErrRegistry.New(CodeAccountInactive)
}

func ErrClientRequired() *errx.Error {
	return ErrRegistry.New(CodeClientRequired)
}

func ErrInvalidCode() *errx.Error {
	return ErrRegistry.New(CodeInvalidCode)
}

func ErrInvalidRefreshToken() *errx.Error {
	return ErrRegistry.New(CodeInvalidRefreshToken)
}

func ErrCurrentPasswordIncorrect() *errx.Error {
	return ErrRegistry.New(CodeCurrentPasswordIncorrect)
}

func ErrInvalidClient() *errx.Error {
	return ErrRegistry.New(CodeInvalidClient)
}

func ErrClientInactive() *errx.Error {
	return ErrRegistry.New(CodeClientInactive)
}

func ErrWeakPassword() *errx.Error {
	return ErrRegistry.New(CodeWeakPassword)
}

func ErrRateLimited() *errx.Error {
	return ErrRegistry.New(CodeRateLimited)
}
