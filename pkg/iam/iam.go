package iam

import (
	"net/http"

	"github.com/Abraxas-365/authbuilder/pkg/errx"
)

// ============================================================================
// Error Registry
// ============================================================================

var ErrRegistry = errx.NewRegistry("IAM")

var (
	CodeUnauthorized        = ErrRegistry.Register("UNAUTHORIZED", errx.TypeAuthorization, http.StatusUnauthorized, "Access token required")
	CodeInvalidToken        = ErrRegistry.Register("INVALID_TOKEN", errx.TypeAuthorization, http.StatusUnauthorized, "Invalid or expired token")
	CodeSuperUserRequired   = ErrRegistry.Register("SUPER_USER_REQUIRED", errx.TypeForbidden, http.StatusForbidden, "Super user access required")
	CodeUserSessionRequired = ErrRegistry.Register("USER_SESSION_REQUIRED", errx.TypeForbidden, http.StatusForbidden, "This endpoint requires user authentication")
)

// Helper functions
func ErrUnauthorized() *errx.Error {
	return ErrRegistry.New(CodeUnauthorized)
}

func ErrInvalidToken() *errx.Error {
	return ErrRegistry.New(CodeInvalidToken)
}

func ErrSuperUserRequired() *errx.Error {
	return ErrRegistry.New(CodeSuperUserRequired)
}

func ErrUserSessionRequired() *errx.Error {
	return ErrRegistry.New(CodeUserSessionRequired)
}
