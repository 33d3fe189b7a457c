package user

import (
	"net/http"

	"github.com/Abraxas-365/authbuilder/pkg/errx"
)

var ErrRegistry = errx.NewRegistry("USER")

var (
	CodeUserNotFound        = ErrRegistry.Register("NOT_FOUND", errx.TypeNotFound, http.StatusNotFound, "User not found")
	CodeEmailExists         = ErrRegistry.Register("EMAIL_EXISTS", errx.TypeConflict, http.StatusConflict, "User with this email already exists")
	CodeAdminProtected      = ErrRegistry.Register("ADMIN_PROTECTED", errx.TypeBusiness, http.StatusBadRequest, "The admin user cannot be modified this way")
	CodeRealmRequired       = ErrRegistry.Register("REALM_REQUIRED", errx.TypeValidation, http.StatusBadRequest, "Realm is required for non super users")
	CodeClientRealmMismatch = ErrRegistry.Register("CLIENT_REALM_MISMATCH", errx.TypeValidation, http.StatusBadRequest, "Client does not belong to the user's realm")
	CodeRoleRealmMismatch   = ErrRegistry.Register("ROLE_REALM_MISMATCH", errx.TypeValidation, http.StatusBadRequest, "Role does not belong to the user's realm")
)

func ErrUserNotFound() *errx.Error { return ErrRegistry.New(CodeUserNotFound) }
func ErrEmailExists() *errx.Error  { return ErrRegistry.New(CodeEmailExists) }

// ErrAdminProtected reports a forbidden change to the admin account.
func ErrAdminProtected(message string) *errx.Error {
	return ErrRegistry.NewWithMessage(CodeAdminProtected, message)
}

func ErrRealmRequired() *errx.Error       { return ErrRegistry.New(CodeRealmRequired) }
func ErrClientRealmMismatch() *errx.Error { return ErrRegistry.New(CodeClientRealmMismatch) }
func ErrRoleRealmMismatch() *errx.Error   { return ErrRegistry.New(CodeRoleRealmMismatch) }
