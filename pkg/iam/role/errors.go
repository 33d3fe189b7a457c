package role

import (
	"net/http"

	"github.com/Abraxas-365/authbuilder/pkg/errx"
)

var ErrRegistry = errx.NewRegistry("ROLE")

var (
	CodeRoleNotFound      = ErrRegistry.Register("NOT_FOUND", errx.TypeNotFound, http.StatusNotFound, "Role not found")
	CodeNameExists        = ErrRegistry.Register("NAME_EXISTS", errx.TypeConflict, http.StatusConflict, "Role with this name already exists in this realm")
	CodeInvalidAccess     = ErrRegistry.Register("INVALID_ACCESS", errx.TypeValidation, http.StatusBadRequest, "Invalid access data format")
	CodeRealmMismatch     = ErrRegistry.Register("REALM_MISMATCH", errx.TypeValidation, http.StatusBadRequest, "Role and user belong to different realms")
	CodeAssignmentMissing = ErrRegistry.Register("ASSIGNMENT_NOT_FOUND", errx.TypeNotFound, http.StatusNotFound, "Role is not assigned to this user")
)

func ErrRoleNotFound() *errx.Error      { return ErrRegistry.New(CodeRoleNotFound) }
func ErrNameExists() *errx.Error        { return ErrRegistry.New(CodeNameExists) }
func ErrInvalidAccess() *errx.Error     { return ErrRegistry.New(CodeInvalidAccess) }
func ErrRealmMismatch() *errx.Error     { return ErrRegistry.New(CodeRealmMismatch) }
func ErrAssignmentMissing() *errx.Error { return ErrRegistry.New(CodeAssignmentMissing) }
