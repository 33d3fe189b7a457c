package realm

import (
	"net/http"

	"github.com/Abraxas-365/authbuilder/pkg/errx"
)

var ErrRegistry = errx.NewRegistry("REALM")

var (
	CodeRealmNotFound   = ErrRegistry.Register("NOT_FOUND", errx.TypeNotFound, http.StatusNotFound, "Realm not found")
	CodeNameExists      = ErrRegistry.Register("NAME_EXISTS", errx.TypeConflict, http.StatusConflict, "Realm name already exists")
	CodeInvalidName     = ErrRegistry.Register("INVALID_NAME", errx.TypeValidation, http.StatusBadRequest, "Realm name can only contain letters, numbers, underscores, and hyphens")
	CodeHasDependencies = ErrRegistry.Register("HAS_DEPENDENCIES", errx.TypeConflict, http.StatusConflict, "Cannot delete realm with existing clients, users or roles. Please remove all dependencies first.")
	CodeRealmInactive   = ErrRegistry.Register("INACTIVE", errx.TypeBusiness, http.StatusBadRequest, "Realm is inactive")
)

func ErrRealmNotFound() *errx.Error   { return ErrRegistry.New(CodeRealmNotFound) }
func ErrNameExists() *errx.Error      { return ErrRegistry.New(CodeNameExists) }
func ErrInvalidName() *errx.Error     { return ErrRegistry.New(CodeInvalidName) }
func ErrHasDependencies() *errx.Error { return ErrRegistry.New(CodeHasDependencies) }
func ErrRealmInactive() *errx.Error   { return ErrRegistry.New(CodeRealmInactive) }
