package client

import (
	"net/http"

	"github.com/Abraxas-365/authbuilder/pkg/errx"
)

var ErrRegistry = errx.NewRegistry("CLIENT")

var (
	CodeClientNotFound     = ErrRegistry.Register("NOT_FOUND", errx.TypeNotFound, http.StatusNotFound, "Client not found")
	CodeNameExists         = ErrRegistry.Register("NAME_EXISTS", errx.TypeConflict, http.StatusConflict, "Client name already exists in this realm")
	CodeSMTPIncomplete     = ErrRegistry.Register("SMTP_INCOMPLETE", errx.TypeValidation, http.StatusBadRequest, "SMTP configuration is incomplete")
	CodeInvalidRedirectURL = ErrRegistry.Register("INVALID_REDIRECT_URL", errx.TypeValidation, http.StatusBadRequest, "Invalid redirect URL format")
	CodeSMTPNotConfigured  = ErrRegistry.Register("SMTP_NOT_CONFIGURED", errx.TypeBusiness, http.StatusBadRequest, "Client has no SMTP configuration")
)

func ErrClientNotFound() *errx.Error     { return ErrRegistry.New(CodeClientNotFound) }
func ErrNameExists() *errx.Error         { return ErrRegistry.New(CodeNameExists) }
func ErrSMTPIncomplete() *errx.Error     { return ErrRegistry.New(CodeSMTPIncomplete) }
func ErrInvalidRedirectURL() *errx.Error { return ErrRegistry.New(CodeInvalidRedirectURL) }
func ErrSMTPNotConfigured() *errx.Error  { return ErrRegistry.New(CodeSMTPNotConfigured) }
