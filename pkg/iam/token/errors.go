package token

import (
	"net/http"

	"github.com/Abraxas-365/authbuilder/pkg/errx"
)

var ErrRegistry = errx.NewRegistry("TOKEN")

var (
	CodeTokenNotFound       = ErrRegistry.Register("NOT_FOUND", errx.TypeAuthorization, http.StatusUnauthorized, "Invalid or expired token")
	CodeInvalidRefreshToken = ErrRegistry.Register("INVALID_REFRESH_TOKEN", errx.TypeAuthorization, http.StatusUnauthorized, "Invalid or expired refresh token")
	CodeRefreshTokenExpired = ErrRegistry.Register("REFRESH_TOKEN_EXPIRED", errx.TypeAuthorization, http.StatusUnauthorized, "Invalid or expired refresh token")
	CodeInvalidAccessToken  = ErrRegistry.Register("INVALID_ACCESS_TOKEN", errx.TypeAuthorization, http.StatusUnauthorized, "Invalid or expired token")
	CodeInvalidSubject      = ErrRegistry.Register("INVALID_SUBJECT", errx.TypeInternal, http.StatusInternalServerError, "Token subject must be a user or a client")
)

func ErrTokenNotFound() *errx.Error       { return ErrRegistry.New(CodeTokenNotFound) }
func ErrInvalidRefreshToken() *errx.Error { return ErrRegistry.New(CodeInvalidRefreshToken) }
func ErrRefreshTokenExpired() *errx.Error { return ErrRegistry.New(CodeRefreshTokenExpired) }
func ErrInvalidAccessToken() *errx.Error  { return ErrRegistry.New(CodeInvalidAccessToken) }
func ErrInvalidSubject() *errx.Error      { return ErrRegistry.New(CodeInvalidSubject) }
