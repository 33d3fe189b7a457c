package otp

import (
	"net/http"

	"github.com/Abraxas-365/authbuilder/pkg/errx"
)

var ErrRegistry = errx.NewRegistry("OTP")

// NoActiveCode and CodeMismatch share a message so callers cannot tell a
// wrong code from an expired one.
var (
	CodeNoActiveCode    = ErrRegistry.Register("NO_ACTIVE_CODE", errx.TypeAuthorization, http.StatusUnauthorized, "Invalid or expired code")
	CodeCodeMismatch    = ErrRegistry.Register("CODE_MISMATCH", errx.TypeAuthorization, http.StatusUnauthorized, "Invalid or expired code")
	CodeInvalidPurpose  = ErrRegistry.Register("INVALID_PURPOSE", errx.TypeValidation, http.StatusBadRequest, "Purpose must be '2fa' or 'reset'")
	CodeTooManyRequests = ErrRegistry.Register("TOO_MANY_REQUESTS", errx.TypeRateLimit, http.StatusTooManyRequests, "Please wait before requesting another code")
)

func ErrNoActiveCode() *errx.Error    { return ErrRegistry.New(CodeNoActiveCode) }
func ErrCodeMismatch() *errx.Error    { return ErrRegistry.New(CodeCodeMismatch) }
func ErrInvalidPurpose() *errx.Error  { return ErrRegistry.New(CodeInvalidPurpose) }
func ErrTooManyRequests() *errx.Error { return ErrRegistry.New(CodeTooManyRequests) }
