package notifxsmtp

import "github.com/Abraxas-365/authbuilder/pkg/errx"

var smtpErrors = errx.NewRegistry("NOTIFX_SMTP")

var (
	ErrBuildMessage = smtpErrors.Register("BUILD_MESSAGE", errx.TypeValidation, 400, "Failed to build email message")
	ErrClient       = smtpErrors.Register("CLIENT", errx.TypeValidation, 400, "Invalid SMTP client settings")
	ErrSendFailed   = smtpErrors.Register("SEND_FAILED", errx.TypeExternal, 502, "SMTP delivery failed")
	ErrConnect      = smtpErrors.Register("CONNECT_FAILED", errx.TypeExternal, 502, "SMTP connection failed")
)
