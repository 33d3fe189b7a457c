package authinfra

import (
	"context"
	"time"

	"github.com/Abraxas-365/authbuilder/pkg/iam/otp"
	"github.com/Abraxas-365/authbuilder/pkg/logx"
	"github.com/Abraxas-365/authbuilder/pkg/notifx"
)

var otpSubjects = map[otp.Purpose]string{
	otp.PurposeTwoFactor: "Your 2FA verification code",
	otp.PurposeReset:     "Your password reset code",
}

// OTPMailer renders one-time codes and delivers them through the dispatcher.
type OTPMailer struct {
	dispatcher *notifx.Dispatcher
	ttl        time.Duration
}

// NewOTPMailer builds a mailer. ttl is only used for the expiry line of the
// message.
func NewOTPMailer(dispatcher *notifx.Dispatcher, ttl time.Duration) *OTPMailer {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &OTPMailer{dispatcher: dispatcher, ttl: ttl}
}

func (m *OTPMailer) SendOTP(ctx context.Context, to, code string, purpose otp.Purpose, profile *notifx.DeliveryProfile) bool {
	subject, ok := otpSubjects[purpose]
	if !ok {
		subject = "Your verification code"
	}

	body, err := m.dispatcher.Client().Render(notifx.TemplateOTP, notifx.OTPTemplateData{
		Subject:       subject,
		Code:          code,
		ExpiryMinutes: int(m.ttl / time.Minute),
	})
	if err != nil {
		logx.WithError(err).Error("Failed to render OTP email")
		return false
	}

	return m.dispatcher.Deliver(ctx, notifx.EmailMessage{
		To:       []string{to},
		Subject:  subject,
		HTMLBody: body,
	}, profile)
}
