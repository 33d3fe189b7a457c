package authinfra

import (
	"context"
	"time"

	"github.com/Abraxas-365/authbuilder/pkg/iam/access"
	"github.com/Abraxas-365/authbuilder/pkg/iam/otp"
	"github.com/Abraxas-365/authbuilder/pkg/kernel"
	"github.com/Abraxas-365/authbuilder/pkg/logx"
)

// LogxAuditService implements auth.AuditService using structured logx logging.
type LogxAuditService struct{}

func NewLogxAuditService() *LogxAuditService {
	return &LogxAuditService{}
}

func auditEntry(ctx context.Context, event string, fields logx.Fields) *logx.Entry {
	fields["audit_event"] = event
	fields["ip"] = kernel.ClientIPFromContext(ctx)
	fields["timestamp"] = time.Now()
	return logx.WithFields(fields)
}

func (s *LogxAuditService) LogLoginAttempt(ctx context.Context, email string, userID *kernel.UserID, method string, success bool, reason string) {
	fields := logx.Fields{
		"email":   email,
		"method":  method,
		"success": success,
	}
	if userID != nil {
		fields["user_id"] = *userID
	}
	if reason != "" {
		fields["reason"] = reason
	}
	entry := auditEntry(ctx, "login_attempt", fields)
	if success {
		entry.Info("Audit: login attempt")
		return
	}
	entry.Warn("Audit: login attempt")
}

func (s *LogxAuditService) LogLogout(ctx context.Context, subject string) {
	auditEntry(ctx, "logout", logx.Fields{
		"subject": subject,
	}).Info("Audit: logout")
}

func (s *LogxAuditService) LogTokenRefresh(ctx context.Context, subject string, success bool) {
	auditEntry(ctx, "token_refresh", logx.Fields{
		"subject": subject,
		"success": success,
	}).Info("Audit: token refresh")
}

func (s *LogxAuditService) LogOTPIssued(ctx context.Context, userID kernel.UserID, purpose otp.Purpose, emailSent bool) {
	auditEntry(ctx, "otp_issued", logx.Fields{
		"user_id":    userID,
		"purpose":    purpose,
		"email_sent": emailSent,
	}).Info("Audit: OTP issued")
}

func (s *LogxAuditService) LogOTPVerification(ctx context.Context, email string, purpose otp.Purpose, success bool) {
	auditEntry(ctx, "otp_verification", logx.Fields{
		"email":   email,
		"purpose": purpose,
		"success": success,
	}).Info("Audit: OTP verification")
}

func (s *LogxAuditService) LogPasswordChange(ctx context.Context, userID kernel.UserID, method string) {
	auditEntry(ctx, "password_change", logx.Fields{
		"user_id": userID,
		"method":  method,
	}).Info("Audit: password change")
}

func (s *LogxAuditService) LogAccessDecision(ctx context.Context, subject string, decision access.Decision) {
	fields := logx.Fields{
		"subject": subject,
		"allowed": decision.Allowed,
		"reason":  decision.Reason,
	}
	if decision.MatchedRoleID != nil {
		fields["role_id"] = *decision.MatchedRoleID
	}
	auditEntry(ctx, "access_decision", fields).Debug("Audit: access decision")
}
