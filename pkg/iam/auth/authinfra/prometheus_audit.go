package authinfra

import (
	"context"
	"strconv"

	"github.com/Abraxas-365/authbuilder/pkg/iam/access"
	"github.com/Abraxas-365/authbuilder/pkg/iam/otp"
	"github.com/Abraxas-365/authbuilder/pkg/kernel"
	"github.com/Abraxas-365/authbuilder/pkg/metricsx"
)

// PrometheusAuditService counts audit events.
type PrometheusAuditService struct {
	m *metricsx.Metrics
}

func NewPrometheusAuditService(m *metricsx.Metrics) *PrometheusAuditService {
	return &PrometheusAuditService{m: m}
}

func outcome(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}

func (s *PrometheusAuditService) LogLoginAttempt(_ context.Context, _ string, _ *kernel.UserID, method string, success bool, reason string) {
	event := "login_" + method
	label := outcome(success)
	if reason != "" {
		label = reason
	}
	s.m.AuthEvents.WithLabelValues(event, label).Inc()
}

func (s *PrometheusAuditService) LogLogout(context.Context, string) {
	s.m.AuthEvents.WithLabelValues("logout", "success").Inc()
}

func (s *PrometheusAuditService) LogTokenRefresh(_ context.Context, _ string, success bool) {
	s.m.AuthEvents.WithLabelValues("token_refresh", outcome(success)).Inc()
}

func (s *PrometheusAuditService) LogOTPIssued(_ context.Context, _ kernel.UserID, purpose otp.Purpose, emailSent bool) {
	s.m.OTPIssued.WithLabelValues(string(purpose), strconv.FormatBool(emailSent)).Inc()
}

func (s *PrometheusAuditService) LogOTPVerification(_ context.Context, _ string, purpose otp.Purpose, success bool) {
	s.m.AuthEvents.WithLabelValues("otp_verify_"+string(purpose), outcome(success)).Inc()
}

func (s *PrometheusAuditService) LogPasswordChange(_ context.Context, _ kernel.UserID, method string) {
	s.m.AuthEvents.WithLabelValues("password_"+method, "success").Inc()
}

func (s *PrometheusAuditService) LogAccessDecision(_ context.Context, _ string, decision access.Decision) {
	s.m.AccessDecisions.WithLabelValues(strconv.FormatBool(decision.Allowed), string(decision.Reason)).Inc()
}
