package authinfra_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Abraxas-365/authbuilder/pkg/iam/access"
	"github.com/Abraxas-365/authbuilder/pkg/iam/auth"
	"github.com/Abraxas-365/authbuilder/pkg/iam/auth/authinfra"
	"github.com/Abraxas-365/authbuilder/pkg/iam/otp"
	"github.com/Abraxas-365/authbuilder/pkg/kernel"
	"github.com/Abraxas-365/authbuilder/pkg/metricsx"
	"github.com/Abraxas-365/authbuilder/pkg/notifx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"golang.org/x/crypto/bcrypt"
)

var (
	_ auth.PasswordService = (*authinfra.BcryptPasswordService)(nil)
	_ auth.AuditService    = (*authinfra.LogxAuditService)(nil)
	_ auth.AuditService    = (*authinfra.PrometheusAuditService)(nil)
	_ auth.OTPSender       = (*authinfra.OTPMailer)(nil)
	_ otp.CodeHasher       = (*authinfra.BcryptPasswordService)(nil)
)

func TestBcryptPasswordService(t *testing.T) {
	s := authinfra.NewBcryptPasswordService(bcrypt.MinCost)

	hash, err := s.HashPassword("s3cret!")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if hash == "s3cret!" || !strings.HasPrefix(hash, "$2") {
		t.Fatalf("unexpected hash %q", hash)
	}
	if !s.VerifyPassword(hash, "s3cret!") {
		t.Fatal("correct password rejected")
	}
	if s.VerifyPassword(hash, "s3cret") {
		t.Fatal("wrong password accepted")
	}
	if s.VerifyPassword("", "") {
		t.Fatal("empty hash must never match")
	}
}

func TestBcryptCostOutOfRangeFallsBack(t *testing.T) {
	s := authinfra.NewBcryptPasswordService(99)
	hash, err := s.HashPassword("pw")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if cost, _ := bcrypt.Cost([]byte(hash)); cost != bcrypt.DefaultCost {
		t.Fatalf("cost = %d", cost)
	}
}

// ============================================================================
// OTP mailer
// ============================================================================

type outbox struct {
	mu         sync.Mutex
	profileErr error
	messages   []notifx.EmailMessage
	viaProfile int
}

func (o *outbox) SendEmail(_ context.Context, msg notifx.EmailMessage, _ ...notifx.Option) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.messages = append(o.messages, msg)
	return nil
}

func (o *outbox) SendWithProfile(_ context.Context, _ notifx.DeliveryProfile, msg notifx.EmailMessage) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.viaProfile++
	if o.profileErr != nil {
		return o.profileErr
	}
	o.messages = append(o.messages, msg)
	return nil
}

func (o *outbox) TestConnection(context.Context, notifx.DeliveryProfile) error { return nil }

func TestOTPMailerRendersCodeAndSubject(t *testing.T) {
	box := &outbox{}
	mailer := authinfra.NewOTPMailer(notifx.NewDispatcher(notifx.NewClient(box, box), time.Second), 10*time.Minute)

	if !mailer.SendOTP(context.Background(), "ada@acme.com", "482913", otp.PurposeReset, nil) {
		t.Fatal("send failed")
	}
	if len(box.messages) != 1 {
		t.Fatalf("messages = %d", len(box.messages))
	}
	msg := box.messages[0]
	if msg.Subject != "Your password reset code" || msg.To[0] != "ada@acme.com" {
		t.Fatalf("unexpected message %+v", msg)
	}
	if !strings.Contains(msg.HTMLBody, "482913") || !strings.Contains(msg.HTMLBody, "10 minutes") {
		t.Fatalf("body missing code or expiry: %s", msg.HTMLBody)
	}
	if box.viaProfile != 0 {
		t.Fatal("no profile given but profile path used")
	}
}

func TestOTPMailerFallsBackFromClientProfile(t *testing.T) {
	box := &outbox{profileErr: errors.New("auth failed")}
	mailer := authinfra.NewOTPMailer(notifx.NewDispatcher(notifx.NewClient(box, box), time.Second), 0)

	profile := &notifx.DeliveryProfile{Host: "smtp.acme.com", Port: 587, Username: "bot", Password: "pw"}
	if !mailer.SendOTP(context.Background(), "grace@acme.com", "111222", otp.PurposeTwoFactor, profile) {
		t.Fatal("fallback delivery failed")
	}
	if box.viaProfile != 1 || len(box.messages) != 1 {
		t.Fatalf("profile attempts=%d delivered=%d", box.viaProfile, len(box.messages))
	}
	if box.messages[0].Subject != "Your 2FA verification code" {
		t.Fatalf("subject = %q", box.messages[0].Subject)
	}
}

// ============================================================================
// Audit
// ============================================================================

func TestPrometheusAuditCountsEvents(t *testing.T) {
	m := metricsx.New(prometheus.NewRegistry())
	audit := authinfra.NewPrometheusAuditService(m)
	ctx := kernel.WithClientIP(context.Background(), "10.0.0.1")
	uid := kernel.NewUserID("u-1")

	audit.LogLoginAttempt(ctx, "ada@acme.com", &uid, auth.MethodPassword, true, "")
	audit.LogLoginAttempt(ctx, "ada@acme.com", &uid, auth.MethodPassword, false, "bad_password")
	audit.LogLoginAttempt(ctx, "ada@acme.com", &uid, auth.MethodPassword, false, "bad_password")
	audit.LogOTPIssued(ctx, uid, otp.PurposeTwoFactor, false)
	audit.LogAccessDecision(ctx, "u-1", access.Decision{Allowed: false, Reason: access.ReasonNoRoles})

	if got := testutil.ToFloat64(m.AuthEvents.WithLabelValues("login_password", "success")); got != 1 {
		t.Fatalf("success = %v", got)
	}
	if got := testutil.ToFloat64(m.AuthEvents.WithLabelValues("login_password", "bad_password")); got != 2 {
		t.Fatalf("bad_password = %v", got)
	}
	if got := testutil.ToFloat64(m.OTPIssued.WithLabelValues("2fa", "false")); got != 1 {
		t.Fatalf("otp issued = %v", got)
	}
	if got := testutil.ToFloat64(m.AccessDecisions.WithLabelValues("false", "no_roles")); got != 1 {
		t.Fatalf("decisions = %v", got)
	}
}

func TestMultiAuditFansOut(t *testing.T) {
	first := metricsx.New(prometheus.NewRegistry())
	second := metricsx.New(prometheus.NewRegistry())
	audit := auth.MultiAudit{
		authinfra.NewLogxAuditService(),
		authinfra.NewPrometheusAuditService(first),
		authinfra.NewPrometheusAuditService(second),
	}

	audit.LogLogout(context.Background(), "u-1")

	for i, m := range []*metricsx.Metrics{first, second} {
		if got := testutil.ToFloat64(m.AuthEvents.WithLabelValues("logout", "success")); got != 1 {
			t.Fatalf("sink %d: %v", i, got)
		}
	}
}
