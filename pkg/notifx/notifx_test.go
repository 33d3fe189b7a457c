package notifx_test

import (
	"context"
	"strings"
	"testing"

	"github.com/Abraxas-365/authbuilder/pkg/errx"
	"github.com/Abraxas-365/authbuilder/pkg/notifx"
)

type recordingSender struct {
	sent     []notifx.EmailMessage
	profiles []notifx.DeliveryProfile
}

func (r *recordingSender) SendEmail(_ context.Context, msg notifx.EmailMessage, _ ...notifx.Option) error {
	r.sent = append(r.sent, msg)
	return nil
}

func (r *recordingSender) SendWithProfile(_ context.Context, p notifx.DeliveryProfile, msg notifx.EmailMessage) error {
	r.profiles = append(r.profiles, p)
	r.sent = append(r.sent, msg)
	return nil
}

func (r *recordingSender) TestConnection(context.Context, notifx.DeliveryProfile) error { return nil }

func TestSendEmailValidatesMessage(t *testing.T) {
	c := notifx.NewClient(&recordingSender{}, nil)

	err := c.SendEmail(context.Background(), notifx.EmailMessage{Subject: "x", TextBody: "y"})
	if !errx.HasCode(err, notifx.ErrInvalidMessage) {
		t.Fatalf("expected invalid message, got %v", err)
	}
}

func TestSendWithProfileRequiresCompleteProfile(t *testing.T) {
	rec := &recordingSender{}
	c := notifx.NewClient(rec, rec)
	msg := notifx.EmailMessage{To: []string{"a@example.com"}, Subject: "s", TextBody: "b"}

	err := c.SendWithProfile(context.Background(), notifx.DeliveryProfile{Host: "smtp.example.com"}, msg)
	if !errx.HasCode(err, notifx.ErrInvalidProfile) {
		t.Fatalf("expected invalid profile, got %v", err)
	}

	full := notifx.DeliveryProfile{Host: "smtp.example.com", Port: 587, Username: "u", Password: "p"}
	if err := c.SendWithProfile(context.Background(), full, msg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rec.profiles) != 1 || rec.profiles[0].Host != "smtp.example.com" {
		t.Fatalf("profile not forwarded: %+v", rec.profiles)
	}
}

func TestSendWithProfileWithoutProfileSender(t *testing.T) {
	c := notifx.NewClient(&recordingSender{}, nil)
	full := notifx.DeliveryProfile{Host: "h", Port: 25, Username: "u", Password: "p"}

	err := c.SendWithProfile(context.Background(), full, notifx.EmailMessage{To: []string{"a@b.c"}, Subject: "s", TextBody: "b"})
	if !errx.HasCode(err, notifx.ErrNoProvider) {
		t.Fatalf("expected no provider, got %v", err)
	}
}

func TestBuiltinTemplatesRender(t *testing.T) {
	c := notifx.NewClient(&recordingSender{}, nil)

	body, err := c.Render(notifx.TemplateOTP, notifx.OTPTemplateData{Subject: "Your password reset code", Code: "123456", ExpiryMinutes: 10})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(body, "123456") || !strings.Contains(body, "This code will expire in 10 minutes.") {
		t.Fatalf("unexpected otp body: %s", body)
	}

	body, err = c.Render(notifx.TemplateWelcome, notifx.WelcomeTemplateData{FirstName: "Ada", LastName: "L", Email: "ada@example.com", Password: "<secret>"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(body, "&lt;secret&gt;") {
		t.Fatal("welcome template should escape its data")
	}
}

func TestRenderUnknownTemplate(t *testing.T) {
	c := notifx.NewClient(nil, nil)
	if _, err := c.Render("missing", nil); !errx.HasCode(err, notifx.ErrTemplateNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestDeliveryProfileSender(t *testing.T) {
	p := notifx.DeliveryProfile{Username: "user@example.com"}
	if p.Sender() != "user@example.com" {
		t.Fatalf("sender = %q", p.Sender())
	}
	p.FromEmail = "from@example.com"
	if p.Sender() != "from@example.com" {
		t.Fatalf("sender = %q", p.Sender())
	}
}
