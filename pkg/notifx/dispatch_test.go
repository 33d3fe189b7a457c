package notifx_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Abraxas-365/authbuilder/pkg/notifx"
)

type scriptedSender struct {
	profileErr error
	defaultErr error
	block      time.Duration

	mu           sync.Mutex
	profileCalls int
	defaultCalls int
	lastFrom     string
}

func (s *scriptedSender) SendEmail(ctx context.Context, msg notifx.EmailMessage, _ ...notifx.Option) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.defaultCalls++
	s.lastFrom = msg.From
	return s.defaultErr
}

func (s *scriptedSender) SendWithProfile(ctx context.Context, _ notifx.DeliveryProfile, msg notifx.EmailMessage) error {
	s.mu.Lock()
	s.profileCalls++
	s.lastFrom = msg.From
	s.mu.Unlock()
	if s.block > 0 {
		select {
		case <-time.After(s.block):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return s.profileErr
}

func (s *scriptedSender) TestConnection(context.Context, notifx.DeliveryProfile) error { return nil }

var clientProfile = &notifx.DeliveryProfile{
	Host: "smtp.acme.com", Port: 587, Username: "bot", Password: "pw", FromEmail: "bot@acme.com",
}

func otpMessage() notifx.EmailMessage {
	return notifx.EmailMessage{To: []string{"u@acme.com"}, Subject: "code", TextBody: "123456"}
}

func TestDeliverPrefersClientProfile(t *testing.T) {
	s := &scriptedSender{}
	d := notifx.NewDispatcher(notifx.NewClient(s, s), time.Second)

	if !d.Deliver(context.Background(), otpMessage(), clientProfile) {
		t.Fatal("expected delivery")
	}
	if s.profileCalls != 1 || s.defaultCalls != 0 {
		t.Fatalf("profile=%d default=%d", s.profileCalls, s.defaultCalls)
	}
	if s.lastFrom != "bot@acme.com" {
		t.Fatalf("expected client sender, got %q", s.lastFrom)
	}
}

func TestDeliverFallsBackToDefault(t *testing.T) {
	s := &scriptedSender{profileErr: errors.New("auth failed")}
	d := notifx.NewDispatcher(notifx.NewClient(s, s), time.Second)

	if !d.Deliver(context.Background(), otpMessage(), clientProfile) {
		t.Fatal("expected fallback delivery")
	}
	if s.profileCalls != 1 || s.defaultCalls != 1 {
		t.Fatalf("profile=%d default=%d", s.profileCalls, s.defaultCalls)
	}
}

func TestDeliverReportsFailureWhenBothFail(t *testing.T) {
	s := &scriptedSender{profileErr: errors.New("down"), defaultErr: errors.New("down")}
	d := notifx.NewDispatcher(notifx.NewClient(s, s), time.Second)

	if d.Deliver(context.Background(), otpMessage(), clientProfile) {
		t.Fatal("expected failure")
	}
}

func TestDeliverBoundsSlowProfile(t *testing.T) {
	s := &scriptedSender{block: time.Second}
	d := notifx.NewDispatcher(notifx.NewClient(s, s), 20*time.Millisecond)

	start := time.Now()
	if !d.Deliver(context.Background(), otpMessage(), clientProfile) {
		t.Fatal("expected fallback delivery after timeout")
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Fatalf("slow profile was not bounded: %v", elapsed)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.defaultCalls != 1 {
		t.Fatalf("expected default attempt, got %d", s.defaultCalls)
	}
}

func TestDeliverWithoutProfileUsesDefault(t *testing.T) {
	s := &scriptedSender{}
	d := notifx.NewDispatcher(notifx.NewClient(s, s), time.Second)

	if !d.Deliver(context.Background(), otpMessage(), nil) {
		t.Fatal("expected delivery")
	}
	if s.profileCalls != 0 || s.defaultCalls != 1 {
		t.Fatalf("profile=%d default=%d", s.profileCalls, s.defaultCalls)
	}
}
