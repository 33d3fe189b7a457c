package notifx

import (
	"context"
	"time"

	"github.com/Abraxas-365/authbuilder/pkg/asyncx"
	"github.com/Abraxas-365/authbuilder/pkg/logx"
)

// Dispatcher delivers a message through a caller's own profile first and the
// system default provider second. Each attempt is bounded by timeout.
type Dispatcher struct {
	client  *Client
	timeout time.Duration
}

func NewDispatcher(client *Client, timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Dispatcher{client: client, timeout: timeout}
}

// Client exposes the underlying client for template rendering.
func (d *Dispatcher) Client() *Client {
	return d.client
}

// Deliver reports whether any attempt succeeded. Failures are logged, never
// returned.
func (d *Dispatcher) Deliver(ctx context.Context, msg EmailMessage, profile *DeliveryProfile) bool {
	if profile != nil && profile.Complete() {
		own := msg
		own.From = profile.Sender()
		if profile.FromName != "" {
			own.FromName = profile.FromName
		}
		err := d.attempt(ctx, func(ctx context.Context) error {
			return d.client.SendWithProfile(ctx, *profile, own)
		})
		if err == nil {
			return true
		}
		logx.WithFields(logx.Fields{
			"to":    msg.To,
			"host":  profile.Host,
			"error": err.Error(),
		}).Warn("Client SMTP delivery failed, falling back to default provider")
	}

	if err := d.attempt(ctx, func(ctx context.Context) error {
		return d.client.SendEmail(ctx, msg)
	}); err != nil {
		logx.WithFields(logx.Fields{
			"to":    msg.To,
			"error": err.Error(),
		}).Error("Default email delivery failed")
		return false
	}
	return true
}

func (d *Dispatcher) attempt(ctx context.Context, send func(context.Context) error) error {
	_, err := asyncx.WithTimeout(ctx, d.timeout, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, send(ctx)
	})
	return err
}
