package notifxconsole

import (
	"context"
	"strings"

	"github.com/Abraxas-365/authbuilder/pkg/logx"
	"github.com/Abraxas-365/authbuilder/pkg/notifx"
)

// ConsoleProvider prints emails via logx instead of delivering them.
// Intended for development and testing.
type ConsoleProvider struct{}

func NewConsoleProvider() *ConsoleProvider {
	return &ConsoleProvider{}
}

// SendEmail logs the email details instead of sending it.
func (p *ConsoleProvider) SendEmail(_ context.Context, msg notifx.EmailMessage, _ ...notifx.Option) error {
	p.log(msg, "")
	return nil
}

// SendWithProfile logs the email along with the profile host it would use.
func (p *ConsoleProvider) SendWithProfile(_ context.Context, profile notifx.DeliveryProfile, msg notifx.EmailMessage) error {
	p.log(msg, profile.Host)
	return nil
}

func (p *ConsoleProvider) TestConnection(_ context.Context, profile notifx.DeliveryProfile) error {
	logx.WithField("smtp_host", profile.Host).Info("notifx/console: connection test skipped (dev mode)")
	return nil
}

func (p *ConsoleProvider) log(msg notifx.EmailMessage, host string) {
	fields := logx.Fields{
		"from":    msg.From,
		"to":      strings.Join(msg.To, ", "),
		"subject": msg.Subject,
	}
	if host != "" {
		fields["smtp_host"] = host
	}
	logx.WithFields(fields).Info("notifx/console: email sent (dev mode)")

	if msg.TextBody != "" {
		logx.Debugf("notifx/console: text body:\n%s", msg.TextBody)
	}
	if msg.HTMLBody != "" {
		logx.Debugf("notifx/console: html body:\n%s", msg.HTMLBody)
	}
}
