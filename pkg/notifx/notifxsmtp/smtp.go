package notifxsmtp

import (
	"context"
	"strings"
	"time"

	"github.com/Abraxas-365/authbuilder/pkg/notifx"
	"github.com/wneessen/go-mail"
)

const defaultTimeout = 15 * time.Second

// Provider delivers mail over SMTP. It sends through its default profile
// for notifx.EmailSender and through caller-supplied profiles for
// notifx.ProfileSender.
type Provider struct {
	defaults notifx.DeliveryProfile
	timeout  time.Duration
}

func NewProvider(defaults notifx.DeliveryProfile, timeout time.Duration) *Provider {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Provider{defaults: defaults, timeout: timeout}
}

// SendEmail sends msg with the default profile.
func (p *Provider) SendEmail(ctx context.Context, msg notifx.EmailMessage, _ ...notifx.Option) error {
	return p.SendWithProfile(ctx, p.defaults, msg)
}

// SendWithProfile sends msg with the credentials in profile.
func (p *Provider) SendWithProfile(ctx context.Context, profile notifx.DeliveryProfile, msg notifx.EmailMessage) error {
	m, err := BuildMessage(profile, msg)
	if err != nil {
		return err
	}
	client, err := p.newClient(profile)
	if err != nil {
		return err
	}
	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		return smtpErrors.NewWithCause(ErrSendFailed, err).
			WithDetail("host", profile.Host).
			WithDetail("to", msg.To)
	}
	return nil
}

// TestConnection dials and authenticates with profile without sending.
func (p *Provider) TestConnection(ctx context.Context, profile notifx.DeliveryProfile) error {
	client, err := p.newClient(profile)
	if err != nil {
		return err
	}
	sc, err := client.DialToSMTPClientWithContext(ctx)
	if err != nil {
		return smtpErrors.NewWithCause(ErrConnect, err).WithDetail("host", profile.Host)
	}
	if err := client.CloseWithSMTPClient(sc); err != nil {
		return smtpErrors.NewWithCause(ErrConnect, err).WithDetail("host", profile.Host)
	}
	return nil
}

// BuildMessage converts msg into a go-mail message sent from profile.
func BuildMessage(profile notifx.DeliveryProfile, msg notifx.EmailMessage) (*mail.Msg, error) {
	m := mail.NewMsg()

	from := msg.From
	if from == "" {
		from = profile.Sender()
	}
	name := msg.FromName
	if name == "" {
		name = profile.FromName
	}

	var err error
	if name != "" {
		err = m.FromFormat(name, from)
	} else {
		err = m.From(from)
	}
	if err != nil {
		return nil, smtpErrors.NewWithCause(ErrBuildMessage, err).WithDetail("from", from)
	}
	if err := m.To(msg.To...); err != nil {
		return nil, smtpErrors.NewWithCause(ErrBuildMessage, err).WithDetail("to", msg.To)
	}
	if msg.ReplyTo != "" {
		if err := m.ReplyTo(msg.ReplyTo); err != nil {
			return nil, smtpErrors.NewWithCause(ErrBuildMessage, err).WithDetail("reply_to", msg.ReplyTo)
		}
	}
	m.Subject(msg.Subject)

	switch {
	case msg.HTMLBody != "" && msg.TextBody != "":
		m.SetBodyString(mail.TypeTextPlain, msg.TextBody)
		m.AddAlternativeString(mail.TypeTextHTML, msg.HTMLBody)
	case msg.HTMLBody != "":
		m.SetBodyString(mail.TypeTextHTML, msg.HTMLBody)
	default:
		m.SetBodyString(mail.TypeTextPlain, msg.TextBody)
	}
	return m, nil
}

func (p *Provider) newClient(profile notifx.DeliveryProfile) (*mail.Client, error) {
	opts := []mail.Option{
		mail.WithPort(profile.Port),
		mail.WithTimeout(p.timeout),
	}

	switch {
	case profile.Secure:
		opts = append(opts, mail.WithSSL())
	case profile.RequireTLS:
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	default:
		opts = append(opts, mail.WithTLSPolicy(mail.TLSOpportunistic))
	}

	if profile.Username != "" || profile.Password != "" {
		opts = append(opts,
			mail.WithSMTPAuth(AuthType(profile.AuthMethod)),
			mail.WithUsername(profile.Username),
			mail.WithPassword(profile.Password),
		)
	}

	client, err := mail.NewClient(profile.Host, opts...)
	if err != nil {
		return nil, smtpErrors.NewWithCause(ErrClient, err).WithDetail("host", profile.Host)
	}
	return client, nil
}

// AuthType maps a configured auth method name to a go-mail SMTP auth type.
// Unknown or empty names select PLAIN.
func AuthType(method string) mail.SMTPAuthType {
	switch strings.ToUpper(strings.TrimSpace(method)) {
	case "LOGIN":
		return mail.SMTPAuthLogin
	case "CRAM-MD5", "CRAMMD5":
		return mail.SMTPAuthCramMD5
	default:
		return mail.SMTPAuthPlain
	}
}
