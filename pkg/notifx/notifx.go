package notifx

import (
	"context"
)

// EmailSender sends a single email.
type EmailSender interface {
	SendEmail(ctx context.Context, msg EmailMessage, opts ...Option) error
}

// ProfileSender delivers mail through caller-supplied credentials.
type ProfileSender interface {
	SendWithProfile(ctx context.Context, profile DeliveryProfile, msg EmailMessage) error
	TestConnection(ctx context.Context, profile DeliveryProfile) error
}

// Client is the main entry point for sending notifications.
type Client struct {
	provider  EmailSender
	profiles  ProfileSender
	templates *TemplateRegistry
}

// NewClient creates a new notification client. profiles may be nil when
// per-client credentials are not supported by the deployment.
func NewClient(provider EmailSender, profiles ProfileSender) *Client {
	return &Client{
		provider:  provider,
		profiles:  profiles,
		templates: NewTemplateRegistry(),
	}
}

// SendEmail sends an email through the default provider.
func (c *Client) SendEmail(ctx context.Context, msg EmailMessage, opts ...Option) error {
	if err := msg.validate(); err != nil {
		return err
	}
	if c.provider == nil {
		return notifxErrors.New(ErrNoProvider)
	}
	return c.provider.SendEmail(ctx, msg, opts...)
}

// SendWithProfile sends an email using the given SMTP profile.
func (c *Client) SendWithProfile(ctx context.Context, profile DeliveryProfile, msg EmailMessage) error {
	if err := msg.validate(); err != nil {
		return err
	}
	if !profile.Complete() {
		return notifxErrors.New(ErrInvalidProfile).WithDetail("host", profile.Host)
	}
	if c.profiles == nil {
		return notifxErrors.New(ErrNoProvider)
	}
	return c.profiles.SendWithProfile(ctx, profile, msg)
}

// TestConnection dials and authenticates against profile without sending.
func (c *Client) TestConnection(ctx context.Context, profile DeliveryProfile) error {
	if !profile.Complete() {
		return notifxErrors.New(ErrInvalidProfile).WithDetail("host", profile.Host)
	}
	if c.profiles == nil {
		return notifxErrors.New(ErrNoProvider)
	}
	return c.profiles.TestConnection(ctx, profile)
}

// RegisterTemplate parses and stores a named template for later use.
func (c *Client) RegisterTemplate(name, tmplString string) error {
	return c.templates.Register(name, tmplString)
}

// Render executes a registered template.
func (c *Client) Render(name string, data any) (string, error) {
	return c.templates.Render(name, data)
}

// SendTemplatedEmail renders a template and sends the resulting email.
func (c *Client) SendTemplatedEmail(ctx context.Context, templateName string, data any, msg EmailMessage, opts ...Option) error {
	body, err := c.templates.Render(templateName, data)
	if err != nil {
		return err
	}

	msg.HTMLBody = body
	return c.SendEmail(ctx, msg, opts...)
}
