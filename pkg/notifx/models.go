package notifx

import "strings"

// EmailMessage represents an email to be sent.
type EmailMessage struct {
	From     string   `json:"from"`
	FromName string   `json:"from_name,omitempty"`
	To       []string `json:"to"`
	ReplyTo  string   `json:"reply_to,omitempty"`
	Subject  string   `json:"subject"`
	TextBody string   `json:"text_body,omitempty"`
	HTMLBody string   `json:"html_body,omitempty"`
}

func (m EmailMessage) validate() error {
	if len(m.To) == 0 {
		return notifxErrors.New(ErrInvalidMessage).WithDetail("reason", "no recipients")
	}
	if m.Subject == "" {
		return notifxErrors.New(ErrInvalidMessage).WithDetail("reason", "empty subject")
	}
	if m.TextBody == "" && m.HTMLBody == "" {
		return notifxErrors.New(ErrInvalidMessage).WithDetail("reason", "empty body")
	}
	return nil
}

// DeliveryProfile is a set of SMTP credentials, either a client's own or the
// system default.
type DeliveryProfile struct {
	Host       string `json:"host"`
	Port       int    `json:"port"`
	Secure     bool   `json:"secure"`
	RequireTLS bool   `json:"require_tls"`
	Username   string `json:"username"`
	Password   string `json:"-"`
	FromEmail  string `json:"from_email"`
	FromName   string `json:"from_name,omitempty"`
	AuthMethod string `json:"auth_method,omitempty"`
}

// Complete reports whether the profile can be used to deliver mail.
func (p DeliveryProfile) Complete() bool {
	return strings.TrimSpace(p.Host) != "" &&
		p.Port > 0 &&
		strings.TrimSpace(p.Username) != "" &&
		p.Password != ""
}

// Sender returns the address mail is sent from, defaulting to the username.
func (p DeliveryProfile) Sender() string {
	if p.FromEmail != "" {
		return p.FromEmail
	}
	return p.Username
}
