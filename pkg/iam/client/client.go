package client

import (
	"crypto/rand"
	"database/sql/driver"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/Abraxas-365/authbuilder/pkg/errx"
	"github.com/Abraxas-365/authbuilder/pkg/kernel"
	"github.com/Abraxas-365/authbuilder/pkg/notifx"
)

const PublicIDPrefix = "client_"

// Client is an application registered under a realm.
type Client struct {
	ID           kernel.ClientID `json:"id"`
	RealmID      kernel.RealmID  `json:"realm_id"`
	RealmName    string          `json:"realm_name,omitempty"`
	Name         string          `json:"name"`
	Description  string          `json:"description,omitempty"`
	PublicID     string          `json:"client_id"`
	Secret       string          `json:"client_secret"`
	Endpoints    Endpoints       `json:"endpoints"`
	RedirectURLs []string        `json:"redirect_urls"`
	SSOEnabled   bool            `json:"sso_enabled"`
	TwoFAEnabled bool            `json:"twofa_enabled"`
	SMTPConfig   *SMTPConfig     `json:"smtp_config,omitempty"`
	IsActive     bool            `json:"is_active"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// DeliveryProfile returns the client's own SMTP profile, or nil when none is
// configured.
func (c *Client) DeliveryProfile() *notifx.DeliveryProfile {
	if c == nil || c.SMTPConfig == nil || c.SMTPConfig.IsZero() {
		return nil
	}
	p := c.SMTPConfig.Profile()
	return &p
}

// ============================================================================
// JSON columns
// ============================================================================

// Endpoints is the client's endpoint policy. An empty AllowedHosts list
// means every host is allowed.
type Endpoints struct {
	AllowedHosts []string `json:"allowed_hosts"`
}

// AllowsHost reports whether host passes the allow-list.
func (e Endpoints) AllowsHost(host string) bool {
	if len(e.AllowedHosts) == 0 {
		return true
	}
	return slices.Contains(e.AllowedHosts, host)
}

func (e Endpoints) Value() (driver.Value, error) {
	if e.AllowedHosts == nil {
		e.AllowedHosts = []string{}
	}
	b, err := json.Marshal(e)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (e *Endpoints) Scan(src any) error {
	return scanJSON(src, e)
}

// SMTPConfig is a client-specific mail delivery profile.
type SMTPConfig struct {
	Host      string `json:"host"`
	Port      int    `json:"port"`
	Username  string `json:"username"`
	Password  string `json:"password"`
	FromEmail string `json:"from_email"`
	Secure    bool   `json:"secure"`
}

func (s SMTPConfig) IsZero() bool {
	return s == SMTPConfig{}
}

// MissingFields lists the fields a 2FA-enabled client must provide.
func (s SMTPConfig) MissingFields() []string {
	var missing []string
	if strings.TrimSpace(s.Host) == "" {
		missing = append(missing, "host")
	}
	if s.Port <= 0 {
		missing = append(missing, "port")
	}
	if strings.TrimSpace(s.Username) == "" {
		missing = append(missing, "username")
	}
	if s.Password == "" {
		missing = append(missing, "password")
	}
	if strings.TrimSpace(s.FromEmail) == "" {
		missing = append(missing, "from_email")
	}
	return missing
}

func (s SMTPConfig) Profile() notifx.DeliveryProfile {
	return notifx.DeliveryProfile{
		Host:      s.Host,
		Port:      s.Port,
		Secure:    s.Secure,
		Username:  s.Username,
		Password:  s.Password,
		FromEmail: s.FromEmail,
	}
}

func (s SMTPConfig) Value() (driver.Value, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (s *SMTPConfig) Scan(src any) error {
	return scanJSON(src, s)
}

func scanJSON(src any, dest any) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported JSON column type %T", src)
	}
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, dest)
}

// ============================================================================
// Credentials and validation
// ============================================================================

// GenerateCredentials returns a new public identifier and secret.
func GenerateCredentials() (publicID, secret string, err error) {
	publicID, err = randomHex(16)
	if err != nil {
		return "", "", err
	}
	secret, err = GenerateSecret()
	if err != nil {
		return "", "", err
	}
	return PublicIDPrefix + publicID, secret, nil
}

func GenerateSecret() (string, error) {
	return randomHex(32)
}

func randomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", errx.Wrap(err, "failed to generate random bytes", errx.TypeInternal)
	}
	return hex.EncodeToString(b), nil
}

// ValidateRedirectURL accepts blank values and URLs whose host is localhost,
// 127.0.0.1 or a dotted name.
func ValidateRedirectURL(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ErrInvalidRedirectURL().WithDetail("url", raw)
	}
	host := u.Hostname()
	if host == "localhost" || host == "127.0.0.1" || strings.Contains(host, ".") {
		return nil
	}
	return ErrInvalidRedirectURL().WithDetail("url", raw)
}

// ValidateTwoFA requires a complete SMTP profile when 2FA is enabled.
func ValidateTwoFA(twoFAEnabled bool, cfg *SMTPConfig) error {
	if !twoFAEnabled {
		return nil
	}
	var missing []string
	if cfg == nil {
		missing = SMTPConfig{}.MissingFields()
	} else {
		missing = cfg.MissingFields()
	}
	if len(missing) > 0 {
		return ErrSMTPIncomplete().
			WithDetail("missing", missing)
	}
	return nil
}

// ============================================================================
// DTOs
// ============================================================================

type CreateClientRequest struct {
	RealmID      string      `json:"realm_id" validate:"required"`
	Name         string      `json:"name" validate:"required,max=100"`
	Description  string      `json:"description" validate:"max=500"`
	Endpoints    *Endpoints  `json:"endpoints"`
	RedirectURLs []string    `json:"redirect_urls"`
	SSOEnabled   bool        `json:"sso_enabled"`
	TwoFAEnabled bool        `json:"twofa_enabled"`
	SMTPConfig   *SMTPConfig `json:"smtp_config"`
}

type UpdateClientRequest struct {
	Name         *string     `json:"name" validate:"omitempty,min=1,max=100"`
	Description  *string     `json:"description" validate:"omitempty,max=500"`
	Endpoints    *Endpoints  `json:"endpoints"`
	RedirectURLs []string    `json:"redirect_urls"`
	SSOEnabled   *bool       `json:"sso_enabled"`
	TwoFAEnabled *bool       `json:"twofa_enabled"`
	SMTPConfig   *SMTPConfig `json:"smtp_config"`
}

// Stats summarises the clients of one realm or of the whole system.
type Stats struct {
	TotalClients        int `json:"total_clients"`
	ActiveClients       int `json:"active_clients"`
	SSOEnabledClients   int `json:"sso_enabled_clients"`
	TwoFAEnabledClients int `json:"twofa_enabled_clients"`
}
