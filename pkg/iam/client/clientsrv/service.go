package clientsrv

import (
	"context"
	"strings"
	"time"

	"github.com/Abraxas-365/authbuilder/pkg/errx"
	"github.com/Abraxas-365/authbuilder/pkg/iam/client"
	"github.com/Abraxas-365/authbuilder/pkg/iam/realm"
	"github.com/Abraxas-365/authbuilder/pkg/kernel"
	"github.com/Abraxas-365/authbuilder/pkg/logx"
	"github.com/google/uuid"
)

type ClientService struct {
	clientRepo client.Repository
	realmRepo  realm.Repository
	smtpTester client.SMTPTester
}

func NewClientService(
	clientRepo client.Repository,
	realmRepo realm.Repository,
	smtpTester client.SMTPTester,
) *ClientService {
	return &ClientService{
		clientRepo: clientRepo,
		realmRepo:  realmRepo,
		smtpTester: smtpTester,
	}
}

func (s *ClientService) CreateClient(ctx context.Context, req client.CreateClientRequest) (*client.Client, error) {
	name := strings.TrimSpace(req.Name)
	realmID := kernel.NewRealmID(req.RealmID)

	rl, err := s.realmRepo.FindByID(ctx, realmID)
	if err != nil {
		return nil, err
	}

	if err := s.ensureNameAvailable(ctx, realmID, name, ""); err != nil {
		return nil, err
	}
	if err := validateRedirectURLs(req.RedirectURLs); err != nil {
		return nil, err
	}
	if err := client.ValidateTwoFA(req.TwoFAEnabled, req.SMTPConfig); err != nil {
		return nil, err
	}

	publicID, secret, err := client.GenerateCredentials()
	if err != nil {
		return nil, err
	}

	var endpoints client.Endpoints
	if req.Endpoints != nil {
		endpoints = *req.Endpoints
	}

	now := time.Now().UTC()
	newClient := client.Client{
		ID:           kernel.NewClientID(uuid.NewString()),
		RealmID:      realmID,
		RealmName:    rl.Name,
		Name:         name,
		Description:  strings.TrimSpace(req.Description),
		PublicID:     publicID,
		Secret:       secret,
		Endpoints:    endpoints,
		RedirectURLs: compactURLs(req.RedirectURLs),
		SSOEnabled:   req.SSOEnabled,
		TwoFAEnabled: req.TwoFAEnabled,
		SMTPConfig:   req.SMTPConfig,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.clientRepo.Save(ctx, newClient); err != nil {
		return nil, err
	}

	logx.WithFields(logx.Fields{
		"client_id": newClient.ID,
		"realm_id":  realmID,
		"name":      name,
	}).Info("Client created")
	return &newClient, nil
}

func (s *ClientService) GetClient(ctx context.Context, id kernel.ClientID) (*client.Client, error) {
	return s.clientRepo.FindByID(ctx, id)
}

// ListClients returns every client, or only those of realmID when it is set.
func (s *ClientService) ListClients(ctx context.Context, realmID *kernel.RealmID) ([]*client.Client, error) {
	return s.clientRepo.FindAll(ctx, realmID)
}

func (s *ClientService) UpdateClient(ctx context.Context, id kernel.ClientID, req client.UpdateClientRequest) (*client.Client, error) {
	c, err := s.clientRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name != c.Name {
			if err := s.ensureNameAvailable(ctx, c.RealmID, name, c.ID); err != nil {
				return nil, err
			}
			c.Name = name
		}
	}
	if req.Description != nil {
		c.Description = strings.TrimSpace(*req.Description)
	}
	if req.Endpoints != nil {
		c.Endpoints = *req.Endpoints
	}
	if req.RedirectURLs != nil {
		if err := validateRedirectURLs(req.RedirectURLs); err != nil {
			return nil, err
		}
		c.RedirectURLs = compactURLs(req.RedirectURLs)
	}
	if req.SSOEnabled != nil {
		c.SSOEnabled = *req.SSOEnabled
	}
	if req.TwoFAEnabled != nil {
		c.TwoFAEnabled = *req.TwoFAEnabled
	}
	if req.SMTPConfig != nil {
		cfg := *req.SMTPConfig
		// A blank password keeps the stored one so admins can edit other fields.
		if cfg.Password == "" && c.SMTPConfig != nil {
			cfg.Password = c.SMTPConfig.Password
		}
		c.SMTPConfig = &cfg
	}

	if err := client.ValidateTwoFA(c.TwoFAEnabled, c.SMTPConfig); err != nil {
		return nil, err
	}

	c.UpdatedAt = time.Now().UTC()
	if err := s.clientRepo.Save(ctx, *c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *ClientService) DeleteClient(ctx context.Context, id kernel.ClientID) error {
	if err := s.clientRepo.Delete(ctx, id); err != nil {
		return err
	}
	logx.WithField("client_id", id).Info("Client deleted")
	return nil
}

func (s *ClientService) ToggleStatus(ctx context.Context, id kernel.ClientID) (*client.Client, error) {
	return s.clientRepo.ToggleStatus(ctx, id)
}

func (s *ClientService) RegenerateSecret(ctx context.Context, id kernel.ClientID) (*client.Client, error) {
	secret, err := client.GenerateSecret()
	if err != nil {
		return nil, err
	}
	c, err := s.clientRepo.UpdateSecret(ctx, id, secret)
	if err != nil {
		return nil, err
	}
	logx.WithField("client_id", id).Info("Client secret regenerated")
	return c, nil
}

func (s *ClientService) Stats(ctx context.Context, realmID *kernel.RealmID) (*client.Stats, error) {
	return s.clientRepo.Stats(ctx, realmID)
}

// TestSMTP dials the client's SMTP profile and authenticates without sending.
func (s *ClientService) TestSMTP(ctx context.Context, id kernel.ClientID) error {
	c, err := s.clientRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	profile := c.DeliveryProfile()
	if profile == nil {
		return client.ErrSMTPNotConfigured().WithDetail("client_id", id)
	}
	if err := s.smtpTester.TestConnection(ctx, *profile); err != nil {
		return errx.Wrap(err, "SMTP connection failed", errx.TypeExternal).
			WithDetail("host", profile.Host)
	}
	return nil
}

func (s *ClientService) ensureNameAvailable(ctx context.Context, realmID kernel.RealmID, name string, self kernel.ClientID) error {
	existing, err := s.clientRepo.FindByNameInRealm(ctx, realmID, name)
	if err != nil {
		if errx.HasCode(err, client.CodeClientNotFound) {
			return nil
		}
		return err
	}
	if existing.ID != self {
		return client.ErrNameExists().WithDetail("name", name)
	}
	return nil
}

func validateRedirectURLs(urls []string) error {
	for _, u := range urls {
		if err := client.ValidateRedirectURL(u); err != nil {
			return err
		}
	}
	return nil
}

func compactURLs(urls []string) []string {
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		if u = strings.TrimSpace(u); u != "" {
			out = append(out, u)
		}
	}
	return out
}
