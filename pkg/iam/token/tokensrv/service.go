package tokensrv

import (
	"context"
	"time"

	"github.com/Abraxas-365/authbuilder/pkg/config"
	"github.com/Abraxas-365/authbuilder/pkg/errx"
	"github.com/Abraxas-365/authbuilder/pkg/iam/token"
	"github.com/Abraxas-365/authbuilder/pkg/kernel"
	"github.com/Abraxas-365/authbuilder/pkg/logx"
	"github.com/google/uuid"
)

// TokenService manages the session lifecycle: issue, refresh, extend on use,
// revoke and sweep.
type TokenService struct {
	repo token.Repository
	cfg  *config.TokenConfig
	now  func() time.Time
}

type Option func(*TokenService)

// WithClock replaces the wall clock, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *TokenService) { s.now = now }
}

func NewTokenService(repo token.Repository, cfg *config.TokenConfig, opts ...Option) *TokenService {
	s := &TokenService{
		repo: repo,
		cfg:  cfg,
		now:  func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *TokenService) accessTTL() time.Duration {
	if s.cfg == nil || s.cfg.AccessTTL <= 0 {
		return 60 * time.Minute
	}
	return s.cfg.AccessTTL
}

func (s *TokenService) refreshTTL() time.Duration {
	if s.cfg == nil || s.cfg.RefreshTTL <= 0 {
		return 7 * 24 * time.Hour
	}
	return s.cfg.RefreshTTL
}

// Issue creates a new active session for subject and returns its secrets.
func (s *TokenService) Issue(ctx context.Context, subject token.Subject, superUser bool) (*token.IssuedTokens, error) {
	if !subject.Valid() {
		return nil, token.ErrInvalidSubject()
	}

	access, err := token.GenerateSecret(token.AccessSecretBytes)
	if err != nil {
		return nil, errx.Wrap(err, "failed to generate access token", errx.TypeInternal)
	}
	refresh, err := token.GenerateSecret(token.RefreshSecretBytes)
	if err != nil {
		return nil, errx.Wrap(err, "failed to generate refresh token", errx.TypeInternal)
	}

	now := s.now()
	t := token.Token{
		ID:               kernel.TokenID(uuid.NewString()),
		UserID:           subject.UserID,
		ClientID:         subject.ClientID,
		RealmID:          subject.RealmID,
		AccessTokenHash:  token.HashSecret(access),
		RefreshTokenHash: token.HashSecret(refresh),
		ExpiresAt:        now.Add(s.accessTTL()),
		RefreshExpiresAt: now.Add(s.refreshTTL()),
		IsSuperUser:      superUser && !subject.IsClient(),
		IsClientSession:  subject.IsClient(),
		IsActive:         true,
		CreatedAt:        now,
	}

	if err := s.repo.Create(ctx, t); err != nil {
		return nil, err
	}

	return &token.IssuedTokens{
		AccessToken:      access,
		RefreshToken:     refresh,
		ExpiresAt:        t.ExpiresAt,
		RefreshExpiresAt: t.RefreshExpiresAt,
		Token:            &t,
	}, nil
}

// IssueClientSession issues a session whose subject is the client itself.
func (s *TokenService) IssueClientSession(ctx context.Context, clientID kernel.ClientID, realmID kernel.RealmID) (*token.IssuedTokens, error) {
	return s.Issue(ctx, token.ClientSubject(clientID, realmID), false)
}

// FindByAccessSecret returns the live session for secret. Sessions whose
// access window has closed are reported as not found.
func (s *TokenService) FindByAccessSecret(ctx context.Context, secret string) (*token.Token, error) {
	if secret == "" {
		return nil, token.ErrTokenNotFound()
	}
	t, err := s.repo.FindActiveByAccessHash(ctx, token.HashSecret(secret))
	if err != nil {
		return nil, err
	}
	if t.AccessExpired(s.now()) {
		return nil, token.ErrTokenNotFound()
	}
	return t, nil
}

// FindByRefreshSecret returns the active session holding the refresh secret,
// regardless of its access expiry.
func (s *TokenService) FindByRefreshSecret(ctx context.Context, secret string) (*token.Token, error) {
	if secret == "" {
		return nil, token.ErrTokenNotFound()
	}
	return s.repo.FindActiveByRefreshHash(ctx, token.HashSecret(secret))
}

// RefreshAccess mints a new access secret for the session. The refresh secret
// is not rotated.
func (s *TokenService) RefreshAccess(ctx context.Context, refreshSecret string) (*token.IssuedTokens, error) {
	t, err := s.FindByRefreshSecret(ctx, refreshSecret)
	if err != nil {
		if errx.HasCode(err, token.CodeTokenNotFound) {
			return nil, token.ErrInvalidRefreshToken()
		}
		return nil, err
	}

	now := s.now()
	if t.RefreshExpired(now) {
		return nil, token.ErrRefreshTokenExpired()
	}

	access, err := token.GenerateSecret(token.AccessSecretBytes)
	if err != nil {
		return nil, errx.Wrap(err, "failed to generate access token", errx.TypeInternal)
	}

	updated, err := s.repo.RotateAccess(ctx, t.RefreshTokenHash, token.HashSecret(access), now.Add(s.accessTTL()), now)
	if err != nil {
		if errx.HasCode(err, token.CodeTokenNotFound) {
			// revoked or expired between the read and the update
			return nil, token.ErrInvalidRefreshToken()
		}
		return nil, err
	}

	return &token.IssuedTokens{
		AccessToken:      access,
		RefreshToken:     refreshSecret,
		ExpiresAt:        updated.ExpiresAt,
		RefreshExpiresAt: updated.RefreshExpiresAt,
		Token:            updated,
	}, nil
}

// ExtendExpiry slides the access window of a live session to now+AccessTTL.
func (s *TokenService) ExtendExpiry(ctx context.Context, accessSecret string) error {
	now := s.now()
	err := s.repo.Extend(ctx, token.HashSecret(accessSecret), now.Add(s.accessTTL()), now)
	if errx.HasCode(err, token.CodeTokenNotFound) {
		return token.ErrInvalidAccessToken()
	}
	return err
}

func (s *TokenService) Revoke(ctx context.Context, accessSecret string) error {
	return s.repo.RevokeByAccessHash(ctx, token.HashSecret(accessSecret), s.now())
}

// RevokeAllForUser ends every active session of the user.
func (s *TokenService) RevokeAllForUser(ctx context.Context, userID kernel.UserID) error {
	n, err := s.repo.RevokeAllForUser(ctx, userID, s.now())
	if err != nil {
		return err
	}
	if n > 0 {
		logx.WithFields(logx.Fields{"user_id": userID, "revoked": n}).Debug("Sessions revoked")
	}
	return nil
}

// ActiveForUser lists the user's active sessions, including access-expired
// ones that can still be refreshed.
func (s *TokenService) ActiveForUser(ctx context.Context, userID kernel.UserID) ([]*token.Token, error) {
	return s.repo.FindActiveByUser(ctx, userID)
}

// SweepExpired deactivates sessions whose access window has closed.
func (s *TokenService) SweepExpired(ctx context.Context) (int64, error) {
	return s.repo.DeactivateExpired(ctx, s.now())
}
