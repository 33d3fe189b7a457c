package otpsrv

import (
	"context"
	"time"

	"github.com/Abraxas-365/authbuilder/pkg/config"
	"github.com/Abraxas-365/authbuilder/pkg/errx"
	"github.com/Abraxas-365/authbuilder/pkg/iam/otp"
	"github.com/Abraxas-365/authbuilder/pkg/kernel"
	"github.com/Abraxas-365/authbuilder/pkg/logx"
	"github.com/google/uuid"
)

type OTPService struct {
	repo   otp.Repository
	hasher otp.CodeHasher
	cfg    *config.OTPConfig
	now    func() time.Time
}

type Option func(*OTPService)

func WithClock(now func() time.Time) Option {
	return func(s *OTPService) { s.now = now }
}

func NewOTPService(repo otp.Repository, hasher otp.CodeHasher, cfg *config.OTPConfig, opts ...Option) *OTPService {
	s := &OTPService{
		repo:   repo,
		hasher: hasher,
		cfg:    cfg,
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *OTPService) defaultTTL() time.Duration {
	if s.cfg == nil || s.cfg.TTL <= 0 {
		return 10 * time.Minute
	}
	return s.cfg.TTL
}

// IssueFor stores a new hashed code for (userID, purpose) and returns the
// plaintext. A non-positive ttl uses the configured default.
func (s *OTPService) IssueFor(ctx context.Context, userID kernel.UserID, purpose otp.Purpose, ttl time.Duration) (*otp.IssuedOTP, error) {
	if !purpose.IsValid() {
		return nil, otp.ErrInvalidPurpose().WithDetail("purpose", purpose)
	}
	if ttl <= 0 {
		ttl = s.defaultTTL()
	}

	code, err := otp.GenerateCode(otp.CodeLength)
	if err != nil {
		return nil, errx.Wrap(err, "failed to generate OTP code", errx.TypeInternal)
	}
	hash, err := s.hasher.HashPassword(code)
	if err != nil {
		return nil, errx.Wrap(err, "failed to hash OTP code", errx.TypeInternal)
	}

	now := s.now()
	o := otp.OTP{
		ID:        uuid.NewString(),
		UserID:    userID,
		Purpose:   purpose,
		CodeHash:  hash,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}
	if err := s.repo.Create(ctx, o); err != nil {
		return nil, err
	}

	entry := logx.WithFields(logx.Fields{
		"user_id":    userID,
		"purpose":    purpose,
		"expires_at": o.ExpiresAt,
	})
	if s.cfg != nil && s.cfg.DebugLog {
		entry = entry.WithField("code", code)
	}
	entry.Debug("OTP issued")

	return &otp.IssuedOTP{Code: code, OTP: &o}, nil
}

// LatestActive returns the newest verifiable code, or nil when there is none.
func (s *OTPService) LatestActive(ctx context.Context, userID kernel.UserID, purpose otp.Purpose) (*otp.OTP, error) {
	o, err := s.repo.FindLatestActive(ctx, userID, purpose, s.now())
	if err != nil {
		if errx.HasCode(err, otp.CodeNoActiveCode) {
			return nil, nil
		}
		return nil, err
	}
	return o, nil
}

// VerifyAndConsume checks code against the latest active OTP and consumes it
// on a match. A mismatch leaves the OTP usable until it expires.
func (s *OTPService) VerifyAndConsume(ctx context.Context, userID kernel.UserID, purpose otp.Purpose, code string) error {
	if !purpose.IsValid() {
		return otp.ErrInvalidPurpose().WithDetail("purpose", purpose)
	}

	latest, err := s.LatestActive(ctx, userID, purpose)
	if err != nil {
		return err
	}
	if latest == nil {
		return otp.ErrNoActiveCode()
	}

	if !s.hasher.VerifyPassword(latest.CodeHash, code) {
		return otp.ErrCodeMismatch()
	}

	return s.repo.Consume(ctx, latest.ID, s.now())
}
