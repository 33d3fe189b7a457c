package auth

import (
	"context"

	"github.com/Abraxas-365/authbuilder/pkg/config"
	"github.com/Abraxas-365/authbuilder/pkg/errx"
	"github.com/Abraxas-365/authbuilder/pkg/iam"
	"github.com/Abraxas-365/authbuilder/pkg/iam/access"
	"github.com/Abraxas-365/authbuilder/pkg/iam/client"
	"github.com/Abraxas-365/authbuilder/pkg/iam/otp"
	"github.com/Abraxas-365/authbuilder/pkg/iam/token"
	"github.com/Abraxas-365/authbuilder/pkg/iam/user"
	"github.com/Abraxas-365/authbuilder/pkg/kernel"
	"github.com/Abraxas-365/authbuilder/pkg/logx"
	"github.com/Abraxas-365/authbuilder/pkg/notifx"
)

// Login methods reported to the audit trail.
const (
	MethodPassword = "password"
	MethodOTP      = "otp"
	MethodClient   = "client"
)

// AuthService composes the token, OTP and access components into the
// authentication flows.
type AuthService struct {
	users     UserStore
	clients   ClientStore
	passwords PasswordService
	tokens    TokenManager
	otps      OTPManager
	mailer    OTPSender
	throttle  otp.IssueThrottle
	access    AccessDecider
	audit     AuditService
	cfg       *config.AuthConfig
}

func NewAuthService(
	users UserStore,
	clients ClientStore,
	passwords PasswordService,
	tokens TokenManager,
	otps OTPManager,
	mailer OTPSender,
	throttle otp.IssueThrottle,
	decider AccessDecider,
	audit AuditService,
	cfg *config.AuthConfig,
) *AuthService {
	return &AuthService{
		users:     users,
		clients:   clients,
		passwords: passwords,
		tokens:    tokens,
		otps:      otps,
		mailer:    mailer,
		throttle:  throttle,
		access:    decider,
		audit:     audit,
		cfg:       cfg,
	}
}

// ============================================================================
// Login
// ============================================================================

// Login checks the password. Users of a 2FA client get a code by email and no
// tokens; everyone else gets a fresh session.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = user.NormalizeEmail(email)

	u, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errx.HasCode(err, user.CodeUserNotFound) {
			s.audit.LogLoginAttempt(ctx, email, nil, MethodPassword, false, "unknown_email")
			return nil, ErrInvalidCredentials()
		}
		return nil, err
	}

	if !s.passwords.VerifyPassword(u.PasswordHash, password) {
		s.audit.LogLoginAttempt(ctx, email, &u.ID, MethodPassword, false, "bad_password")
		return nil, ErrInvalidCredentials()
	}
	if !u.IsActive {
		s.audit.LogLoginAttempt(ctx, email, &u.ID, MethodPassword, false, "inactive")
		return nil, ErrAccountInactive()
	}

	if u.IsSuperUser {
		return s.startSession(ctx, u, MethodPassword)
	}

	c, err := s.clientOf(ctx, u)
	if err != nil {
		return nil, err
	}
	if c == nil {
		s.audit.LogLoginAttempt(ctx, email, &u.ID, MethodPassword, false, "client_required")
		return nil, ErrClientRequired()
	}

	if c.TwoFAEnabled {
		sent, err := s.issueAndSend(ctx, u, otp.PurposeTwoFactor, c.DeliveryProfile())
		if err != nil {
			return nil, err
		}
		s.audit.LogLoginAttempt(ctx, email, &u.ID, MethodPassword, true, "otp_required")
		return &LoginResult{User: u, RequiresOTP: true, EmailSent: sent}, nil
	}

	return s.startSession(ctx, u, MethodPassword)
}

// ValidateOTP completes a 2FA login.
func (s *AuthService) ValidateOTP(ctx context.Context, email, code string) (*LoginResult, error) {
	email = user.NormalizeEmail(email)

	u, err := s.findForCode(ctx, email)
	if err != nil {
		return nil, err
	}

	if err := s.consume(ctx, u, otp.PurposeTwoFactor, code); err != nil {
		return nil, err
	}
	if !u.IsActive {
		return nil, ErrAccountInactive()
	}

	return s.startSession(ctx, u, MethodOTP)
}

// startSession ends the user's previous sessions before issuing a new pair.
func (s *AuthService) startSession(ctx context.Context, u *user.User, method string) (*LoginResult, error) {
	if err := s.tokens.RevokeAllForUser(ctx, u.ID); err != nil {
		return nil, err
	}
	issued, err := s.tokens.Issue(ctx, token.UserSubject(u.ID, u.RealmID), u.IsSuperUser)
	if err != nil {
		return nil, err
	}

	s.audit.LogLoginAttempt(ctx, u.Email, &u.ID, method, true, "")
	logx.WithFields(logx.Fields{
		"user_id": u.ID,
		"method":  method,
	}).Info("User logged in")

	return &LoginResult{User: u, Tokens: issued}, nil
}

// ClientLogin starts a session whose subject is the client itself.
func (s *AuthService) ClientLogin(ctx context.Context, publicID string) (*ClientLoginResult, error) {
	c, err := s.clients.FindByPublicID(ctx, publicID)
	if err != nil {
		if errx.HasCode(err, client.CodeClientNotFound) {
			s.audit.LogLoginAttempt(ctx, "", nil, MethodClient, false, "unknown_client")
			return nil, ErrInvalidClient()
		}
		return nil, err
	}
	if !c.IsActive {
		s.audit.LogLoginAttempt(ctx, "", nil, MethodClient, false, "client_inactive")
		return nil, ErrClientInactive()
	}

	issued, err := s.tokens.IssueClientSession(ctx, c.ID, c.RealmID)
	if err != nil {
		return nil, err
	}

	s.audit.LogLoginAttempt(ctx, "", nil, MethodClient, true, "")
	logx.WithFields(logx.Fields{
		"client_id": c.ID,
		"realm_id":  c.RealmID,
	}).Info("Client session started")

	return &ClientLoginResult{Client: summarize(c), Tokens: issued}, nil
}

// ============================================================================
// Session
// ============================================================================

// RefreshToken mints a new access token. Every failure looks the same to the
// caller.
func (s *AuthService) RefreshToken(ctx context.Context, refreshSecret string) (*token.IssuedTokens, error) {
	issued, err := s.tokens.RefreshAccess(ctx, refreshSecret)
	if err != nil {
		s.audit.LogTokenRefresh(ctx, "", false)
		if errx.IsType(err, errx.TypeAuthorization) {
			return nil, ErrInvalidRefreshToken()
		}
		return nil, err
	}

	var subject string
	if issued.Token != nil {
		subject = issued.Token.AuthContext().SubjectID()
	}
	s.audit.LogTokenRefresh(ctx, subject, true)
	return issued, nil
}

// Logout revokes only the presented session.
func (s *AuthService) Logout(ctx context.Context, caller *kernel.AuthContext, accessSecret string) error {
	if err := s.tokens.Revoke(ctx, accessSecret); err != nil && !errx.HasCode(err, token.CodeTokenNotFound) {
		return err
	}
	s.audit.LogLogout(ctx, caller.SubjectID())
	return nil
}

// Profile returns the user or client behind the session.
func (s *AuthService) Profile(ctx context.Context, caller *kernel.AuthContext) (*Profile, error) {
	if !caller.IsValid() {
		return nil, iam.ErrUnauthorized()
	}
	if caller.IsClientSession {
		c, err := s.clients.FindByID(ctx, *caller.ClientID)
		if err != nil {
			return nil, err
		}
		return &Profile{Client: summarize(c), IsClientSession: true}, nil
	}

	u, err := s.users.FindByID(ctx, *caller.UserID)
	if err != nil {
		return nil, err
	}
	return &Profile{User: u}, nil
}

// Tokens lists the caller's active sessions.
func (s *AuthService) Tokens(ctx context.Context, caller *kernel.AuthContext) ([]*token.Token, error) {
	if !caller.IsUser() {
		return nil, iam.ErrUserSessionRequired()
	}
	return s.tokens.ActiveForUser(ctx, *caller.UserID)
}

// ValidateRequest asks the access engine whether the caller may perform req.
func (s *AuthService) ValidateRequest(ctx context.Context, caller *kernel.AuthContext, req access.Request) (access.Decision, error) {
	d, err := s.access.Authorize(ctx, caller, req)
	if err != nil {
		return access.Decision{}, err
	}
	s.audit.LogAccessDecision(ctx, caller.SubjectID(), d)
	return d, nil
}

// ============================================================================
// Codes and passwords
// ============================================================================

// ForgotPassword sends a reset code when the account exists. The result does
// not reveal whether it does.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) (bool, error) {
	return s.requestCode(ctx, email, otp.PurposeReset)
}

// ResendOTP issues a new code for purpose. Unknown emails get the same
// answer as known ones.
func (s *AuthService) ResendOTP(ctx context.Context, email string, purpose otp.Purpose) (bool, error) {
	if !purpose.IsValid() {
		return false, otp.ErrInvalidPurpose()
	}
	return s.requestCode(ctx, email, purpose)
}

func (s *AuthService) requestCode(ctx context.Context, email string, purpose otp.Purpose) (bool, error) {
	email = user.NormalizeEmail(email)

	if s.throttle != nil {
		allowed, err := s.throttle.Allow(ctx, email, purpose)
		if err != nil {
			logx.WithError(err).Warn("OTP throttle unavailable, allowing request")
		} else if !allowed {
			return false, otp.ErrTooManyRequests()
		}
	}

	u, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errx.HasCode(err, user.CodeUserNotFound) {
			logx.WithField("purpose", purpose).Debug("Code requested for unknown email")
			return false, nil
		}
		return false, err
	}

	var profile *notifx.DeliveryProfile
	if !u.IsSuperUser {
		c, err := s.clientOf(ctx, u)
		if err != nil {
			return false, err
		}
		profile = c.DeliveryProfile()
	}

	return s.issueAndSend(ctx, u, purpose, profile)
}

// ResetPassword sets a new password with a reset code and ends every session.
func (s *AuthService) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	email = user.NormalizeEmail(email)

	if err := s.checkPasswordLength(newPassword); err != nil {
		return err
	}

	u, err := s.findForCode(ctx, email)
	if err != nil {
		return err
	}
	if err := s.consume(ctx, u, otp.PurposeReset, code); err != nil {
		return err
	}

	return s.setPassword(ctx, u.ID, newPassword, "reset")
}

// ChangePassword replaces the caller's password and ends every session.
func (s *AuthService) ChangePassword(ctx context.Context, userID kernel.UserID, current, newPassword string) error {
	if err := s.checkPasswordLength(newPassword); err != nil {
		return err
	}

	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if !s.passwords.VerifyPassword(u.PasswordHash, current) {
		return ErrCurrentPasswordIncorrect()
	}

	return s.setPassword(ctx, u.ID, newPassword, "change")
}

func (s *AuthService) setPassword(ctx context.Context, userID kernel.UserID, password, method string) error {
	hash, err := s.passwords.HashPassword(password)
	if err != nil {
		return errx.Wrap(err, "failed to hash password", errx.TypeInternal)
	}
	if err := s.users.UpdatePassword(ctx, userID, hash); err != nil {
		return err
	}
	if err := s.tokens.RevokeAllForUser(ctx, userID); err != nil {
		return err
	}

	s.audit.LogPasswordChange(ctx, userID, method)
	logx.WithFields(logx.Fields{
		"user_id": userID,
		"method":  method,
	}).Info("Password updated")
	return nil
}

func (s *AuthService) checkPasswordLength(password string) error {
	if minLen := s.cfg.Password.MinLength; minLen > 0 && len(password) < minLen {
		return ErrWeakPassword().WithDetail("min_length", minLen)
	}
	return nil
}

// ============================================================================
// Helpers
// ============================================================================

// clientOf returns the user's client, or nil when it has none or it was
// removed.
func (s *AuthService) clientOf(ctx context.Context, u *user.User) (*client.Client, error) {
	if !u.HasClient() {
		return nil, nil
	}
	c, err := s.clients.FindByID(ctx, *u.ClientID)
	if err != nil {
		if errx.HasCode(err, client.CodeClientNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return c, nil
}

func (s *AuthService) issueAndSend(ctx context.Context, u *user.User, purpose otp.Purpose, profile *notifx.DeliveryProfile) (bool, error) {
	issued, err := s.otps.IssueFor(ctx, u.ID, purpose, s.cfg.OTP.TTL)
	if err != nil {
		return false, err
	}

	sent := s.mailer.SendOTP(ctx, u.Email, issued.Code, purpose, profile)
	if !sent {
		logx.WithFields(logx.Fields{
			"user_id": u.ID,
			"purpose": purpose,
		}).Warn("OTP email could not be delivered")
	}
	s.audit.LogOTPIssued(ctx, u.ID, purpose, sent)
	return sent, nil
}

// findForCode looks up the user for a code flow. An unknown email fails the
// same way a wrong code does.
func (s *AuthService) findForCode(ctx context.Context, email string) (*user.User, error) {
	u, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errx.HasCode(err, user.CodeUserNotFound) {
			return nil, ErrInvalidCode()
		}
		return nil, err
	}
	return u, nil
}

func (s *AuthService) consume(ctx context.Context, u *user.User, purpose otp.Purpose, code string) error {
	err := s.otps.VerifyAndConsume(ctx, u.ID, purpose, code)
	s.audit.LogOTPVerification(ctx, u.Email, purpose, err == nil)
	if err != nil {
		if errx.HasCode(err, otp.CodeNoActiveCode) || errx.HasCode(err, otp.CodeCodeMismatch) {
			return ErrInvalidCode()
		}
		return err
	}
	return nil
}
