package auth_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Abraxas-365/authbuilder/pkg/config"
	"github.com/Abraxas-365/authbuilder/pkg/iam/access"
	"github.com/Abraxas-365/authbuilder/pkg/iam/auth"
	"github.com/Abraxas-365/authbuilder/pkg/iam/client"
	"github.com/Abraxas-365/authbuilder/pkg/iam/otp"
	"github.com/Abraxas-365/authbuilder/pkg/iam/token"
	"github.com/Abraxas-365/authbuilder/pkg/iam/user"
	"github.com/Abraxas-365/authbuilder/pkg/kernel"
	"github.com/Abraxas-365/authbuilder/pkg/notifx"
)

// ============================================================================
// Users and clients
// ============================================================================

type memUsers struct {
	mu    sync.Mutex
	users map[kernel.UserID]*user.User
}

func (m *memUsers) FindByID(_ context.Context, id kernel.UserID) (*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, user.ErrUserNotFound()
}

func (m *memUsers) FindByEmail(_ context.Context, email string) (*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, user.ErrUserNotFound()
}

func (m *memUsers) UpdatePassword(_ context.Context, id kernel.UserID, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return user.ErrUserNotFound()
	}
	u.PasswordHash = hash
	return nil
}

func (m *memUsers) hashOf(id kernel.UserID) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.users[id].PasswordHash
}

type memClients map[kernel.ClientID]*client.Client

func (m memClients) FindByID(_ context.Context, id kernel.ClientID) (*client.Client, error) {
	if c, ok := m[id]; ok {
		return c, nil
	}
	return nil, client.ErrClientNotFound()
}

func (m memClients) FindByPublicID(_ context.Context, publicID string) (*client.Client, error) {
	for _, c := range m {
		if c.PublicID == publicID {
			return c, nil
		}
	}
	return nil, client.ErrClientNotFound()
}

// prefixPasswords is a reversible stand-in for bcrypt.
type prefixPasswords struct{}

func (prefixPasswords) HashPassword(p string) (string, error) { return "h:" + p, nil }
func (prefixPasswords) VerifyPassword(hash, p string) bool    { return hash == "h:"+p }

// ============================================================================
// Tokens
// ============================================================================

type session struct {
	tok     token.Token
	access  string
	refresh string
}

type fakeTokens struct {
	mu       sync.Mutex
	n        int
	sessions []*session
	extended int
}

func (f *fakeTokens) Issue(_ context.Context, subject token.Subject, superUser bool) (*token.IssuedTokens, error) {
	if !subject.Valid() {
		return nil, token.ErrInvalidSubject()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.n++
	s := &session{
		access:  fmt.Sprintf("acc-%d", f.n),
		refresh: fmt.Sprintf("ref-%d", f.n),
		tok: token.Token{
			ID:              kernel.TokenID(fmt.Sprintf("t-%d", f.n)),
			UserID:          subject.UserID,
			ClientID:        subject.ClientID,
			RealmID:         subject.RealmID,
			IsSuperUser:     superUser && !subject.IsClient(),
			IsClientSession: subject.IsClient(),
			IsActive:        true,
			ExpiresAt:       time.Now().Add(time.Hour),
		},
	}
	f.sessions = append(f.sessions, s)
	tok := s.tok
	return &token.IssuedTokens{AccessToken: s.access, RefreshToken: s.refresh, ExpiresAt: tok.ExpiresAt, Token: &tok}, nil
}

func (f *fakeTokens) IssueClientSession(ctx context.Context, clientID kernel.ClientID, realmID kernel.RealmID) (*token.IssuedTokens, error) {
	return f.Issue(ctx, token.ClientSubject(clientID, realmID), false)
}

func (f *fakeTokens) byAccess(secret string) *session {
	for _, s := range f.sessions {
		if s.tok.IsActive && s.access == secret {
			return s
		}
	}
	return nil
}

func (f *fakeTokens) FindByAccessSecret(_ context.Context, secret string) (*token.Token, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s := f.byAccess(secret); s != nil {
		tok := s.tok
		return &tok, nil
	}
	return nil, token.ErrTokenNotFound()
}

func (f *fakeTokens) RefreshAccess(_ context.Context, refresh string) (*token.IssuedTokens, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.sessions {
		if s.tok.IsActive && s.refresh == refresh {
			f.n++
			s.access = fmt.Sprintf("acc-%d", f.n)
			tok := s.tok
			return &token.IssuedTokens{AccessToken: s.access, RefreshToken: refresh, Token: &tok}, nil
		}
	}
	return nil, token.ErrInvalidRefreshToken()
}

func (f *fakeTokens) ExtendExpiry(_ context.Context, secret string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.byAccess(secret) == nil {
		return token.ErrInvalidAccessToken()
	}
	f.extended++
	return nil
}

func (f *fakeTokens) Revoke(_ context.Context, secret string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := f.byAccess(secret)
	if s == nil {
		return token.ErrTokenNotFound()
	}
	s.tok.IsActive = false
	return nil
}

func (f *fakeTokens) RevokeAllForUser(_ context.Context, userID kernel.UserID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.sessions {
		if s.tok.UserID != nil && *s.tok.UserID == userID {
			s.tok.IsActive = false
		}
	}
	return nil
}

func (f *fakeTokens) ActiveForUser(_ context.Context, userID kernel.UserID) ([]*token.Token, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*token.Token
	for _, s := range f.sessions {
		if s.tok.IsActive && s.tok.UserID != nil && *s.tok.UserID == userID {
			tok := s.tok
			out = append(out, &tok)
		}
	}
	return out, nil
}

func (f *fakeTokens) issuedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sessions)
}

// ============================================================================
// Codes and mail
// ============================================================================

type code struct {
	value    string
	consumed bool
}

type fakeOTPs struct {
	mu    sync.Mutex
	n     int
	codes map[string][]*code
}

func otpKey(userID kernel.UserID, purpose otp.Purpose) string {
	return userID.String() + "/" + string(purpose)
}

func (f *fakeOTPs) IssueFor(_ context.Context, userID kernel.UserID, purpose otp.Purpose, _ time.Duration) (*otp.IssuedOTP, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.n++
	c := &code{value: fmt.Sprintf("%06d", 100000+f.n)}
	if f.codes == nil {
		f.codes = map[string][]*code{}
	}
	key := otpKey(userID, purpose)
	f.codes[key] = append(f.codes[key], c)
	return &otp.IssuedOTP{Code: c.value, OTP: &otp.OTP{UserID: userID, Purpose: purpose}}, nil
}

func (f *fakeOTPs) VerifyAndConsume(_ context.Context, userID kernel.UserID, purpose otp.Purpose, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	list := f.codes[otpKey(userID, purpose)]
	if len(list) == 0 || list[len(list)-1].consumed {
		return otp.ErrNoActiveCode()
	}
	latest := list[len(list)-1]
	if latest.value != value {
		return otp.ErrCodeMismatch()
	}
	latest.consumed = true
	return nil
}

func (f *fakeOTPs) latest(userID kernel.UserID, purpose otp.Purpose) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	list := f.codes[otpKey(userID, purpose)]
	if len(list) == 0 {
		return ""
	}
	return list[len(list)-1].value
}

type sentOTP struct {
	to      string
	code    string
	purpose otp.Purpose
	profile *notifx.DeliveryProfile
}

type recordingMailer struct {
	mu   sync.Mutex
	fail bool
	sent []sentOTP
}

func (m *recordingMailer) SendOTP(_ context.Context, to, code string, purpose otp.Purpose, profile *notifx.DeliveryProfile) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentOTP{to: to, code: code, purpose: purpose, profile: profile})
	return !m.fail
}

type denyAfterFirst struct {
	mu   sync.Mutex
	seen map[string]bool
}

func (d *denyAfterFirst) Allow(_ context.Context, subject string, purpose otp.Purpose) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.seen == nil {
		d.seen = map[string]bool{}
	}
	key := subject + "/" + string(purpose)
	if d.seen[key] {
		return false, nil
	}
	d.seen[key] = true
	return true, nil
}

type fixedDecider struct {
	decision access.Decision
	calls    int
}

func (d *fixedDecider) Authorize(_ context.Context, caller *kernel.AuthContext, _ access.Request) (access.Decision, error) {
	d.calls++
	return d.decision, nil
}

// ============================================================================
// Harness
// ============================================================================

var (
	realm1   = kernel.NewRealmID("r-1")
	openID   = kernel.NewClientID("c-open")
	twoFAID  = kernel.NewClientID("c-2fa")
	offID    = kernel.NewClientID("c-off")
	clientSM = &client.SMTPConfig{Host: "smtp.acme.com", Port: 587, Username: "bot", Password: "pw", FromEmail: "bot@acme.com"}
)

type harness struct {
	svc      *auth.AuthService
	users    *memUsers
	clients  memClients
	tokens   *fakeTokens
	otps     *fakeOTPs
	mailer   *recordingMailer
	throttle *denyAfterFirst
	decider  *fixedDecider
}

func newUser(id, email, password string, clientID *kernel.ClientID) *user.User {
	return &user.User{
		ID:           kernel.NewUserID(id),
		Email:        email,
		PasswordHash: "h:" + password,
		RealmID:      &realm1,
		ClientID:     clientID,
		IsActive:     true,
	}
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	admin := &user.User{ID: "u-admin", Email: "admin@admin.com", PasswordHash: "h:admin-pass", IsSuperUser: true, IsActive: true}
	inactive := newUser("u-old", "old@acme.com", "secret1", &openID)
	inactive.IsActive = false

	users := &memUsers{users: map[kernel.UserID]*user.User{
		"u-admin":  admin,
		"u-ada":    newUser("u-ada", "ada@acme.com", "secret1", &openID),
		"u-grace":  newUser("u-grace", "grace@acme.com", "secret2", &twoFAID),
		"u-nobody": newUser("u-nobody", "nobody@acme.com", "secret3", nil),
		"u-old":    inactive,
	}}
	clients := memClients{
		openID:  {ID: openID, RealmID: realm1, RealmName: "acme", Name: "web", PublicID: "client_open", IsActive: true},
		twoFAID: {ID: twoFAID, RealmID: realm1, Name: "secure", PublicID: "client_2fa", TwoFAEnabled: true, SMTPConfig: clientSM, IsActive: true},
		offID:   {ID: offID, RealmID: realm1, Name: "retired", PublicID: "client_off", IsActive: false},
	}

	h := &harness{
		users:    users,
		clients:  clients,
		tokens:   &fakeTokens{},
		otps:     &fakeOTPs{},
		mailer:   &recordingMailer{},
		throttle: &denyAfterFirst{},
		decider:  &fixedDecider{decision: access.Decision{Allowed: true, Reason: access.ReasonMatched}},
	}
	cfg := &config.AuthConfig{
		OTP:      config.OTPConfig{TTL: 10 * time.Minute},
		Password: config.PasswordConfig{MinLength: 6},
	}
	h.svc = auth.NewAuthService(users, clients, prefixPasswords{}, h.tokens, h.otps, h.mailer, h.throttle, h.decider, auth.MultiAudit{}, cfg)
	return h
}

func (h *harness) lastMail(t *testing.T) sentOTP {
	t.Helper()
	h.mailer.mu.Lock()
	defer h.mailer.mu.Unlock()
	if len(h.mailer.sent) == 0 {
		t.Fatal("no OTP email sent")
	}
	return h.mailer.sent[len(h.mailer.sent)-1]
}

func (h *harness) mailCount() int {
	h.mailer.mu.Lock()
	defer h.mailer.mu.Unlock()
	return len(h.mailer.sent)
}

func userCaller(id kernel.UserID, super bool) *kernel.AuthContext {
	return &kernel.AuthContext{TokenID: "t", UserID: &id, IsSuperUser: super}
}
