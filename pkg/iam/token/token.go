package token

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/Abraxas-365/authbuilder/pkg/kernel"
)

const (
	// AccessSecretBytes is the entropy of an access secret (32 hex chars).
	AccessSecretBytes = 16
	// RefreshSecretBytes is the entropy of a refresh secret (64 hex chars).
	RefreshSecretBytes = 32
)

// Token is a persisted session. Secrets are only ever stored hashed.
type Token struct {
	ID               kernel.TokenID   `json:"id"`
	UserID           *kernel.UserID   `json:"user_id,omitempty"`
	ClientID         *kernel.ClientID `json:"client_id,omitempty"`
	RealmID          *kernel.RealmID  `json:"realm_id,omitempty"`
	AccessTokenHash  string           `json:"-"`
	RefreshTokenHash string           `json:"-"`
	ExpiresAt        time.Time        `json:"expires_at"`
	RefreshExpiresAt time.Time        `json:"refresh_expires_at"`
	IsSuperUser      bool             `json:"is_super_user"`
	IsClientSession  bool             `json:"is_client_session"`
	IsActive         bool             `json:"is_active"`
	CreatedAt        time.Time        `json:"created_at"`
	LastUsedAt       *time.Time       `json:"last_used_at,omitempty"`
	RevokedAt        *time.Time       `json:"revoked_at,omitempty"`

	// Email of the owning user, empty for client sessions.
	Email string `json:"email,omitempty"`
}

func (t *Token) AccessExpired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

func (t *Token) RefreshExpired(now time.Time) bool {
	return now.After(t.RefreshExpiresAt)
}

// AuthContext builds the request caller for this session.
func (t *Token) AuthContext() *kernel.AuthContext {
	return &kernel.AuthContext{
		TokenID:         t.ID,
		UserID:          t.UserID,
		ClientID:        t.ClientID,
		RealmID:         t.RealmID,
		Email:           t.Email,
		IsSuperUser:     t.IsSuperUser,
		IsClientSession: t.IsClientSession,
	}
}

// Subject identifies who a session is issued to: a user or a client.
type Subject struct {
	UserID   *kernel.UserID
	ClientID *kernel.ClientID
	RealmID  *kernel.RealmID
}

func UserSubject(id kernel.UserID, realmID *kernel.RealmID) Subject {
	return Subject{UserID: &id, RealmID: realmID}
}

func ClientSubject(id kernel.ClientID, realmID kernel.RealmID) Subject {
	return Subject{ClientID: &id, RealmID: &realmID}
}

func (s Subject) IsClient() bool {
	return s.ClientID != nil
}

// Valid reports whether exactly one kind of subject is set.
func (s Subject) Valid() bool {
	return (s.UserID == nil) != (s.ClientID == nil)
}

// IssuedTokens carries the plaintext secrets back to the caller once.
type IssuedTokens struct {
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token"`
	ExpiresAt        time.Time `json:"expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
	Token            *Token    `json:"-"`
}

// GenerateSecret returns n random bytes hex encoded.
func GenerateSecret(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// HashSecret is the lookup key stored for a secret.
func HashSecret(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}
