package user

import (
	"crypto/rand"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/Abraxas-365/authbuilder/pkg/kernel"
)

// User is either a super-user (global) or a realm user.
type User struct {
	ID           kernel.UserID    `json:"id"`
	Email        string           `json:"email"`
	PasswordHash string           `json:"-"`
	FirstName    string           `json:"first_name"`
	LastName     string           `json:"last_name"`
	IsSuperUser  bool             `json:"is_super_user"`
	RealmID      *kernel.RealmID  `json:"realm_id,omitempty"`
	RealmName    string           `json:"realm_name,omitempty"`
	ClientID     *kernel.ClientID `json:"client_id,omitempty"`
	ClientName   string           `json:"client_name,omitempty"`
	IsActive     bool             `json:"is_active"`
	Roles        RoleRefs         `json:"roles"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// IsProtected reports whether u is the distinguished admin account.
func (u *User) IsProtected(adminEmail string) bool {
	return adminEmail != "" && strings.EqualFold(u.Email, adminEmail)
}

// HasClient reports whether the user is associated with a client.
func (u *User) HasClient() bool {
	return u.ClientID != nil && !u.ClientID.IsEmpty()
}

// RoleRef is the summary of an assigned role embedded in user reads.
type RoleRef struct {
	ID          kernel.RoleID `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
}

// RoleRefs is scanned from a json_agg column.
type RoleRefs []RoleRef

func (r *RoleRefs) Scan(src any) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*r = RoleRefs{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported roles column type %T", src)
	}
	if len(data) == 0 {
		*r = RoleRefs{}
		return nil
	}
	return json.Unmarshal(data, r)
}

func (r RoleRefs) Value() (driver.Value, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// NormalizeEmail lower-cases and trims an address before lookup or storage.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

const passwordAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789!@#$%^&*"

// GeneratePassword returns a random password of the given length.
func GeneratePassword(length int) (string, error) {
	if length <= 0 {
		length = 12
	}
	max := big.NewInt(int64(len(passwordAlphabet)))
	var b strings.Builder
	b.Grow(length)
	for range length {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generate password: %w", err)
		}
		b.WriteByte(passwordAlphabet[n.Int64()])
	}
	return b.String(), nil
}

// ListFilter narrows FindAll and Stats. Nil fields are ignored.
type ListFilter struct {
	RealmID     *kernel.RealmID
	ClientID    *kernel.ClientID
	IsSuperUser *bool
	IsActive    *bool
	Search      string
}

type Stats struct {
	TotalUsers    int `json:"total_users"`
	SuperUsers    int `json:"super_users"`
	RealmUsers    int `json:"realm_users"`
	ActiveUsers   int `json:"active_users"`
	InactiveUsers int `json:"inactive_users"`
}

// ============================================================================
// DTOs
// ============================================================================

type CreateUserRequest struct {
	Email       string   `json:"email" validate:"required,email,max=255"`
	Password    string   `json:"password" validate:"omitempty,min=6"`
	FirstName   string   `json:"first_name" validate:"required,max=100"`
	LastName    string   `json:"last_name" validate:"required,max=100"`
	IsSuperUser bool     `json:"is_super_user"`
	RealmID     *string  `json:"realm_id"`
	ClientID    *string  `json:"client_id"`
	Roles       []string `json:"roles"`
}

type UpdateUserRequest struct {
	FirstName   *string   `json:"first_name" validate:"omitempty,min=1,max=100"`
	LastName    *string   `json:"last_name" validate:"omitempty,min=1,max=100"`
	IsSuperUser *bool     `json:"is_super_user"`
	RealmID     *string   `json:"realm_id"`
	ClientID    *string   `json:"client_id"`
	IsActive    *bool     `json:"is_active"`
	Password    *string   `json:"password" validate:"omitempty,min=6"`
	Roles       *[]string `json:"roles"`
}

// CreatedUser is returned on creation. GeneratedPassword is only set when
// the account was given a generated password.
type CreatedUser struct {
	*User
	GeneratedPassword string `json:"generated_password,omitempty"`
	WelcomeQueued     bool   `json:"welcome_email_queued"`
}

// WelcomeEmail carries what the welcome notification needs.
type WelcomeEmail struct {
	UserID    kernel.UserID    `json:"user_id"`
	Email     string           `json:"email"`
	FirstName string           `json:"first_name"`
	LastName  string           `json:"last_name"`
	Password  string           `json:"password"`
	ClientID  *kernel.ClientID `json:"client_id,omitempty"`
}
