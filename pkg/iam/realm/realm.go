package realm

import (
	"regexp"
	"strings"
	"time"

	"github.com/Abraxas-365/authbuilder/pkg/kernel"
)

// Realm is a tenant boundary grouping clients, users and roles.
type Realm struct {
	ID          kernel.RealmID `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	IsActive    bool           `json:"is_active"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// Stats counts the active resources living in a realm.
type Stats struct {
	ClientCount int `json:"client_count"`
	UserCount   int `json:"user_count"`
	RoleCount   int `json:"role_count"`
}

type RealmWithStats struct {
	Realm
	Stats
}

// Dependencies counts every row, active or not, that references a realm.
type Dependencies struct {
	Clients int `json:"clients"`
	Users   int `json:"users"`
	Roles   int `json:"roles"`
}

func (d Dependencies) Any() bool {
	return d.Clients > 0 || d.Users > 0 || d.Roles > 0
}

var namePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// ValidateName checks the realm naming rule: 1-100 letters, digits, '_' or '-'.
func ValidateName(name string) error {
	if name == "" || len(name) > 100 {
		return ErrInvalidName().WithDetail("name", name)
	}
	if !namePattern.MatchString(name) {
		return ErrInvalidName().WithDetail("name", name)
	}
	return nil
}

// ============================================================================
// DTOs
// ============================================================================

type CreateRealmRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"max=500"`
	IsActive    *bool  `json:"is_active"`
}

// Normalize trims surrounding whitespace from text fields.
func (r *CreateRealmRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Description = strings.TrimSpace(r.Description)
}

type UpdateRealmRequest struct {
	Name        *string `json:"name" validate:"omitempty,max=100"`
	Description *string `json:"description" validate:"omitempty,max=500"`
	IsActive    *bool   `json:"is_active"`
}

func (r *UpdateRealmRequest) Normalize() {
	if r.Name != nil {
		name := strings.TrimSpace(*r.Name)
		r.Name = &name
	}
	if r.Description != nil {
		desc := strings.TrimSpace(*r.Description)
		r.Description = &desc
	}
}
