package role

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/Abraxas-365/authbuilder/pkg/kernel"
)

// Role is a realm-scoped bundle of access grants.
type Role struct {
	ID          kernel.RoleID  `json:"id"`
	RealmID     kernel.RealmID `json:"realm_id"`
	RealmName   string         `json:"realm_name,omitempty"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Access      AccessModules  `json:"access"`
	IsActive    bool           `json:"is_active"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// Rights is the level granted by an access module. It is stored and
// validated but the access decision only looks at routes and methods.
type Rights string

const (
	RightsRead  Rights = "READ"
	RightsWrite Rights = "WRITE"
	RightsAll   Rights = "ALL"
)

func (r Rights) IsValid() bool {
	switch r {
	case RightsRead, RightsWrite, RightsAll:
		return true
	}
	return false
}

// AllowedMethods are the HTTP methods a URI rule may grant.
var AllowedMethods = []string{"GET", "POST", "PUT", "DELETE", "PATCH"}

// URIRule grants methods on a route. URL is either an exact route or a
// prefix terminated by a single trailing '*'.
type URIRule struct {
	URL     string   `json:"url"`
	Methods []string `json:"methods"`
}

type AccessModule struct {
	Module string    `json:"module"`
	Rights Rights    `json:"rights"`
	URI    []URIRule `json:"uri"`
}

// AccessModules is the ordered policy of a role, stored as a JSONB array.
type AccessModules []AccessModule

// Validate rejects malformed policies before they are persisted. Methods are
// upper-cased in place.
func (a AccessModules) Validate() error {
	for i := range a {
		m := &a[i]
		m.Module = strings.TrimSpace(m.Module)
		if m.Module == "" {
			return ErrInvalidAccess().WithDetail("index", i).WithDetail("reason", "Module name is required")
		}
		if !m.Rights.IsValid() {
			return ErrInvalidAccess().WithDetail("module", m.Module).WithDetail("reason", "Rights must be READ, WRITE, or ALL")
		}
		if m.URI == nil {
			return ErrInvalidAccess().WithDetail("module", m.Module).WithDetail("reason", "URI must be an array")
		}
		for j := range m.URI {
			rule := &m.URI[j]
			rule.URL = strings.TrimSpace(rule.URL)
			if rule.URL == "" {
				return ErrInvalidAccess().WithDetail("module", m.Module).WithDetail("reason", "URL is required")
			}
			if idx := strings.Index(rule.URL, "*"); idx >= 0 && idx != len(rule.URL)-1 {
				return ErrInvalidAccess().WithDetail("url", rule.URL).WithDetail("reason", "Wildcard is only supported as the last character")
			}
			if rule.Methods == nil {
				return ErrInvalidAccess().WithDetail("url", rule.URL).WithDetail("reason", "Methods must be an array")
			}
			for k, method := range rule.Methods {
				method = strings.ToUpper(strings.TrimSpace(method))
				if !slices.Contains(AllowedMethods, method) {
					return ErrInvalidAccess().WithDetail("method", method).WithDetail("reason", "HTTP method must be GET, POST, PUT, DELETE, or PATCH")
				}
				rule.Methods[k] = method
			}
		}
	}
	return nil
}

func (a AccessModules) Value() (driver.Value, error) {
	if a == nil {
		a = AccessModules{}
	}
	b, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (a *AccessModules) Scan(src any) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*a = AccessModules{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported access column type %T", src)
	}
	if len(data) == 0 {
		*a = AccessModules{}
		return nil
	}
	return json.Unmarshal(data, a)
}

// Stats counts roles, optionally within a realm.
type Stats struct {
	TotalRoles    int `json:"total_roles"`
	ActiveRoles   int `json:"active_roles"`
	InactiveRoles int `json:"inactive_roles"`
}

// ListFilter narrows FindAll. Zero fields are ignored.
type ListFilter struct {
	RealmID  *kernel.RealmID
	Name     string
	IsActive *bool
}

// Member is a user holding a role.
type Member struct {
	UserID      kernel.UserID `json:"id"`
	Email       string        `json:"email"`
	FirstName   string        `json:"first_name"`
	LastName    string        `json:"last_name"`
	IsActive    bool          `json:"is_active"`
	IsSuperUser bool          `json:"is_super_user"`
	AssignedAt  time.Time     `json:"assigned_at"`
}

// ============================================================================
// DTOs
// ============================================================================

type CreateRoleRequest struct {
	RealmID     string        `json:"realm_id" validate:"required"`
	Name        string        `json:"name" validate:"required,max=100"`
	Description string        `json:"description" validate:"max=500"`
	Access      AccessModules `json:"access" validate:"required"`
}

type UpdateRoleRequest struct {
	Name        *string       `json:"name" validate:"omitempty,min=1,max=100"`
	Description *string       `json:"description" validate:"omitempty,max=500"`
	Access      AccessModules `json:"access"`
}

type AssignUserRequest struct {
	UserID string `json:"user_id" validate:"required"`
}
