package rolesrv

import (
	"context"
	"strings"
	"time"

	"github.com/Abraxas-365/authbuilder/pkg/errx"
	"github.com/Abraxas-365/authbuilder/pkg/iam/realm"
	"github.com/Abraxas-365/authbuilder/pkg/iam/role"
	"github.com/Abraxas-365/authbuilder/pkg/iam/user"
	"github.com/Abraxas-365/authbuilder/pkg/kernel"
	"github.com/Abraxas-365/authbuilder/pkg/logx"
	"github.com/google/uuid"
)

type RoleService struct {
	roleRepo  role.Repository
	realmRepo realm.Repository
	userRepo  user.Repository
}

func NewRoleService(roleRepo role.Repository, realmRepo realm.Repository, userRepo user.Repository) *RoleService {
	return &RoleService{
		roleRepo:  roleRepo,
		realmRepo: realmRepo,
		userRepo:  userRepo,
	}
}

func (s *RoleService) CreateRole(ctx context.Context, req role.CreateRoleRequest) (*role.Role, error) {
	realmID := kernel.NewRealmID(strings.TrimSpace(req.RealmID))
	rl, err := s.realmRepo.FindByID(ctx, realmID)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.Name)
	if err := req.Access.Validate(); err != nil {
		return nil, err
	}
	if err := s.ensureNameAvailable(ctx, realmID, name, ""); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	newRole := role.Role{
		ID:          kernel.NewRoleID(uuid.NewString()),
		RealmID:     realmID,
		RealmName:   rl.Name,
		Name:        name,
		Description: strings.TrimSpace(req.Description),
		Access:      req.Access,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.roleRepo.Save(ctx, newRole); err != nil {
		return nil, err
	}

	logx.WithFields(logx.Fields{
		"role_id":  newRole.ID,
		"realm_id": realmID,
		"modules":  len(newRole.Access),
	}).Info("Role created")
	return &newRole, nil
}

func (s *RoleService) GetRole(ctx context.Context, id kernel.RoleID) (*role.Role, error) {
	return s.roleRepo.FindByID(ctx, id)
}

func (s *RoleService) ListRoles(ctx context.Context, filter role.ListFilter) ([]*role.Role, error) {
	return s.roleRepo.FindAll(ctx, filter)
}

func (s *RoleService) Stats(ctx context.Context, realmID *kernel.RealmID) (*role.Stats, error) {
	return s.roleRepo.Stats(ctx, realmID)
}

func (s *RoleService) UpdateRole(ctx context.Context, id kernel.RoleID, req role.UpdateRoleRequest) (*role.Role, error) {
	r, err := s.roleRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name != r.Name {
			if err := s.ensureNameAvailable(ctx, r.RealmID, name, r.ID); err != nil {
				return nil, err
			}
			r.Name = name
		}
	}
	if req.Description != nil {
		r.Description = strings.TrimSpace(*req.Description)
	}
	if req.Access != nil {
		if err := req.Access.Validate(); err != nil {
			return nil, err
		}
		r.Access = req.Access
	}

	r.UpdatedAt = time.Now().UTC()
	if err := s.roleRepo.Save(ctx, *r); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *RoleService) DeleteRole(ctx context.Context, id kernel.RoleID) error {
	if err := s.roleRepo.Delete(ctx, id); err != nil {
		return err
	}
	logx.WithField("role_id", id).Info("Role deleted")
	return nil
}

func (s *RoleService) ToggleStatus(ctx context.Context, id kernel.RoleID) (*role.Role, error) {
	return s.roleRepo.ToggleStatus(ctx, id)
}

// AssignUser grants the role to a user of the same realm. Assigning twice is
// a no-op.
func (s *RoleService) AssignUser(ctx context.Context, roleID kernel.RoleID, userID kernel.UserID) error {
	r, err := s.roleRepo.FindByID(ctx, roleID)
	if err != nil {
		return err
	}
	u, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if u.RealmID == nil || *u.RealmID != r.RealmID {
		return role.ErrRealmMismatch().
			WithDetail("role_id", roleID).
			WithDetail("user_id", userID)
	}

	if err := s.roleRepo.Assign(ctx, userID, roleID); err != nil {
		return err
	}
	logx.WithFields(logx.Fields{"role_id": roleID, "user_id": userID}).Info("Role assigned")
	return nil
}

func (s *RoleService) RemoveUser(ctx context.Context, roleID kernel.RoleID, userID kernel.UserID) error {
	if err := s.roleRepo.Unassign(ctx, userID, roleID); err != nil {
		return err
	}
	logx.WithFields(logx.Fields{"role_id": roleID, "user_id": userID}).Info("Role removed from user")
	return nil
}

func (s *RoleService) Members(ctx context.Context, roleID kernel.RoleID) ([]role.Member, error) {
	if _, err := s.roleRepo.FindByID(ctx, roleID); err != nil {
		return nil, err
	}
	return s.roleRepo.Members(ctx, roleID)
}

func (s *RoleService) ensureNameAvailable(ctx context.Context, realmID kernel.RealmID, name string, self kernel.RoleID) error {
	existing, err := s.roleRepo.FindByNameInRealm(ctx, realmID, name)
	if err != nil {
		if errx.HasCode(err, role.CodeRoleNotFound) {
			return nil
		}
		return err
	}
	if existing.ID != self {
		return role.ErrNameExists().WithDetail("name", name)
	}
	return nil
}
