package usersrv

import (
	"context"
	"strings"
	"time"

	"github.com/Abraxas-365/authbuilder/pkg/asyncx"
	"github.com/Abraxas-365/authbuilder/pkg/config"
	"github.com/Abraxas-365/authbuilder/pkg/errx"
	"github.com/Abraxas-365/authbuilder/pkg/iam/client"
	"github.com/Abraxas-365/authbuilder/pkg/iam/realm"
	"github.com/Abraxas-365/authbuilder/pkg/iam/role"
	"github.com/Abraxas-365/authbuilder/pkg/iam/user"
	"github.com/Abraxas-365/authbuilder/pkg/kernel"
	"github.com/Abraxas-365/authbuilder/pkg/logx"
	"github.com/google/uuid"
)

type UserService struct {
	userRepo   user.Repository
	realmRepo  realm.Repository
	clientRepo client.Repository
	roleRepo   role.Repository
	hasher     user.PasswordHasher
	welcome    user.WelcomeNotifier
	sessions   user.SessionRevoker
	cfg        *config.AuthConfig
}

func NewUserService(
	userRepo user.Repository,
	realmRepo realm.Repository,
	clientRepo client.Repository,
	roleRepo role.Repository,
	hasher user.PasswordHasher,
	welcome user.WelcomeNotifier,
	sessions user.SessionRevoker,
	cfg *config.AuthConfig,
) *UserService {
	return &UserService{
		userRepo:   userRepo,
		realmRepo:  realmRepo,
		clientRepo: clientRepo,
		roleRepo:   roleRepo,
		hasher:     hasher,
		welcome:    welcome,
		sessions:   sessions,
		cfg:        cfg,
	}
}

func (s *UserService) CreateUser(ctx context.Context, req user.CreateUserRequest) (*user.CreatedUser, error) {
	email := user.NormalizeEmail(req.Email)
	if err := s.ensureEmailAvailable(ctx, email); err != nil {
		return nil, err
	}

	realmID, clientID, err := s.resolveScope(ctx, req.IsSuperUser, optionalID(req.RealmID, kernel.NewRealmID), optionalID(req.ClientID, kernel.NewClientID))
	if err != nil {
		return nil, err
	}

	roleIDs, err := s.resolveRoles(ctx, realmID, req.Roles)
	if err != nil {
		return nil, err
	}

	password := req.Password
	var generated string
	if password == "" {
		if req.IsSuperUser {
			return nil, errx.Validation("Password is required for super users").WithDetail("field", "password")
		}
		generated, err = user.GeneratePassword(s.cfg.Password.GeneratedLength)
		if err != nil {
			return nil, errx.Wrap(err, "failed to generate password", errx.TypeInternal)
		}
		password = generated
	}

	hash, err := s.hasher.HashPassword(password)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	newUser := user.User{
		ID:           kernel.NewUserID(uuid.NewString()),
		Email:        email,
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		IsSuperUser:  req.IsSuperUser,
		RealmID:      realmID,
		ClientID:     clientID,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.userRepo.Save(ctx, newUser); err != nil {
		return nil, err
	}

	if len(roleIDs) > 0 {
		if err := s.userRepo.ReplaceRoles(ctx, newUser.ID, roleIDs); err != nil {
			return nil, err
		}
	}

	logx.WithFields(logx.Fields{
		"user_id":       newUser.ID,
		"is_super_user": newUser.IsSuperUser,
		"roles":         len(roleIDs),
	}).Info("User created")

	created, err := s.userRepo.FindByID(ctx, newUser.ID)
	if err != nil {
		return nil, err
	}

	result := &user.CreatedUser{User: created, GeneratedPassword: generated}
	if generated != "" {
		err := s.welcome.QueueWelcome(ctx, user.WelcomeEmail{
			UserID:    created.ID,
			Email:     created.Email,
			FirstName: created.FirstName,
			LastName:  created.LastName,
			Password:  generated,
			ClientID:  created.ClientID,
		})
		if err != nil {
			logx.WithError(err).WithField("user_id", created.ID).Warn("Failed to queue welcome email")
		} else {
			result.WelcomeQueued = true
		}
	}
	return result, nil
}

func (s *UserService) GetUser(ctx context.Context, id kernel.UserID) (*user.User, error) {
	return s.userRepo.FindByID(ctx, id)
}

func (s *UserService) ListUsers(ctx context.Context, filter user.ListFilter) ([]*user.User, error) {
	return s.userRepo.FindAll(ctx, filter)
}

func (s *UserService) Stats(ctx context.Context, filter user.ListFilter) (*user.Stats, error) {
	return s.userRepo.Stats(ctx, filter)
}

func (s *UserService) UpdateUser(ctx context.Context, id kernel.UserID, req user.UpdateUserRequest) (*user.User, error) {
	u, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	protected := u.IsProtected(s.cfg.AdminEmail)
	if protected && req.IsSuperUser != nil && !*req.IsSuperUser {
		return nil, user.ErrAdminProtected("Cannot remove super user status from admin user")
	}
	if protected && req.IsActive != nil && !*req.IsActive {
		return nil, user.ErrAdminProtected("Cannot deactivate admin user")
	}

	if req.FirstName != nil {
		u.FirstName = strings.TrimSpace(*req.FirstName)
	}
	if req.LastName != nil {
		u.LastName = strings.TrimSpace(*req.LastName)
	}

	if req.IsSuperUser != nil || req.RealmID != nil || req.ClientID != nil {
		superUser := u.IsSuperUser
		if req.IsSuperUser != nil {
			superUser = *req.IsSuperUser
		}
		realmID, clientID := u.RealmID, u.ClientID
		if req.RealmID != nil {
			realmID = optionalID(req.RealmID, kernel.NewRealmID)
		}
		if req.ClientID != nil {
			clientID = optionalID(req.ClientID, kernel.NewClientID)
		}

		realmID, clientID, err = s.resolveScope(ctx, superUser, realmID, clientID)
		if err != nil {
			return nil, err
		}
		u.IsSuperUser, u.RealmID, u.ClientID = superUser, realmID, clientID
	}

	deactivated := false
	if req.IsActive != nil {
		deactivated = u.IsActive && !*req.IsActive
		u.IsActive = *req.IsActive
	}

	var roleIDs []kernel.RoleID
	if req.Roles != nil {
		if roleIDs, err = s.resolveRoles(ctx, u.RealmID, *req.Roles); err != nil {
			return nil, err
		}
	}

	u.UpdatedAt = time.Now().UTC()
	if err := s.userRepo.Save(ctx, *u); err != nil {
		return nil, err
	}

	passwordChanged := false
	if req.Password != nil && *req.Password != "" {
		hash, err := s.hasher.HashPassword(*req.Password)
		if err != nil {
			return nil, err
		}
		if err := s.userRepo.UpdatePassword(ctx, id, hash); err != nil {
			return nil, err
		}
		passwordChanged = true
	}

	if req.Roles != nil {
		if err := s.userRepo.ReplaceRoles(ctx, id, roleIDs); err != nil {
			return nil, err
		}
	}

	if passwordChanged || deactivated {
		if err := s.sessions.RevokeAllForUser(ctx, id); err != nil {
			return nil, err
		}
	}

	logx.WithFields(logx.Fields{
		"user_id":          id,
		"password_changed": passwordChanged,
		"deactivated":      deactivated,
	}).Info("User updated")
	return s.userRepo.FindByID(ctx, id)
}

func (s *UserService) DeleteUser(ctx context.Context, id kernel.UserID) error {
	u, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if u.IsProtected(s.cfg.AdminEmail) {
		return user.ErrAdminProtected("Cannot delete admin user")
	}

	if err := s.userRepo.Delete(ctx, id); err != nil {
		return err
	}
	logx.WithField("user_id", id).Info("User deleted")
	return nil
}

func (s *UserService) ToggleStatus(ctx context.Context, id kernel.UserID) (*user.User, error) {
	u, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u.IsActive && u.IsProtected(s.cfg.AdminEmail) {
		return nil, user.ErrAdminProtected("Cannot deactivate admin user")
	}

	toggled, err := s.userRepo.ToggleStatus(ctx, id)
	if err != nil {
		return nil, err
	}
	if !toggled.IsActive {
		if err := s.sessions.RevokeAllForUser(ctx, id); err != nil {
			return nil, err
		}
	}
	return toggled, nil
}

// SeedAdmin creates the protected super-user when it does not exist yet.
func (s *UserService) SeedAdmin(ctx context.Context, password string) error {
	if s.cfg.AdminEmail == "" || password == "" {
		return nil
	}

	_, err := s.userRepo.FindByEmail(ctx, s.cfg.AdminEmail)
	if err == nil {
		return nil
	}
	if !errx.HasCode(err, user.CodeUserNotFound) {
		return err
	}

	_, err = s.CreateUser(ctx, user.CreateUserRequest{
		Email:       s.cfg.AdminEmail,
		Password:    password,
		FirstName:   "Admin",
		LastName:    "User",
		IsSuperUser: true,
	})
	if err != nil {
		return err
	}
	logx.WithField("email", s.cfg.AdminEmail).Info("Admin user seeded")
	return nil
}

func (s *UserService) ensureEmailAvailable(ctx context.Context, email string) error {
	_, err := s.userRepo.FindByEmail(ctx, email)
	if err == nil {
		return user.ErrEmailExists().WithDetail("email", email)
	}
	if errx.HasCode(err, user.CodeUserNotFound) {
		return nil
	}
	return err
}

// resolveScope checks that the realm and client exist and agree. A client
// without an explicit realm places the user in the client's realm.
func (s *UserService) resolveScope(ctx context.Context, superUser bool, realmID *kernel.RealmID, clientID *kernel.ClientID) (*kernel.RealmID, *kernel.ClientID, error) {
	if clientID != nil {
		c, err := s.clientRepo.FindByID(ctx, *clientID)
		if err != nil {
			return nil, nil, err
		}
		if realmID == nil {
			id := c.RealmID
			realmID = &id
		} else if c.RealmID != *realmID {
			return nil, nil, user.ErrClientRealmMismatch().
				WithDetail("client_id", *clientID).
				WithDetail("realm_id", *realmID)
		}
	}

	if realmID != nil {
		if _, err := s.realmRepo.FindByID(ctx, *realmID); err != nil {
			return nil, nil, err
		}
	} else if !superUser {
		return nil, nil, user.ErrRealmRequired()
	}
	return realmID, clientID, nil
}

// resolveRoles loads the requested roles concurrently and checks they live in
// the user's realm.
func (s *UserService) resolveRoles(ctx context.Context, realmID *kernel.RealmID, ids []string) ([]kernel.RoleID, error) {
	if len(ids) == 0 {
		return []kernel.RoleID{}, nil
	}

	loaders := make([]func(context.Context) (*role.Role, error), 0, len(ids))
	for _, id := range ids {
		roleID := kernel.NewRoleID(id)
		loaders = append(loaders, func(ctx context.Context) (*role.Role, error) {
			return s.roleRepo.FindByID(ctx, roleID)
		})
	}

	roles, err := asyncx.All(ctx, loaders...)
	if err != nil {
		return nil, err
	}

	out := make([]kernel.RoleID, 0, len(roles))
	for _, r := range roles {
		if realmID == nil || r.RealmID != *realmID {
			return nil, user.ErrRoleRealmMismatch().WithDetail("role_id", r.ID)
		}
		out = append(out, r.ID)
	}
	return out, nil
}

// optionalID converts a request pointer into a typed ID. An empty string
// clears the reference.
func optionalID[T ~string](v *string, conv func(string) T) *T {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return nil
	}
	id := conv(trimmed)
	return &id
}
