package realmsrv

import (
	"context"
	"time"

	"github.com/Abraxas-365/authbuilder/pkg/errx"
	"github.com/Abraxas-365/authbuilder/pkg/iam/realm"
	"github.com/Abraxas-365/authbuilder/pkg/kernel"
	"github.com/Abraxas-365/authbuilder/pkg/logx"
	"github.com/google/uuid"
)

type RealmService struct {
	realmRepo realm.Repository
}

func NewRealmService(realmRepo realm.Repository) *RealmService {
	return &RealmService{realmRepo: realmRepo}
}

func (s *RealmService) CreateRealm(ctx context.Context, req realm.CreateRealmRequest) (*realm.Realm, error) {
	req.Normalize()
	if err := realm.ValidateName(req.Name); err != nil {
		return nil, err
	}

	if err := s.ensureNameAvailable(ctx, req.Name); err != nil {
		return nil, err
	}

	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}

	now := time.Now().UTC()
	newRealm := realm.Realm{
		ID:          kernel.NewRealmID(uuid.NewString()),
		Name:        req.Name,
		Description: req.Description,
		IsActive:    isActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.realmRepo.Save(ctx, newRealm); err != nil {
		return nil, err
	}

	logx.WithFields(logx.Fields{"realm_id": newRealm.ID, "name": newRealm.Name}).Info("Realm created")
	return &newRealm, nil
}

func (s *RealmService) GetRealm(ctx context.Context, id kernel.RealmID) (*realm.RealmWithStats, error) {
	rl, err := s.realmRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	stats, err := s.realmRepo.Stats(ctx, id)
	if err != nil {
		return nil, err
	}

	return &realm.RealmWithStats{Realm: *rl, Stats: *stats}, nil
}

func (s *RealmService) ListRealms(ctx context.Context) ([]*realm.RealmWithStats, error) {
	return s.realmRepo.FindAllWithStats(ctx)
}

func (s *RealmService) UpdateRealm(ctx context.Context, id kernel.RealmID, req realm.UpdateRealmRequest) (*realm.Realm, error) {
	req.Normalize()

	rl, err := s.realmRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil && *req.Name != rl.Name {
		if err := realm.ValidateName(*req.Name); err != nil {
			return nil, err
		}
		if err := s.ensureNameAvailable(ctx, *req.Name); err != nil {
			return nil, err
		}
		rl.Name = *req.Name
	}
	if req.Description != nil {
		rl.Description = *req.Description
	}
	if req.IsActive != nil {
		rl.IsActive = *req.IsActive
	}
	rl.UpdatedAt = time.Now().UTC()

	if err := s.realmRepo.Save(ctx, *rl); err != nil {
		return nil, err
	}
	return rl, nil
}

// DeleteRealm refuses to remove a realm that still owns clients, users or roles.
func (s *RealmService) DeleteRealm(ctx context.Context, id kernel.RealmID) error {
	if _, err := s.realmRepo.FindByID(ctx, id); err != nil {
		return err
	}

	deps, err := s.realmRepo.Dependencies(ctx, id)
	if err != nil {
		return err
	}
	if deps.Any() {
		return realm.ErrHasDependencies().
			WithDetail("clients", deps.Clients).
			WithDetail("users", deps.Users).
			WithDetail("roles", deps.Roles)
	}

	if err := s.realmRepo.Delete(ctx, id); err != nil {
		return err
	}

	logx.WithField("realm_id", id).Info("Realm deleted")
	return nil
}

func (s *RealmService) ToggleStatus(ctx context.Context, id kernel.RealmID) (*realm.Realm, error) {
	return s.realmRepo.ToggleStatus(ctx, id)
}

// RequireActive returns the realm when it exists and is active.
func (s *RealmService) RequireActive(ctx context.Context, id kernel.RealmID) (*realm.Realm, error) {
	rl, err := s.realmRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !rl.IsActive {
		return nil, realm.ErrRealmInactive().WithDetail("realm_id", id)
	}
	return rl, nil
}

func (s *RealmService) ensureNameAvailable(ctx context.Context, name string) error {
	existing, err := s.realmRepo.FindByName(ctx, name)
	if err != nil {
		if errx.HasCode(err, realm.CodeRealmNotFound) {
			return nil
		}
		return err
	}
	if existing != nil {
		return realm.ErrNameExists().WithDetail("name", name)
	}
	return nil
}
