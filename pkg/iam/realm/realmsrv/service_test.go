package realmsrv_test

import (
	"context"
	"testing"

	"github.com/Abraxas-365/authbuilder/pkg/errx"
	"github.com/Abraxas-365/authbuilder/pkg/iam/realm"
	"github.com/Abraxas-365/authbuilder/pkg/iam/realm/realmsrv"
	"github.com/Abraxas-365/authbuilder/pkg/kernel"
)

type memRealmRepo struct {
	realms map[kernel.RealmID]realm.Realm
	deps   map[kernel.RealmID]realm.Dependencies
}

func newMemRealmRepo() *memRealmRepo {
	return &memRealmRepo{
		realms: make(map[kernel.RealmID]realm.Realm),
		deps:   make(map[kernel.RealmID]realm.Dependencies),
	}
}

func (m *memRealmRepo) Save(_ context.Context, r realm.Realm) error {
	for id, existing := range m.realms {
		if id != r.ID && existing.Name == r.Name {
			return realm.ErrNameExists()
		}
	}
	m.realms[r.ID] = r
	return nil
}

func (m *memRealmRepo) FindByID(_ context.Context, id kernel.RealmID) (*realm.Realm, error) {
	r, ok := m.realms[id]
	if !ok {
		return nil, realm.ErrRealmNotFound()
	}
	return &r, nil
}

func (m *memRealmRepo) FindByName(_ context.Context, name string) (*realm.Realm, error) {
	for _, r := range m.realms {
		if r.Name == name {
			return &r, nil
		}
	}
	return nil, realm.ErrRealmNotFound()
}

func (m *memRealmRepo) FindAllWithStats(context.Context) ([]*realm.RealmWithStats, error) {
	out := make([]*realm.RealmWithStats, 0, len(m.realms))
	for _, r := range m.realms {
		out = append(out, &realm.RealmWithStats{Realm: r})
	}
	return out, nil
}

func (m *memRealmRepo) Stats(_ context.Context, id kernel.RealmID) (*realm.Stats, error) {
	d := m.deps[id]
	return &realm.Stats{ClientCount: d.Clients, UserCount: d.Users, RoleCount: d.Roles}, nil
}

func (m *memRealmRepo) Dependencies(_ context.Context, id kernel.RealmID) (realm.Dependencies, error) {
	return m.deps[id], nil
}

func (m *memRealmRepo) ToggleStatus(_ context.Context, id kernel.RealmID) (*realm.Realm, error) {
	r, ok := m.realms[id]
	if !ok {
		return nil, realm.ErrRealmNotFound()
	}
	r.IsActive = !r.IsActive
	m.realms[id] = r
	return &r, nil
}

func (m *memRealmRepo) Delete(_ context.Context, id kernel.RealmID) error {
	if _, ok := m.realms[id]; !ok {
		return realm.ErrRealmNotFound()
	}
	delete(m.realms, id)
	return nil
}

func TestCreateRealm(t *testing.T) {
	svc := realmsrv.NewRealmService(newMemRealmRepo())

	r, err := svc.CreateRealm(context.Background(), realm.CreateRealmRequest{Name: "  acme-prod ", Description: "Production"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if r.ID.IsEmpty() || r.Name != "acme-prod" || !r.IsActive {
		t.Fatalf("unexpected realm %+v", r)
	}
}

func TestCreateRealmRejectsInvalidName(t *testing.T) {
	svc := realmsrv.NewRealmService(newMemRealmRepo())

	for _, name := range []string{"", "has space", "semi;colon", string(make([]byte, 101))} {
		_, err := svc.CreateRealm(context.Background(), realm.CreateRealmRequest{Name: name})
		if !errx.HasCode(err, realm.CodeInvalidName) {
			t.Errorf("name %q: expected invalid name, got %v", name, err)
		}
	}
}

func TestCreateRealmRejectsDuplicateName(t *testing.T) {
	svc := realmsrv.NewRealmService(newMemRealmRepo())
	ctx := context.Background()

	if _, err := svc.CreateRealm(ctx, realm.CreateRealmRequest{Name: "acme"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	_, err := svc.CreateRealm(ctx, realm.CreateRealmRequest{Name: "acme"})
	if !errx.HasCode(err, realm.CodeNameExists) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestUpdateRealmKeepsUnchangedFields(t *testing.T) {
	repo := newMemRealmRepo()
	svc := realmsrv.NewRealmService(repo)
	ctx := context.Background()

	r, _ := svc.CreateRealm(ctx, realm.CreateRealmRequest{Name: "acme", Description: "first"})
	inactive := false
	updated, err := svc.UpdateRealm(ctx, r.ID, realm.UpdateRealmRequest{IsActive: &inactive})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Name != "acme" || updated.Description != "first" || updated.IsActive {
		t.Fatalf("unexpected realm %+v", updated)
	}
}

func TestDeleteRealmWithDependenciesIsRejected(t *testing.T) {
	repo := newMemRealmRepo()
	svc := realmsrv.NewRealmService(repo)
	ctx := context.Background()

	r, _ := svc.CreateRealm(ctx, realm.CreateRealmRequest{Name: "acme"})
	repo.deps[r.ID] = realm.Dependencies{Clients: 1}

	err := svc.DeleteRealm(ctx, r.ID)
	if !errx.HasCode(err, realm.CodeHasDependencies) {
		t.Fatalf("expected dependency conflict, got %v", err)
	}
	if _, ok := repo.realms[r.ID]; !ok {
		t.Fatal("realm must survive a rejected delete")
	}

	repo.deps[r.ID] = realm.Dependencies{}
	if err := svc.DeleteRealm(ctx, r.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
}

func TestRequireActive(t *testing.T) {
	repo := newMemRealmRepo()
	svc := realmsrv.NewRealmService(repo)
	ctx := context.Background()

	r, _ := svc.CreateRealm(ctx, realm.CreateRealmRequest{Name: "acme"})
	if _, err := svc.RequireActive(ctx, r.ID); err != nil {
		t.Fatalf("active realm: %v", err)
	}

	if _, err := svc.ToggleStatus(ctx, r.ID); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if _, err := svc.RequireActive(ctx, r.ID); !errx.HasCode(err, realm.CodeRealmInactive) {
		t.Fatalf("expected inactive error, got %v", err)
	}
}
