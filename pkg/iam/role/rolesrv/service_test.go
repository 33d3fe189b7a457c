package rolesrv_test

import (
	"context"
	"testing"

	"github.com/Abraxas-365/authbuilder/pkg/errx"
	"github.com/Abraxas-365/authbuilder/pkg/iam/realm"
	"github.com/Abraxas-365/authbuilder/pkg/iam/role"
	"github.com/Abraxas-365/authbuilder/pkg/iam/role/rolesrv"
	"github.com/Abraxas-365/authbuilder/pkg/iam/user"
	"github.com/Abraxas-365/authbuilder/pkg/kernel"
)

type memRoleRepo struct {
	role.Repository
	roles    map[kernel.RoleID]role.Role
	assigned map[kernel.UserID]map[kernel.RoleID]bool
}

func newMemRoleRepo() *memRoleRepo {
	return &memRoleRepo{
		roles:    make(map[kernel.RoleID]role.Role),
		assigned: make(map[kernel.UserID]map[kernel.RoleID]bool),
	}
}

func (m *memRoleRepo) Save(_ context.Context, r role.Role) error {
	m.roles[r.ID] = r
	return nil
}

func (m *memRoleRepo) FindByID(_ context.Context, id kernel.RoleID) (*role.Role, error) {
	r, ok := m.roles[id]
	if !ok {
		return nil, role.ErrRoleNotFound()
	}
	return &r, nil
}

func (m *memRoleRepo) FindByNameInRealm(_ context.Context, realmID kernel.RealmID, name string) (*role.Role, error) {
	for _, r := range m.roles {
		if r.RealmID == realmID && r.Name == name {
			return &r, nil
		}
	}
	return nil, role.ErrRoleNotFound()
}

func (m *memRoleRepo) Assign(_ context.Context, userID kernel.UserID, roleID kernel.RoleID) error {
	if m.assigned[userID] == nil {
		m.assigned[userID] = make(map[kernel.RoleID]bool)
	}
	m.assigned[userID][roleID] = true
	return nil
}

func (m *memRoleRepo) Unassign(_ context.Context, userID kernel.UserID, roleID kernel.RoleID) error {
	if !m.assigned[userID][roleID] {
		return role.ErrAssignmentMissing()
	}
	delete(m.assigned[userID], roleID)
	return nil
}

type stubRealms struct {
	realm.Repository
}

func (stubRealms) FindByID(_ context.Context, id kernel.RealmID) (*realm.Realm, error) {
	if id != "r-1" && id != "r-2" {
		return nil, realm.ErrRealmNotFound()
	}
	return &realm.Realm{ID: id, Name: "realm " + string(id), IsActive: true}, nil
}

type stubUsers struct {
	user.Repository
}

func (stubUsers) FindByID(_ context.Context, id kernel.UserID) (*user.User, error) {
	r1 := kernel.NewRealmID("r-1")
	r2 := kernel.NewRealmID("r-2")
	switch id {
	case "u-1":
		return &user.User{ID: id, RealmID: &r1}, nil
	case "u-2":
		return &user.User{ID: id, RealmID: &r2}, nil
	case "admin":
		return &user.User{ID: id, IsSuperUser: true}, nil
	}
	return nil, user.ErrUserNotFound()
}

func validAccess() role.AccessModules {
	return role.AccessModules{{
		Module: "orders",
		Rights: role.RightsRead,
		URI:    []role.URIRule{{URL: "/api/orders/*", Methods: []string{"get"}}},
	}}
}

func newService() (*rolesrv.RoleService, *memRoleRepo) {
	repo := newMemRoleRepo()
	return rolesrv.NewRoleService(repo, stubRealms{}, stubUsers{}), repo
}

func TestCreateRoleNormalizesAccess(t *testing.T) {
	svc, repo := newService()

	r, err := svc.CreateRole(context.Background(), role.CreateRoleRequest{
		RealmID: "r-1",
		Name:    "  viewer ",
		Access:  validAccess(),
	})
	if err != nil {
		t.Fatalf("CreateRole: %v", err)
	}
	if r.Name != "viewer" || r.RealmName != "realm r-1" || !r.IsActive {
		t.Fatalf("unexpected role: %+v", r)
	}
	if got := repo.roles[r.ID].Access[0].URI[0].Methods[0]; got != "GET" {
		t.Fatalf("method = %q, want GET", got)
	}
}

func TestCreateRoleRejectsDuplicateNameInRealm(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()
	req := role.CreateRoleRequest{RealmID: "r-1", Name: "viewer", Access: validAccess()}

	if _, err := svc.CreateRole(ctx, req); err != nil {
		t.Fatalf("first create: %v", err)
	}
	if _, err := svc.CreateRole(ctx, req); !errx.HasCode(err, role.CodeNameExists) {
		t.Fatalf("want NAME_EXISTS, got %v", err)
	}

	req.RealmID = "r-2"
	if _, err := svc.CreateRole(ctx, req); err != nil {
		t.Fatalf("same name in other realm should be allowed: %v", err)
	}
}

func TestCreateRoleRejectsBadInput(t *testing.T) {
	svc, _ := newService()

	_, err := svc.CreateRole(context.Background(), role.CreateRoleRequest{RealmID: "missing", Name: "x", Access: validAccess()})
	if !errx.HasCode(err, realm.CodeRealmNotFound) {
		t.Fatalf("want realm not found, got %v", err)
	}

	bad := role.AccessModules{{Module: "orders", Rights: "ADMIN", URI: []role.URIRule{}}}
	_, err = svc.CreateRole(context.Background(), role.CreateRoleRequest{RealmID: "r-1", Name: "x", Access: bad})
	if !errx.HasCode(err, role.CodeInvalidAccess) {
		t.Fatalf("want INVALID_ACCESS, got %v", err)
	}
}

func TestUpdateRoleKeepsOwnName(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()
	r, err := svc.CreateRole(ctx, role.CreateRoleRequest{RealmID: "r-1", Name: "viewer", Access: validAccess()})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.CreateRole(ctx, role.CreateRoleRequest{RealmID: "r-1", Name: "editor", Access: validAccess()}); err != nil {
		t.Fatal(err)
	}

	same := "viewer"
	desc := "read only"
	updated, err := svc.UpdateRole(ctx, r.ID, role.UpdateRoleRequest{Name: &same, Description: &desc})
	if err != nil {
		t.Fatalf("UpdateRole: %v", err)
	}
	if updated.Description != "read only" {
		t.Fatalf("description = %q", updated.Description)
	}

	taken := "editor"
	if _, err := svc.UpdateRole(ctx, r.ID, role.UpdateRoleRequest{Name: &taken}); !errx.HasCode(err, role.CodeNameExists) {
		t.Fatalf("want NAME_EXISTS, got %v", err)
	}
}

func TestAssignUserRequiresSameRealm(t *testing.T) {
	svc, repo := newService()
	ctx := context.Background()
	r, err := svc.CreateRole(ctx, role.CreateRoleRequest{RealmID: "r-1", Name: "viewer", Access: validAccess()})
	if err != nil {
		t.Fatal(err)
	}

	for _, uid := range []kernel.UserID{"u-2", "admin"} {
		if err := svc.AssignUser(ctx, r.ID, uid); !errx.HasCode(err, role.CodeRealmMismatch) {
			t.Fatalf("%s: want REALM_MISMATCH, got %v", uid, err)
		}
	}

	if err := svc.AssignUser(ctx, r.ID, "u-1"); err != nil {
		t.Fatalf("AssignUser: %v", err)
	}
	if err := svc.AssignUser(ctx, r.ID, "u-1"); err != nil {
		t.Fatalf("second AssignUser should be a no-op: %v", err)
	}
	if !repo.assigned["u-1"][r.ID] {
		t.Fatal("assignment not stored")
	}

	if err := svc.RemoveUser(ctx, r.ID, "u-1"); err != nil {
		t.Fatalf("RemoveUser: %v", err)
	}
	if err := svc.RemoveUser(ctx, r.ID, "u-1"); !errx.HasCode(err, role.CodeAssignmentMissing) {
		t.Fatalf("want ASSIGNMENT_NOT_FOUND, got %v", err)
	}
}

func TestAssignUserUnknownUser(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()
	r, err := svc.CreateRole(ctx, role.CreateRoleRequest{RealmID: "r-1", Name: "viewer", Access: validAccess()})
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.AssignUser(ctx, r.ID, "ghost"); !errx.HasCode(err, user.CodeUserNotFound) {
		t.Fatalf("want user not found, got %v", err)
	}
}
