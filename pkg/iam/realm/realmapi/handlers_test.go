package realmapi_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Abraxas-365/authbuilder/pkg/errx"
	"github.com/Abraxas-365/authbuilder/pkg/iam/auth"
	"github.com/Abraxas-365/authbuilder/pkg/iam/realm"
	"github.com/Abraxas-365/authbuilder/pkg/iam/realm/realmapi"
	"github.com/Abraxas-365/authbuilder/pkg/iam/realm/realmsrv"
	"github.com/Abraxas-365/authbuilder/pkg/iam/token"
	"github.com/Abraxas-365/authbuilder/pkg/kernel"
	"github.com/gofiber/fiber/v2"
)

// ---------------------------------------------------------------------------
// Fakes
// ---------------------------------------------------------------------------

type memRealms struct {
	realms map[kernel.RealmID]realm.Realm
	deps   map[kernel.RealmID]realm.Dependencies
}

func (m *memRealms) Save(_ context.Context, r realm.Realm) error {
	for id, existing := range m.realms {
		if id != r.ID && existing.Name == r.Name {
			return realm.ErrNameExists()
		}
	}
	m.realms[r.ID] = r
	return nil
}

func (m *memRealms) FindByID(_ context.Context, id kernel.RealmID) (*realm.Realm, error) {
	r, ok := m.realms[id]
	if !ok {
		return nil, realm.ErrRealmNotFound()
	}
	return &r, nil
}

func (m *memRealms) FindByName(_ context.Context, name string) (*realm.Realm, error) {
	for _, r := range m.realms {
		if r.Name == name {
			return &r, nil
		}
	}
	return nil, realm.ErrRealmNotFound()
}

func (m *memRealms) FindAllWithStats(context.Context) ([]*realm.RealmWithStats, error) {
	out := make([]*realm.RealmWithStats, 0, len(m.realms))
	for _, r := range m.realms {
		out = append(out, &realm.RealmWithStats{Realm: r})
	}
	return out, nil
}

func (m *memRealms) Stats(context.Context, kernel.RealmID) (*realm.Stats, error) {
	return &realm.Stats{}, nil
}

func (m *memRealms) Dependencies(_ context.Context, id kernel.RealmID) (realm.Dependencies, error) {
	return m.deps[id], nil
}

func (m *memRealms) ToggleStatus(_ context.Context, id kernel.RealmID) (*realm.Realm, error) {
	r, ok := m.realms[id]
	if !ok {
		return nil, realm.ErrRealmNotFound()
	}
	r.IsActive = !r.IsActive
	m.realms[id] = r
	return &r, nil
}

func (m *memRealms) Delete(_ context.Context, id kernel.RealmID) error {
	delete(m.realms, id)
	return nil
}

// sessions maps a bearer secret to a session.
type sessions map[string]*token.Token

func (s sessions) FindByAccessSecret(_ context.Context, secret string) (*token.Token, error) {
	t, ok := s[secret]
	if !ok {
		return nil, token.ErrTokenNotFound()
	}
	return t, nil
}

func (s sessions) ExtendExpiry(context.Context, string) error { return nil }

func userSession(id string, superUser bool) *token.Token {
	uid := kernel.NewUserID(id)
	return &token.Token{ID: kernel.TokenID("t-" + id), UserID: &uid, IsSuperUser: superUser, IsActive: true}
}

func clientSession(id string) *token.Token {
	cid := kernel.NewClientID(id)
	return &token.Token{ID: kernel.TokenID("t-" + id), ClientID: &cid, IsClientSession: true, IsActive: true}
}

// ---------------------------------------------------------------------------
// Harness
// ---------------------------------------------------------------------------

type harness struct {
	app    *fiber.App
	realms *memRealms
}

func newHarness() *harness {
	repo := &memRealms{
		realms: map[kernel.RealmID]realm.Realm{
			"r-acme": {ID: "r-acme", Name: "acme", IsActive: true},
			"r-busy": {ID: "r-busy", Name: "busy", IsActive: true},
		},
		deps: map[kernel.RealmID]realm.Dependencies{
			"r-busy": {Clients: 2, Users: 1},
		},
	}

	mw := auth.NewTokenMiddleware(sessions{
		"admin":  userSession("u-admin", true),
		"member": userSession("u-ada", false),
		"client": clientSession("c-1"),
	})

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			e := errx.From(err)
			return c.Status(e.HTTPStatus).JSON(e.ToHTTPResponse(""))
		},
	})
	realmapi.NewRealmHandlers(realmsrv.NewRealmService(repo)).RegisterRoutes(app, mw)

	return &harness{app: app, realms: repo}
}

func (h *harness) call(t *testing.T, method, path, bearer, body string) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp, err := h.app.Test(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	out := map[string]any{}
	raw, _ := io.ReadAll(resp.Body)
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &out); err != nil {
			t.Fatalf("%s %s: decode %q: %v", method, path, raw, err)
		}
	}
	return resp.StatusCode, out
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestRealmRoutesRequireSuperUser(t *testing.T) {
	h := newHarness()

	tests := []struct {
		name   string
		bearer string
		want   int
	}{
		{"anonymous", "", 401},
		{"unknown token", "nope", 401},
		{"regular user", "member", 403},
		{"client session", "client", 403},
		{"super user", "admin", 200},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, _ := h.call(t, "GET", "/realms", tt.bearer, "")
			if status != tt.want {
				t.Fatalf("status = %d, want %d", status, tt.want)
			}
		})
	}
}

func TestCreateRealm(t *testing.T) {
	h := newHarness()

	status, body := h.call(t, "POST", "/realms", "admin", `{"name":"  globex ","description":"second tenant"}`)
	if status != 201 {
		t.Fatalf("status = %d, body = %v", status, body)
	}
	data, _ := body["data"].(map[string]any)
	if data["name"] != "globex" || data["is_active"] != true {
		t.Fatalf("data = %v", data)
	}
	if len(h.realms.realms) != 3 {
		t.Fatalf("realms stored = %d", len(h.realms.realms))
	}
}

func TestCreateRealmRejections(t *testing.T) {
	h := newHarness()

	tests := []struct {
		name string
		body string
		want int
		code string
	}{
		{"missing name", `{"description":"x"}`, 400, ""},
		{"bad characters", `{"name":"has space"}`, 400, realm.CodeInvalidName.Code},
		{"duplicate", `{"name":"acme"}`, 409, realm.CodeNameExists.Code},
		{"malformed json", `{"name":`, 400, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := h.call(t, "POST", "/realms", "admin", tt.body)
			if status != tt.want {
				t.Fatalf("status = %d, want %d (body %v)", status, tt.want, body)
			}
			if tt.code != "" && body["code"] != tt.code {
				t.Fatalf("code = %v, want %s", body["code"], tt.code)
			}
		})
	}
}

func TestDeleteRealmWithDependenciesConflicts(t *testing.T) {
	h := newHarness()

	status, body := h.call(t, "DELETE", "/realms/r-busy", "admin", "")
	if status != 409 || body["code"] != realm.CodeHasDependencies.Code {
		t.Fatalf("status = %d, body = %v", status, body)
	}
	details, _ := body["details"].(map[string]any)
	if details["clients"] != float64(2) {
		t.Fatalf("details = %v", details)
	}
	if _, ok := h.realms.realms["r-busy"]; !ok {
		t.Fatal("realm with dependencies was deleted")
	}

	status, _ = h.call(t, "DELETE", "/realms/r-acme", "admin", "")
	if status != 200 {
		t.Fatalf("delete empty realm status = %d", status)
	}
	if _, ok := h.realms.realms["r-acme"]; ok {
		t.Fatal("realm still stored after delete")
	}
}

func TestToggleRealmStatus(t *testing.T) {
	h := newHarness()

	status, body := h.call(t, "PATCH", "/realms/r-acme/toggle-status", "admin", "")
	if status != 200 {
		t.Fatalf("status = %d", status)
	}
	if body["message"] != "Realm deactivated successfully" {
		t.Fatalf("message = %v", body["message"])
	}

	status, _ = h.call(t, "PATCH", "/realms/r-missing/toggle-status", "admin", "")
	if status != 404 {
		t.Fatalf("missing realm status = %d", status)
	}
}
