package kernel_test

import (
	"context"
	"testing"

	"github.com/Abraxas-365/authbuilder/pkg/kernel"
)

func TestAuthContextSubjectKinds(t *testing.T) {
	uid := kernel.NewUserID("u-1")
	cid := kernel.NewClientID("c-1")

	user := &kernel.AuthContext{UserID: &uid}
	if !user.IsUser() || user.SubjectID() != "u-1" {
		t.Fatalf("expected user session, got %+v", user)
	}

	client := &kernel.AuthContext{ClientID: &cid, IsClientSession: true}
	if client.IsUser() || !client.IsValid() || client.SubjectID() != "c-1" {
		t.Fatalf("expected client session, got %+v", client)
	}

	mixed := &kernel.AuthContext{ClientID: &cid, UserID: &uid, IsClientSession: true}
	if mixed.IsValid() {
		t.Fatal("a client session carrying a user id must be invalid")
	}
}

func TestAuthContextRoundTripsThroughContext(t *testing.T) {
	uid := kernel.NewUserID("u-2")
	ctx := kernel.WithAuthContext(context.Background(), &kernel.AuthContext{UserID: &uid})

	ac, ok := kernel.AuthFromContext(ctx)
	if !ok || ac.SubjectID() != "u-2" {
		t.Fatalf("unexpected %+v %v", ac, ok)
	}
	if _, ok := kernel.AuthFromContext(context.Background()); ok {
		t.Fatal("empty context must not yield a caller")
	}
}

func TestPagination(t *testing.T) {
	opts := kernel.PaginationOptions{Page: 0, PageSize: 500}.Normalize(20, 100)
	if opts.Page != 1 || opts.PageSize != 100 || opts.Offset() != 0 {
		t.Fatalf("unexpected normalize result %+v", opts)
	}

	p := kernel.NewPaginated([]string{"a", "b"}, 1, 2, 5)
	if p.Page.Pages != 3 || !p.HasNext() || p.Empty {
		t.Fatalf("unexpected page %+v", p)
	}
	empty := kernel.NewPaginated[string](nil, 1, 10, 0)
	if !empty.Empty || empty.Items == nil {
		t.Fatalf("expected empty non-nil items, got %+v", empty)
	}
}
