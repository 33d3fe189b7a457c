package clientinfra_test

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/Abraxas-365/authbuilder/pkg/errx"
	"github.com/Abraxas-365/authbuilder/pkg/iam/client"
	"github.com/Abraxas-365/authbuilder/pkg/iam/client/clientinfra"
	"github.com/Abraxas-365/authbuilder/pkg/kernel"
	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

func newRepo(t *testing.T) (client.Repository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return clientinfra.NewPostgresClientRepository(sqlx.NewDb(db, "postgres")), mock
}

var clientColumns = []string{
	"id", "realm_id", "realm_name", "name", "description", "client_id", "client_secret",
	"endpoints", "redirect_urls", "sso_enabled", "twofa_enabled", "smtp_config",
	"is_active", "created_at", "updated_at",
}

func TestFindByPublicIDDecodesJSONColumns(t *testing.T) {
	repo, mock := newRepo(t)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta("WHERE c.client_id = $1")).
		WithArgs("client_abc").
		WillReturnRows(sqlmock.NewRows(clientColumns).AddRow(
			"c-1", "r-1", "acme", "portal", nil, "client_abc", "s3cret",
			[]byte(`{"allowed_hosts":["a.com","b.com"]}`),
			"{https://a.com/cb,http://localhost:3000}",
			false, true,
			[]byte(`{"host":"smtp.a.com","port":587,"username":"bot","password":"pw","from_email":"bot@a.com","secure":false}`),
			true, now, now,
		))

	c, err := repo.FindByPublicID(context.Background(), "client_abc")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if c.RealmName != "acme" || !c.TwoFAEnabled {
		t.Fatalf("unexpected client %+v", c)
	}
	if !c.Endpoints.AllowsHost("b.com") || c.Endpoints.AllowsHost("c.com") {
		t.Fatalf("unexpected endpoints %+v", c.Endpoints)
	}
	if len(c.RedirectURLs) != 2 || c.RedirectURLs[1] != "http://localhost:3000" {
		t.Fatalf("unexpected redirect urls %v", c.RedirectURLs)
	}
	if c.SMTPConfig == nil || c.SMTPConfig.Port != 587 || len(c.SMTPConfig.MissingFields()) != 0 {
		t.Fatalf("unexpected smtp config %+v", c.SMTPConfig)
	}
}

func TestFindByIDWithNullSMTPConfig(t *testing.T) {
	repo, mock := newRepo(t)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta("WHERE c.id = $1")).
		WithArgs("c-1").
		WillReturnRows(sqlmock.NewRows(clientColumns).AddRow(
			"c-1", "r-1", "acme", "portal", "desc", "client_abc", "s3cret",
			[]byte(`{}`), "{}", false, false, nil, true, now, now,
		))

	c, err := repo.FindByID(context.Background(), kernel.NewClientID("c-1"))
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if c.SMTPConfig != nil || c.DeliveryProfile() != nil {
		t.Fatalf("expected no smtp config, got %+v", c.SMTPConfig)
	}
	if !c.Endpoints.AllowsHost("anything.example") {
		t.Fatal("empty allow-list must allow every host")
	}
}

func TestFindByPublicIDNotFound(t *testing.T) {
	repo, mock := newRepo(t)

	mock.ExpectQuery("FROM clients c").
		WillReturnRows(sqlmock.NewRows(clientColumns))

	_, err := repo.FindByPublicID(context.Background(), "client_missing")
	if !errx.HasCode(err, client.CodeClientNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestSaveMapsDuplicateNameInRealm(t *testing.T) {
	repo, mock := newRepo(t)

	mock.ExpectQuery("SELECT EXISTS").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectExec("INSERT INTO clients").
		WillReturnError(&pq.Error{Code: "23505"})

	err := repo.Save(context.Background(), client.Client{ID: "c-1", RealmID: "r-1", Name: "portal"})
	if !errx.HasCode(err, client.CodeNameExists) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestStatsFiltersByRealm(t *testing.T) {
	repo, mock := newRepo(t)
	realmID := kernel.NewRealmID("r-1")

	mock.ExpectQuery(regexp.QuoteMeta("FROM clients WHERE realm_id = $1")).
		WithArgs("r-1").
		WillReturnRows(sqlmock.NewRows([]string{
			"total_clients", "active_clients", "sso_enabled_clients", "twofa_enabled_clients",
		}).AddRow(4, 3, 1, 2))

	stats, err := repo.Stats(context.Background(), &realmID)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalClients != 4 || stats.ActiveClients != 3 || stats.TwoFAEnabledClients != 2 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestToggleStatusMissingClient(t *testing.T) {
	repo, mock := newRepo(t)

	mock.ExpectExec("UPDATE clients SET is_active = NOT is_active").
		WithArgs("c-404").
		WillReturnResult(sqlmock.NewResult(0, 0))

	_, err := repo.ToggleStatus(context.Background(), "c-404")
	if !errx.HasCode(err, client.CodeClientNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
