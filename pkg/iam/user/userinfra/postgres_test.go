package userinfra_test

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/Abraxas-365/authbuilder/pkg/errx"
	"github.com/Abraxas-365/authbuilder/pkg/iam/user"
	"github.com/Abraxas-365/authbuilder/pkg/iam/user/userinfra"
	"github.com/Abraxas-365/authbuilder/pkg/kernel"
	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

func newRepo(t *testing.T) (user.Repository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return userinfra.NewPostgresUserRepository(sqlx.NewDb(db, "postgres")), mock
}

var userColumns = []string{
	"id", "email", "password_hash", "first_name", "last_name", "is_super_user",
	"realm_id", "realm_name", "client_id", "client_name", "is_active",
	"created_at", "updated_at", "roles",
}

func TestFindByIDAggregatesRoles(t *testing.T) {
	repo, mock := newRepo(t)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta("WHERE u.id = $1 GROUP BY u.id, rl.name, c.name")).
		WithArgs("u-1").
		WillReturnRows(sqlmock.NewRows(userColumns).AddRow(
			"u-1", "jane@acme.com", "$2a$10$hash", "Jane", "Doe", false,
			"r-1", "acme", "c-1", "portal", true, now, now,
			[]byte(`[{"id":"ro-1","name":"reader","description":null}]`),
		))

	u, err := repo.FindByID(context.Background(), kernel.NewUserID("u-1"))
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if u.RealmID == nil || *u.RealmID != "r-1" || u.ClientName != "portal" || !u.HasClient() {
		t.Fatalf("unexpected user %+v", u)
	}
	if len(u.Roles) != 1 || u.Roles[0].Name != "reader" {
		t.Fatalf("unexpected roles %+v", u.Roles)
	}
}

func TestFindByEmailNormalizes(t *testing.T) {
	repo, mock := newRepo(t)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta("WHERE LOWER(u.email) = $1")).
		WithArgs("admin@admin.com").
		WillReturnRows(sqlmock.NewRows(userColumns).AddRow(
			"u-0", "admin@admin.com", "hash", "Admin", "", true,
			nil, nil, nil, nil, true, now, now, []byte(`[]`),
		))

	u, err := repo.FindByEmail(context.Background(), "  Admin@Admin.com ")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if !u.IsSuperUser || u.RealmID != nil || u.ClientID != nil || u.Roles == nil {
		t.Fatalf("unexpected user %+v", u)
	}
}

func TestFindByEmailNotFound(t *testing.T) {
	repo, mock := newRepo(t)

	mock.ExpectQuery("FROM users u").WillReturnRows(sqlmock.NewRows(userColumns))

	_, err := repo.FindByEmail(context.Background(), "nobody@acme.com")
	if !errx.HasCode(err, user.CodeUserNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestFindAllBuildsFilter(t *testing.T) {
	repo, mock := newRepo(t)
	realmID := kernel.NewRealmID("r-1")
	active := true

	mock.ExpectQuery(regexp.QuoteMeta(
		"WHERE 1=1 AND u.realm_id = $1 AND u.is_active = $2 AND (u.email ILIKE $3 OR u.first_name ILIKE $3 OR u.last_name ILIKE $3)",
	)).
		WithArgs("r-1", true, "%jan%").
		WillReturnRows(sqlmock.NewRows(userColumns))

	users, err := repo.FindAll(context.Background(), user.ListFilter{
		RealmID:  &realmID,
		IsActive: &active,
		Search:   "jan",
	})
	if err != nil {
		t.Fatalf("find all: %v", err)
	}
	if len(users) != 0 {
		t.Fatalf("expected no users, got %d", len(users))
	}
}

func TestStatsWithClientFilter(t *testing.T) {
	repo, mock := newRepo(t)
	clientID := kernel.NewClientID("c-1")

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE 1=1 AND client_id = $1")).
		WithArgs("c-1").
		WillReturnRows(sqlmock.NewRows([]string{"total_users", "super_users", "realm_users", "active_users", "inactive_users"}).
			AddRow(10, 0, 10, 8, 2))

	stats, err := repo.Stats(context.Background(), user.ListFilter{ClientID: &clientID})
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalUsers != 10 || stats.InactiveUsers != 2 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestSaveMapsDuplicateEmail(t *testing.T) {
	repo, mock := newRepo(t)

	mock.ExpectQuery("SELECT EXISTS").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectExec("INSERT INTO users").
		WillReturnError(&pq.Error{Code: "23505"})

	err := repo.Save(context.Background(), user.User{ID: "u-1", Email: "jane@acme.com", IsSuperUser: true})
	if !errx.HasCode(err, user.CodeEmailExists) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestReplaceRolesRunsInTransaction(t *testing.T) {
	repo, mock := newRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM user_roles WHERE user_id = $1")).
		WithArgs("u-1").
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec("INSERT INTO user_roles").
		WithArgs("u-1", "ro-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO user_roles").
		WithArgs("u-1", "ro-2").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := repo.ReplaceRoles(context.Background(), "u-1", []kernel.RoleID{"ro-1", "ro-2"}); err != nil {
		t.Fatalf("replace: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestReplaceRolesRollsBackOnFailure(t *testing.T) {
	repo, mock := newRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM user_roles").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO user_roles").WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	err := repo.ReplaceRoles(context.Background(), "u-1", []kernel.RoleID{"ro-1"})
	if !errx.IsType(err, errx.TypeInternal) {
		t.Fatalf("expected internal error, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestUpdatePasswordMissingUser(t *testing.T) {
	repo, mock := newRepo(t)

	mock.ExpectExec("UPDATE users SET password_hash").
		WithArgs("newhash", "u-404").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdatePassword(context.Background(), "u-404", "newhash")
	if !errx.HasCode(err, user.CodeUserNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
