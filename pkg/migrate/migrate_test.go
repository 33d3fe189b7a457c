package migrate_test

import (
	"context"
	"regexp"
	"testing"
	"testing/fstest"

	"github.com/Abraxas-365/authbuilder/pkg/migrate"
	"github.com/DATA-DOG/go-sqlmock"
)

func TestSplitStatements(t *testing.T) {
	got := migrate.SplitStatements("CREATE TABLE a (x TEXT DEFAULT ';');\n\nCREATE INDEX i ON a(x);\n")
	if len(got) != 2 {
		t.Fatalf("expected 2 statements, got %d: %q", len(got), got)
	}
	if got[0] != "CREATE TABLE a (x TEXT DEFAULT ';')" {
		t.Fatalf("unexpected first statement %q", got[0])
	}
}

func TestUpAppliesOnlyPendingMigrations(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	src := fstest.MapFS{
		"m/0001_a.up.sql": {Data: []byte("CREATE TABLE a (id INT);")},
		"m/0002_b.up.sql": {Data: []byte("CREATE TABLE b (id INT); CREATE INDEX b_i ON b(id);")},
		"m/README.md":     {Data: []byte("ignored")},
	}

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS schema_migrations")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT name FROM schema_migrations")).
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("0001_a.up.sql"))
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE b (id INT)")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("CREATE INDEX b_i ON b(id)")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO schema_migrations (name) VALUES ($1)")).
		WithArgs("0002_b.up.sql").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	applied, err := migrate.NewManager(db, migrate.WithSource(src, "m")).Up(context.Background())
	if err != nil {
		t.Fatalf("up: %v", err)
	}
	if len(applied) != 1 || applied[0] != "0002_b.up.sql" {
		t.Fatalf("applied = %v", applied)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestUpRollsBackFailedMigration(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	src := fstest.MapFS{"m/0001_a.up.sql": {Data: []byte("CREATE TABLE a (id INT);")}}

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT name FROM").WillReturnRows(sqlmock.NewRows([]string{"name"}))
	mock.ExpectBegin()
	mock.ExpectExec("CREATE TABLE a").WillReturnError(context.DeadlineExceeded)
	mock.ExpectRollback()

	if _, err := migrate.NewManager(db, migrate.WithSource(src, "m")).Up(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestEmbeddedMigrationsAreOrdered(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_migrations").WillReturnResult(sqlmock.NewResult(0, 0))
	rows := sqlmock.NewRows([]string{"name"})
	for _, n := range []string{"0001_realms.up.sql", "0002_clients.up.sql", "0003_users.up.sql", "0004_roles.up.sql", "0005_tokens.up.sql", "0006_otps.up.sql"} {
		rows.AddRow(n)
	}
	mock.ExpectQuery("SELECT name FROM schema_migrations").WillReturnRows(rows)

	applied, err := migrate.NewManager(db).Up(context.Background())
	if err != nil {
		t.Fatalf("up: %v", err)
	}
	if len(applied) != 0 {
		t.Fatalf("nothing should be pending, applied %v", applied)
	}
}
