// Package migrate applies the embedded PostgreSQL schema at process start.
package migrate

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"time"

	"github.com/Abraxas-365/authbuilder/pkg/errx"
	"github.com/Abraxas-365/authbuilder/pkg/logx"
)

//go:embed sql/*.up.sql
var embedded embed.FS

const defaultMigrationsTable = "schema_migrations"

var migrateErrors = errx.NewRegistry("MIGRATE")

var (
	ErrBookkeeping = migrateErrors.Register("BOOKKEEPING", errx.TypeInternal, 500, "Failed to read migration history")
	ErrSource      = migrateErrors.Register("SOURCE", errx.TypeInternal, 500, "Failed to read migration files")
	ErrApply       = migrateErrors.Register("APPLY", errx.TypeInternal, 500, "Failed to apply migration")
)

// Manager executes the *.up.sql files of a filesystem in name order, each in
// its own transaction, recording applied names in a bookkeeping table.
type Manager struct {
	db              *sql.DB
	source          fs.FS
	dir             string
	migrationsTable string
}

type Option func(*Manager)

// WithSource replaces the embedded migrations with dir inside fsys.
func WithSource(fsys fs.FS, dir string) Option {
	return func(m *Manager) {
		m.source = fsys
		m.dir = dir
	}
}

func WithMigrationsTable(name string) Option {
	return func(m *Manager) {
		if name != "" {
			m.migrationsTable = name
		}
	}
}

func NewManager(db *sql.DB, opts ...Option) *Manager {
	m := &Manager{
		db:              db,
		source:          embedded,
		dir:             "sql",
		migrationsTable: defaultMigrationsTable,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Up applies all pending migrations and returns the names it applied.
func (m *Manager) Up(ctx context.Context) ([]string, error) {
	if err := m.ensureTable(ctx); err != nil {
		return nil, err
	}
	executed, err := m.listExecuted(ctx)
	if err != nil {
		return nil, err
	}
	files, err := m.collect()
	if err != nil {
		return nil, err
	}

	var applied []string
	for _, name := range files {
		if executed[name] {
			continue
		}
		started := time.Now()
		if err := m.apply(ctx, name); err != nil {
			return applied, migrateErrors.NewWithCause(ErrApply, err).WithDetail("migration", name)
		}
		logx.WithFields(logx.Fields{
			"migration": name,
			"duration":  time.Since(started).String(),
		}).Info("migration applied")
		applied = append(applied, name)
	}
	return applied, nil
}

// Status returns the applied migrations in the order they were applied.
func (m *Manager) Status(ctx context.Context) ([]string, error) {
	if err := m.ensureTable(ctx); err != nil {
		return nil, err
	}
	rows, err := m.db.QueryContext(ctx, fmt.Sprintf(`SELECT name FROM %s ORDER BY applied_at ASC, name ASC`, m.migrationsTable))
	if err != nil {
		return nil, migrateErrors.NewWithCause(ErrBookkeeping, err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, migrateErrors.NewWithCause(ErrBookkeeping, err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (m *Manager) ensureTable(ctx context.Context) error {
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		name TEXT PRIMARY KEY,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`, m.migrationsTable)
	if _, err := m.db.ExecContext(ctx, ddl); err != nil {
		return migrateErrors.NewWithCause(ErrBookkeeping, err)
	}
	return nil
}

func (m *Manager) listExecuted(ctx context.Context) (map[string]bool, error) {
	rows, err := m.db.QueryContext(ctx, fmt.Sprintf(`SELECT name FROM %s`, m.migrationsTable))
	if err != nil {
		return nil, migrateErrors.NewWithCause(ErrBookkeeping, err)
	}
	defer rows.Close()

	result := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, migrateErrors.NewWithCause(ErrBookkeeping, err)
		}
		result[name] = true
	}
	return result, rows.Err()
}

func (m *Manager) collect() ([]string, error) {
	entries, err := fs.ReadDir(m.source, m.dir)
	if err != nil {
		return nil, migrateErrors.NewWithCause(ErrSource, err).WithDetail("dir", m.dir)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".up.sql") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

func (m *Manager) apply(ctx context.Context, name string) error {
	body, err := fs.ReadFile(m.source, m.dir+"/"+name)
	if err != nil {
		return err
	}

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range splitStatements(string(body)) {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`INSERT INTO %s (name) VALUES ($1)`, m.migrationsTable), name); err != nil {
		return err
	}
	return tx.Commit()
}

// splitStatements splits SQL on semicolons outside single-quoted literals.
// Blank statements are dropped.
func splitStatements(src string) []string {
	var (
		stmts    []string
		current  strings.Builder
		inString bool
	)
	flush := func() {
		if s := strings.TrimSpace(current.String()); s != "" {
			stmts = append(stmts, s)
		}
		current.Reset()
	}
	for _, r := range src {
		switch {
		case r == '\'':
			inString = !inString
			current.WriteRune(r)
		case r == ';' && !inString:
			flush()
		default:
			current.WriteRune(r)
		}
	}
	flush()
	return stmts
}
