// Package repomanager provides a concrete RepositoryManager for PostgreSQL,
// wiring together repository constructors and database migrations (via goose).
package repomanager

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/tutorhub/internal/dbx"
	"github.com/dmitrijs2005/tutorhub/internal/server/migrations"
	"github.com/dmitrijs2005/tutorhub/internal/server/models"
	"github.com/dmitrijs2005/tutorhub/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/tutorhub/internal/server/repositories/images"
	"github.com/dmitrijs2005/tutorhub/internal/server/repositories/projects"
	"github.com/dmitrijs2005/tutorhub/internal/server/repositories/taxonomy"
	"github.com/dmitrijs2005/tutorhub/internal/server/repositories/tutors"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// PostgresRepositoryManager vends PostgreSQL-backed repository implementations
// and exposes a schema migration hook.
type PostgresRepositoryManager struct{}

// Accounts returns an accounts.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) Accounts(db dbx.DBTX) accounts.Repository {
	return accounts.NewPostgresRepository(db)
}

// Tutors returns a tutors.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) Tutors(db dbx.DBTX) tutors.Repository {
	return tutors.NewPostgresRepository(db)
}

// Images returns an images.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) Images(db dbx.DBTX) images.Repository {
	return images.NewPostgresRepository(db)
}

// Projects returns a projects.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) Projects(db dbx.DBTX) projects.Repository {
	return projects.NewPostgresRepository(db)
}

// Taxonomy returns the subjects or languages repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) Taxonomy(db dbx.DBTX, kind models.TaxonomyKind) taxonomy.Repository {
	return taxonomy.NewPostgresRepository(db, kind)
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations applies every pending embedded migration. Both the server
// at startup and tutorctl migrate go through here.
func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}
	if err := gooseUpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}

// NewPostgresRepositoryManager constructs a PostgreSQL-backed RepositoryManager.
func NewPostgresRepositoryManager() RepositoryManager {
	return &PostgresRepositoryManager{}
}
