package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/tutorhub/internal/dbx"
	"github.com/dmitrijs2005/tutorhub/internal/server/models"
	"github.com/dmitrijs2005/tutorhub/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/tutorhub/internal/server/repositories/images"
	"github.com/dmitrijs2005/tutorhub/internal/server/repositories/projects"
	"github.com/dmitrijs2005/tutorhub/internal/server/repositories/taxonomy"
	"github.com/dmitrijs2005/tutorhub/internal/server/repositories/tutors"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Accounts(db dbx.DBTX) accounts.Repository
	Tutors(db dbx.DBTX) tutors.Repository
	Images(db dbx.DBTX) images.Repository
	Projects(db dbx.DBTX) projects.Repository
	Taxonomy(db dbx.DBTX, kind models.TaxonomyKind) taxonomy.Repository
}
