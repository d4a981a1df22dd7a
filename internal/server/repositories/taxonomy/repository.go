// Package taxonomy stores the subject and language reference lists.
package taxonomy

import (
	"context"

	"github.com/dmitrijs2005/tutorhub/internal/server/models"
)

type Repository interface {
	List(ctx context.Context) ([]models.TaxonomyEntry, error)
	Insert(ctx context.Context, names []string) ([]models.TaxonomyEntry, error)
}
