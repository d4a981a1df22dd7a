package projects

import (
	"context"

	"github.com/dmitrijs2005/tutorhub/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, p *models.Project) (*models.Project, error)
	GetByID(ctx context.Context, id string) (*models.Project, error)
	// Update rewrites name, description and url; the image is left untouched.
	Update(ctx context.Context, p *models.Project) error
	Delete(ctx context.Context, id string) error
}
