package images

import (
	"context"

	"github.com/dmitrijs2005/tutorhub/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, img *models.Image) (*models.Image, error)
	GetByID(ctx context.Context, id string) (*models.Image, error)
	// Delete removes the image only when accountID owns it; otherwise it
	// reports common.ErrorNotFound.
	Delete(ctx context.Context, id, accountID string) error
}
