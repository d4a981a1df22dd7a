package tutors

import (
	"context"

	"github.com/dmitrijs2005/tutorhub/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, app *models.TutorApplication) (*models.TutorApplication, error)
	Delete(ctx context.Context, id string) error

	GetByID(ctx context.Context, id string) (*models.TutorApplication, error)
	GetByAccountID(ctx context.Context, accountID string) (*models.TutorApplication, error)
	// List returns applications in creation order; an empty status lists all.
	List(ctx context.Context, status models.ApprovalStatus) ([]models.TutorApplication, error)

	SetApprovalStatus(ctx context.Context, id string, status models.ApprovalStatus, reason string) error
	SetFolderKey(ctx context.Context, id, key string) error
	SetTestimonial(ctx context.Context, id, text string) error

	ListTestimonials(ctx context.Context) ([]models.Testimonial, error)
}
