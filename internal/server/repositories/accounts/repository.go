package accounts

import (
	"context"
	"time"

	"github.com/dmitrijs2005/tutorhub/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, account *models.Account) (*models.Account, error)
	Delete(ctx context.Context, id string) error

	GetByID(ctx context.Context, id string) (*models.Account, error)
	GetByEmail(ctx context.Context, email string) (*models.Account, error)
	GetByVerificationToken(ctx context.Context, token string) (*models.Account, error)
	GetByResetToken(ctx context.Context, token string) (*models.Account, error)

	SetVerificationToken(ctx context.Context, id, token string, expiresAt time.Time) error
	MarkEmailValidated(ctx context.Context, id string) error
	SetResetToken(ctx context.Context, id, token string, expiresAt time.Time) error
	UpdatePassword(ctx context.Context, id string, hash []byte) error
	AppendLogin(ctx context.Context, entry models.LoginEntry) error
	AddRole(ctx context.Context, id, role string) error
	RemoveRole(ctx context.Context, id, role string) error

	UpdateProfile(ctx context.Context, account *models.Account) error
	UpdatePublicProfile(ctx context.Context, account *models.Account) error
	SetProfileImage(ctx context.Context, id, imageID string) error
	SetProjects(ctx context.Context, id, projectOneID, projectTwoID string) error
}
