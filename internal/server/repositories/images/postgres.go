package images

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/tutorhub/internal/common"
	"github.com/dmitrijs2005/tutorhub/internal/dbx"
	"github.com/dmitrijs2005/tutorhub/internal/server/models"
	"github.com/google/uuid"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, img *models.Image) (*models.Image, error) {
	if img.ID == "" {
		img.ID = uuid.NewString()
	}

	query :=
		`INSERT INTO images (id, account_id, description, content_type, data, is_default)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING created_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		img.ID, img.AccountID, img.Description, img.ContentType, img.Data, img.IsDefault,
	).Scan(&img.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return img, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Image, error) {
	query :=
		`SELECT id, account_id, description, content_type, data, is_default, created_at
		 FROM images WHERE id = $1
		 `

	img := &models.Image{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&img.ID, &img.AccountID, &img.Description, &img.ContentType, &img.Data, &img.IsDefault, &img.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return img, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id, accountID string) error {
	return dbx.ExecOne(ctx, r.db, `DELETE FROM images WHERE id = $1 AND account_id = $2`, id, accountID)
}
