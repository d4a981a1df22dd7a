package projects

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

func (r *PostgresRepository) Create(ctx context.Context, p *models.Project) (*models.Project, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}

	query :=
		`INSERT INTO projects (id, account_id, name, description, url, image_content_type, image_data)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING created_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		p.ID, p.AccountID, p.Name, p.Description, p.URL, p.ImageContentType, p.ImageData,
	).Scan(&p.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return p, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Project, error) {
	query :=
		`SELECT id, account_id, name, description, url, image_content_type, image_data, created_at
		 FROM projects WHERE id = $1
		 `

	p := &models.Project{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&p.ID, &p.AccountID, &p.Name, &p.Description, &p.URL, &p.ImageContentType, &p.ImageData, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return p, nil
}

func (r *PostgresRepository) Update(ctx context.Context, p *models.Project) error {
	return dbx.ExecOne(ctx, r.db,
		`UPDATE projects SET name = $2, description = $3, url = $4 WHERE id = $1`,
		p.ID, p.Name, p.Description, p.URL)
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	return dbx.ExecOne(ctx, r.db, `DELETE FROM projects WHERE id = $1`, id)
}
