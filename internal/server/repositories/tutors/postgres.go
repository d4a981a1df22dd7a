package tutors

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/tutorhub/internal/common"
	"github.com/dmitrijs2005/tutorhub/internal/dbx"
	"github.com/dmitrijs2005/tutorhub/internal/server/models"
	"github.com/google/uuid"
)

const selectColumns = `id, account_id, schedule, subjects, languages, hourly_rate, teaching_mode,
		approval_status, rejected_reason, testimonial, folder_key, created_at, updated_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, app *models.TutorApplication) (*models.TutorApplication, error) {
	if app.ID == "" {
		app.ID = uuid.NewString()
	}
	if app.ApprovalStatus == "" {
		app.ApprovalStatus = models.StatusPending
	}

	schedule, err := json.Marshal(app.Schedule)
	if err != nil {
		return nil, fmt.Errorf("marshal schedule: %w", err)
	}

	query :=
		`INSERT INTO tutor_applications (id, account_id, schedule, subjects, languages, hourly_rate, teaching_mode, approval_status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING created_at, updated_at
		 `

	err = r.db.QueryRowContext(ctx, query,
		app.ID, app.AccountID, schedule, nonNil(app.Subjects), nonNil(app.Languages),
		app.HourlyRate, string(app.TeachingMode), string(app.ApprovalStatus),
	).Scan(&app.CreatedAt, &app.UpdatedAt)

	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, fmt.Errorf("application for account %s: %w", app.AccountID, common.ErrConflict)
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return app, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	return dbx.ExecOne(ctx, r.db, `DELETE FROM tutor_applications WHERE id = $1`, id)
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.TutorApplication, error) {
	return r.getOne(ctx, `SELECT `+selectColumns+` FROM tutor_applications WHERE id = $1`, id)
}

func (r *PostgresRepository) GetByAccountID(ctx context.Context, accountID string) (*models.TutorApplication, error) {
	return r.getOne(ctx, `SELECT `+selectColumns+` FROM tutor_applications WHERE account_id = $1`, accountID)
}

func (r *PostgresRepository) List(ctx context.Context, status models.ApprovalStatus) ([]models.TutorApplication, error) {
	query := `SELECT ` + selectColumns + ` FROM tutor_applications
		 WHERE ($1 = '' OR approval_status = $1)
		 ORDER BY created_at`

	rows, err := r.db.QueryContext(ctx, query, string(status))
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []models.TutorApplication
	for rows.Next() {
		app, err := scan(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *app)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}

func (r *PostgresRepository) SetApprovalStatus(ctx context.Context, id string, status models.ApprovalStatus, reason string) error {
	return dbx.ExecOne(ctx, r.db,
		`UPDATE tutor_applications SET approval_status = $2, rejected_reason = $3, updated_at = NOW() WHERE id = $1`,
		id, string(status), reason)
}

func (r *PostgresRepository) SetFolderKey(ctx context.Context, id, key string) error {
	return dbx.ExecOne(ctx, r.db,
		`UPDATE tutor_applications SET folder_key = $2, updated_at = NOW() WHERE id = $1`, id, key)
}

func (r *PostgresRepository) SetTestimonial(ctx context.Context, id, text string) error {
	return dbx.ExecOne(ctx, r.db,
		`UPDATE tutor_applications SET testimonial = $2, updated_at = NOW() WHERE id = $1`, id, text)
}

// ListTestimonials returns published testimonials, i.e. those of approved tutors.
func (r *PostgresRepository) ListTestimonials(ctx context.Context) ([]models.Testimonial, error) {
	query :=
		`SELECT a.id, a.user_name, a.first_name, a.last_name, t.testimonial,
			i.id, i.content_type, i.data, i.is_default
		 FROM tutor_applications t
		 JOIN accounts a ON a.id = t.account_id
		 LEFT JOIN images i ON i.id = a.profile_image_id
		 WHERE t.testimonial <> '' AND t.approval_status = 'approved'
		 ORDER BY t.updated_at DESC
		 `

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []models.Testimonial
	for rows.Next() {
		var (
			t           models.Testimonial
			imageID     sql.NullString
			contentType sql.NullString
			data        []byte
			isDefault   sql.NullBool
		)
		if err := rows.Scan(&t.AccountID, &t.UserName, &t.FirstName, &t.LastName, &t.Text,
			&imageID, &contentType, &data, &isDefault); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		if imageID.Valid {
			t.Image = &models.Image{
				ID:          imageID.String,
				AccountID:   t.AccountID,
				ContentType: contentType.String,
				Data:        data,
				IsDefault:   isDefault.Bool,
			}
		}
		result = append(result, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, arg any) (*models.TutorApplication, error) {
	app, err := scan(r.db.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	return app, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(s scanner) (*models.TutorApplication, error) {
	var (
		app      models.TutorApplication
		schedule []byte
		mode     string
		status   string
	)

	err := s.Scan(&app.ID, &app.AccountID, &schedule,
		dbx.StringArray(&app.Subjects), dbx.StringArray(&app.Languages),
		&app.HourlyRate, &mode, &status,
		&app.RejectedReason, &app.Testimonial, &app.FolderKey, &app.CreatedAt, &app.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	if len(schedule) > 0 {
		if err := json.Unmarshal(schedule, &app.Schedule); err != nil {
			return nil, fmt.Errorf("decode schedule: %w", err)
		}
	}
	app.TeachingMode = models.TeachingMode(mode)
	app.ApprovalStatus = models.ApprovalStatus(status)

	return &app, nil
}

// nonNil keeps NOT NULL array columns from receiving NULL.
func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
