package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/tutorhub/internal/common"
	"github.com/dmitrijs2005/tutorhub/internal/dbx"
	"github.com/dmitrijs2005/tutorhub/internal/server/models"
	"github.com/google/uuid"
)

const selectColumns = `id, user_name, password_hash, email, email_validated, roles,
		first_name, last_name, phone_number, date_of_birth,
		bio, pronouns, portfolio_link, social_link_one, social_link_two,
		country, state_province, city, time_zone,
		profile_image_id, project_one_id, project_two_id,
		verification_token, verification_expires_at, reset_token, reset_expires_at,
		created_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, a *models.Account) (*models.Account, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if len(a.Roles) == 0 {
		a.Roles = []string{common.RoleUser}
	}

	query :=
		`INSERT INTO accounts (id, user_name, password_hash, email, email_validated, roles,
			first_name, last_name, verification_token, verification_expires_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING created_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		a.ID, a.UserName, a.PasswordHash, a.Email, a.EmailValidated, a.Roles,
		a.FirstName, a.LastName,
		dbx.NullString(a.VerificationToken), dbx.NullTime(a.VerificationExpiresAt),
	).Scan(&a.CreatedAt)

	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, fmt.Errorf("account %s: %w", a.Email, common.ErrConflict)
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return a, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	return dbx.ExecOne(ctx, r.db, `DELETE FROM accounts WHERE id = $1`, id)
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Account, error) {
	return r.getOne(ctx, `SELECT `+selectColumns+` FROM accounts WHERE id = $1`, id)
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	return r.getOne(ctx, `SELECT `+selectColumns+` FROM accounts WHERE LOWER(email) = LOWER($1)`, email)
}

func (r *PostgresRepository) GetByVerificationToken(ctx context.Context, token string) (*models.Account, error) {
	return r.getOne(ctx, `SELECT `+selectColumns+` FROM accounts WHERE verification_token = $1`, token)
}

func (r *PostgresRepository) GetByResetToken(ctx context.Context, token string) (*models.Account, error) {
	return r.getOne(ctx, `SELECT `+selectColumns+` FROM accounts WHERE reset_token = $1`, token)
}

func (r *PostgresRepository) SetVerificationToken(ctx context.Context, id, token string, expiresAt time.Time) error {
	return dbx.ExecOne(ctx, r.db,
		`UPDATE accounts SET verification_token = $2, verification_expires_at = $3 WHERE id = $1`,
		id, dbx.NullString(token), dbx.NullTime(expiresAt))
}

func (r *PostgresRepository) MarkEmailValidated(ctx context.Context, id string) error {
	return dbx.ExecOne(ctx, r.db,
		`UPDATE accounts SET email_validated = TRUE, verification_token = NULL, verification_expires_at = NULL WHERE id = $1`,
		id)
}

func (r *PostgresRepository) SetResetToken(ctx context.Context, id, token string, expiresAt time.Time) error {
	return dbx.ExecOne(ctx, r.db,
		`UPDATE accounts SET reset_token = $2, reset_expires_at = $3 WHERE id = $1`,
		id, dbx.NullString(token), dbx.NullTime(expiresAt))
}

func (r *PostgresRepository) UpdatePassword(ctx context.Context, id string, hash []byte) error {
	return dbx.ExecOne(ctx, r.db,
		`UPDATE accounts SET password_hash = $2, reset_token = NULL, reset_expires_at = NULL WHERE id = $1`,
		id, hash)
}

func (r *PostgresRepository) AppendLogin(ctx context.Context, e models.LoginEntry) error {
	query :=
		`INSERT INTO login_history (account_id, logged_at, user_agent)
		 VALUES ($1, $2, $3)
		 `
	if _, err := r.db.ExecContext(ctx, query, e.AccountID, e.LoggedAt, e.UserAgent); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// AddRole is idempotent: granting a role the account already holds is not an error.
func (r *PostgresRepository) AddRole(ctx context.Context, id, role string) error {
	query := `UPDATE accounts SET roles = array_append(roles, $2) WHERE id = $1 AND NOT ($2 = ANY(roles))`
	if _, err := r.db.ExecContext(ctx, query, id, role); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// RemoveRole is a no-op when the account does not hold role.
func (r *PostgresRepository) RemoveRole(ctx context.Context, id, role string) error {
	query := `UPDATE accounts SET roles = array_remove(roles, $2) WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, role); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) UpdateProfile(ctx context.Context, a *models.Account) error {
	return dbx.ExecOne(ctx, r.db,
		`UPDATE accounts SET first_name = $2, last_name = $3, user_name = $4, phone_number = $5, date_of_birth = $6,
			country = $7, state_province = $8, city = $9, time_zone = $10
		 WHERE id = $1`,
		a.ID, a.FirstName, a.LastName, a.UserName, a.PhoneNumber, dbx.NullTimePtr(a.DateOfBirth),
		a.Country, a.StateProvince, a.City, a.TimeZone)
}

func (r *PostgresRepository) UpdatePublicProfile(ctx context.Context, a *models.Account) error {
	return dbx.ExecOne(ctx, r.db,
		`UPDATE accounts SET bio = $2, pronouns = $3, portfolio_link = $4, social_link_one = $5, social_link_two = $6
		 WHERE id = $1`,
		a.ID, a.Bio, a.Pronouns, a.PortfolioLink, a.SocialLinkOne, a.SocialLinkTwo)
}

func (r *PostgresRepository) SetProfileImage(ctx context.Context, id, imageID string) error {
	return dbx.ExecOne(ctx, r.db, `UPDATE accounts SET profile_image_id = $2 WHERE id = $1`, id, dbx.NullString(imageID))
}

func (r *PostgresRepository) SetProjects(ctx context.Context, id, projectOneID, projectTwoID string) error {
	return dbx.ExecOne(ctx, r.db,
		`UPDATE accounts SET project_one_id = $2, project_two_id = $3 WHERE id = $1`,
		id, dbx.NullString(projectOneID), dbx.NullString(projectTwoID))
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, arg any) (*models.Account, error) {
	a := &models.Account{}

	var (
		dob                             sql.NullTime
		imageID, projectOne, projectTwo sql.NullString
		verToken, resetToken            sql.NullString
		verExpires, resetExpires        sql.NullTime
	)

	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&a.ID, &a.UserName, &a.PasswordHash, &a.Email, &a.EmailValidated, dbx.StringArray(&a.Roles),
		&a.FirstName, &a.LastName, &a.PhoneNumber, &dob,
		&a.Bio, &a.Pronouns, &a.PortfolioLink, &a.SocialLinkOne, &a.SocialLinkTwo,
		&a.Country, &a.StateProvince, &a.City, &a.TimeZone,
		&imageID, &projectOne, &projectTwo,
		&verToken, &verExpires, &resetToken, &resetExpires,
		&a.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	if dob.Valid {
		t := dob.Time
		a.DateOfBirth = &t
	}
	a.ProfileImageID = imageID.String
	a.ProjectOneID = projectOne.String
	a.ProjectTwoID = projectTwo.String
	a.VerificationToken = verToken.String
	a.VerificationExpiresAt = verExpires.Time
	a.ResetToken = resetToken.String
	a.ResetExpiresAt = resetExpires.Time

	return a, nil
}
