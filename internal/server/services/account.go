// Package services contains the server-side business logic: account
// lifecycle, tutor applications and profile management.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/dmitrijs2005/tutorhub/internal/common"
	"github.com/dmitrijs2005/tutorhub/internal/dbx"
	"github.com/dmitrijs2005/tutorhub/internal/server/auth"
	"github.com/dmitrijs2005/tutorhub/internal/server/avatar"
	"github.com/dmitrijs2005/tutorhub/internal/server/config"
	mailer "github.com/dmitrijs2005/tutorhub/internal/server/mail"
	"github.com/dmitrijs2005/tutorhub/internal/server/models"
	"github.com/dmitrijs2005/tutorhub/internal/server/repositories/repomanager"
)

// generateAvatar is a seam for tests.
var generateAvatar = avatar.Generate

// AccountService handles sign-up, sign-in, e-mail verification and
// password reset.
type AccountService struct {
	db                *sql.DB
	repomanager       repomanager.RepositoryManager
	mailer            mailer.Mailer
	jwtSecret         []byte
	tokenValidity     time.Duration
	verificationValid time.Duration
	resetValid        time.Duration
	frontendURL       string
	now               func() time.Time
}

func NewAccountService(db *sql.DB, m repomanager.RepositoryManager, ml mailer.Mailer, cfg *config.Config) *AccountService {
	return &AccountService{
		db:                db,
		repomanager:       m,
		mailer:            ml,
		jwtSecret:         []byte(cfg.SecretKey),
		tokenValidity:     cfg.AccessTokenValidityDuration,
		verificationValid: cfg.VerificationTokenWindow,
		resetValid:        cfg.ResetTokenWindow,
		frontendURL:       strings.TrimRight(cfg.FrontendURL, "/"),
		now:               time.Now,
	}
}

func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}

// Register creates an unvalidated account with a default avatar and sends
// the verification e-mail. When the e-mail cannot be sent the account is
// removed again.
func (s *AccountService) Register(ctx context.Context, fullName, email, password string) (*models.Account, error) {
	fullName = strings.TrimSpace(fullName)
	email = strings.TrimSpace(email)
	if fullName == "" || password == "" || !validEmail(email) {
		return nil, fmt.Errorf("%w: full name, a valid email and a password are required", common.ErrInvalidInput)
	}

	_, err := s.repomanager.Accounts(s.db).GetByEmail(ctx, email)
	switch {
	case err == nil:
		return nil, fmt.Errorf("email %s: %w", email, common.ErrConflict)
	case !errors.Is(err, common.ErrorNotFound):
		return nil, err
	}

	account, err := s.createAccount(ctx, fullName, email, password)
	if err != nil {
		return nil, err
	}

	if err := s.sendVerification(ctx, account); err != nil {
		if derr := s.repomanager.Accounts(s.db).Delete(context.WithoutCancel(ctx), account.ID); derr != nil {
			return nil, fmt.Errorf("%w (removing account %s failed: %v)", err, account.ID, derr)
		}
		return nil, err
	}

	return account, nil
}

// createAccount inserts the account, its generated avatar and the avatar
// link in one transaction.
func (s *AccountService) createAccount(ctx context.Context, fullName, email, password string) (*models.Account, error) {
	account, png, err := newAccount(fullName, email, password, s.now().Add(s.verificationValid))
	if err != nil {
		return nil, err
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return insertAccount(ctx, s.repomanager, tx, account, png)
	})
	if err != nil {
		return nil, err
	}
	return account, nil
}

// newAccount prepares an unvalidated account with a fresh verification token
// and renders its default avatar.
func newAccount(fullName, email, password string, verificationExpires time.Time) (*models.Account, []byte, error) {
	hash, err := hashPassword(password)
	if err != nil {
		return nil, nil, err
	}
	token, err := common.MakeRandHexString(common.TokenBytes)
	if err != nil {
		return nil, nil, err
	}

	first, last := models.SplitFullName(fullName)
	png, err := generateAvatar(first)
	if err != nil {
		return nil, nil, fmt.Errorf("generate avatar: %w", err)
	}

	return &models.Account{
		UserName:              models.MakeUserName(first, last),
		PasswordHash:          hash,
		Email:                 email,
		FirstName:             first,
		LastName:              last,
		VerificationToken:     token,
		VerificationExpiresAt: verificationExpires,
	}, png, nil
}

// insertAccount writes the account and its default avatar using tx.
func insertAccount(ctx context.Context, rm repomanager.RepositoryManager, tx dbx.DBTX, account *models.Account, png []byte) error {
	if _, err := rm.Accounts(tx).Create(ctx, account); err != nil {
		return err
	}
	img, err := rm.Images(tx).Create(ctx, &models.Image{
		AccountID:   account.ID,
		Description: "default avatar",
		ContentType: avatar.ContentType,
		Data:        png,
		IsDefault:   true,
	})
	if err != nil {
		return err
	}
	account.ProfileImageID = img.ID
	return rm.Accounts(tx).SetProfileImage(ctx, account.ID, img.ID)
}

func (s *AccountService) sendVerification(ctx context.Context, a *models.Account) error {
	return sendVerification(ctx, s.mailer, s.frontendURL, s.verificationValid, a)
}

func sendVerification(ctx context.Context, ml mailer.Mailer, frontendURL string, validity time.Duration, a *models.Account) error {
	link := frontendURL + "/verify-email/" + a.VerificationToken
	msg, err := mailer.Verification(a.Email, a.FirstName, link, validity)
	if err != nil {
		return err
	}
	if err := ml.Send(ctx, msg); err != nil {
		return fmt.Errorf("%w: send verification email: %w", common.ErrUpstream, err)
	}
	return nil
}

// Authenticate checks credentials, records the sign-in and returns a session
// token.
func (s *AccountService) Authenticate(ctx context.Context, email, password, userAgent string) (string, *models.Account, error) {
	repo := s.repomanager.Accounts(s.db)

	account, err := repo.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return "", nil, err
	}
	if !account.EmailValidated {
		return "", nil, fmt.Errorf("%w: email address is not verified", common.ErrForbidden)
	}

	ok, err := passwordMatches(account.PasswordHash, password)
	if err != nil {
		return "", nil, err
	}
	if !ok {
		return "", nil, common.ErrBadCredentials
	}

	if err := repo.AppendLogin(ctx, models.LoginEntry{AccountID: account.ID, LoggedAt: s.now(), UserAgent: userAgent}); err != nil {
		return "", nil, err
	}

	token, err := auth.GenerateToken(auth.Identity{
		UserID:   account.ID,
		Roles:    account.Roles,
		UserName: account.UserName,
		Email:    account.Email,
	}, s.jwtSecret, s.tokenValidity)
	if err != nil {
		return "", nil, fmt.Errorf("sign token: %w", err)
	}

	return token, account, nil
}

// RequestPasswordReset stores a fresh reset token and e-mails the link. The
// token is cleared again if the e-mail cannot be sent.
func (s *AccountService) RequestPasswordReset(ctx context.Context, email string) error {
	repo := s.repomanager.Accounts(s.db)

	account, err := repo.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return err
	}

	token, err := common.MakeRandHexString(common.TokenBytes)
	if err != nil {
		return err
	}
	if err := repo.SetResetToken(ctx, account.ID, token, s.now().Add(s.resetValid)); err != nil {
		return err
	}

	link := s.frontendURL + "/reset-password/" + token
	msg, err := mailer.PasswordReset(account.Email, account.FirstName, link, s.resetValid)
	if err == nil {
		err = s.mailer.Send(ctx, msg)
	}
	if err != nil {
		_ = repo.SetResetToken(context.WithoutCancel(ctx), account.ID, "", time.Time{})
		return fmt.Errorf("%w: send reset email: %w", common.ErrUpstream, err)
	}

	return nil
}

// CompletePasswordReset replaces the password and consumes the token.
func (s *AccountService) CompletePasswordReset(ctx context.Context, token, newPassword string) error {
	if newPassword == "" {
		return fmt.Errorf("%w: password is required", common.ErrInvalidInput)
	}

	repo := s.repomanager.Accounts(s.db)

	account, err := repo.GetByResetToken(ctx, token)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrInvalidToken
		}
		return err
	}
	if common.Expired(account.ResetExpiresAt, s.now()) {
		return common.ErrTokenExpired
	}

	same, err := passwordMatches(account.PasswordHash, newPassword)
	if err != nil {
		return err
	}
	if same {
		return fmt.Errorf("%w: new password must differ from the current one", common.ErrPolicyViolation)
	}

	hash, err := hashPassword(newPassword)
	if err != nil {
		return err
	}
	return repo.UpdatePassword(ctx, account.ID, hash)
}

// VerifyEmail marks the account holding token as validated and consumes
// the token.
func (s *AccountService) VerifyEmail(ctx context.Context, token string) error {
	repo := s.repomanager.Accounts(s.db)

	account, err := repo.GetByVerificationToken(ctx, token)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrInvalidToken
		}
		return err
	}
	if common.Expired(account.VerificationExpiresAt, s.now()) {
		return common.ErrTokenExpired
	}

	return repo.MarkEmailValidated(ctx, account.ID)
}

// ResendVerification replaces the verification token of an unvalidated
// account and sends a new e-mail.
func (s *AccountService) ResendVerification(ctx context.Context, email string) error {
	repo := s.repomanager.Accounts(s.db)

	account, err := repo.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return err
	}
	if account.EmailValidated {
		return fmt.Errorf("%w: email address is already verified", common.ErrInvalidInput)
	}

	token, err := common.MakeRandHexString(common.TokenBytes)
	if err != nil {
		return err
	}
	account.VerificationToken = token
	account.VerificationExpiresAt = s.now().Add(s.verificationValid)
	if err := repo.SetVerificationToken(ctx, account.ID, token, account.VerificationExpiresAt); err != nil {
		return err
	}

	return s.sendVerification(ctx, account)
}

// CurrentAccount returns the account behind a session.
func (s *AccountService) CurrentAccount(ctx context.Context, accountID string) (*models.Account, error) {
	return s.repomanager.Accounts(s.db).GetByID(ctx, accountID)
}

// CreateAdmin creates a validated account carrying the admin role, or grants
// the role to the account already registered under email. No e-mail is sent.
func (s *AccountService) CreateAdmin(ctx context.Context, fullName, email, password string) (*models.Account, error) {
	email = strings.TrimSpace(email)
	if !validEmail(email) {
		return nil, fmt.Errorf("%w: a valid email is required", common.ErrInvalidInput)
	}

	id, err := dbx.InTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) (string, error) {
		repo := s.repomanager.Accounts(tx)

		account, err := repo.GetByEmail(ctx, email)
		switch {
		case errors.Is(err, common.ErrorNotFound):
			fullName = strings.TrimSpace(fullName)
			if fullName == "" || password == "" {
				return "", fmt.Errorf("%w: full name and password are required", common.ErrInvalidInput)
			}
			a, png, err := newAccount(fullName, email, password, s.now())
			if err != nil {
				return "", err
			}
			if err := insertAccount(ctx, s.repomanager, tx, a, png); err != nil {
				return "", err
			}
			account = a
		case err != nil:
			return "", err
		}

		if err := repo.MarkEmailValidated(ctx, account.ID); err != nil {
			return "", err
		}
		return account.ID, repo.AddRole(ctx, account.ID, common.RoleAdmin)
	})
	if err != nil {
		return nil, err
	}

	return s.repomanager.Accounts(s.db).GetByID(ctx, id)
}
