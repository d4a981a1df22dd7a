package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/dmitrijs2005/tutorhub/internal/common"
	"github.com/dmitrijs2005/tutorhub/internal/dbx"
	"github.com/dmitrijs2005/tutorhub/internal/logging"
	"github.com/dmitrijs2005/tutorhub/internal/server/config"
	"github.com/dmitrijs2005/tutorhub/internal/server/documents"
	mailer "github.com/dmitrijs2005/tutorhub/internal/server/mail"
	"github.com/dmitrijs2005/tutorhub/internal/server/models"
	"github.com/dmitrijs2005/tutorhub/internal/server/notify"
	"github.com/dmitrijs2005/tutorhub/internal/server/repositories/repomanager"
)

// EligibilityState is where a candidate stands on the way to becoming a tutor.
type EligibilityState string

const (
	StateNoAccount           EligibilityState = "no_account"
	StateAccountOnly         EligibilityState = "account_only"
	StateApplicationPending  EligibilityState = "application_pending"
	StateApplicationApproved EligibilityState = "application_approved"
	StateApplicationRejected EligibilityState = "application_rejected"
)

type Eligibility struct {
	State     EligibilityState `json:"state"`
	Message   string           `json:"message"`
	Reason    string           `json:"rejectedReason,omitempty"`
	AppealURL string           `json:"appealUrl,omitempty"`
}

// Blocked reports whether an existing application prevents a new one.
func (e Eligibility) Blocked() bool {
	switch e.State {
	case StateApplicationPending, StateApplicationApproved, StateApplicationRejected:
		return true
	}
	return false
}

// SubmitInput is the "become a tutor" form. Password is only used when no
// account exists for Email yet.
type SubmitInput struct {
	FullName     string
	Email        string
	Password     string
	Bio          string
	Schedule     models.Schedule
	Subjects     []string
	Languages    []string
	HourlyRate   float64
	TeachingMode string
	Verification *documents.File
	Video        *documents.File
}

type TutorService struct {
	db                *sql.DB
	repomanager       repomanager.RepositoryManager
	documents         documents.Store
	mailer            mailer.Mailer
	notifier          notify.Notifier
	logger            logging.Logger
	verificationValid time.Duration
	frontendURL       string
	now               func() time.Time
}

func NewTutorService(db *sql.DB, m repomanager.RepositoryManager, docs documents.Store, ml mailer.Mailer,
	n notify.Notifier, logger logging.Logger, cfg *config.Config) *TutorService {
	return &TutorService{
		db:                db,
		repomanager:       m,
		documents:         docs,
		mailer:            ml,
		notifier:          n,
		logger:            logger,
		verificationValid: cfg.VerificationTokenWindow,
		frontendURL:       strings.TrimRight(cfg.FrontendURL, "/"),
		now:               time.Now,
	}
}

func (s *TutorService) CheckEligibility(ctx context.Context, email string, sessionActive bool) (Eligibility, error) {
	email = strings.TrimSpace(email)
	if !validEmail(email) {
		return Eligibility{}, fmt.Errorf("%w: a valid email is required", common.ErrInvalidInput)
	}

	account, err := s.repomanager.Accounts(s.db).GetByEmail(ctx, email)
	if errors.Is(err, common.ErrorNotFound) {
		return Eligibility{
			State:   StateNoAccount,
			Message: "Thank you for considering becoming a tutor! Let’s start by creating your account.",
		}, nil
	}
	if err != nil {
		return Eligibility{}, err
	}

	app, err := s.repomanager.Tutors(s.db).GetByAccountID(ctx, account.ID)
	if errors.Is(err, common.ErrorNotFound) {
		if sessionActive {
			return Eligibility{
				State:   StateAccountOnly,
				Message: "Welcome back! Let’s continue with your tutor application.",
			}, nil
		}
		return Eligibility{
			State:   StateAccountOnly,
			Message: fmt.Sprintf("An account with the email %s already exists. If this is your account, please sign in to continue.", email),
		}, nil
	}
	if err != nil {
		return Eligibility{}, err
	}

	switch {
	case app.IsApproved():
		return Eligibility{State: StateApplicationApproved, Message: "You are already registered as a tutor."}, nil
	case app.IsRejected():
		return Eligibility{
			State:     StateApplicationRejected,
			Message:   "Your previous tutor application was not approved. You can appeal the decision.",
			Reason:    app.RejectedReason,
			AppealURL: s.frontendURL + "/appeal",
		}, nil
	default:
		return Eligibility{
			State:   StateApplicationPending,
			Message: "Your tutor application is under review. We will email you once a decision has been made.",
		}, nil
	}
}

func (in *SubmitInput) validate() (models.TeachingMode, error) {
	in.FullName = strings.TrimSpace(in.FullName)
	in.Email = strings.TrimSpace(in.Email)

	switch {
	case in.Verification == nil || len(in.Verification.Data) == 0:
		return "", fmt.Errorf("%w: a verification document is required", common.ErrInvalidInput)
	case in.FullName == "" || !validEmail(in.Email):
		return "", fmt.Errorf("%w: full name and a valid email are required", common.ErrInvalidInput)
	case in.HourlyRate <= 0:
		return "", fmt.Errorf("%w: hourly rate must be positive", common.ErrInvalidInput)
	}

	var err error
	if in.Subjects, err = cleanList("subjects", in.Subjects); err != nil {
		return "", err
	}
	if in.Languages, err = cleanList("languages", in.Languages); err != nil {
		return "", err
	}

	mode, ok := models.ParseTeachingMode(in.TeachingMode)
	if !ok {
		return "", fmt.Errorf("%w: unknown teaching mode %q", common.ErrInvalidInput, in.TeachingMode)
	}
	return mode, nil
}

// cleanList trims entries and rejects empty lists or blank entries.
func cleanList(what string, items []string) ([]string, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: expected a non-empty array of %s", common.ErrInvalidInput, what)
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		it = strings.TrimSpace(it)
		if it == "" {
			return nil, fmt.Errorf("%w: %s must not contain blank entries", common.ErrInvalidInput, what)
		}
		out = append(out, it)
	}
	return out, nil
}

// SubmitApplication records a pending application, files the candidate's
// documents and, for candidates without an account, creates one and sends
// the verification e-mail. Every step after the database write is undone if
// a later step fails.
func (s *TutorService) SubmitApplication(ctx context.Context, in SubmitInput) (*models.TutorApplication, error) {
	mode, err := in.validate()
	if err != nil {
		return nil, err
	}

	account, err := s.repomanager.Accounts(s.db).GetByEmail(ctx, in.Email)
	switch {
	case errors.Is(err, common.ErrorNotFound):
		if in.Password == "" {
			return nil, fmt.Errorf("%w: a password is required to create an account", common.ErrInvalidInput)
		}
		account = nil
	case err != nil:
		return nil, err
	default:
		if _, err := s.repomanager.Tutors(s.db).GetByAccountID(ctx, account.ID); err == nil {
			return nil, fmt.Errorf("%w: an application already exists for %s", common.ErrForbidden, in.Email)
		} else if !errors.Is(err, common.ErrorNotFound) {
			return nil, err
		}
	}

	app := &models.TutorApplication{
		Schedule:     in.Schedule,
		Subjects:     in.Subjects,
		Languages:    in.Languages,
		HourlyRate:   in.HourlyRate,
		TeachingMode: mode,
	}

	created := account == nil
	if created {
		var png []byte
		account, png, err = newAccount(in.FullName, in.Email, in.Password, s.now().Add(s.verificationValid))
		if err != nil {
			return nil, err
		}
		account.Bio = strings.TrimSpace(in.Bio)
		err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
			if err := insertAccount(ctx, s.repomanager, tx, account, png); err != nil {
				return err
			}
			if account.Bio != "" {
				if err := s.repomanager.Accounts(tx).UpdatePublicProfile(ctx, account); err != nil {
					return err
				}
			}
			app.AccountID = account.ID
			_, err := s.repomanager.Tutors(tx).Create(ctx, app)
			return err
		})
	} else {
		app.AccountID = account.ID
		_, err = s.repomanager.Tutors(s.db).Create(ctx, app)
	}
	if err != nil {
		if errors.Is(err, common.ErrConflict) {
			return nil, fmt.Errorf("%w: %w", common.ErrForbidden, err)
		}
		return nil, err
	}

	var sg saga
	if created {
		sg.onFailure("account", func(ctx context.Context) error {
			return s.repomanager.Accounts(s.db).Delete(ctx, account.ID)
		})
	}
	sg.onFailure("application", func(ctx context.Context) error {
		return s.repomanager.Tutors(s.db).Delete(ctx, app.ID)
	})

	res, err := documents.Submit(ctx, s.documents, submission(in, account.Email, mode))
	if err != nil {
		return nil, sg.abort(ctx, err)
	}
	sg.onFailure("documents", func(ctx context.Context) error {
		return s.documents.DeleteFolder(ctx, res.Folder)
	})

	if err := s.repomanager.Tutors(s.db).SetFolderKey(ctx, app.ID, res.Folder.Key); err != nil {
		return nil, sg.abort(ctx, fmt.Errorf("%w: record folder key: %w", common.ErrUpstream, err))
	}
	app.FolderKey = res.Folder.Key

	if created {
		if err := sendVerification(ctx, s.mailer, s.frontendURL, s.verificationValid, account); err != nil {
			return nil, sg.abort(ctx, err)
		}
	}

	sheetURL, err := s.documents.PresignGet(ctx, res.SheetKey)
	if err != nil {
		s.logger.Warn(ctx, "presign data sheet failed", "application", app.ID, "error", err)
	}

	if err := s.notifier.ApplicationSubmitted(ctx, notify.Application{
		ID:           app.ID,
		Name:         in.FullName,
		Email:        in.Email,
		Subjects:     app.Subjects,
		Languages:    app.Languages,
		HourlyRate:   app.HourlyRate,
		TeachingMode: mode.Label(),
		FolderKey:    app.FolderKey,
		SheetURL:     sheetURL,
	}); err != nil {
		s.logger.Warn(ctx, "operator notification failed", "application", app.ID, "error", err)
	}

	s.logger.Info(ctx, "tutor application submitted", "application", app.ID, "account", account.ID, "new_account", created)
	return app, nil
}

func submission(in SubmitInput, email string, mode models.TeachingMode) documents.Submission {
	name := strings.ToUpper(in.FullName)

	files := []documents.File{named(*in.Verification, name+"'s Verification")}
	if in.Video != nil && len(in.Video.Data) > 0 {
		files = append(files, named(*in.Video, name+"'s Video"))
	}

	return documents.Submission{
		FolderName: name + "'s Submission",
		Files:      files,
		SheetName:  name + "'s Data",
		Rows: []documents.Row{
			{Key: "Name", Value: in.FullName},
			{Key: "Email", Value: email},
			{Key: "Bio", Value: strings.TrimSpace(in.Bio)},
			{Key: "Availability", Value: in.Schedule.Format()},
			{Key: "Subjects", Value: strings.Join(in.Subjects, ", ")},
			{Key: "Hourly Rate", Value: fmt.Sprintf("%.2f", in.HourlyRate)},
			{Key: "Teaching Mode", Value: mode.Label()},
			{Key: "Languages", Value: strings.Join(in.Languages, ", ")},
		},
	}
}

// named renames an upload, keeping the extension of the original file name.
func named(f documents.File, name string) documents.File {
	f.Name = name + strings.ToLower(filepath.Ext(f.Name))
	return f
}

// AddTaxonomy inserts trimmed names of the given kind. Names already present
// (case-insensitively) in the store or earlier in the same request are
// skipped; the inserted entries are returned.
func (s *TutorService) AddTaxonomy(ctx context.Context, kind models.TaxonomyKind, names []string) ([]models.TaxonomyEntry, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: unknown taxonomy kind %q", common.ErrInvalidInput, kind)
	}
	names, err := cleanList(kind.Plural(), names)
	if err != nil {
		return nil, err
	}

	var inserted []models.TaxonomyEntry
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Taxonomy(tx, kind)

		existing, err := repo.List(ctx)
		if err != nil {
			return err
		}
		seen := make(map[string]bool, len(existing)+len(names))
		for _, e := range existing {
			seen[strings.ToLower(e.Name)] = true
		}

		var fresh []string
		for _, n := range names {
			key := strings.ToLower(n)
			if seen[key] {
				continue
			}
			seen[key] = true
			fresh = append(fresh, n)
		}
		if len(fresh) == 0 {
			return nil
		}

		inserted, err = repo.Insert(ctx, fresh)
		return err
	})
	if err != nil {
		return nil, err
	}
	return inserted, nil
}

func (s *TutorService) ListTaxonomy(ctx context.Context, kind models.TaxonomyKind) ([]models.TaxonomyEntry, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: unknown taxonomy kind %q", common.ErrInvalidInput, kind)
	}
	entries, err := s.repomanager.Taxonomy(s.db, kind).List(ctx)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("no %s available at the moment: %w", kind.Plural(), common.ErrorNotFound)
	}
	return entries, nil
}

// ListTestimonials returns all testimonials with the tutor's profile image.
// Any failure fails the whole call.
func (s *TutorService) ListTestimonials(ctx context.Context) ([]TestimonialView, error) {
	items, err := s.repomanager.Tutors(s.db).ListTestimonials(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: list testimonials: %w", common.ErrorInternal, err)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("no testimonials yet: %w", common.ErrorNotFound)
	}

	out := make([]TestimonialView, 0, len(items))
	for _, t := range items {
		v := TestimonialView{
			UserName:    t.UserName,
			FirstName:   t.FirstName,
			LastName:    t.LastName,
			Testimonial: t.Text,
		}
		if t.Image != nil {
			v.Image = newImageView(t.Image.ID, t.Image.ContentType, t.Image.Data)
		}
		out = append(out, v)
	}
	return out, nil
}

// SetTestimonial stores the testimonial of an approved tutor.
func (s *TutorService) SetTestimonial(ctx context.Context, accountID, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return fmt.Errorf("%w: testimonial must not be empty", common.ErrInvalidInput)
	}

	app, err := s.repomanager.Tutors(s.db).GetByAccountID(ctx, accountID)
	if err != nil {
		return err
	}
	if !app.IsApproved() {
		return fmt.Errorf("%w: only approved tutors can leave a testimonial", common.ErrForbidden)
	}
	return s.repomanager.Tutors(s.db).SetTestimonial(ctx, app.ID, text)
}

// SetApprovalStatus is the admin decision on an application. The Tutor role
// follows the status in the same transaction: granted on approval, revoked
// otherwise.
func (s *TutorService) SetApprovalStatus(ctx context.Context, applicationID string, status models.ApprovalStatus, reason string) error {
	reason = strings.TrimSpace(reason)
	if !status.Valid() {
		return fmt.Errorf("%w: unknown status %q", common.ErrInvalidInput, status)
	}
	if reason != "" && status != models.StatusRejected {
		return fmt.Errorf("%w: a reason is only recorded for rejected applications", common.ErrInvalidInput)
	}

	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		tutors := s.repomanager.Tutors(tx)
		app, err := tutors.GetByID(ctx, applicationID)
		if err != nil {
			return err
		}
		if err := tutors.SetApprovalStatus(ctx, app.ID, status, reason); err != nil {
			return err
		}
		accounts := s.repomanager.Accounts(tx)
		if status == models.StatusApproved {
			return accounts.AddRole(ctx, app.AccountID, common.RoleTutor)
		}
		return accounts.RemoveRole(ctx, app.AccountID, common.RoleTutor)
	})
}

func (s *TutorService) ListApplications(ctx context.Context, status models.ApprovalStatus) ([]models.TutorApplication, error) {
	if status != "" && !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", common.ErrInvalidInput, status)
	}
	return s.repomanager.Tutors(s.db).List(ctx, status)
}
