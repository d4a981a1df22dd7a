package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/tutorhub/internal/common"
	"github.com/dmitrijs2005/tutorhub/internal/dbx"
	"github.com/dmitrijs2005/tutorhub/internal/server/avatar"
	"github.com/dmitrijs2005/tutorhub/internal/server/models"
	"github.com/dmitrijs2005/tutorhub/internal/server/repositories/repomanager"
	"golang.org/x/sync/errgroup"
)

// ImageUpload is an uploaded picture.
type ImageUpload struct {
	ContentType string
	Data        []byte
}

func (u *ImageUpload) validate() error {
	if len(u.Data) == 0 {
		return fmt.Errorf("%w: image is empty", common.ErrInvalidInput)
	}
	if !strings.HasPrefix(strings.ToLower(u.ContentType), "image/") {
		return fmt.Errorf("%w: unsupported content type %q", common.ErrInvalidInput, u.ContentType)
	}
	return nil
}

// ProfileUpdate carries the private profile fields. DateOfBirth is
// YYYY-MM-DD or empty.
type ProfileUpdate struct {
	FirstName     string
	LastName      string
	PhoneNumber   string
	DateOfBirth   string
	Country       string
	StateProvince string
	City          string
	TimeZone      string
}

// ProjectInput describes one project slot of a public profile update.
type ProjectInput struct {
	Name        string
	Description string
	URL         string
	Image       *ImageUpload
}

func (p ProjectInput) empty() bool {
	return p.Name == "" && p.Description == "" && p.URL == "" && p.Image == nil
}

type PublicProfileUpdate struct {
	Bio           string
	Pronouns      string
	PortfolioLink string
	SocialLink1   string
	SocialLink2   string
	ProjectOne    ProjectInput
	ProjectTwo    ProjectInput
}

type ProfileService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

func NewProfileService(db *sql.DB, m repomanager.RepositoryManager) *ProfileService {
	return &ProfileService{db: db, repomanager: m}
}

func (s *ProfileService) GetProfile(ctx context.Context, accountID string) (ProfileView, error) {
	account, err := s.repomanager.Accounts(s.db).GetByID(ctx, accountID)
	if err != nil {
		return ProfileView{}, err
	}
	return NewProfileView(account), nil
}

// UpdateProfile overwrites the private profile fields. The user name follows
// the first and last name.
func (s *ProfileService) UpdateProfile(ctx context.Context, accountID string, in ProfileUpdate) (ProfileView, error) {
	first, last := strings.TrimSpace(in.FirstName), strings.TrimSpace(in.LastName)
	if first == "" {
		return ProfileView{}, fmt.Errorf("%w: first name is required", common.ErrInvalidInput)
	}

	var dob *time.Time
	if in.DateOfBirth != "" {
		t, err := time.Parse(dateLayout, in.DateOfBirth)
		if err != nil {
			return ProfileView{}, fmt.Errorf("%w: date of birth must be YYYY-MM-DD", common.ErrInvalidInput)
		}
		dob = &t
	}

	repo := s.repomanager.Accounts(s.db)
	account, err := repo.GetByID(ctx, accountID)
	if err != nil {
		return ProfileView{}, err
	}

	account.FirstName, account.LastName = first, last
	account.UserName = models.MakeUserName(first, last)
	account.PhoneNumber = strings.TrimSpace(in.PhoneNumber)
	account.DateOfBirth = dob
	account.Country = strings.TrimSpace(in.Country)
	account.StateProvince = strings.TrimSpace(in.StateProvince)
	account.City = strings.TrimSpace(in.City)
	account.TimeZone = strings.TrimSpace(in.TimeZone)

	if err := repo.UpdateProfile(ctx, account); err != nil {
		return ProfileView{}, err
	}
	return NewProfileView(account), nil
}

// GetPublicProfile assembles the public profile with both project slots.
// A slot referring to a project that no longer exists is reported empty.
func (s *ProfileService) GetPublicProfile(ctx context.Context, accountID string) (PublicProfileView, error) {
	account, err := s.repomanager.Accounts(s.db).GetByID(ctx, accountID)
	if err != nil {
		return PublicProfileView{}, err
	}

	var one, two *models.Project
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		one, err = s.project(gctx, account.ProjectOneID)
		return err
	})
	g.Go(func() error {
		var err error
		two, err = s.project(gctx, account.ProjectTwoID)
		return err
	})
	if err := g.Wait(); err != nil {
		return PublicProfileView{}, fmt.Errorf("load projects: %w", err)
	}

	return PublicProfileView{
		Bio:           account.Bio,
		Pronouns:      account.Pronouns,
		PortfolioLink: account.PortfolioLink,
		SocialLink1:   account.SocialLinkOne,
		SocialLink2:   account.SocialLinkTwo,
		ProjectOne:    newProjectView(one),
		ProjectTwo:    newProjectView(two),
	}, nil
}

func (s *ProfileService) project(ctx context.Context, id string) (*models.Project, error) {
	if id == "" {
		return nil, nil
	}
	p, err := s.repomanager.Projects(s.db).GetByID(ctx, id)
	if errors.Is(err, common.ErrorNotFound) {
		return nil, nil
	}
	return p, err
}

// UpdatePublicProfile writes the scalar fields and both project slots in one
// transaction. A slot with a new image gets a fresh project replacing the old
// one; otherwise the existing project is edited in place, or created when the
// slot is empty and any field is given.
func (s *ProfileService) UpdatePublicProfile(ctx context.Context, accountID string, in PublicProfileUpdate) error {
	for _, p := range []ProjectInput{in.ProjectOne, in.ProjectTwo} {
		if p.Image != nil {
			if err := p.Image.validate(); err != nil {
				return err
			}
		}
	}

	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		accounts := s.repomanager.Accounts(tx)
		account, err := accounts.GetByID(ctx, accountID)
		if err != nil {
			return err
		}

		one, err := s.applyProject(ctx, tx, accountID, account.ProjectOneID, in.ProjectOne)
		if err != nil {
			return fmt.Errorf("project one: %w", err)
		}
		two, err := s.applyProject(ctx, tx, accountID, account.ProjectTwoID, in.ProjectTwo)
		if err != nil {
			return fmt.Errorf("project two: %w", err)
		}

		account.Bio = strings.TrimSpace(in.Bio)
		account.Pronouns = strings.TrimSpace(in.Pronouns)
		account.PortfolioLink = strings.TrimSpace(in.PortfolioLink)
		account.SocialLinkOne = strings.TrimSpace(in.SocialLink1)
		account.SocialLinkTwo = strings.TrimSpace(in.SocialLink2)
		if err := accounts.UpdatePublicProfile(ctx, account); err != nil {
			return err
		}

		if one != account.ProjectOneID || two != account.ProjectTwoID {
			return accounts.SetProjects(ctx, accountID, one, two)
		}
		return nil
	})
}

// applyProject updates one slot and returns the id the slot should hold.
func (s *ProfileService) applyProject(ctx context.Context, tx dbx.DBTX, accountID, currentID string, in ProjectInput) (string, error) {
	repo := s.repomanager.Projects(tx)
	p := &models.Project{
		AccountID:   accountID,
		Name:        strings.TrimSpace(in.Name),
		Description: strings.TrimSpace(in.Description),
		URL:         strings.TrimSpace(in.URL),
	}

	create := func() (string, error) {
		created, err := repo.Create(ctx, p)
		if err != nil {
			return "", err
		}
		return created.ID, nil
	}

	switch {
	case in.Image != nil:
		if currentID != "" {
			if err := repo.Delete(ctx, currentID); err != nil && !errors.Is(err, common.ErrorNotFound) {
				return "", err
			}
		}
		p.ImageContentType, p.ImageData = in.Image.ContentType, in.Image.Data
		return create()

	case currentID != "":
		p.ID = currentID
		err := repo.Update(ctx, p)
		if !errors.Is(err, common.ErrorNotFound) {
			return currentID, err
		}
		// dangling reference
		p.ID = ""
		if in.empty() {
			return "", nil
		}
		return create()

	case !in.empty():
		return create()
	}
	return "", nil
}

// RemoveProject deletes the project in slot "1" or "2". Removing the first
// project moves the second one into its place.
func (s *ProfileService) RemoveProject(ctx context.Context, accountID, slot string) error {
	if slot != "1" && slot != "2" {
		return fmt.Errorf("%w: project slot must be 1 or 2", common.ErrInvalidInput)
	}

	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		accounts := s.repomanager.Accounts(tx)
		account, err := accounts.GetByID(ctx, accountID)
		if err != nil {
			return err
		}

		one, two := account.ProjectOneID, account.ProjectTwoID
		target := one
		if slot == "2" {
			target = two
		}
		if target == "" {
			return fmt.Errorf("project not found: %w", common.ErrorNotFound)
		}

		if err := s.repomanager.Projects(tx).Delete(ctx, target); err != nil && !errors.Is(err, common.ErrorNotFound) {
			return err
		}

		if slot == "1" {
			one, two = two, ""
		} else {
			two = ""
		}
		return accounts.SetProjects(ctx, accountID, one, two)
	})
}

// GetProfileImage returns the account's current profile image. Images owned
// by another account are never returned.
func (s *ProfileService) GetProfileImage(ctx context.Context, accountID string) (*ImageView, error) {
	account, err := s.repomanager.Accounts(s.db).GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if account.ProfileImageID == "" {
		return nil, fmt.Errorf("no profile image: %w", common.ErrorNotFound)
	}

	img, err := s.repomanager.Images(s.db).GetByID(ctx, account.ProfileImageID)
	if err != nil {
		return nil, err
	}
	if img.AccountID != account.ID {
		return nil, common.ErrForbidden
	}
	return newImageView(img.ID, img.ContentType, img.Data), nil
}

// UploadProfileImage replaces the current profile image with an uploaded one.
func (s *ProfileService) UploadProfileImage(ctx context.Context, accountID string, up ImageUpload) error {
	if err := up.validate(); err != nil {
		return err
	}

	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		account, err := s.repomanager.Accounts(tx).GetByID(ctx, accountID)
		if err != nil {
			return err
		}
		return s.replaceImage(ctx, tx, account, &models.Image{
			AccountID:   account.ID,
			Description: "uploaded profile image for " + account.FullName(),
			ContentType: up.ContentType,
			Data:        up.Data,
		})
	})
}

// RemoveProfileImage deletes an uploaded profile image and puts a generated
// avatar in its place. It reports false when there was nothing to remove.
func (s *ProfileService) RemoveProfileImage(ctx context.Context, accountID string) (bool, error) {
	removed := false
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		account, err := s.repomanager.Accounts(tx).GetByID(ctx, accountID)
		if err != nil {
			return err
		}
		if account.ProfileImageID == "" {
			return nil
		}

		img, err := s.repomanager.Images(tx).GetByID(ctx, account.ProfileImageID)
		if err != nil {
			return err
		}
		if img.AccountID != account.ID {
			return common.ErrForbidden
		}
		if img.IsDefault {
			return fmt.Errorf("%w: Cannot delete the default profile image", common.ErrForbidden)
		}

		png, err := generateAvatar(account.FirstName)
		if err != nil {
			return fmt.Errorf("generate avatar: %w", err)
		}
		removed = true
		return s.replaceImage(ctx, tx, account, &models.Image{
			AccountID:   account.ID,
			Description: "generated profile image for " + account.FullName(),
			ContentType: avatar.ContentType,
			Data:        png,
			IsDefault:   true,
		})
	})
	if err != nil {
		return false, err
	}
	return removed, nil
}

// replaceImage deletes the account's current image when the account owns
// it, stores img and points the account at it.
func (s *ProfileService) replaceImage(ctx context.Context, tx dbx.DBTX, account *models.Account, img *models.Image) error {
	images := s.repomanager.Images(tx)
	if account.ProfileImageID != "" {
		if err := images.Delete(ctx, account.ProfileImageID, account.ID); err != nil && !errors.Is(err, common.ErrorNotFound) {
			return err
		}
	}
	created, err := images.Create(ctx, img)
	if err != nil {
		return err
	}
	account.ProfileImageID = created.ID
	return s.repomanager.Accounts(tx).SetProfileImage(ctx, account.ID, created.ID)
}
