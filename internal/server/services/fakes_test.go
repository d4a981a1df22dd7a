package services

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/tutorhub/internal/common"
	"github.com/dmitrijs2005/tutorhub/internal/dbx"
	"github.com/dmitrijs2005/tutorhub/internal/server/config"
	mailer "github.com/dmitrijs2005/tutorhub/internal/server/mail"
	"github.com/dmitrijs2005/tutorhub/internal/server/models"
	"github.com/dmitrijs2005/tutorhub/internal/server/notify"
	"github.com/dmitrijs2005/tutorhub/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/tutorhub/internal/server/repositories/images"
	"github.com/dmitrijs2005/tutorhub/internal/server/repositories/projects"
	"github.com/dmitrijs2005/tutorhub/internal/server/repositories/taxonomy"
	"github.com/dmitrijs2005/tutorhub/internal/server/repositories/tutors"
)

// --- helpers ---

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.SecretKey = "k"
	return cfg
}

var fixedNow = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

// --- in-memory store shared by the fake repositories ---

type store struct {
	mu        sync.Mutex
	accounts  map[string]*models.Account
	logins    []models.LoginEntry
	images    map[string]*models.Image
	projects  map[string]*models.Project
	apps      map[string]*models.TutorApplication
	taxonomy  map[models.TaxonomyKind][]models.TaxonomyEntry
	seq       int
	failOn    map[string]error
	callOrder []string
}

func newStore() *store {
	return &store{
		accounts: map[string]*models.Account{},
		images:   map[string]*models.Image{},
		projects: map[string]*models.Project{},
		apps:     map[string]*models.TutorApplication{},
		taxonomy: map[models.TaxonomyKind][]models.TaxonomyEntry{},
		failOn:   map[string]error{},
	}
}

func (s *store) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s-%d", prefix, s.seq)
}

// hit records the call and returns the injected failure, if any.
func (s *store) hit(op string) error {
	s.callOrder = append(s.callOrder, op)
	return s.failOn[op]
}

type fakeRepoManager struct{ s *store }

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Accounts(dbx.DBTX) accounts.Repository        { return &fakeAccounts{m.s} }
func (m *fakeRepoManager) Tutors(dbx.DBTX) tutors.Repository            { return &fakeTutors{m.s} }
func (m *fakeRepoManager) Images(dbx.DBTX) images.Repository            { return &fakeImages{m.s} }
func (m *fakeRepoManager) Projects(dbx.DBTX) projects.Repository        { return &fakeProjects{m.s} }
func (m *fakeRepoManager) Taxonomy(_ dbx.DBTX, kind models.TaxonomyKind) taxonomy.Repository {
	return &fakeTaxonomy{m.s, kind}
}

// --- accounts ---

type fakeAccounts struct{ s *store }

func (f *fakeAccounts) Create(_ context.Context, a *models.Account) (*models.Account, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if err := f.s.hit("accounts.Create"); err != nil {
		return nil, err
	}
	for _, existing := range f.s.accounts {
		if strings.EqualFold(existing.Email, a.Email) {
			return nil, common.ErrConflict
		}
	}
	if a.ID == "" {
		a.ID = f.s.nextID("acc")
	}
	if len(a.Roles) == 0 {
		a.Roles = []string{common.RoleUser}
	}
	cp := *a
	f.s.accounts[a.ID] = &cp
	return a, nil
}

func (f *fakeAccounts) Delete(_ context.Context, id string) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if err := f.s.hit("accounts.Delete"); err != nil {
		return err
	}
	if _, ok := f.s.accounts[id]; !ok {
		return common.ErrorNotFound
	}
	delete(f.s.accounts, id)
	for k, img := range f.s.images {
		if img.AccountID == id {
			delete(f.s.images, k)
		}
	}
	return nil
}

func (f *fakeAccounts) find(match func(*models.Account) bool) (*models.Account, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, a := range f.s.accounts {
		if match(a) {
			cp := *a
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeAccounts) GetByID(_ context.Context, id string) (*models.Account, error) {
	return f.find(func(a *models.Account) bool { return a.ID == id })
}

func (f *fakeAccounts) GetByEmail(_ context.Context, email string) (*models.Account, error) {
	if err := f.s.failOn["accounts.GetByEmail"]; err != nil {
		return nil, err
	}
	return f.find(func(a *models.Account) bool { return strings.EqualFold(a.Email, email) })
}

func (f *fakeAccounts) GetByVerificationToken(_ context.Context, token string) (*models.Account, error) {
	return f.find(func(a *models.Account) bool { return token != "" && a.VerificationToken == token })
}

func (f *fakeAccounts) GetByResetToken(_ context.Context, token string) (*models.Account, error) {
	return f.find(func(a *models.Account) bool { return token != "" && a.ResetToken == token })
}

func (f *fakeAccounts) update(op, id string, fn func(*models.Account)) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if err := f.s.hit(op); err != nil {
		return err
	}
	a, ok := f.s.accounts[id]
	if !ok {
		return common.ErrorNotFound
	}
	fn(a)
	return nil
}

func (f *fakeAccounts) SetVerificationToken(_ context.Context, id, token string, exp time.Time) error {
	return f.update("accounts.SetVerificationToken", id, func(a *models.Account) {
		a.VerificationToken, a.VerificationExpiresAt = token, exp
	})
}

func (f *fakeAccounts) MarkEmailValidated(_ context.Context, id string) error {
	return f.update("accounts.MarkEmailValidated", id, func(a *models.Account) {
		a.EmailValidated, a.VerificationToken, a.VerificationExpiresAt = true, "", time.Time{}
	})
}

func (f *fakeAccounts) SetResetToken(_ context.Context, id, token string, exp time.Time) error {
	return f.update("accounts.SetResetToken", id, func(a *models.Account) {
		a.ResetToken, a.ResetExpiresAt = token, exp
	})
}

func (f *fakeAccounts) UpdatePassword(_ context.Context, id string, hash []byte) error {
	return f.update("accounts.UpdatePassword", id, func(a *models.Account) {
		a.PasswordHash, a.ResetToken, a.ResetExpiresAt = hash, "", time.Time{}
	})
}

func (f *fakeAccounts) AppendLogin(_ context.Context, e models.LoginEntry) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if err := f.s.hit("accounts.AppendLogin"); err != nil {
		return err
	}
	f.s.logins = append(f.s.logins, e)
	return nil
}

func (f *fakeAccounts) AddRole(_ context.Context, id, role string) error {
	return f.update("accounts.AddRole", id, func(a *models.Account) {
		if !a.HasRole(role) {
			a.Roles = append(a.Roles, role)
		}
	})
}

func (f *fakeAccounts) RemoveRole(_ context.Context, id, role string) error {
	return f.update("accounts.RemoveRole", id, func(a *models.Account) {
		kept := a.Roles[:0]
		for _, r := range a.Roles {
			if r != role {
				kept = append(kept, r)
			}
		}
		a.Roles = kept
	})
}

func (f *fakeAccounts) UpdateProfile(_ context.Context, in *models.Account) error {
	return f.update("accounts.UpdateProfile", in.ID, func(a *models.Account) {
		a.FirstName, a.LastName, a.UserName = in.FirstName, in.LastName, in.UserName
		a.PhoneNumber, a.DateOfBirth = in.PhoneNumber, in.DateOfBirth
		a.Country, a.StateProvince, a.City, a.TimeZone = in.Country, in.StateProvince, in.City, in.TimeZone
	})
}

func (f *fakeAccounts) UpdatePublicProfile(_ context.Context, in *models.Account) error {
	return f.update("accounts.UpdatePublicProfile", in.ID, func(a *models.Account) {
		a.Bio, a.Pronouns, a.PortfolioLink = in.Bio, in.Pronouns, in.PortfolioLink
		a.SocialLinkOne, a.SocialLinkTwo = in.SocialLinkOne, in.SocialLinkTwo
	})
}

func (f *fakeAccounts) SetProfileImage(_ context.Context, id, imageID string) error {
	return f.update("accounts.SetProfileImage", id, func(a *models.Account) { a.ProfileImageID = imageID })
}

func (f *fakeAccounts) SetProjects(_ context.Context, id, one, two string) error {
	return f.update("accounts.SetProjects", id, func(a *models.Account) { a.ProjectOneID, a.ProjectTwoID = one, two })
}

// --- images ---

type fakeImages struct{ s *store }

func (f *fakeImages) Create(_ context.Context, img *models.Image) (*models.Image, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if err := f.s.hit("images.Create"); err != nil {
		return nil, err
	}
	if img.ID == "" {
		img.ID = f.s.nextID("img")
	}
	cp := *img
	f.s.images[img.ID] = &cp
	return img, nil
}

func (f *fakeImages) GetByID(_ context.Context, id string) (*models.Image, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	img, ok := f.s.images[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *img
	return &cp, nil
}

func (f *fakeImages) Delete(_ context.Context, id, accountID string) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if err := f.s.hit("images.Delete"); err != nil {
		return err
	}
	if img, ok := f.s.images[id]; !ok || img.AccountID != accountID {
		return common.ErrorNotFound
	}
	delete(f.s.images, id)
	return nil
}

// --- projects ---

type fakeProjects struct{ s *store }

func (f *fakeProjects) Create(_ context.Context, p *models.Project) (*models.Project, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if err := f.s.hit("projects.Create"); err != nil {
		return nil, err
	}
	if p.ID == "" {
		p.ID = f.s.nextID("prj")
	}
	cp := *p
	f.s.projects[p.ID] = &cp
	return p, nil
}

func (f *fakeProjects) GetByID(_ context.Context, id string) (*models.Project, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if err := f.s.failOn["projects.GetByID"]; err != nil {
		return nil, err
	}
	p, ok := f.s.projects[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeProjects) Update(_ context.Context, p *models.Project) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if err := f.s.hit("projects.Update"); err != nil {
		return err
	}
	cur, ok := f.s.projects[p.ID]
	if !ok {
		return common.ErrorNotFound
	}
	cur.Name, cur.Description, cur.URL = p.Name, p.Description, p.URL
	return nil
}

func (f *fakeProjects) Delete(_ context.Context, id string) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if err := f.s.hit("projects.Delete"); err != nil {
		return err
	}
	if _, ok := f.s.projects[id]; !ok {
		return common.ErrorNotFound
	}
	delete(f.s.projects, id)
	return nil
}

// --- tutor applications ---

type fakeTutors struct{ s *store }

func (f *fakeTutors) Create(_ context.Context, app *models.TutorApplication) (*models.TutorApplication, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if err := f.s.hit("tutors.Create"); err != nil {
		return nil, err
	}
	for _, existing := range f.s.apps {
		if existing.AccountID == app.AccountID {
			return nil, common.ErrConflict
		}
	}
	if app.ID == "" {
		app.ID = f.s.nextID("app")
	}
	if app.ApprovalStatus == "" {
		app.ApprovalStatus = models.StatusPending
	}
	app.CreatedAt = fixedNow
	cp := *app
	f.s.apps[app.ID] = &cp
	return app, nil
}

func (f *fakeTutors) Delete(_ context.Context, id string) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if err := f.s.hit("tutors.Delete"); err != nil {
		return err
	}
	if _, ok := f.s.apps[id]; !ok {
		return common.ErrorNotFound
	}
	delete(f.s.apps, id)
	return nil
}

func (f *fakeTutors) GetByID(_ context.Context, id string) (*models.TutorApplication, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	app, ok := f.s.apps[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *app
	return &cp, nil
}

func (f *fakeTutors) GetByAccountID(_ context.Context, accountID string) (*models.TutorApplication, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if err := f.s.failOn["tutors.GetByAccountID"]; err != nil {
		return nil, err
	}
	for _, app := range f.s.apps {
		if app.AccountID == accountID {
			cp := *app
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeTutors) List(_ context.Context, status models.ApprovalStatus) ([]models.TutorApplication, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var out []models.TutorApplication
	for _, app := range f.s.apps {
		if status == "" || app.ApprovalStatus == status {
			out = append(out, *app)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeTutors) set(op, id string, fn func(*models.TutorApplication)) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if err := f.s.hit(op); err != nil {
		return err
	}
	app, ok := f.s.apps[id]
	if !ok {
		return common.ErrorNotFound
	}
	fn(app)
	return nil
}

func (f *fakeTutors) SetApprovalStatus(_ context.Context, id string, status models.ApprovalStatus, reason string) error {
	return f.set("tutors.SetApprovalStatus", id, func(a *models.TutorApplication) {
		a.ApprovalStatus, a.RejectedReason = status, reason
	})
}

func (f *fakeTutors) SetFolderKey(_ context.Context, id, key string) error {
	return f.set("tutors.SetFolderKey", id, func(a *models.TutorApplication) { a.FolderKey = key })
}

func (f *fakeTutors) SetTestimonial(_ context.Context, id, text string) error {
	return f.set("tutors.SetTestimonial", id, func(a *models.TutorApplication) { a.Testimonial = text })
}

func (f *fakeTutors) ListTestimonials(_ context.Context) ([]models.Testimonial, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if err := f.s.failOn["tutors.ListTestimonials"]; err != nil {
		return nil, err
	}
	var out []models.Testimonial
	for _, app := range f.s.apps {
		if app.Testimonial == "" || app.ApprovalStatus != models.StatusApproved {
			continue
		}
		acc := f.s.accounts[app.AccountID]
		t := models.Testimonial{
			AccountID: acc.ID, UserName: acc.UserName, FirstName: acc.FirstName, LastName: acc.LastName, Text: app.Testimonial,
		}
		if img, ok := f.s.images[acc.ProfileImageID]; ok {
			cp := *img
			t.Image = &cp
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AccountID < out[j].AccountID })
	return out, nil
}

// --- taxonomy ---

type fakeTaxonomy struct {
	s    *store
	kind models.TaxonomyKind
}

func (f *fakeTaxonomy) List(_ context.Context) ([]models.TaxonomyEntry, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if err := f.s.failOn["taxonomy.List"]; err != nil {
		return nil, err
	}
	return append([]models.TaxonomyEntry(nil), f.s.taxonomy[f.kind]...), nil
}

func (f *fakeTaxonomy) Insert(_ context.Context, names []string) ([]models.TaxonomyEntry, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if err := f.s.hit("taxonomy.Insert"); err != nil {
		return nil, err
	}
	var out []models.TaxonomyEntry
	for _, n := range names {
		e := models.TaxonomyEntry{ID: f.s.nextID(string(f.kind)), Name: n}
		f.s.taxonomy[f.kind] = append(f.s.taxonomy[f.kind], e)
		out = append(out, e)
	}
	return out, nil
}

// --- collaborators ---

type fakeMailer struct {
	mu   sync.Mutex
	sent []mailer.Message
	err  error
}

func (m *fakeMailer) Send(_ context.Context, msg mailer.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

func (m *fakeMailer) last() mailer.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return mailer.Message{}
	}
	return m.sent[len(m.sent)-1]
}

type fakeNotifier struct {
	got []notify.Application
	err error
}

func (n *fakeNotifier) ApplicationSubmitted(_ context.Context, app notify.Application) error {
	n.got = append(n.got, app)
	return n.err
}

// tokenFromLink extracts the trailing path segment of the link in an e-mail.
func tokenFromLink(t *testing.T, html, marker string) string {
	t.Helper()
	i := strings.Index(html, marker)
	if i < 0 {
		t.Fatalf("marker %q not found in %q", marker, html)
	}
	rest := html[i+len(marker):]
	end := strings.IndexByte(rest, '"')
	if end < 0 {
		t.Fatalf("unterminated link in %q", html)
	}
	return rest[:end]
}
