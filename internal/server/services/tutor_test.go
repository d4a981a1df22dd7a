package services

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/tutorhub/internal/common"
	"github.com/dmitrijs2005/tutorhub/internal/logging"
	"github.com/dmitrijs2005/tutorhub/internal/server/documents"
	"github.com/dmitrijs2005/tutorhub/internal/server/models"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDocs is an in-memory documents.Store.
type fakeDocs struct {
	folders map[string]map[string][]byte
	sheets  map[string][]documents.Row
	failOn  map[string]error
	calls   []string
}

func newFakeDocs() *fakeDocs {
	return &fakeDocs{
		folders: map[string]map[string][]byte{},
		sheets:  map[string][]documents.Row{},
		failOn:  map[string]error{},
	}
}

func (d *fakeDocs) CreateFolder(_ context.Context, name string) (documents.Folder, error) {
	d.calls = append(d.calls, "CreateFolder")
	if err := d.failOn["CreateFolder"]; err != nil {
		return documents.Folder{}, err
	}
	f := documents.Folder{Name: name, Key: "submissions/" + name + "/"}
	d.folders[f.Key] = map[string][]byte{}
	return f, nil
}

func (d *fakeDocs) Upload(_ context.Context, f documents.Folder, file documents.File) (string, error) {
	d.calls = append(d.calls, "Upload")
	if err := d.failOn["Upload"]; err != nil {
		return "", err
	}
	d.folders[f.Key][file.Name] = file.Data
	return f.Key + file.Name, nil
}

func (d *fakeDocs) WriteSheet(_ context.Context, f documents.Folder, name string, rows []documents.Row) (string, error) {
	d.calls = append(d.calls, "WriteSheet")
	if err := d.failOn["WriteSheet"]; err != nil {
		return "", err
	}
	d.sheets[f.Key+name] = rows
	return f.Key + name + ".csv", nil
}

func (d *fakeDocs) DeleteFolder(_ context.Context, f documents.Folder) error {
	d.calls = append(d.calls, "DeleteFolder")
	delete(d.folders, f.Key)
	for k := range d.sheets {
		if len(k) >= len(f.Key) && k[:len(f.Key)] == f.Key {
			delete(d.sheets, k)
		}
	}
	return nil
}

func (d *fakeDocs) PresignGet(_ context.Context, key string) (string, error) {
	return "https://objects.test/" + key, nil
}

type tutorFixture struct {
	svc      *TutorService
	store    *store
	docs     *fakeDocs
	mailer   *fakeMailer
	notifier *fakeNotifier
	mock     sqlmock.Sqlmock
}

func newTutorFixture(t *testing.T) *tutorFixture {
	t.Helper()
	db, mock := newSQLMockDB(t)

	orig := generateAvatar
	generateAvatar = func(initial string) ([]byte, error) { return []byte("png:" + initial), nil }
	t.Cleanup(func() { generateAvatar = orig })

	f := &tutorFixture{
		store:    newStore(),
		docs:     newFakeDocs(),
		mailer:   &fakeMailer{},
		notifier: &fakeNotifier{},
		mock:     mock,
	}
	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	f.svc = NewTutorService(db, &fakeRepoManager{f.store}, f.docs, f.mailer, f.notifier, logger, testConfig())
	f.svc.now = func() time.Time { return fixedNow }
	return f
}

// seedAccount stores a validated account and returns it.
func (f *tutorFixture) seedAccount(email string) *models.Account {
	a := &models.Account{
		ID:             f.store.nextID("acc"),
		UserName:       "Jane.D",
		Email:          email,
		EmailValidated: true,
		Roles:          []string{common.RoleUser},
		FirstName:      "Jane",
		LastName:       "Doe",
	}
	f.store.accounts[a.ID] = a
	return a
}

func (f *tutorFixture) seedApplication(accountID string, status models.ApprovalStatus, reason string) *models.TutorApplication {
	app := &models.TutorApplication{
		ID:             f.store.nextID("app"),
		AccountID:      accountID,
		ApprovalStatus: status,
		RejectedReason: reason,
	}
	f.store.apps[app.ID] = app
	return app
}

func validSubmitInput() SubmitInput {
	return SubmitInput{
		FullName:     "Jane Doe",
		Email:        "jane@example.com",
		Password:     "Secret123",
		Bio:          " Maths teacher ",
		Schedule:     models.Schedule{"Monday": {Start: "09:00", End: "12:00"}},
		Subjects:     []string{"Algebra", " Geometry "},
		Languages:    []string{"English"},
		HourlyRate:   25,
		TeachingMode: "In-Person",
		Verification: &documents.File{Name: "passport.PDF", ContentType: "application/pdf", Data: []byte("pdf")},
		Video:        &documents.File{Name: "intro.mp4", ContentType: "video/mp4", Data: []byte("mp4")},
	}
}

func TestCheckEligibility(t *testing.T) {
	f := newTutorFixture(t)
	ctx := context.Background()

	f.seedAccount("only@example.com")
	pending := f.seedAccount("pending@example.com")
	f.seedApplication(pending.ID, models.StatusPending, "")
	approved := f.seedAccount("approved@example.com")
	f.seedApplication(approved.ID, models.StatusApproved, "")
	rejected := f.seedAccount("rejected@example.com")
	f.seedApplication(rejected.ID, models.StatusRejected, "incomplete documents")

	tests := []struct {
		name    string
		email   string
		session bool
		want    EligibilityState
		blocked bool
	}{
		{"no account", "new@example.com", false, StateNoAccount, false},
		{"account without session", "only@example.com", false, StateAccountOnly, false},
		{"account with session", "only@example.com", true, StateAccountOnly, false},
		{"pending", "pending@example.com", true, StateApplicationPending, true},
		{"approved", "approved@example.com", true, StateApplicationApproved, true},
		{"rejected", "rejected@example.com", true, StateApplicationRejected, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := f.svc.CheckEligibility(ctx, tt.email, tt.session)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.State)
			assert.Equal(t, tt.blocked, got.Blocked())
			assert.NotEmpty(t, got.Message)
		})
	}

	got, err := f.svc.CheckEligibility(ctx, "only@example.com", false)
	require.NoError(t, err)
	assert.Contains(t, got.Message, "only@example.com already exists")

	got, err = f.svc.CheckEligibility(ctx, "rejected@example.com", false)
	require.NoError(t, err)
	assert.Equal(t, "incomplete documents", got.Reason)
	assert.Equal(t, "https://localhost:4200/appeal", got.AppealURL)

	_, err = f.svc.CheckEligibility(ctx, "not-an-email", false)
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestSubmitApplication_NewAccount(t *testing.T) {
	f := newTutorFixture(t)
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	app, err := f.svc.SubmitApplication(context.Background(), validSubmitInput())
	require.NoError(t, err)
	require.NoError(t, f.mock.ExpectationsWereMet())

	assert.Equal(t, models.StatusPending, app.ApprovalStatus)
	assert.Equal(t, []string{"Algebra", "Geometry"}, app.Subjects)
	assert.Equal(t, models.ModeInPerson, app.TeachingMode)
	assert.Equal(t, "submissions/JANE DOE's Submission/", app.FolderKey)
	assert.Equal(t, app.FolderKey, f.store.apps[app.ID].FolderKey)

	acc := f.store.accounts[app.AccountID]
	require.NotNil(t, acc)
	assert.Equal(t, "Maths teacher", acc.Bio)
	assert.False(t, acc.EmailValidated)
	assert.NotEmpty(t, acc.ProfileImageID)

	folder := f.docs.folders[app.FolderKey]
	assert.Equal(t, []byte("pdf"), folder["JANE DOE's Verification.pdf"])
	assert.Equal(t, []byte("mp4"), folder["JANE DOE's Video.mp4"])

	want := []documents.Row{
		{Key: "Name", Value: "Jane Doe"},
		{Key: "Email", Value: "jane@example.com"},
		{Key: "Bio", Value: "Maths teacher"},
		{Key: "Availability", Value: "Monday: 09:00–12:00"},
		{Key: "Subjects", Value: "Algebra, Geometry"},
		{Key: "Hourly Rate", Value: "25.00"},
		{Key: "Teaching Mode", Value: "In-Person"},
		{Key: "Languages", Value: "English"},
	}
	if diff := cmp.Diff(want, f.docs.sheets[app.FolderKey+"JANE DOE's Data"]); diff != "" {
		t.Errorf("sheet mismatch (-want +got):\n%s", diff)
	}

	require.Len(t, f.mailer.sent, 1)
	token := tokenFromLink(t, f.mailer.last().HTML, "/verify-email/")
	assert.Equal(t, acc.VerificationToken, token)

	require.Len(t, f.notifier.got, 1)
	assert.Equal(t, app.ID, f.notifier.got[0].ID)
	assert.Equal(t, "In-Person", f.notifier.got[0].TeachingMode)
	assert.Equal(t, "https://objects.test/"+app.FolderKey+"JANE DOE's Data.csv", f.notifier.got[0].SheetURL)
}

func TestSubmitApplication_ExistingAccount(t *testing.T) {
	f := newTutorFixture(t)
	acc := f.seedAccount("jane@example.com")

	in := validSubmitInput()
	in.Password = ""
	in.Video = nil
	app, err := f.svc.SubmitApplication(context.Background(), in)
	require.NoError(t, err)
	require.NoError(t, f.mock.ExpectationsWereMet())

	assert.Equal(t, acc.ID, app.AccountID)
	assert.Empty(t, f.mailer.sent)
	assert.Len(t, f.docs.folders[app.FolderKey], 1)
}

func TestSubmitApplication_AlreadyApplied(t *testing.T) {
	f := newTutorFixture(t)
	acc := f.seedAccount("jane@example.com")
	f.seedApplication(acc.ID, models.StatusRejected, "no")

	_, err := f.svc.SubmitApplication(context.Background(), validSubmitInput())
	assert.ErrorIs(t, err, common.ErrForbidden)
	assert.Empty(t, f.docs.calls)
}

func TestSubmitApplication_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*SubmitInput)
	}{
		{"no verification document", func(in *SubmitInput) { in.Verification = nil }},
		{"empty verification document", func(in *SubmitInput) { in.Verification.Data = nil }},
		{"bad email", func(in *SubmitInput) { in.Email = "jane" }},
		{"no name", func(in *SubmitInput) { in.FullName = " " }},
		{"no subjects", func(in *SubmitInput) { in.Subjects = nil }},
		{"blank language", func(in *SubmitInput) { in.Languages = []string{"English", " "} }},
		{"zero rate", func(in *SubmitInput) { in.HourlyRate = 0 }},
		{"unknown mode", func(in *SubmitInput) { in.TeachingMode = "telepathy" }},
		{"new account without password", func(in *SubmitInput) { in.Password = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newTutorFixture(t)
			in := validSubmitInput()
			tt.mutate(&in)

			_, err := f.svc.SubmitApplication(context.Background(), in)
			assert.ErrorIs(t, err, common.ErrInvalidInput)
			assert.Empty(t, f.store.accounts)
			assert.Empty(t, f.docs.calls)
		})
	}
}

func TestSubmitApplication_CompensatesOnFailure(t *testing.T) {
	tests := []struct {
		name      string
		setup     func(*tutorFixture)
		wantErr   error
		folderDel bool
	}{
		{
			name:    "documents",
			setup:   func(f *tutorFixture) { f.docs.failOn["Upload"] = errors.New("quota") },
			wantErr: common.ErrUpstream,
			// documents.Submit removes its own folder
			folderDel: true,
		},
		{
			name:      "folder key",
			setup:     func(f *tutorFixture) { f.store.failOn["tutors.SetFolderKey"] = errors.New("db down") },
			wantErr:   common.ErrUpstream,
			folderDel: true,
		},
		{
			name:      "verification email",
			setup:     func(f *tutorFixture) { f.mailer.err = errors.New("smtp down") },
			wantErr:   common.ErrUpstream,
			folderDel: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newTutorFixture(t)
			tt.setup(f)
			f.mock.ExpectBegin()
			f.mock.ExpectCommit()

			_, err := f.svc.SubmitApplication(context.Background(), validSubmitInput())
			assert.ErrorIs(t, err, tt.wantErr)

			assert.Empty(t, f.store.accounts)
			assert.Empty(t, f.store.apps)
			assert.Empty(t, f.store.images)
			assert.Empty(t, f.docs.folders)
			assert.Equal(t, tt.folderDel, contains(f.docs.calls, "DeleteFolder"))
			assert.Empty(t, f.notifier.got)

			// the application goes before the account that owns it
			iApp, iAcc := indexOf(f.store.callOrder, "tutors.Delete"), indexOf(f.store.callOrder, "accounts.Delete")
			assert.True(t, iApp >= 0 && iAcc > iApp, "undo order: %v", f.store.callOrder)
		})
	}
}

func TestSubmitApplication_RollsBackWhenApplicationInsertFails(t *testing.T) {
	f := newTutorFixture(t)
	f.store.failOn["tutors.Create"] = errors.New("db down")
	f.mock.ExpectBegin()
	f.mock.ExpectRollback()

	_, err := f.svc.SubmitApplication(context.Background(), validSubmitInput())
	require.Error(t, err)
	require.NoError(t, f.mock.ExpectationsWereMet())
	assert.Empty(t, f.docs.calls)
	assert.Empty(t, f.mailer.sent)
}

func TestSubmitApplication_NotifierFailureIsIgnored(t *testing.T) {
	f := newTutorFixture(t)
	f.notifier.err = errors.New("telegram down")
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	app, err := f.svc.SubmitApplication(context.Background(), validSubmitInput())
	require.NoError(t, err)
	assert.Contains(t, f.store.apps, app.ID)
}

func TestAddTaxonomy_DeduplicatesCaseInsensitively(t *testing.T) {
	f := newTutorFixture(t)
	f.store.taxonomy[models.KindSubject] = []models.TaxonomyEntry{{ID: "s-1", Name: "Algebra"}}
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	got, err := f.svc.AddTaxonomy(context.Background(), models.KindSubject,
		[]string{" algebra ", "Physics", "physics", "Chemistry"})
	require.NoError(t, err)
	require.NoError(t, f.mock.ExpectationsWereMet())

	var names []string
	for _, e := range got {
		names = append(names, e.Name)
	}
	assert.Equal(t, []string{"Physics", "Chemistry"}, names)
	assert.Len(t, f.store.taxonomy[models.KindSubject], 3)
}

func TestAddTaxonomy_AllDuplicates(t *testing.T) {
	f := newTutorFixture(t)
	f.store.taxonomy[models.KindLanguage] = []models.TaxonomyEntry{{ID: "l-1", Name: "English"}}
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	got, err := f.svc.AddTaxonomy(context.Background(), models.KindLanguage, []string{"ENGLISH"})
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NotContains(t, f.store.callOrder, "taxonomy.Insert")
}

func TestAddTaxonomy_InvalidInput(t *testing.T) {
	f := newTutorFixture(t)
	ctx := context.Background()

	_, err := f.svc.AddTaxonomy(ctx, models.KindSubject, nil)
	assert.ErrorIs(t, err, common.ErrInvalidInput)
	_, err = f.svc.AddTaxonomy(ctx, models.KindSubject, []string{"Maths", "  "})
	assert.ErrorIs(t, err, common.ErrInvalidInput)
	_, err = f.svc.AddTaxonomy(ctx, models.TaxonomyKind("colour"), []string{"Red"})
	assert.ErrorIs(t, err, common.ErrInvalidInput)
	require.NoError(t, f.mock.ExpectationsWereMet())
}

func TestListTaxonomy(t *testing.T) {
	f := newTutorFixture(t)
	ctx := context.Background()

	_, err := f.svc.ListTaxonomy(ctx, models.KindLanguage)
	assert.ErrorIs(t, err, common.ErrorNotFound)

	f.store.taxonomy[models.KindLanguage] = []models.TaxonomyEntry{{ID: "l-1", Name: "English"}}
	got, err := f.svc.ListTaxonomy(ctx, models.KindLanguage)
	require.NoError(t, err)
	assert.Equal(t, []models.TaxonomyEntry{{ID: "l-1", Name: "English"}}, got)
}

func TestListTestimonials(t *testing.T) {
	f := newTutorFixture(t)
	ctx := context.Background()

	_, err := f.svc.ListTestimonials(ctx)
	assert.ErrorIs(t, err, common.ErrorNotFound)

	acc := f.seedAccount("jane@example.com")
	acc.ProfileImageID = "img-1"
	f.store.images["img-1"] = &models.Image{ID: "img-1", AccountID: acc.ID, ContentType: "image/png", Data: []byte("png")}
	app := f.seedApplication(acc.ID, models.StatusApproved, "")
	app.Testimonial = "Great students"
	rejected := f.seedApplication(f.seedAccount("john@example.com").ID, models.StatusRejected, "")
	rejected.Testimonial = "Friendly community"

	got, err := f.svc.ListTestimonials(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Great students", got[0].Testimonial)
	assert.Equal(t, "Jane.D", got[0].UserName)
	require.NotNil(t, got[0].Image)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("png")), got[0].Image.Data)

	f.store.failOn["tutors.ListTestimonials"] = errors.New("db down")
	_, err = f.svc.ListTestimonials(ctx)
	assert.ErrorIs(t, err, common.ErrorInternal)
}

func TestSetTestimonial(t *testing.T) {
	f := newTutorFixture(t)
	ctx := context.Background()
	acc := f.seedAccount("jane@example.com")

	assert.ErrorIs(t, f.svc.SetTestimonial(ctx, acc.ID, "hi"), common.ErrorNotFound)

	app := f.seedApplication(acc.ID, models.StatusPending, "")
	assert.ErrorIs(t, f.svc.SetTestimonial(ctx, acc.ID, "hi"), common.ErrForbidden)
	assert.ErrorIs(t, f.svc.SetTestimonial(ctx, acc.ID, " "), common.ErrInvalidInput)

	app.ApprovalStatus = models.StatusApproved
	require.NoError(t, f.svc.SetTestimonial(ctx, acc.ID, " Love it "))
	assert.Equal(t, "Love it", f.store.apps[app.ID].Testimonial)
}

func TestSetApprovalStatus(t *testing.T) {
	f := newTutorFixture(t)
	ctx := context.Background()
	acc := f.seedAccount("jane@example.com")
	app := f.seedApplication(acc.ID, models.StatusPending, "")

	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
	require.NoError(t, f.svc.SetApprovalStatus(ctx, app.ID, models.StatusApproved, ""))
	assert.Equal(t, models.StatusApproved, f.store.apps[app.ID].ApprovalStatus)
	assert.True(t, f.store.accounts[acc.ID].HasRole(common.RoleTutor))

	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
	require.NoError(t, f.svc.SetApprovalStatus(ctx, app.ID, models.StatusRejected, "missing documents"))
	assert.Equal(t, "missing documents", f.store.apps[app.ID].RejectedReason)
	assert.False(t, f.store.accounts[acc.ID].HasRole(common.RoleTutor))
	assert.True(t, f.store.accounts[acc.ID].HasRole(common.RoleUser))

	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
	require.NoError(t, f.svc.SetApprovalStatus(ctx, app.ID, models.StatusApproved, ""))
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
	require.NoError(t, f.svc.SetApprovalStatus(ctx, app.ID, models.StatusPending, ""))
	assert.Equal(t, models.StatusPending, f.store.apps[app.ID].ApprovalStatus)
	assert.False(t, f.store.accounts[acc.ID].HasRole(common.RoleTutor))

	f.mock.ExpectBegin()
	f.mock.ExpectRollback()
	assert.ErrorIs(t, f.svc.SetApprovalStatus(ctx, "app-404", models.StatusApproved, ""), common.ErrorNotFound)
	require.NoError(t, f.mock.ExpectationsWereMet())

	assert.ErrorIs(t, f.svc.SetApprovalStatus(ctx, app.ID, "maybe", ""), common.ErrInvalidInput)
	assert.ErrorIs(t, f.svc.SetApprovalStatus(ctx, app.ID, models.StatusApproved, "why"), common.ErrInvalidInput)
}

func TestSetApprovalStatus_RoleRevokeFailureRollsBack(t *testing.T) {
	f := newTutorFixture(t)
	acc := f.seedAccount("jane@example.com")
	acc.Roles = append(acc.Roles, common.RoleTutor)
	app := f.seedApplication(acc.ID, models.StatusApproved, "")
	f.store.failOn["accounts.RemoveRole"] = errors.New("conn reset")

	f.mock.ExpectBegin()
	f.mock.ExpectRollback()
	err := f.svc.SetApprovalStatus(context.Background(), app.ID, models.StatusRejected, "")
	require.ErrorContains(t, err, "conn reset")
	require.NoError(t, f.mock.ExpectationsWereMet())
	assert.Contains(t, f.store.callOrder, "accounts.RemoveRole")
}

func TestListApplications(t *testing.T) {
	f := newTutorFixture(t)
	ctx := context.Background()
	a := f.seedAccount("a@example.com")
	b := f.seedAccount("b@example.com")
	f.seedApplication(a.ID, models.StatusPending, "")
	f.seedApplication(b.ID, models.StatusApproved, "")

	all, err := f.svc.ListApplications(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	pending, err := f.svc.ListApplications(ctx, models.StatusPending)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, a.ID, pending[0].AccountID)

	_, err = f.svc.ListApplications(ctx, "unknown")
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

func contains(list []string, s string) bool {
	return indexOf(list, s) >= 0
}

func indexOf(list []string, s string) int {
	for i, v := range list {
		if v == s {
			return i
		}
	}
	return -1
}
