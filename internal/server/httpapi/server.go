// Package httpapi exposes the TutorHub services over HTTP+JSON.
package httpapi

import (
	"context"
	"time"

	"github.com/dmitrijs2005/tutorhub/internal/logging"
	"github.com/dmitrijs2005/tutorhub/internal/server/auth"
	"github.com/dmitrijs2005/tutorhub/internal/server/models"
	"github.com/dmitrijs2005/tutorhub/internal/server/services"
	"github.com/gofiber/fiber/v3"
	recoverer "github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/gofiber/fiber/v3/middleware/requestid"
)

// Accounts is the account lifecycle used by the handlers.
type Accounts interface {
	Register(ctx context.Context, fullName, email, password string) (*models.Account, error)
	Authenticate(ctx context.Context, email, password, userAgent string) (string, *models.Account, error)
	RequestPasswordReset(ctx context.Context, email string) error
	CompletePasswordReset(ctx context.Context, token, newPassword string) error
	VerifyEmail(ctx context.Context, token string) error
	ResendVerification(ctx context.Context, email string) error
	CurrentAccount(ctx context.Context, accountID string) (*models.Account, error)
}

type Tutors interface {
	CheckEligibility(ctx context.Context, email string, sessionActive bool) (services.Eligibility, error)
	SubmitApplication(ctx context.Context, in services.SubmitInput) (*models.TutorApplication, error)
	AddTaxonomy(ctx context.Context, kind models.TaxonomyKind, names []string) ([]models.TaxonomyEntry, error)
	ListTaxonomy(ctx context.Context, kind models.TaxonomyKind) ([]models.TaxonomyEntry, error)
	ListTestimonials(ctx context.Context) ([]services.TestimonialView, error)
	SetTestimonial(ctx context.Context, accountID, text string) error
}

type Profiles interface {
	GetProfile(ctx context.Context, accountID string) (services.ProfileView, error)
	UpdateProfile(ctx context.Context, accountID string, in services.ProfileUpdate) (services.ProfileView, error)
	GetPublicProfile(ctx context.Context, accountID string) (services.PublicProfileView, error)
	UpdatePublicProfile(ctx context.Context, accountID string, in services.PublicProfileUpdate) error
	RemoveProject(ctx context.Context, accountID, slot string) error
	GetProfileImage(ctx context.Context, accountID string) (*services.ImageView, error)
	UploadProfileImage(ctx context.Context, accountID string, up services.ImageUpload) error
	RemoveProfileImage(ctx context.Context, accountID string) (bool, error)
}

type Options struct {
	Address        string
	SecretKey      string
	TokenValidity  time.Duration
	MaxUploadBytes int
	SecureCookies  bool
	CertFile       string
	KeyFile        string
}

type Server struct {
	opts      Options
	app       *fiber.App
	logger    logging.Logger
	accounts  Accounts
	tutors    Tutors
	profiles  Profiles
	jwtSecret []byte
}

func NewServer(opts Options, l logging.Logger, as Accounts, ts Tutors, ps Profiles) *Server {
	s := &Server{
		opts:      opts,
		logger:    l.With("module", "http_server"),
		accounts:  as,
		tutors:    ts,
		profiles:  ps,
		jwtSecret: []byte(opts.SecretKey),
	}

	s.app = fiber.New(fiber.Config{
		AppName:      "tutorhub",
		BodyLimit:    opts.MaxUploadBytes,
		ErrorHandler: s.handleError,
	})
	s.app.Use(requestid.New(), s.requestLogger, recoverer.New())
	s.routes()
	return s
}

// Run serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		if err := s.app.ShutdownWithContext(shutdownCtx); err != nil {
			s.logger.Error(ctx, "HTTP shutdown", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.opts.Address)
	return s.app.Listen(s.opts.Address, fiber.ListenConfig{
		DisableStartupMessage: true,
		CertFile:              s.opts.CertFile,
		CertKeyFile:           s.opts.KeyFile,
	})
}

func (s *Server) issueCookie(c fiber.Ctx, token string) {
	c.Cookie(&fiber.Cookie{
		Name:     authCookie,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(s.opts.TokenValidity),
		HTTPOnly: true,
		Secure:   s.opts.SecureCookies,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

func (s *Server) identity(c fiber.Ctx) *auth.Identity {
	return fiber.Locals[*auth.Identity](c, identityKey)
}
