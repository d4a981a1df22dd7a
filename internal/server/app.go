// Package server wires the TutorHub backend together: configuration,
// logging, the PostgreSQL pool and migrations, outbound integrations
// (mail, object storage, Telegram) and the HTTP and health listeners.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dmitrijs2005/tutorhub/internal/logging"
	"github.com/dmitrijs2005/tutorhub/internal/server/config"
	"github.com/dmitrijs2005/tutorhub/internal/server/documents"
	"github.com/dmitrijs2005/tutorhub/internal/server/httpapi"
	mailer "github.com/dmitrijs2005/tutorhub/internal/server/mail"
	"github.com/dmitrijs2005/tutorhub/internal/server/notify"
	"github.com/dmitrijs2005/tutorhub/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/tutorhub/internal/server/services"
	"github.com/dmitrijs2005/tutorhub/internal/server/shared/db"

	gs "github.com/dmitrijs2005/tutorhub/internal/server/grpc"
)

const healthCheckInterval = 15 * time.Second

// runner is anything App runs until the context is cancelled.
type runner interface {
	Run(ctx context.Context) error
}

type App struct {
	config  *config.Config
	logger  logging.Logger
	db      *sql.DB
	runners []runner
}

// openDB is a seam for tests.
var openDB = db.Open

// newStore is a seam for tests.
var newStore = func(ctx context.Context, c *config.Config) (documents.Store, error) {
	return documents.NewS3Store(ctx, documents.S3Config{
		User:         c.S3RootUser,
		Password:     c.S3RootPassword,
		Bucket:       c.S3Bucket,
		Region:       c.S3Region,
		BaseEndpoint: c.S3BaseEndpoint,
		Prefix:       c.S3SubmissionsPrefix,
	})
}

// NewApp builds every dependency from c, runs pending migrations and
// prepares the HTTP API and health listeners.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger, err := logging.New(c.Environment, c.LogFormat, os.Stdout)
	if err != nil {
		return nil, fmt.Errorf("logger init error: %w", err)
	}

	conn, err := openDB(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, conn); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	store, err := newStore(ctx, c)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("storage init error: %w", err)
	}

	notifier, err := newNotifier(c)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	ml := mailer.NewSMTPMailer(mailer.SMTPConfig{
		Host:     c.SMTPHost,
		Port:     c.SMTPPort,
		User:     c.SMTPUser,
		Password: c.SMTPPassword,
		From:     c.MailFrom,
	})

	as := services.NewAccountService(conn, rm, ml, c)
	ts := services.NewTutorService(conn, rm, store, ml, notifier, logger, c)
	ps := services.NewProfileService(conn, rm)

	api := httpapi.NewServer(httpapi.Options{
		Address:        c.EndpointAddrHTTP,
		SecretKey:      c.SecretKey,
		TokenValidity:  c.AccessTokenValidityDuration,
		MaxUploadBytes: c.MaxUploadBytes,
		SecureCookies:  c.Environment == logging.EnvProduction,
		CertFile:       c.TLSCertFile,
		KeyFile:        c.TLSKeyFile,
	}, logger, as, ts, ps)

	health := gs.NewHealthServer(c.EndpointAddrHealth, logger, conn, healthCheckInterval)

	return &App{config: c, logger: logger, db: conn, runners: []runner{api, health}}, nil
}

func newNotifier(c *config.Config) (notify.Notifier, error) {
	if c.TelegramBotToken == "" {
		return notify.Nop{}, nil
	}
	t, err := notify.NewTelegram(c.TelegramBotToken, c.TelegramChatID)
	if err != nil {
		return nil, fmt.Errorf("telegram init error: %w", err)
	}
	return t, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run starts every listener and blocks until a signal arrives or one of
// them fails. The first failure stops the rest.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...",
		"http", app.config.EndpointAddrHTTP,
		"health", app.config.EndpointAddrHealth,
		"tls", app.config.TLSEnabled())

	app.initSignalHandler(cancelFunc)

	g, gctx := errgroup.WithContext(ctx)
	for _, r := range app.runners {
		g.Go(func() error {
			return r.Run(gctx)
		})
	}

	err := g.Wait()
	if err != nil {
		app.logger.Error(ctx, "server stopped", "error", err)
	}

	if cerr := app.db.Close(); cerr != nil {
		app.logger.Warn(ctx, "db close error", "error", cerr)
	}

	app.logger.Info(ctx, "App stopped")
	return err
}
