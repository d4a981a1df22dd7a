package tutorctl

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dmitrijs2005/tutorhub/internal/logging"
	"github.com/dmitrijs2005/tutorhub/internal/server/config"
	mailer "github.com/dmitrijs2005/tutorhub/internal/server/mail"
	"github.com/dmitrijs2005/tutorhub/internal/server/models"
	"github.com/dmitrijs2005/tutorhub/internal/server/notify"
	"github.com/dmitrijs2005/tutorhub/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/tutorhub/internal/server/services"
	"github.com/dmitrijs2005/tutorhub/internal/server/shared/db"
)

type accountAdmin interface {
	CreateAdmin(ctx context.Context, fullName, email, password string) (*models.Account, error)
}

type tutorAdmin interface {
	ListApplications(ctx context.Context, status models.ApprovalStatus) ([]models.TutorApplication, error)
	SetApprovalStatus(ctx context.Context, applicationID string, status models.ApprovalStatus, reason string) error
	AddTaxonomy(ctx context.Context, kind models.TaxonomyKind, names []string) ([]models.TaxonomyEntry, error)
	ListTaxonomy(ctx context.Context, kind models.TaxonomyKind) ([]models.TaxonomyEntry, error)
}

type App struct {
	accounts accountAdmin
	tutors   tutorAdmin
	migrate  func(ctx context.Context) error
	closer   io.Closer
	reader   *bufio.Reader
	out      io.Writer
}

// NewApp connects to the database configured in c and builds the services
// the commands use. Close releases the connection.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger, err := logging.New(c.Environment, c.LogFormat, os.Stderr)
	if err != nil {
		return nil, err
	}

	conn, err := db.Open(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, err
	}

	rm := repomanager.NewPostgresRepositoryManager()
	ml := mailer.NewSMTPMailer(mailer.SMTPConfig{
		Host:     c.SMTPHost,
		Port:     c.SMTPPort,
		User:     c.SMTPUser,
		Password: c.SMTPPassword,
		From:     c.MailFrom,
	})

	// tutorctl never submits applications, so no document store is needed.
	ts := services.NewTutorService(conn, rm, nil, ml, notify.Nop{}, logger, c)
	as := services.NewAccountService(conn, rm, ml, c)

	return &App{
		accounts: as,
		tutors:   ts,
		migrate:  func(ctx context.Context) error { return rm.RunMigrations(ctx, conn) },
		closer:   conn,
		reader:   bufio.NewReader(os.Stdin),
		out:      os.Stdout,
	}, nil
}

func (a *App) Close() error {
	if a.closer == nil {
		return nil
	}
	return a.closer.Close()
}

// Run executes args as a single command, or starts the prompt when args is
// empty.
func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return a.repl(ctx)
	}
	return a.exec(ctx, args[0], args[1:])
}

func (a *App) repl(ctx context.Context) error {
	fmt.Fprintln(a.out, "TutorHub admin console (type 'help' for commands)")

	for {
		fmt.Fprint(a.out, "tutorctl> ")
		line, err := a.reader.ReadString('\n')
		parts := strings.Fields(line)
		if len(parts) > 0 {
			switch parts[0] {
			case "exit", "quit":
				fmt.Fprintln(a.out, "Bye!")
				return nil
			}
			if cerr := a.exec(ctx, parts[0], parts[1:]); cerr != nil {
				fmt.Fprintln(a.out, "Error:", cerr)
			}
		}
		if err != nil {
			fmt.Fprintln(a.out)
			return nil
		}
	}
}

func (a *App) exec(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "help":
		a.help()
		return nil
	case "migrate":
		return a.runMigrations(ctx)
	case "applications", "list":
		return a.listApplications(ctx, args)
	case "approve":
		return a.approve(ctx, args)
	case "reject":
		return a.reject(ctx, args)
	case "subjects":
		return a.listTaxonomy(ctx, models.KindSubject)
	case "languages":
		return a.listTaxonomy(ctx, models.KindLanguage)
	case "add-subjects":
		return a.addTaxonomy(ctx, models.KindSubject, args)
	case "add-languages":
		return a.addTaxonomy(ctx, models.KindLanguage, args)
	case "create-admin":
		return a.createAdmin(ctx)
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func (a *App) help() {
	fmt.Fprintln(a.out, `Available commands:
  migrate                      apply pending database migrations
  list [status]                list applications (pending, approved, rejected)
  approve <id>                 approve an application and grant the tutor role
  reject <id> [reason]         reject an application
  subjects | languages         list the reference lists
  add-subjects <a, b, ...>     add subjects (duplicates are skipped)
  add-languages <a, b, ...>    add languages (duplicates are skipped)
  create-admin                 create an administrator or promote an account
  exit`)
}
