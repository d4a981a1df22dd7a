package tutorctl

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/dmitrijs2005/tutorhub/internal/common"
	"github.com/dmitrijs2005/tutorhub/internal/server/models"
)

var errUsage = errors.New("usage")

func (a *App) runMigrations(ctx context.Context) error {
	if err := a.migrate(ctx); err != nil {
		return fmt.Errorf("migrations failed: %w", err)
	}
	fmt.Fprintln(a.out, "Migrations applied")
	return nil
}

func (a *App) listApplications(ctx context.Context, args []string) error {
	var status models.ApprovalStatus
	if len(args) > 0 {
		status = models.ApprovalStatus(strings.ToLower(args[0]))
	}

	apps, err := a.tutors.ListApplications(ctx, status)
	if err != nil {
		return err
	}
	if len(apps) == 0 {
		fmt.Fprintln(a.out, "No applications")
		return nil
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tACCOUNT\tSTATUS\tRATE\tMODE\tSUBJECTS\tSUBMITTED")
	for _, app := range apps {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.2f\t%s\t%s\t%s\n",
			app.ID, app.AccountID, app.ApprovalStatus, app.HourlyRate, app.TeachingMode,
			strings.Join(app.Subjects, ", "), app.CreatedAt.Format("2006-01-02 15:04"))
	}
	return tw.Flush()
}

func (a *App) approve(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: approve <id>", errUsage)
	}
	if err := a.tutors.SetApprovalStatus(ctx, args[0], models.StatusApproved, ""); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Application %s approved\n", args[0])
	return nil
}

func (a *App) reject(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("%w: reject <id> [reason]", errUsage)
	}
	reason := strings.Join(args[1:], " ")
	if err := a.tutors.SetApprovalStatus(ctx, args[0], models.StatusRejected, reason); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Application %s rejected\n", args[0])
	return nil
}

func (a *App) listTaxonomy(ctx context.Context, kind models.TaxonomyKind) error {
	entries, err := a.tutors.ListTaxonomy(ctx, kind)
	if errors.Is(err, common.ErrorNotFound) {
		fmt.Fprintf(a.out, "No %s yet\n", kind.Plural())
		return nil
	}
	if err != nil {
		return err
	}
	for _, e := range entries {
		fmt.Fprintln(a.out, e.Name)
	}
	return nil
}

func (a *App) addTaxonomy(ctx context.Context, kind models.TaxonomyKind, args []string) error {
	names := splitNames(args)
	if len(names) == 0 {
		return fmt.Errorf("%w: add-%s <name>, <name>, ...", errUsage, kind.Plural())
	}

	added, err := a.tutors.AddTaxonomy(ctx, kind, names)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%d %s added\n", len(added), kind.Plural())
	for _, e := range added {
		fmt.Fprintln(a.out, "  "+e.Name)
	}
	return nil
}

func (a *App) createAdmin(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Email", a.out)
	if err != nil {
		return err
	}
	name, err := getSimpleText(a.reader, "Full name (leave empty to promote an existing account)", a.out)
	if err != nil {
		return err
	}

	var password string
	if name != "" {
		if password, err = getPassword(a.out); err != nil {
			return err
		}
	}

	account, err := a.accounts.CreateAdmin(ctx, name, email, password)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Administrator %s (%s) ready\n", account.UserName, account.ID)
	return nil
}
