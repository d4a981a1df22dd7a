// Package notify tells operators about events that need a human, such as a
// new tutor application waiting for review.
package notify

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// Application is the operator-facing summary of a submitted application.
type Application struct {
	ID           string
	Name         string
	Email        string
	Subjects     []string
	Languages    []string
	HourlyRate   float64
	TeachingMode string
	FolderKey    string
	SheetURL     string
}

type Notifier interface {
	ApplicationSubmitted(ctx context.Context, app Application) error
}

// Nop discards notifications. Used when no bot token is configured.
type Nop struct{}

func (Nop) ApplicationSubmitted(context.Context, Application) error { return nil }

type messageSender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
}

// Telegram posts notifications to a single operator chat.
type Telegram struct {
	sender messageSender
	chatID int64
}

// NewTelegram creates the bot client without calling getMe, so startup does
// not depend on Telegram being reachable.
func NewTelegram(token string, chatID int64) (*Telegram, error) {
	b, err := bot.New(token, bot.WithSkipGetMe())
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}
	return &Telegram{sender: b, chatID: chatID}, nil
}

func (t *Telegram) ApplicationSubmitted(ctx context.Context, app Application) error {
	_, err := t.sender.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    t.chatID,
		Text:      formatApplication(app),
		ParseMode: models.ParseModeHTML,
	})
	if err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}

func formatApplication(app Application) string {
	var b strings.Builder
	b.WriteString("📝 <b>New tutor application</b>\n")
	fmt.Fprintf(&b, "Name: %s\n", html.EscapeString(app.Name))
	fmt.Fprintf(&b, "Email: %s\n", html.EscapeString(app.Email))
	fmt.Fprintf(&b, "Subjects: %s\n", html.EscapeString(strings.Join(app.Subjects, ", ")))
	fmt.Fprintf(&b, "Languages: %s\n", html.EscapeString(strings.Join(app.Languages, ", ")))
	fmt.Fprintf(&b, "Rate: %.2f/h, %s\n", app.HourlyRate, html.EscapeString(app.TeachingMode))
	if app.FolderKey != "" {
		fmt.Fprintf(&b, "Documents: <code>%s</code>\n", html.EscapeString(app.FolderKey))
	}
	if app.SheetURL != "" {
		fmt.Fprintf(&b, "<a href=\"%s\">Data sheet</a>\n", html.EscapeString(app.SheetURL))
	}
	fmt.Fprintf(&b, "Review: <code>tutorctl approve %s</code>", app.ID)
	return b.String()
}
