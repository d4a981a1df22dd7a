// Package mail sends transactional email (verification and password reset).
package mail

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"time"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// Message is a single HTML email.
type Message struct {
	To      string
	Subject string
	HTML    string
}

// Mailer delivers messages. Implementations are safe for concurrent use.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

type linkData struct {
	Name     string
	Link     string
	Validity string
}

// Verification builds the email-confirmation message.
func Verification(to, name, link string, validity time.Duration) (Message, error) {
	return render(to, "Verify your TutorHub email", "verification.html", linkData{name, link, humanize(validity)})
}

// PasswordReset builds the reset-link message.
func PasswordReset(to, name, link string, validity time.Duration) (Message, error) {
	return render(to, "Reset your TutorHub password", "reset.html", linkData{name, link, humanize(validity)})
}

func render(to, subject, name string, data any) (Message, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return Message{}, fmt.Errorf("render %s: %w", name, err)
	}
	return Message{To: to, Subject: subject, HTML: buf.String()}, nil
}

func humanize(d time.Duration) string {
	if d >= time.Hour && d%time.Hour == 0 {
		if d == time.Hour {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", d/time.Hour)
	}
	return fmt.Sprintf("%d minutes", d/time.Minute)
}
