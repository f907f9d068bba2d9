package services

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"
	"time"

	"debt_flow_app_go/config"

	"github.com/resend/resend-go/v2"
	"go.uber.org/zap"
)

//go:embed emails/*.html emails/*.txt
var emailTemplates embed.FS

// ErrEmailNotConfigured is returned when no Resend key is set outside test mode
var ErrEmailNotConfigured = errors.New("RESEND_API_KEY not configured")

// Email represents an email message
type Email struct {
	To       []string
	Subject  string
	HTMLBody string
	TextBody string
}

// Mailer delivers notification emails
type Mailer interface {
	Send(ctx context.Context, email *Email) error
}

// ResendMailer sends through Resend, or only logs in test mode
type ResendMailer struct {
	client   *resend.Client
	from     string
	testMode bool
	log      *zap.Logger
}

// NewMailer builds the mailer from config
func NewMailer(cfg *config.Config) *ResendMailer {
	m := &ResendMailer{
		from:     fmt.Sprintf("%s <%s>", cfg.EmailFromName, cfg.EmailFrom),
		testMode: cfg.EmailTestMode,
		log:      zap.L().Named("email"),
	}
	if cfg.ResendAPIKey != "" {
		m.client = resend.NewClient(cfg.ResendAPIKey)
	}
	return m
}

// Send delivers email. In test mode the message is logged instead.
func (m *ResendMailer) Send(ctx context.Context, email *Email) error {
	if email.HTMLBody == "" && email.TextBody == "" {
		return fmt.Errorf("email must have either HTMLBody or TextBody")
	}
	if len(email.To) == 0 {
		return fmt.Errorf("email has no recipients")
	}

	if m.testMode {
		m.log.Info("email not sent (test mode)",
			zap.Strings("to", email.To),
			zap.String("subject", email.Subject),
			zap.String("text", truncate(email.TextBody, 500)),
		)
		return nil
	}
	if m.client == nil {
		return ErrEmailNotConfigured
	}

	params := &resend.SendEmailRequest{
		From:    m.from,
		To:      email.To,
		Subject: email.Subject,
		Html:    email.HTMLBody,
		Text:    email.TextBody,
	}
	sent, err := m.client.Emails.Send(params)
	if err != nil {
		return fmt.Errorf("failed to send email via Resend: %w", err)
	}

	m.log.Info("email sent", zap.String("id", sent.Id), zap.Strings("to", email.To))
	return nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen]
}

// SendEmailAsync sends a copy of email in the background so handlers and
// jobs never wait on the mail provider.
func SendEmailAsync(m Mailer, email *Email) {
	emailCopy := &Email{
		To:       append([]string{}, email.To...),
		Subject:  email.Subject,
		HTMLBody: email.HTMLBody,
		TextBody: email.TextBody,
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := m.Send(ctx, emailCopy); err != nil {
			zap.L().Named("email").Error("async email failed", zap.String("subject", emailCopy.Subject), zap.Error(err))
		}
	}()
}

// renderEmail executes emails/<name>.html and emails/<name>.txt
func renderEmail(name string, data any) (string, string, error) {
	htmlTmpl, err := htmltemplate.ParseFS(emailTemplates, "emails/"+name+".html")
	if err != nil {
		return "", "", fmt.Errorf("failed to parse template %s.html: %w", name, err)
	}
	textTmpl, err := texttemplate.ParseFS(emailTemplates, "emails/"+name+".txt")
	if err != nil {
		return "", "", fmt.Errorf("failed to parse template %s.txt: %w", name, err)
	}

	var html, text bytes.Buffer
	if err := htmlTmpl.Execute(&html, data); err != nil {
		return "", "", fmt.Errorf("failed to execute template %s.html: %w", name, err)
	}
	if err := textTmpl.Execute(&text, data); err != nil {
		return "", "", fmt.Errorf("failed to execute template %s.txt: %w", name, err)
	}
	return html.String(), strings.TrimSpace(text.String()) + "\n", nil
}

// AutoAssignSummaryData feeds the auto-assign summary templates
type AutoAssignSummaryData struct {
	Summary       string
	RunAt         string
	Selected      int
	Assigned      []Assignment
	Failed        []AssignFailure
	AllocationURL string
}

// BuildAutoAssignSummaryEmail reports a bulk auto-assign run to operations
func BuildAutoAssignSummaryEmail(to, appURL string, outcome *AssignOutcome, runAt time.Time) (*Email, error) {
	data := AutoAssignSummaryData{
		Summary:       outcome.Summary(),
		RunAt:         runAt.UTC().Format("2006-01-02 15:04 MST"),
		Selected:      outcome.Selected,
		Assigned:      outcome.Assigned,
		Failed:        outcome.Failed,
		AllocationURL: strings.TrimRight(appURL, "/") + "/case-allocation",
	}
	html, text, err := renderEmail("auto_assign_summary", data)
	if err != nil {
		return nil, err
	}

	subject := fmt.Sprintf("Auto-assignment: %d of %d cases assigned", len(outcome.Assigned), outcome.Selected)
	if len(outcome.Failed) > 0 {
		subject += fmt.Sprintf(" (%d failed)", len(outcome.Failed))
	}
	return &Email{To: []string{to}, Subject: subject, HTMLBody: html, TextBody: text}, nil
}
