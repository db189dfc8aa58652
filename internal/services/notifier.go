package services

import (
	"context"

	"github.com/lukyamuziB/lenken-backend/internal/clients/mail"
	"github.com/lukyamuziB/lenken-backend/internal/clients/slack"
	"github.com/lukyamuziB/lenken-backend/internal/logger"
)

// Mailer is the outbound mail port. The core decides the template name, the
// recipients and the payload; rendering and transport belong to the mail
// infrastructure behind this interface.
type Mailer interface {
	Send(ctx context.Context, template string, recipients []string, payload map[string]interface{}) error
}

// Mail template names the core hands to the Mailer.
const (
	MailRequestMatched      = "request-matched"
	MailSessionInactivity   = "session-inactivity"
	MailUnmatchedRequests   = "unmatched-requests"
	MailTimeTrackerFallback = "timetracker-fallback"
	MailInterestIndicated   = "interest-indicated"
)

// NotificationService fans out best-effort notifications. Every send failure
// is logged and swallowed: downstream delivery problems never surface as
// operation errors and never roll back persisted state.
type NotificationService interface {
	SendEmail(ctx context.Context, template string, recipients []string, payload map[string]interface{})
	SendSlackMessage(ctx context.Context, recipient, text string)
}

type notificationService struct {
	log    *logger.Logger
	mailer Mailer
	slack  slack.Client
}

func NewNotificationService(log *logger.Logger, mailer Mailer, slackClient slack.Client) NotificationService {
	return &notificationService{
		log:    log.With("service", "NotificationService"),
		mailer: mailer,
		slack:  slackClient,
	}
}

func (ns *notificationService) SendEmail(ctx context.Context, template string, recipients []string, payload map[string]interface{}) {
	if ns.mailer == nil || len(recipients) == 0 {
		return
	}
	if err := ns.mailer.Send(ctx, template, dedupe(recipients), payload); err != nil {
		ns.log.Error("Email send failed", "template", template, "recipients", recipients, "error", err)
	}
}

func (ns *notificationService) SendSlackMessage(ctx context.Context, recipient, text string) {
	if ns.slack == nil || recipient == "" {
		return
	}
	if err := ns.slack.SendMessage(ctx, recipient, text); err != nil {
		ns.log.Error("Slack send failed", "recipient", recipient, "error", err)
	}
}

func dedupe(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

// LogMailer is the fallback Mailer: it records what would have been sent.
// Used when no mail provider is configured.
type LogMailer struct {
	Log *logger.Logger
}

func (m *LogMailer) Send(ctx context.Context, template string, recipients []string, payload map[string]interface{}) error {
	m.Log.Info("Mail dispatched", "template", template, "recipients", recipients, "payload", payload)
	return nil
}

var mailSubjects = map[string]string{
	MailRequestMatched:      "Your mentorship request has been matched",
	MailSessionInactivity:   "Your mentorship engagement looks inactive",
	MailUnmatchedRequests:   "Unmatched mentorship requests report",
	MailTimeTrackerFallback: "A mentorship session could not be logged to the time tracker",
	MailInterestIndicated:   "Someone is interested in your mentorship request",
}

// TemplateMailer delivers through the transactional mail provider, passing
// the template name and payload through for provider-side rendering.
type TemplateMailer struct {
	Client mail.Client
}

func (m *TemplateMailer) Send(ctx context.Context, template string, recipients []string, payload map[string]interface{}) error {
	return m.Client.Send(ctx, mail.Message{
		To:       recipients,
		Subject:  mailSubjects[template],
		Template: template,
		Data:     payload,
	})
}
