// Package notify delivers password expiry reminders to members.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	mg "github.com/mailgun/mailgun-go/v4"

	"github.com/example/dojo-portal/internal/application"
)

// DefaultSendTimeout bounds a single Mailgun request.
const DefaultSendTimeout = 10 * time.Second

// ErrNoRecipient is returned for reminders without an email address.
var ErrNoRecipient = errors.New("notify: reminder has no recipient")

// Message is a rendered plain-text email.
type Message struct {
	To      string
	Subject string
	Text    string
}

// ComposeExpiryReminder renders the reminder email for r.
func ComposeExpiryReminder(r application.ExpiryReminder) Message {
	name := strings.TrimSpace(r.DisplayName)
	if name == "" {
		name = "member"
	}

	var when string
	switch {
	case r.DaysLeft <= 0:
		when = "today"
	case r.DaysLeft == 1:
		when = "in 1 day"
	default:
		when = fmt.Sprintf("in %d days", r.DaysLeft)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Hello %s,\n\n", name)
	fmt.Fprintf(&b, "Your dojo portal password expires %s (%s UTC).\n", when, r.ExpiryDate.UTC().Format("2006-01-02 15:04"))
	b.WriteString("Please sign in and choose a new password before then. ")
	b.WriteString("Once it expires your account is suspended until the password is reset.\n")

	return Message{
		To:      r.Email,
		Subject: fmt.Sprintf("Your dojo portal password expires %s", when),
		Text:    b.String(),
	}
}

// MailgunConfig holds the Mailgun account used for outgoing mail.
type MailgunConfig struct {
	Domain  string
	APIKey  string
	Sender  string
	APIBase string
	Timeout time.Duration
}

// Mailer sends reminders through Mailgun.
type Mailer struct {
	client  *mg.MailgunImpl
	sender  string
	timeout time.Duration
	logger  *slog.Logger
}

// NewMailer constructs a Mailer. Domain, key and sender are required.
func NewMailer(cfg MailgunConfig, logger *slog.Logger) (*Mailer, error) {
	if cfg.Domain == "" || cfg.APIKey == "" || cfg.Sender == "" {
		return nil, fmt.Errorf("notify: mailgun domain, api key and sender are required")
	}
	client := mg.NewMailgun(cfg.Domain, cfg.APIKey)
	if cfg.APIBase != "" {
		client.SetAPIBase(mailgunAPIBase(cfg.APIBase))
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultSendTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Mailer{client: client, sender: cfg.Sender, timeout: cfg.Timeout, logger: logger}, nil
}

// mailgunAPIBase appends the v3 API version when base carries none, since the
// client only accepts bases ending in /v1 to /v4.
func mailgunAPIBase(base string) string {
	base = strings.TrimRight(base, "/")
	for _, version := range []string{"/v1", "/v2", "/v3", "/v4"} {
		if strings.HasSuffix(base, version) {
			return base
		}
	}
	return base + "/v3"
}

// SendExpiryReminder implements application.Notifier.
func (m *Mailer) SendExpiryReminder(ctx context.Context, reminder application.ExpiryReminder) error {
	msg := ComposeExpiryReminder(reminder)
	if msg.To == "" {
		return ErrNoRecipient
	}

	message := m.client.NewMessage(m.sender, msg.Subject, msg.Text, msg.To)

	sendCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	_, id, err := m.client.Send(sendCtx, message)
	if err != nil {
		return fmt.Errorf("notify: mailgun send: %w", err)
	}
	m.logger.InfoContext(ctx, "expiry reminder sent", "user_id", reminder.UserID, "message_id", id)
	return nil
}

// LogNotifier writes reminders to the log instead of sending mail. It is used
// when no mail provider is configured.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier constructs a LogNotifier.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

// SendExpiryReminder implements application.Notifier.
func (n *LogNotifier) SendExpiryReminder(ctx context.Context, reminder application.ExpiryReminder) error {
	msg := ComposeExpiryReminder(reminder)
	if msg.To == "" {
		return ErrNoRecipient
	}
	n.logger.InfoContext(ctx, "expiry reminder",
		"user_id", reminder.UserID,
		"to", msg.To,
		"subject", msg.Subject,
		"days_left", reminder.DaysLeft,
	)
	return nil
}
