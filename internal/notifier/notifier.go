// Package notifier delivers reminder memos to process owners.
package notifier

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"
	"time"

	"github.com/starford/raido/internal/models"
)

// Notifier sends one reminder for a directive. Implementations report
// delivery failure through the returned error; the dispatcher records the
// failure but still counts the attempt.
type Notifier interface {
	Send(ctx context.Context, d *models.Directive) error
}

// SMTP sends plain-text compliance memos over SMTP.
type SMTP struct {
	host   string
	port   int
	user   string
	pass   string
	from   string
	logger *slog.Logger
	now    func() time.Time

	// sendMail is swappable for tests.
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewSMTP creates an SMTP notifier.
func NewSMTP(host string, port int, user, pass, from string, logger *slog.Logger) *SMTP {
	return &SMTP{
		host:     host,
		port:     port,
		user:     user,
		pass:     pass,
		from:     from,
		logger:   logger,
		now:      time.Now,
		sendMail: smtp.SendMail,
	}
}

// Send builds the memo for the directive and delivers it to the primary
// (and, when present, secondary) recipient. A directive without a primary
// email cannot be delivered.
func (n *SMTP) Send(ctx context.Context, d *models.Directive) error {
	if d.PrimaryEmail == "" {
		return fmt.Errorf("notifier: directive %s has no primary email", d.ID)
	}
	recipients := []string{d.PrimaryEmail}
	if strings.TrimSpace(d.SecondaryEmail) != "" {
		recipients = append(recipients, d.SecondaryEmail)
	}

	body, err := RenderMemo(d, n.now())
	if err != nil {
		return fmt.Errorf("notifier: render memo: %w", err)
	}

	subject := fmt.Sprintf("Reminder %d/3: Status Update Required - %s", d.Reminders+1, refOr(d))
	msg := buildMessage(n.from, recipients, subject, body)

	addr := fmt.Sprintf("%s:%d", n.host, n.port)
	var auth smtp.Auth
	if n.user != "" {
		auth = smtp.PlainAuth("", n.user, n.pass, n.host)
	}

	// smtp.SendMail has no context support; run it in a goroutine so a
	// stalled server cannot outlive the dispatch timeout.
	done := make(chan error, 1)
	go func() { done <- n.sendMail(addr, auth, n.from, recipients, msg) }()
	select {
	case <-ctx.Done():
		return fmt.Errorf("notifier: send %s: %w", d.ID, ctx.Err())
	case err := <-done:
		if err != nil {
			return fmt.Errorf("notifier: send %s: %w", d.ID, err)
		}
	}

	n.logger.Info("reminder email sent",
		slog.String("directive", d.ID),
		slog.String("ref", d.Ref),
		slog.Int("recipients", len(recipients)))
	return nil
}

func buildMessage(from string, to []string, subject, body string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	return []byte(b.String())
}

func refOr(d *models.Directive) string {
	if d.Ref != "" {
		return d.Ref
	}
	return d.ID
}

// Noop logs instead of sending. Used when mail is disabled in config.
type Noop struct {
	Logger *slog.Logger
}

// Send records the dispatch without delivering anything.
func (n Noop) Send(_ context.Context, d *models.Directive) error {
	n.Logger.Info("mail disabled, reminder not delivered",
		slog.String("directive", d.ID),
		slog.String("owner", d.Owner))
	return nil
}
