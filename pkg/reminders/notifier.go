package reminders

import (
	"context"
	"fmt"
	"net/smtp"

	"github.com/jordan-wright/email"
	"github.com/mcclellann/debtplan/pkg/config"
	"github.com/mcclellann/debtplan/pkg/models"
	"github.com/sirupsen/logrus"
)

// Notifier delivers one due reminder.
type Notifier interface {
	Notify(ctx context.Context, r *models.Reminder) error
}

// LogNotifier writes reminders to the log.
type LogNotifier struct {
	Logger logrus.FieldLogger
}

func (n LogNotifier) Notify(_ context.Context, r *models.Reminder) error {
	n.Logger.WithFields(logrus.Fields{
		"debt_id":     r.DebtAccountID,
		"schedule_id": r.ScheduleEntryID,
		"due_date":    r.DueDate.String(),
		"amount":      r.Amount.String(),
	}).Info(r.Title)
	return nil
}

// sendFunc matches (*email.Email).Send; tests replace it.
type sendFunc func(e *email.Email, addr string, auth smtp.Auth) error

// EmailNotifier mails reminders through an SMTP relay.
type EmailNotifier struct {
	cfg    config.SMTPConfig
	logger logrus.FieldLogger
	send   sendFunc
}

func NewEmailNotifier(cfg config.SMTPConfig, logger logrus.FieldLogger) *EmailNotifier {
	return &EmailNotifier{
		cfg:    cfg,
		logger: logger,
		send: func(e *email.Email, addr string, auth smtp.Auth) error {
			return e.Send(addr, auth)
		},
	}
}

// Notify sends an upcoming-payment email for r.
func (n *EmailNotifier) Notify(ctx context.Context, r *models.Reminder) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	e := email.NewEmail()
	e.From = n.cfg.From
	e.To = []string{n.cfg.To}
	e.Subject = "Upcoming debt payment: " + r.Title
	e.Text = []byte(fmt.Sprintf(
		"This is a reminder that a payment of %s is due on %s.\n"+
			"Confirm it in debtplan once it has been made.\n",
		r.Amount.String(), r.DueDate.String(),
	))

	addr := fmt.Sprintf("%s:%s", n.cfg.Host, n.cfg.Port)
	var auth smtp.Auth
	if n.cfg.Username != "" {
		auth = smtp.PlainAuth("", n.cfg.Username, n.cfg.Password, n.cfg.Host)
	}
	if err := n.send(e, addr, auth); err != nil {
		n.logger.Errorf("Failed to send reminder email to %s: %v", n.cfg.To, err)
		return fmt.Errorf("failed to send reminder email: %w", err)
	}
	n.logger.Infof("Email sent to %s: %s", n.cfg.To, e.Subject)
	return nil
}

// Multi fans a reminder out to several notifiers. Every notifier is tried;
// the first error is returned.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, r *models.Reminder) error {
	var first error
	for _, n := range m {
		if err := n.Notify(ctx, r); err != nil && first == nil {
			first = err
		}
	}
	return first
}
