package notify

import (
	"context"
	"fmt"
	"strings"

	"gopkg.in/gomail.v2"
)

type mailSender interface {
	DialAndSend(m ...*gomail.Message) error
}

// Email sends a copy of each order to a mailbox over SMTP.
type Email struct {
	sender  mailSender
	from    string
	to      string
	subject string
}

func NewEmail(host string, port int, user, pass, to string) *Email {
	return &Email{
		sender:  gomail.NewDialer(host, port, user, pass),
		from:    user,
		to:      to,
		subject: "New order",
	}
}

func (e *Email) Notify(ctx context.Context, text string) error {
	if e.sender == nil || e.to == "" {
		return ErrNotConfigured
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", e.from)
	m.SetHeader("To", e.to)
	m.SetHeader("Subject", e.subject)
	m.SetBody("text/html", strings.ReplaceAll(text, "\n", "<br>\n"))

	if err := e.sender.DialAndSend(m); err != nil {
		return fmt.Errorf("%w: %v", ErrDelivery, err)
	}
	return nil
}
