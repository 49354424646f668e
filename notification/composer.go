package notification

import (
	"context"

	"github.com/Vinubaba/TOUCH-API/shared"

	"github.com/pkg/errors"
	"gopkg.in/gomail.v2"
)

var ErrComposerUnavailable = errors.New("mail composer is not available")

type Composer interface {
	Available() bool
	Send(ctx context.Context, message Message) error
}

// SMTPComposer sends consultation mails through the configured SMTP relay.
type SMTPComposer struct {
	Config *shared.AppConfig `inject:""`
}

func (c *SMTPComposer) Available() bool {
	return c.Config != nil && c.Config.SmtpEnabled()
}

func (c *SMTPComposer) Send(ctx context.Context, message Message) error {
	if !c.Available() {
		return ErrComposerUnavailable
	}

	m := gomail.NewMessage()
	m.SetHeader("From", c.Config.MailFrom)
	m.SetHeader("To", message.To...)
	if len(message.Cc) > 0 {
		m.SetHeader("Cc", message.Cc...)
	}
	m.SetHeader("Subject", message.Subject)
	m.SetBody("text/plain", message.Body)
	for _, attachment := range message.Attachments {
		m.Attach(attachment.Path, gomail.Rename(attachment.Name))
	}

	dialer := gomail.NewDialer(c.Config.SmtpHost, c.Config.SmtpPort, c.Config.SmtpUsername, c.Config.SmtpPassword)
	if err := dialer.DialAndSend(m); err != nil {
		return errors.Wrap(err, "failed to send mail")
	}
	return nil
}
