package mailer

import (
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/MOYARU/driftwatch/internal/config"
)

// Message is one outbound notification, already fully rendered.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Mailer delivers digest messages. A returned error means nothing was
// delivered and the caller must not mark the covered alerts sent.
type Mailer interface {
	Send(msg Message) error
}

// New picks the delivery backend: a configured SMTP host sends real mail,
// an empty one falls back to the logging mailer for development setups.
func New(cfg config.SMTPConfig) Mailer {
	if cfg.Host == "" {
		return Log{}
	}
	return NewSMTP(cfg)
}

type SMTP struct {
	addr string
	from string
	auth smtp.Auth
}

func NewSMTP(cfg config.SMTPConfig) *SMTP {
	var auth smtp.Auth
	if cfg.Username != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}
	return &SMTP{
		addr: fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		from: cfg.From,
		auth: auth,
	}
}

func (m *SMTP) Send(msg Message) error {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", m.from)
	fmt.Fprintf(&b, "To: %s\r\n", msg.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	fmt.Fprintf(&b, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(msg.Body, "\n", "\r\n"))

	if err := smtp.SendMail(m.addr, m.auth, m.from, []string{msg.To}, []byte(b.String())); err != nil {
		return errors.Wrap(err, "failed to deliver mail")
	}
	return nil
}

// Log renders messages into the log instead of sending them.
type Log struct{}

func (Log) Send(msg Message) error {
	log.Info().
		Str("to", msg.To).
		Str("subject", msg.Subject).
		Msg("digest rendered without delivery")
	log.Debug().Msg(msg.Body)
	return nil
}
