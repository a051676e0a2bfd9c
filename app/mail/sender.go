package mail

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-signup/config"
)

type Message struct {
	From    string
	To      string
	Subject string
	Body    string
}

// Sender delivers a single message. Implementations must not retry.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// DeliveryError wraps a failed send together with its recipient.
type DeliveryError struct {
	To  string
	Err error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("mail delivery to %s failed: %v", e.To, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

type SMTPSender struct {
	addr     string
	auth     smtp.Auth
	sendMail sendMailFunc
}

func NewSMTPSender(cfg config.MailConfig) *SMTPSender {
	var auth smtp.Auth
	if cfg.Username != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}
	return &SMTPSender{
		addr:     net.JoinHostPort(cfg.Host, cfg.Port),
		auth:     auth,
		sendMail: smtp.SendMail,
	}
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return &DeliveryError{To: msg.To, Err: err}
	}
	if err := s.sendMail(s.addr, s.auth, msg.From, []string{msg.To}, msg.bytes()); err != nil {
		return &DeliveryError{To: msg.To, Err: err}
	}
	return nil
}

// LogSender writes messages to the log instead of delivering them.
type LogSender struct{}

func NewLogSender() *LogSender {
	return &LogSender{}
}

func (s *LogSender) Send(_ context.Context, msg Message) error {
	logrus.WithFields(logrus.Fields{
		"from":    msg.From,
		"to":      msg.To,
		"subject": msg.Subject,
	}).Info("Mail delivery skipped, no SMTP host configured")
	logrus.WithField("to", msg.To).Debug(msg.Body)
	return nil
}

// NewSender picks the SMTP sender when a host is configured.
func NewSender(cfg config.MailConfig) Sender {
	if strings.TrimSpace(cfg.Host) == "" {
		return NewLogSender()
	}
	return NewSMTPSender(cfg)
}

func (m Message) bytes() []byte {
	var b strings.Builder
	b.WriteString("From: " + m.From + "\r\n")
	b.WriteString("To: " + m.To + "\r\n")
	b.WriteString("Subject: " + m.Subject + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(m.Body, "\n", "\r\n"))
	return []byte(b.String())
}
