package mailer

import (
	"context"
	"fmt"
	"net/smtp"

	"taskboard-backend/pkg/config"
)

// SMTPSender delivers mail through a plain SMTP relay.
type SMTPSender struct {
	cfg config.EmailConfig
	// swapped in tests
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPSender(cfg config.EmailConfig) *SMTPSender {
	return &SMTPSender{cfg: cfg, sendMail: smtp.SendMail}
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	addr := s.cfg.SMTPHost + ":" + s.cfg.SMTPPort

	body := "From: " + s.cfg.FromEmail + "\r\n" +
		"To: " + msg.To + "\r\n" +
		"Subject: " + msg.Subject + "\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: text/html; charset=\"UTF-8\"\r\n" +
		"\r\n" +
		msg.HTML

	var auth smtp.Auth
	if s.cfg.SMTPUser != "" {
		auth = smtp.PlainAuth("", s.cfg.SMTPUser, s.cfg.SMTPPassword, s.cfg.SMTPHost)
	}

	from := s.cfg.SMTPUser
	if from == "" {
		from = s.cfg.FromEmail
	}
	if err := s.sendMail(addr, auth, from, []string{msg.To}, []byte(body)); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}
