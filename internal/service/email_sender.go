package service

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/evoting/internal/config"
)

type EmailSender interface {
	Send(ctx context.Context, to, subject, body string) error
}

type smtpSender struct {
	cfg config.MailConfig
}

// NewEmailSender returns an SMTP sender, or a sender that only logs the
// message when no mail host is configured.
func NewEmailSender(cfg config.MailConfig) EmailSender {
	if strings.TrimSpace(cfg.Host) == "" {
		return &logSender{}
	}
	return &smtpSender{cfg: cfg}
}

func (s *smtpSender) Send(_ context.Context, to, subject, body string) error {
	from := strings.TrimSpace(s.cfg.From)
	if from == "" {
		from = s.cfg.Username
	}
	port := s.cfg.Port
	if port == 0 {
		port = 587
	}
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, port)
	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}
	msg := []byte("From: " + from + "\r\n" +
		"To: " + to + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: text/plain; charset=UTF-8\r\n" +
		"\r\n" + body)
	return smtp.SendMail(addr, auth, from, []string{to}, msg)
}

type logSender struct{}

func (s *logSender) Send(ctx context.Context, to, subject, body string) error {
	logutil.GetLogger(ctx).Info("mail host not configured, message logged instead",
		zap.String("to", to), zap.String("subject", subject), zap.String("body", body))
	return nil
}
