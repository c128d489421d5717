package mail

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"
)

// SMTPConfig carries the SMTP connection settings from application config.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
}

// Configured reports whether enough settings are present to send mail.
func (c SMTPConfig) Configured() bool {
	return c.Host != "" && c.From != ""
}

// SMTPMailer sends account emails through an SMTP relay.
type SMTPMailer struct {
	cfg    SMTPConfig
	logger *logrus.Logger
}

func NewSMTPMailer(cfg SMTPConfig, logger *logrus.Logger) *SMTPMailer {
	return &SMTPMailer{cfg: cfg, logger: logger}
}

func (m *SMTPMailer) SendPasswordResetEmail(email, resetLink string) error {
	if !m.cfg.Configured() {
		return fmt.Errorf("smtp is not configured")
	}
	if strings.TrimSpace(email) == "" {
		return fmt.Errorf("empty recipient")
	}

	msg := gomail.NewMessage()
	from := m.cfg.From
	if m.cfg.FromName != "" {
		from = msg.FormatAddress(m.cfg.From, m.cfg.FromName)
	}
	msg.SetHeader("From", from)
	msg.SetHeader("To", email)
	msg.SetHeader("Subject", "Password reset for Fiction Book Review")
	msg.SetBody("text/html", resetPasswordBody(resetLink))

	dialer := gomail.NewDialer(m.cfg.Host, m.cfg.Port, m.cfg.Username, m.cfg.Password)
	if err := dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("send reset email: %w", err)
	}

	m.logger.Infof("password reset email sent to %s", email)
	return nil
}

func resetPasswordBody(resetLink string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif;">
  <div style="max-width: 600px; margin: 0 auto; padding: 20px; border: 1px solid #ddd; border-radius: 10px;">
    <h2 style="color: #333;">Reset your password</h2>
    <p>You asked to reset the password for your account. Click the button below to pick a new one.</p>
    <p style="text-align: center; margin: 30px 0;">
      <a href="%[1]s"
         style="background-color: #007bff; color: white; padding: 12px 25px; text-decoration: none; border-radius: 5px; font-size: 16px;">
         Set a new password
      </a>
    </p>
    <p>If the button does not work, copy this link into your browser:</p>
    <p style="word-break: break-all;">%[1]s</p>
    <hr>
    <p style="font-size: 12px; color: #888;">The link expires in 1 hour. If you did not ask for a reset, ignore this email.</p>
  </div>
</body>
</html>`, resetLink)
}
