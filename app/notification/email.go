package notification

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"net/url"

	"github.com/sirupsen/logrus"
)

// Notifier delivers the links that carry verify and reset tokens.
type Notifier interface {
	SendVerification(ctx context.Context, to, verifyToken string) error
	SendPasswordReset(ctx context.Context, to, resetToken string) error
}

// Transport delivers a single rendered message.
type Transport interface {
	Send(ctx context.Context, to, subject, body string) error
}

type EmailNotifier struct {
	transport Transport
	baseURL   string
}

func NewEmailNotifier(transport Transport, baseURL string) *EmailNotifier {
	return &EmailNotifier{transport: transport, baseURL: baseURL}
}

func (n *EmailNotifier) SendVerification(ctx context.Context, to, verifyToken string) error {
	verifyURL := n.link("/account/verify", verifyToken)
	body := fmt.Sprintf(`<html><body>
		<h2>Verify Your Email Address</h2>
		<p>Thank you for registering! Please verify your email address to complete your registration.</p>
		<p><a href="%s">Click here to verify your email</a></p>
		<p>Or copy this link to your browser: %s</p>
	</body></html>`, verifyURL, verifyURL)
	return n.transport.Send(ctx, to, "Verify Your Email Address", body)
}

func (n *EmailNotifier) SendPasswordReset(ctx context.Context, to, resetToken string) error {
	resetURL := n.link("/account/reset-password", resetToken)
	body := fmt.Sprintf(`<html><body>
		<h2>Reset Your Password</h2>
		<p>A password reset has been requested for your account.</p>
		<p><a href="%s">Click here to reset your password</a></p>
		<p>Or copy this link to your browser: %s</p>
		<p>If you did not request this password reset, please ignore this email.</p>
	</body></html>`, resetURL, resetURL)
	return n.transport.Send(ctx, to, "Reset Your Password", body)
}

func (n *EmailNotifier) link(path, tok string) string {
	return n.baseURL + path + "?token=" + url.QueryEscape(tok)
}

type SMTPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

type SMTPTransport struct {
	config   SMTPConfig
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPTransport(config SMTPConfig) *SMTPTransport {
	return &SMTPTransport{config: config, sendMail: smtp.SendMail}
}

func (t *SMTPTransport) Send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=UTF-8\r\n\r\n%s",
		t.config.From, to, subject, body)

	var auth smtp.Auth
	if t.config.Username != "" {
		auth = smtp.PlainAuth("", t.config.Username, t.config.Password, t.config.Host)
	}
	addr := net.JoinHostPort(t.config.Host, t.config.Port)
	return t.sendMail(addr, auth, t.config.From, []string{to}, []byte(msg))
}

// LogTransport writes messages to the log instead of sending them. Used when
// mail delivery is disabled.
type LogTransport struct{}

func (LogTransport) Send(_ context.Context, to, subject, body string) error {
	entry := logrus.WithFields(logrus.Fields{
		"to":      to,
		"subject": subject,
	})
	entry.Info("Email delivery disabled, message logged")
	entry.WithField("body", body).Debug("Email body")
	return nil
}
