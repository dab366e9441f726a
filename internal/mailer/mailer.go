// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package mailer delivers the rendered digest over SMTP.
package mailer

import (
	"context"
	"fmt"
	"time"

	"github.com/wneessen/go-mail"
	"go.uber.org/zap"

	"github.com/pdiddy/paper-digest/pkg/types"
)

const (
	senderName   = "paper-digest"
	receiverName = "You"
)

// dialer sends a message with one connection strategy.
type dialer func(ctx context.Context, cfg types.MailConfig, msg *mail.Msg) error

// Mailer sends digests. The zero value uses STARTTLS first and falls back
// to implicit TLS.
type Mailer struct {
	Logger *zap.Logger

	// Now stamps the subject line. Nil means time.Now.
	Now func() time.Time

	starttls dialer
	ssl      dialer
}

// Subject returns the subject line for a digest sent at t.
func Subject(t time.Time) string {
	return "Daily arXiv " + t.Format("2006/01/02")
}

// Message builds the HTML email.
func (m *Mailer) Message(cfg types.MailConfig, html string) (*mail.Msg, error) {
	now := time.Now
	if m.Now != nil {
		now = m.Now
	}

	msg := mail.NewMsg()
	if err := msg.FromFormat(senderName, cfg.Sender); err != nil {
		return nil, fmt.Errorf("setting sender: %w", err)
	}
	if err := msg.AddToFormat(receiverName, cfg.Receiver); err != nil {
		return nil, fmt.Errorf("setting receiver: %w", err)
	}
	msg.Subject(Subject(now()))
	msg.SetDate()
	msg.SetBodyString(mail.TypeTextHTML, html)
	return msg, nil
}

// Send delivers html to cfg.Receiver.
func (m *Mailer) Send(ctx context.Context, cfg types.MailConfig, html string) error {
	logger := m.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	msg, err := m.Message(cfg, html)
	if err != nil {
		return err
	}

	starttls, ssl := m.starttls, m.ssl
	if starttls == nil {
		starttls = sendSTARTTLS
	}
	if ssl == nil {
		ssl = sendSSL
	}

	err = starttls(ctx, cfg, msg)
	if err == nil {
		return nil
	}
	logger.Warn("failed to use TLS, trying SSL", zap.Error(err))
	if err := ssl(ctx, cfg, msg); err != nil {
		return fmt.Errorf("sending mail: %w", err)
	}
	return nil
}

func clientOptions(cfg types.MailConfig) []mail.Option {
	return []mail.Option{
		mail.WithPort(cfg.SMTPPort),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(cfg.Sender),
		mail.WithPassword(cfg.Password),
		mail.WithTimeout(30 * time.Second),
	}
}

func sendSTARTTLS(ctx context.Context, cfg types.MailConfig, msg *mail.Msg) error {
	opts := append(clientOptions(cfg), mail.WithTLSPolicy(mail.TLSMandatory))
	c, err := mail.NewClient(cfg.SMTPServer, opts...)
	if err != nil {
		return fmt.Errorf("creating SMTP client: %w", err)
	}
	return c.DialAndSendWithContext(ctx, msg)
}

func sendSSL(ctx context.Context, cfg types.MailConfig, msg *mail.Msg) error {
	opts := append(clientOptions(cfg), mail.WithSSL())
	c, err := mail.NewClient(cfg.SMTPServer, opts...)
	if err != nil {
		return fmt.Errorf("creating SMTP client: %w", err)
	}
	return c.DialAndSendWithContext(ctx, msg)
}
