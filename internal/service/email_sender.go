package service

import (
	"context"
	"fmt"
	"html"

	"github.com/resend/resend-go/v2"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/service-marketplace/internal/logger"
)

// EmailSender отправляет письмо и возвращает идентификатор у провайдера.
type EmailSender interface {
	Send(ctx context.Context, to, subject, htmlBody string) (string, error)
}

// ResendSender отправляет письма через Resend.
type ResendSender struct {
	client *resend.Client
	from   string
}

func NewResendSender(apiKey, from string) *ResendSender {
	return &ResendSender{client: resend.NewClient(apiKey), from: from}
}

func (s *ResendSender) Send(ctx context.Context, to, subject, htmlBody string) (string, error) {
	sent, err := s.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    s.from,
		To:      []string{to},
		Subject: subject,
		Html:    htmlBody,
	})
	if err != nil {
		return "", fmt.Errorf("resend: send email %w", err)
	}

	logger.WithComponent("email").WithFields(logrus.Fields{
		"to": to,
		"id": sent.Id,
	}).Debug("письмо отправлено")

	return sent.Id, nil
}

// noopSender используется, когда ключ Resend не задан: письма только логируются.
type noopSender struct{}

// NewEmailSender выбирает отправителя по наличию ключа API.
func NewEmailSender(apiKey, from string) EmailSender {
	if apiKey == "" {
		logger.WithComponent("email").Warn("RESEND_API_KEY не задан, письма отправляться не будут")
		return noopSender{}
	}
	return NewResendSender(apiKey, from)
}

func (noopSender) Send(_ context.Context, to, subject, _ string) (string, error) {
	logger.WithComponent("email").WithFields(logrus.Fields{"to": to, "subject": subject}).Info("письмо пропущено")
	return "", nil
}

func renderEmail(title, body string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #333;">
	<h2>%s</h2>
	<p>%s</p>
	<p style="color: #999; font-size: 12px;">Это автоматическое сообщение, отвечать на него не нужно.</p>
</body>
</html>`, html.EscapeString(title), html.EscapeString(body))
}
