// Package services содержит отправку писем пользователям по сообщениям из очереди.
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/magabrotheeeer/gym-management/internal/lib/sl"
	"github.com/magabrotheeeer/gym-management/internal/lib/smtp"
	"github.com/magabrotheeeer/gym-management/internal/models"
)

// SenderService отправляет письма через SMTP.
type SenderService struct {
	transport smtp.TransportInterface
	log       *slog.Logger
}

// NewSenderService создает новый экземпляр SenderService.
func NewSenderService(transport smtp.TransportInterface, log *slog.Logger) *SenderService {
	return &SenderService{
		transport: transport,
		log:       log,
	}
}

// SendMembershipExpiring отправляет напоминание о том, что абонемент
// заканчивается завтра. Подходит как обработчик очереди.
func (s *SenderService) SendMembershipExpiring(_ context.Context, body []byte) error {
	const op = "services.sender.SendMembershipExpiring"
	var message models.MembershipReminder
	if err := json.Unmarshal(body, &message); err != nil {
		s.log.Error("failed to unmarshal message body", sl.Err(err))
		return fmt.Errorf("%s: error unmarshalling message: %w", op, err)
	}
	if message.Email == "" {
		// адреса нет, повтор ничего не изменит
		s.log.Warn("reminder without email skipped", slog.Int64("user_id", message.UserID))
		return nil
	}

	plan := message.PlanName
	if plan == "" {
		plan = "абонемент"
	}
	subject := "Ваш абонемент заканчивается завтра"
	bodyText := fmt.Sprintf("Здравствуйте, %s!\n\nВаш %s действует до %s включительно.\n\nПродлите его заранее, чтобы не пропустить занятия.",
		message.Username, plan, message.MembershipEnd.Format("02.01.2006"))

	if err := s.sendEmail([]string{message.Email}, subject, bodyText); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *SenderService) sendEmail(to []string, subject, bodyText string) error {
	from := s.transport.GetSMTPUser()
	msg := strings.Join([]string{
		"From: " + from,
		"To: " + strings.Join(to, ";"),
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"UTF-8\"",
		"",
		bodyText,
	}, "\r\n")

	client, err := s.transport.Connect()
	if err != nil {
		s.log.Error("failed to connect to SMTP server", sl.Err(err))
		return err
	}
	defer client.Close()

	if err := client.Mail(from); err != nil {
		s.log.Error("failed to set MAIL FROM", slog.String("from", from), sl.Err(err))
		return err
	}
	for _, addr := range to {
		if err := client.Rcpt(addr); err != nil {
			s.log.Error("failed to set RCPT TO", slog.String("recipient", addr), sl.Err(err))
			return err
		}
	}

	wc, err := client.Data()
	if err != nil {
		s.log.Error("failed to get Data writer", sl.Err(err))
		return err
	}
	if _, err := wc.Write([]byte(msg)); err != nil {
		s.log.Error("failed to write email body", sl.Err(err))
		return err
	}
	if err := wc.Close(); err != nil {
		s.log.Error("failed to close Data writer", sl.Err(err))
		return err
	}
	if err := client.Quit(); err != nil {
		s.log.Error("failed to quit SMTP client", sl.Err(err))
		return err
	}

	s.log.Info("email sent", slog.Any("to", to))
	return nil
}
