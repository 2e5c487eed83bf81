package mailer

import (
	"fmt"
	"strings"

	"ai-interview-be/internal/pkg/logger"

	"gopkg.in/gomail.v2"
)

const module = "Mailer"

type IEmailService interface {
	SendReportReady(toEmail string, score int, reportURL string) error
}

type Sender interface {
	DialAndSend(m ...*gomail.Message) error
}

type emailService struct {
	sender      Sender
	senderEmail string
	senderName  string
	logger      logger.ILogger
}

func NewEmailService(host string, port int, username, password, senderName string, log logger.ILogger) IEmailService {
	return NewEmailServiceWithSender(gomail.NewDialer(host, port, username, password), username, senderName, log)
}

func NewEmailServiceWithSender(sender Sender, senderEmail, senderName string, log logger.ILogger) IEmailService {
	return &emailService{
		sender:      sender,
		senderEmail: senderEmail,
		senderName:  senderName,
		logger:      log,
	}
}

func (s *emailService) SendReportReady(toEmail string, score int, reportURL string) error {
	if strings.TrimSpace(toEmail) == "" {
		return fmt.Errorf("missing recipient")
	}

	m := gomail.NewMessage()
	m.SetAddressHeader("From", s.senderEmail, s.senderName)
	m.SetHeader("To", toEmail)
	m.SetHeader("Subject", "Your interview report is ready")

	body := fmt.Sprintf(`
		<div style="font-family: Arial, sans-serif; padding: 20px; color: #333;">
			<h2>Your interview report is ready</h2>
			<p>Overall score:</p>
			<h1 style="color: #4CAF50;">%d / 100</h1>
			<a href="%s" style="background-color: #007BFF; color: white; padding: 10px 20px; text-decoration: none; border-radius: 5px; display: inline-block;">View Report</a>
			<p>Or copy this link:</p>
			<p>%s</p>
		</div>
	`, score, reportURL, reportURL)

	m.SetBody("text/html", body)

	if err := s.sender.DialAndSend(m); err != nil {
		s.logger.Error(module, "Failed to send report email", map[string]interface{}{
			"to":    toEmail,
			"error": err.Error(),
		})
		return err
	}

	s.logger.Info(module, "Report email sent", map[string]interface{}{"to": toEmail})
	return nil
}
