package mailer

import (
	"fmt"
	"log"
	"os"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// Mailer sends transactional mail. Delivery is best-effort everywhere
// it is used: a failed email never fails the request that triggered it.
type Mailer interface {
	SendWelcome(toEmail, name string) error
	SendOrderConfirmation(toEmail, name string, orderID int64, total float64) error
}

// SendGridMailer delivers through the SendGrid v3 API.
type SendGridMailer struct {
	client *sendgrid.Client
	sender string
}

// NewFromEnv builds a SendGrid mailer from SENDGRID_API_KEY and
// EMAIL_SENDER. Without an API key it falls back to a log-only mailer
// so local development does not need a SendGrid account.
func NewFromEnv() Mailer {
	apiKey := os.Getenv("SENDGRID_API_KEY")
	if apiKey == "" {
		log.Println("WARNING: SENDGRID_API_KEY not set, emails will be logged instead of sent")
		return LogMailer{}
	}
	sender := os.Getenv("EMAIL_SENDER")
	if sender == "" {
		sender = "no-reply@storefront.local"
	}
	return &SendGridMailer{
		client: sendgrid.NewSendClient(apiKey),
		sender: sender,
	}
}

func (m *SendGridMailer) send(toEmail, toName, subject, htmlContent string) error {
	from := mail.NewEmail("Storefront", m.sender)
	to := mail.NewEmail(toName, toEmail)
	message := mail.NewSingleEmail(from, subject, to, htmlContent, htmlContent)

	if _, err := m.client.Send(message); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

func (m *SendGridMailer) SendWelcome(toEmail, name string) error {
	htmlContent := fmt.Sprintf(
		"<strong>Hi %s,</strong><br><br>Your account is ready. Happy shopping!",
		name,
	)
	return m.send(toEmail, name, "Welcome to Storefront", htmlContent)
}

func (m *SendGridMailer) SendOrderConfirmation(toEmail, name string, orderID int64, total float64) error {
	htmlContent := fmt.Sprintf(
		"<strong>Dear %s,</strong><br><br>Thank you for your purchase! Your order #%d has been placed successfully.<br><br>Total: <strong>$%.2f</strong><br><br>Thank you for shopping with us!",
		name, orderID, total,
	)
	return m.send(toEmail, name, "Order Confirmation", htmlContent)
}

// LogMailer writes mail to the process log. Used when SendGrid is not
// configured and as a stand-in for tests.
type LogMailer struct{}

func (LogMailer) SendWelcome(toEmail, name string) error {
	log.Printf("mail (welcome) to=%s name=%s", toEmail, name)
	return nil
}

func (LogMailer) SendOrderConfirmation(toEmail, name string, orderID int64, total float64) error {
	log.Printf("mail (order confirmation) to=%s order=%d total=%.2f", toEmail, orderID, total)
	return nil
}
