package services

import (
	"fmt"

	"gopkg.in/gomail.v2"
)

// MailService delivers transactional email over SMTP.
type MailService struct {
	host     string
	port     int
	username string
	password string
	from     string
}

// NewMailService creates a new MailService.
func NewMailService(host string, port int, username, password, from string) *MailService {
	return &MailService{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
	}
}

// Send delivers an HTML email. The caller decides what a failure means;
// registration treats it as recoverable and falls back to resend.
func (s *MailService) Send(to, subject, htmlBody string) error {
	if s.host == "" {
		return fmt.Errorf("mail transport not configured")
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", htmlBody)

	d := gomail.NewDialer(s.host, s.port, s.username, s.password)
	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("mail delivery failed: %w", err)
	}
	return nil
}

// SendOTP emails a verification code. The code expires five minutes
// after issuance; the template says so.
func (s *MailService) SendOTP(to, code string) error {
	body := fmt.Sprintf(`
		<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
			<h2 style="text-align: center;">Verify Your Email</h2>
			<p style="text-align: center;">Use the verification code below to complete your registration.</p>
			<div style="text-align: center; margin: 30px 0;">
				<span style="padding: 15px 30px; font-size: 24px; font-weight: bold; letter-spacing: 5px;">%s</span>
			</div>
			<p style="text-align: center;">This code will expire in <strong>5 minutes</strong>.</p>
			<p style="font-size: 12px; text-align: center; color: #999;">If you didn't request this, please ignore this email.</p>
		</div>`, code)

	return s.Send(to, "Verify your email - UniMart", body)
}
