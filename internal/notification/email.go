package notification

import (
	"fmt"
	"net/smtp"
	"time"
)

type EmailConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
	FromName string
}

type EmailService struct {
	config EmailConfig
}

func NewEmailService(config EmailConfig) *EmailService {
	return &EmailService{config: config}
}

func (s *EmailService) SendAppointmentReminder(to, patientName, doctorName string, scheduledAt time.Time) error {
	subject := "Appointment Reminder"
	body := fmt.Sprintf(`<html><body>
		<h2>Appointment Reminder</h2>
		<p>Dear %s,</p>
		<p>This is a reminder of your appointment with Dr. %s on %s.</p>
		<p>Please arrive 10 minutes early. Reply to this email or call the clinic to reschedule.</p>
	</body></html>`, patientName, doctorName, scheduledAt.Format("Monday, 2 January 2006 at 15:04"))
	return s.sendEmail(to, subject, body)
}

func (s *EmailService) SendInvoiceReceipt(to, patientName string, invoiceTotal int64, downloadURL string) error {
	subject := "Your Clinic Invoice"
	body := fmt.Sprintf(`<html><body>
		<h2>Invoice Receipt</h2>
		<p>Dear %s,</p>
		<p>Your invoice total is %d.%02d.</p>
		<p><a href="%s">Download your invoice</a></p>
		<p>This link will expire in 24 hours.</p>
	</body></html>`, patientName, invoiceTotal/100, invoiceTotal%100, downloadURL)
	return s.sendEmail(to, subject, body)
}

func (s *EmailService) sendEmail(to, subject, body string) error {
	from := s.config.From
	if s.config.FromName != "" {
		from = fmt.Sprintf("%s <%s>", s.config.FromName, s.config.From)
	}

	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=UTF-8\r\n\r\n%s",
		from, to, subject, body)

	auth := smtp.PlainAuth("", s.config.User, s.config.Password, s.config.Host)
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	return smtp.SendMail(addr, auth, s.config.From, []string{to}, []byte(msg))
}
