package services

import (
	"fmt"
	"log"
	"net/smtp"
	"time"

	"github.com/coursevault/api/config"
)

// EmailService sends transactional mail via SMTP. When SMTP is not
// configured every send degrades to a log line so flows that notify users
// never fail on mail.
type EmailService struct {
	host     string
	port     int
	username string
	password string
	from     string
}

// NewEmailService creates a new email service from the environment config
func NewEmailService(env *config.EnvironmentVariable) *EmailService {
	from := env.SMTP_FROM
	if from == "" {
		from = "noreply@coursevault.app"
	}

	return &EmailService{
		host:     env.SMTP_HOST,
		port:     env.SMTP_PORT,
		username: env.SMTP_USERNAME,
		password: env.SMTP_PASSWORD,
		from:     from,
	}
}

// IsConfigured checks if SMTP is properly configured
func (e *EmailService) IsConfigured() bool {
	return e.host != "" && e.username != "" && e.password != ""
}

func (e *EmailService) send(to, subject, body string) error {
	if !e.IsConfigured() {
		log.Printf("SMTP not configured. Would send %q to %s", subject, to)
		return nil
	}

	msg := []byte(fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=\"UTF-8\"\r\n\r\n%s\r\n",
		e.from, to, subject, body,
	))

	auth := smtp.PlainAuth("", e.username, e.password, e.host)
	addr := fmt.Sprintf("%s:%d", e.host, e.port)

	return smtp.SendMail(addr, auth, e.from, []string{to}, msg)
}

// SendEnrollmentEmail notifies a student that course access was granted
func (e *EmailService) SendEnrollmentEmail(toEmail, name, courseTitle string) error {
	body := fmt.Sprintf(
		"Hi %s,\n\nYou now have access to %q. Head to your dashboard to start learning.\n\n— CourseVault",
		name, courseTitle,
	)
	return e.send(toEmail, fmt.Sprintf("You're enrolled in %s", courseTitle), body)
}

// SendSessionReminderEmail notifies a student about an upcoming live session
func (e *EmailService) SendSessionReminderEmail(toEmail, name, sessionTitle string, startsAt time.Time) error {
	body := fmt.Sprintf(
		"Hi %s,\n\nA live session %q starts at %s. See you there.\n\n— CourseVault",
		name, sessionTitle, startsAt.Format("15:04 MST, 2 January 2006"),
	)
	return e.send(toEmail, fmt.Sprintf("Reminder: %s", sessionTitle), body)
}

// SendTicketReplyEmail notifies a student that a support ticket got a reply
func (e *EmailService) SendTicketReplyEmail(toEmail, name, reference string) error {
	body := fmt.Sprintf(
		"Hi %s,\n\nYour support ticket %s has a new reply. Log in to view it.\n\n— CourseVault",
		name, reference,
	)
	return e.send(toEmail, fmt.Sprintf("New reply on ticket %s", reference), body)
}
