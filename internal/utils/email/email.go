package email

import (
	"fmt"
	"net/smtp"
	"strings"

	"github.com/jordan-wright/email"
	"github.com/sirupsen/logrus"
)

// Config holds SMTP settings
type Config struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

// Decision is the outcome an applicant is notified about
type Decision struct {
	ApplicantID    string
	Name           string
	LoanType       string
	LoanAmount     float64
	Status         string
	Score          int
	Recommendation string
	Issues         []string
}

// Sender handles sending emails via SMTP
type Sender struct {
	cfg    Config
	logger *logrus.Logger
	send   func(e *email.Email, addr string, auth smtp.Auth) error
}

// NewSender creates a new email sender
func NewSender(cfg Config, logger *logrus.Logger) *Sender {
	return &Sender{
		cfg:    cfg,
		logger: logger,
		send: func(e *email.Email, addr string, auth smtp.Auth) error {
			return e.Send(addr, auth)
		},
	}
}

// Enabled reports whether an SMTP host is configured
func (s *Sender) Enabled() bool {
	return s.cfg.Host != ""
}

// SendDecisionNotification tells the applicant the result of their evaluation
func (s *Sender) SendDecisionNotification(to string, d Decision) error {
	if !s.Enabled() {
		return nil
	}

	e := email.NewEmail()
	e.From = s.cfg.From
	e.To = []string{to}
	e.Subject = fmt.Sprintf("Your %s loan application: %s", d.LoanType, d.Status)

	var body strings.Builder
	fmt.Fprintf(&body, "Dear %s,\n\n", d.Name)
	fmt.Fprintf(&body, "Your application %s for a %s loan of %.2f has been evaluated.\n", d.ApplicantID, d.LoanType, d.LoanAmount)
	fmt.Fprintf(&body, "Status: %s\nEligibility score: %d/100\n%s.\n", d.Status, d.Score, d.Recommendation)
	if len(d.Issues) > 0 {
		body.WriteString("\nThe following points need attention:\n")
		for _, issue := range d.Issues {
			fmt.Fprintf(&body, "  - %s\n", issue)
		}
		body.WriteString("\nA loan officer will contact you to review your application.\n")
	}
	body.WriteString("\nBest regards,\nLoan Service")
	e.Text = []byte(body.String())

	addr := fmt.Sprintf("%s:%s", s.cfg.Host, s.cfg.Port)
	auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	if err := s.send(e, addr, auth); err != nil {
		s.logger.Errorf("Failed to send decision email to %s: %v", to, err)
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Infof("Email sent to %s: %s", to, e.Subject)
	return nil
}
