package email

import (
	"fmt"
	"net/smtp"
	"time"

	"github.com/jordan-wright/email"
	"github.com/sirupsen/logrus"

	"github.com/rkamath/bank-office/internal/config"
	"github.com/rkamath/bank-office/internal/models"
)

// Sender emails customers about missed automatic payments. It satisfies the
// scheduler's notifier interface; sends run in the background so a slow SMTP
// server never stalls a clock advance.
type Sender struct {
	cfg *config.Config
	log *logrus.Logger
}

// NewSender creates a new email sender
func NewSender(cfg *config.Config, log *logrus.Logger) *Sender {
	return &Sender{cfg: cfg, log: log}
}

// PaymentMissed notifies the customer that a scheduled debit could not be
// applied and will be reattempted next cycle.
func (s *Sender) PaymentMissed(customer *models.Customer, kind models.EventKind, refID string, date time.Time) {
	e := email.NewEmail()
	e.From = s.cfg.SMTPFrom
	e.To = []string{customer.Email}

	switch kind {
	case models.EventLoanEMI:
		e.Subject = "Missed Loan Installment"
		e.Text = []byte(fmt.Sprintf(
			"Dear %s,\n\n"+
				"Your loan installment due on %s could not be collected due to insufficient funds.\n"+
				"A penalty has been applied and the installment will be reattempted next period.\n"+
				"\nBest regards,\nBank Office",
			customer.Name, date.Format("2006-01-02"),
		))
	default:
		e.Subject = "Missed Bill Payment"
		e.Text = []byte(fmt.Sprintf(
			"Dear %s,\n\n"+
				"A recurring bill payment due on %s could not be collected due to insufficient funds.\n"+
				"It will be reattempted on the next billing cycle.\n"+
				"\nBest regards,\nBank Office",
			customer.Name, date.Format("2006-01-02"),
		))
	}

	go func() {
		addr := fmt.Sprintf("%s:%s", s.cfg.SMTPHost, s.cfg.SMTPPort)
		auth := smtp.PlainAuth("", s.cfg.SMTPUser, s.cfg.SMTPPass, s.cfg.SMTPHost)
		if err := e.Send(addr, auth); err != nil {
			s.log.Errorf("Failed to send email to %s: %v", customer.Email, err)
			return
		}
		s.log.Infof("Email sent to %s: %s", customer.Email, e.Subject)
	}()
}
