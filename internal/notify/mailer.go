package notify

import (
	"fmt"
	"net"
	"net/smtp"
	"time"

	"github.com/sony/gobreaker/v2"
)

// Sender delivers one confirmation message.
type Sender interface {
	Send(email, orderNumber string, total float64) error
}

// SMTPMailer sends the confirmation over SMTP, behind a circuit breaker so a
// dead mail server fails fast instead of piling up worker goroutines.
type SMTPMailer struct {
	addr    string // host:port
	from    string
	auth    smtp.Auth
	breaker *gobreaker.CircuitBreaker[any]
}

func NewSMTPMailer(addr, from, username, password string) *SMTPMailer {
	var auth smtp.Auth
	if username != "" {
		host, _, err := net.SplitHostPort(addr)
		if err != nil {
			host = addr
		}
		auth = smtp.PlainAuth("", username, password, host)
	}
	return &SMTPMailer{
		addr: addr,
		from: from,
		auth: auth,
		breaker: gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
			Name:    "smtp",
			Timeout: 30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
		}),
	}
}

func (m *SMTPMailer) Send(email, orderNumber string, total float64) error {
	msg := []byte(fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: Order Confirmation - %s\r\n\r\n"+
			"Thank you for your order!\r\n\r\n"+
			"Order Number: %s\r\nTotal Amount: $%.2f\r\n\r\n"+
			"Your order has been confirmed and will be processed shortly.\r\n\r\n"+
			"Thank you for shopping with us!\r\n",
		m.from, email, orderNumber, orderNumber, total))

	_, err := m.breaker.Execute(func() (any, error) {
		return nil, smtp.SendMail(m.addr, m.auth, m.from, []string{email}, msg)
	})
	return err
}
