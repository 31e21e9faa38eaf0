package mailer

import (
	"fmt"
	"log"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// Mailer sends transactional mail through SendGrid. A nil *Mailer is a
// valid no-op collaborator; mail delivery is best effort and never decides
// the outcome of the request that triggered it.
type Mailer struct {
	apiKey   string
	from     string
	fromName string
}

func New(apiKey, from string) *Mailer {
	if apiKey == "" || from == "" {
		return nil
	}
	return &Mailer{apiKey: apiKey, from: from, fromName: "Storefront"}
}

func (m *Mailer) SendWelcome(to, name string) {
	if m == nil {
		return
	}
	body := fmt.Sprintf("Hi %s,\n\nYour account is ready. Happy shopping!", name)
	m.send(to, "Welcome to the store", body)
}

func (m *Mailer) SendOrderConfirmation(to, orderID string, total float64) {
	if m == nil {
		return
	}
	body := fmt.Sprintf("Thanks for your order.\n\nOrder: %s\nTotal: %.2f\n\nWe will let you know when it ships.", orderID, total)
	m.send(to, "Order confirmation", body)
}

func (m *Mailer) send(to, subject, body string) {
	from := mail.NewEmail(m.fromName, m.from)
	recipient := mail.NewEmail("", to)
	message := mail.NewSingleEmail(from, subject, recipient, body, fmt.Sprintf("<pre>%s</pre>", body))

	client := sendgrid.NewSendClient(m.apiKey)
	response, err := client.Send(message)
	if err != nil {
		log.Println("[MAIL] [ERROR] send failed:", err)
		return
	}
	if response.StatusCode >= 400 {
		log.Printf("[MAIL] [ERROR] send rejected: status=%d body=%s", response.StatusCode, response.Body)
	}
}
