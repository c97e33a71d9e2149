// Package mail sends the transactional mails of the shop. Every send is
// best-effort from the caller's point of view: a failed mail is logged and
// never fails an order.
package mail

import (
	"fmt"
	"strconv"

	"gopkg.in/gomail.v2"

	"github.com/fusionmarkt/shop/internal/models"
)

type Mailer interface {
	SendOrderConfirmation(order *models.Order, items []models.OrderItem, to, contractURL string) error
	SendAdminNewOrder(order *models.Order) error
}

type SMTPMailer struct {
	Host       string
	Port       int
	User       string
	Password   string
	From       string
	AdminEmail string
}

func NewSMTPMailer(host, port, user, password, from, adminEmail string) (*SMTPMailer, error) {
	p, err := strconv.Atoi(port)
	if err != nil {
		return nil, fmt.Errorf("mail: invalid SMTP port %q: %w", port, err)
	}
	return &SMTPMailer{
		Host:       host,
		Port:       p,
		User:       user,
		Password:   password,
		From:       from,
		AdminEmail: adminEmail,
	}, nil
}

func (m *SMTPMailer) send(msg *gomail.Message) error {
	d := gomail.NewDialer(m.Host, m.Port, m.User, m.Password)
	return d.DialAndSend(msg)
}

func (m *SMTPMailer) SendOrderConfirmation(order *models.Order, items []models.OrderItem, to, contractURL string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.From)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", fmt.Sprintf("Siparişiniz alındı: %s", order.OrderNumber))

	body := fmt.Sprintf("<h1>Siparişiniz için teşekkürler!</h1><p>Sipariş numaranız: <b>%s</b></p><ul>", order.OrderNumber)
	for _, it := range items {
		body += fmt.Sprintf("<li>%s × %d = %.2f TL</li>", it.Name, it.Quantity, it.Subtotal)
	}
	body += fmt.Sprintf("</ul><p>Toplam: <b>%.2f TL</b></p>", order.Total)
	if contractURL != "" {
		body += fmt.Sprintf(`<p><a href="%s">Sözleşme belgelerinizi görüntüleyin</a></p>`, contractURL)
	}
	msg.SetBody("text/html", body)

	return m.send(msg)
}

func (m *SMTPMailer) SendAdminNewOrder(order *models.Order) error {
	if m.AdminEmail == "" {
		return nil
	}
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.From)
	msg.SetHeader("To", m.AdminEmail)
	msg.SetHeader("Subject", fmt.Sprintf("Yeni sipariş: %s", order.OrderNumber))
	msg.SetBody("text/html", fmt.Sprintf(
		"<p>Sipariş No: %s</p><p>Tutar: %.2f TL</p><p>Ödeme: %s</p>",
		order.OrderNumber, order.Total, order.PaymentStatus,
	))
	return m.send(msg)
}
