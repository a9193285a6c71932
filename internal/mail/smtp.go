package mail

import (
	"context"
	"fmt"
	"strings"

	gomail "github.com/wneessen/go-mail"
)

// SMTPConfig holds SMTP connection parameters.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string // optional - some servers allow unauthenticated relay
	Password string // optional
	From     string
}

// SMTPSender implements Sender over SMTP using go-mail.
type SMTPSender struct {
	config SMTPConfig
}

// NewSMTPSender creates a new SMTP order-confirmation sender.
func NewSMTPSender(cfg SMTPConfig) *SMTPSender {
	return &SMTPSender{config: cfg}
}

// SendOrderConfirmation renders and delivers the confirmation message.
func (s *SMTPSender) SendOrderConfirmation(ctx context.Context, conf *OrderConfirmation) error {
	msg := gomail.NewMsg()

	if err := msg.From(s.config.From); err != nil {
		return fmt.Errorf("set from address: %w", err)
	}
	if err := msg.To(conf.RecipientEmail); err != nil {
		return fmt.Errorf("set recipient address: %w", err)
	}

	msg.Subject(fmt.Sprintf("Order confirmation %s", conf.OrderID))
	msg.SetBodyString(gomail.TypeTextPlain, renderConfirmation(conf))

	opts := []gomail.Option{
		gomail.WithPort(s.config.Port),
		gomail.WithTLSPolicy(gomail.TLSOpportunistic),
	}
	if s.config.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(s.config.Username),
			gomail.WithPassword(s.config.Password),
		)
	}

	client, err := gomail.NewClient(s.config.Host, opts...)
	if err != nil {
		return fmt.Errorf("create smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send confirmation: %w", err)
	}

	return nil
}

// renderConfirmation builds the plain-text message body.
func renderConfirmation(conf *OrderConfirmation) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Hi %s,\n\n", conf.RecipientName)
	fmt.Fprintf(&b, "Thanks for your order %s. Here is what you bought:\n\n", conf.OrderID)

	for _, item := range conf.Items {
		fmt.Fprintf(&b, "  %dx %s — %s\n", item.Quantity, item.Title, formatCents(item.Price*int64(item.Quantity)))
	}

	fmt.Fprintf(&b, "\nSubtotal: %s\n", formatCents(conf.SubtotalAmount))
	if conf.DiscountAmount > 0 {
		fmt.Fprintf(&b, "Discount (%s): -%s\n", conf.DiscountCode, formatCents(conf.DiscountAmount))
	}
	fmt.Fprintf(&b, "Total: %s\n", formatCents(conf.TotalAmount))

	return b.String()
}

// formatCents renders an amount in cents as a decimal string.
func formatCents(amount int64) string {
	return fmt.Sprintf("%d.%02d", amount/100, amount%100)
}
