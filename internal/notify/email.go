package notify

import (
	"fmt"
	"net/smtp"
	"strings"

	"spendsmart/internal/amqp"
	"spendsmart/internal/core"
)

// Notifier delivers budget alerts to the account owner
type Notifier interface {
	SendBudgetAlert(msg *amqp.BudgetAlertMessage) error
}

// EmailNotifier sends budget alerts over SMTP
type EmailNotifier struct {
	host string
	port int
	user string
	pass string
	from string
	to   string
}

func NewEmailNotifier(host string, port int, user, pass, from, to string) *EmailNotifier {
	return &EmailNotifier{
		host: host,
		port: port,
		user: user,
		pass: pass,
		from: from,
		to:   to,
	}
}

// SendBudgetAlert emails a plain-text alert describing the budget state
func (n *EmailNotifier) SendBudgetAlert(msg *amqp.BudgetAlertMessage) error {
	subject := fmt.Sprintf("Budget alert: %.0f%% of monthly budget spent", msg.SpentPct)
	if msg.Status == "exceeded" {
		subject = "Budget alert: monthly budget exceeded"
	}

	body := buildAlertBody(msg)

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", n.from)
	fmt.Fprintf(&b, "To: %s\r\n", n.to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)

	addr := fmt.Sprintf("%s:%d", n.host, n.port)
	var auth smtp.Auth
	if n.user != "" {
		auth = smtp.PlainAuth("", n.user, n.pass, n.host)
	}

	if err := smtp.SendMail(addr, auth, n.from, []string{n.to}, []byte(b.String())); err != nil {
		return fmt.Errorf("send alert mail: %w", err)
	}
	return nil
}

func buildAlertBody(msg *amqp.BudgetAlertMessage) string {
	spent := core.Money{Cents: msg.SpentCents}
	budget := core.Money{Cents: msg.BudgetCents}

	var b strings.Builder
	fmt.Fprintf(&b, "Spending update for %s\n\n", msg.Month)
	fmt.Fprintf(&b, "Spent:     %s\n", spent.String())
	fmt.Fprintf(&b, "Budget:    %s\n", budget.String())
	fmt.Fprintf(&b, "Used:      %.1f%%\n", msg.SpentPct)
	fmt.Fprintf(&b, "Threshold: %d%%\n\n", msg.Threshold)

	if msg.Status == "exceeded" {
		remaining := core.Money{Cents: msg.SpentCents - msg.BudgetCents}
		fmt.Fprintf(&b, "You are %s over budget this month.\n", remaining.String())
	} else {
		remaining := core.Money{Cents: msg.BudgetCents - msg.SpentCents}
		fmt.Fprintf(&b, "You have %s left this month.\n", remaining.String())
	}
	return b.String()
}
