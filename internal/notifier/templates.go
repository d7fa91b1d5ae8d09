package notifier

import (
	"fmt"
	"html"

	"github.com/sudosos-ledger/internal/domain/account"
	"github.com/sudosos-ledger/internal/domain/event"
)

// render builds the notification for one recipient. ok is false for event
// types members are not mailed about.
func render(e *event.Event, to *account.Account) (m Mail, ok bool) {
	amount := ""
	if e.Amount != nil {
		amount = e.Amount.String()
	}

	switch e.Type {
	case event.TypeInvoiceCreated:
		m.Subject = fmt.Sprintf("Invoice #%d created", e.AggregateID)
		m.PlainText = fmt.Sprintf("An invoice of %s has been created for your account.", amount)
	case event.TypeInvoiceStateChanged:
		m.Subject = fmt.Sprintf("Invoice #%d is now %s", e.AggregateID, e.State)
		m.PlainText = fmt.Sprintf("The state of invoice #%d changed to %s.", e.AggregateID, e.State)
	case event.TypePayoutStatusChanged:
		m.Subject = fmt.Sprintf("Payout request #%d is now %s", e.AggregateID, e.State)
		m.PlainText = fmt.Sprintf("Your payout request #%d changed to %s.", e.AggregateID, e.State)
	case event.TypeWriteOffCreated:
		m.Subject = "Your balance has been written off"
		m.PlainText = fmt.Sprintf("A debt of %s has been written off and your account will be closed.", amount)
	default:
		return Mail{}, false
	}

	if e.Description != "" {
		m.PlainText += "\n\n" + e.Description
	}
	m.ToName = to.Name
	m.ToEmail = to.Email
	m.HTML = fmt.Sprintf("<p>Dear %s,</p><p>%s</p>", html.EscapeString(to.Name), html.EscapeString(m.PlainText))
	return m, true
}
