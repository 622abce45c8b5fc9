// Package mailer turns engine notifications into emails.
package mailer

import (
	"bytes"
	"eventadmission/src/lib"
	"eventadmission/src/types"
	"eventadmission/src/utils"
	"fmt"
	"text/template"
)

type mailTemplate struct {
	subject string
	body    *template.Template
}

var funcs = template.FuncMap{
	"money": func(amount any, currency any) string {
		n, _ := amount.(int64)
		if f, ok := amount.(float64); ok {
			n = int64(f)
		}
		c, _ := currency.(string)
		return utils.FormatMoney(n, c)
	},
}

func tpl(subject, body string) mailTemplate {
	return mailTemplate{
		subject: subject,
		body:    template.Must(template.New(subject).Funcs(funcs).Parse(body)),
	}
}

var templates = map[types.NotificationKind]mailTemplate{
	types.NOTIFY_REGISTRATION_APPROVED: tpl("You're in",
		"Your registration #{{.registration_id}} for event #{{.event_id}} has been approved."),
	types.NOTIFY_REGISTRATION_WAITLISTED: tpl("You're on the waitlist",
		"Event #{{.event_id}} is full. Registration #{{.registration_id}} is waitlisted and will be admitted automatically when a seat frees up."),
	types.NOTIFY_REGISTRATION_PROMOTED: tpl("A seat opened up",
		"Good news: registration #{{.registration_id}} for event #{{.event_id}} moved off the waitlist and is now approved."),
	types.NOTIFY_REGISTRATION_REJECTED: tpl("Registration update",
		"Registration #{{.registration_id}} for event #{{.event_id}} was not approved."),
	types.NOTIFY_REGISTRATION_CANCELLED: tpl("Registration cancelled",
		"Registration #{{.registration_id}} for event #{{.event_id}} has been cancelled."),
	types.NOTIFY_ORDER_PAID: tpl("Payment received",
		"We received {{money .amount .currency}} for order #{{.order_id}}."),
	types.NOTIFY_ORDER_EXPIRED: tpl("Order expired",
		"Order #{{.order_id}} was not paid in time and its tickets were released."),
	types.NOTIFY_REFUND_COMPLETED: tpl("Refund completed",
		"{{money .amount .currency}} for order #{{.order_id}} has been refunded."),
	types.NOTIFY_VOLUNTEER_APPROVED: tpl("Volunteer application approved",
		"Your application #{{.volunteer_registration_id}} for event #{{.event_id}} has been approved."),
	types.NOTIFY_VOLUNTEER_REJECTED: tpl("Volunteer application update",
		"Your application #{{.volunteer_registration_id}} for event #{{.event_id}} was not approved."),
	types.NOTIFY_CP_AWARDED: tpl("Contribution points awarded",
		"You earned {{.amount}} CP for volunteering (application #{{.volunteer_registration_id}})."),
	types.NOTIFY_EVENT_CANCELLED: tpl("Event cancelled",
		"Event #{{.event_id}} has been cancelled. Any payment will be refunded."),
}

// Compose renders the mail for a notification. Kinds without a template are an error.
func Compose(n types.Notification, from, fromName, to string) (*lib.SendMailInput, error) {
	t, ok := templates[n.Kind]
	if !ok {
		return nil, fmt.Errorf("no mail template for %s", n.Kind)
	}
	var body bytes.Buffer
	data := map[string]any(n.Payload)
	if data == nil {
		data = map[string]any{}
	}
	if err := t.body.Execute(&body, data); err != nil {
		return nil, err
	}
	return &lib.SendMailInput{
		From:     from,
		FromName: fromName,
		To:       []string{to},
		Subject:  t.subject,
		Body:     body.String(),
	}, nil
}
