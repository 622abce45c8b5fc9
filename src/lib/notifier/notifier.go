// Package notifier delivers engine notifications over the configured transports.
package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"eventadmission/src/config"
	"eventadmission/src/lib"
	awslib "eventadmission/src/lib/aws"
	"eventadmission/src/lib/mailer"
	"eventadmission/src/types"
	"fmt"
	"log"
	"os"
	"strconv"

	"gorm.io/gorm"
)

type Notifier interface {
	Notify(ctx context.Context, n types.Notification) error
}

type LogNotifier struct{}

func (LogNotifier) Notify(ctx context.Context, n types.Notification) error {
	log.Printf("[Notify] user=%d kind=%s payload=%v\n", n.UserID, n.Kind, n.Payload)
	return nil
}

// KafkaNotifier publishes to a topic keyed by user id, keeping each user's
// notifications on one partition.
type KafkaNotifier struct {
	ClientID string
	Topic    string
	produce  func(clientId, topic, key string, payload any) error
}

func NewKafkaNotifier(clientId, topic string) *KafkaNotifier {
	return &KafkaNotifier{ClientID: clientId, Topic: topic, produce: lib.KafkaProduceMessage}
}

func (k *KafkaNotifier) Notify(ctx context.Context, n types.Notification) error {
	return k.produce(k.ClientID, k.Topic, strconv.FormatUint(uint64(n.UserID), 10), n)
}

type SQSNotifier struct {
	Queue   string
	produce func(ctx context.Context, queue, body string) error
}

func NewSQSNotifier(queue string) *SQSNotifier {
	return &SQSNotifier{Queue: queue, produce: lib.SQSProduceMessage}
}

func (s *SQSNotifier) Notify(ctx context.Context, n types.Notification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return err
	}
	return s.produce(ctx, s.Queue, string(body))
}

type SNSNotifier struct {
	Topic   string
	publish func(ctx context.Context, topic, subject, message string) error
}

func NewSNSNotifier(topic string) *SNSNotifier {
	return &SNSNotifier{Topic: topic, publish: lib.SNSPublish}
}

func (s *SNSNotifier) Notify(ctx context.Context, n types.Notification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return err
	}
	return s.publish(ctx, s.Topic, string(n.Kind), string(body))
}

// AddressBook resolves the email address of a user. An empty address means the
// user cannot be mailed.
type AddressBook func(ctx context.Context, userID uint) (string, error)

// ContactEmails looks up the most recent contact email a user left on a registration.
func ContactEmails(d *gorm.DB) AddressBook {
	return func(ctx context.Context, userID uint) (string, error) {
		var emails []string
		err := d.WithContext(ctx).
			Table("registrations").
			Where("user_id = ? AND contact_email <> ''", userID).
			Order("updated_at DESC").
			Limit(1).
			Pluck("contact_email", &emails).
			Error
		if err != nil || len(emails) == 0 {
			return "", err
		}
		return emails[0], nil
	}
}

type MailNotifier struct {
	From      string
	FromName  string
	addresses AddressBook
	send      func(ctx context.Context, input *lib.SendMailInput) error
}

func NewMailNotifier(from, fromName string, addresses AddressBook, transport string) *MailNotifier {
	send := func(ctx context.Context, input *lib.SendMailInput) error {
		return lib.SendMail(input)
	}
	if transport == "ses" {
		send = awslib.SendMail
	}
	return &MailNotifier{From: from, FromName: fromName, addresses: addresses, send: send}
}

func (m *MailNotifier) Notify(ctx context.Context, n types.Notification) error {
	to := ""
	if email, ok := n.Payload["email"].(string); ok {
		to = email
	}
	if to == "" {
		addr, err := m.addresses(ctx, n.UserID)
		if err != nil {
			return err
		}
		to = addr
	}
	if to == "" {
		return nil
	}
	input, err := mailer.Compose(n, m.From, m.FromName, to)
	if err != nil {
		return err
	}
	return m.send(ctx, input)
}

// Multi fans a notification out to every transport. It fails only when all of them fail.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, n types.Notification) error {
	var errs []error
	for _, t := range m {
		if err := t.Notify(ctx, n); err != nil {
			errs = append(errs, fmt.Errorf("%T: %w", t, err))
		}
	}
	if len(errs) > 0 && len(errs) == len(m) {
		return errors.Join(errs...)
	}
	for _, err := range errs {
		log.Printf("[Notify] Partial delivery of %s to user %d: %s\n", n.Kind, n.UserID, err.Error())
	}
	return nil
}

// FromChannels builds the notifier for a NOTIFY_CHANNELS list. Unknown names are skipped.
func FromChannels(channels []string, d *gorm.DB) Multi {
	m := Multi{}
	for _, c := range channels {
		switch c {
		case "log":
			m = append(m, LogNotifier{})
		case "kafka":
			m = append(m, NewKafkaNotifier("notifications", config.EnvString("NOTIFY_KAFKA_TOPIC", "notifications")))
		case "sqs":
			m = append(m, NewSQSNotifier(config.EnvString("NOTIFY_QUEUE", "Notifications")))
		case "sns":
			m = append(m, NewSNSNotifier(config.EnvString("NOTIFY_TOPIC", "Notifications")))
		case "mail":
			m = append(m, NewMailNotifier(
				os.Getenv("MAIL_FROM"),
				os.Getenv("MAIL_FROM_NAME"),
				ContactEmails(d),
				os.Getenv("MAIL_TRANSPORT"),
			))
		default:
			log.Printf("[Notify] Unknown channel %q ignored\n", c)
		}
	}
	if len(m) == 0 {
		m = append(m, LogNotifier{})
	}
	return m
}
