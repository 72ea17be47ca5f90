package notification

import (
	"context"
	"fmt"

	"firebase.google.com/go/v4/messaging"
	gomail "gopkg.in/gomail.v2"
)

// FCMPusher sends through Firebase Cloud Messaging.
type FCMPusher struct {
	client *messaging.Client
}

func NewFCMPusher(client *messaging.Client) *FCMPusher {
	return &FCMPusher{client: client}
}

func (p *FCMPusher) SendToTopic(ctx context.Context, topic, title, body string, data map[string]string) error {
	msg := &messaging.Message{
		Topic: topic,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: data,
		Android: &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				ChannelID: "high_priority",
				Sound:     "default",
			},
		},
		APNS: &messaging.APNSConfig{
			Headers: map[string]string{
				"apns-priority":  "10",
				"apns-push-type": "alert",
			},
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					Sound: "default",
				},
			},
		},
	}
	if _, err := p.client.Send(ctx, msg); err != nil {
		return fmt.Errorf("SendToTopic: failed to send FCM message: %w", err)
	}
	return nil
}

func (p *FCMPusher) SubscribeToTopic(ctx context.Context, tokens []string, topic string) error {
	resp, err := p.client.SubscribeToTopic(ctx, tokens, topic)
	if err != nil {
		return fmt.Errorf("SubscribeToTopic: %w", err)
	}
	if resp.FailureCount > 0 && len(resp.Errors) > 0 {
		return fmt.Errorf("SubscribeToTopic: %d token(s) rejected: %s", resp.FailureCount, resp.Errors[0].Reason)
	}
	return nil
}

// SMTPMailer sends plain-text mail with gomail.
type SMTPMailer struct {
	dialer *gomail.Dialer
	from   string
}

func NewSMTPMailer(host string, port int, username, password, from string) *SMTPMailer {
	return &SMTPMailer{
		dialer: gomail.NewDialer(host, port, username, password),
		from:   from,
	}
}

func (m *SMTPMailer) Send(to, subject, body string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}
