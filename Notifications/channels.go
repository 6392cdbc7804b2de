package Notifications

import (
	"context"
	"fmt"
	"strings"

	"ClinOps/DMBot"
	"ClinOps/Models"
	"ClinOps/Slack"
	"ClinOps/email"

	"firebase.google.com/go/v4/messaging"
	"gorm.io/gorm"
)

// DBChannel stores the notification so the recipient sees it in the app.
type DBChannel struct {
	DB *gorm.DB
}

func (DBChannel) Name() string { return "database" }

func (c DBChannel) Send(ctx context.Context, n DMBot.Notification) error {
	row := Models.Notification{
		Recipient: n.Recipient,
		Title:     n.Title,
		Body:      n.Message,
		Severity:  string(n.Severity),
		QueryID:   n.QueryID,
		StudyID:   n.StudyID,
	}
	return c.DB.WithContext(ctx).Create(&row).Error
}

type SlackChannel struct {
	Client *Slack.Client
}

func (SlackChannel) Name() string { return "slack" }

func (c SlackChannel) Send(ctx context.Context, n DMBot.Notification) error {
	text := fmt.Sprintf("*%s*\n%s\n_assignee: %s_", subject(n), n.Message, n.Recipient)
	_, err := c.Client.SendMessage(ctx, text)
	return err
}

// Messenger is the part of *messaging.Client the push channel uses.
type Messenger interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// FCMChannel publishes to a Firebase Cloud Messaging topic that the mobile
// app subscribes to.
type FCMChannel struct {
	Client Messenger
	Topic  string
}

func (FCMChannel) Name() string { return "fcm" }

func (c FCMChannel) Send(ctx context.Context, n DMBot.Notification) error {
	_, err := c.Client.Send(ctx, &messaging.Message{
		Topic: c.Topic,
		Data: map[string]string{
			"notification_id": n.ID,
			"query_id":        n.QueryID,
			"study_id":        n.StudyID,
			"recipient":       n.Recipient,
			"severity":        string(n.Severity),
		},
		Notification: &messaging.Notification{
			Title: subject(n),
			Body:  n.Message,
		},
		Android: &messaging.AndroidConfig{Priority: androidPriority(n.Severity)},
	})
	return err
}

func androidPriority(s DMBot.Severity) string {
	if s == DMBot.SeverityCritical || s == DMBot.SeverityHigh {
		return "high"
	}
	return "normal"
}

// EmailChannel mails the notification to a fixed distribution list.
type EmailChannel struct {
	Config     Models.EmailConfig
	Recipients []string
	// SendFunc defaults to email.SendEmail.
	SendFunc func(Models.EmailConfig, Models.EmailMessage) error
}

func (EmailChannel) Name() string { return "email" }

func (c EmailChannel) Send(_ context.Context, n DMBot.Notification) error {
	send := c.SendFunc
	if send == nil {
		send = email.SendEmail
	}
	return send(c.Config, Models.EmailMessage{
		To:      c.Recipients,
		Subject: subject(n),
		Body:    emailBody(n),
		IsHTML:  true,
	})
}

func emailBody(n DMBot.Notification) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<h3>%s</h3>", n.Title)
	fmt.Fprintf(&b, "<p>%s</p>", n.Message)
	b.WriteString("<ul>")
	if n.StudyID != "" {
		fmt.Fprintf(&b, "<li>Study: %s</li>", n.StudyID)
	}
	if n.QueryID != "" {
		fmt.Fprintf(&b, "<li>Query: %s</li>", n.QueryID)
	}
	fmt.Fprintf(&b, "<li>Assignee: %s</li>", n.Recipient)
	fmt.Fprintf(&b, "<li>Severity: %s</li>", n.Severity)
	b.WriteString("</ul>")
	return b.String()
}
