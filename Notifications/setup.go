package Notifications

import (
	"context"
	"fmt"

	"ClinOps/Config"
	"ClinOps/Models"
	"ClinOps/Slack"

	firebase "firebase.google.com/go/v4"
	"go.uber.org/zap"
	"google.golang.org/api/option"
	"gorm.io/gorm"
)

// NewFromConfig builds a dispatcher with the database channel plus every
// external channel that has settings. A channel that fails to initialise is
// logged and left out.
func NewFromConfig(ctx context.Context, cfg *Config.Config, db *gorm.DB, log *zap.Logger) *Dispatcher {
	channels := []Channel{DBChannel{DB: db}}

	if client, err := Slack.NewClient(cfg.Slack.Token, cfg.Slack.ChannelID); err == nil {
		channels = append(channels, SlackChannel{Client: client})
	}

	if cfg.Firebase.CredentialsFile != "" {
		fcm, err := initFirebase(ctx, cfg.Firebase.CredentialsFile)
		if err != nil {
			log.Error("firebase disabled", zap.Error(err))
		} else {
			channels = append(channels, FCMChannel{Client: fcm, Topic: cfg.Firebase.Topic})
		}
	}

	if cfg.SMTP.Server != "" && len(cfg.SMTP.Recipients) > 0 {
		channels = append(channels, EmailChannel{
			Config: Models.EmailConfig{
				SMTPServer: cfg.SMTP.Server,
				SMTPPort:   cfg.SMTP.Port,
				Username:   cfg.SMTP.Username,
				Password:   cfg.SMTP.Password,
				FromEmail:  cfg.SMTP.FromEmail,
				FromName:   cfg.SMTP.FromName,
				TLSEnabled: cfg.SMTP.TLSEnabled,
			},
			Recipients: cfg.SMTP.Recipients,
		})
	}

	d := NewDispatcher(log, channels...)
	log.Info("notification channels ready", zap.Strings("channels", d.Channels()))
	return d
}

func initFirebase(ctx context.Context, credentialsFile string) (Messenger, error) {
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("error initializing Firebase app: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting Messaging client: %w", err)
	}
	return client, nil
}
