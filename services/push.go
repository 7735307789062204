package services

import (
	"context"
	"fmt"
	"strings"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"healthwatch-server/config"
)

// PushDispatcher delivers one push message to one device token.
type PushDispatcher interface {
	Send(ctx context.Context, token, title, body string) (string, error)
}

// MessageSender is the part of *messaging.Client the dispatcher uses.
type MessageSender interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// FCMDispatcher sends through Firebase Cloud Messaging.
type FCMDispatcher struct {
	sender         MessageSender
	androidChannel string
	logger         *zap.Logger
}

// NewFCMDispatcher builds a Firebase messaging client from inline JSON or a
// credentials file. Without usable credentials it logs once and returns a
// DisabledDispatcher, so the rest of the process keeps running.
func NewFCMDispatcher(ctx context.Context, cfg config.PushConfig, logger *zap.Logger) PushDispatcher {
	var opt option.ClientOption
	switch {
	case strings.TrimSpace(cfg.CredentialsJSON) != "":
		opt = option.WithCredentialsJSON([]byte(cfg.CredentialsJSON))
	case strings.TrimSpace(cfg.CredentialsFile) != "":
		opt = option.WithCredentialsFile(cfg.CredentialsFile)
	default:
		logger.Warn("⚠️ Push disabled: no Firebase credentials configured",
			zap.Error(fmt.Errorf("%w: FIREBASE_CREDENTIALS and FIREBASE_CREDENTIALS_FILE are empty", ErrConfiguration)))
		return DisabledDispatcher{}
	}

	app, err := firebase.NewApp(ctx, nil, opt)
	if err != nil {
		logger.Warn("⚠️ Push disabled: Firebase app init failed",
			zap.Error(fmt.Errorf("%w: %v", ErrConfiguration, err)))
		return DisabledDispatcher{}
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		logger.Warn("⚠️ Push disabled: Firebase messaging init failed",
			zap.Error(fmt.Errorf("%w: %v", ErrConfiguration, err)))
		return DisabledDispatcher{}
	}

	logger.Info("✅ Firebase messaging ready")
	return NewFCMDispatcherWithSender(client, cfg.AndroidChannel, logger)
}

func NewFCMDispatcherWithSender(sender MessageSender, androidChannel string, logger *zap.Logger) *FCMDispatcher {
	return &FCMDispatcher{sender: sender, androidChannel: androidChannel, logger: logger}
}

// Send delivers a notification and returns the provider message id.
func (d *FCMDispatcher) Send(ctx context.Context, token, title, body string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrNoPushToken
	}

	id, err := d.sender.Send(ctx, d.buildMessage(token, title, body))
	if err != nil {
		return "", &PushDeliveryError{
			Token:        token,
			Unregistered: messaging.IsUnregistered(err),
			Err:          err,
		}
	}
	d.logger.Debug("📲 Push sent", zap.String("token", maskToken(token)), zap.String("message_id", id))
	return id, nil
}

func (d *FCMDispatcher) buildMessage(token, title, body string) *messaging.Message {
	return &messaging.Message{
		Token: token,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Android: &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				ChannelID: d.androidChannel,
				Sound:     "default",
			},
		},
		APNS: &messaging.APNSConfig{
			Headers: map[string]string{
				"apns-priority": "10",
			},
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					ContentAvailable: true,
					Sound:            "default",
				},
			},
		},
	}
}

// DisabledDispatcher stands in when push credentials are missing.
type DisabledDispatcher struct{}

func (DisabledDispatcher) Send(context.Context, string, string, string) (string, error) {
	return "", ErrPushDisabled
}
