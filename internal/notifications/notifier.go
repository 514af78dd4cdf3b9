// Package notifications registers device push tokens and sends the evening
// reminder for prompts that are still open.
package notifications

import (
	"context"
	"errors"
	"sort"

	"firebase.google.com/go/v4/messaging"
	"go.uber.org/zap"

	"io.winapps.meicho/internal/apperrors"
	"io.winapps.meicho/internal/metrics"
	models "io.winapps.meicho/internal/models/notifications"
)

const (
	kindDailyPrompt  = "daily_prompt"
	promptsChannelID = "prompts"
	reminderTitle    = "Daily Writing Prompt"
)

// Sender delivers one message. *messaging.Client satisfies it.
type Sender interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

type TokenStore interface {
	ActiveTokens(ctx context.Context, userIDs []string) ([]models.PushToken, error)
	Deactivate(ctx context.Context, token string) error
}

// isUnregistered reports a token the push service no longer accepts.
var isUnregistered = messaging.IsUnregistered

type Notifier struct {
	sender Sender
	tokens TokenStore
	logger *zap.SugaredLogger
}

func NewNotifier(sender Sender, tokens TokenStore, logger *zap.SugaredLogger) *Notifier {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Notifier{sender: sender, tokens: tokens, logger: logger}
}

// SendDailyPrompts pushes each owner's pending prompt to their registered device
// and returns how many messages were accepted.
func (n *Notifier) SendDailyPrompts(ctx context.Context, pending map[string]models.DailyPrompt) (int, error) {
	if len(pending) == 0 {
		return 0, nil
	}
	owners := make([]string, 0, len(pending))
	for owner := range pending {
		owners = append(owners, owner)
	}
	sort.Strings(owners)

	tokens, err := n.tokens.ActiveTokens(ctx, owners)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, t := range tokens {
		p, ok := pending[t.UserID]
		if !ok {
			continue
		}
		if err := n.send(ctx, t, p); err != nil {
			continue
		}
		sent++
	}
	return sent, nil
}

func (n *Notifier) send(ctx context.Context, t models.PushToken, p models.DailyPrompt) error {
	id, err := n.sender.Send(ctx, dailyPromptMessage(t.Token, p))
	if err == nil {
		metrics.RecordPush(kindDailyPrompt, "sent")
		n.logger.Infow("daily prompt sent", "user_uid", t.UserID, "message_id", id)
		return nil
	}

	if isUnregistered(err) {
		metrics.RecordPush(kindDailyPrompt, "unregistered")
		n.logger.Warnw("push token unregistered, deactivating", "user_uid", t.UserID)
		if derr := n.tokens.Deactivate(ctx, t.Token); derr != nil && !errors.Is(derr, apperrors.ErrNotFound) {
			n.logger.Errorw("failed to deactivate push token", "user_uid", t.UserID, "error", derr)
		}
		return err
	}

	metrics.RecordPush(kindDailyPrompt, "failed")
	n.logger.Errorw("failed to send daily prompt", "user_uid", t.UserID, "error", err)
	return err
}

func dailyPromptMessage(token string, p models.DailyPrompt) *messaging.Message {
	badge := 1
	return &messaging.Message{
		Token: token,
		Notification: &messaging.Notification{
			Title: reminderTitle,
			Body:  p.Prompt,
		},
		Data: p.Data(),
		Android: &messaging.AndroidConfig{
			Notification: &messaging.AndroidNotification{
				ChannelID: promptsChannelID,
				Priority:  messaging.PriorityHigh,
			},
		},
		APNS: &messaging.APNSConfig{
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					Alert: &messaging.ApsAlert{
						Title: reminderTitle,
						Body:  p.Prompt,
					},
					Sound: "default",
					Badge: &badge,
				},
			},
		},
	}
}
