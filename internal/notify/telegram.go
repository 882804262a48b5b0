// Package notify escalates HIGH alerts to the on-call reviewer chat.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/go-telegram/bot"
	"golang.org/x/time/rate"

	"risk-service/internal/config"
	"risk-service/internal/logging"
	"risk-service/internal/models"
	"risk-service/internal/utils"
)

// Telegram sends alert escalations via go-telegram/bot. A single limiter
// keeps the service inside the Bot API rate budget.
type Telegram struct {
	token   string
	chatID  int64
	logger  *logging.Logger
	limiter *rate.Limiter
}

// NewTelegram builds the escalation notifier, or returns nil when no bot
// token is configured so callers can skip escalation entirely.
func NewTelegram(cfg config.Config, logger *logging.Logger) *Telegram {
	if cfg.Telegram.BotToken == "" || cfg.Telegram.OnCallChatID == 0 {
		return nil
	}
	return &Telegram{
		token:   cfg.Telegram.BotToken,
		chatID:  cfg.Telegram.OnCallChatID,
		logger:  logger,
		limiter: rate.NewLimiter(rate.Limit(1), 5),
	}
}

// EscalateHighAlert posts the alert to the on-call chat, retrying transient
// failures.
func (t *Telegram) EscalateHighAlert(ctx context.Context, alert models.Alert) error {
	if err := t.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("telegram rate limit wait: %w", err)
	}

	text := fmt.Sprintf(
		"*HIGH risk alert*\n"+
			"*Alert:* %s\n"+
			"*User:* %s\n"+
			"*Created:* %s\n\n"+
			"Review it in the dashboard and resolve with notes.",
		alert.ID,
		alert.UserID,
		alert.CreatedAt.Format(time.RFC3339),
	)

	return utils.Retry(t.logger, 3, time.Second, func() error {
		b, err := bot.New(t.token)
		if err != nil {
			return fmt.Errorf("failed to initialize Telegram bot: %w", err)
		}

		params := &bot.SendMessageParams{
			ChatID:    t.chatID,
			Text:      text,
			ParseMode: "Markdown",
		}
		if _, err := b.SendMessage(ctx, params); err != nil {
			return fmt.Errorf("failed to send Telegram message to chat_id %d: %w", t.chatID, err)
		}
		return nil
	})
}
