package telegram

import (
	"context"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/dustin/go-humanize"
	"golang.org/x/time/rate"

	"skymarshal/pkg/errors"
	"skymarshal/pkg/logger"
)

// Notifier pushes operational alerts to the duty managers' Telegram
// chats. Used only for escalations; routine completions stay on Kafka.
type Notifier struct {
	bot     *tgbotapi.BotAPI
	chatIDs []int64
	limiter *rate.Limiter
	log     *logger.Logger
}

// NewNotifier creates a Telegram notifier for the given ops chats
func NewNotifier(botToken string, chatIDs []int64) (*Notifier, error) {
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, errors.Wrap(err, "create telegram bot")
	}

	return &Notifier{
		bot:     bot,
		chatIDs: chatIDs,
		// Telegram allows ~30 msg/s per bot; stay far under it
		limiter: rate.NewLimiter(rate.Every(time.Second), 5),
		log:     logger.Get().With("component", "telegram_notifier"),
	}, nil
}

// Escalation describes an infeasible arbitration needing human action
type Escalation struct {
	RequestID string
	Prompt    string
	Reason    string
	Elapsed   time.Duration
}

// NotifyEscalation sends the escalation alert to every ops chat.
// Failures are logged per chat; one unreachable chat does not block the
// others.
func (n *Notifier) NotifyEscalation(ctx context.Context, esc Escalation) {
	text := fmt.Sprintf(
		"🚨 *Disruption escalation*\n\n"+
			"Request: `%s`\n"+
			"Disruption: %s\n\n"+
			"No safety\\-compliant recovery option found\\.\n"+
			"Reason: %s\n\n"+
			"Analyzed in %s\\. Human decision required\\.",
		esc.RequestID,
		escapeMarkdownV2(esc.Prompt),
		escapeMarkdownV2(esc.Reason),
		escapeMarkdownV2(humanize.RelTime(time.Now().Add(-esc.Elapsed), time.Now(), "", "")),
	)

	for _, chatID := range n.chatIDs {
		if err := n.limiter.Wait(ctx); err != nil {
			n.log.Warnf("Notification rate wait aborted: %v", err)
			return
		}

		msg := tgbotapi.NewMessage(chatID, text)
		msg.ParseMode = tgbotapi.ModeMarkdownV2

		if _, err := n.bot.Send(msg); err != nil {
			n.log.Warnf("Failed to notify chat %d: %v", chatID, err)
		}
	}
}

// escapeMarkdownV2 escapes Telegram MarkdownV2 reserved characters
func escapeMarkdownV2(s string) string {
	reserved := "_*[]()~`>#+-=|{}.!"
	out := make([]rune, 0, len(s))
	for _, r := range s {
		for _, res := range reserved {
			if r == res {
				out = append(out, '\\')
				break
			}
		}
		out = append(out, r)
	}
	return string(out)
}
