package announcer

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/animalitos/go/internal/display/events"
	"github.com/mcdev12/animalitos/go/internal/models"
)

// messageSender is the part of tgbotapi.BotAPI used here.
type messageSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramAnnouncer posts each revealed winner to a chat.
type TelegramAnnouncer struct {
	bot    messageSender
	chatID int64
	queue  chan models.DrawResult
}

// NewTelegramAnnouncer authorises the bot token.
func NewTelegramAnnouncer(token string, chatID int64) (*TelegramAnnouncer, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to authorise telegram bot: %w", err)
	}
	log.Info().Str("bot", bot.Self.UserName).Int64("chat_id", chatID).Msg("telegram announcer authorised")
	return newAnnouncer(bot, chatID), nil
}

func newAnnouncer(bot messageSender, chatID int64) *TelegramAnnouncer {
	return &TelegramAnnouncer{
		bot:    bot,
		chatID: chatID,
		queue:  make(chan models.DrawResult, 32),
	}
}

// Notify queues WinnerRevealed events; everything else is ignored.
func (a *TelegramAnnouncer) Notify(ev events.Event) {
	if ev.Type != events.EventTypeWinnerRevealed {
		return
	}
	payload, err := events.ParsePayload(ev)
	if err != nil {
		log.Error().Err(err).Str("event_id", ev.ID).Msg("failed to decode winner event")
		return
	}
	revealed := payload.(*events.WinnerRevealedPayload)

	select {
	case a.queue <- revealed.Result:
	default:
		log.Warn().Str("result", revealed.Result.IdentityKey()).Msg("announcement queue full, dropping")
	}
}

// Run sends queued announcements until ctx is cancelled.
func (a *TelegramAnnouncer) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case result := <-a.queue:
			a.announce(result)
		}
	}
}

func (a *TelegramAnnouncer) announce(result models.DrawResult) {
	msg := tgbotapi.NewMessage(a.chatID, FormatAnnouncement(result))
	if _, err := a.bot.Send(msg); err != nil {
		log.Error().Err(err).Str("result", result.IdentityKey()).Msg("failed to send telegram announcement")
		return
	}
	log.Info().Str("result", result.IdentityKey()).Msg("winner announced on telegram")
}

// FormatAnnouncement renders the chat text for a result.
func FormatAnnouncement(result models.DrawResult) string {
	label := result.ScheduleLabel
	if label == "" {
		label = result.ScheduledTime.String()
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Resultado del sorteo %s\n", label)
	if result.OutcomeCode != "" {
		fmt.Fprintf(&b, "%s - %s", result.OutcomeCode, result.OutcomeName)
	} else {
		b.WriteString(result.OutcomeName)
	}
	return b.String()
}
