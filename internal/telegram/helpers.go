package telegram

import (
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"
)

func sendMessage(bot MessageSender, msg tgbotapi.Chattable) {
	if _, err := bot.Send(msg); err != nil {
		log.Warn().Err(err).Msg("failed to send message")
	}
}

func formatTS(ts time.Time) string {
	return ts.Format("2006-01-02 15:04:05")
}
