package telegram

import tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

// Announcer adapts the bot API to the router's Notifier. Send failures
// are logged and swallowed: the game state behind an announcement is
// authoritative even when delivery fails.
type Announcer struct {
	Bot MessageSender
}

func (a *Announcer) Notify(groupID int64, text string) {
	sendMessage(a.Bot, tgbotapi.NewMessage(groupID, text))
}
