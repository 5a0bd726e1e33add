package telegram

import (
	"context"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"

	"github.com/derixofficial/quacktv-games/internal/game"
)

// GroupRouter consumes group text and drives the active sessions.
type GroupRouter interface {
	HandleGroupMessage(ctx context.Context, groupID int64, sender game.Sender, text string)
}

// chatQueueDepth bounds the per-chat backlog. When a group's queue is
// full the update loop blocks on that group's queue only.
const chatQueueDepth = 64

// Bot runs the long-polling update loop and routes updates to the
// handler (commands, callbacks, private flows) or to the session router
// (group text). Group text is funnelled through one worker per chat so
// a slow group never delays another group's messages while keeping each
// group's messages in arrival order. Everything else runs in its own
// goroutine.
type Bot struct {
	api     *tgbotapi.BotAPI
	handler *Handler
	router  GroupRouter

	mu     sync.Mutex
	queues map[int64]chan tgbotapi.Update
	wg     sync.WaitGroup
}

func NewBot(api *tgbotapi.BotAPI, handler *Handler, r GroupRouter) *Bot {
	return &Bot{
		api:     api,
		handler: handler,
		router:  r,
		queues:  make(map[int64]chan tgbotapi.Update),
	}
}

// Start consumes updates until ctx is cancelled, then waits for the
// in-flight handlers and chat workers to drain.
func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	u.AllowedUpdates = []string{"message", "callback_query", "my_chat_member"}
	updates := b.api.GetUpdatesChan(u)

	log.Info().Str("username", b.api.Self.UserName).Msg("bot started")

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			b.wg.Wait()
			return
		case update, ok := <-updates:
			if !ok {
				b.wg.Wait()
				return
			}
			b.route(ctx, update)
		}
	}
}

// route hands the update off without doing any I/O on the loop
// goroutine. Plain group text goes to that chat's worker; commands,
// callbacks, membership updates and private text each get a goroutine.
func (b *Bot) route(ctx context.Context, update tgbotapi.Update) {
	if msg := update.Message; msg != nil && !msg.IsCommand() &&
		(msg.Chat.IsGroup() || msg.Chat.IsSuperGroup()) {
		b.enqueue(ctx, msg.Chat.ID, update)
		return
	}
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		b.dispatch(ctx, update)
	}()
}

func (b *Bot) enqueue(ctx context.Context, chatID int64, update tgbotapi.Update) {
	b.mu.Lock()
	q, ok := b.queues[chatID]
	if !ok {
		q = make(chan tgbotapi.Update, chatQueueDepth)
		b.queues[chatID] = q
		b.wg.Add(1)
		go b.chatWorker(ctx, q)
	}
	b.mu.Unlock()

	select {
	case q <- update:
	case <-ctx.Done():
	}
}

func (b *Bot) chatWorker(ctx context.Context, q <-chan tgbotapi.Update) {
	defer b.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case update := <-q:
			b.dispatch(ctx, update)
		}
	}
}

func (b *Bot) dispatch(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.MyChatMember != nil:
		b.handler.HandleMyChatMember(ctx, update.MyChatMember)
	case update.CallbackQuery != nil:
		b.handler.HandleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		b.dispatchMessage(ctx, update.Message)
	}
}

func (b *Bot) dispatchMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.IsCommand() {
		switch msg.Command() {
		case "start":
			b.handler.HandleStart(msg)
		case "guida":
			b.handler.HandleGuida(msg)
		case "indizio":
			b.handler.HandleIndizio(ctx, msg)
		case "classifica":
			b.handler.HandleClassifica(ctx, msg)
		case "stop":
			b.handler.HandleStop(ctx, msg)
		case "partite":
			b.handler.HandlePartite(ctx, msg)
		case "logs":
			b.handler.HandleLogs(ctx, msg)
		case "logspartite":
			b.handler.HandleLogsPartite(ctx, msg)
		case "annuncio":
			b.handler.HandleAnnuncio(msg)
		}
		return
	}

	if msg.Text == "" || msg.From == nil {
		return
	}
	switch {
	case msg.Chat.IsPrivate():
		b.handler.HandlePrivateMessage(ctx, msg)
	case msg.Chat.IsGroup() || msg.Chat.IsSuperGroup():
		sender := game.Sender{ID: msg.From.ID, Name: msg.From.FirstName}
		b.router.HandleGroupMessage(ctx, msg.Chat.ID, sender, msg.Text)
	}
}
