package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"

	"github.com/derixofficial/quacktv-games/internal/config"
	"github.com/derixofficial/quacktv-games/internal/game"
	"github.com/derixofficial/quacktv-games/internal/scoring"
	"github.com/derixofficial/quacktv-games/internal/storage"
)

const (
	logsPerPage  = 10
	gamesPerPage = 8
	boardLimit   = 20
)

// MessageSender is the outbound half of the bot API.
type MessageSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// ChatAPI adds the chat lookups the handlers need on top of sending.
type ChatAPI interface {
	MessageSender
	GetMe() (tgbotapi.User, error)
	GetChat(config tgbotapi.ChatInfoConfig) (tgbotapi.Chat, error)
	GetChatAdministrators(config tgbotapi.ChatAdministratorsConfig) ([]tgbotapi.ChatMember, error)
}

// GameService is the session-engine surface the transport uses.
type GameService interface {
	Create(ctx context.Context, groupID, adminID int64, typ game.Type, secret string) (*storage.Game, error)
	Stop(ctx context.Context, gameID string, requesterID int64, requesterIsAuthorized bool) (*storage.Game, error)
	Lookup(ctx context.Context, gameID string) (*storage.Game, error)
}

// ScoreService is the ledger surface the transport uses.
type ScoreService interface {
	Leaderboard(ctx context.Context, groupID int64, limit int) ([]storage.Score, error)
	WeeklyChampion(ctx context.Context, now time.Time) (*scoring.Champion, error)
}

// Directory is the gateway slice for group/log/game listings.
type Directory interface {
	UpsertGroup(ctx context.Context, id int64, title string) error
	ListGroups(ctx context.Context) ([]storage.Group, error)
	ActiveGames(ctx context.Context) ([]storage.Game, error)
	ListGames(ctx context.Context, limit, offset int) ([]storage.Game, error)
	ListLogs(ctx context.Context, limit, offset int) ([]storage.LogEntry, error)
	AppendLog(ctx context.Context, eventType, text string, data any) error
	PruneMessagesBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type Handler struct {
	Bot     ChatAPI
	Games   GameService
	Scores  ScoreService
	Dir     Directory
	Cfg     *config.Config
	pending *pendingStore
}

func NewHandler(bot ChatAPI, games GameService, scores ScoreService, dir Directory, cfg *config.Config) *Handler {
	return &Handler{
		Bot:     bot,
		Games:   games,
		Scores:  scores,
		Dir:     dir,
		Cfg:     cfg,
		pending: newPendingStore(defaultPendingTTL),
	}
}

// HandleStart - /start
func (h *Handler) HandleStart(msg *tgbotapi.Message) {
	if !msg.Chat.IsPrivate() {
		sendMessage(h.Bot, tgbotapi.NewMessage(msg.Chat.ID,
			"Ciao! Aggiungimi in privato per le istruzioni: scrivi /start in privato."))
		return
	}

	inviteURL := "https://t.me/"
	if me, err := h.Bot.GetMe(); err == nil {
		inviteURL = fmt.Sprintf("https://t.me/%s?startgroup=true", me.UserName)
	}
	text := fmt.Sprintf(
		"🤖✨ Ciao %s! Sono QuackTV Games, il tuo compagno di giochi per gruppo!\n\n"+
			"Aggiungimi a un gruppo per iniziare a giocare e creare partite con i tuoi amici! 🎉🎮\n\n"+
			"Usa i pulsanti qui sotto per invitarmi o per configurare un gruppo dove vuoi giocare.",
		msg.From.FirstName)
	reply := tgbotapi.NewMessage(msg.Chat.ID, text)
	reply.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonURL("➕ Aggiungimi al gruppo!", inviteURL)),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("▶️ Inizia a giocare!", "inicia_start")),
	)
	sendMessage(h.Bot, reply)
}

// HandleMyChatMember stores the group when the bot is added to it.
func (h *Handler) HandleMyChatMember(ctx context.Context, upd *tgbotapi.ChatMemberUpdated) {
	me, err := h.Bot.GetMe()
	if err != nil || upd.NewChatMember.User == nil || upd.NewChatMember.User.ID != me.ID {
		return
	}
	log.Info().Int64("group_id", upd.Chat.ID).Str("status", upd.NewChatMember.Status).Msg("bot status changed in chat")
	if err := h.Dir.UpsertGroup(ctx, upd.Chat.ID, upd.Chat.Title); err != nil {
		log.Error().Err(err).Int64("group_id", upd.Chat.ID).Msg("store group failed")
		return
	}
	sendMessage(h.Bot, tgbotapi.NewMessage(upd.Chat.ID,
		"Ciao! Mettimi Amministratore per far sì che tutto funzioni correttamente! 🙏"))
	h.logEvent(ctx, "bot_added", fmt.Sprintf("Bot added to group %d", upd.Chat.ID),
		map[string]any{"title": upd.Chat.Title})
}

// HandleCallback routes inline-keyboard presses.
func (h *Handler) HandleCallback(ctx context.Context, q *tgbotapi.CallbackQuery) {
	if _, err := h.Bot.Request(tgbotapi.NewCallback(q.ID, "")); err != nil {
		log.Warn().Err(err).Msg("answer callback failed")
	}
	data := q.Data

	switch {
	case data == "inicia_start":
		h.showGroupPicker(ctx, q)
	case strings.HasPrefix(data, "select_group:"):
		h.showGameMenu(q)
	case strings.HasPrefix(data, "game:start:"):
		h.startSetupFlow(q)
	case data == "cancel":
		h.editText(q, "Operazione annullata.")
	case strings.HasPrefix(data, "logs:"):
		h.showLogsPage(ctx, q)
	case strings.HasPrefix(data, "logspartite:"):
		h.showGamesPage(ctx, q)
	}
}

func (h *Handler) showGroupPicker(ctx context.Context, q *tgbotapi.CallbackQuery) {
	groups, err := h.Dir.ListGroups(ctx)
	if err != nil {
		log.Error().Err(err).Msg("list groups failed")
		h.editText(q, "Errore nel recupero dei gruppi.")
		return
	}

	var rows [][]tgbotapi.InlineKeyboardButton
	for _, g := range groups {
		if !h.isGroupAdmin(g.ID, q.From.ID) {
			continue
		}
		label := g.Title
		if label == "" {
			label = strconv.FormatInt(g.ID, 10)
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, fmt.Sprintf("select_group:%d", g.ID))))
	}
	if len(rows) == 0 {
		h.editText(q, "Non risultano gruppi configurati in cui sei admin. Assicurati di avere aggiunto il bot al gruppo.")
		return
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("🔙 Annulla", "cancel")))

	h.editTextAndMarkup(q, "Seleziona il gruppo su cui vuoi iniziare a giocare:",
		tgbotapi.NewInlineKeyboardMarkup(rows...))
}

func (h *Handler) showGameMenu(q *tgbotapi.CallbackQuery) {
	gid, ok := parseGroupID(q.Data, "select_group:")
	if !ok {
		return
	}
	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("🕵️ Indovina Chi", fmt.Sprintf("game:start:%s:%d", game.TypeGuessWho, gid))),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("🔤 Parole a Blocchi", fmt.Sprintf("game:start:%s:%d", game.TypeWordBlocks, gid))),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("⚡ Fast Game", fmt.Sprintf("game:start:%s:%d", game.TypeFastGame, gid))),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("🔙 Indietro", "inicia_start")),
	)
	h.editTextAndMarkup(q, "Scegli il gioco:", kb)
}

func (h *Handler) startSetupFlow(q *tgbotapi.CallbackQuery) {
	parts := strings.Split(q.Data, ":")
	if len(parts) != 4 {
		return
	}
	typ, ok := game.ParseType(parts[2])
	if !ok {
		return
	}
	gid, err := strconv.ParseInt(parts[3], 10, 64)
	if err != nil {
		return
	}

	h.pending.Put(q.From.ID, pendingAction{Kind: actionSetWord, GameType: typ, GroupID: gid})

	private := tgbotapi.NewMessage(q.From.ID,
		fmt.Sprintf("Hai scelto *%s*. Inviami la parola segreta in questa chat privata.", typ))
	private.ParseMode = tgbotapi.ModeMarkdown
	sendMessage(h.Bot, private)
	h.editText(q, "Controlla la tua chat privata per continuare.")
}

// HandlePrivateMessage advances the requester's pending private flow.
func (h *Handler) HandlePrivateMessage(ctx context.Context, msg *tgbotapi.Message) {
	action, ok := h.pending.Get(msg.From.ID)
	if !ok {
		sendMessage(h.Bot, tgbotapi.NewMessage(msg.Chat.ID, "Nessuna azione in corso. Usa /start per iniziare."))
		return
	}

	switch action.Kind {
	case actionSetWord:
		h.finishSetupFlow(ctx, msg, action)
	case actionAnnuncio:
		h.finishAnnuncioFlow(ctx, msg)
	default:
		sendMessage(h.Bot, tgbotapi.NewMessage(msg.Chat.ID, "Azione non riconosciuta. Usa /start per ricominciare."))
	}
}

func (h *Handler) finishSetupFlow(ctx context.Context, msg *tgbotapi.Message, action pendingAction) {
	g, err := h.Games.Create(ctx, action.GroupID, msg.From.ID, action.GameType, msg.Text)
	if err != nil {
		log.Error().Err(err).Int64("group_id", action.GroupID).Msg("create game failed")
		sendMessage(h.Bot, tgbotapi.NewMessage(msg.Chat.ID, "Errore nella creazione della partita. Riprova."))
		return
	}
	h.pending.Delete(msg.From.ID)

	var reply string
	switch action.GameType {
	case game.TypeGuessWho:
		announce := tgbotapi.NewMessage(g.GroupID, fmt.Sprintf("🔔 Nuova partita di Indovina Chi! Gli indizi verranno pubblicati durante la partita.\nID Partita: %s", g.ID))
		if sent, err := h.Bot.Send(announce); err != nil {
			log.Warn().Err(err).Msg("failed to send message")
		} else {
			h.pinAndUnpin(g.GroupID, sent.MessageID)
		}
		reply = "Partita Iniziata! Digita /guida per visualizzare tutte le informazioni riguardo le partite!"
	case game.TypeFastGame:
		announce := tgbotapi.NewMessage(g.GroupID, "⚡ Fast Game iniziato! Primo che scrive la parola vince. Parola: *?*")
		announce.ParseMode = tgbotapi.ModeMarkdown
		sendMessage(h.Bot, announce)
		reply = "Fast Game iniziato!"
	case game.TypeWordBlocks:
		sendMessage(h.Bot, tgbotapi.NewMessage(g.GroupID, fmt.Sprintf("🔤 Partita di Parole a Blocchi iniziata: %s", g.Display)))
		reply = "Partita Parole a Blocchi iniziata!"
	}
	sendMessage(h.Bot, tgbotapi.NewMessage(msg.Chat.ID, reply))
}

// pinAndUnpin pins the announcement silently, then removes the pin so the
// group keeps only the "pinned a message" service entry. Failures are
// ignored: the bot may lack pin rights in the group.
func (h *Handler) pinAndUnpin(chatID int64, messageID int) {
	pin := tgbotapi.PinChatMessageConfig{ChatID: chatID, MessageID: messageID, DisableNotification: true}
	if _, err := h.Bot.Request(pin); err != nil {
		return
	}
	if _, err := h.Bot.Request(tgbotapi.UnpinChatMessageConfig{ChatID: chatID}); err != nil {
		log.Debug().Err(err).Int64("chat_id", chatID).Msg("unpin failed")
	}
}

func (h *Handler) finishAnnuncioFlow(ctx context.Context, msg *tgbotapi.Message) {
	h.pending.Delete(msg.From.ID)
	if _, err := h.Bot.Send(tgbotapi.NewMessageToChannel(h.Cfg.AnnounceChannel, msg.Text)); err != nil {
		sendMessage(h.Bot, tgbotapi.NewMessage(msg.Chat.ID, "Errore nell'invio dell'annuncio."))
		h.logEvent(ctx, "error", "announcement failed", map[string]any{"exception": err.Error()})
		return
	}
	sendMessage(h.Bot, tgbotapi.NewMessage(msg.Chat.ID, "Annuncio inviato al canale."))
	h.logEvent(ctx, "announcement", msg.Text, map[string]any{"by": msg.From.ID})
}

// HandleGuida - /guida
func (h *Handler) HandleGuida(msg *tgbotapi.Message) {
	text := "*Guida completa*\n\n" +
		"*Indovina Chi*:\n- Admin crea partita da privato -> parola segreta.\n- Admin invia indizi con /indizio [ID] testo.\n- Il primo che scrive esattamente la parola vince.\n\n" +
		"*Parole a Blocchi*:\n- Admin imposta parola. Una lettera è svelata. I partecipanti possono inviare singole lettere per rivelare. Quando rimane 1 lettera non svelata parte un timer di 30s.\n\n" +
		"*Fast Game*:\n- Admin imposta parola. Primo che scrive la parola vince.\n\n" +
		"*Comandi*:\n- /guida: questa guida\n- /stop [ID]: ferma una partita (admin di gruppo)\n- /indizio [ID] testo: invia un indizio (admin)\n- /partite: (staff) mostra partite attive\n"
	reply := tgbotapi.NewMessage(msg.Chat.ID, text)
	reply.ParseMode = tgbotapi.ModeMarkdown
	sendMessage(h.Bot, reply)
}

// HandleIndizio - /indizio [ID] testo
func (h *Handler) HandleIndizio(ctx context.Context, msg *tgbotapi.Message) {
	args := strings.Fields(msg.CommandArguments())
	if len(args) < 2 {
		sendMessage(h.Bot, tgbotapi.NewMessage(msg.Chat.ID, "Uso: /indizio [ID] descrizione dell'indizio"))
		return
	}
	gameID := args[0]
	desc := strings.Join(args[1:], " ")

	g, err := h.Games.Lookup(ctx, gameID)
	if errors.Is(err, game.ErrGameNotFound) {
		sendMessage(h.Bot, tgbotapi.NewMessage(msg.Chat.ID, "Partita non trovata."))
		return
	}
	if err != nil {
		log.Error().Err(err).Str("game_id", gameID).Msg("lookup game failed")
		return
	}
	if msg.From.ID != g.AdminID && !h.Cfg.IsStaff(msg.From.ID) && !h.isGroupAdmin(g.GroupID, msg.From.ID) {
		sendMessage(h.Bot, tgbotapi.NewMessage(msg.Chat.ID, "Non hai i permessi per inviare indizi per questa partita."))
		return
	}

	if _, err := h.Bot.Send(tgbotapi.NewMessage(g.GroupID, fmt.Sprintf("💡 Indizio per %s: %s", gameID, desc))); err != nil {
		sendMessage(h.Bot, tgbotapi.NewMessage(msg.Chat.ID, "Errore nell'inviare l'indizio."))
		h.logEvent(ctx, "error", "indizio send failed", map[string]any{"exception": err.Error()})
		return
	}
	sendMessage(h.Bot, tgbotapi.NewMessage(msg.Chat.ID, "Indizio inviato al gruppo."))
	h.logEvent(ctx, "indizio_sent", desc, map[string]any{"game_id": gameID, "by": msg.From.ID})
}

// HandleClassifica - /classifica [group_id]
func (h *Handler) HandleClassifica(ctx context.Context, msg *tgbotapi.Message) {
	var groupID int64
	args := strings.Fields(msg.CommandArguments())
	switch {
	case (msg.Chat.IsGroup() || msg.Chat.IsSuperGroup()) && len(args) == 0:
		groupID = msg.Chat.ID
	case len(args) > 0:
		var err error
		groupID, err = strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			sendMessage(h.Bot, tgbotapi.NewMessage(msg.Chat.ID, "Uso: /classifica [group_id]"))
			return
		}
	default:
		sendMessage(h.Bot, tgbotapi.NewMessage(msg.Chat.ID, "Specifica il gruppo con /classifica [group_id] quando usi in privato."))
		return
	}

	scores, err := h.Scores.Leaderboard(ctx, groupID, boardLimit)
	if err != nil {
		log.Error().Err(err).Int64("group_id", groupID).Msg("leaderboard failed")
		return
	}
	if len(scores) == 0 {
		sendMessage(h.Bot, tgbotapi.NewMessage(msg.Chat.ID, "Nessuna classifica disponibile per questo gruppo."))
		return
	}

	lines := []string{fmt.Sprintf("Classifica per il gruppo %d:", groupID)}
	for i, sc := range scores {
		quack := sc.Points * h.Cfg.QuackPointsPerPoint
		lines = append(lines, fmt.Sprintf("%d. %s: %d punti (%d QuackPoints)",
			i+1, h.userName(sc.UserID), sc.Points, quack))
	}
	sendMessage(h.Bot, tgbotapi.NewMessage(msg.Chat.ID, strings.Join(lines, "\n")))
}

// HandleStop - /stop [ID]
func (h *Handler) HandleStop(ctx context.Context, msg *tgbotapi.Message) {
	args := strings.Fields(msg.CommandArguments())
	if len(args) == 0 {
		sendMessage(h.Bot, tgbotapi.NewMessage(msg.Chat.ID, "Uso: /stop [ID]"))
		return
	}
	gameID := args[0]

	g, err := h.Games.Lookup(ctx, gameID)
	if errors.Is(err, game.ErrGameNotFound) {
		sendMessage(h.Bot, tgbotapi.NewMessage(msg.Chat.ID, "Partita non trovata."))
		return
	}
	if err != nil {
		log.Error().Err(err).Str("game_id", gameID).Msg("lookup game failed")
		return
	}

	authorized := h.Cfg.IsStaff(msg.From.ID) || h.isGroupAdmin(g.GroupID, msg.From.ID)
	_, err = h.Games.Stop(ctx, gameID, msg.From.ID, authorized)
	switch {
	case errors.Is(err, game.ErrUnauthorized):
		sendMessage(h.Bot, tgbotapi.NewMessage(msg.Chat.ID, "Non hai i permessi per fermare questa partita."))
	case err != nil:
		log.Error().Err(err).Str("game_id", gameID).Msg("stop game failed")
		sendMessage(h.Bot, tgbotapi.NewMessage(msg.Chat.ID, "Errore nel fermare la partita."))
	default:
		sendMessage(h.Bot, tgbotapi.NewMessage(msg.Chat.ID, "Partita fermata."))
	}
}

// HandlePartite - /partite (staff)
func (h *Handler) HandlePartite(ctx context.Context, msg *tgbotapi.Message) {
	if !h.requireStaff(msg) {
		return
	}
	games, err := h.Dir.ActiveGames(ctx)
	if err != nil {
		log.Error().Err(err).Msg("list active games failed")
		return
	}
	if len(games) == 0 {
		sendMessage(h.Bot, tgbotapi.NewMessage(msg.Chat.ID, "Nessuna partita attiva."))
		return
	}

	lines := []string{"Partite attive:"}
	for _, g := range games {
		title := h.groupTitle(g.GroupID)
		link := fmt.Sprintf("https://t.me/c/%d/", abs64(g.GroupID))
		lines = append(lines, fmt.Sprintf("- %s (%s) in %s — Entra nel gruppo: %s", g.ID, g.Type, title, link))
	}
	sendMessage(h.Bot, tgbotapi.NewMessage(msg.Chat.ID, strings.Join(lines, "\n")))
}

// HandleLogs - /logs (staff)
func (h *Handler) HandleLogs(ctx context.Context, msg *tgbotapi.Message) {
	if !h.requireStaff(msg) {
		return
	}
	text, kb, ok := h.logsPage(ctx, 1)
	if !ok {
		sendMessage(h.Bot, tgbotapi.NewMessage(msg.Chat.ID, "Nessun log disponibile."))
		return
	}
	reply := tgbotapi.NewMessage(msg.Chat.ID, text)
	reply.ReplyMarkup = kb
	sendMessage(h.Bot, reply)
}

// HandleLogsPartite - /logspartite (staff)
func (h *Handler) HandleLogsPartite(ctx context.Context, msg *tgbotapi.Message) {
	if !h.requireStaff(msg) {
		return
	}
	text, kb, ok := h.gamesPage(ctx, 1)
	if !ok {
		sendMessage(h.Bot, tgbotapi.NewMessage(msg.Chat.ID, "Nessuna partita trovata."))
		return
	}
	reply := tgbotapi.NewMessage(msg.Chat.ID, text)
	reply.ReplyMarkup = kb
	sendMessage(h.Bot, reply)
}

// HandleAnnuncio - /annuncio (primary admin only)
func (h *Handler) HandleAnnuncio(msg *tgbotapi.Message) {
	if msg.From.ID != h.Cfg.PrimaryAdmin() {
		sendMessage(h.Bot, tgbotapi.NewMessage(msg.Chat.ID, "Accesso negato: comando riservato."))
		return
	}
	h.pending.Put(msg.From.ID, pendingAction{Kind: actionAnnuncio})
	sendMessage(h.Bot, tgbotapi.NewMessage(msg.Chat.ID,
		fmt.Sprintf("Scrivi il messaggio da inviare al canale %s:", h.Cfg.AnnounceChannel)))
}

// AnnounceWeeklyChampion computes the trailing-week champion and
// broadcasts it to every known group, then prunes audit rows that fell
// out of the aggregation window.
func (h *Handler) AnnounceWeeklyChampion(ctx context.Context, now time.Time) {
	champ, err := h.Scores.WeeklyChampion(ctx, now)
	if err != nil {
		log.Error().Err(err).Msg("weekly champion failed")
		return
	}
	if champ == nil {
		return
	}

	quack := champ.Points * h.Cfg.QuackPointsPerPoint
	text := fmt.Sprintf("🏆 Campione settimanale: %s!\nPunti: %d (%d QuackPoints)",
		h.userName(champ.UserID), champ.Points, quack)

	groups, err := h.Dir.ListGroups(ctx)
	if err != nil {
		log.Error().Err(err).Msg("list groups failed")
		return
	}
	for _, g := range groups {
		sendMessage(h.Bot, tgbotapi.NewMessage(g.ID, text))
	}

	pruned, err := h.Dir.PruneMessagesBefore(ctx, scoring.WeeklyCutoff(now))
	if err != nil {
		log.Warn().Err(err).Msg("prune message audit failed")
	} else if pruned > 0 {
		log.Info().Int64("rows", pruned).Msg("pruned message audit")
	}
}

// ---- pagination ----

func (h *Handler) showLogsPage(ctx context.Context, q *tgbotapi.CallbackQuery) {
	page := parsePage(q.Data, "logs:")
	text, kb, ok := h.logsPage(ctx, page)
	if !ok {
		h.editText(q, "Nessun log.")
		return
	}
	h.editTextAndMarkup(q, text, kb)
}

func (h *Handler) showGamesPage(ctx context.Context, q *tgbotapi.CallbackQuery) {
	page := parsePage(q.Data, "logspartite:")
	text, kb, ok := h.gamesPage(ctx, page)
	if !ok {
		h.editText(q, "Nessuna partita trovata.")
		return
	}
	h.editTextAndMarkup(q, text, kb)
}

func (h *Handler) logsPage(ctx context.Context, page int) (string, tgbotapi.InlineKeyboardMarkup, bool) {
	entries, err := h.Dir.ListLogs(ctx, logsPerPage, (page-1)*logsPerPage)
	if err != nil {
		log.Error().Err(err).Msg("list logs failed")
		return "", tgbotapi.InlineKeyboardMarkup{}, false
	}
	if len(entries) == 0 {
		return "", tgbotapi.InlineKeyboardMarkup{}, false
	}
	var lines []string
	for _, e := range entries {
		lines = append(lines, fmt.Sprintf("%d | %s | %s | %s", e.ID, e.Type, e.Text, formatTS(e.TS)))
	}
	return strings.Join(lines, "\n"), pagerKeyboard("logs", page), true
}

func (h *Handler) gamesPage(ctx context.Context, page int) (string, tgbotapi.InlineKeyboardMarkup, bool) {
	games, err := h.Dir.ListGames(ctx, gamesPerPage, (page-1)*gamesPerPage)
	if err != nil {
		log.Error().Err(err).Msg("list games failed")
		return "", tgbotapi.InlineKeyboardMarkup{}, false
	}
	if len(games) == 0 {
		return "", tgbotapi.InlineKeyboardMarkup{}, false
	}
	var lines []string
	for _, g := range games {
		lines = append(lines, fmt.Sprintf("%s | %s | group:%d | admin:%d | %s",
			g.ID, g.Type, g.GroupID, g.AdminID, formatTS(g.CreatedAt)))
	}
	return strings.Join(lines, "\n"), pagerKeyboard("logspartite", page), true
}

func pagerKeyboard(prefix string, page int) tgbotapi.InlineKeyboardMarkup {
	var row []tgbotapi.InlineKeyboardButton
	if page > 1 {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData("⬅️ Indietro", fmt.Sprintf("%s:%d", prefix, page-1)))
	}
	row = append(row, tgbotapi.NewInlineKeyboardButtonData("➡️ Avanti", fmt.Sprintf("%s:%d", prefix, page+1)))
	return tgbotapi.NewInlineKeyboardMarkup(row)
}

func parsePage(data, prefix string) int {
	page, err := strconv.Atoi(strings.TrimPrefix(data, prefix))
	if err != nil || page < 1 {
		return 1
	}
	return page
}

func parseGroupID(data, prefix string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimPrefix(data, prefix), 10, 64)
	return id, err == nil
}

// ---- helpers ----

func (h *Handler) requireStaff(msg *tgbotapi.Message) bool {
	if h.Cfg.IsStaff(msg.From.ID) {
		return true
	}
	sendMessage(h.Bot, tgbotapi.NewMessage(msg.Chat.ID, "Accesso negato: comando riservato allo staff del bot."))
	return false
}

func (h *Handler) isGroupAdmin(groupID, userID int64) bool {
	admins, err := h.Bot.GetChatAdministrators(tgbotapi.ChatAdministratorsConfig{
		ChatConfig: tgbotapi.ChatConfig{ChatID: groupID},
	})
	if err != nil {
		return false
	}
	for _, a := range admins {
		if a.User != nil && a.User.ID == userID {
			return true
		}
	}
	return false
}

func (h *Handler) userName(userID int64) string {
	chat, err := h.Bot.GetChat(tgbotapi.ChatInfoConfig{
		ChatConfig: tgbotapi.ChatConfig{ChatID: userID},
	})
	if err != nil || chat.FirstName == "" {
		return strconv.FormatInt(userID, 10)
	}
	return chat.FirstName
}

func (h *Handler) groupTitle(groupID int64) string {
	chat, err := h.Bot.GetChat(tgbotapi.ChatInfoConfig{
		ChatConfig: tgbotapi.ChatConfig{ChatID: groupID},
	})
	if err != nil || chat.Title == "" {
		return strconv.FormatInt(groupID, 10)
	}
	return chat.Title
}

func (h *Handler) editText(q *tgbotapi.CallbackQuery, text string) {
	sendMessage(h.Bot, tgbotapi.NewEditMessageText(q.Message.Chat.ID, q.Message.MessageID, text))
}

func (h *Handler) editTextAndMarkup(q *tgbotapi.CallbackQuery, text string, kb tgbotapi.InlineKeyboardMarkup) {
	sendMessage(h.Bot, tgbotapi.NewEditMessageTextAndMarkup(q.Message.Chat.ID, q.Message.MessageID, text, kb))
}

func (h *Handler) logEvent(ctx context.Context, eventType, text string, data map[string]any) {
	if err := h.Dir.AppendLog(ctx, eventType, text, data); err != nil {
		log.Warn().Err(err).Str("event", eventType).Msg("log event failed")
	}
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
