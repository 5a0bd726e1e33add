package telegram

import (
	"context"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/derixofficial/quacktv-games/internal/config"
	"github.com/derixofficial/quacktv-games/internal/game"
	"github.com/derixofficial/quacktv-games/internal/scoring"
	"github.com/derixofficial/quacktv-games/internal/storage"
)

// MockChatAPI mocks the bot API surface the handlers use.
type MockChatAPI struct {
	mock.Mock
}

func (m *MockChatAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	args := m.Called(c)
	if msg, ok := args.Get(0).(tgbotapi.Message); ok {
		return msg, args.Error(1)
	}
	return tgbotapi.Message{}, args.Error(1)
}

func (m *MockChatAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	args := m.Called(c)
	return nil, args.Error(1)
}

func (m *MockChatAPI) GetMe() (tgbotapi.User, error) {
	args := m.Called()
	return args.Get(0).(tgbotapi.User), args.Error(1)
}

func (m *MockChatAPI) GetChat(cfg tgbotapi.ChatInfoConfig) (tgbotapi.Chat, error) {
	args := m.Called(cfg)
	return args.Get(0).(tgbotapi.Chat), args.Error(1)
}

func (m *MockChatAPI) GetChatAdministrators(cfg tgbotapi.ChatAdministratorsConfig) ([]tgbotapi.ChatMember, error) {
	args := m.Called(cfg)
	if members, ok := args.Get(0).([]tgbotapi.ChatMember); ok {
		return members, args.Error(1)
	}
	return nil, args.Error(1)
}

// MockGameService mocks the session engine surface.
type MockGameService struct {
	mock.Mock
}

func (m *MockGameService) Create(ctx context.Context, groupID, adminID int64, typ game.Type, secret string) (*storage.Game, error) {
	args := m.Called(ctx, groupID, adminID, typ, secret)
	if g, ok := args.Get(0).(*storage.Game); ok {
		return g, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockGameService) Stop(ctx context.Context, gameID string, requesterID int64, requesterIsAuthorized bool) (*storage.Game, error) {
	args := m.Called(ctx, gameID, requesterID, requesterIsAuthorized)
	if g, ok := args.Get(0).(*storage.Game); ok {
		return g, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockGameService) Lookup(ctx context.Context, gameID string) (*storage.Game, error) {
	args := m.Called(ctx, gameID)
	if g, ok := args.Get(0).(*storage.Game); ok {
		return g, args.Error(1)
	}
	return nil, args.Error(1)
}

// MockScoreService mocks the ledger surface.
type MockScoreService struct {
	mock.Mock
}

func (m *MockScoreService) Leaderboard(ctx context.Context, groupID int64, limit int) ([]storage.Score, error) {
	args := m.Called(ctx, groupID, limit)
	if rows, ok := args.Get(0).([]storage.Score); ok {
		return rows, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockScoreService) WeeklyChampion(ctx context.Context, now time.Time) (*scoring.Champion, error) {
	args := m.Called(ctx, now)
	if c, ok := args.Get(0).(*scoring.Champion); ok {
		return c, args.Error(1)
	}
	return nil, args.Error(1)
}

// MockDirectory mocks the gateway listing surface.
type MockDirectory struct {
	mock.Mock
}

func (m *MockDirectory) UpsertGroup(ctx context.Context, id int64, title string) error {
	return m.Called(ctx, id, title).Error(0)
}

func (m *MockDirectory) ListGroups(ctx context.Context) ([]storage.Group, error) {
	args := m.Called(ctx)
	if groups, ok := args.Get(0).([]storage.Group); ok {
		return groups, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockDirectory) ActiveGames(ctx context.Context) ([]storage.Game, error) {
	args := m.Called(ctx)
	if games, ok := args.Get(0).([]storage.Game); ok {
		return games, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockDirectory) ListGames(ctx context.Context, limit, offset int) ([]storage.Game, error) {
	args := m.Called(ctx, limit, offset)
	if games, ok := args.Get(0).([]storage.Game); ok {
		return games, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockDirectory) ListLogs(ctx context.Context, limit, offset int) ([]storage.LogEntry, error) {
	args := m.Called(ctx, limit, offset)
	if logs, ok := args.Get(0).([]storage.LogEntry); ok {
		return logs, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockDirectory) AppendLog(ctx context.Context, eventType, text string, data any) error {
	return m.Called(ctx, eventType, text, data).Error(0)
}

func (m *MockDirectory) PruneMessagesBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return int64(args.Int(0)), args.Error(1)
}

func newTestHandler(cfg *config.Config) (*Handler, *MockChatAPI, *MockGameService, *MockScoreService, *MockDirectory) {
	api := new(MockChatAPI)
	games := new(MockGameService)
	scores := new(MockScoreService)
	dir := new(MockDirectory)
	if cfg == nil {
		cfg = &config.Config{QuackPointsPerPoint: 20}
	}
	return NewHandler(api, games, scores, dir, cfg), api, games, scores, dir
}

func groupMessage(chatID, userID int64, text string) *tgbotapi.Message {
	return &tgbotapi.Message{
		MessageID: 10,
		From:      &tgbotapi.User{ID: userID, FirstName: "Test"},
		Chat:      &tgbotapi.Chat{ID: chatID, Type: "supergroup"},
		Text:      text,
		Entities: []tgbotapi.MessageEntity{
			{Type: "bot_command", Offset: 0, Length: len(firstWord(text))},
		},
	}
}

func firstWord(s string) string {
	for i, r := range s {
		if r == ' ' {
			return s[:i]
		}
	}
	return s
}

func TestHandleStopNotFound(t *testing.T) {
	h, api, games, _, _ := newTestHandler(nil)
	msg := groupMessage(42, 99, "/stop #11111")

	games.On("Lookup", mock.Anything, "#11111").Return(nil, game.ErrGameNotFound).Once()
	api.On("Send", tgbotapi.NewMessage(int64(42), "Partita non trovata.")).
		Return(tgbotapi.Message{}, nil).Once()

	h.HandleStop(context.Background(), msg)

	games.AssertExpectations(t)
	api.AssertExpectations(t)
}

func TestHandleStopUnauthorized(t *testing.T) {
	h, api, games, _, _ := newTestHandler(nil)
	msg := groupMessage(42, 99, "/stop #11111")
	g := &storage.Game{ID: "#11111", GroupID: 42, AdminID: 7, State: storage.StateActive}

	games.On("Lookup", mock.Anything, "#11111").Return(g, nil).Once()
	api.On("GetChatAdministrators", mock.Anything).Return([]tgbotapi.ChatMember{}, nil).Once()
	games.On("Stop", mock.Anything, "#11111", int64(99), false).
		Return(nil, game.ErrUnauthorized).Once()
	api.On("Send", tgbotapi.NewMessage(int64(42), "Non hai i permessi per fermare questa partita.")).
		Return(tgbotapi.Message{}, nil).Once()

	h.HandleStop(context.Background(), msg)

	games.AssertExpectations(t)
	api.AssertExpectations(t)
}

func TestHandleStopByStaff(t *testing.T) {
	cfg := &config.Config{StaffAdmins: []int64{99}, QuackPointsPerPoint: 20}
	h, api, games, _, _ := newTestHandler(cfg)
	msg := groupMessage(42, 99, "/stop #11111")
	g := &storage.Game{ID: "#11111", GroupID: 42, AdminID: 7, State: storage.StateActive}

	games.On("Lookup", mock.Anything, "#11111").Return(g, nil).Once()
	games.On("Stop", mock.Anything, "#11111", int64(99), true).Return(g, nil).Once()
	api.On("Send", tgbotapi.NewMessage(int64(42), "Partita fermata.")).
		Return(tgbotapi.Message{}, nil).Once()

	h.HandleStop(context.Background(), msg)

	games.AssertExpectations(t)
	api.AssertExpectations(t)
}

func TestHandleIndizioNotFound(t *testing.T) {
	h, api, games, _, _ := newTestHandler(nil)
	msg := groupMessage(42, 7, "/indizio #22222 ha le piume")

	games.On("Lookup", mock.Anything, "#22222").Return(nil, game.ErrGameNotFound).Once()
	api.On("Send", tgbotapi.NewMessage(int64(42), "Partita non trovata.")).
		Return(tgbotapi.Message{}, nil).Once()

	h.HandleIndizio(context.Background(), msg)

	games.AssertExpectations(t)
	api.AssertExpectations(t)
}

func TestHandleIndizioSentByCreator(t *testing.T) {
	h, api, games, _, dir := newTestHandler(nil)
	msg := groupMessage(42, 7, "/indizio #22222 ha le piume")
	g := &storage.Game{ID: "#22222", GroupID: 42, AdminID: 7, State: storage.StateActive}

	games.On("Lookup", mock.Anything, "#22222").Return(g, nil).Once()
	api.On("Send", tgbotapi.NewMessage(int64(42), "💡 Indizio per #22222: ha le piume")).
		Return(tgbotapi.Message{}, nil).Once()
	api.On("Send", tgbotapi.NewMessage(int64(42), "Indizio inviato al gruppo.")).
		Return(tgbotapi.Message{}, nil).Once()
	dir.On("AppendLog", mock.Anything, "indizio_sent", "ha le piume", mock.Anything).Return(nil).Once()

	h.HandleIndizio(context.Background(), msg)

	games.AssertExpectations(t)
	api.AssertExpectations(t)
	dir.AssertExpectations(t)
}

func TestHandleClassificaInGroup(t *testing.T) {
	h, api, _, scores, _ := newTestHandler(nil)
	msg := groupMessage(42, 1, "/classifica")

	scores.On("Leaderboard", mock.Anything, int64(42), boardLimit).Return([]storage.Score{
		{UserID: 99, GroupID: 42, Points: 10},
		{UserID: 50, GroupID: 42, Points: 5},
	}, nil).Once()
	api.On("GetChat", mock.Anything).Return(tgbotapi.Chat{FirstName: "Paolo"}, nil).Twice()

	expected := "Classifica per il gruppo 42:\n" +
		"1. Paolo: 10 punti (200 QuackPoints)\n" +
		"2. Paolo: 5 punti (100 QuackPoints)"
	api.On("Send", tgbotapi.NewMessage(int64(42), expected)).Return(tgbotapi.Message{}, nil).Once()

	h.HandleClassifica(context.Background(), msg)

	scores.AssertExpectations(t)
	api.AssertExpectations(t)
}

func TestHandlePartiteRequiresStaff(t *testing.T) {
	h, api, _, _, _ := newTestHandler(&config.Config{QuackPointsPerPoint: 20})
	msg := groupMessage(42, 99, "/partite")

	api.On("Send", tgbotapi.NewMessage(int64(42), "Accesso negato: comando riservato allo staff del bot.")).
		Return(tgbotapi.Message{}, nil).Once()

	h.HandlePartite(context.Background(), msg)

	api.AssertExpectations(t)
}

func TestHandleAnnuncioDenied(t *testing.T) {
	cfg := &config.Config{StaffAdmins: []int64{1}, QuackPointsPerPoint: 20}
	h, api, _, _, _ := newTestHandler(cfg)
	msg := groupMessage(42, 99, "/annuncio")

	api.On("Send", tgbotapi.NewMessage(int64(42), "Accesso negato: comando riservato.")).
		Return(tgbotapi.Message{}, nil).Once()

	h.HandleAnnuncio(msg)

	api.AssertExpectations(t)
}

func TestPrivateMessageWithoutPendingAction(t *testing.T) {
	h, api, _, _, _ := newTestHandler(nil)
	msg := &tgbotapi.Message{
		From: &tgbotapi.User{ID: 7},
		Chat: &tgbotapi.Chat{ID: 7, Type: "private"},
		Text: "gatto",
	}

	api.On("Send", tgbotapi.NewMessage(int64(7), "Nessuna azione in corso. Usa /start per iniziare.")).
		Return(tgbotapi.Message{}, nil).Once()

	h.HandlePrivateMessage(context.Background(), msg)

	api.AssertExpectations(t)
}

func TestSetupFlowCreatesGame(t *testing.T) {
	h, api, games, _, _ := newTestHandler(nil)
	h.pending.Put(7, pendingAction{Kind: actionSetWord, GameType: game.TypeWordBlocks, GroupID: 42})
	msg := &tgbotapi.Message{
		From: &tgbotapi.User{ID: 7},
		Chat: &tgbotapi.Chat{ID: 7, Type: "private"},
		Text: "Anatra",
	}
	created := &storage.Game{ID: "#33333", Type: string(game.TypeWordBlocks), GroupID: 42, AdminID: 7, Secret: "anatra", Display: "___t__", State: storage.StateActive}

	games.On("Create", mock.Anything, int64(42), int64(7), game.TypeWordBlocks, "Anatra").
		Return(created, nil).Once()
	api.On("Send", tgbotapi.NewMessage(int64(42), "🔤 Partita di Parole a Blocchi iniziata: ___t__")).
		Return(tgbotapi.Message{}, nil).Once()
	api.On("Send", tgbotapi.NewMessage(int64(7), "Partita Parole a Blocchi iniziata!")).
		Return(tgbotapi.Message{}, nil).Once()

	h.HandlePrivateMessage(context.Background(), msg)

	games.AssertExpectations(t)
	api.AssertExpectations(t)

	// The pending action is consumed.
	_, ok := h.pending.Get(7)
	require.False(t, ok)
}

func TestSetupFlowGuessWhoPinsAnnouncement(t *testing.T) {
	h, api, games, _, _ := newTestHandler(nil)
	h.pending.Put(7, pendingAction{Kind: actionSetWord, GameType: game.TypeGuessWho, GroupID: 42})
	msg := &tgbotapi.Message{
		From: &tgbotapi.User{ID: 7},
		Chat: &tgbotapi.Chat{ID: 7, Type: "private"},
		Text: "gatto",
	}
	created := &storage.Game{ID: "#12345", Type: string(game.TypeGuessWho), GroupID: 42, AdminID: 7, Secret: "gatto", State: storage.StateActive}

	games.On("Create", mock.Anything, int64(42), int64(7), game.TypeGuessWho, "gatto").
		Return(created, nil).Once()
	api.On("Send", tgbotapi.NewMessage(int64(42), "🔔 Nuova partita di Indovina Chi! Gli indizi verranno pubblicati durante la partita.\nID Partita: #12345")).
		Return(tgbotapi.Message{MessageID: 510}, nil).Once()
	api.On("Request", tgbotapi.PinChatMessageConfig{ChatID: 42, MessageID: 510, DisableNotification: true}).
		Return(nil, nil).Once()
	api.On("Request", tgbotapi.UnpinChatMessageConfig{ChatID: 42}).
		Return(nil, nil).Once()
	api.On("Send", tgbotapi.NewMessage(int64(7), "Partita Iniziata! Digita /guida per visualizzare tutte le informazioni riguardo le partite!")).
		Return(tgbotapi.Message{}, nil).Once()

	h.HandlePrivateMessage(context.Background(), msg)

	games.AssertExpectations(t)
	api.AssertExpectations(t)
}

func TestSetupFlowFastGameAnnouncesWithMarkdown(t *testing.T) {
	h, api, games, _, _ := newTestHandler(nil)
	h.pending.Put(7, pendingAction{Kind: actionSetWord, GameType: game.TypeFastGame, GroupID: 42})
	msg := &tgbotapi.Message{
		From: &tgbotapi.User{ID: 7},
		Chat: &tgbotapi.Chat{ID: 7, Type: "private"},
		Text: "papera",
	}
	created := &storage.Game{ID: "#54321", Type: string(game.TypeFastGame), GroupID: 42, AdminID: 7, Secret: "papera", State: storage.StateActive}

	announce := tgbotapi.NewMessage(int64(42), "⚡ Fast Game iniziato! Primo che scrive la parola vince. Parola: *?*")
	announce.ParseMode = tgbotapi.ModeMarkdown

	games.On("Create", mock.Anything, int64(42), int64(7), game.TypeFastGame, "papera").
		Return(created, nil).Once()
	api.On("Send", announce).Return(tgbotapi.Message{}, nil).Once()
	api.On("Send", tgbotapi.NewMessage(int64(7), "Fast Game iniziato!")).
		Return(tgbotapi.Message{}, nil).Once()

	h.HandlePrivateMessage(context.Background(), msg)

	games.AssertExpectations(t)
	api.AssertExpectations(t)
}

func TestAnnounceWeeklyChampion(t *testing.T) {
	h, api, _, scores, dir := newTestHandler(nil)
	now := time.Now()

	scores.On("WeeklyChampion", mock.Anything, now).
		Return(&scoring.Champion{UserID: 99, Points: 10}, nil).Once()
	api.On("GetChat", mock.Anything).Return(tgbotapi.Chat{FirstName: "Paolo"}, nil).Once()
	dir.On("ListGroups", mock.Anything).Return([]storage.Group{{ID: 42}, {ID: 43}}, nil).Once()

	expected := "🏆 Campione settimanale: Paolo!\nPunti: 10 (200 QuackPoints)"
	api.On("Send", tgbotapi.NewMessage(int64(42), expected)).Return(tgbotapi.Message{}, nil).Once()
	api.On("Send", tgbotapi.NewMessage(int64(43), expected)).Return(tgbotapi.Message{}, nil).Once()
	dir.On("PruneMessagesBefore", mock.Anything, mock.Anything).Return(0, nil).Once()

	h.AnnounceWeeklyChampion(context.Background(), now)

	scores.AssertExpectations(t)
	api.AssertExpectations(t)
	dir.AssertExpectations(t)
}

func TestAnnounceWeeklyChampionNoWins(t *testing.T) {
	h, _, _, scores, _ := newTestHandler(nil)
	now := time.Now()

	scores.On("WeeklyChampion", mock.Anything, now).Return(nil, nil).Once()

	h.AnnounceWeeklyChampion(context.Background(), now)

	scores.AssertExpectations(t)
}
