package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/derixofficial/quacktv-games/internal/config"
	"github.com/derixofficial/quacktv-games/internal/game"
	"github.com/derixofficial/quacktv-games/internal/router"
	"github.com/derixofficial/quacktv-games/internal/scheduler"
	"github.com/derixofficial/quacktv-games/internal/scoring"
	"github.com/derixofficial/quacktv-games/internal/storage"
	"github.com/derixofficial/quacktv-games/internal/telegram"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := storage.New(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to db")
	}
	defer store.Close()
	if err := store.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("cannot ping db")
	}
	if err := store.InitSchema(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to init schema")
	}
	log.Info().Msg("connected to postgres")

	api, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create bot api")
	}

	timers := scheduler.New()
	engine := game.NewEngine(store, timers, time.Duration(cfg.BlockTimerSeconds)*time.Second)
	ledger := scoring.NewLedger(store, cfg.PointsPerWin)
	notifier := &telegram.Announcer{Bot: api}
	r := router.New(store, engine, ledger, notifier)
	engine.SetAsyncHandler(r.DispatchAsync)

	handler := telegram.NewHandler(api, engine, ledger, store, cfg)
	bot := telegram.NewBot(api, handler, r)

	// Weekly champion broadcast and startup announcement run on every boot.
	handler.AnnounceWeeklyChampion(ctx, time.Now())
	startup := "✅ Bot attivo! Segui " + cfg.AnnounceChannel + " per aggiornamenti, manutenzioni e fix.\n" +
		"Se hai bisogno di supporto scrivi in privato al bot."
	if _, err := api.Send(tgbotapi.NewMessageToChannel(cfg.AnnounceChannel, startup)); err != nil {
		log.Warn().Err(err).Msg("startup announcement failed")
	} else if err := store.AppendLog(ctx, "startup", "sent startup announcement to channel", nil); err != nil {
		log.Warn().Err(err).Msg("startup log failed")
	}

	bot.Start(ctx)
}
