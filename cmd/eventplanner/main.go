package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"event-planner/internal/bot"
	"event-planner/internal/config"
	"event-planner/internal/logging"
	"event-planner/internal/notify"
	"event-planner/internal/repository"
	"event-planner/internal/service"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		bootLog := logging.New(os.Stderr, "info")
		bootLog.Fatal().Err(err).Msg("config")
	}
	log := logging.New(os.Stderr, cfg.LogLevel)

	if err := run(ctx, cfg, log); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal().Err(err).Msg("event planner stopped")
	}
	log.Info().Msg("shutdown complete")
}

func run(ctx context.Context, cfg config.Config, log zerolog.Logger) error {
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	store, err := openStorage(cfg.DatabaseURL, log)
	if err != nil {
		return err
	}
	defer store.close()

	api, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		return fmt.Errorf("create bot api: %w", err)
	}
	log.Info().Str("account", api.Self.UserName).Msg("bot authorized")

	sender := notify.NewTelegramSender(api, cfg.ChatID, cfg.NotifyRate)
	gateway := notify.NewLocalGateway(notify.NewScheduler(loc), store.reminders, sender, logging.Component(log, "notify"))
	if err := gateway.Start(ctx); err != nil {
		return fmt.Errorf("start notification gateway: %w", err)
	}
	defer gateway.Stop()

	authSvc := service.NewAuthService(store.users, store.sessions, cfg.BcryptCost, logging.Component(log, "auth"))
	eventSvc := service.NewEventService(store.users, gateway, logging.Component(log, "events"),
		service.WithGatewayTimeout(cfg.GatewayTimeout))
	agendaSvc := service.NewAgendaService(eventSvc)

	telegramBot := bot.New(api, authSvc, eventSvc, agendaSvc, bot.Options{
		ChatID:   cfg.ChatID,
		Location: loc,
	}, logging.Component(log, "bot"))

	log.Info().Msg("event planner bot started")
	return telegramBot.Start(ctx)
}

type storage struct {
	db        *gorm.DB
	users     *repository.UserRepository
	sessions  *repository.SessionRepository
	reminders *repository.ReminderRepository
}

func openStorage(dsn string, log zerolog.Logger) (*storage, error) {
	db, err := repository.NewDB(dsn, log)
	if err != nil {
		return nil, fmt.Errorf("db: %w", err)
	}
	kv := repository.NewKVRepository(db)
	return &storage{
		db:        db,
		users:     repository.NewUserRepository(kv),
		sessions:  repository.NewSessionRepository(kv),
		reminders: repository.NewReminderRepository(db),
	}, nil
}

func (s *storage) close() {
	if sqlDB, err := s.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
