package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"pushup-tma-backend/internal/app/workout"
	"pushup-tma-backend/internal/auth"
	"pushup-tma-backend/internal/bot"
	"pushup-tma-backend/internal/config"
	"pushup-tma-backend/internal/imaging"
	"pushup-tma-backend/internal/logger"
	"pushup-tma-backend/internal/reminder"
	"pushup-tma-backend/internal/store"
	"pushup-tma-backend/internal/telegram"
	httptransport "pushup-tma-backend/internal/transport/http"
)

func main() {
	_ = godotenv.Load() // load .env if present (ok if missing in prod)

	cfg, err := config.Load()
	if err != nil {
		zap.NewExample().Fatal("load config", zap.Error(err))
	}

	log := logger.New(cfg.Log.Level, cfg.Production())
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := store.Migrate(cfg.Database.URL, log); err != nil {
		log.Fatal("migrate", zap.Error(err))
	}
	pool, err := store.Open(ctx, cfg.Database.URL)
	if err != nil {
		log.Fatal("open store", zap.Error(err))
	}
	defer pool.Close()

	users := store.NewUserRepo(pool)
	workouts := store.NewWorkoutRepo(pool)
	reminders := store.NewReminderRepo(pool)
	photos := store.NewPhotoRepo(pool)

	// Verifier selection is a startup decision, never per-request. The
	// unverified mode exists only for local development without a bot
	// token; config.Load refuses that combination in production.
	var verifier telegram.Verifier
	var sender bot.Sender
	if cfg.Telegram.BotToken != "" {
		verifier = telegram.NewWebAppVerifier(cfg.Telegram.BotToken)
		client, err := bot.NewClient(cfg.Telegram.BotToken, log)
		if err != nil {
			log.Fatal("bot client", zap.Error(err))
		}
		sender = client
	} else {
		log.Warn("TELEGRAM_BOT_TOKEN not set: signature verification DISABLED, messages dropped")
		verifier = telegram.NullVerifier{}
		sender = bot.NopSender{Log: log}
	}

	resolver := auth.NewResolver(users, cfg.Auth.DefaultLocale, log)
	workoutSvc := workout.NewService(workouts)
	job := reminder.NewJob(reminders, sender, cfg.Reminders.DefaultTimezone, log)
	webhook := bot.NewHandler(sender, users, workoutSvc, log)

	handlers := &httptransport.Handlers{
		Workouts:  workoutSvc,
		Reminders: reminders,
		Photos:    photos,
		Imaging:   imaging.NewClient(cfg.Imaging.URL, cfg.Imaging.Token),
		Job:       job,
		Webhook:   webhook,
		Logger:    log,
	}

	router := httptransport.NewRouter(handlers, httptransport.RouterConfig{
		Gate: httptransport.TelegramAuthMiddleware{
			Verifier: verifier,
			Resolver: resolver,
			MaxAge:   cfg.InitDataMaxAge(),
			Logger:   log,
		},
		Cron:    httptransport.BearerAuthMiddleware{Token: cfg.Cron.Secret},
		Imaging: httptransport.BearerAuthMiddleware{Token: cfg.Imaging.Token},
		Webhook: httptransport.WebhookSecretMiddleware{Secret: cfg.Telegram.WebhookSecret},
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTP.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info("listening", zap.String("port", cfg.HTTP.Port), zap.String("environment", cfg.Environment))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("serve", zap.Error(err))
	}
}
