package main

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-telegram/bot"
	giftsniperroot "github.com/set-night/giftsniper"
	"github.com/set-night/giftsniper/internal/config"
	"github.com/set-night/giftsniper/internal/handler"
	"github.com/set-night/giftsniper/internal/middleware"
	"github.com/set-night/giftsniper/internal/repository"
	"github.com/set-night/giftsniper/internal/service"
	"github.com/set-night/giftsniper/internal/telegram"
)

func main() {
	// Setup structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Setup context with graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect to database
	pool, err := repository.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	// Run migrations
	migrationsFS, err := fs.Sub(giftsniperroot.MigrationsFS, "migrations")
	if err != nil {
		slog.Error("failed to load embedded migrations", "error", err)
		os.Exit(1)
	}
	if err := repository.RunMigrations(cfg.DatabaseURL, migrationsFS); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	repo := repository.New(pool)
	accounts := service.NewAccounts(repo)

	// Create bot
	opts := []bot.Option{
		bot.WithMiddlewares(
			middleware.Recover(),
			middleware.Logging(),
			middleware.RateLimit("/start", "/withdraw_all", "/grant_access", "/revoke_access"),
			middleware.AccessControl(repo, cfg.IsAdmin),
		),
	}

	b, err := bot.New(cfg.BotToken, opts...)
	if err != nil {
		slog.Error("failed to create bot", "error", err)
		os.Exit(1)
	}

	me, err := b.GetMe(ctx)
	if err != nil {
		slog.Error("failed to get bot info", "error", err)
		os.Exit(1)
	}
	slog.Info("bot info retrieved", "id", me.ID, "username", me.Username)

	// Gateways over the Bot API
	stars := telegram.NewStars(b)
	gifts := telegram.NewGifts(b)
	sender := telegram.NewSender(b)
	botLog := telegram.NewBotLogger(b, cfg)

	// Core services
	balance := service.NewBalance(stars, accounts)
	executor := service.NewExecutor(accounts, stars)
	matcher := service.NewMatcher(stars, balance)
	worker := service.NewWorker(accounts, gifts, executor, repo, sender, balance, botLog)

	// Seed the owner: allowed, with a default account
	if err := repo.GrantAccess(ctx, cfg.OwnerID); err != nil {
		slog.Error("failed to seed owner access", "error", err)
		os.Exit(1)
	}
	if _, err := accounts.Get(ctx, cfg.OwnerID); err != nil {
		slog.Error("failed to seed owner account", "error", err)
		os.Exit(1)
	}

	// Handlers
	h := handler.New(handler.Deps{
		Bot:      b,
		Cfg:      cfg,
		Accounts: accounts,
		Balance:  balance,
		Matcher:  matcher,
		Repo:     repo,
		BotLog:   botLog,
	})
	h.Register()

	// Acquisition worker runs for the whole bot lifetime
	go worker.Run(ctx)

	slog.Info("starting bot", "username", me.Username, "id", me.ID)
	b.Start(ctx)

	slog.Info("bot stopped gracefully")
}
