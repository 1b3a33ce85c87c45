package handler

import (
	"github.com/go-telegram/bot"
	"github.com/set-night/giftsniper/internal/config"
	"github.com/set-night/giftsniper/internal/repository"
	"github.com/set-night/giftsniper/internal/service"
	"github.com/set-night/giftsniper/internal/telegram"
)

// Handler holds all dependencies needed by command and callback handlers.
type Handler struct {
	bot      *bot.Bot
	cfg      *config.Config
	accounts *service.Accounts
	balance  *service.Balance
	matcher  *service.Matcher
	repo     *repository.Repository
	botLog   *telegram.BotLogger
}

// Deps contains all dependencies required to construct a Handler.
type Deps struct {
	Bot      *bot.Bot
	Cfg      *config.Config
	Accounts *service.Accounts
	Balance  *service.Balance
	Matcher  *service.Matcher
	Repo     *repository.Repository
	BotLog   *telegram.BotLogger
}

// New creates a new Handler from the provided dependencies.
func New(deps Deps) *Handler {
	return &Handler{
		bot:      deps.Bot,
		cfg:      deps.Cfg,
		accounts: deps.Accounts,
		balance:  deps.Balance,
		matcher:  deps.Matcher,
		repo:     deps.Repo,
		botLog:   deps.BotLog,
	}
}
