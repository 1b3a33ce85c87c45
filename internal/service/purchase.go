package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/set-night/giftsniper/internal/config"
	"github.com/set-night/giftsniper/internal/domain"
)

// GiftSender performs a single purchase call against the Bot API. The
// implementation classifies failures into the domain taxonomy: a
// *domain.RateLimitedError for flood waits, domain.ErrTransientNetwork for
// retryable network trouble, domain.ErrPermanentAPI for everything terminal.
type GiftSender interface {
	SendGift(ctx context.Context, giftID string, rcpt domain.Recipient) error
}

// Executor performs one bounded purchase attempt with retry and backoff.
// The balance is debited only on confirmed success; campaign counters are
// the worker's responsibility.
type Executor struct {
	store   *Accounts
	sender  GiftSender
	retries int

	// sleep is swappable so tests do not wait out real backoff.
	sleep func(ctx context.Context, d time.Duration) error
}

func NewExecutor(store *Accounts, sender GiftSender) *Executor {
	return &Executor{
		store:   store,
		sender:  sender,
		retries: config.BuyRetries,
		sleep:   sleepCtx,
	}
}

// Buy attempts to purchase gift for rcpt on userID's balance.
//
// Retry policy, up to the attempt budget:
//   - flood wait: sleep the server-specified duration, consume one attempt
//   - transient network error: sleep 2^attempt seconds, consume one attempt
//   - permanent API error: abort immediately
//
// If the balance cannot cover the price, the account is deactivated and no
// network call is made.
func (e *Executor) Buy(ctx context.Context, userID int64, gift domain.Gift, rcpt domain.Recipient) error {
	if !rcpt.Valid() {
		return fmt.Errorf("%w: exactly one of user id or chat id must be set", domain.ErrInvalidRecipient)
	}

	insufficient := false
	if _, err := e.store.Update(ctx, userID, func(a *domain.Account) error {
		if a.Balance < gift.Price {
			insufficient = true
			a.Active = false
		}
		return nil
	}); err != nil {
		return err
	}
	if insufficient {
		slog.Error("not enough stars for gift",
			"user_id", userID, "gift_id", gift.ID, "price", gift.Price)
		return domain.ErrInsufficientBalance
	}

	for attempt := 1; attempt <= e.retries; attempt++ {
		err := e.sender.SendGift(ctx, gift.ID, rcpt)
		if err == nil {
			if _, err := e.store.Update(ctx, userID, func(a *domain.Account) error {
				a.Balance -= gift.Price
				if a.Balance < 0 {
					a.Balance = 0
				}
				return nil
			}); err != nil {
				return fmt.Errorf("debit balance after purchase: %w", err)
			}
			slog.Info("gift purchased",
				"user_id", userID, "gift_id", gift.ID, "price", gift.Price)
			return nil
		}

		var flood *domain.RateLimitedError
		switch {
		case errors.As(err, &flood):
			slog.Warn("flood wait on gift purchase",
				"user_id", userID, "gift_id", gift.ID,
				"attempt", attempt, "retry_after", flood.RetryAfter)
			if err := e.sleep(ctx, flood.RetryAfter); err != nil {
				return err
			}

		case errors.Is(err, domain.ErrTransientNetwork):
			backoff := time.Duration(1<<attempt) * time.Second
			slog.Warn("network error on gift purchase",
				"user_id", userID, "gift_id", gift.ID,
				"attempt", attempt, "backoff", backoff, "error", err)
			if err := e.sleep(ctx, backoff); err != nil {
				return err
			}

		default:
			slog.Error("telegram api error on gift purchase",
				"user_id", userID, "gift_id", gift.ID, "error", err)
			if errors.Is(err, domain.ErrPermanentAPI) {
				return err
			}
			return fmt.Errorf("%w: %v", domain.ErrPermanentAPI, err)
		}
	}

	slog.Error("gift purchase exhausted retries",
		"user_id", userID, "gift_id", gift.ID, "retries", e.retries)
	return domain.ErrExhausted
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
