package telegram

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/go-telegram/bot"
	"github.com/set-night/giftsniper/internal/domain"
)

// Stars implements the ledger gateway: star transaction reads, gift
// purchases and refunds. Bot API failures are classified into the domain
// taxonomy so the purchase executor can decide what to retry.
type Stars struct {
	bot *bot.Bot
}

func NewStars(b *bot.Bot) *Stars {
	return &Stars{bot: b}
}

func (s *Stars) ListTransactions(ctx context.Context, offset, limit int) ([]domain.StarTransaction, error) {
	res, err := s.bot.GetStarTransactions(ctx, &bot.GetStarTransactionsParams{
		Offset: offset,
		Limit:  limit,
	})
	if err != nil {
		return nil, fmt.Errorf("get star transactions: %w", err)
	}

	out := make([]domain.StarTransaction, 0, len(res.Transactions))
	for _, t := range res.Transactions {
		txn := domain.StarTransaction{
			ID:     t.ID,
			Amount: int64(t.Amount),
		}
		if t.Source != nil && t.Source.User != nil {
			uid := t.Source.User.User.ID
			txn.SourceUserID = &uid
			txn.SourceUsername = t.Source.User.User.Username
		}
		out = append(out, txn)
	}
	return out, nil
}

func (s *Stars) SendGift(ctx context.Context, giftID string, rcpt domain.Recipient) error {
	params := &bot.SendGiftParams{GiftID: giftID}
	switch {
	case rcpt.UserID != nil:
		params.UserID = *rcpt.UserID
	case rcpt.ChatID != nil:
		params.ChatID = *rcpt.ChatID
	default:
		return domain.ErrInvalidRecipient
	}

	if _, err := s.bot.SendGift(ctx, params); err != nil {
		return classify(err)
	}
	return nil
}

func (s *Stars) Refund(ctx context.Context, userID int64, txnID string) error {
	ok, err := s.bot.RefundStarPayment(ctx, &bot.RefundStarPaymentParams{
		UserID:                  userID,
		TelegramPaymentChargeID: txnID,
	})
	if err != nil {
		return classify(err)
	}
	if !ok {
		return fmt.Errorf("%w: refund of %s declined", domain.ErrPermanentAPI, txnID)
	}
	return nil
}

// classify maps a Bot API error onto the retry taxonomy: flood waits carry
// the server wait, network trouble is transient, the rest is permanent.
func classify(err error) error {
	var flood *bot.TooManyRequestsError
	if errors.As(err, &flood) {
		return &domain.RateLimitedError{RetryAfter: time.Duration(flood.RetryAfter) * time.Second}
	}

	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", domain.ErrTransientNetwork, err)
	}

	return fmt.Errorf("%w: %v", domain.ErrPermanentAPI, err)
}
