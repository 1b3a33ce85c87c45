package telegram

import (
	"context"
	"fmt"

	"github.com/go-telegram/bot"
	"github.com/set-night/giftsniper/internal/domain"
)

// Gifts implements the inventory gateway over GetAvailableGifts. The catalog
// is cheap to fetch and changes under our feet, so no caching: every call
// sees the current state.
type Gifts struct {
	bot *bot.Bot
}

func NewGifts(b *bot.Bot) *Gifts {
	return &Gifts{bot: b}
}

func (g *Gifts) ListAvailable(ctx context.Context, f domain.GiftFilter) ([]domain.Gift, error) {
	res, err := g.bot.GetAvailableGifts(ctx)
	if err != nil {
		return nil, fmt.Errorf("get available gifts: %w", err)
	}

	var out []domain.Gift
	for _, item := range res.Gifts {
		gift := domain.Gift{
			ID:             item.ID,
			Price:          int64(item.StarCount),
			TotalCount:     int64(item.TotalCount),
			RemainingCount: int64(item.RemainingCount),
		}
		if f.Matches(gift) {
			out = append(out, gift)
		}
	}
	return out, nil
}
