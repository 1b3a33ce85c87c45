package service

import (
	"fmt"
	"strings"

	"github.com/set-night/giftsniper/internal/domain"
)

const (
	msgNoPurchases = "⚠️ Найдены подходящие подарки, но купить их *не удалось*.\n" +
		"💰 Пополните баланс!\n" +
		"🚦 Статус изменён на 🔴 (неактивен)."
	msgAllDone = "✅ Все профили *завершены*!\n" +
		"♻️ Сбросьте прогресс или измените профили, чтобы продолжить."
)

// purchaseTally groups the purchases of one profile pass by gift id,
// in first-purchase order.
type purchaseTally struct {
	order  []string
	byGift map[string]*giftCount
}

type giftCount struct {
	price int64
	count int
}

func newPurchaseTally() *purchaseTally {
	return &purchaseTally{byGift: make(map[string]*giftCount)}
}

func (t *purchaseTally) add(g domain.Gift) {
	gc, ok := t.byGift[g.ID]
	if !ok {
		gc = &giftCount{price: g.Price}
		t.byGift[g.ID] = gc
		t.order = append(t.order, g.ID)
	}
	gc.count++
}

// profileSummary renders one profile's outcome for the cycle report.
func profileSummary(index int, p domain.Profile, tally *purchaseTally, completed bool) string {
	head := "⚠️"
	suffix := " (частично)"
	if completed {
		head = "✅"
		suffix = ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "\n┌%s *Профиль %d*%s\n", head, index+1, suffix)
	fmt.Fprintf(&b, "├👤 Получатель: %s\n", recipientDisplay(p.Recipient()))
	fmt.Fprintf(&b, "├💸 Потрачено: %d / %d ★ (≈ $%s)\n", p.Spent, p.Limit, StarsToUSD(p.Spent).StringFixed(2))
	fmt.Fprintf(&b, "└🎁 Куплено %d из %d:", p.Bought, p.Count)

	for i, id := range tally.order {
		gc := tally.byGift[id]
		prefix := "   ├"
		if i == len(tally.order)-1 {
			prefix = "   └"
		}
		fmt.Fprintf(&b, "\n%s %d ★ × %d", prefix, gc.price, gc.count)
	}
	return b.String()
}

func cycleReport(lines []string) string {
	if len(lines) == 0 {
		return "🍀 *Отчёт по профилям:*\n⚠️ Покупок не совершено."
	}
	return "🍀 *Отчёт по профилям:*\n" + strings.Join(lines, "\n")
}

func recipientDisplay(r domain.Recipient) string {
	switch {
	case r.ChatID != nil:
		return fmt.Sprintf("%s (канал)", *r.ChatID)
	case r.UserID != nil:
		return fmt.Sprintf("`%d`", *r.UserID)
	default:
		return "—"
	}
}

func refundFailedNote(amount int64) string {
	return fmt.Sprintf("🚫 Ошибка при возврате ★%d", amount)
}
