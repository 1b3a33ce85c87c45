package service

import (
	"context"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/set-night/giftsniper/internal/config"
	"github.com/set-night/giftsniper/internal/domain"
)

// InventoryGateway lists currently purchasable gifts matching a filter.
type InventoryGateway interface {
	ListAvailable(ctx context.Context, f domain.GiftFilter) ([]domain.Gift, error)
}

// Buyer is the purchase executor surface the worker drives.
type Buyer interface {
	Buy(ctx context.Context, userID int64, gift domain.Gift, rcpt domain.Recipient) error
}

// AllowList enumerates the principals the worker processes. Re-read every
// cycle, so grants and revokes take effect on the next tick.
type AllowList interface {
	ListAuthorized(ctx context.Context) ([]int64, error)
}

// Notifier delivers a chat message to a principal. Fire and forget: delivery
// failure is the notifier's to log, never the worker's to retry.
type Notifier interface {
	Notify(ctx context.Context, chatID int64, text string)
}

// Audit mirrors noteworthy events into the admin log channel. May be nil.
type Audit interface {
	LogPurchase(userID int64, giftID string, price int64)
}

// Worker drives the recurring acquisition cycle: for every allowed account,
// every active profile hunts the catalog and buys until a cap is hit or a
// purchase fails.
type Worker struct {
	store     *Accounts
	inventory InventoryGateway
	buyer     Buyer
	allow     AllowList
	notifier  Notifier
	balance   *Balance
	audit     Audit

	interval time.Duration
	cooldown time.Duration
	sleep    func(ctx context.Context, d time.Duration) error
}

func NewWorker(store *Accounts, inventory InventoryGateway, buyer Buyer, allow AllowList, notifier Notifier, balance *Balance, audit Audit) *Worker {
	return &Worker{
		store:     store,
		inventory: inventory,
		buyer:     buyer,
		allow:     allow,
		notifier:  notifier,
		balance:   balance,
		audit:     audit,
		interval:  config.WorkerInterval,
		cooldown:  config.PurchaseCooldown,
		sleep:     sleepCtx,
	}
}

// Run loops until ctx is done. The worker is interrupted only between
// cycles; in-flight purchases are allowed to finish their account.
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	slog.Info("acquisition worker started", "interval", w.interval)
	for {
		select {
		case <-ctx.Done():
			slog.Info("acquisition worker stopped")
			return
		case <-ticker.C:
			w.RunCycle(ctx)
		}
	}
}

// RunCycle processes every allowed account once. An error on one account
// never blocks the next.
func (w *Worker) RunCycle(ctx context.Context) {
	cycleID := uuid.New().String()

	userIDs, err := w.allow.ListAuthorized(ctx)
	if err != nil {
		slog.Error("list allowed users", "cycle_id", cycleID, "error", err)
		return
	}

	for _, userID := range userIDs {
		if ctx.Err() != nil {
			return
		}
		w.runAccount(ctx, cycleID, userID)
	}
}

func (w *Worker) runAccount(ctx context.Context, cycleID string, userID int64) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic in acquisition cycle",
				"cycle_id", cycleID, "user_id", userID,
				"panic", r, "stack", string(debug.Stack()))
		}
	}()

	if err := w.processAccount(ctx, userID); err != nil {
		slog.Error("process account",
			"cycle_id", cycleID, "user_id", userID, "error", err)
	}
}

func (w *Worker) processAccount(ctx context.Context, userID int64) error {
	acc, err := w.store.Get(ctx, userID)
	if err != nil {
		return err
	}
	if !acc.Active {
		return nil
	}

	var reportLines []string
	progressMade := false
	anySuccess := true

	for idx := 0; idx < len(acc.Profiles); idx++ {
		prof := acc.Profiles[idx]
		if prof.Done {
			continue
		}

		gifts, err := w.inventory.ListAvailable(ctx, prof.Filter())
		if err != nil {
			slog.Error("list available gifts", "user_id", userID, "profile", idx, "error", err)
			continue
		}
		if len(gifts) == 0 {
			continue
		}

		tally := newPurchaseTally()
		beforeBought, beforeSpent := prof.Bought, prof.Spent
		failed := false

		for _, gift := range gifts {
			// Caps are re-checked before and after every purchase: a
			// single buy can hit both at once and the loop must stop on
			// the boundary, never past it.
			for prof.Bought < prof.Count && prof.Spent+gift.Price <= prof.Limit {
				if err := w.buyer.Buy(ctx, userID, gift, prof.Recipient()); err != nil {
					anySuccess = false
					failed = true
					slog.Warn("purchase failed, profile paused for this cycle",
						"user_id", userID, "profile", idx, "gift_id", gift.ID, "error", err)
					break
				}

				updated, err := w.store.Update(ctx, userID, func(a *domain.Account) error {
					if idx >= len(a.Profiles) {
						return domain.ErrProfileNotFound
					}
					a.Profiles[idx].Bought++
					a.Profiles[idx].Spent += gift.Price
					return nil
				})
				if err != nil {
					return err
				}
				prof = updated.Profiles[idx]
				tally.add(gift)
				if w.audit != nil {
					w.audit.LogPurchase(userID, gift.ID, gift.Price)
				}

				if prof.Bought >= prof.Count || prof.Spent >= prof.Limit {
					break
				}
				if err := w.sleep(ctx, w.cooldown); err != nil {
					return err
				}
			}
			if failed || prof.Completed() {
				break
			}
		}

		madeLocal := prof.Bought > beforeBought || prof.Spent > beforeSpent

		if prof.Completed() && !prof.Done {
			if _, err := w.store.Update(ctx, userID, func(a *domain.Account) error {
				if idx >= len(a.Profiles) {
					return domain.ErrProfileNotFound
				}
				a.Profiles[idx].Done = true
				return nil
			}); err != nil {
				return err
			}
			prof.Done = true
			reportLines = append(reportLines, profileSummary(idx, prof, tally, true))
			progressMade = true
			slog.Info("profile completed", "user_id", userID, "profile", idx,
				"bought", prof.Bought, "spent", prof.Spent)
			w.refreshBalance(ctx, userID)
			continue
		}

		if madeLocal {
			reportLines = append(reportLines, profileSummary(idx, prof, tally, false))
			progressMade = true
			slog.Warn("profile left incomplete this cycle", "user_id", userID, "profile", idx,
				"bought", prof.Bought, "spent", prof.Spent)
			w.refreshBalance(ctx, userID)
		}
	}

	if !anySuccess && !progressMade {
		if _, err := w.store.Update(ctx, userID, func(a *domain.Account) error {
			a.Active = false
			return nil
		}); err != nil {
			return err
		}
		slog.Warn("no purchases succeeded, account deactivated", "user_id", userID)
		w.notifier.Notify(ctx, userID, msgNoPurchases)
		return nil
	}

	if progressMade {
		updated, err := w.store.Update(ctx, userID, func(a *domain.Account) error {
			a.Active = !a.AllDone()
			return nil
		})
		if err != nil {
			return err
		}
		w.notifier.Notify(ctx, userID, cycleReport(reportLines))
		if updated.AllDone() {
			w.notifier.Notify(ctx, userID, msgAllDone)
		}
	}

	return nil
}

func (w *Worker) refreshBalance(ctx context.Context, userID int64) {
	if w.balance == nil {
		return
	}
	if _, err := w.balance.Refresh(ctx, userID); err != nil {
		slog.Error("refresh balance after purchases", "user_id", userID, "error", err)
	}
}
