package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/set-night/giftsniper/internal/config"
	"github.com/set-night/giftsniper/internal/domain"
)

// LedgerGateway extends ledger reads with the refund call. Refunds are not
// idempotent on the Telegram side; a deposit already reflected as refunded
// must never be re-issued.
type LedgerGateway interface {
	LedgerReader
	Refund(ctx context.Context, userID int64, txnID string) error
}

// Matcher selects which unrefunded deposits to send back without overdrawing
// the replayed balance.
type Matcher struct {
	ledger  LedgerGateway
	balance *Balance

	// selectDeposits picks the refund subset; swappable strategy.
	selectDeposits func(candidates []domain.StarTransaction, balance int64) []domain.StarTransaction
}

func NewMatcher(ledger LedgerGateway, balance *Balance) *Matcher {
	return &Matcher{
		ledger:         ledger,
		balance:        balance,
		selectDeposits: SelectDeposits,
	}
}

// ProgressFunc receives human-readable notes while a refund run is in
// flight, so a chat handler can stream them. May be nil.
type ProgressFunc func(text string)

// PlanRefund refunds the best achievable subset of username's unrefunded
// deposits on userID's balance and reports what happened. One failed refund
// does not abort the rest; it lands in the plan's failure list. A positive
// balance with no refundable deposit behind it is ErrNoRefundableDeposits.
func (m *Matcher) PlanRefund(ctx context.Context, userID int64, username string, progress ProgressFunc) (*domain.RefundPlan, error) {
	balance, err := m.balance.Refresh(ctx, userID)
	if err != nil {
		return nil, err
	}
	if balance <= 0 {
		slog.Info("refund skipped, zero balance", "user_id", userID)
		return &domain.RefundPlan{}, nil
	}

	all, err := m.balance.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	refundedIDs := make(map[string]bool)
	for i := range all {
		if all[i].IsRefund() {
			refundedIDs[all[i].ID] = true
		}
	}

	var candidates []domain.StarTransaction
	for i := range all {
		t := all[i]
		if t.SourceUserID == nil || *t.SourceUserID != userID {
			continue
		}
		if t.SourceUsername != username {
			continue
		}
		if refundedIDs[t.ID] {
			continue
		}
		candidates = append(candidates, t)
	}
	if len(candidates) == 0 {
		slog.Warn("balance held without refundable deposits",
			"user_id", userID, "username", username, "balance", balance)
		return nil, fmt.Errorf("user %d: %w", userID, domain.ErrNoRefundableDeposits)
	}

	chosen := m.selectDeposits(candidates, balance)
	if len(chosen) == 0 {
		slog.Info("no refundable deposits fit the balance",
			"user_id", userID, "candidates", len(candidates), "balance", balance)
		return &domain.RefundPlan{Left: balance}, nil
	}

	plan := &domain.RefundPlan{}
	chosenIDs := make(map[string]bool, len(chosen))
	for _, txn := range chosen {
		chosenIDs[txn.ID] = true
		if err := m.ledger.Refund(ctx, userID, txn.ID); err != nil {
			slog.Error("refund failed",
				"user_id", userID, "txn_id", txn.ID, "amount", txn.Amount, "error", err)
			plan.Failures = append(plan.Failures, domain.RefundFailure{
				TxnID:  txn.ID,
				Amount: txn.Amount,
				Reason: err.Error(),
			})
			if progress != nil {
				progress(refundFailedNote(txn.Amount))
			}
			continue
		}
		plan.Refunded += txn.Amount
		plan.Count++
		plan.TxnIDs = append(plan.TxnIDs, txn.ID)
		slog.Info("refund issued", "user_id", userID, "txn_id", txn.ID, "amount", txn.Amount)
	}

	plan.Left = balance - plan.Refunded
	if plan.Left > 0 {
		plan.NextDeposit = nextDepositHint(candidates, chosenIDs, plan.Left)
	}
	return plan, nil
}

// SelectDeposits is the default selection strategy. For small candidate sets
// an exact subset-sum picks the maximum total not exceeding balance; larger
// sets (or sums too big for the DP table) fall back to a descending greedy
// packing, which is an approximation and may miss the optimum.
func SelectDeposits(candidates []domain.StarTransaction, balance int64) []domain.StarTransaction {
	if len(candidates) == 0 || balance <= 0 {
		return nil
	}

	var total int64
	for i := range candidates {
		total += candidates[i].Amount
	}
	if total <= balance {
		return candidates
	}

	capacity := balance
	if len(candidates) <= config.ExhaustiveLimit && capacity <= config.KnapsackDPBudget {
		return knapsackDeposits(candidates, capacity)
	}
	return greedyDeposits(candidates, balance)
}

// knapsackDeposits finds the subset with the maximum sum not exceeding
// capacity via 0/1 subset-sum DP, and short-circuits on an exact hit.
func knapsackDeposits(candidates []domain.StarTransaction, capacity int64) []domain.StarTransaction {
	// from[s] is the index of the item that first reached sum s, or -1.
	from := make([]int, capacity+1)
	for s := range from {
		from[s] = -1
	}

	best := int64(0)
	for i := range candidates {
		amount := candidates[i].Amount
		if amount <= 0 || amount > capacity {
			continue
		}
		for s := capacity; s >= amount; s-- {
			if from[s] != -1 {
				continue
			}
			if s == amount || (from[s-amount] != -1 && from[s-amount] != i) {
				from[s] = i
				if s > best {
					best = s
				}
			}
		}
		if best == capacity {
			break
		}
	}

	if best == 0 {
		return nil
	}

	var chosen []domain.StarTransaction
	for s := best; s > 0; {
		i := from[s]
		chosen = append(chosen, candidates[i])
		s -= candidates[i].Amount
	}
	return chosen
}

// greedyDeposits packs the largest deposits first while they still fit.
func greedyDeposits(candidates []domain.StarTransaction, balance int64) []domain.StarTransaction {
	sorted := make([]domain.StarTransaction, len(candidates))
	copy(sorted, candidates)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Amount > sorted[j].Amount })

	var chosen []domain.StarTransaction
	var sum int64
	for i := range sorted {
		if sum+sorted[i].Amount <= balance {
			chosen = append(chosen, sorted[i])
			sum += sorted[i].Amount
		}
	}
	return chosen
}

// nextDepositHint finds the smallest unused deposit strictly greater than
// left: topping up by at least that much makes a full refund possible on the
// next run.
func nextDepositHint(candidates []domain.StarTransaction, chosen map[string]bool, left int64) *domain.DepositHint {
	var hint *domain.DepositHint
	for i := range candidates {
		t := &candidates[i]
		if chosen[t.ID] || t.Amount <= left {
			continue
		}
		if hint == nil || t.Amount < hint.Amount {
			hint = &domain.DepositHint{ID: t.ID, Amount: t.Amount}
		}
	}
	return hint
}
