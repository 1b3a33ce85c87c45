package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/set-night/giftsniper/internal/config"
	"github.com/set-night/giftsniper/internal/domain"
)

// LedgerReader pages through the Bot API star transaction log. Pagination
// terminates on the first empty page.
type LedgerReader interface {
	ListTransactions(ctx context.Context, offset, limit int) ([]domain.StarTransaction, error)
}

// Balance derives the spendable star balance by replaying the transaction
// log: deposits attributed to the account add, no-source entries (refunds
// already issued) subtract.
type Balance struct {
	ledger   LedgerReader
	store    *Accounts
	pageSize int
}

func NewBalance(ledger LedgerReader, store *Accounts) *Balance {
	return &Balance{
		ledger:   ledger,
		store:    store,
		pageSize: config.TxnPageSize,
	}
}

// Replay computes the balance without touching the stored record.
func (s *Balance) Replay(ctx context.Context, userID int64) (int64, error) {
	var balance int64
	for offset := 0; ; offset += s.pageSize {
		txns, err := s.ledger.ListTransactions(ctx, offset, s.pageSize)
		if err != nil {
			return 0, fmt.Errorf("list transactions at offset %d: %w", offset, err)
		}
		if len(txns) == 0 {
			break
		}
		for i := range txns {
			t := &txns[i]
			switch {
			case t.SourceUserID != nil && *t.SourceUserID == userID:
				balance += t.Amount
			case t.IsRefund():
				balance -= t.Amount
			}
		}
	}
	return balance, nil
}

// Refresh replays the ledger and persists the result on the account record.
func (s *Balance) Refresh(ctx context.Context, userID int64) (int64, error) {
	balance, err := s.Replay(ctx, userID)
	if err != nil {
		return 0, err
	}
	if balance < 0 {
		balance = 0
	}
	if _, err := s.store.Update(ctx, userID, func(a *domain.Account) error {
		a.Balance = balance
		return nil
	}); err != nil {
		return 0, err
	}
	slog.Info("balance refreshed", "user_id", userID, "balance", balance)
	return balance, nil
}

// ListAll drains the whole transaction log.
func (s *Balance) ListAll(ctx context.Context) ([]domain.StarTransaction, error) {
	var all []domain.StarTransaction
	for offset := 0; ; offset += s.pageSize {
		txns, err := s.ledger.ListTransactions(ctx, offset, s.pageSize)
		if err != nil {
			return nil, fmt.Errorf("list transactions at offset %d: %w", offset, err)
		}
		if len(txns) == 0 {
			return all, nil
		}
		all = append(all, txns...)
	}
}
