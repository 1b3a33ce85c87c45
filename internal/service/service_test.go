package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/set-night/giftsniper/internal/domain"
)

// fakeRepo is an in-memory AccountRepo with honest revision checking.
type fakeRepo struct {
	mu       sync.Mutex
	accounts map[int64]*domain.Account
	saves    int

	// failSaves makes the next N saves report a concurrent update.
	failSaves int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{accounts: make(map[int64]*domain.Account)}
}

func cloneAccount(acc *domain.Account) *domain.Account {
	raw, _ := json.Marshal(acc)
	out := &domain.Account{}
	_ = json.Unmarshal(raw, out)
	out.UserID = acc.UserID
	out.Revision = acc.Revision
	return out
}

func (r *fakeRepo) GetAccount(_ context.Context, userID int64) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	acc, ok := r.accounts[userID]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	return cloneAccount(acc), nil
}

func (r *fakeRepo) InsertAccount(_ context.Context, acc *domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.accounts[acc.UserID]; ok {
		return nil
	}
	stored := cloneAccount(acc)
	stored.Revision = 1
	r.accounts[acc.UserID] = stored
	return nil
}

func (r *fakeRepo) SaveAccount(_ context.Context, acc *domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saves++
	if r.failSaves > 0 {
		r.failSaves--
		return domain.ErrConcurrentUpdate
	}
	stored, ok := r.accounts[acc.UserID]
	if !ok || stored.Revision != acc.Revision {
		return domain.ErrConcurrentUpdate
	}
	next := cloneAccount(acc)
	next.Revision = acc.Revision + 1
	r.accounts[acc.UserID] = next
	acc.Revision = next.Revision
	return nil
}

func (r *fakeRepo) seed(acc *domain.Account) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := cloneAccount(acc)
	if stored.Revision == 0 {
		stored.Revision = 1
	}
	r.accounts[acc.UserID] = stored
}

func (r *fakeRepo) balance(userID int64) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.accounts[userID].Balance
}

// fakeSender replays a scripted sequence of SendGift results; nil means
// success. Once the script runs out every call succeeds.
type fakeSender struct {
	mu     sync.Mutex
	script []error
	calls  int
}

func (s *fakeSender) SendGift(_ context.Context, _ string, _ domain.Recipient) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var err error
	if s.calls < len(s.script) {
		err = s.script[s.calls]
	}
	s.calls++
	return err
}

// fakeInventory returns the same catalog every cycle, pre-filtered.
type fakeInventory struct {
	gifts []domain.Gift
	err   error
}

func (f *fakeInventory) ListAvailable(_ context.Context, filter domain.GiftFilter) ([]domain.Gift, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []domain.Gift
	for _, g := range f.gifts {
		if filter.Matches(g) {
			out = append(out, g)
		}
	}
	return out, nil
}

// fakeAllowList is a static principal list.
type fakeAllowList []int64

func (f fakeAllowList) ListAuthorized(_ context.Context) ([]int64, error) {
	return f, nil
}

// fakeNotifier records delivered messages.
type fakeNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *fakeNotifier) Notify(_ context.Context, _ int64, text string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, text)
}

func (n *fakeNotifier) all() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.messages...)
}

// fakeLedger serves transactions in pages and records refunds; issuing a
// refund appends the matching no-source entry, like the real ledger does.
type fakeLedger struct {
	mu       sync.Mutex
	txns     []domain.StarTransaction
	refunded []string

	// failRefunds holds txn ids whose refund call should fail.
	failRefunds map[string]error
}

func (l *fakeLedger) ListTransactions(_ context.Context, offset, limit int) ([]domain.StarTransaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if offset >= len(l.txns) {
		return nil, nil
	}
	end := offset + limit
	if end > len(l.txns) {
		end = len(l.txns)
	}
	return append([]domain.StarTransaction(nil), l.txns[offset:end]...), nil
}

func (l *fakeLedger) Refund(_ context.Context, _ int64, txnID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err, ok := l.failRefunds[txnID]; ok {
		return err
	}
	for _, t := range l.txns {
		if t.ID == txnID {
			l.refunded = append(l.refunded, txnID)
			l.txns = append(l.txns, domain.StarTransaction{ID: txnID, Amount: t.Amount})
			return nil
		}
	}
	return domain.ErrPermanentAPI
}

// sleepRecorder captures requested sleep durations without waiting.
type sleepRecorder struct {
	mu     sync.Mutex
	sleeps []time.Duration
}

func (s *sleepRecorder) sleep(_ context.Context, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sleeps = append(s.sleeps, d)
	return nil
}

func deposit(id string, amount int64, userID int64, username string) domain.StarTransaction {
	return domain.StarTransaction{
		ID:             id,
		Amount:         amount,
		SourceUserID:   &userID,
		SourceUsername: username,
	}
}
