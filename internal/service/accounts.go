package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/set-night/giftsniper/internal/config"
	"github.com/set-night/giftsniper/internal/domain"
)

// AccountRepo is the persistence surface the store needs. Last-writer-wins
// is not acceptable here, so SaveAccount must reject stale revisions with
// domain.ErrConcurrentUpdate.
type AccountRepo interface {
	GetAccount(ctx context.Context, userID int64) (*domain.Account, error)
	InsertAccount(ctx context.Context, acc *domain.Account) error
	SaveAccount(ctx context.Context, acc *domain.Account) error
}

// Accounts is the only mutation path to account records. A per-account mutex
// serializes read-modify-write sequences inside this process; the revision
// check in the repository catches writers outside it.
type Accounts struct {
	repo AccountRepo

	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

func NewAccounts(repo AccountRepo) *Accounts {
	return &Accounts{
		repo:  repo,
		locks: make(map[int64]*sync.Mutex),
	}
}

const casRetries = 3

// DefaultProfile mirrors the values a freshly created profile gets.
func DefaultProfile(userID int64) domain.Profile {
	uid := userID
	return domain.Profile{
		MinPrice:     config.DefaultMinPrice,
		MaxPrice:     config.DefaultMaxPrice,
		MinSupply:    config.DefaultMinSupply,
		MaxSupply:    config.DefaultMaxSupply,
		Count:        config.DefaultCount,
		Limit:        config.DefaultLimit,
		TargetUserID: &uid,
	}
}

func DefaultAccount(userID int64) *domain.Account {
	return &domain.Account{
		UserID:   userID,
		Profiles: []domain.Profile{DefaultProfile(userID)},
	}
}

// Get loads the record, creating it with defaults on first touch. Loaded
// records are normalized so a hand-edited or truncated row never breaks the
// worker.
func (s *Accounts) Get(ctx context.Context, userID int64) (*domain.Account, error) {
	acc, err := s.repo.GetAccount(ctx, userID)
	if errors.Is(err, domain.ErrAccountNotFound) {
		acc = DefaultAccount(userID)
		if err := s.repo.InsertAccount(ctx, acc); err != nil {
			return nil, err
		}
		return s.repo.GetAccount(ctx, userID)
	}
	if err != nil {
		return nil, err
	}
	normalize(acc)
	return acc, nil
}

// Update runs fn against a freshly loaded record and persists the result,
// all under the account's lock. On a revision conflict (an out-of-process
// writer) the load-modify-save is retried from scratch.
func (s *Accounts) Update(ctx context.Context, userID int64, fn func(*domain.Account) error) (*domain.Account, error) {
	lock := s.lock(userID)
	lock.Lock()
	defer lock.Unlock()

	for attempt := 0; attempt < casRetries; attempt++ {
		acc, err := s.Get(ctx, userID)
		if err != nil {
			return nil, err
		}
		if err := fn(acc); err != nil {
			return nil, err
		}
		err = s.repo.SaveAccount(ctx, acc)
		if err == nil {
			return acc, nil
		}
		if !errors.Is(err, domain.ErrConcurrentUpdate) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("update account %d: %w", userID, domain.ErrConcurrentUpdate)
}

func (s *Accounts) lock(userID int64) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[userID] = l
	}
	return l
}

// normalize fills defaults in place of missing or corrupt fields, the same
// forgiving load the bot has always done: a bad record costs the user their
// odd values, never an error.
func normalize(acc *domain.Account) {
	if acc.Balance < 0 {
		acc.Balance = 0
	}
	if len(acc.Profiles) == 0 {
		acc.Profiles = []domain.Profile{DefaultProfile(acc.UserID)}
	}
	if len(acc.Profiles) > config.MaxProfiles {
		acc.Profiles = acc.Profiles[:config.MaxProfiles]
	}
	for i := range acc.Profiles {
		normalizeProfile(&acc.Profiles[i], acc.UserID)
	}
}

func normalizeProfile(p *domain.Profile, userID int64) {
	def := DefaultProfile(userID)
	if p.MinPrice <= 0 {
		p.MinPrice = def.MinPrice
	}
	if p.MaxPrice < p.MinPrice {
		p.MaxPrice = def.MaxPrice
	}
	if p.MinSupply <= 0 {
		p.MinSupply = def.MinSupply
	}
	if p.MaxSupply < p.MinSupply {
		p.MaxSupply = def.MaxSupply
	}
	if p.Count <= 0 {
		p.Count = def.Count
	}
	if p.Limit <= 0 {
		p.Limit = def.Limit
	}
	if p.Bought < 0 {
		p.Bought = 0
	}
	if p.Spent < 0 {
		p.Spent = 0
	}
	if p.TargetUserID == nil && p.TargetChatID == nil {
		p.TargetUserID = def.TargetUserID
	}
}
