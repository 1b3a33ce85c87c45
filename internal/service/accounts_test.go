package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/set-night/giftsniper/internal/config"
	"github.com/set-night/giftsniper/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccountsGetCreatesDefault(t *testing.T) {
	repo := newFakeRepo()
	store := NewAccounts(repo)

	acc, err := store.Get(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, int64(42), acc.UserID)
	assert.Equal(t, int64(0), acc.Balance)
	assert.False(t, acc.Active)
	require.Len(t, acc.Profiles, 1)

	prof := acc.Profiles[0]
	assert.Equal(t, int64(config.DefaultMinPrice), prof.MinPrice)
	assert.Equal(t, int64(config.DefaultMaxPrice), prof.MaxPrice)
	assert.Equal(t, config.DefaultCount, prof.Count)
	assert.Equal(t, int64(config.DefaultLimit), prof.Limit)
	require.NotNil(t, prof.TargetUserID)
	assert.Equal(t, int64(42), *prof.TargetUserID, "gifts go to the owner by default")

	// Created once, not on every Get.
	again, err := store.Get(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, acc.Revision, again.Revision)
}

func TestAccountsNormalizeOnLoad(t *testing.T) {
	repo := newFakeRepo()
	store := NewAccounts(repo)
	repo.seed(&domain.Account{
		UserID:  7,
		Balance: -50,
		Profiles: []domain.Profile{
			{MinPrice: -1, MaxPrice: 0, Count: 0, Limit: -3},
			{MinPrice: 10, MaxPrice: 20, MinSupply: 1, MaxSupply: 2, Count: 1, Limit: 100},
			{},
			{},
		},
	})

	acc, err := store.Get(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, int64(0), acc.Balance, "negative balance clamped")
	assert.Len(t, acc.Profiles, config.MaxProfiles, "excess profiles trimmed")

	corrupt := acc.Profiles[0]
	assert.Equal(t, int64(config.DefaultMinPrice), corrupt.MinPrice)
	assert.Equal(t, int64(config.DefaultMaxPrice), corrupt.MaxPrice)
	assert.Equal(t, config.DefaultCount, corrupt.Count)
	assert.Equal(t, int64(config.DefaultLimit), corrupt.Limit)
	require.NotNil(t, corrupt.TargetUserID)
	assert.Equal(t, int64(7), *corrupt.TargetUserID)

	// A valid profile is left alone.
	assert.Equal(t, int64(10), acc.Profiles[1].MinPrice)
	assert.Equal(t, int64(20), acc.Profiles[1].MaxPrice)
}

func TestAccountsUpdateRetriesOnConflict(t *testing.T) {
	repo := newFakeRepo()
	store := NewAccounts(repo)
	repo.seed(&domain.Account{UserID: 1, Balance: 5, Profiles: []domain.Profile{DefaultProfile(1)}})
	repo.failSaves = 2

	acc, err := store.Update(context.Background(), 1, func(a *domain.Account) error {
		a.Balance += 10
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(15), acc.Balance, "mutation applied exactly once despite retries")
	assert.Equal(t, 3, repo.saves)
	assert.Equal(t, int64(15), repo.balance(1))
}

func TestAccountsUpdateGivesUpAfterRetries(t *testing.T) {
	repo := newFakeRepo()
	store := NewAccounts(repo)
	repo.seed(&domain.Account{UserID: 1, Profiles: []domain.Profile{DefaultProfile(1)}})
	repo.failSaves = casRetries

	_, err := store.Update(context.Background(), 1, func(a *domain.Account) error {
		a.Balance++
		return nil
	})
	require.ErrorIs(t, err, domain.ErrConcurrentUpdate)
	assert.Equal(t, int64(0), repo.balance(1), "no partial write")
}

func TestAccountsUpdateFnErrorAbortsSave(t *testing.T) {
	repo := newFakeRepo()
	store := NewAccounts(repo)
	repo.seed(&domain.Account{UserID: 1, Profiles: []domain.Profile{DefaultProfile(1)}})

	boom := errors.New("boom")
	_, err := store.Update(context.Background(), 1, func(*domain.Account) error { return boom })
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 0, repo.saves)
}

func TestAccountsUpdateSerializesConcurrentWriters(t *testing.T) {
	repo := newFakeRepo()
	store := NewAccounts(repo)
	repo.seed(&domain.Account{UserID: 1, Profiles: []domain.Profile{DefaultProfile(1)}})

	const goroutines = 10
	const increments = 10

	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < increments; i++ {
				_, err := store.Update(context.Background(), 1, func(a *domain.Account) error {
					a.Balance++
					return nil
				})
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(goroutines*increments), repo.balance(1), "no lost updates")
}
