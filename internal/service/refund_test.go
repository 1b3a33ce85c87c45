package service

import (
	"context"
	"testing"

	"github.com/set-night/giftsniper/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testUsername = "alice"

func newTestMatcher(ledger *fakeLedger) (*Matcher, *fakeRepo) {
	repo := newFakeRepo()
	balance := NewBalance(ledger, NewAccounts(repo))
	return NewMatcher(ledger, balance), repo
}

func TestMatcherExactSubset(t *testing.T) {
	ledger := &fakeLedger{txns: []domain.StarTransaction{
		deposit("d1", 30, 1, testUsername),
		deposit("d2", 50, 1, testUsername),
		deposit("d3", 70, 1, testUsername),
		{ID: "spent", Amount: 50}, // 100 left on the balance
	}}
	m, _ := newTestMatcher(ledger)

	plan, err := m.PlanRefund(context.Background(), 1, testUsername, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(100), plan.Refunded)
	assert.Equal(t, 2, plan.Count)
	assert.ElementsMatch(t, []string{"d1", "d3"}, plan.TxnIDs)
	assert.Equal(t, int64(0), plan.Left)
	assert.Nil(t, plan.NextDeposit)
	assert.Empty(t, plan.Failures)
}

func TestMatcherRefundsEverythingWhenBalanceCovers(t *testing.T) {
	ledger := &fakeLedger{txns: []domain.StarTransaction{
		deposit("d1", 10, 1, testUsername),
		deposit("d2", 20, 1, testUsername),
	}}
	m, repo := newTestMatcher(ledger)

	plan, err := m.PlanRefund(context.Background(), 1, testUsername, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(30), plan.Refunded)
	assert.Equal(t, int64(0), plan.Left)
	assert.ElementsMatch(t, []string{"d1", "d2"}, ledger.refunded)

	// Refresh during the run persisted the pre-refund balance.
	assert.Equal(t, int64(30), repo.balance(1))
}

func TestMatcherZeroBalanceIsEmptyPlan(t *testing.T) {
	ledger := &fakeLedger{txns: []domain.StarTransaction{
		{ID: "spent", Amount: 40},
	}}
	m, _ := newTestMatcher(ledger)

	plan, err := m.PlanRefund(context.Background(), 1, testUsername, nil)
	require.NoError(t, err)
	assert.True(t, plan.Empty())
	assert.Empty(t, ledger.refunded)
}

func TestMatcherSecondRunRefundsNothing(t *testing.T) {
	ledger := &fakeLedger{txns: []domain.StarTransaction{
		deposit("d1", 25, 1, testUsername),
		deposit("d2", 75, 1, testUsername),
	}}
	m, _ := newTestMatcher(ledger)

	first, err := m.PlanRefund(context.Background(), 1, testUsername, nil)
	require.NoError(t, err)
	require.Equal(t, int64(100), first.Refunded)

	second, err := m.PlanRefund(context.Background(), 1, testUsername, nil)
	require.NoError(t, err)
	assert.True(t, second.Empty(), "refunded deposits net to zero balance")
	assert.Len(t, ledger.refunded, 2, "no deposit refunded twice")
}

func TestMatcherSkipsAlreadyRefundedDeposits(t *testing.T) {
	ledger := &fakeLedger{txns: []domain.StarTransaction{
		deposit("d0", 40, 1, testUsername),
		{ID: "d0", Amount: 40}, // d0 already refunded
		deposit("d1", 60, 1, testUsername),
	}}
	m, _ := newTestMatcher(ledger)

	plan, err := m.PlanRefund(context.Background(), 1, testUsername, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"d1"}, plan.TxnIDs)
	assert.Equal(t, int64(60), plan.Refunded)
}

func TestMatcherNoRefundableDeposits(t *testing.T) {
	// Balance is held, but the deposits were made under a username the
	// caller no longer carries, so nothing qualifies for refund.
	ledger := &fakeLedger{txns: []domain.StarTransaction{
		deposit("d1", 60, 1, "old_handle"),
	}}
	m, _ := newTestMatcher(ledger)

	_, err := m.PlanRefund(context.Background(), 1, testUsername, nil)
	require.ErrorIs(t, err, domain.ErrNoRefundableDeposits)
	assert.Empty(t, ledger.refunded)
}

func TestMatcherIgnoresOtherUsersDeposits(t *testing.T) {
	ledger := &fakeLedger{txns: []domain.StarTransaction{
		deposit("mine", 50, 1, testUsername),
		deposit("theirs", 500, 2, "bob"),
	}}
	m, _ := newTestMatcher(ledger)

	plan, err := m.PlanRefund(context.Background(), 1, testUsername, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"mine"}, plan.TxnIDs)
	assert.Equal(t, int64(50), plan.Refunded)
}

func TestMatcherCollectsFailuresAndContinues(t *testing.T) {
	ledger := &fakeLedger{
		txns: []domain.StarTransaction{
			deposit("d1", 30, 1, testUsername),
			deposit("d2", 70, 1, testUsername),
		},
		failRefunds: map[string]error{"d2": domain.ErrPermanentAPI},
	}
	m, _ := newTestMatcher(ledger)

	var notes []string
	plan, err := m.PlanRefund(context.Background(), 1, testUsername, func(text string) {
		notes = append(notes, text)
	})
	require.NoError(t, err)
	assert.Equal(t, int64(30), plan.Refunded)
	assert.Equal(t, []string{"d1"}, plan.TxnIDs)
	require.Len(t, plan.Failures, 1)
	assert.Equal(t, "d2", plan.Failures[0].TxnID)
	assert.Equal(t, int64(70), plan.Failures[0].Amount)
	assert.Equal(t, int64(70), plan.Left)

	require.Len(t, notes, 1)
	assert.Contains(t, notes[0], "★70")
}

func TestMatcherNextDepositHint(t *testing.T) {
	ledger := &fakeLedger{txns: []domain.StarTransaction{
		deposit("small", 60, 1, testUsername),
		deposit("big", 90, 1, testUsername),
		{ID: "spent", Amount: 50}, // 100 left, only one deposit fits
	}}
	m, _ := newTestMatcher(ledger)

	plan, err := m.PlanRefund(context.Background(), 1, testUsername, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(90), plan.Refunded)
	assert.Equal(t, int64(10), plan.Left)
	require.NotNil(t, plan.NextDeposit)
	assert.Equal(t, "small", plan.NextDeposit.ID)
	assert.Equal(t, int64(60), plan.NextDeposit.Amount)
}

func TestSelectDeposits(t *testing.T) {
	mk := func(amounts ...int64) []domain.StarTransaction {
		txns := make([]domain.StarTransaction, len(amounts))
		for i, a := range amounts {
			txns[i] = deposit(string(rune('a'+i)), a, 1, testUsername)
		}
		return txns
	}
	sum := func(txns []domain.StarTransaction) int64 {
		var s int64
		for i := range txns {
			s += txns[i].Amount
		}
		return s
	}

	t.Run("empty candidates", func(t *testing.T) {
		assert.Nil(t, SelectDeposits(nil, 100))
	})

	t.Run("zero balance", func(t *testing.T) {
		assert.Nil(t, SelectDeposits(mk(10), 0))
	})

	t.Run("total fits, take all", func(t *testing.T) {
		chosen := SelectDeposits(mk(10, 20, 30), 60)
		assert.Len(t, chosen, 3)
	})

	t.Run("exact subset beats greedy", func(t *testing.T) {
		// Greedy takes only the 60; the exact pass finds 50+50.
		chosen := SelectDeposits(mk(60, 50, 50), 100)
		assert.Equal(t, int64(100), sum(chosen))
	})

	t.Run("nothing fits", func(t *testing.T) {
		chosen := SelectDeposits(mk(200, 300), 100)
		assert.Empty(t, chosen)
	})

	t.Run("greedy fallback on large candidate sets", func(t *testing.T) {
		amounts := make([]int64, 0, 20)
		amounts = append(amounts, 50)
		for i := 0; i < 19; i++ {
			amounts = append(amounts, 7)
		}
		chosen := SelectDeposits(mk(amounts...), 95)
		assert.Equal(t, int64(92), sum(chosen), "50 plus six sevens")
		assert.LessOrEqual(t, sum(chosen), int64(95))
	})

	t.Run("greedy fallback on huge balances", func(t *testing.T) {
		chosen := SelectDeposits(mk(5_000_000, 3_000_000), 6_000_000)
		assert.Equal(t, int64(5_000_000), sum(chosen))
	})

	t.Run("never exceeds balance", func(t *testing.T) {
		cases := [][]int64{
			{1, 2, 3, 4, 5},
			{99, 1, 100},
			{33, 33, 33, 33},
		}
		for _, amounts := range cases {
			chosen := SelectDeposits(mk(amounts...), 100)
			assert.LessOrEqual(t, sum(chosen), int64(100))
		}
	})
}
