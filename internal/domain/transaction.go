package domain

// StarTransaction is one ledger entry from the Bot API star transaction log.
// Entries with no source are outgoing (refunds already issued); a deposit is
// considered refunded when its ID shows up among the no-source entries. That
// convention belongs to the ledger, not to us.
type StarTransaction struct {
	ID             string
	Amount         int64
	SourceUserID   *int64
	SourceUsername string
}

// IsRefund reports whether the entry is an outgoing no-source transaction.
func (t *StarTransaction) IsRefund() bool {
	return t.SourceUserID == nil
}

// DepositHint points at the smallest unused deposit that would cover the
// leftover after a refund run.
type DepositHint struct {
	ID     string
	Amount int64
}

// RefundFailure records a single refund call that failed; the run continues
// past it.
type RefundFailure struct {
	TxnID  string
	Amount int64
	Reason string
}

// RefundPlan is the outcome of one settlement run.
type RefundPlan struct {
	Refunded int64
	Count    int
	TxnIDs   []string
	Left     int64

	NextDeposit *DepositHint
	Failures    []RefundFailure
}

// Empty reports whether the run refunded nothing and found nothing to refund.
func (p *RefundPlan) Empty() bool {
	return p.Count == 0 && len(p.Failures) == 0
}
