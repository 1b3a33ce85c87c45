package domain

// Profile is a single funding policy: which gifts to buy, how many, for whom
// and within what spend limit. An account holds up to three of them.
type Profile struct {
	MinPrice  int64 `json:"min_price"`
	MaxPrice  int64 `json:"max_price"`
	MinSupply int64 `json:"min_supply"`
	MaxSupply int64 `json:"max_supply"`

	// Count caps the number of gifts, Limit caps the total stars spent.
	Count int   `json:"count"`
	Limit int64 `json:"limit"`

	// Exactly one of TargetUserID / TargetChatID must be set.
	TargetUserID *int64  `json:"target_user_id,omitempty"`
	TargetChatID *string `json:"target_chat_id,omitempty"`

	Bought int   `json:"bought"`
	Spent  int64 `json:"spent"`
	Done   bool  `json:"done"`
}

// Completed reports whether either cap is reached. Done is set from this by
// the worker and never unset except by an explicit reset.
func (p *Profile) Completed() bool {
	return p.Bought >= p.Count || p.Spent >= p.Limit
}

func (p *Profile) Recipient() Recipient {
	return Recipient{UserID: p.TargetUserID, ChatID: p.TargetChatID}
}

func (p *Profile) Filter() GiftFilter {
	return GiftFilter{
		MinPrice:  p.MinPrice,
		MaxPrice:  p.MaxPrice,
		MinSupply: p.MinSupply,
		MaxSupply: p.MaxSupply,
	}
}

// Recipient is the gift target: a user or a channel, never both.
type Recipient struct {
	UserID *int64
	ChatID *string
}

func (r Recipient) Valid() bool {
	return (r.UserID != nil) != (r.ChatID != nil)
}

// Account is the persisted per-principal record. All mutation goes through
// the account store, which serializes read-modify-write sequences.
type Account struct {
	UserID   int64     `json:"user_id"`
	Balance  int64     `json:"balance"`
	Active   bool      `json:"active"`
	Profiles []Profile `json:"profiles"`

	// Revision is bumped on every save; stale writes are rejected.
	Revision int64 `json:"-"`
}

// AllDone reports whether every profile has reached a cap.
func (a *Account) AllDone() bool {
	for i := range a.Profiles {
		if !a.Profiles[i].Done {
			return false
		}
	}
	return true
}
