package domain

// Gift is a catalog item as reported by Telegram. Never persisted; the
// catalog is re-fetched every worker cycle.
type Gift struct {
	ID    string
	Price int64 // stars

	// TotalCount and RemainingCount are zero for unlimited gifts.
	TotalCount     int64
	RemainingCount int64
}

// Limited reports whether the gift has a finite supply.
func (g *Gift) Limited() bool {
	return g.TotalCount > 0
}

// GiftFilter is the price/supply window a profile is hunting in.
type GiftFilter struct {
	MinPrice  int64
	MaxPrice  int64
	MinSupply int64
	MaxSupply int64
}

// Matches reports whether a gift falls inside the filter window. Only
// limited gifts qualify: the supply bounds are meaningless otherwise.
func (f GiftFilter) Matches(g Gift) bool {
	if g.Price < f.MinPrice || g.Price > f.MaxPrice {
		return false
	}
	if !g.Limited() {
		return false
	}
	return g.TotalCount >= f.MinSupply && g.TotalCount <= f.MaxSupply
}
