package config

import "time"

const (
	// Worker timing
	WorkerInterval   = 500 * time.Millisecond
	PurchaseCooldown = 300 * time.Millisecond

	// Purchase executor attempt budget
	BuyRetries = 3

	// Profiles per account
	MaxProfiles = 3

	// Star transaction pagination
	TxnPageSize = 100

	// Settlement matcher: exact subset selection is used up to this many
	// candidate deposits, and while the balance stays under the DP table
	// budget. Beyond either bound a descending greedy packing approximates.
	ExhaustiveLimit  = 18
	KnapsackDPBudget = 1 << 22

	// Telegram limits
	MaxTelegramMessageLen = 4096

	// Telegram Stars conversion rate, for report display only
	XTRToDollarRate = 0.013

	// Rate limits for sensitive commands (per window)
	RateLimitWindow    = time.Minute
	RateLimitPerWindow = 3

	// Default profile values
	DefaultMinPrice  = 5000
	DefaultMaxPrice  = 10000
	DefaultMinSupply = 1000
	DefaultMaxSupply = 10000
	DefaultLimit     = 1000000
	DefaultCount     = 5
)
