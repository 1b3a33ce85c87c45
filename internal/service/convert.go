package service

import (
	"github.com/set-night/giftsniper/internal/config"
	"github.com/shopspring/decimal"
)

// StarsToUSD converts Telegram Stars (XTR) to an approximate USD value for
// display in reports and the admin log.
func StarsToUSD(stars int64) decimal.Decimal {
	return decimal.NewFromInt(stars).Mul(decimal.NewFromFloat(config.XTRToDollarRate))
}
