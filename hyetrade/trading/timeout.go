package trading

import (
	"time"

	"github.com/ellavondegurechaff/hyetrade/hyetrade/database/models"
)

// ConfirmWindowExpired reports whether an accepted trade has outlived its
// confirmation window at the given instant. The check is pure; the caller
// decides whether to force-cancel. Trades in any other status never expire
// here, and an accepted trade without accepted_at is treated as fresh.
func ConfirmWindowExpired(trade *models.Trade, now time.Time, window time.Duration) bool {
	if trade.Status != models.TradeStatusAccepted || trade.AcceptedAt == nil {
		return false
	}
	return now.After(trade.AcceptedAt.Add(window))
}
