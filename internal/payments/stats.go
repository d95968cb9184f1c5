package payments

import (
	"github.com/angelmondragon/tradeledger/pkg/db/models"
	"github.com/angelmondragon/tradeledger/pkg/enums"
)

// Summarize counts payments by status and totals pending and verified volume.
func Summarize(payments []models.Payment) Stats {
	stats := Stats{Total: len(payments)}
	for _, p := range payments {
		switch p.Status {
		case enums.PaymentStatusPending:
			stats.Pending++
			stats.PendingVolumeCents += p.AmountCents
		case enums.PaymentStatusVerified:
			stats.Verified++
			stats.VerifiedVolumeCents += p.AmountCents
		case enums.PaymentStatusRejected:
			stats.Rejected++
		}
	}
	return stats
}
