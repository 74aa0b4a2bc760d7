package mart

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/quartzdata/ordermart/pkg/orders"
)

// paymentMerger maintains the append-only payment dimension: one row per
// distinct normalized (BillingCode, PaymentType, PaymentDate) triple, never
// updated after creation.
type paymentMerger struct {
	log *slog.Logger
}

type paymentStats struct {
	inserted int
}

func (m *paymentMerger) reconcile(ctx context.Context, tx Tx, rows []orders.StagingRow) (paymentStats, error) {
	var stats paymentStats

	stored, err := tx.Payments(ctx)
	if err != nil {
		return stats, fmt.Errorf("failed to read payment dimension: %w", err)
	}
	existing := make(map[string]bool, len(stored))
	for _, rec := range stored {
		existing[PaymentKey(rec.PaymentBillingCode, rec.PaymentType, rec.PaymentDate)] = true
	}

	for _, row := range rows {
		key := PaymentKey(row.PaymentBillingCode, row.PaymentType, row.PaymentDate)
		if existing[key] {
			continue
		}
		id, err := tx.InsertPayment(ctx, PaymentRecord{
			PaymentBillingCode: row.PaymentBillingCode,
			PaymentType:        row.PaymentType,
			PaymentDate:        row.PaymentDate,
		})
		if err != nil {
			return stats, fmt.Errorf("failed to insert payment %q: %w", row.PaymentBillingCode, err)
		}
		m.log.Debug("inserted payment", "payment_id", id, "billing_code", row.PaymentBillingCode)
		existing[key] = true
		stats.inserted++
	}

	return stats, nil
}
