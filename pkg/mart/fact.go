package mart

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/quartzdata/ordermart/pkg/orders"
)

// factMerger joins each staging row to its resolved dimension keys and
// inserts the fact record. Facts are immutable: an existing OrderNumber is
// left untouched. Rows whose dimension keys do not resolve are skipped
// without aborting the batch, and reported back to the caller.
type factMerger struct {
	log *slog.Logger
}

type factStats struct {
	inserted int
	existing int
}

func (m *factMerger) reconcile(ctx context.Context, tx Tx, rows []orders.StagingRow) (factStats, []SkippedOrder, error) {
	var stats factStats

	// Delivery resolution goes through the current version only; a fact must
	// never be linked to a superseded delivery record.
	deliveries, err := tx.Deliveries(ctx)
	if err != nil {
		return stats, nil, fmt.Errorf("failed to read delivery dimension: %w", err)
	}
	deliveryIDs := make(map[string]int64, len(deliveries))
	for _, rec := range deliveries {
		if rec.MostRecent {
			deliveryIDs[DeliveryKey(rec.ClientName, rec.DeliveryAddress, rec.DeliveryPostcode)] = rec.ID
		}
	}

	products, err := tx.Products(ctx)
	if err != nil {
		return stats, nil, fmt.Errorf("failed to read product dimension: %w", err)
	}
	productIDs := make(map[string]int64, len(products))
	for _, rec := range products {
		productIDs[ProductKey(rec.ProductName)] = rec.ID
	}

	// Payments resolve by billing code alone. A code shared by several
	// payment rows resolves to the earliest inserted one.
	payments, err := tx.Payments(ctx)
	if err != nil {
		return stats, nil, fmt.Errorf("failed to read payment dimension: %w", err)
	}
	paymentIDs := make(map[string]int64, len(payments))
	for _, rec := range payments {
		code := Normalize(rec.PaymentBillingCode)
		if _, ok := paymentIDs[code]; !ok {
			paymentIDs[code] = rec.ID
		}
	}

	orderNumbers, err := tx.FactOrderNumbers(ctx)
	if err != nil {
		return stats, nil, fmt.Errorf("failed to read fact order numbers: %w", err)
	}
	existing := make(map[string]bool, len(orderNumbers))
	for _, n := range orderNumbers {
		existing[n] = true
	}

	var skipped []SkippedOrder
	for _, row := range rows {
		deliveryID, ok := deliveryIDs[DeliveryKey(row.ClientName, row.DeliveryAddress, row.DeliveryPostcode)]
		if !ok {
			skipped = append(skipped, SkippedOrder{OrderNumber: row.OrderNumber, Reason: "no current delivery dimension match"})
			continue
		}
		productID, ok := productIDs[ProductKey(row.ProductName)]
		if !ok {
			skipped = append(skipped, SkippedOrder{OrderNumber: row.OrderNumber, Reason: "no product dimension match"})
			continue
		}
		paymentID, ok := paymentIDs[Normalize(row.PaymentBillingCode)]
		if !ok {
			skipped = append(skipped, SkippedOrder{OrderNumber: row.OrderNumber, Reason: "no payment dimension match"})
			continue
		}
		if existing[row.OrderNumber] {
			stats.existing++
			continue
		}
		fact := FactOrder{
			OrderNumber:     row.OrderNumber,
			DeliveryID:      deliveryID,
			ProductID:       productID,
			PaymentID:       paymentID,
			TotalPrice:      row.TotalPrice,
			Currency:        row.Currency,
			ProductQuantity: row.ProductQuantity,
			ClientName:      row.ClientName,
		}
		if err := tx.InsertFactOrder(ctx, fact); err != nil {
			return stats, skipped, fmt.Errorf("failed to insert fact for order %q: %w", row.OrderNumber, err)
		}
		m.log.Debug("inserted fact",
			"order_number", row.OrderNumber,
			"delivery_id", deliveryID,
			"product_id", productID,
			"payment_id", paymentID,
		)
		existing[row.OrderNumber] = true
		stats.inserted++
	}

	return stats, skipped, nil
}
