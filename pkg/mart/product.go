package mart

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/quartzdata/ordermart/pkg/orders"
)

// productMerger applies SCD type 1 semantics to the product dimension:
// changes overwrite in place, history is not retained.
type productMerger struct {
	log *slog.Logger
}

type productStats struct {
	inserted int
	updated  int
}

// productAgg is the batch-wide aggregate for one normalized product name.
// The price is the MAX across the whole batch, not the last row seen; the
// name and type come from the first occurrence in input order so conflicting
// spellings resolve deterministically.
type productAgg struct {
	name     string
	ptype    string
	maxPrice float64
}

func aggregateProducts(rows []orders.StagingRow) []productAgg {
	index := make(map[string]int, len(rows))
	aggs := make([]productAgg, 0, len(rows))
	for _, row := range rows {
		key := ProductKey(row.ProductName)
		if i, ok := index[key]; ok {
			if row.UnitPrice > aggs[i].maxPrice {
				aggs[i].maxPrice = row.UnitPrice
			}
			continue
		}
		index[key] = len(aggs)
		aggs = append(aggs, productAgg{
			name:     row.ProductName,
			ptype:    row.ProductType,
			maxPrice: row.UnitPrice,
		})
	}
	return aggs
}

// reconcile sets each stored product's UnitPrice to the batch-wide MAX for
// its identity and inserts one row per normalized name not yet stored.
// Re-running the same batch recomputes the same MAX, so prices are unchanged
// and the insert path is a no-op.
func (m *productMerger) reconcile(ctx context.Context, tx Tx, rows []orders.StagingRow) (productStats, error) {
	var stats productStats

	stored, err := tx.Products(ctx)
	if err != nil {
		return stats, fmt.Errorf("failed to read product dimension: %w", err)
	}
	index := make(map[string]*ProductRecord, len(stored))
	for i := range stored {
		index[ProductKey(stored[i].ProductName)] = &stored[i]
	}

	for _, agg := range aggregateProducts(rows) {
		key := ProductKey(agg.name)
		if rec, ok := index[key]; ok {
			if rec.UnitPrice == agg.maxPrice {
				continue
			}
			if err := tx.UpdateProductPrice(ctx, rec.ID, agg.maxPrice); err != nil {
				return stats, fmt.Errorf("failed to update price for product %q: %w", agg.name, err)
			}
			m.log.Debug("updated product price",
				"product_id", rec.ID,
				"product_name", rec.ProductName,
				"old_price", rec.UnitPrice,
				"new_price", agg.maxPrice,
			)
			rec.UnitPrice = agg.maxPrice
			stats.updated++
			continue
		}
		id, err := tx.InsertProduct(ctx, ProductRecord{
			ProductName: agg.name,
			ProductType: agg.ptype,
			UnitPrice:   agg.maxPrice,
		})
		if err != nil {
			return stats, fmt.Errorf("failed to insert product %q: %w", agg.name, err)
		}
		m.log.Debug("inserted product", "product_id", id, "product_name", agg.name, "unit_price", agg.maxPrice)
		stats.inserted++
	}

	return stats, nil
}
