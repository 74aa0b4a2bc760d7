// Package source fetches staging batches from external spreadsheet sources.
package source

import (
	"context"
	"time"

	"github.com/quartzdata/ordermart/pkg/orders"
)

// Batch is one fetched set of staging rows, in source order.
type Batch struct {
	Rows      []orders.StagingRow
	FetchedAt time.Time
	Name      string // file path or object key
}

// Source provides access to order spreadsheets. Implementations exist for
// local files and S3.
type Source interface {
	// FetchLatest retrieves the most recent order batch.
	FetchLatest(ctx context.Context) (*Batch, error)

	// Close releases any resources held by the source.
	Close() error
}
