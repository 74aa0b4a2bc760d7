package source

import (
	"context"
	"time"

	"github.com/quartzdata/ordermart/pkg/orders"
)

// MockSource is a Source implementation for testing.
type MockSource struct {
	Batch    *Batch
	FetchErr error
	Closed   bool
}

// NewMockSource creates a MockSource serving the given rows.
func NewMockSource(rows []orders.StagingRow, name string) *MockSource {
	return &MockSource{
		Batch: &Batch{
			Rows:      rows,
			FetchedAt: time.Now().UTC(),
			Name:      name,
		},
	}
}

// FetchLatest returns the configured batch or error.
func (m *MockSource) FetchLatest(ctx context.Context) (*Batch, error) {
	if m.FetchErr != nil {
		return nil, m.FetchErr
	}
	return m.Batch, nil
}

// Close marks the source as closed.
func (m *MockSource) Close() error {
	m.Closed = true
	return nil
}
