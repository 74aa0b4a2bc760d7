package mart

import (
	"context"
	"time"
)

// Tx is the transactional view of the star schema that the mergers operate
// on. Reads observe writes made earlier in the same transaction. Read
// operations return rows in ascending surrogate-id order.
//
// The merge engine borrows the transaction for the duration of one run and
// never manages the underlying connection lifecycle.
type Tx interface {
	// Deliveries returns every delivery dimension record, historical
	// versions included.
	Deliveries(ctx context.Context) ([]DeliveryRecord, error)
	// InsertDelivery inserts a new delivery version and returns its
	// surrogate id.
	InsertDelivery(ctx context.Context, rec DeliveryRecord) (int64, error)
	// SupersedeDelivery clears MostRecent and sets ValidTo on the record.
	SupersedeDelivery(ctx context.Context, id int64, validTo time.Time) error

	Products(ctx context.Context) ([]ProductRecord, error)
	InsertProduct(ctx context.Context, rec ProductRecord) (int64, error)
	UpdateProductPrice(ctx context.Context, id int64, unitPrice float64) error

	Payments(ctx context.Context) ([]PaymentRecord, error)
	InsertPayment(ctx context.Context, rec PaymentRecord) (int64, error)

	// FactOrderNumbers returns the order numbers of all existing fact rows.
	FactOrderNumbers(ctx context.Context) ([]string, error)
	// InsertFactOrder inserts a fact row, silently ignoring the insert if a
	// row with the same OrderNumber already exists.
	InsertFactOrder(ctx context.Context, fact FactOrder) error
}

// Store provides atomic units of work. The whole merge run executes inside a
// single WithTx call: fn returning an error rolls every write back, nil
// commits them together. A partially applied run is never observable.
type Store interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}
