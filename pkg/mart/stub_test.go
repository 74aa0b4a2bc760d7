package mart

import (
	"context"
	"log/slog"
	"time"
)

// fakeTx is a minimal in-memory Tx for exercising individual mergers against
// arbitrary pre-existing dimension state.
type fakeTx struct {
	deliveries []DeliveryRecord
	products   []ProductRecord
	payments   []PaymentRecord
	facts      []FactOrder
	nextID     int64
}

func newFakeTx() *fakeTx {
	return &fakeTx{nextID: 1}
}

func (t *fakeTx) allocID() int64 {
	id := t.nextID
	t.nextID++
	return id
}

func (t *fakeTx) Deliveries(ctx context.Context) ([]DeliveryRecord, error) {
	out := make([]DeliveryRecord, len(t.deliveries))
	copy(out, t.deliveries)
	return out, nil
}

func (t *fakeTx) InsertDelivery(ctx context.Context, rec DeliveryRecord) (int64, error) {
	rec.ID = t.allocID()
	t.deliveries = append(t.deliveries, rec)
	return rec.ID, nil
}

func (t *fakeTx) SupersedeDelivery(ctx context.Context, id int64, validTo time.Time) error {
	for i := range t.deliveries {
		if t.deliveries[i].ID == id {
			v := validTo
			t.deliveries[i].MostRecent = false
			t.deliveries[i].ValidTo = &v
		}
	}
	return nil
}

func (t *fakeTx) Products(ctx context.Context) ([]ProductRecord, error) {
	out := make([]ProductRecord, len(t.products))
	copy(out, t.products)
	return out, nil
}

func (t *fakeTx) InsertProduct(ctx context.Context, rec ProductRecord) (int64, error) {
	rec.ID = t.allocID()
	t.products = append(t.products, rec)
	return rec.ID, nil
}

func (t *fakeTx) UpdateProductPrice(ctx context.Context, id int64, unitPrice float64) error {
	for i := range t.products {
		if t.products[i].ID == id {
			t.products[i].UnitPrice = unitPrice
		}
	}
	return nil
}

func (t *fakeTx) Payments(ctx context.Context) ([]PaymentRecord, error) {
	out := make([]PaymentRecord, len(t.payments))
	copy(out, t.payments)
	return out, nil
}

func (t *fakeTx) InsertPayment(ctx context.Context, rec PaymentRecord) (int64, error) {
	rec.ID = t.allocID()
	t.payments = append(t.payments, rec)
	return rec.ID, nil
}

func (t *fakeTx) FactOrderNumbers(ctx context.Context) ([]string, error) {
	numbers := make([]string, len(t.facts))
	for i, f := range t.facts {
		numbers[i] = f.OrderNumber
	}
	return numbers, nil
}

func (t *fakeTx) InsertFactOrder(ctx context.Context, fact FactOrder) error {
	for _, f := range t.facts {
		if f.OrderNumber == fact.OrderNumber {
			return nil
		}
	}
	t.facts = append(t.facts, fact)
	return nil
}

var _ Tx = (*fakeTx)(nil)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
