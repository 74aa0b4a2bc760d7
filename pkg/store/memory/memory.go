// Package memory provides an in-memory transactional implementation of the
// merge engine's Store. It backs the engine's tests and the CLI dry-run mode.
package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/quartzdata/ordermart/pkg/mart"
)

type state struct {
	deliveries []mart.DeliveryRecord
	products   []mart.ProductRecord
	payments   []mart.PaymentRecord
	facts      []mart.FactOrder

	nextDeliveryID int64
	nextProductID  int64
	nextPaymentID  int64
}

func (s state) clone() state {
	c := s
	c.deliveries = make([]mart.DeliveryRecord, len(s.deliveries))
	for i, rec := range s.deliveries {
		if rec.ValidTo != nil {
			v := *rec.ValidTo
			rec.ValidTo = &v
		}
		c.deliveries[i] = rec
	}
	c.products = slices.Clone(s.products)
	c.payments = slices.Clone(s.payments)
	c.facts = slices.Clone(s.facts)
	return c
}

// Store is a single-writer in-memory store. WithTx applies the unit of work
// to a private copy of the state and publishes it only on success, so a
// failed run leaves the store untouched.
type Store struct {
	mu    sync.Mutex
	state state
}

func New() *Store {
	return &Store{
		state: state{
			nextDeliveryID: 1,
			nextProductID:  1,
			nextPaymentID:  1,
		},
	}
}

func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, tx mart.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	txn := &Tx{state: s.state.clone()}
	if err := fn(ctx, txn); err != nil {
		return err
	}
	s.state = txn.state
	return nil
}

// Snapshot is a committed copy of the store contents, for inspection.
type Snapshot struct {
	Deliveries []mart.DeliveryRecord
	Products   []mart.ProductRecord
	Payments   []mart.PaymentRecord
	Facts      []mart.FactOrder
}

func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.state.clone()
	return Snapshot{
		Deliveries: c.deliveries,
		Products:   c.products,
		Payments:   c.payments,
		Facts:      c.facts,
	}
}

// Tx is the uncommitted view of one unit of work.
type Tx struct {
	state state
}

var (
	_ mart.Store = (*Store)(nil)
	_ mart.Tx    = (*Tx)(nil)
)

func (t *Tx) Deliveries(ctx context.Context) ([]mart.DeliveryRecord, error) {
	return t.state.clone().deliveries, nil
}

func (t *Tx) InsertDelivery(ctx context.Context, rec mart.DeliveryRecord) (int64, error) {
	rec.ID = t.state.nextDeliveryID
	t.state.nextDeliveryID++
	t.state.deliveries = append(t.state.deliveries, rec)
	return rec.ID, nil
}

func (t *Tx) SupersedeDelivery(ctx context.Context, id int64, validTo time.Time) error {
	for i := range t.state.deliveries {
		if t.state.deliveries[i].ID == id {
			v := validTo
			t.state.deliveries[i].MostRecent = false
			t.state.deliveries[i].ValidTo = &v
			return nil
		}
	}
	return nil
}

func (t *Tx) Products(ctx context.Context) ([]mart.ProductRecord, error) {
	return slices.Clone(t.state.products), nil
}

func (t *Tx) InsertProduct(ctx context.Context, rec mart.ProductRecord) (int64, error) {
	rec.ID = t.state.nextProductID
	t.state.nextProductID++
	t.state.products = append(t.state.products, rec)
	return rec.ID, nil
}

func (t *Tx) UpdateProductPrice(ctx context.Context, id int64, unitPrice float64) error {
	for i := range t.state.products {
		if t.state.products[i].ID == id {
			t.state.products[i].UnitPrice = unitPrice
			return nil
		}
	}
	return nil
}

func (t *Tx) Payments(ctx context.Context) ([]mart.PaymentRecord, error) {
	return slices.Clone(t.state.payments), nil
}

func (t *Tx) InsertPayment(ctx context.Context, rec mart.PaymentRecord) (int64, error) {
	rec.ID = t.state.nextPaymentID
	t.state.nextPaymentID++
	t.state.payments = append(t.state.payments, rec)
	return rec.ID, nil
}

func (t *Tx) FactOrderNumbers(ctx context.Context) ([]string, error) {
	numbers := make([]string, len(t.state.facts))
	for i, f := range t.state.facts {
		numbers[i] = f.OrderNumber
	}
	return numbers, nil
}

func (t *Tx) InsertFactOrder(ctx context.Context, fact mart.FactOrder) error {
	for _, f := range t.state.facts {
		if f.OrderNumber == fact.OrderNumber {
			return nil
		}
	}
	t.state.facts = append(t.state.facts, fact)
	return nil
}
