package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/quartzdata/ordermart/pkg/mart"
)

func TestStore_CommitPublishesState(t *testing.T) {
	t.Parallel()

	s := New()
	err := s.WithTx(t.Context(), func(ctx context.Context, tx mart.Tx) error {
		id, err := tx.InsertProduct(ctx, mart.ProductRecord{ProductName: "Piano", ProductType: "Keyboard", UnitPrice: 5000})
		require.NoError(t, err)
		require.Equal(t, int64(1), id)
		return nil
	})
	require.NoError(t, err)

	snap := s.Snapshot()
	require.Len(t, snap.Products, 1)
	require.Equal(t, int64(1), snap.Products[0].ID)
	require.Equal(t, "Piano", snap.Products[0].ProductName)
}

func TestStore_FailedTxDiscardsWrites(t *testing.T) {
	t.Parallel()

	s := New()
	require.NoError(t, s.WithTx(t.Context(), func(ctx context.Context, tx mart.Tx) error {
		_, err := tx.InsertPayment(ctx, mart.PaymentRecord{PaymentBillingCode: "PO-1"})
		return err
	}))

	boom := errors.New("boom")
	err := s.WithTx(t.Context(), func(ctx context.Context, tx mart.Tx) error {
		_, err := tx.InsertPayment(ctx, mart.PaymentRecord{PaymentBillingCode: "PO-2"})
		require.NoError(t, err)
		return boom
	})
	require.ErrorIs(t, err, boom)

	snap := s.Snapshot()
	require.Len(t, snap.Payments, 1)
	require.Equal(t, "PO-1", snap.Payments[0].PaymentBillingCode)

	// ID allocation rolls back with the rest of the state.
	require.NoError(t, s.WithTx(t.Context(), func(ctx context.Context, tx mart.Tx) error {
		id, err := tx.InsertPayment(ctx, mart.PaymentRecord{PaymentBillingCode: "PO-3"})
		require.NoError(t, err)
		require.Equal(t, int64(2), id)
		return nil
	}))
}

func TestStore_SupersedeDelivery(t *testing.T) {
	t.Parallel()

	s := New()
	day := time.Date(2024, 5, 3, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.WithTx(t.Context(), func(ctx context.Context, tx mart.Tx) error {
		id, err := tx.InsertDelivery(ctx, mart.DeliveryRecord{
			ClientName: "MacGyver Inc", MostRecent: true,
			ValidFrom: day.AddDate(0, 0, -2),
		})
		require.NoError(t, err)
		return tx.SupersedeDelivery(ctx, id, day)
	}))

	snap := s.Snapshot()
	require.Len(t, snap.Deliveries, 1)
	require.False(t, snap.Deliveries[0].MostRecent)
	require.NotNil(t, snap.Deliveries[0].ValidTo)
	require.Equal(t, day, *snap.Deliveries[0].ValidTo)
}

func TestStore_InsertFactOrderIgnoresDuplicates(t *testing.T) {
	t.Parallel()

	s := New()
	require.NoError(t, s.WithTx(t.Context(), func(ctx context.Context, tx mart.Tx) error {
		first := mart.FactOrder{OrderNumber: "PO-9", TotalPrice: 100}
		require.NoError(t, tx.InsertFactOrder(ctx, first))
		require.NoError(t, tx.InsertFactOrder(ctx, mart.FactOrder{OrderNumber: "PO-9", TotalPrice: 999}))

		numbers, err := tx.FactOrderNumbers(ctx)
		require.NoError(t, err)
		require.Equal(t, []string{"PO-9"}, numbers)
		return nil
	}))

	snap := s.Snapshot()
	require.Len(t, snap.Facts, 1)
	require.Equal(t, 100.0, snap.Facts[0].TotalPrice)
}

func TestStore_SnapshotIsDetached(t *testing.T) {
	t.Parallel()

	s := New()
	day := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.WithTx(t.Context(), func(ctx context.Context, tx mart.Tx) error {
		id, err := tx.InsertDelivery(ctx, mart.DeliveryRecord{ClientName: "Harber Group", MostRecent: true, ValidFrom: day})
		require.NoError(t, err)
		return tx.SupersedeDelivery(ctx, id, day.AddDate(0, 0, 2))
	}))

	snap := s.Snapshot()
	*snap.Deliveries[0].ValidTo = time.Time{}
	snap.Deliveries[0].ClientName = "mutated"

	fresh := s.Snapshot()
	require.Equal(t, "Harber Group", fresh.Deliveries[0].ClientName)
	require.Equal(t, day.AddDate(0, 0, 2), *fresh.Deliveries[0].ValidTo)
}
