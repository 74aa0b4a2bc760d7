package mart

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/quartzdata/ordermart/pkg/orders"
)

func deliveryRow(client, address, postcode string) orders.StagingRow {
	return orders.StagingRow{
		ClientName:            client,
		DeliveryAddress:       address,
		DeliveryPostcode:      postcode,
		DeliveryCity:          "Swindon",
		DeliveryCountry:       "United Kingdom",
		DeliveryContactNumber: "+44 7911 843910",
	}
}

func storedDelivery(id int64, client, address, postcode string, validFrom time.Time) DeliveryRecord {
	return DeliveryRecord{
		ID:               id,
		ClientName:       client,
		DeliveryAddress:  address,
		DeliveryPostcode: postcode,
		ValidFrom:        validFrom,
		MostRecent:       true,
	}
}

var (
	day1 = time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	day2 = time.Date(2024, 5, 3, 0, 0, 0, 0, time.UTC)
)

func TestDeliveryMerger_FirstSighting(t *testing.T) {
	t.Parallel()
	ctx := t.Context()

	tx := newFakeTx()
	m := &deliveryMerger{log: testLogger()}

	stats, err := m.reconcile(ctx, tx, []orders.StagingRow{
		deliveryRow("MacGyver Inc", "72 Academy Street", "SN4 9QP"),
	}, day1)
	require.NoError(t, err)
	require.Equal(t, 1, stats.inserted)
	require.Equal(t, 0, stats.superseded)

	require.Len(t, tx.deliveries, 1)
	rec := tx.deliveries[0]
	require.True(t, rec.MostRecent)
	require.Equal(t, day1, rec.ValidFrom)
	require.Nil(t, rec.ValidTo)
	require.Equal(t, "Swindon", rec.DeliveryCity)
}

func TestDeliveryMerger_ClientRenamed(t *testing.T) {
	t.Parallel()
	ctx := t.Context()

	tx := newFakeTx()
	tx.deliveries = []DeliveryRecord{storedDelivery(1, "MacGyver Inc", "72 Academy Street", "SN4 9QP", day1)}
	tx.nextID = 2

	m := &deliveryMerger{log: testLogger()}
	stats, err := m.reconcile(ctx, tx, []orders.StagingRow{
		deliveryRow("MacGyver & Mustard Inc", "72 Academy Street", "SN4 9QP"),
	}, day2)
	require.NoError(t, err)
	require.Equal(t, 1, stats.superseded)
	require.Equal(t, 1, stats.inserted)

	require.Len(t, tx.deliveries, 2)
	old := tx.deliveries[0]
	require.False(t, old.MostRecent)
	require.NotNil(t, old.ValidTo)
	require.Equal(t, day2, *old.ValidTo)

	cur := tx.deliveries[1]
	require.True(t, cur.MostRecent)
	require.Equal(t, "MacGyver & Mustard Inc", cur.ClientName)
	require.Equal(t, day2, cur.ValidFrom)
	require.Nil(t, cur.ValidTo)
}

func TestDeliveryMerger_ClientMoved(t *testing.T) {
	t.Parallel()
	ctx := t.Context()

	tx := newFakeTx()
	tx.deliveries = []DeliveryRecord{storedDelivery(1, "MacGyver Inc", "72 Academy Street", "SN4 9QP", day1)}
	tx.nextID = 2

	m := &deliveryMerger{log: testLogger()}
	stats, err := m.reconcile(ctx, tx, []orders.StagingRow{
		deliveryRow("MacGyver Inc", "84 Delancey Street", "NW1 7SA"),
	}, day2)
	require.NoError(t, err)
	require.Equal(t, 1, stats.superseded)
	require.Equal(t, 1, stats.inserted)
	require.False(t, tx.deliveries[0].MostRecent)
	require.True(t, tx.deliveries[1].MostRecent)
	require.Equal(t, "84 Delancey Street", tx.deliveries[1].DeliveryAddress)
}

func TestDeliveryMerger_AddressOnlyChangeDoesNotSupersede(t *testing.T) {
	t.Parallel()
	ctx := t.Context()

	// Only address differs: neither the rename rule (address and postcode
	// equal) nor the move rule (address and postcode both different)
	// applies, so the stored version stays current and the staging identity
	// is inserted as a separate one.
	tx := newFakeTx()
	tx.deliveries = []DeliveryRecord{storedDelivery(1, "MacGyver Inc", "72 Academy Street", "SN4 9QP", day1)}
	tx.nextID = 2

	m := &deliveryMerger{log: testLogger()}
	stats, err := m.reconcile(ctx, tx, []orders.StagingRow{
		deliveryRow("MacGyver Inc", "73 Academy Street", "SN4 9QP"),
	}, day2)
	require.NoError(t, err)
	require.Equal(t, 0, stats.superseded)
	require.Equal(t, 1, stats.inserted)
	require.True(t, tx.deliveries[0].MostRecent)
	require.True(t, tx.deliveries[1].MostRecent)
}

func TestDeliveryMerger_ExactMatchIsFixedPoint(t *testing.T) {
	t.Parallel()
	ctx := t.Context()

	tx := newFakeTx()
	m := &deliveryMerger{log: testLogger()}
	rows := []orders.StagingRow{
		deliveryRow("MacGyver Inc", "72 Academy Street", "SN4 9QP"),
		deliveryRow("Quitzon, Luettgen and Waters", "84 Delancey Street", "NW1 7SA"),
	}

	_, err := m.reconcile(ctx, tx, rows, day1)
	require.NoError(t, err)
	require.Len(t, tx.deliveries, 2)

	stats, err := m.reconcile(ctx, tx, rows, day2)
	require.NoError(t, err)
	require.Equal(t, 0, stats.superseded)
	require.Equal(t, 0, stats.inserted)
	require.Len(t, tx.deliveries, 2)
}

func TestDeliveryMerger_DuplicateStagingIdentityCollapses(t *testing.T) {
	t.Parallel()
	ctx := t.Context()

	tx := newFakeTx()
	m := &deliveryMerger{log: testLogger()}

	second := deliveryRow(" MACGYVER INC ", "72 academy street", "sn4 9qp")
	second.DeliveryCity = "Bristol"
	stats, err := m.reconcile(ctx, tx, []orders.StagingRow{
		deliveryRow("MacGyver Inc", "72 Academy Street", "SN4 9QP"),
		second,
	}, day1)
	require.NoError(t, err)
	require.Equal(t, 1, stats.inserted)
	require.Len(t, tx.deliveries, 1)
	// First-seen non-key attributes win.
	require.Equal(t, "Swindon", tx.deliveries[0].DeliveryCity)
}

func TestDeliveryMerger_SupersededVersionsAreNeverTouched(t *testing.T) {
	t.Parallel()
	ctx := t.Context()

	validTo := day1
	tx := newFakeTx()
	tx.deliveries = []DeliveryRecord{
		{ID: 1, ClientName: "Old Name Ltd", DeliveryAddress: "72 Academy Street", DeliveryPostcode: "SN4 9QP", ValidFrom: day1, ValidTo: &validTo, MostRecent: false},
		storedDelivery(2, "MacGyver Inc", "72 Academy Street", "SN4 9QP", day1),
	}
	tx.nextID = 3

	m := &deliveryMerger{log: testLogger()}
	stats, err := m.reconcile(ctx, tx, []orders.StagingRow{
		deliveryRow("MacGyver Inc", "72 Academy Street", "SN4 9QP"),
	}, day2)
	require.NoError(t, err)
	require.Equal(t, 0, stats.superseded)
	require.Equal(t, 0, stats.inserted)
	require.False(t, tx.deliveries[0].MostRecent)
	require.Equal(t, day1, *tx.deliveries[0].ValidTo)
}

func TestDeliveryMerger_CoLocatedPairIsFixedPoint(t *testing.T) {
	t.Parallel()
	ctx := t.Context()

	// Two clients share an address and postcode. Each stored version looks
	// like a rename of the other, but both identities are present in the
	// batch verbatim, so neither may be superseded however often the batch
	// replays.
	tx := newFakeTx()
	tx.deliveries = []DeliveryRecord{
		storedDelivery(1, "MacGyver Inc", "72 Academy Street", "SN4 9QP", day1),
		storedDelivery(2, "Mustard Ltd", "72 Academy Street", "SN4 9QP", day1),
	}
	tx.nextID = 3

	rows := []orders.StagingRow{
		deliveryRow("MacGyver Inc", "72 Academy Street", "SN4 9QP"),
		deliveryRow("Mustard Ltd", "72 Academy Street", "SN4 9QP"),
	}

	m := &deliveryMerger{log: testLogger()}
	for range 3 {
		stats, err := m.reconcile(ctx, tx, rows, day2)
		require.NoError(t, err)
		require.Equal(t, 0, stats.superseded)
		require.Equal(t, 0, stats.inserted)
	}

	require.Len(t, tx.deliveries, 2)
	for _, rec := range tx.deliveries {
		require.True(t, rec.MostRecent)
		require.Nil(t, rec.ValidTo)
	}
}
