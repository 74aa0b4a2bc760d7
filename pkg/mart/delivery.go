package mart

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/quartzdata/ordermart/pkg/orders"
)

// deliveryMerger applies SCD type 2 semantics to the delivery dimension.
// Identity is the normalized (ClientName, DeliveryAddress, DeliveryPostcode)
// triple. History is preserved: changed identities supersede the current
// version instead of mutating it.
type deliveryMerger struct {
	log *slog.Logger
}

type deliveryStats struct {
	superseded int
	inserted   int
}

// stagingIdentity is one distinct normalized delivery identity present in the
// batch, with the first-seen raw row providing the non-key attributes.
type stagingIdentity struct {
	name     string
	address  string
	postcode string
	first    orders.StagingRow
}

func collectDeliveryIdentities(rows []orders.StagingRow) []stagingIdentity {
	seen := make(map[string]bool, len(rows))
	idents := make([]stagingIdentity, 0, len(rows))
	for _, row := range rows {
		key := DeliveryKey(row.ClientName, row.DeliveryAddress, row.DeliveryPostcode)
		if seen[key] {
			continue
		}
		seen[key] = true
		idents = append(idents, stagingIdentity{
			name:     Normalize(row.ClientName),
			address:  Normalize(row.DeliveryAddress),
			postcode: Normalize(row.DeliveryPostcode),
			first:    row,
		})
	}
	return idents
}

// reconcile runs the two-phase SCD-2 algorithm.
//
// Phase 1 supersedes every MostRecent record for which some staging row
// anchors on part of the identity while changing the rest: same address and
// postcode with a different client name (rename), or same client name with a
// different address and postcode (move). A stored record whose full identity
// appears in the batch is still current and is never superseded, so two
// clients sharing an address cannot flip each other on replay. Phase 2
// inserts one record per staging identity that has no MostRecent version
// left after phase 1.
//
// Both phases compare normalized text only; re-running the same batch finds
// exact matches everywhere and is a fixed point.
func (m *deliveryMerger) reconcile(ctx context.Context, tx Tx, rows []orders.StagingRow, runDate time.Time) (deliveryStats, error) {
	var stats deliveryStats

	stored, err := tx.Deliveries(ctx)
	if err != nil {
		return stats, fmt.Errorf("failed to read delivery dimension: %w", err)
	}

	idents := collectDeliveryIdentities(rows)
	exact := make(map[string]bool, len(idents))
	for _, s := range idents {
		exact[DeliveryKey(s.first.ClientName, s.first.DeliveryAddress, s.first.DeliveryPostcode)] = true
	}

	// Phase 1: supersede changed versions. An exact staging match confirms
	// the stored version is still current.
	for i := range stored {
		rec := &stored[i]
		if !rec.MostRecent {
			continue
		}
		if exact[DeliveryKey(rec.ClientName, rec.DeliveryAddress, rec.DeliveryPostcode)] {
			continue
		}
		name := Normalize(rec.ClientName)
		address := Normalize(rec.DeliveryAddress)
		postcode := Normalize(rec.DeliveryPostcode)
		for _, s := range idents {
			sameName := s.name == name
			sameAddress := s.address == address
			samePostcode := s.postcode == postcode
			renamed := sameAddress && samePostcode && !sameName
			moved := !sameAddress && !samePostcode && sameName
			if !renamed && !moved {
				continue
			}
			if err := tx.SupersedeDelivery(ctx, rec.ID, runDate); err != nil {
				return stats, fmt.Errorf("failed to supersede delivery %d: %w", rec.ID, err)
			}
			m.log.Debug("superseded delivery version",
				"delivery_id", rec.ID,
				"client_name", rec.ClientName,
				"valid_to", runDate.Format(dateLayout),
			)
			rec.MostRecent = false
			validTo := runDate
			rec.ValidTo = &validTo
			stats.superseded++
			break
		}
	}

	// Phase 2: insert identities that lack a current version.
	current := make(map[string]bool, len(stored))
	for _, rec := range stored {
		if rec.MostRecent {
			current[DeliveryKey(rec.ClientName, rec.DeliveryAddress, rec.DeliveryPostcode)] = true
		}
	}
	for _, s := range idents {
		key := DeliveryKey(s.first.ClientName, s.first.DeliveryAddress, s.first.DeliveryPostcode)
		if current[key] {
			continue
		}
		rec := DeliveryRecord{
			ClientName:            s.first.ClientName,
			DeliveryAddress:       s.first.DeliveryAddress,
			DeliveryPostcode:      s.first.DeliveryPostcode,
			DeliveryCity:          s.first.DeliveryCity,
			DeliveryCountry:       s.first.DeliveryCountry,
			DeliveryContactNumber: s.first.DeliveryContactNumber,
			ValidFrom:             runDate,
			MostRecent:            true,
		}
		id, err := tx.InsertDelivery(ctx, rec)
		if err != nil {
			return stats, fmt.Errorf("failed to insert delivery for client %q: %w", s.first.ClientName, err)
		}
		m.log.Debug("inserted delivery version", "delivery_id", id, "client_name", rec.ClientName)
		current[key] = true
		stats.inserted++
	}

	return stats, nil
}
