// Package mart implements the dimensional merge engine: it reconciles a
// validated batch of staging order rows against the three dimension tables
// and the fact table of the orders star schema, applying the per-table
// slowly-changing-dimension policy, inside one atomic unit of work.
//
// The mergers are explicit two-pass algorithms over in-memory indices keyed
// by normalized identity. The whole run is idempotent: replaying the same
// batch leaves every table unchanged.
package mart

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/quartzdata/ordermart/pkg/orders"
)

type Config struct {
	Logger *slog.Logger
	Clock  clockwork.Clock
	Store  Store
}

func (c *Config) Validate() error {
	if c.Logger == nil {
		return errors.New("logger is required")
	}
	if c.Store == nil {
		return errors.New("store is required")
	}
	if c.Clock == nil {
		c.Clock = clockwork.NewRealClock()
	}
	return nil
}

// Merger orchestrates one merge run: the three dimension mergers in
// dependency order, then the fact merger, all inside a single transaction.
type Merger struct {
	log   *slog.Logger
	clock clockwork.Clock
	store Store
}

func New(cfg Config) (*Merger, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Merger{
		log:   cfg.Logger,
		clock: cfg.Clock,
		store: cfg.Store,
	}, nil
}

// RunResult summarizes one merge run, including diagnostics for staging rows
// whose fact insert was skipped because a dimension key did not resolve.
type RunResult struct {
	RunID   uuid.UUID
	RunDate time.Time

	StagingRows int

	DeliveriesInserted   int
	DeliveriesSuperseded int
	ProductsInserted     int
	ProductsUpdated      int
	PaymentsInserted     int

	FactsInserted int
	FactsExisting int
	FactsSkipped  int
	Skipped       []SkippedOrder
}

// Run merges one staging batch into the star schema. Either every dimension
// and fact change commits together or none do; any merger failure rolls the
// whole run back.
func (m *Merger) Run(ctx context.Context, rows []orders.StagingRow) (*RunResult, error) {
	runID := uuid.New()
	runDate := civilDate(m.clock.Now())
	log := m.log.With("run_id", runID)

	if err := validateRows(rows); err != nil {
		return nil, fmt.Errorf("staging batch violates input contract: %w", err)
	}

	res := &RunResult{
		RunID:       runID,
		RunDate:     runDate,
		StagingRows: len(rows),
	}

	log.Info("merge run starting", "staging_rows", len(rows), "run_date", runDate.Format(dateLayout))

	err := m.store.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		// Dimensions are independent of each other but must all be in place
		// before facts resolve against them.
		dStats, err := (&deliveryMerger{log: log}).reconcile(ctx, tx, rows, runDate)
		if err != nil {
			return err
		}
		pStats, err := (&productMerger{log: log}).reconcile(ctx, tx, rows)
		if err != nil {
			return err
		}
		payStats, err := (&paymentMerger{log: log}).reconcile(ctx, tx, rows)
		if err != nil {
			return err
		}
		fStats, skipped, err := (&factMerger{log: log}).reconcile(ctx, tx, rows)
		if err != nil {
			return err
		}

		res.DeliveriesInserted = dStats.inserted
		res.DeliveriesSuperseded = dStats.superseded
		res.ProductsInserted = pStats.inserted
		res.ProductsUpdated = pStats.updated
		res.PaymentsInserted = payStats.inserted
		res.FactsInserted = fStats.inserted
		res.FactsExisting = fStats.existing
		res.FactsSkipped = len(skipped)
		res.Skipped = skipped
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("merge run failed: %w", err)
	}

	log.Info("merge run complete",
		"deliveries_inserted", res.DeliveriesInserted,
		"deliveries_superseded", res.DeliveriesSuperseded,
		"products_inserted", res.ProductsInserted,
		"products_updated", res.ProductsUpdated,
		"payments_inserted", res.PaymentsInserted,
		"facts_inserted", res.FactsInserted,
		"facts_existing", res.FactsExisting,
		"facts_skipped", res.FactsSkipped,
	)
	for _, s := range res.Skipped {
		log.Warn("fact row skipped", "order_number", s.OrderNumber, "reason", s.Reason)
	}

	return res, nil
}

// validateRows re-checks the input contract the quality gate enforces
// upstream. A violation detected here fails the whole batch before any
// write, rather than dropping rows silently.
func validateRows(rows []orders.StagingRow) error {
	seen := make(map[string]int, len(rows))
	for i, row := range rows {
		if strings.TrimSpace(row.OrderNumber) == "" {
			return fmt.Errorf("row %d: empty OrderNumber", i)
		}
		if strings.TrimSpace(row.ClientName) == "" ||
			strings.TrimSpace(row.DeliveryAddress) == "" ||
			strings.TrimSpace(row.DeliveryPostcode) == "" {
			return fmt.Errorf("row %d (order %q): empty delivery identity column", i, row.OrderNumber)
		}
		if strings.TrimSpace(row.ProductName) == "" {
			return fmt.Errorf("row %d (order %q): empty ProductName", i, row.OrderNumber)
		}
		if strings.TrimSpace(row.PaymentBillingCode) == "" {
			return fmt.Errorf("row %d (order %q): empty PaymentBillingCode", i, row.OrderNumber)
		}
		if j, ok := seen[row.OrderNumber]; ok {
			return fmt.Errorf("rows %d and %d: duplicate OrderNumber %q", j, i, row.OrderNumber)
		}
		seen[row.OrderNumber] = i
	}
	return nil
}

// civilDate truncates a timestamp to its UTC calendar date.
func civilDate(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
