// Package quality runs the pre-merge data-quality checks on a staging batch.
// The merge engine assumes these have passed; any failure aborts the run
// before a single write happens.
package quality

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/quartzdata/ordermart/pkg/orders"
)

// priceEpsilon tolerates float rounding in the TotalPrice arithmetic check.
const priceEpsilon = 1e-6

// Failure describes one data-quality violation.
type Failure struct {
	Check  string
	Column string
	Detail string
}

func (f Failure) String() string {
	if f.Column == "" {
		return fmt.Sprintf("%s: %s", f.Check, f.Detail)
	}
	return fmt.Sprintf("%s(%s): %s", f.Check, f.Column, f.Detail)
}

// Run executes every check against the batch and returns all violations.
// Checks are independent and run concurrently.
func Run(ctx context.Context, rows []orders.StagingRow) ([]Failure, error) {
	var (
		mu       sync.Mutex
		failures []Failure
	)
	report := func(fs ...Failure) {
		mu.Lock()
		failures = append(failures, fs...)
		mu.Unlock()
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		report(checkUniqueOrderNumbers(rows)...)
		return ctx.Err()
	})
	g.Go(func() error {
		report(checkRequiredColumns(rows)...)
		return ctx.Err()
	})
	g.Go(func() error {
		report(checkPriceArithmetic(rows)...)
		return ctx.Err()
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(failures, func(i, j int) bool {
		if failures[i].Check != failures[j].Check {
			return failures[i].Check < failures[j].Check
		}
		if failures[i].Column != failures[j].Column {
			return failures[i].Column < failures[j].Column
		}
		return failures[i].Detail < failures[j].Detail
	})
	return failures, nil
}

// Gate runs all checks and fails loudly when any violation is found.
func Gate(ctx context.Context, rows []orders.StagingRow) error {
	failures, err := Run(ctx, rows)
	if err != nil {
		return err
	}
	if len(failures) == 0 {
		return nil
	}
	msgs := make([]string, len(failures))
	for i, f := range failures {
		msgs[i] = f.String()
	}
	return fmt.Errorf("staging batch failed %d data-quality check(s): %s", len(failures), strings.Join(msgs, "; "))
}

func checkUniqueOrderNumbers(rows []orders.StagingRow) []Failure {
	seen := make(map[string]int, len(rows))
	var failures []Failure
	for i, row := range rows {
		if j, ok := seen[row.OrderNumber]; ok {
			failures = append(failures, Failure{
				Check:  "all_values_unique",
				Column: "OrderNumber",
				Detail: fmt.Sprintf("%q appears in rows %d and %d", row.OrderNumber, j, i),
			})
			continue
		}
		seen[row.OrderNumber] = i
	}
	return failures
}

func checkRequiredColumns(rows []orders.StagingRow) []Failure {
	var failures []Failure
	for i, row := range rows {
		for _, col := range []struct {
			name  string
			value string
		}{
			{"OrderNumber", row.OrderNumber},
			{"ClientName", row.ClientName},
			{"DeliveryAddress", row.DeliveryAddress},
			{"DeliveryPostcode", row.DeliveryPostcode},
			{"ProductName", row.ProductName},
			{"ProductType", row.ProductType},
			{"Currency", row.Currency},
			{"PaymentBillingCode", row.PaymentBillingCode},
			{"PaymentType", row.PaymentType},
		} {
			if strings.TrimSpace(col.value) == "" {
				failures = append(failures, Failure{
					Check:  "all_values_nonnull",
					Column: col.name,
					Detail: fmt.Sprintf("empty in row %d", i),
				})
			}
		}
		if row.ProductQuantity <= 0 {
			failures = append(failures, Failure{
				Check:  "all_values_nonnull",
				Column: "ProductQuantity",
				Detail: fmt.Sprintf("non-positive in row %d", i),
			})
		}
	}
	return failures
}

func checkPriceArithmetic(rows []orders.StagingRow) []Failure {
	var failures []Failure
	for i, row := range rows {
		expected := row.UnitPrice * float64(row.ProductQuantity)
		if math.Abs(expected-row.TotalPrice) > priceEpsilon {
			failures = append(failures, Failure{
				Check:  "price_calculation",
				Column: "TotalPrice",
				Detail: fmt.Sprintf("row %d (order %q): %v * %d != %v", i, row.OrderNumber, row.UnitPrice, row.ProductQuantity, row.TotalPrice),
			})
		}
	}
	return failures
}
