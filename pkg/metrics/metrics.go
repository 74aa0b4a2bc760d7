// Package metrics defines the prometheus instruments exported by the
// ingestion process.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/quartzdata/ordermart/pkg/mart"
)

var (
	BuildInfo = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "ordermart_build_info",
		Help: "Build information for the ordermart binary.",
	}, []string{"version", "commit", "date"})

	StagingRows = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ordermart_staging_rows_total",
		Help: "Staging rows handed to the merge engine.",
	})

	DimensionInserts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ordermart_dimension_inserts_total",
		Help: "Dimension rows inserted, by table.",
	}, []string{"table"})

	DimensionUpdates = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ordermart_dimension_updates_total",
		Help: "Dimension rows updated in place, by table.",
	}, []string{"table"})

	DeliveriesSuperseded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ordermart_deliveries_superseded_total",
		Help: "Delivery dimension versions superseded by SCD-2 merges.",
	})

	FactInserts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ordermart_fact_inserts_total",
		Help: "Fact rows inserted.",
	})

	FactSkips = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ordermart_fact_skips_total",
		Help: "Staging rows skipped at fact merge because a dimension key did not resolve.",
	})

	RunFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ordermart_run_failures_total",
		Help: "Merge runs that failed and rolled back.",
	})
)

// RecordRun folds a completed run result into the counters.
func RecordRun(res *mart.RunResult) {
	StagingRows.Add(float64(res.StagingRows))
	DimensionInserts.WithLabelValues("dim_delivery_details").Add(float64(res.DeliveriesInserted))
	DimensionInserts.WithLabelValues("dim_product_details").Add(float64(res.ProductsInserted))
	DimensionInserts.WithLabelValues("dim_payment_details").Add(float64(res.PaymentsInserted))
	DimensionUpdates.WithLabelValues("dim_product_details").Add(float64(res.ProductsUpdated))
	DeliveriesSuperseded.Add(float64(res.DeliveriesSuperseded))
	FactInserts.Add(float64(res.FactsInserted))
	FactSkips.Add(float64(res.FactsSkipped))
}
