// Package orders holds the staging-row domain type shared by the ingestion
// source, the data-quality gate, and the merge engine.
package orders

import "time"

// StagingRow is one validated incoming order line. Rows are immutable once
// loaded and are the source of truth for a single merge run.
//
// Upstream guarantees (enforced by the quality gate before any merge):
// OrderNumber is unique within a batch, identity columns are non-empty, and
// TotalPrice equals UnitPrice times ProductQuantity.
type StagingRow struct {
	OrderNumber string

	ClientName            string
	DeliveryAddress       string
	DeliveryPostcode      string
	DeliveryCity          string
	DeliveryCountry       string
	DeliveryContactNumber string

	ProductName     string
	ProductType     string
	UnitPrice       float64
	ProductQuantity int
	TotalPrice      float64
	Currency        string

	PaymentBillingCode string
	PaymentType        string
	PaymentDate        time.Time
}
