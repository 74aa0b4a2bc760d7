package mart

import "time"

// DeliveryRecord is one version of a delivery identity (SCD type 2).
// For a given normalized (ClientName, DeliveryAddress, DeliveryPostcode)
// identity at most one record has MostRecent set at any time; a record with
// MostRecent unset carries a non-nil ValidTo. Records are never deleted.
type DeliveryRecord struct {
	ID                    int64
	ClientName            string
	DeliveryAddress       string
	DeliveryPostcode      string
	DeliveryCity          string
	DeliveryCountry       string
	DeliveryContactNumber string
	ValidFrom             time.Time
	ValidTo               *time.Time
	MostRecent            bool
}

// ProductRecord is a product dimension row (SCD type 1). Exactly one row
// exists per normalized ProductName; UnitPrice is overwritten in place.
type ProductRecord struct {
	ID          int64
	ProductName string
	ProductType string
	UnitPrice   float64
}

// PaymentRecord is an append-only payment dimension row, one per distinct
// normalized (BillingCode, PaymentType, PaymentDate) triple, never updated.
type PaymentRecord struct {
	ID                 int64
	PaymentBillingCode string
	PaymentType        string
	PaymentDate        time.Time
}

// FactOrder is one immutable fact row, keyed by OrderNumber. Foreign keys
// reference the dimension rows that were current when the fact was inserted.
type FactOrder struct {
	OrderNumber     string
	DeliveryID      int64
	ProductID       int64
	PaymentID       int64
	TotalPrice      float64
	Currency        string
	ProductQuantity int
	ClientName      string
}

// SkippedOrder reports a staging row whose fact insert was skipped because a
// dimension key did not resolve.
type SkippedOrder struct {
	OrderNumber string
	Reason      string
}
