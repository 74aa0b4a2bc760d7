package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/quartzdata/ordermart/pkg/mart"
)

// Tx adapts a pgx transaction to the merge engine's Tx interface. All reads
// return rows in ascending surrogate-id order, which the engine relies on
// for deterministic resolution.
type Tx struct {
	tx pgx.Tx
}

var _ mart.Tx = (*Tx)(nil)

func (t *Tx) Deliveries(ctx context.Context) ([]mart.DeliveryRecord, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT delivery_id, client_name, delivery_address, delivery_postcode,
		       delivery_city, delivery_country, delivery_contact_number,
		       valid_from, valid_to, most_recent
		FROM dim_delivery_details
		ORDER BY delivery_id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query delivery dimension: %w", err)
	}
	defer rows.Close()

	var recs []mart.DeliveryRecord
	for rows.Next() {
		var rec mart.DeliveryRecord
		if err := rows.Scan(
			&rec.ID, &rec.ClientName, &rec.DeliveryAddress, &rec.DeliveryPostcode,
			&rec.DeliveryCity, &rec.DeliveryCountry, &rec.DeliveryContactNumber,
			&rec.ValidFrom, &rec.ValidTo, &rec.MostRecent,
		); err != nil {
			return nil, fmt.Errorf("failed to scan delivery record: %w", err)
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read delivery dimension: %w", err)
	}
	return recs, nil
}

func (t *Tx) InsertDelivery(ctx context.Context, rec mart.DeliveryRecord) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `
		INSERT INTO dim_delivery_details
			(client_name, delivery_address, delivery_postcode, delivery_city,
			 delivery_country, delivery_contact_number, valid_from, valid_to, most_recent)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING delivery_id
	`,
		rec.ClientName, rec.DeliveryAddress, rec.DeliveryPostcode, rec.DeliveryCity,
		rec.DeliveryCountry, rec.DeliveryContactNumber, rec.ValidFrom, rec.ValidTo, rec.MostRecent,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to insert delivery record: %w", err)
	}
	return id, nil
}

func (t *Tx) SupersedeDelivery(ctx context.Context, id int64, validTo time.Time) error {
	_, err := t.tx.Exec(ctx, `
		UPDATE dim_delivery_details
		SET most_recent = FALSE, valid_to = $2
		WHERE delivery_id = $1
	`, id, validTo)
	if err != nil {
		return fmt.Errorf("failed to supersede delivery record %d: %w", id, err)
	}
	return nil
}

func (t *Tx) Products(ctx context.Context) ([]mart.ProductRecord, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT product_id, product_name, product_type, unit_price
		FROM dim_product_details
		ORDER BY product_id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query product dimension: %w", err)
	}
	defer rows.Close()

	var recs []mart.ProductRecord
	for rows.Next() {
		var rec mart.ProductRecord
		if err := rows.Scan(&rec.ID, &rec.ProductName, &rec.ProductType, &rec.UnitPrice); err != nil {
			return nil, fmt.Errorf("failed to scan product record: %w", err)
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read product dimension: %w", err)
	}
	return recs, nil
}

func (t *Tx) InsertProduct(ctx context.Context, rec mart.ProductRecord) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `
		INSERT INTO dim_product_details (product_name, product_type, unit_price)
		VALUES ($1, $2, $3)
		RETURNING product_id
	`, rec.ProductName, rec.ProductType, rec.UnitPrice).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to insert product record: %w", err)
	}
	return id, nil
}

func (t *Tx) UpdateProductPrice(ctx context.Context, id int64, unitPrice float64) error {
	_, err := t.tx.Exec(ctx, `
		UPDATE dim_product_details
		SET unit_price = $2
		WHERE product_id = $1
	`, id, unitPrice)
	if err != nil {
		return fmt.Errorf("failed to update product price %d: %w", id, err)
	}
	return nil
}

func (t *Tx) Payments(ctx context.Context) ([]mart.PaymentRecord, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT payment_id, payment_billing_code, payment_type, payment_date
		FROM dim_payment_details
		ORDER BY payment_id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query payment dimension: %w", err)
	}
	defer rows.Close()

	var recs []mart.PaymentRecord
	for rows.Next() {
		var rec mart.PaymentRecord
		if err := rows.Scan(&rec.ID, &rec.PaymentBillingCode, &rec.PaymentType, &rec.PaymentDate); err != nil {
			return nil, fmt.Errorf("failed to scan payment record: %w", err)
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read payment dimension: %w", err)
	}
	return recs, nil
}

func (t *Tx) InsertPayment(ctx context.Context, rec mart.PaymentRecord) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `
		INSERT INTO dim_payment_details (payment_billing_code, payment_type, payment_date)
		VALUES ($1, $2, $3)
		RETURNING payment_id
	`, rec.PaymentBillingCode, rec.PaymentType, rec.PaymentDate).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to insert payment record: %w", err)
	}
	return id, nil
}

func (t *Tx) FactOrderNumbers(ctx context.Context) ([]string, error) {
	rows, err := t.tx.Query(ctx, `SELECT order_number FROM fact_orders ORDER BY order_number`)
	if err != nil {
		return nil, fmt.Errorf("failed to query fact order numbers: %w", err)
	}
	defer rows.Close()

	var numbers []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("failed to scan fact order number: %w", err)
		}
		numbers = append(numbers, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read fact order numbers: %w", err)
	}
	return numbers, nil
}

func (t *Tx) InsertFactOrder(ctx context.Context, fact mart.FactOrder) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO fact_orders
			(order_number, delivery_id, product_id, payment_id,
			 total_price, currency, product_quantity, client_name)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (order_number) DO NOTHING
	`,
		fact.OrderNumber, fact.DeliveryID, fact.ProductID, fact.PaymentID,
		fact.TotalPrice, fact.Currency, fact.ProductQuantity, fact.ClientName,
	)
	if err != nil {
		return fmt.Errorf("failed to insert fact for order %q: %w", fact.OrderNumber, err)
	}
	return nil
}
