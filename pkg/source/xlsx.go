package source

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/quartzdata/ordermart/pkg/orders"
)

// requiredColumns are the spreadsheet headers an order workbook must carry.
var requiredColumns = []string{
	"OrderNumber",
	"ClientName",
	"DeliveryAddress",
	"DeliveryPostcode",
	"DeliveryCity",
	"DeliveryCountry",
	"DeliveryContactNumber",
	"ProductName",
	"ProductType",
	"UnitPrice",
	"ProductQuantity",
	"TotalPrice",
	"Currency",
	"PaymentBillingCode",
	"PaymentType",
	"PaymentDate",
}

// paymentDateLayouts are tried in order. Source workbooks use the UK day-first
// form; ISO dates are accepted for hand-built fixtures.
var paymentDateLayouts = []string{
	"02/01/2006",
	"2006-01-02",
	"02-01-2006",
}

// parseWorkbook decodes the first sheet of an xlsx workbook into staging rows.
func parseWorkbook(r io.Reader) ([]orders.StagingRow, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	cells, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	if len(cells) == 0 {
		return nil, fmt.Errorf("sheet %q is empty", sheet)
	}
	return rowsToStaging(cells[0], cells[1:])
}

// rowsToStaging maps header-addressed cell rows to staging rows. Rows that
// are entirely blank are skipped; anything else malformed fails the batch.
func rowsToStaging(header []string, cells [][]string) ([]orders.StagingRow, error) {
	columns := make(map[string]int, len(header))
	for i, h := range header {
		columns[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, col := range requiredColumns {
		if _, ok := columns[strings.ToLower(col)]; !ok {
			return nil, fmt.Errorf("missing column %q in header", col)
		}
	}
	cell := func(row []string, col string) string {
		i := columns[strings.ToLower(col)]
		if i >= len(row) {
			return ""
		}
		return row[i]
	}

	rows := make([]orders.StagingRow, 0, len(cells))
	for n, raw := range cells {
		if blankRow(raw) {
			continue
		}
		// Data rows start after the header, hence n+2 as the sheet row number.
		rowNum := n + 2

		unitPrice, err := strconv.ParseFloat(strings.TrimSpace(cell(raw, "UnitPrice")), 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid UnitPrice %q: %w", rowNum, cell(raw, "UnitPrice"), err)
		}
		totalPrice, err := strconv.ParseFloat(strings.TrimSpace(cell(raw, "TotalPrice")), 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid TotalPrice %q: %w", rowNum, cell(raw, "TotalPrice"), err)
		}
		quantity, err := strconv.Atoi(strings.TrimSpace(cell(raw, "ProductQuantity")))
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid ProductQuantity %q: %w", rowNum, cell(raw, "ProductQuantity"), err)
		}
		paymentDate, err := parsePaymentDate(cell(raw, "PaymentDate"))
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", rowNum, err)
		}

		rows = append(rows, orders.StagingRow{
			OrderNumber:           strings.TrimSpace(cell(raw, "OrderNumber")),
			ClientName:            cell(raw, "ClientName"),
			DeliveryAddress:       cell(raw, "DeliveryAddress"),
			DeliveryPostcode:      cell(raw, "DeliveryPostcode"),
			DeliveryCity:          cell(raw, "DeliveryCity"),
			DeliveryCountry:       cell(raw, "DeliveryCountry"),
			DeliveryContactNumber: cell(raw, "DeliveryContactNumber"),
			ProductName:           cell(raw, "ProductName"),
			ProductType:           cell(raw, "ProductType"),
			UnitPrice:             unitPrice,
			ProductQuantity:       quantity,
			TotalPrice:            totalPrice,
			Currency:              cell(raw, "Currency"),
			PaymentBillingCode:    cell(raw, "PaymentBillingCode"),
			PaymentType:           cell(raw, "PaymentType"),
			PaymentDate:           paymentDate,
		})
	}
	return rows, nil
}

func parsePaymentDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range paymentDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid PaymentDate %q", s)
}

func blankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
