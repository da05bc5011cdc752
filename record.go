package orderpipe

import (
	"strconv"
	"strings"

	"golang.org/x/xerrors"
)

// OrderRecord is one order row in the shape the warehouse table expects.
// Pointer fields marshal to JSON null when the source cell was empty, which
// BigQuery accepts for every nullable column.
type OrderRecord struct {
	OrderID                    *string  `json:"order_id"`
	CustomerID                 *string  `json:"customer_id"`
	OrderStatus                *string  `json:"order_status"`
	OrderPurchaseTimestamp     *string  `json:"order_purchase_timestamp"`
	OrderApprovedAt            *string  `json:"order_approved_at"`
	OrderDeliveredTimestamp    *string  `json:"order_delivered_timestamp"`
	OrderEstimatedDeliveryDate *string  `json:"order_estimated_delivery_date"`
	CustomerZipCodePrefix      *string  `json:"customer_zip_code_prefix"`
	CustomerCity               *string  `json:"customer_city"`
	CustomerState              *string  `json:"customer_state"`
	ProductID                  *string  `json:"product_id"`
	SellerID                   *string  `json:"seller_id"`
	Price                      *float64 `json:"price"`
	ShippingCharges            *float64 `json:"shipping_charges"`
	PaymentSequential          *int64   `json:"payment_sequential"`
	PaymentType                *string  `json:"payment_type"`
	PaymentInstallments        *int64   `json:"payment_installments"`
	PaymentValue               *float64 `json:"payment_value"`
	ProductCategoryName        *string  `json:"product_category_name"`
	ProductWeightG             *float64 `json:"product_weight_g"`
	ProductLengthCm            *float64 `json:"product_length_cm"`
	ProductHeightCm            *float64 `json:"product_height_cm"`
	ProductWidthCm             *float64 `json:"product_width_cm"`
}

// OrderRecordFromCSV converts one CSV row, ordered as OrderSchema, into an
// OrderRecord. Empty cells become nulls.
func OrderRecordFromCSV(row []string) (*OrderRecord, error) {
	if len(row) != len(OrderSchema) {
		return nil, xerrors.Errorf("row has %d columns, schema expects %d", len(row), len(OrderSchema))
	}

	var (
		r   OrderRecord
		err error
	)

	r.OrderID = optString(row[0])
	r.CustomerID = optString(row[1])
	r.OrderStatus = optString(row[2])
	r.OrderPurchaseTimestamp = optString(row[3])
	r.OrderApprovedAt = optString(row[4])
	r.OrderDeliveredTimestamp = optString(row[5])
	r.OrderEstimatedDeliveryDate = optString(row[6])

	if r.CustomerZipCodePrefix, err = optZip(row[7]); err != nil {
		return nil, xerrors.Errorf("column customer_zip_code_prefix: %w", err)
	}

	r.CustomerCity = optString(row[8])
	r.CustomerState = optString(row[9])
	r.ProductID = optString(row[10])
	r.SellerID = optString(row[11])

	if r.Price, err = optFloat(row[12]); err != nil {
		return nil, xerrors.Errorf("column price: %w", err)
	}

	if r.ShippingCharges, err = optFloat(row[13]); err != nil {
		return nil, xerrors.Errorf("column shipping_charges: %w", err)
	}

	if r.PaymentSequential, err = optInt(row[14]); err != nil {
		return nil, xerrors.Errorf("column payment_sequential: %w", err)
	}

	r.PaymentType = optString(row[15])

	if r.PaymentInstallments, err = optInt(row[16]); err != nil {
		return nil, xerrors.Errorf("column payment_installments: %w", err)
	}

	if r.PaymentValue, err = optFloat(row[17]); err != nil {
		return nil, xerrors.Errorf("column payment_value: %w", err)
	}

	r.ProductCategoryName = optString(row[18])

	if r.ProductWeightG, err = optFloat(row[19]); err != nil {
		return nil, xerrors.Errorf("column product_weight_g: %w", err)
	}

	if r.ProductLengthCm, err = optFloat(row[20]); err != nil {
		return nil, xerrors.Errorf("column product_length_cm: %w", err)
	}

	if r.ProductHeightCm, err = optFloat(row[21]); err != nil {
		return nil, xerrors.Errorf("column product_height_cm: %w", err)
	}

	if r.ProductWidthCm, err = optFloat(row[22]); err != nil {
		return nil, xerrors.Errorf("column product_width_cm: %w", err)
	}

	return &r, nil
}

func optString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	return &s
}

func optFloat(s string) (*float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, xerrors.Errorf("%q is not a number: %w", s, err)
	}

	return &f, nil
}

func optInt(s string) (*int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	// Source exports sometimes render integers as "3.0".
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, xerrors.Errorf("%q is not an integer: %w", s, err)
	}

	i := int64(f)

	return &i, nil
}

// optZip keeps zip prefixes as strings but strips a trailing ".0" that
// spreadsheet round-trips introduce.
func optZip(s string) (*string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	if f, err := strconv.ParseFloat(s, 64); err == nil {
		s = strconv.FormatInt(int64(f), 10)
	}

	return &s, nil
}
