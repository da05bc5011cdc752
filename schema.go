package orderpipe

import "cloud.google.com/go/bigquery"

// orderKeyColumn is the natural key for upserts into the canonical table.
const orderKeyColumn = "order_id"

// OrderSchema is the single shared descriptor of the order-record shape.
// Every loader and the merge builder consume it; the field set changes only
// here.
var OrderSchema = bigquery.Schema{
	{Name: "order_id", Type: bigquery.StringFieldType},
	{Name: "customer_id", Type: bigquery.StringFieldType},
	{Name: "order_status", Type: bigquery.StringFieldType},
	{Name: "order_purchase_timestamp", Type: bigquery.TimestampFieldType},
	{Name: "order_approved_at", Type: bigquery.TimestampFieldType},
	{Name: "order_delivered_timestamp", Type: bigquery.TimestampFieldType},
	{Name: "order_estimated_delivery_date", Type: bigquery.DateFieldType},
	{Name: "customer_zip_code_prefix", Type: bigquery.StringFieldType},
	{Name: "customer_city", Type: bigquery.StringFieldType},
	{Name: "customer_state", Type: bigquery.StringFieldType},
	{Name: "product_id", Type: bigquery.StringFieldType},
	{Name: "seller_id", Type: bigquery.StringFieldType},
	{Name: "price", Type: bigquery.FloatFieldType},
	{Name: "shipping_charges", Type: bigquery.FloatFieldType},
	{Name: "payment_sequential", Type: bigquery.IntegerFieldType},
	{Name: "payment_type", Type: bigquery.StringFieldType},
	{Name: "payment_installments", Type: bigquery.IntegerFieldType},
	{Name: "payment_value", Type: bigquery.FloatFieldType},
	{Name: "product_category_name", Type: bigquery.StringFieldType},
	{Name: "product_weight_g", Type: bigquery.FloatFieldType},
	{Name: "product_length_cm", Type: bigquery.FloatFieldType},
	{Name: "product_height_cm", Type: bigquery.FloatFieldType},
	{Name: "product_width_cm", Type: bigquery.FloatFieldType},
}

// OrderColumns returns the schema's column names in declaration order.
func OrderColumns() []string {
	cols := make([]string, len(OrderSchema))
	for i, f := range OrderSchema {
		cols[i] = f.Name
	}

	return cols
}
