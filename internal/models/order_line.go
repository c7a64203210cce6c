package models

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

// Field names a column of the order-line source table.
type Field string

const (
	FieldOrderID     Field = "order_id"
	FieldProductID   Field = "product_id"
	FieldCustomerID  Field = "customer_id"
	FieldSellerID    Field = "seller_id"
	FieldCategory    Field = "product_category_name_english"
	FieldState       Field = "customer_state"
	FieldPaymentType Field = "payment_type"
	FieldPrice       Field = "price"
	FieldFreight     Field = "freight_value"
	FieldReviewScore Field = "review_score"

	FieldPurchasedAt         Field = "order_purchase_timestamp"
	FieldApprovedAt          Field = "order_approved_at"
	FieldDeliveredCarrierAt  Field = "order_delivered_carrier_date"
	FieldDeliveredCustomerAt Field = "order_delivered_customer_date"
	FieldEstimatedDeliveryAt Field = "order_estimated_delivery_date"
	FieldShippingLimitAt     Field = "shipping_limit_date"
	FieldReviewCreatedAt     Field = "review_creation_date"
	FieldReviewAnsweredAt    Field = "review_answer_timestamp"
)

// RequiredField is needed by every time-based view. Its absence is fatal for
// those views rather than a degradation.
const RequiredField = FieldPurchasedAt

var TimestampFields = []Field{
	FieldPurchasedAt,
	FieldApprovedAt,
	FieldDeliveredCarrierAt,
	FieldDeliveredCustomerAt,
	FieldEstimatedDeliveryAt,
	FieldShippingLimitAt,
	FieldReviewCreatedAt,
	FieldReviewAnsweredAt,
}

var AllFields = append([]Field{
	FieldOrderID,
	FieldProductID,
	FieldCustomerID,
	FieldSellerID,
	FieldCategory,
	FieldState,
	FieldPaymentType,
	FieldPrice,
	FieldFreight,
	FieldReviewScore,
}, TimestampFields...)

// Schema records which known columns were present in the source header.
type Schema struct {
	Present map[Field]bool
}

func NewSchema(fields ...Field) Schema {
	s := Schema{Present: make(map[Field]bool, len(fields))}
	for _, f := range fields {
		s.Present[f] = true
	}
	return s
}

// FullSchema is the schema of a source carrying every known column.
func FullSchema() Schema {
	return NewSchema(AllFields...)
}

func (s Schema) Has(f Field) bool {
	return s.Present[f]
}

// Missing returns the subset of fields absent from the schema, in argument order.
func (s Schema) Missing(fields ...Field) []Field {
	var missing []Field
	for _, f := range fields {
		if !s.Present[f] {
			missing = append(missing, f)
		}
	}
	return missing
}

// Columns lists the present fields in canonical column order.
func (s Schema) Columns() []Field {
	cols := make([]Field, 0, len(s.Present))
	for _, f := range AllFields {
		if s.Present[f] {
			cols = append(cols, f)
		}
	}
	return cols
}

func (s Schema) Equal(other Schema) bool {
	return slices.Equal(s.Columns(), other.Columns())
}

// OrderLine is one row of the source table: one product within one order.
// Nil pointers are null values.
type OrderLine struct {
	OrderID    string
	ProductID  string
	CustomerID string
	SellerID   string

	Category    string
	State       string
	PaymentType string

	Price        *decimal.Decimal
	FreightValue *decimal.Decimal
	ReviewScore  *int

	PurchasedAt         *time.Time
	ApprovedAt          *time.Time
	DeliveredCarrierAt  *time.Time
	DeliveredCustomerAt *time.Time
	EstimatedDeliveryAt *time.Time
	ShippingLimitAt     *time.Time
	ReviewCreatedAt     *time.Time
	ReviewAnsweredAt    *time.Time
}

// Timestamp returns the value of a timestamp field, nil for non-timestamp fields.
func (o *OrderLine) Timestamp(f Field) *time.Time {
	switch f {
	case FieldPurchasedAt:
		return o.PurchasedAt
	case FieldApprovedAt:
		return o.ApprovedAt
	case FieldDeliveredCarrierAt:
		return o.DeliveredCarrierAt
	case FieldDeliveredCustomerAt:
		return o.DeliveredCustomerAt
	case FieldEstimatedDeliveryAt:
		return o.EstimatedDeliveryAt
	case FieldShippingLimitAt:
		return o.ShippingLimitAt
	case FieldReviewCreatedAt:
		return o.ReviewCreatedAt
	case FieldReviewAnsweredAt:
		return o.ReviewAnsweredAt
	}
	return nil
}

// SetTimestamp assigns a timestamp field. Non-timestamp fields are ignored.
func (o *OrderLine) SetTimestamp(f Field, t *time.Time) {
	switch f {
	case FieldPurchasedAt:
		o.PurchasedAt = t
	case FieldApprovedAt:
		o.ApprovedAt = t
	case FieldDeliveredCarrierAt:
		o.DeliveredCarrierAt = t
	case FieldDeliveredCustomerAt:
		o.DeliveredCustomerAt = t
	case FieldEstimatedDeliveryAt:
		o.EstimatedDeliveryAt = t
	case FieldShippingLimitAt:
		o.ShippingLimitAt = t
	case FieldReviewCreatedAt:
		o.ReviewCreatedAt = t
	case FieldReviewAnsweredAt:
		o.ReviewAnsweredAt = t
	}
}
