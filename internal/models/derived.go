package models

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

const day = 24 * time.Hour

// Every derived accessor reports ok=false when an input is null. Callers
// decide whether to skip or default; an undefined value is never zero.

func (o *OrderLine) TotalValue() (decimal.Decimal, bool) {
	if o.Price == nil || o.FreightValue == nil {
		return decimal.Decimal{}, false
	}
	return o.Price.Add(*o.FreightValue), true
}

// DeliveryTimeDays is the fractional number of days between purchase and
// delivery to the customer. Used for means.
func (o *OrderLine) DeliveryTimeDays() (float64, bool) {
	if o.PurchasedAt == nil || o.DeliveredCustomerAt == nil {
		return 0, false
	}
	return o.DeliveredCustomerAt.Sub(*o.PurchasedAt).Seconds() / day.Seconds(), true
}

// DeliveryDays is the whole-day delivery time, floored the way a calendar
// day difference is (-0.5 days is -1). Used for point clouds and histograms.
func (o *OrderLine) DeliveryDays() (int, bool) {
	if o.PurchasedAt == nil || o.DeliveredCustomerAt == nil {
		return 0, false
	}
	return WholeDays(o.DeliveredCustomerAt.Sub(*o.PurchasedAt)), true
}

func (o *OrderLine) IsOnTime() (bool, bool) {
	if o.DeliveredCustomerAt == nil || o.EstimatedDeliveryAt == nil {
		return false, false
	}
	return !o.DeliveredCustomerAt.After(*o.EstimatedDeliveryAt), true
}

func (o *OrderLine) DayOfWeek() (time.Weekday, bool) {
	if o.PurchasedAt == nil {
		return 0, false
	}
	return o.PurchasedAt.Weekday(), true
}

func (o *OrderLine) Month() (time.Month, bool) {
	if o.PurchasedAt == nil {
		return 0, false
	}
	return o.PurchasedAt.Month(), true
}

func (o *OrderLine) Quarter() (int, bool) {
	if o.PurchasedAt == nil {
		return 0, false
	}
	return (int(o.PurchasedAt.Month())-1)/3 + 1, true
}

func (o *OrderLine) Year() (int, bool) {
	if o.PurchasedAt == nil {
		return 0, false
	}
	return o.PurchasedAt.Year(), true
}

func (o *OrderLine) OrderHour() (int, bool) {
	if o.PurchasedAt == nil {
		return 0, false
	}
	return o.PurchasedAt.Hour(), true
}

// PurchaseDate truncates the purchase timestamp to midnight in its own location.
func (o *OrderLine) PurchaseDate() (time.Time, bool) {
	if o.PurchasedAt == nil {
		return time.Time{}, false
	}
	return DateOf(*o.PurchasedAt), true
}

// PurchaseMonth is the first instant of the purchase month.
func (o *OrderLine) PurchaseMonth() (time.Time, bool) {
	if o.PurchasedAt == nil {
		return time.Time{}, false
	}
	return MonthOf(*o.PurchasedAt), true
}

func DateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func MonthOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

// WholeDays floors a duration to whole days.
func WholeDays(d time.Duration) int {
	return int(math.Floor(d.Seconds() / day.Seconds()))
}

// DerivedFields is the flat per-record map of derived values handed to the
// presentation layer. Nil means undefined.
type DerivedFields struct {
	OrderID          string   `json:"order_id"`
	CustomerID       string   `json:"customer_id"`
	TotalValue       *float64 `json:"total_value"`
	DeliveryTimeDays *float64 `json:"delivery_time_days"`
	DeliveryDays     *int     `json:"delivery_days"`
	IsOnTime         *bool    `json:"is_on_time"`
	DayOfWeek        *string  `json:"day_of_week"`
	Month            *int     `json:"month"`
	Quarter          *int     `json:"quarter"`
	Year             *int     `json:"year"`
	OrderHour        *int     `json:"order_hour"`
}

func (o *OrderLine) Derived() DerivedFields {
	d := DerivedFields{OrderID: o.OrderID, CustomerID: o.CustomerID}
	if v, ok := o.TotalValue(); ok {
		f := v.InexactFloat64()
		d.TotalValue = &f
	}
	if v, ok := o.DeliveryTimeDays(); ok {
		d.DeliveryTimeDays = &v
	}
	if v, ok := o.DeliveryDays(); ok {
		d.DeliveryDays = &v
	}
	if v, ok := o.IsOnTime(); ok {
		d.IsOnTime = &v
	}
	if v, ok := o.DayOfWeek(); ok {
		name := v.String()
		d.DayOfWeek = &name
	}
	if v, ok := o.Month(); ok {
		m := int(v)
		d.Month = &m
	}
	if v, ok := o.Quarter(); ok {
		d.Quarter = &v
	}
	if v, ok := o.Year(); ok {
		d.Year = &v
	}
	if v, ok := o.OrderHour(); ok {
		d.OrderHour = &v
	}
	return d
}
